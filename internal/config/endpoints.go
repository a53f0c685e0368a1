package config

import (
	"bytes"
	"fmt"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/hamed0406/mirrormon/internal/domain"
)

// DefaultEndpoints is the mirror list used when no endpoints file is set.
// Order matters: the first QUICK_COUNT entries make up a quick check.
func DefaultEndpoints() []domain.Endpoint {
	return []domain.Endpoint{
		{Name: "USTC Mirror", URL: "https://docker.mirrors.ustc.edu.cn", Provider: "USTC"},
		{Name: "Aliyun Registry", URL: "https://registry.cn-hangzhou.aliyuncs.com", Provider: "Aliyun"},
		{Name: "Tencent Cloud Mirror", URL: "https://mirror.ccs.tencentyun.com", Provider: "Tencent Cloud"},
		{Name: "Huawei Cloud SWR", URL: "https://swr.cn-north-1.myhuaweicloud.com", Provider: "Huawei Cloud"},
		{Name: "SJTUG Mirror", URL: "https://docker.mirrors.sjtug.sjtu.edu.cn", Provider: "SJTU"},
		{Name: "NJU Mirror", URL: "https://docker.nju.edu.cn", Provider: "NJU"},
		{Name: "1ms Mirror", URL: "https://docker.1ms.run", Provider: "1ms"},
		{Name: "1Panel Mirror", URL: "https://docker.1panel.live", Provider: "1Panel"},
		{Name: "Rat.dev Hub", URL: "https://hub.rat.dev", Provider: "Rat Panel"},
		{Name: "DockerProxy", URL: "https://dockerproxy.net", Provider: "DockerProxy"},
		{Name: "Kejilion Mirror", URL: "https://docker.kejilion.pro", Provider: "Kejilion"},
		{Name: "AtomHub", URL: "https://atomhub.openatom.cn", Provider: "OpenAtom"},
		{Name: "DockerPull", URL: "https://dockerpull.com", Provider: "DockerPull"},
		{Name: "Docker Hub", URL: "https://hub.docker.com", Provider: "Docker"},
	}
}

type endpointsFile struct {
	Endpoints []domain.Endpoint `yaml:"endpoints"`
}

// LoadEndpoints reads the endpoint list from path. An empty path yields
// DefaultEndpoints. The file is either a top-level list or a mapping with
// an "endpoints" key.
func LoadEndpoints(fs afero.Fs, path string) ([]domain.Endpoint, error) {
	if path == "" {
		return DefaultEndpoints(), nil
	}
	b, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read endpoints file: %w", err)
	}
	return ParseEndpoints(b)
}

func ParseEndpoints(b []byte) ([]domain.Endpoint, error) {
	var list []domain.Endpoint
	if err := yaml.Unmarshal(b, &list); err == nil {
		return list, nil
	}

	var f endpointsFile
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse endpoints file: %w", err)
	}
	return f.Endpoints, nil
}
