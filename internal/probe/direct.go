package probe

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/http/httptrace"
	"strings"
	"time"

	"github.com/hamed0406/mirrormon/internal/domain"
)

const (
	MethodDirect    = "HTTP HEAD"
	directUserAgent = "Docker-Monitor/1.0 (Health Check)"
	registryPath    = "/v2/"

	defaultConnectTimeout = 5 * time.Second
)

// reachableCodes are the answers a registry root gives to anonymous,
// authenticated and missing-path requests.
var reachableCodes = map[int]bool{
	http.StatusOK:           true,
	http.StatusUnauthorized: true,
	http.StatusNotFound:     true,
}

// DirectProber issues HEAD <url>/v2/ against the mirror itself, with
// certificate verification disabled.
type DirectProber struct {
	Client *http.Client
	// Diagnose explains transport failures; nil disables DNS diagnosis.
	Diagnose func(host string) DNSStatus
}

func NewDirectProber(connectTimeout time.Duration) *DirectProber {
	if connectTimeout <= 0 {
		connectTimeout = defaultConnectTimeout
	}
	return &DirectProber{
		Client: &http.Client{
			Transport: &http.Transport{
				DialContext:         (&net.Dialer{Timeout: connectTimeout}).DialContext,
				TLSClientConfig:     &tls.Config{InsecureSkipVerify: true},
				TLSHandshakeTimeout: connectTimeout,
				MaxIdleConns:        100,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		Diagnose: CheckDNS,
	}
}

func (d *DirectProber) Probe(ctx context.Context, target string, timeout time.Duration) domain.Measurement {
	start := time.Now()
	m := domain.Measurement{URL: target, Method: MethodDirect, Timestamp: domain.Now()}

	u, err := parseTarget(target)
	if err != nil {
		m.Error = "Invalid URL format"
		m.ResponseTimeMS = elapsedMS(start)
		return m
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var remoteIP string
	trace := &httptrace.ClientTrace{
		GotConn: func(info httptrace.GotConnInfo) {
			if addr, ok := info.Conn.RemoteAddr().(*net.TCPAddr); ok {
				remoteIP = addr.IP.String()
			}
		},
	}
	checkURL := strings.TrimRight(strings.TrimSpace(target), "/") + registryPath
	req, err := http.NewRequestWithContext(httptrace.WithClientTrace(ctx, trace), http.MethodHead, checkURL, nil)
	if err != nil {
		m.Error = err.Error()
		m.ResponseTimeMS = elapsedMS(start)
		return m
	}
	req.Header.Set("User-Agent", directUserAgent)

	resp, err := d.Client.Do(req)
	m.ResponseTimeMS = elapsedMS(start)
	m.IP = remoteIP
	if err != nil {
		m.Error = err.Error()
		if d.Diagnose != nil {
			if dns := d.Diagnose(u.Hostname()); dns.Class != DNSResolves {
				m.Error = fmt.Sprintf("%s dns=%s", m.Error, dns.Class)
			}
		}
		return m
	}
	defer resp.Body.Close()

	m.HTTPCode = resp.StatusCode
	m.Server = resp.Header.Get("Server")
	if !reachableCodes[resp.StatusCode] {
		m.Error = fmt.Sprintf("HTTP %d", resp.StatusCode)
		return m
	}
	m.Reachable = true
	return m
}
