package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hamed0406/mirrormon/internal/domain"
)

const (
	MethodPingAPI        = "Ping API"
	MethodPingAPIPartial = "Ping API (Partial)"

	DefaultPingAPIURL  = "https://v2.xxapi.cn/api/ping"
	pingUserAgent      = "xiaoxiaoapi/1.0.0 (https://xxapi.cn)"
	pingConnectTimeout = 2 * time.Second
	// pingGrace is added to the probe timeout so the lookup service has time
	// to finish its own measurement of the target.
	pingGrace = 2 * time.Second

	maxPingBody = 64 << 10
)

// PingAPIProber delegates the latency measurement to a third-party ping
// service instead of contacting the mirror directly.
type PingAPIProber struct {
	APIURL string
	Client *http.Client
}

func NewPingAPIProber(apiURL string) *PingAPIProber {
	if apiURL == "" {
		apiURL = DefaultPingAPIURL
	}
	return &PingAPIProber{
		APIURL: apiURL,
		Client: &http.Client{
			Transport: &http.Transport{
				DialContext:         (&net.Dialer{Timeout: pingConnectTimeout}).DialContext,
				TLSHandshakeTimeout: pingConnectTimeout,
				MaxIdleConns:        20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

type pingEnvelope struct {
	Code int             `json:"code"`
	Data json.RawMessage `json:"data"`
	Msg  string          `json:"msg"`
}

type pingData struct {
	Time   string `json:"time"`
	Server string `json:"server"`
	IP     string `json:"ip"`
}

// pingReading is what could be salvaged from one call to the lookup service.
type pingReading struct {
	success bool
	ms      int64
	server  string
	ip      string
	err     string
}

func (p *PingAPIProber) Probe(ctx context.Context, target string, timeout time.Duration) domain.Measurement {
	start := time.Now()
	m := domain.Measurement{URL: target, Method: MethodPingAPI, Timestamp: domain.Now()}

	u, err := parseTarget(target)
	if err != nil {
		m.Error = "Invalid URL"
		if err == errInvalidHost {
			m.Error = "Invalid host"
		}
		m.ResponseTimeMS = elapsedMS(start)
		return m
	}

	r := p.lookup(ctx, u.Hostname(), timeout)
	if r.ms <= 0 {
		m.Error = r.err
		if m.Error == "" {
			m.Error = "Ping API failed"
		}
		m.ResponseTimeMS = elapsedMS(start)
		return m
	}

	// A time that could be extracted is trusted even when the service
	// reported a failure alongside it.
	m.Reachable = true
	m.ResponseTimeMS = r.ms
	m.Server = r.server
	m.IP = r.ip
	if !r.success {
		m.Method = MethodPingAPIPartial
		m.Error = r.err
	}
	return m
}

func (p *PingAPIProber) lookup(ctx context.Context, host string, timeout time.Duration) pingReading {
	ctx, cancel := context.WithTimeout(ctx, timeout+pingGrace)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.APIURL+"?url="+url.QueryEscape(host), nil)
	if err != nil {
		return pingReading{err: "Ping API error: " + err.Error()}
	}
	req.Header.Set("User-Agent", pingUserAgent)

	resp, err := p.Client.Do(req)
	if err != nil {
		return pingReading{err: "API Error: " + err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return pingReading{err: fmt.Sprintf("API HTTP Error: %d", resp.StatusCode)}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPingBody))
	if err != nil {
		return pingReading{err: "API Error: " + err.Error()}
	}
	return parsePingEnvelope(body)
}

func parsePingEnvelope(body []byte) pingReading {
	var env pingEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return pingReading{err: "Invalid API response"}
	}

	var data *pingData
	if len(env.Data) > 0 && string(env.Data) != "null" {
		var d pingData
		if json.Unmarshal(env.Data, &d) == nil {
			data = &d
		}
	}

	if env.Code == http.StatusOK && data != nil {
		return pingReading{success: true, ms: parseMillis(data.Time), server: data.Server, ip: data.IP}
	}

	r := pingReading{err: env.Msg}
	if r.err == "" {
		r.err = "API request failed"
	}
	if data != nil {
		if ms := parseMillis(data.Time); ms > 0 {
			r.ms, r.server, r.ip = ms, data.Server, data.IP
		}
	}
	return r
}

// parseMillis reads the leading integer of values like "650ms" or "12.7 ms".
// Anything that does not fit in an int64 counts as not extractable.
func parseMillis(s string) int64 {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		return 0
	}
	return n
}
