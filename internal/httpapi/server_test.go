package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/mirrormon/internal/cache"
	"github.com/hamed0406/mirrormon/internal/domain"
	"github.com/hamed0406/mirrormon/internal/monitor"
	"github.com/hamed0406/mirrormon/internal/probe"
)

type countingProber struct{ n int32 }

func (p *countingProber) Probe(_ context.Context, target string, _ time.Duration) domain.Measurement {
	atomic.AddInt32(&p.n, 1)
	return domain.Measurement{URL: target, ResponseTimeMS: 650, Reachable: true, Method: "Ping API", Timestamp: domain.Now()}
}

func liveServer(t *testing.T, opts RouterOptions) (*httptest.Server, *countingProber) {
	t.Helper()
	p := &countingProber{}
	eps := []domain.Endpoint{
		{Name: "One", URL: "https://one.example", Provider: "one"},
		{Name: "Two", URL: "https://two.example", Provider: "two"},
	}
	svc, err := monitor.New(monitor.Options{
		Endpoints:  eps,
		Prober:     p,
		Thresholds: probe.PingPreset,
		Cache:      cache.New(cache.NewMemoryStore(), time.Minute, nil),
	})
	if err != nil {
		t.Fatalf("monitor: %v", err)
	}
	ts := httptest.NewServer(NewServer(zap.NewNop(), nil, svc).Router(opts))
	t.Cleanup(ts.Close)
	return ts, p
}

func get(t *testing.T, url string, hdr map[string]string) *http.Response {
	t.Helper()
	req, _ := http.NewRequest(http.MethodGet, url, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestLive_CheckAllThenCached(t *testing.T) {
	ts, p := liveServer(t, RouterOptions{})

	var first, second batchResponse
	resp := get(t, ts.URL+"/api?action=check_all", nil)
	if err := json.NewDecoder(resp.Body).Decode(&first); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if first.Cached || len(first.Data) != 2 || first.Stats["fair"] != 2 || first.Stats.Total() != 2 {
		t.Fatalf("first response: %+v", first)
	}
	if first.Data[0].Name != "One" || first.Data[1].Name != "Two" {
		t.Fatalf("order not preserved: %+v", first.Data)
	}

	resp = get(t, ts.URL+"/api.php?action=check_all", nil)
	if err := json.NewDecoder(resp.Body).Decode(&second); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !second.Cached || atomic.LoadInt32(&p.n) != 2 {
		t.Fatalf("second call should hit the cache (probes=%d cached=%v)", atomic.LoadInt32(&p.n), second.Cached)
	}
}

func TestHealthz(t *testing.T) {
	ts, _ := liveServer(t, RouterOptions{APIKeys: []string{"secret"}, BlockedAgents: []string{"bot"}})
	resp := get(t, ts.URL+"/healthz", map[string]string{"User-Agent": "kube-probe-bot"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz should bypass api middleware, got %d", resp.StatusCode)
	}
}

func TestRouter_BlocksBotsAndRequiresKeys(t *testing.T) {
	ts, _ := liveServer(t, RouterOptions{APIKeys: []string{"secret"}, BlockedAgents: []string{"bot", "spider"}})

	resp := get(t, ts.URL+"/api?action=quick_check", map[string]string{"User-Agent": "Baiduspider", "X-API-Key": "secret"})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("spider: want 403 got %d", resp.StatusCode)
	}
	resp = get(t, ts.URL+"/api?action=quick_check", map[string]string{"User-Agent": "Mozilla/5.0"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("no key: want 401 got %d", resp.StatusCode)
	}
	resp = get(t, ts.URL+"/api?action=quick_check", map[string]string{"User-Agent": "Mozilla/5.0", "Authorization": "Bearer secret"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("with key: want 200 got %d", resp.StatusCode)
	}
}

func TestRouter_CORSPreflight(t *testing.T) {
	ts, _ := liveServer(t, RouterOptions{AllowedOrigins: []string{"https://status.example"}})
	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/api?action=check_service", nil)
	req.Header.Set("Origin", "https://status.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("preflight: %v", err)
	}
	defer resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "https://status.example" {
		t.Fatalf("allow-origin: %q", got)
	}
}
