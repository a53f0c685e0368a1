package monitor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hamed0406/mirrormon/internal/cache"
	"github.com/hamed0406/mirrormon/internal/domain"
	"github.com/hamed0406/mirrormon/internal/probe"
)

type stubProber struct {
	mu       sync.Mutex
	calls    int32
	timeouts []time.Duration
	ms       map[string]int64
	fail     map[string]string
}

func (p *stubProber) Probe(ctx context.Context, target string, timeout time.Duration) domain.Measurement {
	atomic.AddInt32(&p.calls, 1)
	p.mu.Lock()
	p.timeouts = append(p.timeouts, timeout)
	p.mu.Unlock()

	m := domain.Measurement{URL: target, Method: "stub", Timestamp: domain.Now()}
	if msg, ok := p.fail[target]; ok {
		m.Error = msg
		m.ResponseTimeMS = 3000
		return m
	}
	m.ResponseTimeMS = p.ms[target]
	m.Reachable = true
	return m
}

func (p *stubProber) n() int32 { return atomic.LoadInt32(&p.calls) }

func (p *stubProber) lastTimeout() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.timeouts[len(p.timeouts)-1]
}

func mirrors(n int) []domain.Endpoint {
	out := make([]domain.Endpoint, n)
	for i := range out {
		out[i] = domain.Endpoint{
			Name:     fmt.Sprintf("Mirror %d", i),
			URL:      fmt.Sprintf("https://m%d.example", i),
			Provider: fmt.Sprintf("p%d", i),
		}
	}
	return out
}

func newService(t *testing.T, p probe.Prober, eps []domain.Endpoint, rc *cache.ResultCache) *Service {
	t.Helper()
	s, err := New(Options{
		Endpoints:  eps,
		Prober:     p,
		Thresholds: probe.PingPreset,
		Cache:      rc,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return s
}

func TestClampTimeout(t *testing.T) {
	cases := []struct {
		in   int
		want time.Duration
	}{
		{0, DefaultTimeout},
		{-5, DefaultTimeout},
		{1, time.Second},
		{30, 30 * time.Second},
		{31, DefaultTimeout},
		{100, DefaultTimeout},
	}
	for _, c := range cases {
		if got := ClampTimeout(c.in, DefaultTimeout); got != c.want {
			t.Errorf("ClampTimeout(%d) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestProbeOne_InvalidURL(t *testing.T) {
	p := &stubProber{}
	s := newService(t, p, mirrors(1), nil)
	for _, raw := range []string{"", "not a url", "ftp://x.example", "http://"} {
		_, err := s.ProbeOne(context.Background(), raw, 5)
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("ProbeOne(%q) err = %v, want ErrInvalidInput", raw, err)
		}
	}
	if p.n() != 0 {
		t.Fatalf("invalid input must not reach the prober")
	}
}

func TestProbeOne_FillsMetadataAndClampsTimeout(t *testing.T) {
	eps := mirrors(2)
	p := &stubProber{ms: map[string]int64{eps[1].URL: 650}}
	s := newService(t, p, eps, nil)

	res, err := s.ProbeOne(context.Background(), eps[1].URL+"/", 99)
	if err != nil {
		t.Fatalf("ProbeOne: %v", err)
	}
	if res.Name != "Mirror 1" || res.Provider != "p1" {
		t.Fatalf("metadata not filled: %+v", res)
	}
	if res.Status != domain.TierFair {
		t.Fatalf("650ms under ping preset: want fair, got %s", res.Status)
	}
	if got := p.lastTimeout(); got != DefaultTimeout {
		t.Fatalf("out of range timeout should clamp to default, got %v", got)
	}

	res, _ = s.ProbeOne(context.Background(), "https://unlisted.example", 7)
	if res.Name != "" || res.Provider != "" {
		t.Fatalf("unlisted URL should carry no metadata: %+v", res)
	}
	if got := p.lastTimeout(); got != 7*time.Second {
		t.Fatalf("in-range timeout: want 7s got %v", got)
	}
}

func TestProbeBatch_QuickUsesFirstTenAndQuickTimeout(t *testing.T) {
	eps := mirrors(14)
	p := &stubProber{}
	s := newService(t, p, eps, nil)

	br := s.ProbeBatch(context.Background(), eps, 0, true)
	if br.Mode != string(ModeQuick) || len(br.Results) != 10 {
		t.Fatalf("quick: mode=%s len=%d", br.Mode, len(br.Results))
	}
	for i, r := range br.Results {
		if r.URL != eps[i].URL {
			t.Fatalf("quick result %d is %s, want %s", i, r.URL, eps[i].URL)
		}
	}
	if got := p.lastTimeout(); got != DefaultQuickTimeout {
		t.Fatalf("quick default timeout: want 3s got %v", got)
	}

	br = s.ProbeBatch(context.Background(), eps, 0, false)
	if br.Mode != string(ModeAll) || len(br.Results) != 14 || br.Stats.Total() != 14 {
		t.Fatalf("all: mode=%s len=%d total=%d", br.Mode, len(br.Results), br.Stats.Total())
	}
}

func TestProbeBatch_IsolatesFailures(t *testing.T) {
	eps := mirrors(5)
	p := &stubProber{
		ms:   map[string]int64{eps[0].URL: 100, eps[1].URL: 100, eps[2].URL: 100, eps[4].URL: 100},
		fail: map[string]string{eps[3].URL: "connection refused"},
	}
	s := newService(t, p, eps, nil)

	br := s.ProbeBatch(context.Background(), eps, 5, false)
	if br.Stats[string(domain.TierFast)] != 4 || br.Stats[string(domain.TierError)] != 1 {
		t.Fatalf("want 4 fast + 1 error, got %v", br.Stats)
	}
	if br.Results[3].Error != "connection refused" {
		t.Fatalf("failure landed on the wrong row: %+v", br.Results)
	}
}

func TestCheck_CachesAndBypasses(t *testing.T) {
	ctx := context.Background()
	eps := mirrors(3)
	p := &stubProber{}
	rc := cache.New(cache.NewMemoryStore(), time.Minute, nil)
	s := newService(t, p, eps, rc)

	first, cached, err := s.Check(ctx, ModeAll, 0, false)
	if err != nil || cached {
		t.Fatalf("first check: cached=%v err=%v", cached, err)
	}
	if p.n() != 3 {
		t.Fatalf("want 3 probes, got %d", p.n())
	}

	second, cached, _ := s.Check(ctx, ModeAll, 0, false)
	if !cached || p.n() != 3 {
		t.Fatalf("second check should be served from cache (calls=%d)", p.n())
	}
	if len(second.Results) != len(first.Results) || second.Mode != first.Mode {
		t.Fatalf("cached result differs: %+v vs %+v", second, first)
	}

	// quick has its own key
	if _, cached, _ := s.Check(ctx, ModeQuick, 0, false); cached {
		t.Fatalf("quick must not reuse the all entry")
	}

	_, cached, _ = s.Check(ctx, ModeAll, 0, true)
	if cached || p.n() != 9 {
		t.Fatalf("bypass should re-probe (cached=%v calls=%d)", cached, p.n())
	}
	if _, ok := s.CacheLookup(ctx, ModeAll, false); !ok {
		t.Fatalf("bypassed check must still write the cache")
	}
	if _, ok := s.CacheLookup(ctx, ModeAll, true); ok {
		t.Fatalf("lookup with bypass must miss")
	}
}

func TestCheck_CancelledBatchNotCached(t *testing.T) {
	rc := cache.New(cache.NewMemoryStore(), time.Minute, nil)
	s := newService(t, &stubProber{}, mirrors(3), rc)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	br, _, err := s.Check(ctx, ModeAll, 0, false)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(br.Results) != 3 || br.Stats[string(domain.TierError)] != 3 {
		t.Fatalf("cancelled batch should report every endpoint as error: %v", br.Stats)
	}
	if _, ok := s.CacheLookup(context.Background(), ModeAll, false); ok {
		t.Fatalf("partial batch must not be cached")
	}
}

func TestCheck_UnknownMode(t *testing.T) {
	s := newService(t, &stubProber{}, mirrors(1), nil)
	if _, _, err := s.Check(context.Background(), Mode("everything"), 0, false); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("want ErrInvalidInput, got %v", err)
	}
	if _, err := ParseMode("QUICK "); err != nil {
		t.Fatalf("ParseMode should be lenient about case and space: %v", err)
	}
	if _, err := ParseMode("nope"); err == nil || !strings.Contains(err.Error(), "nope") {
		t.Fatalf("ParseMode error should name the input: %v", err)
	}
}
