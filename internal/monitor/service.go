// Package monitor ties probing, batching and caching together behind the
// calls the HTTP handler, the CLI and the refresher make.
package monitor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/mirrormon/internal/batch"
	"github.com/hamed0406/mirrormon/internal/cache"
	"github.com/hamed0406/mirrormon/internal/domain"
	"github.com/hamed0406/mirrormon/internal/probe"
)

// Mode selects which slice of the endpoint list a batch covers.
type Mode string

const (
	ModeAll   Mode = "all"
	ModeQuick Mode = "quick"
)

const (
	MinTimeoutS = 1
	MaxTimeoutS = 30

	DefaultTimeout      = 10 * time.Second
	DefaultQuickTimeout = 3 * time.Second
)

type Options struct {
	Endpoints      []domain.Endpoint
	Prober         probe.Prober
	Thresholds     probe.Thresholds
	Cache          *cache.ResultCache // nil disables caching
	MaxInFlight    int
	DefaultTimeout time.Duration
	QuickTimeout   time.Duration
	QuickCount     int
	Logger         *zap.Logger
}

type Service struct {
	endpoints    []domain.Endpoint
	byURL        map[string]domain.Endpoint
	prober       probe.Prober
	thresholds   probe.Thresholds
	runner       *batch.Runner
	cache        *cache.ResultCache
	defTimeout   time.Duration
	quickTimeout time.Duration
	quickCount   int
	log          *zap.Logger
}

func New(opts Options) (*Service, error) {
	if opts.Prober == nil {
		return nil, fmt.Errorf("monitor: prober is required")
	}
	if opts.Thresholds.Unreachable == "" {
		opts.Thresholds = probe.PingPreset
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.DefaultTimeout <= 0 {
		opts.DefaultTimeout = DefaultTimeout
	}
	if opts.QuickTimeout <= 0 {
		opts.QuickTimeout = DefaultQuickTimeout
	}
	if opts.QuickCount <= 0 {
		opts.QuickCount = batch.DefaultQuickCount
	}

	s := &Service{
		endpoints:    append([]domain.Endpoint(nil), opts.Endpoints...),
		byURL:        make(map[string]domain.Endpoint, len(opts.Endpoints)),
		prober:       opts.Prober,
		thresholds:   opts.Thresholds,
		runner:       batch.NewRunner(opts.Logger, opts.Prober, opts.Thresholds, opts.MaxInFlight),
		cache:        opts.Cache,
		defTimeout:   opts.DefaultTimeout,
		quickTimeout: opts.QuickTimeout,
		quickCount:   opts.QuickCount,
		log:          opts.Logger,
	}
	for _, ep := range s.endpoints {
		s.byURL[normalizeURL(ep.URL)] = ep
	}
	return s, nil
}

// Endpoints returns a copy of the configured list in configured order.
func (s *Service) Endpoints() []domain.Endpoint {
	return append([]domain.Endpoint(nil), s.endpoints...)
}

// Vocabulary is the ordered tier list of the active classifier.
func (s *Service) Vocabulary() []domain.Tier { return s.thresholds.Tiers() }

// ProbeOne checks a single URL. Name and provider are filled in when the URL
// belongs to a configured endpoint.
func (s *Service) ProbeOne(ctx context.Context, rawURL string, timeoutSeconds int) (domain.ServiceResult, error) {
	rawURL = strings.TrimSpace(rawURL)
	if !probe.ValidTarget(rawURL) {
		return domain.ServiceResult{}, fmt.Errorf("%w: %q is not an absolute http(s) URL", ErrInvalidInput, rawURL)
	}
	timeout := ClampTimeout(timeoutSeconds, s.defTimeout)

	res := domain.ServiceResult{}
	if ep, ok := s.byURL[normalizeURL(rawURL)]; ok {
		res.Name, res.Provider = ep.Name, ep.Provider
	}
	res.Measurement = probe.Measure(ctx, s.prober, s.thresholds, rawURL, timeout)

	s.log.Info("service_checked",
		zap.String("url", rawURL),
		zap.String("status", string(res.Status)),
		zap.Int64("response_ms", res.ResponseTimeMS),
	)
	return res, nil
}

// ProbeBatch runs a batch over endpoints without touching the cache.
// Quick mode restricts the list to its first QuickCount entries.
func (s *Service) ProbeBatch(ctx context.Context, endpoints []domain.Endpoint, timeoutSeconds int, quick bool) domain.BatchResult {
	mode, def := ModeAll, s.defTimeout
	if quick {
		mode, def = ModeQuick, s.quickTimeout
		endpoints = batch.Quick(endpoints, s.quickCount)
	}
	br := s.runner.Run(ctx, endpoints, ClampTimeout(timeoutSeconds, def))
	br.Mode = string(mode)
	return br
}

// CacheLookup returns a fresh cached batch for mode. bypass always misses.
func (s *Service) CacheLookup(ctx context.Context, mode Mode, bypass bool) (domain.BatchResult, bool) {
	if bypass || s.cache == nil {
		return domain.BatchResult{}, false
	}
	return s.cache.Get(ctx, s.cacheKey(mode))
}

// Check serves mode from the cache when possible, otherwise runs the batch
// and stores it. A bypassed check still refreshes the cache.
func (s *Service) Check(ctx context.Context, mode Mode, timeoutSeconds int, bypass bool) (domain.BatchResult, bool, error) {
	if mode != ModeAll && mode != ModeQuick {
		return domain.BatchResult{}, false, fmt.Errorf("%w: unknown mode %q", ErrInvalidInput, mode)
	}
	if br, ok := s.CacheLookup(ctx, mode, bypass); ok {
		s.log.Debug("cache_hit", zap.String("mode", string(mode)))
		return br, true, nil
	}

	br := s.ProbeBatch(ctx, s.endpoints, timeoutSeconds, mode == ModeQuick)
	// a cancelled sweep is partial; don't let it shadow a complete one
	if s.cache != nil && ctx.Err() == nil {
		s.cache.Set(ctx, s.cacheKey(mode), br)
	}
	return br, false, nil
}

func (s *Service) cacheKey(mode Mode) string {
	eps := s.endpoints
	if mode == ModeQuick {
		eps = batch.Quick(eps, s.quickCount)
	}
	return cache.Key(string(mode), eps)
}

// ClampTimeout converts a caller-supplied timeout in seconds. Values outside
// [MinTimeoutS, MaxTimeoutS] fall back to def.
func ClampTimeout(seconds int, def time.Duration) time.Duration {
	if seconds < MinTimeoutS || seconds > MaxTimeoutS {
		return def
	}
	return time.Duration(seconds) * time.Second
}

func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeAll, ModeQuick:
		return m, nil
	}
	return "", fmt.Errorf("%w: unknown mode %q", ErrInvalidInput, s)
}

func normalizeURL(u string) string {
	return strings.TrimRight(strings.ToLower(strings.TrimSpace(u)), "/")
}
