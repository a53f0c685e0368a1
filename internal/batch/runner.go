package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/sourcegraph/conc/iter"
	"go.uber.org/zap"

	"github.com/hamed0406/mirrormon/internal/domain"
	"github.com/hamed0406/mirrormon/internal/probe"
)

const (
	DefaultMaxInFlight = 50
	DefaultQuickCount  = 10
)

// Runner probes an ordered endpoint list with bounded concurrency and
// classifies every measurement with a single threshold table.
type Runner struct {
	Logger      *zap.Logger
	Prober      probe.Prober
	Thresholds  probe.Thresholds
	MaxInFlight int
}

func NewRunner(logger *zap.Logger, p probe.Prober, th probe.Thresholds, maxInFlight int) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxInFlight < 1 {
		maxInFlight = DefaultMaxInFlight
	}
	return &Runner{Logger: logger, Prober: p, Thresholds: th, MaxInFlight: maxInFlight}
}

// Run returns one result per endpoint in input order. Once ctx is done,
// endpoints that have not been probed yet are reported as errors carrying
// the context error instead of being waited on.
func (r *Runner) Run(ctx context.Context, endpoints []domain.Endpoint, timeout time.Duration) domain.BatchResult {
	start := time.Now()

	mapper := iter.Mapper[domain.Endpoint, domain.ServiceResult]{MaxGoroutines: r.MaxInFlight}
	results := mapper.Map(endpoints, func(ep *domain.Endpoint) domain.ServiceResult {
		return r.probeOne(ctx, *ep, timeout)
	})

	out := domain.BatchResult{
		Results:   results,
		Stats:     Tally(r.Thresholds.Tiers(), results),
		ElapsedMS: time.Since(start).Milliseconds(),
		Timestamp: domain.Now(),
	}
	r.Logger.Info("batch_checked",
		zap.Int("total", out.Stats.Total()),
		zap.Float64("success_rate", out.Stats.SuccessRate()),
		zap.Int64("elapsed_ms", out.ElapsedMS),
		zap.Bool("cancelled", ctx.Err() != nil),
	)
	return out
}

func (r *Runner) probeOne(ctx context.Context, ep domain.Endpoint, timeout time.Duration) (res domain.ServiceResult) {
	res = domain.ServiceResult{Name: ep.Name, Provider: ep.Provider}
	start := time.Now()

	// one misbehaving prober must not take the rest of the batch down
	defer func() {
		if v := recover(); v != nil {
			res.Measurement = failed(ep.URL, fmt.Sprintf("probe panic: %v", v), start)
			res.Status = r.Thresholds.Unreachable
			r.Logger.Error("batch_probe_panic", zap.String("url", ep.URL), zap.Any("panic", v))
		}
	}()

	if err := ctx.Err(); err != nil {
		res.Measurement = failed(ep.URL, err.Error(), start)
		res.Status = r.Thresholds.Unreachable
		return res
	}

	res.Measurement = probe.Measure(ctx, r.Prober, r.Thresholds, ep.URL, timeout)
	r.Logger.Debug("batch_probe",
		zap.String("url", ep.URL),
		zap.String("status", string(res.Status)),
		zap.Int64("response_ms", res.ResponseTimeMS),
		zap.String("error", res.Error),
	)
	return res
}

func failed(url, msg string, start time.Time) domain.Measurement {
	return domain.Measurement{
		URL:            url,
		Error:          msg,
		ResponseTimeMS: time.Since(start).Milliseconds(),
		Timestamp:      domain.Now(),
	}
}

// Tally counts results per tier. Every tier in vocabulary is present even
// when zero, and tiers outside it still get counted.
func Tally(vocabulary []domain.Tier, results []domain.ServiceResult) domain.Stats {
	stats := domain.NewStats(vocabulary)
	for _, res := range results {
		stats.Add(res.Status)
	}
	return stats
}

// Quick restricts endpoints to the first n in configured order.
func Quick(endpoints []domain.Endpoint, n int) []domain.Endpoint {
	if n <= 0 {
		n = DefaultQuickCount
	}
	if len(endpoints) <= n {
		return endpoints
	}
	return endpoints[:n]
}
