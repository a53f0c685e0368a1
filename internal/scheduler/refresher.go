package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/hamed0406/mirrormon/internal/domain"
	"github.com/hamed0406/mirrormon/internal/monitor"
)

// Checker is the part of monitor.Service the refresher drives.
type Checker interface {
	Check(ctx context.Context, mode monitor.Mode, timeoutSeconds int, bypass bool) (domain.BatchResult, bool, error)
}

// Refresher re-probes every mirror on a fixed schedule so the cache stays
// warm, and feeds each sweep to the alerter.
type Refresher struct {
	Logger   *zap.Logger
	Checker  Checker
	Alerter  *Alerter // optional
	Interval time.Duration
	Modes    []monitor.Mode
}

func NewRefresher(logger *zap.Logger, checker Checker, alerter *Alerter, interval time.Duration) *Refresher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval < 0 {
		interval = 0
	}
	return &Refresher{
		Logger:   logger,
		Checker:  checker,
		Alerter:  alerter,
		Interval: interval,
		Modes:    []monitor.Mode{monitor.ModeAll, monitor.ModeQuick},
	}
}

// Run does an immediate pass, then one per interval until ctx is
// cancelled. A pass that is still running when the next is due is skipped.
func (r *Refresher) Run(ctx context.Context) error {
	if r.Interval == 0 {
		// disabled
		r.Logger.Info("refresher_disabled")
		return nil
	}

	// cron's @every has one second resolution
	every := r.Interval.Round(time.Second)
	if every < time.Second {
		every = time.Second
	}

	c := cron.New(cron.WithChain(cron.Recover(cron.DiscardLogger), cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", every), func() { r.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("schedule refresh: %w", err)
	}

	// immediate pass
	r.RunOnce(ctx)

	c.Start()
	r.Logger.Info("refresher_started", zap.Duration("interval", every))
	<-ctx.Done()
	<-c.Stop().Done()
	r.Logger.Info("refresher_stopped")
	return nil
}

func (r *Refresher) RunOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	for _, mode := range r.Modes {
		br, _, err := r.Checker.Check(ctx, mode, 0, true)
		if err != nil {
			r.Logger.Warn("refresher_check_error", zap.String("mode", string(mode)), zap.Error(err))
			continue
		}
		if ctx.Err() != nil {
			// partial sweep; don't alert on cancelled probes
			return
		}
		// quick sweeps use a shorter timeout over a subset; only full
		// sweeps drive alerts so a slow mirror does not flap
		sent := 0
		if r.Alerter != nil && mode == monitor.ModeAll {
			sent = r.Alerter.Observe(ctx, br.Results)
		}
		r.Logger.Info("refresher_checked",
			zap.String("mode", string(mode)),
			zap.Int("total", br.Stats.Total()),
			zap.Float64("success_rate", br.Stats.SuccessRate()),
			zap.Int64("elapsed_ms", br.ElapsedMS),
			zap.Int("alerts_sent", sent),
		)
	}
}
