package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/mirrormon/internal/domain"
	"github.com/hamed0406/mirrormon/internal/notify"
)

type AlerterConfig struct {
	AlertOnRecovery bool
	Cooldown        time.Duration
	// DownTier is the tier that counts as down; defaults to error.
	DownTier domain.Tier
}

// Alerter notifies when a mirror enters or leaves the down tier.
type Alerter struct {
	alertDB  AlertStore
	notifier notify.Notifier
	cfg      AlerterConfig
	logger   *zap.Logger
	now      func() time.Time
}

func NewAlerter(alertDB AlertStore, notifier notify.Notifier, cfg AlerterConfig, logger *zap.Logger) *Alerter {
	if cfg.DownTier == "" {
		cfg.DownTier = domain.TierError
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Alerter{
		alertDB:  alertDB,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Observe compares each result with the last recorded state and sends
// down and recovery alerts. It returns the number of alerts sent.
func (a *Alerter) Observe(ctx context.Context, results []domain.ServiceResult) int {
	now := a.now()
	sent := 0

	for _, r := range results {
		up := r.Status != a.cfg.DownTier
		rec, err := a.alertDB.Get(ctx, r.URL)
		if err != nil {
			a.logger.Warn("alert_state_read_error", zap.String("url", r.URL), zap.Error(err))
			continue
		}

		stateChanged := rec == nil || rec.LastUp != up

		// Cooldown only matters for DOWN alerts (suppresses flapping).
		cooled := true
		if rec != nil && rec.LastSentAt != nil {
			cooled = now.Sub(*rec.LastSentAt) >= a.cfg.Cooldown
		}

		downAlert := stateChanged && !up && cooled
		// a mirror seen up for the first time has nothing to recover from
		recoveryAlert := stateChanged && up && rec != nil && a.cfg.AlertOnRecovery

		if downAlert || recoveryAlert {
			title, text := message(r, up)
			if err := a.notifier.Send(ctx, title, text); err != nil {
				a.logger.Warn("alert_send_error", zap.String("url", r.URL), zap.Error(err))
			} else {
				sent++
			}
			_ = a.alertDB.Set(ctx, r.URL, up, now)
			continue
		}

		// record the new state even when nothing was sent
		if stateChanged {
			var keep time.Time
			if rec != nil && rec.LastSentAt != nil {
				keep = *rec.LastSentAt
			}
			_ = a.alertDB.Set(ctx, r.URL, up, keep)
		}
	}
	return sent
}

func message(r domain.ServiceResult, up bool) (string, string) {
	title := "🔴 Mirror DOWN"
	if up {
		title = "🟢 Mirror RECOVERED"
	}
	name := r.Name
	if name == "" {
		name = r.URL
	}

	httpTxt := "n/a"
	if r.HTTPCode != 0 {
		httpTxt = fmt.Sprintf("%d", r.HTTPCode)
	}
	reason := r.Error
	if reason == "" {
		reason = "-"
	}
	text := fmt.Sprintf(
		"Mirror: %s (%s)\nURL: %s\nStatus: %s\nHTTP: %s\nLatency: %d ms\nReason: %s\nChecked: %s",
		name, r.Provider, r.URL, r.Status, httpTxt, r.ResponseTimeMS, reason, r.Timestamp.Format(domain.TimeLayout),
	)
	return title, text
}
