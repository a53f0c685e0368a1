package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/hamed0406/mirrormon/internal/cache"
	"github.com/hamed0406/mirrormon/internal/config"
	"github.com/hamed0406/mirrormon/internal/httpapi"
	apimw "github.com/hamed0406/mirrormon/internal/httpapi/middleware"
	"github.com/hamed0406/mirrormon/internal/logging"
	"github.com/hamed0406/mirrormon/internal/monitor"
	"github.com/hamed0406/mirrormon/internal/notify"
	"github.com/hamed0406/mirrormon/internal/probe"
	"github.com/hamed0406/mirrormon/internal/scheduler"
)

func main() {
	cfg := config.FromEnv()
	logger, err := logging.NewLogger(cfg.LogDir)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	perf, err := logging.NewPerfLog(cfg.LogDir)
	if err != nil {
		log.Fatal(err)
	}
	defer perf.Sync()

	fs := afero.NewOsFs()
	endpoints, err := config.LoadEndpoints(fs, cfg.EndpointsFile)
	if err != nil {
		logger.Fatal("endpoints_load_failed", zap.Error(err))
	}
	if err := cfg.Validate(endpoints); err != nil {
		logger.Fatal("config_invalid", zap.Error(err))
	}
	loc, _ := cfg.Location()
	time.Local = loc

	strategy, _ := probe.ParseStrategy(cfg.Strategy)
	prober, err := probe.New(strategy, probe.Options{
		PingAPIURL:     cfg.PingAPIURL,
		ConnectTimeout: cfg.ConnectTimeout,
	})
	if err != nil {
		logger.Fatal("prober_init_failed", zap.Error(err))
	}

	store, closeStore, err := cache.OpenStore(fs, cfg.CacheBackend, cfg.CacheDir)
	if err != nil {
		logger.Fatal("cache_open_failed", zap.Error(err))
	}
	defer closeStore()

	svc, err := monitor.New(monitor.Options{
		Endpoints:      endpoints,
		Prober:         prober,
		Thresholds:     strategy.Preset(),
		Cache:          cache.New(store, cfg.CacheTTL, logger),
		MaxInFlight:    cfg.MaxConcurrent,
		DefaultTimeout: cfg.DefaultTimeout,
		QuickTimeout:   cfg.QuickTimeout,
		QuickCount:     cfg.QuickCount,
		Logger:         logger,
	})
	if err != nil {
		logger.Fatal("monitor_init_failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	notifiers := notify.Multi{notify.Log{Logger: logger}}
	if s := notify.NewSlack(cfg.SlackWebhookURL); s != nil {
		notifiers = append(notifiers, s)
	}
	alerter := scheduler.NewAlerter(scheduler.NewMemoryAlertStore(), notifiers, scheduler.AlerterConfig{
		AlertOnRecovery: cfg.AlertOnRecovery,
		Cooldown:        cfg.AlertCooldown,
	}, logger)
	refresher := scheduler.NewRefresher(logger, svc, alerter, cfg.RefreshInterval)
	go func() {
		if err := refresher.Run(ctx); err != nil {
			logger.Error("refresher_failed", zap.Error(err))
		}
	}()

	api := httpapi.NewServer(logger, perf, svc)
	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: api.Router(httpapi.RouterOptions{
			AllowedOrigins: cfg.AllowedOrigins,
			APIKeys:        cfg.APIKeys,
			RPM:            cfg.PublicRPM,
			Burst:          cfg.PublicBurst,
			BlockedAgents:  apimw.DefaultBlockedAgents,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("api_listen",
		zap.String("addr", cfg.Addr),
		zap.String("strategy", string(strategy)),
		zap.String("cache_backend", cfg.CacheBackend),
		zap.Int("endpoints", len(endpoints)),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("api_listen_failed", zap.Error(err))
	}
}
