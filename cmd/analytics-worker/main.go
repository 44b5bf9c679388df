package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"

	"github.com/balesniy/reduced.to/internal/clicks"
	"github.com/balesniy/reduced.to/internal/config"
	"github.com/balesniy/reduced.to/internal/logger"
	"github.com/balesniy/reduced.to/internal/store"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		slog.Warn(".env file not found, relying on env vars", "err", err)
	}
	logger.InitFromEnv("analytics-worker")
	cfg := config.Load()

	if cfg.DatabaseURL == "" || cfg.RabbitURL == "" {
		slog.Error("DB_URL and RABBITMQ_URL are required")
		os.Exit(1)
	}

	st, err := store.Open(cfg.DatabaseURL, logger.NewGormLogger(cfg.GormLogLevel))
	if err != nil {
		slog.Error("unable to connect to database", "err", err)
		os.Exit(1)
	}

	queue, err := clicks.DialAMQP(cfg.RabbitURL, cfg.ClickQueue)
	if err != nil {
		slog.Error("unable to connect to RabbitMQ", "err", err)
		os.Exit(1)
	}

	var geo clicks.GeoLocator
	if cfg.GeoIPDatabase != "" {
		locator, err := clicks.OpenMaxMind(cfg.GeoIPDatabase)
		if err != nil {
			slog.Warn("geoip database unavailable, locations will be unknown", "err", err)
		} else {
			defer locator.Close()
			geo = locator
		}
	}

	consumer := clicks.NewConsumer(queue, st, geo, clicks.ConsumerConfig{
		Workers:         cfg.Workers,
		PersistAttempts: cfg.PersistAttempts,
		PersistBackoff:  cfg.PersistBackoff,
		PersistTimeout:  cfg.PersistTimeout,
	})
	consumer.Start()
	slog.Info("analytics worker started, waiting for click events", "queue", cfg.ClickQueue)

	// Expired links get swept on a schedule; their click facts are kept for
	// historical analytics.
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.SweepSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		removed, err := st.DeleteExpiredLinks(ctx, time.Now())
		if err != nil {
			slog.Error("expired link sweep failed", "err", err)
			return
		}
		if removed > 0 {
			slog.Info("swept expired links", "removed", removed)
		}
	}); err != nil {
		slog.Error("invalid sweep schedule", "schedule", cfg.SweepSchedule, "err", err)
		os.Exit(1)
	}
	scheduler.Start()

	metricsServer := &http.Server{Addr: cfg.MetricsAddr, Handler: metricsMux()}
	go func() {
		slog.Info("serving metrics", "addr", cfg.MetricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server failed", "err", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("shutting down", "signal", sig.String())

	<-scheduler.Stop().Done()
	consumer.Stop(cfg.ShutdownGrace)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsServer.Shutdown(ctx)
}

func metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}
