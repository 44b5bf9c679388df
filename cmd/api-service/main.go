package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/balesniy/reduced.to/internal/analytics"
	"github.com/balesniy/reduced.to/internal/clicks"
	"github.com/balesniy/reduced.to/internal/config"
	"github.com/balesniy/reduced.to/internal/keys"
	"github.com/balesniy/reduced.to/internal/logger"
	"github.com/balesniy/reduced.to/internal/resolver"
	"github.com/balesniy/reduced.to/internal/store"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		slog.Warn(".env file not found, relying on env vars", "err", err)
	}
	logger.InitFromEnv("api-service")
	cfg := config.Load()

	st := openStore(cfg)
	rdb := openRedis(cfg)

	// Without a broker the whole pipeline runs in-process: bounded channel
	// queue plus a local consumer pool.
	var queue clicks.Queue
	var localConsumer *clicks.Consumer
	if cfg.RabbitURL != "" {
		amqpQueue, err := clicks.DialAMQP(cfg.RabbitURL, cfg.ClickQueue)
		if err != nil {
			slog.Error("unable to connect to RabbitMQ", "err", err)
			os.Exit(1)
		}
		queue = amqpQueue
	} else {
		slog.Info("RABBITMQ_URL not set, running the click pipeline in-process")
		channelQueue := clicks.NewChannelQueue(cfg.ChannelCapacity)
		localConsumer = clicks.NewConsumer(channelQueue, st, openGeo(cfg), clicks.ConsumerConfig{
			Workers:         cfg.Workers,
			PersistAttempts: cfg.PersistAttempts,
			PersistBackoff:  cfg.PersistBackoff,
			PersistTimeout:  cfg.PersistTimeout,
		})
		localConsumer.Start()
		queue = channelQueue
	}

	resolverOpts := []resolver.Option{
		resolver.WithProducer(clicks.NewProducer(queue)),
	}
	var stats statsReader = analytics.NewAggregator(st)
	if rdb != nil {
		resolverOpts = append(resolverOpts, resolver.WithCache(resolver.NewRedisCache(rdb), cfg.ResolveCacheTTL))
		stats = analytics.NewCachedAggregator(analytics.NewAggregator(st), rdb, cfg.StatsCacheTTL)
	}

	h := &handlers{
		cfg:       cfg,
		store:     st,
		allocator: keys.NewAllocator(st),
		resolver:  resolver.New(st, resolverOpts...),
		stats:     stats,
	}

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(logger.FiberMiddleware())
	app.Use(cors.New())

	app.Get("/healthz", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	app.Post("/api/v1/shorten", h.shorten)
	app.Get("/api/v1/links/:key/stats", h.linkStats)
	app.Get("/api/v1/stats", h.globalStats)
	app.Get("/:key", h.redirect)

	go func() {
		slog.Info("starting API service", "addr", cfg.APIAddr)
		if err := app.Listen(cfg.APIAddr); err != nil {
			slog.Error("API service failed", "err", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("shutting down", "signal", sig.String())

	if err := app.ShutdownWithTimeout(cfg.ShutdownGrace); err != nil {
		slog.Warn("fiber shutdown", "err", err)
	}
	if localConsumer != nil {
		localConsumer.Stop(cfg.ShutdownGrace)
	} else {
		queue.Close()
	}
}

func openStore(cfg config.Config) store.Store {
	if cfg.DatabaseURL == "" {
		slog.Warn("DB_URL not set, using the in-memory store")
		return store.NewMemoryStore()
	}
	gs, err := store.Open(cfg.DatabaseURL, logger.NewGormLogger(cfg.GormLogLevel))
	if err != nil {
		slog.Error("unable to connect to database", "err", err)
		os.Exit(1)
	}
	slog.Info("running store migration")
	if err := gs.Migrate(); err != nil {
		slog.Error("store migration failed", "err", err)
		os.Exit(1)
	}
	return gs
}

func openRedis(cfg config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Error("unable to connect to Redis", "err", err)
		os.Exit(1)
	}
	return rdb
}

func openGeo(cfg config.Config) clicks.GeoLocator {
	if cfg.GeoIPDatabase == "" {
		return nil
	}
	locator, err := clicks.OpenMaxMind(cfg.GeoIPDatabase)
	if err != nil {
		slog.Warn("geoip database unavailable, locations will be unknown", "err", err)
		return nil
	}
	return locator
}
