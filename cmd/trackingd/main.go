package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/osmanaliaydemir/getir-tracking/internal/api"
	"github.com/osmanaliaydemir/getir-tracking/internal/broker"
	"github.com/osmanaliaydemir/getir-tracking/internal/core/geo"
	"github.com/osmanaliaydemir/getir-tracking/internal/core/ports"
	"github.com/osmanaliaydemir/getir-tracking/internal/core/service"
	"github.com/osmanaliaydemir/getir-tracking/internal/infrastructure/db/mongo"
	"github.com/osmanaliaydemir/getir-tracking/internal/infrastructure/db/redis"
	"github.com/osmanaliaydemir/getir-tracking/internal/infrastructure/dispatch"
	"github.com/osmanaliaydemir/getir-tracking/internal/infrastructure/queue"
	"github.com/osmanaliaydemir/getir-tracking/internal/pkg/config"
	"github.com/osmanaliaydemir/getir-tracking/internal/store/memory"
	"github.com/osmanaliaydemir/getir-tracking/pkg/logger"
)

func main() {
	cfg := config.Load()

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Service: "tracking-engine",
		Pretty:  cfg.Env == "development",
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Durable stores ---
	db, disconnect, err := mongo.Connect(ctx, mongo.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mongo connection failed")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = disconnect(shutdownCtx)
	}()

	archive := mongo.NewArchiveRepository(db, cfg.Mongo.Retention)
	if err := archive.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("mongo index creation failed")
	}

	rdb, err := redis.Connect(ctx, redis.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	defer rdb.Close()

	// --- Core wiring ---
	estimator := service.NewETAEngine(service.EstimatorConfig{
		Method:          ports.ETAMethod(cfg.Tracking.ETAMethod),
		DefaultSpeedKmh: cfg.Tracking.DefaultSpeedKmh,
		ServiceArea: geo.Bounds{
			MinLat: cfg.Tracking.MinLat,
			MaxLat: cfg.Tracking.MaxLat,
			MinLng: cfg.Tracking.MinLng,
			MaxLng: cfg.Tracking.MaxLng,
		},
	})

	var dispatcher ports.NotificationDispatcher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaDispatcher := dispatch.NewKafkaDispatcher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer kafkaDispatcher.Close()
		dispatcher = kafkaDispatcher
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("kafka notification dispatch enabled")
	} else {
		dispatcher = dispatch.NewLogDispatcher(log)
		log.Info().Msg("no kafka brokers configured, logging notifications")
	}

	svc := service.NewTrackingService(service.Deps{
		Store:     memory.NewStore(estimator),
		Registry:  broker.NewRegistry(log),
		Estimator: estimator,
		Triggers: service.NewTriggers(service.TriggerConfig{
			NearDestinationMeters: cfg.Tracking.NearDestinationMeters,
			DelayThreshold:        cfg.Tracking.DelayThreshold,
		}),
		Dispatcher: dispatcher,
		Ownership:  redis.NewOwnershipResolver(rdb),
		Archive:    archive,
		Dedup:      redis.NewDedupChecker(rdb, cfg.Redis.DedupTTL),
		Log:        log,
	})

	batchQueue := queue.NewDispatcher(cfg.Tracking.BatchWorkers, svc, log)
	batchQueue.Start(ctx)

	// --- HTTP server ---
	e := api.NewRouter(api.RouterDeps{
		Service:    svc,
		Dispatcher: batchQueue,
		Mongo:      db,
		Redis:      rdb,
		JWTSecret:  cfg.JWTSecret,
		Log:        log,
	})

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server start failed")
		}
	}()
	log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("tracking engine listening")

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
}
