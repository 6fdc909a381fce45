package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quantara/execution/internal/app/engine"
	"github.com/quantara/execution/internal/consumer"
	exchangev1 "github.com/quantara/execution/internal/domain/exchange/v1"
	alpacavenue "github.com/quantara/execution/internal/infrastructure/alpaca"
	"github.com/quantara/execution/internal/infrastructure/archive"
	binancevenue "github.com/quantara/execution/internal/infrastructure/binance"
	orderrepo "github.com/quantara/execution/internal/infrastructure/postgres/order"
	"github.com/quantara/execution/internal/publisher"
	"github.com/quantara/execution/internal/usecase/gateway"
	"github.com/quantara/execution/internal/usecase/ledger"
	ordermanager "github.com/quantara/execution/internal/usecase/order-manager"
	snapshotstore "github.com/quantara/execution/internal/usecase/snapshot-store"
	"github.com/quantara/execution/internal/usecase/validation"
	"github.com/quantara/execution/internal/usecase/valuation"
	"github.com/quantara/execution/pkg/config"
	"github.com/quantara/execution/pkg/logger"
	"github.com/quantara/execution/pkg/postgres"
	"github.com/quantara/execution/pkg/redis"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger, err := logger.NewLogger(logger.WithLoggingLevel(logger.Level(cfg.App.LogLevel)))
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Sync()

	pgClient, err := postgres.NewClient(ctx, cfg.Postgres)
	if err != nil {
		appLogger.Error("failed to connect to postgres",
			logger.Field{Key: "error", Value: err.Error()},
		)
		os.Exit(1)
	}
	defer pgClient.Close()

	redisClient := redis.NewClient(appLogger, &cfg.Redis)
	if err := redisClient.Connect(ctx); err != nil {
		appLogger.Error("failed to connect to redis",
			logger.Field{Key: "error", Value: err.Error()},
		)
		os.Exit(1)
	}
	defer redisClient.Disconnect(ctx)

	events := publisher.NewPublisher(cfg.ProducerKafka, appLogger)
	defer events.Close()

	orderRepository := orderrepo.NewRepository(pgClient, appLogger)
	snapshotStore := snapshotstore.NewStore(cfg.Snapshot, redisClient, appLogger)
	snapshotArchive := archive.NewArchive(cfg.Snapshot.ArchiveDir, appLogger)
	positionLedger := ledger.NewLedger()

	valuator := valuation.NewValuator(cfg.Portfolio, cfg.Risk, positionLedger, snapshotStore, events, appLogger)
	scheduler := valuation.NewScheduler(cfg.Snapshot, valuator, snapshotStore, snapshotArchive, appLogger)
	validator := validation.NewValidator(cfg.Risk, positionLedger, valuator, appLogger)

	venueGateway := gateway.NewGateway(cfg.Gateway, appLogger)
	var adapters []exchangev1.Adapter
	if cfg.Binance.Enabled {
		adapter := binancevenue.NewAdapter(cfg.Binance, appLogger)
		venueGateway.Register(adapter)
		adapters = append(adapters, adapter)
	}
	if cfg.Alpaca.Enabled {
		adapter := alpacavenue.NewAdapter(cfg.Alpaca, appLogger)
		venueGateway.Register(adapter)
		adapters = append(adapters, adapter)
	}
	if len(adapters) == 0 {
		appLogger.Error("no venue adapter enabled")
		os.Exit(1)
	}

	manager := ordermanager.NewManager(
		cfg.Gateway,
		cfg.Portfolio,
		validator,
		orderRepository,
		venueGateway,
		positionLedger,
		valuator,
		events,
		appLogger,
	)

	executionConsumer := consumer.NewExecutionConsumer(cfg.ExecutionKafka, manager, appLogger)
	priceConsumer := consumer.NewPriceConsumer(cfg.PriceKafka, positionLedger, valuator, appLogger)

	app := engine.NewEngine(cfg, manager, valuator, scheduler, executionConsumer, priceConsumer, adapters, appLogger)
	if err := app.Start(ctx); err != nil {
		appLogger.Error("failed to start engine",
			logger.Field{Key: "error", Value: err.Error()},
		)
		os.Exit(1)
	}

	appLogger.Info("execution service started",
		logger.Field{Key: "app", Value: cfg.App.Name},
		logger.Field{Key: "environment", Value: cfg.App.Environment},
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("shutting down execution service")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := app.Stop(shutdownCtx); err != nil {
		appLogger.Warn("engine did not stop cleanly",
			logger.Field{Key: "error", Value: err.Error()},
		)
	}

	appLogger.Info("execution service stopped")
}
