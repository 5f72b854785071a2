package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"rewardledger/application"
	"rewardledger/config"
	"rewardledger/database"
	"rewardledger/events"
	"rewardledger/httpapi"
	"rewardledger/infrastructure"
	"rewardledger/infrastructure/observability"
	"rewardledger/repository"
	"rewardledger/service"

	log "github.com/sirupsen/logrus"
)

// Run initializes and starts the application
func Run(ctx context.Context) error {
	cfg := config.Get()
	configureLogging(cfg)

	log.Info("Starting rewardledger...")

	if cfg.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	// Initialize database connection
	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	log.Info("Database connection established successfully")

	eventBus := events.NewBus()

	// Metrics
	metrics := observability.NewMetricsProvider(cfg)
	if err := metrics.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metrics.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("Failed to shut down metrics provider")
		}
	}()
	metrics.Subscribe(eventBus)

	// Forward committed events to JetStream when configured
	if cfg.NATSServers != "" {
		natsClient := infrastructure.NewNATSClient(cfg.NATSServers)
		if err := natsClient.Connect(ctx); err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		defer natsClient.Close()

		publisher := infrastructure.NewNATSEventPublisher(natsClient, infrastructure.NewEventSubjectMapper())
		if err := publisher.EnsureLedgerEventStream(natsClient); err != nil {
			return fmt.Errorf("failed to ensure ledger event stream: %w", err)
		}
		publisher.OnPublished(metrics.RecordNATSMessagePublished)
		publisher.Attach(eventBus)
		log.WithField("servers", cfg.NATSServers).Info("Forwarding ledger events to NATS")
	} else {
		log.Info("NATS_SERVERS not set, events stay in-process")
	}

	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)
	engine := service.NewEngine(uowFactory, service.EngineConfig{
		Levels:  cfg.VipLevels,
		Rewards: cfg.RewardConfig(),
		Limits: service.ProcessorLimits{
			MinWithdrawal:             cfg.MinWithdrawal,
			MaxDeposit:                cfg.MaxDeposit,
			StarsConversionFeePercent: cfg.StarsConversionFeePercent,
		},
		CharitySkimBasisPoints: cfg.CharitySkimBasisPoints,
		SubscriptionPeriod:     cfg.SubscriptionPeriod(),
	}, service.SystemClock{})

	// Renewal sweep
	sweeper := service.NewRenewalSweeper(engine, service.SweepConfig{
		BatchSize:       cfg.RenewalBatchSize,
		Concurrency:     cfg.RenewalConcurrency,
		MaxRetries:      cfg.RenewalMaxRetries,
		FailureCooldown: cfg.RenewalFailureCooldown,
	})
	renewalWorker := application.NewRenewalWorker(sweeper, metrics, cfg.RenewalSchedule)
	stopRenewals, err := renewalWorker.Start(ctx)
	if err != nil {
		return fmt.Errorf("failed to start renewal worker: %w", err)
	}
	defer stopRenewals()

	// gRPC health
	health := infrastructure.NewHealthServer(cfg.GRPCHealthAddr, db, 10*time.Second)
	stopHealth, err := health.Start(ctx)
	if err != nil {
		return fmt.Errorf("failed to start health server: %w", err)
	}
	defer stopHealth()
	log.WithField("addr", health.Addr()).Info("gRPC health server listening")

	// HTTP API
	server := httpapi.NewServer(cfg.HTTPAddr, httpapi.NewRouter(engine, []byte(cfg.JWTSecret)))
	serverErr := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("HTTP API listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	log.Infof("rewardledger is running in %s mode...", cfg.Environment)

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	}

	log.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("HTTP server shutdown failed")
	}

	log.Info("Shutdown completed")
	return nil
}

func configureLogging(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.IsProduction() {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}
