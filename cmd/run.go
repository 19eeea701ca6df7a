package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"time"

	"betledger/api"
	"betledger/application"
	"betledger/config"
	"betledger/database"
	"betledger/domain/events"
	"betledger/domain/interfaces"
	"betledger/domain/resolvers"
	"betledger/domain/services"
	"betledger/infrastructure/alerting"
	"betledger/infrastructure/cache"
	"betledger/infrastructure/health"
	"betledger/infrastructure/messaging"
	"betledger/infrastructure/observability"
	"betledger/infrastructure/sportmonks"
	"betledger/repository"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Run initializes and starts the application
func Run(ctx context.Context) error {
	log.Println("Starting betledger...")

	// Load configuration
	cfg := config.Get()
	if err := configureLogging(cfg); err != nil {
		return err
	}

	schedule, err := config.LoadSchedule(cfg.SchedulePath)
	if err != nil {
		return fmt.Errorf("failed to load settlement schedule: %w", err)
	}

	policy, err := resolvers.ParseNotOutPolicy(cfg.NotOutPolicy)
	if err != nil {
		return err
	}

	// Initialize database connection
	log.Println("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	log.Println("Database connection established successfully")

	// Initialize metrics
	log.Println("Initializing metrics provider...")
	metricsProvider := observability.NewMetricsProvider(cfg)
	if err := metricsProvider.Initialize(ctx); err != nil {
		log.Printf("Failed to initialize metrics provider: %v", err)
	}
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Initialize event bus
	log.Println("Initializing event bus...")
	eventBus := events.NewBus()
	metricsProvider.Subscribe(eventBus)

	forwarder, err := newForwarder(ctx, cfg)
	if err != nil {
		return err
	}
	forwarder.Attach(eventBus)
	log.Println("Event bus initialized successfully")

	// Initialize unit of work factory
	log.Println("Initializing unit of work factory...")
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)
	log.Println("Unit of work factory initialized successfully")

	// Initialize settings cache
	var settingsCache interfaces.SettingsCache
	if cfg.RedisAddr != "" {
		log.Printf("Connecting to Redis at %s...", cfg.RedisAddr)
		redisClient, err := cache.ConnectRedis(ctx, cfg.RedisAddr)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer redisClient.Close()
		settingsCache = cache.NewSettingsCache(redisClient, cfg.SettingsCacheTTL)
		log.Println("Settings cache enabled")
	}

	// Initialize match-facts provider
	provider := sportmonks.NewClient(sportmonks.Options{
		BaseURL:        cfg.ProviderBaseURL,
		APIToken:       cfg.ProviderAPIToken,
		Timeout:        cfg.ProviderTimeout,
		RatePerMinute:  cfg.ProviderRatePerMinute,
		MaxConcurrency: cfg.ProviderMaxConcurrency,
		Registerer:     registry,
	})

	// Initialize services
	log.Println("Initializing services...")
	resolverRegistry := resolvers.NewRegistry(policy)
	ledgerService := services.NewLedgerService(uowFactory, cfg.HouseAccountID)
	wagerService := services.NewWagerService(uowFactory, resolverRegistry, cfg.HouseAccountID)
	settlementService := services.NewSettlementService(uowFactory, provider, resolverRegistry, metricsProvider)
	settingsService := services.NewSettingsService(uowFactory, settingsCache)
	gameService := services.NewGameService(uowFactory, settingsService, cfg.HouseAccountID)
	deadLetters := repository.NewDeadLetterRepository(db)
	log.Println("Services initialized successfully")

	// Initialize settlement worker
	alerter := newAlerter(cfg)
	worker := application.NewSettlementWorker(
		settlementService,
		deadLetters,
		alerter,
		eventBus,
		schedule,
		application.WorkerOptionsFromConfig(cfg),
	)
	stopWorker := worker.Start(ctx)
	log.Println("Settlement worker started")

	// Start gRPC health server
	healthServer := health.NewServer(db, 15*time.Second)
	healthListener, err := net.Listen("tcp", cfg.GRPCHealthAddr)
	if err != nil {
		stopWorker()
		return fmt.Errorf("failed to listen on %s: %w", cfg.GRPCHealthAddr, err)
	}
	go func() {
		if err := healthServer.Serve(ctx, healthListener); err != nil {
			log.Printf("gRPC health server stopped: %v", err)
		}
	}()

	// Start HTTP API
	router := api.NewRouter(api.Dependencies{
		Ledger:      ledgerService,
		Wagers:      wagerService,
		Settlement:  settlementService,
		Games:       gameService,
		Settings:    settingsService,
		Audit:       repository.NewLedgerAudit(db),
		DeadLetters: deadLetters,
		Health:      db,
		Metrics:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	})
	server := api.NewServer(cfg.HTTPAddr, router)
	serverErr := make(chan error, 1)
	go func() {
		log.Printf("HTTP API listening on %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for context cancellation
	log.Printf("betledger is running in %s mode...", cfg.Environment)
	select {
	case <-ctx.Done():
	case err := <-serverErr:
		log.Printf("HTTP API failed: %v", err)
	}

	// Cleanup resources
	log.Println("Shutting down betledger...")
	stopWorker()

	// Give cleanup operations time to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down HTTP API: %v", err)
	}
	healthServer.Stop()

	// Let in-flight event handlers finish before closing their sinks
	eventBus.Wait()
	if err := forwarder.Close(); err != nil {
		log.Printf("Error closing event forwarder: %v", err)
	}
	if err := metricsProvider.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down metrics provider: %v", err)
	}

	log.Println("Shutdown completed")
	return nil
}

func configureLogging(cfg *config.Config) error {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, err)
	}
	logrus.SetLevel(level)
	logrus.SetOutput(os.Stdout)

	if cfg.LogFormat == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}

func newForwarder(ctx context.Context, cfg *config.Config) (*messaging.Forwarder, error) {
	switch cfg.EventBus {
	case "nats":
		log.Printf("Connecting to NATS at %s...", cfg.NATSServers)
		sink := messaging.NewNATSSink(cfg.NATSServers)
		if err := sink.Connect(ctx); err != nil {
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		return messaging.NewForwarder(sink), nil
	case "kafka":
		log.Printf("Publishing events to Kafka topic %s", cfg.KafkaTopic)
		return messaging.NewForwarder(messaging.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic)), nil
	case "none", "":
		return messaging.NewForwarder(messaging.NewNoopSink()), nil
	default:
		return nil, fmt.Errorf("unknown EVENT_BUS %q", cfg.EventBus)
	}
}

func newAlerter(cfg *config.Config) interfaces.Alerter {
	if cfg.TelegramBotToken == "" {
		log.Println("Telegram alerts disabled, dead letters will be logged")
		return alerting.NewLogAlerter()
	}

	alerter, err := alerting.NewTelegramAlerter(cfg.TelegramBotToken, cfg.TelegramChatID)
	if err != nil {
		log.Printf("Failed to initialize Telegram alerter, falling back to log: %v", err)
		return alerting.NewLogAlerter()
	}
	log.Println("Telegram alerts enabled")
	return alerter
}
