package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"betledger/database"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL  string
	DatabaseName string

	// HTTP and gRPC listeners
	HTTPAddr       string
	GRPCHealthAddr string

	// Ledger configuration
	HouseAccountID int64 // 0 means the lowest-id admin account

	// External match-facts provider (SportMonks cricket)
	ProviderBaseURL        string
	ProviderAPIToken       string
	ProviderTimeout        time.Duration
	ProviderRatePerMinute  int
	ProviderMaxConcurrency int

	// Settlement configuration
	NotOutPolicy         string // "defer" or "settle"
	SchedulePath         string
	MaxSettlementRetries int
	DeadLetterThreshold  int
	DeadLetterCooldown   time.Duration
	SettlementFanOut     int

	// Game settings cache
	RedisAddr        string
	SettingsCacheTTL time.Duration

	// Event forwarding: "nats", "kafka" or "none"
	EventBus     string
	NATSServers  string
	KafkaBrokers []string
	KafkaTopic   string

	// Dead-letter alerting
	TelegramBotToken string
	TelegramChatID   string

	// OpenTelemetry configuration
	OTelEnabled              bool
	OTelServiceName          string
	OTelExporterType         string // "console", "otlp" or "none"
	OTelOTLPEndpoint         string
	OTelExportIntervalMillis int

	// Logging
	LogLevel  string
	LogFormat string

	// Environment
	Environment string // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			if os.Getenv("GO_TEST") == "1" || os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
			} else {
				panic(fmt.Sprintf("failed to load config: %v", err))
			}
		}
	})
	return instance
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// load loads configuration from environment variables
func load() (*Config, error) {
	config := &Config{
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		DatabaseName: os.Getenv("DATABASE_NAME"),

		HTTPAddr:       getEnvWithDefault("HTTP_ADDR", ":8080"),
		GRPCHealthAddr: getEnvWithDefault("GRPC_HEALTH_ADDR", ":9090"),

		ProviderBaseURL:        getEnvWithDefault("PROVIDER_BASE_URL", "https://cricket.sportmonks.com/api/v2.0"),
		ProviderAPIToken:       os.Getenv("SPORTMONKS_API_TOKEN"),
		ProviderTimeout:        10 * time.Second,
		ProviderRatePerMinute:  120,
		ProviderMaxConcurrency: 4,

		NotOutPolicy:         getEnvWithDefault("NOT_OUT_POLICY", "defer"),
		SchedulePath:         os.Getenv("SCHEDULE_PATH"),
		MaxSettlementRetries: 3,
		DeadLetterThreshold:  5,
		DeadLetterCooldown:   30 * time.Minute,
		SettlementFanOut:     8,

		RedisAddr:        os.Getenv("REDIS_ADDR"),
		SettingsCacheTTL: 10 * time.Minute,

		EventBus:    getEnvWithDefault("EVENT_BUS", "none"),
		NATSServers: getEnvWithDefault("NATS_SERVERS", "nats://nats:4222"),
		KafkaTopic:  getEnvWithDefault("KAFKA_TOPIC", "betledger.events"),

		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:   os.Getenv("TELEGRAM_CHAT_ID"),

		OTelEnabled:              os.Getenv("OTEL_ENABLED") == "true",
		OTelServiceName:          getEnvWithDefault("OTEL_SERVICE_NAME", "betledger"),
		OTelExporterType:         getEnvWithDefault("OTEL_EXPORTER_TYPE", "none"),
		OTelOTLPEndpoint:         getEnvWithDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "otel-collector:4317"),
		OTelExportIntervalMillis: 15000,

		LogLevel:  getEnvWithDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvWithDefault("LOG_FORMAT", "text"),

		Environment: os.Getenv("ENVIRONMENT"),
	}

	// Override defaults if environment variables are set
	if v := os.Getenv("HOUSE_ACCOUNT_ID"); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			config.HouseAccountID = parsed
		}
	}
	if v := os.Getenv("PROVIDER_TIMEOUT"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			config.ProviderTimeout = parsed
		}
	}
	if v := os.Getenv("PROVIDER_RATE_PER_MINUTE"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			config.ProviderRatePerMinute = parsed
		}
	}
	if v := os.Getenv("PROVIDER_MAX_CONCURRENCY"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			config.ProviderMaxConcurrency = parsed
		}
	}
	if v := os.Getenv("MAX_SETTLEMENT_RETRIES"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			config.MaxSettlementRetries = parsed
		}
	}
	if v := os.Getenv("DEAD_LETTER_THRESHOLD"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			config.DeadLetterThreshold = parsed
		}
	}
	if v := os.Getenv("DEAD_LETTER_COOLDOWN"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			config.DeadLetterCooldown = parsed
		}
	}
	if v := os.Getenv("SETTLEMENT_FAN_OUT"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			config.SettlementFanOut = parsed
		}
	}
	if v := os.Getenv("SETTINGS_CACHE_TTL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			config.SettingsCacheTTL = parsed
		}
	}
	if v := os.Getenv("OTEL_EXPORT_INTERVAL_MILLIS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			config.OTelExportIntervalMillis = parsed
		}
	}

	// Parse Kafka brokers
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		for _, broker := range strings.Split(brokers, ",") {
			broker = strings.TrimSpace(broker)
			if broker != "" {
				config.KafkaBrokers = append(config.KafkaBrokers, broker)
			}
		}
	}

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		if err := config.Validate(); err != nil {
			return nil, err
		}
	}

	return config, nil
}

// Validate checks required and enumerated settings
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DatabaseName != "" && strings.TrimSpace(c.DatabaseName) == "" {
		return fmt.Errorf("DATABASE_NAME cannot be empty when provided")
	}
	if c.ProviderAPIToken == "" {
		return fmt.Errorf("SPORTMONKS_API_TOKEN is required")
	}
	if c.NotOutPolicy != "defer" && c.NotOutPolicy != "settle" {
		return fmt.Errorf("NOT_OUT_POLICY must be 'defer' or 'settle', got %q", c.NotOutPolicy)
	}
	switch c.EventBus {
	case "nats", "none":
	case "kafka":
		if len(c.KafkaBrokers) == 0 {
			return fmt.Errorf("KAFKA_BROKERS is required when EVENT_BUS=kafka")
		}
	default:
		return fmt.Errorf("unknown EVENT_BUS: %s", c.EventBus)
	}
	if c.DeadLetterThreshold < 1 {
		return fmt.Errorf("DEAD_LETTER_THRESHOLD must be at least 1")
	}
	return nil
}

// getEnvWithDefault returns the environment variable value or a default if not set
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		Environment:            "test",
		ProviderTimeout:        2 * time.Second,
		ProviderRatePerMinute:  600,
		ProviderMaxConcurrency: 2,
		NotOutPolicy:           "defer",
		MaxSettlementRetries:   1,
		DeadLetterThreshold:    3,
		DeadLetterCooldown:     time.Minute,
		SettlementFanOut:       2,
		SettingsCacheTTL:       time.Minute,
		EventBus:               "none",
		OTelExporterType:       "none",
		LogLevel:               "debug",
		LogFormat:              "text",
	}
}
