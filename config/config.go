package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"rewardledger/database"
	"rewardledger/models"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL  string `envconfig:"DATABASE_URL"`
	DatabaseName string `envconfig:"DATABASE_NAME"`

	// Listeners
	HTTPAddr       string `envconfig:"HTTP_ADDR" default:":8080"`
	GRPCHealthAddr string `envconfig:"GRPC_HEALTH_ADDR" default:":9090"`

	// Bearer token secret used to resolve the account id
	JWTSecret string `envconfig:"JWT_SECRET"`

	// NATS server addresses (comma-separated). Empty keeps events in-process.
	NATSServers string `envconfig:"NATS_SERVERS"`

	// Renewal sweep
	RenewalSchedule    string `envconfig:"RENEWAL_SCHEDULE" default:"@every 5m"`
	RenewalBatchSize   int    `envconfig:"RENEWAL_BATCH_SIZE" default:"500"`
	RenewalConcurrency int    `envconfig:"RENEWAL_CONCURRENCY" default:"8"`
	RenewalMaxRetries  uint64 `envconfig:"RENEWAL_MAX_RETRIES" default:"3"`

	// RenewalFailureCooldown parks accounts whose renewal failed permanently
	RenewalFailureCooldown time.Duration `envconfig:"RENEWAL_FAILURE_COOLDOWN" default:"1h"`

	// Money movement
	MinWithdrawal             int64 `envconfig:"MIN_WITHDRAWAL" default:"100"`
	MaxDeposit                int64 `envconfig:"MAX_DEPOSIT" default:"100000"`
	CharitySkimBasisPoints    int64 `envconfig:"CHARITY_SKIM_BASIS_POINTS" default:"200"`
	StarsConversionFeePercent int64 `envconfig:"STARS_CONVERSION_FEE_PERCENT" default:"8"`
	SubscriptionPeriodDays    int   `envconfig:"SUBSCRIPTION_PERIOD_DAYS" default:"30"`

	// Activity rewards
	ActivityMinutesRequired int           `envconfig:"ACTIVITY_MINUTES_REQUIRED" default:"15"`
	ActivityCoinsPerReward  int64         `envconfig:"ACTIVITY_COINS_PER_REWARD" default:"200"`
	ActivityMaxDailyRewards int           `envconfig:"ACTIVITY_MAX_DAILY_REWARDS" default:"6"`
	ActivityDailyBonus      int64         `envconfig:"ACTIVITY_DAILY_BONUS" default:"50"`
	ActivityMinTickSpacing  time.Duration `envconfig:"ACTIVITY_MIN_TICK_SPACING" default:"50s"`

	// VIP level table override; the embedded table is used when empty
	VipLevelsFile string               `envconfig:"VIP_LEVELS_FILE"`
	VipLevels     models.VipLevelTable `ignored:"true"`

	// OpenTelemetry
	OTelEnabled              bool   `envconfig:"OTEL_ENABLED" default:"false"`
	OTelExporterType         string `envconfig:"OTEL_EXPORTER_TYPE" default:"console"`
	OTelOTLPEndpoint         string `envconfig:"OTEL_OTLP_ENDPOINT" default:"otel-collector:4317"`
	OTelServiceName          string `envconfig:"OTEL_SERVICE_NAME" default:"rewardledger"`
	OTelExportIntervalMillis int    `envconfig:"OTEL_EXPORT_INTERVAL_MILLIS" default:"30000"`

	// Environment
	Environment string `envconfig:"ENVIRONMENT" default:"development"` // "development", "production" or "test"
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
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
			if os.Getenv("ENVIRONMENT") == "test" {
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

// RewardConfig returns the activity reward parameters
func (c *Config) RewardConfig() models.RewardConfig {
	return models.RewardConfig{
		MinutesRequired: c.ActivityMinutesRequired,
		CoinsPerReward:  c.ActivityCoinsPerReward,
		MaxDailyRewards: c.ActivityMaxDailyRewards,
		DailyBonus:      c.ActivityDailyBonus,
		MinTickSpacing:  c.ActivityMinTickSpacing,
		RewardCurrency:  models.CurrencyCoins,
	}
}

// SubscriptionPeriod is the length of one VIP window
func (c *Config) SubscriptionPeriod() time.Duration {
	return time.Duration(c.SubscriptionPeriodDays) * 24 * time.Hour
}

// IsProduction reports whether the service runs in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// load loads configuration from environment variables
func load() (*Config, error) {
	cfg := &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	levels, err := LoadVipLevels(cfg.VipLevelsFile)
	if err != nil {
		return nil, err
	}
	cfg.VipLevels = levels

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the loaded configuration
func (c *Config) Validate() error {
	if c.Environment != "test" {
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required")
		}
		if c.DatabaseName != "" && strings.TrimSpace(c.DatabaseName) == "" {
			return fmt.Errorf("DATABASE_NAME cannot be empty when provided")
		}
	}
	if c.MinWithdrawal < 0 {
		return fmt.Errorf("MIN_WITHDRAWAL cannot be negative")
	}
	if c.MaxDeposit <= 0 {
		return fmt.Errorf("MAX_DEPOSIT must be positive")
	}
	if c.CharitySkimBasisPoints < 0 || c.CharitySkimBasisPoints > 10000 {
		return fmt.Errorf("CHARITY_SKIM_BASIS_POINTS must be between 0 and 10000")
	}
	if c.StarsConversionFeePercent < 0 || c.StarsConversionFeePercent >= 100 {
		return fmt.Errorf("STARS_CONVERSION_FEE_PERCENT must be between 0 and 99")
	}
	if c.SubscriptionPeriodDays <= 0 {
		return fmt.Errorf("SUBSCRIPTION_PERIOD_DAYS must be positive")
	}
	if c.RenewalConcurrency <= 0 || c.RenewalBatchSize <= 0 {
		return fmt.Errorf("renewal concurrency and batch size must be positive")
	}
	if c.RenewalFailureCooldown <= 0 {
		return fmt.Errorf("RENEWAL_FAILURE_COOLDOWN must be positive")
	}
	if err := c.RewardConfig().Validate(); err != nil {
		return fmt.Errorf("invalid activity reward config: %w", err)
	}
	if err := c.VipLevels.Validate(); err != nil {
		return fmt.Errorf("invalid vip level table: %w", err)
	}
	return nil
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

// NewTestConfig creates a config with production defaults suitable for tests
func NewTestConfig() *Config {
	levels, err := LoadVipLevels("")
	if err != nil {
		panic(fmt.Sprintf("embedded vip levels are invalid: %v", err))
	}
	return &Config{
		HTTPAddr:                  ":0",
		GRPCHealthAddr:            ":0",
		JWTSecret:                 "test-secret",
		RenewalSchedule:           "@every 5m",
		RenewalBatchSize:          100,
		RenewalConcurrency:        4,
		RenewalMaxRetries:         2,
		RenewalFailureCooldown:    time.Hour,
		MinWithdrawal:             100,
		MaxDeposit:                100000,
		CharitySkimBasisPoints:    200,
		StarsConversionFeePercent: 8,
		SubscriptionPeriodDays:    30,
		ActivityMinutesRequired:   15,
		ActivityCoinsPerReward:    200,
		ActivityMaxDailyRewards:   6,
		ActivityDailyBonus:        50,
		ActivityMinTickSpacing:    50 * time.Second,
		VipLevels:                 levels,
		OTelExporterType:          "none",
		OTelServiceName:           "rewardledger-test",
		Environment:               "test",
		LogLevel:                  "debug",
	}
}
