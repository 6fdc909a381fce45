package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/quantara/execution/pkg/postgres"
	"github.com/quantara/execution/pkg/redis"
	"github.com/shopspring/decimal"
)

// Load loads the configuration from environment variables and .env file.
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

// Config represents the application configuration.
type Config struct {
	App            AppConfig           `envPrefix:"APP_"`
	ExecutionKafka ConsumerKafkaConfig `envPrefix:"EXECUTION_KAFKA_"`
	PriceKafka     ConsumerKafkaConfig `envPrefix:"PRICE_KAFKA_"`
	ProducerKafka  ProducerKafkaConfig `envPrefix:"PRODUCER_KAFKA_"`
	Postgres       postgres.Config     `envPrefix:"POSTGRES_"`
	Redis          redis.Config        `envPrefix:"REDIS_"`
	Binance        BinanceConfig       `envPrefix:"BINANCE_"`
	Alpaca         AlpacaConfig        `envPrefix:"ALPACA_"`
	Risk           RiskConfig          `envPrefix:"RISK_"`
	Gateway        GatewayConfig       `envPrefix:"GATEWAY_"`
	Portfolio      PortfolioConfig     `envPrefix:"PORTFOLIO_"`
	Snapshot       SnapshotConfig      `envPrefix:"SNAPSHOT_"`
}

// AppConfig represents the application configuration.
type AppConfig struct {
	Name        string `env:"NAME" envDefault:"execution-service"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
}

// ConsumerKafkaConfig represents the Kafka configuration for a consumed topic.
type ConsumerKafkaConfig struct {
	Brokers       []string `env:"BROKERS" envSeparator:"," envDefault:"localhost:9092"`
	Topic         string   `env:"TOPIC,required"`
	ConsumerGroup string   `env:"CONSUMER_GROUP" envDefault:"execution-service"`
}

// ProducerKafkaConfig represents the Kafka configuration for the produced topics.
type ProducerKafkaConfig struct {
	Brokers         []string `env:"BROKERS" envSeparator:"," envDefault:"localhost:9092"`
	StatusTopic     string   `env:"STATUS_TOPIC" envDefault:"order-status-updates"`
	FillTopic       string   `env:"FILL_TOPIC" envDefault:"order-fills"`
	CompletionTopic string   `env:"COMPLETION_TOPIC" envDefault:"order-completions"`
	PortfolioTopic  string   `env:"PORTFOLIO_TOPIC" envDefault:"portfolio-events"`
}

// BinanceConfig represents the Binance venue configuration.
type BinanceConfig struct {
	Enabled   bool   `env:"ENABLED" envDefault:"false"`
	APIKey    string `env:"API_KEY"`
	APISecret string `env:"API_SECRET"`
	Testnet   bool   `env:"TESTNET" envDefault:"true"`

	// Token bucket budget for venue calls.
	RateLimit      int           `env:"RATE_LIMIT" envDefault:"10"`
	RefillInterval time.Duration `env:"REFILL_INTERVAL" envDefault:"1s"`
}

// AlpacaConfig represents the Alpaca venue configuration.
type AlpacaConfig struct {
	Enabled   bool   `env:"ENABLED" envDefault:"false"`
	APIKey    string `env:"API_KEY"`
	APISecret string `env:"API_SECRET"`
	BaseURL   string `env:"BASE_URL" envDefault:"https://paper-api.alpaca.markets"`

	RateLimit      int           `env:"RATE_LIMIT" envDefault:"3"`
	RefillInterval time.Duration `env:"REFILL_INTERVAL" envDefault:"1s"`
}

// RiskConfig represents the admission limits applied before any order is created.
type RiskConfig struct {
	MaxOrderQuantity       decimal.Decimal `env:"MAX_ORDER_QUANTITY" envDefault:"100"`
	MaxPositionSize        decimal.Decimal `env:"MAX_POSITION_SIZE" envDefault:"1000"`
	SymbolExposureFraction decimal.Decimal `env:"SYMBOL_EXPOSURE_FRACTION" envDefault:"0.25"`
	MaxDailyLoss           decimal.Decimal `env:"MAX_DAILY_LOSS" envDefault:"10000"`
	MinRiskReward          decimal.Decimal `env:"MIN_RISK_REWARD" envDefault:"1.5"`

	// Assumed adverse move, as a fraction of notional, for orders without a stop.
	DefaultStopDistance decimal.Decimal `env:"DEFAULT_STOP_DISTANCE" envDefault:"0.05"`
}

// GatewayConfig represents retry, breaker and reconciliation tuning.
type GatewayConfig struct {
	MaxRetryAttempts int           `env:"MAX_RETRY_ATTEMPTS" envDefault:"3"`
	RetryBaseDelay   time.Duration `env:"RETRY_BASE_DELAY" envDefault:"200ms"`
	RetryMaxDelay    time.Duration `env:"RETRY_MAX_DELAY" envDefault:"5s"`

	BreakerThreshold int           `env:"BREAKER_THRESHOLD" envDefault:"5"`
	BreakerCooldown  time.Duration `env:"BREAKER_COOLDOWN" envDefault:"30s"`

	// Local re-submission attempts when the token bucket is exhausted.
	SubmitAttempts   int           `env:"SUBMIT_ATTEMPTS" envDefault:"3"`
	SubmitRetryDelay time.Duration `env:"SUBMIT_RETRY_DELAY" envDefault:"500ms"`

	ReconcileInterval time.Duration `env:"RECONCILE_INTERVAL" envDefault:"30s"`
	ReconcileAfter    time.Duration `env:"RECONCILE_AFTER" envDefault:"1m"`
}

// PortfolioConfig represents portfolio bootstrap settings.
type PortfolioConfig struct {
	// Portfolio charged when an execution order names none.
	DefaultID string `env:"DEFAULT_ID" envDefault:"primary"`

	// Capital assigned to portfolios first seen in an execution order.
	DefaultInitialCapital decimal.Decimal `env:"DEFAULT_INITIAL_CAPITAL" envDefault:"100000"`
	MaxDrawdownPct        decimal.Decimal `env:"MAX_DRAWDOWN_PCT" envDefault:"25"`
}

// SnapshotConfig represents snapshot scheduling and persistence settings.
type SnapshotConfig struct {
	Interval     time.Duration `env:"INTERVAL" envDefault:"1h"`
	HistoryLimit int64         `env:"HISTORY_LIMIT" envDefault:"1000"`

	// Directory for the parquet archive; empty disables archiving.
	ArchiveDir string `env:"ARCHIVE_DIR"`
}
