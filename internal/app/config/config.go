package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Gateway  GatewayConfig
	Risk     RiskConfig

	SecretKey  string `env:"APP_SECRET_KEY,default=ChangeMe"`
	LogVerbose bool   `env:"APP_VERBOSE,default=0"`
	LogPretty  bool   `env:"APP_PRETTY,default=0"`
}

type ServerConfig struct {
	Listen       string        `env:"RUN_ADDRESS,default=localhost:8088"`
	TimeoutRead  time.Duration `env:"SERVER_TIMEOUT_READ,default=5s"`
	TimeoutWrite time.Duration `env:"SERVER_TIMEOUT_WRITE,default=10s"`
	TimeoutIdle  time.Duration `env:"SERVER_TIMEOUT_IDLE,default=1m"`
}

type DatabaseConfig struct {
	DSN string `env:"DATABASE_URI,required"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD,default="`
	DB       int    `env:"REDIS_DB,default=0"`
}

type GatewayConfig struct {
	RemoteURL string        `env:"GATEWAY_ADDRESS,required"`
	Timeout   time.Duration `env:"GATEWAY_TIMEOUT,default=30s"`
}

// RiskConfig holds the thresholds for the payment validation pipeline.
type RiskConfig struct {
	MinAmount          string        `env:"RISK_MIN_AMOUNT,default=1"`
	MaxAmount          string        `env:"RISK_MAX_AMOUNT,default=100000"`
	HighValueThreshold string        `env:"RISK_HIGH_VALUE_THRESHOLD,default=10000"`
	VelocityWindow     time.Duration `env:"RISK_VELOCITY_WINDOW,default=1h"`
	VelocityMax        int           `env:"RISK_VELOCITY_MAX,default=3"`
	DuplicateWindow    time.Duration `env:"RISK_DUPLICATE_WINDOW,default=5m"`
	AttemptWindow      time.Duration `env:"RISK_ATTEMPT_WINDOW,default=1h"`
	AttemptMax         int           `env:"RISK_ATTEMPT_MAX,default=4"`
	FailedWindow       time.Duration `env:"RISK_FAILED_WINDOW,default=24h"`
	FailedMax          int           `env:"RISK_FAILED_MAX,default=3"`
	SuspiciousIPTTL    time.Duration `env:"RISK_SUSPICIOUS_IP_TTL,default=24h"`
}

// New config constructor
func New() Config {
	return Config{}
}

// Load config from environment and from .env file (if exists) and from flags
func (cfg *Config) Load() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf(".env load: %w", err)
	}

	if err := envdecode.StrictDecode(cfg); err != nil {
		return fmt.Errorf("env decode: %w", err)
	}

	pflag.StringVarP(&cfg.Server.Listen, "listen-addr", "a", cfg.Server.Listen, "Server address to listen on")
	pflag.StringVarP(&cfg.Database.DSN, "database-uri", "d", cfg.Database.DSN, "Database URI")
	pflag.StringVarP(&cfg.Gateway.RemoteURL, "gateway-url", "g", cfg.Gateway.RemoteURL, "Payment gateway base URL")
	pflag.StringVarP(&cfg.Redis.Addr, "redis-addr", "r", cfg.Redis.Addr, "Redis address")
	pflag.BoolVarP(&cfg.LogVerbose, "verbose", "v", cfg.LogVerbose, "Verbose output")
	pflag.BoolVarP(&cfg.LogPretty, "pretty", "p", cfg.LogPretty, "Pretty output")
	pflag.Parse()

	return nil
}

// MinAmountDecimal parses the configured lower amount bound.
func (c RiskConfig) MinAmountDecimal() decimal.Decimal {
	return mustDecimal(c.MinAmount)
}

// MaxAmountDecimal parses the configured upper amount bound.
func (c RiskConfig) MaxAmountDecimal() decimal.Decimal {
	return mustDecimal(c.MaxAmount)
}

// HighValueDecimal parses the high-value scoring threshold.
func (c RiskConfig) HighValueDecimal() decimal.Decimal {
	return mustDecimal(c.HighValueThreshold)
}

func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(fmt.Sprintf("config: bad decimal %q: %v", s, err))
	}
	return d
}
