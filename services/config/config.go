package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type ServerConfig struct {
	HTTPPort int
	GRPCPort int
}

type EngineConfig struct {
	MaxWorkers      int
	StartingCapital float64
	WindowSize      int
}

type ClickHouseConfig struct {
	DSN      string
	Database string
	Table    string
}

type ArrowConfig struct {
	BatchSize int
}

type LedgerConfig struct {
	Driver string // csv, sqlite or clickhouse
	Path   string
}

type BrokerConfig struct {
	APIKey    string
	SecretKey string
	BaseURL   string
	StreamURL string
}

type FeedConfig struct {
	Kind         string // stream, poll or replay
	Symbols      []string
	DataDir      string
	TwelveData   string
	PollInterval time.Duration
	Market       string
}

type Config struct {
	Environment    string
	LogLevel       string
	StrategiesFile string
	Server         ServerConfig
	Engine         EngineConfig
	ClickHouse     ClickHouseConfig
	Arrow          ArrowConfig
	Ledger         LedgerConfig
	Broker         BrokerConfig
	Feed           FeedConfig
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Environment:    getEnv("SCALPER_ENV", "dev"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		StrategiesFile: getEnv("STRATEGIES_FILE", ""),
		Server: ServerConfig{
			HTTPPort: getEnvAsInt("HTTP_PORT", 8080),
			GRPCPort: getEnvAsInt("GRPC_PORT", 9091),
		},
		Engine: EngineConfig{
			MaxWorkers:      getEnvAsInt("WORKERS", 0),
			StartingCapital: getEnvAsFloat("STARTING_CAPITAL", 5000),
			WindowSize:      getEnvAsInt("WINDOW_SIZE", 100),
		},
		ClickHouse: ClickHouseConfig{
			DSN:      getEnv("CLICKHOUSE_DSN", ""),
			Database: getEnv("CH_DATABASE", "market"),
			Table:    getEnv("CH_TABLE", "minute_bars"),
		},
		Arrow: ArrowConfig{
			BatchSize: getEnvAsInt("ARROW_BATCH_SIZE", 4096),
		},
		Ledger: LedgerConfig{
			Driver: strings.ToLower(getEnv("LEDGER_DRIVER", "csv")),
			Path:   getEnv("LEDGER_PATH", "trade_log.csv"),
		},
		Broker: BrokerConfig{
			APIKey:    getEnv("ALPACA_API_KEY", ""),
			SecretKey: getEnv("ALPACA_SECRET_KEY", ""),
			BaseURL:   getEnv("ALPACA_BASE_URL", "https://paper-api.alpaca.markets"),
			StreamURL: getEnv("ALPACA_STREAM_URL", "wss://stream.data.alpaca.markets/v2/iex"),
		},
		Feed: FeedConfig{
			Kind:         strings.ToLower(getEnv("FEED", "stream")),
			Symbols:      getEnvAsList("SYMBOLS", []string{"AAPL", "MSFT", "NVDA"}),
			DataDir:      getEnv("DATA_DIR", "data"),
			TwelveData:   getEnv("TWELVEDATA_API_KEY", ""),
			PollInterval: getEnvAsDuration("POLL_INTERVAL", time.Minute),
			Market:       getEnv("MARKET", "NYSE"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail deep inside a component
func (c *Config) Validate() error {
	if c.Engine.StartingCapital <= 0 {
		return fmt.Errorf("STARTING_CAPITAL must be positive, got %v", c.Engine.StartingCapital)
	}
	if c.Engine.WindowSize <= 0 {
		return fmt.Errorf("WINDOW_SIZE must be positive, got %d", c.Engine.WindowSize)
	}
	if len(c.Feed.Symbols) == 0 {
		return fmt.Errorf("SYMBOLS must name at least one instrument")
	}
	switch c.Ledger.Driver {
	case "csv", "sqlite", "clickhouse":
	default:
		return fmt.Errorf("unknown LEDGER_DRIVER %q", c.Ledger.Driver)
	}
	switch c.Feed.Kind {
	case "stream", "poll", "replay":
	default:
		return fmt.Errorf("unknown FEED %q", c.Feed.Kind)
	}
	if c.Feed.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive")
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.ToUpper(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	return out
}
