package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	ModelBackendHTTP     = "http"
	ModelBackendBaseline = "baseline"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Host            string        `yaml:"host" default:"0.0.0.0"`
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		// defaults cannot restore a false bool, so CORS is opt-out
		DisableCORS     bool          `yaml:"disable_cors"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Sequence struct {
		WindowSize      int     `yaml:"window_size" default:"60"`
		ForecastHorizon int     `yaml:"forecast_horizon" default:"7"`
		TestRatio       float64 `yaml:"test_ratio" default:"0.2"`
		FeatureRange    struct {
			Min float64 `yaml:"min" default:"0"`
			Max float64 `yaml:"max" default:"1"`
		} `yaml:"feature_range"`
	} `yaml:"sequence"`
	Model struct {
		Backend    string        `yaml:"backend" default:"baseline"`
		ServiceURL string        `yaml:"service_url"`
		Name       string        `yaml:"name" default:"lstm_msft_model"`
		Timeout    time.Duration `yaml:"timeout" default:"5s"`
		Retries    int           `yaml:"retries" default:"3"`
		Seed       int64         `yaml:"seed" default:"42"`
		Units      []int         `yaml:"units" default:"[64,64]"`
	} `yaml:"model"`
	Forecast struct {
		HistoryPoints  int           `yaml:"history_points" default:"100"`
		MinRows        int           `yaml:"min_rows"`
		SMAPeriods     []int         `yaml:"sma_periods" default:"[20,50]"`
		CacheTTL       time.Duration `yaml:"cache_ttl" default:"10m"`
		MaxUploadBytes int64         `yaml:"max_upload_bytes" default:"10485760"`
		RateLimit      struct {
			Capacity     float64 `yaml:"capacity" default:"10"`
			RefillPerSec float64 `yaml:"refill_per_sec" default:"1"`
		} `yaml:"rate_limit"`
	} `yaml:"forecast"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic" default:"stockcast.forecasts"`
		LogTopic     string   `yaml:"log_topic" default:"stockcast.logs"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"gzip"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"100ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"stockcast"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		MaxOpenConns     int           `yaml:"max_open_conns" default:"10"`
		MaxIdleConns     int           `yaml:"max_idle_conns" default:"5"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
	} `yaml:"clickhouse"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes, applies defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if c.Forecast.MinRows <= 0 {
		c.Forecast.MinRows = c.Sequence.WindowSize
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads an optional .env file, the YAML config, and then
// overrides it with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("STOCKCAST_ENV"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("MODEL_SERVICE_URL"); v != "" {
		c.Model.ServiceURL = v
		c.Model.Backend = ModelBackendHTTP
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
		c.ClickHouse.Enabled = true
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Sequence.WindowSize <= 0 {
		return fmt.Errorf("sequence.window_size must be positive, got %d", c.Sequence.WindowSize)
	}
	if c.Sequence.ForecastHorizon <= 0 {
		return fmt.Errorf("sequence.forecast_horizon must be positive, got %d", c.Sequence.ForecastHorizon)
	}
	if !(c.Sequence.TestRatio > 0 && c.Sequence.TestRatio < 1) {
		return fmt.Errorf("sequence.test_ratio must be in (0, 1), got %v", c.Sequence.TestRatio)
	}
	if c.Sequence.FeatureRange.Min >= c.Sequence.FeatureRange.Max {
		return fmt.Errorf("sequence.feature_range min must be below max")
	}
	if c.Forecast.MinRows < c.Sequence.WindowSize {
		return fmt.Errorf("forecast.min_rows (%d) cannot be below sequence.window_size (%d)", c.Forecast.MinRows, c.Sequence.WindowSize)
	}
	switch c.Model.Backend {
	case ModelBackendBaseline:
	case ModelBackendHTTP:
		if c.Model.ServiceURL == "" {
			return fmt.Errorf("model.service_url is required for the http backend")
		}
	default:
		return fmt.Errorf("model.backend must be '%s' or '%s', got '%s'", ModelBackendHTTP, ModelBackendBaseline, c.Model.Backend)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	return nil
}
