package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"60s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		SlowRequest     time.Duration `yaml:"slow_request" default:"5s"`
		RateLimit       struct {
			Burst     float64 `yaml:"burst" default:"10"`
			PerSecond float64 `yaml:"per_second" default:"2"`
		} `yaml:"rate_limit"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Dashboard struct {
		DefaultSymbol    string  `yaml:"default_symbol" default:"AAPL"`
		DefaultThreshold float64 `yaml:"default_threshold" default:"150"`
		PreviewRows      int     `yaml:"preview_rows" default:"5"`
	} `yaml:"dashboard"`
	AlphaVantage struct {
		APIKey     string        `yaml:"api_key"`
		BaseURL    string        `yaml:"base_url" default:"https://www.alphavantage.co"`
		Interval   string        `yaml:"interval" default:"1min"`
		OutputSize string        `yaml:"output_size" default:"full"`
		Timeout    time.Duration `yaml:"timeout" default:"30s"`
	} `yaml:"alphavantage"`
	Yahoo struct {
		BaseURL   string        `yaml:"base_url" default:"https://query1.finance.yahoo.com"`
		UserAgent string        `yaml:"user_agent" default:"Mozilla/5.0"`
		Timeout   time.Duration `yaml:"timeout" default:"30s"`
	} `yaml:"yahoo"`
	Historical struct {
		Source        string `yaml:"source" default:"yahoo"` // yahoo | clickhouse
		DefaultPeriod string `yaml:"default_period" default:"1y"`
		Table         string `yaml:"table" default:"stocktracker.daily_bars"`
	} `yaml:"historical"`
	Forecast struct {
		Backend       string        `yaml:"backend" default:"local"` // local | remote
		HorizonDays   int           `yaml:"horizon_days" default:"365"`
		IntervalWidth float64       `yaml:"interval_width" default:"0.8"`
		RemoteURL     string        `yaml:"remote_url"`
		Timeout       time.Duration `yaml:"timeout" default:"10s"`
	} `yaml:"forecast"`
	Cache struct {
		TTL           time.Duration `yaml:"ttl"` // 0 keeps entries for the process lifetime
		MemoryMaxSize int           `yaml:"memory_max_size" default:"1000"`
		Redis         struct {
			Enabled  bool   `yaml:"enabled"`
			Host     string `yaml:"host" default:"localhost"`
			Port     int    `yaml:"port" default:"6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix" default:"stocktracker"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	ClickHouse struct {
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"stocktracker"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
	} `yaml:"clickhouse"`
	Alerts struct {
		Sink        string        `yaml:"sink" default:"none"` // none | kafka
		MinInterval time.Duration `yaml:"min_interval" default:"1m"`
		BufferSize  int           `yaml:"buffer_size" default:"100"`
		Kafka       struct {
			Brokers      []string      `yaml:"brokers"`
			Topic        string        `yaml:"topic" default:"stocktracker.alerts"`
			RequiredAcks int           `yaml:"required_acks" default:"-1"`
			Compression  string        `yaml:"compression" default:"gzip"`
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		} `yaml:"kafka"`
	} `yaml:"alerts"`
}

// Load reads and parses a YAML configuration file. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("set defaults: %w", err)
	}

	b, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(b) > 0 {
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Validate required fields
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables (and .env).
func LoadWithEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables
	if v := os.Getenv("ALPHA_VANTAGE_API_KEY"); v != "" {
		c.AlphaVantage.APIKey = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
	if v := os.Getenv("HISTORICAL_SOURCE"); v != "" {
		c.Historical.Source = v
	}
	if v := os.Getenv("FORECAST_BACKEND"); v != "" {
		c.Forecast.Backend = v
	}
	if v := os.Getenv("FORECAST_REMOTE_URL"); v != "" {
		c.Forecast.RemoteURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		host, port, ok := strings.Cut(v, ":")
		c.Cache.Redis.Enabled = true
		c.Cache.Redis.Host = host
		if ok {
			if p, err := strconv.Atoi(port); err == nil {
				c.Cache.Redis.Port = p
			}
		}
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Alerts.Sink = "kafka"
		c.Alerts.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("ALERT_TOPIC"); v != "" {
		c.Alerts.Kafka.Topic = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}

	// env may have switched backends on
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Validate checks if the configuration is valid. A missing Alpha Vantage key is not an error:
// intraday fetches fail with a missing-credential error instead.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port)
	}
	if c.Dashboard.DefaultThreshold < 0 {
		return fmt.Errorf("dashboard.default_threshold must be >= 0")
	}
	if c.Historical.Source != "yahoo" && c.Historical.Source != "clickhouse" {
		return fmt.Errorf("historical.source must be 'yahoo' or 'clickhouse', got '%s'", c.Historical.Source)
	}
	switch c.Forecast.Backend {
	case "local":
	case "remote":
		if c.Forecast.RemoteURL == "" {
			return fmt.Errorf("forecast.remote_url is required when forecast.backend is 'remote'")
		}
	default:
		return fmt.Errorf("forecast.backend must be 'local' or 'remote', got '%s'", c.Forecast.Backend)
	}
	if c.Forecast.IntervalWidth <= 0 || c.Forecast.IntervalWidth >= 1 {
		return fmt.Errorf("forecast.interval_width must be in (0,1), got %v", c.Forecast.IntervalWidth)
	}
	if c.Forecast.HorizonDays <= 0 {
		return fmt.Errorf("forecast.horizon_days must be positive")
	}
	switch c.Alerts.Sink {
	case "none":
	case "kafka":
		if len(c.Alerts.Kafka.Brokers) == 0 {
			return fmt.Errorf("alerts.kafka.brokers cannot be empty when alerts.sink is 'kafka'")
		}
	default:
		return fmt.Errorf("alerts.sink must be 'none' or 'kafka', got '%s'", c.Alerts.Sink)
	}
	return nil
}
