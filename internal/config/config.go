package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/attribution-cli/internal/attribution"
)

// Config holds the full application configuration.
type Config struct {
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Attribution AttributionConfig `yaml:"attribution" mapstructure:"attribution"`
	Fetch       FetchConfig       `yaml:"fetch" mapstructure:"fetch"`
	Ingest      IngestConfig      `yaml:"ingest" mapstructure:"ingest"`
}

// StoreConfig configures the journey batch store.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port         int      `yaml:"port" mapstructure:"port"`
	RateLimit    float64  `yaml:"rate_limit" mapstructure:"rate_limit"`
	RateBurst    int      `yaml:"rate_burst" mapstructure:"rate_burst"`
	MaxBodyBytes int64    `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	CORSOrigins  []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// AttributionConfig configures attribution defaults.
type AttributionConfig struct {
	DefaultModel string `yaml:"default_model" mapstructure:"default_model"`
}

// FetchConfig configures remote journey export downloads.
type FetchConfig struct {
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int     `yaml:"max_retries" mapstructure:"max_retries"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	Burst       int     `yaml:"burst" mapstructure:"burst"`
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`

	BreakerFailures     int `yaml:"breaker_failures" mapstructure:"breaker_failures"`
	BreakerCooldownSecs int `yaml:"breaker_cooldown_secs" mapstructure:"breaker_cooldown_secs"`
}

// Timeout returns TimeoutSecs as a duration.
func (f FetchConfig) Timeout() time.Duration {
	return time.Duration(f.TimeoutSecs) * time.Second
}

// IngestConfig configures journey export decoding.
type IngestConfig struct {
	StepSeparator string `yaml:"step_separator" mapstructure:"step_separator"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ATTRIBUTION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "attribution.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit", 20)
	v.SetDefault("server.rate_burst", 40)
	v.SetDefault("server.max_body_bytes", 10<<20)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("attribution.default_model", attribution.LastClick.String())
	v.SetDefault("fetch.timeout_secs", 30)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.rate_per_sec", 5)
	v.SetDefault("fetch.burst", 5)
	v.SetDefault("fetch.user_agent", "attribution-cli/1.0")
	v.SetDefault("fetch.breaker_failures", 5)
	v.SetDefault("fetch.breaker_cooldown_secs", 30)
	v.SetDefault("ingest.step_separator", ">")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command needs. Mode is one of "cli",
// "store" or "serve"; every problem found is reported in a single error.
func (c *Config) Validate(mode string) error {
	var problems []string

	if _, err := attribution.ParseModel(c.Attribution.DefaultModel); err != nil {
		problems = append(problems, fmt.Sprintf("attribution.default_model %q is not a known model", c.Attribution.DefaultModel))
	}
	if c.Ingest.StepSeparator == "" {
		problems = append(problems, "ingest.step_separator must not be empty")
	}

	switch mode {
	case "cli":
	case "store", "serve":
		switch c.Store.Driver {
		case "sqlite", "postgres":
		default:
			problems = append(problems, fmt.Sprintf("store.driver %q must be sqlite or postgres", c.Store.Driver))
		}
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required")
		}
		if mode == "serve" {
			if c.Server.Port <= 0 || c.Server.Port > 65535 {
				problems = append(problems, "server.port must be > 0 and <= 65535")
			}
			if c.Server.RateLimit <= 0 || c.Server.RateBurst <= 0 {
				problems = append(problems, "server.rate_limit and server.rate_burst must be > 0")
			}
			if c.Server.MaxBodyBytes <= 0 {
				problems = append(problems, "server.max_body_bytes must be > 0")
			}
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// DefaultModel returns the parsed default attribution model.
func (c *Config) DefaultModel() attribution.Model {
	m, err := attribution.ParseModel(c.Attribution.DefaultModel)
	if err != nil {
		return attribution.LastClick
	}
	return m
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
