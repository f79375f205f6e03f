// Package config loads application configuration from file and environment
// and initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Geocoder GeocoderConfig `yaml:"geocoder" mapstructure:"geocoder"`
	ViaCEP   ViaCEPConfig   `yaml:"viacep" mapstructure:"viacep"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the cache backend. Driver is "sqlite" or
// "postgres"; Path applies to sqlite, DatabaseURL to postgres.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// GeocoderConfig configures the Nominatim client.
type GeocoderConfig struct {
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
	UserAgent string `yaml:"user_agent" mapstructure:"user_agent"`
	DelayMs   int    `yaml:"delay_ms" mapstructure:"delay_ms"`
}

// ViaCEPConfig configures the postal-lookup client.
type ViaCEPConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	DelayMs int    `yaml:"delay_ms" mapstructure:"delay_ms"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LOJAMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "lojamap.db")
	v.SetDefault("geocoder.base_url", "https://nominatim.openstreetmap.org/search")
	v.SetDefault("geocoder.user_agent", "lojamap/1.0")
	v.SetDefault("geocoder.delay_ms", 1100)
	v.SetDefault("viacep.base_url", "https://viacep.com.br")
	v.SetDefault("viacep.delay_ms", 250)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

// Validate checks the parts of the configuration the selected store backend
// and the upstream clients depend on.
func (c *Config) Validate() error {
	var problems []string

	switch c.Store.Driver {
	case "sqlite":
		if c.Store.Path == "" {
			problems = append(problems, "store.path is required for the sqlite driver")
		}
	case "postgres":
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required for the postgres driver")
		}
	default:
		problems = append(problems, "store.driver must be sqlite or postgres")
	}

	if c.Geocoder.DelayMs < 0 {
		problems = append(problems, "geocoder.delay_ms must be >= 0")
	}
	if c.ViaCEP.DelayMs < 0 {
		problems = append(problems, "viacep.delay_ms must be >= 0")
	}
	if c.Geocoder.UserAgent == "" {
		problems = append(problems, "geocoder.user_agent is required")
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
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
