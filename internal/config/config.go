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
	Socrata  SocrataConfig  `yaml:"socrata" mapstructure:"socrata"`
	Places   PlacesConfig   `yaml:"places" mapstructure:"places"`
	Yelp     YelpConfig     `yaml:"yelp" mapstructure:"yelp"`
	Scrape   ScrapeConfig   `yaml:"scrape" mapstructure:"scrape"`
	Taxonomy TaxonomyConfig `yaml:"taxonomy" mapstructure:"taxonomy"`
	Pipeline PipelineConfig `yaml:"pipeline" mapstructure:"pipeline"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// SocrataConfig holds WA state open-data API settings.
type SocrataConfig struct {
	AppToken     string  `yaml:"app_token" mapstructure:"app_token"`
	BaseURL      string  `yaml:"base_url" mapstructure:"base_url"`
	Dataset      string  `yaml:"dataset" mapstructure:"dataset"`
	RatePerSec   float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	FallbackFile string  `yaml:"fallback_file" mapstructure:"fallback_file"`
}

// PlacesConfig holds Google Places API settings.
type PlacesConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// YelpConfig holds Yelp Fusion API settings.
type YelpConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// ScrapeConfig configures website scraping behavior.
type ScrapeConfig struct {
	TimeoutSecs int  `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	Enabled     bool `yaml:"enabled" mapstructure:"enabled"`
}

// TaxonomyConfig points at an optional category mapping override file.
type TaxonomyConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// PipelineConfig configures the enrichment pipeline.
type PipelineConfig struct {
	Concurrency       int     `yaml:"concurrency" mapstructure:"concurrency"`
	SourceTimeoutSecs int     `yaml:"source_timeout_secs" mapstructure:"source_timeout_secs"`
	MaxCandidates     int     `yaml:"max_candidates" mapstructure:"max_candidates"`
	AddressThreshold  float64 `yaml:"address_threshold" mapstructure:"address_threshold"`
	NameThreshold     float64 `yaml:"name_threshold" mapstructure:"name_threshold"`
	DefaultZip        string  `yaml:"default_zip" mapstructure:"default_zip"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
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
	v.SetEnvPrefix("DIRECTORY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "directory.db")
	v.SetDefault("socrata.app_token", "")
	v.SetDefault("socrata.base_url", "https://data.wa.gov")
	v.SetDefault("socrata.dataset", "7xux-kdpf")
	v.SetDefault("socrata.rate_per_sec", 2.0)
	v.SetDefault("places.key", "")
	v.SetDefault("places.base_url", "https://places.googleapis.com/v1")
	v.SetDefault("yelp.key", "")
	v.SetDefault("yelp.base_url", "https://api.yelp.com/v3")
	v.SetDefault("scrape.timeout_secs", 15)
	v.SetDefault("scrape.enabled", true)
	v.SetDefault("pipeline.concurrency", 4)
	v.SetDefault("pipeline.source_timeout_secs", 30)
	v.SetDefault("pipeline.max_candidates", 5)
	v.SetDefault("pipeline.address_threshold", 0.5)
	v.SetDefault("pipeline.name_threshold", 0.7)
	v.SetDefault("pipeline.default_zip", "98855")
	v.SetDefault("server.port", 8080)
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
