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
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Sources SourcesConfig `yaml:"sources" mapstructure:"sources"`
	Search  SearchConfig  `yaml:"search" mapstructure:"search"`
	Cache   CacheConfig   `yaml:"cache" mapstructure:"cache"`
	Health  HealthConfig  `yaml:"health" mapstructure:"health"`
	Fusion  FusionConfig  `yaml:"fusion" mapstructure:"fusion"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Path        string `yaml:"path" mapstructure:"path"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// SourcesConfig points at the source catalog file.
type SourcesConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// SearchConfig configures query execution.
type SearchConfig struct {
	DefaultStrategy string `yaml:"default_strategy" mapstructure:"default_strategy"`
	FanOutTimeoutMs int    `yaml:"fanout_timeout_ms" mapstructure:"fanout_timeout_ms"`
	ResultLimit     int    `yaml:"result_limit" mapstructure:"result_limit"`
}

// CacheConfig configures the search result cache.
type CacheConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	TTLSecs int  `yaml:"ttl_secs" mapstructure:"ttl_secs"`
}

// HealthConfig configures the background health monitor.
type HealthConfig struct {
	ProbeIntervalSecs int `yaml:"probe_interval_secs" mapstructure:"probe_interval_secs"`
	ProbeTimeoutSecs  int `yaml:"probe_timeout_secs" mapstructure:"probe_timeout_secs"`
	SnapshotSecs      int `yaml:"snapshot_secs" mapstructure:"snapshot_secs"`
}

// FusionConfig holds the composite scoring weights.
type FusionConfig struct {
	Popularity        float64 `yaml:"popularity" mapstructure:"popularity"`
	Rating            float64 `yaml:"rating" mapstructure:"rating"`
	Confidence        float64 `yaml:"confidence" mapstructure:"confidence"`
	CulturalRelevance float64 `yaml:"cultural_relevance" mapstructure:"cultural_relevance"`
	Trending          float64 `yaml:"trending" mapstructure:"trending"`
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
	v.SetEnvPrefix("DISCOVERY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "discovery.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("sources.path", "sources.yaml")
	v.SetDefault("search.default_strategy", "fast")
	v.SetDefault("search.fanout_timeout_ms", 5000)
	v.SetDefault("search.result_limit", 20)
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl_secs", 300)
	v.SetDefault("health.probe_interval_secs", 60)
	v.SetDefault("health.probe_timeout_secs", 5)
	v.SetDefault("health.snapshot_secs", 300)
	v.SetDefault("fusion.popularity", 0.30)
	v.SetDefault("fusion.rating", 0.25)
	v.SetDefault("fusion.confidence", 0.20)
	v.SetDefault("fusion.cultural_relevance", 0.15)
	v.SetDefault("fusion.trending", 0.10)
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
