// Package config loads application configuration from file and environment
// and initializes the global logger.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Archive  ArchiveConfig  `yaml:"archive" mapstructure:"archive"`
	Scoring  ScoringConfig  `yaml:"scoring" mapstructure:"scoring"`
	Ingest   IngestConfig   `yaml:"ingest" mapstructure:"ingest"`
	Pipeline PipelineConfig `yaml:"pipeline" mapstructure:"pipeline"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ArchiveConfig holds ad archive API settings.
type ArchiveConfig struct {
	Key      string `yaml:"key" mapstructure:"key"`
	BaseURL  string `yaml:"base_url" mapstructure:"base_url"`
	PageSize int    `yaml:"page_size" mapstructure:"page_size"`
}

// ScoringConfig holds LLM scoring service settings. Cheaper models handle
// the high-volume stages; the synthesis briefing gets the strongest one.
type ScoringConfig struct {
	Key            string `yaml:"key" mapstructure:"key"`
	DiscoveryModel string `yaml:"discovery_model" mapstructure:"discovery_model"`
	CurationModel  string `yaml:"curation_model" mapstructure:"curation_model"`
	LabelingModel  string `yaml:"labeling_model" mapstructure:"labeling_model"`
	StrategicModel string `yaml:"strategic_model" mapstructure:"strategic_model"`
	SynthesisModel string `yaml:"synthesis_model" mapstructure:"synthesis_model"`
	EmbeddingModel string `yaml:"embedding_model" mapstructure:"embedding_model"`
}

// IngestConfig configures ad collection.
type IngestConfig struct {
	Concurrency        int `yaml:"concurrency" mapstructure:"concurrency"`
	MaxAdsPerBrand     int `yaml:"max_ads_per_brand" mapstructure:"max_ads_per_brand"`
	MaxPagesPerBrand   int `yaml:"max_pages_per_brand" mapstructure:"max_pages_per_brand"`
	RequestDelayMillis int `yaml:"request_delay_ms" mapstructure:"request_delay_ms"`
	RetryMaxAttempts   int `yaml:"retry_max_attempts" mapstructure:"retry_max_attempts"`
}

// RequestDelay returns the configured inter-request delay as a duration.
func (c IngestConfig) RequestDelay() time.Duration {
	return time.Duration(c.RequestDelayMillis) * time.Millisecond
}

// PipelineConfig configures stage behavior.
type PipelineConfig struct {
	MaxCandidates  int    `yaml:"max_candidates" mapstructure:"max_candidates"`
	MaxCompetitors int    `yaml:"max_competitors" mapstructure:"max_competitors"`
	SeedFile       string `yaml:"seed_file" mapstructure:"seed_file"`
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
	v.SetEnvPrefix("ADINTEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "adintel.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("archive.base_url", "https://api.adarchive.io/v2")
	v.SetDefault("archive.page_size", 50)
	v.SetDefault("scoring.discovery_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("scoring.curation_model", "claude-haiku-4-5-20251001")
	v.SetDefault("scoring.labeling_model", "claude-haiku-4-5-20251001")
	v.SetDefault("scoring.strategic_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("scoring.synthesis_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("scoring.embedding_model", "voyage-3")
	v.SetDefault("ingest.concurrency", 2)
	v.SetDefault("ingest.max_ads_per_brand", 200)
	v.SetDefault("ingest.max_pages_per_brand", 10)
	v.SetDefault("ingest.request_delay_ms", 1000)
	v.SetDefault("ingest.retry_max_attempts", 3)
	v.SetDefault("pipeline.max_candidates", 15)
	v.SetDefault("pipeline.max_competitors", 8)

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
