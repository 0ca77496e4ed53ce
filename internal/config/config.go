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
	Sources  SourcesConfig  `yaml:"sources" mapstructure:"sources"`
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

// SourcesConfig locates the three input datasets. Each location is a local
// path, an http(s):// or ftp:// URL, or "bundle:<member>" for a file inside
// the Bundle archive.
type SourcesConfig struct {
	Wiki          string        `yaml:"wiki" mapstructure:"wiki"`
	Catalog       string        `yaml:"catalog" mapstructure:"catalog"`
	Ratings       string        `yaml:"ratings" mapstructure:"ratings"`
	Bundle        string        `yaml:"bundle" mapstructure:"bundle"`
	TempDir       string        `yaml:"temp_dir" mapstructure:"temp_dir"`
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	RetryAttempts int           `yaml:"retry_attempts" mapstructure:"retry_attempts"`
	RetryBackoff  time.Duration `yaml:"retry_backoff" mapstructure:"retry_backoff"`
	RateLimit     float64       `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// PipelineConfig configures reconciliation and loading behavior.
type PipelineConfig struct {
	SparsityThreshold     float64 `yaml:"sparsity_threshold" mapstructure:"sparsity_threshold"`
	RatingsChunkSize      int     `yaml:"ratings_chunk_size" mapstructure:"ratings_chunk_size"`
	MismergeWikiAfter     string  `yaml:"mismerge_wiki_after" mapstructure:"mismerge_wiki_after"`
	MismergeCatalogBefore string  `yaml:"mismerge_catalog_before" mapstructure:"mismerge_catalog_before"`
	StrictCoercion        bool    `yaml:"strict_coercion" mapstructure:"strict_coercion"`
	RulesPath             string  `yaml:"rules_path" mapstructure:"rules_path"`
	MoviesTable           string  `yaml:"movies_table" mapstructure:"movies_table"`
	RatingsTable          string  `yaml:"ratings_table" mapstructure:"ratings_table"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// MismergeCutoffs parses the two mismerge filter dates.
func (p PipelineConfig) MismergeCutoffs() (wikiAfter, catalogBefore time.Time, err error) {
	wikiAfter, err = time.Parse(time.DateOnly, p.MismergeWikiAfter)
	if err != nil {
		return time.Time{}, time.Time{}, eris.Wrap(err, "config: parse pipeline.mismerge_wiki_after")
	}
	catalogBefore, err = time.Parse(time.DateOnly, p.MismergeCatalogBefore)
	if err != nil {
		return time.Time{}, time.Time{}, eris.Wrap(err, "config: parse pipeline.mismerge_catalog_before")
	}
	return wikiAfter, catalogBefore, nil
}

// Validate checks values that have no sensible fallback.
func (c *Config) Validate() error {
	if c.Pipeline.SparsityThreshold <= 0 || c.Pipeline.SparsityThreshold > 1 {
		return eris.Errorf("config: pipeline.sparsity_threshold must be in (0, 1], got %v", c.Pipeline.SparsityThreshold)
	}
	if c.Pipeline.RatingsChunkSize <= 0 {
		return eris.Errorf("config: pipeline.ratings_chunk_size must be positive, got %d", c.Pipeline.RatingsChunkSize)
	}
	if _, _, err := c.Pipeline.MismergeCutoffs(); err != nil {
		return err
	}
	switch c.Store.Driver {
	case "postgres":
		if c.Store.DatabaseURL == "" {
			return eris.New("config: store.database_url is required for the postgres driver")
		}
	case "sqlite":
	default:
		return eris.Errorf("config: unsupported store driver %q", c.Store.Driver)
	}
	return nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("MOVIEETL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("sources.wiki", "wikipedia.movies.json")
	v.SetDefault("sources.catalog", "movies_metadata.csv")
	v.SetDefault("sources.ratings", "ratings.csv")
	v.SetDefault("sources.bundle", "")
	v.SetDefault("sources.temp_dir", "/tmp/movie-etl")
	v.SetDefault("sources.user_agent", "movie-etl/1.0")
	v.SetDefault("sources.timeout", "5m")
	v.SetDefault("sources.retry_attempts", 3)
	v.SetDefault("sources.retry_backoff", "1s")
	v.SetDefault("sources.rate_limit", 2.0)
	v.SetDefault("pipeline.sparsity_threshold", 0.9)
	v.SetDefault("pipeline.ratings_chunk_size", 1_000_000)
	v.SetDefault("pipeline.mismerge_wiki_after", "1996-01-01")
	v.SetDefault("pipeline.mismerge_catalog_before", "1965-01-01")
	v.SetDefault("pipeline.strict_coercion", false)
	v.SetDefault("pipeline.rules_path", "")
	v.SetDefault("pipeline.movies_table", "movies")
	v.SetDefault("pipeline.ratings_table", "ratings")
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
