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
	Sources SourcesConfig `yaml:"sources" mapstructure:"sources"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Cache   CacheConfig   `yaml:"cache" mapstructure:"cache"`
	Export  ExportConfig  `yaml:"export" mapstructure:"export"`
	Fetch   FetchConfig   `yaml:"fetch" mapstructure:"fetch"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// SourcesConfig points at the contractor CSV and the campaign database.
// Paths may be local files, http(s) URLs, or ftp URLs.
type SourcesConfig struct {
	ContractorCSV    string `yaml:"contractor_csv" mapstructure:"contractor_csv"`
	CampaignDatabase string `yaml:"campaign_database" mapstructure:"campaign_database"`
}

// StoreConfig configures the snapshot database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// CacheConfig controls how long a unified dataset is served before the
// hub re-unifies from the sources.
type CacheConfig struct {
	TTLMinutes int `yaml:"ttl_minutes" mapstructure:"ttl_minutes"`
}

// ExportConfig configures the export engine.
type ExportConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// FetchConfig configures remote source retrieval.
type FetchConfig struct {
	TimeoutSecs       int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	Retries           int     `yaml:"retries" mapstructure:"retries"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

// ServerConfig configures the REST API server.
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
	v.SetEnvPrefix("HUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("sources.contractor_csv", "data/contractors.csv")
	v.SetDefault("sources.campaign_database", "data/campaigns.json")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "data/hub.db")
	v.SetDefault("cache.ttl_minutes", 5)
	v.SetDefault("export.dir", "exports")
	v.SetDefault("fetch.timeout_secs", 30)
	v.SetDefault("fetch.retries", 3)
	v.SetDefault("fetch.requests_per_second", 2.0)
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
