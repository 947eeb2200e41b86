// Package config loads schema-audit configuration and initialises logging.
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
	DataGouv   DataGouvConfig   `yaml:"datagouv" mapstructure:"datagouv"`
	Schemas    SchemasConfig    `yaml:"schemas" mapstructure:"schemas"`
	Validata   ValidataConfig   `yaml:"validata" mapstructure:"validata"`
	Badge      BadgeConfig      `yaml:"badge" mapstructure:"badge"`
	Notify     NotifyConfig     `yaml:"notify" mapstructure:"notify"`
	Ledger     LedgerConfig     `yaml:"ledger" mapstructure:"ledger"`
	Audit      AuditConfig      `yaml:"audit" mapstructure:"audit"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// DataGouvConfig holds data.gouv.fr API settings. UserID is the account the
// notifications are posted as; when empty it is resolved from the API key.
type DataGouvConfig struct {
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	APIKey      string  `yaml:"api_key" mapstructure:"api_key"`
	UserID      string  `yaml:"user_id" mapstructure:"user_id"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	PageSize    int     `yaml:"page_size" mapstructure:"page_size"`
}

// SchemasConfig holds the schema registry location.
type SchemasConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// ValidataConfig configures the validation API. ErrorLimit -1 means unbounded.
type ValidataConfig struct {
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	UIURL       string `yaml:"ui_url" mapstructure:"ui_url"`
	ErrorLimit  int    `yaml:"error_limit" mapstructure:"error_limit"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// BadgeConfig configures badge rendering.
type BadgeConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// NotifyConfig configures publisher notifications.
type NotifyConfig struct {
	Enabled          bool   `yaml:"enabled" mapstructure:"enabled"`
	Title            string `yaml:"title" mapstructure:"title"`
	FailureThreshold int    `yaml:"failure_threshold" mapstructure:"failure_threshold"`
}

// LedgerConfig selects the history backend: csv, sqlite or postgres.
type LedgerConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// AuditConfig configures the batch run.
type AuditConfig struct {
	Output      string `yaml:"output" mapstructure:"output"`
	TargetsFile string `yaml:"targets_file" mapstructure:"targets_file"`
}

// ServerConfig configures the report server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// MonitoringConfig configures operator alerts.
type MonitoringConfig struct {
	WebhookURL string `yaml:"webhook_url" mapstructure:"webhook_url"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DefaultNotifyTitle is the subject line of every notification thread.
const DefaultNotifyTitle = "Erreurs de conformité au schéma"

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("AUDIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("datagouv.base_url", "https://www.data.gouv.fr")
	v.SetDefault("datagouv.api_key", "")
	v.SetDefault("datagouv.user_id", "")
	v.SetDefault("datagouv.rate_limit", 5.0)
	v.SetDefault("datagouv.timeout_secs", 30)
	v.SetDefault("datagouv.page_size", 20)
	v.SetDefault("schemas.base_url", "https://schema.data.gouv.fr")
	v.SetDefault("validata.base_url", "https://api.validata.etalab.studio")
	v.SetDefault("validata.ui_url", "https://validata.fr/table-schema")
	v.SetDefault("validata.error_limit", -1)
	v.SetDefault("validata.timeout_secs", 300)
	v.SetDefault("badge.base_url", "https://img.shields.io/static/v1")
	v.SetDefault("notify.enabled", true)
	v.SetDefault("notify.title", DefaultNotifyTitle)
	v.SetDefault("notify.failure_threshold", 3)
	v.SetDefault("ledger.driver", "csv")
	v.SetDefault("ledger.path", "data.csv")
	v.SetDefault("ledger.database_url", "")
	v.SetDefault("audit.output", "report.json")
	v.SetDefault("audit.targets_file", "targets.yaml")
	v.SetDefault("server.port", 8080)
	v.SetDefault("monitoring.webhook_url", "")

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
