package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "https://www.data.gouv.fr", cfg.DataGouv.BaseURL)
	assert.InDelta(t, 5.0, cfg.DataGouv.RateLimit, 0.001)
	assert.Equal(t, 20, cfg.DataGouv.PageSize)
	assert.Equal(t, "https://schema.data.gouv.fr", cfg.Schemas.BaseURL)
	assert.Equal(t, -1, cfg.Validata.ErrorLimit)
	assert.Equal(t, "https://validata.fr/table-schema", cfg.Validata.UIURL)
	assert.Equal(t, "https://img.shields.io/static/v1", cfg.Badge.BaseURL)
	assert.True(t, cfg.Notify.Enabled)
	assert.Equal(t, DefaultNotifyTitle, cfg.Notify.Title)
	assert.Equal(t, 3, cfg.Notify.FailureThreshold)
	assert.Equal(t, "csv", cfg.Ledger.Driver)
	assert.Equal(t, "data.csv", cfg.Ledger.Path)
	assert.Equal(t, "report.json", cfg.Audit.Output)
	assert.Equal(t, "targets.yaml", cfg.Audit.TargetsFile)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
log:
  level: debug
  format: console
ledger:
  driver: sqlite
  path: history.db
notify:
  title: Fichier non conforme
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "sqlite", cfg.Ledger.Driver)
	assert.Equal(t, "history.db", cfg.Ledger.Path)
	assert.Equal(t, "Fichier non conforme", cfg.Notify.Title)
	// Defaults still apply for unset values
	assert.Equal(t, "report.json", cfg.Audit.Output)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
ledger:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("AUDIT_LEDGER_DRIVER", "postgres")
	t.Setenv("AUDIT_LOG_LEVEL", "warn")
	t.Setenv("AUDIT_DATAGOUV_API_KEY", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Ledger.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "secret", cfg.DataGouv.APIKey)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("log: [unclosed"), 0644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.DataGouv.APIKey = "key"
	cfg.Validata.ErrorLimit = -1
	cfg.Notify.Enabled = true
	cfg.Notify.Title = DefaultNotifyTitle
	cfg.Ledger.Driver = "csv"
	cfg.Ledger.Path = "data.csv"
	cfg.Audit.Output = "report.json"
	cfg.Server.Port = 8080
	return cfg
}

func TestValidateAudit_AllPresent(t *testing.T) {
	assert.NoError(t, validDefaults().Validate("audit"))
}

func TestValidateAudit_NotifyWithoutKey(t *testing.T) {
	cfg := validDefaults()
	cfg.DataGouv.APIKey = ""

	err := cfg.Validate("audit")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "datagouv.api_key is required")

	cfg.Notify.Enabled = false
	assert.NoError(t, cfg.Validate("audit"))
}

func TestValidateAudit_ErrorLimit(t *testing.T) {
	cfg := validDefaults()
	cfg.Validata.ErrorLimit = 0
	err := cfg.Validate("audit")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validata.error_limit")

	cfg.Validata.ErrorLimit = 1000
	assert.NoError(t, cfg.Validate("audit"))
}

func TestValidateHistory_Drivers(t *testing.T) {
	cfg := validDefaults()

	cfg.Ledger.Driver = "postgres"
	err := cfg.Validate("history")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ledger.database_url is required")

	cfg.Ledger.DatabaseURL = "postgres://localhost/audit"
	assert.NoError(t, cfg.Validate("history"))

	cfg.Ledger.Driver = "mysql"
	err = cfg.Validate("history")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ledger.driver must be one of")

	cfg.Ledger.Driver = "sqlite"
	cfg.Ledger.Path = ""
	err = cfg.Validate("history")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ledger.path is required for the sqlite driver")
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateUnknownMode(t *testing.T) {
	err := validDefaults().Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
