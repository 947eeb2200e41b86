package config

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Validate checks the settings required by the given command mode:
// "audit", "history" or "serve".
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "audit":
		problems = append(problems, c.validateLedger()...)
		if c.Notify.Enabled && c.DataGouv.APIKey == "" {
			problems = append(problems, "datagouv.api_key is required when notify.enabled is true")
		}
		if c.Notify.Enabled && strings.TrimSpace(c.Notify.Title) == "" {
			problems = append(problems, "notify.title must not be empty")
		}
		if c.Validata.ErrorLimit == 0 || c.Validata.ErrorLimit < -1 {
			problems = append(problems, "validata.error_limit must be -1 (unbounded) or > 0")
		}
		if c.Audit.Output == "" {
			problems = append(problems, "audit.output is required")
		}
	case "history":
		problems = append(problems, c.validateLedger()...)
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
		if c.Audit.Output == "" {
			problems = append(problems, "audit.output is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: invalid %s configuration: %s", mode, strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) validateLedger() []string {
	switch c.Ledger.Driver {
	case "csv", "sqlite":
		if c.Ledger.Path == "" {
			return []string{"ledger.path is required for the " + c.Ledger.Driver + " driver"}
		}
	case "postgres":
		if c.Ledger.DatabaseURL == "" {
			return []string{"ledger.database_url is required for the postgres driver"}
		}
	default:
		return []string{"ledger.driver must be one of csv, sqlite, postgres"}
	}
	return nil
}
