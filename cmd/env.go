package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/schema-audit/internal/audit"
	"github.com/sells-group/schema-audit/internal/config"
	"github.com/sells-group/schema-audit/internal/ledger"
	"github.com/sells-group/schema-audit/internal/notify"
	"github.com/sells-group/schema-audit/internal/resilience"
	"github.com/sells-group/schema-audit/pkg/datagouv"
	"github.com/sells-group/schema-audit/pkg/schemas"
	"github.com/sells-group/schema-audit/pkg/validata"
)

// clients holds the read-only API clients.
type clients struct {
	DataGouv *datagouv.Client
	Schemas  *schemas.Client
	Validata *validata.Client
}

func newClients(c *config.Config) *clients {
	return &clients{
		DataGouv: datagouv.NewClient(c.DataGouv.APIKey,
			datagouv.WithBaseURL(c.DataGouv.BaseURL),
			datagouv.WithRateLimit(c.DataGouv.RateLimit),
			datagouv.WithTimeout(time.Duration(c.DataGouv.TimeoutSecs)*time.Second),
			datagouv.WithPageSize(c.DataGouv.PageSize),
		),
		Schemas: schemas.NewClient(schemas.WithBaseURL(c.Schemas.BaseURL)),
		Validata: validata.NewClient(
			validata.WithBaseURL(c.Validata.BaseURL),
			validata.WithErrorLimit(c.Validata.ErrorLimit),
			validata.WithTimeout(time.Duration(c.Validata.TimeoutSecs)*time.Second),
		),
	}
}

// auditEnv holds everything an audit run needs. Callers should defer Close.
type auditEnv struct {
	Clients *clients
	Ledger  ledger.Ledger
	Engine  *audit.Engine
}

// Close releases the ledger.
func (e *auditEnv) Close() {
	if e.Ledger != nil {
		_ = e.Ledger.Close()
	}
}

func initAudit(ctx context.Context, dryRun bool) (*auditEnv, error) {
	if err := cfg.Validate("audit"); err != nil {
		return nil, err
	}

	l, err := ledger.Open(ctx, cfg.Ledger)
	if err != nil {
		return nil, eris.Wrap(err, "open ledger")
	}

	cl := newClients(cfg)
	deps := audit.Deps{
		Validator: cl.Validata,
		Registry:  cl.Schemas,
		Datasets:  cl.DataGouv,
		Ledger:    l,
	}
	if cfg.Notify.Enabled {
		breaker := discussionBreaker(cfg.Notify.FailureThreshold)
		opts := []notify.Option{notify.WithTitle(cfg.Notify.Title), notify.WithBreaker(breaker)}
		if cfg.DataGouv.UserID != "" {
			opts = append(opts, notify.WithIdentity(cfg.DataGouv.UserID))
		}
		deps.Notifier = notify.New(cl.DataGouv, opts...)
	}

	engine := audit.NewEngine(deps, audit.Options{
		Output:       cfg.Audit.Output,
		UIURL:        cfg.Validata.UIURL,
		BadgeBaseURL: cfg.Badge.BaseURL,
		DryRun:       dryRun,
	})
	return &auditEnv{Clients: cl, Ledger: l, Engine: engine}, nil
}

// discussionBreaker guards discussion calls. Only transient failures count,
// so a dataset whose discussions answer 403 or 404 cannot trip it for the
// others.
func discussionBreaker(threshold int) *resilience.Breaker {
	return resilience.NewBreaker("datagouv.discussions", threshold,
		resilience.WithFailureFilter(resilience.IsTransient),
		resilience.WithStateChange(func(name string, from, to resilience.State) {
			zap.L().Warn("circuit breaker state change",
				zap.String("service", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		}),
	)
}
