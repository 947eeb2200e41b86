package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/schema-audit/internal/audit"
	"github.com/sells-group/schema-audit/internal/ledger"
	"github.com/sells-group/schema-audit/internal/model"
	"github.com/sells-group/schema-audit/internal/monitoring"
)

var (
	auditFromRegistry bool
	auditDryRun       bool
	auditTargetsFile  string
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Validate every target, publish the report and notify publishers",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initAudit(ctx, auditDryRun)
		if err != nil {
			return err
		}
		defer env.Close()

		targets, err := resolveTargets(ctx, env.Clients)
		if err != nil {
			return err
		}
		if len(targets) == 0 {
			zap.L().Warn("no targets to audit")
			return nil
		}

		res, err := env.Engine.Run(ctx, targets)
		if err != nil {
			return eris.Wrap(err, "audit run")
		}

		alertRun(ctx, env.Ledger, res.Summary)

		fmt.Fprintf(cmd.OutOrStdout(), "run %s: %d/%d reported, %d new, %d notified, %d failed\n",
			res.Summary.RunID, res.Summary.Reported, res.Summary.Targets,
			res.Summary.Novel, res.Summary.Notified, len(res.Summary.Failures))
		return nil
	},
}

func resolveTargets(ctx context.Context, cl *clients) ([]model.Target, error) {
	if auditFromRegistry {
		return audit.RegistryTargets(ctx, cl.Schemas)
	}
	path := auditTargetsFile
	if path == "" {
		path = cfg.Audit.TargetsFile
	}
	return audit.LoadTargets(path)
}

// alertRun posts the run's alerts when a webhook is configured. History is
// re-read so trends include this run.
func alertRun(ctx context.Context, l ledger.Ledger, run model.RunSummary) {
	if cfg.Monitoring.WebhookURL == "" {
		return
	}
	var snap *monitoring.QualitySnapshot
	if records, err := l.Load(ctx); err != nil {
		zap.L().Warn("monitoring: history unavailable for trends", zap.Error(err))
	} else {
		snap = monitoring.Collect(records, 0, run.FinishedAt)
	}

	alerter := monitoring.NewAlerter(cfg.Monitoring)
	alerts := alerter.Evaluate(run, snap)
	if sent := alerter.SendAlerts(ctx, alerts); sent > 0 {
		zap.L().Info("run alerts sent", zap.Int("sent", sent), zap.Int("alerts", len(alerts)))
	}
}

func init() {
	auditCmd.Flags().BoolVar(&auditFromRegistry, "from-registry", false, "audit every consolidated schema listed by the registry")
	auditCmd.Flags().BoolVar(&auditDryRun, "dry-run", false, "write the report without notifying or updating history")
	auditCmd.Flags().StringVar(&auditTargetsFile, "targets", "", "targets file (default from config)")
	rootCmd.AddCommand(auditCmd)
}
