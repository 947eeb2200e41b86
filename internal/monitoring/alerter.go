// Package monitoring derives operator alerts from batch runs and the audit
// history, and posts them to a webhook.
package monitoring

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/schema-audit/internal/config"
	"github.com/sells-group/schema-audit/internal/fetcher"
	"github.com/sells-group/schema-audit/internal/model"
	"github.com/sells-group/schema-audit/internal/resilience"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertDatasetFailures AlertType = "dataset_failures"
	AlertNotifyFailures  AlertType = "notify_failures"
	AlertQualityDegraded AlertType = "quality_degraded"
)

// Alert is one message for the operator.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	RunID     string         `json:"run_id,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter turns run summaries into alerts and delivers them.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *fetcher.Client
	now    func() time.Time
}

// NewAlerter returns an Alerter posting to cfg.WebhookURL.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg: cfg,
		client: fetcher.New(fetcher.Options{
			Service: "monitoring",
			Timeout: 10 * time.Second,
			Retry:   resilience.Policy{Attempts: 1},
		}),
		now: time.Now,
	}
}

// Evaluate returns the alerts warranted by a run. quality may be nil.
func (a *Alerter) Evaluate(run model.RunSummary, quality *QualitySnapshot) []Alert {
	var alerts []Alert
	now := a.now().UTC()

	notifyFailures := run.NotifyFailures()
	if failed := len(run.Failures) - notifyFailures; failed > 0 {
		ids := make([]string, 0, failed)
		for _, f := range run.Failures {
			if f.Stage != "notify" {
				ids = append(ids, f.DatasetID)
			}
		}
		alerts = append(alerts, Alert{
			Type:     AlertDatasetFailures,
			Severity: "high",
			Message:  fmt.Sprintf("%d of %d dataset(s) could not be audited", failed, run.Targets),
			RunID:    run.RunID,
			Details: map[string]any{
				"datasets": ids,
				"targets":  run.Targets,
			},
			Timestamp: now,
		})
	}

	if notifyFailures > 0 {
		alerts = append(alerts, Alert{
			Type:      AlertNotifyFailures,
			Severity:  "medium",
			Message:   fmt.Sprintf("%d publisher notification(s) failed", notifyFailures),
			RunID:     run.RunID,
			Details:   map[string]any{"failed": notifyFailures, "notified": run.Notified},
			Timestamp: now,
		})
	}

	if quality != nil {
		if degraded := quality.Degraded(); len(degraded) > 0 {
			ids := make([]string, 0, len(degraded))
			for _, d := range degraded {
				ids = append(ids, d.DatasetID)
			}
			alerts = append(alerts, Alert{
				Type:      AlertQualityDegraded,
				Severity:  "low",
				Message:   fmt.Sprintf("error count rose for %d dataset(s)", len(degraded)),
				RunID:     run.RunID,
				Details:   map[string]any{"datasets": ids},
				Timestamp: now,
			})
		}
	}

	return alerts
}

// SendAlerts posts alerts to the webhook and returns how many were accepted.
// Nothing is sent without a webhook URL.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.client.PostJSON(ctx, a.cfg.WebhookURL, alert, nil); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(eris.Wrap(err, "monitoring: webhook")),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}
