package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/schema-audit/internal/aggregate"
	"github.com/sells-group/schema-audit/internal/ledger"
	"github.com/sells-group/schema-audit/internal/model"
	"github.com/sells-group/schema-audit/internal/notify"
	"github.com/sells-group/schema-audit/internal/quality"
	"github.com/sells-group/schema-audit/internal/report"
)

// Deps are the engine's collaborators. Notifier may be nil when
// notifications are disabled.
type Deps struct {
	Validator Validator
	Registry  SchemaRegistry
	Datasets  DatasetSource
	Notifier  Notifier
	Ledger    ledger.Ledger
}

// Options configures a run.
type Options struct {
	// Output is where the JSON document is written. Empty skips writing.
	Output       string
	UIURL        string
	BadgeBaseURL string
	// DryRun builds the output but neither notifies nor appends history.
	DryRun bool
}

// Result is what a run produced.
type Result struct {
	Summary   model.RunSummary
	Entries   map[string]model.Entry
	Records   []model.DatasetReportRecord
	Decisions map[string]model.Decision
	// Errors holds one StageError per failed dataset or notification.
	Errors []*StageError
}

// Engine runs audit batches.
type Engine struct {
	deps Deps
	opts Options
	now  func() time.Time
}

// NewEngine returns an engine over deps.
func NewEngine(deps Deps, opts Options) *Engine {
	return &Engine{deps: deps, opts: opts, now: time.Now}
}

// Run audits targets sequentially. History is read once before the first
// target and appended once after the output is written, so novelty is
// always judged against the state at the start of the run. A failure on
// one dataset is recorded in the result and does not stop the others; an
// unreadable history aborts the run before anything is produced.
func (e *Engine) Run(ctx context.Context, targets []model.Target) (*Result, error) {
	runID := uuid.NewString()
	started := e.now().UTC()
	log := zap.L().With(zap.String("component", "audit.engine"), zap.String("run_id", runID))

	snap, err := ledger.LoadSnapshot(ctx, e.deps.Ledger)
	if err != nil {
		return nil, eris.Wrap(err, "audit: load history")
	}
	log.Info("history loaded", zap.Int("records", snap.Len()), zap.Int("targets", len(targets)))

	res := &Result{
		Summary: model.RunSummary{
			RunID:     runID,
			StartedAt: started,
			DryRun:    e.opts.DryRun,
			Targets:   len(targets),
		},
		Entries:   map[string]model.Entry{},
		Decisions: map[string]model.Decision{},
	}

	seen := make(map[string]struct{}, len(targets))
	for _, t := range targets {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "audit: run interrupted")
		}

		dsLog := log.With(zap.String("dataset_id", t.DatasetID), zap.String("schema", t.Schema))
		// The output holds one entry per dataset.
		if _, dup := seen[t.DatasetID]; dup {
			e.fail(res, dsLog, stageErr(t.DatasetID, StageTarget, ErrDuplicateTarget))
			continue
		}
		seen[t.DatasetID] = struct{}{}

		entry, schema, err := e.report(ctx, t, started)
		if err != nil {
			e.fail(res, dsLog, err)
			continue
		}
		res.Entries[t.DatasetID] = entry
		res.Records = append(res.Records, entry.DatasetReportRecord)
		res.Summary.Reported++

		dsLog = dsLog.With(zap.String("file_url", entry.FileURL))
		dsLog.Info("dataset audited",
			zap.String("status", entry.Status),
			zap.Int("row_count", entry.RowCount),
			zap.Int("error_count", entry.ErrorCount),
			zap.Int("error_percentage", entry.ErrorPercentage),
		)

		if !snap.IsNew(entry.FileURL) {
			res.Decisions[t.DatasetID] = model.Skip()
			dsLog.Debug("file already audited, not notifying")
			continue
		}
		res.Summary.Novel++

		dec, err := e.notify(ctx, entry, schema)
		if err != nil {
			e.fail(res, dsLog, err)
			continue
		}
		res.Decisions[t.DatasetID] = dec
		if dec.Kind != model.DecisionSkip {
			res.Summary.Notified++
		}
	}

	if e.opts.Output != "" {
		if err := WriteOutput(e.opts.Output, res.Entries); err != nil {
			return res, err
		}
		log.Info("output written", zap.String("path", e.opts.Output), zap.Int("entries", len(res.Entries)))
	}

	if e.opts.DryRun {
		log.Info("dry run, history not updated")
	} else if err := e.deps.Ledger.Append(ctx, res.Records); err != nil {
		return res, eris.Wrap(err, "audit: append history")
	}

	res.Summary.FinishedAt = e.now().UTC()
	log.Info("run complete",
		zap.Int("reported", res.Summary.Reported),
		zap.Int("novel", res.Summary.Novel),
		zap.Int("notified", res.Summary.Notified),
		zap.Int("failed", len(res.Summary.Failures)),
	)
	return res, nil
}

func (e *Engine) fail(res *Result, log *zap.Logger, err error) {
	var se *StageError
	if !errors.As(err, &se) {
		se = stageErr("", "", err)
	}
	res.Errors = append(res.Errors, se)
	res.Summary.Failures = append(res.Summary.Failures, model.DatasetFailure{
		DatasetID: se.DatasetID,
		Stage:     string(se.Stage),
		Error:     se.Err.Error(),
	})
	log.Error("dataset failed", zap.String("stage", string(se.Stage)), zap.Error(se.Err))
}

// report produces the published entry for one target.
func (e *Engine) report(ctx context.Context, t model.Target, date time.Time) (model.Entry, *model.Schema, error) {
	schema, err := e.deps.Registry.Schema(ctx, t.Schema)
	if err != nil {
		return model.Entry{}, nil, stageErr(t.DatasetID, StageSchema, err)
	}

	meta, err := e.deps.Datasets.Dataset(ctx, t.DatasetID)
	if err != nil {
		return model.Entry{}, nil, stageErr(t.DatasetID, StageMetadata, err)
	}
	ds := *meta
	ds.ResourceURL = meta.ResourceFor(schema.Slug)

	raw, err := e.deps.Validator.Validate(ctx, ds.ResourceURL, schema.SchemaURL)
	if err != nil {
		return model.Entry{}, nil, stageErr(t.DatasetID, StageValidate, err)
	}

	enriched, err := aggregate.Enrich(raw)
	if err != nil {
		return model.Entry{}, nil, stageErr(t.DatasetID, StageAggregate, err)
	}

	rec, err := report.Build(report.Input{
		Target:    t,
		Schema:    *schema,
		Dataset:   ds,
		ReportURL: report.HumanReportURL(e.opts.UIURL, ds.ResourceURL, schema.SchemaURL),
		Report:    enriched,
		Date:      date,
	})
	if err != nil {
		return model.Entry{}, nil, stageErr(t.DatasetID, StageAggregate, err)
	}

	status, pct, err := quality.Classify(rec.ErrorCount, rec.RowCount)
	if err != nil {
		return model.Entry{}, nil, stageErr(t.DatasetID, StageClassify, err)
	}
	return report.NewEntry(rec, status, pct, e.opts.BadgeBaseURL), schema, nil
}

// notify contacts the publisher of a new file that has errors.
func (e *Engine) notify(ctx context.Context, entry model.Entry, schema *model.Schema) (model.Decision, error) {
	if entry.ErrorCount == 0 || e.deps.Notifier == nil || e.opts.DryRun {
		return model.Skip(), nil
	}

	msg, err := notify.RenderMessage(notify.MessageData{
		FileURL:    entry.FileURL,
		ReportURL:  entry.ReportURL,
		DocURL:     schema.DocURL,
		ErrorCount: entry.ErrorCount,
		RowCount:   entry.RowCount,
	})
	if err != nil {
		return model.Decision{}, stageErr(entry.DatasetID, StageNotify, err)
	}

	dec, err := e.deps.Notifier.Notify(ctx, entry.DatasetID, msg)
	if err != nil {
		return model.Decision{}, stageErr(entry.DatasetID, StageNotify, err)
	}
	return dec, nil
}
