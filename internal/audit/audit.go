// Package audit runs the batch: validate each target's file, build its
// record and badge, notify publishers of new failing files, then publish the
// output and extend the history.
package audit

import (
	"context"
	"fmt"

	"github.com/sells-group/schema-audit/internal/model"
)

// Validator validates a remote file against a remote schema.
type Validator interface {
	Validate(ctx context.Context, sourceURL, schemaURL string) (*model.RawReport, error)
}

// SchemaRegistry looks up published schemas by slug.
type SchemaRegistry interface {
	Schema(ctx context.Context, slug string) (*model.Schema, error)
}

// DatasetSource looks up dataset metadata by id.
type DatasetSource interface {
	Dataset(ctx context.Context, id string) (*model.DatasetMeta, error)
}

// Notifier posts a comment for a dataset, deduplicating threads.
type Notifier interface {
	Notify(ctx context.Context, subjectID, comment string) (model.Decision, error)
}

// Stage names the step a dataset failed in.
type Stage string

const (
	StageTarget    Stage = "target"
	StageSchema    Stage = "schema"
	StageMetadata  Stage = "metadata"
	StageValidate  Stage = "validate"
	StageAggregate Stage = "aggregate"
	StageClassify  Stage = "classify"
	StageNotify    Stage = "notify"
)

// StageError is a failure confined to one dataset.
type StageError struct {
	DatasetID string
	Stage     Stage
	Err       error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("audit: dataset %s: %s: %v", e.DatasetID, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func stageErr(datasetID string, stage Stage, err error) *StageError {
	return &StageError{DatasetID: datasetID, Stage: stage, Err: err}
}
