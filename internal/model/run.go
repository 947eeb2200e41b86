package model

import "time"

// DatasetFailure records why one dataset did not complete a stage.
type DatasetFailure struct {
	DatasetID string `json:"dataset_id"`
	Stage     string `json:"stage"`
	Error     string `json:"error"`
}

// RunSummary describes one batch run.
type RunSummary struct {
	RunID      string           `json:"run_id"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	DryRun     bool             `json:"dry_run"`
	Targets    int              `json:"targets"`
	Reported   int              `json:"reported"`
	Novel      int              `json:"novel"`
	Notified   int              `json:"notified"`
	Failures   []DatasetFailure `json:"failures,omitempty"`
}

// NotifyFailures counts failures in the notify stage.
func (s RunSummary) NotifyFailures() int {
	n := 0
	for _, f := range s.Failures {
		if f.Stage == "notify" {
			n++
		}
	}
	return n
}
