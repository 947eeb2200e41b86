package monitoring

import (
	"sort"
	"time"

	"github.com/sells-group/schema-audit/internal/model"
	"github.com/sells-group/schema-audit/internal/quality"
)

// DatasetTrend compares a dataset's latest record with the one before it.
type DatasetTrend struct {
	DatasetID      string         `json:"dataset_id"`
	Name           string         `json:"name"`
	Date           string         `json:"date"`
	Status         quality.Status `json:"status"`
	ErrorCount     int            `json:"error_count"`
	PreviousErrors int            `json:"previous_errors"`
	Records        int            `json:"records"`
}

// Degraded reports whether errors rose since the previous record.
func (t DatasetTrend) Degraded() bool {
	return t.Records > 1 && t.ErrorCount > t.PreviousErrors
}

// QualitySnapshot summarises the ledger history.
type QualitySnapshot struct {
	Records      int                    `json:"records"`
	Datasets     int                    `json:"datasets"`
	ByStatus     map[quality.Status]int `json:"by_status"`
	Trends       []DatasetTrend         `json:"trends"`
	LookbackDays int                    `json:"lookback_days"`
	CollectedAt  time.Time              `json:"collected_at"`
}

// Degraded returns the datasets whose error count rose.
func (s *QualitySnapshot) Degraded() []DatasetTrend {
	var out []DatasetTrend
	for _, t := range s.Trends {
		if t.Degraded() {
			out = append(out, t)
		}
	}
	return out
}

// Collect builds a QualitySnapshot from ledger records in insertion order.
// Records older than lookbackDays before now are ignored; 0 keeps all.
func Collect(records []model.DatasetReportRecord, lookbackDays int, now time.Time) *QualitySnapshot {
	snap := &QualitySnapshot{
		ByStatus:     map[quality.Status]int{},
		LookbackDays: lookbackDays,
		CollectedAt:  now.UTC(),
	}

	cutoff := ""
	if lookbackDays > 0 {
		cutoff = now.AddDate(0, 0, -lookbackDays).Format(model.DateLayout)
	}

	trends := map[string]*DatasetTrend{}
	for _, r := range records {
		if cutoff != "" && r.Date < cutoff {
			continue
		}
		snap.Records++
		t, ok := trends[r.DatasetID]
		if !ok {
			t = &DatasetTrend{DatasetID: r.DatasetID}
			trends[r.DatasetID] = t
		}
		t.PreviousErrors = t.ErrorCount
		t.ErrorCount = r.ErrorCount
		t.Name = r.Name
		t.Date = r.Date
		t.Records++
		t.Status, _, _ = quality.Classify(r.ErrorCount, r.RowCount)
	}

	for _, t := range trends {
		snap.ByStatus[t.Status]++
		snap.Trends = append(snap.Trends, *t)
	}
	sort.Slice(snap.Trends, func(i, j int) bool {
		return snap.Trends[i].DatasetID < snap.Trends[j].DatasetID
	})
	snap.Datasets = len(snap.Trends)
	return snap
}
