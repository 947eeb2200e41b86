package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestColumnErrorCounts_Total(t *testing.T) {
	t.Parallel()
	c := ColumnErrorCounts{
		"siren": {"pattern-constraint": 3, "required-constraint": 1},
		"nom":   {"type-or-format-error": 2},
	}
	assert.Equal(t, 6, c.Total())
	assert.Equal(t, 0, ColumnErrorCounts{}.Total())
}

func TestRecordValues_MatchColumns(t *testing.T) {
	t.Parallel()
	r := DatasetReportRecord{Date: "2026-01-02", DatasetID: "ds", RowCount: 4}
	vals := r.Values()
	assert.Len(t, vals, len(RecordColumns))
	assert.Equal(t, "2026-01-02", vals[0])
	assert.Equal(t, "ds", vals[1])
	assert.Equal(t, 4, vals[7])
}

func TestDecisionConstructors(t *testing.T) {
	t.Parallel()
	assert.Equal(t, DecisionCreateNew, CreateNew().Kind)
	assert.Equal(t, Decision{Kind: DecisionAppendTo, ThreadID: "t1"}, AppendTo("t1"))
	assert.Equal(t, DecisionSkip, Skip().Kind)
}

func TestValidationError_IsValueError(t *testing.T) {
	t.Parallel()
	assert.True(t, ValidationError{Tag: "value"}.IsValueError())
	assert.False(t, ValidationError{Tag: "structure"}.IsValueError())
}

func TestDatasetMeta_ResourceFor(t *testing.T) {
	t.Parallel()
	m := &DatasetMeta{
		ResourceURL: "https://example.org/first.csv",
		Resources: []Resource{
			{URL: "https://example.org/first.csv"},
			{URL: "https://example.org/irve.csv", SchemaName: "etalab/schema-irve"},
		},
	}
	assert.Equal(t, "https://example.org/irve.csv", m.ResourceFor("etalab/schema-irve"))
	assert.Equal(t, "https://example.org/first.csv", m.ResourceFor("etalab/schema-lieux-covoiturage"))
	assert.Equal(t, "https://example.org/first.csv", m.ResourceFor(""))
}

func TestRunSummary_NotifyFailures(t *testing.T) {
	t.Parallel()
	s := RunSummary{Failures: []DatasetFailure{
		{DatasetID: "a", Stage: "notify"},
		{DatasetID: "b", Stage: "validate"},
		{DatasetID: "c", Stage: "notify"},
	}}
	assert.Equal(t, 2, s.NotifyFailures())
	assert.Equal(t, 0, RunSummary{}.NotifyFailures())
}
