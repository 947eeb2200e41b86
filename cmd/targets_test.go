package main

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/schema-audit/internal/model"
)

type stubRegistry map[string]*model.Schema

func (s stubRegistry) Schema(_ context.Context, slug string) (*model.Schema, error) {
	if sc, ok := s[slug]; ok {
		return sc, nil
	}
	return nil, errors.New("unknown schema")
}

type stubDatasets map[string]*model.DatasetMeta

func (s stubDatasets) Dataset(_ context.Context, id string) (*model.DatasetMeta, error) {
	if m, ok := s[id]; ok {
		return m, nil
	}
	return nil, errors.New("dataset not found")
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(model.DateLayout, s)
	require.NoError(t, err)
	return d
}

func TestResolveAll(t *testing.T) {
	reg := stubRegistry{
		"etalab/schema-irve": {Slug: "etalab/schema-irve", LatestVersion: "2.3.1"},
	}
	ds := stubDatasets{
		"ds1": {
			ID:          "ds1",
			Title:       "Bornes",
			ResourceURL: "https://example.com/readme.pdf",
			Resources: []model.Resource{
				{URL: "https://example.com/readme.pdf"},
				{URL: "https://example.com/irve.csv", SchemaName: "etalab/schema-irve"},
			},
		},
	}
	targets := []model.Target{
		{DatasetID: "ds1", Schema: "etalab/schema-irve"},
		{DatasetID: "ds2", Schema: "etalab/schema-irve"},
		{DatasetID: "ds3", Schema: "unknown/schema"},
	}

	rows := resolveAll(context.Background(), reg, ds, targets, 2)
	require.Len(t, rows, 3)

	assert.NoError(t, rows[0].Err)
	assert.Equal(t, "2.3.1", rows[0].Version)
	assert.Equal(t, "https://example.com/irve.csv", rows[0].FileURL)

	assert.EqualError(t, rows[1].Err, "dataset not found")
	assert.Equal(t, "2.3.1", rows[1].Version)

	assert.EqualError(t, rows[2].Err, "unknown schema")
	assert.Equal(t, targets[2], rows[2].Target)
}

func TestPrintTargets(t *testing.T) {
	var buf bytes.Buffer
	err := printTargets(&buf, []resolvedTarget{
		{Target: model.Target{DatasetID: "ds1", Schema: "s"}, Version: "1.0", FileURL: "https://example.com/a.csv"},
		{Target: model.Target{DatasetID: "ds2", Schema: "s"}, Err: errors.New("boom")},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "DATASET")
	assert.Contains(t, out, "https://example.com/a.csv")
	assert.Contains(t, out, "error: boom")
}
