package audit

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/schema-audit/internal/model"
)

func TestLoadTargets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "targets.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`targets:
  - dataset_id: 5d6eaffc8b4c417cdc452ac3
    schema: etalab/schema-lieux-covoiturage
  - dataset_id: 5448d3e0c751df01f85d0572
    schema: etalab/schema-irve
`), 0o644))

	got, err := LoadTargets(path)
	require.NoError(t, err)
	assert.Equal(t, []model.Target{
		{DatasetID: "5d6eaffc8b4c417cdc452ac3", Schema: "etalab/schema-lieux-covoiturage"},
		{DatasetID: "5448d3e0c751df01f85d0572", Schema: "etalab/schema-irve"},
	}, got)
}

func TestLoadTargets_MissingField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "targets.yaml")
	require.NoError(t, os.WriteFile(path, []byte("targets:\n  - dataset_id: abc\n"), 0o644))

	_, err := LoadTargets(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entry 1")
}

func TestLoadTargets_Missing(t *testing.T) {
	_, err := LoadTargets(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

type fakeLister struct {
	schemas []model.Schema
	err     error
}

func (f fakeLister) Consolidated(context.Context) ([]model.Schema, error) { return f.schemas, f.err }

func TestRegistryTargets(t *testing.T) {
	got, err := RegistryTargets(context.Background(), fakeLister{schemas: []model.Schema{
		{Slug: "etalab/schema-irve", ConsolidationDatasetID: "5448d3e0c751df01f85d0572"},
	}})
	require.NoError(t, err)
	assert.Equal(t, []model.Target{{DatasetID: "5448d3e0c751df01f85d0572", Schema: "etalab/schema-irve"}}, got)

	_, err = RegistryTargets(context.Background(), fakeLister{err: errors.New("catalogue down")})
	assert.Error(t, err)
}

func TestLoadTargets_DuplicateDataset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "targets.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`targets:
  - dataset_id: d
    schema: etalab/a
  - dataset_id: d
    schema: etalab/b
`), 0o644))

	_, err := LoadTargets(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateTarget)
	assert.Contains(t, err.Error(), "entry 2 repeats d from entry 1")
}

func TestRegistryTargets_SharedDatasetKeepsFirst(t *testing.T) {
	got, err := RegistryTargets(context.Background(), fakeLister{schemas: []model.Schema{
		{Slug: "etalab/a", ConsolidationDatasetID: "d"},
		{Slug: "etalab/b", ConsolidationDatasetID: "d"},
		{Slug: "etalab/c", ConsolidationDatasetID: "e"},
	}})
	require.NoError(t, err)
	assert.Equal(t, []model.Target{
		{DatasetID: "d", Schema: "etalab/a"},
		{DatasetID: "e", Schema: "etalab/c"},
	}, got)
}
