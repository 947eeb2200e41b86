package audit

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/schema-audit/internal/model"
)

func TestWriteOutput_RoundTripAndReplace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.json")

	first := map[string]model.Entry{"ds1": {
		DatasetReportRecord: model.DatasetReportRecord{DatasetID: "ds1", ErrorDetail: "{}"},
		Status:              "ok",
		BadgeURL:            "https://img.shields.io/static/v1?color=green",
	}}
	require.NoError(t, WriteOutput(path, first))
	got, err := ReadOutput(path)
	require.NoError(t, err)
	assert.Equal(t, first, got)

	require.NoError(t, WriteOutput(path, nil))
	got, err = ReadOutput(path)
	require.NoError(t, err)
	assert.Empty(t, got)

	// no temp files left behind
	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestWriteOutput_KeysAndFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, WriteOutput(path, map[string]model.Entry{"ds1": {Status: "invalid", ErrorPercentage: 100}}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	for _, key := range append(model.RecordColumns, "status", "error_percentage", "badge_url") {
		assert.Contains(t, string(raw), `"`+key+`"`)
	}
}

func TestReadOutput_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))
	_, err := ReadOutput(path)
	assert.Error(t, err)
}
