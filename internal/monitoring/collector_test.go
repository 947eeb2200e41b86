package monitoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/schema-audit/internal/model"
	"github.com/sells-group/schema-audit/internal/quality"
)

func rec(date, datasetID string, rows, errs int) model.DatasetReportRecord {
	return model.DatasetReportRecord{Date: date, DatasetID: datasetID, Name: datasetID, RowCount: rows, ErrorCount: errs}
}

func TestCollect(t *testing.T) {
	now := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	records := []model.DatasetReportRecord{
		rec("2024-05-01", "ds1", 100, 0),
		rec("2024-05-02", "ds2", 100, 5),
		rec("2024-05-08", "ds1", 100, 20),
		rec("2024-05-09", "ds2", 100, 0),
		rec("2024-05-09", "ds3", 0, 0),
	}

	snap := Collect(records, 0, now)
	assert.Equal(t, 5, snap.Records)
	assert.Equal(t, 3, snap.Datasets)
	assert.Equal(t, 1, snap.ByStatus[quality.StatusInvalid])
	assert.Equal(t, 1, snap.ByStatus[quality.StatusOK])
	assert.Equal(t, 1, snap.ByStatus[quality.StatusNoData])

	require.Len(t, snap.Trends, 3)
	ds1 := snap.Trends[0]
	assert.Equal(t, "ds1", ds1.DatasetID)
	assert.Equal(t, 20, ds1.ErrorCount)
	assert.Equal(t, 0, ds1.PreviousErrors)
	assert.Equal(t, "2024-05-08", ds1.Date)
	assert.True(t, ds1.Degraded())

	degraded := snap.Degraded()
	require.Len(t, degraded, 1)
	assert.Equal(t, "ds1", degraded[0].DatasetID)
}

func TestCollect_Lookback(t *testing.T) {
	now := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	records := []model.DatasetReportRecord{
		rec("2024-04-01", "ds1", 100, 0),
		rec("2024-05-08", "ds1", 100, 20),
	}

	snap := Collect(records, 7, now)
	assert.Equal(t, 1, snap.Records)
	require.Len(t, snap.Trends, 1)
	// a single record in the window has nothing to compare with
	assert.False(t, snap.Trends[0].Degraded())
}

func TestCollect_Empty(t *testing.T) {
	snap := Collect(nil, 0, time.Now())
	assert.Zero(t, snap.Datasets)
	assert.Empty(t, snap.Degraded())
}
