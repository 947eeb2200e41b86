package quality

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		errors     int
		rows       int
		wantStatus Status
		wantPct    int
	}{
		{"no errors", 0, 100, StatusOK, 0},
		{"one percent", 1, 100, StatusWarning, 1},
		{"boundary inclusive", 10, 100, StatusWarning, 10},
		{"just over boundary", 11, 100, StatusInvalid, 11},
		{"fifteen percent", 15, 100, StatusInvalid, 15},
		{"all rows", 200, 200, StatusInvalid, 100},
		{"floored below one percent", 1, 1000, StatusOK, 0},
		{"floored 10.9 percent", 109, 1000, StatusWarning, 10},
		{"more errors than rows", 300, 100, StatusInvalid, 300},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			status, pct, err := Classify(tt.errors, tt.rows)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantPct, pct)
		})
	}
}

func TestClassify_NoRows(t *testing.T) {
	t.Parallel()
	status, pct, err := Classify(0, 0)
	require.ErrorIs(t, err, ErrNoData)
	assert.Equal(t, StatusNoData, status)
	assert.Equal(t, 0, pct)

	_, _, err = Classify(5, 0)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestStatusColor(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "green", StatusOK.Color())
	assert.Equal(t, "orange", StatusWarning.Color())
	assert.Equal(t, "red", StatusInvalid.Color())
	assert.Equal(t, "lightgrey", StatusNoData.Color())
}

func TestBadge(t *testing.T) {
	t.Parallel()
	b := NewBadge(200, StatusInvalid)
	assert.Equal(t, Badge{Label: "Consolidation", Message: "200 erreurs", Color: "red", Style: "flat-square"}, b)

	u, err := url.Parse(b.URL(""))
	require.NoError(t, err)
	assert.Equal(t, "img.shields.io", u.Host)
	assert.Equal(t, "/static/v1", u.Path)
	q := u.Query()
	assert.Equal(t, "Consolidation", q.Get("label"))
	assert.Equal(t, "200 erreurs", q.Get("message"))
	assert.Equal(t, "red", q.Get("color"))
	assert.Equal(t, "flat-square", q.Get("style"))
}

func TestBadgeURL_CustomBase(t *testing.T) {
	t.Parallel()
	got := NewBadge(0, StatusOK).URL("https://badges.example.org/static")
	assert.Equal(t,
		"https://badges.example.org/static?color=green&label=Consolidation&message=0+erreurs&style=flat-square",
		got)
}
