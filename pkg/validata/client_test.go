package validata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sirenReport = `{
  "report": {
    "valid": false,
    "tables": [{
      "source": "https://example.org/covoiturage.csv",
      "headers": ["id_lieu", "siren", "nom"],
      "row-count": 200,
      "errors": [
        {"tag": "value", "column-number": 2, "row-number": 2, "code": "pattern-constraint"},
        {"tag": "value", "column-number": 2, "row-number": 3, "code": "pattern-constraint"}
      ],
      "error-stats": {
        "count": 2,
        "value-errors": {"count": 2, "rows-count": 2, "count-by-code": {"pattern-constraint": 2}},
        "structure-errors": {"count": 0, "count-by-code": {}}
      }
    }]
  }
}`

func TestValidate(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/validate", r.URL.Path)
		assert.Equal(t, "https://example.org/schema.json", r.URL.Query().Get("schema"))
		assert.Equal(t, "https://example.org/covoiturage.csv", r.URL.Query().Get("url"))
		assert.Equal(t, "-1", r.URL.Query().Get("error_limit"))
		w.Write([]byte(sirenReport))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	assert.Equal(t, Unbounded, c.ErrorLimit())

	rep, err := c.Validate(context.Background(), "https://example.org/covoiturage.csv", "https://example.org/schema.json")
	require.NoError(t, err)
	require.Len(t, rep.Tables, 1)
	tbl := rep.Tables[0]
	assert.Equal(t, 200, tbl.RowCount)
	assert.Equal(t, []string{"id_lieu", "siren", "nom"}, tbl.Headers)
	require.Len(t, tbl.Errors, 2)
	assert.Equal(t, 2, tbl.Errors[0].ColumnNumber)
	assert.Equal(t, 2, tbl.ErrorStats.ValueErrors.CountByCode["pattern-constraint"])
}

func TestValidate_ExplicitErrorLimit(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "500", r.URL.Query().Get("error_limit"))
		w.Write([]byte(`{"valid": true, "tables": [{"headers": ["a"], "row-count": 1, "errors": []}]}`))
	}))
	defer srv.Close()

	rep, err := NewClient(WithBaseURL(srv.URL), WithErrorLimit(500)).Validate(context.Background(), "f", "s")
	require.NoError(t, err)
	assert.True(t, rep.Valid)
	assert.Equal(t, 1, rep.Tables[0].RowCount)
}

func TestValidate_NoTable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"report": {"valid": false, "tables": []}}`))
	}))
	defer srv.Close()

	_, err := NewClient(WithBaseURL(srv.URL)).Validate(context.Background(), "f", "s")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyReport)
}

func TestValidate_UpstreamError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message": "schema unreachable"}`))
	}))
	defer srv.Close()

	_, err := NewClient(WithBaseURL(srv.URL)).Validate(context.Background(), "f", "s")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema unreachable")
}
