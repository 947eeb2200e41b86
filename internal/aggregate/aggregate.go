// Package aggregate turns field-level validation errors into per-column statistics.
package aggregate

import (
	"maps"

	"github.com/rotisserie/eris"

	"github.com/sells-group/schema-audit/internal/model"
)

var (
	// ErrColumnOutOfRange means a value error references a column the table
	// headers do not have. The validator output is inconsistent.
	ErrColumnOutOfRange = eris.New("aggregate: column number out of range")

	// ErrNoTable means the report carries no table to aggregate.
	ErrNoTable = eris.New("aggregate: report has no table")
)

// CountByColumnAndCode counts value errors per column name and error code.
// Errors with any other tag are ignored. The result does not depend on the
// order of errs.
func CountByColumnAndCode(errs []model.ValidationError, headers []string) (model.ColumnErrorCounts, error) {
	counts := make(model.ColumnErrorCounts)
	for _, e := range errs {
		if !e.IsValueError() {
			continue
		}
		if e.ColumnNumber < 1 || e.ColumnNumber > len(headers) {
			return nil, eris.Wrapf(ErrColumnOutOfRange,
				"column %d at row %d (code %s), table has %d headers",
				e.ColumnNumber, e.RowNumber, e.Code, len(headers))
		}
		col := headers[e.ColumnNumber-1]
		if counts[col] == nil {
			counts[col] = make(map[string]int)
		}
		counts[col][e.Code]++
	}
	return counts, nil
}

// Enrich returns a copy of report whose first table carries the per-column
// counts under value-errors.count-by-col-and-code. The input is not modified.
func Enrich(report *model.RawReport) (*model.RawReport, error) {
	if report == nil || len(report.Tables) == 0 {
		return nil, ErrNoTable
	}

	table := report.Tables[0]
	counts, err := CountByColumnAndCode(table.Errors, table.Headers)
	if err != nil {
		return nil, err
	}

	out := *report
	out.Tables = make([]model.Table, len(report.Tables))
	copy(out.Tables, report.Tables)

	stats := table.ErrorStats
	stats.ValueErrors.CountByCode = maps.Clone(stats.ValueErrors.CountByCode)
	stats.ValueErrors.CountByColAndCode = counts
	out.Tables[0].ErrorStats = stats

	return &out, nil
}
