// Package model defines the typed records exchanged between the audit components.
package model

// TagValue marks errors attributable to a single column's cell content.
const TagValue = "value"

// ValidationError is one violation reported by the validator.
type ValidationError struct {
	Tag          string `json:"tag"`
	ColumnNumber int    `json:"column-number,omitempty"` // 1-based, meaningful when Tag == TagValue
	RowNumber    int    `json:"row-number,omitempty"`
	Code         string `json:"code"`
	Message      string `json:"message,omitempty"`
}

// IsValueError reports whether the error belongs to a single column.
func (e ValidationError) IsValueError() bool {
	return e.Tag == TagValue
}

// RawReport is the validator's result for one file.
type RawReport struct {
	Valid  bool    `json:"valid"`
	Tables []Table `json:"tables"`
}

// Table is the validation result for one tabular resource.
type Table struct {
	Source     string            `json:"source,omitempty"`
	Headers    []string          `json:"headers"`
	Errors     []ValidationError `json:"errors"`
	RowCount   int               `json:"row-count"`
	ErrorStats ErrorStats        `json:"error-stats"`
}

// ErrorStats summarises a table's errors.
type ErrorStats struct {
	Count           int                 `json:"count"`
	ValueErrors     ValueErrorStats     `json:"value-errors"`
	StructureErrors StructureErrorStats `json:"structure-errors"`
}

// ValueErrorStats summarises column-level errors.
type ValueErrorStats struct {
	Count             int               `json:"count"`
	RowsCount         int               `json:"rows-count"`
	CountByCode       map[string]int    `json:"count-by-code"`
	CountByColAndCode ColumnErrorCounts `json:"count-by-col-and-code"`
}

// StructureErrorStats summarises errors that are not tied to a column.
type StructureErrorStats struct {
	Count       int            `json:"count"`
	CountByCode map[string]int `json:"count-by-code"`
}

// ColumnErrorCounts maps column name -> error code -> occurrences.
type ColumnErrorCounts map[string]map[string]int

// Total returns the sum of every counter.
func (c ColumnErrorCounts) Total() int {
	total := 0
	for _, codes := range c {
		for _, n := range codes {
			total += n
		}
	}
	return total
}
