package model

// DateLayout is the calendar date format used in records.
const DateLayout = "2006-01-02"

// DatasetReportRecord is one row of audit history. The field order is the
// ledger column order and must not change.
type DatasetReportRecord struct {
	Date                string `json:"date" csv:"date"`
	DatasetID           string `json:"dataset_id" csv:"dataset_id"`
	Name                string `json:"name" csv:"name"`
	SchemaSlug          string `json:"schema_slug" csv:"schema_slug"`
	SchemaVersion       string `json:"schema_version" csv:"schema_version"`
	FileURL             string `json:"file_url" csv:"file_url"`
	ReportURL           string `json:"report_url" csv:"report_url"`
	RowCount            int    `json:"row_count" csv:"row_count"`
	ErrorCount          int    `json:"error_count" csv:"error_count"`
	RowsWithErrorsCount int    `json:"rows_with_errors_count" csv:"rows_with_errors_count"`
	ErrorDetail         string `json:"error_detail" csv:"error_detail"`
}

// RecordColumns lists the ledger columns in record field order.
var RecordColumns = []string{
	"date",
	"dataset_id",
	"name",
	"schema_slug",
	"schema_version",
	"file_url",
	"report_url",
	"row_count",
	"error_count",
	"rows_with_errors_count",
	"error_detail",
}

// Values returns the record as a row in RecordColumns order.
func (r DatasetReportRecord) Values() []any {
	return []any{
		r.Date,
		r.DatasetID,
		r.Name,
		r.SchemaSlug,
		r.SchemaVersion,
		r.FileURL,
		r.ReportURL,
		r.RowCount,
		r.ErrorCount,
		r.RowsWithErrorsCount,
		r.ErrorDetail,
	}
}

// Entry is the published view of a record: the record plus its quality
// classification.
type Entry struct {
	DatasetReportRecord
	Status          string `json:"status"`
	ErrorPercentage int    `json:"error_percentage"`
	BadgeURL        string `json:"badge_url"`
}
