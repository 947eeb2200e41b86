// Package report assembles audit history records from validation results.
package report

import (
	"encoding/json"
	"net/url"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/schema-audit/internal/model"
	"github.com/sells-group/schema-audit/internal/quality"
)

// DefaultUIURL is the human-facing validation page.
const DefaultUIURL = "https://validata.fr/table-schema"

// Input gathers everything a record is built from.
type Input struct {
	Target    model.Target
	Schema    model.Schema
	Dataset   model.DatasetMeta
	ReportURL string
	Report    *model.RawReport // enriched
	Date      time.Time
}

// HumanReportURL links to the validation UI for fileURL against schemaURL.
func HumanReportURL(uiURL, fileURL, schemaURL string) string {
	if uiURL == "" {
		uiURL = DefaultUIURL
	}
	q := url.Values{}
	q.Set("input", "url")
	q.Set("url", fileURL)
	q.Set("schema_url", schemaURL)
	return uiURL + "?" + q.Encode()
}

// Build projects in onto a DatasetReportRecord. Every field is populated;
// missing statistics fall back to zero values.
func Build(in Input) (model.DatasetReportRecord, error) {
	var table model.Table
	if in.Report != nil && len(in.Report.Tables) > 0 {
		table = in.Report.Tables[0]
	}

	detail, err := errorDetail(table.ErrorStats)
	if err != nil {
		return model.DatasetReportRecord{}, err
	}

	return model.DatasetReportRecord{
		Date:                in.Date.Format(model.DateLayout),
		DatasetID:           in.Dataset.ID,
		Name:                in.Dataset.Title,
		SchemaSlug:          in.Schema.Slug,
		SchemaVersion:       in.Schema.LatestVersion,
		FileURL:             in.Dataset.ResourceURL,
		ReportURL:           in.ReportURL,
		RowCount:            table.RowCount,
		ErrorCount:          table.ErrorStats.Count,
		RowsWithErrorsCount: table.ErrorStats.ValueErrors.RowsCount,
		ErrorDetail:         detail,
	}, nil
}

// errorDetail serialises stats with empty maps instead of nulls so the stored
// shape does not vary between runs.
func errorDetail(stats model.ErrorStats) (string, error) {
	if stats.ValueErrors.CountByCode == nil {
		stats.ValueErrors.CountByCode = map[string]int{}
	}
	if stats.ValueErrors.CountByColAndCode == nil {
		stats.ValueErrors.CountByColAndCode = model.ColumnErrorCounts{}
	}
	if stats.StructureErrors.CountByCode == nil {
		stats.StructureErrors.CountByCode = map[string]int{}
	}
	b, err := json.Marshal(stats)
	if err != nil {
		return "", eris.Wrap(err, "report: marshal error detail")
	}
	return string(b), nil
}

// NewEntry merges a record with its classification into the published view.
func NewEntry(rec model.DatasetReportRecord, status quality.Status, percentage int, badgeBaseURL string) model.Entry {
	return model.Entry{
		DatasetReportRecord: rec,
		Status:              string(status),
		ErrorPercentage:     percentage,
		BadgeURL:            quality.NewBadge(rec.ErrorCount, status).URL(badgeBaseURL),
	}
}
