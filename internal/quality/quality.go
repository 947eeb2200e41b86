// Package quality classifies a file's error rate and renders its badge.
package quality

import (
	"fmt"
	"net/url"

	"github.com/rotisserie/eris"
)

// Status is the quality tier of an audited file.
type Status string

const (
	StatusOK      Status = "ok"
	StatusWarning Status = "warning"
	StatusInvalid Status = "invalid"
	// StatusNoData is returned for files without rows, where no error rate exists.
	StatusNoData Status = "no_data"
)

// WarningThreshold is the highest error percentage still classified as a warning.
const WarningThreshold = 10

// ErrNoData is returned when the row count is zero.
var ErrNoData = eris.New("quality: row count is zero, error percentage undefined")

// Percentage returns floor(errorCount*100/rowCount).
func Percentage(errorCount, rowCount int) (int, error) {
	if rowCount <= 0 {
		return 0, ErrNoData
	}
	return errorCount * 100 / rowCount, nil
}

// StatusFor maps an error percentage to its tier.
func StatusFor(percentage int) Status {
	switch {
	case percentage <= 0:
		return StatusOK
	case percentage <= WarningThreshold:
		return StatusWarning
	default:
		return StatusInvalid
	}
}

// Classify returns the status and percentage for the given counts. A zero row
// count yields StatusNoData and ErrNoData.
func Classify(errorCount, rowCount int) (Status, int, error) {
	p, err := Percentage(errorCount, rowCount)
	if err != nil {
		return StatusNoData, 0, err
	}
	return StatusFor(p), p, nil
}

// Color returns the badge color for a status.
func (s Status) Color() string {
	switch s {
	case StatusOK:
		return "green"
	case StatusWarning:
		return "orange"
	case StatusInvalid:
		return "red"
	default:
		return "lightgrey"
	}
}

// DefaultBadgeBaseURL is the static badge endpoint.
const DefaultBadgeBaseURL = "https://img.shields.io/static/v1"

// Badge describes a shareable quality badge.
type Badge struct {
	Label   string `json:"label"`
	Message string `json:"message"`
	Color   string `json:"color"`
	Style   string `json:"style"`
}

// NewBadge builds the badge for a file with errorCount errors and the given status.
func NewBadge(errorCount int, status Status) Badge {
	return Badge{
		Label:   "Consolidation",
		Message: fmt.Sprintf("%d erreurs", errorCount),
		Color:   status.Color(),
		Style:   "flat-square",
	}
}

// URL renders the badge as a query-encoded URL against baseURL, or
// DefaultBadgeBaseURL when baseURL is empty.
func (b Badge) URL(baseURL string) string {
	if baseURL == "" {
		baseURL = DefaultBadgeBaseURL
	}
	q := url.Values{}
	q.Set("label", b.Label)
	q.Set("message", b.Message)
	q.Set("color", b.Color)
	q.Set("style", b.Style)
	return baseURL + "?" + q.Encode()
}
