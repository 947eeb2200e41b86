// Package validata calls the Validata table-schema validation API.
package validata

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/schema-audit/internal/fetcher"
	"github.com/sells-group/schema-audit/internal/model"
)

// DefaultBaseURL is the public validation API.
const DefaultBaseURL = "https://api.validata.etalab.studio"

// Unbounded asks the validator to report every error.
const Unbounded = -1

// ErrEmptyReport is returned when the response holds no table.
var ErrEmptyReport = eris.New("validata: report has no table")

// Option configures the client.
type Option func(*Client)

// WithBaseURL points the client at another API (for testing).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithErrorLimit caps the number of errors reported per file. Unbounded
// (the default) lists them all, which the per-column statistics require.
func WithErrorLimit(n int) Option {
	return func(c *Client) { c.errorLimit = n }
}

// WithTimeout sets the per-request timeout. Large files take minutes.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// Client validates remote files against remote schemas.
type Client struct {
	baseURL    string
	errorLimit int
	timeout    time.Duration
	httpClient *http.Client
	fetch      *fetcher.Client
}

// NewClient returns a validation client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		errorLimit: Unbounded,
		timeout:    5 * time.Minute,
	}
	for _, o := range opts {
		o(c)
	}
	c.fetch = fetcher.New(fetcher.Options{
		Service:    "validata",
		Timeout:    c.timeout,
		HTTPClient: c.httpClient,
	})
	return c
}

// ErrorLimit returns the configured limit.
func (c *Client) ErrorLimit() int { return c.errorLimit }

// envelope accepts both a bare report and one nested under "report".
type envelope struct {
	Report *model.RawReport `json:"report"`
	model.RawReport
}

// Validate validates the file at sourceURL against the schema at schemaURL.
func (c *Client) Validate(ctx context.Context, sourceURL, schemaURL string) (*model.RawReport, error) {
	q := url.Values{}
	q.Set("schema", schemaURL)
	q.Set("url", sourceURL)
	q.Set("error_limit", strconv.Itoa(c.errorLimit))

	var raw json.RawMessage
	if err := c.fetch.GetJSON(ctx, c.baseURL+"/validate?"+q.Encode(), &raw); err != nil {
		return nil, eris.Wrapf(err, "validata: validate %s", sourceURL)
	}
	report, err := decodeReport(raw)
	if err != nil {
		return nil, eris.Wrapf(err, "validata: validate %s", sourceURL)
	}
	return report, nil
}

func decodeReport(raw []byte) (*model.RawReport, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, eris.Wrap(err, "decode report")
	}
	report := &env.RawReport
	if env.Report != nil {
		report = env.Report
	}
	if len(report.Tables) == 0 {
		return nil, ErrEmptyReport
	}
	return report, nil
}
