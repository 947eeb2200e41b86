// Package schemas reads the schema.data.gouv.fr catalogue.
package schemas

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/sells-group/schema-audit/internal/fetcher"
	"github.com/sells-group/schema-audit/internal/model"
)

// DefaultBaseURL is the public catalogue.
const DefaultBaseURL = "https://schema.data.gouv.fr"

// TableSchema is the schema_type of tabular schemas.
const TableSchema = "tableschema"

// ErrUnknownSchema is returned for a slug absent from the catalogue.
var ErrUnknownSchema = eris.New("schemas: unknown schema")

type version struct {
	VersionName string `json:"version_name"`
	SchemaURL   string `json:"schema_url"`
}

type entry struct {
	Name                   string    `json:"name"`
	Title                  string    `json:"title"`
	SchemaURL              string    `json:"schema_url"`
	SchemaType             string    `json:"schema_type"`
	ConsolidationDatasetID *string   `json:"consolidation_dataset_id"`
	Versions               []version `json:"versions"`
}

type catalogue struct {
	Schemas []entry `json:"schemas"`
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL points the client at another catalogue (for testing).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// Client fetches the catalogue once and answers lookups from memory.
type Client struct {
	baseURL    string
	httpClient *http.Client
	fetch      *fetcher.Client

	mu      sync.Mutex
	schemas []model.Schema
}

// NewClient returns a catalogue client.
func NewClient(opts ...Option) *Client {
	c := &Client{baseURL: DefaultBaseURL}
	for _, o := range opts {
		o(c)
	}
	c.fetch = fetcher.New(fetcher.Options{Service: "schemas", HTTPClient: c.httpClient})
	return c
}

// All returns every schema in the catalogue.
func (c *Client) All(ctx context.Context) ([]model.Schema, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.schemas != nil {
		return c.schemas, nil
	}

	var cat catalogue
	if err := c.fetch.GetJSON(ctx, c.baseURL+"/schemas.json", &cat); err != nil {
		return nil, eris.Wrap(err, "schemas: fetch catalogue")
	}
	out := make([]model.Schema, 0, len(cat.Schemas))
	for _, e := range cat.Schemas {
		out = append(out, c.convert(e))
	}
	c.schemas = out
	return out, nil
}

// Schema returns the catalogue entry for slug.
func (c *Client) Schema(ctx context.Context, slug string) (*model.Schema, error) {
	all, err := c.All(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].Slug == slug {
			s := all[i]
			return &s, nil
		}
	}
	return nil, eris.Wrapf(ErrUnknownSchema, "%s", slug)
}

// Consolidated returns the table schemas that have a consolidated dataset.
func (c *Client) Consolidated(ctx context.Context) ([]model.Schema, error) {
	all, err := c.All(ctx)
	if err != nil {
		return nil, err
	}
	var out []model.Schema
	for _, s := range all {
		if s.SchemaType == TableSchema && s.ConsolidationDatasetID != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

func (c *Client) convert(e entry) model.Schema {
	s := model.Schema{
		Slug:          e.Name,
		Title:         e.Title,
		SchemaURL:     e.SchemaURL,
		SchemaType:    e.SchemaType,
		LatestVersion: LatestVersion(e.Versions),
		DocURL:        c.baseURL + "/" + e.Name + "/latest.html",
	}
	if e.ConsolidationDatasetID != nil {
		s.ConsolidationDatasetID = *e.ConsolidationDatasetID
	}
	return s
}

// LatestVersion returns the last version name other than "latest", or ""
// when there is none.
func LatestVersion(versions []version) string {
	for i := len(versions) - 1; i >= 0; i-- {
		if versions[i].VersionName != "latest" {
			return versions[i].VersionName
		}
	}
	return ""
}
