// Package datagouv is a client for the data.gouv.fr API: dataset metadata
// and the discussion threads attached to datasets.
package datagouv

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/schema-audit/internal/fetcher"
	"github.com/sells-group/schema-audit/internal/model"
)

// DefaultBaseURL is the production API host.
const DefaultBaseURL = "https://www.data.gouv.fr"

// Option configures the client.
type Option func(*Client)

// WithBaseURL points the client at another host (for testing).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit caps requests per second. Zero disables limiting.
func WithRateLimit(rps float64) Option {
	return func(c *Client) { c.rps = rps }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithPageSize sets the discussion page size.
func WithPageSize(n int) Option {
	return func(c *Client) { c.pageSize = n }
}

// Client talks to /api/1. Write calls need an API key.
type Client struct {
	baseURL    string
	apiKey     string
	rps        float64
	timeout    time.Duration
	pageSize   int
	httpClient *http.Client
	fetch      *fetcher.Client
}

// NewClient returns a client authenticated with apiKey.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:  DefaultBaseURL,
		apiKey:   apiKey,
		timeout:  30 * time.Second,
		pageSize: 20,
	}
	for _, o := range opts {
		o(c)
	}

	header := http.Header{}
	if c.apiKey != "" {
		header.Set("X-API-KEY", c.apiKey)
	}
	var lim *fetcher.AdaptiveLimiter
	if c.rps > 0 {
		lim = fetcher.NewAdaptiveLimiter(c.rps, max(int(c.rps), 1))
	}
	c.fetch = fetcher.New(fetcher.Options{
		Service:    "datagouv",
		Timeout:    c.timeout,
		Header:     header,
		Limiter:    lim,
		HTTPClient: c.httpClient,
	})
	return c
}

func (c *Client) endpoint(path string) string {
	return c.baseURL + "/api/1" + path
}

// checkCursor keeps the API key on the configured host and scheme.
func (c *Client) checkCursor(cursor string) error {
	next, err := url.Parse(cursor)
	if err != nil {
		return eris.Wrapf(ErrForeignCursor, "parse %q: %v", cursor, err)
	}
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return eris.Wrapf(err, "datagouv: parse base url %q", c.baseURL)
	}
	if next.Scheme != base.Scheme || next.Host != base.Host {
		return eris.Wrapf(ErrForeignCursor, "%s://%s", next.Scheme, next.Host)
	}
	return nil
}

type resourceSchema struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type resource struct {
	ID     string          `json:"id"`
	Title  string          `json:"title"`
	URL    string          `json:"url"`
	Schema *resourceSchema `json:"schema"`
}

type dataset struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Resources []resource `json:"resources"`
}

// ErrNoResource is returned for a dataset without any file.
var ErrNoResource = eris.New("datagouv: dataset has no resource")

// ErrForeignCursor is returned for a next_page URL outside the API host.
var ErrForeignCursor = eris.New("datagouv: pagination cursor points outside the API")

// Dataset fetches the title and resources of dataset id.
func (c *Client) Dataset(ctx context.Context, id string) (*model.DatasetMeta, error) {
	var ds dataset
	if err := c.fetch.GetJSON(ctx, c.endpoint("/datasets/"+url.PathEscape(id)+"/"), &ds); err != nil {
		return nil, eris.Wrapf(err, "datagouv: get dataset %s", id)
	}
	if len(ds.Resources) == 0 {
		return nil, eris.Wrapf(ErrNoResource, "dataset %s", id)
	}

	meta := &model.DatasetMeta{
		ID:          id,
		Title:       ds.Title,
		ResourceURL: ds.Resources[0].URL,
	}
	for _, r := range ds.Resources {
		res := model.Resource{URL: r.URL}
		if r.Schema != nil {
			res.SchemaName = r.Schema.Name
		}
		meta.Resources = append(meta.Resources, res)
	}
	return meta, nil
}

type user struct {
	ID string `json:"id"`
}

type discussion struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	User   *user   `json:"user"`
	Closed *string `json:"closed"`
}

func (d discussion) thread() model.Thread {
	t := model.Thread{ID: d.ID, Title: d.Title, Open: d.Closed == nil}
	if d.User != nil {
		t.AuthorID = d.User.ID
	}
	return t
}

type discussionPage struct {
	Data     []discussion `json:"data"`
	NextPage *string      `json:"next_page"`
}

// ListThreads returns one page of open discussions on dataset subjectID,
// most recent first. cursor is the next_page URL of the previous page, or
// empty for the first page.
func (c *Client) ListThreads(ctx context.Context, subjectID, cursor string) (*model.ThreadPage, error) {
	pageURL := cursor
	if pageURL != "" {
		if err := c.checkCursor(pageURL); err != nil {
			return nil, err
		}
	} else {
		q := url.Values{}
		q.Set("for", subjectID)
		q.Set("closed", "false")
		q.Set("sort", "-created")
		q.Set("page_size", strconv.Itoa(c.pageSize))
		pageURL = c.endpoint("/discussions/") + "?" + q.Encode()
	}

	var page discussionPage
	if err := c.fetch.GetJSON(ctx, pageURL, &page); err != nil {
		return nil, eris.Wrapf(err, "datagouv: list discussions for %s", subjectID)
	}

	out := &model.ThreadPage{Threads: make([]model.Thread, 0, len(page.Data))}
	for _, d := range page.Data {
		out.Threads = append(out.Threads, d.thread())
	}
	if page.NextPage != nil {
		out.NextCursor = *page.NextPage
	}
	return out, nil
}

type subject struct {
	Class string `json:"class"`
	ID    string `json:"id"`
}

type createDiscussion struct {
	Title   string  `json:"title"`
	Comment string  `json:"comment"`
	Subject subject `json:"subject"`
}

// CreateThread opens a discussion on dataset subjectID.
func (c *Client) CreateThread(ctx context.Context, subjectID, title, comment string) (*model.Thread, error) {
	body := createDiscussion{
		Title:   title,
		Comment: comment,
		Subject: subject{Class: "Dataset", ID: subjectID},
	}
	var d discussion
	if err := c.fetch.PostJSON(ctx, c.endpoint("/discussions/"), body, &d); err != nil {
		return nil, eris.Wrapf(err, "datagouv: create discussion on %s", subjectID)
	}
	t := d.thread()
	return &t, nil
}

// AppendComment posts comment to discussion threadID.
func (c *Client) AppendComment(ctx context.Context, threadID, comment string) error {
	body := map[string]string{"comment": comment}
	err := c.fetch.PostJSON(ctx, c.endpoint("/discussions/"+url.PathEscape(threadID)+"/"), body, nil)
	return eris.Wrapf(err, "datagouv: comment on discussion %s", threadID)
}

// Me returns the id of the account owning the API key.
func (c *Client) Me(ctx context.Context) (string, error) {
	var u user
	if err := c.fetch.GetJSON(ctx, c.endpoint("/me/"), &u); err != nil {
		return "", eris.Wrap(err, "datagouv: get current user")
	}
	if u.ID == "" {
		return "", eris.New("datagouv: current user has no id")
	}
	return u.ID, nil
}
