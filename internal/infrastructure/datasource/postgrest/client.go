// Package postgrest reads community resources through a PostgREST endpoint,
// the REST surface hosted Postgres providers such as Supabase put in front of
// the database.
package postgrest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	domain "github.com/turtacn/community-intelligence/internal/domain/intelligence"
	"github.com/turtacn/community-intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/community-intelligence/pkg/errors"
)

// SourceName identifies this source in logs and metrics.
const SourceName = "postgrest"

const (
	restPrefix              = "/rest/v1"
	defaultMaxResponseBytes = 8 << 20
)

// Client implements domain.ResourceSource over PostgREST.  It is safe for
// concurrent use.
type Client struct {
	baseURL          string
	apiKey           string
	httpClient       *http.Client
	logger           logging.Logger
	userAgent        string
	resourceTable    string
	categoryTable    string
	maxResponseBytes int64
}

var _ domain.ResourceSource = (*Client)(nil)

// NewClient validates baseURL and returns a Client.  apiKey may be empty for
// endpoints that allow anonymous reads.
func NewClient(baseURL, apiKey string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New(errors.ErrCodeDataSourceNotConfigured, "postgrest base url is empty")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDataSourceNotConfigured, "invalid postgrest base url")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.New(errors.ErrCodeDataSourceNotConfigured, "postgrest base url scheme must be http or https")
	}
	if u.Host == "" {
		return nil, errors.New(errors.ErrCodeDataSourceNotConfigured, "postgrest base url has no host")
	}

	base := strings.TrimSuffix(baseURL, "/")
	if !strings.HasSuffix(base, restPrefix) {
		base += restPrefix
	}

	c := &Client{
		baseURL:          base,
		apiKey:           apiKey,
		httpClient:       &http.Client{Timeout: 10 * time.Second},
		logger:           logging.NewNopLogger(),
		userAgent:        "community-intelligence",
		resourceTable:    "resources",
		categoryTable:    "categories",
		maxResponseBytes: defaultMaxResponseBytes,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Named("postgrest")
	return c, nil
}

func (c *Client) Name() string { return SourceName }

// resourceRow holds the scalar columns of one response element.  The
// category is embedded through the resources.category_id foreign key and
// arrives as an object keyed by the category table name, so rows are decoded
// field by field.
type resourceRow struct {
	Title    string
	Keywords []string
	Priority *float64
}

type categoryRef struct {
	Name *string `json:"name"`
}

// ListResources fetches every resource ordered by descending priority.
func (c *Client) ListResources(ctx context.Context) ([]domain.ResourceRecord, error) {
	q := url.Values{}
	q.Set("select", fmt.Sprintf("title,keywords,priority,%s(name)", c.categoryTable))
	q.Set("order", "priority.desc.nullslast")

	body, err := c.get(ctx, c.resourceTable, q)
	if err != nil {
		return nil, err
	}

	var raw []map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDataSourceParseError, "failed to decode resources response")
	}

	out := make([]domain.ResourceRecord, 0, len(raw))
	for i, fields := range raw {
		rec, err := c.decodeRow(fields)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDataSourceParseError,
				fmt.Sprintf("failed to decode resource row %d", i))
		}
		out = append(out, rec)
	}

	c.logger.Debug("listed resources", logging.Int("count", len(out)))
	return out, nil
}

func (c *Client) decodeRow(fields map[string]json.RawMessage) (domain.ResourceRecord, error) {
	var row resourceRow
	if v, ok := fields["title"]; ok {
		var title *string
		if err := json.Unmarshal(v, &title); err != nil {
			return domain.ResourceRecord{}, err
		}
		if title != nil {
			row.Title = *title
		}
	}
	if v, ok := fields["keywords"]; ok {
		if err := json.Unmarshal(v, &row.Keywords); err != nil {
			return domain.ResourceRecord{}, err
		}
	}
	if v, ok := fields["priority"]; ok {
		if err := json.Unmarshal(v, &row.Priority); err != nil {
			return domain.ResourceRecord{}, err
		}
	}

	rec := domain.ResourceRecord{
		Title:    row.Title,
		Keywords: row.Keywords,
		Priority: row.Priority,
	}
	if v, ok := fields[c.categoryTable]; ok {
		var ref *categoryRef
		if err := json.Unmarshal(v, &ref); err != nil {
			return domain.ResourceRecord{}, err
		}
		if ref != nil && ref.Name != nil {
			name := *ref.Name
			rec.Category = &name
		}
	}
	return rec, nil
}

// Ping issues a one-row read against the resource table.
func (c *Client) Ping(ctx context.Context) error {
	q := url.Values{}
	q.Set("select", "title")
	q.Set("limit", "1")
	_, err := c.get(ctx, c.resourceTable, q)
	return err
}

func (c *Client) get(ctx context.Context, table string, query url.Values) ([]byte, error) {
	fullURL := c.baseURL + "/" + url.PathEscape(table) + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDataSourceNotConfigured, "failed to create request")
	}
	requestID := uuid.New().String()
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Wrap(err, errors.ErrCodeTimeout, "postgrest request timed out")
		}
		return nil, errors.Wrap(err, errors.ErrCodeDataSourceUnavailable, "postgrest request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseBytes+1))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDataSourceUnavailable, "failed to read postgrest response")
	}
	c.logger.Debug("postgrest request",
		logging.String("table", table),
		logging.Int("status", resp.StatusCode),
		logging.Duration("duration", time.Since(start)),
		logging.String("request_id", requestID),
	)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, errors.New(errors.ErrCodeDataSourceAuthFailed,
			fmt.Sprintf("postgrest rejected credentials (HTTP %d)", resp.StatusCode))
	case resp.StatusCode >= 300:
		return nil, errors.New(errors.ErrCodeDataSourceUnavailable,
			fmt.Sprintf("postgrest returned HTTP %d", resp.StatusCode)).WithDetail(snippet(body))
	}
	if int64(len(body)) > c.maxResponseBytes {
		return nil, errors.New(errors.ErrCodeDataSourceParseError,
			fmt.Sprintf("postgrest response exceeds %d bytes", c.maxResponseBytes))
	}
	return body, nil
}

// snippet returns the start of an error body for diagnostics.
func snippet(body []byte) string {
	const max = 256
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
