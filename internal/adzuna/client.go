// Package adzuna fetches job listings from the Adzuna public search API.
package adzuna

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"jobmate/feed-service/internal/model"
)

const (
	DefaultBaseURL  = "https://api.adzuna.com/v1/api/jobs"
	DefaultPageSize = 50
	DefaultMaxPages = 3 // max 150 results per search
	httpTimeout     = 15 * time.Second
	maxErrBody      = 512
)

// Client fetches listings from Adzuna.
// If AppID or AppKey is empty, Search and Fetch return (nil, nil) and log a
// warning, so a missing key degrades to empty feeds instead of failures.
type Client struct {
	AppID    string
	AppKey   string
	Country  string // "de", "gb", "fr", …
	BaseURL  string
	PageSize int
	MaxPages int

	client   *http.Client
	backoffs []time.Duration
}

// Option customises a Client.
type Option func(*Client)

// WithBaseURL points the client at another API root.
func WithBaseURL(u string) Option { return func(c *Client) { c.BaseURL = strings.TrimRight(u, "/") } }

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.client = hc } }

// WithBackoffs replaces the retry schedule.
func WithBackoffs(b ...time.Duration) Option { return func(c *Client) { c.backoffs = b } }

// WithMaxPages caps how many pages Fetch reads.
func WithMaxPages(n int) Option { return func(c *Client) { c.MaxPages = n } }

// NewClient constructs a client with a shared HTTP client.
func NewClient(appID, appKey, country string, opts ...Option) *Client {
	c := &Client{
		AppID:    appID,
		AppKey:   appKey,
		Country:  country,
		BaseURL:  DefaultBaseURL,
		PageSize: DefaultPageSize,
		MaxPages: DefaultMaxPages,
		client:   &http.Client{Timeout: httpTimeout},
		backoffs: DefaultBackoffs,
	}
	for _, o := range opts {
		o(c)
	}
	if len(c.backoffs) == 0 {
		c.backoffs = []time.Duration{0}
	}
	return c
}

// searchResponse mirrors the top-level Adzuna JSON response.
type searchResponse struct {
	Results []model.RawListing `json:"results"`
	Count   int                `json:"count"`
}

func (c *Client) configured() bool {
	if c.AppID == "" || c.AppKey == "" {
		slog.Warn("ADZUNA_APP_ID / ADZUNA_APP_KEY not set, skipping search", "component", "adzuna")
		return false
	}
	return true
}

// Fetch reads up to MaxPages pages for params, stopping early on a short
// page. A failure after the first page returns what was read so far along
// with the error.
func (c *Client) Fetch(ctx context.Context, params model.SearchParams) ([]model.RawListing, error) {
	if !c.configured() {
		return nil, nil
	}

	q := QueryFromParams(params)
	var results []model.RawListing
	for page := 1; page <= c.MaxPages; page++ {
		q.Page = page
		batch, err := c.search(ctx, q)
		if err != nil {
			return results, fmt.Errorf("page %d: %w", page, err)
		}
		results = append(results, batch...)
		if len(batch) < c.PageSize {
			break // Last page
		}
	}
	return results, nil
}

// Search fetches a single page. Transient failures (network errors, 429
// and 5xx replies) are retried with backoff.
func (c *Client) Search(ctx context.Context, q Query) ([]model.RawListing, error) {
	if !c.configured() {
		return nil, nil
	}
	return c.search(ctx, q)
}

func (c *Client) search(ctx context.Context, q Query) ([]model.RawListing, error) {
	reqURL := c.endpoint(q)
	return retryDo(ctx, c.backoffs, func() ([]model.RawListing, error) {
		return c.do(ctx, reqURL)
	})
}

func (c *Client) endpoint(q Query) string {
	page := q.Page
	if page < 1 {
		page = 1
	}
	v := q.values()
	v.Set("app_id", c.AppID)
	v.Set("app_key", c.AppKey)
	v.Set("results_per_page", strconv.Itoa(c.PageSize))
	v.Set("content-type", "application/json")
	return fmt.Sprintf("%s/%s/search/%d?%s", c.BaseURL, url.PathEscape(c.Country), page, v.Encode())
}

func (c *Client) do(ctx context.Context, reqURL string) ([]model.RawListing, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http GET: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if len(body) > maxErrBody {
			body = body[:maxErrBody]
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var apiResp searchResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}
	if apiResp.Results == nil {
		return []model.RawListing{}, nil
	}
	return apiResp.Results, nil
}
