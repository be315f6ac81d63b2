// Package author talks to the authoring environment's content API to answer
// "does this path exist, and in what state" for the resolution rules.
package author

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/eoinhurrell/cfpaths/internal/cache"
	"github.com/eoinhurrell/cfpaths/internal/index"
)

// Client is an author content API client
type Client struct {
	baseURL     string
	apiToken    string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	pageSize    int
	maxRetries  int
	baseDelay   time.Duration
	lookups     *cache.Cache[lookupResult]
	children    *cache.Cache[[]index.ContentPath]
}

type lookupResult struct {
	content *index.ContentPath
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithRateLimit sets the rate limit for API calls
func WithRateLimit(reqPerSec int) ClientOption {
	return func(c *Client) {
		if reqPerSec > 0 {
			c.rateLimiter = rate.NewLimiter(rate.Limit(reqPerSec), 1)
		}
	}
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithCache sizes the lookup caches
func WithCache(config cache.Config) ClientOption {
	return func(c *Client) {
		c.lookups = cache.New[lookupResult](config)
		c.children = cache.New[[]index.ContentPath](config)
	}
}

// WithPageSize sets how many children are requested per page
func WithPageSize(size int) ClientOption {
	return func(c *Client) {
		if size > 0 {
			c.pageSize = size
		}
	}
}

// WithRetry sets how often transient network failures are retried
func WithRetry(maxRetries int, baseDelay time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.baseDelay = baseDelay
	}
}

// NewClient creates a new author API client
func NewClient(baseURL, apiToken string, opts ...ClientOption) *Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	client := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiToken: apiToken,
		httpClient: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		rateLimiter: rate.NewLimiter(rate.Limit(10), 2),
		pageSize:    100,
		maxRetries:  3,
		baseDelay:   500 * time.Millisecond,
		lookups:     cache.New[lookupResult](cache.DefaultConfig()),
		children:    cache.New[[]index.ContentPath](cache.DefaultConfig()),
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// ErrNotFound is returned by checkResponse for 404 responses
var ErrNotFound = errors.New("content not found")

// contentResponse is a single content item from the API
type contentResponse struct {
	Path   string `json:"path"`
	Status string `json:"status"`
}

// childrenResponse is one page of a children listing
type childrenResponse struct {
	Items  []contentResponse `json:"items"`
	Cursor string            `json:"cursor"`
}

func (r contentResponse) toContentPath() index.ContentPath {
	return index.ContentPath{Path: r.Path, Status: index.ParseStatus(r.Status)}
}

// Lookup returns the content stored at path, or nil if there is none
func (c *Client) Lookup(ctx context.Context, path string) (*index.ContentPath, error) {
	result, err := c.lookups.GetOrSet(path, func() (lookupResult, error) {
		content, err := c.fetchContent(ctx, path)
		return lookupResult{content: content}, err
	})
	if err != nil {
		return nil, err
	}
	return result.content, nil
}

func (c *Client) fetchContent(ctx context.Context, path string) (*index.ContentPath, error) {
	query := url.Values{"path": {path}}
	var item contentResponse
	err := c.getJSON(ctx, "/api/content", query, &item)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if item.Path == "" {
		item.Path = path
	}
	content := item.toContentPath()
	return &content, nil
}

// Ping checks that the API is reachable and accepts the token. A missing
// DAM root is fine; only transport and authorization failures are errors.
func (c *Client) Ping(ctx context.Context) error {
	var item contentResponse
	err := c.getJSON(ctx, "/api/content", url.Values{"path": {"/content/dam"}}, &item)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}

// CacheStats reports how well the lookup cache is doing
func (c *Client) CacheStats() cache.Stats {
	return c.lookups.Stats()
}

// ListChildren returns every direct child of parent, following pagination
func (c *Client) ListChildren(ctx context.Context, parent string) ([]index.ContentPath, error) {
	return c.children.GetOrSet(parent, func() ([]index.ContentPath, error) {
		return c.fetchChildren(ctx, parent)
	})
}

func (c *Client) fetchChildren(ctx context.Context, parent string) ([]index.ContentPath, error) {
	var children []index.ContentPath
	cursor := ""
	for {
		query := url.Values{
			"path":  {parent},
			"limit": {strconv.Itoa(c.pageSize)},
		}
		if cursor != "" {
			query.Set("cursor", cursor)
		}

		var page childrenResponse
		err := c.getJSON(ctx, "/api/content/children", query, &page)
		if errors.Is(err, ErrNotFound) {
			return children, nil
		}
		if err != nil {
			return nil, err
		}

		for _, item := range page.Items {
			children = append(children, item.toContentPath())
		}
		if page.Cursor == "" || page.Cursor == cursor {
			return children, nil
		}
		cursor = page.Cursor
	}
}

func (c *Client) getJSON(ctx context.Context, endpoint string, query url.Values, out interface{}) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(httpReq)

	resp, err := c.doRequestWithRetry(ctx, httpReq)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := c.checkResponse(resp); err != nil {
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// isRetryableError checks if an error is worth retrying
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	errStr := err.Error()
	retryableErrors := []string{
		"connection refused",
		"connection reset",
		"no such host",
		"network is unreachable",
		"i/o timeout",
	}
	for _, retryable := range retryableErrors {
		if strings.Contains(errStr, retryable) {
			return true
		}
	}
	return false
}

// doRequestWithRetry executes a GET request, retrying transient failures
// with linear backoff
func (c *Client) doRequestWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, err
		}

		resp, err := c.httpClient.Do(req.Clone(ctx))
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !isRetryableError(err) || attempt == c.maxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt+1) * c.baseDelay):
		}
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", c.maxRetries+1, lastErr)
}

// setHeaders sets common headers for API requests
func (c *Client) setHeaders(req *http.Request) {
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}
	req.Header.Set("Accept", "application/json")
}

// checkResponse checks the HTTP response for errors
func (c *Client) checkResponse(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnauthorized:
		return fmt.Errorf("authentication error: invalid API token")
	case http.StatusForbidden:
		return fmt.Errorf("authorization error: insufficient permissions")
	case http.StatusTooManyRequests:
		return fmt.Errorf("rate limited: too many requests")
	default:
		if resp.StatusCode >= 500 {
			return fmt.Errorf("server error: status %d", resp.StatusCode)
		}
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
}
