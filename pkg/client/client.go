// Package client is a typed HTTP client for the entrydex REST API.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// RetryBaseDelay is the first backoff after a 429 response. It doubles on
// each further attempt.
var RetryBaseDelay = time.Second

const (
	defaultTimeout    = 60 * time.Second
	defaultMaxRetries = 3
	maxErrorBody      = 64 << 10
)

// Client talks to an entrydex server.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	maxRetries int
}

// Option configures the Client.
type Option func(*Client)

// WithToken sends an API key as a bearer token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the default http.Client (60s timeout).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithMaxRetries sets how often a 429 response is retried. Zero disables
// retries.
func WithMaxRetries(n int) Option {
	return func(c *Client) { c.maxRetries = n }
}

// New creates a Client for the server at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("entrydex: invalid base URL %q", baseURL)
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		maxRetries: defaultMaxRetries,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// List fetches one JSON page of a view.
func (c *Client) List(ctx context.Context, viewID string, opts ListOptions) (*Page, error) {
	resp, err := c.get(ctx, viewPath(viewID, "entries."+string(FormatJSON)), opts.query(), opts.Password, opts.Embedded)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var page Page
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode listing: %w", err)
	}
	return &page, nil
}

// Download streams a listing in the given format. The caller must close
// the returned body. For CSV and TSV, set opts.Nonce (see ExportNonce) to
// receive every matching entry instead of one page.
func (c *Client) Download(ctx context.Context, viewID string, f Format, opts ListOptions) (io.ReadCloser, Meta, error) {
	resp, err := c.get(ctx, viewPath(viewID, "entries."+string(f)), opts.query(), opts.Password, opts.Embedded)
	if err != nil {
		return nil, Meta{}, err
	}
	return resp.Body, metaFromHeader(resp.Header), nil
}

// Entry fetches one entry as JSON.
func (c *Client) Entry(ctx context.Context, viewID string, entryID int64, opts ListOptions) (map[string]any, error) {
	p := viewPath(viewID, "entries", strconv.FormatInt(entryID, 10)+"."+string(FormatJSON))
	resp, err := c.get(ctx, p, nil, opts.Password, opts.Embedded)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var page Page
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode entry: %w", err)
	}
	if len(page.Entries) == 0 {
		return nil, &APIError{StatusCode: http.StatusNotFound, Code: "not_found", Message: "empty entry response"}
	}
	return page.Entries[0], nil
}

// SearchFields fetches the search bar of a view with params bound in.
func (c *Client) SearchFields(ctx context.Context, viewID string, params url.Values) (*SearchFields, error) {
	var out SearchFields
	if err := c.getJSON(ctx, viewPath(viewID, "search"), params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExportNonce requests a full-export token for a view.
func (c *Client) ExportNonce(ctx context.Context, viewID string) (*Nonce, error) {
	var out Nonce
	if err := c.getJSON(ctx, viewPath(viewID, "export-nonce"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health fetches the health report. A degraded or failing service answers
// 503 with the report in the body, which is returned alongside the error.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var out Health
	err := c.getJSON(ctx, "/health", nil, &out)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusServiceUnavailable {
		return &out, err
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) getJSON(ctx context.Context, p string, q url.Values, out any) error {
	resp, err := c.get(ctx, p, q, "", false)
	if resp == nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if derr := json.NewDecoder(resp.Body).Decode(out); derr != nil && err == nil {
		return fmt.Errorf("decode %s: %w", p, derr)
	}
	return err
}

// get issues a GET and returns the response on 2xx. A 503 is returned
// together with an *APIError so Health can still read the body.
func (c *Client) get(ctx context.Context, p string, q url.Values, password string, embedded bool) (*http.Response, error) {
	u := c.baseURL + p
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if password != "" {
		req.Header.Set("X-View-Password", password)
	}
	if embedded {
		req.Header.Set("X-Entrydex-Embed", "1")
	}

	resp, err := c.doWithRetry(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", p, err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	if resp.StatusCode == http.StatusServiceUnavailable && p == "/health" {
		return resp, &APIError{StatusCode: resp.StatusCode, Code: "unavailable"}
	}
	defer func() { _ = resp.Body.Close() }()
	return nil, decodeError(resp)
}

// doWithRetry retries 429 responses with exponential backoff.
func (c *Client) doWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		resp, err := c.httpClient.Do(req.Clone(ctx))
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusTooManyRequests || attempt >= c.maxRetries {
			return resp, nil
		}

		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()

		backoff := time.Duration(math.Pow(2, float64(attempt))) * RetryBaseDelay
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err == nil && len(body) > 0 {
		if jerr := json.Unmarshal(body, apiErr); jerr != nil {
			apiErr.Message = strings.TrimSpace(string(body))
		}
	}
	return apiErr
}

func metaFromHeader(h http.Header) Meta {
	m := Meta{ContentType: h.Get("Content-Type")}
	m.Items, _ = strconv.Atoi(h.Get("X-Item-Count"))
	m.Total, _ = strconv.Atoi(h.Get("X-Total-Count"))
	if cd := h.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			m.Filename = params["filename"]
		}
	}
	return m
}

func viewPath(viewID string, parts ...string) string {
	segs := append([]string{"", "views", url.PathEscape(viewID)}, parts...)
	return strings.Join(segs, "/")
}
