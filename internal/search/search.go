// Package search proxies entity lookups to the Google Knowledge Graph Search
// API. Provider results are passed through unmodified.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultEndpoint = "https://kgsearch.googleapis.com/v1/entities:search"
	DefaultLimit    = 10
	MaxLimit        = 50

	defaultTimeout    = 10 * time.Second
	maxErrorBodyBytes = 4 << 10
)

// ErrNotConfigured is returned when no API key is set.
var ErrNotConfigured = errors.New("search provider is not configured")

// ErrEmptyQuery is returned for a blank query.
var ErrEmptyQuery = errors.New("query is required")

// ProviderError reports a failed or unparseable provider response.
type ProviderError struct {
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e == nil {
		return ""
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("search provider returned %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("search provider: %v", e.Err)
}

func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Options configures a Client.
type Options struct {
	Endpoint   string
	APIKey     string
	Limit      int
	HTTPClient *http.Client
}

// Client queries the entity-search provider.
type Client struct {
	endpoint string
	apiKey   string
	limit    int
	http     *http.Client
}

// Query is one entity search.
type Query struct {
	Text     string
	Type     string
	Limit    int
	Language string
}

// Response holds provider results verbatim.
type Response struct {
	Results []json.RawMessage `json:"results"`
}

type providerResponse struct {
	ItemListElement []json.RawMessage `json:"itemListElement"`
}

type providerError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// New constructs a Client.
func New(opts Options) *Client {
	c := &Client{
		endpoint: strings.TrimSpace(opts.Endpoint),
		apiKey:   strings.TrimSpace(opts.APIKey),
		limit:    opts.Limit,
		http:     opts.HTTPClient,
	}
	if c.endpoint == "" {
		c.endpoint = DefaultEndpoint
	}
	if c.limit <= 0 {
		c.limit = DefaultLimit
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: defaultTimeout}
	}
	return c
}

// Configured reports whether the client has an API key.
func (c *Client) Configured() bool {
	return c != nil && c.apiKey != ""
}

// Search runs q against the provider.
func (c *Client) Search(ctx context.Context, q Query) (Response, error) {
	empty := Response{Results: []json.RawMessage{}}
	if !c.Configured() {
		return empty, ErrNotConfigured
	}
	text := strings.TrimSpace(q.Text)
	if text == "" {
		return empty, ErrEmptyQuery
	}

	u, err := url.Parse(c.endpoint)
	if err != nil {
		return empty, fmt.Errorf("parse search endpoint: %w", err)
	}
	params := u.Query()
	params.Set("query", text)
	params.Set("key", c.apiKey)
	params.Set("limit", strconv.Itoa(c.effectiveLimit(q.Limit)))
	if typ := ResolveType(q.Type); typ != "" {
		params.Set("types", typ)
	}
	if lang := strings.TrimSpace(q.Language); lang != "" {
		params.Set("languages", lang)
	}
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return empty, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return empty, &ProviderError{Err: redactKey(err, c.apiKey)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return empty, &ProviderError{StatusCode: resp.StatusCode, Err: decodeProviderError(resp)}
	}

	var payload providerResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return empty, &ProviderError{StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	if payload.ItemListElement == nil {
		payload.ItemListElement = []json.RawMessage{}
	}
	return Response{Results: payload.ItemListElement}, nil
}

func (c *Client) effectiveLimit(requested int) int {
	limit := c.limit
	if requested > 0 {
		limit = requested
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return limit
}

func decodeProviderError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	var perr providerError
	if err := json.Unmarshal(body, &perr); err == nil && perr.Error.Message != "" {
		return errors.New(perr.Error.Message)
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return errors.New(msg)
}

// redactKey strips the API key from transport errors, which embed the URL.
func redactKey(err error, key string) error {
	if key == "" || !strings.Contains(err.Error(), key) {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), key, "REDACTED"))
}
