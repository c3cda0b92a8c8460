// Package client provides a typed Go client for a FOLIO platform's Okapi REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/folio-labs/folioctl/internal/metrics"
)

// TokenProvider supplies the Okapi bearer token for each request. Token
// acquisition and storage live outside this package; Invalidate is called
// when the platform rejects the current token so the provider can discard it.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
	Invalidate()
}

// StaticToken is a TokenProvider for a fixed, externally-obtained token.
type StaticToken string

// Token returns the fixed token.
func (s StaticToken) Token(context.Context) (string, error) { return string(s), nil }

// Invalidate is a no-op for static tokens.
func (s StaticToken) Invalidate() {}

// Client is the top-level Okapi API client. Every record family the tool
// touches gets its own service struct sharing this client.
type Client struct {
	baseURL    string
	tenant     string
	tokens     TokenProvider
	httpClient *http.Client
	maxRetries uint64

	Items     *ItemService
	Instances *InstanceService
	Holdings  *HoldingsService
	Loans     *LoanService
	Users     *UserService
	Source    *SourceRecordService
	Types     *TypeService
}

// Option configures a Client.
type Option func(*Client)

// WithTokenProvider sets the token provider used for authentication.
func WithTokenProvider(tp TokenProvider) Option {
	return func(c *Client) { c.tokens = tp }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithMaxRetries sets how many times idempotent reads are retried on
// 429/5xx responses. Zero disables retrying.
func WithMaxRetries(n uint64) Option {
	return func(c *Client) { c.maxRetries = n }
}

// New creates an Okapi client for the given base URL and tenant.
func New(baseURL, tenant string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		tenant:     tenant,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		maxRetries: 3,
	}
	for _, o := range opts {
		o(c)
	}
	c.Items = &ItemService{c: c}
	c.Instances = &InstanceService{c: c}
	c.Holdings = &HoldingsService{c: c}
	c.Loans = &LoanService{c: c}
	c.Users = &UserService{c: c}
	c.Source = &SourceRecordService{c: c}
	c.Types = newTypeService(c)
	return c
}

// CheckCredentials verifies that the configured URL, tenant and token are
// accepted by the platform, using a zero-cost reference-data probe.
func (c *Client) CheckCredentials(ctx context.Context) error {
	return c.get(ctx, "/instance-statuses", url.Values{"limit": {"0"}}, nil)
}

// do executes an HTTP request with Okapi headers and decodes the JSON
// response. GETs are retried on 429 and 5xx with exponential backoff;
// mutating methods are issued exactly once.
func (c *Client) do(ctx context.Context, method, path string, body any, result any) error {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		payload = data
	}

	attempt := func(ctx context.Context) error {
		err := c.doOnce(ctx, method, path, payload, result)
		if err != nil && method == http.MethodGet && isRetryable(err) {
			return retry.RetryableError(err)
		}
		return err
	}

	if method != http.MethodGet || c.maxRetries == 0 {
		return attempt(ctx)
	}

	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(500*time.Millisecond))
	return retry.Do(ctx, backoff, attempt)
}

func (c *Client) doOnce(ctx context.Context, method, path string, payload []byte, result any) error {
	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Okapi-Tenant", c.tenant)
	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return fmt.Errorf("obtain token: %w", err)
		}
		req.Header.Set("X-Okapi-Token", token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.APIRequests.WithLabelValues(method, "error").Inc()
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	metrics.APIRequests.WithLabelValues(method, fmt.Sprint(resp.StatusCode)).Inc()
	metrics.APIRequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		if c.tokens != nil {
			c.tokens.Invalidate()
		}
		return fmt.Errorf("%w: %s", ErrAuthExpired, firstLine(respBody))
	}
	if resp.StatusCode >= 400 {
		return parseAPIError(resp.StatusCode, respBody)
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// get is a convenience wrapper for GET requests with query parameters.
func (c *Client) get(ctx context.Context, path string, params url.Values, result any) error {
	if len(params) > 0 {
		path += "?" + params.Encode()
	}
	return c.do(ctx, http.MethodGet, path, nil, result)
}

// put issues a PUT with the given body.
func (c *Client) put(ctx context.Context, path string, body any) error {
	return c.do(ctx, http.MethodPut, path, body, nil)
}

// post issues a POST and decodes the created record.
func (c *Client) post(ctx context.Context, path string, body any, result any) error {
	return c.do(ctx, http.MethodPost, path, body, result)
}

// del issues a DELETE.
func (c *Client) del(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// getBody fetches a single record body by path, mapping 404 to ErrNotFound.
func (c *Client) getBody(ctx context.Context, path string) (Body, error) {
	var body Body
	if err := c.get(ctx, path, nil, &body); err != nil {
		if IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, err
	}
	return body, nil
}

// searchList runs a CQL query against a list endpoint and unwraps the
// envelope under the given key.
func (c *Client) searchList(ctx context.Context, path, key, query string, limit int) ([]Body, error) {
	params := url.Values{"query": {query}, "limit": {fmt.Sprint(limit)}}
	var envelope map[string]json.RawMessage
	if err := c.get(ctx, path, params, &envelope); err != nil {
		return nil, err
	}
	return unwrapList(envelope, key)
}

// count runs a limit=0 query and returns the platform's total record count.
func (c *Client) count(ctx context.Context, path, query string) (int, error) {
	params := url.Values{"query": {query}, "limit": {"0"}}
	var envelope struct {
		TotalRecords int `json:"totalRecords"`
	}
	if err := c.get(ctx, path, params, &envelope); err != nil {
		return 0, err
	}
	return envelope.TotalRecords, nil
}

// exists probes a get-by-id endpoint, mapping 404 to a negative result.
func (c *Client) exists(ctx context.Context, path string) (bool, error) {
	err := c.get(ctx, path, nil, nil)
	if err == nil {
		return true, nil
	}
	if IsNotFound(err) {
		return false, nil
	}
	return false, err
}

func firstLine(b []byte) string {
	for i, c := range b {
		if c == '\n' {
			return string(b[:i])
		}
	}
	return string(b)
}
