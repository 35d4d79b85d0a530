// Package remote implements the HTTP client for the Verdant server.
// It is the only package that talks to the network; everything above it
// sees entity shapes and the transient/permanent error taxonomy.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/verdantlabs/verdant/internal/loggy"
	"github.com/verdantlabs/verdant/internal/ulid"
)

// TokenSource supplies the bearer token for authenticated requests.
// Token refresh and the identity-provider protocol live behind this
// boundary; the client only consumes the current token.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticTokenSource returns a fixed token
type StaticTokenSource string

// Token implements TokenSource
func (s StaticTokenSource) Token(context.Context) (string, error) {
	return string(s), nil
}

// Client handles HTTP communication with the Verdant server
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
	logger     *loggy.Logger
	maxRetries uint64
}

// NewClient creates a new HTTP client for server communication
func NewClient(baseURL string, tokens TokenSource, timeout time.Duration, maxRetries int, logger *loggy.Logger) *Client {
	// Create HTTP client with custom transport for connection pooling
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 100,
		IdleConnTimeout:     90 * time.Second,
	}

	httpClient := &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}

	if maxRetries < 0 {
		maxRetries = 0
	}

	return &Client{
		baseURL:    baseURL,
		tokens:     tokens,
		httpClient: httpClient,
		logger:     logger,
		maxRetries: uint64(maxRetries),
	}
}

// SetTokenSource replaces the token source, e.g. after account linking
func (c *Client) SetTokenSource(tokens TokenSource) {
	c.tokens = tokens
}

// Health checks whether the server is reachable. Used by the network
// monitor's connectivity prober.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/api/health", c.baseURL), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return APIError{StatusCode: resp.StatusCode, Message: "health check failed"}
	}

	return nil
}

// VerifyToken verifies that the current token is accepted by the server
func (c *Client) VerifyToken(ctx context.Context) (bool, error) {
	err := c.do(ctx, http.MethodGet, "/api/auth/verify", "", nil, nil)
	if err == nil {
		return true, nil
	}

	var apiErr APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
		return false, nil
	}

	return false, err
}

// get performs a GET with backoff retries on transient failures
func (c *Client) get(ctx context.Context, path string, out any) error {
	op := func() error {
		err := c.do(ctx, http.MethodGet, path, "", nil, out)
		if err != nil && !IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries), ctx)
	return backoff.Retry(op, policy)
}

// do sends a single request. Creates carry an idempotency key so the
// server can deduplicate retried submissions.
func (c *Client) do(ctx context.Context, method, path, idempotencyKey string, body, out any) error {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("getting token: %w", err)
	}
	req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", token))
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("X-Request-ID", ulid.RequestID())
	if idempotencyKey != "" {
		req.Header.Add("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr APIError
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil {
			return APIError{StatusCode: resp.StatusCode, Message: resp.Status}
		}
		apiErr.StatusCode = resp.StatusCode
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	return nil
}
