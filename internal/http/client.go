// Package http is the request executor shared by all resource clients. It
// attaches credentials, waits for rate limit quota, classifies each attempt
// and retries transient failures.
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fivetwenty-io/docean/internal/auth"
	"github.com/fivetwenty-io/docean/internal/constants"
	"github.com/fivetwenty-io/docean/internal/ratelimit"
	"github.com/fivetwenty-io/docean/pkg/docean"
)

// Client executes API requests against one endpoint.
type Client struct {
	baseURL      string
	tokenManager auth.TokenManager
	httpClient   docean.HTTPDoer
	limiter      *ratelimit.Limiter
	decoder      *Decoder
	logger       docean.Logger
	debug        bool
	userAgent    string
	timeout      time.Duration
	retryMax     int
	maxWait      time.Duration
	policy       docean.RateLimitPolicy
	observers    []ratelimit.Observer
	now          func() time.Time
}

// NewClient creates a client for baseURL. tokenManager may be nil for
// unauthenticated requests.
func NewClient(baseURL string, tokenManager auth.TokenManager, opts ...Option) *Client {
	client := &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		tokenManager: tokenManager,
		decoder:      NewDecoder(),
		userAgent:    constants.DefaultUserAgent,
		timeout:      constants.DefaultHTTPTimeout,
		retryMax:     constants.DefaultRetryMax,
		maxWait:      constants.DefaultRateLimitMaxWait,
		policy:       docean.PolicyBlock,
		now:          time.Now,
	}

	for _, opt := range opts {
		opt(client)
	}

	if client.httpClient == nil {
		client.httpClient = newTransport(client.timeout, client.logger)
	}

	if client.limiter == nil {
		limiterOpts := []ratelimit.Option{
			ratelimit.WithPolicy(client.policy),
			ratelimit.WithMaxWait(client.maxWait),
			ratelimit.WithClock(client.now),
			ratelimit.WithLogger(client.logger),
		}
		for _, observer := range client.observers {
			limiterOpts = append(limiterOpts, ratelimit.WithObserver(observer))
		}

		client.limiter = ratelimit.New(limiterOpts...)
	}

	return client
}

// RateLimit returns the last observed quota window.
func (c *Client) RateLimit() docean.RateLimit {
	return c.limiter.State()
}

// Limiter exposes the limiter so it can be shared with another client.
func (c *Client) Limiter() *ratelimit.Limiter {
	return c.limiter
}

// Do executes req until it succeeds, fails fatally or runs out of attempts.
// The last response received is returned alongside any error.
//
//nolint:funlen,cyclop // The attempt loop reads best as one function
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, docean.ErrNilRequest
	}

	requestID := uuid.NewString()

	body, err := encodeBody(req.Body)
	if err != nil {
		return nil, &docean.APIError{Kind: docean.KindValidation, RequestID: requestID, Err: err}
	}

	token, err := c.token(ctx)
	if err != nil {
		return nil, &docean.APIError{Kind: docean.KindAuth, RequestID: requestID, Err: err}
	}

	var last *Response

	for attempt := 0; ; attempt++ {
		err := c.limiter.Acquire(ctx)
		if err != nil {
			return last, c.acquireError(err, requestID)
		}

		resp, sendErr := c.send(ctx, req, body, token, requestID, attempt)

		var outcome Outcome
		if sendErr != nil {
			outcome = c.decoder.ClassifyTransport(ctx, sendErr, req.Idempotent, attempt)
		} else {
			last = resp
			outcome = c.decoder.Classify(resp, attempt)

			if outcome.Verdict == VerdictRetry && resp.StatusCode != http.StatusTooManyRequests && !req.Idempotent {
				outcome.Verdict = VerdictFatal
			}
		}

		if outcome.Err != nil && outcome.Err.RequestID == "" {
			outcome.Err.RequestID = requestID
		}

		switch outcome.Verdict {
		case VerdictSuccess:
			return resp, nil
		case VerdictFatal:
			return last, outcome.Err
		case VerdictRetry:
		}

		if attempt >= c.retryMax {
			return last, outcome.Err
		}

		if outcome.Err.Kind == docean.KindRateLimited && !c.mayWait(outcome.Delay) {
			return last, outcome.Err
		}

		if c.logger != nil {
			c.logger.Warn("Retrying request", map[string]interface{}{
				"request_id":  requestID,
				"method":      req.Method,
				"path":        req.Path,
				"attempt":     attempt + 1,
				"status_code": outcome.Err.StatusCode,
				"delay":       outcome.Delay.String(),
				"reason":      outcome.Err.Error(),
			})
		}

		err = sleep(ctx, outcome.Delay)
		if err != nil {
			return last, &docean.APIError{Kind: docean.KindTransport, RequestID: requestID, Err: err}
		}
	}
}

func (c *Client) mayWait(delay time.Duration) bool {
	if c.limiter.Policy() == docean.PolicyFailFast {
		return false
	}

	return c.maxWait < 0 || delay <= c.maxWait
}

func (c *Client) acquireError(err error, requestID string) error {
	if IsContextError(err) {
		return &docean.APIError{Kind: docean.KindTransport, RequestID: requestID, Err: err}
	}

	if apiErr, ok := err.(*docean.APIError); ok { //nolint:errorlint // Acquire returns the concrete type
		apiErr.RequestID = requestID
	}

	return err
}

//nolint:funlen // Request building and response reading belong together
func (c *Client) send(ctx context.Context, req *Request, body []byte, token, requestID string, attempt int) (*Response, error) {
	fullURL := c.baseURL + req.Path
	if query := EncodeQuery(req.Query); query != "" {
		fullURL += "?" + query
	}

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, fullURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Accept", constants.ContentTypeJSON)
	httpReq.Header.Set("User-Agent", c.userAgent)

	if body != nil {
		httpReq.Header.Set("Content-Type", constants.ContentTypeJSON)
	}

	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	if c.debug && c.logger != nil {
		c.logger.Debug("HTTP Request", map[string]interface{}{
			"request_id": requestID,
			"method":     req.Method,
			"url":        fullURL,
			"attempt":    attempt + 1,
		})
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	c.limiter.Record(httpResp.Header)

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       respBody,
		Attempts:   attempt + 1,
		RequestID:  requestID,
	}

	if c.debug && c.logger != nil {
		c.logger.Debug("HTTP Response", map[string]interface{}{
			"request_id":  requestID,
			"status_code": resp.StatusCode,
			"body_size":   len(respBody),
		})
	}

	return resp, nil
}

func (c *Client) token(ctx context.Context) (string, error) {
	if c.tokenManager == nil {
		return "", nil
	}

	token, err := c.tokenManager.GetToken(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get auth token: %w", err)
	}

	return token, nil
}

// NewRequest creates a request whose Idempotent flag follows the method.
func NewRequest(method, path string) *Request {
	return &Request{Method: method, Path: path, Idempotent: IdempotentMethod(method)}
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string, query []docean.QueryParam) (*Response, error) {
	req := NewRequest(http.MethodGet, path)
	req.Query = query

	return c.Do(ctx, req)
}

// Post performs a POST request. POSTs are not retried after server or transport errors.
func (c *Client) Post(ctx context.Context, path string, body interface{}) (*Response, error) {
	req := NewRequest(http.MethodPost, path)
	req.Body = body

	return c.Do(ctx, req)
}

// Put performs a PUT request.
func (c *Client) Put(ctx context.Context, path string, body interface{}) (*Response, error) {
	req := NewRequest(http.MethodPut, path)
	req.Body = body

	return c.Do(ctx, req)
}

// Patch performs a PATCH request.
func (c *Client) Patch(ctx context.Context, path string, body interface{}) (*Response, error) {
	req := NewRequest(http.MethodPatch, path)
	req.Body = body

	return c.Do(ctx, req)
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, NewRequest(http.MethodDelete, path))
}

// DecodeJSON unmarshals a success body, reporting failures as decode errors.
func DecodeJSON(resp *Response, target interface{}) error {
	err := json.Unmarshal(resp.Body, target)
	if err != nil {
		return &docean.APIError{
			Kind:       docean.KindDecode,
			StatusCode: resp.StatusCode,
			RawBody:    resp.Body,
			RequestID:  resp.RequestID,
			Err:        err,
		}
	}

	return nil
}

func encodeBody(body interface{}) ([]byte, error) {
	switch value := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return value, nil
	default:
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}

		return encoded, nil
	}
}

func sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
