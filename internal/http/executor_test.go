package http_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/docean/internal/auth"
	dohttp "github.com/fivetwenty-io/docean/internal/http"
	"github.com/fivetwenty-io/docean/internal/ratelimit"
	"github.com/fivetwenty-io/docean/pkg/docean"
)

var errConnectionReset = errors.New("connection reset by peer")

// failingDoer fails every attempt without a response.
type failingDoer struct {
	calls atomic.Int32
}

func (d *failingDoer) Do(*http.Request) (*http.Response, error) {
	d.calls.Add(1)

	return nil, errConnectionReset
}

func fastRetries() dohttp.Option {
	return dohttp.WithRetryConfig(3, time.Millisecond, 5*time.Millisecond)
}

func TestExecutor_WaitsForRateLimitReset(t *testing.T) {
	t.Parallel()

	var (
		attempts atomic.Int32
		firstAt  atomic.Int64
		secondAt atomic.Int64
	)

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		now := time.Now()
		reset := now.Add(3 * time.Second)

		writer.Header().Set("RateLimit-Limit", "5000")
		writer.Header().Set("RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))

		if attempts.Add(1) == 1 {
			firstAt.Store(now.UnixNano())
			writer.Header().Set("RateLimit-Remaining", "0")
			writer.WriteHeader(http.StatusTooManyRequests)
			_, _ = fmt.Fprint(writer, `{"id":"too_many_requests","message":"API Rate limit exceeded."}`)

			return
		}

		secondAt.Store(now.UnixNano())
		writer.Header().Set("RateLimit-Remaining", "4999")
		_, _ = fmt.Fprint(writer, `{"droplets":[]}`)
	}))
	defer server.Close()

	client := dohttp.NewClient(server.URL, auth.NewStaticTokenManager("token"), fastRetries())

	resp, err := client.Get(context.Background(), "/v2/droplets", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, resp.Attempts)
	assert.Equal(t, int32(2), attempts.Load())

	gap := time.Duration(secondAt.Load() - firstAt.Load())
	assert.GreaterOrEqual(t, gap, 2*time.Second)
	assert.Equal(t, 4999, client.RateLimit().Remaining)
}

func TestExecutor_RateLimitBeyondMaxWait(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int32

	reset := time.Now().Add(time.Hour)

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		attempts.Add(1)
		writer.Header().Set("RateLimit-Limit", "5000")
		writer.Header().Set("RateLimit-Remaining", "0")
		writer.Header().Set("RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
		writer.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := dohttp.NewClient(server.URL, nil, fastRetries(), dohttp.WithRateLimitMaxWait(time.Second))

	_, err := client.Get(context.Background(), "/v2/droplets", nil)
	require.Error(t, err)
	assert.True(t, docean.IsRateLimited(err))
	assert.Equal(t, int32(1), attempts.Load())

	apiErr := &docean.APIError{}
	require.ErrorAs(t, err, &apiErr)
	assert.False(t, apiErr.Cached)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.WithinDuration(t, reset, apiErr.ResetAt, 2*time.Second)

	// The exhausted window is now known, so the next call fails without a request.
	_, err = client.Get(context.Background(), "/v2/droplets", nil)
	require.Error(t, err)
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.Cached)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestExecutor_FailFastPolicyDoesNotRetry429(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		attempts.Add(1)
		writer.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := dohttp.NewClient(server.URL, nil, fastRetries(),
		dohttp.WithRateLimitFloor(time.Millisecond),
		dohttp.WithRateLimitPolicy(docean.PolicyFailFast))

	_, err := client.Get(context.Background(), "/v2/droplets", nil)
	require.Error(t, err)
	assert.True(t, docean.IsRateLimited(err))
	assert.Equal(t, int32(1), attempts.Load())
}

func TestExecutor_FatalStatusesAreNotRetried(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status int
		kind   docean.ErrorKind
	}{
		{http.StatusUnauthorized, docean.KindAuth},
		{http.StatusForbidden, docean.KindAuth},
		{http.StatusNotFound, docean.KindNotFound},
		{http.StatusUnprocessableEntity, docean.KindValidation},
		{http.StatusNotModified, docean.KindServer},
	}

	for _, testCase := range tests {
		t.Run(strconv.Itoa(testCase.status), func(t *testing.T) {
			t.Parallel()

			var attempts atomic.Int32

			server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
				attempts.Add(1)
				writer.WriteHeader(testCase.status)
			}))
			defer server.Close()

			client := dohttp.NewClient(server.URL, nil, fastRetries())

			resp, err := client.Get(context.Background(), "/v2/droplets/1", nil)
			require.Error(t, err)
			assert.Equal(t, testCase.kind, docean.KindOf(err))
			assert.Equal(t, testCase.status, resp.StatusCode)
			assert.Equal(t, int32(1), attempts.Load())
		})
	}
}

func TestExecutor_ServerErrorsRespectIdempotency(t *testing.T) {
	t.Parallel()

	t.Run("non-idempotent request fails on first 5xx", func(t *testing.T) {
		t.Parallel()

		var attempts atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			attempts.Add(1)
			writer.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		client := dohttp.NewClient(server.URL, nil, fastRetries())

		_, err := client.Post(context.Background(), "/v2/droplets", map[string]string{"name": "example"})
		require.Error(t, err)
		assert.Equal(t, docean.KindServer, docean.KindOf(err))
		assert.Equal(t, int32(1), attempts.Load())
	})

	t.Run("idempotent request stops at the retry ceiling", func(t *testing.T) {
		t.Parallel()

		var attempts atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			attempts.Add(1)
			writer.WriteHeader(http.StatusServiceUnavailable)
			_, _ = fmt.Fprint(writer, `{"id":"service_unavailable","message":"try again"}`)
		}))
		defer server.Close()

		client := dohttp.NewClient(server.URL, nil, fastRetries())

		resp, err := client.Get(context.Background(), "/v2/droplets", nil)
		require.Error(t, err)
		assert.True(t, docean.IsRetryable(err))
		assert.Equal(t, int32(4), attempts.Load())
		assert.Equal(t, 4, resp.Attempts)

		apiErr := &docean.APIError{}
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "service_unavailable", apiErr.ID)
	})
}

func TestExecutor_TransportFailures(t *testing.T) {
	t.Parallel()

	t.Run("non-idempotent request is sent once", func(t *testing.T) {
		t.Parallel()

		doer := &failingDoer{}
		client := dohttp.NewClient("https://api.example.test", nil, fastRetries(), dohttp.WithHTTPClient(doer))

		_, err := client.Post(context.Background(), "/v2/droplets", map[string]string{"name": "example"})
		require.Error(t, err)
		assert.Equal(t, docean.KindTransport, docean.KindOf(err))
		assert.ErrorIs(t, err, errConnectionReset)
		assert.Equal(t, int32(1), doer.calls.Load())
	})

	t.Run("idempotent request is retried to the ceiling", func(t *testing.T) {
		t.Parallel()

		doer := &failingDoer{}
		client := dohttp.NewClient("https://api.example.test", nil, fastRetries(), dohttp.WithHTTPClient(doer))

		_, err := client.Delete(context.Background(), "/v2/droplets/1")
		require.Error(t, err)
		assert.ErrorIs(t, err, docean.ErrTransport)
		assert.Equal(t, int32(4), doer.calls.Load())
	})

	t.Run("explicit flag overrides the method", func(t *testing.T) {
		t.Parallel()

		doer := &failingDoer{}
		client := dohttp.NewClient("https://api.example.test", nil, fastRetries(), dohttp.WithHTTPClient(doer))

		req := dohttp.NewRequest(http.MethodPost, "/v2/droplets/1/actions")
		req.Idempotent = true

		_, err := client.Do(context.Background(), req)
		require.Error(t, err)
		assert.Equal(t, int32(4), doer.calls.Load())
	})
}

func TestExecutor_CancellationIsFatal(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := dohttp.NewClient(server.URL, nil, dohttp.WithRetryConfig(10, time.Second, time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := client.Get(ctx, "/v2/droplets", nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, docean.KindTransport, docean.KindOf(err))
	assert.Less(t, time.Since(start), time.Second)
}

func TestExecutor_TokenErrorIsFatal(t *testing.T) {
	t.Parallel()

	doer := &failingDoer{}
	tokens := auth.TokenFunc(func(context.Context) (string, error) {
		return "", auth.ErrNoToken
	})
	client := dohttp.NewClient("https://api.example.test", tokens, dohttp.WithHTTPClient(doer))

	_, err := client.Get(context.Background(), "/v2/account", nil)
	require.Error(t, err)
	assert.True(t, docean.IsUnauthorized(err))
	assert.ErrorIs(t, err, auth.ErrNoToken)
	assert.Equal(t, int32(0), doer.calls.Load())
}

func TestExecutor_SharedLimiterAndObserver(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("RateLimit-Limit", "250")
		writer.Header().Set("RateLimit-Remaining", "249")
		writer.Header().Set("RateLimit-Reset", strconv.FormatInt(time.Now().Add(time.Minute).Unix(), 10))
		writer.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	var observed atomic.Int32

	limiter := ratelimit.New(ratelimit.WithObserver(func(ratelimit.State) { observed.Add(1) }))
	first := dohttp.NewClient(server.URL, nil, dohttp.WithRateLimiter(limiter))
	second := dohttp.NewClient(server.URL, nil, dohttp.WithRateLimiter(limiter))

	_, err := first.Delete(context.Background(), "/v2/domains/example.com")
	require.NoError(t, err)

	assert.Equal(t, 249, second.RateLimit().Remaining)
	assert.Same(t, first.Limiter(), second.Limiter())
	assert.Equal(t, int32(1), observed.Load())
}

func TestExecutor_LogsWaitBeforeSend(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		reset := time.Now().Add(2 * time.Second)
		if attempts.Add(1) > 1 {
			reset = time.Now().Add(time.Hour)
		}

		writer.Header().Set("RateLimit-Limit", "250")
		writer.Header().Set("RateLimit-Remaining", "0")
		writer.Header().Set("RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
		writer.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	logger := &MockLogger{}
	client := dohttp.NewClient(server.URL, auth.NewStaticTokenManager("token"), dohttp.WithLogger(logger), fastRetries())

	_, err := client.Delete(context.Background(), "/v2/droplets/1")
	require.NoError(t, err)

	_, err = client.Delete(context.Background(), "/v2/droplets/2")
	require.NoError(t, err)

	logger.mu.Lock()
	defer logger.mu.Unlock()

	var waits []map[string]interface{}

	for _, entry := range logger.logs {
		if entry["msg"] == "Rate limit quota exhausted, waiting for reset" {
			fields, ok := entry["fields"].(map[string]interface{})
			require.True(t, ok)

			waits = append(waits, fields)
		}
	}

	require.Len(t, waits, 1)
	assert.Contains(t, waits[0], "wait")
	assert.Contains(t, waits[0], "reset_at")
	assert.Equal(t, int32(2), attempts.Load())
}
