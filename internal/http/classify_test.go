package http_test

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dohttp "github.com/fivetwenty-io/docean/internal/http"
	"github.com/fivetwenty-io/docean/pkg/docean"
)

var errDial = errors.New("dial tcp: connection refused")

func newTestDecoder(now time.Time) *dohttp.Decoder {
	decoder := dohttp.NewDecoder()
	decoder.Now = func() time.Time { return now }

	return decoder
}

//nolint:funlen // Table covers every status class
func TestDecoder_Classify(t *testing.T) {
	t.Parallel()

	now := time.Unix(1700000000, 0)

	tests := []struct {
		name        string
		status      int
		header      http.Header
		body        string
		wantVerdict dohttp.Verdict
		wantKind    docean.ErrorKind
		wantDelay   time.Duration
	}{
		{name: "ok", status: 200, wantVerdict: dohttp.VerdictSuccess},
		{name: "created", status: 201, wantVerdict: dohttp.VerdictSuccess},
		{name: "no content", status: 204, wantVerdict: dohttp.VerdictSuccess},
		{name: "unauthorized", status: 401, wantVerdict: dohttp.VerdictFatal, wantKind: docean.KindAuth},
		{name: "forbidden", status: 403, wantVerdict: dohttp.VerdictFatal, wantKind: docean.KindAuth},
		{name: "not found", status: 404, wantVerdict: dohttp.VerdictFatal, wantKind: docean.KindNotFound},
		{name: "unprocessable", status: 422, wantVerdict: dohttp.VerdictFatal, wantKind: docean.KindValidation},
		{name: "conflict", status: 409, wantVerdict: dohttp.VerdictFatal, wantKind: docean.KindValidation},
		{
			name:        "rate limited with reset",
			status:      429,
			header:      http.Header{"Ratelimit-Reset": {strconv.FormatInt(now.Add(42*time.Second).Unix(), 10)}},
			wantVerdict: dohttp.VerdictRetry,
			wantKind:    docean.KindRateLimited,
			wantDelay:   42 * time.Second,
		},
		{
			name:        "rate limited with past reset uses floor",
			status:      429,
			header:      http.Header{"Ratelimit-Reset": {strconv.FormatInt(now.Add(-time.Minute).Unix(), 10)}},
			wantVerdict: dohttp.VerdictRetry,
			wantKind:    docean.KindRateLimited,
			wantDelay:   time.Second,
		},
		{
			name:        "rate limited with retry-after",
			status:      429,
			header:      http.Header{"Retry-After": {"7"}},
			wantVerdict: dohttp.VerdictRetry,
			wantKind:    docean.KindRateLimited,
			wantDelay:   7 * time.Second,
		},
		{
			name:        "rate limited with malformed reset falls back to retry-after",
			status:      429,
			header:      http.Header{"Ratelimit-Reset": {"soon"}, "Retry-After": {"9"}},
			wantVerdict: dohttp.VerdictRetry,
			wantKind:    docean.KindRateLimited,
			wantDelay:   9 * time.Second,
		},
		{
			name:        "rate limited without hints",
			status:      429,
			wantVerdict: dohttp.VerdictRetry,
			wantKind:    docean.KindRateLimited,
			wantDelay:   time.Second,
		},
		{
			name:        "server error",
			status:      500,
			wantVerdict: dohttp.VerdictRetry,
			wantKind:    docean.KindServer,
			wantDelay:   500 * time.Millisecond,
		},
		{name: "redirect", status: 302, wantVerdict: dohttp.VerdictFatal, wantKind: docean.KindServer},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			resp := &dohttp.Response{
				StatusCode: testCase.status,
				Headers:    testCase.header,
				Body:       []byte(testCase.body),
				RequestID:  "req-1",
			}

			outcome := newTestDecoder(now).Classify(resp, 0)
			assert.Equal(t, testCase.wantVerdict, outcome.Verdict)
			assert.Equal(t, testCase.wantDelay, outcome.Delay)

			if testCase.wantVerdict == dohttp.VerdictSuccess {
				assert.Nil(t, outcome.Err)

				return
			}

			require.NotNil(t, outcome.Err)
			assert.Equal(t, testCase.wantKind, outcome.Err.Kind)
			assert.Equal(t, testCase.status, outcome.Err.StatusCode)
			assert.Equal(t, "req-1", outcome.Err.RequestID)
		})
	}
}

func TestDecoder_ClassifyParsesErrorBody(t *testing.T) {
	t.Parallel()

	resp := &dohttp.Response{
		StatusCode: http.StatusNotFound,
		Body:       []byte(`{"id":"not_found","message":"The resource you were accessing could not be found.","request_id":"c1a0bf6e"}`),
		RequestID:  "local",
	}

	outcome := dohttp.NewDecoder().Classify(resp, 0)
	require.NotNil(t, outcome.Err)
	assert.Equal(t, "not_found", outcome.Err.ID)
	assert.Equal(t, "The resource you were accessing could not be found.", outcome.Err.Message)
	assert.Equal(t, "c1a0bf6e", outcome.Err.RequestID)
	assert.Equal(t, resp.Body, outcome.Err.RawBody)
	assert.Equal(t, "not_found: The resource you were accessing could not be found. (status: 404)", outcome.Err.Error())
}

func TestDecoder_ClassifyKeepsUnparseableBody(t *testing.T) {
	t.Parallel()

	resp := &dohttp.Response{StatusCode: http.StatusBadGateway, Body: []byte("<html>bad gateway</html>")}

	outcome := dohttp.NewDecoder().Classify(resp, 0)
	require.NotNil(t, outcome.Err)
	assert.Empty(t, outcome.Err.ID)
	assert.Equal(t, "<html>bad gateway</html>", string(outcome.Err.RawBody))
}

func TestDecoder_ServerBackoffGrowsAndCaps(t *testing.T) {
	t.Parallel()

	decoder := dohttp.NewDecoder()
	decoder.WaitMin = 100 * time.Millisecond
	decoder.WaitMax = time.Second

	resp := &dohttp.Response{StatusCode: http.StatusServiceUnavailable}

	assert.Equal(t, 100*time.Millisecond, decoder.Classify(resp, 0).Delay)
	assert.Equal(t, 200*time.Millisecond, decoder.Classify(resp, 1).Delay)
	assert.Equal(t, 400*time.Millisecond, decoder.Classify(resp, 2).Delay)
	assert.Equal(t, time.Second, decoder.Classify(resp, 10).Delay)
}

func TestDecoder_ClassifyTransport(t *testing.T) {
	t.Parallel()

	decoder := dohttp.NewDecoder()

	t.Run("idempotent is retried", func(t *testing.T) {
		t.Parallel()

		outcome := decoder.ClassifyTransport(context.Background(), errDial, true, 0)
		assert.Equal(t, dohttp.VerdictRetry, outcome.Verdict)
		assert.Equal(t, docean.KindTransport, outcome.Err.Kind)
		assert.ErrorIs(t, outcome.Err, errDial)
	})

	t.Run("non-idempotent is fatal", func(t *testing.T) {
		t.Parallel()

		outcome := decoder.ClassifyTransport(context.Background(), errDial, false, 0)
		assert.Equal(t, dohttp.VerdictFatal, outcome.Verdict)
	})

	t.Run("cancelled context is fatal", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		outcome := decoder.ClassifyTransport(ctx, errDial, true, 0)
		assert.Equal(t, dohttp.VerdictFatal, outcome.Verdict)
		assert.ErrorIs(t, outcome.Err, context.Canceled)
		assert.True(t, dohttp.IsContextError(outcome.Err))
	})
}
