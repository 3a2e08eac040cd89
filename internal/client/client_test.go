package client_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/fivetwenty-io/docean/internal/client"
	"github.com/fivetwenty-io/docean/pkg/docean"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("requires config", func(t *testing.T) {
		t.Parallel()

		_, err := New(context.Background(), nil)
		require.ErrorIs(t, err, docean.ErrConfigRequired)
	})

	t.Run("requires API endpoint", func(t *testing.T) {
		t.Parallel()

		_, err := New(context.Background(), &docean.Config{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "API endpoint is required")
	})

	t.Run("creates client with access token", func(t *testing.T) {
		t.Parallel()

		client, err := New(context.Background(), &docean.Config{
			APIEndpoint: "https://api.digitalocean.com",
			AccessToken: "test-token",
		})
		require.NoError(t, err)
		assert.NotNil(t, client.Domains())
		assert.NotNil(t, client.Droplets())
		assert.False(t, client.RateLimit().Known)
	})

	t.Run("missing token fails before sending", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			t.Error("request must not be sent")
		}))
		defer server.Close()

		client, err := New(context.Background(), &docean.Config{APIEndpoint: server.URL})
		require.NoError(t, err)

		_, err = client.Domains().Get(context.Background(), "example.com")
		require.Error(t, err)
		assert.True(t, docean.IsUnauthorized(err))
	})
}

func TestClient_SetToken(t *testing.T) {
	t.Parallel()

	var (
		mu   sync.Mutex
		seen []string
	)

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		mu.Lock()
		seen = append(seen, request.Header.Get("Authorization"))
		mu.Unlock()

		writer.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewTestClient(t, server.URL)

	require.NoError(t, client.Domains().Delete(context.Background(), "a.example"))
	client.SetToken("rotated-token")
	require.NoError(t, client.Domains().Delete(context.Background(), "b.example"))

	assert.Equal(t, []string{"Bearer test-token", "Bearer rotated-token"}, seen)
}

func TestClient_RateLimitSnapshot(t *testing.T) {
	t.Parallel()

	reset := time.Now().Add(time.Minute).Truncate(time.Second)

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("RateLimit-Limit", "5000")
		writer.Header().Set("RateLimit-Remaining", "4816")
		writer.Header().Set("RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
		writer.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	var observed []docean.RateLimit

	client, err := New(context.Background(), &docean.Config{
		APIEndpoint: server.URL,
		AccessToken: "test-token",
		RateLimitObserver: func(state docean.RateLimit) {
			observed = append(observed, state)
		},
	})
	require.NoError(t, err)

	require.NoError(t, client.Droplets().Delete(context.Background(), 1))

	state := client.RateLimit()
	assert.True(t, state.Known)
	assert.Equal(t, 5000, state.Limit)
	assert.Equal(t, 4816, state.Remaining)
	assert.True(t, reset.Equal(state.ResetAt))
	require.Len(t, observed, 1)
	assert.Equal(t, state, observed[0])
}

func TestClient_FailFastPolicyFromConfig(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("RateLimit-Limit", "250")
		writer.Header().Set("RateLimit-Remaining", "0")
		writer.Header().Set("RateLimit-Reset", strconv.FormatInt(time.Now().Add(time.Minute).Unix(), 10))
		writer.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client, err := New(context.Background(), &docean.Config{
		APIEndpoint:     server.URL,
		AccessToken:     "test-token",
		RateLimitPolicy: docean.PolicyFailFast,
	})
	require.NoError(t, err)

	require.NoError(t, client.Domains().Delete(context.Background(), "a.example"))

	err = client.Domains().Delete(context.Background(), "b.example")
	require.Error(t, err)
	assert.True(t, docean.IsRateLimited(err))
}

func TestClient_RateLimitMaxWaitFromConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		maxWait time.Duration
		wantErr bool
	}{
		{name: "zero uses the default budget", maxWait: 0},
		{name: "negative waits without bound", maxWait: -1},
		{name: "short budget fails without sending", maxWait: 10 * time.Millisecond, wantErr: true},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			var requests atomic.Int32

			server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
				reset := time.Now().Add(2 * time.Second)
				if requests.Add(1) > 1 {
					reset = time.Now().Add(time.Hour)
				}

				writer.Header().Set("RateLimit-Limit", "250")
				writer.Header().Set("RateLimit-Remaining", "0")
				writer.Header().Set("RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
				writer.WriteHeader(http.StatusNoContent)
			}))
			defer server.Close()

			client, err := New(context.Background(), &docean.Config{
				APIEndpoint:      server.URL,
				AccessToken:      "test-token",
				RateLimitMaxWait: testCase.maxWait,
			})
			require.NoError(t, err)

			require.NoError(t, client.Domains().Delete(context.Background(), "a.example"))

			err = client.Domains().Delete(context.Background(), "b.example")

			if testCase.wantErr {
				require.Error(t, err)
				assert.True(t, docean.IsRateLimited(err))
				assert.Equal(t, int32(1), requests.Load())

				return
			}

			require.NoError(t, err)
			assert.Equal(t, int32(2), requests.Load())
		})
	}
}
