package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/docean/pkg/docean"
)

// NewTestClient creates a client for baseURL with a static token and
// millisecond retry backoff.
func NewTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()

	client, err := New(context.Background(), &docean.Config{
		APIEndpoint:    baseURL,
		AccessToken:    "test-token",
		RetryWaitMin:   time.Millisecond,
		RetryWaitMax:   5 * time.Millisecond,
		RateLimitFloor: time.Millisecond,
	})
	require.NoError(t, err)

	return client
}

// NotFoundBody is the provider's response to an unknown resource.
func NotFoundBody() docean.ErrorBody {
	return docean.ErrorBody{ID: "not_found", Message: "The resource you were accessing could not be found."}
}

// TestCreateOperation represents a generic create operation test case.
type TestCreateOperation[TRequest, TResponse any] struct {
	Name         string
	Request      *TRequest
	ExpectedPath string
	StatusCode   int
	Response     interface{} // Wrapped resource or error body
	WantErr      bool
	WantKind     docean.ErrorKind
	ErrMessage   string
}

// TestGetOperation represents a generic get operation test case.
type TestGetOperation[TKey any, TResponse any] struct {
	Name         string
	Key          TKey
	ExpectedPath string
	StatusCode   int
	Response     interface{}
	WantErr      bool
	WantKind     docean.ErrorKind
	ErrMessage   string
}

// TestDeleteOperation represents a generic delete operation test case.
type TestDeleteOperation[TKey any] struct {
	Name         string
	Key          TKey
	ExpectedPath string
	StatusCode   int
	Response     interface{}
	WantErr      bool
	WantKind     docean.ErrorKind
	ErrMessage   string
}

func writeJSON(writer http.ResponseWriter, status int, body interface{}) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)

	if body != nil {
		_ = json.NewEncoder(writer).Encode(body)
	}
}

func checkError(t *testing.T, err error, wantKind docean.ErrorKind, errMessage string) {
	t.Helper()

	require.Error(t, err)

	if wantKind != docean.KindUnknown {
		assert.Equal(t, wantKind, docean.KindOf(err))
	}

	if errMessage != "" {
		assert.Contains(t, err.Error(), errMessage)
	}
}

// RunCreateTests runs a series of create operation tests.
func RunCreateTests[TRequest, TResponse any](
	t *testing.T,
	tests []TestCreateOperation[TRequest, TResponse],
	createFunc func(*Client) func(context.Context, *TRequest) (*TResponse, error),
) {
	t.Helper()

	for _, testCase := range tests {
		t.Run(testCase.Name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
				assert.Equal(t, testCase.ExpectedPath, request.URL.Path)
				assert.Equal(t, http.MethodPost, request.Method)
				assert.Equal(t, "application/json", request.Header.Get("Content-Type"))

				var body TRequest
				assert.NoError(t, json.NewDecoder(request.Body).Decode(&body))

				writeJSON(writer, testCase.StatusCode, testCase.Response)
			}))
			defer server.Close()

			result, err := createFunc(NewTestClient(t, server.URL))(context.Background(), testCase.Request)

			if testCase.WantErr {
				checkError(t, err, testCase.WantKind, testCase.ErrMessage)
				assert.Nil(t, result)
			} else {
				require.NoError(t, err)
				require.NotNil(t, result)
			}
		})
	}
}

// RunGetTests runs a series of get operation tests.
func RunGetTests[TKey any, TResponse any](
	t *testing.T,
	tests []TestGetOperation[TKey, TResponse],
	getFunc func(*Client) func(context.Context, TKey) (*TResponse, error),
) {
	t.Helper()

	for _, testCase := range tests {
		t.Run(testCase.Name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
				assert.Equal(t, testCase.ExpectedPath, request.URL.EscapedPath())
				assert.Equal(t, http.MethodGet, request.Method)
				writeJSON(writer, testCase.StatusCode, testCase.Response)
			}))
			defer server.Close()

			result, err := getFunc(NewTestClient(t, server.URL))(context.Background(), testCase.Key)

			if testCase.WantErr {
				checkError(t, err, testCase.WantKind, testCase.ErrMessage)
				assert.Nil(t, result)
			} else {
				require.NoError(t, err)
				require.NotNil(t, result)
			}
		})
	}
}

// RunDeleteTests runs a series of delete operation tests.
func RunDeleteTests[TKey any](
	t *testing.T,
	tests []TestDeleteOperation[TKey],
	deleteFunc func(*Client) func(context.Context, TKey) error,
) {
	t.Helper()

	for _, testCase := range tests {
		t.Run(testCase.Name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
				assert.Equal(t, testCase.ExpectedPath, request.URL.EscapedPath())
				assert.Equal(t, http.MethodDelete, request.Method)

				if testCase.Response == nil {
					writer.WriteHeader(testCase.StatusCode)

					return
				}

				writeJSON(writer, testCase.StatusCode, testCase.Response)
			}))
			defer server.Close()

			err := deleteFunc(NewTestClient(t, server.URL))(context.Background(), testCase.Key)

			if testCase.WantErr {
				checkError(t, err, testCase.WantKind, testCase.ErrMessage)
			} else {
				require.NoError(t, err)
			}
		})
	}
}
