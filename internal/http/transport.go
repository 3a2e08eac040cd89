package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/fivetwenty-io/docean/pkg/docean"
)

// newTransport builds the default pooled transport. Retries are owned by the
// executor, so retryablehttp is limited to a single attempt.
func newTransport(timeout time.Duration, logger docean.Logger) *http.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = 0
	client.CheckRetry = func(_ context.Context, _ *http.Response, _ error) (bool, error) {
		return false, nil
	}
	client.HTTPClient.Timeout = timeout

	if logger != nil {
		client.Logger = leveledLogger{logger: logger}
	} else {
		client.Logger = nil
	}

	return client.StandardClient()
}

// leveledLogger forwards retryablehttp's warnings and errors. Its per-request
// debug lines duplicate the client's own debug logging and are dropped.
type leveledLogger struct {
	logger docean.Logger
}

var _ retryablehttp.LeveledLogger = leveledLogger{}

func (l leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, fields(keysAndValues))
}

func (l leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn(msg, fields(keysAndValues))
}

func (l leveledLogger) Info(string, ...interface{}) {}

func (l leveledLogger) Debug(string, ...interface{}) {}

func fields(keysAndValues []interface{}) map[string]interface{} {
	result := make(map[string]interface{}, len(keysAndValues)/2)

	for i := 0; i+1 < len(keysAndValues); i += 2 {
		result[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}

	return result
}
