package http

import (
	"time"

	"github.com/fivetwenty-io/docean/internal/ratelimit"
	"github.com/fivetwenty-io/docean/pkg/docean"
)

// Option configures the HTTP client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger docean.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDebug enables request and response logging.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		if userAgent != "" {
			c.userAgent = userAgent
		}
	}
}

// WithRetryConfig sets how many additional attempts are made and the
// exponential backoff bounds used for server errors. A negative retryMax
// disables retries.
func WithRetryConfig(retryMax int, waitMin, waitMax time.Duration) Option {
	return func(c *Client) {
		if retryMax < 0 {
			retryMax = 0
		}

		c.retryMax = retryMax
		c.decoder.WaitMin = waitMin
		c.decoder.WaitMax = waitMax
	}
}

// WithHTTPClient replaces the transport primitive.
func WithHTTPClient(doer docean.HTTPDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.httpClient = doer
		}
	}
}

// WithTimeout sets the per-attempt timeout of the default transport.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithRateLimitFloor sets the minimum delay applied after a 429.
func WithRateLimitFloor(floor time.Duration) Option {
	return func(c *Client) {
		c.decoder.RateLimitFloor = floor
	}
}

// WithRateLimitMaxWait bounds how long a call waits for quota.
func WithRateLimitMaxWait(maxWait time.Duration) Option {
	return func(c *Client) {
		c.maxWait = maxWait
	}
}

// WithRateLimitPolicy sets the behavior when the quota is exhausted.
func WithRateLimitPolicy(policy docean.RateLimitPolicy) Option {
	return func(c *Client) {
		c.policy = policy
	}
}

// WithRateLimitObserver registers a callback for every recorded quota snapshot.
func WithRateLimitObserver(observer func(docean.RateLimit)) Option {
	return func(c *Client) {
		if observer != nil {
			c.observers = append(c.observers, ratelimit.Observer(observer))
		}
	}
}

// WithRateLimiter shares a limiter between clients. The limiter's own policy
// and wait budget apply.
func WithRateLimiter(limiter *ratelimit.Limiter) Option {
	return func(c *Client) {
		c.limiter = limiter
	}
}

// WithClock replaces time.Now for rate limit decisions.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
			c.decoder.Now = now
		}
	}
}
