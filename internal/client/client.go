package client

import (
	"context"
	"time"

	"github.com/fivetwenty-io/docean/internal/auth"
	"github.com/fivetwenty-io/docean/internal/constants"
	"github.com/fivetwenty-io/docean/internal/http"
	"github.com/fivetwenty-io/docean/pkg/docean"
)

// Client implements the docean.Client interface.
type Client struct {
	httpClient   *http.Client
	tokenManager *auth.StaticTokenManager
	baseURL      string
	logger       docean.Logger

	// Resource clients
	domains  docean.DomainsClient
	droplets docean.DropletsClient
}

var _ docean.Client = (*Client)(nil)

// createHTTPClientOptions builds HTTP client options from config.
func createHTTPClientOptions(config *docean.Config) []http.Option {
	var httpOpts []http.Option

	if config.Logger != nil {
		httpOpts = append(httpOpts, http.WithLogger(config.Logger))
	}

	if config.Debug {
		httpOpts = append(httpOpts, http.WithDebug(true))
	}

	if config.UserAgent != "" {
		httpOpts = append(httpOpts, http.WithUserAgent(config.UserAgent))
	}

	if config.HTTPClient != nil {
		httpOpts = append(httpOpts, http.WithHTTPClient(config.HTTPClient))
	}

	if config.HTTPTimeout > 0 {
		httpOpts = append(httpOpts, http.WithTimeout(config.HTTPTimeout))
	}

	if config.RetryMax != 0 || config.RetryWaitMin > 0 || config.RetryWaitMax > 0 {
		httpOpts = append(httpOpts, http.WithRetryConfig(retrySettings(config)))
	}

	if config.RateLimitFloor > 0 {
		httpOpts = append(httpOpts, http.WithRateLimitFloor(config.RateLimitFloor))
	}

	// Zero keeps the default; negative values pass through as unbounded.
	if config.RateLimitMaxWait != 0 {
		httpOpts = append(httpOpts, http.WithRateLimitMaxWait(config.RateLimitMaxWait))
	}

	httpOpts = append(httpOpts,
		http.WithRateLimitPolicy(config.RateLimitPolicy),
		http.WithRateLimitObserver(config.RateLimitObserver),
	)

	return httpOpts
}

func retrySettings(config *docean.Config) (int, time.Duration, time.Duration) {
	retryMax := constants.DefaultRetryMax
	retryWaitMin := constants.DefaultRetryWaitMin
	retryWaitMax := constants.DefaultRetryWaitMax

	if config.RetryMax != 0 {
		retryMax = config.RetryMax
	}

	if config.RetryWaitMin > 0 {
		retryWaitMin = config.RetryWaitMin
	}

	if config.RetryWaitMax > 0 {
		retryWaitMax = config.RetryWaitMax
	}

	return retryMax, retryWaitMin, retryWaitMax
}

// New creates a new DigitalOcean API client.
func New(_ context.Context, config *docean.Config) (*Client, error) {
	if config == nil {
		return nil, docean.ErrConfigRequired
	}

	if config.APIEndpoint == "" {
		return nil, docean.ErrAPIEndpointRequired
	}

	tokenManager := auth.NewStaticTokenManager(config.AccessToken)

	httpClient := http.NewClient(config.APIEndpoint, tokenManager, createHTTPClientOptions(config)...)

	client := &Client{
		httpClient:   httpClient,
		tokenManager: tokenManager,
		baseURL:      config.APIEndpoint,
		logger:       config.Logger,
	}

	client.initializeResourceClients()

	return client, nil
}

// Domains implements docean.Client.Domains.
func (c *Client) Domains() docean.DomainsClient {
	return c.domains
}

// Droplets implements docean.Client.Droplets.
func (c *Client) Droplets() docean.DropletsClient {
	return c.droplets
}

// RateLimit implements docean.Client.RateLimit.
func (c *Client) RateLimit() docean.RateLimit {
	return c.httpClient.RateLimit()
}

// SetToken implements docean.Client.SetToken. Calls already in flight keep
// the token they started with.
func (c *Client) SetToken(token string) {
	c.tokenManager.SetToken(token, time.Time{})
}

// initializeResourceClients initializes all resource-specific clients.
func (c *Client) initializeResourceClients() {
	c.domains = NewDomainsClient(c.httpClient)
	c.droplets = NewDropletsClient(c.httpClient)
}
