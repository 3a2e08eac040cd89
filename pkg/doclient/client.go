package doclient

import (
	"context"
	"fmt"
	"strings"

	"github.com/fivetwenty-io/docean/internal/client"
	"github.com/fivetwenty-io/docean/internal/constants"
	"github.com/fivetwenty-io/docean/pkg/docean"
)

// New creates a new DigitalOcean API client. The config is copied; an empty
// APIEndpoint selects the public API.
func New(ctx context.Context, config *docean.Config) (docean.Client, error) {
	if config == nil {
		return nil, docean.ErrConfigRequired
	}

	normalized := *config
	normalized.APIEndpoint = NormalizeEndpoint(config.APIEndpoint)

	cli, err := client.New(ctx, &normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to create new client: %w", err)
	}

	return cli, nil
}

// NewWithToken creates a client for the public API using token.
func NewWithToken(ctx context.Context, token string) (docean.Client, error) {
	return New(ctx, &docean.Config{AccessToken: token})
}

// NewWithEndpoint creates a client for a custom endpoint, e.g. a proxy.
func NewWithEndpoint(ctx context.Context, endpoint, token string) (docean.Client, error) {
	return New(ctx, &docean.Config{APIEndpoint: endpoint, AccessToken: token})
}

// NormalizeEndpoint trims trailing slashes and adds https:// when no scheme is given.
func NormalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if endpoint == "" {
		return constants.DefaultAPIEndpoint
	}

	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}

	return endpoint
}
