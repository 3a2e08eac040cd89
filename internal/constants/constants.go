package constants

import "time"

// File and directory permissions.
const (
	// ConfigDirPerm is the permission for configuration directories.
	ConfigDirPerm = 0750

	// ConfigFilePerm is the permission for configuration files.
	ConfigFilePerm = 0600
)

// API endpoint defaults.
const (
	// DefaultAPIEndpoint is the DigitalOcean API root.
	DefaultAPIEndpoint = "https://api.digitalocean.com"

	// DefaultUserAgent is sent when no custom User-Agent is configured.
	DefaultUserAgent = "docean-go/1.0"

	// ContentTypeJSON is the media type used for request and response bodies.
	ContentTypeJSON = "application/json"
)

// HTTP and network timeouts.
const (
	// DefaultHTTPTimeout is the default per-attempt timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// ShortHTTPTimeout is used for quick operations.
	ShortHTTPTimeout = 10 * time.Second
)

// Retry and backoff.
const (
	// DefaultRetryMax is the number of additional attempts after the first one.
	DefaultRetryMax = 3

	// DefaultRetryWaitMin is the first exponential backoff step for server errors.
	DefaultRetryWaitMin = 500 * time.Millisecond

	// DefaultRetryWaitMax caps the exponential backoff.
	DefaultRetryWaitMax = 30 * time.Second

	// DefaultRateLimitFloor is the minimum delay applied after a 429.
	DefaultRateLimitFloor = 1 * time.Second

	// DefaultRateLimitMaxWait is the longest a call waits for quota before failing.
	DefaultRateLimitMaxWait = 5 * time.Minute
)

// Rate limit header names. Lookups go through http.Header and are case-insensitive.
const (
	// HeaderRateLimitLimit carries the quota per window.
	HeaderRateLimitLimit = "RateLimit-Limit"

	// HeaderRateLimitRemaining carries the requests left in the window.
	HeaderRateLimitRemaining = "RateLimit-Remaining"

	// HeaderRateLimitReset carries the window reset time as epoch seconds.
	HeaderRateLimitReset = "RateLimit-Reset"

	// HeaderRetryAfter is the standard fallback for 429 responses.
	HeaderRetryAfter = "Retry-After"
)

// HTTP status code boundaries.
const (
	// HTTPStatusOK represents a successful HTTP response.
	HTTPStatusOK = 200

	// HTTPStatusMultipleChoices is the first non-success status.
	HTTPStatusMultipleChoices = 300

	// HTTPStatusBadRequest represents a client error.
	HTTPStatusBadRequest = 400

	// HTTPStatusInternalServerError represents server errors.
	HTTPStatusInternalServerError = 500

	// HTTPStatusMaxServerError is the last server error status.
	HTTPStatusMaxServerError = 599
)

// Pagination and display limits.
const (
	// DefaultPageSize is the provider's default number of items per page.
	DefaultPageSize = 20

	// MaxPageSize is the largest per_page the provider accepts.
	MaxPageSize = 200

	// QueryParamPage is the page number query key.
	QueryParamPage = "page"

	// QueryParamPerPage is the page size query key.
	QueryParamPerPage = "per_page"
)

// API path constants.
const (
	// APIPathDomains for domains endpoint.
	APIPathDomains = "/v2/domains"

	// APIPathDroplets for droplets endpoint.
	APIPathDroplets = "/v2/droplets"

	// APIPathAccount for the account endpoint.
	APIPathAccount = "/v2/account"
)

// Format constants.
const (
	// FormatJSON for JSON output format.
	FormatJSON = "json"

	// FormatYAML for YAML output format.
	FormatYAML = "yaml"

	// FormatTable for table output format.
	FormatTable = "table"
)

// UI and display constants.
const (
	// NotAvailable is used when information is not available.
	NotAvailable = "N/A"

	// MaskedSecret is used to hide sensitive information.
	MaskedSecret = "***"
)

// NATS defaults.
const (
	// DefaultNATSSubject is where rate limit snapshots are published.
	DefaultNATSSubject = "docean.ratelimit"
)

// Token handling.
const (
	// TokenExpirationBuffer is the margin before expiry after which a token is treated as expired.
	TokenExpirationBuffer = 30 * time.Second
)
