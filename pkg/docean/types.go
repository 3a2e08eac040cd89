package docean

import (
	"net/http"
	"strconv"
	"time"
)

// Logger defines the logging interface used by the client.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// HTTPDoer is the transport primitive the client sends requests through.
// *http.Client satisfies it.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RateLimitPolicy controls what a call does when the known quota is exhausted.
type RateLimitPolicy int

const (
	// PolicyBlock waits for the window to reset, up to the configured maximum wait.
	PolicyBlock RateLimitPolicy = iota
	// PolicyFailFast returns a RateLimited error instead of waiting.
	PolicyFailFast
)

// String returns the policy name as used in configuration files.
func (p RateLimitPolicy) String() string {
	if p == PolicyFailFast {
		return "fail-fast"
	}

	return "block"
}

// ParseRateLimitPolicy maps a configuration value to a policy. Unknown values block.
func ParseRateLimitPolicy(value string) RateLimitPolicy {
	switch value {
	case "fail-fast", "failfast", "nonblocking":
		return PolicyFailFast
	default:
		return PolicyBlock
	}
}

// RateLimit is a snapshot of the provider's quota window as last observed.
type RateLimit struct {
	Limit     int       `json:"limit"     yaml:"limit"`
	Remaining int       `json:"remaining" yaml:"remaining"`
	ResetAt   time.Time `json:"reset_at"  yaml:"reset_at"`
	// Known is false until the first response carrying rate limit headers.
	Known bool `json:"known" yaml:"known"`
}

// Config represents client configuration for building a docean.Client.
//
// # Timeouts, retries, and rate limits
//
// HTTPTimeout bounds a single attempt. RateLimitMaxWait bounds the time a call
// spends waiting for quota; exceeding it yields a RateLimited error, never a
// timeout. RetryMax is the number of additional attempts for 429 responses and,
// for idempotent requests, 5xx responses and transport failures.
type Config struct {
	// APIEndpoint: base URL for the API. Defaults to https://api.digitalocean.com.
	APIEndpoint string
	// AccessToken: bearer token attached to every request.
	AccessToken string

	// HTTPTimeout: per-attempt timeout of the default transport.
	HTTPTimeout time.Duration
	// RetryMax: additional attempts after the first. 0 uses the default, negative disables retries.
	RetryMax int
	// RetryWaitMin: first exponential backoff step for server errors.
	RetryWaitMin time.Duration
	// RetryWaitMax: cap for the exponential backoff.
	RetryWaitMax time.Duration

	// RateLimitFloor: minimum delay after a 429.
	RateLimitFloor time.Duration
	// RateLimitMaxWait: longest wait for quota before failing with RateLimited.
	// 0 uses the default (5m), negative waits without bound. Use PolicyFailFast
	// to never wait.
	RateLimitMaxWait time.Duration
	// RateLimitPolicy: block (default) or fail fast when the quota is exhausted.
	RateLimitPolicy RateLimitPolicy
	// RateLimitObserver: optional callback receiving every recorded snapshot.
	RateLimitObserver func(RateLimit)

	// HTTPClient: transport primitive. Defaults to a pooled go-retryablehttp client
	// with its own retries disabled.
	HTTPClient HTTPDoer
	// Debug: enables request/response logging when a Logger is provided.
	Debug bool
	// Logger: optional structured logger.
	Logger Logger
	// UserAgent: overrides the default User-Agent header.
	UserAgent string
}

// QueryParam is one key/value pair of an ordered query string.
type QueryParam struct {
	Key   string `json:"key"   yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// ListOptions selects a page of a list endpoint.
type ListOptions struct {
	Page    int `json:"page,omitempty"     yaml:"page,omitempty"`
	PerPage int `json:"per_page,omitempty" yaml:"per_page,omitempty"`
}

// ToQuery converts the options to ordered query parameters.
func (o *ListOptions) ToQuery() []QueryParam {
	if o == nil {
		return nil
	}

	var query []QueryParam

	if o.Page > 0 {
		query = append(query, QueryParam{Key: "page", Value: strconv.Itoa(o.Page)})
	}

	if o.PerPage > 0 {
		query = append(query, QueryParam{Key: "per_page", Value: strconv.Itoa(o.PerPage)})
	}

	return query
}

// PageLinks holds the pagination URLs of a list response.
type PageLinks struct {
	First string `json:"first,omitempty" yaml:"first,omitempty"`
	Prev  string `json:"prev,omitempty"  yaml:"prev,omitempty"`
	Next  string `json:"next,omitempty"  yaml:"next,omitempty"`
	Last  string `json:"last,omitempty"  yaml:"last,omitempty"`
}

// Links represents the links object of a list response.
type Links struct {
	Pages *PageLinks `json:"pages,omitempty" yaml:"pages,omitempty"`
}

// NextURL returns the next page URL, or "" on the last page.
func (l Links) NextURL() string {
	if l.Pages == nil {
		return ""
	}

	return l.Pages.Next
}

// Meta represents the meta object of a list response.
type Meta struct {
	Total int `json:"total" yaml:"total"`
}

// Domain represents a DNS domain.
type Domain struct {
	Name     string `json:"name"                yaml:"name"`
	TTL      int    `json:"ttl"                 yaml:"ttl"`
	ZoneFile string `json:"zone_file,omitempty" yaml:"zone_file,omitempty"`
}

// DomainCreateRequest is the payload for creating a domain.
type DomainCreateRequest struct {
	Name      string `json:"name"                 yaml:"name"`
	IPAddress string `json:"ip_address,omitempty" yaml:"ip_address,omitempty"`
}

// DomainsList represents one page of domains.
type DomainsList struct {
	Domains []Domain `json:"domains" yaml:"domains"`
	Links   Links    `json:"links"   yaml:"links"`
	Meta    Meta     `json:"meta"    yaml:"meta"`
}

// Region represents a datacenter region.
type Region struct {
	Slug      string `json:"slug"      yaml:"slug"`
	Name      string `json:"name"      yaml:"name"`
	Available bool   `json:"available" yaml:"available"`
}

// Droplet represents a virtual machine.
type Droplet struct {
	ID        int       `json:"id"         yaml:"id"`
	Name      string    `json:"name"       yaml:"name"`
	Memory    int       `json:"memory"     yaml:"memory"`
	VCPUs     int       `json:"vcpus"      yaml:"vcpus"`
	Disk      int       `json:"disk"       yaml:"disk"`
	Locked    bool      `json:"locked"     yaml:"locked"`
	Status    string    `json:"status"     yaml:"status"`
	SizeSlug  string    `json:"size_slug"  yaml:"size_slug"`
	Region    Region    `json:"region"     yaml:"region"`
	Tags      []string  `json:"tags"       yaml:"tags"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// DropletCreateRequest is the payload for creating a droplet.
type DropletCreateRequest struct {
	Name       string   `json:"name"               yaml:"name"`
	Region     string   `json:"region"             yaml:"region"`
	Size       string   `json:"size"               yaml:"size"`
	Image      string   `json:"image"              yaml:"image"`
	SSHKeys    []string `json:"ssh_keys,omitempty" yaml:"ssh_keys,omitempty"`
	Backups    bool     `json:"backups"            yaml:"backups"`
	IPv6       bool     `json:"ipv6"               yaml:"ipv6"`
	Monitoring bool     `json:"monitoring"         yaml:"monitoring"`
	Tags       []string `json:"tags,omitempty"     yaml:"tags,omitempty"`
	UserData   string   `json:"user_data,omitempty" yaml:"user_data,omitempty"`
}

// DropletsList represents one page of droplets.
type DropletsList struct {
	Droplets []Droplet `json:"droplets" yaml:"droplets"`
	Links    Links     `json:"links"    yaml:"links"`
	Meta     Meta      `json:"meta"     yaml:"meta"`
}
