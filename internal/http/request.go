package http

import (
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/fivetwenty-io/docean/pkg/docean"
)

// Request describes one API call. The client never modifies a Request it is
// given; the page iterator derives new values for subsequent pages.
type Request struct {
	Method string
	Path   string
	Query  []docean.QueryParam
	// Body is marshaled to JSON once per call; []byte is sent as is.
	Body interface{}

	// Headers are sent in addition to the ones the client sets.
	Headers map[string]string

	// Idempotent marks the request as safe to resend after a server error or a
	// transport failure. 429 responses are retried regardless.
	Idempotent bool
}

// Response is the raw result of a completed attempt.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte

	// Attempts is the number of attempts made for the call, including this one.
	Attempts int
	// RequestID correlates all attempts of one call in logs and errors.
	RequestID string
}

// IdempotentMethod reports whether HTTP semantics make method safe to repeat.
// NewRequest uses it to default Request.Idempotent; the executor itself only
// trusts the flag.
func IdempotentMethod(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodPut, http.MethodDelete:
		return true
	default:
		return false
	}
}

// EncodeQuery renders params in order.
func EncodeQuery(params []docean.QueryParam) string {
	if len(params) == 0 {
		return ""
	}

	parts := make([]string, 0, len(params))
	for _, param := range params {
		parts = append(parts, url.QueryEscape(param.Key)+"="+url.QueryEscape(param.Value))
	}

	return strings.Join(parts, "&")
}

// ParseQuery splits a raw query string into ordered params. Undecodable
// escapes are kept verbatim.
func ParseQuery(raw string) []docean.QueryParam {
	var params []docean.QueryParam

	for _, part := range strings.Split(raw, "&") {
		if part == "" {
			continue
		}

		key, value, _ := strings.Cut(part, "=")

		if decoded, err := url.QueryUnescape(key); err == nil {
			key = decoded
		}

		if decoded, err := url.QueryUnescape(value); err == nil {
			value = decoded
		}

		params = append(params, docean.QueryParam{Key: key, Value: value})
	}

	return params
}

// MergeQuery returns base with every key present in overrides replaced by the
// override values, in place of the key's first occurrence. Keys only present
// in overrides are appended in their order.
func MergeQuery(base, overrides []docean.QueryParam) []docean.QueryParam {
	overrideValues := make(map[string][]string, len(overrides))
	order := make([]string, 0, len(overrides))

	for _, param := range overrides {
		if _, seen := overrideValues[param.Key]; !seen {
			order = append(order, param.Key)
		}

		overrideValues[param.Key] = append(overrideValues[param.Key], param.Value)
	}

	merged := make([]docean.QueryParam, 0, len(base)+len(overrides))
	emitted := make(map[string]bool, len(overrides))

	for _, param := range base {
		values, overridden := overrideValues[param.Key]
		if !overridden {
			merged = append(merged, param)

			continue
		}

		if emitted[param.Key] {
			continue
		}

		emitted[param.Key] = true

		for _, value := range values {
			merged = append(merged, docean.QueryParam{Key: param.Key, Value: value})
		}
	}

	for _, key := range order {
		if emitted[key] {
			continue
		}

		for _, value := range overrideValues[key] {
			merged = append(merged, docean.QueryParam{Key: key, Value: value})
		}
	}

	return merged
}

// canonicalQuery is an order-insensitive form used to detect revisited pages.
func canonicalQuery(params []docean.QueryParam) string {
	parts := make([]string, 0, len(params))
	for _, param := range params {
		parts = append(parts, url.QueryEscape(param.Key)+"="+url.QueryEscape(param.Value))
	}

	sort.Strings(parts)

	return strings.Join(parts, "&")
}

func (r *Request) clone() *Request {
	clone := *r
	clone.Query = append([]docean.QueryParam(nil), r.Query...)

	return &clone
}
