package docean

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies a failed call.
type ErrorKind int

const (
	// KindUnknown is the zero value and never produced by the client.
	KindUnknown ErrorKind = iota
	// KindAuth is a rejected or expired token (401, 403).
	KindAuth
	// KindNotFound is a missing resource (404).
	KindNotFound
	// KindValidation is any other 4xx, typically 422 with field details in the body.
	KindValidation
	// KindRateLimited means the quota could not be obtained within the wait budget.
	KindRateLimited
	// KindServer is a 5xx that survived every retry.
	KindServer
	// KindTransport is a network-level failure with no response.
	KindTransport
	// KindDecode is a success response whose body could not be decoded.
	KindDecode
)

// String returns the kind name used in logs and error messages.
func (k ErrorKind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindRateLimited:
		return "rate_limited"
	case KindServer:
		return "server"
	case KindTransport:
		return "transport"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// Sentinels matched by errors.Is against an *APIError of the corresponding kind.
var (
	ErrAuth        = errors.New("authentication failed")
	ErrNotFound    = errors.New("resource not found")
	ErrValidation  = errors.New("validation failed")
	ErrRateLimited = errors.New("rate limited")
	ErrServer      = errors.New("server error")
	ErrTransport   = errors.New("transport error")
	ErrDecode      = errors.New("decode error")
)

// Common static errors that can be wrapped with context.
var (
	ErrConfigRequired      = errors.New("config is required")
	ErrAPIEndpointRequired = errors.New("API endpoint is required")
	ErrNoMorePages         = errors.New("no more pages")
	ErrPaginationLoop      = errors.New("pagination cursor points to an already visited page")
	ErrNilRequest          = errors.New("request is required")
)

func (k ErrorKind) sentinel() error {
	switch k {
	case KindAuth:
		return ErrAuth
	case KindNotFound:
		return ErrNotFound
	case KindValidation:
		return ErrValidation
	case KindRateLimited:
		return ErrRateLimited
	case KindServer:
		return ErrServer
	case KindTransport:
		return ErrTransport
	case KindDecode:
		return ErrDecode
	default:
		return nil
	}
}

// APIError is the terminal, classified result of a failed call.
type APIError struct {
	Kind       ErrorKind `json:"kind"                 yaml:"kind"`
	StatusCode int       `json:"status_code"          yaml:"status_code"`
	ID         string    `json:"id,omitempty"         yaml:"id,omitempty"`
	Message    string    `json:"message,omitempty"    yaml:"message,omitempty"`
	RawBody    []byte    `json:"-"                    yaml:"-"`
	RequestID  string    `json:"request_id,omitempty" yaml:"request_id,omitempty"`

	// ResetAt is set for KindRateLimited: the moment the provider's window resets.
	ResetAt time.Time `json:"reset_at,omitempty" yaml:"reset_at,omitempty"`
	// Cached is true when no request was sent because the known quota was exhausted.
	Cached bool `json:"cached,omitempty" yaml:"cached,omitempty"`

	// Err is the underlying cause for transport and decode failures.
	Err error `json:"-" yaml:"-"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	switch {
	case e.Kind == KindRateLimited && e.Cached:
		return fmt.Sprintf("rate limited until %s (no request sent)", e.ResetAt.UTC().Format(time.RFC3339))
	case e.Err != nil && e.StatusCode == 0:
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s error (status: %d): %v", e.Kind, e.StatusCode, e.Err)
	case e.ID != "" && e.Message != "":
		return fmt.Sprintf("%s: %s (status: %d)", e.ID, e.Message, e.StatusCode)
	case e.Message != "":
		return fmt.Sprintf("%s: %s (status: %d)", e.Kind, e.Message, e.StatusCode)
	default:
		return fmt.Sprintf("%s error (status: %d)", e.Kind, e.StatusCode)
	}
}

// Unwrap exposes the underlying cause, if any.
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for this error's kind.
func (e *APIError) Is(target error) bool {
	sentinel := e.Kind.sentinel()

	return sentinel != nil && target == sentinel
}

// Retryable reports whether the kind is one the executor may retry.
func (e *APIError) Retryable() bool {
	switch e.Kind {
	case KindRateLimited, KindServer, KindTransport:
		return true
	default:
		return false
	}
}

// ErrorBody is the provider's error payload.
type ErrorBody struct {
	ID        string `json:"id"                   yaml:"id"`
	Message   string `json:"message"              yaml:"message"`
	RequestID string `json:"request_id,omitempty" yaml:"request_id,omitempty"`
}

// ParseErrorBody parses an error response from JSON.
func ParseErrorBody(data []byte) (*ErrorBody, error) {
	var body ErrorBody

	err := json.Unmarshal(data, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal error body: %w", err)
	}

	return &body, nil
}

// KindOf returns the kind of the first *APIError in err's chain.
func KindOf(err error) ErrorKind {
	apiErr := &APIError{}
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}

	return KindUnknown
}

// IsNotFound checks if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsUnauthorized checks if the error is an authentication or authorization error.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrAuth)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsRateLimited checks if the error is a rate limit error.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsRetryable checks if the error belongs to a transient kind.
func IsRetryable(err error) bool {
	apiErr := &APIError{}
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}

	return false
}
