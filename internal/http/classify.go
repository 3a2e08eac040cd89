package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/fivetwenty-io/docean/internal/constants"
	"github.com/fivetwenty-io/docean/internal/ratelimit"
	"github.com/fivetwenty-io/docean/pkg/docean"
)

// Verdict is what the executor should do with an attempt's result.
type Verdict int

const (
	// VerdictSuccess returns the response to the caller.
	VerdictSuccess Verdict = iota
	// VerdictRetry sends the request again after Outcome.Delay.
	VerdictRetry
	// VerdictFatal returns Outcome.Err to the caller.
	VerdictFatal
)

// Outcome is the classification of one attempt. Err is set for every verdict
// but success; for a retry it is the error returned if no attempts remain.
type Outcome struct {
	Verdict Verdict
	Delay   time.Duration
	Err     *docean.APIError
}

// Decoder maps responses and transport failures to outcomes. It is pure apart
// from reading the clock.
type Decoder struct {
	WaitMin        time.Duration
	WaitMax        time.Duration
	RateLimitFloor time.Duration
	Now            func() time.Time
}

// NewDecoder returns a Decoder with the default backoff bounds.
func NewDecoder() *Decoder {
	return &Decoder{
		WaitMin:        constants.DefaultRetryWaitMin,
		WaitMax:        constants.DefaultRetryWaitMax,
		RateLimitFloor: constants.DefaultRateLimitFloor,
		Now:            time.Now,
	}
}

// Classify maps a completed response. attempt is zero-based.
func (d *Decoder) Classify(resp *Response, attempt int) Outcome {
	status := resp.StatusCode

	switch {
	case status >= constants.HTTPStatusOK && status < constants.HTTPStatusMultipleChoices:
		return Outcome{Verdict: VerdictSuccess}
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fatal(d.apiError(docean.KindAuth, resp))
	case status == http.StatusNotFound:
		return fatal(d.apiError(docean.KindNotFound, resp))
	case status == http.StatusTooManyRequests:
		apiErr := d.apiError(docean.KindRateLimited, resp)
		delay := d.rateLimitDelay(resp.Headers)
		apiErr.ResetAt = d.now().Add(delay)

		return Outcome{Verdict: VerdictRetry, Delay: delay, Err: apiErr}
	case status >= constants.HTTPStatusBadRequest && status < constants.HTTPStatusInternalServerError:
		return fatal(d.apiError(docean.KindValidation, resp))
	case status >= constants.HTTPStatusInternalServerError && status <= constants.HTTPStatusMaxServerError:
		return Outcome{
			Verdict: VerdictRetry,
			Delay:   retryablehttp.DefaultBackoff(d.WaitMin, d.WaitMax, attempt, nil),
			Err:     d.apiError(docean.KindServer, resp),
		}
	default:
		apiErr := d.apiError(docean.KindServer, resp)
		if apiErr.Message == "" {
			apiErr.Message = "unexpected status " + strconv.Itoa(status)
		}

		return fatal(apiErr)
	}
}

// ClassifyTransport maps a failure that produced no response. A cancelled or
// expired caller context is always fatal.
func (d *Decoder) ClassifyTransport(ctx context.Context, err error, idempotent bool, attempt int) Outcome {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fatal(&docean.APIError{Kind: docean.KindTransport, Err: ctxErr})
	}

	apiErr := &docean.APIError{Kind: docean.KindTransport, Err: err}

	if !idempotent {
		return fatal(apiErr)
	}

	return Outcome{
		Verdict: VerdictRetry,
		Delay:   retryablehttp.DefaultBackoff(d.WaitMin, d.WaitMax, attempt, nil),
		Err:     apiErr,
	}
}

// rateLimitDelay prefers a parsable window reset, then Retry-After, and never
// goes below the floor.
func (d *Decoder) rateLimitDelay(header http.Header) time.Duration {
	var delay time.Duration

	resetKnown := false

	if raw := ratelimit.HeaderValue(header, constants.HeaderRateLimitReset); raw != "" {
		if reset, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64); err == nil {
			delay = time.Unix(reset, 0).Sub(d.now())
			resetKnown = true
		}
	}

	if !resetKnown {
		if raw := ratelimit.HeaderValue(header, constants.HeaderRetryAfter); raw != "" {
			delay = d.retryAfter(strings.TrimSpace(raw))
		}
	}

	if delay < d.RateLimitFloor {
		delay = d.RateLimitFloor
	}

	return delay
}

func (d *Decoder) retryAfter(raw string) time.Duration {
	if seconds, err := strconv.Atoi(raw); err == nil {
		return time.Duration(seconds) * time.Second
	}

	if at, err := http.ParseTime(raw); err == nil {
		return at.Sub(d.now())
	}

	return 0
}

func (d *Decoder) apiError(kind docean.ErrorKind, resp *Response) *docean.APIError {
	apiErr := &docean.APIError{
		Kind:       kind,
		StatusCode: resp.StatusCode,
		RawBody:    resp.Body,
		RequestID:  resp.RequestID,
	}

	if len(resp.Body) == 0 {
		return apiErr
	}

	body, err := docean.ParseErrorBody(resp.Body)
	if err != nil {
		return apiErr
	}

	apiErr.ID = body.ID
	apiErr.Message = body.Message

	if body.RequestID != "" {
		apiErr.RequestID = body.RequestID
	}

	return apiErr
}

func (d *Decoder) now() time.Time {
	if d.Now == nil {
		return time.Now()
	}

	return d.Now()
}

func fatal(apiErr *docean.APIError) Outcome {
	return Outcome{Verdict: VerdictFatal, Err: apiErr}
}

// IsContextError reports whether err stems from a cancelled or expired context.
func IsContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
