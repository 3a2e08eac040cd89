// Package ratelimit tracks the provider's advertised quota window and decides
// whether, and for how long, a caller must wait before sending a request.
//
// State is only ever taken from response headers (Record) or reduced by local
// reservations (Acquire). A Limiter is owned by one client instance; there is no
// package-level state.
package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fivetwenty-io/docean/internal/constants"
	"github.com/fivetwenty-io/docean/pkg/docean"
)

// State is the quota window as last observed.
type State = docean.RateLimit

// Observer receives a snapshot after every successful Record.
type Observer func(State)

// Option configures a Limiter.
type Option func(*Limiter)

// WithPolicy sets the behavior when the quota is exhausted.
func WithPolicy(policy docean.RateLimitPolicy) Option {
	return func(l *Limiter) {
		l.policy = policy
	}
}

// WithMaxWait bounds how long Acquire blocks. Zero forbids any wait, a negative
// value removes the bound.
func WithMaxWait(maxWait time.Duration) Option {
	return func(l *Limiter) {
		l.maxWait = maxWait
	}
}

// WithClock replaces time.Now for wait decisions.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

// WithObserver registers a callback for recorded snapshots.
func WithObserver(observer Observer) Option {
	return func(l *Limiter) {
		if observer != nil {
			l.observers = append(l.observers, observer)
		}
	}
}

// WithLogger logs waits for quota before a send.
func WithLogger(logger docean.Logger) Option {
	return func(l *Limiter) {
		l.logger = logger
	}
}

// WithInitialState seeds the limiter, e.g. from a snapshot taken by another client.
func WithInitialState(state State) Option {
	return func(l *Limiter) {
		l.state = state
	}
}

// Limiter serializes the wait decision for all requests of one client.
type Limiter struct {
	mu    sync.Mutex
	state State
	// assumed is set while the window is a local refill after ResetAt passed
	// and no response has confirmed it yet.
	assumed bool
	// recorded is closed and replaced on every successful Record.
	recorded  chan struct{}
	policy    docean.RateLimitPolicy
	maxWait   time.Duration
	now       func() time.Time
	logger    docean.Logger
	observers []Observer
}

// reservation is the outcome of one reserve call. A zero value authorizes the send.
type reservation struct {
	wait      time.Duration
	recorded  <-chan struct{}
	resetAt   time.Time
	refreshed bool
	limit     int
}

// New creates a Limiter with no known quota.
func New(opts ...Option) *Limiter {
	limiter := &Limiter{
		policy:   docean.PolicyBlock,
		maxWait:  constants.DefaultRateLimitMaxWait,
		now:      time.Now,
		recorded: make(chan struct{}),
	}

	for _, opt := range opts {
		opt(limiter)
	}

	return limiter
}

// Acquire blocks until one request may be sent and reserves it. It returns a
// RateLimited *docean.APIError when the wait would exceed the budget or the
// policy forbids waiting, and ctx.Err() when ctx ends first.
//
// Once ResetAt has passed the window is assumed refilled to Limit. Callers that
// exhaust an assumed window wait for the next Record instead of refilling again.
func (l *Limiter) Acquire(ctx context.Context) error {
	for {
		res, err := l.reserve()
		if err != nil {
			return err
		}

		l.logReservation(res)

		switch {
		case res.recorded != nil:
			err = l.awaitRecord(ctx, res.recorded)
		case res.wait > 0:
			err = sleep(ctx, res.wait)
		default:
			return nil
		}

		if err != nil {
			return err
		}
	}
}

// reserve takes one unit of quota or reports what to wait for.
func (l *Limiter) reserve() (reservation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.state.Known {
		return reservation{}, nil
	}

	if l.state.Remaining > 0 {
		l.state.Remaining--

		return reservation{}, nil
	}

	if l.assumed {
		if l.policy == docean.PolicyFailFast || l.maxWait == 0 {
			return reservation{}, l.exhausted()
		}

		return reservation{recorded: l.recorded, resetAt: l.state.ResetAt, limit: l.state.Limit}, nil
	}

	now := l.now()

	if !now.Before(l.state.ResetAt) {
		l.assumed = true
		if l.state.Limit > 0 {
			l.state.Remaining = l.state.Limit - 1
		}

		return reservation{refreshed: true, resetAt: l.state.ResetAt, limit: l.state.Limit}, nil
	}

	wait := l.state.ResetAt.Sub(now)

	if l.policy == docean.PolicyFailFast || (l.maxWait >= 0 && wait > l.maxWait) {
		return reservation{}, l.exhausted()
	}

	return reservation{wait: wait, resetAt: l.state.ResetAt, limit: l.state.Limit}, nil
}

// exhausted builds the cached RateLimited error. Callers hold mu.
func (l *Limiter) exhausted() *docean.APIError {
	return &docean.APIError{
		Kind:    docean.KindRateLimited,
		ResetAt: l.state.ResetAt,
		Cached:  true,
	}
}

// awaitRecord waits for fresh headers, bounded by maxWait.
func (l *Limiter) awaitRecord(ctx context.Context, recorded <-chan struct{}) error {
	var timeout <-chan time.Time

	if l.maxWait > 0 {
		timer := time.NewTimer(l.maxWait)
		defer timer.Stop()

		timeout = timer.C
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-recorded:
		return nil
	case <-timeout:
		l.mu.Lock()
		defer l.mu.Unlock()

		return l.exhausted()
	}
}

func (l *Limiter) logReservation(res reservation) {
	if l.logger == nil {
		return
	}

	switch {
	case res.refreshed:
		l.logger.Info("Rate limit window reset", map[string]interface{}{
			"limit":    res.limit,
			"reset_at": res.resetAt.UTC().Format(time.RFC3339),
		})
	case res.recorded != nil:
		l.logger.Info("Rate limit quota exhausted, waiting for a response to confirm the new window", map[string]interface{}{
			"limit":    res.limit,
			"max_wait": l.maxWait.String(),
		})
	case res.wait > 0:
		l.logger.Info("Rate limit quota exhausted, waiting for reset", map[string]interface{}{
			"limit":    res.limit,
			"wait":     res.wait.String(),
			"reset_at": res.resetAt.UTC().Format(time.RFC3339),
		})
	}
}

func sleep(ctx context.Context, wait time.Duration) error {
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Record overwrites the state from a completed response's headers. It returns
// false, leaving the state untouched, when any of the three headers is missing
// or malformed.
func (l *Limiter) Record(header http.Header) bool {
	state, ok := ParseHeaders(header)
	if !ok {
		return false
	}

	l.mu.Lock()
	l.state = state
	l.assumed = false
	close(l.recorded)
	l.recorded = make(chan struct{})
	observers := l.observers
	l.mu.Unlock()

	for _, observer := range observers {
		observer(state)
	}

	return true
}

// State returns a snapshot of the current window.
func (l *Limiter) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.state
}

// Policy returns the configured policy.
func (l *Limiter) Policy() docean.RateLimitPolicy {
	return l.policy
}

// ParseHeaders reads the RateLimit-Limit, RateLimit-Remaining and
// RateLimit-Reset headers.
func ParseHeaders(header http.Header) (State, bool) {
	limit, ok := intHeader(header, constants.HeaderRateLimitLimit)
	if !ok {
		return State{}, false
	}

	remaining, ok := intHeader(header, constants.HeaderRateLimitRemaining)
	if !ok {
		return State{}, false
	}

	reset, ok := intHeader(header, constants.HeaderRateLimitReset)
	if !ok {
		return State{}, false
	}

	return State{
		Limit:     int(limit),
		Remaining: int(remaining),
		ResetAt:   time.Unix(reset, 0),
		Known:     true,
	}, true
}

func intHeader(header http.Header, name string) (int64, bool) {
	raw := HeaderValue(header, name)
	if raw == "" {
		return 0, false
	}

	value, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || value < 0 {
		return 0, false
	}

	return value, true
}

// HeaderValue looks a header up case-insensitively, including in maps that
// were built by hand with non-canonical keys.
func HeaderValue(header http.Header, name string) string {
	if header == nil {
		return ""
	}

	if value := header.Get(name); value != "" {
		return value
	}

	for key, values := range header {
		if strings.EqualFold(key, name) && len(values) > 0 {
			return values[0]
		}
	}

	return ""
}
