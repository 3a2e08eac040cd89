// Package natsnotify publishes rate limit snapshots to NATS so that other
// processes sharing the account can see how much quota is left.
package natsnotify

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/fivetwenty-io/docean/internal/constants"
	"github.com/fivetwenty-io/docean/pkg/docean"
)

// Static errors for err113 compliance.
var (
	ErrURLRequired = errors.New("NATS URL is required")
)

// Publisher is the subset of *nats.Conn the notifier needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Snapshot is the message published for each recorded quota window.
type Snapshot struct {
	Source    string    `json:"source"`
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
	Observed  time.Time `json:"observed_at"`
}

// Notifier turns rate limit observations into NATS messages. Publishing is
// best effort: failures are logged and never reach the API call that
// triggered them.
type Notifier struct {
	publisher Publisher
	subject   string
	source    string
	logger    docean.Logger
	now       func() time.Time
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithSubject overrides the default subject.
func WithSubject(subject string) Option {
	return func(n *Notifier) {
		if subject != "" {
			n.subject = subject
		}
	}
}

// WithSource tags snapshots with the publishing process.
func WithSource(source string) Option {
	return func(n *Notifier) {
		n.source = source
	}
}

// WithLogger sets the logger for publish failures.
func WithLogger(logger docean.Logger) Option {
	return func(n *Notifier) {
		n.logger = logger
	}
}

// New creates a Notifier publishing through publisher.
func New(publisher Publisher, opts ...Option) *Notifier {
	notifier := &Notifier{
		publisher: publisher,
		subject:   constants.DefaultNATSSubject,
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(notifier)
	}

	return notifier
}

// Subject returns the subject snapshots are published on.
func (n *Notifier) Subject() string {
	return n.subject
}

// Observe publishes state. Its signature matches docean.Config.RateLimitObserver.
func (n *Notifier) Observe(state docean.RateLimit) {
	err := n.Publish(state)
	if err != nil && n.logger != nil {
		n.logger.Warn("Failed to publish rate limit snapshot", map[string]interface{}{
			"subject": n.subject,
			"error":   err.Error(),
		})
	}
}

// Publish sends one snapshot.
func (n *Notifier) Publish(state docean.RateLimit) error {
	data, err := json.Marshal(Snapshot{
		Source:    n.source,
		Limit:     state.Limit,
		Remaining: state.Remaining,
		ResetAt:   state.ResetAt.UTC(),
		Observed:  n.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	err = n.publisher.Publish(n.subject, data)
	if err != nil {
		return fmt.Errorf("publishing to %s: %w", n.subject, err)
	}

	return nil
}

// Connect dials a NATS server for use as a Publisher. The caller owns the
// connection and should Drain it on shutdown.
func Connect(url, name string) (*nats.Conn, error) {
	if url == "" {
		return nil, ErrURLRequired
	}

	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.Timeout(constants.ShortHTTPTimeout),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}

	return conn, nil
}
