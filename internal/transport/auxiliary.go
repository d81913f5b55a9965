package transport

import (
	"context"
	"errors"
	"time"

	"github.com/maxplatform/signin-front/internal/log"
	"github.com/maxplatform/signin-front/internal/oauth"
	"github.com/maxplatform/signin-front/internal/origin"
)

const (
	// DefaultAttemptTimeout bounds how long an attempt may stay pending
	DefaultAttemptTimeout = 10 * time.Minute

	// DefaultPollInterval is how often the auxiliary context is checked for
	// having been closed by the user
	DefaultPollInterval = time.Second
)

// AuxiliaryTransport opens a secondary browsing context at the authorization
// URL and waits for a single origin-trusted completion message.
//
// Postconditions on every exit path: the subscription is removed, the timer
// and ticker are stopped, and the auxiliary context is closed.
type AuxiliaryTransport struct {
	launcher     Launcher
	bus          *Bus
	origins      *origin.Validator
	ownOrigin    string
	timeout      time.Duration
	pollInterval time.Duration
}

// NewAuxiliaryTransport creates an auxiliary transport. ownOrigin is the
// origin this side expects completion messages to be addressed to.
func NewAuxiliaryTransport(launcher Launcher, bus *Bus, origins *origin.Validator, ownOrigin string) *AuxiliaryTransport {
	return &AuxiliaryTransport{
		launcher:     launcher,
		bus:          bus,
		origins:      origins,
		ownOrigin:    ownOrigin,
		timeout:      DefaultAttemptTimeout,
		pollInterval: DefaultPollInterval,
	}
}

// WithTimeout overrides the attempt deadline
func (t *AuxiliaryTransport) WithTimeout(d time.Duration) *AuxiliaryTransport {
	t.timeout = d
	return t
}

// WithPollInterval overrides the liveness polling interval
func (t *AuxiliaryTransport) WithPollInterval(d time.Duration) *AuxiliaryTransport {
	t.pollInterval = d
	return t
}

// Deliver runs one attempt end to end: open the context, wait for the first
// well-formed message from a trusted origin, and resolve. Messages from
// untrusted origins are logged and dropped without resolving the attempt.
func (t *AuxiliaryTransport) Deliver(ctx context.Context, attemptID, authURL string) (*oauth.Outcome, error) {
	// Subscribe before opening the context: a completion relayed in the
	// window between opening and subscribing would otherwise be refused by
	// the bus and the attempt would wait out its deadline.
	ch, unsubscribe := t.bus.Subscribe(attemptID, t.ownOrigin)
	defer unsubscribe()

	aux, err := t.launcher.Open(authURL)
	if err != nil {
		return nil, oauth.NewFlowError(oauth.KindUserCancelled, "auxiliary context was blocked: "+err.Error())
	}
	defer func() {
		if err := aux.Close(); err != nil {
			log.LogDebugWithFields("auxiliary", "Failed to close auxiliary context", map[string]any{
				"error": err.Error(),
			})
		}
	}()

	timer := time.NewTimer(t.timeout)
	defer timer.Stop()
	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case env := <-ch:
			if !t.origins.Trusted(env.Origin) {
				// Untrusted senders must not be able to inject an outcome.
				// Dropped silently, not surfaced; keep waiting.
				log.LogWarnWithFields("auxiliary", "Dropping message from untrusted origin", map[string]any{
					"origin": env.Origin,
				})
				continue
			}

			outcome, err := env.Message.Outcome()
			if err != nil {
				if errors.Is(err, oauth.ErrMalformedMessage) {
					log.LogWarnWithFields("auxiliary", "Dropping malformed message from trusted origin", map[string]any{
						"origin": env.Origin,
						"type":   env.Message.Type,
					})
					continue
				}
				return nil, err
			}
			return outcome, nil

		case <-ticker.C:
			if !aux.Alive() {
				return nil, oauth.NewFlowError(oauth.KindUserCancelled, "auxiliary context closed before completing authorization")
			}

		case <-timer.C:
			return nil, oauth.NewFlowError(oauth.KindTimeout, "no authorization completion before deadline")

		case <-ctx.Done():
			return nil, oauth.NewFlowError(oauth.KindUserCancelled, "attempt cancelled: "+ctx.Err().Error())
		}
	}
}
