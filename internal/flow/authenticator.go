// Package flow is the sign-in flow engine: one control flow over both
// transports, from building the authorization request to populating the
// session store.
package flow

import (
	"context"
	"net/url"
	"sync"

	"github.com/maxplatform/signin-front/internal/guard"
	"github.com/maxplatform/signin-front/internal/log"
	"github.com/maxplatform/signin-front/internal/oauth"
	"github.com/maxplatform/signin-front/internal/session"
	"github.com/maxplatform/signin-front/internal/transport"
)

// Authenticator orchestrates sign-in attempts. It is the single writer of
// the session store.
type Authenticator struct {
	builder   *oauth.RequestBuilder
	selector  *transport.Selector
	auxiliary *transport.AuxiliaryTransport
	redirect  *transport.RedirectTransport
	exchanger *oauth.ExchangeClient
	sessions  *session.Store
	guard     *guard.ProcessingGuard
	bus       *transport.Bus
	ownOrigin string

	// state → attemptID for attempts currently waiting on the auxiliary
	// transport; lets the callback context route its relay message.
	activeStates sync.Map
}

// Options configures a single sign-in attempt
type Options struct {
	// ReturnTarget is an optional platform URL to resume after success
	ReturnTarget string

	// ForceRedirect requests the redirect transport even when an auxiliary
	// context could be opened
	ForceRedirect bool
}

// Result is a resolved, successful attempt
type Result struct {
	Session      session.Session
	ReturnTarget string
}

// Started describes a redirect-mode attempt that is now pending: the caller
// must navigate to AuthorizationURL and later call Resume with the provider's
// callback parameters.
type Started struct {
	AttemptID        string
	AuthorizationURL string
}

// New wires a flow engine from its collaborators
func New(
	builder *oauth.RequestBuilder,
	selector *transport.Selector,
	auxiliary *transport.AuxiliaryTransport,
	redirect *transport.RedirectTransport,
	exchanger *oauth.ExchangeClient,
	sessions *session.Store,
	bus *transport.Bus,
	ownOrigin string,
) *Authenticator {
	return &Authenticator{
		builder:   builder,
		selector:  selector,
		auxiliary: auxiliary,
		redirect:  redirect,
		exchanger: exchanger,
		sessions:  sessions,
		guard:     guard.New(),
		bus:       bus,
		ownOrigin: ownOrigin,
	}
}

// Mode returns the transport decision for the given options. The decision is
// made once per attempt; callers dispatch to SignIn or StartRedirect
// accordingly and never switch mid-attempt.
func (a *Authenticator) Mode(opts Options) transport.Mode {
	return a.selector.Select(transport.Intent{ForceRedirect: opts.ForceRedirect})
}

// SignIn runs an auxiliary-mode attempt to completion: it opens the
// auxiliary context, waits for the completion message, exchanges the code
// with the locally retained verifier, and populates the session store.
//
// The caller's goroutine blocks until the attempt resolves; every failure is
// a *oauth.FlowError and leaves the session store untouched.
func (a *Authenticator) SignIn(ctx context.Context, opts Options) (*Result, error) {
	req, err := a.builder.Build(opts.ReturnTarget)
	if err != nil {
		return nil, err
	}

	a.activeStates.Store(req.State, req.AttemptID)
	defer a.activeStates.Delete(req.State)

	log.LogInfoWithFields("flow", "Starting auxiliary sign-in attempt", map[string]any{
		"client_id": req.ClientID,
	})

	outcome, err := a.auxiliary.Deliver(ctx, req.AttemptID, req.URL)
	if err != nil {
		return nil, err
	}

	if outcome.State != req.State {
		return nil, &oauth.FlowError{
			Kind:        oauth.KindStateMismatch,
			Description: "completion message state does not match this attempt",
			State:       outcome.State,
		}
	}

	return a.finish(ctx, req.AttemptID, outcome.Code, req.CodeVerifier, req.ReturnTarget)
}

// StartRedirect begins a redirect-mode attempt: the pending record is
// persisted and the authorization URL returned for the caller to navigate to.
func (a *Authenticator) StartRedirect(ctx context.Context, opts Options) (*Started, error) {
	req, err := a.builder.Build(opts.ReturnTarget)
	if err != nil {
		return nil, err
	}

	if err := a.redirect.Prepare(ctx, req); err != nil {
		return nil, err
	}

	log.LogInfoWithFields("flow", "Starting redirect sign-in attempt", map[string]any{
		"client_id": req.ClientID,
	})

	return &Started{AttemptID: req.AttemptID, AuthorizationURL: req.URL}, nil
}

// Resume completes a redirect-mode attempt from the provider's callback
// parameters. Re-entrant invocations for the same attempt are refused.
func (a *Authenticator) Resume(ctx context.Context, attemptID string, q url.Values) (*Result, error) {
	resumed, err := a.redirect.Resume(ctx, attemptID, q)
	if err != nil {
		return nil, err
	}
	return a.finish(ctx, attemptID, resumed.Code, resumed.CodeVerifier, resumed.ReturnTarget)
}

// finish is the shared terminal step for both transports: guard, exchange,
// store. The guard is checked before any side-effecting step and cleared on
// every exit path, which is what keeps a single code from being redeemed
// twice.
func (a *Authenticator) finish(ctx context.Context, attemptID, code, verifier, returnTarget string) (*Result, error) {
	if !a.guard.Begin(attemptID) {
		log.LogWarnWithFields("flow", "Blocked re-entrant callback processing", map[string]any{
			"attempt": attemptID,
		})
		return nil, oauth.NewFlowError(oauth.KindDuplicateProcessing, "this attempt is already being processed")
	}
	defer a.guard.End(attemptID)

	sess, err := a.exchanger.Exchange(ctx, code, verifier)
	if err != nil {
		return nil, err
	}

	a.sessions.Set(sess)
	log.LogInfoWithFields("flow", "Sign-in attempt completed", map[string]any{
		"attempt": attemptID,
	})
	return &Result{Session: sess, ReturnTarget: returnTarget}, nil
}

// AuxiliaryAttempt reports whether a callback with the given state belongs
// to an attempt currently waiting on the auxiliary transport. This is the
// Go-side equivalent of "an opener relationship exists".
func (a *Authenticator) AuxiliaryAttempt(state string) (string, bool) {
	if state == "" {
		return "", false
	}
	if id, ok := a.activeStates.Load(state); ok {
		return id.(string), true
	}
	return "", false
}

// SoleAuxiliaryAttempt returns the one attempt currently waiting on the
// auxiliary transport, if exactly one is. Providers may omit state on error
// callbacks, leaving nothing to route by; with a single attempt pending the
// destination is still unambiguous. With zero or several, it reports false.
func (a *Authenticator) SoleAuxiliaryAttempt() (string, bool) {
	var id string
	count := 0
	a.activeStates.Range(func(_, v any) bool {
		id = v.(string)
		count++
		return count < 2
	})
	if count == 1 {
		return id, true
	}
	return "", false
}

// RelayCallback runs in the callback context of an auxiliary-mode attempt:
// it packages the callback parameters as a cross-context message and sends
// it to the initiating context at its own concrete origin. No token exchange
// happens here; the verifier lives with the initiator.
func (a *Authenticator) RelayCallback(attemptID string, q url.Values) bool {
	msg := oauth.MessageFromCallback(q)
	return a.bus.Publish(attemptID, transport.Envelope{
		Origin:  a.ownOrigin,
		Target:  a.ownOrigin,
		Message: msg,
	})
}

// Logout clears the current session
func (a *Authenticator) Logout() {
	a.sessions.Clear()
	log.Logf("Session cleared on logout")
}

// Invalidate clears the current session in response to an authoritative
// unauthenticated signal from an API call.
func (a *Authenticator) Invalidate() {
	a.sessions.Clear()
	log.LogWarnWithFields("flow", "Session cleared after unauthenticated signal", nil)
}

// Sessions exposes the session store for read-side consumers
func (a *Authenticator) Sessions() *session.Store {
	return a.sessions
}

// PendingWaiters returns how many attempts are currently waiting on the
// auxiliary transport. Used by tests to assert no leaked subscriptions.
func (a *Authenticator) PendingWaiters() int {
	count := 0
	a.activeStates.Range(func(_, _ any) bool {
		count++
		return true
	})
	return count
}
