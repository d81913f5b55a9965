package transport

import (
	"context"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/maxplatform/signin-front/internal/oauth"
	"github.com/maxplatform/signin-front/internal/origin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeContext is an auxiliary context whose liveness the test controls
type fakeContext struct {
	mu     sync.Mutex
	alive  bool
	closed bool
}

func (c *fakeContext) Alive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.alive
}

func (c *fakeContext) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.alive = false
	c.closed = true
	return nil
}

func (c *fakeContext) userCloses() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.alive = false
}

type fakeLauncher struct {
	ctx       *fakeContext
	openErr   error
	openedURL string
}

func (l *fakeLauncher) Open(u string) (AuxiliaryContext, error) {
	if l.openErr != nil {
		return nil, l.openErr
	}
	l.openedURL = u
	return l.ctx, nil
}

func newTestTransport(t *testing.T, launcher Launcher, bus *Bus) *AuxiliaryTransport {
	t.Helper()
	origins, err := origin.NewValidator([]string{testOrigin})
	require.NoError(t, err)
	return NewAuxiliaryTransport(launcher, bus, origins, testOrigin).
		WithTimeout(time.Second).
		WithPollInterval(10 * time.Millisecond)
}

func TestAuxiliaryDeliverSuccess(t *testing.T) {
	bus := NewBus()
	launcher := &fakeLauncher{ctx: &fakeContext{alive: true}}
	tr := newTestTransport(t, launcher, bus)

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Give Deliver a moment to subscribe, then relay the callback
		assert.Eventually(t, func() bool {
			return bus.Publish("attempt-1", successEnvelope(testOrigin))
		}, time.Second, 5*time.Millisecond)
	}()

	outcome, err := tr.Deliver(context.Background(), "attempt-1", "https://auth.example.com/oauth2/auth")
	<-done
	require.NoError(t, err)
	assert.Equal(t, "abc123", outcome.Code)
	assert.Equal(t, "state-1", outcome.State)
	assert.Equal(t, "https://auth.example.com/oauth2/auth", launcher.openedURL)

	// All resources released: subscription gone, context closed
	assert.Equal(t, 0, bus.SubscriberCount())
	assert.True(t, launcher.ctx.closed)
}

// relayOnOpenLauncher publishes the completion message synchronously from
// Open, before Deliver's wait loop has started
type relayOnOpenLauncher struct {
	bus       *Bus
	delivered bool
}

func (l *relayOnOpenLauncher) Open(string) (AuxiliaryContext, error) {
	l.delivered = l.bus.Publish("attempt-1", successEnvelope(testOrigin))
	return &fakeContext{alive: true}, nil
}

func TestAuxiliaryDeliverCompletionDuringOpen(t *testing.T) {
	bus := NewBus()
	launcher := &relayOnOpenLauncher{bus: bus}
	tr := newTestTransport(t, launcher, bus)

	// The subscription must already exist while the context is opening, so a
	// callback that races the open cannot be lost.
	outcome, err := tr.Deliver(context.Background(), "attempt-1", "https://auth.example.com/oauth2/auth")
	require.NoError(t, err)
	assert.True(t, launcher.delivered)
	assert.Equal(t, "abc123", outcome.Code)
	assert.Equal(t, 0, bus.SubscriberCount())
}

func TestAuxiliaryDeliverBlockedContext(t *testing.T) {
	bus := NewBus()
	launcher := &fakeLauncher{openErr: assert.AnError}
	tr := newTestTransport(t, launcher, bus)

	_, err := tr.Deliver(context.Background(), "attempt-1", "https://auth.example.com/oauth2/auth")
	fe, ok := oauth.AsFlowError(err)
	require.True(t, ok)
	assert.Equal(t, oauth.KindUserCancelled, fe.Kind)
	assert.Equal(t, 0, bus.SubscriberCount())
}

func TestAuxiliaryDeliverUserClosesContext(t *testing.T) {
	bus := NewBus()
	ctx := &fakeContext{alive: true}
	tr := newTestTransport(t, &fakeLauncher{ctx: ctx}, bus)

	go func() {
		time.Sleep(30 * time.Millisecond)
		ctx.userCloses()
	}()

	start := time.Now()
	_, err := tr.Deliver(context.Background(), "attempt-1", "https://auth.example.com/oauth2/auth")
	fe, ok := oauth.AsFlowError(err)
	require.True(t, ok)
	assert.Equal(t, oauth.KindUserCancelled, fe.Kind)

	// Detected by polling, well before the attempt deadline
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, 0, bus.SubscriberCount())
}

func TestAuxiliaryDeliverTimeout(t *testing.T) {
	bus := NewBus()
	tr := newTestTransport(t, &fakeLauncher{ctx: &fakeContext{alive: true}}, bus).
		WithTimeout(50 * time.Millisecond)

	_, err := tr.Deliver(context.Background(), "attempt-1", "https://auth.example.com/oauth2/auth")
	fe, ok := oauth.AsFlowError(err)
	require.True(t, ok)
	assert.Equal(t, oauth.KindTimeout, fe.Kind)
	assert.Equal(t, 0, bus.SubscriberCount())
}

func TestAuxiliaryDeliverDropsUntrustedOrigin(t *testing.T) {
	bus := NewBus()
	launcher := &fakeLauncher{ctx: &fakeContext{alive: true}}
	tr := newTestTransport(t, launcher, bus).WithTimeout(200 * time.Millisecond)

	go func() {
		// A forged message from an untrusted origin, addressed correctly
		assert.Eventually(t, func() bool {
			return bus.Publish("attempt-1", Envelope{
				Origin: "https://evil.example.com",
				Target: testOrigin,
				Message: oauth.CrossContextMessage{
					Type:  oauth.MessageSuccess,
					Code:  "forged-code",
					State: "state-1",
				},
			})
		}, time.Second, 5*time.Millisecond)
	}()

	// The forged message must not resolve the attempt; it times out instead
	_, err := tr.Deliver(context.Background(), "attempt-1", "https://auth.example.com/oauth2/auth")
	fe, ok := oauth.AsFlowError(err)
	require.True(t, ok)
	assert.Equal(t, oauth.KindTimeout, fe.Kind)
	// OriginMismatch is never surfaced to the caller
	assert.NotEqual(t, oauth.KindOriginMismatch, fe.Kind)
}

func TestAuxiliaryDeliverDropsMalformedThenAcceptsValid(t *testing.T) {
	bus := NewBus()
	tr := newTestTransport(t, &fakeLauncher{ctx: &fakeContext{alive: true}}, bus)

	go func() {
		assert.Eventually(t, func() bool {
			return bus.Publish("attempt-1", Envelope{
				Origin:  testOrigin,
				Target:  testOrigin,
				Message: oauth.CrossContextMessage{Type: "GARBAGE"},
			})
		}, time.Second, 5*time.Millisecond)
		bus.Publish("attempt-1", successEnvelope(testOrigin))
	}()

	outcome, err := tr.Deliver(context.Background(), "attempt-1", "https://auth.example.com/oauth2/auth")
	require.NoError(t, err)
	assert.Equal(t, "abc123", outcome.Code)
}

func TestAuxiliaryDeliverProviderError(t *testing.T) {
	bus := NewBus()
	tr := newTestTransport(t, &fakeLauncher{ctx: &fakeContext{alive: true}}, bus)

	go func() {
		assert.Eventually(t, func() bool {
			return bus.Publish("attempt-1", Envelope{
				Origin: testOrigin,
				Target: testOrigin,
				Message: oauth.MessageFromCallback(url.Values{
					"error":             {"access_denied"},
					"error_description": {"user declined"},
					"state":             {"state-1"},
				}),
			})
		}, time.Second, 5*time.Millisecond)
	}()

	_, err := tr.Deliver(context.Background(), "attempt-1", "https://auth.example.com/oauth2/auth")
	fe, ok := oauth.AsFlowError(err)
	require.True(t, ok)
	assert.Equal(t, oauth.KindProviderError, fe.Kind)
	assert.Equal(t, "access_denied", fe.ProviderCode)
	assert.Equal(t, 0, bus.SubscriberCount())
}

func TestAuxiliaryDeliverContextCancelled(t *testing.T) {
	bus := NewBus()
	tr := newTestTransport(t, &fakeLauncher{ctx: &fakeContext{alive: true}}, bus)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := tr.Deliver(ctx, "attempt-1", "https://auth.example.com/oauth2/auth")
	fe, ok := oauth.AsFlowError(err)
	require.True(t, ok)
	assert.Equal(t, oauth.KindUserCancelled, fe.Kind)
	assert.Equal(t, 0, bus.SubscriberCount())
}
