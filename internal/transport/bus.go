package transport

import (
	"sync"

	"github.com/maxplatform/signin-front/internal/log"
	"github.com/maxplatform/signin-front/internal/oauth"
)

// Envelope carries a cross-context message together with its sender origin
// and its intended receiver origin. Target is always a concrete origin,
// never a wildcard.
type Envelope struct {
	Origin  string
	Target  string
	Message oauth.CrossContextMessage
}

// Bus is the in-process message channel between the callback context and the
// initiating context. Subscriptions are bounded: one per attempt, removed by
// the returned unsubscribe function on every resolution path.
type Bus struct {
	mu   sync.Mutex
	subs map[string]*subscriber
}

type subscriber struct {
	origin string
	ch     chan Envelope
}

// NewBus creates an empty bus
func NewBus() *Bus {
	return &Bus{subs: make(map[string]*subscriber)}
}

// Subscribe registers the single listener for an attempt. origin is the
// receiver's own origin; envelopes addressed to any other target are not
// delivered. The unsubscribe function is idempotent.
func (b *Bus) Subscribe(attemptID, origin string) (<-chan Envelope, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &subscriber{origin: origin, ch: make(chan Envelope, 4)}
	b.subs[attemptID] = sub

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if b.subs[attemptID] == sub {
				delete(b.subs, attemptID)
			}
		})
	}
	return sub.ch, unsubscribe
}

// Publish delivers an envelope to the attempt's listener. Delivery is
// refused when no listener exists or when the envelope's target does not
// match the listener's origin. Sends never block: the subscription buffer
// absorbs duplicates, and an attempt that has already resolved simply stops
// reading.
func (b *Bus) Publish(attemptID string, env Envelope) bool {
	b.mu.Lock()
	sub, ok := b.subs[attemptID]
	b.mu.Unlock()

	if !ok {
		log.LogDebugWithFields("bus", "Dropping message for unknown attempt", map[string]any{
			"origin": env.Origin,
		})
		return false
	}
	if env.Target != sub.origin {
		log.LogWarnWithFields("bus", "Dropping message addressed to wrong origin", map[string]any{
			"target":   env.Target,
			"expected": sub.origin,
		})
		return false
	}

	select {
	case sub.ch <- env:
		return true
	default:
		return false
	}
}

// SubscriberCount returns the number of live subscriptions
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
