// Package transport implements the two delivery strategies for a sign-in
// attempt: an auxiliary browsing context that reports back over a message
// bus, and a full redirect with a persisted pending record.
package transport

import "github.com/pkg/browser"

// AuxiliaryContext is a handle on a secondary browsing context hosting the
// provider's consent UI.
type AuxiliaryContext interface {
	// Alive reports whether the context is still open. Transports poll this
	// to detect the user closing the context before completing.
	Alive() bool

	// Close tears the context down. Safe to call after the context has
	// already closed itself.
	Close() error
}

// Launcher opens auxiliary contexts. A nil Launcher means the environment
// cannot open one and the selector must choose redirect mode.
type Launcher interface {
	Open(url string) (AuxiliaryContext, error)
}

// BrowserLauncher opens the system browser. The spawned browser is detached:
// its lifecycle cannot be observed or controlled, so Alive always reports
// true and the attempt deadline is the only backstop.
type BrowserLauncher struct{}

func (BrowserLauncher) Open(url string) (AuxiliaryContext, error) {
	if err := browser.OpenURL(url); err != nil {
		return nil, err
	}
	return detachedContext{}, nil
}

type detachedContext struct{}

func (detachedContext) Alive() bool  { return true }
func (detachedContext) Close() error { return nil }
