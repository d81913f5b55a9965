package transport

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/maxplatform/signin-front/internal/crypto"
	"github.com/maxplatform/signin-front/internal/log"
	"github.com/maxplatform/signin-front/internal/oauth"
	"github.com/maxplatform/signin-front/internal/storage"
)

// RedirectTransport persists pending attempt state, lets the current context
// navigate to the provider, and resumes processing when the provider
// redirects back.
//
// The persisted record is removed exactly once: Resume takes it as part of
// the read, so a matched resume, a state mismatch, and an expired record all
// leave nothing behind.
type RedirectTransport struct {
	pending storage.PendingStore
	sealer  *crypto.Sealer
	ttl     time.Duration
}

// Resumed is what a successfully matched resume hands back to the flow
// engine: the authorization code plus the verifier and return target retained
// from the original attempt.
type Resumed struct {
	Code         string
	CodeVerifier string
	ReturnTarget string
}

// NewRedirectTransport creates a redirect transport. ttl bounds how long a
// persisted record stays resumable.
func NewRedirectTransport(pending storage.PendingStore, sealer *crypto.Sealer, ttl time.Duration) *RedirectTransport {
	if ttl <= 0 {
		ttl = DefaultAttemptTimeout
	}
	return &RedirectTransport{pending: pending, sealer: sealer, ttl: ttl}
}

// Prepare persists the attempt record. The caller then performs the actual
// navigation to req.URL; nothing else about the attempt lives in memory.
func (t *RedirectTransport) Prepare(ctx context.Context, req *oauth.AuthorizationRequest) error {
	sealed, err := t.sealer.Seal([]byte(req.CodeVerifier))
	if err != nil {
		return fmt.Errorf("failed to seal code verifier: %w", err)
	}

	now := time.Now()
	rec := storage.PendingAuthorization{
		AttemptID:      req.AttemptID,
		State:          req.State,
		SealedVerifier: sealed,
		RedirectURI:    req.RedirectURI,
		ReturnTarget:   req.ReturnTarget,
		CreatedAt:      now,
		ExpiresAt:      now.Add(t.ttl),
	}
	if err := t.pending.Put(ctx, rec); err != nil {
		return fmt.Errorf("failed to persist pending authorization: %w", err)
	}

	log.LogDebugWithFields("redirect", "Persisted pending authorization", map[string]any{
		"expires_at": rec.ExpiresAt,
	})
	return nil
}

// Resume processes the provider's return. The pending record is consumed
// first, so every path below — provider error, malformed callback, state
// mismatch, success — leaves the store clean.
func (t *RedirectTransport) Resume(ctx context.Context, attemptID string, q url.Values) (*Resumed, error) {
	rec, err := t.pending.Take(ctx, attemptID)
	if err != nil {
		if errors.Is(err, storage.ErrPendingNotFound) {
			return nil, oauth.NewFlowError(oauth.KindTimeout, "pending authorization is missing or expired")
		}
		return nil, fmt.Errorf("failed to read pending authorization: %w", err)
	}

	outcome, err := oauth.ParseCallback(q)
	if err != nil {
		return nil, err
	}

	if outcome.State != rec.State {
		// Possible CSRF attempt. Fail closed; never proceed to exchange.
		log.LogWarnWithFields("redirect", "State mismatch on resume", map[string]any{
			"attempt": attemptID,
		})
		return nil, &oauth.FlowError{
			Kind:        oauth.KindStateMismatch,
			Description: "returned state does not match the pending authorization",
			State:       outcome.State,
		}
	}

	verifier, err := t.sealer.Open(rec.SealedVerifier)
	if err != nil {
		return nil, fmt.Errorf("failed to unseal code verifier: %w", err)
	}

	return &Resumed{
		Code:         outcome.Code,
		CodeVerifier: string(verifier),
		ReturnTarget: rec.ReturnTarget,
	}, nil
}
