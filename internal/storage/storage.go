package storage

import (
	"context"
	"errors"
	"time"
)

// ErrPendingNotFound is returned when no pending authorization exists for an
// attempt, or when the record has already been taken or has expired.
var ErrPendingNotFound = errors.New("pending authorization not found")

// PendingAuthorization is the durable record persisted by the redirect
// transport before navigating away. The code verifier is sealed before it is
// written; durable storage never sees it in the clear.
type PendingAuthorization struct {
	AttemptID      string    `firestore:"attempt_id" json:"attempt_id"`
	State          string    `firestore:"state" json:"state"`
	SealedVerifier []byte    `firestore:"sealed_verifier" json:"sealed_verifier"`
	RedirectURI    string    `firestore:"redirect_uri" json:"redirect_uri"`
	ReturnTarget   string    `firestore:"return_target,omitempty" json:"return_target,omitempty"`
	CreatedAt      time.Time `firestore:"created_at" json:"created_at"`
	ExpiresAt      time.Time `firestore:"expires_at" json:"expires_at"`
}

// Expired reports whether the record's deadline has passed
func (p PendingAuthorization) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}

// PendingStore persists redirect-mode attempt records.
//
// Records are single-writer/single-reader per attempt: written once by the
// initiating side, consumed once by the resuming side. Take removes the
// record as part of the read, so a record is never read twice.
type PendingStore interface {
	// Put stores the record keyed by attempt ID
	Put(ctx context.Context, rec PendingAuthorization) error

	// Take retrieves and removes the record in one step. Missing or expired
	// records yield ErrPendingNotFound; expired records are removed.
	Take(ctx context.Context, attemptID string) (PendingAuthorization, error)

	// Delete removes the record if present
	Delete(ctx context.Context, attemptID string) error

	// CleanupExpired removes all expired records and returns how many
	CleanupExpired(ctx context.Context) (int, error)
}
