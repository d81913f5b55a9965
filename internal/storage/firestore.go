package storage

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/maxplatform/signin-front/internal/log"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var _ PendingStore = (*FirestorePendingStore)(nil)

// FirestorePendingStore persists pending authorizations in Google Cloud
// Firestore so redirect-mode attempts survive instance restarts and work
// across replicas.
//
// Error handling strategy:
//   - Take must be transactional: the read and the delete happen atomically
//     so a record is consumed exactly once even with concurrent resumes.
//   - Cleanup failures are logged per document and do not abort the sweep.
type FirestorePendingStore struct {
	client     *firestore.Client
	collection string
}

// NewFirestorePendingStore creates a Firestore-backed pending store
func NewFirestorePendingStore(ctx context.Context, projectID, collection string) (*FirestorePendingStore, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	if collection == "" {
		collection = "pending_authorizations"
	}
	return &FirestorePendingStore{client: client, collection: collection}, nil
}

// Put stores the record keyed by attempt ID
func (s *FirestorePendingStore) Put(ctx context.Context, rec PendingAuthorization) error {
	_, err := s.client.Collection(s.collection).Doc(rec.AttemptID).Set(ctx, rec)
	if err != nil {
		return fmt.Errorf("failed to store pending authorization: %w", err)
	}
	return nil
}

// Take retrieves and removes the record in a single transaction
func (s *FirestorePendingStore) Take(ctx context.Context, attemptID string) (PendingAuthorization, error) {
	docRef := s.client.Collection(s.collection).Doc(attemptID)

	var rec PendingAuthorization
	err := s.client.RunTransaction(ctx, func(_ context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(docRef)
		if err != nil {
			return err
		}
		if err := snap.DataTo(&rec); err != nil {
			return fmt.Errorf("failed to decode pending authorization: %w", err)
		}
		return tx.Delete(docRef)
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return PendingAuthorization{}, ErrPendingNotFound
		}
		return PendingAuthorization{}, fmt.Errorf("failed to take pending authorization: %w", err)
	}

	if rec.Expired(time.Now()) {
		return PendingAuthorization{}, ErrPendingNotFound
	}
	return rec, nil
}

// Delete removes the record if present
func (s *FirestorePendingStore) Delete(ctx context.Context, attemptID string) error {
	_, err := s.client.Collection(s.collection).Doc(attemptID).Delete(ctx)
	if err != nil && status.Code(err) != codes.NotFound {
		return fmt.Errorf("failed to delete pending authorization: %w", err)
	}
	return nil
}

// CleanupExpired removes all records whose deadline has passed
func (s *FirestorePendingStore) CleanupExpired(ctx context.Context) (int, error) {
	iter := s.client.Collection(s.collection).
		Where("expires_at", "<", time.Now()).
		Documents(ctx)
	defer iter.Stop()

	count := 0
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return count, fmt.Errorf("failed to iterate expired records: %w", err)
		}
		if _, err := doc.Ref.Delete(ctx); err != nil {
			log.LogErrorWithFields("storage", "Failed to delete expired pending authorization", map[string]any{
				"attempt": doc.Ref.ID,
				"error":   err.Error(),
			})
			continue
		}
		count++
	}
	return count, nil
}

// Close releases the underlying Firestore client
func (s *FirestorePendingStore) Close() error {
	return s.client.Close()
}
