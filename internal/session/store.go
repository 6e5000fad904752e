package session

import "context"

// Store persists session records. Implementations return sentinel.ErrNotFound
// (possibly wrapped) for unknown or evicted sessions.
type Store interface {
	Find(ctx context.Context, id string) (Record, error)
	Save(ctx context.Context, rec Record) error
	Delete(ctx context.Context, id string) error
}
