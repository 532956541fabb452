package shared

import (
	"context"
	"time"
)

// IdempotencyStore claims keys so that concurrent deliveries of the same
// external event are handled once.
type IdempotencyStore interface {
	// MarkProcessed claims key for ttl. It returns false if the key was
	// already claimed.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release drops a claim so that a later delivery can retry
	Release(ctx context.Context, key string) error

	Close() error
}
