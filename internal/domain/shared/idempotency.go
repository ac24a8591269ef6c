package shared

import (
	"context"
	"time"
)

// DefaultIdempotencyTTL is how long a processed event id or a client
// Idempotency-Key for a production record is remembered.
const DefaultIdempotencyTTL = 24 * time.Hour

// IdempotencyStore remembers processed keys.
type IdempotencyStore interface {
	// MarkProcessed reports true only for the caller that marked the key first.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)
	IsProcessed(ctx context.Context, key string) (bool, error)
	Close() error
}
