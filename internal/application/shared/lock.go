package shared

import (
	"context"
	"time"

	domain "github.com/erp/bomengine/internal/domain/shared"
)

// Locker serializes work on a key, across instances when backed by Redis
type Locker interface {
	// Obtain waits for the key until ctx is done or the locker gives up.
	// A lock that is never released expires after ttl.
	Obtain(ctx context.Context, key string, ttl time.Duration) (Lock, error)
}

// Lock is a held lock
type Lock interface {
	Release(ctx context.Context) error
}

// NewLockNotObtainedError reports contention on key
func NewLockNotObtainedError(key string) *domain.DomainError {
	return domain.NewDomainError(domain.CodeConcurrencyConflict,
		"Another operation is in progress for "+key+", retry later").
		WithDetail("lock_key", key)
}
