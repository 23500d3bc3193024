package port

import (
	"context"
	"time"
)

type IdempotencyStore interface {
	// SetIdempotency sets a key for idempotency check, returns false if already exists
	SetIdempotency(ctx context.Context, key string) (bool, error)

	// ClearIdempotency removes the key so a rejected request can be retried
	ClearIdempotency(ctx context.Context, key string) error
}

type LockManager interface {
	// AcquireLock returns a token when the lock was taken, ok is false if it is held elsewhere
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)

	// ReleaseLock deletes the lock only if it is still owned by token
	ReleaseLock(ctx context.Context, key, token string) error
}
