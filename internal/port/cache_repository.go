package port

import (
	"context"
	"time"
)

type CacheRepository interface {
	// ReserveCode claims an order code, returns false if another order holds it
	ReserveCode(ctx context.Context, code, orderID string) (bool, error)

	// ReleaseCode frees a code, but only if orderID still holds it
	ReleaseCode(ctx context.Context, code, orderID string) error

	// SetIdempotency sets a key for idempotency check, returns false if already exists
	SetIdempotency(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// ReleaseIdempotency removes a key so a failed request can be retried
	ReleaseIdempotency(ctx context.Context, key string) error
}
