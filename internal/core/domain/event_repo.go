package domain

import "context"

// AppliedEventRepository is the append-only idempotency table. A key present
// here means the event was fully applied, side effects included.
type AppliedEventRepository interface {
	Add(ctx context.Context, key EventKey) error
	Contains(ctx context.Context, key EventKey) (bool, error)
}
