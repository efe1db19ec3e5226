package ports

import "context"

// Beacon is one round of a verifiable public randomness source. Value is the
// beacon output; Round makes the draw auditable against the source.
type Beacon struct {
	Round uint64
	Value []byte
}

type RandomnessSource interface {
	Latest(ctx context.Context) (*Beacon, error)
}
