package ports

import (
	"context"
	"errors"
)

// ErrStaleQuote is returned when the oracle's latest quote is older than the
// configured staleness window. Callers must not silently accept it.
var ErrStaleQuote = errors.New("price quote is stale")

// PriceOracle converts an asset amount to its fiat-equivalent value in cents.
type PriceOracle interface {
	Quote(ctx context.Context, assetID string, amount uint64) (uint64, error)
}
