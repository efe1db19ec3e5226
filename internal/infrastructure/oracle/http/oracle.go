package httporacle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gigledger/gigd/internal/core/ports"
)

const quoteTimeout = 10 * time.Second

type quoteResponse struct {
	AssetID       string `json:"assetId"`
	PriceCents    uint64 `json:"priceCents"`
	UnixTimestamp int64  `json:"timestamp"`
}

// oracle quotes fiat valuations from a price feed. Quotes older than the
// staleness window are refused: a display valuation computed from a stale
// price is worse than no valuation.
type oracle struct {
	feedURL         string
	stalenessWindow time.Duration
	httpClient      *http.Client
	now             func() time.Time
}

func NewPriceOracle(feedURL string, stalenessWindow time.Duration) ports.PriceOracle {
	return &oracle{
		feedURL:         feedURL,
		stalenessWindow: stalenessWindow,
		httpClient:      &http.Client{Timeout: quoteTimeout},
		now:             time.Now,
	}
}

func (o *oracle) Quote(ctx context.Context, assetID string, amount uint64) (uint64, error) {
	url := fmt.Sprintf("%s/v1/price/%s", o.feedURL, assetID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch price for %s: %s", assetID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("price feed returned %d for %s", resp.StatusCode, assetID)
	}

	var quote quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&quote); err != nil {
		return 0, fmt.Errorf("malformed price quote for %s: %s", assetID, err)
	}

	age := o.now().Sub(time.Unix(quote.UnixTimestamp, 0))
	if age > o.stalenessWindow {
		return 0, fmt.Errorf("%s quote is %s old: %w", assetID, age, ports.ErrStaleQuote)
	}
	return amount * quote.PriceCents, nil
}
