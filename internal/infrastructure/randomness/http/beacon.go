package httprandomness

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gigledger/gigd/internal/core/ports"
)

const beaconTimeout = 10 * time.Second

type beaconResponse struct {
	Round      uint64 `json:"round"`
	Randomness string `json:"randomness"`
}

// source pulls the latest round from a public drand-style randomness beacon.
// The round number travels with every panel assignment so the draw stays
// auditable after the fact.
type source struct {
	beaconURL  string
	httpClient *http.Client
}

func NewRandomnessSource(beaconURL string) ports.RandomnessSource {
	return &source{
		beaconURL:  beaconURL,
		httpClient: &http.Client{Timeout: beaconTimeout},
	}
}

func (s *source) Latest(ctx context.Context) (*ports.Beacon, error) {
	url := fmt.Sprintf("%s/public/latest", s.beaconURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch randomness beacon: %s", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("randomness beacon returned %d", resp.StatusCode)
	}

	var round beaconResponse
	if err := json.NewDecoder(resp.Body).Decode(&round); err != nil {
		return nil, fmt.Errorf("malformed beacon response: %s", err)
	}
	value, err := hex.DecodeString(round.Randomness)
	if err != nil {
		return nil, fmt.Errorf("malformed beacon randomness: %s", err)
	}
	if len(value) == 0 {
		return nil, fmt.Errorf("beacon round %d carries no randomness", round.Round)
	}
	return &ports.Beacon{Round: round.Round, Value: value}, nil
}
