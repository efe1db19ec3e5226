package httpmetadata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gigledger/gigd/internal/core/ports"
)

const fetchTimeout = 15 * time.Second

// store resolves metadata hashes against a content-addressed HTTP gateway.
// The hash is the address: the gateway cannot substitute content without the
// caller noticing a mismatch on chain.
type store struct {
	gatewayURL string
	httpClient *http.Client
}

func NewMetadataStore(gatewayURL string) ports.MetadataStore {
	return &store{
		gatewayURL: gatewayURL,
		httpClient: &http.Client{Timeout: fetchTimeout},
	}
}

func (s *store) FetchByHash(ctx context.Context, hash string) (*ports.JobMetadata, error) {
	url := fmt.Sprintf("%s/%s", s.gatewayURL, hash)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch metadata %s: %s", hash, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("metadata gateway returned %d for %s", resp.StatusCode, hash)
	}

	meta := &ports.JobMetadata{}
	if err := json.NewDecoder(resp.Body).Decode(meta); err != nil {
		return nil, fmt.Errorf("malformed metadata document %s: %s", hash, err)
	}
	return meta, nil
}
