package application

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"sort"

	"github.com/gigledger/gigd/internal/core/domain"
	"github.com/gigledger/gigd/internal/core/ports"
	log "github.com/sirupsen/logrus"
)

type selectionCriteria struct {
	ClientRegion      string
	FreelancerRegion  string
	RequiredExpertise string
	LoadCap           int
	Exclude           []string
}

// selectionEngine produces a fair, reproducible arbitrator panel for a
// dispute and submits it to the ledger for binding assignment. The draw is
// deterministic given the filtered pool and the beacon value, so any third
// party can audit a selection against the public randomness round.
type selectionEngine struct {
	repoManager ports.RepoManager
	randomness  ports.RandomnessSource
	ledger      ports.LedgerClient
	panelSize   int
	loadCap     int
}

func newSelectionEngine(
	repoManager ports.RepoManager, randomness ports.RandomnessSource,
	ledger ports.LedgerClient, panelSize, loadCap int,
) *selectionEngine {
	return &selectionEngine{repoManager, randomness, ledger, panelSize, loadCap}
}

// selectAndAssign runs the full selection for a dispute. A fairness error
// (pool empty after widening) is returned as-is so the caller can mark the
// dispute unresolvable; any other failure is transient.
func (s *selectionEngine) selectAndAssign(
	ctx context.Context, dispute *domain.Dispute, criteria selectionCriteria,
) (ports.TxRef, error) {
	if criteria.LoadCap <= 0 {
		criteria.LoadCap = s.loadCap
	}
	criteria.Exclude = append(criteria.Exclude, dispute.PriorPanel...)

	pool, err := s.repoManager.Arbitrators().GetActiveArbitrators(ctx)
	if err != nil {
		return ports.TxRef{}, domain.Transientf("failed to load arbitrator pool: %s", err)
	}

	filtered := filterPool(pool, criteria, s.panelSize)
	if len(filtered) < s.panelSize {
		return ports.TxRef{}, domain.Fairnessf(
			"arbitrator pool for dispute %s has %d eligible members, need %d",
			dispute.ID, len(filtered), s.panelSize,
		)
	}

	beacon, err := s.randomness.Latest(ctx)
	if err != nil {
		return ports.TxRef{}, domain.Transientf("failed to fetch randomness beacon: %s", err)
	}

	panel := drawPanel(filtered, beacon.Value, s.panelSize)
	log.Debugf(
		"selected panel %v for dispute %s with beacon round %d",
		panel, dispute.ID, beacon.Round,
	)

	txRef, err := s.ledger.AssignArbitrators(ctx, ports.AssignArbitratorsRequest{
		DisputeID:   dispute.ID,
		PanelIDs:    panel,
		BeaconRound: beacon.Round,
	})
	if err != nil {
		return ports.TxRef{}, domain.Transientf(
			"failed to submit arbitrator assignment for dispute %s: %s", dispute.ID, err,
		)
	}
	return txRef, nil
}

// filterPool narrows the pool in three widening stages and returns the first
// stage holding at least min candidates, so a scarce expertise or a saturated
// load cap widens rather than starving the draw. The expertise filter is
// dropped first, then the load cap. The geographic exclusion is never dropped:
// if even the widest stage cannot fill a panel, the caller gets the widest
// stage and fails the fairness check.
func filterPool(pool []domain.Arbitrator, c selectionCriteria, min int) []domain.Arbitrator {
	excluded := make(map[string]struct{}, len(c.Exclude))
	for _, id := range c.Exclude {
		excluded[id] = struct{}{}
	}

	stages := []func(a domain.Arbitrator) bool{
		func(a domain.Arbitrator) bool {
			return a.HasExpertise(c.RequiredExpertise) && a.ActiveCaseCount < c.LoadCap
		},
		func(a domain.Arbitrator) bool {
			return a.ActiveCaseCount < c.LoadCap
		},
		func(a domain.Arbitrator) bool {
			return true
		},
	}

	var eligible []domain.Arbitrator
	for _, stage := range stages {
		eligible = make([]domain.Arbitrator, 0, len(pool))
		for _, a := range pool {
			if !a.IsActive {
				continue
			}
			if a.ExcludedByRegion(c.ClientRegion, c.FreelancerRegion) {
				continue
			}
			if _, ok := excluded[a.ID]; ok {
				continue
			}
			if stage(a) {
				eligible = append(eligible, a)
			}
		}
		if len(eligible) >= min {
			return eligible
		}
	}
	return eligible
}

// drawPanel picks n distinct arbitrators with a Fisher-Yates shuffle seeded by
// the beacon value. Each swap consumes fresh bits from a SHA-256 counter
// stream over the seed, and indexes are drawn by rejection sampling so no
// modulo bias creeps in. Deterministic given (pool, seed).
func drawPanel(pool []domain.Arbitrator, seed []byte, n int) []string {
	ids := make([]string, len(pool))
	for i, a := range pool {
		ids[i] = a.ID
	}
	// Store iteration order is an implementation detail; the audit trail only
	// fixes the eligible set and the beacon value.
	sort.Strings(ids)

	stream := newBitStream(seed)
	for i := len(ids) - 1; i > 0; i-- {
		j := stream.intn(uint64(i + 1))
		ids[i], ids[j] = ids[j], ids[i]
	}

	if n > len(ids) {
		n = len(ids)
	}
	return ids[:n]
}

// bitStream expands a seed into an unbounded stream of uniform 64-bit words
// via SHA-256 over (seed || counter).
type bitStream struct {
	seed    []byte
	counter uint64
	buf     []byte
}

func newBitStream(seed []byte) *bitStream {
	return &bitStream{seed: append([]byte{}, seed...)}
}

func (s *bitStream) next64() uint64 {
	if len(s.buf) < 8 {
		block := make([]byte, len(s.seed)+8)
		copy(block, s.seed)
		binary.BigEndian.PutUint64(block[len(s.seed):], s.counter)
		s.counter++
		sum := sha256.Sum256(block)
		s.buf = append(s.buf, sum[:]...)
	}
	v := binary.BigEndian.Uint64(s.buf[:8])
	s.buf = s.buf[8:]
	return v
}

// intn returns a uniform value in [0, max) by rejection sampling.
func (s *bitStream) intn(max uint64) uint64 {
	if max == 0 {
		return 0
	}
	limit := ^uint64(0) - (^uint64(0) % max)
	for {
		v := s.next64()
		if v < limit {
			return v % max
		}
	}
}
