package domain

const MaxReputationScore = 1000

// Arbitrator is a pool member eligible for binding selection into disputes.
// The pool is mirrored from the ledger's arbitrator registry.
type Arbitrator struct {
	ID              string
	RegionTag       string
	ExpertiseTags   []string
	ReputationScore int
	ActiveCaseCount int
	IsActive        bool
}

func (a Arbitrator) HasExpertise(tag string) bool {
	for _, t := range a.ExpertiseTags {
		if t == tag {
			return true
		}
	}
	return false
}

// ExcludedByRegion is the non-negotiable fairness predicate: an arbitrator
// sharing a region with either disputing party is never eligible.
func (a Arbitrator) ExcludedByRegion(clientRegion, freelancerRegion string) bool {
	return a.RegionTag == clientRegion || a.RegionTag == freelancerRegion
}
