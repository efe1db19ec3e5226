package domain

const maxBidRevisions = 2

const (
	BidStatusActive BidStatus = iota
	BidStatusWithdrawn
	BidStatusAccepted
	BidStatusRejected
	BidStatusExpired
)

type BidStatus int

func (s BidStatus) String() string {
	switch s {
	case BidStatusActive:
		return "ACTIVE"
	case BidStatusWithdrawn:
		return "WITHDRAWN"
	case BidStatusAccepted:
		return "ACCEPTED"
	case BidStatusRejected:
		return "REJECTED"
	case BidStatusExpired:
		return "EXPIRED"
	default:
		return "UNKNOWN"
	}
}

type Bid struct {
	ID               string
	JobID            string
	FreelancerID     string
	FreelancerRegion string
	Amount           uint64
	TimelineDays     uint32
	ProposalHash     string
	Status           BidStatus
	RevisionCount    int
	SubmittedAt      int64
}
