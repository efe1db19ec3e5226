package ports

import (
	"context"

	"github.com/gigledger/gigd/internal/core/domain"
)

// TxRef is a pending transaction reference returned by a submission. It is
// never proof of success: the effect is confirmed only by a later inbound
// event carrying the resulting (txHash, logIndex) key.
type TxRef struct {
	TxHash string
}

type CreateJobRequest struct {
	ClientID        string
	MetadataHash    string
	PaymentAsset    string
	TotalBudget     uint64
	BiddingDeadline int64
}

type SubmitBidRequest struct {
	JobID        string
	FreelancerID string
	Amount       uint64
	TimelineDays uint32
	ProposalHash string
}

type AcceptBidRequest struct {
	JobID      string
	BidID      string
	Milestones []domain.MilestoneSchedule
}

type ReleaseRequest struct {
	EscrowID           string
	MilestoneIndex     int
	Principal          uint64
	YieldFreelancerBps uint32
}

type RaiseDisputeRequest struct {
	EscrowID       string
	MilestoneIndex int
	InitiatorID    string
}

type AssignArbitratorsRequest struct {
	DisputeID   string
	PanelIDs    []string
	BeaconRound uint64
}

// LedgerClient is the single gateway to the external ledger: a live event
// subscription plus outbound transaction submission. The adapter owns
// reconnection; the events channel is closed only on shutdown or after the
// reconnect attempt budget is exhausted.
type LedgerClient interface {
	Start(ctx context.Context) error
	GetEventsChannel() <-chan domain.Event

	CreateJob(ctx context.Context, req CreateJobRequest) (TxRef, error)
	SubmitBid(ctx context.Context, req SubmitBidRequest) (TxRef, error)
	AcceptBid(ctx context.Context, req AcceptBidRequest) (TxRef, error)
	ReleaseMilestonePayment(ctx context.Context, req ReleaseRequest) (TxRef, error)
	RaiseDispute(ctx context.Context, req RaiseDisputeRequest) (TxRef, error)
	AssignArbitrators(ctx context.Context, req AssignArbitratorsRequest) (TxRef, error)

	Close()
}
