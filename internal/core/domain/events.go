package domain

import "fmt"

// EventKey uniquely identifies a confirmed ledger event. The subscription may
// redeliver events on reconnect, so every projection is keyed by it.
type EventKey struct {
	TxHash   string
	LogIndex uint32
}

func (k EventKey) String() string {
	return fmt.Sprintf("%s:%d", k.TxHash, k.LogIndex)
}

type EventType string

const (
	EventTypeJobCreated          EventType = "job.created"
	EventTypeJobCancelled        EventType = "job.cancelled"
	EventTypeBidSubmitted        EventType = "bid.submitted"
	EventTypeBidRevised          EventType = "bid.revised"
	EventTypeBidWithdrawn        EventType = "bid.withdrawn"
	EventTypeBidAccepted         EventType = "bid.accepted"
	EventTypeMilestoneSubmitted  EventType = "milestone.submitted"
	EventTypeMilestoneApproved   EventType = "milestone.approved"
	EventTypeMilestoneRejected   EventType = "milestone.rejected"
	EventTypeMilestoneReleased   EventType = "milestone.released"
	EventTypeDisputeRaised       EventType = "dispute.raised"
	EventTypeArbitratorsAssigned EventType = "dispute.assigned"
	EventTypeDisputeResolved     EventType = "dispute.resolved"
	EventTypeDisputeAppealed     EventType = "dispute.appealed"
)

// EventTypes lists every inbound type, in the order queues are drained.
var EventTypes = []EventType{
	EventTypeJobCreated,
	EventTypeJobCancelled,
	EventTypeBidSubmitted,
	EventTypeBidRevised,
	EventTypeBidWithdrawn,
	EventTypeBidAccepted,
	EventTypeMilestoneSubmitted,
	EventTypeMilestoneApproved,
	EventTypeMilestoneRejected,
	EventTypeMilestoneReleased,
	EventTypeDisputeRaised,
	EventTypeArbitratorsAssigned,
	EventTypeDisputeResolved,
	EventTypeDisputeAppealed,
}

// Event is a confirmed, immutable ledger notification. AggregateID returns the
// id of the aggregate whose application must be serialized: job events map to
// their job, escrow and dispute lifecycle events map to their escrow.
type Event interface {
	isEvent()
	Key() EventKey
	Type() EventType
	AggregateID() string
}

func (e JobCreated) isEvent()          {}
func (e JobCancelled) isEvent()        {}
func (e BidSubmitted) isEvent()        {}
func (e BidRevised) isEvent()          {}
func (e BidWithdrawn) isEvent()        {}
func (e BidAccepted) isEvent()         {}
func (e MilestoneSubmitted) isEvent()  {}
func (e MilestoneApproved) isEvent()   {}
func (e MilestoneRejected) isEvent()   {}
func (e MilestoneReleased) isEvent()   {}
func (e DisputeRaised) isEvent()       {}
func (e ArbitratorsAssigned) isEvent() {}
func (e DisputeResolved) isEvent()     {}
func (e DisputeAppealed) isEvent()     {}

type JobCreated struct {
	EventKey
	JobID           string
	ClientID        string
	ClientRegion    string
	MetadataHash    string
	PaymentAsset    string
	TotalBudget     uint64
	BiddingDeadline int64
	BlockNumber     uint64
	Timestamp       int64
}

func (e JobCreated) Key() EventKey       { return e.EventKey }
func (e JobCreated) Type() EventType     { return EventTypeJobCreated }
func (e JobCreated) AggregateID() string { return e.JobID }

type JobCancelled struct {
	EventKey
	JobID     string
	Timestamp int64
}

func (e JobCancelled) Key() EventKey       { return e.EventKey }
func (e JobCancelled) Type() EventType     { return EventTypeJobCancelled }
func (e JobCancelled) AggregateID() string { return e.JobID }

type BidSubmitted struct {
	EventKey
	JobID            string
	BidID            string
	FreelancerID     string
	FreelancerRegion string
	Amount           uint64
	TimelineDays     uint32
	ProposalHash     string
	Timestamp        int64
}

func (e BidSubmitted) Key() EventKey       { return e.EventKey }
func (e BidSubmitted) Type() EventType     { return EventTypeBidSubmitted }
func (e BidSubmitted) AggregateID() string { return e.JobID }

type BidRevised struct {
	EventKey
	JobID        string
	BidID        string
	Amount       uint64
	TimelineDays uint32
	Timestamp    int64
}

func (e BidRevised) Key() EventKey       { return e.EventKey }
func (e BidRevised) Type() EventType     { return EventTypeBidRevised }
func (e BidRevised) AggregateID() string { return e.JobID }

type BidWithdrawn struct {
	EventKey
	JobID     string
	BidID     string
	Timestamp int64
}

func (e BidWithdrawn) Key() EventKey       { return e.EventKey }
func (e BidWithdrawn) Type() EventType     { return EventTypeBidWithdrawn }
func (e BidWithdrawn) AggregateID() string { return e.JobID }

// MilestoneSchedule is the escrow funding plan carried by BidAccepted.
type MilestoneSchedule struct {
	Amount   uint64
	Deadline int64
}

type BidAccepted struct {
	EventKey
	JobID      string
	BidID      string
	EscrowID   string
	Milestones []MilestoneSchedule
	Timestamp  int64
}

func (e BidAccepted) Key() EventKey       { return e.EventKey }
func (e BidAccepted) Type() EventType     { return EventTypeBidAccepted }
func (e BidAccepted) AggregateID() string { return e.JobID }

type MilestoneSubmitted struct {
	EventKey
	EscrowID        string
	MilestoneIndex  int
	DeliverableHash string
	Timestamp       int64
}

func (e MilestoneSubmitted) Key() EventKey       { return e.EventKey }
func (e MilestoneSubmitted) Type() EventType     { return EventTypeMilestoneSubmitted }
func (e MilestoneSubmitted) AggregateID() string { return e.EscrowID }

type MilestoneApproved struct {
	EventKey
	EscrowID       string
	MilestoneIndex int
	Role           ApprovalRole
	ApproverID     string
	Timestamp      int64
}

func (e MilestoneApproved) Key() EventKey       { return e.EventKey }
func (e MilestoneApproved) Type() EventType     { return EventTypeMilestoneApproved }
func (e MilestoneApproved) AggregateID() string { return e.EscrowID }

type MilestoneRejected struct {
	EventKey
	EscrowID       string
	MilestoneIndex int
	Reason         string
	Timestamp      int64
}

func (e MilestoneRejected) Key() EventKey       { return e.EventKey }
func (e MilestoneRejected) Type() EventType     { return EventTypeMilestoneRejected }
func (e MilestoneRejected) AggregateID() string { return e.EscrowID }

type MilestoneReleased struct {
	EventKey
	EscrowID       string
	MilestoneIndex int
	Amount         uint64
	YieldAmount    uint64
	RecipientID    string
	Timestamp      int64
}

func (e MilestoneReleased) Key() EventKey       { return e.EventKey }
func (e MilestoneReleased) Type() EventType     { return EventTypeMilestoneReleased }
func (e MilestoneReleased) AggregateID() string { return e.EscrowID }

type DisputeRaised struct {
	EventKey
	DisputeID      string
	EscrowID       string
	MilestoneIndex int
	InitiatorID    string
	RespondentID   string
	Timestamp      int64
}

func (e DisputeRaised) Key() EventKey       { return e.EventKey }
func (e DisputeRaised) Type() EventType     { return EventTypeDisputeRaised }
func (e DisputeRaised) AggregateID() string { return e.EscrowID }

type ArbitratorsAssigned struct {
	EventKey
	DisputeID   string
	EscrowID    string
	PanelIDs    []string
	BeaconRound uint64
	Timestamp   int64
}

func (e ArbitratorsAssigned) Key() EventKey       { return e.EventKey }
func (e ArbitratorsAssigned) Type() EventType     { return EventTypeArbitratorsAssigned }
func (e ArbitratorsAssigned) AggregateID() string { return e.EscrowID }

type Resolution string

const (
	ResolutionForClient     Resolution = "client"
	ResolutionForFreelancer Resolution = "freelancer"
)

type DisputeResolved struct {
	EventKey
	DisputeID      string
	EscrowID       string
	MilestoneIndex int
	Resolution     Resolution
	Timestamp      int64
}

func (e DisputeResolved) Key() EventKey       { return e.EventKey }
func (e DisputeResolved) Type() EventType     { return EventTypeDisputeResolved }
func (e DisputeResolved) AggregateID() string { return e.EscrowID }

type DisputeAppealed struct {
	EventKey
	DisputeID string
	EscrowID  string
	Timestamp int64
}

func (e DisputeAppealed) Key() EventKey       { return e.EventKey }
func (e DisputeAppealed) Type() EventType     { return EventTypeDisputeAppealed }
func (e DisputeAppealed) AggregateID() string { return e.EscrowID }
