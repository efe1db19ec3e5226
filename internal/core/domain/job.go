package domain

const (
	JobStatusOpen JobStatus = iota
	JobStatusBiddingClosed
	JobStatusInProgress
	JobStatusCompleted
	JobStatusCancelled
	JobStatusDisputed
)

type JobStatus int

func (s JobStatus) String() string {
	switch s {
	case JobStatusOpen:
		return "OPEN"
	case JobStatusBiddingClosed:
		return "BIDDING_CLOSED"
	case JobStatusInProgress:
		return "IN_PROGRESS"
	case JobStatusCompleted:
		return "COMPLETED"
	case JobStatusCancelled:
		return "CANCELLED"
	case JobStatusDisputed:
		return "DISPUTED"
	default:
		return "UNKNOWN"
	}
}

// Job mirrors a ledger job posting. It is created and mutated exclusively by
// applying reconciled ledger events; Changes accumulates the events applied
// since the last persist.
type Job struct {
	ID              string
	ClientID        string
	ClientRegion    string
	MetadataHash    string
	PaymentAsset    string
	TotalBudget     uint64
	FiatValue       uint64
	Skills          []string
	BiddingDeadline int64
	Status          JobStatus
	SelectedBidID   string
	Bids            map[string]Bid
	CreatedAt       int64
	Version         uint
	Changes         []Event `badgerhold:"-"`
}

func NewJob(e JobCreated) (*Job, error) {
	if e.JobID == "" {
		return nil, Integrityf("job created event missing job id")
	}
	if e.TotalBudget == 0 {
		return nil, Integrityf("job %s created with zero budget", e.JobID)
	}
	j := &Job{Bids: make(map[string]Bid)}
	j.raise(e)
	return j, nil
}

func NewJobFromEvents(events []Event) *Job {
	j := &Job{Bids: make(map[string]Bid)}
	for _, event := range events {
		j.On(event, true)
	}
	j.Changes = append([]Event{}, events...)
	return j
}

func (j *Job) On(event Event, replayed bool) {
	switch e := event.(type) {
	case JobCreated:
		j.ID = e.JobID
		j.ClientID = e.ClientID
		j.ClientRegion = e.ClientRegion
		j.MetadataHash = e.MetadataHash
		j.PaymentAsset = e.PaymentAsset
		j.TotalBudget = e.TotalBudget
		j.BiddingDeadline = e.BiddingDeadline
		j.CreatedAt = e.Timestamp
		j.Status = JobStatusOpen
	case JobCancelled:
		j.Status = JobStatusCancelled
	case BidSubmitted:
		j.Bids[e.BidID] = Bid{
			ID:               e.BidID,
			JobID:            e.JobID,
			FreelancerID:     e.FreelancerID,
			FreelancerRegion: e.FreelancerRegion,
			Amount:           e.Amount,
			TimelineDays:     e.TimelineDays,
			ProposalHash:     e.ProposalHash,
			Status:           BidStatusActive,
			SubmittedAt:      e.Timestamp,
		}
	case BidRevised:
		bid := j.Bids[e.BidID]
		bid.Amount = e.Amount
		bid.TimelineDays = e.TimelineDays
		bid.RevisionCount++
		j.Bids[e.BidID] = bid
	case BidWithdrawn:
		bid := j.Bids[e.BidID]
		bid.Status = BidStatusWithdrawn
		j.Bids[e.BidID] = bid
	case BidAccepted:
		for id, bid := range j.Bids {
			switch {
			case id == e.BidID:
				bid.Status = BidStatusAccepted
			case bid.Status == BidStatusActive:
				bid.Status = BidStatusRejected
			}
			j.Bids[id] = bid
		}
		j.SelectedBidID = e.BidID
		j.Status = JobStatusInProgress
	case biddingClosed:
		for id, bid := range j.Bids {
			if bid.Status == BidStatusActive {
				bid.Status = BidStatusExpired
				j.Bids[id] = bid
			}
		}
		j.Status = JobStatusBiddingClosed
	case jobDisputed:
		j.Status = JobStatusDisputed
	case jobResumed:
		j.Status = JobStatusInProgress
	case jobCompleted:
		j.Status = JobStatusCompleted
	}

	if replayed {
		j.Version++
	}
}

func (j *Job) RegisterBid(e BidSubmitted) ([]Event, error) {
	if j.Status != JobStatusOpen {
		return nil, Integrityf("job %s not open for bidding", j.ID)
	}
	if e.Timestamp > j.BiddingDeadline {
		return nil, Integrityf(
			"bid %s confirmed after bidding deadline of job %s", e.BidID, j.ID,
		)
	}
	for _, bid := range j.Bids {
		if bid.FreelancerID == e.FreelancerID && bid.Status == BidStatusActive {
			return nil, Integrityf(
				"freelancer %s already has an active bid on job %s", e.FreelancerID, j.ID,
			)
		}
	}
	j.raise(e)
	return []Event{e}, nil
}

func (j *Job) ReviseBid(e BidRevised) ([]Event, error) {
	bid, ok := j.Bids[e.BidID]
	if !ok {
		return nil, Integrityf("bid %s not found on job %s", e.BidID, j.ID)
	}
	if bid.Status != BidStatusActive {
		return nil, Integrityf("bid %s is not active", e.BidID)
	}
	if bid.RevisionCount >= maxBidRevisions {
		return nil, Integrityf("bid %s exceeded max revisions", e.BidID)
	}
	j.raise(e)
	return []Event{e}, nil
}

func (j *Job) WithdrawBid(e BidWithdrawn) ([]Event, error) {
	bid, ok := j.Bids[e.BidID]
	if !ok {
		return nil, Integrityf("bid %s not found on job %s", e.BidID, j.ID)
	}
	if bid.Status != BidStatusActive {
		return nil, Integrityf("bid %s is not active", e.BidID)
	}
	j.raise(e)
	return []Event{e}, nil
}

// AcceptBid applies a confirmed acceptance: the selected bid becomes Accepted
// and every sibling Active bid is Rejected in the same transition.
func (j *Job) AcceptBid(e BidAccepted) ([]Event, error) {
	if j.Status != JobStatusOpen && j.Status != JobStatusBiddingClosed {
		return nil, Integrityf("job %s not in a valid status to accept a bid", j.ID)
	}
	if j.SelectedBidID != "" {
		return nil, Integrityf("job %s already has an accepted bid", j.ID)
	}
	bid, ok := j.Bids[e.BidID]
	if !ok {
		return nil, Integrityf("bid %s not found on job %s", e.BidID, j.ID)
	}
	if bid.Status != BidStatusActive {
		return nil, Integrityf("bid %s is not active", e.BidID)
	}
	var total uint64
	for _, m := range e.Milestones {
		total += m.Amount
	}
	if len(e.Milestones) == 0 || total != bid.Amount {
		return nil, Integrityf(
			"milestone amounts of escrow %s do not sum to bid amount", e.EscrowID,
		)
	}
	j.raise(e)
	return []Event{e}, nil
}

func (j *Job) Cancel(e JobCancelled) ([]Event, error) {
	if j.Status != JobStatusOpen {
		return nil, Integrityf("job %s not in a valid status to be cancelled", j.ID)
	}
	j.raise(e)
	return []Event{e}, nil
}

// CloseBidding expires an open job whose deadline elapsed. The transition is
// deterministic from the ledger-assigned deadline, so it is safe to derive
// locally without a confirming event.
func (j *Job) CloseBidding(now int64) ([]Event, error) {
	if j.Status != JobStatusOpen {
		return nil, nil
	}
	if now <= j.BiddingDeadline {
		return nil, nil
	}
	event := biddingClosed{JobID: j.ID, Timestamp: now}
	j.raise(event)
	return []Event{event}, nil
}

func (j *Job) MarkDisputed() ([]Event, error) {
	if j.Status != JobStatusOpen && j.Status != JobStatusInProgress {
		return nil, Integrityf("job %s not in a valid status to be disputed", j.ID)
	}
	event := jobDisputed{JobID: j.ID}
	j.raise(event)
	return []Event{event}, nil
}

func (j *Job) Resume() ([]Event, error) {
	if j.Status != JobStatusDisputed {
		return nil, Integrityf("job %s is not disputed", j.ID)
	}
	event := jobResumed{JobID: j.ID}
	j.raise(event)
	return []Event{event}, nil
}

// Complete is applied once every milestone of the job's escrow is Released.
func (j *Job) Complete(timestamp int64) ([]Event, error) {
	if j.Status != JobStatusInProgress {
		return nil, Integrityf("job %s is not in progress", j.ID)
	}
	event := jobCompleted{JobID: j.ID, Timestamp: timestamp}
	j.raise(event)
	return []Event{event}, nil
}

func (j *Job) ActiveBids() []Bid {
	bids := make([]Bid, 0, len(j.Bids))
	for _, bid := range j.Bids {
		if bid.Status == BidStatusActive {
			bids = append(bids, bid)
		}
	}
	return bids
}

func (j *Job) IsTerminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusCancelled
}

func (j *Job) Events() []Event {
	return j.Changes
}

func (j *Job) raise(event Event) {
	if j.Changes == nil {
		j.Changes = make([]Event, 0)
	}
	j.Changes = append(j.Changes, event)
	j.On(event, false)
}

// Locally-derived job transitions. They carry no ledger key: they are either
// deterministic consequences of ledger-assigned data (bidding deadline) or
// projections of an event applied to another aggregate.
type biddingClosed struct {
	JobID     string
	Timestamp int64
}

func (e biddingClosed) isEvent()            {}
func (e biddingClosed) Key() EventKey       { return EventKey{} }
func (e biddingClosed) Type() EventType     { return "job.bidding_closed" }
func (e biddingClosed) AggregateID() string { return e.JobID }

type jobDisputed struct{ JobID string }

func (e jobDisputed) isEvent()            {}
func (e jobDisputed) Key() EventKey       { return EventKey{} }
func (e jobDisputed) Type() EventType     { return "job.disputed" }
func (e jobDisputed) AggregateID() string { return e.JobID }

type jobResumed struct{ JobID string }

func (e jobResumed) isEvent()            {}
func (e jobResumed) Key() EventKey       { return EventKey{} }
func (e jobResumed) Type() EventType     { return "job.resumed" }
func (e jobResumed) AggregateID() string { return e.JobID }

type jobCompleted struct {
	JobID     string
	Timestamp int64
}

func (e jobCompleted) isEvent()            {}
func (e jobCompleted) Key() EventKey       { return EventKey{} }
func (e jobCompleted) Type() EventType     { return "job.completed" }
func (e jobCompleted) AggregateID() string { return e.JobID }
