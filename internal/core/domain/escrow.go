package domain

const (
	EscrowStatusActive EscrowStatus = iota
	EscrowStatusCompleted
	EscrowStatusDisputed
	EscrowStatusCancelled
)

type EscrowStatus int

func (s EscrowStatus) String() string {
	switch s {
	case EscrowStatusActive:
		return "ACTIVE"
	case EscrowStatusCompleted:
		return "COMPLETED"
	case EscrowStatusDisputed:
		return "DISPUTED"
	case EscrowStatusCancelled:
		return "CANCELLED"
	default:
		return "UNKNOWN"
	}
}

const (
	MilestoneStatusPending MilestoneStatus = iota
	MilestoneStatusSubmitted
	MilestoneStatusApproved
	MilestoneStatusRejected
	MilestoneStatusDisputed
	MilestoneStatusReleased
)

type MilestoneStatus int

func (s MilestoneStatus) String() string {
	switch s {
	case MilestoneStatusPending:
		return "PENDING"
	case MilestoneStatusSubmitted:
		return "SUBMITTED"
	case MilestoneStatusApproved:
		return "APPROVED"
	case MilestoneStatusRejected:
		return "REJECTED"
	case MilestoneStatusDisputed:
		return "DISPUTED"
	case MilestoneStatusReleased:
		return "RELEASED"
	default:
		return "UNKNOWN"
	}
}

type ApprovalRole string

const (
	RoleClient     ApprovalRole = "client"
	RoleFreelancer ApprovalRole = "freelancer"
	RoleArbitrator ApprovalRole = "arbitrator"
)

// RequiredApprovals is the release threshold: 2 of {client, freelancer,
// arbitrator}, the arbitrator counting only while assigned to an active
// dispute on the milestone.
const RequiredApprovals = 2

type Milestone struct {
	Index           int
	Amount          uint64
	Deadline        int64
	Status          MilestoneStatus
	DeliverableHash string
	FiatValue       uint64
	Approvals       map[ApprovalRole]string
	DisputeID       string
}

// ApprovalCount counts recorded approvals. An arbitrator approval can only
// have been recorded while a dispute was assigned on the milestone (enforced
// at application time), so every recorded approval counts.
func (m Milestone) ApprovalCount() int {
	return len(m.Approvals)
}

// Escrow mirrors the ledger-held balance for an accepted bid. The conservation
// invariant ReleasedAmount+DisputedAmount <= TotalAmount is checked on every
// transition that moves funds.
type Escrow struct {
	ID               string
	JobID            string
	ClientID         string
	ClientRegion     string
	FreelancerID     string
	FreelancerRegion string
	ArbitratorID     string
	PaymentAsset     string
	TotalAmount      uint64
	ReleasedAmount   uint64
	DisputedAmount   uint64
	Status           EscrowStatus
	Milestones       []Milestone
	CreatedAt        int64
	Version          uint
	Changes          []Event `badgerhold:"-"`
}

// NewEscrow opens the escrow for an accepted bid. The milestone schedule must
// sum exactly to the escrowed total; a mismatch is a data integrity anomaly,
// never retried.
func NewEscrow(e BidAccepted, job Job, bid Bid) (*Escrow, error) {
	if e.EscrowID == "" {
		return nil, Integrityf("bid accepted event missing escrow id")
	}
	if len(e.Milestones) == 0 {
		return nil, Integrityf("escrow %s has no milestone schedule", e.EscrowID)
	}
	var sum uint64
	for _, m := range e.Milestones {
		sum += m.Amount
	}
	if sum != bid.Amount {
		return nil, Integrityf(
			"milestone amounts of escrow %s sum to %d, expected %d",
			e.EscrowID, sum, bid.Amount,
		)
	}

	milestones := make([]Milestone, 0, len(e.Milestones))
	for i, m := range e.Milestones {
		milestones = append(milestones, Milestone{
			Index:     i,
			Amount:    m.Amount,
			Deadline:  m.Deadline,
			Status:    MilestoneStatusPending,
			Approvals: make(map[ApprovalRole]string),
		})
	}
	escrow := &Escrow{
		ID:               e.EscrowID,
		JobID:            e.JobID,
		ClientID:         job.ClientID,
		ClientRegion:     job.ClientRegion,
		FreelancerID:     bid.FreelancerID,
		FreelancerRegion: bid.FreelancerRegion,
		PaymentAsset:     job.PaymentAsset,
		TotalAmount:      bid.Amount,
		Milestones:       milestones,
		CreatedAt:        e.Timestamp,
		Status:           EscrowStatusActive,
		Changes:          []Event{e},
	}
	return escrow, nil
}

func (s *Escrow) On(event Event, replayed bool) {
	switch e := event.(type) {
	case MilestoneSubmitted:
		m := &s.Milestones[e.MilestoneIndex]
		m.Status = MilestoneStatusSubmitted
		m.DeliverableHash = e.DeliverableHash
	case MilestoneApproved:
		m := &s.Milestones[e.MilestoneIndex]
		if m.Approvals == nil {
			m.Approvals = make(map[ApprovalRole]string)
		}
		m.Approvals[e.Role] = e.ApproverID
		if e.Role == RoleClient && m.Status == MilestoneStatusSubmitted {
			m.Status = MilestoneStatusApproved
		}
	case MilestoneRejected:
		m := &s.Milestones[e.MilestoneIndex]
		m.Status = MilestoneStatusRejected
	case MilestoneReleased:
		m := &s.Milestones[e.MilestoneIndex]
		m.Status = MilestoneStatusReleased
		s.ReleasedAmount += e.Amount
	case DisputeRaised:
		m := &s.Milestones[e.MilestoneIndex]
		m.Status = MilestoneStatusDisputed
		m.DisputeID = e.DisputeID
		s.DisputedAmount += m.Amount
		s.Status = EscrowStatusDisputed
	case ArbitratorsAssigned:
		if len(e.PanelIDs) > 0 {
			s.ArbitratorID = e.PanelIDs[0]
		}
	case DisputeResolved:
		m := &s.Milestones[e.MilestoneIndex]
		s.DisputedAmount -= m.Amount
		m.DisputeID = ""
		if e.Resolution == ResolutionForFreelancer {
			m.Status = MilestoneStatusApproved
			if m.Approvals == nil {
				m.Approvals = make(map[ApprovalRole]string)
			}
			// The ruling is the arbitrator's release approval.
			m.Approvals[RoleArbitrator] = s.ArbitratorID
		} else {
			m.Status = MilestoneStatusRejected
		}
		s.Status = EscrowStatusActive
		s.ArbitratorID = ""
	case disputeReopened:
		m := &s.Milestones[e.MilestoneIndex]
		m.Status = MilestoneStatusDisputed
		m.DisputeID = e.DisputeID
		s.DisputedAmount += m.Amount
		s.Status = EscrowStatusDisputed
		s.ArbitratorID = ""
	case escrowCompleted:
		s.Status = EscrowStatusCompleted
	}

	if replayed {
		s.Version++
	}
}

func (s *Escrow) SubmitDeliverable(e MilestoneSubmitted) ([]Event, error) {
	m, err := s.milestone(e.MilestoneIndex)
	if err != nil {
		return nil, err
	}
	if m.Status != MilestoneStatusPending && m.Status != MilestoneStatusRejected {
		return nil, Integrityf(
			"milestone %d of escrow %s not in a valid status for submission", m.Index, s.ID,
		)
	}
	s.raise(e)
	return []Event{e}, nil
}

func (s *Escrow) Approve(e MilestoneApproved) ([]Event, error) {
	m, err := s.milestone(e.MilestoneIndex)
	if err != nil {
		return nil, err
	}
	if err := s.authorized(e.Role, e.ApproverID, m); err != nil {
		return nil, err
	}
	validStatus := m.Status == MilestoneStatusSubmitted || m.Status == MilestoneStatusApproved
	if e.Role == RoleArbitrator {
		validStatus = validStatus || m.Status == MilestoneStatusDisputed
	}
	if !validStatus {
		return nil, Integrityf(
			"milestone %d of escrow %s not in a valid status for approval", m.Index, s.ID,
		)
	}
	s.raise(e)
	return []Event{e}, nil
}

func (s *Escrow) Reject(e MilestoneRejected) ([]Event, error) {
	m, err := s.milestone(e.MilestoneIndex)
	if err != nil {
		return nil, err
	}
	if m.Status != MilestoneStatusSubmitted {
		return nil, Integrityf(
			"milestone %d of escrow %s not in a valid status for rejection", m.Index, s.ID,
		)
	}
	s.raise(e)
	return []Event{e}, nil
}

// Release applies a ledger-confirmed payment release. Funds conservation is
// re-checked before mutating, so a forged or double-applied release surfaces
// as an integrity anomaly instead of corrupting balances.
func (s *Escrow) Release(e MilestoneReleased) ([]Event, error) {
	m, err := s.milestone(e.MilestoneIndex)
	if err != nil {
		return nil, err
	}
	if m.Status != MilestoneStatusApproved {
		return nil, Integrityf(
			"milestone %d of escrow %s not approved for release", m.Index, s.ID,
		)
	}
	if m.DisputeID != "" {
		return nil, Integrityf(
			"milestone %d of escrow %s is disputed, release blocked", m.Index, s.ID,
		)
	}
	if e.Amount != m.Amount {
		return nil, Integrityf(
			"release amount %d does not match milestone amount %d", e.Amount, m.Amount,
		)
	}
	if s.ReleasedAmount+e.Amount+s.DisputedAmount > s.TotalAmount {
		return nil, Integrityf("release of %d would overdraw escrow %s", e.Amount, s.ID)
	}
	s.raise(e)

	events := []Event{e}
	if s.allReleased() {
		done := escrowCompleted{EscrowID: s.ID, Timestamp: e.Timestamp}
		s.raise(done)
		events = append(events, done)
	}
	return events, nil
}

func (s *Escrow) OpenDispute(e DisputeRaised) ([]Event, error) {
	m, err := s.milestone(e.MilestoneIndex)
	if err != nil {
		return nil, err
	}
	if m.Status != MilestoneStatusSubmitted && m.Status != MilestoneStatusApproved {
		return nil, Integrityf(
			"milestone %d of escrow %s not in a valid status to be disputed", m.Index, s.ID,
		)
	}
	if m.DisputeID != "" {
		return nil, Integrityf(
			"milestone %d of escrow %s already has an active dispute", m.Index, s.ID,
		)
	}
	if s.DisputedAmount+m.Amount+s.ReleasedAmount > s.TotalAmount {
		return nil, Integrityf("dispute on milestone %d would overdraw escrow %s", m.Index, s.ID)
	}
	s.raise(e)
	return []Event{e}, nil
}

func (s *Escrow) AssignArbitrators(e ArbitratorsAssigned) ([]Event, error) {
	if s.Status != EscrowStatusDisputed {
		return nil, Integrityf("escrow %s is not disputed", s.ID)
	}
	if len(e.PanelIDs) == 0 {
		return nil, Integrityf("empty arbitrator panel for escrow %s", s.ID)
	}
	s.raise(e)
	return []Event{e}, nil
}

// ReopenDispute restores the disputed state of a milestone after an appeal.
func (s *Escrow) ReopenDispute(disputeID string, milestoneIndex int) ([]Event, error) {
	m, err := s.milestone(milestoneIndex)
	if err != nil {
		return nil, err
	}
	if m.Status == MilestoneStatusDisputed || m.Status == MilestoneStatusReleased {
		return nil, Integrityf(
			"milestone %d of escrow %s not in a valid status to reopen a dispute", m.Index, s.ID,
		)
	}
	if s.DisputedAmount+m.Amount+s.ReleasedAmount > s.TotalAmount {
		return nil, Integrityf("reopened dispute on milestone %d would overdraw escrow %s", m.Index, s.ID)
	}
	event := disputeReopened{EscrowID: s.ID, MilestoneIndex: milestoneIndex, DisputeID: disputeID}
	s.raise(event)
	return []Event{event}, nil
}

func (s *Escrow) ResolveDispute(e DisputeResolved) ([]Event, error) {
	m, err := s.milestone(e.MilestoneIndex)
	if err != nil {
		return nil, err
	}
	if m.Status != MilestoneStatusDisputed || m.DisputeID != e.DisputeID {
		return nil, Integrityf(
			"milestone %d of escrow %s has no active dispute %s", m.Index, s.ID, e.DisputeID,
		)
	}
	s.raise(e)
	return []Event{e}, nil
}

// ReleasableMilestone reports whether the milestone's approvals meet the
// release threshold and no dispute blocks the release.
func (s *Escrow) ReleasableMilestone(index int) (bool, error) {
	m, err := s.milestone(index)
	if err != nil {
		return false, err
	}
	if m.Status != MilestoneStatusApproved {
		return false, nil
	}
	if m.DisputeID != "" {
		return false, nil
	}
	return m.ApprovalCount() >= RequiredApprovals, nil
}

func (s *Escrow) IsTerminal() bool {
	return s.Status == EscrowStatusCompleted || s.Status == EscrowStatusCancelled
}

func (s *Escrow) Events() []Event {
	return s.Changes
}

func (s *Escrow) milestone(index int) (*Milestone, error) {
	if index < 0 || index >= len(s.Milestones) {
		return nil, Integrityf("escrow %s has no milestone %d", s.ID, index)
	}
	return &s.Milestones[index], nil
}

func (s *Escrow) authorized(role ApprovalRole, approverID string, m *Milestone) error {
	switch role {
	case RoleClient:
		if approverID != s.ClientID {
			return Integrityf("approver %s is not the client of escrow %s", approverID, s.ID)
		}
	case RoleFreelancer:
		if approverID != s.FreelancerID {
			return Integrityf("approver %s is not the freelancer of escrow %s", approverID, s.ID)
		}
	case RoleArbitrator:
		if m.DisputeID == "" {
			return Integrityf(
				"arbitrator approval on milestone %d of escrow %s without an active dispute",
				m.Index, s.ID,
			)
		}
		if approverID != s.ArbitratorID {
			return Integrityf("approver %s is not the assigned arbitrator of escrow %s", approverID, s.ID)
		}
	default:
		return Integrityf("unknown approval role %s", role)
	}
	return nil
}

func (s *Escrow) allReleased() bool {
	for _, m := range s.Milestones {
		if m.Status != MilestoneStatusReleased {
			return false
		}
	}
	return true
}

func (s *Escrow) raise(event Event) {
	if s.Changes == nil {
		s.Changes = make([]Event, 0)
	}
	s.Changes = append(s.Changes, event)
	s.On(event, false)
}

type disputeReopened struct {
	EscrowID       string
	MilestoneIndex int
	DisputeID      string
}

func (e disputeReopened) isEvent()            {}
func (e disputeReopened) Key() EventKey       { return EventKey{} }
func (e disputeReopened) Type() EventType     { return "escrow.dispute_reopened" }
func (e disputeReopened) AggregateID() string { return e.EscrowID }

type escrowCompleted struct {
	EscrowID  string
	Timestamp int64
}

func (e escrowCompleted) isEvent()            {}
func (e escrowCompleted) Key() EventKey       { return EventKey{} }
func (e escrowCompleted) Type() EventType     { return "escrow.completed" }
func (e escrowCompleted) AggregateID() string { return e.EscrowID }
