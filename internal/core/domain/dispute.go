package domain

const (
	DisputeStatusPending DisputeStatus = iota
	DisputeStatusAssigned
	DisputeStatusResolved
	DisputeStatusAppealed
	DisputeStatusUnresolvable
)

type DisputeStatus int

func (s DisputeStatus) String() string {
	switch s {
	case DisputeStatusPending:
		return "PENDING"
	case DisputeStatusAssigned:
		return "ASSIGNED"
	case DisputeStatusResolved:
		return "RESOLVED"
	case DisputeStatusAppealed:
		return "APPEALED"
	case DisputeStatusUnresolvable:
		return "UNRESOLVABLE"
	default:
		return "UNKNOWN"
	}
}

type Dispute struct {
	ID             string
	EscrowID       string
	MilestoneIndex int
	InitiatorID    string
	RespondentID   string
	Status         DisputeStatus
	ArbitratorID   string
	Panel          []string
	PriorPanel     []string
	Resolution     Resolution
	FailureReason  string
	RaisedAt       int64
	ResolvedAt     int64
	Version        uint
	Changes        []Event `badgerhold:"-"`
}

func NewDispute(e DisputeRaised) (*Dispute, error) {
	if e.DisputeID == "" || e.EscrowID == "" {
		return nil, Integrityf("dispute raised event missing ids")
	}
	d := &Dispute{
		ID:             e.DisputeID,
		EscrowID:       e.EscrowID,
		MilestoneIndex: e.MilestoneIndex,
		InitiatorID:    e.InitiatorID,
		RespondentID:   e.RespondentID,
		Status:         DisputeStatusPending,
		RaisedAt:       e.Timestamp,
		Changes:        []Event{e},
	}
	return d, nil
}

func (d *Dispute) On(event Event, replayed bool) {
	switch e := event.(type) {
	case ArbitratorsAssigned:
		d.Panel = append([]string{}, e.PanelIDs...)
		d.ArbitratorID = e.PanelIDs[0]
		d.Status = DisputeStatusAssigned
	case DisputeResolved:
		d.Resolution = e.Resolution
		d.ResolvedAt = e.Timestamp
		d.Status = DisputeStatusResolved
	case DisputeAppealed:
		d.PriorPanel = append([]string{}, d.Panel...)
		d.Panel = nil
		d.ArbitratorID = ""
		d.Status = DisputeStatusAppealed
	case disputeUnresolvable:
		d.FailureReason = e.Reason
		d.Status = DisputeStatusUnresolvable
	}

	if replayed {
		d.Version++
	}
}

func (d *Dispute) Assign(e ArbitratorsAssigned) ([]Event, error) {
	if d.Status != DisputeStatusPending && d.Status != DisputeStatusAppealed {
		return nil, Integrityf("dispute %s not in a valid status for assignment", d.ID)
	}
	if len(e.PanelIDs) == 0 {
		return nil, Integrityf("empty arbitrator panel for dispute %s", d.ID)
	}
	// An appeal re-runs selection with the prior panel barred.
	for _, id := range e.PanelIDs {
		for _, prior := range d.PriorPanel {
			if id == prior {
				return nil, Integrityf(
					"arbitrator %s sat on the prior panel of dispute %s", id, d.ID,
				)
			}
		}
	}
	d.raise(e)
	return []Event{e}, nil
}

func (d *Dispute) Resolve(e DisputeResolved) ([]Event, error) {
	if d.Status != DisputeStatusAssigned {
		return nil, Integrityf("dispute %s is not assigned", d.ID)
	}
	d.raise(e)
	return []Event{e}, nil
}

func (d *Dispute) Appeal(e DisputeAppealed) ([]Event, error) {
	if d.Status != DisputeStatusResolved {
		return nil, Integrityf("dispute %s is not resolved", d.ID)
	}
	if len(d.PriorPanel) > 0 {
		return nil, Integrityf("dispute %s was already appealed once", d.ID)
	}
	d.raise(e)
	return []Event{e}, nil
}

// MarkUnresolvable records a fairness failure: no arbitrator pool satisfies
// the geographic exclusion even after widening. The exclusion is never
// violated to force an assignment.
func (d *Dispute) MarkUnresolvable(reason string) []Event {
	if d.Status == DisputeStatusUnresolvable {
		return nil
	}
	event := disputeUnresolvable{DisputeID: d.ID, EscrowID: d.EscrowID, Reason: reason}
	d.raise(event)
	return []Event{event}
}

func (d *Dispute) IsActive() bool {
	return d.Status == DisputeStatusPending || d.Status == DisputeStatusAssigned ||
		d.Status == DisputeStatusAppealed
}

func (d *Dispute) Events() []Event {
	return d.Changes
}

func (d *Dispute) raise(event Event) {
	if d.Changes == nil {
		d.Changes = make([]Event, 0)
	}
	d.Changes = append(d.Changes, event)
	d.On(event, false)
}

type disputeUnresolvable struct {
	DisputeID string
	EscrowID  string
	Reason    string
}

func (e disputeUnresolvable) isEvent()            {}
func (e disputeUnresolvable) Key() EventKey       { return EventKey{} }
func (e disputeUnresolvable) Type() EventType     { return "dispute.unresolvable" }
func (e disputeUnresolvable) AggregateID() string { return e.EscrowID }
