package application

import (
	"context"
	"fmt"
	"sync"

	"github.com/gigledger/gigd/internal/core/domain"
	"github.com/gigledger/gigd/internal/core/ports"
)

type fakeJobRepo struct {
	lock sync.Mutex
	jobs map[string]domain.Job
}

func (r *fakeJobRepo) AddOrUpdateJob(ctx context.Context, job domain.Job) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	job.Changes = nil
	r.jobs[job.ID] = job
	return nil
}

func (r *fakeJobRepo) GetJobWithID(ctx context.Context, id string) (*domain.Job, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job with id %s: %w", id, domain.ErrNotFound)
	}
	return &job, nil
}

func (r *fakeJobRepo) GetOpenJobsPastDeadline(
	ctx context.Context, now int64,
) ([]domain.Job, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	jobs := make([]domain.Job, 0)
	for _, job := range r.jobs {
		if job.Status == domain.JobStatusOpen && job.BiddingDeadline < now {
			jobs = append(jobs, job)
		}
	}
	return jobs, nil
}

type fakeEscrowRepo struct {
	lock    sync.Mutex
	escrows map[string]domain.Escrow
}

func (r *fakeEscrowRepo) AddOrUpdateEscrow(ctx context.Context, escrow domain.Escrow) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	escrow.Changes = nil
	r.escrows[escrow.ID] = escrow
	return nil
}

func (r *fakeEscrowRepo) GetEscrowWithID(ctx context.Context, id string) (*domain.Escrow, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	escrow, ok := r.escrows[id]
	if !ok {
		return nil, fmt.Errorf("escrow with id %s: %w", id, domain.ErrNotFound)
	}
	return &escrow, nil
}

func (r *fakeEscrowRepo) GetEscrowWithJobID(
	ctx context.Context, jobID string,
) (*domain.Escrow, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	for _, escrow := range r.escrows {
		if escrow.JobID == jobID {
			e := escrow
			return &e, nil
		}
	}
	return nil, fmt.Errorf("escrow for job %s: %w", jobID, domain.ErrNotFound)
}

func (r *fakeEscrowRepo) GetActiveEscrows(ctx context.Context) ([]domain.Escrow, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	escrows := make([]domain.Escrow, 0)
	for _, escrow := range r.escrows {
		if escrow.Status != domain.EscrowStatusCompleted {
			escrows = append(escrows, escrow)
		}
	}
	return escrows, nil
}

type fakeDisputeRepo struct {
	lock     sync.Mutex
	disputes map[string]domain.Dispute
}

func (r *fakeDisputeRepo) AddOrUpdateDispute(ctx context.Context, dispute domain.Dispute) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	dispute.Changes = nil
	r.disputes[dispute.ID] = dispute
	return nil
}

func (r *fakeDisputeRepo) GetDisputeWithID(ctx context.Context, id string) (*domain.Dispute, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	dispute, ok := r.disputes[id]
	if !ok {
		return nil, fmt.Errorf("dispute with id %s: %w", id, domain.ErrNotFound)
	}
	return &dispute, nil
}

func (r *fakeDisputeRepo) GetActiveDisputeForMilestone(
	ctx context.Context, escrowID string, milestoneIndex int,
) (*domain.Dispute, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	for _, dispute := range r.disputes {
		if dispute.EscrowID == escrowID && dispute.MilestoneIndex == milestoneIndex &&
			dispute.IsActive() {
			d := dispute
			return &d, nil
		}
	}
	return nil, fmt.Errorf("active dispute: %w", domain.ErrNotFound)
}

func (r *fakeDisputeRepo) GetUnassignedDisputes(ctx context.Context) ([]domain.Dispute, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	disputes := make([]domain.Dispute, 0)
	for _, dispute := range r.disputes {
		if dispute.Status == domain.DisputeStatusPending ||
			dispute.Status == domain.DisputeStatusAppealed {
			disputes = append(disputes, dispute)
		}
	}
	return disputes, nil
}

type fakeArbitratorRepo struct {
	lock        sync.Mutex
	arbitrators map[string]domain.Arbitrator
}

func (r *fakeArbitratorRepo) AddOrUpdateArbitrator(
	ctx context.Context, arbitrator domain.Arbitrator,
) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.arbitrators[arbitrator.ID] = arbitrator
	return nil
}

func (r *fakeArbitratorRepo) GetArbitratorWithID(
	ctx context.Context, id string,
) (*domain.Arbitrator, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	arbitrator, ok := r.arbitrators[id]
	if !ok {
		return nil, fmt.Errorf("arbitrator with id %s: %w", id, domain.ErrNotFound)
	}
	return &arbitrator, nil
}

func (r *fakeArbitratorRepo) GetActiveArbitrators(ctx context.Context) ([]domain.Arbitrator, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	arbitrators := make([]domain.Arbitrator, 0)
	for _, arbitrator := range r.arbitrators {
		if arbitrator.IsActive {
			arbitrators = append(arbitrators, arbitrator)
		}
	}
	return arbitrators, nil
}

type fakeAppliedEventRepo struct {
	lock    sync.Mutex
	applied map[string]bool
	failing bool
}

func (r *fakeAppliedEventRepo) Add(ctx context.Context, key domain.EventKey) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.failing {
		return fmt.Errorf("applied events store is down")
	}
	r.applied[key.String()] = true
	return nil
}

func (r *fakeAppliedEventRepo) Contains(ctx context.Context, key domain.EventKey) (bool, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.failing {
		return false, fmt.Errorf("applied events store is down")
	}
	return r.applied[key.String()], nil
}

type fakeRepoManager struct {
	jobRepo          *fakeJobRepo
	escrowRepo       *fakeEscrowRepo
	disputeRepo      *fakeDisputeRepo
	arbitratorRepo   *fakeArbitratorRepo
	appliedEventRepo *fakeAppliedEventRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		jobRepo:          &fakeJobRepo{jobs: make(map[string]domain.Job)},
		escrowRepo:       &fakeEscrowRepo{escrows: make(map[string]domain.Escrow)},
		disputeRepo:      &fakeDisputeRepo{disputes: make(map[string]domain.Dispute)},
		arbitratorRepo:   &fakeArbitratorRepo{arbitrators: make(map[string]domain.Arbitrator)},
		appliedEventRepo: &fakeAppliedEventRepo{applied: make(map[string]bool)},
	}
}

func (m *fakeRepoManager) Jobs() domain.JobRepository                   { return m.jobRepo }
func (m *fakeRepoManager) Escrows() domain.EscrowRepository             { return m.escrowRepo }
func (m *fakeRepoManager) Disputes() domain.DisputeRepository           { return m.disputeRepo }
func (m *fakeRepoManager) Arbitrators() domain.ArbitratorRepository     { return m.arbitratorRepo }
func (m *fakeRepoManager) AppliedEvents() domain.AppliedEventRepository { return m.appliedEventRepo }
func (m *fakeRepoManager) Close()                                      {}

type fakeLedger struct {
	lock        sync.Mutex
	events      chan domain.Event
	releases    []ports.ReleaseRequest
	assignments []ports.AssignArbitratorsRequest
	releaseErr  error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{events: make(chan domain.Event, 64)}
}

func (l *fakeLedger) Start(ctx context.Context) error         { return nil }
func (l *fakeLedger) GetEventsChannel() <-chan domain.Event   { return l.events }
func (l *fakeLedger) Close()                                  {}

func (l *fakeLedger) CreateJob(
	ctx context.Context, req ports.CreateJobRequest,
) (ports.TxRef, error) {
	return ports.TxRef{TxHash: "tx-create-job"}, nil
}

func (l *fakeLedger) SubmitBid(
	ctx context.Context, req ports.SubmitBidRequest,
) (ports.TxRef, error) {
	return ports.TxRef{TxHash: "tx-submit-bid"}, nil
}

func (l *fakeLedger) AcceptBid(
	ctx context.Context, req ports.AcceptBidRequest,
) (ports.TxRef, error) {
	return ports.TxRef{TxHash: "tx-accept-bid"}, nil
}

func (l *fakeLedger) ReleaseMilestonePayment(
	ctx context.Context, req ports.ReleaseRequest,
) (ports.TxRef, error) {
	l.lock.Lock()
	defer l.lock.Unlock()
	if l.releaseErr != nil {
		return ports.TxRef{}, l.releaseErr
	}
	l.releases = append(l.releases, req)
	return ports.TxRef{TxHash: fmt.Sprintf("tx-release-%d", len(l.releases))}, nil
}

func (l *fakeLedger) RaiseDispute(
	ctx context.Context, req ports.RaiseDisputeRequest,
) (ports.TxRef, error) {
	return ports.TxRef{TxHash: "tx-raise-dispute"}, nil
}

func (l *fakeLedger) AssignArbitrators(
	ctx context.Context, req ports.AssignArbitratorsRequest,
) (ports.TxRef, error) {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.assignments = append(l.assignments, req)
	return ports.TxRef{TxHash: fmt.Sprintf("tx-assign-%d", len(l.assignments))}, nil
}

func (l *fakeLedger) releaseRequests() []ports.ReleaseRequest {
	l.lock.Lock()
	defer l.lock.Unlock()
	return append([]ports.ReleaseRequest{}, l.releases...)
}

func (l *fakeLedger) assignmentRequests() []ports.AssignArbitratorsRequest {
	l.lock.Lock()
	defer l.lock.Unlock()
	return append([]ports.AssignArbitratorsRequest{}, l.assignments...)
}

type fakeNotifier struct {
	lock     sync.Mutex
	payloads map[string][]interface{}
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{payloads: make(map[string][]interface{})}
}

func (n *fakeNotifier) Publish(ctx context.Context, topic string, payload interface{}) error {
	n.lock.Lock()
	defer n.lock.Unlock()
	n.payloads[topic] = append(n.payloads[topic], payload)
	return nil
}

func (n *fakeNotifier) Close() {}

func (n *fakeNotifier) published(topic string) []interface{} {
	n.lock.Lock()
	defer n.lock.Unlock()
	return append([]interface{}{}, n.payloads[topic]...)
}

type fakeMetadataStore struct {
	meta map[string]*ports.JobMetadata
	err  error
}

func (s *fakeMetadataStore) FetchByHash(
	ctx context.Context, hash string,
) (*ports.JobMetadata, error) {
	if s.err != nil {
		return nil, s.err
	}
	if meta, ok := s.meta[hash]; ok {
		return meta, nil
	}
	return &ports.JobMetadata{}, nil
}

type fakeOracle struct {
	priceCents uint64
	err        error
}

func (o *fakeOracle) Quote(ctx context.Context, assetID string, amount uint64) (uint64, error) {
	if o.err != nil {
		return 0, o.err
	}
	return amount * o.priceCents, nil
}

type fakeRandomness struct {
	beacon *ports.Beacon
	err    error
}

func (r *fakeRandomness) Latest(ctx context.Context) (*ports.Beacon, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.beacon, nil
}

type fakeLiveStore struct {
	approvals *fakeApprovalsStore
}

func newFakeLiveStore() *fakeLiveStore {
	return &fakeLiveStore{approvals: &fakeApprovalsStore{
		entries: make(map[string]map[domain.ApprovalRole]bool),
	}}
}

func (s *fakeLiveStore) Approvals() ports.ApprovalsStore { return s.approvals }

type fakeApprovalsStore struct {
	lock    sync.Mutex
	entries map[string]map[domain.ApprovalRole]bool
}

func approvalEntryKey(escrowID string, milestoneIndex int) string {
	return fmt.Sprintf("%s:%d", escrowID, milestoneIndex)
}

func (s *fakeApprovalsStore) Add(
	ctx context.Context, escrowID string, milestoneIndex int, role domain.ApprovalRole,
) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	key := approvalEntryKey(escrowID, milestoneIndex)
	if _, ok := s.entries[key]; !ok {
		s.entries[key] = make(map[domain.ApprovalRole]bool)
	}
	s.entries[key][role] = true
	return nil
}

func (s *fakeApprovalsStore) Get(
	ctx context.Context, escrowID string, milestoneIndex int,
) ([]domain.ApprovalRole, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	roles := make([]domain.ApprovalRole, 0)
	for role := range s.entries[approvalEntryKey(escrowID, milestoneIndex)] {
		roles = append(roles, role)
	}
	return roles, nil
}

func (s *fakeApprovalsStore) Reset(
	ctx context.Context, escrowID string, milestoneIndex int,
) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	delete(s.entries, approvalEntryKey(escrowID, milestoneIndex))
	return nil
}
