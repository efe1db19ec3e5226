package application

import (
	"context"
	"fmt"
	"time"

	"github.com/gigledger/gigd/internal/core/domain"
	"github.com/gigledger/gigd/internal/core/ports"
	log "github.com/sirupsen/logrus"
)

const shutdownDrainTimeout = 10 * time.Second

// Service is the mirror's application surface: the ingestion lifecycle,
// client-initiated ledger submissions and read access to the mirrored state.
//
// Submissions validate against the mirror before hitting the ledger so that
// obviously doomed transactions are rejected without spending fees, but the
// mirror is never the authority: the returned TxRef is a pending reference
// and the state changes only when the resulting event comes back.
type Service interface {
	Start() error
	Stop()

	CreateJob(ctx context.Context, req ports.CreateJobRequest) (ports.TxRef, error)
	SubmitBid(ctx context.Context, req ports.SubmitBidRequest) (ports.TxRef, error)
	AcceptBid(ctx context.Context, req ports.AcceptBidRequest) (ports.TxRef, error)
	RaiseDispute(ctx context.Context, req ports.RaiseDisputeRequest) (ports.TxRef, error)

	GetJob(ctx context.Context, jobID string) (*domain.Job, error)
	GetEscrow(ctx context.Context, escrowID string) (*domain.Escrow, error)
	GetDispute(ctx context.Context, disputeID string) (*domain.Dispute, error)
	DeadLetteredEvents() []DeadLetteredEvent
}

// DeadLetteredEvent is the operator's view of an event the pipeline gave up
// on, either after spending its retry budget or immediately on a
// non-retryable failure.
type DeadLetteredEvent struct {
	Key        string
	Type       string
	Attempts   int
	LastError  string
	EnqueuedAt time.Time
}

type service struct {
	ledger      ports.LedgerClient
	repoManager ports.RepoManager
	scheduler   ports.SchedulerService
	notifier    ports.Notifier

	queue       *eventQueue
	reconciler  *reconciler
	coordinator *coordinator

	reconcileInterval int64
	sweepInterval     int64

	stopCh chan struct{}
}

func NewService(
	ledger ports.LedgerClient,
	repoManager ports.RepoManager,
	liveStore ports.LiveStore,
	scheduler ports.SchedulerService,
	notifier ports.Notifier,
	metadata ports.MetadataStore,
	oracle ports.PriceOracle,
	randomness ports.RandomnessSource,
	panelSize, arbitratorLoadCap int,
	yieldFreelancerBps uint32,
	reconcileInterval, sweepInterval int64,
) (Service, error) {
	if panelSize <= 0 || panelSize%2 == 0 {
		return nil, fmt.Errorf("panel size must be a positive odd number, got %d", panelSize)
	}
	if yieldFreelancerBps > 10000 {
		return nil, fmt.Errorf("yield split must be at most 10000 bps, got %d", yieldFreelancerBps)
	}

	queue := newEventQueue()
	coordinator := newCoordinator(ledger, liveStore, repoManager, yieldFreelancerBps)
	selection := newSelectionEngine(repoManager, randomness, ledger, panelSize, arbitratorLoadCap)
	reconciler := newReconciler(
		repoManager, metadata, oracle, notifier, coordinator, selection, queue,
	)

	return &service{
		ledger:            ledger,
		repoManager:       repoManager,
		scheduler:         scheduler,
		notifier:          notifier,
		queue:             queue,
		reconciler:        reconciler,
		coordinator:       coordinator,
		reconcileInterval: reconcileInterval,
		sweepInterval:     sweepInterval,
		stopCh:            make(chan struct{}),
	}, nil
}

func (s *service) Start() error {
	ctx := context.Background()

	// Rebuild the live approval cache from the durable store before any new
	// event is processed, so a restart cannot double-count or lose approvals.
	if err := s.coordinator.hydrate(ctx); err != nil {
		return fmt.Errorf("failed to hydrate approval state: %s", err)
	}

	if err := s.ledger.Start(ctx); err != nil {
		return fmt.Errorf("failed to start ledger subscription: %s", err)
	}
	go s.listenToLedger()

	s.scheduler.Start()
	if err := s.scheduler.ScheduleTask(
		s.reconcileInterval, true, s.reconciler.reconcile,
	); err != nil {
		return err
	}
	if err := s.scheduler.ScheduleTask(
		s.sweepInterval, false, s.reconciler.closeExpiredBidding,
	); err != nil {
		return err
	}
	if err := s.scheduler.ScheduleTask(
		s.sweepInterval, false, s.reconciler.assignPendingDisputes,
	); err != nil {
		return err
	}

	log.Info("mirror service started")
	return nil
}

func (s *service) Stop() {
	close(s.stopCh)
	s.scheduler.Stop()
	s.ledger.Close()
	s.reconciler.drain(shutdownDrainTimeout)
	s.notifier.Close()
	s.repoManager.Close()
	log.Info("mirror service stopped")
}

// listenToLedger moves inbound events from the subscription into the typed
// queue. Enqueueing never blocks on processing, so a burst of ledger activity
// cannot stall the websocket reader.
func (s *service) listenToLedger() {
	eventsCh := s.ledger.GetEventsChannel()
	for {
		select {
		case <-s.stopCh:
			return
		case event, ok := <-eventsCh:
			if !ok {
				log.Warn("ledger event channel closed")
				return
			}
			s.queue.enqueue(event)
			log.Debugf("queued event %s (%s)", event.Key(), event.Type())
		}
	}
}

func (s *service) CreateJob(
	ctx context.Context, req ports.CreateJobRequest,
) (ports.TxRef, error) {
	if req.TotalBudget == 0 {
		return ports.TxRef{}, domain.BusinessRulef(
			"job.budget", "total budget must be positive",
		)
	}
	if req.BiddingDeadline <= time.Now().Unix() {
		return ports.TxRef{}, domain.BusinessRulef(
			"job.deadline", "bidding deadline %d is in the past", req.BiddingDeadline,
		)
	}
	if req.MetadataHash == "" {
		return ports.TxRef{}, domain.BusinessRulef(
			"job.metadata", "metadata hash is required",
		)
	}
	return s.ledger.CreateJob(ctx, req)
}

func (s *service) SubmitBid(
	ctx context.Context, req ports.SubmitBidRequest,
) (ports.TxRef, error) {
	job, err := s.GetJob(ctx, req.JobID)
	if err != nil {
		return ports.TxRef{}, err
	}
	if job.Status != domain.JobStatusOpen {
		return ports.TxRef{}, domain.BusinessRulef(
			"bid.job-open", "job %s is not accepting bids (%s)", job.ID, job.Status,
		)
	}
	if req.Amount == 0 {
		return ports.TxRef{}, domain.BusinessRulef(
			"bid.amount", "bid amount must be positive",
		)
	}
	return s.ledger.SubmitBid(ctx, req)
}

func (s *service) AcceptBid(
	ctx context.Context, req ports.AcceptBidRequest,
) (ports.TxRef, error) {
	job, err := s.GetJob(ctx, req.JobID)
	if err != nil {
		return ports.TxRef{}, err
	}
	bid, ok := job.Bids[req.BidID]
	if !ok {
		return ports.TxRef{}, domain.BusinessRulef(
			"accept.bid-known", "job %s has no bid %s", job.ID, req.BidID,
		)
	}
	if bid.Status != domain.BidStatusActive {
		return ports.TxRef{}, domain.BusinessRulef(
			"accept.bid-active", "bid %s is %s", bid.ID, bid.Status,
		)
	}

	var total uint64
	for _, m := range req.Milestones {
		if m.Amount == 0 {
			return ports.TxRef{}, domain.BusinessRulef(
				"accept.milestone-amount", "milestone amounts must be positive",
			)
		}
		total += m.Amount
	}
	if total != bid.Amount {
		return ports.TxRef{}, domain.BusinessRulef(
			"accept.milestone-sum",
			"milestones sum to %d, bid amount is %d", total, bid.Amount,
		)
	}
	return s.ledger.AcceptBid(ctx, req)
}

func (s *service) RaiseDispute(
	ctx context.Context, req ports.RaiseDisputeRequest,
) (ports.TxRef, error) {
	escrow, err := s.GetEscrow(ctx, req.EscrowID)
	if err != nil {
		return ports.TxRef{}, err
	}
	if req.MilestoneIndex < 0 || req.MilestoneIndex >= len(escrow.Milestones) {
		return ports.TxRef{}, domain.BusinessRulef(
			"dispute.milestone-known",
			"escrow %s has no milestone %d", escrow.ID, req.MilestoneIndex,
		)
	}
	m := escrow.Milestones[req.MilestoneIndex]
	if m.Status == domain.MilestoneStatusReleased {
		return ports.TxRef{}, domain.BusinessRulef(
			"dispute.not-released", "milestone %d is already released", req.MilestoneIndex,
		)
	}
	if m.Status == domain.MilestoneStatusDisputed {
		return ports.TxRef{}, domain.BusinessRulef(
			"dispute.single-active", "milestone %d is already disputed", req.MilestoneIndex,
		)
	}
	return s.ledger.RaiseDispute(ctx, req)
}

func (s *service) GetJob(ctx context.Context, jobID string) (*domain.Job, error) {
	return s.repoManager.Jobs().GetJobWithID(ctx, jobID)
}

func (s *service) GetEscrow(ctx context.Context, escrowID string) (*domain.Escrow, error) {
	return s.repoManager.Escrows().GetEscrowWithID(ctx, escrowID)
}

func (s *service) GetDispute(ctx context.Context, disputeID string) (*domain.Dispute, error) {
	return s.repoManager.Disputes().GetDisputeWithID(ctx, disputeID)
}

func (s *service) DeadLetteredEvents() []DeadLetteredEvent {
	items := s.queue.deadLetters()
	out := make([]DeadLetteredEvent, 0, len(items))
	for _, item := range items {
		out = append(out, DeadLetteredEvent{
			Key:        item.Event.Key().String(),
			Type:       string(item.Event.Type()),
			Attempts:   item.RetryCount,
			LastError:  item.LastError,
			EnqueuedAt: item.EnqueuedAt,
		})
	}
	return out
}
