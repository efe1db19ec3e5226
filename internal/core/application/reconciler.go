package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gigledger/gigd/internal/core/domain"
	"github.com/gigledger/gigd/internal/core/ports"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// reconciler drains the ingestion queue on a fixed interval and idempotently
// projects ledger events into the durable store. The transition is computed
// first on the aggregate; side effects (metadata fetch, price quote, persist,
// notify) run after, and a side-effect failure retries the whole event rather
// than leaving a half-applied state.
type reconciler struct {
	repoManager ports.RepoManager
	metadata    ports.MetadataStore
	oracle      ports.PriceOracle
	notifier    ports.Notifier
	coordinator *coordinator
	selection   *selectionEngine
	queue       *eventQueue

	lock        *sync.Mutex
	entityLocks map[string]*sync.Mutex
	inFlight    sync.WaitGroup
}

func newReconciler(
	repoManager ports.RepoManager, metadata ports.MetadataStore,
	oracle ports.PriceOracle, notifier ports.Notifier,
	coordinator *coordinator, selection *selectionEngine, queue *eventQueue,
) *reconciler {
	return &reconciler{
		repoManager: repoManager,
		metadata:    metadata,
		oracle:      oracle,
		notifier:    notifier,
		coordinator: coordinator,
		selection:   selection,
		queue:       queue,
		lock:        &sync.Mutex{},
		entityLocks: make(map[string]*sync.Mutex),
	}
}

// reconcile is the scheduler tick: every event type drains concurrently, up
// to maxDrainPerTick events per type, while events of one aggregate are
// serialized by the per-entity locks.
func (r *reconciler) reconcile() {
	r.inFlight.Add(1)
	defer r.inFlight.Done()

	g := errgroup.Group{}
	for _, eventType := range domain.EventTypes {
		eventType := eventType
		g.Go(func() error {
			for _, item := range r.queue.drainBatch(eventType, maxDrainPerTick) {
				r.process(item)
			}
			return nil
		})
	}
	//nolint:errcheck
	g.Wait()
}

func (r *reconciler) process(item queuedEvent) {
	ctx := context.Background()
	err := r.applyEvent(ctx, item.Event)
	if err == nil {
		return
	}

	if !domain.Retryable(err) {
		r.queue.deadLetter(item, err)
		r.alert(ctx, item.Event, err)
		return
	}

	if deadLettered := r.queue.requeue(item, err); deadLettered {
		r.alert(ctx, item.Event, err)
		return
	}
	log.WithError(err).Debugf(
		"event %s failed, retry %d scheduled", item.Event.Key(), item.RetryCount+1,
	)
}

func (r *reconciler) applyEvent(ctx context.Context, event domain.Event) error {
	applied, err := r.repoManager.AppliedEvents().Contains(ctx, event.Key())
	if err != nil {
		return domain.Transientf("failed to check applied events: %s", err)
	}
	if applied {
		// Redelivery after reconnect, not an error.
		log.Debugf("event %s already applied, skipping", event.Key())
		return nil
	}

	lock := r.entityLock(event.AggregateID())
	lock.Lock()
	defer lock.Unlock()

	switch e := event.(type) {
	case domain.JobCreated:
		err = r.applyJobCreated(ctx, e)
	case domain.JobCancelled:
		err = r.applyJobCancelled(ctx, e)
	case domain.BidSubmitted:
		err = r.applyBidSubmitted(ctx, e)
	case domain.BidRevised:
		err = r.applyBidRevised(ctx, e)
	case domain.BidWithdrawn:
		err = r.applyBidWithdrawn(ctx, e)
	case domain.BidAccepted:
		err = r.applyBidAccepted(ctx, e)
	case domain.MilestoneSubmitted:
		err = r.applyMilestoneSubmitted(ctx, e)
	case domain.MilestoneApproved:
		err = r.applyMilestoneApproved(ctx, e)
	case domain.MilestoneRejected:
		err = r.applyMilestoneRejected(ctx, e)
	case domain.MilestoneReleased:
		err = r.applyMilestoneReleased(ctx, e)
	case domain.DisputeRaised:
		err = r.applyDisputeRaised(ctx, e)
	case domain.ArbitratorsAssigned:
		err = r.applyArbitratorsAssigned(ctx, e)
	case domain.DisputeResolved:
		err = r.applyDisputeResolved(ctx, e)
	case domain.DisputeAppealed:
		err = r.applyDisputeAppealed(ctx, e)
	default:
		err = domain.Integrityf("unknown event type %s", event.Type())
	}
	if err != nil {
		return err
	}

	if err := r.repoManager.AppliedEvents().Add(ctx, event.Key()); err != nil {
		return domain.Transientf("failed to mark event %s applied: %s", event.Key(), err)
	}
	return nil
}

func (r *reconciler) applyJobCreated(ctx context.Context, e domain.JobCreated) error {
	job, err := domain.NewJob(e)
	if err != nil {
		return err
	}

	meta, err := r.metadata.FetchByHash(ctx, e.MetadataHash)
	if err != nil {
		return domain.Transientf("failed to fetch metadata %s: %s", e.MetadataHash, err)
	}
	job.Skills = meta.Skills

	fiat, err := r.oracle.Quote(ctx, e.PaymentAsset, e.TotalBudget)
	if err != nil {
		return domain.Transientf("failed to quote job budget: %s", err)
	}
	job.FiatValue = fiat

	if err := r.repoManager.Jobs().AddOrUpdateJob(ctx, *job); err != nil {
		return domain.Transientf("failed to persist job %s: %s", job.ID, err)
	}
	r.notify(ctx, ports.TopicJobs, jobNotification(job))
	log.Debugf("mirrored new job %s with budget %d", job.ID, job.TotalBudget)
	return nil
}

func (r *reconciler) applyJobCancelled(ctx context.Context, e domain.JobCancelled) error {
	job, err := r.loadJob(ctx, e.JobID)
	if err != nil {
		return err
	}
	if _, err := job.Cancel(e); err != nil {
		return err
	}
	if err := r.repoManager.Jobs().AddOrUpdateJob(ctx, *job); err != nil {
		return domain.Transientf("failed to persist job %s: %s", job.ID, err)
	}
	r.notify(ctx, ports.TopicJobs, jobNotification(job))
	return nil
}

func (r *reconciler) applyBidSubmitted(ctx context.Context, e domain.BidSubmitted) error {
	job, err := r.loadJob(ctx, e.JobID)
	if err != nil {
		return err
	}
	if _, err := job.RegisterBid(e); err != nil {
		return err
	}
	if err := r.repoManager.Jobs().AddOrUpdateJob(ctx, *job); err != nil {
		return domain.Transientf("failed to persist job %s: %s", job.ID, err)
	}
	r.notify(ctx, ports.TopicJobs, jobNotification(job))
	return nil
}

func (r *reconciler) applyBidRevised(ctx context.Context, e domain.BidRevised) error {
	job, err := r.loadJob(ctx, e.JobID)
	if err != nil {
		return err
	}
	if _, err := job.ReviseBid(e); err != nil {
		return err
	}
	if err := r.repoManager.Jobs().AddOrUpdateJob(ctx, *job); err != nil {
		return domain.Transientf("failed to persist job %s: %s", job.ID, err)
	}
	return nil
}

func (r *reconciler) applyBidWithdrawn(ctx context.Context, e domain.BidWithdrawn) error {
	job, err := r.loadJob(ctx, e.JobID)
	if err != nil {
		return err
	}
	if _, err := job.WithdrawBid(e); err != nil {
		return err
	}
	if err := r.repoManager.Jobs().AddOrUpdateJob(ctx, *job); err != nil {
		return domain.Transientf("failed to persist job %s: %s", job.ID, err)
	}
	return nil
}

func (r *reconciler) applyBidAccepted(ctx context.Context, e domain.BidAccepted) error {
	job, err := r.loadJob(ctx, e.JobID)
	if err != nil {
		return err
	}
	if _, err := job.AcceptBid(e); err != nil {
		return err
	}
	escrow, err := domain.NewEscrow(e, *job, job.Bids[e.BidID])
	if err != nil {
		return err
	}

	if err := r.repoManager.Escrows().AddOrUpdateEscrow(ctx, *escrow); err != nil {
		return domain.Transientf("failed to persist escrow %s: %s", escrow.ID, err)
	}
	if err := r.repoManager.Jobs().AddOrUpdateJob(ctx, *job); err != nil {
		return domain.Transientf("failed to persist job %s: %s", job.ID, err)
	}
	r.notify(ctx, ports.TopicJobs, jobNotification(job))
	r.notify(ctx, ports.TopicEscrows, escrowNotification(escrow))
	log.Debugf("opened escrow %s for job %s", escrow.ID, job.ID)
	return nil
}

func (r *reconciler) applyMilestoneSubmitted(ctx context.Context, e domain.MilestoneSubmitted) error {
	escrow, err := r.loadEscrow(ctx, e.EscrowID)
	if err != nil {
		return err
	}
	if _, err := escrow.SubmitDeliverable(e); err != nil {
		return err
	}
	if err := r.repoManager.Escrows().AddOrUpdateEscrow(ctx, *escrow); err != nil {
		return domain.Transientf("failed to persist escrow %s: %s", escrow.ID, err)
	}
	r.notify(ctx, ports.TopicEscrows, escrowNotification(escrow))
	return nil
}

func (r *reconciler) applyMilestoneApproved(ctx context.Context, e domain.MilestoneApproved) error {
	escrow, err := r.loadEscrow(ctx, e.EscrowID)
	if err != nil {
		return err
	}
	if _, err := escrow.Approve(e); err != nil {
		return err
	}
	if err := r.repoManager.Escrows().AddOrUpdateEscrow(ctx, *escrow); err != nil {
		return domain.Transientf("failed to persist escrow %s: %s", escrow.ID, err)
	}

	// Financial submissions are never retried by the pipeline: a failed
	// release is reported and waits for explicit re-invocation.
	if _, err := r.coordinator.recordApproval(ctx, escrow, e.MilestoneIndex, e.Role); err != nil {
		log.WithError(err).Warnf(
			"failed to submit release for milestone %d of escrow %s",
			e.MilestoneIndex, escrow.ID,
		)
		r.alert(ctx, e, err)
	}
	r.notify(ctx, ports.TopicEscrows, escrowNotification(escrow))
	return nil
}

func (r *reconciler) applyMilestoneRejected(ctx context.Context, e domain.MilestoneRejected) error {
	escrow, err := r.loadEscrow(ctx, e.EscrowID)
	if err != nil {
		return err
	}
	if _, err := escrow.Reject(e); err != nil {
		return err
	}
	if err := r.repoManager.Escrows().AddOrUpdateEscrow(ctx, *escrow); err != nil {
		return domain.Transientf("failed to persist escrow %s: %s", escrow.ID, err)
	}
	r.notify(ctx, ports.TopicEscrows, escrowNotification(escrow))
	return nil
}

func (r *reconciler) applyMilestoneReleased(ctx context.Context, e domain.MilestoneReleased) error {
	escrow, err := r.loadEscrow(ctx, e.EscrowID)
	if err != nil {
		return err
	}
	if _, err := escrow.Release(e); err != nil {
		return err
	}

	fiat, err := r.oracle.Quote(ctx, escrow.PaymentAsset, e.Amount)
	if err != nil {
		return domain.Transientf("failed to quote released amount: %s", err)
	}
	escrow.Milestones[e.MilestoneIndex].FiatValue = fiat

	if err := r.repoManager.Escrows().AddOrUpdateEscrow(ctx, *escrow); err != nil {
		return domain.Transientf("failed to persist escrow %s: %s", escrow.ID, err)
	}
	r.coordinator.reset(ctx, escrow.ID, e.MilestoneIndex)

	if escrow.Status == domain.EscrowStatusCompleted {
		job, err := r.loadJob(ctx, escrow.JobID)
		if err != nil {
			return err
		}
		if _, err := job.Complete(e.Timestamp); err != nil {
			return err
		}
		if err := r.repoManager.Jobs().AddOrUpdateJob(ctx, *job); err != nil {
			return domain.Transientf("failed to persist job %s: %s", job.ID, err)
		}
		r.notify(ctx, ports.TopicJobs, jobNotification(job))
	}
	freelancerAmount, clientAmount := r.coordinator.distribution(e.Amount, e.YieldAmount)
	r.notify(ctx, ports.TopicEscrows, releaseNotification(escrow, e, freelancerAmount, clientAmount))
	r.notify(ctx, ports.TopicEscrows, escrowNotification(escrow))
	log.Debugf(
		"released milestone %d of escrow %s, %d to freelancer, %d to client",
		e.MilestoneIndex, escrow.ID, freelancerAmount, clientAmount,
	)
	return nil
}

func (r *reconciler) applyDisputeRaised(ctx context.Context, e domain.DisputeRaised) error {
	existing, err := r.repoManager.Disputes().GetActiveDisputeForMilestone(
		ctx, e.EscrowID, e.MilestoneIndex,
	)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return domain.Transientf("failed to look up active dispute: %s", err)
	}
	if existing != nil {
		return domain.Integrityf(
			"milestone %d of escrow %s already has active dispute %s",
			e.MilestoneIndex, e.EscrowID, existing.ID,
		)
	}

	escrow, err := r.loadEscrow(ctx, e.EscrowID)
	if err != nil {
		return err
	}
	if _, err := escrow.OpenDispute(e); err != nil {
		return err
	}
	dispute, err := domain.NewDispute(e)
	if err != nil {
		return err
	}
	job, err := r.loadJob(ctx, escrow.JobID)
	if err != nil {
		return err
	}
	if _, err := job.MarkDisputed(); err != nil {
		return err
	}

	if err := r.repoManager.Escrows().AddOrUpdateEscrow(ctx, *escrow); err != nil {
		return domain.Transientf("failed to persist escrow %s: %s", escrow.ID, err)
	}
	if err := r.repoManager.Disputes().AddOrUpdateDispute(ctx, *dispute); err != nil {
		return domain.Transientf("failed to persist dispute %s: %s", dispute.ID, err)
	}
	if err := r.repoManager.Jobs().AddOrUpdateJob(ctx, *job); err != nil {
		return domain.Transientf("failed to persist job %s: %s", job.ID, err)
	}
	r.notify(ctx, ports.TopicDisputes, disputeNotification(dispute))

	// Selection runs after the dispute is durable. A transient failure here is
	// not a reconciliation failure: the pending-dispute sweep retries it.
	r.runSelection(ctx, dispute, escrow, job)
	return nil
}

func (r *reconciler) applyArbitratorsAssigned(ctx context.Context, e domain.ArbitratorsAssigned) error {
	dispute, err := r.loadDispute(ctx, e.DisputeID)
	if err != nil {
		return err
	}
	if _, err := dispute.Assign(e); err != nil {
		return err
	}
	escrow, err := r.loadEscrow(ctx, dispute.EscrowID)
	if err != nil {
		return err
	}
	if _, err := escrow.AssignArbitrators(e); err != nil {
		return err
	}

	for _, id := range e.PanelIDs {
		arbitrator, err := r.repoManager.Arbitrators().GetArbitratorWithID(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.Integrityf("assigned arbitrator %s is unknown", id)
			}
			return domain.Transientf("failed to load arbitrator %s: %s", id, err)
		}
		arbitrator.ActiveCaseCount++
		if err := r.repoManager.Arbitrators().AddOrUpdateArbitrator(ctx, *arbitrator); err != nil {
			return domain.Transientf("failed to persist arbitrator %s: %s", id, err)
		}
	}

	if err := r.repoManager.Disputes().AddOrUpdateDispute(ctx, *dispute); err != nil {
		return domain.Transientf("failed to persist dispute %s: %s", dispute.ID, err)
	}
	if err := r.repoManager.Escrows().AddOrUpdateEscrow(ctx, *escrow); err != nil {
		return domain.Transientf("failed to persist escrow %s: %s", escrow.ID, err)
	}
	r.notify(ctx, ports.TopicDisputes, disputeNotification(dispute))
	log.Debugf("dispute %s assigned to panel %v", dispute.ID, dispute.Panel)
	return nil
}

func (r *reconciler) applyDisputeResolved(ctx context.Context, e domain.DisputeResolved) error {
	dispute, err := r.loadDispute(ctx, e.DisputeID)
	if err != nil {
		return err
	}
	panel := append([]string{}, dispute.Panel...)
	if _, err := dispute.Resolve(e); err != nil {
		return err
	}
	escrow, err := r.loadEscrow(ctx, dispute.EscrowID)
	if err != nil {
		return err
	}
	if _, err := escrow.ResolveDispute(e); err != nil {
		return err
	}
	job, err := r.loadJob(ctx, escrow.JobID)
	if err != nil {
		return err
	}
	if _, err := job.Resume(); err != nil {
		return err
	}

	for _, id := range panel {
		arbitrator, err := r.repoManager.Arbitrators().GetArbitratorWithID(ctx, id)
		if err != nil {
			return domain.Transientf("failed to load arbitrator %s: %s", id, err)
		}
		if arbitrator.ActiveCaseCount > 0 {
			arbitrator.ActiveCaseCount--
		}
		if err := r.repoManager.Arbitrators().AddOrUpdateArbitrator(ctx, *arbitrator); err != nil {
			return domain.Transientf("failed to persist arbitrator %s: %s", id, err)
		}
	}

	if err := r.repoManager.Disputes().AddOrUpdateDispute(ctx, *dispute); err != nil {
		return domain.Transientf("failed to persist dispute %s: %s", dispute.ID, err)
	}
	if err := r.repoManager.Escrows().AddOrUpdateEscrow(ctx, *escrow); err != nil {
		return domain.Transientf("failed to persist escrow %s: %s", escrow.ID, err)
	}
	if err := r.repoManager.Jobs().AddOrUpdateJob(ctx, *job); err != nil {
		return domain.Transientf("failed to persist job %s: %s", job.ID, err)
	}

	// A ruling for the freelancer doubles as the arbitrator's release
	// approval; the milestone may now meet the threshold.
	if e.Resolution == domain.ResolutionForFreelancer {
		if _, err := r.coordinator.recordApproval(ctx, escrow, e.MilestoneIndex, domain.RoleArbitrator); err != nil {
			log.WithError(err).Warnf(
				"failed to submit release after resolution of dispute %s", dispute.ID,
			)
			r.alert(ctx, e, err)
		}
	}
	r.notify(ctx, ports.TopicDisputes, disputeNotification(dispute))
	return nil
}

func (r *reconciler) applyDisputeAppealed(ctx context.Context, e domain.DisputeAppealed) error {
	dispute, err := r.loadDispute(ctx, e.DisputeID)
	if err != nil {
		return err
	}
	if _, err := dispute.Appeal(e); err != nil {
		return err
	}
	escrow, err := r.loadEscrow(ctx, dispute.EscrowID)
	if err != nil {
		return err
	}
	if _, err := escrow.ReopenDispute(dispute.ID, dispute.MilestoneIndex); err != nil {
		return err
	}
	job, err := r.loadJob(ctx, escrow.JobID)
	if err != nil {
		return err
	}
	if _, err := job.MarkDisputed(); err != nil {
		return err
	}

	if err := r.repoManager.Disputes().AddOrUpdateDispute(ctx, *dispute); err != nil {
		return domain.Transientf("failed to persist dispute %s: %s", dispute.ID, err)
	}
	if err := r.repoManager.Escrows().AddOrUpdateEscrow(ctx, *escrow); err != nil {
		return domain.Transientf("failed to persist escrow %s: %s", escrow.ID, err)
	}
	if err := r.repoManager.Jobs().AddOrUpdateJob(ctx, *job); err != nil {
		return domain.Transientf("failed to persist job %s: %s", job.ID, err)
	}
	r.notify(ctx, ports.TopicDisputes, disputeNotification(dispute))

	// Re-run selection with the prior panel barred.
	r.runSelection(ctx, dispute, escrow, job)
	return nil
}

// runSelection attempts arbitrator selection for a dispute. Fairness failures
// mark the dispute unresolvable; transient failures are left for the
// pending-dispute sweep.
func (r *reconciler) runSelection(
	ctx context.Context, dispute *domain.Dispute, escrow *domain.Escrow, job *domain.Job,
) {
	criteria := selectionCriteria{
		ClientRegion:      escrow.ClientRegion,
		FreelancerRegion:  escrow.FreelancerRegion,
		RequiredExpertise: requiredExpertise(job),
	}
	if _, err := r.selection.selectAndAssign(ctx, dispute, criteria); err != nil {
		if domain.KindOf(err) == domain.ErrKindFairness {
			dispute.MarkUnresolvable(err.Error())
			if err := r.repoManager.Disputes().AddOrUpdateDispute(ctx, *dispute); err != nil {
				log.WithError(err).Warnf("failed to persist unresolvable dispute %s", dispute.ID)
			}
			r.alert(ctx, nil, err)
			return
		}
		log.WithError(err).Warnf(
			"arbitrator selection for dispute %s failed, sweep will retry", dispute.ID,
		)
	}
}

// closeExpiredBidding is a scheduled sweep expiring open jobs whose bidding
// deadline elapsed; the transition is deterministic from ledger data.
func (r *reconciler) closeExpiredBidding() {
	ctx := context.Background()
	now := time.Now().Unix()
	jobs, err := r.repoManager.Jobs().GetOpenJobsPastDeadline(ctx, now)
	if err != nil {
		log.WithError(err).Warn("failed to scan for expired bidding windows")
		return
	}
	for i := range jobs {
		job := jobs[i]
		lock := r.entityLock(job.ID)
		lock.Lock()
		events, err := job.CloseBidding(now)
		if err == nil && len(events) > 0 {
			if err := r.repoManager.Jobs().AddOrUpdateJob(ctx, job); err != nil {
				log.WithError(err).Warnf("failed to persist expired job %s", job.ID)
			} else {
				r.notify(ctx, ports.TopicJobs, jobNotification(&job))
				log.Debugf("closed bidding for job %s", job.ID)
			}
		}
		lock.Unlock()
	}
}

// assignPendingDisputes retries arbitrator selection for disputes that are
// still unassigned, e.g. after a beacon outage or an appeal.
func (r *reconciler) assignPendingDisputes() {
	ctx := context.Background()
	disputes, err := r.repoManager.Disputes().GetUnassignedDisputes(ctx)
	if err != nil {
		log.WithError(err).Warn("failed to scan for unassigned disputes")
		return
	}
	for i := range disputes {
		dispute := disputes[i]
		escrow, err := r.loadEscrow(ctx, dispute.EscrowID)
		if err != nil {
			log.WithError(err).Warnf("failed to load escrow of dispute %s", dispute.ID)
			continue
		}
		job, err := r.loadJob(ctx, escrow.JobID)
		if err != nil {
			log.WithError(err).Warnf("failed to load job of dispute %s", dispute.ID)
			continue
		}
		r.runSelection(ctx, &dispute, escrow, job)
	}
}

// drain blocks until in-flight reconciliation finishes or the timeout fires.
// Unfinished events stay queued and re-enter on restart.
func (r *reconciler) drain(timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		r.inFlight.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		log.Warnf("reconciliation did not drain within %s, %d events left queued", timeout, r.queue.size())
	}
}

func (r *reconciler) entityLock(id string) *sync.Mutex {
	r.lock.Lock()
	defer r.lock.Unlock()

	if _, ok := r.entityLocks[id]; !ok {
		r.entityLocks[id] = &sync.Mutex{}
	}
	return r.entityLocks[id]
}

func (r *reconciler) loadJob(ctx context.Context, id string) (*domain.Job, error) {
	job, err := r.repoManager.Jobs().GetJobWithID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.Integrityf("event references unknown job %s", id)
		}
		return nil, domain.Transientf("failed to load job %s: %s", id, err)
	}
	return job, nil
}

func (r *reconciler) loadEscrow(ctx context.Context, id string) (*domain.Escrow, error) {
	escrow, err := r.repoManager.Escrows().GetEscrowWithID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.Integrityf("event references unknown escrow %s", id)
		}
		return nil, domain.Transientf("failed to load escrow %s: %s", id, err)
	}
	return escrow, nil
}

func (r *reconciler) loadDispute(ctx context.Context, id string) (*domain.Dispute, error) {
	dispute, err := r.repoManager.Disputes().GetDisputeWithID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.Integrityf("event references unknown dispute %s", id)
		}
		return nil, domain.Transientf("failed to load dispute %s: %s", id, err)
	}
	return dispute, nil
}

func (r *reconciler) notify(ctx context.Context, topic string, payload interface{}) {
	if err := r.notifier.Publish(ctx, topic, payload); err != nil {
		log.WithError(err).Warnf("failed to publish on %s", topic)
	}
}

func (r *reconciler) alert(ctx context.Context, event domain.Event, cause error) {
	payload := map[string]interface{}{
		"kind":  domain.KindOf(cause).String(),
		"error": cause.Error(),
	}
	if event != nil {
		payload["eventType"] = string(event.Type())
		payload["eventKey"] = event.Key().String()
	}
	log.Errorf("operator alert: %s", cause)
	r.notify(ctx, ports.TopicOpsAlerts, payload)
}

func requiredExpertise(job *domain.Job) string {
	if len(job.Skills) > 0 {
		return job.Skills[0]
	}
	return ""
}

func jobNotification(job *domain.Job) map[string]interface{} {
	return map[string]interface{}{
		"jobId":  job.ID,
		"status": job.Status.String(),
	}
}

func escrowNotification(escrow *domain.Escrow) map[string]interface{} {
	return map[string]interface{}{
		"escrowId":       escrow.ID,
		"status":         escrow.Status.String(),
		"releasedAmount": escrow.ReleasedAmount,
		"disputedAmount": escrow.DisputedAmount,
	}
}

func releaseNotification(
	escrow *domain.Escrow, e domain.MilestoneReleased, freelancerAmount, clientAmount uint64,
) map[string]interface{} {
	return map[string]interface{}{
		"escrowId":         escrow.ID,
		"milestoneIndex":   e.MilestoneIndex,
		"principal":        e.Amount,
		"yield":            e.YieldAmount,
		"freelancerAmount": freelancerAmount,
		"clientAmount":     clientAmount,
	}
}

func disputeNotification(dispute *domain.Dispute) map[string]interface{} {
	return map[string]interface{}{
		"disputeId": dispute.ID,
		"status":    dispute.Status.String(),
	}
}
