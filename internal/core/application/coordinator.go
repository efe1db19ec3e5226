package application

import (
	"context"

	"github.com/gigledger/gigd/internal/core/domain"
	"github.com/gigledger/gigd/internal/core/ports"
	log "github.com/sirupsen/logrus"
)

// coordinator tracks role-tagged release approvals per milestone and submits
// the payment release once the threshold is met. Approvals live in the live
// store for fast lookup but are always re-derivable from the persisted
// escrows, so a restart neither loses nor fabricates an approval.
type coordinator struct {
	ledger             ports.LedgerClient
	liveStore          ports.LiveStore
	repoManager        ports.RepoManager
	yieldFreelancerBps uint32
}

func newCoordinator(
	ledger ports.LedgerClient, liveStore ports.LiveStore,
	repoManager ports.RepoManager, yieldFreelancerBps uint32,
) *coordinator {
	return &coordinator{ledger, liveStore, repoManager, yieldFreelancerBps}
}

// hydrate rebuilds the live approval bookkeeping from the durable store.
// Called once on startup, before any event is processed.
func (c *coordinator) hydrate(ctx context.Context) error {
	escrows, err := c.repoManager.Escrows().GetActiveEscrows(ctx)
	if err != nil {
		return err
	}
	for _, escrow := range escrows {
		for _, m := range escrow.Milestones {
			if m.Status == domain.MilestoneStatusReleased {
				continue
			}
			for role := range m.Approvals {
				if err := c.liveStore.Approvals().Add(ctx, escrow.ID, m.Index, role); err != nil {
					return err
				}
			}
		}
	}
	log.Debugf("hydrated approvals for %d active escrows", len(escrows))
	return nil
}

// recordApproval registers a reconciled approval and, if the milestone just
// became releasable, submits the release transaction. A submission failure is
// surfaced to the caller and never auto-resubmitted.
func (c *coordinator) recordApproval(
	ctx context.Context, escrow *domain.Escrow, milestoneIndex int, role domain.ApprovalRole,
) (bool, error) {
	if err := c.liveStore.Approvals().Add(ctx, escrow.ID, milestoneIndex, role); err != nil {
		return false, domain.Transientf("failed to record approval: %s", err)
	}
	return c.maybeRelease(ctx, escrow, milestoneIndex)
}

// maybeRelease checks the threshold against the live store and submits the
// release if met. Returns whether a release was submitted.
func (c *coordinator) maybeRelease(
	ctx context.Context, escrow *domain.Escrow, milestoneIndex int,
) (bool, error) {
	roles, err := c.liveStore.Approvals().Get(ctx, escrow.ID, milestoneIndex)
	if err != nil {
		return false, domain.Transientf("failed to read live approvals: %s", err)
	}
	if len(roles) < domain.RequiredApprovals {
		return false, nil
	}

	// The live store only counts heads; the aggregate has the final word on
	// blockers (open dispute, unapproved or already released milestone).
	releasable, err := escrow.ReleasableMilestone(milestoneIndex)
	if err != nil {
		return false, err
	}
	if !releasable {
		return false, nil
	}

	principal := escrow.Milestones[milestoneIndex].Amount
	txRef, err := c.ledger.ReleaseMilestonePayment(ctx, ports.ReleaseRequest{
		EscrowID:           escrow.ID,
		MilestoneIndex:     milestoneIndex,
		Principal:          principal,
		YieldFreelancerBps: c.yieldFreelancerBps,
	})
	if err != nil {
		return false, err
	}
	log.Infof(
		"submitted release of milestone %d of escrow %s (tx %s)",
		milestoneIndex, escrow.ID, txRef.TxHash,
	)
	return true, nil
}

// reset drops the live approvals for a milestone once its release is
// confirmed on the ledger.
func (c *coordinator) reset(ctx context.Context, escrowID string, milestoneIndex int) {
	if err := c.liveStore.Approvals().Reset(ctx, escrowID, milestoneIndex); err != nil {
		log.WithError(err).Warn("failed to reset live approvals")
	}
}

// distribution apportions a confirmed release using the configured yield
// split.
func (c *coordinator) distribution(principal, yield uint64) (freelancerAmount, clientAmount uint64) {
	return ComputeDistribution(principal, yield, c.yieldFreelancerBps)
}

// ComputeDistribution apportions a released amount: the principal goes to the
// freelancer, the accrued yield is split freelancerBps/10000 to the
// freelancer and the remainder back to the client.
func ComputeDistribution(
	principal, yield uint64, freelancerBps uint32,
) (freelancerAmount, clientAmount uint64) {
	yieldToFreelancer := yield * uint64(freelancerBps) / 10000
	return principal + yieldToFreelancer, yield - yieldToFreelancer
}
