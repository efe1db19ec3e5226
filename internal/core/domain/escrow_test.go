package domain_test

import (
	"testing"

	"github.com/gigledger/gigd/internal/core/domain"
	"github.com/stretchr/testify/require"
)

const (
	testEscrowID     = "escrow-1"
	testFreelancerID = "freelancer-1"
	testDisputeID    = "dispute-1"
	testArbitratorID = "arb-1"
)

func newTestEscrow(t *testing.T) *domain.Escrow {
	job := newTestJob(t)
	bidEvent := bidSubmitted("bid-1", testFreelancerID, 1000, 500)
	_, err := job.RegisterBid(bidEvent)
	require.NoError(t, err)

	accepted := domain.BidAccepted{
		EventKey: domain.EventKey{TxHash: "cc", LogIndex: 0},
		JobID:    testJobID,
		BidID:    "bid-1",
		EscrowID: testEscrowID,
		Milestones: []domain.MilestoneSchedule{
			{Amount: 600, Deadline: 2000},
			{Amount: 400, Deadline: 3000},
		},
		Timestamp: 600,
	}
	_, err = job.AcceptBid(accepted)
	require.NoError(t, err)

	escrow, err := domain.NewEscrow(accepted, *job, job.Bids["bid-1"])
	require.NoError(t, err)
	require.NotNil(t, escrow)
	return escrow
}

func submitAndApprove(t *testing.T, escrow *domain.Escrow, index int) {
	_, err := escrow.SubmitDeliverable(domain.MilestoneSubmitted{
		EscrowID: testEscrowID, MilestoneIndex: index, DeliverableHash: "deliverable",
	})
	require.NoError(t, err)
	_, err = escrow.Approve(domain.MilestoneApproved{
		EscrowID: testEscrowID, MilestoneIndex: index,
		Role: domain.RoleClient, ApproverID: testClientID,
	})
	require.NoError(t, err)
	_, err = escrow.Approve(domain.MilestoneApproved{
		EscrowID: testEscrowID, MilestoneIndex: index,
		Role: domain.RoleFreelancer, ApproverID: testFreelancerID,
	})
	require.NoError(t, err)
}

func TestEscrow(t *testing.T) {
	t.Run("new_escrow", func(t *testing.T) {
		escrow := newTestEscrow(t)
		require.Equal(t, domain.EscrowStatusActive, escrow.Status)
		require.Equal(t, uint64(1000), escrow.TotalAmount)
		require.Len(t, escrow.Milestones, 2)
		require.Equal(t, "EU", escrow.ClientRegion)
		require.Equal(t, "US", escrow.FreelancerRegion)
	})

	t.Run("approval_threshold", func(t *testing.T) {
		t.Run("one_approval_is_not_enough", func(t *testing.T) {
			escrow := newTestEscrow(t)
			_, err := escrow.SubmitDeliverable(domain.MilestoneSubmitted{
				EscrowID: testEscrowID, MilestoneIndex: 0, DeliverableHash: "deliverable",
			})
			require.NoError(t, err)
			_, err = escrow.Approve(domain.MilestoneApproved{
				EscrowID: testEscrowID, MilestoneIndex: 0,
				Role: domain.RoleClient, ApproverID: testClientID,
			})
			require.NoError(t, err)

			releasable, err := escrow.ReleasableMilestone(0)
			require.NoError(t, err)
			require.False(t, releasable)
		})

		t.Run("client_and_freelancer_meet_threshold", func(t *testing.T) {
			escrow := newTestEscrow(t)
			submitAndApprove(t, escrow, 0)

			releasable, err := escrow.ReleasableMilestone(0)
			require.NoError(t, err)
			require.True(t, releasable)
		})

		t.Run("duplicate_approval_counts_once", func(t *testing.T) {
			escrow := newTestEscrow(t)
			_, err := escrow.SubmitDeliverable(domain.MilestoneSubmitted{
				EscrowID: testEscrowID, MilestoneIndex: 0, DeliverableHash: "deliverable",
			})
			require.NoError(t, err)
			for i := 0; i < 3; i++ {
				_, err = escrow.Approve(domain.MilestoneApproved{
					EscrowID: testEscrowID, MilestoneIndex: 0,
					Role: domain.RoleClient, ApproverID: testClientID,
				})
				require.NoError(t, err)
			}
			require.Equal(t, 1, escrow.Milestones[0].ApprovalCount())
		})
	})

	t.Run("authorization", func(t *testing.T) {
		t.Run("impostor_client", func(t *testing.T) {
			escrow := newTestEscrow(t)
			_, err := escrow.SubmitDeliverable(domain.MilestoneSubmitted{
				EscrowID: testEscrowID, MilestoneIndex: 0,
			})
			require.NoError(t, err)
			_, err = escrow.Approve(domain.MilestoneApproved{
				EscrowID: testEscrowID, MilestoneIndex: 0,
				Role: domain.RoleClient, ApproverID: "someone-else",
			})
			require.Error(t, err)
		})

		t.Run("arbitrator_without_dispute", func(t *testing.T) {
			escrow := newTestEscrow(t)
			_, err := escrow.SubmitDeliverable(domain.MilestoneSubmitted{
				EscrowID: testEscrowID, MilestoneIndex: 0,
			})
			require.NoError(t, err)
			_, err = escrow.Approve(domain.MilestoneApproved{
				EscrowID: testEscrowID, MilestoneIndex: 0,
				Role: domain.RoleArbitrator, ApproverID: testArbitratorID,
			})
			require.EqualError(t, err,
				"integrity: arbitrator approval on milestone 0 of escrow escrow-1 without an active dispute")
		})
	})

	t.Run("release", func(t *testing.T) {
		t.Run("valid", func(t *testing.T) {
			escrow := newTestEscrow(t)
			submitAndApprove(t, escrow, 0)

			events, err := escrow.Release(domain.MilestoneReleased{
				EscrowID: testEscrowID, MilestoneIndex: 0, Amount: 600,
				RecipientID: testFreelancerID, Timestamp: 700,
			})
			require.NoError(t, err)
			require.Len(t, events, 1)
			require.Equal(t, uint64(600), escrow.ReleasedAmount)
			require.Equal(t, domain.MilestoneStatusReleased, escrow.Milestones[0].Status)
			require.Equal(t, domain.EscrowStatusActive, escrow.Status)
		})

		t.Run("amount_mismatch", func(t *testing.T) {
			escrow := newTestEscrow(t)
			submitAndApprove(t, escrow, 0)

			_, err := escrow.Release(domain.MilestoneReleased{
				EscrowID: testEscrowID, MilestoneIndex: 0, Amount: 700,
			})
			require.EqualError(t, err, "integrity: release amount 700 does not match milestone amount 600")
			require.Zero(t, escrow.ReleasedAmount)
		})

		t.Run("last_release_completes_escrow", func(t *testing.T) {
			escrow := newTestEscrow(t)
			submitAndApprove(t, escrow, 0)
			_, err := escrow.Release(domain.MilestoneReleased{
				EscrowID: testEscrowID, MilestoneIndex: 0, Amount: 600, Timestamp: 700,
			})
			require.NoError(t, err)

			submitAndApprove(t, escrow, 1)
			events, err := escrow.Release(domain.MilestoneReleased{
				EscrowID: testEscrowID, MilestoneIndex: 1, Amount: 400, Timestamp: 800,
			})
			require.NoError(t, err)
			require.Len(t, events, 2)
			require.Equal(t, domain.EscrowStatusCompleted, escrow.Status)
			require.Equal(t, uint64(1000), escrow.ReleasedAmount)
		})
	})

	t.Run("dispute", func(t *testing.T) {
		raiseDispute := func(t *testing.T, escrow *domain.Escrow) {
			_, err := escrow.SubmitDeliverable(domain.MilestoneSubmitted{
				EscrowID: testEscrowID, MilestoneIndex: 0, DeliverableHash: "deliverable",
			})
			require.NoError(t, err)
			_, err = escrow.OpenDispute(domain.DisputeRaised{
				DisputeID: testDisputeID, EscrowID: testEscrowID, MilestoneIndex: 0,
				InitiatorID: testClientID, RespondentID: testFreelancerID,
			})
			require.NoError(t, err)
		}

		t.Run("moves_amount_to_disputed", func(t *testing.T) {
			escrow := newTestEscrow(t)
			raiseDispute(t, escrow)
			require.Equal(t, uint64(600), escrow.DisputedAmount)
			require.Equal(t, domain.EscrowStatusDisputed, escrow.Status)
			require.Equal(t, domain.MilestoneStatusDisputed, escrow.Milestones[0].Status)
		})

		t.Run("blocks_release", func(t *testing.T) {
			escrow := newTestEscrow(t)
			raiseDispute(t, escrow)
			_, err := escrow.Release(domain.MilestoneReleased{
				EscrowID: testEscrowID, MilestoneIndex: 0, Amount: 600,
			})
			require.Error(t, err)
			require.Zero(t, escrow.ReleasedAmount)
		})

		t.Run("second_dispute_on_same_milestone", func(t *testing.T) {
			escrow := newTestEscrow(t)
			raiseDispute(t, escrow)
			_, err := escrow.OpenDispute(domain.DisputeRaised{
				DisputeID: "dispute-2", EscrowID: testEscrowID, MilestoneIndex: 0,
			})
			require.Error(t, err)
		})

		t.Run("resolution_for_freelancer_counts_as_arbitrator_approval", func(t *testing.T) {
			escrow := newTestEscrow(t)
			_, err := escrow.SubmitDeliverable(domain.MilestoneSubmitted{
				EscrowID: testEscrowID, MilestoneIndex: 0, DeliverableHash: "deliverable",
			})
			require.NoError(t, err)
			// The freelancer approved their own deliverable before the client
			// escalated.
			_, err = escrow.Approve(domain.MilestoneApproved{
				EscrowID: testEscrowID, MilestoneIndex: 0,
				Role: domain.RoleFreelancer, ApproverID: testFreelancerID,
			})
			require.NoError(t, err)
			_, err = escrow.OpenDispute(domain.DisputeRaised{
				DisputeID: testDisputeID, EscrowID: testEscrowID, MilestoneIndex: 0,
				InitiatorID: testClientID, RespondentID: testFreelancerID,
			})
			require.NoError(t, err)
			_, err = escrow.AssignArbitrators(domain.ArbitratorsAssigned{
				DisputeID: testDisputeID, EscrowID: testEscrowID,
				PanelIDs: []string{testArbitratorID, "arb-2", "arb-3"},
			})
			require.NoError(t, err)

			_, err = escrow.ResolveDispute(domain.DisputeResolved{
				DisputeID: testDisputeID, EscrowID: testEscrowID, MilestoneIndex: 0,
				Resolution: domain.ResolutionForFreelancer, Timestamp: 900,
			})
			require.NoError(t, err)

			require.Zero(t, escrow.DisputedAmount)
			require.Equal(t, domain.MilestoneStatusApproved, escrow.Milestones[0].Status)
			releasable, err := escrow.ReleasableMilestone(0)
			require.NoError(t, err)
			require.True(t, releasable)
		})

		t.Run("resolution_for_client_rejects_milestone", func(t *testing.T) {
			escrow := newTestEscrow(t)
			raiseDispute(t, escrow)
			_, err := escrow.AssignArbitrators(domain.ArbitratorsAssigned{
				DisputeID: testDisputeID, EscrowID: testEscrowID,
				PanelIDs: []string{testArbitratorID},
			})
			require.NoError(t, err)

			_, err = escrow.ResolveDispute(domain.DisputeResolved{
				DisputeID: testDisputeID, EscrowID: testEscrowID, MilestoneIndex: 0,
				Resolution: domain.ResolutionForClient,
			})
			require.NoError(t, err)

			require.Zero(t, escrow.DisputedAmount)
			require.Equal(t, domain.MilestoneStatusRejected, escrow.Milestones[0].Status)
			releasable, err := escrow.ReleasableMilestone(0)
			require.NoError(t, err)
			require.False(t, releasable)
		})

		t.Run("reopen_after_appeal", func(t *testing.T) {
			escrow := newTestEscrow(t)
			raiseDispute(t, escrow)
			_, err := escrow.AssignArbitrators(domain.ArbitratorsAssigned{
				DisputeID: testDisputeID, EscrowID: testEscrowID,
				PanelIDs: []string{testArbitratorID},
			})
			require.NoError(t, err)
			_, err = escrow.ResolveDispute(domain.DisputeResolved{
				DisputeID: testDisputeID, EscrowID: testEscrowID, MilestoneIndex: 0,
				Resolution: domain.ResolutionForClient,
			})
			require.NoError(t, err)

			_, err = escrow.ReopenDispute(testDisputeID, 0)
			require.NoError(t, err)
			require.Equal(t, uint64(600), escrow.DisputedAmount)
			require.Equal(t, domain.EscrowStatusDisputed, escrow.Status)
		})
	})

	t.Run("conservation", func(t *testing.T) {
		escrow := newTestEscrow(t)
		submitAndApprove(t, escrow, 0)
		_, err := escrow.Release(domain.MilestoneReleased{
			EscrowID: testEscrowID, MilestoneIndex: 0, Amount: 600, Timestamp: 700,
		})
		require.NoError(t, err)

		// Double delivery of the same release must not double-count.
		_, err = escrow.Release(domain.MilestoneReleased{
			EscrowID: testEscrowID, MilestoneIndex: 0, Amount: 600, Timestamp: 700,
		})
		require.Error(t, err)
		require.Equal(t, uint64(600), escrow.ReleasedAmount)
		require.LessOrEqual(t, escrow.ReleasedAmount+escrow.DisputedAmount, escrow.TotalAmount)
	})
}
