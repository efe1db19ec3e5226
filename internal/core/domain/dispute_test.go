package domain_test

import (
	"testing"

	"github.com/gigledger/gigd/internal/core/domain"
	"github.com/stretchr/testify/require"
)

func newTestDispute(t *testing.T) *domain.Dispute {
	dispute, err := domain.NewDispute(domain.DisputeRaised{
		EventKey:       domain.EventKey{TxHash: "dd", LogIndex: 1},
		DisputeID:      testDisputeID,
		EscrowID:       testEscrowID,
		MilestoneIndex: 0,
		InitiatorID:    testClientID,
		RespondentID:   testFreelancerID,
		Timestamp:      800,
	})
	require.NoError(t, err)
	require.NotNil(t, dispute)
	return dispute
}

func TestDispute(t *testing.T) {
	t.Run("new_dispute", func(t *testing.T) {
		dispute := newTestDispute(t)
		require.Equal(t, domain.DisputeStatusPending, dispute.Status)
		require.True(t, dispute.IsActive())
	})

	t.Run("assign", func(t *testing.T) {
		dispute := newTestDispute(t)
		_, err := dispute.Assign(domain.ArbitratorsAssigned{
			DisputeID: testDisputeID, EscrowID: testEscrowID,
			PanelIDs: []string{"arb-1", "arb-2", "arb-3"}, BeaconRound: 42,
		})
		require.NoError(t, err)
		require.Equal(t, domain.DisputeStatusAssigned, dispute.Status)
		require.Equal(t, []string{"arb-1", "arb-2", "arb-3"}, dispute.Panel)
		require.Equal(t, "arb-1", dispute.ArbitratorID)
	})

	t.Run("appeal", func(t *testing.T) {
		dispute := newTestDispute(t)
		_, err := dispute.Assign(domain.ArbitratorsAssigned{
			DisputeID: testDisputeID, PanelIDs: []string{"arb-1", "arb-2", "arb-3"},
		})
		require.NoError(t, err)
		_, err = dispute.Resolve(domain.DisputeResolved{
			DisputeID: testDisputeID, Resolution: domain.ResolutionForClient, Timestamp: 900,
		})
		require.NoError(t, err)

		_, err = dispute.Appeal(domain.DisputeAppealed{DisputeID: testDisputeID})
		require.NoError(t, err)
		require.Equal(t, domain.DisputeStatusAppealed, dispute.Status)
		require.Equal(t, []string{"arb-1", "arb-2", "arb-3"}, dispute.PriorPanel)
		require.Empty(t, dispute.Panel)

		t.Run("prior_panel_barred_from_reassignment", func(t *testing.T) {
			_, err := dispute.Assign(domain.ArbitratorsAssigned{
				DisputeID: testDisputeID, PanelIDs: []string{"arb-4", "arb-2", "arb-5"},
			})
			require.EqualError(t, err, "integrity: arbitrator arb-2 sat on the prior panel of dispute dispute-1")

			_, err = dispute.Assign(domain.ArbitratorsAssigned{
				DisputeID: testDisputeID, PanelIDs: []string{"arb-4", "arb-5", "arb-6"},
			})
			require.NoError(t, err)
		})

		t.Run("single_appeal_only", func(t *testing.T) {
			_, err := dispute.Resolve(domain.DisputeResolved{
				DisputeID: testDisputeID, Resolution: domain.ResolutionForClient, Timestamp: 950,
			})
			require.NoError(t, err)
			_, err = dispute.Appeal(domain.DisputeAppealed{DisputeID: testDisputeID})
			require.EqualError(t, err, "integrity: dispute dispute-1 was already appealed once")
		})
	})

	t.Run("unresolvable", func(t *testing.T) {
		dispute := newTestDispute(t)
		events := dispute.MarkUnresolvable("no eligible arbitrators")
		require.Len(t, events, 1)
		require.Equal(t, domain.DisputeStatusUnresolvable, dispute.Status)
		require.Equal(t, "no eligible arbitrators", dispute.FailureReason)
		require.False(t, dispute.IsActive())

		// Idempotent.
		require.Empty(t, dispute.MarkUnresolvable("again"))
	})
}
