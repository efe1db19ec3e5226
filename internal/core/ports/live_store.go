package ports

import (
	"context"

	"github.com/gigledger/gigd/internal/core/domain"
)

// LiveStore holds the coordinator's in-flight approval bookkeeping. It is a
// cache, not a source of truth: its whole content must be reconstructable
// from the escrows persisted in the durable store, so a restart never loses
// or fabricates an approval.
type LiveStore interface {
	Approvals() ApprovalsStore
}

type ApprovalsStore interface {
	Add(ctx context.Context, escrowID string, milestoneIndex int, role domain.ApprovalRole) error
	Get(ctx context.Context, escrowID string, milestoneIndex int) ([]domain.ApprovalRole, error)
	Reset(ctx context.Context, escrowID string, milestoneIndex int) error
}
