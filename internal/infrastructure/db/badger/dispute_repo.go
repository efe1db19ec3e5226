package badgerdb

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"
	"github.com/gigledger/gigd/internal/core/domain"
	dbtypes "github.com/gigledger/gigd/internal/infrastructure/db/types"
	"github.com/timshannon/badgerhold/v4"
)

const disputeStoreDir = "disputes"

type disputeRepository struct {
	store *badgerhold.Store
}

func NewDisputeRepository(config ...interface{}) (dbtypes.DisputeStore, error) {
	if len(config) != 2 {
		return nil, fmt.Errorf("invalid config")
	}
	baseDir, ok := config[0].(string)
	if !ok {
		return nil, fmt.Errorf("invalid base directory")
	}
	var logger badger.Logger
	if config[1] != nil {
		logger, ok = config[1].(badger.Logger)
		if !ok {
			return nil, fmt.Errorf("invalid logger")
		}
	}

	var dir string
	if len(baseDir) > 0 {
		dir = filepath.Join(baseDir, disputeStoreDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open dispute store: %s", err)
	}

	return &disputeRepository{store}, nil
}

func (r *disputeRepository) AddOrUpdateDispute(
	ctx context.Context, dispute domain.Dispute,
) error {
	dispute.Changes = nil
	if ctx.Value("tx") != nil {
		tx := ctx.Value("tx").(*badger.Txn)
		return r.store.TxUpsert(tx, dispute.ID, dispute)
	}
	return r.store.Upsert(dispute.ID, dispute)
}

func (r *disputeRepository) GetDisputeWithID(
	ctx context.Context, id string,
) (*domain.Dispute, error) {
	query := badgerhold.Where("ID").Eq(id)
	disputes, err := r.findDispute(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(disputes) <= 0 {
		return nil, fmt.Errorf("dispute with id %s: %w", id, domain.ErrNotFound)
	}
	return &disputes[0], nil
}

func (r *disputeRepository) GetActiveDisputeForMilestone(
	ctx context.Context, escrowID string, milestoneIndex int,
) (*domain.Dispute, error) {
	query := badgerhold.Where("EscrowID").Eq(escrowID).
		And("MilestoneIndex").Eq(milestoneIndex).
		And("Status").In(
			domain.DisputeStatusPending, domain.DisputeStatusAssigned, domain.DisputeStatusAppealed,
		)
	disputes, err := r.findDispute(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(disputes) <= 0 {
		return nil, fmt.Errorf(
			"active dispute for milestone %d of escrow %s: %w",
			milestoneIndex, escrowID, domain.ErrNotFound,
		)
	}
	return &disputes[0], nil
}

func (r *disputeRepository) GetUnassignedDisputes(
	ctx context.Context,
) ([]domain.Dispute, error) {
	query := badgerhold.Where("Status").
		In(domain.DisputeStatusPending, domain.DisputeStatusAppealed)
	return r.findDispute(ctx, query)
}

func (r *disputeRepository) Close() {
	r.store.Close()
}

func (r *disputeRepository) findDispute(
	ctx context.Context, query *badgerhold.Query,
) ([]domain.Dispute, error) {
	var disputes []domain.Dispute
	var err error

	if ctx.Value("tx") != nil {
		tx := ctx.Value("tx").(*badger.Txn)
		err = r.store.TxFind(tx, &disputes, query)
	} else {
		err = r.store.Find(&disputes, query)
	}

	return disputes, err
}
