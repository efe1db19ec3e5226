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

const escrowStoreDir = "escrows"

type escrowRepository struct {
	store *badgerhold.Store
}

func NewEscrowRepository(config ...interface{}) (dbtypes.EscrowStore, error) {
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
		dir = filepath.Join(baseDir, escrowStoreDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open escrow store: %s", err)
	}

	return &escrowRepository{store}, nil
}

func (r *escrowRepository) AddOrUpdateEscrow(
	ctx context.Context, escrow domain.Escrow,
) error {
	escrow.Changes = nil
	if ctx.Value("tx") != nil {
		tx := ctx.Value("tx").(*badger.Txn)
		return r.store.TxUpsert(tx, escrow.ID, escrow)
	}
	return r.store.Upsert(escrow.ID, escrow)
}

func (r *escrowRepository) GetEscrowWithID(
	ctx context.Context, id string,
) (*domain.Escrow, error) {
	query := badgerhold.Where("ID").Eq(id)
	escrows, err := r.findEscrow(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(escrows) <= 0 {
		return nil, fmt.Errorf("escrow with id %s: %w", id, domain.ErrNotFound)
	}
	return &escrows[0], nil
}

func (r *escrowRepository) GetEscrowWithJobID(
	ctx context.Context, jobID string,
) (*domain.Escrow, error) {
	query := badgerhold.Where("JobID").Eq(jobID)
	escrows, err := r.findEscrow(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(escrows) <= 0 {
		return nil, fmt.Errorf("escrow for job %s: %w", jobID, domain.ErrNotFound)
	}
	return &escrows[0], nil
}

func (r *escrowRepository) GetActiveEscrows(ctx context.Context) ([]domain.Escrow, error) {
	query := badgerhold.Where("Status").Ne(domain.EscrowStatusCompleted)
	return r.findEscrow(ctx, query)
}

func (r *escrowRepository) Close() {
	r.store.Close()
}

func (r *escrowRepository) findEscrow(
	ctx context.Context, query *badgerhold.Query,
) ([]domain.Escrow, error) {
	var escrows []domain.Escrow
	var err error

	if ctx.Value("tx") != nil {
		tx := ctx.Value("tx").(*badger.Txn)
		err = r.store.TxFind(tx, &escrows, query)
	} else {
		err = r.store.Find(&escrows, query)
	}

	return escrows, err
}
