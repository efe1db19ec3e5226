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

const arbitratorStoreDir = "arbitrators"

type arbitratorRepository struct {
	store *badgerhold.Store
}

func NewArbitratorRepository(config ...interface{}) (dbtypes.ArbitratorStore, error) {
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
		dir = filepath.Join(baseDir, arbitratorStoreDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open arbitrator store: %s", err)
	}

	return &arbitratorRepository{store}, nil
}

func (r *arbitratorRepository) AddOrUpdateArbitrator(
	ctx context.Context, arbitrator domain.Arbitrator,
) error {
	if ctx.Value("tx") != nil {
		tx := ctx.Value("tx").(*badger.Txn)
		return r.store.TxUpsert(tx, arbitrator.ID, arbitrator)
	}
	return r.store.Upsert(arbitrator.ID, arbitrator)
}

func (r *arbitratorRepository) GetArbitratorWithID(
	ctx context.Context, id string,
) (*domain.Arbitrator, error) {
	query := badgerhold.Where("ID").Eq(id)
	arbitrators, err := r.findArbitrator(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(arbitrators) <= 0 {
		return nil, fmt.Errorf("arbitrator with id %s: %w", id, domain.ErrNotFound)
	}
	return &arbitrators[0], nil
}

func (r *arbitratorRepository) GetActiveArbitrators(
	ctx context.Context,
) ([]domain.Arbitrator, error) {
	query := badgerhold.Where("IsActive").Eq(true)
	return r.findArbitrator(ctx, query)
}

func (r *arbitratorRepository) Close() {
	r.store.Close()
}

func (r *arbitratorRepository) findArbitrator(
	ctx context.Context, query *badgerhold.Query,
) ([]domain.Arbitrator, error) {
	var arbitrators []domain.Arbitrator
	var err error

	if ctx.Value("tx") != nil {
		tx := ctx.Value("tx").(*badger.Txn)
		err = r.store.TxFind(tx, &arbitrators, query)
	} else {
		err = r.store.Find(&arbitrators, query)
	}

	return arbitrators, err
}
