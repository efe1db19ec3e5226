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

const appliedEventStoreDir = "applied-events"

// appliedEventDTO is keyed by the event's "txHash:logIndex" string; the
// struct exists because badgerhold stores values, not bare keys.
type appliedEventDTO struct {
	TxHash   string
	LogIndex uint32
}

type appliedEventRepository struct {
	store *badgerhold.Store
}

func NewAppliedEventRepository(config ...interface{}) (dbtypes.AppliedEventStore, error) {
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
		dir = filepath.Join(baseDir, appliedEventStoreDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open applied events store: %s", err)
	}

	return &appliedEventRepository{store}, nil
}

func (r *appliedEventRepository) Add(ctx context.Context, key domain.EventKey) error {
	dto := appliedEventDTO{TxHash: key.TxHash, LogIndex: key.LogIndex}
	if ctx.Value("tx") != nil {
		tx := ctx.Value("tx").(*badger.Txn)
		return r.store.TxUpsert(tx, key.String(), dto)
	}
	return r.store.Upsert(key.String(), dto)
}

func (r *appliedEventRepository) Contains(
	ctx context.Context, key domain.EventKey,
) (bool, error) {
	dto := appliedEventDTO{}
	var err error
	if ctx.Value("tx") != nil {
		tx := ctx.Value("tx").(*badger.Txn)
		err = r.store.TxGet(tx, key.String(), &dto)
	} else {
		err = r.store.Get(key.String(), &dto)
	}
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return false, nil
		}
		return false, fmt.Errorf("failed to look up applied event %s: %s", key, err)
	}
	return true, nil
}

func (r *appliedEventRepository) Close() {
	r.store.Close()
}
