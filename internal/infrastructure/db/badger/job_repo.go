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

const jobStoreDir = "jobs"

type jobRepository struct {
	store *badgerhold.Store
}

func NewJobRepository(config ...interface{}) (dbtypes.JobStore, error) {
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
		dir = filepath.Join(baseDir, jobStoreDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open job store: %s", err)
	}

	return &jobRepository{store}, nil
}

func (r *jobRepository) AddOrUpdateJob(ctx context.Context, job domain.Job) error {
	// Uncommitted changes never hit the disk.
	job.Changes = nil
	if ctx.Value("tx") != nil {
		tx := ctx.Value("tx").(*badger.Txn)
		return r.store.TxUpsert(tx, job.ID, job)
	}
	return r.store.Upsert(job.ID, job)
}

func (r *jobRepository) GetJobWithID(ctx context.Context, id string) (*domain.Job, error) {
	query := badgerhold.Where("ID").Eq(id)
	jobs, err := r.findJob(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(jobs) <= 0 {
		return nil, fmt.Errorf("job with id %s: %w", id, domain.ErrNotFound)
	}
	return &jobs[0], nil
}

func (r *jobRepository) GetOpenJobsPastDeadline(
	ctx context.Context, now int64,
) ([]domain.Job, error) {
	query := badgerhold.Where("Status").Eq(domain.JobStatusOpen).
		And("BiddingDeadline").Le(now)
	return r.findJob(ctx, query)
}

func (r *jobRepository) Close() {
	r.store.Close()
}

func (r *jobRepository) findJob(
	ctx context.Context, query *badgerhold.Query,
) ([]domain.Job, error) {
	var jobs []domain.Job
	var err error

	if ctx.Value("tx") != nil {
		tx := ctx.Value("tx").(*badger.Txn)
		err = r.store.TxFind(tx, &jobs, query)
	} else {
		err = r.store.Find(&jobs, query)
	}

	return jobs, err
}
