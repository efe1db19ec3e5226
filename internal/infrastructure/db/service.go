package db

import (
	"fmt"

	"github.com/gigledger/gigd/internal/core/domain"
	"github.com/gigledger/gigd/internal/core/ports"
	badgerdb "github.com/gigledger/gigd/internal/infrastructure/db/badger"
	dbtypes "github.com/gigledger/gigd/internal/infrastructure/db/types"
)

var (
	jobStoreTypes = map[string]func(...interface{}) (dbtypes.JobStore, error){
		"badger": badgerdb.NewJobRepository,
	}
	escrowStoreTypes = map[string]func(...interface{}) (dbtypes.EscrowStore, error){
		"badger": badgerdb.NewEscrowRepository,
	}
	disputeStoreTypes = map[string]func(...interface{}) (dbtypes.DisputeStore, error){
		"badger": badgerdb.NewDisputeRepository,
	}
	arbitratorStoreTypes = map[string]func(...interface{}) (dbtypes.ArbitratorStore, error){
		"badger": badgerdb.NewArbitratorRepository,
	}
	appliedEventStoreTypes = map[string]func(...interface{}) (dbtypes.AppliedEventStore, error){
		"badger": badgerdb.NewAppliedEventRepository,
	}
)

type ServiceConfig struct {
	DataStoreType   string
	DataStoreConfig []interface{}
}

type service struct {
	jobStore          dbtypes.JobStore
	escrowStore       dbtypes.EscrowStore
	disputeStore      dbtypes.DisputeStore
	arbitratorStore   dbtypes.ArbitratorStore
	appliedEventStore dbtypes.AppliedEventStore
}

func NewService(config ServiceConfig) (ports.RepoManager, error) {
	jobStoreFactory, ok := jobStoreTypes[config.DataStoreType]
	if !ok {
		return nil, fmt.Errorf("invalid data store type: %s", config.DataStoreType)
	}
	escrowStoreFactory := escrowStoreTypes[config.DataStoreType]
	disputeStoreFactory := disputeStoreTypes[config.DataStoreType]
	arbitratorStoreFactory := arbitratorStoreTypes[config.DataStoreType]
	appliedEventStoreFactory := appliedEventStoreTypes[config.DataStoreType]

	jobStore, err := jobStoreFactory(config.DataStoreConfig...)
	if err != nil {
		return nil, fmt.Errorf("failed to create job store: %w", err)
	}
	escrowStore, err := escrowStoreFactory(config.DataStoreConfig...)
	if err != nil {
		return nil, fmt.Errorf("failed to create escrow store: %w", err)
	}
	disputeStore, err := disputeStoreFactory(config.DataStoreConfig...)
	if err != nil {
		return nil, fmt.Errorf("failed to create dispute store: %w", err)
	}
	arbitratorStore, err := arbitratorStoreFactory(config.DataStoreConfig...)
	if err != nil {
		return nil, fmt.Errorf("failed to create arbitrator store: %w", err)
	}
	appliedEventStore, err := appliedEventStoreFactory(config.DataStoreConfig...)
	if err != nil {
		return nil, fmt.Errorf("failed to create applied events store: %w", err)
	}

	return &service{
		jobStore:          jobStore,
		escrowStore:       escrowStore,
		disputeStore:      disputeStore,
		arbitratorStore:   arbitratorStore,
		appliedEventStore: appliedEventStore,
	}, nil
}

func (s *service) Jobs() domain.JobRepository {
	return s.jobStore
}

func (s *service) Escrows() domain.EscrowRepository {
	return s.escrowStore
}

func (s *service) Disputes() domain.DisputeRepository {
	return s.disputeStore
}

func (s *service) Arbitrators() domain.ArbitratorRepository {
	return s.arbitratorStore
}

func (s *service) AppliedEvents() domain.AppliedEventRepository {
	return s.appliedEventStore
}

func (s *service) Close() {
	s.jobStore.Close()
	s.escrowStore.Close()
	s.disputeStore.Close()
	s.arbitratorStore.Close()
	s.appliedEventStore.Close()
}
