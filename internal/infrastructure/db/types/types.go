package dbtypes

import "github.com/gigledger/gigd/internal/core/domain"

type JobStore interface {
	domain.JobRepository
	Close()
}

type EscrowStore interface {
	domain.EscrowRepository
	Close()
}

type DisputeStore interface {
	domain.DisputeRepository
	Close()
}

type ArbitratorStore interface {
	domain.ArbitratorRepository
	Close()
}

type AppliedEventStore interface {
	domain.AppliedEventRepository
	Close()
}
