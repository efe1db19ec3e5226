package ports

import "github.com/gigledger/gigd/internal/core/domain"

type RepoManager interface {
	Jobs() domain.JobRepository
	Escrows() domain.EscrowRepository
	Disputes() domain.DisputeRepository
	Arbitrators() domain.ArbitratorRepository
	AppliedEvents() domain.AppliedEventRepository
	Close()
}
