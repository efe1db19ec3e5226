package domain

import "context"

type EscrowRepository interface {
	AddOrUpdateEscrow(ctx context.Context, escrow Escrow) error
	GetEscrowWithID(ctx context.Context, id string) (*Escrow, error)
	GetEscrowWithJobID(ctx context.Context, jobID string) (*Escrow, error)
	GetActiveEscrows(ctx context.Context) ([]Escrow, error)
}
