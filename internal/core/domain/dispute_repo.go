package domain

import "context"

type DisputeRepository interface {
	AddOrUpdateDispute(ctx context.Context, dispute Dispute) error
	GetDisputeWithID(ctx context.Context, id string) (*Dispute, error)
	GetActiveDisputeForMilestone(
		ctx context.Context, escrowID string, milestoneIndex int,
	) (*Dispute, error)
	GetUnassignedDisputes(ctx context.Context) ([]Dispute, error)
}

type ArbitratorRepository interface {
	AddOrUpdateArbitrator(ctx context.Context, arbitrator Arbitrator) error
	GetArbitratorWithID(ctx context.Context, id string) (*Arbitrator, error)
	GetActiveArbitrators(ctx context.Context) ([]Arbitrator, error)
}
