package domain

import "context"

type JobRepository interface {
	AddOrUpdateJob(ctx context.Context, job Job) error
	GetJobWithID(ctx context.Context, id string) (*Job, error)
	GetOpenJobsPastDeadline(ctx context.Context, now int64) ([]Job, error)
}
