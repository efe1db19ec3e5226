package ports

import "context"

type JobMetadata struct {
	Title             string
	Description       string
	Skills            []string
	MilestoneSchedule []uint64
}

// MetadataStore fetches job metadata from the content-addressed store. A
// failed fetch is a retryable side-effect error, never fatal to
// reconciliation.
type MetadataStore interface {
	FetchByHash(ctx context.Context, hash string) (*JobMetadata, error)
}
