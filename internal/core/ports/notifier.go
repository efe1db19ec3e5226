package ports

import "context"

// Notifier is the fire-and-forget fan-out. Delivery is at-most-once: failures
// are logged by the implementation and never retried by the core.
type Notifier interface {
	Publish(ctx context.Context, topic string, payload interface{}) error
	Close()
}

// Topics published by the reconciliation pipeline.
const (
	TopicJobs      = "jobs"
	TopicEscrows   = "escrows"
	TopicDisputes  = "disputes"
	TopicOpsAlerts = "ops.alerts"
)
