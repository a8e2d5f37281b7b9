package ports

import (
	"context"
	"time"
)

// ProvisioningEvent records the terminal outcome of one provisioning
// attempt for the audit trail. Orphaned identities surface here so an
// out-of-band reconciliation job has a work queue.
type ProvisioningEvent struct {
	AttemptKey string
	IdentityID string
	Email      string
	Kind       string
	Outcome    string // "done" or "fail"
	Step       string // failing step, empty on success
	Reason     string // failing sentinel message, empty on success
	Orphaned   bool
	CreatedBy  string
	Timestamp  time.Time
}

// AuditRepository persists provisioning events.
type AuditRepository interface {
	InsertEvent(ctx context.Context, event *ProvisioningEvent) error
}

// AuditSink accepts events off the request path; enqueueing never blocks
// the provisioning flow's outcome.
type AuditSink interface {
	Enqueue(event ProvisioningEvent)
}
