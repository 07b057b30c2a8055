package ports

import (
	"context"
	"time"
)

// Audit actions emitted by the services.
const (
	AuditTaskCreated    = "task_created"
	AuditTaskUpdated    = "task_updated"
	AuditTaskDeleted    = "task_deleted"
	AuditTaskAssigned   = "task_assigned"
	AuditTaskUnassigned = "task_unassigned"
	AuditUserCreated    = "user_created"
	AuditRoleChanged    = "role_changed"
)

// AuditEvent records a single mutation for the audit trail.
type AuditEvent struct {
	Action     string
	ActorID    string
	SubjectID  string // task or user id the action applied to
	Detail     string // optional free-form context (e.g. new role, assignee)
	OccurredAt time.Time
}

// AuditEmitter is the observability hook the services publish mutations
// to. Emission is asynchronous and never fails a request.
type AuditEmitter interface {
	Emit(event AuditEvent)
}

// AuditRecorder persists audit events.
type AuditRecorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// NopAuditEmitter discards every event.
type NopAuditEmitter struct{}

func (NopAuditEmitter) Emit(AuditEvent) {}
