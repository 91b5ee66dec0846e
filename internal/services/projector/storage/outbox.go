package storage

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// OutboxStatus is the lifecycle state of one parked projection step.
type OutboxStatus string

const (
	OutboxPending    OutboxStatus = "pending"
	OutboxProcessing OutboxStatus = "processing"
	OutboxFailed     OutboxStatus = "failed"
	OutboxDead       OutboxStatus = "dead"
)

// ParseOutboxStatus normalizes a status filter. An empty value means any.
func ParseOutboxStatus(value string) (OutboxStatus, error) {
	normalized := OutboxStatus(strings.ToLower(strings.TrimSpace(value)))
	switch normalized {
	case "", OutboxPending, OutboxProcessing, OutboxFailed, OutboxDead:
		return normalized, nil
	default:
		return "", fmt.Errorf("invalid outbox status %q", value)
	}
}

// OutboxEntry is one (event, projection kind) step awaiting retry.
//
// Entries sharing a projection kind and a non-empty OrderingKey replay in
// Sequence order: an entry is not claimed while an earlier one is still
// pending, processing or failed.
type OutboxEntry struct {
	ID             string
	EventID        string
	EventType      string
	ProjectionKind string
	OrderingKey    string
	Envelope       []byte
	Status         OutboxStatus
	AttemptCount   int
	NextAttemptAt  time.Time
	LastError      string
	UpdatedAt      time.Time
	// Sequence is assigned by the store on enqueue.
	Sequence int64
}

// OutboxFailure records a failed retry of a claimed entry.
type OutboxFailure struct {
	Attempt       int
	NextAttemptAt time.Time
	LastError     string
	// Dead moves the entry out of the retry rotation.
	Dead bool
}

// OutboxSummary reports queue depth by status.
type OutboxSummary struct {
	PendingCount    int
	ProcessingCount int
	FailedCount     int
	DeadCount       int
	OldestDueAt     time.Time
}

// OutboxStore parks failed projection steps for later retry.
type OutboxStore interface {
	// EnqueueOutbox stores a pending entry. Enqueueing the same
	// (event id, projection kind) twice keeps the first entry.
	EnqueueOutbox(ctx context.Context, entry OutboxEntry) error
	// HasOpenOutbox reports whether an entry for projectionKind and
	// orderingKey is pending, processing or failed.
	HasOpenOutbox(ctx context.Context, projectionKind, orderingKey string) (bool, error)
	// ClaimOutboxDue moves up to limit due entries to processing. Entries
	// left processing for longer than lease are reclaimed. Entries held
	// behind an earlier open entry of the same kind and key are skipped.
	ClaimOutboxDue(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]OutboxEntry, error)
	// CompleteOutbox removes a processing entry.
	CompleteOutbox(ctx context.Context, id string) error
	// FailOutbox returns a processing entry to failed, or dead.
	FailOutbox(ctx context.Context, id string, now time.Time, failure OutboxFailure) error
	GetOutboxSummary(ctx context.Context) (OutboxSummary, error)
	ListOutbox(ctx context.Context, status OutboxStatus, limit int) ([]OutboxEntry, error)
	// RequeueDeadOutbox moves up to limit dead entries back to pending.
	RequeueDeadOutbox(ctx context.Context, limit int, now time.Time) (int, error)
}
