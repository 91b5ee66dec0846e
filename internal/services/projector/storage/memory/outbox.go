package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/louisbranch/courtapps/internal/services/projector/storage"
)

func (s *Store) EnqueueOutbox(ctx context.Context, entry storage.OutboxEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(entry.ID) == "" || strings.TrimSpace(entry.EventID) == "" || strings.TrimSpace(entry.ProjectionKind) == "" {
		return storage.Failure("enqueue outbox", fmt.Errorf("outbox id, event id and projection kind are required"))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.outbox {
		if existing.EventID == entry.EventID && existing.ProjectionKind == entry.ProjectionKind {
			return nil
		}
	}
	now := time.Now().UTC()
	entry.Status = storage.OutboxPending
	entry.Envelope = append([]byte(nil), entry.Envelope...)
	if entry.NextAttemptAt.IsZero() {
		entry.NextAttemptAt = now
	}
	entry.UpdatedAt = now
	s.outboxSeq++
	entry.Sequence = s.outboxSeq
	s.outbox[entry.ID] = entry
	return nil
}

func openOutbox(status storage.OutboxStatus) bool {
	return status == storage.OutboxPending || status == storage.OutboxProcessing || status == storage.OutboxFailed
}

func (s *Store) HasOpenOutbox(ctx context.Context, projectionKind, orderingKey string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if orderingKey == "" {
		return false, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, entry := range s.outbox {
		if entry.ProjectionKind == projectionKind && entry.OrderingKey == orderingKey && openOutbox(entry.Status) {
			return true, nil
		}
	}
	return false, nil
}

// heldBehind reports whether an earlier open entry shares entry's kind and key.
func (s *Store) heldBehind(entry storage.OutboxEntry) bool {
	if entry.OrderingKey == "" {
		return false
	}
	for _, other := range s.outbox {
		if other.Sequence < entry.Sequence && other.ProjectionKind == entry.ProjectionKind &&
			other.OrderingKey == entry.OrderingKey && openOutbox(other.Status) {
			return true
		}
	}
	return false
}

func (s *Store) ClaimOutboxDue(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]storage.OutboxEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, nil
	}
	staleBefore := now.Add(-lease)
	s.mu.Lock()
	defer s.mu.Unlock()

	due := make([]storage.OutboxEntry, 0)
	for _, entry := range s.outbox {
		if s.heldBehind(entry) {
			continue
		}
		switch entry.Status {
		case storage.OutboxPending, storage.OutboxFailed:
			if !entry.NextAttemptAt.After(now) {
				due = append(due, entry)
			}
		case storage.OutboxProcessing:
			if !entry.UpdatedAt.After(staleBefore) {
				due = append(due, entry)
			}
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].NextAttemptAt.Equal(due[j].NextAttemptAt) {
			return due[i].Sequence < due[j].Sequence
		}
		return due[i].NextAttemptAt.Before(due[j].NextAttemptAt)
	})
	if len(due) > limit {
		due = due[:limit]
	}
	for i := range due {
		due[i].Status = storage.OutboxProcessing
		due[i].UpdatedAt = now
		s.outbox[due[i].ID] = due[i]
	}
	return due, nil
}

func (s *Store) CompleteOutbox(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.outbox[id]
	if !ok || entry.Status != storage.OutboxProcessing {
		return storage.Failure("complete outbox", fmt.Errorf("outbox entry %s is not processing", id))
	}
	delete(s.outbox, id)
	return nil
}

func (s *Store) FailOutbox(ctx context.Context, id string, now time.Time, failure storage.OutboxFailure) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.outbox[id]
	if !ok || entry.Status != storage.OutboxProcessing {
		return storage.Failure("fail outbox", fmt.Errorf("outbox entry %s is not processing", id))
	}
	entry.Status = storage.OutboxFailed
	if failure.Dead {
		entry.Status = storage.OutboxDead
	}
	entry.AttemptCount = failure.Attempt
	entry.NextAttemptAt = failure.NextAttemptAt
	entry.LastError = failure.LastError
	entry.UpdatedAt = now
	s.outbox[id] = entry
	return nil
}

func (s *Store) GetOutboxSummary(ctx context.Context) (storage.OutboxSummary, error) {
	if err := ctx.Err(); err != nil {
		return storage.OutboxSummary{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var summary storage.OutboxSummary
	for _, entry := range s.outbox {
		switch entry.Status {
		case storage.OutboxPending:
			summary.PendingCount++
		case storage.OutboxProcessing:
			summary.ProcessingCount++
		case storage.OutboxFailed:
			summary.FailedCount++
		case storage.OutboxDead:
			summary.DeadCount++
		}
		if entry.Status == storage.OutboxPending || entry.Status == storage.OutboxFailed {
			if summary.OldestDueAt.IsZero() || entry.NextAttemptAt.Before(summary.OldestDueAt) {
				summary.OldestDueAt = entry.NextAttemptAt
			}
		}
	}
	return summary, nil
}

func (s *Store) ListOutbox(ctx context.Context, status storage.OutboxStatus, limit int) ([]storage.OutboxEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return []storage.OutboxEntry{}, nil
	}
	s.mu.RLock()
	entries := make([]storage.OutboxEntry, 0, len(s.outbox))
	for _, entry := range s.outbox {
		if status == "" || entry.Status == status {
			entries = append(entries, entry)
		}
	}
	s.mu.RUnlock()
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].NextAttemptAt.Equal(entries[j].NextAttemptAt) {
			return entries[i].ID < entries[j].ID
		}
		return entries[i].NextAttemptAt.Before(entries[j].NextAttemptAt)
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (s *Store) RequeueDeadOutbox(ctx context.Context, limit int, now time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if limit <= 0 {
		return 0, fmt.Errorf("outbox requeue limit must be greater than zero")
	}
	dead, err := s.ListOutbox(ctx, storage.OutboxDead, limit)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entry := range dead {
		entry.Status = storage.OutboxPending
		entry.AttemptCount = 0
		entry.NextAttemptAt = now
		entry.LastError = ""
		entry.UpdatedAt = now
		s.outbox[entry.ID] = entry
	}
	return len(dead), nil
}
