package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/louisbranch/courtapps/internal/services/projector/storage"
)

const (
	maxBusyRetries = 8
	retryBaseDelay = 10 * time.Millisecond
)

func (s *Store) EnqueueOutbox(ctx context.Context, entry storage.OutboxEntry) error {
	if entry.ID == "" || entry.EventID == "" || entry.ProjectionKind == "" {
		return storage.Failure("enqueue outbox", fmt.Errorf("outbox id, event id and projection kind are required"))
	}
	now := s.now()
	nextAttempt := entry.NextAttemptAt
	if nextAttempt.IsZero() {
		nextAttempt = now
	}
	return s.exec(ctx, "enqueue outbox "+entry.EventID+"/"+entry.ProjectionKind,
		`INSERT INTO projection_outbox (
		    id, event_id, event_type, projection_kind, ordering_key, envelope, status, attempt_count, next_attempt_at, last_error, updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?, 'pending', 0, ?, ?, ?)
		 ON CONFLICT(event_id, projection_kind) DO NOTHING`,
		entry.ID, entry.EventID, entry.EventType, entry.ProjectionKind, entry.OrderingKey, entry.Envelope,
		toMillis(nextAttempt), entry.LastError, toMillis(now))
}

func (s *Store) HasOpenOutbox(ctx context.Context, projectionKind, orderingKey string) (bool, error) {
	if err := s.ready(ctx); err != nil {
		return false, err
	}
	if orderingKey == "" {
		return false, nil
	}
	var open bool
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT EXISTS (
		     SELECT 1 FROM projection_outbox
		     WHERE projection_kind = ? AND ordering_key = ?
		       AND status IN ('pending', 'processing', 'failed')
		 )`,
		projectionKind, orderingKey).Scan(&open)
	if err != nil {
		return false, storage.Failure("check open outbox "+projectionKind+"/"+orderingKey, err)
	}
	return open, nil
}

// ClaimOutboxDue claims rows inside one transaction so concurrent workers
// never lease the same row. Busy databases are retried briefly.
func (s *Store) ClaimOutboxDue(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]storage.OutboxEntry, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, nil
	}
	var lastBusyErr error
	for attempt := 0; attempt <= maxBusyRetries; attempt++ {
		claimed, err := s.claimOutboxDue(ctx, now, limit, lease)
		if err == nil {
			return claimed, nil
		}
		if !isSQLiteBusyError(err) {
			return nil, storage.Failure("claim outbox", err)
		}
		lastBusyErr = err
		timer := time.NewTimer(time.Duration(attempt+1) * retryBaseDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return nil, storage.Failure("claim outbox remained busy", lastBusyErr)
}

func (s *Store) claimOutboxDue(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]storage.OutboxEntry, error) {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	staleBefore := now.Add(-lease)
	rows, err := tx.QueryContext(ctx,
		`SELECT o.rowid, o.id, o.event_id, o.event_type, o.projection_kind, o.ordering_key, o.envelope,
		        o.attempt_count, o.next_attempt_at, o.last_error
		 FROM projection_outbox o
		 WHERE ((o.status IN ('pending', 'failed') AND o.next_attempt_at <= ?)
		     OR (o.status = 'processing' AND o.updated_at <= ?))
		   AND NOT (o.ordering_key <> '' AND EXISTS (
		       SELECT 1 FROM projection_outbox earlier
		       WHERE earlier.projection_kind = o.projection_kind
		         AND earlier.ordering_key = o.ordering_key
		         AND earlier.rowid < o.rowid
		         AND earlier.status IN ('pending', 'processing', 'failed')
		   ))
		 ORDER BY o.next_attempt_at, o.rowid
		 LIMIT ?`,
		toMillis(now), toMillis(staleBefore), limit)
	if err != nil {
		return nil, err
	}
	candidates := make([]storage.OutboxEntry, 0, limit)
	for rows.Next() {
		var (
			entry       storage.OutboxEntry
			nextAttempt int64
		)
		if err := rows.Scan(&entry.Sequence, &entry.ID, &entry.EventID, &entry.EventType, &entry.ProjectionKind,
			&entry.OrderingKey, &entry.Envelope, &entry.AttemptCount, &nextAttempt, &entry.LastError); err != nil {
			rows.Close()
			return nil, err
		}
		entry.NextAttemptAt = fromMillis(nextAttempt)
		candidates = append(candidates, entry)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	claimed := make([]storage.OutboxEntry, 0, len(candidates))
	for _, candidate := range candidates {
		result, err := tx.ExecContext(ctx,
			`UPDATE projection_outbox
			 SET status = 'processing', updated_at = ?
			 WHERE id = ?
			   AND ((status IN ('pending', 'failed') AND next_attempt_at <= ?)
			     OR (status = 'processing' AND updated_at <= ?))`,
			toMillis(now), candidate.ID, toMillis(now), toMillis(staleBefore))
		if err != nil {
			return nil, fmt.Errorf("claim outbox row %s: %w", candidate.ID, err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("claim outbox row %s rows affected: %w", candidate.ID, err)
		}
		if affected == 1 {
			candidate.Status = storage.OutboxProcessing
			candidate.UpdatedAt = now
			claimed = append(claimed, candidate)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return claimed, nil
}

func (s *Store) CompleteOutbox(ctx context.Context, id string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx,
		`DELETE FROM projection_outbox WHERE id = ? AND status = 'processing'`, id)
	if err != nil {
		return storage.Failure("complete outbox row "+id, err)
	}
	return ensureSingleRow(result, "complete outbox row "+id)
}

func (s *Store) FailOutbox(ctx context.Context, id string, now time.Time, failure storage.OutboxFailure) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	status := storage.OutboxFailed
	if failure.Dead {
		status = storage.OutboxDead
	}
	result, err := s.sqlDB.ExecContext(ctx,
		`UPDATE projection_outbox
		 SET status = ?, attempt_count = ?, next_attempt_at = ?, last_error = ?, updated_at = ?
		 WHERE id = ? AND status = 'processing'`,
		string(status), failure.Attempt, toMillis(failure.NextAttemptAt), failure.LastError, toMillis(now), id)
	if err != nil {
		return storage.Failure("fail outbox row "+id, err)
	}
	return ensureSingleRow(result, "fail outbox row "+id)
}

func ensureSingleRow(result sql.Result, operation string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return storage.Failure(operation, err)
	}
	if affected != 1 {
		return storage.Failure(operation, fmt.Errorf("expected 1 row affected, got %d", affected))
	}
	return nil
}

func (s *Store) GetOutboxSummary(ctx context.Context) (storage.OutboxSummary, error) {
	if err := s.ready(ctx); err != nil {
		return storage.OutboxSummary{}, err
	}
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT status, COUNT(*) FROM projection_outbox GROUP BY status`)
	if err != nil {
		return storage.OutboxSummary{}, storage.Failure("query outbox summary", err)
	}
	defer rows.Close()

	var summary storage.OutboxSummary
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return storage.OutboxSummary{}, storage.Failure("scan outbox summary", err)
		}
		switch storage.OutboxStatus(status) {
		case storage.OutboxPending:
			summary.PendingCount = count
		case storage.OutboxProcessing:
			summary.ProcessingCount = count
		case storage.OutboxFailed:
			summary.FailedCount = count
		case storage.OutboxDead:
			summary.DeadCount = count
		}
	}
	if err := rows.Err(); err != nil {
		return storage.OutboxSummary{}, storage.Failure("iterate outbox summary", err)
	}

	var oldest int64
	err = s.sqlDB.QueryRowContext(ctx,
		`SELECT next_attempt_at FROM projection_outbox
		 WHERE status IN ('pending', 'failed')
		 ORDER BY next_attempt_at ASC LIMIT 1`).Scan(&oldest)
	switch {
	case err == nil:
		summary.OldestDueAt = fromMillis(oldest)
	case errors.Is(err, sql.ErrNoRows):
	default:
		return storage.OutboxSummary{}, storage.Failure("query oldest outbox row", err)
	}
	return summary, nil
}

func (s *Store) ListOutbox(ctx context.Context, status storage.OutboxStatus, limit int) ([]storage.OutboxEntry, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return []storage.OutboxEntry{}, nil
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT rowid, id, event_id, event_type, projection_kind, ordering_key, envelope, status, attempt_count, next_attempt_at, last_error, updated_at
		 FROM projection_outbox
		 WHERE ? = '' OR status = ?
		 ORDER BY next_attempt_at ASC, rowid ASC
		 LIMIT ?`,
		string(status), string(status), limit)
	if err != nil {
		return nil, storage.Failure("list outbox rows", err)
	}
	defer rows.Close()

	entries := make([]storage.OutboxEntry, 0, limit)
	for rows.Next() {
		var (
			entry       storage.OutboxEntry
			status      string
			nextAttempt int64
			updatedAt   int64
		)
		if err := rows.Scan(&entry.Sequence, &entry.ID, &entry.EventID, &entry.EventType, &entry.ProjectionKind, &entry.OrderingKey,
			&entry.Envelope, &status, &entry.AttemptCount, &nextAttempt, &entry.LastError, &updatedAt); err != nil {
			return nil, storage.Failure("scan outbox row", err)
		}
		entry.Status = storage.OutboxStatus(status)
		entry.NextAttemptAt = fromMillis(nextAttempt)
		entry.UpdatedAt = fromMillis(updatedAt)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.Failure("iterate outbox rows", err)
	}
	return entries, nil
}

func (s *Store) RequeueDeadOutbox(ctx context.Context, limit int, now time.Time) (int, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	if limit <= 0 {
		return 0, fmt.Errorf("outbox requeue limit must be greater than zero")
	}
	result, err := s.sqlDB.ExecContext(ctx,
		`UPDATE projection_outbox
		 SET status = 'pending', attempt_count = 0, next_attempt_at = ?, last_error = '', updated_at = ?
		 WHERE id IN (
		     SELECT id FROM projection_outbox
		     WHERE status = 'dead'
		     ORDER BY next_attempt_at ASC, id ASC
		     LIMIT ?
		 )`,
		toMillis(now), toMillis(now), limit)
	if err != nil {
		return 0, storage.Failure("requeue dead outbox rows", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, storage.Failure("requeue dead outbox rows affected", err)
	}
	return int(affected), nil
}
