package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/louisbranch/courtapps/internal/platform/errors"
	"github.com/louisbranch/courtapps/internal/services/projector/storage"
)

func TestOutboxClaimRetryAndComplete(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	entry := storage.OutboxEntry{
		ID:             "o1",
		EventID:        "e1",
		EventType:      "application.ejected",
		ProjectionKind: "hearing",
		Envelope:       []byte(`{"id":"e1"}`),
		NextAttemptAt:  now,
	}
	require.NoError(t, s.EnqueueOutbox(ctx, entry))
	entry.ID = "o-duplicate"
	require.NoError(t, s.EnqueueOutbox(ctx, entry))

	summary, err := s.GetOutboxSummary(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, summary.PendingCount)
	require.Equal(t, now, summary.OldestDueAt)

	claimed, err := s.ClaimOutboxDue(ctx, now, 10, time.Minute)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	require.Equal(t, "o1", claimed[0].ID)
	require.JSONEq(t, `{"id":"e1"}`, string(claimed[0].Envelope))

	claimed, err = s.ClaimOutboxDue(ctx, now.Add(30*time.Second), 10, time.Minute)
	require.NoError(t, err)
	require.Empty(t, claimed)

	require.NoError(t, s.FailOutbox(ctx, "o1", now, storage.OutboxFailure{Attempt: 1, NextAttemptAt: now.Add(2 * time.Second), LastError: "locked"}))
	require.Error(t, s.CompleteOutbox(ctx, "o1"), "failed rows are not processing")

	failed, err := s.ListOutbox(ctx, storage.OutboxFailed, 10)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	require.Equal(t, 1, failed[0].AttemptCount)
	require.Equal(t, "locked", failed[0].LastError)

	claimed, err = s.ClaimOutboxDue(ctx, now.Add(2*time.Second), 10, time.Minute)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	require.NoError(t, s.CompleteOutbox(ctx, "o1"))

	all, err := s.ListOutbox(ctx, "", 10)
	require.NoError(t, err)
	require.Empty(t, all)
}

func TestOutboxStaleProcessingIsReclaimed(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.EnqueueOutbox(ctx, storage.OutboxEntry{ID: "o1", EventID: "e1", ProjectionKind: "application", Envelope: []byte(`{}`), NextAttemptAt: now}))

	_, err := s.ClaimOutboxDue(ctx, now, 1, time.Minute)
	require.NoError(t, err)
	claimed, err := s.ClaimOutboxDue(ctx, now.Add(time.Minute), 1, time.Minute)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
}

func TestOutboxDeadAndRequeue(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.EnqueueOutbox(ctx, storage.OutboxEntry{ID: "o1", EventID: "e1", ProjectionKind: "application", Envelope: []byte(`{}`), NextAttemptAt: now}))
	_, err := s.ClaimOutboxDue(ctx, now, 1, time.Minute)
	require.NoError(t, err)
	require.NoError(t, s.FailOutbox(ctx, "o1", now, storage.OutboxFailure{Attempt: 8, NextAttemptAt: now, LastError: "gone", Dead: true}))

	claimed, err := s.ClaimOutboxDue(ctx, now.Add(time.Hour), 10, time.Minute)
	require.NoError(t, err)
	require.Empty(t, claimed)

	summary, err := s.GetOutboxSummary(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, summary.DeadCount)
	require.True(t, summary.OldestDueAt.IsZero())

	_, err = s.RequeueDeadOutbox(ctx, 0, now)
	require.Error(t, err)
	n, err := s.RequeueDeadOutbox(ctx, 5, now)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	pending, err := s.ListOutbox(ctx, storage.OutboxPending, 5)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Zero(t, pending[0].AttemptCount)
	require.Empty(t, pending[0].LastError)
}

func TestOutboxClaimFailureIsStoreFailure(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	s := NewWithDB(sqlDB)
	t.Cleanup(func() { _ = s.Close() })

	mock.ExpectBegin().WillReturnError(errors.New("connection reset"))
	_, err = s.ClaimOutboxDue(context.Background(), time.Now(), 5, time.Minute)
	require.True(t, apperrors.IsCode(err, apperrors.CodeStoreFailure))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxHoldsLaterEntriesOfTheSameStream(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for _, entry := range []storage.OutboxEntry{
		{ID: "o1", EventID: "e1", ProjectionKind: "application", OrderingKey: "A1", NextAttemptAt: now.Add(5 * time.Second)},
		{ID: "o2", EventID: "e2", ProjectionKind: "application", OrderingKey: "A1", NextAttemptAt: now},
		{ID: "o3", EventID: "e3", ProjectionKind: "hearing", OrderingKey: "A1", NextAttemptAt: now},
		{ID: "o4", EventID: "e4", ProjectionKind: "application", OrderingKey: "A2", NextAttemptAt: now},
	} {
		entry.Envelope = []byte(`{}`)
		require.NoError(t, s.EnqueueOutbox(ctx, entry))
	}

	open, err := s.HasOpenOutbox(ctx, "application", "A1")
	require.NoError(t, err)
	require.True(t, open)
	open, err = s.HasOpenOutbox(ctx, "application", "A3")
	require.NoError(t, err)
	require.False(t, open)
	open, err = s.HasOpenOutbox(ctx, "application", "")
	require.NoError(t, err)
	require.False(t, open)

	claimed, err := s.ClaimOutboxDue(ctx, now, 10, time.Minute)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"o3", "o4"}, outboxIDs(claimed), "o2 waits behind o1")

	claimed, err = s.ClaimOutboxDue(ctx, now.Add(5*time.Second), 10, time.Minute)
	require.NoError(t, err)
	require.Equal(t, []string{"o1"}, outboxIDs(claimed))
	require.NoError(t, s.FailOutbox(ctx, "o1", now, storage.OutboxFailure{Attempt: 1, NextAttemptAt: now.Add(time.Hour), LastError: "gone", Dead: true}))

	claimed, err = s.ClaimOutboxDue(ctx, now.Add(5*time.Second), 10, time.Minute)
	require.NoError(t, err)
	require.Equal(t, []string{"o2"}, outboxIDs(claimed), "dead entries release the stream")
	require.Equal(t, "A1", claimed[0].OrderingKey)
}

func outboxIDs(entries []storage.OutboxEntry) []string {
	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		ids = append(ids, entry.ID)
	}
	return ids
}
