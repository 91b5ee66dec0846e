package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	apperrors "github.com/louisbranch/courtapps/internal/platform/errors"
	"github.com/louisbranch/courtapps/internal/services/projector/domain"
	"github.com/louisbranch/courtapps/internal/services/projector/event"
	"github.com/louisbranch/courtapps/internal/services/projector/observability"
	"github.com/louisbranch/courtapps/internal/services/projector/projection"
	"github.com/louisbranch/courtapps/internal/services/projector/storage"
	"github.com/louisbranch/courtapps/internal/services/projector/storage/memory"
)

type kindCall struct {
	eventID string
	kind    projection.Kind
}

type fakeKindApplier struct {
	calls []kindCall
	err   error
}

func (f *fakeKindApplier) ApplyKind(_ context.Context, env event.Envelope, kind projection.Kind) error {
	f.calls = append(f.calls, kindCall{eventID: env.ID, kind: kind})
	return f.err
}

var retryNow = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

func newTestRetryLoop(t *testing.T, applier kindApplier, cfg RetryConfig) (*RetryLoop, *memory.Store) {
	t.Helper()
	store := memory.New()
	loop := NewRetryLoop(store, applier, cfg, zaptest.NewLogger(t), nil)
	loop.now = func() time.Time { return retryNow }
	return loop, store
}

func enqueue(t *testing.T, store *memory.Store, id, kind string, attempts int) event.Envelope {
	t.Helper()
	env, err := event.New(event.TypeRepOrderUpdated, event.RepOrderUpdatedPayload{ApplicationID: "A1", SubjectID: "S1"})
	require.NoError(t, err)
	data, err := env.Marshal()
	require.NoError(t, err)
	require.NoError(t, store.EnqueueOutbox(context.Background(), storage.OutboxEntry{
		ID:             id,
		EventID:        env.ID,
		EventType:      string(env.Type),
		ProjectionKind: kind,
		Envelope:       data,
		AttemptCount:   attempts,
		NextAttemptAt:  retryNow.Add(-time.Second),
	}))
	return env
}

func outboxRows(t *testing.T, store *memory.Store, status storage.OutboxStatus) []storage.OutboxEntry {
	t.Helper()
	rows, err := store.ListOutbox(context.Background(), status, 10)
	require.NoError(t, err)
	return rows
}

func TestRetryConfigBackoff(t *testing.T) {
	cfg := RetryConfig{RetryBackoff: time.Second, RetryMaxDelay: 10 * time.Second}.normalized()
	require.Equal(t, time.Second, cfg.backoff(1))
	require.Equal(t, 2*time.Second, cfg.backoff(2))
	require.Equal(t, 8*time.Second, cfg.backoff(4))
	require.Equal(t, 10*time.Second, cfg.backoff(5))
	require.Equal(t, 10*time.Second, cfg.backoff(60))
}

func TestRetryConfigNormalizedDefaults(t *testing.T) {
	cfg := RetryConfig{RetryBackoff: time.Minute, RetryMaxDelay: time.Second}.normalized()
	require.Equal(t, defaultPollInterval, cfg.PollInterval)
	require.Equal(t, defaultLeaseTTL, cfg.LeaseTTL)
	require.Equal(t, defaultMaxAttempts, cfg.MaxAttempts)
	require.Equal(t, defaultBatchSize, cfg.BatchSize)
	require.Equal(t, time.Minute, cfg.RetryMaxDelay)
}

func TestRetryLoopCompletesAppliedRows(t *testing.T) {
	applier := &fakeKindApplier{}
	loop, store := newTestRetryLoop(t, applier, RetryConfig{})
	env := enqueue(t, store, "row-1", string(projection.KindProsecutionCase), 0)

	processed, err := loop.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, processed)
	require.Equal(t, []kindCall{{eventID: env.ID, kind: projection.KindProsecutionCase}}, applier.calls)

	summary, err := store.GetOutboxSummary(context.Background())
	require.NoError(t, err)
	require.Zero(t, summary.PendingCount+summary.ProcessingCount+summary.FailedCount+summary.DeadCount)
}

func TestRetryLoopBacksOffFailedRows(t *testing.T) {
	applier := &fakeKindApplier{err: apperrors.Wrap(apperrors.CodeStoreFailure, "put case", errors.New("locked"))}
	loop, store := newTestRetryLoop(t, applier, RetryConfig{RetryBackoff: 5 * time.Second, MaxAttempts: 4})
	enqueue(t, store, "row-1", string(projection.KindHearing), 1)

	_, err := loop.RunOnce(context.Background())
	require.NoError(t, err)

	rows := outboxRows(t, store, storage.OutboxFailed)
	require.Len(t, rows, 1)
	require.Equal(t, 2, rows[0].AttemptCount)
	require.True(t, rows[0].NextAttemptAt.Equal(retryNow.Add(10*time.Second)))
	require.Contains(t, rows[0].LastError, "locked")

	processed, err := loop.RunOnce(context.Background())
	require.NoError(t, err)
	require.Zero(t, processed, "row is not due until its backoff elapses")
}

func TestRetryLoopDeadLettersAfterMaxAttempts(t *testing.T) {
	applier := &fakeKindApplier{err: errors.New("still failing")}
	loop, store := newTestRetryLoop(t, applier, RetryConfig{MaxAttempts: 3})
	enqueue(t, store, "row-1", string(projection.KindApplication), 2)

	_, err := loop.RunOnce(context.Background())
	require.NoError(t, err)

	rows := outboxRows(t, store, storage.OutboxDead)
	require.Len(t, rows, 1)
	require.Equal(t, 3, rows[0].AttemptCount)
}

func TestRetryLoopDeadLettersPermanentFailures(t *testing.T) {
	t.Run("rejected event", func(t *testing.T) {
		applier := &fakeKindApplier{err: apperrors.New(apperrors.CodeMalformedEvent, "bad payload")}
		loop, store := newTestRetryLoop(t, applier, RetryConfig{})
		enqueue(t, store, "row-1", string(projection.KindApplication), 0)

		_, err := loop.RunOnce(context.Background())
		require.NoError(t, err)
		require.Len(t, outboxRows(t, store, storage.OutboxDead), 1)
	})
	t.Run("unknown projection kind", func(t *testing.T) {
		applier := &fakeKindApplier{}
		loop, store := newTestRetryLoop(t, applier, RetryConfig{})
		enqueue(t, store, "row-1", "defendant", 0)

		_, err := loop.RunOnce(context.Background())
		require.NoError(t, err)
		require.Empty(t, applier.calls)
		require.Len(t, outboxRows(t, store, storage.OutboxDead), 1)
	})
}

func TestRetryLoopPublishesOutboxDepth(t *testing.T) {
	applier := &fakeKindApplier{err: errors.New("still failing")}
	loop, store := newTestRetryLoop(t, applier, RetryConfig{MaxAttempts: 5})
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	loop.metrics = metrics
	enqueue(t, store, "row-1", string(projection.KindApplication), 0)

	_, err := loop.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.OutboxDepth.WithLabelValues(string(storage.OutboxFailed))))
	require.Equal(t, 0.0, testutil.ToFloat64(metrics.OutboxDepth.WithLabelValues(string(storage.OutboxPending))))
}

func TestRetryLoopRunStopsWithContext(t *testing.T) {
	loop, _ := newTestRetryLoop(t, &fakeKindApplier{}, RetryConfig{PollInterval: time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, loop.Run(ctx))

	var unset *RetryLoop
	require.Error(t, unset.Run(context.Background()))
}

// flakyApplications fails PutApplication while failPut is set.
type flakyApplications struct {
	*memory.Store
	failPut bool
}

func (s *flakyApplications) PutApplication(ctx context.Context, app domain.Application) error {
	if s.failPut {
		return storage.Failure("put application", errors.New("database is locked"))
	}
	return s.Store.PutApplication(ctx, app)
}

func TestRetryLoopReplaysParkedStepsInEventOrder(t *testing.T) {
	ctx := context.Background()
	store := &flakyApplications{Store: memory.New()}
	require.NoError(t, store.Store.PutApplication(ctx, domain.Application{
		ID:      "A1",
		Subject: domain.Party{ID: "S1", MasterDefendant: &domain.MasterDefendant{MasterDefendantID: "MD1"}},
	}))

	applier := projection.NewApplier(store, store, zaptest.NewLogger(t), nil)
	applier.Now = func() time.Time { return retryNow.Add(-time.Minute) }
	assign := func(user string) event.Envelope {
		env, err := event.New(event.TypeBoxworkAssignmentChanged, event.BoxworkAssignmentChangedPayload{ApplicationID: "A1", UserID: user})
		require.NoError(t, err)
		return env
	}

	store.failPut = true
	require.NoError(t, applier.Apply(ctx, assign("U-old")))
	store.failPut = false
	require.NoError(t, applier.Apply(ctx, assign("U-new")))

	current, err := store.GetApplication(ctx, "A1")
	require.NoError(t, err)
	require.Empty(t, current.BoxworkAssignedUserID, "the newer step waits for the parked one")
	require.Len(t, outboxRows(t, store.Store, storage.OutboxPending), 2)

	loop := NewRetryLoop(store, applier, RetryConfig{}, zaptest.NewLogger(t), nil)
	loop.now = func() time.Time { return retryNow }

	n, err := loop.RunOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	current, err = store.GetApplication(ctx, "A1")
	require.NoError(t, err)
	require.Equal(t, "U-old", current.BoxworkAssignedUserID)

	n, err = loop.RunOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	current, err = store.GetApplication(ctx, "A1")
	require.NoError(t, err)
	require.Equal(t, "U-new", current.BoxworkAssignedUserID)
	require.Empty(t, outboxRows(t, store.Store, ""))
}
