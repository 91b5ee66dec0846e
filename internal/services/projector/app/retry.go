package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/louisbranch/courtapps/internal/platform/errors"
	"github.com/louisbranch/courtapps/internal/platform/logging"
	"github.com/louisbranch/courtapps/internal/services/projector/event"
	"github.com/louisbranch/courtapps/internal/services/projector/observability"
	"github.com/louisbranch/courtapps/internal/services/projector/projection"
	"github.com/louisbranch/courtapps/internal/services/projector/storage"
)

const (
	defaultPollInterval  = 2 * time.Second
	defaultLeaseTTL      = 30 * time.Second
	defaultMaxAttempts   = 8
	defaultRetryBackoff  = time.Second
	defaultRetryMaxDelay = 5 * time.Minute
	defaultBatchSize     = 64
)

// RetryConfig controls the outbox retry loop.
type RetryConfig struct {
	PollInterval  time.Duration
	LeaseTTL      time.Duration
	MaxAttempts   int
	RetryBackoff  time.Duration
	RetryMaxDelay time.Duration
	BatchSize     int
}

func (c RetryConfig) normalized() RetryConfig {
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.LeaseTTL <= 0 {
		c.LeaseTTL = defaultLeaseTTL
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = defaultRetryBackoff
	}
	if c.RetryMaxDelay <= 0 {
		c.RetryMaxDelay = defaultRetryMaxDelay
	}
	if c.RetryMaxDelay < c.RetryBackoff {
		c.RetryMaxDelay = c.RetryBackoff
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaultBatchSize
	}
	return c
}

// backoff doubles base for every attempt after the first, capped at max.
func (c RetryConfig) backoff(attempt int) time.Duration {
	delay := c.RetryBackoff
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= c.RetryMaxDelay {
			return c.RetryMaxDelay
		}
	}
	return delay
}

type kindApplier interface {
	ApplyKind(ctx context.Context, env event.Envelope, kind projection.Kind) error
}

// RetryLoop re-runs parked projection steps.
type RetryLoop struct {
	outbox  storage.OutboxStore
	applier kindApplier
	cfg     RetryConfig
	logger  *zap.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

// NewRetryLoop creates a retry loop over outbox.
func NewRetryLoop(outbox storage.OutboxStore, applier kindApplier, cfg RetryConfig, logger *zap.Logger, metrics *observability.Metrics) *RetryLoop {
	return &RetryLoop{
		outbox:  outbox,
		applier: applier,
		cfg:     cfg.normalized(),
		logger:  logging.OrNop(logger).Named("outbox"),
		metrics: metrics,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Run processes due rows every poll interval until ctx ends.
func (l *RetryLoop) Run(ctx context.Context) error {
	if l == nil || l.outbox == nil || l.applier == nil {
		return fmt.Errorf("retry loop is not configured")
	}
	ticker := time.NewTicker(l.cfg.PollInterval)
	defer ticker.Stop()
	for {
		if _, err := l.RunOnce(ctx); err != nil && ctx.Err() == nil {
			l.logger.Error("process outbox", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce leases one batch of due rows and retries each. It returns the
// number of rows processed.
func (l *RetryLoop) RunOnce(ctx context.Context) (int, error) {
	now := l.now()
	rows, err := l.outbox.ClaimOutboxDue(ctx, now, l.cfg.BatchSize, l.cfg.LeaseTTL)
	if err != nil {
		return 0, err
	}
	processed := 0
	for _, row := range rows {
		if err := l.retry(ctx, row, now); err != nil {
			return processed, err
		}
		processed++
	}
	l.publishDepth(ctx)
	return processed, nil
}

func (l *RetryLoop) retry(ctx context.Context, row storage.OutboxEntry, now time.Time) error {
	log := l.logger.With(
		zap.String("outbox_id", row.ID),
		zap.String("event_id", row.EventID),
		zap.String("event_type", row.EventType),
		zap.String("projection", row.ProjectionKind),
	)

	applyErr := l.apply(ctx, row)
	if applyErr == nil {
		log.Info("outbox row applied", zap.Int("attempt", row.AttemptCount+1))
		return l.outbox.CompleteOutbox(ctx, row.ID)
	}

	attempt := row.AttemptCount + 1
	dead := attempt >= l.cfg.MaxAttempts || !apperrors.GetCode(applyErr).Retryable()
	failure := storage.OutboxFailure{
		Attempt:       attempt,
		NextAttemptAt: now.Add(l.cfg.backoff(attempt)),
		LastError:     applyErr.Error(),
		Dead:          dead,
	}
	if dead {
		log.Error("outbox row dead", zap.Int("attempt", attempt), zap.Error(applyErr))
	} else {
		log.Warn("outbox row failed", zap.Int("attempt", attempt), zap.Time("next_attempt_at", failure.NextAttemptAt), zap.Error(applyErr))
	}
	return l.outbox.FailOutbox(ctx, row.ID, now, failure)
}

func (l *RetryLoop) apply(ctx context.Context, row storage.OutboxEntry) error {
	kind, err := projection.ParseKind(row.ProjectionKind)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeMalformedEvent, "parse outbox projection kind", err)
	}
	env, err := event.Parse(row.Envelope)
	if err != nil {
		return err
	}
	return l.applier.ApplyKind(ctx, env, kind)
}

func (l *RetryLoop) publishDepth(ctx context.Context) {
	if l.metrics == nil {
		return
	}
	summary, err := l.outbox.GetOutboxSummary(ctx)
	if err != nil {
		l.logger.Warn("read outbox summary", zap.Error(err))
		return
	}
	l.metrics.SetOutboxDepth(summary)
}
