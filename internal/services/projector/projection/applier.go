package projection

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	apperrors "github.com/louisbranch/courtapps/internal/platform/errors"
	"github.com/louisbranch/courtapps/internal/platform/logging"
	platformotel "github.com/louisbranch/courtapps/internal/platform/otel"
	"github.com/louisbranch/courtapps/internal/services/projector/event"
	"github.com/louisbranch/courtapps/internal/services/projector/observability"
	"github.com/louisbranch/courtapps/internal/services/projector/storage"
)

const tracerName = "github.com/louisbranch/courtapps/internal/services/projector/projection"

// Applier applies domain events to projection stores.
type Applier struct {
	// Router resolves event types to handlers. Nil means DefaultRouter.
	Router *Router
	// Applications writes court application read models.
	Applications storage.ApplicationStore
	// InitiateApplications writes draft application read models.
	InitiateApplications storage.InitiateApplicationStore
	// Hearings writes hearing read models.
	Hearings storage.HearingStore
	// ProsecutionCases writes prosecution case read models.
	ProsecutionCases storage.ProsecutionCaseStore
	// HearingLinks indexes hearings by listed application.
	HearingLinks storage.HearingApplicationLinkStore
	// CaseLinks indexes cases by citing application.
	CaseLinks storage.ApplicationCaseLinkStore
	// Notes writes application notes.
	Notes storage.ApplicationNoteStore
	// Outbox parks failed steps for retry. Optional; without it step
	// failures are returned to the caller.
	Outbox storage.OutboxStore
	// RetryDelay is how long a parked step waits before its first retry.
	RetryDelay time.Duration

	Logger  *zap.Logger
	Metrics *observability.Metrics
	Tracer  trace.Tracer
	// Now stamps seeded rows. Nil means time.Now.
	Now func() time.Time
}

// NewApplier wires every projection store from one backend.
func NewApplier(stores storage.ProjectionStores, outbox storage.OutboxStore, logger *zap.Logger, metrics *observability.Metrics) Applier {
	return Applier{
		Router:               DefaultRouter(),
		Applications:         stores,
		InitiateApplications: stores,
		Hearings:             stores,
		ProsecutionCases:     stores,
		HearingLinks:         stores,
		CaseLinks:            stores,
		Notes:                stores,
		Outbox:               outbox,
		Logger:               logger,
		Metrics:              metrics,
	}
}

func (a Applier) router() *Router {
	if a.Router == nil {
		return DefaultRouter()
	}
	return a.Router
}

func (a Applier) logger() *zap.Logger {
	return logging.OrNop(a.Logger)
}

func (a Applier) tracer() trace.Tracer {
	if a.Tracer != nil {
		return a.Tracer
	}
	return platformotel.Tracer(tracerName)
}

func (a Applier) now() time.Time {
	if a.Now != nil {
		return a.Now().UTC()
	}
	return time.Now().UTC()
}

// Apply propagates env to every projection its handler touches.
//
// Malformed payloads and unknown types fail before any write. Each step then
// runs in order regardless of earlier failures. Skips are logged and dropped.
// A store failure is parked in the outbox when one is configured; failures
// that cannot be parked are joined into the returned error.
func (a Applier) Apply(ctx context.Context, env event.Envelope) error {
	return a.apply(ctx, env, "", true)
}

// ApplyKind re-runs only the steps of env that write to kind. Failures are
// returned, never parked.
func (a Applier) ApplyKind(ctx context.Context, env event.Envelope, kind Kind) error {
	return a.apply(ctx, env, kind, false)
}

func (a Applier) apply(ctx context.Context, env event.Envelope, only Kind, park bool) error {
	started := time.Now()
	ctx, span := a.tracer().Start(ctx, "projection.apply "+string(env.Type), trace.WithAttributes(
		attribute.String("event.id", env.ID),
		attribute.String("event.type", string(env.Type)),
		attribute.String("projection.only", string(only)),
	))
	defer span.End()

	log := a.logger().With(zap.String("event_type", string(env.Type)), zap.String("event_id", env.ID))

	steps, err := a.router().plan(a, env)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "plan failed")
		log.Error("reject event", zap.Error(err), zap.String("code", string(apperrors.GetCode(err))))
		a.Metrics.ObserveEvent(string(env.Type), observability.OutcomeFailed, time.Since(started))
		return err
	}

	var errs []error
	ran := 0
	for _, s := range steps {
		if only != "" && s.kind != only {
			continue
		}
		ran++
		if stepErr := a.runStep(ctx, log, env, s, park); stepErr != nil {
			errs = append(errs, stepErr)
		}
	}
	if only != "" && ran == 0 {
		log.Info("no steps for projection kind", zap.String("projection", string(only)))
	}

	joined := errors.Join(errs...)
	outcome := observability.OutcomeApplied
	if joined != nil {
		outcome = observability.OutcomeFailed
		span.RecordError(joined)
		span.SetStatus(codes.Error, "projection step failed")
	}
	a.Metrics.ObserveEvent(string(env.Type), outcome, time.Since(started))
	return joined
}

// runStep runs one step and classifies its result.
func (a Applier) runStep(ctx context.Context, log *zap.Logger, env event.Envelope, s step, park bool) error {
	ctx, span := a.tracer().Start(ctx, "projection.step "+string(s.kind),
		trace.WithAttributes(attribute.String("projection.kind", string(s.kind))))
	defer span.End()

	log = log.With(zap.String("projection", string(s.kind)))
	if park && a.Outbox != nil && s.key != "" {
		held, err := a.Outbox.HasOpenOutbox(ctx, string(s.kind), s.key)
		if err != nil {
			span.RecordError(err)
			log.Error("check projection outbox", zap.Error(err))
			a.Metrics.ObserveStep(string(s.kind), observability.OutcomeFailed)
			return err
		}
		if held {
			return a.hold(ctx, log, env, s)
		}
	}
	err := s.run(ctx)
	switch {
	case err == nil:
		a.Metrics.ObserveStep(string(s.kind), observability.OutcomeApplied)
		return nil
	case apperrors.IsSkippable(err):
		reason := string(apperrors.GetCode(err))
		log.Info("skip projection", zap.String("reason", reason), zap.String("detail", err.Error()))
		span.SetAttributes(attribute.String("projection.skip", reason))
		a.Metrics.ObserveStep(string(s.kind), observability.OutcomeSkipped)
		a.Metrics.ObserveSkip(string(s.kind), reason)
		return nil
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, "step failed")
	if park && a.Outbox != nil {
		parkErr := a.park(ctx, env, s, err)
		if parkErr == nil {
			log.Warn("parked failed projection step", zap.Error(err))
			a.Metrics.ObserveStep(string(s.kind), observability.OutcomeParked)
			return nil
		}
		err = errors.Join(err, parkErr)
	}
	log.Error("projection step failed", zap.Error(err))
	a.Metrics.ObserveStep(string(s.kind), observability.OutcomeFailed)
	return err
}

// hold queues s behind an earlier parked step of the same kind and key
// without running it, so the retry loop replays both in event order.
func (a Applier) hold(ctx context.Context, log *zap.Logger, env event.Envelope, s step) error {
	if err := a.enqueue(ctx, env, s, a.now(), "held behind an earlier parked step"); err != nil {
		log.Error("hold projection step", zap.Error(err))
		a.Metrics.ObserveStep(string(s.kind), observability.OutcomeFailed)
		return err
	}
	log.Info("held projection step behind parked step", zap.String("ordering_key", s.key))
	a.Metrics.ObserveStep(string(s.kind), observability.OutcomeParked)
	return nil
}

func (a Applier) park(ctx context.Context, env event.Envelope, s step, cause error) error {
	return a.enqueue(ctx, env, s, a.now().Add(a.RetryDelay), cause.Error())
}

func (a Applier) enqueue(ctx context.Context, env event.Envelope, s step, due time.Time, reason string) error {
	data, err := env.Marshal()
	if err != nil {
		return apperrors.Wrap(apperrors.CodeStoreFailure, "encode envelope for outbox", err)
	}
	return a.Outbox.EnqueueOutbox(ctx, storage.OutboxEntry{
		ID:             uuid.NewString(),
		EventID:        env.ID,
		EventType:      string(env.Type),
		ProjectionKind: string(s.kind),
		OrderingKey:    s.key,
		Envelope:       data,
		NextAttemptAt:  due,
		LastError:      reason,
	})
}
