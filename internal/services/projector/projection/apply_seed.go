package projection

import (
	"context"

	apperrors "github.com/louisbranch/courtapps/internal/platform/errors"
	"github.com/louisbranch/courtapps/internal/services/projector/domain"
	"github.com/louisbranch/courtapps/internal/services/projector/event"
	"github.com/louisbranch/courtapps/internal/services/projector/storage"
)

func malformed(env event.Envelope, message string, cause error) error {
	return apperrors.WrapWithMetadata(apperrors.CodeMalformedEvent, message,
		map[string]string{"event_type": string(env.Type), "event_id": env.ID}, cause)
}

func (a Applier) planApplicationCreated(env event.Envelope, p event.ApplicationCreatedPayload) ([]step, error) {
	app, err := p.Application.Classified()
	if err != nil {
		return nil, malformed(env, "classify application parties", err)
	}
	return []step{
		newStep(KindApplication, func(ctx context.Context) error {
			return a.Applications.PutApplication(ctx, app)
		}),
		newStep(KindApplicationCaseLink, func(ctx context.Context) error {
			caseIDs := domain.CaseIDs(app)
			if len(caseIDs) == 0 {
				return skipf("application %s has no cases", app.ID)
			}
			now := a.now()
			return forEach(ctx, caseIDs, func(ctx context.Context, caseID string) error {
				return a.CaseLinks.PutApplicationCaseLink(ctx, storage.ApplicationCaseLink{
					ApplicationID:     app.ID,
					ProsecutionCaseID: caseID,
					UpdatedAt:         now,
				})
			})
		}),
	}, nil
}

func (a Applier) planApplicationInitiated(env event.Envelope, p event.ApplicationInitiatedPayload) ([]step, error) {
	app, err := p.InitiateApplication.Application.Classified()
	if err != nil {
		return nil, malformed(env, "classify initiated application parties", err)
	}
	initiate := p.InitiateApplication
	initiate.Application = app
	return []step{
		newStep(KindInitiateApplication, func(ctx context.Context) error {
			return a.InitiateApplications.PutInitiateApplication(ctx, initiate)
		}),
	}, nil
}

func (a Applier) planHearingListed(env event.Envelope, p event.HearingListedPayload) ([]step, error) {
	hearing := p.Hearing
	apps := make([]domain.Application, 0, len(hearing.Applications))
	for _, listed := range hearing.Applications {
		app, err := listed.Classified()
		if err != nil {
			return nil, malformed(env, "classify listed application parties", err)
		}
		apps = append(apps, app)
	}
	hearing.Applications = apps
	return []step{
		newStep(KindHearing, func(ctx context.Context) error {
			return a.Hearings.PutHearing(ctx, hearing)
		}),
		newStep(KindHearingApplicationLink, func(ctx context.Context) error {
			if len(apps) == 0 {
				return skipf("hearing %s lists no applications", hearing.ID)
			}
			now := a.now()
			ids := make([]string, 0, len(apps))
			for _, app := range apps {
				ids = append(ids, app.ID)
			}
			return forEach(ctx, unionIDs(ids), func(ctx context.Context, applicationID string) error {
				return a.HearingLinks.PutHearingApplicationLink(ctx, storage.HearingApplicationLink{
					HearingID:     hearing.ID,
					ApplicationID: applicationID,
					UpdatedAt:     now,
				})
			})
		}),
	}, nil
}

func (a Applier) planProsecutionCaseUpserted(_ event.Envelope, p event.ProsecutionCaseUpsertedPayload) ([]step, error) {
	return []step{
		newStep(KindProsecutionCase, func(ctx context.Context) error {
			return a.ProsecutionCases.PutProsecutionCase(ctx, p.ProsecutionCase)
		}),
	}, nil
}

func (a Applier) planNoteAdded(env event.Envelope, p event.NoteAddedPayload) ([]step, error) {
	note := p.Note
	if note.CreatedAt.IsZero() {
		note.CreatedAt = env.OccurredAt
	}
	if note.CreatedAt.IsZero() {
		note.CreatedAt = a.now()
	}
	return []step{
		newStep(KindApplicationNote, func(ctx context.Context) error {
			return a.Notes.PutApplicationNote(ctx, note)
		}),
	}, nil
}
