package projection

import (
	"context"

	apperrors "github.com/louisbranch/courtapps/internal/platform/errors"
	"github.com/louisbranch/courtapps/internal/services/projector/domain"
	"github.com/louisbranch/courtapps/internal/services/projector/event"
)

func (a Applier) planOffenceLaaReferenceUpdated(_ event.Envelope, p event.OffenceLaaReferenceUpdatedPayload) ([]step, error) {
	guard := subjectGuard(p.SubjectID, true)
	rebuild := guarded(guard, func(app domain.Application) (domain.Application, bool) {
		return app.WithOffenceLaaReference(p.OffenceID, p.LaaReference)
	})
	return []step{
		newStep(KindApplication, func(ctx context.Context) error {
			return a.patchApplication(ctx, p.ApplicationID, rebuild)
		}),
		newStep(KindInitiateApplication, func(ctx context.Context) error {
			return a.patchInitiateApplication(ctx, p.ApplicationID, rebuild)
		}),
		newStep(KindProsecutionCase, func(ctx context.Context) error {
			app, err := a.canonicalApplication(ctx, p.ApplicationID)
			if err != nil {
				return err
			}
			if err := guard(app); err != nil {
				return err
			}
			masterDefendantID, ok := app.Subject.MasterDefendantID()
			if !ok {
				return skipf("application %s subject is not a master defendant", app.ID)
			}
			caseIDs := domain.RelatedCaseIDs(app, p.OffenceID)
			if len(caseIDs) == 0 {
				return skipf("offence %s is not in any case of application %s", p.OffenceID, app.ID)
			}
			return forEach(ctx, caseIDs, func(ctx context.Context, caseID string) error {
				return a.patchProsecutionCase(ctx, caseID, func(pc domain.ProsecutionCase) (domain.ProsecutionCase, bool, error) {
					next, changed := pc.WithOffenceLaaReference(p.OffenceID, masterDefendantID, p.LaaReference)
					return next, changed, nil
				})
			})
		}),
	}, nil
}

func (a Applier) planHearingOffenceLaaReferenceUpdated(_ event.Envelope, p event.HearingOffenceLaaReferenceUpdatedPayload) ([]step, error) {
	rebuild := guarded(subjectGuard(p.SubjectID, true), func(app domain.Application) (domain.Application, bool) {
		return app.WithOffenceLaaReference(p.OffenceID, p.LaaReference)
	})
	return []step{
		newStep(KindHearing, func(ctx context.Context) error {
			hearingIDs, err := a.hearingsListing(ctx, p.HearingID, p.ApplicationID)
			if err != nil {
				return err
			}
			return forEach(ctx, hearingIDs, func(ctx context.Context, hearingID string) error {
				return a.patchListedApplication(ctx, hearingID, p.ApplicationID, rebuild)
			})
		}),
	}, nil
}

func (a Applier) planRepOrderUpdated(_ event.Envelope, p event.RepOrderUpdatedPayload) ([]step, error) {
	guard := subjectGuard(p.SubjectID, false)
	rebuild := guarded(guard, func(app domain.Application) (domain.Application, bool) {
		return app.WithLaaReference(p.LaaReference)
	})
	return []step{
		newStep(KindApplication, func(ctx context.Context) error {
			return a.patchApplication(ctx, p.ApplicationID, rebuild)
		}),
		newStep(KindInitiateApplication, func(ctx context.Context) error {
			return a.patchInitiateApplication(ctx, p.ApplicationID, rebuild)
		}),
		newStep(KindProsecutionCase, func(ctx context.Context) error {
			app, err := a.canonicalApplication(ctx, p.ApplicationID)
			if err != nil {
				return err
			}
			if err := guard(app); err != nil {
				return err
			}
			masterDefendantID, ok := app.Subject.MasterDefendantID()
			if !ok {
				return skipf("application %s subject is not a master defendant", app.ID)
			}
			linked, err := a.CaseLinks.ListCaseIDsByApplication(ctx, app.ID)
			if err != nil {
				return err
			}
			caseIDs := unionIDs(domain.CaseIDs(app), linked)
			if len(caseIDs) == 0 {
				return skipf("application %s has no cases", app.ID)
			}
			return forEach(ctx, caseIDs, func(ctx context.Context, caseID string) error {
				return a.patchProsecutionCase(ctx, caseID, func(pc domain.ProsecutionCase) (domain.ProsecutionCase, bool, error) {
					if _, ok := domain.FindDefendant(pc, masterDefendantID); !ok {
						return pc, false, skipf("case %s has no defendant %s", pc.ID, masterDefendantID)
					}
					next, changed := pc.WithDefendantLegalAid(masterDefendantID, p.LaaReference)
					return next, changed, nil
				})
			})
		}),
	}, nil
}

// canonicalApplication loads the application, falling back to the draft
// twin's copy when the application has not been created yet.
func (a Applier) canonicalApplication(ctx context.Context, id string) (domain.Application, error) {
	app, err := a.Applications.GetApplication(ctx, id)
	if err == nil || !apperrors.IsCode(err, apperrors.CodeNotFound) {
		return app, err
	}
	initiate, initErr := a.InitiateApplications.GetInitiateApplication(ctx, id)
	if initErr != nil {
		return domain.Application{}, initErr
	}
	return initiate.Application, nil
}
