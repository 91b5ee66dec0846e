package projection

import (
	"context"

	"github.com/louisbranch/courtapps/internal/services/projector/domain"
	"github.com/louisbranch/courtapps/internal/services/projector/event"
)

func (a Applier) planDefenceOrganisationChanged(_ event.Envelope, p event.DefenceOrganisationChangedPayload) ([]step, error) {
	rebuild := guarded(subjectGuard(p.SubjectID, false), func(app domain.Application) (domain.Application, bool) {
		return app.WithSubjectDefenceOrganisation(p.DefenceOrganisation)
	})
	return []step{
		newStep(KindApplication, func(ctx context.Context) error {
			return a.patchApplication(ctx, p.ApplicationID, rebuild)
		}),
		newStep(KindInitiateApplication, func(ctx context.Context) error {
			return a.patchInitiateApplication(ctx, p.ApplicationID, rebuild)
		}),
	}, nil
}

func (a Applier) planCustodialInformationUpdated(_ event.Envelope, p event.CustodialInformationUpdatedPayload) ([]step, error) {
	return []step{
		newStep(KindApplication, func(ctx context.Context) error {
			return a.patchApplication(ctx, p.ApplicationID, func(app domain.Application) (domain.Application, bool, error) {
				if app.Subject.Kind != domain.PartyKindMasterDefendant {
					return app, false, skipf("application %s subject is %s, not a master defendant", app.ID, app.Subject.Kind)
				}
				next, changed := app.WithSubjectPersonDefendant(p.PersonDefendant)
				return next, changed, nil
			})
		}),
	}, nil
}

func (a Applier) planHearingRepOrderUpdated(_ event.Envelope, p event.HearingRepOrderUpdatedPayload) ([]step, error) {
	rebuild := guarded(subjectGuard(p.SubjectID, false), func(app domain.Application) (domain.Application, bool) {
		return app.WithSubjectDefenceOrganisation(p.DefenceOrganisation)
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
