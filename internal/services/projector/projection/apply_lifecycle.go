package projection

import (
	"context"
	"errors"

	"github.com/samber/lo"

	apperrors "github.com/louisbranch/courtapps/internal/platform/errors"
	"github.com/louisbranch/courtapps/internal/services/projector/domain"
	"github.com/louisbranch/courtapps/internal/services/projector/event"
)

func (a Applier) planBoxworkAssignmentChanged(_ event.Envelope, p event.BoxworkAssignmentChangedPayload) ([]step, error) {
	return []step{
		newStep(KindApplication, func(ctx context.Context) error {
			return a.patchApplication(ctx, p.ApplicationID, guarded(nil, func(app domain.Application) (domain.Application, bool) {
				return app.WithBoxworkAssignee(p.UserID)
			}))
		}),
	}, nil
}

func (a Applier) planStatusChanged(env event.Envelope, p event.StatusChangedPayload) ([]step, error) {
	requested, err := domain.ParseRequestedStatus(p.Status)
	if err != nil {
		return nil, apperrors.WrapWithMetadata(apperrors.CodeMalformedEvent, "parse application status",
			map[string]string{"event_type": string(env.Type), "event_id": env.ID}, err)
	}
	return []step{
		newStep(KindApplication, func(ctx context.Context) error {
			return a.patchApplication(ctx, p.ApplicationID, func(app domain.Application) (domain.Application, bool, error) {
				if app.Status.Terminal() && app.Status != requested {
					return app, false, skipf("application %s is %s, ignoring %s", app.ID, app.Status, requested)
				}
				next, changed := app.WithStatus(requested)
				return next, changed, nil
			})
		}),
	}, nil
}

// planApplicationEjected ejects the application and its direct children, then
// patches every hearing listing any of them. Each hearing is saved once even
// when it lists several of the ejected applications.
func (a Applier) planApplicationEjected(_ event.Envelope, p event.ApplicationEjectedPayload) ([]step, error) {
	eject := func(app domain.Application) (domain.Application, bool) {
		return app.Ejected(p.RemovalReason)
	}
	return []step{
		newStep(KindApplication, func(ctx context.Context) error {
			parentErr := a.patchApplication(ctx, p.ApplicationID, guarded(nil, eject))
			children, err := a.Applications.ListApplicationsByParent(ctx, p.ApplicationID)
			if err != nil {
				return errors.Join(parentErr, err)
			}
			var errs []error
			if parentErr != nil && (!apperrors.IsSkippable(parentErr) || len(children) == 0) {
				errs = append(errs, parentErr)
			}
			for _, child := range children {
				next, changed := eject(child)
				if !changed {
					continue
				}
				if err := a.Applications.PutApplication(ctx, next); err != nil {
					errs = append(errs, err)
				}
			}
			return errors.Join(errs...)
		}),
		newStep(KindHearing, func(ctx context.Context) error {
			children, err := a.Applications.ListApplicationsByParent(ctx, p.ApplicationID)
			if err != nil {
				return err
			}
			applicationIDs := append([]string{p.ApplicationID}, lo.Map(children, func(c domain.Application, _ int) string {
				return c.ID
			})...)

			listed := make(map[string][]string)
			var hearingIDs []string
			for _, applicationID := range applicationIDs {
				ids, err := a.HearingLinks.ListHearingIDsByApplication(ctx, applicationID)
				if err != nil {
					return err
				}
				for _, hearingID := range ids {
					if _, seen := listed[hearingID]; !seen {
						hearingIDs = append(hearingIDs, hearingID)
					}
					listed[hearingID] = append(listed[hearingID], applicationID)
				}
			}
			if len(hearingIDs) == 0 {
				return skipf("no hearing lists application %s or its children", p.ApplicationID)
			}
			return forEach(ctx, hearingIDs, func(ctx context.Context, hearingID string) error {
				return a.patchHearing(ctx, hearingID, func(h domain.Hearing) (domain.Hearing, bool, error) {
					next, changed := h, false
					for _, applicationID := range listed[hearingID] {
						var ejected bool
						next, ejected = next.WithApplication(applicationID, eject)
						changed = changed || ejected
					}
					return next, changed, nil
				})
			})
		}),
	}, nil
}

// planApplicationDeleted removes the application listed in a hearing from
// every store. Removal of an absent row is not an error.
func (a Applier) planApplicationDeleted(_ event.Envelope, p event.ApplicationDeletedPayload) ([]step, error) {
	return []step{
		newStep(KindHearingApplicationLink, func(ctx context.Context) error {
			return a.HearingLinks.DeleteHearingApplicationLink(ctx, p.HearingID, p.ApplicationID)
		}),
		newStep(KindApplicationCaseLink, func(ctx context.Context) error {
			return a.CaseLinks.DeleteApplicationCaseLinks(ctx, p.ApplicationID)
		}),
		newStep(KindApplicationNote, func(ctx context.Context) error {
			return a.Notes.DeleteApplicationNotes(ctx, p.ApplicationID)
		}),
		newStep(KindApplication, func(ctx context.Context) error {
			return a.Applications.DeleteApplication(ctx, p.ApplicationID)
		}),
		newStep(KindHearing, func(ctx context.Context) error {
			return a.Hearings.DeleteHearing(ctx, p.HearingID)
		}),
	}, nil
}
