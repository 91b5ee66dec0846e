package projection

import (
	"context"
	"errors"
	"strings"

	"github.com/samber/lo"

	apperrors "github.com/louisbranch/courtapps/internal/platform/errors"
	"github.com/louisbranch/courtapps/internal/services/projector/domain"
)

// rebuildFunc guards a loaded projection and returns its patched copy. A
// non-nil error skips the projection; changed=false leaves it unsaved.
type rebuildFunc[T any] func(T) (next T, changed bool, err error)

// patch is the load, guard, rebuild, persist cycle for one projection.
func patch[T any](
	ctx context.Context,
	load func(context.Context, string) (T, error),
	save func(context.Context, T) error,
	id string,
	rebuild rebuildFunc[T],
) error {
	current, err := load(ctx, id)
	if err != nil {
		return err
	}
	next, changed, err := rebuild(current)
	if err != nil || !changed {
		return err
	}
	return save(ctx, next)
}

func (a Applier) patchApplication(ctx context.Context, id string, rebuild rebuildFunc[domain.Application]) error {
	return patch(ctx, a.Applications.GetApplication, a.Applications.PutApplication, id, rebuild)
}

func (a Applier) patchInitiateApplication(ctx context.Context, id string, rebuild rebuildFunc[domain.Application]) error {
	return patch(ctx, a.InitiateApplications.GetInitiateApplication, a.InitiateApplications.PutInitiateApplication, id,
		func(initiate domain.InitiateApplication) (domain.InitiateApplication, bool, error) {
			if _, _, err := rebuild(initiate.Application); err != nil {
				return initiate, false, err
			}
			next, changed := initiate.WithApplication(func(app domain.Application) (domain.Application, bool) {
				rebuilt, changed, _ := rebuild(app)
				return rebuilt, changed
			})
			return next, changed, nil
		})
}

func (a Applier) patchHearing(ctx context.Context, id string, rebuild rebuildFunc[domain.Hearing]) error {
	return patch(ctx, a.Hearings.GetHearing, a.Hearings.PutHearing, id, rebuild)
}

func (a Applier) patchProsecutionCase(ctx context.Context, id string, rebuild rebuildFunc[domain.ProsecutionCase]) error {
	return patch(ctx, a.ProsecutionCases.GetProsecutionCase, a.ProsecutionCases.PutProsecutionCase, id, rebuild)
}

// patchListedApplication rebuilds the hearing's embedded copy of
// applicationID.
func (a Applier) patchListedApplication(ctx context.Context, hearingID, applicationID string, rebuild rebuildFunc[domain.Application]) error {
	return a.patchHearing(ctx, hearingID, func(h domain.Hearing) (domain.Hearing, bool, error) {
		embedded, ok := domain.FindApplication(h, applicationID)
		if !ok {
			return h, false, skipf("hearing %s does not list application %s", hearingID, applicationID)
		}
		if _, _, err := rebuild(embedded); err != nil {
			return h, false, err
		}
		next, changed := h.WithApplication(applicationID, func(app domain.Application) (domain.Application, bool) {
			rebuilt, changed, _ := rebuild(app)
			return rebuilt, changed
		})
		return next, changed, nil
	})
}

// hearingsListing returns hearingID when given, otherwise every hearing
// linked to applicationID.
func (a Applier) hearingsListing(ctx context.Context, hearingID, applicationID string) ([]string, error) {
	if id := strings.TrimSpace(hearingID); id != "" {
		return []string{id}, nil
	}
	ids, err := a.HearingLinks.ListHearingIDsByApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, skipf("no hearing lists application %s", applicationID)
	}
	return ids, nil
}

// forEach runs fn for every id and joins the failures. When every id was
// skipped the skips are returned so the step reports as skipped; otherwise
// skips are dropped.
func forEach(ctx context.Context, ids []string, fn func(context.Context, string) error) error {
	var (
		failures []error
		skips    []error
	)
	for _, id := range ids {
		err := fn(ctx, id)
		switch {
		case err == nil:
		case apperrors.IsSkippable(err):
			skips = append(skips, err)
		default:
			failures = append(failures, err)
		}
	}
	if len(failures) == 0 && len(skips) == len(ids) {
		return errors.Join(skips...)
	}
	return errors.Join(failures...)
}

// subjectGuard skips applications whose subject is not subjectID, and, when
// needCases is set, applications without offence-level data.
func subjectGuard(subjectID string, needCases bool) func(domain.Application) error {
	return func(app domain.Application) error {
		if !app.SubjectIs(subjectID) {
			return skipf("application %s subject %s does not match %s", app.ID, app.Subject.ID, subjectID)
		}
		if needCases && !app.HasCases() {
			return skipf("application %s has no cases", app.ID)
		}
		return nil
	}
}

// guarded combines a guard with a pure rebuild helper.
func guarded(guard func(domain.Application) error, rebuild func(domain.Application) (domain.Application, bool)) rebuildFunc[domain.Application] {
	return func(app domain.Application) (domain.Application, bool, error) {
		if guard != nil {
			if err := guard(app); err != nil {
				return app, false, err
			}
		}
		next, changed := rebuild(app)
		return next, changed, nil
	}
}

func unionIDs(lists ...[]string) []string {
	return lo.Uniq(lo.Filter(lo.Flatten(lists), func(id string, _ int) bool {
		return strings.TrimSpace(id) != ""
	}))
}
