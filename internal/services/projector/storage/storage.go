package storage

import (
	"context"
	"time"

	apperrors "github.com/louisbranch/courtapps/internal/platform/errors"
	"github.com/louisbranch/courtapps/internal/services/projector/domain"
)

// ErrNotFound indicates a requested projection does not exist yet.
var ErrNotFound = apperrors.New(apperrors.CodeNotFound, "record not found")

// Failure wraps a backend error as a STORE_FAILURE for operation.
func Failure(operation string, cause error) error {
	if cause == nil {
		return nil
	}
	if apperrors.IsCode(cause, apperrors.CodeNotFound) || apperrors.IsCode(cause, apperrors.CodeStoreFailure) {
		return cause
	}
	return apperrors.Wrap(apperrors.CodeStoreFailure, operation, cause)
}

// ApplicationStore persists court application projections.
type ApplicationStore interface {
	GetApplication(ctx context.Context, id string) (domain.Application, error)
	// ListApplicationsByParent returns the child applications of parentID.
	ListApplicationsByParent(ctx context.Context, parentID string) ([]domain.Application, error)
	PutApplication(ctx context.Context, app domain.Application) error
	DeleteApplication(ctx context.Context, id string) error
}

// InitiateApplicationStore persists draft application projections keyed by
// the wrapped application id.
type InitiateApplicationStore interface {
	GetInitiateApplication(ctx context.Context, applicationID string) (domain.InitiateApplication, error)
	PutInitiateApplication(ctx context.Context, initiate domain.InitiateApplication) error
	DeleteInitiateApplication(ctx context.Context, applicationID string) error
}

// HearingStore persists hearing projections.
type HearingStore interface {
	GetHearing(ctx context.Context, id string) (domain.Hearing, error)
	PutHearing(ctx context.Context, hearing domain.Hearing) error
	DeleteHearing(ctx context.Context, id string) error
}

// ProsecutionCaseStore persists prosecution case projections.
type ProsecutionCaseStore interface {
	GetProsecutionCase(ctx context.Context, id string) (domain.ProsecutionCase, error)
	PutProsecutionCase(ctx context.Context, pc domain.ProsecutionCase) error
	DeleteProsecutionCase(ctx context.Context, id string) error
}

// HearingApplicationLink records that a hearing lists an application.
type HearingApplicationLink struct {
	HearingID     string
	ApplicationID string
	UpdatedAt     time.Time
}

// HearingApplicationLinkStore indexes hearings by the applications they list.
type HearingApplicationLinkStore interface {
	PutHearingApplicationLink(ctx context.Context, link HearingApplicationLink) error
	// ListHearingIDsByApplication returns hearing ids in ascending order.
	ListHearingIDsByApplication(ctx context.Context, applicationID string) ([]string, error)
	DeleteHearingApplicationLink(ctx context.Context, hearingID, applicationID string) error
}

// ApplicationCaseLink records that an application concerns a case.
type ApplicationCaseLink struct {
	ApplicationID     string
	ProsecutionCaseID string
	UpdatedAt         time.Time
}

// ApplicationCaseLinkStore indexes cases by the applications that cite them.
type ApplicationCaseLinkStore interface {
	PutApplicationCaseLink(ctx context.Context, link ApplicationCaseLink) error
	// ListCaseIDsByApplication returns case ids in ascending order.
	ListCaseIDsByApplication(ctx context.Context, applicationID string) ([]string, error)
	DeleteApplicationCaseLinks(ctx context.Context, applicationID string) error
}

// ApplicationNoteStore persists notes recorded against applications.
type ApplicationNoteStore interface {
	PutApplicationNote(ctx context.Context, note domain.ApplicationNote) error
	// ListApplicationNotes returns notes oldest first.
	ListApplicationNotes(ctx context.Context, applicationID string) ([]domain.ApplicationNote, error)
	DeleteApplicationNotes(ctx context.Context, applicationID string) error
}

// ProjectionStores groups every projection store the propagators write to.
type ProjectionStores interface {
	ApplicationStore
	InitiateApplicationStore
	HearingStore
	ProsecutionCaseStore
	HearingApplicationLinkStore
	ApplicationCaseLinkStore
	ApplicationNoteStore
}

// Store is a complete projector backend.
type Store interface {
	ProjectionStores
	OutboxStore
	Close() error
}
