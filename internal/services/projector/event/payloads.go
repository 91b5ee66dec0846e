package event

import "github.com/louisbranch/courtapps/internal/services/projector/domain"

// OffenceLaaReferenceUpdatedPayload replaces the reference on one offence of
// an application.
type OffenceLaaReferenceUpdatedPayload struct {
	ApplicationID string              `json:"applicationId" validate:"notblank"`
	SubjectID     string              `json:"subjectId" validate:"notblank"`
	OffenceID     string              `json:"offenceId" validate:"notblank"`
	LaaReference  domain.LaaReference `json:"laaReference" validate:"required"`
}

// HearingOffenceLaaReferenceUpdatedPayload replaces the reference on one
// offence inside a hearing's copy of an application. Without a hearing id
// every hearing listing the application is patched.
type HearingOffenceLaaReferenceUpdatedPayload struct {
	HearingID     string              `json:"hearingId,omitempty"`
	ApplicationID string              `json:"applicationId" validate:"notblank"`
	SubjectID     string              `json:"subjectId" validate:"notblank"`
	OffenceID     string              `json:"offenceId" validate:"notblank"`
	LaaReference  domain.LaaReference `json:"laaReference" validate:"required"`
}

// RepOrderUpdatedPayload replaces the application-level legal-aid reference.
type RepOrderUpdatedPayload struct {
	ApplicationID string              `json:"applicationId" validate:"notblank"`
	SubjectID     string              `json:"subjectId" validate:"notblank"`
	LaaReference  domain.LaaReference `json:"laaReference" validate:"required"`
}

// DefenceOrganisationChangedPayload replaces the subject's defence
// organisation. A null organisation disassociates it.
type DefenceOrganisationChangedPayload struct {
	ApplicationID       string                      `json:"applicationId" validate:"notblank"`
	SubjectID           string                      `json:"subjectId" validate:"notblank"`
	DefenceOrganisation *domain.DefenceOrganisation `json:"defenceOrganisation"`
}

// CustodialInformationUpdatedPayload replaces the subject's person-defendant.
type CustodialInformationUpdatedPayload struct {
	ApplicationID   string                 `json:"applicationId" validate:"notblank"`
	PersonDefendant domain.PersonDefendant `json:"personDefendant" validate:"required"`
}

// HearingRepOrderUpdatedPayload replaces the subject's defence organisation
// inside a hearing's copy of an application.
type HearingRepOrderUpdatedPayload struct {
	HearingID           string                      `json:"hearingId,omitempty"`
	ApplicationID       string                      `json:"applicationId" validate:"notblank"`
	SubjectID           string                      `json:"subjectId" validate:"notblank"`
	DefenceOrganisation *domain.DefenceOrganisation `json:"defenceOrganisation"`
}

// BoxworkAssignmentChangedPayload assigns box work. An empty user unassigns.
type BoxworkAssignmentChangedPayload struct {
	ApplicationID string `json:"applicationId" validate:"notblank"`
	UserID        string `json:"userId"`
}

// StatusChangedPayload requests a status change.
type StatusChangedPayload struct {
	ApplicationID string `json:"applicationId" validate:"notblank"`
	Status        string `json:"status" validate:"notblank"`
}

// ApplicationEjectedPayload ejects an application and its children.
type ApplicationEjectedPayload struct {
	ApplicationID string `json:"applicationId" validate:"notblank"`
	RemovalReason string `json:"removalReason" validate:"notblank"`
}

// ApplicationDeletedPayload removes an application listed in a hearing.
type ApplicationDeletedPayload struct {
	ApplicationID string `json:"applicationId" validate:"notblank"`
	HearingID     string `json:"hearingId" validate:"notblank"`
}

// ApplicationCreatedPayload carries a complete application.
type ApplicationCreatedPayload struct {
	Application domain.Application `json:"application" validate:"required"`
}

// ApplicationInitiatedPayload carries the draft twin of an application.
type ApplicationInitiatedPayload struct {
	InitiateApplication domain.InitiateApplication `json:"initiateApplication" validate:"required"`
}

// HearingListedPayload carries a hearing snapshot with its applications.
type HearingListedPayload struct {
	Hearing domain.Hearing `json:"hearing" validate:"required"`
}

// ProsecutionCaseUpsertedPayload carries a complete prosecution case.
type ProsecutionCaseUpsertedPayload struct {
	ProsecutionCase domain.ProsecutionCase `json:"prosecutionCase" validate:"required"`
}

// NoteAddedPayload carries a new application note.
type NoteAddedPayload struct {
	Note domain.ApplicationNote `json:"note" validate:"required"`
}
