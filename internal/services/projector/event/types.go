package event

// Patch events.
const (
	TypeOffenceLaaReferenceUpdated        Type = "application.offence_laa_reference_updated"
	TypeHearingOffenceLaaReferenceUpdated Type = "hearing.application_offence_laa_reference_updated"
	TypeRepOrderUpdated                   Type = "application.rep_order_updated"
	TypeDefenceOrganisationChanged        Type = "application.defence_organisation_changed"
	TypeCustodialInformationUpdated       Type = "application.custodial_information_updated"
	TypeHearingRepOrderUpdated            Type = "hearing.application_rep_order_updated"
	TypeBoxworkAssignmentChanged          Type = "application.boxwork_assignment_changed"
	TypeStatusChanged                     Type = "application.status_changed"
)

// Cascade events.
const (
	TypeApplicationEjected Type = "application.ejected"
	TypeApplicationDeleted Type = "hearing.application_deleted"
)

// Seed events.
const (
	TypeApplicationCreated      Type = "application.created"
	TypeApplicationInitiated    Type = "application.initiated"
	TypeHearingListed           Type = "hearing.application_listed"
	TypeProsecutionCaseUpserted Type = "prosecution_case.upserted"
	TypeNoteAdded               Type = "application.note_added"
)
