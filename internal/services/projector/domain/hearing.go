package domain

// Hearing is the hearing projection. Its embedded applications are snapshots
// that may lag the application projection until a propagator patches them.
type Hearing struct {
	ID                 string        `json:"id" validate:"notblank"`
	Type               string        `json:"type,omitempty"`
	JurisdictionType   string        `json:"jurisdictionType,omitempty"`
	CourtCentreID      string        `json:"courtCentreId,omitempty"`
	HearingDays        []string      `json:"hearingDays,omitempty"`
	ProsecutionCaseIDs []string      `json:"prosecutionCaseIds,omitempty"`
	Applications       []Application `json:"courtApplications,omitempty"`
}
