package domain

import "strings"

// LaaReference is the legal-aid application reference and status attached to
// an offence, a defendant, or a whole application.
type LaaReference struct {
	ApplicationReference string `json:"applicationReference" validate:"required"`
	StatusID             string `json:"statusId,omitempty"`
	StatusCode           string `json:"statusCode,omitempty"`
	StatusDescription    string `json:"statusDescription,omitempty"`
	StatusDate           string `json:"statusDate,omitempty"`
	OffenceLevelStatus   string `json:"offenceLevelStatus,omitempty"`
}

// LegalAidStatus is the status a defendant carries once this reference is
// applied: the offence-level status, or the status description when the
// offence-level status is absent.
func (r LaaReference) LegalAidStatus() string {
	if status := strings.TrimSpace(r.OffenceLevelStatus); status != "" {
		return status
	}
	return strings.TrimSpace(r.StatusDescription)
}

// Ptr returns a pointer to a copy of r.
func (r LaaReference) Ptr() *LaaReference {
	c := r
	return &c
}
