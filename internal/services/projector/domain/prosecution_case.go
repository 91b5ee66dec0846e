package domain

// Defendant is a defendant within one prosecution case.
type Defendant struct {
	ID                            string               `json:"id"`
	MasterDefendantID             string               `json:"masterDefendantId"`
	LegalAidStatus                string               `json:"legalAidStatus,omitempty"`
	LaaReference                  *LaaReference        `json:"laaApplnReference,omitempty"`
	AssociatedDefenceOrganisation *DefenceOrganisation `json:"associatedDefenceOrganisation,omitempty"`
	Offences                      []Offence            `json:"offences,omitempty"`
}

// ProsecutionCase is the prosecution case projection.
type ProsecutionCase struct {
	ID         string      `json:"id" validate:"notblank"`
	GroupID    string      `json:"groupId,omitempty"`
	URN        string      `json:"caseURN,omitempty"`
	Defendants []Defendant `json:"defendants,omitempty"`
}
