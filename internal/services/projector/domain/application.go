package domain

import "time"

// Offence is a charge listed against a case or an application.
type Offence struct {
	ID           string        `json:"id"`
	OffenceCode  string        `json:"offenceCode,omitempty"`
	Wording      string        `json:"wording,omitempty"`
	StartDate    string        `json:"startDate,omitempty"`
	LaaReference *LaaReference `json:"laaApplnReference,omitempty"`
}

// ApplicationCase links an application to one prosecution case and the
// offences of that case the application concerns.
type ApplicationCase struct {
	ProsecutionCaseID string    `json:"prosecutionCaseId"`
	CaseURN           string    `json:"caseURN,omitempty"`
	Offences          []Offence `json:"offences,omitempty"`
}

// Application is the court application projection. Hearings embed copies of
// it and the initiate draft wraps one.
type Application struct {
	ID                    string            `json:"id" validate:"notblank"`
	ParentApplicationID   string            `json:"parentApplicationId,omitempty"`
	Reference             string            `json:"applicationReference,omitempty"`
	TypeCode              string            `json:"typeCode,omitempty"`
	Status                Status            `json:"applicationStatus"`
	Applicant             *Party            `json:"applicant,omitempty"`
	Subject               Party             `json:"subject"`
	Respondents           []Party           `json:"respondents,omitempty"`
	Cases                 []ApplicationCase `json:"applicationCases,omitempty"`
	LaaReference          *LaaReference     `json:"laaApplnReference,omitempty"`
	BoxworkAssignedUserID string            `json:"boxworkAssignedUserId,omitempty"`
	RemovalReason         string            `json:"removalReason,omitempty"`
	ReceivedDate          string            `json:"applicationReceivedDate,omitempty"`
}

// Classified returns a with every party classified.
func (a Application) Classified() (Application, error) {
	subject, err := ClassifyParty(a.Subject)
	if err != nil {
		return Application{}, err
	}
	respondents, err := ClassifyParties(a.Respondents)
	if err != nil {
		return Application{}, err
	}
	out := a
	out.Subject = subject
	out.Respondents = respondents
	if a.Applicant != nil {
		applicant, err := ClassifyParty(*a.Applicant)
		if err != nil {
			return Application{}, err
		}
		out.Applicant = &applicant
	}
	if out.Status == "" {
		out.Status = StatusDraft
	}
	return out, nil
}

// BoxHearing is the box-work hearing proposed for an initiated application.
type BoxHearing struct {
	ID                 string `json:"id"`
	JurisdictionType   string `json:"jurisdictionType,omitempty"`
	ApplicationDueDate string `json:"applicationDueDate,omitempty"`
}

// InitiateApplication is the draft twin of an application, stored before the
// application is formally created. Its key is the wrapped application's id.
type InitiateApplication struct {
	Application             Application `json:"courtApplication"`
	BoxHearing              *BoxHearing `json:"boxHearing,omitempty"`
	SummonsApprovalRequired bool        `json:"summonsApprovalRequired,omitempty"`
}

// ID returns the key the initiate projection is stored under.
func (i InitiateApplication) ID() string {
	return i.Application.ID
}

// ApplicationNote is a free-text note recorded against an application.
type ApplicationNote struct {
	ID            string    `json:"id" validate:"notblank"`
	ApplicationID string    `json:"applicationId" validate:"notblank"`
	Text          string    `json:"note" validate:"required"`
	AuthorUserID  string    `json:"createdBy,omitempty"`
	Pinned        bool      `json:"isPinned,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}
