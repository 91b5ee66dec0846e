package event

// Keyed payloads name the stream their event is ordered in. Upstream
// partitions by this key, so two events with the same key arrive in order.
type Keyed interface {
	OrderingKey() string
}

// OrderingKey returns the payload's ordering key, or "" when it has none.
func OrderingKey(payload any) string {
	if k, ok := payload.(Keyed); ok {
		return k.OrderingKey()
	}
	return ""
}

func (p OffenceLaaReferenceUpdatedPayload) OrderingKey() string        { return p.ApplicationID }
func (p HearingOffenceLaaReferenceUpdatedPayload) OrderingKey() string { return p.ApplicationID }
func (p RepOrderUpdatedPayload) OrderingKey() string                   { return p.ApplicationID }
func (p DefenceOrganisationChangedPayload) OrderingKey() string        { return p.ApplicationID }
func (p CustodialInformationUpdatedPayload) OrderingKey() string       { return p.ApplicationID }
func (p HearingRepOrderUpdatedPayload) OrderingKey() string            { return p.ApplicationID }
func (p BoxworkAssignmentChangedPayload) OrderingKey() string          { return p.ApplicationID }
func (p StatusChangedPayload) OrderingKey() string                     { return p.ApplicationID }
func (p ApplicationEjectedPayload) OrderingKey() string                { return p.ApplicationID }
func (p ApplicationDeletedPayload) OrderingKey() string                { return p.ApplicationID }
func (p ApplicationCreatedPayload) OrderingKey() string                { return p.Application.ID }
func (p ApplicationInitiatedPayload) OrderingKey() string              { return p.InitiateApplication.ID() }
func (p NoteAddedPayload) OrderingKey() string                         { return p.Note.ApplicationID }
func (p HearingListedPayload) OrderingKey() string                     { return p.Hearing.ID }
func (p ProsecutionCaseUpsertedPayload) OrderingKey() string           { return p.ProsecutionCase.ID }
