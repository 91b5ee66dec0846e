package projection

import (
	"fmt"

	apperrors "github.com/louisbranch/courtapps/internal/platform/errors"
	"github.com/louisbranch/courtapps/internal/services/projector/event"
)

// storeRequirement specifies which stores a handler depends on. Requirements
// are checked before planning; the handler does not run if any is nil.
type storeRequirement uint8

const (
	needApplication storeRequirement = 1 << iota
	needInitiateApplication
	needHearing
	needProsecutionCase
	needHearingLinks
	needCaseLinks
	needNotes
)

// Router maps event types to typed handlers.
type Router struct {
	handlers map[event.Type]routeEntry
	types    []event.Type
}

type routeEntry struct {
	stores storeRequirement
	plan   func(Applier, event.Envelope) ([]step, error)
}

// NewRouter creates an empty Router.
func NewRouter() *Router {
	return &Router{handlers: make(map[event.Type]routeEntry)}
}

// HandleProjection registers a typed handler for t. The payload is decoded
// and validated before fn runs, so fn only sees well-formed change
// descriptions. fn returns the steps to run; it must not write.
func HandleProjection[P any](r *Router, t event.Type, stores storeRequirement,
	fn func(Applier, event.Envelope, P) ([]step, error)) {
	if _, exists := r.handlers[t]; !exists {
		r.types = append(r.types, t)
	}
	r.handlers[t] = routeEntry{
		stores: stores,
		plan: func(a Applier, env event.Envelope) ([]step, error) {
			payload, err := event.Decode[P](env)
			if err != nil {
				return nil, err
			}
			steps, err := fn(a, env, payload)
			if err != nil {
				return nil, err
			}
			key := event.OrderingKey(payload)
			for i := range steps {
				steps[i].key = key
			}
			return steps, nil
		},
	}
}

// HandledTypes returns the registered event types in registration order.
func (r *Router) HandledTypes() []event.Type {
	return append([]event.Type(nil), r.types...)
}

// Handles reports whether t has a registered handler.
func (r *Router) Handles(t event.Type) bool {
	_, ok := r.handlers[t]
	return ok
}

// plan resolves the handler for env and builds its steps.
func (r *Router) plan(a Applier, env event.Envelope) ([]step, error) {
	h, ok := r.handlers[env.Type]
	if !ok {
		return nil, apperrors.WithMetadata(apperrors.CodeUnknownEventType,
			fmt.Sprintf("unhandled projection event type: %s", env.Type),
			map[string]string{"event_type": string(env.Type)})
	}
	if err := a.validateStores(h.stores); err != nil {
		return nil, err
	}
	return h.plan(a, env)
}

func (a Applier) validateStores(required storeRequirement) error {
	checks := []struct {
		need  storeRequirement
		ok    bool
		label string
	}{
		{needApplication, a.Applications != nil, "application"},
		{needInitiateApplication, a.InitiateApplications != nil, "initiate application"},
		{needHearing, a.Hearings != nil, "hearing"},
		{needProsecutionCase, a.ProsecutionCases != nil, "prosecution case"},
		{needHearingLinks, a.HearingLinks != nil, "hearing application link"},
		{needCaseLinks, a.CaseLinks != nil, "application case link"},
		{needNotes, a.Notes != nil, "application note"},
	}
	for _, c := range checks {
		if required&c.need != 0 && !c.ok {
			return fmt.Errorf("%s store is not configured", c.label)
		}
	}
	return nil
}

// DefaultRouter registers every projector handler.
func DefaultRouter() *Router {
	r := NewRouter()

	// seeds
	HandleProjection(r, event.TypeApplicationCreated, needApplication|needCaseLinks, Applier.planApplicationCreated)
	HandleProjection(r, event.TypeApplicationInitiated, needInitiateApplication, Applier.planApplicationInitiated)
	HandleProjection(r, event.TypeHearingListed, needHearing|needHearingLinks, Applier.planHearingListed)
	HandleProjection(r, event.TypeProsecutionCaseUpserted, needProsecutionCase, Applier.planProsecutionCaseUpserted)
	HandleProjection(r, event.TypeNoteAdded, needNotes, Applier.planNoteAdded)

	// legal aid
	HandleProjection(r, event.TypeOffenceLaaReferenceUpdated,
		needApplication|needInitiateApplication|needProsecutionCase, Applier.planOffenceLaaReferenceUpdated)
	HandleProjection(r, event.TypeHearingOffenceLaaReferenceUpdated,
		needHearing|needHearingLinks, Applier.planHearingOffenceLaaReferenceUpdated)
	HandleProjection(r, event.TypeRepOrderUpdated,
		needApplication|needInitiateApplication|needProsecutionCase|needCaseLinks, Applier.planRepOrderUpdated)

	// parties
	HandleProjection(r, event.TypeDefenceOrganisationChanged,
		needApplication|needInitiateApplication, Applier.planDefenceOrganisationChanged)
	HandleProjection(r, event.TypeCustodialInformationUpdated, needApplication, Applier.planCustodialInformationUpdated)
	HandleProjection(r, event.TypeHearingRepOrderUpdated, needHearing|needHearingLinks, Applier.planHearingRepOrderUpdated)

	// lifecycle
	HandleProjection(r, event.TypeBoxworkAssignmentChanged, needApplication, Applier.planBoxworkAssignmentChanged)
	HandleProjection(r, event.TypeStatusChanged, needApplication, Applier.planStatusChanged)
	HandleProjection(r, event.TypeApplicationEjected, needApplication|needHearing|needHearingLinks, Applier.planApplicationEjected)
	HandleProjection(r, event.TypeApplicationDeleted,
		needApplication|needHearing|needHearingLinks|needCaseLinks|needNotes, Applier.planApplicationDeleted)

	return r
}
