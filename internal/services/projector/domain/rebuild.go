package domain

import (
	"reflect"

	"github.com/samber/lo"
)

// The With* helpers below never modify their receiver. Each returns a new
// value along with whether anything differs from the receiver; when nothing
// matched, the receiver itself is returned so callers can skip the save.

// WithOffenceLaaReference replaces the reference on every offence offenceID
// across the application's cases.
func (a Application) WithOffenceLaaReference(offenceID string, ref LaaReference) (Application, bool) {
	cases, changed := rebuildAll(a.Cases, func(c ApplicationCase) (ApplicationCase, bool) {
		offences, changed := withOffenceRef(c.Offences, offenceID, ref)
		if !changed {
			return c, false
		}
		c.Offences = offences
		return c, true
	})
	if !changed {
		return a, false
	}
	out := a
	out.Cases = cases
	return out, true
}

// WithLaaReference replaces the application-level reference.
func (a Application) WithLaaReference(ref LaaReference) (Application, bool) {
	if a.LaaReference != nil && *a.LaaReference == ref {
		return a, false
	}
	out := a
	out.LaaReference = ref.Ptr()
	return out, true
}

// WithSubjectDefenceOrganisation replaces the subject's associated defence
// organisation. A nil org disassociates it.
func (a Application) WithSubjectDefenceOrganisation(org *DefenceOrganisation) (Application, bool) {
	if sameDefenceOrganisation(a.Subject.AssociatedDefenceOrganisation, org) {
		return a, false
	}
	out := a
	out.Subject.AssociatedDefenceOrganisation = cloneDefenceOrganisation(org)
	return out, true
}

// WithSubjectPersonDefendant replaces the subject's person-defendant details.
// Only subjects classified as master defendants carry them.
func (a Application) WithSubjectPersonDefendant(pd PersonDefendant) (Application, bool) {
	if a.Subject.Kind != PartyKindMasterDefendant || a.Subject.MasterDefendant == nil {
		return a, false
	}
	current := a.Subject.MasterDefendant.PersonDefendant
	if current != nil && reflect.DeepEqual(*current, pd) {
		return a, false
	}
	md := *a.Subject.MasterDefendant
	replacement := pd.Clone()
	md.PersonDefendant = &replacement
	out := a
	out.Subject.MasterDefendant = &md
	return out, true
}

// WithBoxworkAssignee sets the assigned box-work user. An empty id unassigns.
func (a Application) WithBoxworkAssignee(userID string) (Application, bool) {
	if a.BoxworkAssignedUserID == userID {
		return a, false
	}
	out := a
	out.BoxworkAssignedUserID = userID
	return out, true
}

// WithStatus moves the application to requested unless its status is terminal.
func (a Application) WithStatus(requested Status) (Application, bool) {
	next := NextStatus(a.Status, requested)
	if next == a.Status {
		return a, false
	}
	out := a
	out.Status = next
	return out, true
}

// Ejected marks the application ejected with reason, regardless of its status.
func (a Application) Ejected(reason string) (Application, bool) {
	if a.Status == StatusEjected && a.RemovalReason == reason {
		return a, false
	}
	out := a
	out.Status = StatusEjected
	out.RemovalReason = reason
	return out, true
}

// WithApplication rebuilds the wrapped application with fn.
func (i InitiateApplication) WithApplication(fn func(Application) (Application, bool)) (InitiateApplication, bool) {
	app, changed := fn(i.Application)
	if !changed {
		return i, false
	}
	out := i
	out.Application = app
	return out, true
}

// WithApplication rebuilds the embedded copy of applicationID with fn.
func (h Hearing) WithApplication(applicationID string, fn func(Application) (Application, bool)) (Hearing, bool) {
	apps, changed := rebuildAll(h.Applications, func(app Application) (Application, bool) {
		if app.ID != applicationID {
			return app, false
		}
		return fn(app)
	})
	if !changed {
		return h, false
	}
	out := h
	out.Applications = apps
	return out, true
}

// WithOffenceLaaReference replaces the reference on offence offenceID for the
// defendants charged with it and sets their legal-aid status. When
// masterDefendantID is not empty only that defendant is considered.
func (pc ProsecutionCase) WithOffenceLaaReference(offenceID, masterDefendantID string, ref LaaReference) (ProsecutionCase, bool) {
	status := ref.LegalAidStatus()
	defendants, changed := rebuildAll(pc.Defendants, func(d Defendant) (Defendant, bool) {
		if masterDefendantID != "" && d.MasterDefendantID != masterDefendantID {
			return d, false
		}
		offences, offenceChanged := withOffenceRef(d.Offences, offenceID, ref)
		if !d.HasOffence(offenceID) {
			return d, false
		}
		if !offenceChanged && d.LegalAidStatus == status {
			return d, false
		}
		d.Offences = offences
		d.LegalAidStatus = status
		return d, true
	})
	if !changed {
		return pc, false
	}
	out := pc
	out.Defendants = defendants
	return out, true
}

// WithDefendantLegalAid sets the defendant-level reference and legal-aid
// status on the defendant with masterDefendantID.
func (pc ProsecutionCase) WithDefendantLegalAid(masterDefendantID string, ref LaaReference) (ProsecutionCase, bool) {
	status := ref.LegalAidStatus()
	defendants, changed := rebuildAll(pc.Defendants, func(d Defendant) (Defendant, bool) {
		if d.MasterDefendantID != masterDefendantID {
			return d, false
		}
		if d.LaaReference != nil && *d.LaaReference == ref && d.LegalAidStatus == status {
			return d, false
		}
		d.LaaReference = ref.Ptr()
		d.LegalAidStatus = status
		return d, true
	})
	if !changed {
		return pc, false
	}
	out := pc
	out.Defendants = defendants
	return out, true
}

func withOffenceRef(offences []Offence, offenceID string, ref LaaReference) ([]Offence, bool) {
	return rebuildAll(offences, func(o Offence) (Offence, bool) {
		if o.ID != offenceID {
			return o, false
		}
		if o.LaaReference != nil && *o.LaaReference == ref {
			return o, false
		}
		o.LaaReference = ref.Ptr()
		return o, true
	})
}

// rebuildAll passes every element through fn, preserving order. The input
// slice is returned as-is when fn changed nothing.
func rebuildAll[T any](items []T, fn func(T) (T, bool)) ([]T, bool) {
	changed := false
	rebuilt := lo.Map(items, func(item T, _ int) T {
		next, ok := fn(item)
		if ok {
			changed = true
		}
		return next
	})
	if !changed {
		return items, false
	}
	return rebuilt, true
}

func sameDefenceOrganisation(a, b *DefenceOrganisation) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func cloneDefenceOrganisation(org *DefenceOrganisation) *DefenceOrganisation {
	if org == nil {
		return nil
	}
	c := *org
	return &c
}
