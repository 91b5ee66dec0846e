package domain

import (
	"strings"

	"github.com/samber/lo"
)

// RelatedCaseIDs returns, in first-seen order and without duplicates, the ids
// of the application's cases whose offences include offenceID.
func RelatedCaseIDs(app Application, offenceID string) []string {
	offenceID = strings.TrimSpace(offenceID)
	if offenceID == "" {
		return nil
	}
	matching := lo.Filter(app.Cases, func(c ApplicationCase, _ int) bool {
		return c.HasOffence(offenceID)
	})
	return lo.Uniq(lo.FilterMap(matching, func(c ApplicationCase, _ int) (string, bool) {
		id := strings.TrimSpace(c.ProsecutionCaseID)
		return id, id != ""
	}))
}

// CaseIDs returns every case id the application links to, in order and
// without duplicates.
func CaseIDs(app Application) []string {
	return lo.Uniq(lo.FilterMap(app.Cases, func(c ApplicationCase, _ int) (string, bool) {
		id := strings.TrimSpace(c.ProsecutionCaseID)
		return id, id != ""
	}))
}

// HasOffence reports whether the case lists offenceID.
func (c ApplicationCase) HasOffence(offenceID string) bool {
	return hasOffence(c.Offences, offenceID)
}

// HasOffence reports whether the defendant is charged with offenceID.
func (d Defendant) HasOffence(offenceID string) bool {
	return hasOffence(d.Offences, offenceID)
}

func hasOffence(offences []Offence, offenceID string) bool {
	return lo.ContainsBy(offences, func(o Offence) bool {
		return o.ID == offenceID
	})
}

// FindDefendant returns the case defendant whose master defendant id matches.
func FindDefendant(pc ProsecutionCase, masterDefendantID string) (Defendant, bool) {
	masterDefendantID = strings.TrimSpace(masterDefendantID)
	if masterDefendantID == "" {
		return Defendant{}, false
	}
	return lo.Find(pc.Defendants, func(d Defendant) bool {
		return d.MasterDefendantID == masterDefendantID
	})
}

// FindApplication returns the hearing's embedded copy of applicationID.
func FindApplication(h Hearing, applicationID string) (Application, bool) {
	return lo.Find(h.Applications, func(a Application) bool {
		return a.ID == applicationID
	})
}

// SubjectIs reports whether the application's subject has id subjectID.
func (a Application) SubjectIs(subjectID string) bool {
	subjectID = strings.TrimSpace(subjectID)
	return subjectID != "" && a.Subject.ID == subjectID
}

// HasCases reports whether the application carries any offence-level data.
func (a Application) HasCases() bool {
	return len(a.Cases) > 0
}
