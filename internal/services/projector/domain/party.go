package domain

import (
	"fmt"
	"strings"
)

// PartyKind says which shape a party resolved to. It is decided once, when the
// projection is first built, so propagators switch on it instead of probing
// optional fields.
type PartyKind string

const (
	PartyKindPerson               PartyKind = "PERSON"
	PartyKindOrganisation         PartyKind = "ORGANISATION"
	PartyKindProsecutingAuthority PartyKind = "PROSECUTING_AUTHORITY"
	PartyKindMasterDefendant      PartyKind = "MASTER_DEFENDANT"
)

// Address is a postal address.
type Address struct {
	Address1 string `json:"address1,omitempty"`
	Address2 string `json:"address2,omitempty"`
	Address3 string `json:"address3,omitempty"`
	Postcode string `json:"postcode,omitempty"`
}

// Person is a natural person's details.
type Person struct {
	Title       string  `json:"title,omitempty"`
	FirstName   string  `json:"firstName,omitempty"`
	LastName    string  `json:"lastName"`
	DateOfBirth string  `json:"dateOfBirth,omitempty"`
	Address     Address `json:"address,omitempty"`
}

// Organisation is a legal entity.
type Organisation struct {
	Name    string  `json:"name"`
	Address Address `json:"address,omitempty"`
}

// ProsecutingAuthority identifies the prosecutor acting as a party.
type ProsecutingAuthority struct {
	AuthorityID   string `json:"prosecutionAuthorityId"`
	AuthorityCode string `json:"prosecutionAuthorityCode,omitempty"`
	Name          string `json:"name,omitempty"`
}

// CustodialEstablishment is where a defendant is held.
type CustodialEstablishment struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	Type string `json:"custody,omitempty"`
}

// PersonDefendant holds a master defendant's personal and custodial details.
type PersonDefendant struct {
	PersonDetails          Person                  `json:"personDetails"`
	BailStatus             string                  `json:"bailStatus,omitempty"`
	CustodyTimeLimit       string                  `json:"custodyTimeLimit,omitempty"`
	ArrestSummonsNumber    string                  `json:"arrestSummonsNumber,omitempty"`
	CustodialEstablishment *CustodialEstablishment `json:"custodialEstablishment,omitempty"`
}

// Clone returns a copy of p that shares no pointers with p.
func (p PersonDefendant) Clone() PersonDefendant {
	c := p
	if p.CustodialEstablishment != nil {
		est := *p.CustodialEstablishment
		c.CustodialEstablishment = &est
	}
	return c
}

// MasterDefendant is the cross-case identity of a defendant. Its id is the
// only key joining an application party to a prosecution case defendant.
type MasterDefendant struct {
	MasterDefendantID    string           `json:"masterDefendantId"`
	PersonDefendant      *PersonDefendant `json:"personDefendant,omitempty"`
	LegalEntityDefendant *Organisation    `json:"legalEntityDefendant,omitempty"`
}

// DefenceOrganisation is the defence firm associated with a party.
type DefenceOrganisation struct {
	OrganisationID       string  `json:"organisationId,omitempty"`
	Name                 string  `json:"name"`
	LaaContractNumber    string  `json:"laaContractNumber,omitempty"`
	FundingType          string  `json:"fundingType,omitempty"`
	AssociationStartDate string  `json:"associationStartDate,omitempty"`
	AssociationEndDate   string  `json:"associationEndDate,omitempty"`
	IsAssociatedByLAA    bool    `json:"isAssociatedByLAA,omitempty"`
	Address              Address `json:"address,omitempty"`
}

// Party is a subject, applicant, or respondent of an application.
//
// Exactly one of Person, Organisation, ProsecutingAuthority or MasterDefendant
// is set, and Kind names it. Use ClassifyParty to establish that invariant.
type Party struct {
	ID                            string                `json:"id"`
	Kind                          PartyKind             `json:"kind"`
	Person                        *Person               `json:"personDetails,omitempty"`
	Organisation                  *Organisation         `json:"organisation,omitempty"`
	ProsecutingAuthority          *ProsecutingAuthority `json:"prosecutingAuthority,omitempty"`
	MasterDefendant               *MasterDefendant      `json:"masterDefendant,omitempty"`
	AssociatedDefenceOrganisation *DefenceOrganisation  `json:"associatedDefenceOrganisation,omitempty"`
}

// ClassifyParty decides the party's kind and drops every other shape.
//
// An explicit Kind wins when its shape is present. Otherwise the most
// specific populated shape is chosen: master defendant, prosecuting
// authority, organisation, then person.
func ClassifyParty(p Party) (Party, error) {
	if strings.TrimSpace(p.ID) == "" {
		return Party{}, fmt.Errorf("party id is required")
	}
	kind := p.Kind
	if kind == "" || !p.has(kind) {
		if kind != "" {
			return Party{}, fmt.Errorf("party %s declares kind %s without its details", p.ID, kind)
		}
		switch {
		case p.MasterDefendant != nil:
			kind = PartyKindMasterDefendant
		case p.ProsecutingAuthority != nil:
			kind = PartyKindProsecutingAuthority
		case p.Organisation != nil:
			kind = PartyKindOrganisation
		case p.Person != nil:
			kind = PartyKindPerson
		default:
			return Party{}, fmt.Errorf("party %s has no person, organisation, prosecuting authority or master defendant", p.ID)
		}
	}

	classified := Party{
		ID:                            p.ID,
		Kind:                          kind,
		AssociatedDefenceOrganisation: p.AssociatedDefenceOrganisation,
	}
	switch kind {
	case PartyKindPerson:
		classified.Person = p.Person
	case PartyKindOrganisation:
		classified.Organisation = p.Organisation
	case PartyKindProsecutingAuthority:
		classified.ProsecutingAuthority = p.ProsecutingAuthority
	case PartyKindMasterDefendant:
		if strings.TrimSpace(p.MasterDefendant.MasterDefendantID) == "" {
			return Party{}, fmt.Errorf("party %s master defendant id is required", p.ID)
		}
		classified.MasterDefendant = p.MasterDefendant
	default:
		return Party{}, fmt.Errorf("party %s has unknown kind %q", p.ID, kind)
	}
	return classified, nil
}

func (p Party) has(kind PartyKind) bool {
	switch kind {
	case PartyKindPerson:
		return p.Person != nil
	case PartyKindOrganisation:
		return p.Organisation != nil
	case PartyKindProsecutingAuthority:
		return p.ProsecutingAuthority != nil
	case PartyKindMasterDefendant:
		return p.MasterDefendant != nil
	default:
		return false
	}
}

// MasterDefendantID returns the party's master defendant id when the party
// resolved to a master defendant.
func (p Party) MasterDefendantID() (string, bool) {
	if p.Kind != PartyKindMasterDefendant || p.MasterDefendant == nil {
		return "", false
	}
	id := strings.TrimSpace(p.MasterDefendant.MasterDefendantID)
	return id, id != ""
}

// ClassifyParties classifies each party, preserving order.
func ClassifyParties(parties []Party) ([]Party, error) {
	if len(parties) == 0 {
		return nil, nil
	}
	out := make([]Party, 0, len(parties))
	for _, p := range parties {
		classified, err := ClassifyParty(p)
		if err != nil {
			return nil, err
		}
		out = append(out, classified)
	}
	return out, nil
}
