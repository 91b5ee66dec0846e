package domain

func masterDefendantParty(id, masterDefendantID string) Party {
	return Party{
		ID:   id,
		Kind: PartyKindMasterDefendant,
		MasterDefendant: &MasterDefendant{
			MasterDefendantID: masterDefendantID,
			PersonDefendant: &PersonDefendant{
				PersonDetails: Person{FirstName: "Ada", LastName: "Smith"},
				BailStatus:    "UNCONDITIONAL",
			},
		},
	}
}

func pendingRef(ref string) LaaReference {
	return LaaReference{ApplicationReference: ref, StatusCode: "PENDING", StatusDescription: "Pending", OffenceLevelStatus: "PENDING"}
}

func sampleApplication() Application {
	return Application{
		ID:      "A1",
		Status:  StatusListed,
		Subject: masterDefendantParty("S1", "MD1"),
		Cases: []ApplicationCase{
			{
				ProsecutionCaseID: "C1",
				Offences: []Offence{
					{ID: "O1", OffenceCode: "TH68001", LaaReference: pendingRef("LAA-1").Ptr()},
					{ID: "O2", OffenceCode: "TH68002"},
				},
			},
			{
				ProsecutionCaseID: "C2",
				Offences:          []Offence{{ID: "O3"}},
			},
		},
	}
}

func sampleCase() ProsecutionCase {
	return ProsecutionCase{
		ID: "C1",
		Defendants: []Defendant{
			{
				ID:                "D1",
				MasterDefendantID: "MD1",
				Offences: []Offence{
					{ID: "O1", LaaReference: pendingRef("LAA-1").Ptr()},
					{ID: "O2"},
				},
			},
			{
				ID:                "D2",
				MasterDefendantID: "MD2",
				Offences:          []Offence{{ID: "O9"}},
			},
		},
	}
}
