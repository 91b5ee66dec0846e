package projection

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/louisbranch/courtapps/internal/services/projector/domain"
	"github.com/louisbranch/courtapps/internal/services/projector/event"
)

func unclassified(app domain.Application) domain.Application {
	app.Subject.Kind = ""
	return app
}

func TestApplicationCreatedClassifiesAndLinksCases(t *testing.T) {
	ctx := context.Background()
	a, store := newTestApplier(t, false)
	app := unclassified(scenarioApplication())
	app.Status = ""
	app.Cases = append(app.Cases, domain.ApplicationCase{ProsecutionCaseID: "C2"})

	require.NoError(t, apply(t, a, event.TypeApplicationCreated, event.ApplicationCreatedPayload{Application: app}))

	got := mustApplication(t, store, "A1")
	require.Equal(t, domain.PartyKindMasterDefendant, got.Subject.Kind)
	require.Equal(t, domain.StatusDraft, got.Status)

	cases, err := store.Store.ListCaseIDsByApplication(ctx, "A1")
	require.NoError(t, err)
	require.Equal(t, []string{"C1", "C2"}, cases)
}

func TestApplicationCreatedWithoutCasesWritesOnlyApplication(t *testing.T) {
	a, store := newTestApplier(t, false)
	app := scenarioApplication()
	app.Cases = nil

	require.NoError(t, apply(t, a, event.TypeApplicationCreated, event.ApplicationCreatedPayload{Application: app}))
	require.Equal(t, 1, store.total())
}

func TestApplicationInitiated(t *testing.T) {
	a, store := newTestApplier(t, false)
	initiate := domain.InitiateApplication{
		Application:             unclassified(scenarioApplication()),
		BoxHearing:              &domain.BoxHearing{ID: "BH1", JurisdictionType: "MAGISTRATES"},
		SummonsApprovalRequired: true,
	}

	require.NoError(t, apply(t, a, event.TypeApplicationInitiated, event.ApplicationInitiatedPayload{InitiateApplication: initiate}))

	got := mustInitiate(t, store, "A1")
	require.Equal(t, domain.PartyKindMasterDefendant, got.Application.Subject.Kind)
	require.Equal(t, "BH1", got.BoxHearing.ID)
	require.True(t, got.SummonsApprovalRequired)
}

func TestHearingListedWritesHearingAndLinks(t *testing.T) {
	ctx := context.Background()
	a, store := newTestApplier(t, false)
	other := domain.Application{ID: "A2", Subject: domain.Party{ID: "S2", Person: &domain.Person{LastName: "Doe"}}}
	hearing := domain.Hearing{
		ID:           "H1",
		Type:         "Application",
		Applications: []domain.Application{unclassified(scenarioApplication()), other},
	}

	require.NoError(t, apply(t, a, event.TypeHearingListed, event.HearingListedPayload{Hearing: hearing}))

	got := mustHearing(t, store, "H1")
	require.Len(t, got.Applications, 2)
	require.Equal(t, domain.PartyKindPerson, got.Applications[1].Subject.Kind)
	for _, id := range []string{"A1", "A2"} {
		hearings, err := store.Store.ListHearingIDsByApplication(ctx, id)
		require.NoError(t, err)
		require.Equal(t, []string{"H1"}, hearings)
	}
}

func TestProsecutionCaseUpsertedReplacesCase(t *testing.T) {
	a, store := newTestApplier(t, false)
	seedCase(t, store, scenarioCase())

	replacement := domain.ProsecutionCase{ID: "C1", URN: "URN-9", Defendants: []domain.Defendant{{ID: "D3", MasterDefendantID: "MD3"}}}
	require.NoError(t, apply(t, a, event.TypeProsecutionCaseUpserted, event.ProsecutionCaseUpsertedPayload{ProsecutionCase: replacement}))

	got := mustCase(t, store, "C1")
	require.Equal(t, "URN-9", got.URN)
	require.Len(t, got.Defendants, 1)
}

func TestNoteAddedDefaultsCreatedAt(t *testing.T) {
	ctx := context.Background()
	a, store := newTestApplier(t, false)
	occurred := time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC)

	env := envelopeFor(t, event.TypeNoteAdded, event.NoteAddedPayload{Note: domain.ApplicationNote{ID: "N1", ApplicationID: "A1", Text: "adjourned"}})
	env.OccurredAt = occurred
	require.NoError(t, a.Apply(ctx, env))

	stamped := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, apply(t, a, event.TypeNoteAdded, event.NoteAddedPayload{
		Note: domain.ApplicationNote{ID: "N0", ApplicationID: "A1", Text: "received", CreatedAt: stamped},
	}))

	notes, err := store.Store.ListApplicationNotes(ctx, "A1")
	require.NoError(t, err)
	require.Len(t, notes, 2)
	require.Equal(t, "N0", notes[0].ID)
	require.True(t, notes[0].CreatedAt.Equal(stamped))
	require.True(t, notes[1].CreatedAt.Equal(occurred))
}
