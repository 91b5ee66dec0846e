package projection

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/louisbranch/courtapps/internal/services/projector/domain"
	"github.com/louisbranch/courtapps/internal/services/projector/event"
	"github.com/louisbranch/courtapps/internal/services/projector/storage"
	"github.com/louisbranch/courtapps/internal/services/projector/storage/memory"
)

var errDiskFull = errors.New("disk full")

// countingStore records writes and can fail selected writes.
type countingStore struct {
	*memory.Store

	mu     sync.Mutex
	writes map[string]int
	failOn map[string]bool
}

func newCountingStore() *countingStore {
	return &countingStore{
		Store:  memory.New(),
		writes: make(map[string]int),
		failOn: make(map[string]bool),
	}
}

func (s *countingStore) record(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOn[op] {
		return storage.Failure(op, errDiskFull)
	}
	s.writes[op]++
	return nil
}

func (s *countingStore) count(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes[op]
}

func (s *countingStore) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.writes {
		n += c
	}
	return n
}

func (s *countingStore) fail(op string, fail bool) {
	s.mu.Lock()
	s.failOn[op] = fail
	s.mu.Unlock()
}

func (s *countingStore) reset() {
	s.mu.Lock()
	s.writes = make(map[string]int)
	s.mu.Unlock()
}

func (s *countingStore) PutApplication(ctx context.Context, app domain.Application) error {
	if err := s.record("PutApplication"); err != nil {
		return err
	}
	return s.Store.PutApplication(ctx, app)
}

func (s *countingStore) DeleteApplication(ctx context.Context, id string) error {
	if err := s.record("DeleteApplication"); err != nil {
		return err
	}
	return s.Store.DeleteApplication(ctx, id)
}

func (s *countingStore) PutInitiateApplication(ctx context.Context, initiate domain.InitiateApplication) error {
	if err := s.record("PutInitiateApplication"); err != nil {
		return err
	}
	return s.Store.PutInitiateApplication(ctx, initiate)
}

func (s *countingStore) PutHearing(ctx context.Context, hearing domain.Hearing) error {
	if err := s.record("PutHearing"); err != nil {
		return err
	}
	return s.Store.PutHearing(ctx, hearing)
}

func (s *countingStore) DeleteHearing(ctx context.Context, id string) error {
	if err := s.record("DeleteHearing"); err != nil {
		return err
	}
	return s.Store.DeleteHearing(ctx, id)
}

func (s *countingStore) PutProsecutionCase(ctx context.Context, pc domain.ProsecutionCase) error {
	if err := s.record("PutProsecutionCase"); err != nil {
		return err
	}
	return s.Store.PutProsecutionCase(ctx, pc)
}

func (s *countingStore) PutHearingApplicationLink(ctx context.Context, link storage.HearingApplicationLink) error {
	if err := s.record("PutHearingApplicationLink"); err != nil {
		return err
	}
	return s.Store.PutHearingApplicationLink(ctx, link)
}

func (s *countingStore) DeleteHearingApplicationLink(ctx context.Context, hearingID, applicationID string) error {
	if err := s.record("DeleteHearingApplicationLink"); err != nil {
		return err
	}
	return s.Store.DeleteHearingApplicationLink(ctx, hearingID, applicationID)
}

func (s *countingStore) PutApplicationCaseLink(ctx context.Context, link storage.ApplicationCaseLink) error {
	if err := s.record("PutApplicationCaseLink"); err != nil {
		return err
	}
	return s.Store.PutApplicationCaseLink(ctx, link)
}

func (s *countingStore) DeleteApplicationCaseLinks(ctx context.Context, applicationID string) error {
	if err := s.record("DeleteApplicationCaseLinks"); err != nil {
		return err
	}
	return s.Store.DeleteApplicationCaseLinks(ctx, applicationID)
}

func (s *countingStore) PutApplicationNote(ctx context.Context, note domain.ApplicationNote) error {
	if err := s.record("PutApplicationNote"); err != nil {
		return err
	}
	return s.Store.PutApplicationNote(ctx, note)
}

func (s *countingStore) DeleteApplicationNotes(ctx context.Context, applicationID string) error {
	if err := s.record("DeleteApplicationNotes"); err != nil {
		return err
	}
	return s.Store.DeleteApplicationNotes(ctx, applicationID)
}

// newTestApplier wires every store to one counting store. The outbox is left
// unset unless withOutbox is true.
func newTestApplier(t *testing.T, withOutbox bool) (Applier, *countingStore) {
	t.Helper()
	store := newCountingStore()
	var outbox storage.OutboxStore
	if withOutbox {
		outbox = store
	}
	a := NewApplier(store, outbox, zaptest.NewLogger(t), nil)
	return a, store
}

func envelopeFor(t *testing.T, typ event.Type, payload any) event.Envelope {
	t.Helper()
	env, err := event.New(typ, payload)
	require.NoError(t, err)
	return env
}

func apply(t *testing.T, a Applier, typ event.Type, payload any) error {
	t.Helper()
	return a.Apply(context.Background(), envelopeFor(t, typ, payload))
}

// seed writes projections directly, bypassing the counters.
func seedApplication(t *testing.T, store *countingStore, app domain.Application) {
	t.Helper()
	require.NoError(t, store.Store.PutApplication(context.Background(), app))
}

func seedInitiate(t *testing.T, store *countingStore, initiate domain.InitiateApplication) {
	t.Helper()
	require.NoError(t, store.Store.PutInitiateApplication(context.Background(), initiate))
}

func seedHearing(t *testing.T, store *countingStore, hearing domain.Hearing) {
	t.Helper()
	require.NoError(t, store.Store.PutHearing(context.Background(), hearing))
	for _, app := range hearing.Applications {
		require.NoError(t, store.Store.PutHearingApplicationLink(context.Background(),
			storage.HearingApplicationLink{HearingID: hearing.ID, ApplicationID: app.ID}))
	}
}

func seedCase(t *testing.T, store *countingStore, pc domain.ProsecutionCase) {
	t.Helper()
	require.NoError(t, store.Store.PutProsecutionCase(context.Background(), pc))
}

func mustApplication(t *testing.T, store *countingStore, id string) domain.Application {
	t.Helper()
	app, err := store.Store.GetApplication(context.Background(), id)
	require.NoError(t, err)
	return app
}

func mustHearing(t *testing.T, store *countingStore, id string) domain.Hearing {
	t.Helper()
	h, err := store.Store.GetHearing(context.Background(), id)
	require.NoError(t, err)
	return h
}

func mustCase(t *testing.T, store *countingStore, id string) domain.ProsecutionCase {
	t.Helper()
	pc, err := store.Store.GetProsecutionCase(context.Background(), id)
	require.NoError(t, err)
	return pc
}

func mustInitiate(t *testing.T, store *countingStore, id string) domain.InitiateApplication {
	t.Helper()
	initiate, err := store.Store.GetInitiateApplication(context.Background(), id)
	require.NoError(t, err)
	return initiate
}

func subject(id, masterDefendantID string) domain.Party {
	return domain.Party{
		ID:   id,
		Kind: domain.PartyKindMasterDefendant,
		MasterDefendant: &domain.MasterDefendant{
			MasterDefendantID: masterDefendantID,
			PersonDefendant: &domain.PersonDefendant{
				PersonDetails: domain.Person{FirstName: "Sam", LastName: "Jones"},
			},
		},
	}
}

func pending(ref string) *domain.LaaReference {
	return &domain.LaaReference{ApplicationReference: ref, StatusDescription: "Pending", OffenceLevelStatus: "PENDING"}
}

func granted(ref string) domain.LaaReference {
	return domain.LaaReference{ApplicationReference: ref, StatusDescription: "Granted", OffenceLevelStatus: "GRANTED"}
}

// scenarioApplication is A1 with subject S1 (master defendant MD1) citing
// case C1 offence O1.
func scenarioApplication() domain.Application {
	return domain.Application{
		ID:      "A1",
		Status:  domain.StatusListed,
		Subject: subject("S1", "MD1"),
		Cases: []domain.ApplicationCase{{
			ProsecutionCaseID: "C1",
			Offences:          []domain.Offence{{ID: "O1", LaaReference: pending("LAA-1")}},
		}},
	}
}

func scenarioCase() domain.ProsecutionCase {
	return domain.ProsecutionCase{
		ID: "C1",
		Defendants: []domain.Defendant{
			{
				ID:                "D1",
				MasterDefendantID: "MD1",
				Offences: []domain.Offence{
					{ID: "O1", LaaReference: pending("LAA-1")},
					{ID: "O5", LaaReference: pending("LAA-5")},
				},
			},
			{ID: "D2", MasterDefendantID: "MD2", Offences: []domain.Offence{{ID: "O7"}}},
		},
	}
}

func caseLink(applicationID, caseID string) storage.ApplicationCaseLink {
	return storage.ApplicationCaseLink{ApplicationID: applicationID, ProsecutionCaseID: caseID}
}

// snapshotAll serializes every projection the tests inspect.
func snapshotAll(t *testing.T, store *countingStore) string {
	t.Helper()
	ctx := context.Background()
	out := map[string]any{}
	if app, err := store.Store.GetApplication(ctx, "A1"); err == nil {
		out["application"] = app
	}
	if initiate, err := store.Store.GetInitiateApplication(ctx, "A1"); err == nil {
		out["initiate"] = initiate
	}
	if pc, err := store.Store.GetProsecutionCase(ctx, "C1"); err == nil {
		out["case"] = pc
	}
	data, err := json.Marshal(out)
	require.NoError(t, err)
	return string(data)
}
