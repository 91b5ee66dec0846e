// Package memory provides an in-process projector store. It backs the
// "memory" store backend and doubles as a fake in tests.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/louisbranch/courtapps/internal/services/projector/domain"
	"github.com/louisbranch/courtapps/internal/services/projector/storage"
)

// Store keeps every projection as an isolated copy: values handed in or out
// never alias stored state.
type Store struct {
	mu           sync.RWMutex
	applications map[string]domain.Application
	initiates    map[string]domain.InitiateApplication
	hearings     map[string]domain.Hearing
	cases        map[string]domain.ProsecutionCase
	hearingLinks map[string]map[string]time.Time // application id -> hearing id
	caseLinks    map[string]map[string]time.Time // application id -> case id
	notes        map[string][]domain.ApplicationNote
	outbox       map[string]storage.OutboxEntry
	outboxSeq    int64
}

var _ storage.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		applications: make(map[string]domain.Application),
		initiates:    make(map[string]domain.InitiateApplication),
		hearings:     make(map[string]domain.Hearing),
		cases:        make(map[string]domain.ProsecutionCase),
		hearingLinks: make(map[string]map[string]time.Time),
		caseLinks:    make(map[string]map[string]time.Time),
		notes:        make(map[string][]domain.ApplicationNote),
		outbox:       make(map[string]storage.OutboxEntry),
	}
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

func clone[T any](v T) (T, error) {
	var out T
	data, err := json.Marshal(v)
	if err != nil {
		return out, storage.Failure("copy projection", err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, storage.Failure("copy projection", err)
	}
	return out, nil
}

func requireKey(kind, id string) error {
	if strings.TrimSpace(id) == "" {
		return storage.Failure("put "+kind, fmt.Errorf("%s id is required", kind))
	}
	return nil
}

func (s *Store) GetApplication(ctx context.Context, id string) (domain.Application, error) {
	if err := ctx.Err(); err != nil {
		return domain.Application{}, err
	}
	s.mu.RLock()
	app, ok := s.applications[id]
	s.mu.RUnlock()
	if !ok {
		return domain.Application{}, storage.ErrNotFound
	}
	return clone(app)
}

func (s *Store) ListApplicationsByParent(ctx context.Context, parentID string) ([]domain.Application, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	children := make([]domain.Application, 0)
	for _, app := range s.applications {
		if parentID != "" && app.ParentApplicationID == parentID {
			children = append(children, app)
		}
	}
	s.mu.RUnlock()
	sort.Slice(children, func(i, j int) bool { return children[i].ID < children[j].ID })
	return clone(children)
}

func (s *Store) PutApplication(ctx context.Context, app domain.Application) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := requireKey("application", app.ID); err != nil {
		return err
	}
	stored, err := clone(app)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.applications[app.ID] = stored
	s.mu.Unlock()
	return nil
}

func (s *Store) DeleteApplication(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.applications, id)
	s.mu.Unlock()
	return nil
}

func (s *Store) GetInitiateApplication(ctx context.Context, applicationID string) (domain.InitiateApplication, error) {
	if err := ctx.Err(); err != nil {
		return domain.InitiateApplication{}, err
	}
	s.mu.RLock()
	initiate, ok := s.initiates[applicationID]
	s.mu.RUnlock()
	if !ok {
		return domain.InitiateApplication{}, storage.ErrNotFound
	}
	return clone(initiate)
}

func (s *Store) PutInitiateApplication(ctx context.Context, initiate domain.InitiateApplication) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := requireKey("initiate application", initiate.ID()); err != nil {
		return err
	}
	stored, err := clone(initiate)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.initiates[initiate.ID()] = stored
	s.mu.Unlock()
	return nil
}

func (s *Store) DeleteInitiateApplication(ctx context.Context, applicationID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.initiates, applicationID)
	s.mu.Unlock()
	return nil
}

func (s *Store) GetHearing(ctx context.Context, id string) (domain.Hearing, error) {
	if err := ctx.Err(); err != nil {
		return domain.Hearing{}, err
	}
	s.mu.RLock()
	hearing, ok := s.hearings[id]
	s.mu.RUnlock()
	if !ok {
		return domain.Hearing{}, storage.ErrNotFound
	}
	return clone(hearing)
}

func (s *Store) PutHearing(ctx context.Context, hearing domain.Hearing) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := requireKey("hearing", hearing.ID); err != nil {
		return err
	}
	stored, err := clone(hearing)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.hearings[hearing.ID] = stored
	s.mu.Unlock()
	return nil
}

func (s *Store) DeleteHearing(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.hearings, id)
	s.mu.Unlock()
	return nil
}

func (s *Store) GetProsecutionCase(ctx context.Context, id string) (domain.ProsecutionCase, error) {
	if err := ctx.Err(); err != nil {
		return domain.ProsecutionCase{}, err
	}
	s.mu.RLock()
	pc, ok := s.cases[id]
	s.mu.RUnlock()
	if !ok {
		return domain.ProsecutionCase{}, storage.ErrNotFound
	}
	return clone(pc)
}

func (s *Store) PutProsecutionCase(ctx context.Context, pc domain.ProsecutionCase) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := requireKey("prosecution case", pc.ID); err != nil {
		return err
	}
	stored, err := clone(pc)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.cases[pc.ID] = stored
	s.mu.Unlock()
	return nil
}

func (s *Store) DeleteProsecutionCase(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.cases, id)
	s.mu.Unlock()
	return nil
}

func (s *Store) PutHearingApplicationLink(ctx context.Context, link storage.HearingApplicationLink) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(link.HearingID) == "" || strings.TrimSpace(link.ApplicationID) == "" {
		return storage.Failure("put hearing application link", fmt.Errorf("hearing id and application id are required"))
	}
	s.mu.Lock()
	putLink(s.hearingLinks, link.ApplicationID, link.HearingID, link.UpdatedAt)
	s.mu.Unlock()
	return nil
}

func (s *Store) ListHearingIDsByApplication(ctx context.Context, applicationID string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return linkedIDs(s.hearingLinks, applicationID), nil
}

func (s *Store) DeleteHearingApplicationLink(ctx context.Context, hearingID, applicationID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if links, ok := s.hearingLinks[applicationID]; ok {
		delete(links, hearingID)
		if len(links) == 0 {
			delete(s.hearingLinks, applicationID)
		}
	}
	return nil
}

func (s *Store) PutApplicationCaseLink(ctx context.Context, link storage.ApplicationCaseLink) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(link.ApplicationID) == "" || strings.TrimSpace(link.ProsecutionCaseID) == "" {
		return storage.Failure("put application case link", fmt.Errorf("application id and case id are required"))
	}
	s.mu.Lock()
	putLink(s.caseLinks, link.ApplicationID, link.ProsecutionCaseID, link.UpdatedAt)
	s.mu.Unlock()
	return nil
}

func (s *Store) ListCaseIDsByApplication(ctx context.Context, applicationID string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return linkedIDs(s.caseLinks, applicationID), nil
}

func (s *Store) DeleteApplicationCaseLinks(ctx context.Context, applicationID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.caseLinks, applicationID)
	s.mu.Unlock()
	return nil
}

func putLink(index map[string]map[string]time.Time, owner, target string, at time.Time) {
	links, ok := index[owner]
	if !ok {
		links = make(map[string]time.Time)
		index[owner] = links
	}
	links[target] = at
}

func linkedIDs(index map[string]map[string]time.Time, owner string) []string {
	ids := make([]string, 0, len(index[owner]))
	for id := range index[owner] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *Store) PutApplicationNote(ctx context.Context, note domain.ApplicationNote) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := requireKey("application note", note.ID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	notes := s.notes[note.ApplicationID]
	for i, existing := range notes {
		if existing.ID == note.ID {
			notes[i] = note
			return nil
		}
	}
	s.notes[note.ApplicationID] = append(notes, note)
	return nil
}

func (s *Store) ListApplicationNotes(ctx context.Context, applicationID string) ([]domain.ApplicationNote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	notes := append([]domain.ApplicationNote(nil), s.notes[applicationID]...)
	s.mu.RUnlock()
	sort.SliceStable(notes, func(i, j int) bool { return notes[i].CreatedAt.Before(notes[j].CreatedAt) })
	return notes, nil
}

func (s *Store) DeleteApplicationNotes(ctx context.Context, applicationID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.notes, applicationID)
	s.mu.Unlock()
	return nil
}
