package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/louisbranch/courtapps/internal/services/projector/domain"
	"github.com/louisbranch/courtapps/internal/services/projector/storage"
)

func (s *Store) GetApplication(ctx context.Context, id string) (domain.Application, error) {
	return getDocument[domain.Application](ctx, s,
		`SELECT document FROM applications WHERE id = ?`, "application", id)
}

func (s *Store) ListApplicationsByParent(ctx context.Context, parentID string) ([]domain.Application, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	apps := make([]domain.Application, 0)
	if parentID == "" {
		return apps, nil
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT document FROM applications WHERE parent_application_id = ? ORDER BY id`, parentID)
	if err != nil {
		return nil, storage.Failure("list child applications", err)
	}
	defer rows.Close()
	for rows.Next() {
		var document string
		if err := rows.Scan(&document); err != nil {
			return nil, storage.Failure("scan child application", err)
		}
		var app domain.Application
		if err := json.Unmarshal([]byte(document), &app); err != nil {
			return nil, storage.Failure("decode child application", err)
		}
		apps = append(apps, app)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.Failure("iterate child applications", err)
	}
	return apps, nil
}

func (s *Store) PutApplication(ctx context.Context, app domain.Application) error {
	document, err := encodeDocument("application", app.ID, app)
	if err != nil {
		return err
	}
	return s.exec(ctx, "put application "+app.ID,
		`INSERT INTO applications (id, parent_application_id, document, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		     parent_application_id = excluded.parent_application_id,
		     document = excluded.document,
		     updated_at = excluded.updated_at`,
		app.ID, app.ParentApplicationID, document, toMillis(s.now()))
}

func (s *Store) DeleteApplication(ctx context.Context, id string) error {
	return s.exec(ctx, "delete application "+id, `DELETE FROM applications WHERE id = ?`, id)
}

func (s *Store) GetInitiateApplication(ctx context.Context, applicationID string) (domain.InitiateApplication, error) {
	return getDocument[domain.InitiateApplication](ctx, s,
		`SELECT document FROM initiate_applications WHERE application_id = ?`, "initiate application", applicationID)
}

func (s *Store) PutInitiateApplication(ctx context.Context, initiate domain.InitiateApplication) error {
	document, err := encodeDocument("initiate application", initiate.ID(), initiate)
	if err != nil {
		return err
	}
	return s.exec(ctx, "put initiate application "+initiate.ID(),
		`INSERT INTO initiate_applications (application_id, document, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(application_id) DO UPDATE SET
		     document = excluded.document,
		     updated_at = excluded.updated_at`,
		initiate.ID(), document, toMillis(s.now()))
}

func (s *Store) DeleteInitiateApplication(ctx context.Context, applicationID string) error {
	return s.exec(ctx, "delete initiate application "+applicationID,
		`DELETE FROM initiate_applications WHERE application_id = ?`, applicationID)
}

func (s *Store) GetHearing(ctx context.Context, id string) (domain.Hearing, error) {
	return getDocument[domain.Hearing](ctx, s, `SELECT document FROM hearings WHERE id = ?`, "hearing", id)
}

func (s *Store) PutHearing(ctx context.Context, hearing domain.Hearing) error {
	document, err := encodeDocument("hearing", hearing.ID, hearing)
	if err != nil {
		return err
	}
	return s.exec(ctx, "put hearing "+hearing.ID,
		`INSERT INTO hearings (id, document, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET document = excluded.document, updated_at = excluded.updated_at`,
		hearing.ID, document, toMillis(s.now()))
}

func (s *Store) DeleteHearing(ctx context.Context, id string) error {
	return s.exec(ctx, "delete hearing "+id, `DELETE FROM hearings WHERE id = ?`, id)
}

func (s *Store) GetProsecutionCase(ctx context.Context, id string) (domain.ProsecutionCase, error) {
	return getDocument[domain.ProsecutionCase](ctx, s,
		`SELECT document FROM prosecution_cases WHERE id = ?`, "prosecution case", id)
}

func (s *Store) PutProsecutionCase(ctx context.Context, pc domain.ProsecutionCase) error {
	document, err := encodeDocument("prosecution case", pc.ID, pc)
	if err != nil {
		return err
	}
	return s.exec(ctx, "put prosecution case "+pc.ID,
		`INSERT INTO prosecution_cases (id, document, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET document = excluded.document, updated_at = excluded.updated_at`,
		pc.ID, document, toMillis(s.now()))
}

func (s *Store) DeleteProsecutionCase(ctx context.Context, id string) error {
	return s.exec(ctx, "delete prosecution case "+id, `DELETE FROM prosecution_cases WHERE id = ?`, id)
}

func (s *Store) PutHearingApplicationLink(ctx context.Context, link storage.HearingApplicationLink) error {
	if link.HearingID == "" || link.ApplicationID == "" {
		return storage.Failure("put hearing application link", fmt.Errorf("hearing id and application id are required"))
	}
	updatedAt := link.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = s.now()
	}
	return s.exec(ctx, "put hearing application link",
		`INSERT INTO hearing_application_links (application_id, hearing_id, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(application_id, hearing_id) DO UPDATE SET updated_at = excluded.updated_at`,
		link.ApplicationID, link.HearingID, toMillis(updatedAt))
}

func (s *Store) ListHearingIDsByApplication(ctx context.Context, applicationID string) ([]string, error) {
	return s.queryIDs(ctx, "list hearings for application "+applicationID,
		`SELECT hearing_id FROM hearing_application_links WHERE application_id = ? ORDER BY hearing_id`,
		applicationID)
}

func (s *Store) DeleteHearingApplicationLink(ctx context.Context, hearingID, applicationID string) error {
	return s.exec(ctx, "delete hearing application link",
		`DELETE FROM hearing_application_links WHERE application_id = ? AND hearing_id = ?`,
		applicationID, hearingID)
}

func (s *Store) PutApplicationCaseLink(ctx context.Context, link storage.ApplicationCaseLink) error {
	if link.ApplicationID == "" || link.ProsecutionCaseID == "" {
		return storage.Failure("put application case link", fmt.Errorf("application id and case id are required"))
	}
	updatedAt := link.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = s.now()
	}
	return s.exec(ctx, "put application case link",
		`INSERT INTO application_case_links (application_id, prosecution_case_id, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(application_id, prosecution_case_id) DO UPDATE SET updated_at = excluded.updated_at`,
		link.ApplicationID, link.ProsecutionCaseID, toMillis(updatedAt))
}

func (s *Store) ListCaseIDsByApplication(ctx context.Context, applicationID string) ([]string, error) {
	return s.queryIDs(ctx, "list cases for application "+applicationID,
		`SELECT prosecution_case_id FROM application_case_links WHERE application_id = ? ORDER BY prosecution_case_id`,
		applicationID)
}

func (s *Store) DeleteApplicationCaseLinks(ctx context.Context, applicationID string) error {
	return s.exec(ctx, "delete application case links",
		`DELETE FROM application_case_links WHERE application_id = ?`, applicationID)
}

func (s *Store) PutApplicationNote(ctx context.Context, note domain.ApplicationNote) error {
	document, err := encodeDocument("application note", note.ID, note)
	if err != nil {
		return err
	}
	return s.exec(ctx, "put application note "+note.ID,
		`INSERT INTO application_notes (id, application_id, document, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET document = excluded.document, updated_at = excluded.updated_at`,
		note.ID, note.ApplicationID, document, toMillis(note.CreatedAt), toMillis(s.now()))
}

func (s *Store) ListApplicationNotes(ctx context.Context, applicationID string) ([]domain.ApplicationNote, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT document FROM application_notes WHERE application_id = ? ORDER BY created_at, id`, applicationID)
	if err != nil {
		return nil, storage.Failure("list application notes", err)
	}
	defer rows.Close()
	notes := make([]domain.ApplicationNote, 0)
	for rows.Next() {
		var document string
		if err := rows.Scan(&document); err != nil {
			return nil, storage.Failure("scan application note", err)
		}
		var note domain.ApplicationNote
		if err := json.Unmarshal([]byte(document), &note); err != nil {
			return nil, storage.Failure("decode application note", err)
		}
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.Failure("iterate application notes", err)
	}
	return notes, nil
}

func (s *Store) DeleteApplicationNotes(ctx context.Context, applicationID string) error {
	return s.exec(ctx, "delete application notes",
		`DELETE FROM application_notes WHERE application_id = ?`, applicationID)
}
