// Package sqlite implements the case Data Store on an embedded SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/felixgeelhaar/blotter/pkg/domain"
	"github.com/felixgeelhaar/blotter/pkg/domain/casefile"
	"github.com/felixgeelhaar/blotter/pkg/domain/hearing"
	"github.com/felixgeelhaar/blotter/pkg/domain/resolution"
	"github.com/felixgeelhaar/blotter/pkg/domain/store"
	"github.com/felixgeelhaar/blotter/pkg/domain/timeline"
)

const schema = `
CREATE TABLE IF NOT EXISTS cases (
	id                    TEXT PRIMARY KEY,
	number                TEXT NOT NULL UNIQUE,
	title                 TEXT NOT NULL,
	description           TEXT NOT NULL DEFAULT '',
	status                TEXT NOT NULL,
	assigned_officer      TEXT NOT NULL DEFAULT '',
	investigation_started INTEGER NOT NULL DEFAULT 0,
	created_at            TEXT NOT NULL,
	updated_at            TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS artifacts (
	id         TEXT PRIMARY KEY,
	case_id    TEXT NOT NULL,
	kind       TEXT NOT NULL,
	name       TEXT NOT NULL,
	details    TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	FOREIGN KEY (case_id) REFERENCES cases(id)
);
CREATE INDEX IF NOT EXISTS idx_artifacts_case ON artifacts(case_id, kind);

CREATE TABLE IF NOT EXISTS hearings (
	id                 TEXT PRIMARY KEY,
	case_id            TEXT NOT NULL,
	date               TEXT NOT NULL,
	time               TEXT NOT NULL,
	scheduled_at       TEXT,
	location           TEXT NOT NULL,
	purpose            TEXT NOT NULL DEFAULT '',
	presiding_officer  TEXT NOT NULL DEFAULT '',
	status             TEXT NOT NULL,
	approval           TEXT NOT NULL,
	decline_reason     TEXT NOT NULL DEFAULT '',
	reminder_scheduled INTEGER NOT NULL DEFAULT 0,
	created_at         TEXT NOT NULL,
	updated_at         TEXT NOT NULL,
	FOREIGN KEY (case_id) REFERENCES cases(id)
);
CREATE INDEX IF NOT EXISTS idx_hearings_case ON hearings(case_id);
CREATE INDEX IF NOT EXISTS idx_hearings_status ON hearings(status);

CREATE TABLE IF NOT EXISTS resolutions (
	id         TEXT PRIMARY KEY,
	case_id    TEXT NOT NULL,
	type       TEXT NOT NULL,
	details    TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	FOREIGN KEY (case_id) REFERENCES cases(id)
);
`

// Store is the SQLite-backed Data Store.
type Store struct {
	db *sql.DB
}

var _ store.Repository = (*Store)(nil)

// Open opens or creates the database at path and applies the schema.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps :memory: databases coherent and serializes writers.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON", "PRAGMA busy_timeout=5000"} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func parseTime(v string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored time %q: %w", v, err)
	}
	return t, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

type scanner interface {
	Scan(dest ...any) error
}

const caseColumns = `id, number, title, description, status, assigned_officer, investigation_started, created_at, updated_at`

func scanCase(row scanner) (*casefile.Case, error) {
	var (
		c                    casefile.Case
		status               string
		started              int
		createdAt, updatedAt string
	)
	if err := row.Scan(&c.ID, &c.Number, &c.Title, &c.Description, &status, &c.AssignedOfficer, &started, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	parsed, err := casefile.ParseStatus(status)
	if err != nil {
		return nil, err
	}
	c.Status = parsed
	c.InvestigationStarted = started != 0
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) CreateCase(ctx context.Context, c *casefile.Case) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO cases (`+caseColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Number, c.Title, c.Description, string(c.Status), c.AssignedOfficer, boolInt(c.InvestigationStarted),
		formatTime(c.CreatedAt), formatTime(c.UpdatedAt))
	if err != nil {
		return fmt.Errorf("sqlite: create case: %w", err)
	}
	return nil
}

func (s *Store) GetCase(ctx context.Context, id string) (*casefile.Case, error) {
	c, err := scanCase(s.db.QueryRowContext(ctx, `SELECT `+caseColumns+` FROM cases WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrCaseNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get case: %w", err)
	}
	return c, nil
}

func (s *Store) FindCaseByNumber(ctx context.Context, number string) (*casefile.Case, error) {
	c, err := scanCase(s.db.QueryRowContext(ctx, `SELECT `+caseColumns+` FROM cases WHERE number = ?`, number))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrCaseNotFound, number)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: find case: %w", err)
	}
	return c, nil
}

func (s *Store) ListCases(ctx context.Context) ([]*casefile.Case, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+caseColumns+` FROM cases ORDER BY created_at, number`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list cases: %w", err)
	}
	defer rows.Close()

	var out []*casefile.Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan case: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) UpdateCase(ctx context.Context, c *casefile.Case) error {
	res, err := s.db.ExecContext(ctx, `UPDATE cases SET title = ?, description = ?, status = ?, assigned_officer = ?,
		investigation_started = ?, updated_at = ? WHERE id = ?`,
		c.Title, c.Description, string(c.Status), c.AssignedOfficer, boolInt(c.InvestigationStarted), formatTime(c.UpdatedAt), c.ID)
	if err != nil {
		return fmt.Errorf("sqlite: update case: %w", err)
	}
	return requireRow(res, domain.ErrCaseNotFound, c.ID)
}

func (s *Store) SetCaseStatus(ctx context.Context, caseID string, status casefile.Status) error {
	res, err := s.db.ExecContext(ctx, `UPDATE cases SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), formatTime(time.Now()), caseID)
	if err != nil {
		return fmt.Errorf("sqlite: set case status: %w", err)
	}
	return requireRow(res, domain.ErrCaseNotFound, caseID)
}

func requireRow(res sql.Result, notFound error, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", notFound, id)
	}
	return nil
}

func (s *Store) AddArtifact(ctx context.Context, a *casefile.Artifact) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO artifacts (id, case_id, kind, name, details, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.CaseID, string(a.Kind), a.Name, a.Details, formatTime(a.CreatedAt))
	if err != nil {
		return fmt.Errorf("sqlite: add artifact: %w", err)
	}
	return nil
}

func (s *Store) ListArtifacts(ctx context.Context, caseID string, kind casefile.ArtifactKind) ([]*casefile.Artifact, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, case_id, kind, name, details, created_at FROM artifacts
		WHERE case_id = ? AND kind = ? ORDER BY created_at`, caseID, string(kind))
	if err != nil {
		return nil, fmt.Errorf("sqlite: list artifacts: %w", err)
	}
	defer rows.Close()

	var out []*casefile.Artifact
	for rows.Next() {
		var (
			a         casefile.Artifact
			k         string
			createdAt string
		)
		if err := rows.Scan(&a.ID, &a.CaseID, &k, &a.Name, &a.Details, &createdAt); err != nil {
			return nil, fmt.Errorf("sqlite: scan artifact: %w", err)
		}
		a.Kind = casefile.ArtifactKind(k)
		if a.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

func (s *Store) Counts(ctx context.Context, caseID string) (timeline.Counts, error) {
	var (
		c       timeline.Counts
		officer string
		latest  sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `SELECT
		c.assigned_officer,
		(SELECT COUNT(*) FROM artifacts WHERE case_id = c.id AND kind = 'witness'),
		(SELECT COUNT(*) FROM artifacts WHERE case_id = c.id AND kind = 'suspect'),
		(SELECT COUNT(*) FROM artifacts WHERE case_id = c.id AND kind = 'evidence'),
		(SELECT COUNT(*) FROM hearings WHERE case_id = c.id),
		(SELECT COUNT(*) FROM resolutions WHERE case_id = c.id),
		(SELECT type FROM resolutions WHERE case_id = c.id ORDER BY julianday(created_at) DESC, rowid DESC LIMIT 1)
		FROM cases c WHERE c.id = ?`, caseID).
		Scan(&officer, &c.Witnesses, &c.Suspects, &c.Evidence, &c.Hearings, &c.Resolutions, &latest)
	if errors.Is(err, sql.ErrNoRows) {
		return timeline.Counts{}, domain.MissingReport(caseID, fmt.Errorf("%w: %s", domain.ErrCaseNotFound, caseID))
	}
	if err != nil {
		return timeline.Counts{}, fmt.Errorf("sqlite: counts: %w", err)
	}
	c.OfficerAssigned = officer != ""
	if latest.Valid {
		t := resolution.Type(latest.String)
		c.LatestResolutionType = &t
	}
	return c, nil
}

const hearingColumns = `id, case_id, date, time, scheduled_at, location, purpose, presiding_officer, status, approval,
	decline_reason, reminder_scheduled, created_at, updated_at`

func scanHearing(row scanner) (*hearing.Hearing, error) {
	var (
		h                    hearing.Hearing
		scheduledAt          sql.NullString
		status, approval     string
		reminder             int
		createdAt, updatedAt string
	)
	if err := row.Scan(&h.ID, &h.CaseID, &h.Date, &h.Time, &scheduledAt, &h.Location, &h.Purpose, &h.PresidingOfficer,
		&status, &approval, &h.DeclineReason, &reminder, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	var err error
	if h.Status, err = hearing.ParseStatus(status); err != nil {
		return nil, err
	}
	if h.Approval, err = hearing.ParseApprovalStatus(approval); err != nil {
		return nil, err
	}
	if scheduledAt.Valid {
		at, err := parseTime(scheduledAt.String)
		if err != nil {
			return nil, err
		}
		h.ScheduledAt = &at
	}
	h.ReminderScheduled = reminder != 0
	if h.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if h.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &h, nil
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func (s *Store) CreateHearing(ctx context.Context, h *hearing.Hearing) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO hearings (`+hearingColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		h.ID, h.CaseID, h.Date, h.Time, nullTime(h.ScheduledAt), h.Location, h.Purpose, h.PresidingOfficer,
		string(h.Status), string(h.Approval), h.DeclineReason, boolInt(h.ReminderScheduled),
		formatTime(h.CreatedAt), formatTime(h.UpdatedAt))
	if err != nil {
		return fmt.Errorf("sqlite: create hearing: %w", err)
	}
	return nil
}

func (s *Store) GetHearing(ctx context.Context, id string) (*hearing.Hearing, error) {
	h, err := scanHearing(s.db.QueryRowContext(ctx, `SELECT `+hearingColumns+` FROM hearings WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrHearingNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get hearing: %w", err)
	}
	return h, nil
}

func (s *Store) UpdateHearing(ctx context.Context, h *hearing.Hearing) error {
	res, err := s.db.ExecContext(ctx, `UPDATE hearings SET date = ?, time = ?, scheduled_at = ?, location = ?, purpose = ?,
		presiding_officer = ?, status = ?, approval = ?, decline_reason = ?, reminder_scheduled = ?, updated_at = ?
		WHERE id = ?`,
		h.Date, h.Time, nullTime(h.ScheduledAt), h.Location, h.Purpose, h.PresidingOfficer, string(h.Status),
		string(h.Approval), h.DeclineReason, boolInt(h.ReminderScheduled), formatTime(h.UpdatedAt), h.ID)
	if err != nil {
		return fmt.Errorf("sqlite: update hearing: %w", err)
	}
	return requireRow(res, domain.ErrHearingNotFound, h.ID)
}

func (s *Store) queryHearings(ctx context.Context, where string, arg any) ([]*hearing.Hearing, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+hearingColumns+` FROM hearings WHERE `+where+` ORDER BY created_at`, arg)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list hearings: %w", err)
	}
	defer rows.Close()

	var out []*hearing.Hearing
	for rows.Next() {
		h, err := scanHearing(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan hearing: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *Store) ListHearings(ctx context.Context, caseID string) ([]*hearing.Hearing, error) {
	return s.queryHearings(ctx, "case_id = ?", caseID)
}

func (s *Store) ListHearingsByStatus(ctx context.Context, status hearing.Status) ([]*hearing.Hearing, error) {
	return s.queryHearings(ctx, "status = ?", string(status))
}

func (s *Store) CreateResolution(ctx context.Context, r *resolution.Resolution) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO resolutions (id, case_id, type, details, created_at) VALUES (?, ?, ?, ?, ?)`,
		r.ID, r.CaseID, string(r.Type), r.Details, formatTime(r.CreatedAt))
	if err != nil {
		return fmt.Errorf("sqlite: create resolution: %w", err)
	}
	return nil
}

func (s *Store) ListResolutions(ctx context.Context, caseID string) ([]*resolution.Resolution, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, case_id, type, details, created_at FROM resolutions
		WHERE case_id = ? ORDER BY julianday(created_at), rowid`, caseID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list resolutions: %w", err)
	}
	defer rows.Close()

	var out []*resolution.Resolution
	for rows.Next() {
		var (
			r         resolution.Resolution
			typ       string
			createdAt string
		)
		if err := rows.Scan(&r.ID, &r.CaseID, &typ, &r.Details, &createdAt); err != nil {
			return nil, fmt.Errorf("sqlite: scan resolution: %w", err)
		}
		r.Type = resolution.Type(typ)
		if r.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}
