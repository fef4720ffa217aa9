// Package postgres implements the case Data Store on PostgreSQL via pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/felixgeelhaar/blotter/pkg/domain"
	"github.com/felixgeelhaar/blotter/pkg/domain/casefile"
	"github.com/felixgeelhaar/blotter/pkg/domain/hearing"
	"github.com/felixgeelhaar/blotter/pkg/domain/resolution"
	"github.com/felixgeelhaar/blotter/pkg/domain/store"
	"github.com/felixgeelhaar/blotter/pkg/domain/timeline"
)

// Schema is applied on Open. Statements are idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS cases (
	id                    TEXT PRIMARY KEY,
	number                TEXT NOT NULL UNIQUE,
	title                 TEXT NOT NULL,
	description           TEXT NOT NULL DEFAULT '',
	status                TEXT NOT NULL,
	assigned_officer      TEXT NOT NULL DEFAULT '',
	investigation_started BOOLEAN NOT NULL DEFAULT FALSE,
	created_at            TIMESTAMPTZ NOT NULL,
	updated_at            TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS artifacts (
	id         TEXT PRIMARY KEY,
	case_id    TEXT NOT NULL REFERENCES cases(id),
	kind       TEXT NOT NULL,
	name       TEXT NOT NULL,
	details    TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_artifacts_case ON artifacts(case_id, kind);

CREATE TABLE IF NOT EXISTS hearings (
	id                 TEXT PRIMARY KEY,
	case_id            TEXT NOT NULL REFERENCES cases(id),
	date               TEXT NOT NULL,
	time               TEXT NOT NULL,
	scheduled_at       TIMESTAMPTZ,
	location           TEXT NOT NULL,
	purpose            TEXT NOT NULL DEFAULT '',
	presiding_officer  TEXT NOT NULL DEFAULT '',
	status             TEXT NOT NULL,
	approval           TEXT NOT NULL,
	decline_reason     TEXT NOT NULL DEFAULT '',
	reminder_scheduled BOOLEAN NOT NULL DEFAULT FALSE,
	created_at         TIMESTAMPTZ NOT NULL,
	updated_at         TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_hearings_case ON hearings(case_id);
CREATE INDEX IF NOT EXISTS idx_hearings_status ON hearings(status);

CREATE TABLE IF NOT EXISTS resolutions (
	id         TEXT PRIMARY KEY,
	case_id    TEXT NOT NULL REFERENCES cases(id),
	type       TEXT NOT NULL,
	details    TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);
`

// Store is the PostgreSQL-backed Data Store.
type Store struct {
	pool *pgxpool.Pool
}

var _ store.Repository = (*Store)(nil)

// Open connects to dsn, sizes the pool and applies Schema.
func Open(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}
	cfg.MaxConns = 16
	cfg.MaxConnIdleTime = 30 * time.Second
	cfg.MaxConnLifetime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("postgres: acquire conn: %w", err)
	}
	defer conn.Release()

	res := conn.Conn().PgConn().Exec(ctx, Schema)
	if _, err := res.ReadAll(); err != nil {
		return fmt.Errorf("postgres: apply schema: %w", err)
	}
	return nil
}

// Close releases the pool. It always returns nil.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func requireRow(tag pgconn.CommandTag, notFound error, id string) error {
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", notFound, id)
	}
	return nil
}

const caseColumns = `id, number, title, description, status, assigned_officer, investigation_started, created_at, updated_at`

func scanCase(row pgx.Row) (*casefile.Case, error) {
	var (
		c      casefile.Case
		status string
	)
	if err := row.Scan(&c.ID, &c.Number, &c.Title, &c.Description, &status, &c.AssignedOfficer,
		&c.InvestigationStarted, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	parsed, err := casefile.ParseStatus(status)
	if err != nil {
		return nil, err
	}
	c.Status = parsed
	return &c, nil
}

func (s *Store) CreateCase(ctx context.Context, c *casefile.Case) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO cases (id, number, title, description, status, assigned_officer,
		investigation_started, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		c.ID, c.Number, c.Title, c.Description, string(c.Status), c.AssignedOfficer, c.InvestigationStarted, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("postgres: create case: %w", err)
	}
	return nil
}

func (s *Store) GetCase(ctx context.Context, id string) (*casefile.Case, error) {
	c, err := scanCase(s.pool.QueryRow(ctx, `SELECT `+caseColumns+` FROM cases WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrCaseNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get case: %w", err)
	}
	return c, nil
}

func (s *Store) FindCaseByNumber(ctx context.Context, number string) (*casefile.Case, error) {
	c, err := scanCase(s.pool.QueryRow(ctx, `SELECT `+caseColumns+` FROM cases WHERE number = $1`, number))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrCaseNotFound, number)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: find case: %w", err)
	}
	return c, nil
}

func (s *Store) ListCases(ctx context.Context) ([]*casefile.Case, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+caseColumns+` FROM cases ORDER BY created_at, number`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list cases: %w", err)
	}
	defer rows.Close()

	var out []*casefile.Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan case: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) UpdateCase(ctx context.Context, c *casefile.Case) error {
	tag, err := s.pool.Exec(ctx, `UPDATE cases SET title = $1, description = $2, status = $3, assigned_officer = $4,
		investigation_started = $5, updated_at = $6 WHERE id = $7`,
		c.Title, c.Description, string(c.Status), c.AssignedOfficer, c.InvestigationStarted, c.UpdatedAt, c.ID)
	if err != nil {
		return fmt.Errorf("postgres: update case: %w", err)
	}
	return requireRow(tag, domain.ErrCaseNotFound, c.ID)
}

func (s *Store) SetCaseStatus(ctx context.Context, caseID string, status casefile.Status) error {
	tag, err := s.pool.Exec(ctx, `UPDATE cases SET status = $1, updated_at = now() WHERE id = $2`, string(status), caseID)
	if err != nil {
		return fmt.Errorf("postgres: set case status: %w", err)
	}
	return requireRow(tag, domain.ErrCaseNotFound, caseID)
}

func (s *Store) AddArtifact(ctx context.Context, a *casefile.Artifact) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO artifacts (id, case_id, kind, name, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`, a.ID, a.CaseID, string(a.Kind), a.Name, a.Details, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres: add artifact: %w", err)
	}
	return nil
}

func (s *Store) ListArtifacts(ctx context.Context, caseID string, kind casefile.ArtifactKind) ([]*casefile.Artifact, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, case_id, kind, name, details, created_at FROM artifacts
		WHERE case_id = $1 AND kind = $2 ORDER BY created_at`, caseID, string(kind))
	if err != nil {
		return nil, fmt.Errorf("postgres: list artifacts: %w", err)
	}
	defer rows.Close()

	var out []*casefile.Artifact
	for rows.Next() {
		var (
			a casefile.Artifact
			k string
		)
		if err := rows.Scan(&a.ID, &a.CaseID, &k, &a.Name, &a.Details, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan artifact: %w", err)
		}
		a.Kind = casefile.ArtifactKind(k)
		out = append(out, &a)
	}
	return out, rows.Err()
}

func (s *Store) Counts(ctx context.Context, caseID string) (timeline.Counts, error) {
	var (
		c       timeline.Counts
		officer string
		latest  *string
	)
	err := s.pool.QueryRow(ctx, `SELECT
		c.assigned_officer,
		(SELECT COUNT(*) FROM artifacts WHERE case_id = c.id AND kind = 'witness'),
		(SELECT COUNT(*) FROM artifacts WHERE case_id = c.id AND kind = 'suspect'),
		(SELECT COUNT(*) FROM artifacts WHERE case_id = c.id AND kind = 'evidence'),
		(SELECT COUNT(*) FROM hearings WHERE case_id = c.id),
		(SELECT COUNT(*) FROM resolutions WHERE case_id = c.id),
		(SELECT type FROM resolutions WHERE case_id = c.id ORDER BY created_at DESC, id DESC LIMIT 1)
		FROM cases c WHERE c.id = $1`, caseID).
		Scan(&officer, &c.Witnesses, &c.Suspects, &c.Evidence, &c.Hearings, &c.Resolutions, &latest)
	if errors.Is(err, pgx.ErrNoRows) {
		return timeline.Counts{}, domain.MissingReport(caseID, fmt.Errorf("%w: %s", domain.ErrCaseNotFound, caseID))
	}
	if err != nil {
		return timeline.Counts{}, fmt.Errorf("postgres: counts: %w", err)
	}
	c.OfficerAssigned = officer != ""
	if latest != nil {
		t := resolution.Type(*latest)
		c.LatestResolutionType = &t
	}
	return c, nil
}

const hearingColumns = `id, case_id, date, time, scheduled_at, location, purpose, presiding_officer, status,
	approval, decline_reason, reminder_scheduled, created_at, updated_at`

func scanHearing(row pgx.Row) (*hearing.Hearing, error) {
	var (
		h                hearing.Hearing
		status, approval string
	)
	if err := row.Scan(&h.ID, &h.CaseID, &h.Date, &h.Time, &h.ScheduledAt, &h.Location, &h.Purpose, &h.PresidingOfficer,
		&status, &approval, &h.DeclineReason, &h.ReminderScheduled, &h.CreatedAt, &h.UpdatedAt); err != nil {
		return nil, err
	}
	var err error
	if h.Status, err = hearing.ParseStatus(status); err != nil {
		return nil, err
	}
	if h.Approval, err = hearing.ParseApprovalStatus(approval); err != nil {
		return nil, err
	}
	return &h, nil
}

func (s *Store) CreateHearing(ctx context.Context, h *hearing.Hearing) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO hearings (id, case_id, date, time, scheduled_at, location, purpose,
		presiding_officer, status, approval, decline_reason, reminder_scheduled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		h.ID, h.CaseID, h.Date, h.Time, h.ScheduledAt, h.Location, h.Purpose, h.PresidingOfficer, string(h.Status),
		string(h.Approval), h.DeclineReason, h.ReminderScheduled, h.CreatedAt, h.UpdatedAt)
	if err != nil {
		return fmt.Errorf("postgres: create hearing: %w", err)
	}
	return nil
}

func (s *Store) GetHearing(ctx context.Context, id string) (*hearing.Hearing, error) {
	h, err := scanHearing(s.pool.QueryRow(ctx, `SELECT `+hearingColumns+` FROM hearings WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrHearingNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get hearing: %w", err)
	}
	return h, nil
}

func (s *Store) UpdateHearing(ctx context.Context, h *hearing.Hearing) error {
	tag, err := s.pool.Exec(ctx, `UPDATE hearings SET date = $1, time = $2, scheduled_at = $3, location = $4,
		purpose = $5, presiding_officer = $6, status = $7, approval = $8, decline_reason = $9,
		reminder_scheduled = $10, updated_at = $11 WHERE id = $12`,
		h.Date, h.Time, h.ScheduledAt, h.Location, h.Purpose, h.PresidingOfficer, string(h.Status), string(h.Approval),
		h.DeclineReason, h.ReminderScheduled, h.UpdatedAt, h.ID)
	if err != nil {
		return fmt.Errorf("postgres: update hearing: %w", err)
	}
	return requireRow(tag, domain.ErrHearingNotFound, h.ID)
}

func (s *Store) queryHearings(ctx context.Context, where string, arg any) ([]*hearing.Hearing, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+hearingColumns+` FROM hearings WHERE `+where+` ORDER BY created_at`, arg)
	if err != nil {
		return nil, fmt.Errorf("postgres: list hearings: %w", err)
	}
	defer rows.Close()

	var out []*hearing.Hearing
	for rows.Next() {
		h, err := scanHearing(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan hearing: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *Store) ListHearings(ctx context.Context, caseID string) ([]*hearing.Hearing, error) {
	return s.queryHearings(ctx, "case_id = $1", caseID)
}

func (s *Store) ListHearingsByStatus(ctx context.Context, status hearing.Status) ([]*hearing.Hearing, error) {
	return s.queryHearings(ctx, "status = $1", string(status))
}

func (s *Store) CreateResolution(ctx context.Context, r *resolution.Resolution) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO resolutions (id, case_id, type, details, created_at) VALUES ($1, $2, $3, $4, $5)`,
		r.ID, r.CaseID, string(r.Type), r.Details, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres: create resolution: %w", err)
	}
	return nil
}

func (s *Store) ListResolutions(ctx context.Context, caseID string) ([]*resolution.Resolution, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, case_id, type, details, created_at FROM resolutions
		WHERE case_id = $1 ORDER BY created_at`, caseID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list resolutions: %w", err)
	}
	defer rows.Close()

	var out []*resolution.Resolution
	for rows.Next() {
		var (
			r   resolution.Resolution
			typ string
		)
		if err := rows.Scan(&r.ID, &r.CaseID, &typ, &r.Details, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan resolution: %w", err)
		}
		r.Type = resolution.Type(typ)
		out = append(out, &r)
	}
	return out, rows.Err()
}
