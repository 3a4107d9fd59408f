package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"neofab/internal/core"
	"neofab/internal/model"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// DefaultTimeout bounds each store operation when the config does not set
// one. Exceeding it surfaces as core.ErrTimeout.
const DefaultTimeout = 5 * time.Second

// SQLiteStore implements the core.Store interface using SQLite.
type SQLiteStore struct {
	db      *sql.DB
	path    string
	timeout time.Duration
}

// NewSQLiteStore opens a SQLite store at path. path can be a file path or
// ":memory:" for an in-memory database. timeout <= 0 selects DefaultTimeout.
func NewSQLiteStore(path string, timeout time.Duration) (*SQLiteStore, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	return NewSQLiteStoreFromDB(db, path, timeout), nil
}

// NewSQLiteStoreFromDB wraps an existing database connection. The caller is
// responsible for ensuring the connection is properly configured.
func NewSQLiteStoreFromDB(db *sql.DB, path string, timeout time.Duration) *SQLiteStore {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &SQLiteStore{db: db, path: path, timeout: timeout}
}

// OpenConnection opens and configures a SQLite connection with appropriate
// PRAGMAs. Exported for tools and tests that need a properly configured
// connection.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Foreign keys are OFF by default in SQLite.
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	// Wait for competing writers instead of failing immediately.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

// opCtx bounds one store operation with the configured timeout.
func (s *SQLiteStore) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// storeErr classifies a driver error into the engine's taxonomy.
func storeErr(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, core.ErrTimeout)
	}
	return fmt.Errorf("%s: %w", op, errors.Join(core.ErrStorageFailure, err))
}

// Projects

func (s *SQLiteStore) GetProject(ctx context.Context, id string) (*model.Project, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var p model.Project
	err := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, title, description, status, version, created_at, updated_at
		FROM projects WHERE id = ?`, id).
		Scan(&p.ID, &p.OwnerID, &p.Title, &p.Description, &p.Status, &p.Version, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("project %s: %w", id, core.ErrNotFound)
		}
		return nil, storeErr("finding project", err)
	}
	return &p, nil
}

func (s *SQLiteStore) ListProjects(ctx context.Context, filter core.ProjectFilter) ([]*model.Project, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	query := `SELECT id, owner_id, title, description, status, version, created_at, updated_at
		FROM projects WHERE 1=1`
	var args []any
	if filter.OwnerID != "" {
		query += " AND owner_id = ?"
		args = append(args, filter.OwnerID)
	}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, filter.Status)
	}
	query += " ORDER BY created_at, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("listing projects", err)
	}
	defer rows.Close()

	var result []*model.Project
	for rows.Next() {
		var p model.Project
		if err := rows.Scan(&p.ID, &p.OwnerID, &p.Title, &p.Description, &p.Status, &p.Version, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, storeErr("scanning project", err)
		}
		result = append(result, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("listing projects", err)
	}
	return result, nil
}

func (s *SQLiteStore) CreateProject(ctx context.Context, p *model.Project, ev *model.StatusEvent, msg *model.Message) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("starting transaction", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO projects (id, owner_id, title, description, status, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.OwnerID, p.Title, p.Description, p.Status, p.Version, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return storeErr("inserting project", err)
	}

	if err := insertStatusEvent(ctx, tx, ev); err != nil {
		return err
	}
	if msg != nil {
		if err := insertMessage(ctx, tx, msg); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return storeErr("committing transaction", err)
	}
	return nil
}

func (s *SQLiteStore) ApplyProjectTransition(ctx context.Context, id string, expectedVersion int64, to model.ProjectStatus, ev *model.StatusEvent, msg *model.Message) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("starting transaction", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE projects SET status = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`,
		to, ev.CreatedAt, id, expectedVersion)
	if err != nil {
		return storeErr("updating project", err)
	}
	if err := checkAffected(ctx, tx, res, "projects", id, expectedVersion); err != nil {
		return err
	}

	if err := insertStatusEvent(ctx, tx, ev); err != nil {
		return err
	}
	if msg != nil {
		if err := insertMessage(ctx, tx, msg); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return storeErr("committing transaction", err)
	}
	return nil
}

// Print jobs

func (s *SQLiteStore) GetPrintJob(ctx context.Context, id string) (*model.PrintJob, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	j, err := scanPrintJob(s.db.QueryRowContext(ctx, `
		SELECT id, project_id, printer_id, material_id, color_id, status, priority, deadline, version, created_at, updated_at
		FROM print_jobs WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("print job %s: %w", id, core.ErrNotFound)
		}
		return nil, storeErr("finding print job", err)
	}
	return j, nil
}

func (s *SQLiteStore) ListPrintJobs(ctx context.Context, projectID string) ([]*model.PrintJob, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, printer_id, material_id, color_id, status, priority, deadline, version, created_at, updated_at
		FROM print_jobs WHERE project_id = ? ORDER BY created_at, id`, projectID)
	if err != nil {
		return nil, storeErr("listing print jobs", err)
	}
	defer rows.Close()

	var result []*model.PrintJob
	for rows.Next() {
		j, err := scanPrintJob(rows)
		if err != nil {
			return nil, storeErr("scanning print job", err)
		}
		result = append(result, j)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("listing print jobs", err)
	}
	return result, nil
}

func (s *SQLiteStore) CreatePrintJob(ctx context.Context, j *model.PrintJob, ev *model.StatusEvent) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("starting transaction", err)
	}
	defer tx.Rollback()

	var deadline sql.NullTime
	if j.Deadline != nil {
		deadline = sql.NullTime{Time: *j.Deadline, Valid: true}
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO print_jobs (id, project_id, printer_id, material_id, color_id, status, priority, deadline, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.ID, j.ProjectID, j.PrinterID, j.MaterialID, j.ColorID, j.Status, j.Priority, deadline, j.Version, j.CreatedAt, j.UpdatedAt)
	if err != nil {
		return storeErr("inserting print job", err)
	}

	if err := insertStatusEvent(ctx, tx, ev); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return storeErr("committing transaction", err)
	}
	return nil
}

func (s *SQLiteStore) ApplyPrintJobTransition(ctx context.Context, id string, expectedVersion int64, to model.PrintJobStatus, ev *model.StatusEvent) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("starting transaction", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE print_jobs SET status = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`,
		to, ev.CreatedAt, id, expectedVersion)
	if err != nil {
		return storeErr("updating print job", err)
	}
	if err := checkAffected(ctx, tx, res, "print_jobs", id, expectedVersion); err != nil {
		return err
	}

	if err := insertStatusEvent(ctx, tx, ev); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return storeErr("committing transaction", err)
	}
	return nil
}

// Attachments

func (s *SQLiteStore) CreateAttachment(ctx context.Context, a *model.Attachment) (int64, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, storeErr("starting transaction", err)
	}
	defer tx.Rollback()

	// The subject row must exist; attachments never dangle.
	table := "projects"
	if a.Subject.Type == model.SubjectPrintJob {
		table = "print_jobs"
	}
	var exists int
	err = tx.QueryRowContext(ctx, "SELECT COUNT(1) FROM "+table+" WHERE id = ?", a.Subject.ID).Scan(&exists)
	if err != nil {
		return 0, storeErr("checking attachment subject", err)
	}
	if exists == 0 {
		return 0, fmt.Errorf("%s %s: %w", a.Subject.Type, a.Subject.ID, core.ErrNotFound)
	}

	// Increment-or-create the blob reference inside the same transaction so
	// concurrent identical uploads cannot lose a count.
	var refs int64
	err = tx.QueryRowContext(ctx, `SELECT ref_count FROM blobs WHERE hash = ?`, a.ContentHash).Scan(&refs)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		refs = 1
		_, err = tx.ExecContext(ctx, `
			INSERT INTO blobs (hash, size, ref_count, created_at) VALUES (?, ?, 1, ?)`,
			a.ContentHash, a.Size, a.UploadedAt)
		if err != nil {
			return 0, storeErr("creating blob record", err)
		}
	case err != nil:
		return 0, storeErr("finding blob record", err)
	default:
		refs++
		_, err = tx.ExecContext(ctx, `UPDATE blobs SET ref_count = ? WHERE hash = ?`, refs, a.ContentHash)
		if err != nil {
			return 0, storeErr("updating blob record", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO attachments (id, subject_type, subject_id, kind, original_name, content_hash, size, quantity, note, uploader_id, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Subject.Type, a.Subject.ID, a.Kind, a.OriginalName, a.ContentHash, a.Size, a.Quantity, a.Note, a.UploaderID, a.UploadedAt)
	if err != nil {
		return 0, storeErr("inserting attachment", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, storeErr("committing transaction", err)
	}
	return refs, nil
}

func (s *SQLiteStore) GetAttachment(ctx context.Context, id string) (*model.Attachment, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var a model.Attachment
	err := s.db.QueryRowContext(ctx, `
		SELECT id, subject_type, subject_id, kind, original_name, content_hash, size, quantity, note, uploader_id, uploaded_at
		FROM attachments WHERE id = ?`, id).
		Scan(&a.ID, &a.Subject.Type, &a.Subject.ID, &a.Kind, &a.OriginalName, &a.ContentHash, &a.Size, &a.Quantity, &a.Note, &a.UploaderID, &a.UploadedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("attachment %s: %w", id, core.ErrNotFound)
		}
		return nil, storeErr("finding attachment", err)
	}
	return &a, nil
}

func (s *SQLiteStore) ListAttachments(ctx context.Context, subject model.Ref) ([]*model.Attachment, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, subject_type, subject_id, kind, original_name, content_hash, size, quantity, note, uploader_id, uploaded_at
		FROM attachments WHERE subject_type = ? AND subject_id = ? ORDER BY uploaded_at, id`,
		subject.Type, subject.ID)
	if err != nil {
		return nil, storeErr("listing attachments", err)
	}
	defer rows.Close()

	var result []*model.Attachment
	for rows.Next() {
		var a model.Attachment
		if err := rows.Scan(&a.ID, &a.Subject.Type, &a.Subject.ID, &a.Kind, &a.OriginalName, &a.ContentHash, &a.Size, &a.Quantity, &a.Note, &a.UploaderID, &a.UploadedAt); err != nil {
			return nil, storeErr("scanning attachment", err)
		}
		result = append(result, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("listing attachments", err)
	}
	return result, nil
}

func (s *SQLiteStore) BlobRefCount(ctx context.Context, hash string) (int64, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var refs int64
	err := s.db.QueryRowContext(ctx, `SELECT ref_count FROM blobs WHERE hash = ?`, hash).Scan(&refs)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("blob %s: %w", hash, core.ErrNotFound)
		}
		return 0, storeErr("finding blob record", err)
	}
	return refs, nil
}

// Messages and status events

func (s *SQLiteStore) CreateMessage(ctx context.Context, m *model.Message) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("starting transaction", err)
	}
	defer tx.Rollback()

	if err := insertMessage(ctx, tx, m); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return storeErr("committing transaction", err)
	}
	return nil
}

func (s *SQLiteStore) ListMessages(ctx context.Context, projectID string) ([]*model.Message, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, author_id, body, status_event_id, created_at
		FROM messages WHERE project_id = ? ORDER BY created_at, id`, projectID)
	if err != nil {
		return nil, storeErr("listing messages", err)
	}
	defer rows.Close()

	var result []*model.Message
	for rows.Next() {
		var m model.Message
		var eventID sql.NullString
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.AuthorID, &m.Body, &eventID, &m.CreatedAt); err != nil {
			return nil, storeErr("scanning message", err)
		}
		m.StatusEventID = eventID.String
		result = append(result, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("listing messages", err)
	}
	return result, nil
}

func (s *SQLiteStore) ListStatusEvents(ctx context.Context, subject model.Ref) ([]*model.StatusEvent, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, subject_type, subject_id, from_status, to_status, actor_id, reason, created_at
		FROM status_events WHERE subject_type = ? AND subject_id = ? ORDER BY created_at, id`,
		subject.Type, subject.ID)
	if err != nil {
		return nil, storeErr("listing status events", err)
	}
	defer rows.Close()

	var result []*model.StatusEvent
	for rows.Next() {
		var ev model.StatusEvent
		if err := rows.Scan(&ev.ID, &ev.Subject.Type, &ev.Subject.ID, &ev.From, &ev.To, &ev.ActorID, &ev.Reason, &ev.CreatedAt); err != nil {
			return nil, storeErr("scanning status event", err)
		}
		result = append(result, &ev)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("listing status events", err)
	}
	return result, nil
}

// Master data

func (s *SQLiteStore) CreatePrinter(ctx context.Context, p *model.Printer) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO printers (id, name, model, location, active, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Model, p.Location, p.Active, p.CreatedAt)
	if err != nil {
		return storeErr("inserting printer", err)
	}
	return nil
}

func (s *SQLiteStore) GetPrinter(ctx context.Context, id string) (*model.Printer, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var p model.Printer
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, model, location, active, created_at FROM printers WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &p.Model, &p.Location, &p.Active, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("printer %s: %w", id, core.ErrNotFound)
		}
		return nil, storeErr("finding printer", err)
	}
	return &p, nil
}

func (s *SQLiteStore) ListPrinters(ctx context.Context) ([]*model.Printer, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, model, location, active, created_at FROM printers ORDER BY name`)
	if err != nil {
		return nil, storeErr("listing printers", err)
	}
	defer rows.Close()

	var result []*model.Printer
	for rows.Next() {
		var p model.Printer
		if err := rows.Scan(&p.ID, &p.Name, &p.Model, &p.Location, &p.Active, &p.CreatedAt); err != nil {
			return nil, storeErr("scanning printer", err)
		}
		result = append(result, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("listing printers", err)
	}
	return result, nil
}

func (s *SQLiteStore) CreateMaterial(ctx context.Context, m *model.Material) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO materials (id, name, description) VALUES (?, ?, ?)`,
		m.ID, m.Name, m.Description)
	if err != nil {
		return storeErr("inserting material", err)
	}
	return nil
}

func (s *SQLiteStore) GetMaterial(ctx context.Context, id string) (*model.Material, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var m model.Material
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, description FROM materials WHERE id = ?`, id).
		Scan(&m.ID, &m.Name, &m.Description)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("material %s: %w", id, core.ErrNotFound)
		}
		return nil, storeErr("finding material", err)
	}
	return &m, nil
}

func (s *SQLiteStore) ListMaterials(ctx context.Context) ([]*model.Material, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `SELECT id, name, description FROM materials ORDER BY name`)
	if err != nil {
		return nil, storeErr("listing materials", err)
	}
	defer rows.Close()

	var result []*model.Material
	for rows.Next() {
		var m model.Material
		if err := rows.Scan(&m.ID, &m.Name, &m.Description); err != nil {
			return nil, storeErr("scanning material", err)
		}
		result = append(result, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("listing materials", err)
	}
	return result, nil
}

func (s *SQLiteStore) CreateColor(ctx context.Context, c *model.Color) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO colors (id, name, hex_code) VALUES (?, ?, ?)`,
		c.ID, c.Name, c.HexCode)
	if err != nil {
		return storeErr("inserting color", err)
	}
	return nil
}

func (s *SQLiteStore) GetColor(ctx context.Context, id string) (*model.Color, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var c model.Color
	err := s.db.QueryRowContext(ctx, `SELECT id, name, hex_code FROM colors WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.HexCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("color %s: %w", id, core.ErrNotFound)
		}
		return nil, storeErr("finding color", err)
	}
	return &c, nil
}

func (s *SQLiteStore) ListColors(ctx context.Context) ([]*model.Color, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `SELECT id, name, hex_code FROM colors ORDER BY name`)
	if err != nil {
		return nil, storeErr("listing colors", err)
	}
	defer rows.Close()

	var result []*model.Color
	for rows.Next() {
		var c model.Color
		if err := rows.Scan(&c.ID, &c.Name, &c.HexCode); err != nil {
			return nil, storeErr("scanning color", err)
		}
		result = append(result, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("listing colors", err)
	}
	return result, nil
}

// Path returns the database file path (or ":memory:").
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Helpers

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPrintJob(row rowScanner) (*model.PrintJob, error) {
	var j model.PrintJob
	var deadline sql.NullTime
	err := row.Scan(&j.ID, &j.ProjectID, &j.PrinterID, &j.MaterialID, &j.ColorID,
		&j.Status, &j.Priority, &deadline, &j.Version, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if deadline.Valid {
		t := deadline.Time
		j.Deadline = &t
	}
	return &j, nil
}

func insertStatusEvent(ctx context.Context, tx *sql.Tx, ev *model.StatusEvent) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO status_events (id, subject_type, subject_id, from_status, to_status, actor_id, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.Subject.Type, ev.Subject.ID, ev.From, ev.To, ev.ActorID, ev.Reason, ev.CreatedAt)
	if err != nil {
		return storeErr("inserting status event", err)
	}
	return nil
}

func insertMessage(ctx context.Context, tx *sql.Tx, m *model.Message) error {
	var eventID sql.NullString
	if m.StatusEventID != "" {
		eventID = sql.NullString{String: m.StatusEventID, Valid: true}
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO messages (id, project_id, author_id, body, status_event_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID, m.ProjectID, m.AuthorID, m.Body, eventID, m.CreatedAt)
	if err != nil {
		return storeErr("inserting message", err)
	}
	return nil
}

// checkAffected distinguishes a stale version from a missing row after a
// guarded UPDATE matched nothing.
func checkAffected(ctx context.Context, tx *sql.Tx, res sql.Result, table, id string, expectedVersion int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr("checking rows affected", err)
	}
	if n > 0 {
		return nil
	}

	var exists int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(1) FROM "+table+" WHERE id = ?", id).Scan(&exists); err != nil {
		return storeErr("checking row existence", err)
	}
	if exists == 0 {
		return fmt.Errorf("%s %s: %w", table, id, core.ErrNotFound)
	}
	return fmt.Errorf("%s %s at version %d: %w", table, id, expectedVersion, core.ErrConflict)
}

// Compile-time check that SQLiteStore implements core.Store.
var _ core.Store = (*SQLiteStore)(nil)
