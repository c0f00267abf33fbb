// Package store provides SQLite-backed persistence for the taskboard
// document service.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fentz26/taskboard/internal/models"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Change kinds recorded in the change log.
const (
	KindAdded    = "added"
	KindModified = "modified"
	KindRemoved  = "removed"
)

// Change is one row of an owner's change log.
type Change struct {
	Seq     int64
	OwnerID string
	TaskID  string
	Kind    string
	Task    *models.Task // nil for removals
}

// Store provides access to the document database.
type Store struct {
	db *sql.DB
}

// New creates a new Store and runs migrations.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate runs idempotent schema migrations.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		content TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL,
		priority TEXT NOT NULL,
		project TEXT NOT NULL DEFAULT '',
		tags TEXT NOT NULL DEFAULT '[]',
		task_date TEXT NOT NULL,
		start_time TEXT NOT NULL DEFAULT '',
		end_time TEXT NOT NULL DEFAULT '',
		file_url TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'pending',
		created_at INTEGER NOT NULL,
		completed_at INTEGER,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS task_changes (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		owner_id TEXT NOT NULL,
		task_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		payload TEXT,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS attachments (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		name TEXT NOT NULL,
		content_type TEXT NOT NULL,
		size INTEGER NOT NULL,
		data BLOB NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS audit_records (
		id TEXT PRIMARY KEY,
		action TEXT NOT NULL,
		inputs_hash TEXT NOT NULL,
		outcome TEXT NOT NULL,
		owner_id TEXT,
		task_id TEXT,
		details TEXT,
		timestamp DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_owner ON tasks(owner_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_task_changes_owner ON task_changes(owner_id, seq);
	CREATE INDEX IF NOT EXISTS idx_audit_owner ON audit_records(owner_id, timestamp);
	`

	_, err := s.db.Exec(schema)
	return err
}

const taskColumns = `id, owner_id, content, description, category, priority, project, tags,
	task_date, start_time, end_time, file_url, status, created_at, completed_at`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(row scanner) (models.Task, error) {
	var t models.Task
	var tags string
	var completedAt sql.NullInt64
	err := row.Scan(&t.ID, &t.OwnerID, &t.Content, &t.Description, &t.Category, &t.Priority,
		&t.Project, &tags, &t.TaskDate, &t.StartTime, &t.EndTime, &t.FileURL, &t.Status,
		&t.CreatedAt, &completedAt)
	if err != nil {
		return models.Task{}, err
	}
	if err := json.Unmarshal([]byte(tags), &t.Tags); err != nil {
		return models.Task{}, fmt.Errorf("decode tags of %s: %w", t.ID, err)
	}
	if len(t.Tags) == 0 {
		t.Tags = nil
	}
	if completedAt.Valid {
		v := completedAt.Int64
		t.CompletedAt = &v
	}
	return t, nil
}

func encodeTags(tags []string) string {
	if len(tags) == 0 {
		return "[]"
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func nullMillis(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

// --- Task Operations ---

// CreateTask inserts t for ownerID under a fresh id and records the change.
func (s *Store) CreateTask(ctx context.Context, ownerID string, t models.Task) (models.Task, error) {
	t = t.Clone()
	t.ID = uuid.New().String()
	t.OwnerID = ownerID
	if err := t.Check(); err != nil {
		return models.Task{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Task{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO tasks (`+taskColumns+`, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.OwnerID, t.Content, t.Description, t.Category, t.Priority, t.Project, encodeTags(t.Tags),
		t.TaskDate, t.StartTime, t.EndTime, t.FileURL, t.Status, t.CreatedAt, nullMillis(t.CompletedAt),
		time.Now().UTC(),
	)
	if err != nil {
		return models.Task{}, fmt.Errorf("insert task: %w", err)
	}
	if err := appendChange(ctx, tx, ownerID, t.ID, KindAdded, &t); err != nil {
		return models.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return models.Task{}, fmt.Errorf("commit transaction: %w", err)
	}
	return t, nil
}

// GetTask retrieves one of ownerID's tasks.
func (s *Store) GetTask(ctx context.Context, ownerID, id string) (models.Task, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE owner_id = ? AND id = ?`, ownerID, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Task{}, models.ErrNotFound
	}
	if err != nil {
		return models.Task{}, fmt.Errorf("query task: %w", err)
	}
	return t, nil
}

// ListTasks returns ownerID's tasks, newest first.
func (s *Store) ListTasks(ctx context.Context, ownerID string) ([]models.Task, error) {
	return listTasks(ctx, s.db, ownerID)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

func listTasks(ctx context.Context, q querier, ownerID string) ([]models.Task, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE owner_id = ? ORDER BY created_at DESC, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// UpdateTask applies patch to one of ownerID's tasks and records the change.
// completedAt is kept consistent with the resulting status.
func (s *Store) UpdateTask(ctx context.Context, ownerID, id string, patch models.TaskPatch) (models.Task, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Task{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE owner_id = ? AND id = ?`, ownerID, id)
	current, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Task{}, models.ErrNotFound
	}
	if err != nil {
		return models.Task{}, fmt.Errorf("query task: %w", err)
	}

	t := patch.Apply(current)
	switch {
	case t.IsCompleted() && t.CompletedAt == nil:
		now := models.EpochMillis(time.Now())
		t.CompletedAt = &now
	case !t.IsCompleted():
		t.CompletedAt = nil
	}
	if err := t.Check(); err != nil {
		return models.Task{}, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE tasks SET content = ?, description = ?, category = ?, priority = ?, project = ?, tags = ?,
			task_date = ?, start_time = ?, end_time = ?, status = ?, completed_at = ?, updated_at = ?
		WHERE owner_id = ? AND id = ?`,
		t.Content, t.Description, t.Category, t.Priority, t.Project, encodeTags(t.Tags),
		t.TaskDate, t.StartTime, t.EndTime, t.Status, nullMillis(t.CompletedAt), time.Now().UTC(),
		ownerID, id,
	)
	if err != nil {
		return models.Task{}, fmt.Errorf("update task: %w", err)
	}
	if err := appendChange(ctx, tx, ownerID, id, KindModified, &t); err != nil {
		return models.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return models.Task{}, fmt.Errorf("commit transaction: %w", err)
	}
	return t, nil
}

// DeleteTask removes one of ownerID's tasks and records the removal.
func (s *Store) DeleteTask(ctx context.Context, ownerID, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE owner_id = ? AND id = ?`, ownerID, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return models.ErrNotFound
	}
	if err := appendChange(ctx, tx, ownerID, id, KindRemoved, nil); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// --- Change Log Operations ---

func appendChange(ctx context.Context, tx *sql.Tx, ownerID, taskID, kind string, t *models.Task) error {
	var payload sql.NullString
	if t != nil {
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("encode change: %w", err)
		}
		payload = sql.NullString{String: string(data), Valid: true}
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO task_changes (owner_id, task_id, kind, payload, created_at) VALUES (?, ?, ?, ?, ?)`,
		ownerID, taskID, kind, payload, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert change: %w", err)
	}
	return nil
}

// Snapshot returns ownerID's tasks together with the sequence number of the
// last change they reflect, read in a single transaction.
func (s *Store) Snapshot(ctx context.Context, ownerID string) ([]models.Task, int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var seq int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM task_changes WHERE owner_id = ?`, ownerID,
	).Scan(&seq); err != nil {
		return nil, 0, fmt.Errorf("query latest seq: %w", err)
	}
	tasks, err := listTasks(ctx, tx, ownerID)
	if err != nil {
		return nil, 0, err
	}
	return tasks, seq, nil
}

// LatestSeq returns the sequence number of ownerID's last change, or 0.
func (s *Store) LatestSeq(ctx context.Context, ownerID string) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM task_changes WHERE owner_id = ?`, ownerID,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("query latest seq: %w", err)
	}
	return seq, nil
}

// ChangesSince returns up to limit of ownerID's changes after seq, oldest first.
func (s *Store) ChangesSince(ctx context.Context, ownerID string, seq int64, limit int) ([]Change, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, owner_id, task_id, kind, payload FROM task_changes
		WHERE owner_id = ? AND seq > ? ORDER BY seq LIMIT ?`,
		ownerID, seq, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query changes: %w", err)
	}
	defer rows.Close()

	var changes []Change
	for rows.Next() {
		var c Change
		var payload sql.NullString
		if err := rows.Scan(&c.Seq, &c.OwnerID, &c.TaskID, &c.Kind, &payload); err != nil {
			return nil, fmt.Errorf("scan change: %w", err)
		}
		if payload.Valid {
			var t models.Task
			if err := json.Unmarshal([]byte(payload.String), &t); err != nil {
				return nil, fmt.Errorf("decode change %d: %w", c.Seq, err)
			}
			c.Task = &t
		}
		changes = append(changes, c)
	}
	return changes, rows.Err()
}

// --- Attachment Operations ---

// PutAttachment stores an uploaded file for ownerID.
func (s *Store) PutAttachment(ctx context.Context, ownerID, name, contentType string, data []byte) (models.Attachment, error) {
	a := models.Attachment{
		ID:          uuid.New().String(),
		OwnerID:     ownerID,
		Name:        name,
		ContentType: contentType,
		Size:        int64(len(data)),
		CreatedAt:   time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO attachments (id, owner_id, name, content_type, size, data, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.OwnerID, a.Name, a.ContentType, a.Size, data, a.CreatedAt,
	)
	if err != nil {
		return models.Attachment{}, fmt.Errorf("insert attachment: %w", err)
	}
	return a, nil
}

// GetAttachment returns an attachment and its bytes.
func (s *Store) GetAttachment(ctx context.Context, id string) (models.Attachment, []byte, error) {
	var a models.Attachment
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT id, owner_id, name, content_type, size, data, created_at FROM attachments WHERE id = ?`, id,
	).Scan(&a.ID, &a.OwnerID, &a.Name, &a.ContentType, &a.Size, &data, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Attachment{}, nil, models.ErrNotFound
	}
	if err != nil {
		return models.Attachment{}, nil, fmt.Errorf("query attachment: %w", err)
	}
	return a, data, nil
}

// --- Audit Operations ---

// WriteAudit writes an audit record.
func (s *Store) WriteAudit(action, inputsHash, outcome, ownerID, taskID, details string) (*models.AuditRecord, error) {
	rec := &models.AuditRecord{
		ID:         uuid.New().String(),
		Action:     action,
		InputsHash: inputsHash,
		Outcome:    outcome,
		OwnerID:    ownerID,
		TaskID:     taskID,
		Details:    details,
		Timestamp:  time.Now().UTC(),
	}

	_, err := s.db.Exec(
		`INSERT INTO audit_records (id, action, inputs_hash, outcome, owner_id, task_id, details, timestamp) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Action, rec.InputsHash, rec.Outcome, rec.OwnerID, rec.TaskID, rec.Details, rec.Timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert audit record: %w", err)
	}
	return rec, nil
}

// ListAudit returns ownerID's most recent audit records, newest first.
func (s *Store) ListAudit(ctx context.Context, ownerID string, limit int) ([]models.AuditRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, action, inputs_hash, outcome, owner_id, task_id, details, timestamp
		FROM audit_records WHERE owner_id = ? ORDER BY timestamp DESC LIMIT ?`,
		ownerID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query audit records: %w", err)
	}
	defer rows.Close()

	var recs []models.AuditRecord
	for rows.Next() {
		var r models.AuditRecord
		var taskID, details sql.NullString
		if err := rows.Scan(&r.ID, &r.Action, &r.InputsHash, &r.Outcome, &r.OwnerID, &taskID, &details, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		r.TaskID = taskID.String
		r.Details = details.String
		recs = append(recs, r)
	}
	return recs, rows.Err()
}
