// Package sqlite is a single-file Task Store on modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"productivityTracker/internal/logger"
	"productivityTracker/internal/migrations"
	"productivityTracker/internal/models/task"
	repo "productivityTracker/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Instants are stored as fixed-width UTC text so that they sort as strings.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const taskColumns = `id, user_id, title, description, application, complexity,
	deadline_date, status, created_at, updated_at, started_at, closed_at, archived_at`

const slowQuery = 100 * time.Millisecond

type Storage struct {
	db *sql.DB
}

// New opens (creating if needed) the database at path and applies migrations.
func New(path string) (*Storage, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	if err := migrations.Up(migrations.SQLite, migrations.SQLiteURL(path)); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		logger.Error("Repository: failed to open sqlite", err)
		return nil, fmt.Errorf("opening db: %w", err)
	}
	// One writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	logger.Info("Repository: opened SQLite database", zap.String("path", path))
	return &Storage{db: db}, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		logger.Error("Repository: ping failed", err)
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

func (s *Storage) Create(ctx context.Context, t *task.Task) error {
	start := time.Now()

	query := `INSERT INTO tasks (` + taskColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		t.ID.String(),
		t.UserID,
		t.Title,
		nullString(t.Description),
		t.Application,
		string(t.Complexity),
		task.FormatDate(t.DeadlineDate),
		string(t.Status),
		formatTime(t.CreatedAt),
		formatTime(t.UpdatedAt),
		nullTime(t.StartedAt),
		nullTime(t.ClosedAt),
		nullTime(t.ArchivedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repo.ErrAlreadyExists
		}
		logger.Error("Repository: failed to insert task", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("inserting task: %w", err)
	}

	warnIfSlow(start, "insert task")
	return nil
}

func (s *Storage) Update(ctx context.Context, t *task.Task) error {
	start := time.Now()

	query := `UPDATE tasks
		SET title = ?, description = ?, application = ?, complexity = ?, deadline_date = ?,
			status = ?, updated_at = ?, started_at = ?, closed_at = ?, archived_at = ?
		WHERE id = ?`

	res, err := s.db.ExecContext(ctx, query,
		t.Title,
		nullString(t.Description),
		t.Application,
		string(t.Complexity),
		task.FormatDate(t.DeadlineDate),
		string(t.Status),
		formatTime(t.UpdatedAt),
		nullTime(t.StartedAt),
		nullTime(t.ClosedAt),
		nullTime(t.ArchivedAt),
		t.ID.String(),
	)
	if err != nil {
		logger.Error("Repository: failed to update task", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("updating task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating task: %w", err)
	}
	if n == 0 {
		return repo.ErrNotFound
	}

	warnIfSlow(start, "update task")
	return nil
}

func (s *Storage) GetByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	start := time.Now()

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = ?`

	t, err := scanTask(s.db.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: failed to get task", err)
		return nil, fmt.Errorf("getting task: %w", err)
	}

	warnIfSlow(start, "get task")
	return t, nil
}

func (s *Storage) FindByOwner(ctx context.Context, filter task.Filter) ([]*task.Task, error) {
	start := time.Now()

	conds := []string{"user_id = ?"}
	args := []any{filter.UserID}
	if filter.Archived != nil {
		if *filter.Archived {
			conds = append(conds, "status = ?")
		} else {
			conds = append(conds, "status <> ?")
		}
		args = append(args, string(task.StatusClosed))
	}
	if filter.Application != "" {
		conds = append(conds, "application = ?")
		args = append(args, filter.Application)
	}
	if filter.Complexity != "" {
		conds = append(conds, "complexity = ?")
		args = append(args, string(filter.Complexity))
	}

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE ` + strings.Join(conds, " AND ") + ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		logger.Error("Repository: failed to list tasks", err)
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	defer rows.Close()

	tasks := []*task.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}

	warnIfSlow(start, "list tasks")
	return tasks, nil
}

func (s *Storage) CreateNote(ctx context.Context, n *task.Note) error {
	query := `INSERT INTO task_notes (id, task_id, user_id, content, created_at)
		SELECT ?, id, ?, ?, ? FROM tasks WHERE id = ?`

	res, err := s.db.ExecContext(ctx, query,
		n.ID.String(), n.UserID, n.Content, formatTime(n.CreatedAt), n.TaskID.String())
	if err != nil {
		logger.Error("Repository: failed to insert note", err)
		return fmt.Errorf("inserting note: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("inserting note: %w", err)
	}
	if affected == 0 {
		return repo.ErrNotFound
	}

	seq, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading note sequence: %w", err)
	}
	n.Seq = seq
	return nil
}

func (s *Storage) NotesByTask(ctx context.Context, taskID uuid.UUID) ([]*task.Note, error) {
	query := `SELECT id, task_id, user_id, content, created_at, seq
		FROM task_notes WHERE task_id = ? ORDER BY created_at, seq`

	rows, err := s.db.QueryContext(ctx, query, taskID.String())
	if err != nil {
		logger.Error("Repository: failed to list notes", err)
		return nil, fmt.Errorf("listing notes: %w", err)
	}
	defer rows.Close()

	notes := []*task.Note{}
	for rows.Next() {
		var (
			n                 task.Note
			id, tid, creation string
		)
		if err := rows.Scan(&id, &tid, &n.UserID, &n.Content, &creation, &n.Seq); err != nil {
			return nil, fmt.Errorf("scanning note: %w", err)
		}
		if n.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("note id: %w", err)
		}
		if n.TaskID, err = uuid.Parse(tid); err != nil {
			return nil, fmt.Errorf("note task id: %w", err)
		}
		if n.CreatedAt, err = time.Parse(timeLayout, creation); err != nil {
			return nil, fmt.Errorf("note created_at: %w", err)
		}
		notes = append(notes, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return notes, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (*task.Task, error) {
	var (
		t                         task.Task
		id, complexity, status    string
		deadline, created, upd    string
		description               sql.NullString
		started, closed, archived sql.NullString
	)
	err := row.Scan(&id, &t.UserID, &t.Title, &description, &t.Application, &complexity,
		&deadline, &status, &created, &upd, &started, &closed, &archived)
	if err != nil {
		return nil, err
	}

	if t.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("task id: %w", err)
	}
	t.Complexity = task.Complexity(complexity)
	t.Status = task.Status(status)
	if description.Valid {
		d := description.String
		t.Description = &d
	}
	if t.DeadlineDate, err = task.ParseDate(deadline); err != nil {
		return nil, fmt.Errorf("deadline_date: %w", err)
	}
	if t.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return nil, fmt.Errorf("created_at: %w", err)
	}
	if t.UpdatedAt, err = time.Parse(timeLayout, upd); err != nil {
		return nil, fmt.Errorf("updated_at: %w", err)
	}
	for _, c := range []struct {
		src sql.NullString
		dst **time.Time
	}{{started, &t.StartedAt}, {closed, &t.ClosedAt}, {archived, &t.ArchivedAt}} {
		if !c.src.Valid {
			continue
		}
		v, err := time.Parse(timeLayout, c.src.String)
		if err != nil {
			return nil, fmt.Errorf("parsing timestamp: %w", err)
		}
		*c.dst = &v
	}
	return &t, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(se.Error(), "UNIQUE")
}

func warnIfSlow(start time.Time, op string) {
	if elapsed := time.Since(start); elapsed > slowQuery {
		logger.Warn("Repository: slow query", zap.String("op", op), zap.Duration("ms", elapsed))
	}
}
