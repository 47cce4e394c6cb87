package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"productivityTracker/internal/logger"
	"productivityTracker/internal/models/task"
	repo "productivityTracker/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const (
	slowQuery       = 100 * time.Millisecond
	slowListBase    = 50 * time.Millisecond
	slowListPerItem = 10 * time.Millisecond

	uniqueViolation = "23505"
)

const taskColumns = `id, user_id, title, description, application, complexity,
	deadline_date, status, created_at, updated_at, started_at, closed_at, archived_at`

type PoolConfig struct {
	MaxConns        int32
	MinConns        int32
	MaxConnIdleTime time.Duration
}

type Storage struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, connString string, pc PoolConfig) (*Storage, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		logger.Error("Repository: failed to parse database config", err)
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnIdleTime = time.Minute * 5
	if pc.MaxConns > 0 {
		config.MaxConns = pc.MaxConns
	}
	if pc.MinConns > 0 {
		config.MinConns = pc.MinConns
	}
	if pc.MaxConnIdleTime > 0 {
		config.MaxConnIdleTime = pc.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		logger.Error("Repository: failed to create pool", err)
		return nil, fmt.Errorf("creating pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		logger.Error("Repository: ping failed", err)
		return nil, fmt.Errorf("ping: %w", err)
	}

	logger.Info("Repository: connected to PostgreSQL")
	return &Storage{pool: pool}, nil
}

func (s *Storage) Close() {
	s.pool.Close()
	logger.Info("Repository: PostgreSQL connections closed")
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		logger.Error("Repository: ping failed", err)
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

func (s *Storage) Create(ctx context.Context, t *task.Task) error {
	start := time.Now()

	query := `INSERT INTO tasks (` + taskColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := s.pool.Exec(ctx, query,
		t.ID,
		t.UserID,
		t.Title,
		t.Description,
		t.Application,
		t.Complexity,
		t.DeadlineDate,
		t.Status,
		t.CreatedAt,
		t.UpdatedAt,
		t.StartedAt,
		t.ClosedAt,
		t.ArchivedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return repo.ErrAlreadyExists
		}
		logger.Error("Repository: failed to insert task", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("inserting task: %w", err)
	}

	warnIfSlow(start, slowQuery, "insert task")
	return nil
}

// Update overwrites the mutable columns. The owner and createdAt are never
// rewritten. Last write wins.
func (s *Storage) Update(ctx context.Context, t *task.Task) error {
	start := time.Now()

	query := `UPDATE tasks
			SET title = $1,
				description = $2,
				application = $3,
				complexity = $4,
				deadline_date = $5,
				status = $6,
				updated_at = $7,
				started_at = $8,
				closed_at = $9,
				archived_at = $10
			WHERE id = $11`

	tag, err := s.pool.Exec(ctx, query,
		t.Title,
		t.Description,
		t.Application,
		t.Complexity,
		t.DeadlineDate,
		t.Status,
		t.UpdatedAt,
		t.StartedAt,
		t.ClosedAt,
		t.ArchivedAt,
		t.ID,
	)
	if err != nil {
		logger.Error("Repository: failed to update task", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("updating task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}

	warnIfSlow(start, slowQuery, "update task")
	return nil
}

func (s *Storage) GetByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	start := time.Now()

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	t, err := scanTask(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: failed to get task", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("getting task: %w", err)
	}

	warnIfSlow(start, slowQuery, "get task")
	return t, nil
}

// FindByOwner pushes the whole filter down to SQL. Ordering and paging are
// left to the caller.
func (s *Storage) FindByOwner(ctx context.Context, filter task.Filter) ([]*task.Task, error) {
	start := time.Now()

	where, args := filterClause(filter)
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE ` + where + ` ORDER BY created_at, id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		logger.Error("Repository: failed to list tasks", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	defer rows.Close()

	tasks := []*task.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			logger.Error("Repository: failed to scan task", err)
			return nil, fmt.Errorf("scanning task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		logger.Error("Repository: row iteration failed", err)
		return nil, fmt.Errorf("iterating rows: %w", err)
	}

	warnIfSlow(start, slowListBase+slowListPerItem*time.Duration(len(tasks)), "list tasks")
	return tasks, nil
}

func (s *Storage) CreateNote(ctx context.Context, n *task.Note) error {
	start := time.Now()

	query := `INSERT INTO task_notes (id, task_id, user_id, content, created_at)
		SELECT $1::uuid, $2::uuid, $3::text, $4::text, $5::timestamptz
		WHERE EXISTS (SELECT 1 FROM tasks WHERE id = $2)
		RETURNING seq`

	err := s.pool.QueryRow(ctx, query, n.ID, n.TaskID, n.UserID, n.Content, n.CreatedAt).Scan(&n.Seq)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repo.ErrNotFound
		}
		logger.Error("Repository: failed to insert note", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("inserting note: %w", err)
	}

	warnIfSlow(start, slowQuery, "insert note")
	return nil
}

func (s *Storage) NotesByTask(ctx context.Context, taskID uuid.UUID) ([]*task.Note, error) {
	start := time.Now()

	query := `SELECT id, task_id, user_id, content, created_at, seq
		FROM task_notes
		WHERE task_id = $1
		ORDER BY created_at, seq`

	rows, err := s.pool.Query(ctx, query, taskID)
	if err != nil {
		logger.Error("Repository: failed to list notes", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("listing notes: %w", err)
	}
	defer rows.Close()

	notes := []*task.Note{}
	for rows.Next() {
		n := &task.Note{}
		if err := rows.Scan(&n.ID, &n.TaskID, &n.UserID, &n.Content, &n.CreatedAt, &n.Seq); err != nil {
			logger.Error("Repository: failed to scan note", err)
			return nil, fmt.Errorf("scanning note: %w", err)
		}
		n.CreatedAt = n.CreatedAt.UTC()
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		logger.Error("Repository: row iteration failed", err)
		return nil, fmt.Errorf("iterating rows: %w", err)
	}

	warnIfSlow(start, slowListBase+slowListPerItem*time.Duration(len(notes)), "list notes")
	return notes, nil
}

func filterClause(f task.Filter) (string, []any) {
	conds := []string{"user_id = $1"}
	args := []any{f.UserID}

	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, strings.ReplaceAll(cond, "?", "$"+strconv.Itoa(len(args))))
	}

	if f.Archived != nil {
		if *f.Archived {
			add("status = ?", task.StatusClosed)
		} else {
			add("status <> ?", task.StatusClosed)
		}
	}
	if f.Application != "" {
		add("application = ?", f.Application)
	}
	if f.Complexity != "" {
		add("complexity = ?", f.Complexity)
	}
	return strings.Join(conds, " AND "), args
}

func scanTask(row pgx.Row) (*task.Task, error) {
	t := &task.Task{}
	err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.Title,
		&t.Description,
		&t.Application,
		&t.Complexity,
		&t.DeadlineDate,
		&t.Status,
		&t.CreatedAt,
		&t.UpdatedAt,
		&t.StartedAt,
		&t.ClosedAt,
		&t.ArchivedAt,
	)
	if err != nil {
		return nil, err
	}

	t.DeadlineDate = task.DateOf(t.DeadlineDate)
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	t.StartedAt = utc(t.StartedAt)
	t.ClosedAt = utc(t.ClosedAt)
	t.ArchivedAt = utc(t.ArchivedAt)
	return t, nil
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

func warnIfSlow(start time.Time, limit time.Duration, op string) {
	if elapsed := time.Since(start); elapsed > limit {
		logger.Warn("Repository: slow query", zap.String("op", op), zap.Duration("ms", elapsed))
	}
}
