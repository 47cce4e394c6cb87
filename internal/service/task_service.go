package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"productivityTracker/internal/lifecycle"
	"productivityTracker/internal/logger"
	"productivityTracker/internal/models/task"
	"productivityTracker/internal/query"
	"productivityTracker/internal/report"
	rep "productivityTracker/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	resourceTask = "task"

	// noteLoaders bounds the concurrent note reads for one list page.
	noteLoaders = 8
)

type TaskService struct {
	repo TaskRepository
	now  func() time.Time
}

type Option func(*TaskService)

// WithClock replaces the wall clock. "Today" is always the UTC date of now().
func WithClock(now func() time.Time) Option {
	return func(s *TaskService) {
		s.now = now
	}
}

func NewTaskService(repo TaskRepository, opts ...Option) *TaskService {
	s := &TaskService{
		repo: repo,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *TaskService) HealthCheck(ctx context.Context) error {
	if err := s.repo.HealthCheck(ctx); err != nil {
		logger.Error("Service: health check failed", err)
		return fmt.Errorf("service health check: %w", err)
	}
	return nil
}

func (s *TaskService) CreateTask(ctx context.Context, owner string, f task.Fields, initial *task.Status) (*task.Task, error) {
	t, err := lifecycle.New(owner, f, initial, s.now())
	if err != nil {
		return nil, toBusinessError(err)
	}
	if err := lifecycle.CheckInvariants(t); err != nil {
		return nil, toBusinessError(err)
	}

	if err := s.repo.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}

	logger.Info("Service: task created",
		zap.String("task_id", t.ID.String()),
		zap.String("user_id", owner),
		zap.String("status", t.Status.String()))
	return t, nil
}

func (s *TaskService) GetTask(ctx context.Context, owner string, id uuid.UUID) (*task.Task, error) {
	t, err := s.loadOwned(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if err := s.attachNotes(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *TaskService) UpdateTask(ctx context.Context, owner string, id uuid.UUID, f task.Fields) (*task.Task, error) {
	t, err := s.loadOwned(ctx, owner, id)
	if err != nil {
		return nil, err
	}

	if err := lifecycle.ApplyUpdate(t, f, s.now()); err != nil {
		return nil, toBusinessError(err)
	}
	if err := s.save(ctx, t); err != nil {
		return nil, err
	}
	if err := s.attachNotes(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// AppendNote adds a note authored by owner and refreshes the task's updatedAt.
func (s *TaskService) AppendNote(ctx context.Context, owner string, id uuid.UUID, content string) (*task.Task, error) {
	t, err := s.loadOwned(ctx, owner, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	note, err := lifecycle.NewNote(t, owner, content, now)
	if err != nil {
		return nil, toBusinessError(err)
	}
	if err := s.repo.CreateNote(ctx, note); err != nil {
		return nil, fmt.Errorf("creating note: %w", err)
	}

	t.UpdatedAt = now.UTC()
	if err := s.save(ctx, t); err != nil {
		return nil, err
	}
	if err := s.attachNotes(ctx, t); err != nil {
		return nil, err
	}

	logger.Info("Service: note appended",
		zap.String("task_id", t.ID.String()),
		zap.String("note_id", note.ID.String()))
	return t, nil
}

func (s *TaskService) UpdateStatus(ctx context.Context, owner string, id uuid.UUID, change lifecycle.StatusChange) (*task.Task, error) {
	t, err := s.loadOwned(ctx, owner, id)
	if err != nil {
		return nil, err
	}

	from := t.Status
	changed, err := lifecycle.Transition(t, change, s.now())
	if err != nil {
		return nil, toBusinessError(err)
	}
	if changed {
		if err := s.save(ctx, t); err != nil {
			return nil, err
		}
		logger.Info("Service: status changed",
			zap.String("task_id", t.ID.String()),
			zap.String("from", from.String()),
			zap.String("to", t.Status.String()))
	}

	if err := s.attachNotes(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// ListTasks returns one page of owner's tasks, each with its notes.
func (s *TaskService) ListTasks(ctx context.Context, owner string, params query.Params) (*query.Page, error) {
	n := params.Normalize()

	tasks, err := s.repo.FindByOwner(ctx, n.Filter(owner))
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	page := query.Paginate(owner, tasks, n)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(noteLoaders)
	for _, t := range page.Content {
		t := t
		g.Go(func() error {
			return s.attachNotes(gctx, t)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return page, nil
}

func (s *TaskService) GenerateReport(ctx context.Context, owner string, req report.Request) (*report.Report, error) {
	if req.Window == "" {
		req.Window = report.Monthly
	}
	if req.SortField == "" {
		req.SortField = report.SortCompletionDate
	}
	if req.SortDirection == "" {
		req.SortDirection = report.Desc
	}
	if req.Complexity != "" && !req.Complexity.Valid() {
		return nil, NewValidationError("complexity", "unknown complexity "+req.Complexity.String())
	}

	tasks, err := s.repo.FindByOwner(ctx, req.Filter(owner))
	if err != nil {
		return nil, fmt.Errorf("loading report tasks: %w", err)
	}

	return report.Generate(owner, tasks, req, s.now()), nil
}

// loadOwned is the single load-and-authorize step. A missing task is reported
// before ownership, and ownership before any lifecycle rule.
func (s *TaskService) loadOwned(ctx context.Context, owner string, id uuid.UUID) (*task.Task, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			logger.Info("Service: task not found", zap.String("target_id", id.String()))
			return nil, NewNotFound(resourceTask, id.String())
		}
		return nil, fmt.Errorf("getting task: %w", err)
	}

	if t.UserID != owner {
		logger.Warn("Service: access to foreign task",
			zap.String("target_id", id.String()),
			zap.String("user_id", owner))
		return nil, NewForbidden(resourceTask, id.String())
	}
	return t, nil
}

func (s *TaskService) save(ctx context.Context, t *task.Task) error {
	if err := lifecycle.CheckInvariants(t); err != nil {
		return toBusinessError(err)
	}
	if err := s.repo.Update(ctx, t); err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			return NewNotFound(resourceTask, t.ID.String())
		}
		return fmt.Errorf("updating task: %w", err)
	}
	return nil
}

func (s *TaskService) attachNotes(ctx context.Context, t *task.Task) error {
	notes, err := s.repo.NotesByTask(ctx, t.ID)
	if err != nil {
		return fmt.Errorf("loading notes of task %s: %w", t.ID, err)
	}
	if notes == nil {
		notes = []*task.Note{}
	}
	task.SortNotes(notes)
	t.Notes = notes
	return nil
}

func toBusinessError(err error) error {
	var re *lifecycle.RuleError
	if !errors.As(err, &re) {
		return err
	}
	var be *BusinessError
	switch re.Kind {
	case lifecycle.KindInvalidState:
		be = NewInvalidState(re.Message)
	default:
		be = NewValidationError(re.Field, re.Message)
	}
	be.Err = re
	return be
}
