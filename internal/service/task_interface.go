package service

import (
	"context"

	"productivityTracker/internal/models/task"

	"github.com/google/uuid"
)

// TaskRepository is the Task Store. Tasks come back without notes; notes are
// read separately through NotesByTask.
type TaskRepository interface {
	HealthCheck(ctx context.Context) error
	Create(ctx context.Context, t *task.Task) error
	Update(ctx context.Context, t *task.Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*task.Task, error)
	FindByOwner(ctx context.Context, filter task.Filter) ([]*task.Task, error)

	// CreateNote stores n and assigns n.Seq.
	CreateNote(ctx context.Context, n *task.Note) error
	NotesByTask(ctx context.Context, taskID uuid.UUID) ([]*task.Note, error)
}
