package handlers

import (
	"context"

	"productivityTracker/internal/lifecycle"
	"productivityTracker/internal/models/task"
	"productivityTracker/internal/query"
	"productivityTracker/internal/report"

	"github.com/google/uuid"
)

type Service interface {
	HealthCheck(ctx context.Context) error
	CreateTask(ctx context.Context, owner string, f task.Fields, initial *task.Status) (*task.Task, error)
	UpdateTask(ctx context.Context, owner string, id uuid.UUID, f task.Fields) (*task.Task, error)
	AppendNote(ctx context.Context, owner string, id uuid.UUID, content string) (*task.Task, error)
	UpdateStatus(ctx context.Context, owner string, id uuid.UUID, change lifecycle.StatusChange) (*task.Task, error)
	GetTask(ctx context.Context, owner string, id uuid.UUID) (*task.Task, error)
	ListTasks(ctx context.Context, owner string, params query.Params) (*query.Page, error)
	GenerateReport(ctx context.Context, owner string, req report.Request) (*report.Report, error)
}
