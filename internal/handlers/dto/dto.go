// Package dto holds the JSON shapes of the HTTP API.
package dto

import (
	"time"

	"productivityTracker/internal/models/task"
	"productivityTracker/internal/query"

	"github.com/google/uuid"
)

// TaskRequest is the body of create and update. Status is honoured on create only.
type TaskRequest struct {
	Title        string  `json:"title"`
	Description  *string `json:"description,omitempty"`
	Application  string  `json:"application"`
	Complexity   string  `json:"complexity"`
	DeadlineDate string  `json:"deadlineDate"`
	Status       *string `json:"status,omitempty"`
}

type NoteRequest struct {
	Content string `json:"content"`
}

type StatusRequest struct {
	Status    string  `json:"status"`
	StartDate *string `json:"startDate,omitempty"`
	CloseDate *string `json:"closeDate,omitempty"`
}

type NoteResponse struct {
	ID        uuid.UUID `json:"id"`
	TaskID    uuid.UUID `json:"taskId"`
	AuthorID  string    `json:"authorId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

type TaskResponse struct {
	ID           uuid.UUID      `json:"id"`
	UserID       string         `json:"userId"`
	Title        string         `json:"title"`
	Description  *string        `json:"description"`
	Application  string         `json:"application"`
	Complexity   string         `json:"complexity"`
	DeadlineDate string         `json:"deadlineDate"`
	Status       string         `json:"status"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
	StartedAt    *time.Time     `json:"startedAt"`
	ClosedAt     *time.Time     `json:"closedAt"`
	ArchivedAt   *time.Time     `json:"archivedAt"`
	Notes        []NoteResponse `json:"notes"`
}

type PageResponse struct {
	Content         []TaskResponse `json:"content"`
	Page            int            `json:"page"`
	Size            int            `json:"size"`
	TotalElements   int64          `json:"totalElements"`
	TotalPages      int            `json:"totalPages"`
	IncludeArchived bool           `json:"includeArchived"`
}

func FromTask(t *task.Task) TaskResponse {
	notes := make([]NoteResponse, len(t.Notes))
	for i, n := range t.Notes {
		notes[i] = NoteResponse{
			ID:        n.ID,
			TaskID:    n.TaskID,
			AuthorID:  n.UserID,
			Content:   n.Content,
			CreatedAt: n.CreatedAt.UTC(),
		}
	}

	return TaskResponse{
		ID:           t.ID,
		UserID:       t.UserID,
		Title:        t.Title,
		Description:  t.Description,
		Application:  t.Application,
		Complexity:   t.Complexity.String(),
		DeadlineDate: task.FormatDate(t.DeadlineDate),
		Status:       t.Status.String(),
		CreatedAt:    t.CreatedAt.UTC(),
		UpdatedAt:    t.UpdatedAt.UTC(),
		StartedAt:    utc(t.StartedAt),
		ClosedAt:     utc(t.ClosedAt),
		ArchivedAt:   utc(t.ArchivedAt),
		Notes:        notes,
	}
}

func FromTaskList(tasks []*task.Task) []TaskResponse {
	result := make([]TaskResponse, len(tasks))
	for i, t := range tasks {
		result[i] = FromTask(t)
	}
	return result
}

func FromPage(p *query.Page) PageResponse {
	return PageResponse{
		Content:         FromTaskList(p.Content),
		Page:            p.Page,
		Size:            p.Size,
		TotalElements:   p.TotalElements,
		TotalPages:      p.TotalPages,
		IncludeArchived: p.IncludeArchived,
	}
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
