package task

import (
	"time"

	"github.com/google/uuid"
)

type Task struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	UserID       string     `json:"userId" db:"user_id"`
	Title        string     `json:"title" db:"title"`
	Description  *string    `json:"description,omitempty" db:"description"`
	Application  string     `json:"application" db:"application"`
	Complexity   Complexity `json:"complexity" db:"complexity"`
	DeadlineDate time.Time  `json:"deadlineDate" db:"deadline_date"`
	Status       Status     `json:"status" db:"status"`
	CreatedAt    time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time  `json:"updatedAt" db:"updated_at"`
	StartedAt    *time.Time `json:"startedAt,omitempty" db:"started_at"`
	ClosedAt     *time.Time `json:"closedAt,omitempty" db:"closed_at"`
	ArchivedAt   *time.Time `json:"archivedAt,omitempty" db:"archived_at"`

	// Notes are not persisted with the task row; the service attaches them on read.
	Notes []*Note `json:"notes" db:"-"`
}

type Note struct {
	ID        uuid.UUID `json:"id" db:"id"`
	TaskID    uuid.UUID `json:"taskId" db:"task_id"`
	UserID    string    `json:"authorId" db:"user_id"`
	Content   string    `json:"content" db:"content"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	Seq       int64     `json:"-" db:"seq"`
}

// Fields are the caller-editable attributes of a task.
type Fields struct {
	Title        string
	Description  *string
	Application  string
	Complexity   Complexity
	DeadlineDate time.Time
}

func (t *Task) IsArchived() bool {
	return t.Status == StatusClosed
}

// Clone returns a deep copy, notes included.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	c.Description = cloneString(t.Description)
	c.StartedAt = cloneTime(t.StartedAt)
	c.ClosedAt = cloneTime(t.ClosedAt)
	c.ArchivedAt = cloneTime(t.ArchivedAt)
	if t.Notes != nil {
		c.Notes = make([]*Note, len(t.Notes))
		for i, n := range t.Notes {
			nc := *n
			c.Notes[i] = &nc
		}
	}
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
