// Package lifecycle holds the rules for creating and mutating a single task.
//
// Every function here is pure: it works on an already loaded task and an
// explicit clock value, and never touches storage. Ownership is checked by the
// caller before any of these functions run.
package lifecycle

import (
	"strings"
	"time"

	"productivityTracker/internal/models/task"

	"github.com/google/uuid"
)

// StatusChange is a requested status transition. StartDate and CloseDate are
// calendar dates (any time component is dropped).
type StatusChange struct {
	Status    task.Status
	StartDate *time.Time
	CloseDate *time.Time
}

// New builds a task for owner. A nil initial status means OPEN.
func New(owner string, f task.Fields, initial *task.Status, now time.Time) (*task.Task, error) {
	if strings.TrimSpace(owner) == "" {
		return nil, validation("userId", "owner is required")
	}
	if err := ValidateFields(f); err != nil {
		return nil, err
	}

	status := task.StatusOpen
	if initial != nil {
		if !initial.Valid() {
			return nil, validation("status", "unknown status "+string(*initial))
		}
		status = *initial
	}

	now = now.UTC()
	t := &task.Task{
		ID:        uuid.New(),
		UserID:    owner,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
		Notes:     []*task.Note{},
	}
	setFields(t, f)

	switch status {
	case task.StatusInProgress:
		t.StartedAt = timePtr(now)
	case task.StatusClosed:
		t.StartedAt = timePtr(now)
		t.ClosedAt = timePtr(now)
		t.ArchivedAt = timePtr(now)
	}
	return t, nil
}

// ValidateFields checks the required editable attributes.
func ValidateFields(f task.Fields) error {
	if strings.TrimSpace(f.Title) == "" {
		return validation("title", "title is required")
	}
	if strings.TrimSpace(f.Application) == "" {
		return validation("application", "application is required")
	}
	if f.Complexity == "" {
		return validation("complexity", "complexity is required")
	}
	if !f.Complexity.Valid() {
		return validation("complexity", "unknown complexity "+string(f.Complexity))
	}
	if f.DeadlineDate.IsZero() {
		return validation("deadlineDate", "deadline date is required")
	}
	return nil
}

// ApplyUpdate overwrites the editable attributes of a non-archived task.
func ApplyUpdate(t *task.Task, f task.Fields, now time.Time) error {
	if err := EnsureMutable(t); err != nil {
		return err
	}
	if err := ValidateFields(f); err != nil {
		return err
	}
	setFields(t, f)
	t.UpdatedAt = now.UTC()
	return nil
}

// NewNote builds a note for t. It does not append it; the store owns note order.
func NewNote(t *task.Task, author, content string, now time.Time) (*task.Note, error) {
	if err := EnsureMutable(t); err != nil {
		return nil, err
	}
	if strings.TrimSpace(content) == "" {
		return nil, validation("content", "note content is required")
	}
	return &task.Note{
		ID:        uuid.New(),
		TaskID:    t.ID,
		UserID:    author,
		Content:   content,
		CreatedAt: now.UTC(),
	}, nil
}

// EnsureMutable rejects any edit of an archived task.
func EnsureMutable(t *task.Task) error {
	if t.IsArchived() {
		return invalidState("task is archived and cannot be modified")
	}
	return nil
}

// Transition applies change to t. It reports whether t was modified and must
// be written back; a repeated close of an archived task is a successful no-op.
func Transition(t *task.Task, change StatusChange, now time.Time) (bool, error) {
	if !change.Status.Valid() {
		return false, validation("status", "unknown status "+string(change.Status))
	}

	now = now.UTC()
	today := task.DateOf(now)

	if t.Status == task.StatusClosed {
		if change.Status == task.StatusClosed {
			return false, nil
		}
		return false, invalidState("task is archived and cannot be reopened")
	}

	if change.Status == t.Status {
		t.UpdatedAt = now
		return true, nil
	}

	switch change.Status {
	case task.StatusInProgress:
		start := now
		if change.StartDate != nil {
			startDate := task.DateOf(*change.StartDate)
			if startDate.After(today) {
				return false, validation("startDate", "start date cannot be in the future")
			}
			start = startDate
		}
		t.Status = task.StatusInProgress
		t.StartedAt = timePtr(start)
		t.UpdatedAt = now
		return true, nil

	case task.StatusClosed:
		if err := closeTask(t, change, now, today); err != nil {
			return false, err
		}
		return true, nil

	case task.StatusOpen:
		// Moving back to OPEN keeps startedAt as history.
		t.Status = task.StatusOpen
		t.UpdatedAt = now
		return true, nil
	}
	return false, validation("status", "unsupported status "+string(change.Status))
}

func closeTask(t *task.Task, change StatusChange, now, today time.Time) error {
	var startDate, closeDate *time.Time
	if change.StartDate != nil {
		d := task.DateOf(*change.StartDate)
		if d.After(today) {
			return validation("startDate", "start date cannot be in the future")
		}
		startDate = &d
	}
	if change.CloseDate != nil {
		d := task.DateOf(*change.CloseDate)
		if d.After(today) {
			return validation("closeDate", "close date cannot be in the future")
		}
		closeDate = &d
	}

	effectiveStart := startDate
	if effectiveStart == nil && t.StartedAt != nil {
		d := task.DateOf(*t.StartedAt)
		effectiveStart = &d
	}
	if effectiveStart == nil {
		return validation("startDate", "start date is required before closing a task")
	}

	effectiveClose := today
	if closeDate != nil {
		effectiveClose = *closeDate
	}
	if effectiveClose.Before(*effectiveStart) {
		return validation("closeDate", "close date must be on or after the start date")
	}

	if t.StartedAt == nil {
		t.StartedAt = timePtr(*effectiveStart)
	}
	t.Status = task.StatusClosed
	t.ClosedAt = timePtr(effectiveClose)
	t.ArchivedAt = timePtr(effectiveClose)
	t.UpdatedAt = now
	return nil
}

// CheckInvariants verifies the timestamp invariants tied to status.
func CheckInvariants(t *task.Task) error {
	archived := t.Status == task.StatusClosed
	if (t.ArchivedAt != nil) != archived {
		return invalidState("archivedAt must be set exactly when the task is closed")
	}
	if (t.Status == task.StatusInProgress || archived) && t.StartedAt == nil {
		return invalidState("startedAt must be set once work has started")
	}
	if archived && (t.ClosedAt == nil || !t.ClosedAt.Equal(*t.ArchivedAt)) {
		return invalidState("closedAt and archivedAt must match")
	}
	return nil
}

func setFields(t *task.Task, f task.Fields) {
	t.Title = strings.TrimSpace(f.Title)
	t.Description = f.Description
	t.Application = strings.TrimSpace(f.Application)
	t.Complexity = f.Complexity
	t.DeadlineDate = task.DateOf(f.DeadlineDate)
}

func timePtr(t time.Time) *time.Time {
	return &t
}
