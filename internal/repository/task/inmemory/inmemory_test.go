package inmemory_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"productivityTracker/internal/models/task"
	"productivityTracker/internal/repository"
	"productivityTracker/internal/repository/task/inmemory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTask(owner string, status task.Status) *task.Task {
	now := time.Now().UTC()
	t := &task.Task{
		ID:           uuid.New(),
		UserID:       owner,
		Title:        "Test Task",
		Application:  "billing",
		Complexity:   task.ComplexityMedium,
		DeadlineDate: task.DateOf(now.AddDate(0, 0, 7)),
		Status:       status,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if status == task.StatusClosed {
		t.StartedAt = &now
		t.ClosedAt = &now
		t.ArchivedAt = &now
	}
	return t
}

func TestTaskStorage_HealthCheck(t *testing.T) {
	storage := inmemory.NewTaskStorage()
	assert.NoError(t, storage.HealthCheck(context.Background()))
}

func TestTaskStorage_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewTaskStorage()

	taskToCreate := newTask("u1", task.StatusOpen)
	require.NoError(t, storage.Create(ctx, taskToCreate))

	retrieved, err := storage.GetByID(ctx, taskToCreate.ID)
	require.NoError(t, err)
	assert.Equal(t, "Test Task", retrieved.Title)
	assert.Equal(t, "u1", retrieved.UserID)

	// Mutating the returned copy does not reach the store.
	retrieved.Title = "changed"
	again, err := storage.GetByID(ctx, taskToCreate.ID)
	require.NoError(t, err)
	assert.Equal(t, "Test Task", again.Title)

	assert.ErrorIs(t, storage.Create(ctx, taskToCreate), repository.ErrAlreadyExists)

	_, err = storage.GetByID(ctx, uuid.New())
	assert.Equal(t, repository.ErrNotFound, err)
}

func TestTaskStorage_Update(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewTaskStorage()

	taskToCreate := newTask("u1", task.StatusOpen)
	require.NoError(t, storage.Create(ctx, taskToCreate))

	updated := taskToCreate.Clone()
	updated.Title = "Updated Title"
	updated.Status = task.StatusInProgress
	updated.UserID = "intruder"
	require.NoError(t, storage.Update(ctx, updated))

	retrieved, err := storage.GetByID(ctx, taskToCreate.ID)
	require.NoError(t, err)
	assert.Equal(t, "Updated Title", retrieved.Title)
	assert.Equal(t, task.StatusInProgress, retrieved.Status)
	assert.Equal(t, "u1", retrieved.UserID)

	missing := newTask("u1", task.StatusOpen)
	assert.Equal(t, repository.ErrNotFound, storage.Update(ctx, missing))
}

func TestTaskStorage_FindByOwner(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewTaskStorage()

	open := newTask("u1", task.StatusOpen)
	closed := newTask("u1", task.StatusClosed)
	foreign := newTask("u2", task.StatusOpen)
	crm := newTask("u1", task.StatusInProgress)
	crm.Application = "crm"
	started := time.Now().UTC()
	crm.StartedAt = &started

	for _, tk := range []*task.Task{open, closed, foreign, crm} {
		require.NoError(t, storage.Create(ctx, tk))
	}

	archived := false
	tests := []struct {
		name   string
		filter task.Filter
		want   []uuid.UUID
	}{
		{name: "owner only", filter: task.Filter{UserID: "u1"}, want: []uuid.UUID{open.ID, closed.ID, crm.ID}},
		{name: "active view", filter: task.Filter{UserID: "u1", Archived: &archived}, want: []uuid.UUID{open.ID, crm.ID}},
		{name: "application", filter: task.Filter{UserID: "u1", Application: "crm"}, want: []uuid.UUID{crm.ID}},
		{name: "complexity", filter: task.Filter{UserID: "u1", Complexity: task.ComplexityHigh}, want: []uuid.UUID{}},
		{name: "unknown owner", filter: task.Filter{UserID: "nobody"}, want: []uuid.UUID{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tasks, err := storage.FindByOwner(ctx, tt.filter)
			require.NoError(t, err)
			got := make([]uuid.UUID, 0, len(tasks))
			for _, tk := range tasks {
				got = append(got, tk.ID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTaskStorage_Notes(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewTaskStorage()

	owner := newTask("u1", task.StatusOpen)
	require.NoError(t, storage.Create(ctx, owner))

	at := time.Now().UTC()
	first := &task.Note{ID: uuid.New(), TaskID: owner.ID, UserID: "u1", Content: "first", CreatedAt: at}
	second := &task.Note{ID: uuid.New(), TaskID: owner.ID, UserID: "u1", Content: "second", CreatedAt: at}
	earlier := &task.Note{ID: uuid.New(), TaskID: owner.ID, UserID: "u1", Content: "earlier", CreatedAt: at.Add(-time.Minute)}

	require.NoError(t, storage.CreateNote(ctx, first))
	require.NoError(t, storage.CreateNote(ctx, second))
	require.NoError(t, storage.CreateNote(ctx, earlier))
	assert.Less(t, first.Seq, second.Seq)

	notes, err := storage.NotesByTask(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, notes, 3)
	assert.Equal(t, "earlier", notes[0].Content)
	assert.Equal(t, "first", notes[1].Content)
	assert.Equal(t, "second", notes[2].Content)

	orphan := &task.Note{ID: uuid.New(), TaskID: uuid.New(), Content: "x", CreatedAt: at}
	assert.Equal(t, repository.ErrNotFound, storage.CreateNote(ctx, orphan))

	empty, err := storage.NotesByTask(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestTaskStorage_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewTaskStorage()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tk := newTask(fmt.Sprintf("u%d", i%3), task.StatusOpen)
			assert.NoError(t, storage.Create(ctx, tk))
			_, err := storage.FindByOwner(ctx, task.Filter{UserID: tk.UserID})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	total := 0
	for i := 0; i < 3; i++ {
		tasks, err := storage.FindByOwner(ctx, task.Filter{UserID: fmt.Sprintf("u%d", i)})
		require.NoError(t, err)
		total += len(tasks)
	}
	assert.Equal(t, 50, total)
}
