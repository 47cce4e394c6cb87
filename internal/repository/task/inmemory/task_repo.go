package inmemory

import (
	"context"
	"sync"

	"productivityTracker/internal/logger"
	"productivityTracker/internal/models/task"
	repo "productivityTracker/internal/repository"

	"github.com/google/uuid"
)

// TaskStorage keeps tasks and notes in process memory. Records are copied on
// the way in and out, so callers never share state with the store.
type TaskStorage struct {
	mtx     *sync.RWMutex
	storage map[uuid.UUID]*task.Task
	ids     []uuid.UUID
	notes   map[uuid.UUID][]*task.Note
	seq     int64
}

func NewTaskStorage() *TaskStorage {
	return &TaskStorage{
		mtx:     &sync.RWMutex{},
		storage: make(map[uuid.UUID]*task.Task),
		ids:     []uuid.UUID{},
		notes:   make(map[uuid.UUID][]*task.Note),
	}
}

func (s *TaskStorage) HealthCheck(ctx context.Context) error {
	logger.Debug("Repository: in-memory storage is up")
	return nil
}

func (s *TaskStorage) Create(ctx context.Context, taskToCreate *task.Task) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.storage[taskToCreate.ID]; ok {
		return repo.ErrAlreadyExists
	}

	s.storage[taskToCreate.ID] = stripNotes(taskToCreate)
	s.ids = append(s.ids, taskToCreate.ID)
	return nil
}

// Update overwrites the stored row. Last write wins.
func (s *TaskStorage) Update(ctx context.Context, taskToUpdate *task.Task) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	existing, ok := s.storage[taskToUpdate.ID]
	if !ok {
		return repo.ErrNotFound
	}

	updated := stripNotes(taskToUpdate)
	// id, owner and createdAt are fixed at creation.
	updated.UserID = existing.UserID
	updated.CreatedAt = existing.CreatedAt
	s.storage[taskToUpdate.ID] = updated
	return nil
}

func (s *TaskStorage) GetByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	taskToGet, ok := s.storage[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return taskToGet.Clone(), nil
}

// FindByOwner returns the owner's tasks matching filter in insertion order.
func (s *TaskStorage) FindByOwner(ctx context.Context, filter task.Filter) ([]*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := []*task.Task{}
	for _, id := range s.ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		t := s.storage[id]
		if !filter.Match(t) {
			continue
		}
		res = append(res, t.Clone())
	}
	return res, nil
}

func (s *TaskStorage) CreateNote(ctx context.Context, n *task.Note) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.storage[n.TaskID]; !ok {
		return repo.ErrNotFound
	}

	s.seq++
	n.Seq = s.seq
	stored := *n
	s.notes[n.TaskID] = append(s.notes[n.TaskID], &stored)
	return nil
}

func (s *TaskStorage) NotesByTask(ctx context.Context, taskID uuid.UUID) ([]*task.Note, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	stored := s.notes[taskID]
	res := make([]*task.Note, len(stored))
	for i, n := range stored {
		c := *n
		res[i] = &c
	}
	task.SortNotes(res)
	return res, nil
}

func stripNotes(t *task.Task) *task.Task {
	c := t.Clone()
	c.Notes = nil
	return c
}
