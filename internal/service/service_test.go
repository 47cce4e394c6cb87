package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"productivityTracker/internal/lifecycle"
	"productivityTracker/internal/models/task"
	"productivityTracker/internal/query"
	"productivityTracker/internal/report"
	"productivityTracker/internal/repository"
	"productivityTracker/internal/repository/task/inmemory"
	"productivityTracker/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockTaskRepository is a testify mock of the Task Store.
type MockTaskRepository struct {
	mock.Mock
}

func (m *MockTaskRepository) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockTaskRepository) Create(ctx context.Context, t *task.Task) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTaskRepository) Update(ctx context.Context, t *task.Task) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Task), args.Error(1)
}

func (m *MockTaskRepository) FindByOwner(ctx context.Context, filter task.Filter) ([]*task.Task, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*task.Task), args.Error(1)
}

func (m *MockTaskRepository) CreateNote(ctx context.Context, n *task.Note) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func (m *MockTaskRepository) NotesByTask(ctx context.Context, taskID uuid.UUID) ([]*task.Note, error) {
	args := m.Called(ctx, taskID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*task.Note), args.Error(1)
}

var _ service.TaskRepository = (*MockTaskRepository)(nil)

var now = time.Date(2024, 5, 15, 10, 30, 0, 0, time.UTC)

func clock() time.Time { return now }

func fields() task.Fields {
	return task.Fields{
		Title:        "Prepare release",
		Application:  "billing",
		Complexity:   task.ComplexityMedium,
		DeadlineDate: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	}
}

func storedTask(owner string, status task.Status) *task.Task {
	t := &task.Task{
		ID:           uuid.New(),
		UserID:       owner,
		Title:        "Stored",
		Application:  "billing",
		Complexity:   task.ComplexityLow,
		DeadlineDate: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Status:       status,
		CreatedAt:    now.AddDate(0, 0, -10),
		UpdatedAt:    now.AddDate(0, 0, -10),
	}
	if status != task.StatusOpen {
		started := now.AddDate(0, 0, -5)
		t.StartedAt = &started
	}
	if status == task.StatusClosed {
		closed := task.DateOf(now.AddDate(0, 0, -1))
		t.ClosedAt = &closed
		t.ArchivedAt = &closed
	}
	return t
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	var be *service.BusinessError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, code, be.Code)
}

func TestTaskService_HealthCheck(t *testing.T) {
	tests := []struct {
		name        string
		setupMock   func(*MockTaskRepository)
		expectError bool
	}{
		{
			name: "success - health check passes",
			setupMock: func(m *MockTaskRepository) {
				m.On("HealthCheck", mock.Anything).Return(nil)
			},
		},
		{
			name: "error - health check fails",
			setupMock: func(m *MockTaskRepository) {
				m.On("HealthCheck", mock.Anything).Return(errors.New("db connection failed"))
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockTaskRepository)
			tt.setupMock(mockRepo)

			svc := service.NewTaskService(mockRepo)
			err := svc.HealthCheck(context.Background())

			if tt.expectError {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), "service health check")
			} else {
				assert.NoError(t, err)
			}
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestTaskService_CreateTask(t *testing.T) {
	inProgress := task.StatusInProgress

	tests := []struct {
		name      string
		fields    task.Fields
		initial   *task.Status
		setupMock func(*MockTaskRepository)
		errCode   string
		wantErr   bool
	}{
		{
			name:   "success - open by default",
			fields: fields(),
			setupMock: func(m *MockTaskRepository) {
				m.On("Create", mock.Anything, mock.MatchedBy(func(t *task.Task) bool {
					return t.Status == task.StatusOpen && t.UserID == "u1" && t.CreatedAt.Equal(now)
				})).Return(nil)
			},
		},
		{
			name:    "success - created in progress",
			fields:  fields(),
			initial: &inProgress,
			setupMock: func(m *MockTaskRepository) {
				m.On("Create", mock.Anything, mock.MatchedBy(func(t *task.Task) bool {
					return t.Status == task.StatusInProgress && t.StartedAt != nil
				})).Return(nil)
			},
		},
		{
			name:      "error - missing title",
			fields:    task.Fields{Application: "a", Complexity: task.ComplexityLow, DeadlineDate: now},
			setupMock: func(m *MockTaskRepository) {},
			errCode:   service.CodeValidationError,
		},
		{
			name:   "error - store failure is not a business error",
			fields: fields(),
			setupMock: func(m *MockTaskRepository) {
				m.On("Create", mock.Anything, mock.Anything).Return(errors.New("connection reset"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockTaskRepository)
			tt.setupMock(mockRepo)
			svc := service.NewTaskService(mockRepo, service.WithClock(clock))

			got, err := svc.CreateTask(context.Background(), "u1", tt.fields, tt.initial)

			switch {
			case tt.errCode != "":
				requireCode(t, err, tt.errCode)
			case tt.wantErr:
				require.Error(t, err)
				var be *service.BusinessError
				assert.False(t, errors.As(err, &be))
			default:
				require.NoError(t, err)
				assert.NotEqual(t, uuid.Nil, got.ID)
				assert.NotNil(t, got.Notes)
			}
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestTaskService_OwnershipBeforeArchival(t *testing.T) {
	archivedForeign := storedTask("someone-else", task.StatusClosed)
	missing := uuid.New()

	tests := []struct {
		name string
		call func(*service.TaskService, uuid.UUID) error
	}{
		{
			name: "update",
			call: func(s *service.TaskService, id uuid.UUID) error {
				_, err := s.UpdateTask(context.Background(), "u1", id, fields())
				return err
			},
		},
		{
			name: "append note",
			call: func(s *service.TaskService, id uuid.UUID) error {
				_, err := s.AppendNote(context.Background(), "u1", id, "hello")
				return err
			},
		},
		{
			name: "status",
			call: func(s *service.TaskService, id uuid.UUID) error {
				_, err := s.UpdateStatus(context.Background(), "u1", id, lifecycle.StatusChange{Status: task.StatusOpen})
				return err
			},
		},
		{
			name: "get",
			call: func(s *service.TaskService, id uuid.UUID) error {
				_, err := s.GetTask(context.Background(), "u1", id)
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name+" forbidden", func(t *testing.T) {
			mockRepo := new(MockTaskRepository)
			mockRepo.On("GetByID", mock.Anything, archivedForeign.ID).Return(archivedForeign.Clone(), nil)
			svc := service.NewTaskService(mockRepo, service.WithClock(clock))

			requireCode(t, tt.call(svc, archivedForeign.ID), service.CodeForbidden)
			mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
			mockRepo.AssertNotCalled(t, "CreateNote", mock.Anything, mock.Anything)
		})

		t.Run(tt.name+" not found", func(t *testing.T) {
			mockRepo := new(MockTaskRepository)
			mockRepo.On("GetByID", mock.Anything, missing).Return(nil, repository.ErrNotFound)
			svc := service.NewTaskService(mockRepo, service.WithClock(clock))

			requireCode(t, tt.call(svc, missing), service.CodeNotFound)
		})
	}
}

func TestTaskService_ArchivedTaskIsReadOnly(t *testing.T) {
	archived := storedTask("u1", task.StatusClosed)

	mockRepo := new(MockTaskRepository)
	mockRepo.On("GetByID", mock.Anything, archived.ID).Return(archived.Clone(), nil)
	svc := service.NewTaskService(mockRepo, service.WithClock(clock))
	ctx := context.Background()

	_, err := svc.UpdateTask(ctx, "u1", archived.ID, fields())
	requireCode(t, err, service.CodeInvalidState)

	_, err = svc.AppendNote(ctx, "u1", archived.ID, "late note")
	requireCode(t, err, service.CodeInvalidState)

	_, err = svc.UpdateStatus(ctx, "u1", archived.ID, lifecycle.StatusChange{Status: task.StatusInProgress})
	requireCode(t, err, service.CodeInvalidState)

	mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestTaskService_CloseTwiceIsNoop(t *testing.T) {
	archived := storedTask("u1", task.StatusClosed)

	mockRepo := new(MockTaskRepository)
	mockRepo.On("GetByID", mock.Anything, archived.ID).Return(archived.Clone(), nil)
	mockRepo.On("NotesByTask", mock.Anything, archived.ID).Return([]*task.Note{}, nil)
	svc := service.NewTaskService(mockRepo, service.WithClock(clock))

	got, err := svc.UpdateStatus(context.Background(), "u1", archived.ID, lifecycle.StatusChange{Status: task.StatusClosed})
	require.NoError(t, err)
	assert.True(t, archived.ClosedAt.Equal(*got.ClosedAt))
	mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestTaskService_UpdateStatus_Validation(t *testing.T) {
	open := storedTask("u1", task.StatusOpen)

	mockRepo := new(MockTaskRepository)
	mockRepo.On("GetByID", mock.Anything, open.ID).Return(open.Clone(), nil)
	svc := service.NewTaskService(mockRepo, service.WithClock(clock))

	// No start date anywhere.
	_, err := svc.UpdateStatus(context.Background(), "u1", open.ID, lifecycle.StatusChange{Status: task.StatusClosed})
	requireCode(t, err, service.CodeValidationError)

	future := now.AddDate(0, 0, 2)
	_, err = svc.UpdateStatus(context.Background(), "u1", open.ID, lifecycle.StatusChange{Status: task.StatusInProgress, StartDate: &future})
	requireCode(t, err, service.CodeValidationError)

	mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestTaskService_AppendNote(t *testing.T) {
	open := storedTask("u1", task.StatusOpen)
	existing := &task.Note{ID: uuid.New(), TaskID: open.ID, UserID: "u1", Content: "old", CreatedAt: now.Add(-time.Hour), Seq: 1}

	mockRepo := new(MockTaskRepository)
	mockRepo.On("GetByID", mock.Anything, open.ID).Return(open.Clone(), nil)
	mockRepo.On("CreateNote", mock.Anything, mock.MatchedBy(func(n *task.Note) bool {
		return n.TaskID == open.ID && n.UserID == "u1" && n.Content == "new" && n.CreatedAt.Equal(now)
	})).Return(nil)
	mockRepo.On("Update", mock.Anything, mock.MatchedBy(func(t *task.Task) bool {
		return t.UpdatedAt.Equal(now)
	})).Return(nil)
	mockRepo.On("NotesByTask", mock.Anything, open.ID).Return([]*task.Note{
		{ID: uuid.New(), TaskID: open.ID, UserID: "u1", Content: "new", CreatedAt: now, Seq: 2},
		existing,
	}, nil)
	svc := service.NewTaskService(mockRepo, service.WithClock(clock))

	got, err := svc.AppendNote(context.Background(), "u1", open.ID, "new")
	require.NoError(t, err)
	require.Len(t, got.Notes, 2)
	assert.Equal(t, "old", got.Notes[0].Content)
	assert.Equal(t, "new", got.Notes[1].Content)
	mockRepo.AssertExpectations(t)

	_, err = svc.AppendNote(context.Background(), "u1", open.ID, "   ")
	requireCode(t, err, service.CodeValidationError)
}

func TestTaskService_ListTasks(t *testing.T) {
	a := storedTask("u1", task.StatusOpen)
	b := storedTask("u1", task.StatusInProgress)
	b.DeadlineDate = a.DeadlineDate.AddDate(0, 0, -1)

	mockRepo := new(MockTaskRepository)
	mockRepo.On("FindByOwner", mock.Anything, mock.MatchedBy(func(f task.Filter) bool {
		return f.UserID == "u1" && f.Archived != nil && !*f.Archived
	})).Return([]*task.Task{a, b}, nil)
	mockRepo.On("NotesByTask", mock.Anything, mock.Anything).Return(nil, nil)
	svc := service.NewTaskService(mockRepo, service.WithClock(clock))

	page, err := svc.ListTasks(context.Background(), "u1", query.Params{Page: 0, Size: 500})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, query.MaxPageSize, page.Size)
	assert.Equal(t, int64(2), page.TotalElements)
	require.Len(t, page.Content, 2)
	assert.Equal(t, b.ID, page.Content[0].ID)
	for _, tk := range page.Content {
		assert.NotNil(t, tk.Notes)
	}
}

func TestTaskService_ListTasks_NoteFailure(t *testing.T) {
	a := storedTask("u1", task.StatusOpen)

	mockRepo := new(MockTaskRepository)
	mockRepo.On("FindByOwner", mock.Anything, mock.Anything).Return([]*task.Task{a}, nil)
	mockRepo.On("NotesByTask", mock.Anything, a.ID).Return(nil, errors.New("timeout"))
	svc := service.NewTaskService(mockRepo, service.WithClock(clock))

	_, err := svc.ListTasks(context.Background(), "u1", query.Params{Page: 1, Size: 10})
	assert.ErrorContains(t, err, "timeout")
}

func TestTaskService_GenerateReport(t *testing.T) {
	recent := storedTask("u1", task.StatusClosed)
	old := storedTask("u1", task.StatusClosed)
	longAgo := task.DateOf(now.AddDate(0, 0, -50))
	old.ClosedAt, old.ArchivedAt = &longAgo, &longAgo

	mockRepo := new(MockTaskRepository)
	mockRepo.On("FindByOwner", mock.Anything, task.Filter{UserID: "u1", Application: "billing"}).
		Return([]*task.Task{recent, old}, nil)
	svc := service.NewTaskService(mockRepo, service.WithClock(clock))

	r, err := svc.GenerateReport(context.Background(), "u1", report.Request{Window: report.Weekly, Application: "billing"})
	require.NoError(t, err)
	require.Len(t, r.ApplicationSummaries, 1)
	assert.Equal(t, int64(1), r.ApplicationSummaries[0].CompletedCount)
	require.Len(t, r.ProductivityTrend, 1)

	_, err = svc.GenerateReport(context.Background(), "u1", report.Request{Complexity: "HUGE"})
	requireCode(t, err, service.CodeValidationError)
}

// The full lifecycle against a real in-memory store.
func TestTaskService_EndToEnd(t *testing.T) {
	ctx := context.Background()
	svc := service.NewTaskService(inmemory.NewTaskStorage(), service.WithClock(clock))

	created, err := svc.CreateTask(ctx, "u1", fields(), nil)
	require.NoError(t, err)
	assert.Equal(t, task.StatusOpen, created.Status)

	startDate := now.AddDate(0, 0, -2)
	started, err := svc.UpdateStatus(ctx, "u1", created.ID, lifecycle.StatusChange{
		Status:    task.StatusInProgress,
		StartDate: &startDate,
	})
	require.NoError(t, err)
	assert.Equal(t, task.StatusInProgress, started.Status)

	closeDate := now.AddDate(0, 0, -1)
	closed, err := svc.UpdateStatus(ctx, "u1", created.ID, lifecycle.StatusChange{
		Status:    task.StatusClosed,
		CloseDate: &closeDate,
	})
	require.NoError(t, err)

	assert.Equal(t, task.StatusClosed, closed.Status)
	assert.True(t, task.DateOf(startDate).Equal(*closed.StartedAt))
	assert.True(t, task.DateOf(closeDate).Equal(*closed.ClosedAt))
	assert.True(t, closed.ClosedAt.Equal(*closed.ArchivedAt))

	_, err = svc.AppendNote(ctx, "u1", created.ID, "too late")
	requireCode(t, err, service.CodeInvalidState)

	_, err = svc.GetTask(ctx, "u2", created.ID)
	requireCode(t, err, service.CodeForbidden)

	active, err := svc.ListTasks(ctx, "u1", query.Params{Page: 1, Size: 10})
	require.NoError(t, err)
	assert.Empty(t, active.Content)

	archived, err := svc.ListTasks(ctx, "u1", query.Params{IncludeArchived: true, Page: 1, Size: 10})
	require.NoError(t, err)
	require.Len(t, archived.Content, 1)
	assert.Equal(t, created.ID, archived.Content[0].ID)
}

func TestTaskService_NotesOrdered(t *testing.T) {
	ctx := context.Background()
	svc := service.NewTaskService(inmemory.NewTaskStorage(), service.WithClock(clock))

	created, err := svc.CreateTask(ctx, "u1", fields(), nil)
	require.NoError(t, err)

	// Same clock value for every note; insertion order breaks the tie.
	for _, c := range []string{"one", "two", "three"} {
		_, err := svc.AppendNote(ctx, "u1", created.ID, c)
		require.NoError(t, err)
	}

	got, err := svc.GetTask(ctx, "u1", created.ID)
	require.NoError(t, err)
	require.Len(t, got.Notes, 3)
	assert.Equal(t, "one", got.Notes[0].Content)
	assert.Equal(t, "two", got.Notes[1].Content)
	assert.Equal(t, "three", got.Notes[2].Content)
	assert.Equal(t, "u1", got.Notes[0].UserID)
}
