package handlers

import (
	"net/http"
	"time"

	"productivityTracker/internal/handlers/dto"
	"productivityTracker/internal/lifecycle"
	"productivityTracker/internal/logger"
	"productivityTracker/internal/models/task"
	"productivityTracker/internal/query"

	"go.uber.org/zap"
)

const serviceName = "productivity-tracker"

type TaskHandler struct {
	TaskService Service
}

func NewTaskHandler(taskService Service) *TaskHandler {
	return &TaskHandler{
		TaskService: taskService,
	}
}

func (h *TaskHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.TaskService.HealthCheck(r.Context()); err != nil {
		logger.Error("HTTP: health check failed", err)
		responseWithJSON(w, http.StatusServiceUnavailable,
			toPayload("status", "DOWN"),
			toPayload("service", serviceName),
		)
		return
	}
	responseWithJSON(w, http.StatusOK,
		toPayload("status", "UP"),
		toPayload("service", serviceName),
	)
}

// CreateTask handles POST /api/tasks.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	owner, ok := ownerOf(w, r)
	if !ok {
		return
	}

	var request dto.TaskRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	fields, err := parseFields(request)
	if err != nil {
		handleError(w, r, err, "create_task")
		return
	}
	var initial *task.Status
	if request.Status != nil && *request.Status != "" {
		s, err := parseStatus(*request.Status)
		if err != nil {
			handleError(w, r, err, "create_task")
			return
		}
		initial = &s
	}

	created, err := h.TaskService.CreateTask(r.Context(), owner, fields, initial)
	if err != nil {
		handleError(w, r, err, "create_task")
		return
	}

	logger.Info("HTTP_OUT: task created",
		zap.String("task_id", created.ID.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusCreated))

	writeJSON(w, http.StatusCreated, dto.FromTask(created))
}

// UpdateTask handles PUT /api/tasks/{id}.
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	owner, ok := ownerOf(w, r)
	if !ok {
		return
	}
	id, ok := taskID(w, r)
	if !ok {
		return
	}

	var request dto.TaskRequest
	if !decodeJSON(w, r, &request) {
		return
	}
	fields, err := parseFields(request)
	if err != nil {
		handleError(w, r, err, "update_task")
		return
	}

	updated, err := h.TaskService.UpdateTask(r.Context(), owner, id, fields)
	if err != nil {
		handleError(w, r, err, "update_task")
		return
	}

	logger.Info("HTTP_OUT: task updated",
		zap.String("task_id", id.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	writeJSON(w, http.StatusOK, dto.FromTask(updated))
}

// AppendNote handles POST /api/tasks/{id}/notes.
func (h *TaskHandler) AppendNote(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	owner, ok := ownerOf(w, r)
	if !ok {
		return
	}
	id, ok := taskID(w, r)
	if !ok {
		return
	}

	var request dto.NoteRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	updated, err := h.TaskService.AppendNote(r.Context(), owner, id, request.Content)
	if err != nil {
		handleError(w, r, err, "append_note")
		return
	}

	logger.Info("HTTP_OUT: note appended",
		zap.String("task_id", id.String()),
		zap.Int("notes", len(updated.Notes)),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	writeJSON(w, http.StatusOK, dto.FromTask(updated))
}

// UpdateStatus handles POST /api/tasks/{id}/status.
func (h *TaskHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	owner, ok := ownerOf(w, r)
	if !ok {
		return
	}
	id, ok := taskID(w, r)
	if !ok {
		return
	}

	var request dto.StatusRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	status, err := parseStatus(request.Status)
	if err != nil {
		handleError(w, r, err, "update_status")
		return
	}
	startDate, err := parseOptionalDate("startDate", request.StartDate)
	if err != nil {
		handleError(w, r, err, "update_status")
		return
	}
	closeDate, err := parseOptionalDate("closeDate", request.CloseDate)
	if err != nil {
		handleError(w, r, err, "update_status")
		return
	}

	updated, err := h.TaskService.UpdateStatus(r.Context(), owner, id, lifecycle.StatusChange{
		Status:    status,
		StartDate: startDate,
		CloseDate: closeDate,
	})
	if err != nil {
		handleError(w, r, err, "update_status")
		return
	}

	logger.Info("HTTP_OUT: status updated",
		zap.String("task_id", id.String()),
		zap.String("status", updated.Status.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	writeJSON(w, http.StatusOK, dto.FromTask(updated))
}

// GetTask handles GET /api/tasks/{id}.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerOf(w, r)
	if !ok {
		return
	}
	id, ok := taskID(w, r)
	if !ok {
		return
	}

	t, err := h.TaskService.GetTask(r.Context(), owner, id)
	if err != nil {
		handleError(w, r, err, "get_task")
		return
	}

	writeJSON(w, http.StatusOK, dto.FromTask(t))
}

// ListTasks handles GET /api/tasks.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	owner, ok := ownerOf(w, r)
	if !ok {
		return
	}

	includeArchived, err := boolParam(r, "includeArchived")
	if err != nil {
		handleError(w, r, err, "list_tasks")
		return
	}
	page, err := intParam(r, "page", 1)
	if err != nil {
		handleError(w, r, err, "list_tasks")
		return
	}
	size, err := intParam(r, "size", query.DefaultPageSize)
	if err != nil {
		handleError(w, r, err, "list_tasks")
		return
	}

	result, err := h.TaskService.ListTasks(r.Context(), owner, query.Params{
		IncludeArchived: includeArchived,
		Page:            page,
		Size:            size,
		SortField:       r.URL.Query().Get("sortField"),
		SortDirection:   r.URL.Query().Get("sortDirection"),
	})
	if err != nil {
		handleError(w, r, err, "list_tasks")
		return
	}

	logger.Info("HTTP_OUT: tasks listed",
		zap.Int("count", len(result.Content)),
		zap.Int64("total", result.TotalElements),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	writeJSON(w, http.StatusOK, dto.FromPage(result))
}
