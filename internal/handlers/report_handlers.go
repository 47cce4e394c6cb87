package handlers

import (
	"net/http"
	"strings"
	"time"

	"productivityTracker/internal/logger"
	"productivityTracker/internal/models/task"
	"productivityTracker/internal/report"
	"productivityTracker/internal/service"

	"go.uber.org/zap"
)

// GenerateReport handles GET /api/reports/tasks.
func (h *TaskHandler) GenerateReport(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	owner, ok := ownerOf(w, r)
	if !ok {
		return
	}

	req, err := reportRequest(r)
	if err != nil {
		handleError(w, r, err, "generate_report")
		return
	}

	rep, err := h.TaskService.GenerateReport(r.Context(), owner, req)
	if err != nil {
		handleError(w, r, err, "generate_report")
		return
	}

	logger.Info("HTTP_OUT: report generated",
		zap.String("window", string(req.Window)),
		zap.Int("applications", len(rep.ApplicationSummaries)),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	writeJSON(w, http.StatusOK, rep)
}

func reportRequest(r *http.Request) (report.Request, error) {
	q := r.URL.Query()

	window, err := report.ParseWindow(q.Get("window"))
	if err != nil {
		return report.Request{}, service.NewValidationError("window", err.Error())
	}
	field, err := report.ParseSortField(q.Get("sortField"))
	if err != nil {
		return report.Request{}, service.NewValidationError("sortField", err.Error())
	}
	dir, err := report.ParseDirection(q.Get("sortDirection"))
	if err != nil {
		return report.Request{}, service.NewValidationError("sortDirection", err.Error())
	}

	req := report.Request{
		Window:        window,
		Application:   strings.TrimSpace(q.Get("application")),
		SortField:     field,
		SortDirection: dir,
	}
	if raw := strings.TrimSpace(q.Get("complexity")); raw != "" {
		c, err := task.ParseComplexity(raw)
		if err != nil {
			return report.Request{}, service.NewValidationError("complexity", err.Error())
		}
		req.Complexity = c
	}
	return req, nil
}
