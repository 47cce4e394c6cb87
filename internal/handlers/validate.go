package handlers

import (
	"encoding/json"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"productivityTracker/internal/auth"
	"productivityTracker/internal/handlers/dto"
	"productivityTracker/internal/logger"
	"productivityTracker/internal/models/task"
	"productivityTracker/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

func checkContentType(r *http.Request, target string) bool {
	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		return false
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}

	return mediaType == target
}

// decodeJSON enforces the JSON content type and decodes the body into dst.
// It writes the error response itself and reports whether decoding succeeded.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if !checkContentType(r, "application/json") {
		logger.Warn("HTTP: wrong content type",
			zap.String("expected", "application/json"),
			zap.String("received", r.Header.Get("Content-Type")),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, r, http.StatusUnsupportedMediaType, codeUnsupportedMediaType,
			"Content-Type must be application/json", nil)
		return false
	}

	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	defer r.Body.Close()

	if err := decoder.Decode(dst); err != nil {
		logger.Warn("HTTP: malformed JSON body",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, r, http.StatusBadRequest, codeBadRequest, "malformed request body: "+err.Error(), nil)
		return false
	}
	return true
}

// ownerOf returns the authenticated caller or writes a 401.
func ownerOf(w http.ResponseWriter, r *http.Request) (string, bool) {
	owner, ok := auth.OwnerFrom(r.Context())
	if !ok {
		responseWithError(w, r, http.StatusUnauthorized, codeUnauthorized, "authentication required", nil)
		return "", false
	}
	return owner, true
}

func taskID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	idParam := chi.URLParam(r, "id")
	id, err := uuid.Parse(idParam)
	if err != nil || id == uuid.Nil {
		logger.Warn("HTTP: invalid task id",
			zap.String("id", idParam),
			zap.String("client_ip", r.RemoteAddr))

		handleError(w, r, service.NewValidationError("id", "must be a UUID"), "parse_id")
		return uuid.Nil, false
	}
	return id, true
}

func parseFields(req dto.TaskRequest) (task.Fields, error) {
	f := task.Fields{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Application: strings.TrimSpace(req.Application),
		Complexity:  task.Complexity(strings.ToUpper(strings.TrimSpace(req.Complexity))),
	}
	if req.DeadlineDate != "" {
		deadline, err := parseDate("deadlineDate", req.DeadlineDate)
		if err != nil {
			return task.Fields{}, err
		}
		f.DeadlineDate = deadline
	}
	return f, nil
}

func parseDate(field, value string) (time.Time, error) {
	d, err := task.ParseDate(strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, service.NewValidationError(field, "expected a date in YYYY-MM-DD format")
	}
	return d, nil
}

func parseOptionalDate(field string, value *string) (*time.Time, error) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil, nil
	}
	d, err := parseDate(field, *value)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func parseStatus(value string) (task.Status, error) {
	s, err := task.ParseStatus(value)
	if err != nil {
		return "", service.NewValidationError("status", err.Error())
	}
	return s, nil
}

// intParam reads a non-negative integer query parameter, def when absent.
func intParam(r *http.Request, name string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, service.NewValidationError(name, "must be an integer")
	}
	return v, nil
}

func boolParam(r *http.Request, name string) (bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, service.NewValidationError(name, "must be true or false")
	}
	return v, nil
}
