// Package httpapi provides the REST HTTP adapter for the server surfaces.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/evanschultz/taskboard/internal/app"
	"github.com/evanschultz/taskboard/internal/domain"
)

// maxRequestBodyBytes limits decoded JSON payload size for fail-closed request handling.
const maxRequestBodyBytes int64 = 1 << 20

// errInvalidRequest marks malformed requests.
var errInvalidRequest = errors.New("invalid request")

// APIError represents one structured API failure response.
type APIError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Hint    string         `json:"hint,omitempty"`
	Context map[string]any `json:"context,omitempty"`
}

// ErrorEnvelope wraps one structured API error.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// ListEnvelope wraps one list response.
type ListEnvelope[T any] struct {
	Items []T `json:"items"`
}

// Handler serves the versioned API subrouter mounted under `/api/v1`.
type Handler struct {
	repo   app.TaskRepository
	router *mux.Router
}

// NewHandler constructs the REST adapter over repo.
func NewHandler(repo app.TaskRepository) *Handler {
	h := &Handler{repo: repo, router: mux.NewRouter()}
	r := h.router
	r.HandleFunc("/boards", h.handleListBoards).Methods(http.MethodGet)
	r.HandleFunc("/boards/{id}", h.handleGetBoard).Methods(http.MethodGet)
	r.HandleFunc("/boards/{id}/tasks", h.handleListBoardTasks).Methods(http.MethodGet)
	r.HandleFunc("/tasks", h.handleListTasks).Methods(http.MethodGet)
	r.HandleFunc("/tasks", h.handleCreateTask).Methods(http.MethodPost)
	r.HandleFunc("/tasks/{id}", h.handleGetTask).Methods(http.MethodGet)
	r.HandleFunc("/tasks/{id}", h.handleUpdateTask).Methods(http.MethodPatch)
	r.HandleFunc("/users", h.handleListUsers).Methods(http.MethodGet)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, http.StatusNotFound, APIError{
			Code:    "not_found",
			Message: "endpoint not found",
		})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeMethodNotAllowed(w, allowedMethods(r, req)...)
	})
	return h
}

// ServeHTTP routes one versioned API request to the matching handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "" {
		r.URL.Path = "/"
	}
	h.router.ServeHTTP(w, r)
}

// handleListBoards serves GET `/boards`.
func (h *Handler) handleListBoards(w http.ResponseWriter, r *http.Request) {
	boards, err := h.repo.ListBoards(r.Context())
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ListEnvelope[domain.Board]{Items: boards})
}

// handleGetBoard serves GET `/boards/{id}`.
func (h *Handler) handleGetBoard(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	board, err := h.repo.GetBoard(r.Context(), id)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

// handleListBoardTasks serves GET `/boards/{id}/tasks`.
func (h *Handler) handleListBoardTasks(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	tasks, err := h.repo.ListTasksForBoard(r.Context(), id)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ListEnvelope[domain.Task]{Items: tasks})
}

// handleListTasks serves GET `/tasks` with optional issue filters.
func (h *Handler) handleListTasks(w http.ResponseWriter, r *http.Request) {
	filter, err := issueFilterFromQuery(r)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	tasks, err := h.repo.ListTasks(r.Context())
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	if !filter.IsZero() {
		tasks = app.FilterIssues(tasks, filter)
	}
	writeJSON(w, http.StatusOK, ListEnvelope[domain.Task]{Items: tasks})
}

// handleCreateTask serves POST `/tasks`.
func (h *Handler) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var in domain.TaskInput
	if err := decodeJSONBody(r.Context(), w, r, &in); err != nil {
		writeErrorFrom(w, err)
		return
	}
	task, err := h.repo.CreateTask(r.Context(), in)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

// handleGetTask serves GET `/tasks/{id}`.
func (h *Handler) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	task, err := h.repo.GetTask(r.Context(), id)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// handleUpdateTask serves PATCH `/tasks/{id}`.
func (h *Handler) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	var patch domain.TaskPatch
	if err := decodeJSONBody(r.Context(), w, r, &patch); err != nil {
		writeErrorFrom(w, err)
		return
	}
	task, err := h.repo.UpdateTask(r.Context(), id, patch)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// handleListUsers serves GET `/users`.
func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.repo.ListUsers(r.Context())
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ListEnvelope[domain.User]{Items: users})
}

// pathID parses the `{id}` route variable.
func pathID(r *http.Request) (int, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("id %q must be a positive integer: %w", raw, errInvalidRequest)
	}
	return id, nil
}

// issueFilterFromQuery parses `q`, `status`, `board_id` and `assignee_id`.
func issueFilterFromQuery(r *http.Request) (app.IssueFilter, error) {
	query := r.URL.Query()
	filter := app.IssueFilter{Query: strings.TrimSpace(query.Get("q"))}
	if raw := strings.TrimSpace(query.Get("status")); raw != "" {
		status, err := domain.ParseStatus(raw)
		if err != nil {
			return app.IssueFilter{}, fmt.Errorf("status %q: %w", raw, errors.Join(errInvalidRequest, err))
		}
		filter.Status = status
	}
	for name, dst := range map[string]*int{"board_id": &filter.BoardID, "assignee_id": &filter.AssigneeID} {
		raw := strings.TrimSpace(query.Get(name))
		if raw == "" {
			continue
		}
		id, err := strconv.Atoi(raw)
		if err != nil || id <= 0 {
			return app.IssueFilter{}, fmt.Errorf("%s %q must be a positive integer: %w", name, raw, errInvalidRequest)
		}
		*dst = id
	}
	return filter, nil
}

// allowedMethods lists the methods registered for the request path.
func allowedMethods(router *mux.Router, req *http.Request) []string {
	var methods []string
	_ = router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		probe := req.Clone(req.Context())
		routeMethods, err := route.GetMethods()
		if err != nil {
			return nil
		}
		for _, method := range routeMethods {
			var match mux.RouteMatch
			probe.Method = method
			if route.Match(probe, &match) {
				methods = append(methods, method)
			}
		}
		return nil
	})
	return methods
}

// writeErrorFrom maps adapter errors into structured HTTP responses.
func writeErrorFrom(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		writeJSONError(w, http.StatusInternalServerError, APIError{
			Code:    "internal_error",
			Message: "unknown error",
		})
	case errors.Is(err, app.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, APIError{
			Code:    "not_found",
			Message: err.Error(),
		})
	case errors.Is(err, domain.ErrBoardImmutable):
		writeJSONError(w, http.StatusBadRequest, APIError{
			Code:    "board_immutable",
			Message: err.Error(),
			Hint:    "A task cannot move to another board.",
		})
	case errors.Is(err, errInvalidRequest), errors.Is(err, app.ErrValidation):
		writeJSONError(w, http.StatusBadRequest, APIError{
			Code:    "invalid_request",
			Message: err.Error(),
		})
	case errors.Is(err, context.DeadlineExceeded):
		writeJSONError(w, http.StatusGatewayTimeout, APIError{
			Code:    "timeout",
			Message: err.Error(),
		})
	default:
		writeJSONError(w, http.StatusInternalServerError, APIError{
			Code:    "internal_error",
			Message: err.Error(),
		})
	}
}

// writeMethodNotAllowed writes a structured 405 response with `Allow` headers.
func writeMethodNotAllowed(w http.ResponseWriter, methods ...string) {
	if len(methods) > 0 {
		w.Header().Set("Allow", strings.Join(methods, ", "))
	}
	writeJSONError(w, http.StatusMethodNotAllowed, APIError{
		Code:    "method_not_allowed",
		Message: "method not allowed",
	})
}

// writeJSONError writes one structured error envelope.
func writeJSONError(w http.ResponseWriter, statusCode int, apiErr APIError) {
	writeJSON(w, statusCode, ErrorEnvelope{Error: apiErr})
}

// writeJSON writes one JSON response envelope.
func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, fmt.Sprintf(`{"error":{"code":"encode_error","message":"%s"}}`, err.Error()), http.StatusInternalServerError)
	}
}

// decodeJSONBody decodes one required JSON request body with strict shape checks.
func decodeJSONBody(ctx context.Context, w http.ResponseWriter, r *http.Request, out any) error {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	defer reader.Close()

	decoder := json.NewDecoder(reader)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("decode request body: %w", errors.Join(errInvalidRequest, err))
	}
	// Reject trailing payloads so malformed JSON bodies fail closed.
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode request body: trailing content: %w", errInvalidRequest)
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("request canceled: %w", ctx.Err())
	default:
		return nil
	}
}
