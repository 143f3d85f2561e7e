package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/evanschultz/taskboard/internal/adapters/storage/mock"
	"github.com/evanschultz/taskboard/internal/app"
	"github.com/evanschultz/taskboard/internal/domain"
)

// failingRepo returns err from every call.
type failingRepo struct {
	app.TaskRepository
	err error
}

// ListBoards returns the configured failure.
func (f failingRepo) ListBoards(context.Context) ([]domain.Board, error) {
	return nil, f.err
}

func newTestHandler() *Handler {
	return NewHandler(mock.New(mock.WithLatency(0)))
}

func serve(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeRecorder[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	return out
}

// TestHandlerReadEndpoints verifies board, task and user reads.
func TestHandlerReadEndpoints(t *testing.T) {
	handler := newTestHandler()

	rec := serve(handler, http.MethodGet, "/boards", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("boards status = %d, want %d", rec.Code, http.StatusOK)
	}
	boards := decodeRecorder[ListEnvelope[domain.Board]](t, rec)
	if len(boards.Items) != 3 {
		t.Fatalf("unexpected boards %#v", boards.Items)
	}

	rec = serve(handler, http.MethodGet, "/boards/2", "")
	board := decodeRecorder[domain.Board](t, rec)
	if board.Title != "Design" {
		t.Fatalf("unexpected board %#v", board)
	}

	rec = serve(handler, http.MethodGet, "/boards/1/tasks", "")
	tasks := decodeRecorder[ListEnvelope[domain.Task]](t, rec)
	if len(tasks.Items) != 2 {
		t.Fatalf("unexpected board tasks %#v", tasks.Items)
	}

	rec = serve(handler, http.MethodGet, "/tasks/4", "")
	task := decodeRecorder[domain.Task](t, rec)
	if task.Title != "Fix navigation bug" || !task.HasAssignee(1) {
		t.Fatalf("unexpected task %#v", task)
	}

	rec = serve(handler, http.MethodGet, "/users", "")
	users := decodeRecorder[ListEnvelope[domain.User]](t, rec)
	if len(users.Items) != 3 || users.Items[0].Name != "Alex" {
		t.Fatalf("unexpected users %#v", users.Items)
	}
}

// TestHandlerTaskFilters verifies issue query parameters.
func TestHandlerTaskFilters(t *testing.T) {
	handler := newTestHandler()
	cases := []struct {
		query string
		want  int
	}{
		{query: "", want: 5},
		{query: "?q=button", want: 1},
		{query: "?status=in_progress", want: 2},
		{query: "?board_id=2&assignee_id=3", want: 1},
	}
	for _, tt := range cases {
		t.Run(tt.query, func(t *testing.T) {
			rec := serve(handler, http.MethodGet, "/tasks"+tt.query, "")
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
			}
			got := decodeRecorder[ListEnvelope[domain.Task]](t, rec)
			if len(got.Items) != tt.want {
				t.Fatalf("got %d tasks, want %d", len(got.Items), tt.want)
			}
		})
	}

	rec := serve(handler, http.MethodGet, "/tasks?status=blocked", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

// TestHandlerCreateAndUpdate verifies task writes.
func TestHandlerCreateAndUpdate(t *testing.T) {
	handler := newTestHandler()

	rec := serve(handler, http.MethodPost, "/tasks", `{"title":"Fix bug","boardId":1}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	created := decodeRecorder[domain.Task](t, rec)
	if created.ID != 6 || created.Status != domain.StatusToDo || created.Priority != domain.PriorityMedium {
		t.Fatalf("unexpected created task %#v", created)
	}

	rec = serve(handler, http.MethodPatch, "/tasks/6", `{"status":"done"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, want %d", rec.Code, http.StatusOK)
	}
	updated := decodeRecorder[domain.Task](t, rec)
	if updated.Status != domain.StatusDone || updated.Title != "Fix bug" {
		t.Fatalf("unexpected updated task %#v", updated)
	}
}

// TestHandlerErrorMapping verifies structured status mapping.
func TestHandlerErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		handler    http.Handler
		method     string
		target     string
		body       string
		wantStatus int
		wantCode   string
	}{
		{name: "unknown task", handler: newTestHandler(), method: http.MethodGet, target: "/tasks/99", wantStatus: http.StatusNotFound, wantCode: "not_found"},
		{name: "bad id", handler: newTestHandler(), method: http.MethodGet, target: "/boards/abc", wantStatus: http.StatusBadRequest, wantCode: "invalid_request"},
		{name: "missing title", handler: newTestHandler(), method: http.MethodPost, target: "/tasks", body: `{"boardId":1}`, wantStatus: http.StatusBadRequest, wantCode: "invalid_request"},
		{name: "unknown field", handler: newTestHandler(), method: http.MethodPost, target: "/tasks", body: `{"title":"x","boardId":1,"id":3}`, wantStatus: http.StatusBadRequest, wantCode: "invalid_request"},
		{name: "trailing content", handler: newTestHandler(), method: http.MethodPatch, target: "/tasks/1", body: `{"status":"done"}{}`, wantStatus: http.StatusBadRequest, wantCode: "invalid_request"},
		{name: "board change", handler: newTestHandler(), method: http.MethodPatch, target: "/tasks/1", body: `{"boardId":2}`, wantStatus: http.StatusBadRequest, wantCode: "board_immutable"},
		{name: "unknown route", handler: newTestHandler(), method: http.MethodGet, target: "/projects", wantStatus: http.StatusNotFound, wantCode: "not_found"},
		{name: "internal", handler: NewHandler(failingRepo{err: errors.New("boom")}), method: http.MethodGet, target: "/boards", wantStatus: http.StatusInternalServerError, wantCode: "internal_error"},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(tt.handler, tt.method, tt.target, tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			envelope := decodeRecorder[ErrorEnvelope](t, rec)
			if envelope.Error.Code != tt.wantCode {
				t.Fatalf("error.code = %q, want %q", envelope.Error.Code, tt.wantCode)
			}
		})
	}
}

// TestHandlerMethodNotAllowed verifies the Allow header.
func TestHandlerMethodNotAllowed(t *testing.T) {
	rec := serve(newTestHandler(), http.MethodDelete, "/tasks/1", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
	allow := rec.Header().Get("Allow")
	if !strings.Contains(allow, http.MethodGet) || !strings.Contains(allow, http.MethodPatch) {
		t.Fatalf("Allow = %q, want GET and PATCH", allow)
	}
}
