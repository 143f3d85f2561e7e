package remote

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/evanschultz/taskboard/internal/adapters/server/events"
	"github.com/evanschultz/taskboard/internal/adapters/server/httpapi"
	"github.com/evanschultz/taskboard/internal/adapters/storage/mock"
	"github.com/evanschultz/taskboard/internal/app"
	"github.com/evanschultz/taskboard/internal/domain"
)

// newAPIServer serves the REST API over a latency-free mock under /api/v1.
func newAPIServer(t *testing.T, hub *events.Hub) *httptest.Server {
	t.Helper()
	var repo app.TaskRepository = mock.New(mock.WithLatency(0))
	if hub != nil {
		repo = events.Wrap(repo, hub)
	}
	mux := http.NewServeMux()
	mux.Handle("/api/v1/", http.StripPrefix("/api/v1", httpapi.NewHandler(repo)))
	if hub != nil {
		mux.Handle("/events", hub)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestNewRejectsBadBaseURL(t *testing.T) {
	for _, raw := range []string{"", "   ", "not a url", "/api/v1"} {
		if _, err := New(raw); err == nil {
			t.Fatalf("New(%q) error = nil, want error", raw)
		}
	}
}

func TestNewDerivesEventsURL(t *testing.T) {
	c, err := New("https://board.example.test/api/v1/")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if got := c.EventsURL(); got != "wss://board.example.test/events" {
		t.Fatalf("EventsURL() = %q", got)
	}
	c, err = New("http://127.0.0.1:8080/api/v1", WithEventsURL("ws://other:9000/feed"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if got := c.EventsURL(); got != "ws://other:9000/feed" {
		t.Fatalf("EventsURL() = %q", got)
	}
}

func TestClientReadsAndWrites(t *testing.T) {
	srv := newAPIServer(t, nil)
	c, err := New(srv.URL+"/api/v1", WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx := context.Background()

	boards, err := c.ListBoards(ctx)
	if err != nil {
		t.Fatalf("ListBoards() error = %v", err)
	}
	if len(boards) != 3 {
		t.Fatalf("ListBoards() len = %d, want 3", len(boards))
	}
	board, err := c.GetBoard(ctx, 1)
	if err != nil || board.Title != "Development" {
		t.Fatalf("GetBoard() = %#v, %v", board, err)
	}
	tasks, err := c.ListTasksForBoard(ctx, 1)
	if err != nil {
		t.Fatalf("ListTasksForBoard() error = %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("ListTasksForBoard() len = %d, want 2", len(tasks))
	}
	users, err := c.ListUsers(ctx)
	if err != nil || len(users) != 3 {
		t.Fatalf("ListUsers() = %#v, %v", users, err)
	}

	created, err := c.CreateTask(ctx, domain.TaskInput{Title: "Ship it", BoardID: 3, AssigneeID: domain.IntPtr(2)})
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}
	if created.ID != 6 || created.Status != domain.StatusToDo || !created.HasAssignee(2) {
		t.Fatalf("unexpected created task %#v", created)
	}
	moved, err := c.UpdateTask(ctx, created.ID, domain.StatusPatch(domain.StatusDone))
	if err != nil {
		t.Fatalf("UpdateTask() error = %v", err)
	}
	if moved.Status != domain.StatusDone || moved.Title != "Ship it" {
		t.Fatalf("unexpected moved task %#v", moved)
	}
	fetched, err := c.GetTask(ctx, created.ID)
	if err != nil || fetched.Status != domain.StatusDone {
		t.Fatalf("GetTask() = %#v, %v", fetched, err)
	}
	all, err := c.ListTasks(ctx)
	if err != nil || len(all) != 6 {
		t.Fatalf("ListTasks() len = %d, %v", len(all), err)
	}
}

func TestClientMapsErrors(t *testing.T) {
	srv := newAPIServer(t, nil)
	c, err := New(srv.URL+"/api/v1", WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx := context.Background()

	if _, err := c.GetTask(ctx, 99); !errors.Is(err, app.ErrNotFound) {
		t.Fatalf("GetTask(99) error = %v, want ErrNotFound", err)
	}
	if _, err := c.CreateTask(ctx, domain.TaskInput{BoardID: 1}); !errors.Is(err, app.ErrValidation) {
		t.Fatalf("CreateTask(no title) error = %v, want ErrValidation", err)
	}
	board := 2
	if _, err := c.UpdateTask(ctx, 1, domain.TaskPatch{BoardID: &board}); !errors.Is(err, domain.ErrBoardImmutable) {
		t.Fatalf("UpdateTask(board change) error = %v, want ErrBoardImmutable", err)
	}
}

func TestClientMapsServerFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	c, err := New(srv.URL, WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = c.ListBoards(context.Background())
	if !errors.Is(err, app.ErrTransientLoad) || !strings.Contains(err.Error(), "503") {
		t.Fatalf("ListBoards() error = %v, want transient 503", err)
	}
	_, err = c.UpdateTask(context.Background(), 1, domain.StatusPatch(domain.StatusDone))
	if !errors.Is(err, app.ErrPersistence) {
		t.Fatalf("UpdateTask() error = %v, want ErrPersistence", err)
	}
}

func TestClientSubscribeStreamsEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := events.NewHub(log.New(io.Discard))
	go hub.Run(ctx)
	srv := newAPIServer(t, hub)

	c, err := New(srv.URL+"/api/v1", WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	feed, err := c.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for hub.Subscribers() != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("subscriber never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if _, err := c.UpdateTask(ctx, 2, domain.StatusPatch(domain.StatusDone)); err != nil {
		t.Fatalf("UpdateTask() error = %v", err)
	}
	select {
	case event := <-feed:
		if event.Kind != domain.ChangeTaskUpdated || event.TaskID != 2 || event.BoardID != 2 {
			t.Fatalf("unexpected event %#v", event)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for change event")
	}

	cancel()
	select {
	case _, ok := <-feed:
		for ok {
			_, ok = <-feed
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("feed was not closed after cancel")
	}
}

type countingCloser struct {
	closes atomic.Int32
}

func (c *countingCloser) Close() error {
	c.closes.Add(1)
	return nil
}

func TestCloseOnCancelStopEndsWatcher(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	closer := &countingCloser{}

	stop := closeOnCancel(ctx, closer)
	stop()
	cancel()
	if got := closer.closes.Load(); got != 0 {
		t.Fatalf("watcher closed after stop, got %d closes", got)
	}
}

func TestCloseOnCancelClosesOnContextEnd(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	closer := &countingCloser{}

	stop := closeOnCancel(ctx, closer)
	defer stop()
	cancel()
	deadline := time.Now().Add(2 * time.Second)
	for closer.closes.Load() != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("expected one close after cancel, got %d", closer.closes.Load())
		}
		time.Sleep(5 * time.Millisecond)
	}
}
