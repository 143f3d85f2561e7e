package events

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/evanschultz/taskboard/internal/adapters/storage/mock"
	"github.com/evanschultz/taskboard/internal/domain"
)

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(log.New(io.Discard))
	go hub.Run(ctx)
	srv := httptest.NewServer(hub)
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitForSubscribers(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.Subscribers() != want {
		if time.Now().After(deadline) {
			t.Fatalf("subscribers = %d, want %d", hub.Subscribers(), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func readEvent(t *testing.T, conn *websocket.Conn) domain.ChangeEvent {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}
	var event domain.ChangeEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	return event
}

func TestHubBroadcastsToEverySubscriber(t *testing.T) {
	hub, srv := startHub(t)
	first := dial(t, srv)
	second := dial(t, srv)
	waitForSubscribers(t, hub, 2)

	at := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	hub.Publish(domain.ChangeEvent{Kind: domain.ChangeTaskUpdated, TaskID: 4, BoardID: 1, Status: domain.StatusInProgress, At: at})

	for _, conn := range []*websocket.Conn{first, second} {
		event := readEvent(t, conn)
		if event.Kind != domain.ChangeTaskUpdated || event.TaskID != 4 || event.Status != domain.StatusInProgress {
			t.Fatalf("unexpected event %#v", event)
		}
	}

	_ = first.Close()
	waitForSubscribers(t, hub, 1)
}

func TestRepositoryPublishesWrites(t *testing.T) {
	hub, srv := startHub(t)
	conn := dial(t, srv)
	waitForSubscribers(t, hub, 1)

	repo := Wrap(mock.New(mock.WithLatency(0)), hub)
	ctx := context.Background()
	created, err := repo.CreateTask(ctx, domain.TaskInput{Title: "Ship it", BoardID: 3})
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}
	event := readEvent(t, conn)
	if event.Kind != domain.ChangeTaskCreated || event.TaskID != created.ID || event.BoardID != 3 {
		t.Fatalf("unexpected create event %#v", event)
	}

	if _, err := repo.UpdateTask(ctx, created.ID, domain.StatusPatch(domain.StatusDone)); err != nil {
		t.Fatalf("UpdateTask() error = %v", err)
	}
	event = readEvent(t, conn)
	if event.Kind != domain.ChangeTaskUpdated || event.Status != domain.StatusDone {
		t.Fatalf("unexpected update event %#v", event)
	}

	if _, err := repo.UpdateTask(ctx, 999, domain.StatusPatch(domain.StatusDone)); err == nil {
		t.Fatalf("expected error for unknown task")
	}
	boards, err := repo.ListBoards(ctx)
	if err != nil || len(boards) != 3 {
		t.Fatalf("ListBoards() = %d, %v", len(boards), err)
	}
}

func TestPublishAfterStopDoesNotBlock(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(log.New(io.Discard))
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	done := make(chan struct{})
	go func() {
		hub.Publish(domain.ChangeEvent{Kind: domain.ChangeTaskCreated, TaskID: 1})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Publish blocked after the hub stopped")
	}
}
