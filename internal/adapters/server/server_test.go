package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/evanschultz/taskboard/internal/adapters/server/events"
	"github.com/evanschultz/taskboard/internal/adapters/storage/mock"
	"github.com/evanschultz/taskboard/internal/domain"
)

func TestNormalizeConfigDefaults(t *testing.T) {
	cfg, err := normalizeConfig(Config{APIEndpoint: "api/v2/", CORSOrigins: []string{" ", "http://localhost:3000"}})
	if err != nil {
		t.Fatalf("normalizeConfig() error = %v", err)
	}
	if cfg.HTTPBind != defaultBindAddress {
		t.Fatalf("HTTPBind = %q, want %q", cfg.HTTPBind, defaultBindAddress)
	}
	if cfg.APIEndpoint != "/api/v2" || cfg.MCPEndpoint != "/mcp" || cfg.EventsEndpoint != "/events" {
		t.Fatalf("unexpected endpoints %#v", cfg)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "http://localhost:3000" {
		t.Fatalf("unexpected origins %#v", cfg.CORSOrigins)
	}
	if cfg.ServerName != "taskboard" || cfg.ServerVersion != "dev" {
		t.Fatalf("unexpected server identity %#v", cfg)
	}
}

func TestNormalizeConfigRejectsCollisions(t *testing.T) {
	cases := []Config{
		{APIEndpoint: "/x", MCPEndpoint: "/x"},
		{MCPEndpoint: "/feed", EventsEndpoint: "feed"},
		{APIEndpoint: "/api", EventsEndpoint: "/api/events"},
	}
	for _, cfg := range cases {
		if _, err := normalizeConfig(cfg); err == nil {
			t.Fatalf("normalizeConfig(%#v) error = nil, want collision error", cfg)
		}
	}
}

func TestNewHandlerRequiresRepository(t *testing.T) {
	if _, _, err := NewHandler(Config{}, Dependencies{}); err == nil {
		t.Fatalf("NewHandler() error = nil, want missing repository error")
	}
}

func TestNewHandlerServesHealthAndAPI(t *testing.T) {
	handler, _, err := NewHandler(Config{}, Dependencies{Repo: mock.New(mock.WithLatency(0))})
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Fatalf("healthz = %d %q", rec.Code, rec.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/boards/1", nil)
	req.Header.Set("Origin", "http://example.test")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("board status = %d, want %d", rec.Code, http.StatusOK)
	}
	var board domain.Board
	if err := json.NewDecoder(rec.Body).Decode(&board); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if board.Title != "Development" {
		t.Fatalf("unexpected board %#v", board)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("Access-Control-Allow-Origin = %q, want *", got)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("events without hub status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestNewHandlerPublishesAPIWrites(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := events.NewHub(log.New(io.Discard))
	go hub.Run(ctx)

	handler, _, err := NewHandler(Config{}, Dependencies{Repo: mock.New(mock.WithLatency(0)), Hub: hub})
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	srv := httptest.NewServer(handler)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/events", nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()
	deadline := time.Now().Add(2 * time.Second)
	for hub.Subscribers() != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("subscriber never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	req, err := http.NewRequest(http.MethodPatch, srv.URL+"/api/v1/tasks/4", strings.NewReader(`{"status":"in_progress"}`))
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("patch status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event domain.ChangeEvent
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if event.Kind != domain.ChangeTaskUpdated || event.TaskID != 4 || event.Status != domain.StatusInProgress {
		t.Fatalf("unexpected event %#v", event)
	}
}
