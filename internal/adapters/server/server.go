// Package server composes HTTP API, MCP and change-feed transports into one process handler.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/rs/cors"

	"github.com/evanschultz/taskboard/internal/adapters/server/events"
	"github.com/evanschultz/taskboard/internal/adapters/server/httpapi"
	"github.com/evanschultz/taskboard/internal/adapters/server/mcpapi"
	"github.com/evanschultz/taskboard/internal/app"
)

// defaultBindAddress defines the localhost-first serve default.
const defaultBindAddress = "127.0.0.1:8080"

// defaultShutdownTimeout bounds graceful shutdown time once context cancellation starts.
const defaultShutdownTimeout = 5 * time.Second

// Config defines serve-mode endpoint configuration.
type Config struct {
	HTTPBind       string
	APIEndpoint    string
	MCPEndpoint    string
	EventsEndpoint string
	CORSOrigins    []string
	ServerName     string
	ServerVersion  string
}

// Dependencies defines app-facing adapters required by server transports.
type Dependencies struct {
	Repo   app.TaskRepository
	Hub    *events.Hub
	Logger *log.Logger
}

// NewHandler composes one root HTTP mux containing health, REST API, MCP and change-feed endpoints.
// When deps.Hub is set, writes through every transport are published to subscribers.
func NewHandler(cfg Config, deps Dependencies) (http.Handler, Config, error) {
	normalizedCfg, err := normalizeConfig(cfg)
	if err != nil {
		return nil, Config{}, err
	}
	if deps.Repo == nil {
		return nil, Config{}, fmt.Errorf("task repository dependency is required")
	}
	repo := deps.Repo
	if deps.Hub != nil {
		repo = events.Wrap(repo, deps.Hub)
	}

	mcpHandler, err := mcpapi.NewHandler(
		mcpapi.Config{
			ServerName:    normalizedCfg.ServerName,
			ServerVersion: normalizedCfg.ServerVersion,
			EndpointPath:  normalizedCfg.MCPEndpoint,
		},
		repo,
	)
	if err != nil {
		return nil, Config{}, fmt.Errorf("configure mcp handler: %w", err)
	}
	corsHandler := cors.New(cors.Options{
		AllowedOrigins: normalizedCfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})
	apiHandler := corsHandler.Handler(http.StripPrefix(normalizedCfg.APIEndpoint, httpapi.NewHandler(repo)))

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", writeHealthStatus)
	mux.HandleFunc("/readyz", writeHealthStatus)
	mux.Handle(normalizedCfg.MCPEndpoint, mcpHandler)
	mux.Handle(normalizedCfg.APIEndpoint, apiHandler)
	mux.Handle(normalizedCfg.APIEndpoint+"/", apiHandler)
	if deps.Hub != nil {
		mux.Handle(normalizedCfg.EventsEndpoint, deps.Hub)
	}
	return mux, normalizedCfg, nil
}

// Run starts the composed HTTP server and blocks until shutdown or startup failure.
func Run(ctx context.Context, cfg Config, deps Dependencies) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.Default()
	}
	if deps.Hub == nil {
		deps.Hub = events.NewHub(logger)
	}
	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go deps.Hub.Run(hubCtx)

	handler, normalizedCfg, err := NewHandler(cfg, deps)
	if err != nil {
		return fmt.Errorf("build server handler: %w", err)
	}
	httpServer := &http.Server{
		Addr:              normalizedCfg.HTTPBind,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErrCh := make(chan error, 1)
	go func() {
		serveErrCh <- httpServer.ListenAndServe()
	}()
	logger.Info(
		"serving",
		"bind", normalizedCfg.HTTPBind,
		"api", normalizedCfg.APIEndpoint,
		"mcp", normalizedCfg.MCPEndpoint,
		"events", normalizedCfg.EventsEndpoint,
	)

	select {
	case err := <-serveErrCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen and serve: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
		defer cancel()

		shutdownErr := httpServer.Shutdown(shutdownCtx)
		serveErr := <-serveErrCh
		if shutdownErr != nil && !errors.Is(shutdownErr, context.Canceled) {
			return fmt.Errorf("shutdown server: %w", shutdownErr)
		}
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			return fmt.Errorf("serve after shutdown: %w", serveErr)
		}
		logger.Info("server stopped")
		return nil
	}
}

// normalizeConfig applies defaults and validates endpoint collisions.
func normalizeConfig(cfg Config) (Config, error) {
	cfg.HTTPBind = strings.TrimSpace(cfg.HTTPBind)
	if cfg.HTTPBind == "" {
		cfg.HTTPBind = defaultBindAddress
	}

	cfg.APIEndpoint = normalizeEndpoint(cfg.APIEndpoint, "/api/v1")
	cfg.MCPEndpoint = normalizeEndpoint(cfg.MCPEndpoint, "/mcp")
	cfg.EventsEndpoint = normalizeEndpoint(cfg.EventsEndpoint, "/events")
	if cfg.APIEndpoint == cfg.MCPEndpoint || cfg.APIEndpoint == cfg.EventsEndpoint || cfg.MCPEndpoint == cfg.EventsEndpoint {
		return Config{}, fmt.Errorf("api, mcp and events endpoints must differ")
	}
	if strings.HasPrefix(cfg.MCPEndpoint, cfg.APIEndpoint+"/") || strings.HasPrefix(cfg.EventsEndpoint, cfg.APIEndpoint+"/") {
		return Config{}, fmt.Errorf("mcp and events endpoints must not live under the api endpoint")
	}

	origins := make([]string, 0, len(cfg.CORSOrigins))
	for _, origin := range cfg.CORSOrigins {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	cfg.CORSOrigins = origins

	cfg.ServerName = strings.TrimSpace(cfg.ServerName)
	if cfg.ServerName == "" {
		cfg.ServerName = "taskboard"
	}
	cfg.ServerVersion = strings.TrimSpace(cfg.ServerVersion)
	if cfg.ServerVersion == "" {
		cfg.ServerVersion = "dev"
	}
	return cfg, nil
}

// normalizeEndpoint normalizes one endpoint path and applies fallback defaults.
func normalizeEndpoint(path string, fallback string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		path = fallback
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	path = "/" + strings.Trim(path, "/")
	if path == "/" {
		return fallback
	}
	return path
}

// writeHealthStatus responds with a deterministic readiness payload.
func writeHealthStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}` + "\n"))
}
