// Package mcpapi provides a stateless MCP streamable-HTTP adapter.
package mcpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/evanschultz/taskboard/internal/app"
	"github.com/evanschultz/taskboard/internal/domain"
)

// Config captures MCP transport configuration.
type Config struct {
	ServerName    string
	ServerVersion string
	EndpointPath  string
}

// Handler wraps one stateless MCP streamable HTTP handler.
type Handler struct {
	httpHandler http.Handler
}

// NewHandler builds one stateless MCP adapter exposing board, task and user tools.
func NewHandler(cfg Config, repo app.TaskRepository) (*Handler, error) {
	if repo == nil {
		return nil, fmt.Errorf("task repository is required")
	}
	cfg = normalizeConfig(cfg)

	mcpSrv := mcpserver.NewMCPServer(
		cfg.ServerName,
		cfg.ServerVersion,
		mcpserver.WithToolCapabilities(false),
	)
	registerReadTools(mcpSrv, repo)
	registerWriteTools(mcpSrv, repo)

	streamable := mcpserver.NewStreamableHTTPServer(
		mcpSrv,
		mcpserver.WithEndpointPath(cfg.EndpointPath),
		mcpserver.WithStateLess(true),
	)
	return &Handler{httpHandler: streamable}, nil
}

// ServeHTTP handles one MCP streamable HTTP request.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.httpHandler == nil {
		http.Error(w, "mcp handler unavailable", http.StatusServiceUnavailable)
		return
	}
	h.httpHandler.ServeHTTP(w, r)
}

// normalizeConfig applies deterministic defaults to MCP adapter config.
func normalizeConfig(cfg Config) Config {
	cfg.ServerName = strings.TrimSpace(cfg.ServerName)
	if cfg.ServerName == "" {
		cfg.ServerName = "taskboard"
	}
	cfg.ServerVersion = strings.TrimSpace(cfg.ServerVersion)
	if cfg.ServerVersion == "" {
		cfg.ServerVersion = "dev"
	}
	cfg.EndpointPath = strings.TrimSpace(cfg.EndpointPath)
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "/mcp"
	}
	if !strings.HasPrefix(cfg.EndpointPath, "/") {
		cfg.EndpointPath = "/" + cfg.EndpointPath
	}
	cfg.EndpointPath = "/" + strings.Trim(cfg.EndpointPath, "/")
	return cfg
}

// registerReadTools registers board, task and user read tools.
func registerReadTools(srv *mcpserver.MCPServer, repo app.TaskRepository) {
	srv.AddTool(
		mcp.NewTool(
			"taskboard.list_boards",
			mcp.WithDescription("List every board."),
		),
		func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			boards, err := repo.ListBoards(ctx)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("list_boards", map[string]any{"items": boards})
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"taskboard.get_board",
			mcp.WithDescription("Return one board by id."),
			mcp.WithNumber("id", mcp.Required(), mcp.Description("Board id")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			id, err := requirePositiveInt(req, "id")
			if err != nil {
				return toolResultFromError(err), nil
			}
			board, err := repo.GetBoard(ctx, id)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("get_board", board)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"taskboard.list_tasks",
			mcp.WithDescription("List tasks, optionally filtered by text, status, board or assignee."),
			mcp.WithString("query", mcp.Description("Case-insensitive match on title or description")),
			mcp.WithString("status", mcp.Description("Lane status"), mcp.Enum(statusNames()...)),
			mcp.WithNumber("board_id", mcp.Description("Board id")),
			mcp.WithNumber("assignee_id", mcp.Description("Assignee user id")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			filter := app.IssueFilter{
				Query:      req.GetString("query", ""),
				BoardID:    req.GetInt("board_id", 0),
				AssigneeID: req.GetInt("assignee_id", 0),
			}
			if raw := strings.TrimSpace(req.GetString("status", "")); raw != "" {
				status, err := domain.ParseStatus(raw)
				if err != nil {
					return toolResultFromError(errors.Join(app.ErrValidation, err)), nil
				}
				filter.Status = status
			}
			tasks, err := repo.ListTasks(ctx)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("list_tasks", map[string]any{"items": app.FilterIssues(tasks, filter)})
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"taskboard.get_task",
			mcp.WithDescription("Return one task by id."),
			mcp.WithNumber("id", mcp.Required(), mcp.Description("Task id")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			id, err := requirePositiveInt(req, "id")
			if err != nil {
				return toolResultFromError(err), nil
			}
			task, err := repo.GetTask(ctx, id)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("get_task", task)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"taskboard.list_users",
			mcp.WithDescription("List users that tasks can be assigned to."),
		),
		func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			users, err := repo.ListUsers(ctx)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("list_users", map[string]any{"items": users})
		},
	)
}

// jsonResult encodes one tool payload.
func jsonResult[T any](tool string, payload T) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s result: %w", tool, err)
	}
	return result, nil
}

// requirePositiveInt reads one required id argument.
func requirePositiveInt(req mcp.CallToolRequest, key string) (int, error) {
	id, err := req.RequireInt(key)
	if err != nil {
		return 0, errors.Join(app.ErrValidation, err)
	}
	if id <= 0 {
		return 0, fmt.Errorf("%s must be positive: %w", key, app.ErrValidation)
	}
	return id, nil
}

// statusNames lists the lane statuses for enum schemas.
func statusNames() []string {
	lanes := domain.Lanes()
	out := make([]string, 0, len(lanes))
	for _, lane := range lanes {
		out = append(out, string(lane))
	}
	return out
}

// priorityNames lists the priorities for enum schemas.
func priorityNames() []string {
	priorities := domain.Priorities()
	out := make([]string, 0, len(priorities))
	for _, p := range priorities {
		out = append(out, string(p))
	}
	return out
}

// toolResultFromError maps service errors into MCP-visible tool errors.
func toolResultFromError(err error) *mcp.CallToolResult {
	switch {
	case err == nil:
		return mcp.NewToolResultError("unknown error")
	case errors.Is(err, app.ErrNotFound):
		return mcp.NewToolResultError("not_found: " + err.Error())
	case errors.Is(err, app.ErrValidation), errors.Is(err, domain.ErrBoardImmutable):
		return mcp.NewToolResultError("invalid_request: " + err.Error())
	default:
		return mcp.NewToolResultError("internal_error: " + err.Error())
	}
}
