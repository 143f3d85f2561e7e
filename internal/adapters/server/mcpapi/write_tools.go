package mcpapi

import (
	"context"
	"errors"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/evanschultz/taskboard/internal/app"
	"github.com/evanschultz/taskboard/internal/domain"
)

// registerWriteTools registers task create, update and move tools.
func registerWriteTools(srv *mcpserver.MCPServer, repo app.TaskRepository) {
	srv.AddTool(
		mcp.NewTool(
			"taskboard.create_task",
			mcp.WithDescription("Create a task on a board."),
			mcp.WithString("title", mcp.Required(), mcp.Description("Task title")),
			mcp.WithNumber("board_id", mcp.Required(), mcp.Description("Board id")),
			mcp.WithString("description", mcp.Description("Task description")),
			mcp.WithString("priority", mcp.Description("Priority, defaults to medium"), mcp.Enum(priorityNames()...)),
			mcp.WithString("status", mcp.Description("Lane status, defaults to to_do"), mcp.Enum(statusNames()...)),
			mcp.WithNumber("assignee_id", mcp.Description("Assignee user id")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			title, err := req.RequireString("title")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			boardID, err := requirePositiveInt(req, "board_id")
			if err != nil {
				return toolResultFromError(err), nil
			}
			in := domain.TaskInput{
				Title:       title,
				Description: req.GetString("description", ""),
				BoardID:     boardID,
			}
			if raw := strings.TrimSpace(req.GetString("priority", "")); raw != "" {
				priority, err := domain.ParsePriority(raw)
				if err != nil {
					return toolResultFromError(errors.Join(app.ErrValidation, err)), nil
				}
				in.Priority = priority
			}
			if raw := strings.TrimSpace(req.GetString("status", "")); raw != "" {
				status, err := domain.ParseStatus(raw)
				if err != nil {
					return toolResultFromError(errors.Join(app.ErrValidation, err)), nil
				}
				in.Status = status
			}
			if id := req.GetInt("assignee_id", 0); id > 0 {
				in.AssigneeID = domain.IntPtr(id)
			}
			task, err := repo.CreateTask(ctx, in)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("create_task", task)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"taskboard.update_task",
			mcp.WithDescription("Update the fields of one task; omitted fields stay unchanged."),
			mcp.WithNumber("id", mcp.Required(), mcp.Description("Task id")),
			mcp.WithString("title", mcp.Description("Task title")),
			mcp.WithString("description", mcp.Description("Task description")),
			mcp.WithString("priority", mcp.Description("Priority"), mcp.Enum(priorityNames()...)),
			mcp.WithString("status", mcp.Description("Lane status"), mcp.Enum(statusNames()...)),
			mcp.WithNumber("assignee_id", mcp.Description("Assignee user id")),
			mcp.WithBoolean("clear_assignee", mcp.Description("Remove the assignee")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			id, err := requirePositiveInt(req, "id")
			if err != nil {
				return toolResultFromError(err), nil
			}
			patch, err := patchFromArguments(req)
			if err != nil {
				return toolResultFromError(err), nil
			}
			task, err := repo.UpdateTask(ctx, id, patch)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("update_task", task)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"taskboard.move_task",
			mcp.WithDescription("Move one task to another lane of its board."),
			mcp.WithNumber("id", mcp.Required(), mcp.Description("Task id")),
			mcp.WithString("status", mcp.Required(), mcp.Description("Target lane"), mcp.Enum(statusNames()...)),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			id, err := requirePositiveInt(req, "id")
			if err != nil {
				return toolResultFromError(err), nil
			}
			raw, err := req.RequireString("status")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			status, err := domain.ParseStatus(raw)
			if err != nil {
				return toolResultFromError(errors.Join(app.ErrValidation, err)), nil
			}
			task, err := repo.UpdateTask(ctx, id, domain.StatusPatch(status))
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("move_task", task)
		},
	)
}

// patchFromArguments builds a partial update from the arguments present in req.
func patchFromArguments(req mcp.CallToolRequest) (domain.TaskPatch, error) {
	args := req.GetArguments()
	var patch domain.TaskPatch
	if _, ok := args["title"]; ok {
		title := req.GetString("title", "")
		patch.Title = &title
	}
	if _, ok := args["description"]; ok {
		desc := req.GetString("description", "")
		patch.Description = &desc
	}
	if _, ok := args["priority"]; ok {
		priority, err := domain.ParsePriority(req.GetString("priority", ""))
		if err != nil {
			return domain.TaskPatch{}, errors.Join(app.ErrValidation, err)
		}
		patch.Priority = &priority
	}
	if _, ok := args["status"]; ok {
		status, err := domain.ParseStatus(req.GetString("status", ""))
		if err != nil {
			return domain.TaskPatch{}, errors.Join(app.ErrValidation, err)
		}
		patch.Status = &status
	}
	if _, ok := args["assignee_id"]; ok {
		id, err := requirePositiveInt(req, "assignee_id")
		if err != nil {
			return domain.TaskPatch{}, err
		}
		patch.AssigneeID = &id
	}
	patch.ClearAssignee = req.GetBool("clear_assignee", false)
	return patch, nil
}
