package app

import (
	"context"
	"time"

	"github.com/evanschultz/taskboard/internal/domain"
)

// TaskRepository is the task data source consumed by the board and modal workflows.
type TaskRepository interface {
	ListBoards(context.Context) ([]domain.Board, error)
	GetBoard(context.Context, int) (domain.Board, error)
	ListTasks(context.Context) ([]domain.Task, error)
	ListTasksForBoard(context.Context, int) ([]domain.Task, error)
	GetTask(context.Context, int) (domain.Task, error)
	CreateTask(context.Context, domain.TaskInput) (domain.Task, error)
	UpdateTask(context.Context, int, domain.TaskPatch) (domain.Task, error)
	ListUsers(context.Context) ([]domain.User, error)
}

// DraftStore holds the single client-local draft slot.
type DraftStore interface {
	Save(context.Context, domain.Draft) error
	Load(context.Context) (domain.Draft, bool, error)
	Clear(context.Context) error
}

// IDGenerator returns unique identifiers for modal sessions.
type IDGenerator func() string

// Clock returns the current time.
type Clock func() time.Time
