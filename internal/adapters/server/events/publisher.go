package events

import (
	"context"
	"time"

	"github.com/evanschultz/taskboard/internal/app"
	"github.com/evanschultz/taskboard/internal/domain"
)

// Publisher receives persisted task changes.
type Publisher interface {
	Publish(domain.ChangeEvent)
}

// Repository decorates a TaskRepository and publishes successful writes.
type Repository struct {
	app.TaskRepository
	publisher Publisher
	now       func() time.Time
}

var _ app.TaskRepository = (*Repository)(nil)

// Wrap returns repo with change publishing.
func Wrap(repo app.TaskRepository, publisher Publisher) *Repository {
	return &Repository{TaskRepository: repo, publisher: publisher, now: time.Now}
}

// CreateTask creates a task and publishes task.created.
func (r *Repository) CreateTask(ctx context.Context, in domain.TaskInput) (domain.Task, error) {
	task, err := r.TaskRepository.CreateTask(ctx, in)
	if err != nil {
		return domain.Task{}, err
	}
	r.publisher.Publish(domain.NewChangeEvent(domain.ChangeTaskCreated, task, r.now()))
	return task, nil
}

// UpdateTask updates a task and publishes task.updated.
func (r *Repository) UpdateTask(ctx context.Context, id int, patch domain.TaskPatch) (domain.Task, error) {
	task, err := r.TaskRepository.UpdateTask(ctx, id, patch)
	if err != nil {
		return domain.Task{}, err
	}
	r.publisher.Publish(domain.NewChangeEvent(domain.ChangeTaskUpdated, task, r.now()))
	return task, nil
}
