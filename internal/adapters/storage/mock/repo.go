package mock

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/evanschultz/taskboard/internal/app"
	"github.com/evanschultz/taskboard/internal/domain"
)

// DefaultLatency is the simulated round trip of every call.
const DefaultLatency = 300 * time.Millisecond

// ErrInjectedFailure is returned by updates rejected through the failure rate.
var ErrInjectedFailure = fmt.Errorf("injected update failure: %w", app.ErrPersistence)

// Option configures a Repository.
type Option func(*Repository)

// WithLatency overrides the simulated latency; zero disables it.
func WithLatency(d time.Duration) Option {
	return func(r *Repository) {
		if d >= 0 {
			r.latency = d
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) {
		if now != nil {
			r.now = now
		}
	}
}

// WithUpdateFailureRate makes the given share of UpdateTask calls fail.
func WithUpdateFailureRate(rate float64) Option {
	return func(r *Repository) {
		r.failureRate = min(max(rate, 0), 1)
	}
}

// WithRandom overrides the source used for failure injection.
func WithRandom(fn func() float64) Option {
	return func(r *Repository) {
		if fn != nil {
			r.random = fn
		}
	}
}

// WithFixtures replaces the seed data.
func WithFixtures(f Fixtures) Option {
	return func(r *Repository) {
		r.boards = slices.Clone(f.Boards)
		r.users = slices.Clone(f.Users)
		r.tasks = make([]domain.Task, 0, len(f.Tasks))
		for _, task := range f.Tasks {
			r.tasks = append(r.tasks, task.Clone())
		}
	}
}

// Repository is an in-memory task source with simulated latency.
type Repository struct {
	latency     time.Duration
	failureRate float64
	random      func() float64
	now         func() time.Time

	mu     sync.RWMutex
	boards []domain.Board
	tasks  []domain.Task
	users  []domain.User
}

var _ app.TaskRepository = (*Repository)(nil)

// New constructs a repository seeded with DefaultFixtures.
func New(opts ...Option) *Repository {
	seed := DefaultFixtures()
	r := &Repository{
		latency: DefaultLatency,
		random:  rand.Float64,
		now:     time.Now,
		boards:  seed.Boards,
		tasks:   seed.Tasks,
		users:   seed.Users,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// ListBoards returns every board.
func (r *Repository) ListBoards(ctx context.Context) ([]domain.Board, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.boards), nil
}

// GetBoard returns one board.
func (r *Repository) GetBoard(ctx context.Context, id int) (domain.Board, error) {
	if err := r.wait(ctx); err != nil {
		return domain.Board{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	board, ok := domain.FindBoard(r.boards, id)
	if !ok {
		return domain.Board{}, fmt.Errorf("board %d: %w", id, app.ErrNotFound)
	}
	return board, nil
}

// ListTasks returns every task.
func (r *Repository) ListTasks(ctx context.Context) ([]domain.Task, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.filterLocked(func(domain.Task) bool { return true }), nil
}

// ListTasksForBoard returns the tasks of boardID.
func (r *Repository) ListTasksForBoard(ctx context.Context, boardID int) ([]domain.Task, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.filterLocked(func(t domain.Task) bool { return t.BoardID == boardID }), nil
}

// GetTask returns one task.
func (r *Repository) GetTask(ctx context.Context, id int) (domain.Task, error) {
	if err := r.wait(ctx); err != nil {
		return domain.Task{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx := r.indexLocked(id)
	if idx < 0 {
		return domain.Task{}, fmt.Errorf("task %d: %w", id, app.ErrNotFound)
	}
	return r.tasks[idx].Clone(), nil
}

// CreateTask stores a new task with the next free id.
func (r *Repository) CreateTask(ctx context.Context, in domain.TaskInput) (domain.Task, error) {
	if err := r.wait(ctx); err != nil {
		return domain.Task{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	next := 0
	for _, task := range r.tasks {
		next = max(next, task.ID)
	}
	task, err := domain.NewTask(next+1, in, r.now())
	if err != nil {
		return domain.Task{}, errors.Join(app.ErrValidation, err)
	}
	r.tasks = append(r.tasks, task)
	return task.Clone(), nil
}

// UpdateTask merges patch over task id and refreshes UpdatedAt.
func (r *Repository) UpdateTask(ctx context.Context, id int, patch domain.TaskPatch) (domain.Task, error) {
	if err := r.wait(ctx); err != nil {
		return domain.Task{}, err
	}
	if r.failureRate > 0 && r.random() < r.failureRate {
		return domain.Task{}, fmt.Errorf("update task %d: %w", id, ErrInjectedFailure)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := r.indexLocked(id)
	if idx < 0 {
		return domain.Task{}, fmt.Errorf("task %d: %w", id, app.ErrNotFound)
	}
	updated, err := r.tasks[idx].Apply(patch, r.now())
	if err != nil {
		return domain.Task{}, errors.Join(app.ErrValidation, err)
	}
	r.tasks[idx] = updated
	return updated.Clone(), nil
}

// ListUsers returns every user.
func (r *Repository) ListUsers(ctx context.Context) ([]domain.User, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.users), nil
}

// wait simulates the network round trip.
func (r *Repository) wait(ctx context.Context) error {
	if r.latency <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(r.latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// filterLocked requires r.mu.
func (r *Repository) filterLocked(keep func(domain.Task) bool) []domain.Task {
	out := make([]domain.Task, 0, len(r.tasks))
	for _, task := range r.tasks {
		if keep(task) {
			out = append(out, task.Clone())
		}
	}
	return out
}

// indexLocked requires r.mu.
func (r *Repository) indexLocked(id int) int {
	return slices.IndexFunc(r.tasks, func(t domain.Task) bool { return t.ID == id })
}
