package app

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/evanschultz/taskboard/internal/domain"
)

type updateCall struct {
	id    int
	patch domain.TaskPatch
}

type fakeRepo struct {
	mu     sync.Mutex
	now    time.Time
	boards []domain.Board
	tasks  []domain.Task
	users  []domain.User

	updateErr error
	createErr error
	usersErr  error
	boardsErr error
	tasksErr  error

	// updateGate blocks UpdateTask until it is closed.
	updateGate chan struct{}

	updateCalls []updateCall
	createCalls []domain.TaskInput
}

func newFakeRepo() *fakeRepo {
	now := time.Date(2023, 10, 1, 9, 0, 0, 0, time.UTC)
	return &fakeRepo{
		now: now,
		boards: []domain.Board{
			{ID: 1, Title: "Development", CreatedAt: now, UpdatedAt: now},
			{ID: 2, Title: "Design", CreatedAt: now, UpdatedAt: now},
		},
		tasks: []domain.Task{
			{ID: 1, Title: "Implement authentication", Description: "Add user authentication using JWT", Priority: domain.PriorityHigh, Status: domain.StatusInProgress, BoardID: 1, AssigneeID: domain.IntPtr(1), CreatedAt: now, UpdatedAt: now},
			{ID: 2, Title: "Create landing page", Priority: domain.PriorityMedium, Status: domain.StatusToDo, BoardID: 2, AssigneeID: domain.IntPtr(2), CreatedAt: now, UpdatedAt: now},
			{ID: 4, Title: "Fix navigation bug", Description: "The navigation menu disappears on mobile devices", Priority: domain.PriorityHigh, Status: domain.StatusToDo, BoardID: 1, AssigneeID: domain.IntPtr(1), CreatedAt: now, UpdatedAt: now},
		},
		users: []domain.User{
			{ID: 1, Name: "Alex"},
			{ID: 2, Name: "Samvel"},
			{ID: 3, Name: "Kate"},
		},
	}
}

func (f *fakeRepo) ListBoards(context.Context) ([]domain.Board, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.boardsErr != nil {
		return nil, f.boardsErr
	}
	return slices.Clone(f.boards), nil
}

func (f *fakeRepo) GetBoard(_ context.Context, id int) (domain.Board, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.boardsErr != nil {
		return domain.Board{}, f.boardsErr
	}
	board, ok := domain.FindBoard(f.boards, id)
	if !ok {
		return domain.Board{}, ErrNotFound
	}
	return board, nil
}

func (f *fakeRepo) ListTasks(context.Context) ([]domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tasksErr != nil {
		return nil, f.tasksErr
	}
	out := make([]domain.Task, 0, len(f.tasks))
	for _, task := range f.tasks {
		out = append(out, task.Clone())
	}
	return out, nil
}

func (f *fakeRepo) ListTasksForBoard(_ context.Context, boardID int) ([]domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tasksErr != nil {
		return nil, f.tasksErr
	}
	out := make([]domain.Task, 0, len(f.tasks))
	for _, task := range f.tasks {
		if task.BoardID == boardID {
			out = append(out, task.Clone())
		}
	}
	return out, nil
}

func (f *fakeRepo) GetTask(_ context.Context, id int) (domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, task := range f.tasks {
		if task.ID == id {
			return task.Clone(), nil
		}
	}
	return domain.Task{}, ErrNotFound
}

func (f *fakeRepo) CreateTask(_ context.Context, in domain.TaskInput) (domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls = append(f.createCalls, in)
	if f.createErr != nil {
		return domain.Task{}, f.createErr
	}
	next := 0
	for _, task := range f.tasks {
		next = max(next, task.ID)
	}
	task, err := domain.NewTask(next+1, in, f.now)
	if err != nil {
		return domain.Task{}, err
	}
	f.tasks = append(f.tasks, task)
	return task.Clone(), nil
}

func (f *fakeRepo) UpdateTask(ctx context.Context, id int, patch domain.TaskPatch) (domain.Task, error) {
	f.mu.Lock()
	gate := f.updateGate
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return domain.Task{}, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls = append(f.updateCalls, updateCall{id: id, patch: patch})
	if f.updateErr != nil {
		return domain.Task{}, f.updateErr
	}
	for idx, task := range f.tasks {
		if task.ID != id {
			continue
		}
		updated, err := task.Apply(patch, f.now.Add(time.Hour))
		if err != nil {
			return domain.Task{}, err
		}
		f.tasks[idx] = updated
		return updated.Clone(), nil
	}
	return domain.Task{}, ErrNotFound
}

func (f *fakeRepo) ListUsers(context.Context) ([]domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.usersErr != nil {
		return nil, f.usersErr
	}
	return slices.Clone(f.users), nil
}

func (f *fakeRepo) taskByID(id int) domain.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, task := range f.tasks {
		if task.ID == id {
			return task.Clone()
		}
	}
	return domain.Task{}
}

type fakeDrafts struct {
	mu      sync.Mutex
	draft   *domain.Draft
	saves   int
	clears  int
	saveErr error
	loadErr error
}

func (f *fakeDrafts) Save(_ context.Context, d domain.Draft) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saves++
	f.draft = &d
	return nil
}

func (f *fakeDrafts) Load(context.Context) (domain.Draft, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return domain.Draft{}, false, f.loadErr
	}
	if f.draft == nil {
		return domain.Draft{}, false, nil
	}
	return *f.draft, true, nil
}

func (f *fakeDrafts) Clear(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clears++
	f.draft = nil
	return nil
}

func (f *fakeDrafts) stored() (domain.Draft, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.draft == nil {
		return domain.Draft{}, false
	}
	return *f.draft, true
}

func strPtr(v string) *string { return &v }
