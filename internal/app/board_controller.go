package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/evanschultz/taskboard/internal/domain"
	"golang.org/x/sync/errgroup"
)

// LoadTicket identifies one board load. Results are applied only while the
// ticket's epoch is still the controller's latest.
type LoadTicket struct {
	Epoch   uint64
	BoardID int
}

// BoardData is the result of one board fetch.
type BoardData struct {
	Board domain.Board
	Tasks []domain.Task
}

// Move is an optimistic status change waiting for the repository. Epoch is
// the load epoch current when the drop was made.
type Move struct {
	TaskID  int
	BoardID int
	From    domain.Status
	To      domain.Status
	Epoch   uint64
}

// settledMove is the status a commit wrote and the epoch it landed in.
type settledMove struct {
	status domain.Status
	epoch  uint64
}

// BoardSnapshot is a read-only copy of controller state for rendering.
type BoardSnapshot struct {
	BoardID int
	Board   domain.Board
	Tasks   []domain.Task
	Loading bool
	Loaded  bool
	Err     error
	Pending map[int]Move
}

// Lane filters the snapshot tasks by status.
func (s BoardSnapshot) Lane(status domain.Status) []domain.Task {
	return laneOf(s.Tasks, status)
}

// BoardController owns the task list of one board and applies lane drops
// optimistically with an exact rollback on failure.
type BoardController struct {
	repo TaskRepository

	mu         sync.Mutex
	epoch      uint64
	boardEpoch uint64
	boardID    int
	board      domain.Board
	tasks      []domain.Task
	loading    bool
	loaded     bool
	err        error
	// inFlight is keyed by task and survives board switches; only
	// CommitDrop removes an entry.
	inFlight map[int]Move
	settled  map[int]settledMove
}

// NewBoardController constructs a controller over repo.
func NewBoardController(repo TaskRepository) *BoardController {
	return &BoardController{
		repo:     repo,
		inFlight: map[int]Move{},
		settled:  map[int]settledMove{},
	}
}

// BeginLoad starts a load of boardID and supersedes any earlier load.
func (c *BoardController) BeginLoad(boardID int) LoadTicket {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	if boardID != c.boardID {
		c.board = domain.Board{}
		c.tasks = nil
		c.loaded = false
		c.boardEpoch = c.epoch
	}
	c.boardID = boardID
	c.loading = true
	c.err = nil
	return LoadTicket{Epoch: c.epoch, BoardID: boardID}
}

// Fetch loads board metadata and tasks concurrently.
func (c *BoardController) Fetch(ctx context.Context, ticket LoadTicket) (BoardData, error) {
	var data BoardData
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		board, err := c.repo.GetBoard(gctx, ticket.BoardID)
		if err != nil {
			return fmt.Errorf("get board %d: %w", ticket.BoardID, err)
		}
		data.Board = board
		return nil
	})
	g.Go(func() error {
		tasks, err := c.repo.ListTasksForBoard(gctx, ticket.BoardID)
		if err != nil {
			return fmt.Errorf("list board %d tasks: %w", ticket.BoardID, err)
		}
		data.Tasks = tasks
		return nil
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, ErrNotFound) {
			return BoardData{}, err
		}
		return BoardData{}, errors.Join(ErrTransientLoad, err)
	}
	return data, nil
}

// ApplyLoad stores a fetch result unless a newer load superseded ticket.
func (c *BoardController) ApplyLoad(ticket LoadTicket, data BoardData, loadErr error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ticket.Epoch != c.epoch {
		return ErrStaleLoad
	}
	c.loading = false
	if loadErr != nil {
		c.err = loadErr
		c.board = domain.Board{}
		c.tasks = nil
		c.loaded = false
		return loadErr
	}
	for id, s := range c.settled {
		// Commits that landed before this load began are already in data.
		if s.epoch < ticket.Epoch {
			delete(c.settled, id)
		}
	}
	c.err = nil
	c.loaded = true
	c.board = data.Board
	c.tasks = make([]domain.Task, 0, len(data.Tasks))
	for _, task := range data.Tasks {
		if task.BoardID != ticket.BoardID {
			continue
		}
		if move, ok := c.inFlight[task.ID]; ok {
			// Keep the optimistic lane until the in-flight commit settles.
			task.Status = move.To
		} else if s, ok := c.settled[task.ID]; ok {
			// The fetch may have read the repository before this commit landed.
			task.Status = s.status
		}
		c.tasks = append(c.tasks, task.Clone())
	}
	return nil
}

// Load fetches boardID and applies the result.
func (c *BoardController) Load(ctx context.Context, boardID int) error {
	ticket := c.BeginLoad(boardID)
	data, err := c.Fetch(ctx, ticket)
	return c.ApplyLoad(ticket, data, err)
}

// BeginDrop applies the optimistic half of a lane drop. It reports false
// when the drop is a no-op: unknown task, task of another board, or a drop
// onto the lane the task is already in.
func (c *BoardController) BeginDrop(taskID int, target domain.Status) (Move, bool, error) {
	if !target.Valid() {
		return Move{}, false, fmt.Errorf("drop target %q: %w", target, domain.ErrInvalidStatus)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.indexOf(taskID)
	if idx < 0 {
		return Move{}, false, nil
	}
	task := c.tasks[idx]
	if task.BoardID != c.boardID {
		return Move{}, false, nil
	}
	if task.Status == target {
		return Move{}, false, nil
	}
	if _, busy := c.inFlight[taskID]; busy {
		return Move{}, false, ErrMoveInFlight
	}

	move := Move{TaskID: taskID, BoardID: task.BoardID, From: task.Status, To: target, Epoch: c.epoch}
	c.tasks[idx].Status = target
	c.inFlight[taskID] = move
	return move, true, nil
}

// CommitDrop persists move. On failure the task's status is restored to
// move.From and the returned error wraps ErrPersistence.
//
// A result for a board that is no longer shown leaves the list untouched.
// When the user switched away and back, the list was refetched with the
// optimistic status overlaid, so only that status is settled: a failure
// still restores move.From, a success keeps the refetched fields.
func (c *BoardController) CommitDrop(ctx context.Context, move Move) (domain.Task, error) {
	updated, err := c.repo.UpdateTask(ctx, move.TaskID, domain.StatusPatch(move.To))

	c.mu.Lock()
	defer c.mu.Unlock()
	if current, ok := c.inFlight[move.TaskID]; ok && current == move {
		delete(c.inFlight, move.TaskID)
	}
	if err == nil {
		c.settled[move.TaskID] = settledMove{status: updated.Status, epoch: c.epoch}
	}

	idx := -1
	if move.BoardID == c.boardID {
		idx = c.indexOf(move.TaskID)
	}
	superseded := move.Epoch < c.boardEpoch

	if err != nil {
		if idx >= 0 && c.tasks[idx].Status == move.To {
			c.tasks[idx].Status = move.From
		}
		return domain.Task{}, fmt.Errorf("move task %d to %s: %w", move.TaskID, move.To, errors.Join(ErrPersistence, err))
	}
	if idx >= 0 && !superseded && updated.BoardID == c.boardID {
		c.tasks[idx] = updated.Clone()
	}
	return updated, nil
}

// HandleDrop applies and persists a lane drop. It reports whether the
// repository was called.
func (c *BoardController) HandleDrop(ctx context.Context, taskID int, target domain.Status) (bool, error) {
	move, ok, err := c.BeginDrop(taskID, target)
	if err != nil || !ok {
		return false, err
	}
	if _, err := c.CommitDrop(ctx, move); err != nil {
		return true, err
	}
	return true, nil
}

// Task returns the current copy of taskID.
func (c *BoardController) Task(taskID int) (domain.Task, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := c.indexOf(taskID)
	if idx < 0 {
		return domain.Task{}, false
	}
	return c.tasks[idx].Clone(), true
}

// Lane returns the tasks currently in status.
func (c *BoardController) Lane(status domain.Status) []domain.Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	return laneOf(c.tasks, status)
}

// Snapshot copies the controller state.
func (c *BoardController) Snapshot() BoardSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	tasks := make([]domain.Task, 0, len(c.tasks))
	for _, task := range c.tasks {
		tasks = append(tasks, task.Clone())
	}
	pending := make(map[int]Move, len(c.inFlight))
	for id, move := range c.inFlight {
		if move.BoardID == c.boardID {
			pending[id] = move
		}
	}
	return BoardSnapshot{
		BoardID: c.boardID,
		Board:   c.board,
		Tasks:   tasks,
		Loading: c.loading,
		Loaded:  c.loaded,
		Err:     c.err,
		Pending: pending,
	}
}

// indexOf requires c.mu.
func (c *BoardController) indexOf(taskID int) int {
	for idx := range c.tasks {
		if c.tasks[idx].ID == taskID {
			return idx
		}
	}
	return -1
}

func laneOf(tasks []domain.Task, status domain.Status) []domain.Task {
	out := make([]domain.Task, 0, len(tasks))
	for _, task := range tasks {
		if task.Status == status {
			out = append(out, task.Clone())
		}
	}
	return out
}
