package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/evanschultz/taskboard/internal/domain"
	"golang.org/x/sync/errgroup"
)

// ModalState is the task modal lifecycle state.
type ModalState int

const (
	ModalClosed ModalState = iota
	ModalLoading
	ModalEditing
	ModalSubmitting
)

func (s ModalState) String() string {
	switch s {
	case ModalClosed:
		return "closed"
	case ModalLoading:
		return "loading"
	case ModalEditing:
		return "editing"
	case ModalSubmitting:
		return "submitting"
	default:
		return fmt.Sprintf("modal_state(%d)", int(s))
	}
}

// Seed is the initial data a view passes when opening the modal: an
// existing task to edit, a preset board for a new task, or nothing.
type Seed struct {
	Task    *domain.Task
	BoardID int
}

// SeedTask opens the modal on an existing task.
func SeedTask(task domain.Task) Seed {
	clone := task.Clone()
	return Seed{Task: &clone}
}

// SeedBoard opens the modal for a new task on boardID.
func SeedBoard(boardID int) Seed {
	return Seed{BoardID: boardID}
}

// IsZero reports a cold create.
func (s Seed) IsZero() bool {
	return s.Task == nil && s.BoardID <= 0
}

// TaskID returns the id of the edited task, or 0.
func (s Seed) TaskID() int {
	if s.Task == nil {
		return 0
	}
	return s.Task.ID
}

// NavigateFunc moves the host UI to a task on its board.
type NavigateFunc func(boardID, taskID int)

// DraftMode selects when form edits reach the draft store.
type DraftMode string

const (
	DraftImmediate DraftMode = "immediate"
	DraftIdle      DraftMode = "idle"
)

// DraftPolicy is the draft commit policy.
type DraftPolicy struct {
	Mode      DraftMode
	IdleDelay time.Duration
}

// DefaultDraftPolicy flushes a draft after half a second without edits.
func DefaultDraftPolicy() DraftPolicy {
	return DraftPolicy{Mode: DraftIdle, IdleDelay: 500 * time.Millisecond}
}

// ModalConfig holds optional collaborators of the task modal.
type ModalConfig struct {
	DraftPolicy   DraftPolicy
	Invalidations *Invalidations
}

// ReferenceData feeds the assignee and board selectors.
type ReferenceData struct {
	Users  []domain.User
	Boards []domain.Board
}

// SubmitRequest is a validated submission waiting for the repository.
type SubmitRequest struct {
	Session string
	TaskID  int
	Input   domain.TaskInput
}

// ModalSnapshot is a read-only copy of modal state for rendering.
type ModalSnapshot struct {
	State       ModalState
	Session     string
	Seed        Seed
	Form        TaskForm
	Reference   ReferenceData
	LoadErr     error
	SubmitErr   error
	DraftErr    error
	Revision    uint64
	DraftDirty  bool
	BoardLocked bool
	CanNavigate bool
}

// Open reports whether the dialog is visible.
func (s ModalSnapshot) Open() bool {
	return s.State != ModalClosed
}

// TaskModal is the single create/edit task dialog of a UI session.
// It reconciles the seed, the saved draft and defaults into one form and
// persists submissions through the repository.
type TaskModal struct {
	repo   TaskRepository
	drafts DraftStore
	inval  *Invalidations
	newID  IDGenerator
	policy DraftPolicy

	// ioMu serializes draft store writes so a late flush cannot land after a clear.
	ioMu sync.Mutex

	mu        sync.Mutex
	state     ModalState
	session   string
	seed      Seed
	form      TaskForm
	ref       ReferenceData
	loadErr   error
	submitErr error
	draftErr  error
	rev       uint64
	savedRev  uint64
	navigate  NavigateFunc
}

// NewTaskModal constructs a closed modal.
func NewTaskModal(repo TaskRepository, drafts DraftStore, idGen IDGenerator, cfg ModalConfig) *TaskModal {
	if idGen == nil {
		var n int
		idGen = func() string {
			n++
			return fmt.Sprintf("session-%d", n)
		}
	}
	policy := cfg.DraftPolicy
	switch policy.Mode {
	case DraftImmediate:
	case DraftIdle:
		if policy.IdleDelay <= 0 {
			policy.IdleDelay = DefaultDraftPolicy().IdleDelay
		}
	default:
		policy = DefaultDraftPolicy()
	}
	inval := cfg.Invalidations
	if inval == nil {
		inval = NewInvalidations()
	}
	return &TaskModal{
		repo:   repo,
		drafts: drafts,
		inval:  inval,
		newID:  idGen,
		policy: policy,
		form:   DefaultTaskForm(),
	}
}

// Invalidations returns the tracker a successful submit bumps.
func (m *TaskModal) Invalidations() *Invalidations {
	return m.inval
}

// DraftPolicy returns the effective draft commit policy.
func (m *TaskModal) DraftPolicy() DraftPolicy {
	return m.policy
}

// Open starts a new session and replaces any current one.
func (m *TaskModal) Open(seed Seed) string {
	if seed.Task != nil {
		seed = SeedTask(*seed.Task)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = m.newID()
	m.state = ModalLoading
	m.seed = seed
	m.form = DefaultTaskForm()
	m.ref = ReferenceData{}
	m.loadErr = nil
	m.submitErr = nil
	m.draftErr = nil
	m.rev = 0
	m.savedRev = 0
	return m.session
}

// Load fetches reference data and populates the form of session. The form
// comes from the seed, else the saved draft, else defaults. A reference
// failure still enters Editing with empty selectors.
func (m *TaskModal) Load(ctx context.Context, session string) error {
	m.mu.Lock()
	if m.session != session || m.state != ModalLoading {
		m.mu.Unlock()
		return ErrStaleSession
	}
	seed := m.seed
	m.mu.Unlock()

	ref, refErr := m.fetchReference(ctx)

	var (
		draft    domain.Draft
		hasDraft bool
		draftErr error
	)
	if seed.IsZero() && m.drafts != nil {
		draft, hasDraft, draftErr = m.drafts.Load(ctx)
		if draftErr != nil {
			// Unreadable drafts are treated as absent.
			hasDraft = false
			if errors.Is(draftErr, domain.ErrMalformedDraft) {
				draftErr = nil
			}
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session != session || m.state != ModalLoading {
		return ErrStaleSession
	}
	switch {
	case seed.Task != nil:
		m.form = formFromTask(*seed.Task)
	case seed.BoardID > 0:
		m.form = DefaultTaskForm()
		m.form.BoardID = domain.IntPtr(seed.BoardID)
	case hasDraft:
		m.form = formFromDraft(draft)
	default:
		m.form = DefaultTaskForm()
	}
	m.draftErr = draftErr
	m.state = ModalEditing
	if refErr != nil {
		m.ref = ReferenceData{}
		m.loadErr = refErr
		return refErr
	}
	m.ref = ref
	m.loadErr = nil
	return nil
}

// ReloadReference retries the selector data of an editing session without
// touching the form.
func (m *TaskModal) ReloadReference(ctx context.Context) error {
	m.mu.Lock()
	session := m.session
	if m.state != ModalEditing {
		m.mu.Unlock()
		return ErrModalNotEditing
	}
	m.mu.Unlock()

	ref, err := m.fetchReference(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session != session {
		return ErrStaleSession
	}
	if err != nil {
		m.loadErr = err
		return err
	}
	m.ref = ref
	m.loadErr = nil
	return nil
}

func (m *TaskModal) fetchReference(ctx context.Context) (ReferenceData, error) {
	var ref ReferenceData
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		users, err := m.repo.ListUsers(gctx)
		if err != nil {
			return fmt.Errorf("list users: %w", err)
		}
		ref.Users = users
		return nil
	})
	g.Go(func() error {
		boards, err := m.repo.ListBoards(gctx)
		if err != nil {
			return fmt.Errorf("list boards: %w", err)
		}
		ref.Boards = boards
		return nil
	})
	if err := g.Wait(); err != nil {
		return ReferenceData{}, errors.Join(ErrTransientLoad, err)
	}
	return ref, nil
}

// SetTitle edits the title and returns the new draft revision.
func (m *TaskModal) SetTitle(title string) (uint64, error) {
	return m.edit(func(f *TaskForm) error {
		f.Title = title
		return nil
	})
}

// SetDescription edits the description.
func (m *TaskModal) SetDescription(desc string) (uint64, error) {
	return m.edit(func(f *TaskForm) error {
		f.Description = desc
		return nil
	})
}

// SetPriority edits the priority.
func (m *TaskModal) SetPriority(p domain.Priority) (uint64, error) {
	return m.edit(func(f *TaskForm) error {
		if !p.Valid() {
			return domain.ErrInvalidPriority
		}
		f.Priority = p
		return nil
	})
}

// SetStatus edits the status.
func (m *TaskModal) SetStatus(s domain.Status) (uint64, error) {
	return m.edit(func(f *TaskForm) error {
		if !s.Valid() {
			return domain.ErrInvalidStatus
		}
		f.Status = s
		return nil
	})
}

// SetAssignee edits the assignee; nil unassigns.
func (m *TaskModal) SetAssignee(userID *int) (uint64, error) {
	return m.edit(func(f *TaskForm) error {
		f.AssigneeID = cloneIntPtr(userID)
		return nil
	})
}

// SetBoard edits the board of a new task; boards of existing tasks are locked.
func (m *TaskModal) SetBoard(boardID int) (uint64, error) {
	return m.edit(func(f *TaskForm) error {
		if m.seed.Task != nil {
			return ErrBoardLocked
		}
		if boardID <= 0 {
			return domain.ErrInvalidBoardID
		}
		f.BoardID = domain.IntPtr(boardID)
		return nil
	})
}

func (m *TaskModal) edit(apply func(*TaskForm) error) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != ModalEditing {
		return m.rev, ErrModalNotEditing
	}
	form := m.form.clone()
	if err := apply(&form); err != nil {
		return m.rev, err
	}
	m.form = form
	m.rev++
	return m.rev, nil
}

// Revision returns the current draft revision.
func (m *TaskModal) Revision() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rev
}

// FlushDraft writes the current form to the draft slot when it changed
// since the last write and has a title.
func (m *TaskModal) FlushDraft(ctx context.Context) error {
	if m.drafts == nil {
		return nil
	}
	m.ioMu.Lock()
	defer m.ioMu.Unlock()

	m.mu.Lock()
	session := m.session
	rev := m.rev
	if rev == m.savedRev || strings.TrimSpace(m.form.Title) == "" {
		m.mu.Unlock()
		return nil
	}
	draft := m.form.Draft()
	m.mu.Unlock()

	err := m.drafts.Save(ctx, draft)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		err = fmt.Errorf("save draft: %w", err)
		if m.session == session {
			m.draftErr = err
		}
		return err
	}
	if m.session == session && m.savedRev < rev {
		m.savedRev = rev
		m.draftErr = nil
	}
	return nil
}

// FlushDraftIfIdle flushes only when rev is still the latest revision,
// meaning no edit happened during the idle interval.
func (m *TaskModal) FlushDraftIfIdle(ctx context.Context, rev uint64) error {
	if m.Revision() != rev {
		return nil
	}
	return m.FlushDraft(ctx)
}

// BeginSubmit validates the form and moves to Submitting. Validation
// failures leave the modal in Editing and never reach the repository.
func (m *TaskModal) BeginSubmit() (SubmitRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != ModalEditing {
		return SubmitRequest{}, ErrModalNotEditing
	}
	if err := m.form.Validate(); err != nil {
		m.submitErr = err
		return SubmitRequest{}, err
	}
	req := SubmitRequest{
		Session: m.session,
		Input:   m.form.Input(),
	}
	if m.seed.Task != nil {
		req.TaskID = m.seed.Task.ID
		req.Input.BoardID = m.seed.Task.BoardID
	}
	m.state = ModalSubmitting
	m.submitErr = nil
	return req, nil
}

// CompleteSubmit persists req. Success clears the draft, invalidates task
// queries and closes the modal; failure returns to Editing and keeps the draft.
func (m *TaskModal) CompleteSubmit(ctx context.Context, req SubmitRequest) (domain.Task, error) {
	var (
		task domain.Task
		err  error
	)
	if req.TaskID > 0 {
		task, err = m.repo.UpdateTask(ctx, req.TaskID, domain.FullPatch(req.Input))
	} else {
		task, err = m.repo.CreateTask(ctx, req.Input)
	}
	if err != nil {
		err = fmt.Errorf("save task: %w", errors.Join(ErrPersistence, err))
		m.mu.Lock()
		if m.session == req.Session && m.state == ModalSubmitting {
			m.state = ModalEditing
			m.submitErr = err
		}
		m.mu.Unlock()
		return domain.Task{}, err
	}

	m.ioMu.Lock()
	m.mu.Lock()
	if m.session == req.Session {
		m.state = ModalClosed
		m.savedRev = m.rev
		m.submitErr = nil
	}
	m.mu.Unlock()
	var clearErr error
	if m.drafts != nil {
		clearErr = m.drafts.Clear(ctx)
	}
	m.ioMu.Unlock()

	if clearErr != nil {
		m.mu.Lock()
		if m.session == req.Session {
			m.draftErr = fmt.Errorf("clear draft: %w", clearErr)
		}
		m.mu.Unlock()
	}
	m.inval.Bump(QueryTasks, QueryBoardTasks)
	return task, nil
}

// Submit validates and persists the form.
func (m *TaskModal) Submit(ctx context.Context) (domain.Task, error) {
	req, err := m.BeginSubmit()
	if err != nil {
		return domain.Task{}, err
	}
	return m.CompleteSubmit(ctx, req)
}

// Close hides the dialog and flushes a pending draft. The seed stays until
// FinishClose so the form does not reset while the dialog disappears.
func (m *TaskModal) Close(ctx context.Context) (string, error) {
	m.mu.Lock()
	if m.state == ModalClosed {
		session := m.session
		m.mu.Unlock()
		return session, nil
	}
	m.state = ModalClosed
	session := m.session
	m.mu.Unlock()
	return session, m.FlushDraft(ctx)
}

// FinishClose resets the seed and form of a closed session. It does nothing
// if the modal was opened again in the meantime.
func (m *TaskModal) FinishClose(session string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session != session || m.state != ModalClosed {
		return false
	}
	m.seed = Seed{}
	m.form = DefaultTaskForm()
	m.ref = ReferenceData{}
	m.loadErr = nil
	m.submitErr = nil
	return true
}

// Discard closes the dialog and clears the saved draft.
func (m *TaskModal) Discard(ctx context.Context) (string, error) {
	m.ioMu.Lock()
	defer m.ioMu.Unlock()
	m.mu.Lock()
	m.state = ModalClosed
	m.savedRev = m.rev
	session := m.session
	m.mu.Unlock()
	if m.drafts == nil {
		return session, nil
	}
	if err := m.drafts.Clear(ctx); err != nil {
		return session, fmt.Errorf("clear draft: %w", err)
	}
	return session, nil
}

// RegisterNavigateCallback sets the "view on board" handler; the last
// registration wins.
func (m *TaskModal) RegisterNavigateCallback(fn NavigateFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.navigate = fn
}

// CanNavigateToBoard reports whether "view on board" is offered.
func (m *TaskModal) CanNavigateToBoard() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.canNavigateLocked()
}

func (m *TaskModal) canNavigateLocked() bool {
	return m.state != ModalClosed && m.seed.Task != nil && m.seed.Task.ID > 0 &&
		m.seed.Task.BoardID > 0 && m.navigate != nil
}

// NavigateToBoard closes the modal and hands the edited task to the
// registered navigation callback.
func (m *TaskModal) NavigateToBoard(ctx context.Context) error {
	m.mu.Lock()
	if !m.canNavigateLocked() {
		m.mu.Unlock()
		return ErrNavigateUnavailable
	}
	boardID, taskID := m.seed.Task.BoardID, m.seed.Task.ID
	fn := m.navigate
	m.mu.Unlock()

	_, err := m.Close(ctx)
	fn(boardID, taskID)
	return err
}

// Snapshot copies the modal state.
func (m *TaskModal) Snapshot() ModalSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	seed := m.seed
	if seed.Task != nil {
		clone := seed.Task.Clone()
		seed.Task = &clone
	}
	return ModalSnapshot{
		State:   m.state,
		Session: m.session,
		Seed:    seed,
		Form:    m.form.clone(),
		Reference: ReferenceData{
			Users:  append([]domain.User(nil), m.ref.Users...),
			Boards: append([]domain.Board(nil), m.ref.Boards...),
		},
		LoadErr:     m.loadErr,
		SubmitErr:   m.submitErr,
		DraftErr:    m.draftErr,
		Revision:    m.rev,
		DraftDirty:  m.rev != m.savedRev,
		BoardLocked: m.seed.Task != nil,
		CanNavigate: m.canNavigateLocked(),
	}
}
