package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"github.com/atotto/clipboard"
	"golang.org/x/sync/errgroup"

	"github.com/evanschultz/taskboard/internal/app"
	"github.com/evanschultz/taskboard/internal/domain"
)

// page identifies the visible screen.
type page int

const (
	pageBoards page = iota
	pageBoard
	pageIssues
)

// Model is the Bubble Tea model for the task board client.
type Model struct {
	repo     app.TaskRepository
	board    *app.BoardController
	modal    *app.TaskModal
	inval    *app.Invalidations
	feed     ChangeFeed
	copyText func(string) error
	nav      *navigator
	md       *markdownRenderer

	ready  bool
	width  int
	height int
	status string
	help   help.Model
	keys   keyMap
	page   page

	boards        []domain.Board
	users         []domain.User
	boardsErr     error
	boardsLoading bool
	boardIndex    int

	boardID     int
	laneIndex   int
	taskIndex   int
	boardSeen   uint64
	focusTaskID int
	drag        dragRecognizer

	issues        app.IssuesData
	issuesErr     error
	issuesLoading bool
	issuesSeen    uint64
	filter        app.IssueFilter
	searchInput   textinput.Model
	searching     bool
	issueIndex    int

	form       modalForm
	closeDelay time.Duration
}

// boardsLoadedMsg carries the boards page data.
type boardsLoadedMsg struct {
	boards []domain.Board
	users  []domain.User
	err    error
}

// boardLoadedMsg carries one board fetch.
type boardLoadedMsg struct {
	ticket app.LoadTicket
	data   app.BoardData
	err    error
}

// dropCommittedMsg carries the persisted half of a lane drop.
type dropCommittedMsg struct {
	move app.Move
	task domain.Task
	err  error
}

// issuesLoadedMsg carries the issues page data.
type issuesLoadedMsg struct {
	data app.IssuesData
	err  error
}

// feedStartedMsg carries a change-feed subscription.
type feedStartedMsg struct {
	events <-chan domain.ChangeEvent
	err    error
}

// changeEventMsg carries one change-feed event.
type changeEventMsg struct {
	event  domain.ChangeEvent
	events <-chan domain.ChangeEvent
}

// feedClosedMsg reports the change feed ended.
type feedClosedMsg struct{}

// copiedMsg reports a clipboard write.
type copiedMsg struct {
	text string
	err  error
}

// navigator receives "view on board" requests from the task modal. The
// modal calls it synchronously, so it only records the target for Update.
type navigator struct {
	mu      sync.Mutex
	boardID int
	taskID  int
	pending bool
}

// navigate records the requested board and task.
func (n *navigator) navigate(boardID, taskID int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.boardID, n.taskID, n.pending = boardID, taskID, true
}

// take returns and clears the pending request.
func (n *navigator) take() (int, int, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.pending {
		return 0, 0, false
	}
	n.pending = false
	return n.boardID, n.taskID, true
}

// NewModel constructs the TUI over repo. modal may be nil, in which case a
// modal without draft persistence is created. The model always refetches on
// the modal's invalidation tracker.
func NewModel(repo app.TaskRepository, modal *app.TaskModal, opts ...Option) Model {
	h := help.New()
	h.ShowAll = false
	searchInput := textinput.New()
	searchInput.Prompt = "/ "
	searchInput.Placeholder = "title or description"
	searchInput.CharLimit = 120
	staticCursor(&searchInput)
	m := Model{
		repo:          repo,
		board:         app.NewBoardController(repo),
		modal:         modal,
		inval:         app.NewInvalidations(),
		copyText:      clipboard.WriteAll,
		nav:           &navigator{},
		md:            &markdownRenderer{},
		status:        "loading...",
		boardsLoading: true,
		help:          h,
		keys:          newKeyMap(),
		searchInput:   searchInput,
		form:          newModalForm(),
		closeDelay:    200 * time.Millisecond,
		drag:          dragRecognizer{threshold: 1},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}
	if m.modal == nil {
		m.modal = app.NewTaskModal(repo, nil, nil, app.ModalConfig{Invalidations: m.inval})
	}
	m.inval = m.modal.Invalidations()
	return m
}

// Init loads the boards page and starts the change feed.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadBoards(), m.startFeed())
}

// Update routes messages to the page, drag and modal handlers.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		m.height = msg.Height
		m.form.resize(m.modalWidth())
		return m, nil

	case boardsLoadedMsg:
		m.boardsLoading = false
		if msg.err != nil {
			m.boardsErr = msg.err
			m.status = "boards unavailable: " + msg.err.Error()
			return m, nil
		}
		m.boardsErr = nil
		m.boards = msg.boards
		m.users = msg.users
		m.boardIndex = clamp(m.boardIndex, 0, len(m.boards)-1)
		m.settleStatus()
		return m, nil

	case boardLoadedMsg:
		err := m.board.ApplyLoad(msg.ticket, msg.data, msg.err)
		if errors.Is(err, app.ErrStaleLoad) {
			return m, nil
		}
		if err != nil {
			m.status = "board load failed: " + err.Error()
			return m, nil
		}
		if m.focusTaskID > 0 {
			m.selectTask(m.focusTaskID)
			m.focusTaskID = 0
		}
		m.clampBoardSelection()
		m.settleStatus()
		return m, nil

	case dropCommittedMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("move of #%d failed, back in %s", msg.move.TaskID, msg.move.From.Label())
		} else {
			m.status = fmt.Sprintf("moved #%d to %s", msg.move.TaskID, msg.move.To.Label())
			m.inval.Bump(app.QueryTasks)
		}
		if m.page == pageBoard {
			m.selectTask(msg.move.TaskID)
		}
		return m, nil

	case issuesLoadedMsg:
		m.issuesLoading = false
		if msg.err != nil {
			m.issuesErr = msg.err
			m.status = "issues unavailable: " + msg.err.Error()
			return m, nil
		}
		m.issuesErr = nil
		m.issues = msg.data
		m.issueIndex = clamp(m.issueIndex, 0, len(m.visibleIssues())-1)
		m.settleStatus()
		return m, nil

	case feedStartedMsg:
		if msg.err != nil {
			m.status = "live updates unavailable: " + msg.err.Error()
			return m, nil
		}
		return m, waitForChange(msg.events)

	case changeEventMsg:
		m.inval.Bump(app.QueryTasks, app.QueryBoardTasks)
		cmd := tea.Batch(m.refreshStale(), waitForChange(msg.events))
		return m, cmd

	case feedClosedMsg:
		m.status = "live updates stopped"
		return m, nil

	case copiedMsg:
		if msg.err != nil {
			m.status = "copy failed: " + msg.err.Error()
			return m, nil
		}
		m.status = "copied " + truncate(msg.text, 48)
		return m, nil

	case tea.KeyPressMsg:
		return m.handleKey(msg)

	case tea.MouseClickMsg, tea.MouseMotionMsg, tea.MouseReleaseMsg, tea.MouseWheelMsg:
		if m.modal.Snapshot().Open() || m.page != pageBoard {
			return m, nil
		}
		return m.handleBoardMouse(msg)
	}

	if next, cmd, ok := m.handleModalMsg(msg); ok {
		return next, cmd
	}
	if m.modal.Snapshot().Open() {
		var cmd tea.Cmd
		m.form, cmd = m.form.update(msg)
		return m, cmd
	}
	return m, nil
}

// handleKey dispatches one key press.
func (m Model) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	if m.modal.Snapshot().Open() {
		return m.handleModalKey(msg)
	}
	if m.help.ShowAll {
		if key.Matches(msg, m.keys.toggleHelp) || msg.String() == "esc" {
			m.help.ShowAll = false
		}
		return m, nil
	}
	switch m.page {
	case pageBoard:
		return m.handleBoardKey(msg)
	case pageIssues:
		return m.handleIssuesKey(msg)
	default:
		return m.handleBoardsKey(msg)
	}
}

// handleBoardsKey handles the boards list.
func (m Model) handleBoardsKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.toggleHelp):
		m.help.ShowAll = true
		return m, nil
	case key.Matches(msg, m.keys.moveUp):
		m.boardIndex = clamp(m.boardIndex-1, 0, len(m.boards)-1)
		return m, nil
	case key.Matches(msg, m.keys.moveDown):
		m.boardIndex = clamp(m.boardIndex+1, 0, len(m.boards)-1)
		return m, nil
	case key.Matches(msg, m.keys.open):
		if len(m.boards) == 0 {
			return m, nil
		}
		cmd := m.openBoard(m.boards[clamp(m.boardIndex, 0, len(m.boards)-1)].ID)
		return m, cmd
	case key.Matches(msg, m.keys.newTask):
		cmd := m.openModal(app.Seed{})
		return m, cmd
	case key.Matches(msg, m.keys.issues):
		cmd := m.enterIssues()
		return m, cmd
	case key.Matches(msg, m.keys.reload):
		cmd := m.loadBoards()
		return m, cmd
	}
	return m, nil
}

// loadBoards fetches boards and users for the boards page.
func (m *Model) loadBoards() tea.Cmd {
	m.boardsLoading = true
	repo := m.repo
	return func() tea.Msg {
		var msg boardsLoadedMsg
		g, ctx := errgroup.WithContext(context.Background())
		g.Go(func() error {
			boards, err := repo.ListBoards(ctx)
			msg.boards = boards
			return err
		})
		g.Go(func() error {
			users, err := repo.ListUsers(ctx)
			msg.users = users
			return err
		})
		if err := g.Wait(); err != nil {
			return boardsLoadedMsg{err: err}
		}
		return msg
	}
}

// openBoards returns to the boards list.
func (m *Model) openBoards() tea.Cmd {
	m.leavePage()
	m.page = pageBoards
	m.status = "loading..."
	return m.loadBoards()
}

// leavePage releases page-scoped state before switching pages.
func (m *Model) leavePage() {
	m.drag.cancel()
	if m.page == pageIssues {
		m.searching = false
		m.searchInput.Blur()
		m.modal.RegisterNavigateCallback(nil)
	}
}

// refreshStale refetches the visible page when its query version moved.
func (m *Model) refreshStale() tea.Cmd {
	switch m.page {
	case pageBoard:
		if m.inval.Version(app.QueryBoardTasks) != m.boardSeen {
			return m.loadBoard(m.boardID)
		}
	case pageIssues:
		if m.inval.Version(app.QueryTasks) != m.issuesSeen {
			return m.loadIssues()
		}
	}
	return nil
}

// startFeed subscribes to the change feed when one is configured.
func (m Model) startFeed() tea.Cmd {
	if m.feed == nil {
		return nil
	}
	feed := m.feed
	return func() tea.Msg {
		events, err := feed(context.Background())
		return feedStartedMsg{events: events, err: err}
	}
}

// waitForChange blocks for the next change-feed event.
func waitForChange(events <-chan domain.ChangeEvent) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-events
		if !ok {
			return feedClosedMsg{}
		}
		return changeEventMsg{event: event, events: events}
	}
}

// copyToClipboard writes text through the configured clipboard.
func (m Model) copyToClipboard(text string) tea.Cmd {
	write := m.copyText
	return func() tea.Msg {
		return copiedMsg{text: text, err: write(text)}
	}
}

// settleStatus replaces a progress status once the work finished.
func (m *Model) settleStatus() {
	if strings.HasSuffix(m.status, "...") {
		m.status = "ready"
	}
}

// userName resolves an assignee for display.
func (m Model) userName(id *int) string {
	if id == nil {
		return "unassigned"
	}
	users := m.users
	if len(m.issues.Users) > 0 {
		users = m.issues.Users
	}
	if user, ok := domain.FindUser(users, *id); ok {
		return user.Name
	}
	return fmt.Sprintf("user %d", *id)
}
