package tui

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/textarea"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/evanschultz/taskboard/internal/app"
	"github.com/evanschultz/taskboard/internal/domain"
)

// modalField is one focusable row of the task modal.
type modalField int

const (
	fieldTitle modalField = iota
	fieldDescription
	fieldPriority
	fieldStatus
	fieldAssignee
	fieldBoard
	fieldCount
)

// modalLoadedMsg carries the result of loading a modal session.
type modalLoadedMsg struct {
	session string
	err     error
}

// modalReferenceMsg carries a retried reference-data load.
type modalReferenceMsg struct {
	err error
}

// draftIdleMsg fires once the idle autosave delay elapsed after rev.
type draftIdleMsg struct {
	rev uint64
}

// draftSavedMsg reports a draft flush.
type draftSavedMsg struct {
	err error
}

// modalSubmittedMsg carries a persisted submission.
type modalSubmittedMsg struct {
	session string
	task    domain.Task
	err     error
}

// modalClosedMsg reports a close, discard or navigate.
type modalClosedMsg struct {
	session   string
	navigated bool
	err       error
}

// modalFinishMsg resets a closed session after the close delay.
type modalFinishMsg struct {
	session string
}

// modalForm holds the text widgets of the modal; selectors live in the TaskModal form.
type modalForm struct {
	title       textinput.Model
	description textarea.Model
	focus       modalField
}

// newModalForm constructs the modal widgets.
func newModalForm() modalForm {
	title := textinput.New()
	title.Prompt = ""
	title.Placeholder = "task title"
	title.CharLimit = 200
	staticCursor(&title)

	desc := textarea.New()
	desc.Placeholder = "markdown description"
	desc.ShowLineNumbers = false
	styles := desc.Styles()
	styles.Cursor.Blink = false
	desc.SetStyles(styles)
	desc.SetHeight(5)
	desc.SetWidth(56)
	return modalForm{title: title, description: desc}
}

// staticCursor disables cursor blinking on a text input.
func staticCursor(in *textinput.Model) {
	styles := in.Styles()
	styles.Cursor.Blink = false
	in.SetStyles(styles)
}

// reset clears the widgets and returns focus to the title.
func (f *modalForm) reset() {
	f.title.Reset()
	f.description.Reset()
	f.focus = fieldTitle
	f.title.Blur()
	f.description.Blur()
}

// fill copies a loaded form into the widgets.
func (f *modalForm) fill(form app.TaskForm) tea.Cmd {
	f.title.SetValue(form.Title)
	f.description.SetValue(form.Description)
	f.focus = fieldTitle
	return f.applyFocus()
}

// applyFocus focuses the widget of the current field.
func (f *modalForm) applyFocus() tea.Cmd {
	f.title.Blur()
	f.description.Blur()
	switch f.focus {
	case fieldTitle:
		return f.title.Focus()
	case fieldDescription:
		return f.description.Focus()
	}
	return nil
}

// resize fits the widgets into width.
func (f *modalForm) resize(width int) {
	inner := max(20, width-4)
	f.title.SetWidth(inner)
	f.description.SetWidth(inner)
}

// update forwards non-key messages to the focused widget.
func (f modalForm) update(msg tea.Msg) (modalForm, tea.Cmd) {
	var cmd tea.Cmd
	switch f.focus {
	case fieldTitle:
		f.title, cmd = f.title.Update(msg)
	case fieldDescription:
		f.description, cmd = f.description.Update(msg)
	}
	return f, cmd
}

// openModal opens a session for seed and loads it in a command.
func (m *Model) openModal(seed app.Seed) tea.Cmd {
	m.drag.cancel()
	session := m.modal.Open(seed)
	m.form.reset()
	m.status = "loading task..."
	modal := m.modal
	return func() tea.Msg {
		return modalLoadedMsg{session: session, err: modal.Load(context.Background(), session)}
	}
}

// handleModalMsg handles the modal lifecycle messages.
func (m Model) handleModalMsg(msg tea.Msg) (Model, tea.Cmd, bool) {
	switch msg := msg.(type) {
	case modalLoadedMsg:
		if errors.Is(msg.err, app.ErrStaleSession) {
			return m, nil, true
		}
		snap := m.modal.Snapshot()
		if snap.Session != msg.session || snap.State != app.ModalEditing {
			return m, nil, true
		}
		cmd := m.form.fill(snap.Form)
		m.status = "editing"
		if msg.err != nil {
			m.status = "reference data unavailable: ctrl+r to retry"
		}
		return m, cmd, true

	case modalReferenceMsg:
		if msg.err != nil {
			m.status = "reference data unavailable: " + msg.err.Error()
		} else {
			m.status = "reference data loaded"
		}
		return m, nil, true

	case draftIdleMsg:
		modal := m.modal
		return m, func() tea.Msg {
			return draftSavedMsg{err: modal.FlushDraftIfIdle(context.Background(), msg.rev)}
		}, true

	case draftSavedMsg:
		if msg.err != nil {
			m.status = "draft not saved: " + msg.err.Error()
		}
		return m, nil, true

	case modalSubmittedMsg:
		if msg.err != nil {
			m.status = "save failed: " + msg.err.Error()
			return m, nil, true
		}
		m.status = fmt.Sprintf("saved #%d %s", msg.task.ID, msg.task.Title)
		cmd := tea.Batch(m.finishClose(msg.session), m.refreshStale())
		return m, cmd, true

	case modalClosedMsg:
		if msg.err != nil {
			m.status = "draft not saved: " + msg.err.Error()
		} else if !msg.navigated {
			m.status = "ready"
		}
		cmds := []tea.Cmd{m.finishClose(msg.session)}
		if msg.navigated {
			if boardID, taskID, ok := m.nav.take(); ok {
				m.focusTaskID = taskID
				cmds = append(cmds, m.openBoard(boardID))
			}
		}
		return m, tea.Batch(cmds...), true

	case modalFinishMsg:
		if m.modal.FinishClose(msg.session) {
			m.form.reset()
		}
		return m, nil, true
	}
	return m, nil, false
}

// handleModalKey handles keys while the modal is open.
func (m Model) handleModalKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	snap := m.modal.Snapshot()
	switch {
	case key.Matches(msg, m.keys.closeModal):
		return m, m.closeModal()
	case key.Matches(msg, m.keys.discard):
		return m, m.discardModal()
	}
	if snap.State != app.ModalEditing {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.submit):
		return m.submitModal()
	case key.Matches(msg, m.keys.viewOnBoard):
		if !snap.CanNavigate {
			m.status = "view on board is unavailable here"
			return m, nil
		}
		return m, m.navigateFromModal(snap.Session)
	case key.Matches(msg, m.keys.retryLoad):
		if snap.LoadErr == nil {
			return m, nil
		}
		modal := m.modal
		return m, func() tea.Msg {
			return modalReferenceMsg{err: modal.ReloadReference(context.Background())}
		}
	case key.Matches(msg, m.keys.nextField):
		m.form.focus = (m.form.focus + 1) % fieldCount
		cmd := m.form.applyFocus()
		return m, cmd
	case key.Matches(msg, m.keys.prevField):
		m.form.focus = (m.form.focus + fieldCount - 1) % fieldCount
		cmd := m.form.applyFocus()
		return m, cmd
	}

	switch m.form.focus {
	case fieldTitle:
		before := m.form.title.Value()
		var cmd tea.Cmd
		m.form.title, cmd = m.form.title.Update(msg)
		if value := m.form.title.Value(); value != before {
			rev, err := m.modal.SetTitle(value)
			cmd = tea.Batch(cmd, m.afterEdit(rev, err))
			return m, cmd
		}
		return m, cmd
	case fieldDescription:
		before := m.form.description.Value()
		var cmd tea.Cmd
		m.form.description, cmd = m.form.description.Update(msg)
		if value := m.form.description.Value(); value != before {
			rev, err := m.modal.SetDescription(value)
			cmd = tea.Batch(cmd, m.afterEdit(rev, err))
			return m, cmd
		}
		return m, cmd
	}

	delta := 0
	switch {
	case key.Matches(msg, m.keys.moveLeft):
		delta = -1
	case key.Matches(msg, m.keys.moveRight), key.Matches(msg, m.keys.pickUp):
		delta = 1
	}
	if delta == 0 {
		return m, nil
	}
	rev, err := m.cycleField(snap, delta)
	cmd := m.afterEdit(rev, err)
	return m, cmd
}

// cycleField steps the focused selector by delta options.
func (m *Model) cycleField(snap app.ModalSnapshot, delta int) (uint64, error) {
	form := snap.Form
	switch m.form.focus {
	case fieldPriority:
		options := domain.Priorities()
		return m.modal.SetPriority(options[cycleIndex(slices.Index(options, form.Priority), delta, len(options))])
	case fieldStatus:
		options := domain.Lanes()
		return m.modal.SetStatus(options[cycleIndex(slices.Index(options, form.Status), delta, len(options))])
	case fieldAssignee:
		users := snap.Reference.Users
		if len(users) == 0 {
			return 0, errors.New("no users loaded")
		}
		// option 0 is "unassigned"
		current := 0
		if form.AssigneeID != nil {
			current = slices.IndexFunc(users, func(u domain.User) bool { return u.ID == *form.AssigneeID }) + 1
		}
		next := cycleIndex(current, delta, len(users)+1)
		if next == 0 {
			return m.modal.SetAssignee(nil)
		}
		return m.modal.SetAssignee(domain.IntPtr(users[next-1].ID))
	case fieldBoard:
		if snap.BoardLocked {
			return 0, app.ErrBoardLocked
		}
		boards := snap.Reference.Boards
		if len(boards) == 0 {
			return 0, errors.New("no boards loaded")
		}
		current := -1
		if form.BoardID != nil {
			current = slices.IndexFunc(boards, func(b domain.Board) bool { return b.ID == *form.BoardID })
		}
		return m.modal.SetBoard(boards[cycleIndex(current, delta, len(boards))].ID)
	}
	return 0, nil
}

// cycleIndex steps idx by delta with wraparound; a missing idx starts at an end.
func cycleIndex(idx, delta, n int) int {
	if n <= 0 {
		return 0
	}
	if idx < 0 {
		if delta >= 0 {
			return 0
		}
		return n - 1
	}
	return ((idx+delta)%n + n) % n
}

// afterEdit schedules the draft commit for rev per the modal draft policy.
func (m *Model) afterEdit(rev uint64, err error) tea.Cmd {
	if err != nil {
		m.status = err.Error()
		return nil
	}
	modal := m.modal
	policy := modal.DraftPolicy()
	if policy.Mode == app.DraftImmediate {
		return func() tea.Msg {
			return draftSavedMsg{err: modal.FlushDraft(context.Background())}
		}
	}
	return tea.Tick(policy.IdleDelay, func(time.Time) tea.Msg {
		return draftIdleMsg{rev: rev}
	})
}

// submitModal validates synchronously and persists in a command.
func (m Model) submitModal() (tea.Model, tea.Cmd) {
	req, err := m.modal.BeginSubmit()
	if err != nil {
		m.status = "cannot save: " + err.Error()
		return m, nil
	}
	m.status = "saving..."
	modal := m.modal
	return m, func() tea.Msg {
		task, err := modal.CompleteSubmit(context.Background(), req)
		return modalSubmittedMsg{session: req.Session, task: task, err: err}
	}
}

// closeModal hides the modal and flushes its draft.
func (m Model) closeModal() tea.Cmd {
	modal := m.modal
	return func() tea.Msg {
		session, err := modal.Close(context.Background())
		return modalClosedMsg{session: session, err: err}
	}
}

// discardModal hides the modal and clears its draft.
func (m Model) discardModal() tea.Cmd {
	modal := m.modal
	return func() tea.Msg {
		session, err := modal.Discard(context.Background())
		return modalClosedMsg{session: session, err: err}
	}
}

// navigateFromModal closes the modal and jumps to the edited task's board.
func (m Model) navigateFromModal(session string) tea.Cmd {
	modal := m.modal
	return func() tea.Msg {
		err := modal.NavigateToBoard(context.Background())
		return modalClosedMsg{session: session, navigated: true, err: err}
	}
}

// finishClose resets session once the close delay elapsed.
func (m Model) finishClose(session string) tea.Cmd {
	if m.closeDelay <= 0 {
		return func() tea.Msg { return modalFinishMsg{session: session} }
	}
	return tea.Tick(m.closeDelay, func(time.Time) tea.Msg {
		return modalFinishMsg{session: session}
	})
}

// modalWidth returns the modal box width.
func (m Model) modalWidth() int {
	if m.width <= 0 {
		return 64
	}
	return clamp(m.width-8, 40, 80)
}

// renderModal renders the task modal box.
func (m Model) renderModal(snap app.ModalSnapshot) string {
	accent := lipgloss.Color("62")
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(accent)
	labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Width(10)
	focusLabel := labelStyle.Foreground(lipgloss.Color("212")).Bold(true)
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("203"))

	heading := "New task"
	if id := snap.Seed.TaskID(); id > 0 {
		heading = fmt.Sprintf("Edit task #%d", id)
	}
	lines := []string{titleStyle.Render(heading), ""}

	if snap.State == app.ModalLoading {
		lines = append(lines, dimStyle.Render("loading..."))
		return m.modalBox(lines)
	}

	label := func(field modalField, text string) string {
		if m.form.focus == field {
			return focusLabel.Render(text)
		}
		return labelStyle.Render(text)
	}
	selector := func(field modalField, value string) string {
		if m.form.focus == field {
			return "‹ " + value + " ›"
		}
		return value
	}

	form := snap.Form
	assignee := "unassigned"
	if form.AssigneeID != nil {
		assignee = fmt.Sprintf("user %d", *form.AssigneeID)
		if user, ok := domain.FindUser(snap.Reference.Users, *form.AssigneeID); ok {
			assignee = user.Name
		}
	}
	board := "none"
	if form.BoardID != nil {
		board = fmt.Sprintf("board %d", *form.BoardID)
		if found, ok := domain.FindBoard(snap.Reference.Boards, *form.BoardID); ok {
			board = found.Title
		}
	}
	if snap.BoardLocked {
		board += dimStyle.Render(" (locked)")
	}

	lines = append(lines,
		label(fieldTitle, "Title"),
		m.form.title.View(),
		label(fieldDescription, "Details"),
		m.form.description.View(),
		"",
		label(fieldPriority, "Priority")+selector(fieldPriority, string(form.Priority)),
		label(fieldStatus, "Status")+selector(fieldStatus, form.Status.Label()),
		label(fieldAssignee, "Assignee")+selector(fieldAssignee, assignee),
		label(fieldBoard, "Board")+selector(fieldBoard, board),
		"",
	)

	var notes []string
	if snap.State == app.ModalSubmitting {
		notes = append(notes, dimStyle.Render("saving..."))
	}
	if snap.LoadErr != nil {
		notes = append(notes, errStyle.Render("selectors unavailable (ctrl+r retry): "+snap.LoadErr.Error()))
	}
	if snap.SubmitErr != nil {
		notes = append(notes, errStyle.Render(snap.SubmitErr.Error()))
	}
	if snap.DraftErr != nil {
		notes = append(notes, errStyle.Render("draft: "+snap.DraftErr.Error()))
	}
	if snap.DraftDirty && snap.State == app.ModalEditing {
		notes = append(notes, dimStyle.Render("unsaved draft changes"))
	}
	lines = append(lines, notes...)

	helpBubble := m.help
	helpBubble.ShowAll = false
	helpBubble.SetWidth(max(0, m.modalWidth()-4))
	lines = append(lines, helpBubble.View(modalHelp{keys: m.keys, canNavigate: snap.CanNavigate}))
	return m.modalBox(lines)
}

// modalBox wraps modal lines in the bordered dialog style.
func (m Model) modalBox(lines []string) string {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(0, 1).
		Width(m.modalWidth()).
		Render(strings.Join(lines, "\n"))
}
