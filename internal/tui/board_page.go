package tui

import (
	"context"
	"fmt"
	"strings"

	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/evanschultz/taskboard/internal/app"
	"github.com/evanschultz/taskboard/internal/domain"
)

const (
	// boardTop is the first screen row of the lane boxes: title, description, spacer.
	boardTop = 3
	// laneCardTop is the first card row inside a lane: border, lane title, spacer.
	laneCardTop = 3
	// cardRows is the height of one card including its trailing spacer.
	cardRows = 3
	// detailRows is the height reserved under the lanes for the focused task.
	detailRows = 8
)

// openBoard switches to the board page and starts loading boardID.
func (m *Model) openBoard(boardID int) tea.Cmd {
	m.leavePage()
	m.page = pageBoard
	m.boardID = boardID
	m.laneIndex = 0
	m.taskIndex = 0
	m.status = "loading board..."
	return m.loadBoard(boardID)
}

// loadBoard begins a board load; the fetch runs in the returned command.
func (m *Model) loadBoard(boardID int) tea.Cmd {
	ticket := m.board.BeginLoad(boardID)
	m.boardSeen = m.inval.Version(app.QueryBoardTasks)
	board := m.board
	return func() tea.Msg {
		data, err := board.Fetch(context.Background(), ticket)
		return boardLoadedMsg{ticket: ticket, data: data, err: err}
	}
}

// handleBoardKey handles the board page and the keyboard drag.
func (m Model) handleBoardKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	if m.drag.active() {
		switch {
		case key.Matches(msg, m.keys.moveLeft):
			m.drag.shift(-1)
			m.status = fmt.Sprintf("drop #%d on %s", m.drag.taskID, m.drag.target.Label())
		case key.Matches(msg, m.keys.moveRight):
			m.drag.shift(1)
			m.status = fmt.Sprintf("drop #%d on %s", m.drag.taskID, m.drag.target.Label())
		case key.Matches(msg, m.keys.drop):
			event, ok := m.drag.drop()
			if !ok {
				return m, nil
			}
			return m.applyDrop(event)
		case msg.String() == "esc":
			m.drag.cancel()
			m.status = "drag cancelled"
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.toggleHelp):
		m.help.ShowAll = true
		return m, nil
	case key.Matches(msg, m.keys.back):
		cmd := m.openBoards()
		return m, cmd
	case key.Matches(msg, m.keys.moveLeft):
		m.laneIndex = clamp(m.laneIndex-1, 0, len(domain.Lanes())-1)
		m.clampBoardSelection()
		return m, nil
	case key.Matches(msg, m.keys.moveRight):
		m.laneIndex = clamp(m.laneIndex+1, 0, len(domain.Lanes())-1)
		m.clampBoardSelection()
		return m, nil
	case key.Matches(msg, m.keys.moveUp):
		m.taskIndex--
		m.clampBoardSelection()
		return m, nil
	case key.Matches(msg, m.keys.moveDown):
		m.taskIndex++
		m.clampBoardSelection()
		return m, nil
	case key.Matches(msg, m.keys.open):
		task, ok := m.focusedTask()
		if !ok {
			return m, nil
		}
		cmd := m.openModal(app.SeedTask(task))
		return m, cmd
	case key.Matches(msg, m.keys.newTask):
		cmd := m.openModal(app.SeedBoard(m.boardID))
		return m, cmd
	case key.Matches(msg, m.keys.reload):
		m.status = "reloading..."
		cmd := m.loadBoard(m.boardID)
		return m, cmd
	case key.Matches(msg, m.keys.pickUp):
		task, ok := m.focusedTask()
		if !ok {
			return m, nil
		}
		m.drag.pickUp(task.ID, task.Status)
		m.status = fmt.Sprintf("picked up #%d: h/l choose lane, space drop, esc cancel", task.ID)
		return m, nil
	case key.Matches(msg, m.keys.copyRef):
		task, ok := m.focusedTask()
		if !ok {
			return m, nil
		}
		return m, m.copyToClipboard(taskReference(task))
	case key.Matches(msg, m.keys.issues):
		cmd := m.enterIssues()
		return m, cmd
	}
	return m, nil
}

// handleBoardMouse feeds pointer input to the drag recognizer.
func (m Model) handleBoardMouse(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.MouseClickMsg:
		mouse := msg.Mouse()
		if mouse.Button != tea.MouseLeft {
			return m, nil
		}
		lane, ok := m.laneAt(mouse.X)
		if !ok {
			return m, nil
		}
		m.laneIndex = lane.Index()
		taskID, idx, ok := m.cardAt(lane, mouse.Y)
		if !ok {
			m.clampBoardSelection()
			return m, nil
		}
		m.taskIndex = idx
		m.drag.press(taskID, lane, mouse.X, mouse.Y)
		return m, nil

	case tea.MouseMotionMsg:
		mouse := msg.Mouse()
		lane, over := m.laneAt(mouse.X)
		if m.drag.motion(mouse.X, mouse.Y, lane, over) {
			m.status = fmt.Sprintf("dragging #%d", m.drag.taskID)
		}
		return m, nil

	case tea.MouseReleaseMsg:
		mouse := msg.Mouse()
		lane, over := m.laneAt(mouse.X)
		g, event := m.drag.release(lane, over)
		switch g {
		case gestureClick:
			task, ok := m.board.Task(event.TaskID)
			if !ok {
				return m, nil
			}
			cmd := m.openModal(app.SeedTask(task))
			return m, cmd
		case gestureDrop:
			return m.applyDrop(event)
		}
		return m, nil

	case tea.MouseWheelMsg:
		switch msg.Mouse().Button {
		case tea.MouseWheelUp:
			m.taskIndex--
		case tea.MouseWheelDown:
			m.taskIndex++
		}
		m.clampBoardSelection()
		return m, nil
	}
	return m, nil
}

// applyDrop runs the optimistic half of a drop now and commits in a command.
func (m Model) applyDrop(event dropEvent) (tea.Model, tea.Cmd) {
	move, ok, err := m.board.BeginDrop(event.TaskID, event.Lane)
	if err != nil {
		m.status = fmt.Sprintf("cannot move #%d: %v", event.TaskID, err)
		return m, nil
	}
	if !ok {
		m.status = fmt.Sprintf("#%d stays in %s", event.TaskID, event.Lane.Label())
		return m, nil
	}
	m.selectTask(move.TaskID)
	m.status = fmt.Sprintf("moving #%d to %s...", move.TaskID, move.To.Label())
	board := m.board
	return m, func() tea.Msg {
		task, err := board.CommitDrop(context.Background(), move)
		return dropCommittedMsg{move: move, task: task, err: err}
	}
}

// focusedTask returns the task under the board cursor.
func (m Model) focusedTask() (domain.Task, bool) {
	lanes := domain.Lanes()
	tasks := m.board.Lane(lanes[clamp(m.laneIndex, 0, len(lanes)-1)])
	if len(tasks) == 0 {
		return domain.Task{}, false
	}
	return tasks[clamp(m.taskIndex, 0, len(tasks)-1)], true
}

// selectTask moves the board cursor onto taskID.
func (m *Model) selectTask(taskID int) bool {
	for laneIdx, lane := range domain.Lanes() {
		for taskIdx, task := range m.board.Lane(lane) {
			if task.ID == taskID {
				m.laneIndex = laneIdx
				m.taskIndex = taskIdx
				return true
			}
		}
	}
	return false
}

// clampBoardSelection keeps the board cursor inside the current lane.
func (m *Model) clampBoardSelection() {
	lanes := domain.Lanes()
	m.laneIndex = clamp(m.laneIndex, 0, len(lanes)-1)
	m.taskIndex = clamp(m.taskIndex, 0, len(m.board.Lane(lanes[m.laneIndex]))-1)
}

// laneWidth returns the inner width of one lane.
func (m Model) laneWidth() int {
	lanes := len(domain.Lanes())
	w := 28
	if m.width > 0 {
		// Per-lane overhead: left/right border (2), horizontal padding (2), margin-right (1)
		const laneOverhead = 5
		if candidate := (m.width - lanes*laneOverhead) / lanes; candidate > 0 {
			w = candidate
		}
	}
	return clamp(w, 18, 48)
}

// laneHeight returns the outer height of one lane.
func (m Model) laneHeight() int {
	const footerLines = 4
	h := m.height - boardTop - footerLines - detailRows
	if h < 10 {
		return 10
	}
	return h
}

// laneStyle is the lane box; target highlights a drag target.
func (m Model) laneStyle(focused, target bool) lipgloss.Style {
	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("239")).
		Padding(0, 1).
		MarginRight(1).
		Width(m.laneWidth()).
		Height(m.laneHeight())
	switch {
	case target:
		style = style.BorderForeground(lipgloss.Color("212"))
	case focused:
		style = style.BorderForeground(lipgloss.Color("62"))
	}
	return style
}

// lanePitch is the rendered width of one lane including its margin.
func (m Model) lanePitch() int {
	return lipgloss.Width(m.laneStyle(false, false).Render(""))
}

// laneAt maps a screen column onto a lane.
func (m Model) laneAt(x int) (domain.Status, bool) {
	pitch := m.lanePitch()
	if x < 0 || pitch <= 0 {
		return "", false
	}
	lanes := domain.Lanes()
	idx := x / pitch
	if idx >= len(lanes) {
		return "", false
	}
	return lanes[idx], true
}

// cardAt maps a screen row inside lane onto a card.
func (m Model) cardAt(lane domain.Status, y int) (int, int, bool) {
	rel := y - boardTop - laneCardTop
	if rel < 0 || rel%cardRows == cardRows-1 {
		return 0, 0, false
	}
	idx := rel / cardRows
	tasks := m.board.Lane(lane)
	if idx >= len(tasks) {
		return 0, 0, false
	}
	return tasks[idx].ID, idx, true
}

// renderBoard renders the board page body.
func (m Model) renderBoard() string {
	snap := m.board.Snapshot()
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	mutedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	accent := lipgloss.Color("62")

	title := snap.Board.Title
	if title == "" {
		title = fmt.Sprintf("board %d", m.boardID)
	}
	header := titleStyle.Render("taskboard") + "  " + title
	if snap.Loading {
		header += dimStyle.Render("  loading...")
	}
	if len(snap.Pending) > 0 {
		header += dimStyle.Render(fmt.Sprintf("  saving %d", len(snap.Pending)))
	}
	lines := []string{header, mutedStyle.Render(truncate(snap.Board.Description, max(0, m.width-2))), ""}

	if snap.Err != nil {
		lines = append(lines, "error: "+snap.Err.Error(), "", dimStyle.Render("press r to retry • esc boards"))
		return strings.Join(lines, "\n")
	}

	laneTitle := lipgloss.NewStyle().Bold(true).Foreground(accent)
	selectedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	draggedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("243")).Italic(true)
	innerWidth := m.laneWidth() - 2

	laneViews := make([]string, 0, len(domain.Lanes()))
	for laneIdx, lane := range domain.Lanes() {
		tasks := laneOf(snap.Tasks, lane)
		isTarget := m.drag.active() && m.drag.target == lane
		heading := fmt.Sprintf("%s (%d)", lane.Label(), len(tasks))
		if isTarget {
			heading += " ← drop"
		}
		content := []string{laneTitle.Render(heading), ""}
		if len(tasks) == 0 {
			content = append(content, dimStyle.Render("(empty)"))
		}
		for taskIdx, task := range tasks {
			cardTitle := truncate(fmt.Sprintf("#%d %s", task.ID, task.Title), innerWidth)
			meta := string(task.Priority) + " · " + m.userName(task.AssigneeID)
			if _, pending := snap.Pending[task.ID]; pending {
				meta += " · saving"
			}
			meta = truncate(meta, innerWidth)
			switch {
			case m.drag.active() && m.drag.taskID == task.ID:
				cardTitle = draggedStyle.Render(cardTitle)
			case laneIdx == m.laneIndex && taskIdx == m.taskIndex:
				cardTitle = selectedStyle.Render(cardTitle)
			}
			content = append(content, cardTitle, mutedStyle.Render(meta), "")
		}
		body := fitLines(strings.Join(content, "\n"), max(1, m.laneHeight()-2))
		laneViews = append(laneViews, m.laneStyle(laneIdx == m.laneIndex, isTarget).Render(body))
	}
	lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, laneViews...))
	lines = append(lines, m.renderTaskDetail())
	return strings.Join(lines, "\n")
}

// renderTaskDetail renders the focused task description as markdown.
func (m Model) renderTaskDetail() string {
	task, ok := m.focusedTask()
	if !ok {
		return ""
	}
	titleStyle := lipgloss.NewStyle().Bold(true)
	mutedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	header := titleStyle.Render(fmt.Sprintf("#%d %s", task.ID, task.Title)) + "  " +
		mutedStyle.Render(fmt.Sprintf("%s · %s · %s", task.Status.Label(), task.Priority, m.userName(task.AssigneeID)))
	body := m.md.render(task.Description, max(24, m.width-4))
	if body == "" {
		body = mutedStyle.Render("no description")
	}
	return fitLines(header+"\n"+body, detailRows)
}

// taskReference is the clipboard text for one task.
func taskReference(task domain.Task) string {
	return fmt.Sprintf("#%d %s", task.ID, task.Title)
}

// laneOf filters tasks by status.
func laneOf(tasks []domain.Task, status domain.Status) []domain.Task {
	out := make([]domain.Task, 0, len(tasks))
	for _, task := range tasks {
		if task.Status == status {
			out = append(out, task)
		}
	}
	return out
}
