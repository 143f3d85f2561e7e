package tui

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/evanschultz/taskboard/internal/app"
	"github.com/evanschultz/taskboard/internal/domain"
)

// enterIssues switches to the issues page. While it is visible, "view on
// board" from the task modal jumps to the task's board.
func (m *Model) enterIssues() tea.Cmd {
	m.leavePage()
	m.page = pageIssues
	m.modal.RegisterNavigateCallback(m.nav.navigate)
	m.status = "loading issues..."
	return m.loadIssues()
}

// loadIssues fetches tasks, boards and users.
func (m *Model) loadIssues() tea.Cmd {
	m.issuesLoading = true
	m.issuesSeen = m.inval.Version(app.QueryTasks)
	repo := m.repo
	return func() tea.Msg {
		data, err := app.LoadIssues(context.Background(), repo)
		return issuesLoadedMsg{data: data, err: err}
	}
}

// visibleIssues applies the current filter.
func (m Model) visibleIssues() []domain.Task {
	return app.FilterIssues(m.issues.Tasks, m.filter)
}

// handleIssuesKey handles the issues list and its search input.
func (m Model) handleIssuesKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	if m.searching {
		switch msg.String() {
		case "esc", "enter":
			m.searching = false
			m.searchInput.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.searchInput, cmd = m.searchInput.Update(msg)
		m.filter.Query = m.searchInput.Value()
		m.issueIndex = clamp(m.issueIndex, 0, len(m.visibleIssues())-1)
		return m, cmd
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
	case key.Matches(msg, m.keys.search):
		m.searching = true
		cmd := m.searchInput.Focus()
		return m, cmd
	case key.Matches(msg, m.keys.moveUp):
		m.issueIndex = clamp(m.issueIndex-1, 0, len(m.visibleIssues())-1)
		return m, nil
	case key.Matches(msg, m.keys.moveDown):
		m.issueIndex = clamp(m.issueIndex+1, 0, len(m.visibleIssues())-1)
		return m, nil
	case key.Matches(msg, m.keys.open):
		visible := m.visibleIssues()
		if len(visible) == 0 {
			return m, nil
		}
		cmd := m.openModal(app.SeedTask(visible[clamp(m.issueIndex, 0, len(visible)-1)]))
		return m, cmd
	case key.Matches(msg, m.keys.newTask):
		cmd := m.openModal(app.Seed{})
		return m, cmd
	case key.Matches(msg, m.keys.reload):
		cmd := m.loadIssues()
		return m, cmd
	case key.Matches(msg, m.keys.filterStatus):
		m.filter.Status = nextStatusFilter(m.filter.Status)
	case key.Matches(msg, m.keys.filterBoard):
		ids := make([]int, 0, len(m.issues.Boards))
		for _, board := range m.issues.Boards {
			ids = append(ids, board.ID)
		}
		m.filter.BoardID = nextIDFilter(ids, m.filter.BoardID)
	case key.Matches(msg, m.keys.filterAssignee):
		assignees := app.AssigneesOf(m.issues.Tasks, m.issues.Users)
		ids := make([]int, 0, len(assignees))
		for _, user := range assignees {
			ids = append(ids, user.ID)
		}
		m.filter.AssigneeID = nextIDFilter(ids, m.filter.AssigneeID)
	case key.Matches(msg, m.keys.clearFilters):
		m.filter = app.IssueFilter{}
		m.searchInput.Reset()
	default:
		return m, nil
	}
	m.issueIndex = clamp(m.issueIndex, 0, len(m.visibleIssues())-1)
	return m, nil
}

// nextStatusFilter cycles all -> each lane -> all.
func nextStatusFilter(current domain.Status) domain.Status {
	lanes := domain.Lanes()
	idx := slices.Index(lanes, current)
	if idx+1 >= len(lanes) {
		return ""
	}
	return lanes[idx+1]
}

// nextIDFilter cycles 0 (all) -> each id -> 0.
func nextIDFilter(ids []int, current int) int {
	idx := slices.Index(ids, current)
	if idx+1 >= len(ids) {
		return 0
	}
	return ids[idx+1]
}

// renderIssues renders the issues page body.
func (m Model) renderIssues() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	mutedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	selectedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)

	header := titleStyle.Render("taskboard") + "  Issues"
	if m.issuesLoading {
		header += dimStyle.Render("  loading...")
	}
	lines := []string{header}

	search := m.searchInput.View()
	if !m.searching && m.filter.Query == "" {
		search = dimStyle.Render("/ to search")
	}
	lines = append(lines, search, mutedStyle.Render(m.filterSummary()), "")

	if m.issuesErr != nil {
		lines = append(lines, "error: "+m.issuesErr.Error(), "", dimStyle.Render("press r to retry • esc boards"))
		return strings.Join(lines, "\n")
	}

	visible := m.visibleIssues()
	if len(visible) == 0 && !m.issuesLoading {
		lines = append(lines, dimStyle.Render("no matching issues"))
	}
	rowWidth := max(20, m.width-2)
	for idx, task := range visible {
		boardTitle := fmt.Sprintf("board %d", task.BoardID)
		if board, ok := domain.FindBoard(m.issues.Boards, task.BoardID); ok {
			boardTitle = board.Title
		}
		row := fmt.Sprintf("#%-3d %-40s %-12s %-10s %-12s %s",
			task.ID, truncate(task.Title, 40), task.Status.Label(), task.Priority, truncate(boardTitle, 12), m.userName(task.AssigneeID))
		row = truncate(row, rowWidth)
		if idx == m.issueIndex {
			row = selectedStyle.Render(row)
		}
		lines = append(lines, row)
	}
	return strings.Join(lines, "\n")
}

// filterSummary describes the active status, board and assignee filters.
func (m Model) filterSummary() string {
	status := "all"
	if m.filter.Status != "" {
		status = m.filter.Status.Label()
	}
	board := "all"
	if m.filter.BoardID > 0 {
		board = fmt.Sprintf("board %d", m.filter.BoardID)
		if found, ok := domain.FindBoard(m.issues.Boards, m.filter.BoardID); ok {
			board = found.Title
		}
	}
	assignee := "all"
	if m.filter.AssigneeID > 0 {
		assignee = m.userName(domain.IntPtr(m.filter.AssigneeID))
	}
	return fmt.Sprintf("status: %s  board: %s  assignee: %s", status, board, assignee)
}
