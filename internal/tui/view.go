package tui

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
)

// View renders the current page with the modal or help overlay on top.
func (m Model) View() tea.View {
	return newView(m.render())
}

// render composes the screen content.
func (m Model) render() string {
	if !m.ready {
		return "loading..."
	}

	var body string
	switch m.page {
	case pageBoard:
		body = m.renderBoard()
	case pageIssues:
		body = m.renderIssues()
	default:
		body = m.renderBoards()
	}

	statusStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	helpBubble := m.help
	helpBubble.ShowAll = false
	helpBubble.SetWidth(max(0, m.width-2))
	helpLine := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		BorderTop(true).
		BorderForeground(lipgloss.Color("239")).
		Padding(0, 1).
		Width(max(0, m.width)).
		Render(helpBubble.View(m.keys))
	statusLine := statusStyle.Render(truncate(m.status, max(0, m.width-2)))

	footer := statusLine + "\n" + helpLine
	if m.height > 0 {
		body = fitLines(body, max(0, m.height-lipgloss.Height(footer)))
	}
	content := body + "\n" + footer

	height := lipgloss.Height(content)
	if m.height > 0 {
		height = m.height
	}
	if snap := m.modal.Snapshot(); snap.Open() {
		content = overlayOnContent(content, m.renderModal(snap), max(1, m.width), max(1, height))
	} else if m.help.ShowAll {
		content = overlayOnContent(content, m.renderHelpOverlay(), max(1, m.width), max(1, height))
	}
	return content
}

// newView enables mouse motion and the alternate screen.
func newView(content string) tea.View {
	v := tea.NewView(content)
	v.MouseMode = tea.MouseModeCellMotion
	v.AltScreen = true
	return v
}

// renderBoards renders the boards list.
func (m Model) renderBoards() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	mutedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	selectedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)

	lines := []string{titleStyle.Render("taskboard") + "  Boards", ""}
	if m.boardsErr != nil {
		lines = append(lines, "error: "+m.boardsErr.Error(), "", dimStyle.Render("press r to retry • q quit"))
		return strings.Join(lines, "\n")
	}
	if len(m.boards) == 0 {
		if m.boardsLoading {
			lines = append(lines, dimStyle.Render("loading..."))
		} else {
			lines = append(lines, dimStyle.Render("no boards"))
		}
		return strings.Join(lines, "\n")
	}
	for idx, board := range m.boards {
		name := fmt.Sprintf("%d. %s", board.ID, board.Title)
		if idx == m.boardIndex {
			name = selectedStyle.Render("› " + name)
		} else {
			name = "  " + name
		}
		lines = append(lines, name, "    "+mutedStyle.Render(truncate(board.Description, max(0, m.width-6))))
	}
	lines = append(lines, "", dimStyle.Render("enter open • n new task • i issues"))
	return strings.Join(lines, "\n")
}

// renderHelpOverlay renders the full key help in a box.
func (m Model) renderHelpOverlay() string {
	helpBubble := m.help
	helpBubble.ShowAll = true
	helpBubble.SetWidth(max(20, m.width-12))
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(0, 1).
		Render(lipgloss.NewStyle().Bold(true).Render("Keys") + "\n\n" + helpBubble.View(m.keys))
}

// clamp bounds v to [minV, maxV]; an empty range yields minV.
func clamp(v, minV, maxV int) int {
	if maxV < minV {
		return minV
	}
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

// fitLines pads or cuts content to exactly maxLines lines.
func fitLines(content string, maxLines int) string {
	if maxLines <= 0 {
		return ""
	}
	lines := strings.Split(content, "\n")
	switch {
	case len(lines) > maxLines:
		if maxLines == 1 {
			lines = []string{"…"}
		} else {
			lines = append(lines[:maxLines-1], "…")
		}
	case len(lines) < maxLines:
		padding := make([]string, maxLines-len(lines))
		lines = append(lines, padding...)
	}
	return strings.Join(lines, "\n")
}

// overlayOnContent centers overlay above base.
func overlayOnContent(base, overlay string, width, height int) string {
	if width <= 0 || height <= 0 {
		if strings.TrimSpace(overlay) == "" {
			return base
		}
		return overlay + "\n\n" + base
	}

	base = fitLines(base, height)
	canvas := lipgloss.NewCanvas(width, height)
	baseLayer := lipgloss.NewLayer(base).X(0).Y(0).Z(0)
	centeredOverlay := lipgloss.Place(
		width,
		height,
		lipgloss.Center,
		lipgloss.Center,
		overlay,
	)
	overlayLayer := lipgloss.NewLayer(centeredOverlay).X(0).Y(0).Z(10)

	canvas.Compose(baseLayer)
	canvas.Compose(overlayLayer)
	return canvas.Render()
}

// truncate shortens s to max runes with a trailing ellipsis.
func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	rs := []rune(s)
	if len(rs) <= max {
		return s
	}
	if max <= 1 {
		return string(rs[:max])
	}
	return string(rs[:max-1]) + "…"
}
