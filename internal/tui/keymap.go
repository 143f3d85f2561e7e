package tui

import "charm.land/bubbles/v2/key"

// keyMap holds the bindings for pages, the drag gesture and the task modal.
type keyMap struct {
	quit       key.Binding
	back       key.Binding
	reload     key.Binding
	toggleHelp key.Binding
	moveLeft   key.Binding
	moveRight  key.Binding
	moveUp     key.Binding
	moveDown   key.Binding
	open       key.Binding
	newTask    key.Binding
	issues     key.Binding
	copyRef    key.Binding

	pickUp key.Binding
	drop   key.Binding

	search         key.Binding
	filterStatus   key.Binding
	filterBoard    key.Binding
	filterAssignee key.Binding
	clearFilters   key.Binding

	submit      key.Binding
	closeModal  key.Binding
	discard     key.Binding
	viewOnBoard key.Binding
	nextField   key.Binding
	prevField   key.Binding
	retryLoad   key.Binding
}

// newKeyMap constructs the default bindings.
func newKeyMap() keyMap {
	return keyMap{
		quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		back:       key.NewBinding(key.WithKeys("esc", "b"), key.WithHelp("esc/b", "boards")),
		reload:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		toggleHelp: key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		moveLeft:   key.NewBinding(key.WithKeys("h", "left"), key.WithHelp("h/←", "lane left")),
		moveRight:  key.NewBinding(key.WithKeys("l", "right"), key.WithHelp("l/→", "lane right")),
		moveUp:     key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "up")),
		moveDown:   key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "down")),
		open:       key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		newTask:    key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new task")),
		issues:     key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "issues")),
		copyRef:    key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy ref")),

		pickUp: key.NewBinding(key.WithKeys("space", " "), key.WithHelp("space", "pick up")),
		drop:   key.NewBinding(key.WithKeys("space", " ", "enter"), key.WithHelp("space/enter", "drop")),

		search:         key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		filterStatus:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "status filter")),
		filterBoard:    key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "board filter")),
		filterAssignee: key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "assignee filter")),
		clearFilters:   key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "clear filters")),

		submit:      key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save")),
		closeModal:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close")),
		discard:     key.NewBinding(key.WithKeys("ctrl+d"), key.WithHelp("ctrl+d", "discard draft")),
		viewOnBoard: key.NewBinding(key.WithKeys("ctrl+o"), key.WithHelp("ctrl+o", "view on board")),
		nextField:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next field")),
		prevField:   key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev field")),
		retryLoad:   key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "retry")),
	}
}

// ShortHelp returns the footer bindings.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.open, k.newTask, k.pickUp, k.issues, k.copyRef, k.toggleHelp, k.quit,
	}
}

// FullHelp returns the grouped help overlay bindings.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.open, k.newTask, k.issues, k.back, k.reload, k.copyRef, k.toggleHelp, k.quit},
		{k.moveLeft, k.moveRight, k.moveUp, k.moveDown, k.pickUp, k.drop},
		{k.search, k.filterStatus, k.filterBoard, k.filterAssignee, k.clearFilters},
		{k.submit, k.closeModal, k.discard, k.viewOnBoard, k.nextField, k.prevField, k.retryLoad},
	}
}

// modalHelp lists the bindings shown inside the task modal.
type modalHelp struct {
	keys        keyMap
	canNavigate bool
}

// ShortHelp returns the modal footer bindings.
func (h modalHelp) ShortHelp() []key.Binding {
	out := []key.Binding{h.keys.submit, h.keys.closeModal, h.keys.discard, h.keys.nextField}
	if h.canNavigate {
		out = append(out, h.keys.viewOnBoard)
	}
	return out
}

// FullHelp returns the modal bindings in one group.
func (h modalHelp) FullHelp() [][]key.Binding {
	return [][]key.Binding{h.ShortHelp()}
}
