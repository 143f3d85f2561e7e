package domain

import "strings"

// Status is a task lifecycle state; each status is one board lane.
type Status string

const (
	StatusToDo       Status = "to_do"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

var lanes = []Status{StatusToDo, StatusInProgress, StatusDone}

// Lanes returns the fixed board lanes in display order.
func Lanes() []Status {
	return append([]Status(nil), lanes...)
}

// ParseStatus parses a status identifier case-insensitively.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", ErrInvalidStatus
	}
	return s, nil
}

// Valid reports whether s is one of the known lanes.
func (s Status) Valid() bool {
	return s.Index() >= 0
}

// Index returns the lane position of s, or -1.
func (s Status) Index() int {
	for idx, lane := range lanes {
		if lane == s {
			return idx
		}
	}
	return -1
}

// Label returns the display name of the lane.
func (s Status) Label() string {
	switch s {
	case StatusToDo:
		return "To Do"
	case StatusInProgress:
		return "In Progress"
	case StatusDone:
		return "Done"
	default:
		return string(s)
	}
}

// Next returns the lane delta positions away from s, clamped to the board edges.
func (s Status) Next(delta int) Status {
	idx := s.Index()
	if idx < 0 {
		return StatusToDo
	}
	idx += delta
	if idx < 0 {
		idx = 0
	}
	if idx > len(lanes)-1 {
		idx = len(lanes) - 1
	}
	return lanes[idx]
}
