package domain

import (
	"slices"
	"strings"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

var validPriorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

// Priorities returns every priority from lowest to highest.
func Priorities() []Priority {
	return append([]Priority(nil), validPriorities...)
}

// ParsePriority parses a priority identifier case-insensitively.
func ParsePriority(raw string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(raw)))
	if !slices.Contains(validPriorities, p) {
		return "", ErrInvalidPriority
	}
	return p, nil
}

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	return slices.Contains(validPriorities, p)
}
