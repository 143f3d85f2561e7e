package tui

import (
	"context"
	"time"

	"github.com/evanschultz/taskboard/internal/app"
	"github.com/evanschultz/taskboard/internal/domain"
)

// ChangeFeed subscribes to server-side change events.
type ChangeFeed func(context.Context) (<-chan domain.ChangeEvent, error)

// Option configures a Model.
type Option func(*Model)

// WithInvalidations sets the tracker for the modal NewModel creates when none
// is passed. A passed modal's own tracker takes precedence.
func WithInvalidations(inv *app.Invalidations) Option {
	return func(m *Model) {
		if inv != nil {
			m.inval = inv
		}
	}
}

// WithDragThreshold sets the pointer movement, in cells, before a press becomes a drag.
func WithDragThreshold(cells int) Option {
	return func(m *Model) {
		if cells >= 0 {
			m.drag.threshold = cells
		}
	}
}

// WithCloseDelay sets how long a closed modal keeps its form before reset.
func WithCloseDelay(d time.Duration) Option {
	return func(m *Model) {
		if d >= 0 {
			m.closeDelay = d
		}
	}
}

// WithChangeFeed makes views refetch whenever the feed reports a change.
func WithChangeFeed(feed ChangeFeed) Option {
	return func(m *Model) {
		m.feed = feed
	}
}

// WithClipboard replaces the system clipboard writer.
func WithClipboard(write func(string) error) Option {
	return func(m *Model) {
		if write != nil {
			m.copyText = write
		}
	}
}
