package domain

import "time"

// ChangeKind names one kind of task mutation broadcast to subscribers.
type ChangeKind string

const (
	ChangeTaskCreated ChangeKind = "task.created"
	ChangeTaskUpdated ChangeKind = "task.updated"
)

// ChangeEvent describes one persisted task mutation.
type ChangeEvent struct {
	Kind    ChangeKind `json:"kind"`
	TaskID  int        `json:"taskId"`
	BoardID int        `json:"boardId"`
	Status  Status     `json:"status,omitempty"`
	At      time.Time  `json:"at"`
}

// NewChangeEvent builds an event from the task state after a mutation.
func NewChangeEvent(kind ChangeKind, task Task, now time.Time) ChangeEvent {
	return ChangeEvent{
		Kind:    kind,
		TaskID:  task.ID,
		BoardID: task.BoardID,
		Status:  task.Status,
		At:      now.UTC(),
	}
}
