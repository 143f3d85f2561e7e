package domain

import (
	"strings"
	"time"
)

type Task struct {
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Priority    Priority  `json:"priority"`
	Status      Status    `json:"status"`
	BoardID     int       `json:"boardId"`
	AssigneeID  *int      `json:"assigneeId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TaskInput is a task payload without repository-assigned fields.
type TaskInput struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    Priority `json:"priority"`
	Status      Status   `json:"status"`
	BoardID     int      `json:"boardId"`
	AssigneeID  *int     `json:"assigneeId,omitempty"`
}

// TaskPatch is a partial update; nil fields are left untouched.
type TaskPatch struct {
	Title         *string   `json:"title,omitempty"`
	Description   *string   `json:"description,omitempty"`
	Priority      *Priority `json:"priority,omitempty"`
	Status        *Status   `json:"status,omitempty"`
	BoardID       *int      `json:"boardId,omitempty"`
	AssigneeID    *int      `json:"assigneeId,omitempty"`
	ClearAssignee bool      `json:"clearAssignee,omitempty"`
}

func NewTask(id int, in TaskInput, now time.Time) (Task, error) {
	in.Title = strings.TrimSpace(in.Title)
	if id <= 0 {
		return Task{}, ErrInvalidID
	}
	if in.Title == "" {
		return Task{}, ErrInvalidTitle
	}
	if in.BoardID <= 0 {
		return Task{}, ErrInvalidBoardID
	}
	if in.Priority == "" {
		in.Priority = PriorityMedium
	}
	if !in.Priority.Valid() {
		return Task{}, ErrInvalidPriority
	}
	if in.Status == "" {
		in.Status = StatusToDo
	}
	if !in.Status.Valid() {
		return Task{}, ErrInvalidStatus
	}

	return Task{
		ID:          id,
		Title:       in.Title,
		Description: in.Description,
		Priority:    in.Priority,
		Status:      in.Status,
		BoardID:     in.BoardID,
		AssigneeID:  cloneInt(in.AssigneeID),
		CreatedAt:   now.UTC(),
		UpdatedAt:   now.UTC(),
	}, nil
}

// Apply merges patch over the task and refreshes UpdatedAt.
func (t Task) Apply(patch TaskPatch, now time.Time) (Task, error) {
	out := t.Clone()
	if patch.BoardID != nil && *patch.BoardID != t.BoardID {
		return Task{}, ErrBoardImmutable
	}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return Task{}, ErrInvalidTitle
		}
		out.Title = title
	}
	if patch.Description != nil {
		out.Description = *patch.Description
	}
	if patch.Priority != nil {
		if !patch.Priority.Valid() {
			return Task{}, ErrInvalidPriority
		}
		out.Priority = *patch.Priority
	}
	if patch.Status != nil {
		if !patch.Status.Valid() {
			return Task{}, ErrInvalidStatus
		}
		out.Status = *patch.Status
	}
	switch {
	case patch.ClearAssignee:
		out.AssigneeID = nil
	case patch.AssigneeID != nil:
		out.AssigneeID = cloneInt(patch.AssigneeID)
	}
	out.UpdatedAt = now.UTC()
	return out, nil
}

// Clone returns a deep copy of the task.
func (t Task) Clone() Task {
	t.AssigneeID = cloneInt(t.AssigneeID)
	return t
}

// HasAssignee reports whether the task is assigned to id.
func (t Task) HasAssignee(id int) bool {
	return t.AssigneeID != nil && *t.AssigneeID == id
}

// StatusPatch builds the patch a lane drop sends.
func StatusPatch(status Status) TaskPatch {
	return TaskPatch{Status: &status}
}

// FullPatch builds a patch that sets every editable field of in.
func FullPatch(in TaskInput) TaskPatch {
	patch := TaskPatch{
		Title:       &in.Title,
		Description: &in.Description,
		Priority:    &in.Priority,
		Status:      &in.Status,
		BoardID:     &in.BoardID,
	}
	if in.AssigneeID == nil {
		patch.ClearAssignee = true
	} else {
		patch.AssigneeID = cloneInt(in.AssigneeID)
	}
	return patch
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
