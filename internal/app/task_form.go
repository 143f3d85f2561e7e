package app

import (
	"strings"

	"github.com/evanschultz/taskboard/internal/domain"
)

// TaskForm holds the editable fields of the task modal.
type TaskForm struct {
	Title       string
	Description string
	Priority    domain.Priority
	Status      domain.Status
	AssigneeID  *int
	BoardID     *int
}

// DefaultTaskForm returns the blank create form.
func DefaultTaskForm() TaskForm {
	return TaskForm{
		Priority: domain.PriorityMedium,
		Status:   domain.StatusToDo,
	}
}

// formFromTask fills every field from an existing task.
func formFromTask(task domain.Task) TaskForm {
	form := DefaultTaskForm()
	form.Title = task.Title
	form.Description = task.Description
	if task.Priority.Valid() {
		form.Priority = task.Priority
	}
	if task.Status.Valid() {
		form.Status = task.Status
	}
	form.AssigneeID = cloneIntPtr(task.AssigneeID)
	if task.BoardID > 0 {
		form.BoardID = domain.IntPtr(task.BoardID)
	}
	return form
}

// formFromDraft fills the fields present in the draft over the defaults.
func formFromDraft(d domain.Draft) TaskForm {
	form := DefaultTaskForm()
	if d.Title != nil {
		form.Title = *d.Title
	}
	if d.Description != nil {
		form.Description = *d.Description
	}
	if d.Priority != nil && d.Priority.Valid() {
		form.Priority = *d.Priority
	}
	if d.Status != nil && d.Status.Valid() {
		form.Status = *d.Status
	}
	form.AssigneeID = cloneIntPtr(d.AssigneeID)
	form.BoardID = cloneIntPtr(d.BoardID)
	return form
}

// Draft snapshots the full form for the draft slot.
func (f TaskForm) Draft() domain.Draft {
	title := f.Title
	desc := f.Description
	priority := f.Priority
	status := f.Status
	return domain.Draft{
		Title:       &title,
		Description: &desc,
		Priority:    &priority,
		Status:      &status,
		AssigneeID:  cloneIntPtr(f.AssigneeID),
		BoardID:     cloneIntPtr(f.BoardID),
	}
}

// Validate reports the fields that block submission.
func (f TaskForm) Validate() error {
	var missing []string
	if strings.TrimSpace(f.Title) == "" {
		missing = append(missing, "title")
	}
	if f.BoardID == nil || *f.BoardID <= 0 {
		missing = append(missing, "board")
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}
	return nil
}

// Input converts the form into a repository payload.
func (f TaskForm) Input() domain.TaskInput {
	in := domain.TaskInput{
		Title:       strings.TrimSpace(f.Title),
		Description: f.Description,
		Priority:    f.Priority,
		Status:      f.Status,
		AssigneeID:  cloneIntPtr(f.AssigneeID),
	}
	if f.BoardID != nil {
		in.BoardID = *f.BoardID
	}
	return in
}

func (f TaskForm) clone() TaskForm {
	f.AssigneeID = cloneIntPtr(f.AssigneeID)
	f.BoardID = cloneIntPtr(f.BoardID)
	return f
}

// ValidationError lists the required fields that are missing.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "required fields missing: " + strings.Join(e.Fields, ", ")
}

// Unwrap lets errors.Is match ErrValidation.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func cloneIntPtr(v *int) *int {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
