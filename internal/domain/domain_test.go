package domain

import (
	"errors"
	"testing"
	"time"
)

func TestNewTaskDefaults(t *testing.T) {
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
	task, err := NewTask(6, TaskInput{Title: "  Fix bug  ", BoardID: 1}, now)
	if err != nil {
		t.Fatalf("NewTask() error = %v", err)
	}
	if task.Title != "Fix bug" {
		t.Fatalf("unexpected title %q", task.Title)
	}
	if task.Priority != PriorityMedium || task.Status != StatusToDo {
		t.Fatalf("unexpected defaults priority=%q status=%q", task.Priority, task.Status)
	}
	if !task.CreatedAt.Equal(now) || !task.UpdatedAt.Equal(now) {
		t.Fatalf("expected created_at == updated_at == now, got %v / %v", task.CreatedAt, task.UpdatedAt)
	}
	if task.AssigneeID != nil {
		t.Fatalf("expected no assignee, got %v", *task.AssigneeID)
	}
}

func TestNewTaskValidation(t *testing.T) {
	now := time.Now()
	cases := []struct {
		name string
		id   int
		in   TaskInput
		want error
	}{
		{name: "id", id: 0, in: TaskInput{Title: "x", BoardID: 1}, want: ErrInvalidID},
		{name: "title", id: 1, in: TaskInput{Title: "   ", BoardID: 1}, want: ErrInvalidTitle},
		{name: "board", id: 1, in: TaskInput{Title: "x"}, want: ErrInvalidBoardID},
		{name: "priority", id: 1, in: TaskInput{Title: "x", BoardID: 1, Priority: "urgent"}, want: ErrInvalidPriority},
		{name: "status", id: 1, in: TaskInput{Title: "x", BoardID: 1, Status: "blocked"}, want: ErrInvalidStatus},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewTask(tc.id, tc.in, now); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestTaskApplyMergesAndRefreshesUpdatedAt(t *testing.T) {
	created := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
	task, err := NewTask(4, TaskInput{Title: "Fix navigation bug", BoardID: 1, Priority: PriorityHigh, AssigneeID: IntPtr(1)}, created)
	if err != nil {
		t.Fatalf("NewTask() error = %v", err)
	}
	later := created.Add(time.Hour)
	updated, err := task.Apply(StatusPatch(StatusInProgress), later)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if updated.Status != StatusInProgress {
		t.Fatalf("unexpected status %q", updated.Status)
	}
	if updated.Title != task.Title || updated.Priority != PriorityHigh || !updated.HasAssignee(1) {
		t.Fatalf("expected untouched fields to survive, got %#v", updated)
	}
	if !updated.CreatedAt.Equal(created) || !updated.UpdatedAt.Equal(later) {
		t.Fatalf("unexpected timestamps %v / %v", updated.CreatedAt, updated.UpdatedAt)
	}
	if task.Status != StatusToDo {
		t.Fatalf("Apply() mutated the receiver: %q", task.Status)
	}

	cleared, err := updated.Apply(TaskPatch{ClearAssignee: true}, later)
	if err != nil {
		t.Fatalf("Apply(clear) error = %v", err)
	}
	if cleared.AssigneeID != nil {
		t.Fatal("expected assignee to be cleared")
	}
}

func TestTaskApplyRejectsBoardChange(t *testing.T) {
	now := time.Now()
	task, err := NewTask(1, TaskInput{Title: "x", BoardID: 1}, now)
	if err != nil {
		t.Fatalf("NewTask() error = %v", err)
	}
	if _, err := task.Apply(TaskPatch{BoardID: IntPtr(2)}, now); !errors.Is(err, ErrBoardImmutable) {
		t.Fatalf("expected ErrBoardImmutable, got %v", err)
	}
	if _, err := task.Apply(TaskPatch{BoardID: IntPtr(1)}, now); err != nil {
		t.Fatalf("same board patch error = %v", err)
	}
}

func TestFullPatchClearsMissingAssignee(t *testing.T) {
	patch := FullPatch(TaskInput{Title: "x", BoardID: 2, Priority: PriorityLow, Status: StatusDone})
	if !patch.ClearAssignee || patch.AssigneeID != nil {
		t.Fatalf("expected clear assignee patch, got %#v", patch)
	}
	if patch.BoardID == nil || *patch.BoardID != 2 {
		t.Fatalf("expected board id 2 in patch, got %#v", patch.BoardID)
	}
}

func TestStatusLanes(t *testing.T) {
	lanes := Lanes()
	if len(lanes) != 3 || lanes[0] != StatusToDo || lanes[1] != StatusInProgress || lanes[2] != StatusDone {
		t.Fatalf("unexpected lanes %#v", lanes)
	}
	if StatusToDo.Next(-1) != StatusToDo || StatusToDo.Next(1) != StatusInProgress || StatusInProgress.Next(5) != StatusDone {
		t.Fatal("unexpected lane navigation")
	}
	if got, err := ParseStatus(" In_Progress "); err != nil || got != StatusInProgress {
		t.Fatalf("ParseStatus() = %q, %v", got, err)
	}
	if _, err := ParseStatus("later"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
	if StatusDone.Label() != "Done" {
		t.Fatalf("unexpected label %q", StatusDone.Label())
	}
}

func TestParsePriority(t *testing.T) {
	if got, err := ParsePriority("HIGH"); err != nil || got != PriorityHigh {
		t.Fatalf("ParsePriority() = %q, %v", got, err)
	}
	if _, err := ParsePriority(""); !errors.Is(err, ErrInvalidPriority) {
		t.Fatalf("expected ErrInvalidPriority, got %v", err)
	}
}
