package tui

import (
	"testing"

	"github.com/evanschultz/taskboard/internal/domain"
)

func TestDragRecognizerPressReleaseIsClick(t *testing.T) {
	d := dragRecognizer{threshold: 3}
	d.press(7, domain.StatusToDo, 10, 10)
	if d.motion(12, 11, domain.StatusToDo, true) {
		t.Fatal("motion below threshold must not start a drag")
	}
	g, event := d.release(domain.StatusDone, true)
	if g != gestureClick || event.TaskID != 7 || event.Lane != domain.StatusToDo {
		t.Fatalf("release() = %v, %#v", g, event)
	}
	if d.phase != dragIdle {
		t.Fatalf("expected idle after release, got %d", d.phase)
	}
}

func TestDragRecognizerThresholdStartsDrag(t *testing.T) {
	d := dragRecognizer{threshold: 3}
	d.press(7, domain.StatusToDo, 10, 10)
	if !d.motion(10, 13, domain.StatusToDo, true) {
		t.Fatal("expected vertical motion at threshold to start the drag")
	}
	if d.motion(40, 13, domain.StatusInProgress, true) {
		t.Fatal("drag start must be reported once")
	}
	if d.target != domain.StatusInProgress {
		t.Fatalf("target = %q", d.target)
	}
	d.motion(90, 13, "", false)
	if d.target != domain.StatusInProgress {
		t.Fatal("motion outside lanes must keep the last target")
	}
	g, event := d.release(domain.StatusDone, true)
	if g != gestureDrop || event != (dropEvent{TaskID: 7, Lane: domain.StatusDone}) {
		t.Fatalf("release() = %v, %#v", g, event)
	}
}

func TestDragRecognizerZeroThresholdNeedsMotion(t *testing.T) {
	d := dragRecognizer{}
	d.press(1, domain.StatusDone, 5, 5)
	if d.motion(5, 5, domain.StatusDone, true) {
		t.Fatal("a motion without movement must not start a drag")
	}
	if !d.motion(6, 5, domain.StatusDone, true) {
		t.Fatal("expected one cell to start a drag with zero threshold")
	}
}

func TestDragRecognizerReleaseOutsideLanes(t *testing.T) {
	d := dragRecognizer{threshold: 1}
	d.press(2, domain.StatusToDo, 0, 0)
	d.motion(5, 0, domain.StatusToDo, true)
	if g, _ := d.release("", false); g != gestureNone {
		t.Fatalf("release() gesture = %v, want none", g)
	}
	if g, _ := d.release(domain.StatusDone, true); g != gestureNone {
		t.Fatal("release without a press must be ignored")
	}
}

func TestDragRecognizerKeyboard(t *testing.T) {
	d := dragRecognizer{}
	if _, ok := d.drop(); ok {
		t.Fatal("drop without pick up must fail")
	}
	d.pickUp(4, domain.StatusToDo)
	d.shift(-1)
	if d.target != domain.StatusToDo {
		t.Fatalf("shift past the first lane = %q", d.target)
	}
	d.shift(1)
	d.shift(1)
	d.shift(1)
	if d.target != domain.StatusDone {
		t.Fatalf("shift past the last lane = %q", d.target)
	}
	event, ok := d.drop()
	if !ok || event != (dropEvent{TaskID: 4, Lane: domain.StatusDone}) {
		t.Fatalf("drop() = %#v, %v", event, ok)
	}
	if d.active() {
		t.Fatal("expected idle after drop")
	}

	d.pickUp(4, domain.StatusToDo)
	d.cancel()
	if d.active() || d.taskID != 0 {
		t.Fatalf("cancel() left %#v", d)
	}
}
