package tui

import "github.com/evanschultz/taskboard/internal/domain"

// dragPhase tracks the gesture recognizer.
type dragPhase int

const (
	dragIdle dragPhase = iota
	dragPressed
	dragActive
)

// gesture is the outcome of a pointer release.
type gesture int

const (
	gestureNone gesture = iota
	gestureClick
	gestureDrop
)

// dropEvent is a discrete drop of one task onto one lane.
type dropEvent struct {
	TaskID int
	Lane   domain.Status
}

// dragRecognizer turns pointer and keyboard input into drop events. A
// pointer press only becomes a drag once it moved threshold cells.
type dragRecognizer struct {
	threshold int

	phase    dragPhase
	keyboard bool
	taskID   int
	originX  int
	originY  int
	from     domain.Status
	target   domain.Status
}

// press arms the recognizer over a card.
func (d *dragRecognizer) press(taskID int, lane domain.Status, x, y int) {
	d.phase = dragPressed
	d.keyboard = false
	d.taskID = taskID
	d.originX, d.originY = x, y
	d.from = lane
	d.target = lane
}

// motion follows the pointer. It reports true when this motion started the drag.
func (d *dragRecognizer) motion(x, y int, lane domain.Status, overLane bool) bool {
	switch d.phase {
	case dragPressed:
		if distance(d.originX, d.originY, x, y) < max(1, d.threshold) {
			return false
		}
		d.phase = dragActive
		if overLane {
			d.target = lane
		}
		return true
	case dragActive:
		if overLane {
			d.target = lane
		}
	}
	return false
}

// release ends a pointer gesture. A press that never crossed the threshold
// is a click on the pressed card.
func (d *dragRecognizer) release(lane domain.Status, overLane bool) (gesture, dropEvent) {
	defer d.cancel()
	switch d.phase {
	case dragPressed:
		return gestureClick, dropEvent{TaskID: d.taskID, Lane: d.from}
	case dragActive:
		if !overLane {
			return gestureNone, dropEvent{}
		}
		return gestureDrop, dropEvent{TaskID: d.taskID, Lane: lane}
	}
	return gestureNone, dropEvent{}
}

// pickUp starts a keyboard drag of taskID.
func (d *dragRecognizer) pickUp(taskID int, lane domain.Status) {
	d.phase = dragActive
	d.keyboard = true
	d.taskID = taskID
	d.from = lane
	d.target = lane
}

// shift moves the keyboard drop target by delta lanes.
func (d *dragRecognizer) shift(delta int) {
	if d.phase != dragActive {
		return
	}
	d.target = d.target.Next(delta)
}

// drop ends a keyboard drag on the current target.
func (d *dragRecognizer) drop() (dropEvent, bool) {
	if d.phase != dragActive {
		return dropEvent{}, false
	}
	event := dropEvent{TaskID: d.taskID, Lane: d.target}
	d.cancel()
	return event, true
}

// cancel resets the recognizer without a drop.
func (d *dragRecognizer) cancel() {
	d.phase = dragIdle
	d.keyboard = false
	d.taskID = 0
	d.from = ""
	d.target = ""
}

// active reports whether a drag is in progress.
func (d dragRecognizer) active() bool {
	return d.phase == dragActive
}

// distance is the larger of the horizontal and vertical cell offsets.
func distance(x0, y0, x1, y1 int) int {
	return max(abs(x1-x0), abs(y1-y0))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
