// Package capture implements the screen-region selection gesture and the overlay
// rendering that goes with it.
package capture

import (
	"image"
	"time"
)

// MinSize is the exclusive lower bound, in pixels, for both sides of a committed selection.
const MinSize = 10

// CommitDelay separates overlay teardown from the pixel capture so the overlay is not captured.
const CommitDelay = 100 * time.Millisecond

type State int

const (
	Idle State = iota
	Armed
	Dragging
	Committed
	Cancelled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	case Dragging:
		return "dragging"
	case Committed:
		return "committed"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Machine tracks one selection gesture. Points are in overlay coordinates. A single
// Machine is reused across gestures; it is driven from the UI thread only.
type Machine struct {
	state   State
	origin  image.Point
	rect    image.Rectangle
	visible bool
}

func NewMachine() *Machine {
	return &Machine{}
}

func (m *Machine) State() State { return m.state }

// Selection returns the current rectangle and whether it should be drawn.
func (m *Machine) Selection() (image.Rectangle, bool) {
	return m.rect, m.visible
}

// Arm starts a new gesture from any state, clearing everything left over from the last one.
func (m *Machine) Arm() {
	m.state = Armed
	m.origin = image.Point{}
	m.rect = image.Rectangle{}
	m.visible = false
}

// Press records the origin of the drag. It only applies while Armed.
func (m *Machine) Press(p image.Point) bool {
	if m.state != Armed {
		return false
	}
	m.origin = p
	m.rect = image.Rectangle{Min: p, Max: p}
	m.visible = true
	m.state = Dragging
	return true
}

// Move updates the selection while Dragging.
func (m *Machine) Move(p image.Point) bool {
	if m.state != Dragging {
		return false
	}
	m.rect = image.Rect(m.origin.X, m.origin.Y, p.X, p.Y)
	return true
}

// Release ends the drag at p and decides between Committed and Cancelled. Outside of
// Dragging it leaves the state unchanged.
func (m *Machine) Release(p image.Point) State {
	if m.state != Dragging {
		return m.state
	}
	m.rect = image.Rect(m.origin.X, m.origin.Y, p.X, p.Y)
	if m.rect.Dx() > MinSize && m.rect.Dy() > MinSize {
		m.state = Committed
	} else {
		m.state = Cancelled
		m.visible = false
	}
	return m.state
}

// Escape cancels an Armed or Dragging gesture regardless of the selection size.
func (m *Machine) Escape() bool {
	if m.state != Armed && m.state != Dragging {
		return false
	}
	m.state = Cancelled
	m.visible = false
	return true
}

// Reset returns to Idle once the overlay has been torn down.
func (m *Machine) Reset() {
	m.state = Idle
	m.visible = false
}
