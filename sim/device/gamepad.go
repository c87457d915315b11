package device

import (
	"slices"
	"sync"
)

// Standard layout indices, matching the usual Xbox mapping.
const (
	AxisLeftX = iota
	AxisLeftY
	AxisLeftTrigger
	AxisRightX
	AxisRightY
	AxisRightTrigger
	AxisCount
)

const (
	ButtonA = iota
	ButtonB
	ButtonX
	ButtonY
	ButtonLeftBumper
	ButtonRightBumper
	ButtonCount
)

// Pad is a snapshot of one gamepad. Axis values are in [-1, 1]; triggers
// rest at -1.
type Pad struct {
	Name    string
	Axes    []float64
	Buttons []bool
}

// Axis returns axis i, or 0 when the pad does not have it.
func (p Pad) Axis(i int) float64 {
	if i < 0 || i >= len(p.Axes) {
		return 0
	}
	return p.Axes[i]
}

// Button returns button i, or false when the pad does not have it.
func (p Pad) Button(i int) bool {
	if i < 0 || i >= len(p.Buttons) {
		return false
	}
	return p.Buttons[i]
}

// NewPad returns a pad with the standard axis and button count at rest.
func NewPad(name string) Pad {
	p := Pad{Name: name, Axes: make([]float64, AxisCount), Buttons: make([]bool, ButtonCount)}
	p.Axes[AxisLeftTrigger] = -1
	p.Axes[AxisRightTrigger] = -1
	return p
}

func (p Pad) clone() Pad {
	p.Axes = slices.Clone(p.Axes)
	p.Buttons = slices.Clone(p.Buttons)
	return p
}

// Pads is the bank of connected gamepads, indexed by enumeration order. It is
// safe for concurrent use.
type Pads struct {
	mu   sync.RWMutex
	pads []Pad
}

func NewPads() *Pads { return &Pads{} }

// Count returns the number of connected pads.
func (b *Pads) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.pads)
}

// State returns a copy of pad i.
func (b *Pads) State(i int) (Pad, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if i < 0 || i >= len(b.pads) {
		return Pad{}, false
	}
	return b.pads[i].clone(), true
}

// Replace swaps in the full set of pads. The host poller calls it once per frame.
func (b *Pads) Replace(pads []Pad) {
	cp := make([]Pad, len(pads))
	for i, p := range pads {
		cp[i] = p.clone()
	}
	b.mu.Lock()
	b.pads = cp
	b.mu.Unlock()
}

// Connect appends p and returns its index.
func (b *Pads) Connect(p Pad) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pads = append(b.pads, p.clone())
	return len(b.pads) - 1
}

// Disconnect removes pad i; later pads shift down.
func (b *Pads) Disconnect(i int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i < 0 || i >= len(b.pads) {
		return
	}
	b.pads = slices.Delete(b.pads, i, i+1)
}

// SetAxis updates a single axis of pad i.
func (b *Pads) SetAxis(i, axis int, v float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i < 0 || i >= len(b.pads) || axis < 0 || axis >= len(b.pads[i].Axes) {
		return
	}
	b.pads[i].Axes[axis] = v
}

// SetButton updates a single button of pad i.
func (b *Pads) SetButton(i, button int, down bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i < 0 || i >= len(b.pads) || button < 0 || button >= len(b.pads[i].Buttons) {
		return
	}
	b.pads[i].Buttons[button] = down
}
