// Package hal is the host layer: it owns the window, polls real devices into
// sim/device state and drives the application once per frame.
package hal

import (
	"errors"

	"trainer/sim/device"
	"trainer/sim/registry"
	"trainer/sim/render"
)

// ErrQuit ends the host loop without reporting a failure.
var ErrQuit = errors.New("quit")

// HAL is what the host gives the application.
type HAL interface {
	Keyboard() *device.Keyboard
	Pads() *device.Pads
	Camera() *render.Orbit
	// Frames is the number of frames stepped so far.
	Frames() uint64
	// FPS is the measured frame rate.
	FPS() float64
}

// App is driven by the host once per frame.
type App interface {
	Step() error
	Scene() []registry.Snapshot
	Overlay() []string
	Hotkey(k device.Key)
}

// hotkeys are forwarded to App.Hotkey on press in addition to updating the
// keyboard state.
var hotkeys = map[device.Key]bool{
	device.KeyTab:    true,
	device.Key1:      true,
	device.Key2:      true,
	device.Key3:      true,
	device.KeyPlus:   true,
	device.KeyMinus:  true,
	device.KeyEscape: true,
}

// IsHotkey reports whether k is a command key.
func IsHotkey(k device.Key) bool { return hotkeys[k] }
