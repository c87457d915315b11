package hal

import (
	"context"
	"sync/atomic"

	"trainer/sim/device"
	"trainer/sim/render"
)

// DefaultCameraRadius is the initial orbit distance.
const DefaultCameraRadius = 12

type hostHAL struct {
	kbd  *device.Keyboard
	pads *device.Pads
	cam  *render.Orbit
	t    *hostTime

	frames atomic.Uint64
}

// New returns a host HAL with fresh device state. It does not open a window;
// tests and the terminal dashboard use it directly.
func New() HAL { return newHost() }

func newHost() *hostHAL {
	return &hostHAL{
		kbd:  device.NewKeyboard(),
		pads: device.NewPads(),
		cam:  render.NewOrbit(DefaultCameraRadius),
		t:    newHostTime(),
	}
}

func (h *hostHAL) Keyboard() *device.Keyboard { return h.kbd }
func (h *hostHAL) Pads() *device.Pads         { return h.pads }
func (h *hostHAL) Camera() *render.Orbit      { return h.cam }
func (h *hostHAL) Frames() uint64             { return h.frames.Load() }
func (h *hostHAL) FPS() float64               { return h.t.FPS() }

// step advances the frame counter and runs one application step.
func (h *hostHAL) step(app App) error {
	h.t.step()
	h.frames.Add(1)
	if app == nil {
		return nil
	}
	return app.Step()
}

// stepContext is step for hosts whose loop does not watch ctx itself. A done
// ctx ends the loop with ErrQuit.
func (h *hostHAL) stepContext(ctx context.Context, app App) error {
	if ctx.Err() != nil {
		return ErrQuit
	}
	return h.step(app)
}
