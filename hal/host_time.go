package hal

import (
	"math"
	"sync/atomic"
	"time"
)

// hostTime measures the frame rate over one-second windows.
type hostTime struct {
	start  time.Time
	frames int

	fps atomic.Uint64
}

func newHostTime() *hostTime { return &hostTime{} }

func (t *hostTime) FPS() float64 { return math.Float64frombits(t.fps.Load()) }

func (t *hostTime) step() {
	now := time.Now()
	if t.start.IsZero() {
		t.start = now
	}
	t.frames++

	if d := now.Sub(t.start); d >= time.Second {
		t.fps.Store(math.Float64bits(float64(t.frames) / d.Seconds()))
		t.start = now
		t.frames = 0
	}
}
