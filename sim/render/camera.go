// Package render turns registry snapshots into 2D wireframe segments.
//
// It has no windowing dependency; the host draws the segments.
package render

import (
	"math"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	MaxPitch = 90.0

	// viewPitchLimit keeps LookAt away from the pole.
	viewPitchLimit = 89.5
)

type atomicFloat struct{ bits atomic.Uint64 }

func (f *atomicFloat) Load() float64   { return math.Float64frombits(f.bits.Load()) }
func (f *atomicFloat) Store(v float64) { f.bits.Store(math.Float64bits(v)) }

// Orbit is a camera circling a target. Angles are in degrees. All methods
// are safe for concurrent use, so services may read Yaw while the host
// rotates the camera.
type Orbit struct {
	Target mgl64.Vec3
	FOV    float64 // vertical, degrees
	Near   float64
	Far    float64

	MinRadius float64
	MaxRadius float64

	yaw    atomicFloat
	pitch  atomicFloat
	radius atomicFloat
}

// NewOrbit returns a camera looking at the origin from +Z, slightly above.
func NewOrbit(radius float64) *Orbit {
	o := &Orbit{FOV: 60, Near: 0.1, Far: 500, MinRadius: 1, MaxRadius: 200}
	o.pitch.Store(20)
	o.radius.Store(radius)
	o.Zoom(0)
	return o
}

func (o *Orbit) Yaw() float64    { return o.yaw.Load() }
func (o *Orbit) Pitch() float64  { return o.pitch.Load() }
func (o *Orbit) Radius() float64 { return o.radius.Load() }

// Rotate adds to yaw and pitch. Yaw wraps to [0, 360); pitch is clamped to
// [-MaxPitch, MaxPitch].
func (o *Orbit) Rotate(dYaw, dPitch float64) {
	y := math.Mod(o.yaw.Load()+dYaw, 360)
	if y < 0 {
		y += 360
	}
	o.yaw.Store(y)
	o.pitch.Store(mgl64.Clamp(o.pitch.Load()+dPitch, -MaxPitch, MaxPitch))
}

// Zoom changes the distance to the target within [MinRadius, MaxRadius].
func (o *Orbit) Zoom(delta float64) {
	r := o.radius.Load() + delta
	if o.MinRadius > 0 && r < o.MinRadius {
		r = o.MinRadius
	}
	if o.MaxRadius > 0 && r > o.MaxRadius {
		r = o.MaxRadius
	}
	o.radius.Store(r)
}

// Eye returns the camera position.
func (o *Orbit) Eye() mgl64.Vec3 {
	yaw := mgl64.DegToRad(o.Yaw())
	pitch := mgl64.DegToRad(mgl64.Clamp(o.Pitch(), -viewPitchLimit, viewPitchLimit))
	r := o.Radius()
	return o.Target.Add(mgl64.Vec3{
		r * math.Cos(pitch) * math.Sin(yaw),
		r * math.Sin(pitch),
		r * math.Cos(pitch) * math.Cos(yaw),
	})
}

// View returns the view matrix.
func (o *Orbit) View() mgl64.Mat4 {
	return mgl64.LookAtV(o.Eye(), o.Target, mgl64.Vec3{0, 1, 0})
}

// Projection returns the perspective matrix for a viewport aspect ratio.
func (o *Orbit) Projection(aspect float64) mgl64.Mat4 {
	if aspect <= 0 {
		aspect = 1
	}
	return mgl64.Perspective(mgl64.DegToRad(o.FOV), aspect, o.Near, o.Far)
}
