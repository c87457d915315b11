package render

import (
	"github.com/go-gl/mathgl/mgl64"

	"trainer/sim/registry"
)

// Segment is a screen-space line in pixels, origin top-left.
type Segment struct {
	X0, Y0, X1, Y1 float32
	Color          [4]float64
	Entity         string
}

// Project returns the wireframe of every snapshot as seen from o in a w×h
// viewport. Snapshots are drawn in the given order. Edges with an endpoint
// behind the near plane are dropped.
func Project(o *Orbit, w, h int, snaps []registry.Snapshot) []Segment {
	if w <= 0 || h <= 0 {
		return nil
	}
	vp := o.Projection(float64(w) / float64(h)).Mul4(o.View())
	var out []Segment
	for _, s := range snaps {
		mvp := vp.Mul4(s.Pose.Matrix4())
		for _, e := range edges(s.Render) {
			x0, y0, ok0 := toScreen(mvp, e.a, w, h)
			x1, y1, ok1 := toScreen(mvp, e.b, w, h)
			if !ok0 || !ok1 {
				continue
			}
			c := e.color
			if c == ([4]float64{}) {
				c = s.Render.Color
			}
			if s.Controlled {
				c = highlight(c)
			}
			out = append(out, Segment{X0: x0, Y0: y0, X1: x1, Y1: y1, Color: c, Entity: s.Name})
		}
	}
	return out
}

func toScreen(mvp mgl64.Mat4, p mgl64.Vec3, w, h int) (float32, float32, bool) {
	clip := mvp.Mul4x1(p.Vec4(1))
	if clip.W() <= 0 {
		return 0, 0, false
	}
	ndc := clip.Vec3().Mul(1 / clip.W())
	if ndc.Z() < -1 {
		return 0, 0, false
	}
	x := (ndc.X() + 1) / 2 * float64(w)
	y := (1 - ndc.Y()) / 2 * float64(h)
	return float32(x), float32(y), true
}

func highlight(c [4]float64) [4]float64 {
	for i := range 3 {
		c[i] = c[i] + (1-c[i])*0.4
	}
	return c
}
