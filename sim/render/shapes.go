package render

import (
	"github.com/go-gl/mathgl/mgl64"

	"trainer/sim/registry"
)

type edge struct {
	a, b  mgl64.Vec3
	color [4]float64 // zero means the entity colour
}

var (
	red   = [4]float64{0.9, 0.2, 0.2, 1}
	green = [4]float64{0.2, 0.9, 0.2, 1}
	blue  = [4]float64{0.3, 0.4, 1, 1}
)

// edges returns the model-space wireframe of a shape scaled by size.
func edges(r registry.Render) []edge {
	s := r.Size
	switch r.Shape {
	case registry.ShapeAxes:
		return []edge{
			{b: mgl64.Vec3{s.X(), 0, 0}, color: red},
			{b: mgl64.Vec3{0, s.Y(), 0}, color: green},
			{b: mgl64.Vec3{0, 0, s.Z()}, color: blue},
		}
	case registry.ShapeGrid:
		return grid(s.X(), s.Z(), 10)
	case registry.ShapeMarker:
		h := s.Mul(0.5)
		return []edge{
			{a: mgl64.Vec3{-h.X(), 0, 0}, b: mgl64.Vec3{h.X(), 0, 0}},
			{a: mgl64.Vec3{0, -h.Y(), 0}, b: mgl64.Vec3{0, h.Y(), 0}},
			{a: mgl64.Vec3{0, 0, -h.Z()}, b: mgl64.Vec3{0, 0, h.Z()}},
		}
	default:
		return box(s.Mul(0.5))
	}
}

func box(h mgl64.Vec3) []edge {
	var c [8]mgl64.Vec3
	for i := range c {
		c[i] = mgl64.Vec3{h.X(), h.Y(), h.Z()}
		if i&1 != 0 {
			c[i][0] = -h.X()
		}
		if i&2 != 0 {
			c[i][1] = -h.Y()
		}
		if i&4 != 0 {
			c[i][2] = -h.Z()
		}
	}
	out := make([]edge, 0, 13)
	for i := range c {
		for _, bit := range []int{1, 2, 4} {
			if j := i | bit; j != i {
				out = append(out, edge{a: c[i], b: c[j]})
			}
		}
	}
	// Nose marker so orientation is visible.
	out = append(out, edge{b: mgl64.Vec3{0, 0, -h.Z() * 1.6}, color: red})
	return out
}

func grid(w, d float64, n int) []edge {
	if n < 1 {
		n = 1
	}
	out := make([]edge, 0, 2*(n+1))
	for i := 0; i <= n; i++ {
		f := float64(i)/float64(n) - 0.5
		out = append(out,
			edge{a: mgl64.Vec3{f * w, 0, -d / 2}, b: mgl64.Vec3{f * w, 0, d / 2}},
			edge{a: mgl64.Vec3{-w / 2, 0, f * d}, b: mgl64.Vec3{w / 2, 0, f * d}},
		)
	}
	return out
}
