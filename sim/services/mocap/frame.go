package mocap

import (
	"github.com/go-gl/mathgl/mgl64"

	"trainer/sim/pose"
)

// Frame is one motion-capture sample as sent on the wire.
type Frame struct {
	Frame  int64  `json:"frame"`
	Bodies []Body `json:"bodies"`
}

// Body is one rigid body in a frame. Orientation is (w, x, y, z).
type Body struct {
	ID          int        `json:"id"`
	Name        string     `json:"name,omitempty"`
	Position    [3]float64 `json:"position"`
	Orientation [4]float64 `json:"orientation"`
}

// Pose converts the body sample, renormalizing the orientation.
func (b Body) Pose() (pose.Pose, error) {
	q := mgl64.Quat{W: b.Orientation[0], V: mgl64.Vec3{b.Orientation[1], b.Orientation[2], b.Orientation[3]}}
	return pose.FromParts(mgl64.Vec3(b.Position), q)
}

// BodyFrom is the inverse of Pose, used by feed producers.
func BodyFrom(id int, name string, p pose.Pose) Body {
	pos, q := p.Position(), p.Orientation()
	return Body{
		ID:          id,
		Name:        name,
		Position:    [3]float64(pos),
		Orientation: [4]float64{q.W, q.V[0], q.V[1], q.V[2]},
	}
}
