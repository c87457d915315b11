package pose

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Pose is a position plus a unit orientation.
//
// The zero value is not valid; use New. Fields are unexported so the only way
// to change a pose is Apply or FromParts, both of which keep the orientation
// unit-norm.
type Pose struct {
	position    mgl64.Vec3
	orientation mgl64.Quat
}

// New returns a pose at the origin with identity orientation.
func New() Pose {
	return Pose{orientation: Identity()}
}

// FromParts builds a pose from an absolute position and orientation. The
// orientation is renormalized.
func FromParts(position mgl64.Vec3, orientation mgl64.Quat) (Pose, error) {
	q, err := Renormalize(orientation)
	if err != nil {
		return Pose{}, err
	}
	return Pose{position: position, orientation: q}, nil
}

// At returns a pose at position with identity orientation.
func At(position mgl64.Vec3) Pose {
	return Pose{position: position, orientation: Identity()}
}

func (p Pose) Position() mgl64.Vec3    { return p.position }
func (p Pose) Orientation() mgl64.Quat { return p.orientation }

// Delta is an incremental change to a pose.
type Delta struct {
	Translation mgl64.Vec3
	Rotation    mgl64.Quat
}

// Translate returns a delta that only moves.
func Translate(v mgl64.Vec3) Delta {
	return Delta{Translation: v, Rotation: Identity()}
}

// Apply returns the pose moved by d. The rotation is composed on the left and
// renormalized.
func (p Pose) Apply(d Delta) (Pose, error) {
	q, err := Compose(d.Rotation, p.orientation)
	if err != nil {
		return p, fmt.Errorf("apply delta: %w", err)
	}
	pos := p.position.Add(d.Translation)
	if !finite(pos) {
		return p, fmt.Errorf("apply delta: non-finite position %v", pos)
	}
	return Pose{position: pos, orientation: q}, nil
}

// Matrix4 returns the homogeneous model matrix (translation * rotation).
func (p Pose) Matrix4() mgl64.Mat4 {
	return mgl64.Translate3D(p.position.X(), p.position.Y(), p.position.Z()).Mul4(p.orientation.Mat4())
}

// Slice flattens the pose as (x, y, z, qw, qx, qy, qz).
func (p Pose) Slice() []float64 {
	q := p.orientation
	return []float64{p.position[0], p.position[1], p.position[2], q.W, q.V[0], q.V[1], q.V[2]}
}

func (p Pose) String() string {
	q := p.orientation
	return fmt.Sprintf("pos=(%.3f, %.3f, %.3f) rot=(%.4f, %.4f, %.4f, %.4f)",
		p.position[0], p.position[1], p.position[2], q.W, q.V[0], q.V[1], q.V[2])
}

func finite(v mgl64.Vec3) bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
