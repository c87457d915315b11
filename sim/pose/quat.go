// Package pose holds entity pose state and the quaternion math that evolves it.
//
// Orientations are unit quaternions. Every composition renormalizes its result,
// so callers cannot accumulate drift by forgetting a cleanup step.
package pose

import (
	"errors"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

var (
	// ErrDegenerateOrientation reports a quaternion whose norm is too close to zero to normalize.
	ErrDegenerateOrientation = errors.New("degenerate orientation")
	// ErrInvalidAxis reports a zero-length rotation axis.
	ErrInvalidAxis = errors.New("invalid rotation axis")
)

// normEpsilon is the smallest norm accepted by Renormalize.
const normEpsilon = 1e-12

// UnitTolerance is the allowed deviation of a stored orientation from unit norm.
const UnitTolerance = 1e-6

// Identity returns the identity orientation.
func Identity() mgl64.Quat { return mgl64.QuatIdent() }

// Renormalize scales q to unit norm.
func Renormalize(q mgl64.Quat) (mgl64.Quat, error) {
	n := q.Len()
	if n <= normEpsilon || math.IsNaN(n) || math.IsInf(n, 0) {
		return mgl64.Quat{}, ErrDegenerateOrientation
	}
	inv := 1 / n
	return mgl64.Quat{W: q.W * inv, V: q.V.Mul(inv)}, nil
}

// Compose returns delta*base, renormalized. The delta is expressed in the
// world frame, so it pre-multiplies the current orientation.
func Compose(delta, base mgl64.Quat) (mgl64.Quat, error) {
	return Renormalize(delta.Mul(base))
}

// AxisAngle builds the rotation of angle radians about axis. The axis does
// not need to be normalized.
func AxisAngle(axis mgl64.Vec3, angle float64) (mgl64.Quat, error) {
	l := axis.Len()
	if l <= normEpsilon || math.IsNaN(l) {
		return mgl64.Quat{}, ErrInvalidAxis
	}
	half := angle / 2
	return mgl64.Quat{W: math.Cos(half), V: axis.Mul(math.Sin(half) / l)}, nil
}

// EulerZYX builds an orientation delta from roll (about Z), yaw (about Y) and
// pitch (about X), applied in that order: Z first, then Y, then X, each about
// the already rotated frame (q = qz * qy * qx).
func EulerZYX(roll, yaw, pitch float64) mgl64.Quat {
	qz := mgl64.QuatRotate(roll, mgl64.Vec3{0, 0, 1})
	qy := mgl64.QuatRotate(yaw, mgl64.Vec3{0, 1, 0})
	qx := mgl64.QuatRotate(pitch, mgl64.Vec3{1, 0, 0})
	return qz.Mul(qy).Mul(qx)
}

// Matrix3 returns the rotation matrix of q.
func Matrix3(q mgl64.Quat) mgl64.Mat3 {
	return q.Mat4().Mat3()
}

// IsUnit reports whether q is unit norm within UnitTolerance.
func IsUnit(q mgl64.Quat) bool {
	return math.Abs(q.Len()-1) <= UnitTolerance
}
