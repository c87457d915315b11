package input

import "math"

const (
	// Deadzone is the largest axis magnitude treated as rest.
	Deadzone = 0.1

	// TranslationGain and RotationGain scale a full-deflection axis into a
	// per-tick delta at sensitivity 1.
	TranslationGain = 0.1
	RotationGain    = 0.03

	MinSensitivity = 0.1
	MaxSensitivity = 5.0
)

// ApplyDeadzone returns 0 for |v| <= Deadzone and v otherwise.
func ApplyDeadzone(v float64) float64 {
	if math.Abs(v) <= Deadzone {
		return 0
	}
	return v
}

// Remap rotates the lateral and forward axes by the camera yaw (radians) so
// forward always points away from the camera.
func Remap(lx, ly, yaw float64) (float64, float64) {
	sin, cos := math.Sincos(yaw)
	return lx*cos + ly*sin, -lx*sin + ly*cos
}

// ClampSensitivity limits v to [MinSensitivity, MaxSensitivity].
func ClampSensitivity(v float64) float64 {
	return math.Min(math.Max(v, MinSensitivity), MaxSensitivity)
}

// Axes is one tick of normalized input. Values are in [-1, 1].
type Axes struct {
	LX, LY   float64 // lateral, forward
	Vertical float64
	Pitch    float64 // about X
	Yaw      float64 // about Y
	Roll     float64 // about Z
}

func (a Axes) filtered() Axes {
	return Axes{
		LX:       ApplyDeadzone(a.LX),
		LY:       ApplyDeadzone(a.LY),
		Vertical: ApplyDeadzone(a.Vertical),
		Pitch:    ApplyDeadzone(a.Pitch),
		Yaw:      ApplyDeadzone(a.Yaw),
		Roll:     ApplyDeadzone(a.Roll),
	}
}

func (a Axes) zero() bool { return a == Axes{} }
