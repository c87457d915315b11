package input

import "trainer/sim/device"

type keyLayout struct {
	left, right       device.Key
	forward, backward device.Key
	up, down          device.Key
	yawLeft, yawRight device.Key
}

// Forward is -Y on the stick, so the forward key produces -1.
var layouts = map[Type]keyLayout{
	WASD: {
		left: device.KeyA, right: device.KeyD,
		forward: device.KeyW, backward: device.KeyS,
		up: device.KeyQ, down: device.KeyE,
		yawLeft: device.KeyR, yawRight: device.KeyF,
	},
	ArrowKeys: {
		left: device.KeyLeft, right: device.KeyRight,
		forward: device.KeyUp, backward: device.KeyDown,
		up: device.KeyPageUp, down: device.KeyPageDown,
		yawLeft: device.KeyHome, yawRight: device.KeyEnd,
	},
}

func (s *Service) readKeys(l keyLayout) Axes {
	return Axes{
		LX:       s.kb.Axis(l.left, l.right),
		LY:       s.kb.Axis(l.forward, l.backward),
		Vertical: s.kb.Axis(l.down, l.up),
		Yaw:      s.kb.Axis(l.yawRight, l.yawLeft),
	}
}
