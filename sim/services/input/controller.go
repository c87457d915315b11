package input

import (
	"trainer/sim/device"
	"trainer/sim/service"
)

// padHandle is the acquired controller. It lives on the service goroutine.
type padHandle struct {
	index int
	name  string
}

// acquire scans for a connected pad and takes the first one.
func (s *Service) acquire() {
	s.pad = nil
	if s.pads.Count() == 0 {
		s.SetStatus(service.Stopped, "Controller: Not Found")
		if s.warn.Allow() {
			s.Logger().Warn("no controller found")
		}
		return
	}
	p, ok := s.pads.State(0)
	if !ok {
		s.SetStatus(service.Stopped, "Controller: Not Found")
		return
	}
	s.pad = &padHandle{index: 0, name: p.Name}
	s.SetStatus(service.Running, "Controller: "+p.Name)
	s.Logger().Info("controller acquired", "name", p.Name)
}

func (s *Service) releasePad() {
	if s.pad != nil {
		s.Logger().Debug("controller released", "name", s.pad.name)
	}
	s.pad = nil
}

// readController returns the current axes. It reports false when no pad is
// usable this tick, after updating the status.
func (s *Service) readController() (Axes, bool) {
	if s.pad == nil {
		s.acquire()
		return Axes{}, false
	}
	if s.pad.index >= s.pads.Count() {
		s.Logger().Warn("controller disconnected", "name", s.pad.name)
		s.pad = nil
		s.SetStatus(service.Stopped, "Controller: Disconnected")
		return Axes{}, false
	}
	p, ok := s.pads.State(s.pad.index)
	if !ok {
		s.pad = nil
		s.SetStatus(service.Stopped, "Controller: Disconnected")
		return Axes{}, false
	}
	return padAxes(p), true
}

// padAxes maps the standard layout: left stick moves, bumpers climb and
// sink, right stick pitches and rolls, triggers yaw.
func padAxes(p device.Pad) Axes {
	var vertical float64
	if p.Button(device.ButtonRightBumper) {
		vertical++
	}
	if p.Button(device.ButtonLeftBumper) {
		vertical--
	}
	lt := (p.Axis(device.AxisLeftTrigger) + 1) / 2
	rt := (p.Axis(device.AxisRightTrigger) + 1) / 2
	return Axes{
		LX:       p.Axis(device.AxisLeftX),
		LY:       p.Axis(device.AxisLeftY),
		Vertical: vertical,
		Pitch:    p.Axis(device.AxisRightY),
		Yaw:      -(rt - lt),
		Roll:     -p.Axis(device.AxisRightX),
	}
}
