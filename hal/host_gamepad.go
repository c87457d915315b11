//go:build cgo

package hal

import (
	"github.com/hajimehoshi/ebiten/v2"

	"trainer/sim/device"
)

// pollGamepads snapshots every connected gamepad into pads. Pads using the
// standard layout are mapped by name; others fall back to raw indices.
func pollGamepads(pads *device.Pads, ids []ebiten.GamepadID) []ebiten.GamepadID {
	ids = ebiten.AppendGamepadIDs(ids[:0])
	out := make([]device.Pad, 0, len(ids))
	for _, id := range ids {
		if ebiten.IsStandardGamepadLayoutAvailable(id) {
			out = append(out, standardPad(id))
		} else {
			out = append(out, rawPad(id))
		}
	}
	pads.Replace(out)
	return ids
}

func standardPad(id ebiten.GamepadID) device.Pad {
	p := device.NewPad(ebiten.GamepadName(id))
	p.Axes[device.AxisLeftX] = ebiten.StandardGamepadAxisValue(id, ebiten.StandardGamepadAxisLeftStickHorizontal)
	p.Axes[device.AxisLeftY] = ebiten.StandardGamepadAxisValue(id, ebiten.StandardGamepadAxisLeftStickVertical)
	p.Axes[device.AxisRightX] = ebiten.StandardGamepadAxisValue(id, ebiten.StandardGamepadAxisRightStickHorizontal)
	p.Axes[device.AxisRightY] = ebiten.StandardGamepadAxisValue(id, ebiten.StandardGamepadAxisRightStickVertical)
	// Standard triggers report 0..1; device axes rest at -1.
	p.Axes[device.AxisLeftTrigger] = ebiten.StandardGamepadButtonValue(id, ebiten.StandardGamepadButtonFrontBottomLeft)*2 - 1
	p.Axes[device.AxisRightTrigger] = ebiten.StandardGamepadButtonValue(id, ebiten.StandardGamepadButtonFrontBottomRight)*2 - 1

	p.Buttons[device.ButtonA] = ebiten.IsStandardGamepadButtonPressed(id, ebiten.StandardGamepadButtonRightBottom)
	p.Buttons[device.ButtonB] = ebiten.IsStandardGamepadButtonPressed(id, ebiten.StandardGamepadButtonRightRight)
	p.Buttons[device.ButtonX] = ebiten.IsStandardGamepadButtonPressed(id, ebiten.StandardGamepadButtonRightLeft)
	p.Buttons[device.ButtonY] = ebiten.IsStandardGamepadButtonPressed(id, ebiten.StandardGamepadButtonRightTop)
	p.Buttons[device.ButtonLeftBumper] = ebiten.IsStandardGamepadButtonPressed(id, ebiten.StandardGamepadButtonFrontTopLeft)
	p.Buttons[device.ButtonRightBumper] = ebiten.IsStandardGamepadButtonPressed(id, ebiten.StandardGamepadButtonFrontTopRight)
	return p
}

func rawPad(id ebiten.GamepadID) device.Pad {
	p := device.NewPad(ebiten.GamepadName(id))
	for i := 0; i < device.AxisCount && i < ebiten.GamepadAxisCount(id); i++ {
		p.Axes[i] = ebiten.GamepadAxisValue(id, i)
	}
	for i := 0; i < device.ButtonCount && i < ebiten.GamepadButtonCount(id); i++ {
		p.Buttons[i] = ebiten.IsGamepadButtonPressed(id, ebiten.GamepadButton(i))
	}
	return p
}
