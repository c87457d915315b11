//go:build cgo

package hal

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"trainer/sim/device"
)

var keyMap = map[ebiten.Key]device.Key{
	ebiten.KeyW:              device.KeyW,
	ebiten.KeyA:              device.KeyA,
	ebiten.KeyS:              device.KeyS,
	ebiten.KeyD:              device.KeyD,
	ebiten.KeyQ:              device.KeyQ,
	ebiten.KeyE:              device.KeyE,
	ebiten.KeyR:              device.KeyR,
	ebiten.KeyF:              device.KeyF,
	ebiten.KeyArrowUp:        device.KeyUp,
	ebiten.KeyArrowDown:      device.KeyDown,
	ebiten.KeyArrowLeft:      device.KeyLeft,
	ebiten.KeyArrowRight:     device.KeyRight,
	ebiten.KeyPageUp:         device.KeyPageUp,
	ebiten.KeyPageDown:       device.KeyPageDown,
	ebiten.KeyHome:           device.KeyHome,
	ebiten.KeyEnd:            device.KeyEnd,
	ebiten.KeyTab:            device.KeyTab,
	ebiten.KeyEscape:         device.KeyEscape,
	ebiten.KeyDigit1:         device.Key1,
	ebiten.KeyDigit2:         device.Key2,
	ebiten.KeyDigit3:         device.Key3,
	ebiten.KeyEqual:          device.KeyPlus,
	ebiten.KeyNumpadAdd:      device.KeyPlus,
	ebiten.KeyMinus:          device.KeyMinus,
	ebiten.KeyNumpadSubtract: device.KeyMinus,
}

// pollKeyboard mirrors key transitions into kb and returns the hotkeys
// pressed this frame.
func pollKeyboard(kb *device.Keyboard) []device.Key {
	var pressed []device.Key
	for _, k := range inpututil.AppendJustPressedKeys(nil) {
		dk, ok := keyMap[k]
		if !ok {
			continue
		}
		kb.Press(dk)
		if IsHotkey(dk) {
			pressed = append(pressed, dk)
		}
	}
	for _, k := range inpututil.AppendJustReleasedKeys(nil) {
		if dk, ok := keyMap[k]; ok {
			kb.Release(dk)
		}
	}
	return pressed
}
