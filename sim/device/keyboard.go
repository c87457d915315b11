// Package device holds input device state shared between the host poller and
// the services that read it. It has no platform dependencies.
package device

import (
	"slices"
	"sync"
	"time"

	"github.com/ErikKalkoken/go-set"
)

// Key identifies a keyboard key the trainer cares about.
type Key uint16

const (
	KeyUnknown Key = iota
	KeyW
	KeyA
	KeyS
	KeyD
	KeyQ
	KeyE
	KeyR
	KeyF
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyPageUp
	KeyPageDown
	KeyHome
	KeyEnd
	KeyTab
	KeyEscape
	Key1
	Key2
	Key3
	KeyPlus
	KeyMinus
	keyCount
)

var keyNames = [...]string{
	KeyUnknown:  "unknown",
	KeyW:        "w",
	KeyA:        "a",
	KeyS:        "s",
	KeyD:        "d",
	KeyQ:        "q",
	KeyE:        "e",
	KeyR:        "r",
	KeyF:        "f",
	KeyUp:       "up",
	KeyDown:     "down",
	KeyLeft:     "left",
	KeyRight:    "right",
	KeyPageUp:   "pgup",
	KeyPageDown: "pgdown",
	KeyHome:     "home",
	KeyEnd:      "end",
	KeyTab:      "tab",
	KeyEscape:   "esc",
	Key1:        "1",
	Key2:        "2",
	Key3:        "3",
	KeyPlus:     "+",
	KeyMinus:    "-",
}

func (k Key) String() string {
	if k < keyCount {
		return keyNames[k]
	}
	return "unknown"
}

// ParseKey maps a key name as produced by String back to a Key.
func ParseKey(s string) (Key, bool) {
	i := slices.Index(keyNames[:], s)
	if i <= 0 {
		return KeyUnknown, false
	}
	return Key(i), true
}

// DefaultHold is how long Tap keeps a key pressed.
const DefaultHold = 120 * time.Millisecond

// Keyboard is the set of currently pressed keys. It is safe for concurrent use.
type Keyboard struct {
	mu      sync.Mutex
	pressed set.Set[Key]
	timers  map[Key]*time.Timer
}

// NewKeyboard returns a keyboard with no keys pressed.
func NewKeyboard() *Keyboard {
	return &Keyboard{pressed: set.Of[Key](), timers: make(map[Key]*time.Timer)}
}

// Press marks k as held until Release.
func (kb *Keyboard) Press(k Key) {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	kb.stopTimerLocked(k)
	kb.pressed.Add(k)
}

// Release marks k as up.
func (kb *Keyboard) Release(k Key) {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	kb.stopTimerLocked(k)
	kb.pressed.Delete(k)
}

// Tap presses k and releases it after hold. Tapping a key that is already
// tapped extends the hold. Terminals only report key presses, so this is how
// they drive held-key input.
func (kb *Keyboard) Tap(k Key, hold time.Duration) {
	if hold <= 0 {
		hold = DefaultHold
	}
	kb.mu.Lock()
	defer kb.mu.Unlock()
	kb.stopTimerLocked(k)
	kb.pressed.Add(k)
	var t *time.Timer
	t = time.AfterFunc(hold, func() {
		kb.mu.Lock()
		defer kb.mu.Unlock()
		if kb.timers[k] != t {
			return
		}
		delete(kb.timers, k)
		kb.pressed.Delete(k)
	})
	kb.timers[k] = t
}

// Pressed reports whether k is held.
func (kb *Keyboard) Pressed(k Key) bool {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	return kb.pressed.Contains(k)
}

// Axis returns +1 when pos is held, -1 when neg is held and 0 for neither or both.
func (kb *Keyboard) Axis(neg, pos Key) float64 {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	var v float64
	if kb.pressed.Contains(pos) {
		v++
	}
	if kb.pressed.Contains(neg) {
		v--
	}
	return v
}

// Keys returns the held keys in ascending order.
func (kb *Keyboard) Keys() []Key {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	return slices.Sorted(kb.pressed.All())
}

// Reset releases every key.
func (kb *Keyboard) Reset() {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	for k := range kb.timers {
		kb.stopTimerLocked(k)
	}
	kb.pressed.Clear()
}

func (kb *Keyboard) stopTimerLocked(k Key) {
	if t, ok := kb.timers[k]; ok {
		t.Stop()
		delete(kb.timers, k)
	}
}
