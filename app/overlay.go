package app

import (
	"fmt"

	"trainer/internal/buildinfo"
)

// Overlay returns the status text drawn over the scene.
func (a *App) Overlay() []string {
	lines := []string{
		"trainer " + buildinfo.Short(),
		fmt.Sprintf("input: %s  sensitivity: %.1f", a.input.InputType(), a.input.Sensitivity()),
	}
	if c, ok := a.controlled(); ok {
		lines = append(lines, "controlled: "+c)
	} else {
		lines = append(lines, "controlled: none")
	}
	for _, r := range a.status.Latest() {
		lines = append(lines, r.String())
	}
	for _, d := range a.reg.DebugValues() {
		lines = append(lines, fmt.Sprintf("%s: %.1f", d.Name, d.Value))
	}
	for _, n := range a.Notices() {
		lines = append(lines, "> "+n.Message)
	}
	lines = append(lines, "", "tab: next entity  1/2/3: input  +/-: sensitivity  esc: quit")
	return lines
}

// controlled returns the controlled entity without raising a registry notice.
func (a *App) controlled() (string, bool) {
	for _, s := range a.reg.All() {
		if s.Controlled {
			return s.String(), true
		}
	}
	return "", false
}
