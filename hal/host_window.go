//go:build cgo

package hal

import (
	"context"
	"errors"
	"image/color"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"trainer/internal/buildinfo"
	"trainer/sim/render"
)

// WindowConfig sizes the desktop window.
type WindowConfig struct {
	Title  string
	Width  int
	Height int
	TPS    int
}

// RunWindow opens a desktop window, polls keyboard, mouse and gamepads into
// device state and draws the scene each frame. It blocks until the window
// closes, the application returns ErrQuit or ctx is done.
func RunWindow(ctx context.Context, cfg WindowConfig, newApp func(HAL) (App, error)) error {
	h := newHost()
	app, err := newApp(h)
	if err != nil {
		return err
	}

	if cfg.Title == "" {
		cfg.Title = "Trainer"
	}
	if cfg.TPS <= 0 {
		cfg.TPS = 60
	}
	g := &hostGame{ctx: ctx, h: h, app: app}
	ebiten.SetWindowTitle(cfg.Title + " (" + buildinfo.Short() + ")")
	ebiten.SetWindowSize(cfg.Width, cfg.Height)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetTPS(cfg.TPS)
	err = ebiten.RunGame(g)
	if errors.Is(err, ErrQuit) {
		return nil
	}
	return err
}

type hostGame struct {
	ctx context.Context
	h   *hostHAL
	app App

	dragging   bool
	lastX      int
	lastY      int
	gamepadIDs []ebiten.GamepadID
}

func (g *hostGame) Update() error {
	for _, k := range pollKeyboard(g.h.kbd) {
		g.app.Hotkey(k)
	}
	g.gamepadIDs = pollGamepads(g.h.pads, g.gamepadIDs)
	g.pollMouse()
	return g.h.stepContext(g.ctx, g.app)
}

// pollMouse orbits the camera with a left drag and zooms with the wheel.
func (g *hostGame) pollMouse() {
	x, y := ebiten.CursorPosition()
	if ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) {
		if g.dragging {
			g.h.cam.Rotate(-float64(x-g.lastX)*0.4, float64(y-g.lastY)*0.4)
		}
		g.dragging = true
	} else {
		g.dragging = false
	}
	g.lastX, g.lastY = x, y

	if _, wy := ebiten.Wheel(); wy != 0 {
		g.h.cam.Zoom(-wy)
	}
}

var background = color.RGBA{R: 0x14, G: 0x16, B: 0x1c, A: 0xff}

func (g *hostGame) Draw(screen *ebiten.Image) {
	screen.Fill(background)
	b := screen.Bounds()
	for _, s := range render.Project(g.h.cam, b.Dx(), b.Dy(), g.app.Scene()) {
		vector.StrokeLine(screen, s.X0, s.Y0, s.X1, s.Y1, 1, toColor(s.Color), true)
	}
	ebitenutil.DebugPrintAt(screen, strings.Join(g.app.Overlay(), "\n"), 8, 8)
}

// Layout follows the window size, so resizing only changes the aspect ratio.
func (g *hostGame) Layout(outsideWidth, outsideHeight int) (int, int) {
	return outsideWidth, outsideHeight
}

func toColor(c [4]float64) color.Color {
	ch := func(v float64) uint8 {
		if v <= 0 {
			return 0
		}
		if v >= 1 {
			return 0xff
		}
		return uint8(v * 0xff)
	}
	// ebiten expects premultiplied alpha.
	a := ch(c[3])
	return color.RGBA{
		R: ch(c[0] * c[3]),
		G: ch(c[1] * c[3]),
		B: ch(c[2] * c[3]),
		A: a,
	}
}
