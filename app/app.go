// Package app assembles the registry and services and exposes the
// configuration commands used by the window and the dashboard.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/maniartech/signals"
	"golang.org/x/sync/errgroup"

	"trainer/hal"
	"trainer/internal/config"
	"trainer/sim/device"
	"trainer/sim/registry"
	"trainer/sim/service"
	"trainer/sim/services/input"
	"trainer/sim/services/mocap"
	"trainer/sim/services/status"
)

const noticeHistory = 5

var errNoHAL = errors.New("app: nil hal")

// Options configures New.
type Options struct {
	Config config.Config
	Logger *slog.Logger
	// Exit is used by services under the halt policy. Defaults to os.Exit.
	Exit func(int)
}

type supervised interface {
	Name() string
	Start()
	Stop()
	Report() service.Report
	StatusChanged() signals.Signal[service.Report]
}

// App owns the registry and every service.
type App struct {
	log *slog.Logger
	h   hal.HAL

	reg    *registry.Registry
	input  *input.Service
	status *status.Service
	mocap  *mocap.Service

	services []supervised

	quit    atomic.Bool
	applied atomic.Uint64

	noticeMu sync.Mutex
	notices  []registry.Notice
}

// New builds the application on h. Services are not started.
func New(h hal.HAL, opts Options) (*App, error) {
	if h == nil {
		return nil, errNoHAL
	}
	cfg := opts.Config
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	a := &App{log: log, h: h, reg: registry.New()}
	a.reg.Notices().AddListener(a.onNotice, "app")

	for _, e := range cfg.Scene.Entities {
		re, err := e.Registry()
		if err != nil {
			return nil, fmt.Errorf("entity %q: %w", e.Name, err)
		}
		if _, err := a.reg.Add(re); err != nil {
			return nil, err
		}
	}

	svcConfig := func(name string, interval time.Duration, p service.Policy) service.Config {
		return service.Config{Name: name, Interval: interval, Policy: p, Logger: log, Exit: opts.Exit}
	}

	in, err := input.New(input.Config{
		Service:     svcConfig("input", cfg.Input.Interval, cfg.Input.Policy),
		Type:        cfg.Input.Type,
		Sensitivity: cfg.Input.Sensitivity,
		Registry:    a.reg,
		Keyboard:    h.Keyboard(),
		Pads:        h.Pads(),
		Camera:      h.Camera(),
	})
	if err != nil {
		return nil, err
	}
	a.input = in
	a.input.Applied().AddListener(func(_ context.Context, ev input.Applied) {
		a.applied.Add(1)
		a.log.Debug("delta applied", "entity", ev.Entity.Name, "pose", ev.Entity.Pose.Slice())
	}, "app")
	a.reg.Attach(in)
	if cfg.Scene.Controlled != "" {
		if err := a.reg.SetControlled(cfg.Scene.Controlled); err != nil {
			return nil, err
		}
	}
	a.services = append(a.services, in)

	if cfg.Mocap.Enabled {
		mc, err := mocap.New(mocap.Config{
			Service:          svcConfig("mocap", cfg.Mocap.Interval, cfg.Mocap.Policy),
			URL:              cfg.Mocap.URL,
			HandshakeTimeout: cfg.Mocap.HandshakeTimeout,
			Retry:            cfg.Mocap.Retry,
			TrackIDs:         cfg.Mocap.TrackIDs,
			Registry:         a.reg,
		})
		if err != nil {
			return nil, err
		}
		a.mocap = mc
		a.services = append(a.services, mc)
	}

	st := status.New(svcConfig("status", cfg.Status.Interval, cfg.Status.Policy))
	for _, s := range a.services {
		st.Watch(s)
	}
	st.Watch(st)
	st.AddSink(status.SinkFunc(a.statusNotice))
	a.status = st
	a.services = append(a.services, st)
	for _, s := range a.services {
		s.StatusChanged().AddListener(a.logStatus, "app")
	}
	return a, nil
}

func (a *App) Registry() *registry.Registry { return a.reg }
func (a *App) Input() *input.Service        { return a.input }
func (a *App) Status() *status.Service      { return a.status }

// Start starts every service concurrently. It reports services that failed
// while starting.
func (a *App) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, s := range a.services {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			s.Start()
			if r := s.Report(); r.Status == service.Error {
				return fmt.Errorf("start %s: %s", s.Name(), r.Label)
			}
			a.log.Debug("service started", "service", s.Name())
			return nil
		})
	}
	return g.Wait()
}

// Stop stops every service and waits for all of them.
func (a *App) Stop() error {
	var g errgroup.Group
	for _, s := range a.services {
		g.Go(func() error {
			s.Stop()
			return nil
		})
	}
	return g.Wait()
}

// Step runs once per host frame.
func (a *App) Step() error {
	cam := a.h.Camera()
	a.reg.UpdateDebugValue("fps", a.h.FPS())
	a.reg.UpdateDebugValue("camera yaw", cam.Yaw())
	a.reg.UpdateDebugValue("camera pitch", cam.Pitch())
	a.reg.UpdateDebugValue("deltas applied", float64(a.applied.Load()))
	if a.quit.Load() {
		return hal.ErrQuit
	}
	return nil
}

// Scene returns the entities in draw order.
func (a *App) Scene() []registry.Snapshot { return a.reg.All() }

// Hotkey handles command keys from the host.
func (a *App) Hotkey(k device.Key) {
	var err error
	switch k {
	case device.KeyTab:
		_, err = a.CycleControlled()
	case device.Key1, device.Key2, device.Key3:
		err = a.SetInputType(input.Types[k-device.Key1])
	case device.KeyPlus:
		_, err = a.SetSensitivity(a.input.Sensitivity() + 0.1)
	case device.KeyMinus:
		_, err = a.SetSensitivity(a.input.Sensitivity() - 0.1)
	case device.KeyEscape:
		a.quit.Store(true)
	}
	if err != nil {
		a.log.Warn("command failed", "key", k, "error", err)
	}
}

// Quit makes the next Step return hal.ErrQuit.
func (a *App) Quit() { a.quit.Store(true) }

// SetInputType switches the input source.
func (a *App) SetInputType(t input.Type) error {
	return a.input.SetInputType(t)
}

// SetSensitivity clamps and applies v and returns the stored value.
func (a *App) SetSensitivity(v float64) (float64, error) {
	got, err := a.input.SetSensitivity(v)
	if err == nil {
		a.log.Info("sensitivity changed", "value", got)
	}
	return got, err
}

// SetControlled binds the controlled entity by name.
func (a *App) SetControlled(name string) error {
	return a.reg.SetControlled(name)
}

// CycleControlled moves control to the next controllable entity in draw
// order. Tracked entities and grids are skipped.
func (a *App) CycleControlled() (string, error) {
	type candidate struct {
		id   uuid.UUID
		name string
	}
	var cands []candidate
	current := -1
	for _, s := range a.reg.All() {
		if s.Tracked || s.Render.Shape == registry.ShapeGrid {
			continue
		}
		if s.Controlled {
			current = len(cands)
		}
		cands = append(cands, candidate{s.ID, s.Name})
	}
	if len(cands) == 0 {
		return "", fmt.Errorf("cycle controlled: %w", registry.ErrNotFound)
	}
	next := cands[0]
	if current >= 0 {
		next = cands[(current+1)%len(cands)]
	}
	return next.name, a.reg.SetControlledID(next.id)
}

// RemoveControlled removes the controlled entity from the scene.
func (a *App) RemoveControlled() (string, error) {
	c, ok := a.reg.Controlled()
	if !ok {
		return "", fmt.Errorf("remove controlled: %w", registry.ErrNotFound)
	}
	return c.Name, a.reg.RemoveID(c.ID)
}

// SetTracked hands an entity to motion capture or back to input. trackID may
// be nil when the entity already has one.
func (a *App) SetTracked(name string, tracked bool, trackID *int) error {
	if err := a.reg.SetTracked(name, tracked, trackID); err != nil {
		return err
	}
	a.log.Info("tracking changed", "entity", name, "tracked", tracked)
	return nil
}

// ToggleTracked flips the tracked flag of the controlled entity.
func (a *App) ToggleTracked() (string, error) {
	c, ok := a.reg.Controlled()
	if !ok {
		return "", fmt.Errorf("toggle tracked: %w", registry.ErrNotFound)
	}
	return c.Name, a.SetTracked(c.Name, !c.Tracked, nil)
}

// Tap presses k on the shared keyboard for the default hold time.
func (a *App) Tap(k device.Key) { a.h.Keyboard().Tap(k, 0) }

// Reports returns the latest consolidated service statuses.
func (a *App) Reports() []service.Report { return a.status.Latest() }

// Entities returns registry snapshots in draw order.
func (a *App) Entities() []registry.Snapshot { return a.reg.All() }

// InputType returns the active input type.
func (a *App) InputType() input.Type { return a.input.InputType() }

// Sensitivity returns the input sensitivity.
func (a *App) Sensitivity() float64 { return a.input.Sensitivity() }

// Notices returns the most recent registry notices, oldest first.
func (a *App) Notices() []registry.Notice {
	a.noticeMu.Lock()
	defer a.noticeMu.Unlock()
	return slices.Clone(a.notices)
}

func (a *App) onNotice(_ context.Context, n registry.Notice) {
	if n.Level == registry.Warning {
		a.log.Warn(n.Message, "entity", n.Entity)
	} else {
		a.log.Info(n.Message, "entity", n.Entity)
	}
	a.pushNotice(n)
}

func (a *App) pushNotice(n registry.Notice) {
	a.noticeMu.Lock()
	defer a.noticeMu.Unlock()
	a.notices = append(a.notices, n)
	if len(a.notices) > noticeHistory {
		a.notices = a.notices[len(a.notices)-noticeHistory:]
	}
}

func (a *App) logStatus(_ context.Context, r service.Report) {
	level := slog.LevelInfo
	switch r.Status {
	case service.Warning:
		level = slog.LevelWarn
	case service.Error:
		level = slog.LevelError
	}
	a.log.Log(context.Background(), level, "service status", "service", r.Service, "status", r.Status, "label", r.Label)
}

// statusNotice shows consolidated status changes in the notice history.
func (a *App) statusNotice(name string, s service.Status, label string) {
	level := registry.Info
	if s == service.Warning || s == service.Error {
		level = registry.Warning
	}
	a.pushNotice(registry.Notice{Level: level, Entity: name, Message: fmt.Sprintf("%s: %s (%s)", name, s, label)})
}
