// Package input turns device state into pose deltas for the controlled entity.
package input

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/maniartech/signals"
	"golang.org/x/time/rate"

	"trainer/sim/device"
	"trainer/sim/pose"
	"trainer/sim/registry"
	"trainer/sim/service"
)

var (
	ErrUnknownInputType = errors.New("unknown input type")
	ErrSensitivityRange = errors.New("sensitivity out of range")
)

// Type selects the active input source.
type Type uint8

const (
	Controller Type = iota
	WASD
	ArrowKeys
)

var typeNames = [...]string{"Controller", "WASD", "Arrow Keys"}

// Types lists every input type in menu order.
var Types = []Type{Controller, WASD, ArrowKeys}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", t)
}

func (t Type) valid() bool { return int(t) < len(typeNames) }

// ParseType accepts the display names and their lowercase, space-free forms.
func ParseType(s string) (Type, error) {
	key := strings.ToLower(strings.ReplaceAll(s, " ", ""))
	for i, n := range typeNames {
		if key == strings.ToLower(strings.ReplaceAll(n, " ", "")) {
			return Type(i), nil
		}
	}
	switch key {
	case "gamepad":
		return Controller, nil
	case "arrows":
		return ArrowKeys, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownInputType, s)
}

func (t Type) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *Type) UnmarshalText(b []byte) error {
	v, err := ParseType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Camera provides the viewer yaw in degrees.
type Camera interface {
	Yaw() float64
}

// Applied is emitted after a delta has been applied to an entity.
type Applied struct {
	Entity registry.Snapshot
	Delta  pose.Delta
}

// Config configures a Service.
type Config struct {
	Service     service.Config
	Type        Type
	Sensitivity float64
	Registry    *registry.Registry
	Keyboard    *device.Keyboard
	Pads        *device.Pads
	Camera      Camera
}

type target struct {
	id   uuid.UUID
	name string
}

// Service is the input service. It implements registry.Target.
type Service struct {
	*service.Base

	reg  *registry.Registry
	kb   *device.Keyboard
	pads *device.Pads
	cam  Camera

	kind        atomic.Uint32
	sensitivity atomic.Uint64
	target      atomic.Pointer[target]
	applied     signals.Signal[Applied]

	// Owned by the service goroutine.
	active bool
	pad    *padHandle
	warn   *rate.Limiter
}

// New returns a stopped input service.
func New(cfg Config) (*Service, error) {
	if !cfg.Type.valid() {
		return nil, fmt.Errorf("input: %w: %d", ErrUnknownInputType, cfg.Type)
	}
	if cfg.Registry == nil {
		return nil, errors.New("input: registry required")
	}
	if cfg.Keyboard == nil {
		cfg.Keyboard = device.NewKeyboard()
	}
	if cfg.Pads == nil {
		cfg.Pads = device.NewPads()
	}
	if cfg.Sensitivity == 0 {
		cfg.Sensitivity = 1
	}
	if cfg.Service.Name == "" {
		cfg.Service.Name = "input"
	}
	s := &Service{
		reg:     cfg.Registry,
		kb:      cfg.Keyboard,
		pads:    cfg.Pads,
		cam:     cfg.Camera,
		applied: signals.NewSync[Applied](),
		warn:    rate.NewLimiter(rate.Every(5*time.Second), 1),
	}
	s.Base = service.New(cfg.Service, s)
	s.kind.Store(uint32(cfg.Type))
	if _, err := s.SetSensitivity(cfg.Sensitivity); err != nil {
		return nil, err
	}
	return s, nil
}

// Applied is emitted after each pose mutation.
func (s *Service) Applied() signals.Signal[Applied] { return s.applied }

// InputType returns the active input type.
func (s *Service) InputType() Type { return Type(s.kind.Load()) }

// Sensitivity returns the configured sensitivity.
func (s *Service) Sensitivity() float64 { return math.Float64frombits(s.sensitivity.Load()) }

// SetSensitivity clamps v to [MinSensitivity, MaxSensitivity] and stores it.
// It returns the stored value.
func (s *Service) SetSensitivity(v float64) (float64, error) {
	if math.IsNaN(v) {
		return s.Sensitivity(), fmt.Errorf("set sensitivity: %w: NaN", ErrSensitivityRange)
	}
	v = ClampSensitivity(v)
	s.sensitivity.Store(math.Float64bits(v))
	return v, nil
}

// SetInputType switches the input source. The previous source is torn down
// and the new one initialized on the service goroutine.
func (s *Service) SetInputType(t Type) error {
	if !t.valid() {
		return fmt.Errorf("set input type: %w: %d", ErrUnknownInputType, t)
	}
	return s.Invoke(func() error {
		if s.InputType() == t && s.active {
			return nil
		}
		s.teardown()
		s.kind.Store(uint32(t))
		if s.active {
			s.setup()
		}
		s.Logger().Info("input type changed", "type", t)
		return nil
	})
}

// SetTarget binds the entity that receives deltas. A nil id unbinds.
func (s *Service) SetTarget(id uuid.UUID, name string) {
	if id == uuid.Nil {
		s.target.Store(nil)
		return
	}
	s.target.Store(&target{id: id, name: name})
}

// Target returns the bound entity name, if any.
func (s *Service) Target() (string, bool) {
	t := s.target.Load()
	if t == nil {
		return "", false
	}
	return t.name, true
}

func (s *Service) OnStart(context.Context) error {
	s.active = true
	s.setup()
	return nil
}

func (s *Service) OnStop() {
	s.teardown()
	s.active = false
}

func (s *Service) Update(context.Context) error {
	var in Axes
	switch t := s.InputType(); t {
	case Controller:
		var ok bool
		if in, ok = s.readController(); !ok {
			return nil
		}
	case WASD, ArrowKeys:
		in = s.readKeys(layouts[t])
	}
	d := s.delta(in.filtered())

	t := s.target.Load()
	if t == nil || d == nil {
		return nil
	}
	snap, err := s.reg.ApplyDelta(t.id, *d)
	switch {
	case errors.Is(err, registry.ErrNotFound):
		return nil
	case errors.Is(err, registry.ErrWriterDenied):
		if s.warn.Allow() {
			s.Logger().Warn("controlled entity is tracked, input ignored", "entity", t.name)
		}
		return nil
	case err != nil:
		return err
	}
	s.applied.Emit(context.Background(), Applied{Entity: snap, Delta: *d})
	return nil
}

func (s *Service) setup() {
	switch t := s.InputType(); t {
	case Controller:
		s.acquire()
	default:
		s.SetStatus(service.Running, "Keyboard: "+t.String())
	}
}

func (s *Service) teardown() {
	s.releasePad()
}

// delta builds the pose delta for one tick, or nil when there is no input.
func (s *Service) delta(in Axes) *pose.Delta {
	if in.zero() {
		return nil
	}
	var yaw float64
	if s.cam != nil {
		yaw = mgl64.DegToRad(s.cam.Yaw())
	}
	lx, ly := Remap(in.LX, in.LY, yaw)
	sens := s.Sensitivity()
	k, r := TranslationGain*sens, RotationGain*sens
	return &pose.Delta{
		Translation: mgl64.Vec3{lx * k, in.Vertical * k, ly * k},
		Rotation:    pose.EulerZYX(in.Roll*r, in.Yaw*r, in.Pitch*r),
	}
}
