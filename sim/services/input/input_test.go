package input

import (
	"context"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trainer/sim/device"
	"trainer/sim/pose"
	"trainer/sim/registry"
	"trainer/sim/service"
)

const eps = 1e-9

type fixedCamera float64

func (c fixedCamera) Yaw() float64 { return float64(c) }

type rig struct {
	reg  *registry.Registry
	kb   *device.Keyboard
	pads *device.Pads
	svc  *Service
}

func newRig(t *testing.T, typ Type, cam Camera) *rig {
	t.Helper()
	r := &rig{reg: registry.New(), kb: device.NewKeyboard(), pads: device.NewPads()}
	svc, err := New(Config{
		Service: service.Config{
			Interval: time.Millisecond,
			Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		},
		Type:     typ,
		Registry: r.reg,
		Keyboard: r.kb,
		Pads:     r.pads,
		Camera:   cam,
	})
	require.NoError(t, err)
	r.svc = svc
	t.Cleanup(svc.Stop)

	_, err = r.reg.Add(registry.Entity{Name: "drone"})
	require.NoError(t, err)
	r.reg.Attach(svc)
	require.NoError(t, r.reg.SetControlled("drone"))
	return r
}

func (r *rig) position(t *testing.T) mgl64.Vec3 {
	t.Helper()
	s, err := r.reg.Get("drone")
	require.NoError(t, err)
	return s.Pose.Position()
}

func (r *rig) tick(t *testing.T) {
	t.Helper()
	require.NoError(t, r.svc.Update(context.Background()))
}

func TestDeadzone(t *testing.T) {
	for _, v := range []float64{0, 0.05, -0.05, 0.1, -0.1, 0.0999} {
		assert.Zero(t, ApplyDeadzone(v), "%v", v)
	}
	for _, v := range []float64{0.1000001, -0.2, 0.5, 1, -1} {
		assert.Equal(t, v, ApplyDeadzone(v), "%v", v)
	}
}

func TestRemapAtZeroYawIsIdentity(t *testing.T) {
	for range 1000 {
		lx, ly := rand.Float64()*2-1, rand.Float64()*2-1
		gx, gy := Remap(lx, ly, 0)
		assert.Equal(t, lx, gx)
		assert.Equal(t, ly, gy)
	}
}

func TestRemapQuarterTurn(t *testing.T) {
	x, y := Remap(1, 0, math.Pi/2)
	assert.InDelta(t, 0, x, eps)
	assert.InDelta(t, -1, y, eps)
}

func TestClampSensitivity(t *testing.T) {
	assert.Equal(t, MinSensitivity, ClampSensitivity(0))
	assert.Equal(t, MaxSensitivity, ClampSensitivity(10))
	assert.Equal(t, 2.5, ClampSensitivity(2.5))
}

func TestControllerScenario(t *testing.T) {
	r := newRig(t, Controller, fixedCamera(0))
	i := r.pads.Connect(device.NewPad("Xbox"))
	r.pads.SetAxis(i, device.AxisLeftX, 0.5)
	r.pads.SetAxis(i, device.AxisLeftY, 0.0)

	require.NoError(t, r.svc.OnStart(context.Background()))
	assert.Equal(t, service.Report{Service: "input", Status: service.Running, Label: "Controller: Xbox"},
		withoutTime(r.svc.Report()))

	r.tick(t)
	p := r.position(t)
	assert.InDelta(t, 0.05, p.X(), eps)
	assert.InDelta(t, 0, p.Y(), eps)
	assert.InDelta(t, 0, p.Z(), eps)
}

func TestControllerBelowDeadzone(t *testing.T) {
	r := newRig(t, Controller, nil)
	i := r.pads.Connect(device.NewPad("Xbox"))
	r.pads.SetAxis(i, device.AxisLeftX, 0.05)
	require.NoError(t, r.svc.OnStart(context.Background()))

	r.tick(t)
	assert.Zero(t, r.position(t).X())
}

func TestControllerRotation(t *testing.T) {
	r := newRig(t, Controller, nil)
	i := r.pads.Connect(device.NewPad("Xbox"))
	r.pads.SetAxis(i, device.AxisRightY, 0.5)
	require.NoError(t, r.svc.OnStart(context.Background()))

	r.tick(t)
	s, err := r.reg.Get("drone")
	require.NoError(t, err)
	want := pose.EulerZYX(0, 0, 0.5*RotationGain)
	assertQuatNear(t, want, s.Pose.Orientation())
	assert.True(t, pose.IsUnit(s.Pose.Orientation()))
}

func TestControllerCameraRelative(t *testing.T) {
	r := newRig(t, Controller, fixedCamera(90))
	i := r.pads.Connect(device.NewPad("Xbox"))
	r.pads.SetAxis(i, device.AxisLeftX, 0.5)
	require.NoError(t, r.svc.OnStart(context.Background()))

	r.tick(t)
	p := r.position(t)
	assert.InDelta(t, 0, p.X(), eps)
	assert.InDelta(t, -0.05, p.Z(), eps)
}

func TestControllerNotFoundThenAcquired(t *testing.T) {
	r := newRig(t, Controller, nil)
	require.NoError(t, r.svc.OnStart(context.Background()))
	assert.Equal(t, service.Stopped, r.svc.Status())
	assert.Equal(t, "Controller: Not Found", r.svc.Report().Label)

	i := r.pads.Connect(device.NewPad("Pad"))
	r.pads.SetAxis(i, device.AxisLeftX, 1)
	r.tick(t)
	assert.Equal(t, service.Running, r.svc.Status())
	assert.Zero(t, r.position(t).X(), "acquisition tick does not move")

	r.tick(t)
	assert.InDelta(t, TranslationGain, r.position(t).X(), eps)
}

func TestControllerDisconnect(t *testing.T) {
	r := newRig(t, Controller, nil)
	i := r.pads.Connect(device.NewPad("Xbox"))
	r.pads.SetAxis(i, device.AxisLeftX, 1)
	require.NoError(t, r.svc.OnStart(context.Background()))

	var mu sync.Mutex
	var labels []string
	r.svc.StatusChanged().AddListener(func(_ context.Context, rep service.Report) {
		mu.Lock()
		defer mu.Unlock()
		labels = append(labels, rep.Label)
	}, "test")

	r.tick(t)
	before := r.position(t)

	r.pads.Disconnect(i)
	r.tick(t)
	assert.Equal(t, service.Stopped, r.svc.Status())
	r.tick(t)
	r.tick(t)
	assert.Equal(t, before, r.position(t), "no mutation while disconnected")

	mu.Lock()
	assert.Equal(t, []string{"Controller: Disconnected", "Controller: Not Found"}, labels)
	mu.Unlock()

	i = r.pads.Connect(device.NewPad("Xbox"))
	r.pads.SetAxis(i, device.AxisLeftX, 1)
	r.tick(t)
	r.tick(t)
	assert.InDelta(t, before.X()+TranslationGain, r.position(t).X(), eps)
}

func TestKeyboardLayouts(t *testing.T) {
	cases := []struct {
		typ  Type
		key  device.Key
		want mgl64.Vec3
	}{
		{WASD, device.KeyW, mgl64.Vec3{0, 0, -0.1}},
		{WASD, device.KeyS, mgl64.Vec3{0, 0, 0.1}},
		{WASD, device.KeyA, mgl64.Vec3{-0.1, 0, 0}},
		{WASD, device.KeyD, mgl64.Vec3{0.1, 0, 0}},
		{WASD, device.KeyQ, mgl64.Vec3{0, 0.1, 0}},
		{WASD, device.KeyE, mgl64.Vec3{0, -0.1, 0}},
		{ArrowKeys, device.KeyUp, mgl64.Vec3{0, 0, -0.1}},
		{ArrowKeys, device.KeyRight, mgl64.Vec3{0.1, 0, 0}},
		{ArrowKeys, device.KeyPageUp, mgl64.Vec3{0, 0.1, 0}},
	}
	for _, tc := range cases {
		t.Run(tc.typ.String()+"/"+tc.key.String(), func(t *testing.T) {
			r := newRig(t, tc.typ, nil)
			require.NoError(t, r.svc.OnStart(context.Background()))
			assert.Equal(t, "Keyboard: "+tc.typ.String(), r.svc.Report().Label)

			r.kb.Press(tc.key)
			r.tick(t)
			assertVecNear(t, tc.want, r.position(t), "got %v", r.position(t))
		})
	}
}

func TestKeyboardYaw(t *testing.T) {
	r := newRig(t, WASD, nil)
	require.NoError(t, r.svc.OnStart(context.Background()))
	r.kb.Press(device.KeyR)
	r.tick(t)

	s, err := r.reg.Get("drone")
	require.NoError(t, err)
	want := pose.EulerZYX(0, RotationGain, 0)
	assertQuatNear(t, want, s.Pose.Orientation())
}

func TestSensitivityScalesDelta(t *testing.T) {
	r := newRig(t, WASD, nil)
	require.NoError(t, r.svc.OnStart(context.Background()))
	got, err := r.svc.SetSensitivity(2)
	require.NoError(t, err)
	assert.Equal(t, 2.0, got)

	r.kb.Press(device.KeyD)
	r.tick(t)
	assert.InDelta(t, 0.2, r.position(t).X(), eps)
}

func TestSetSensitivityClamps(t *testing.T) {
	r := newRig(t, WASD, nil)
	v, err := r.svc.SetSensitivity(12)
	require.NoError(t, err)
	assert.Equal(t, MaxSensitivity, v)
	v, err = r.svc.SetSensitivity(-3)
	require.NoError(t, err)
	assert.Equal(t, MinSensitivity, v)

	_, err = r.svc.SetSensitivity(math.NaN())
	assert.ErrorIs(t, err, ErrSensitivityRange)
	assert.Equal(t, MinSensitivity, r.svc.Sensitivity())
}

func TestRemovedControlledEntityStopsMutation(t *testing.T) {
	r := newRig(t, WASD, nil)
	require.NoError(t, r.svc.OnStart(context.Background()))
	var applied atomic.Int32
	r.svc.Applied().AddListener(func(context.Context, Applied) { applied.Add(1) }, "test")

	r.kb.Press(device.KeyD)
	r.tick(t)
	assert.EqualValues(t, 1, applied.Load())

	require.NoError(t, r.reg.Remove("drone"))
	_, bound := r.svc.Target()
	assert.False(t, bound)
	r.tick(t)
	assert.EqualValues(t, 1, applied.Load())
}

func TestTrackedEntityIsNotMoved(t *testing.T) {
	r := newRig(t, WASD, nil)
	require.NoError(t, r.svc.OnStart(context.Background()))
	id := 1
	require.NoError(t, r.reg.SetTracked("drone", true, &id))

	r.kb.Press(device.KeyD)
	r.tick(t)
	assert.Zero(t, r.position(t).X())
}

func TestNoInputNoMutation(t *testing.T) {
	r := newRig(t, WASD, nil)
	require.NoError(t, r.svc.OnStart(context.Background()))
	var applied atomic.Int32
	r.svc.Applied().AddListener(func(context.Context, Applied) { applied.Add(1) }, "test")
	r.tick(t)
	assert.Zero(t, applied.Load())
}

func TestSetInputTypeWhileRunning(t *testing.T) {
	r := newRig(t, Controller, nil)
	r.svc.Start()
	assert.Eventually(t, func() bool {
		return r.svc.Report().Label == "Controller: Not Found"
	}, 2*time.Second, time.Millisecond)

	require.NoError(t, r.svc.SetInputType(WASD))
	assert.Equal(t, WASD, r.svc.InputType())
	assert.Equal(t, "Keyboard: WASD", r.svc.Report().Label)
	assert.Equal(t, service.Running, r.svc.Status())

	r.kb.Press(device.KeyD)
	assert.Eventually(t, func() bool { return r.position(t).X() > 0 }, 2*time.Second, time.Millisecond)

	assert.ErrorIs(t, r.svc.SetInputType(Type(9)), ErrUnknownInputType)
}

func TestSetInputTypeWhileStopped(t *testing.T) {
	r := newRig(t, Controller, nil)
	require.NoError(t, r.svc.SetInputType(ArrowKeys))
	assert.Equal(t, ArrowKeys, r.svc.InputType())
	assert.Equal(t, service.Stopped, r.svc.Status())

	r.svc.Start()
	assert.Equal(t, "Keyboard: Arrow Keys", r.svc.Report().Label)
}

func TestManyTicksStayUnitNorm(t *testing.T) {
	r := newRig(t, Controller, nil)
	i := r.pads.Connect(device.NewPad("Xbox"))
	require.NoError(t, r.svc.OnStart(context.Background()))
	for n := range 5000 {
		r.pads.SetAxis(i, device.AxisRightX, math.Sin(float64(n)))
		r.pads.SetAxis(i, device.AxisRightY, math.Cos(float64(n)*0.7))
		r.pads.SetAxis(i, device.AxisRightTrigger, math.Sin(float64(n)*0.3))
		r.tick(t)
	}
	s, err := r.reg.Get("drone")
	require.NoError(t, err)
	assert.InDelta(t, 1, s.Pose.Orientation().Len(), 1e-6)
}

func TestParseType(t *testing.T) {
	for in, want := range map[string]Type{
		"Controller": Controller,
		"gamepad":    Controller,
		"wasd":       WASD,
		"Arrow Keys": ArrowKeys,
		"arrowkeys":  ArrowKeys,
	} {
		got, err := ParseType(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseType("joystick")
	assert.ErrorIs(t, err, ErrUnknownInputType)
}

func withoutTime(r service.Report) service.Report {
	r.At = time.Time{}
	return r
}

func assertVecNear(t *testing.T, want, got mgl64.Vec3, msgAndArgs ...any) {
	t.Helper()
	assert.InDelta(t, 0, got.Sub(want).Len(), 1e-9, msgAndArgs...)
}

// assertQuatNear compares rotations, so q and -q are equal.
func assertQuatNear(t *testing.T, want, got mgl64.Quat, msgAndArgs ...any) {
	t.Helper()
	if want.Dot(got) < 0 {
		got = got.Scale(-1)
	}
	d := mgl64.Vec4{got.W - want.W, got.V[0] - want.V[0], got.V[1] - want.V[1], got.V[2] - want.V[2]}
	assert.InDelta(t, 0, d.Len(), 1e-9, msgAndArgs...)
}
