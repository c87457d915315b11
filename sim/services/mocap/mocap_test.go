package mocap

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trainer/sim/pose"
	"trainer/sim/registry"
	"trainer/sim/service"
)

const (
	waitFor = 2 * time.Second
	tick    = 2 * time.Millisecond
)

// feed is a test server that hands each accepted connection to the test.
type feed struct {
	srv   *httptest.Server
	conns chan *websocket.Conn
}

func newFeed(t *testing.T) *feed {
	t.Helper()
	f := &feed{conns: make(chan *websocket.Conn, 4)}
	up := websocket.Upgrader{}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		f.conns <- c
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *feed) url() string { return "ws" + strings.TrimPrefix(f.srv.URL, "http") }

func (f *feed) accept(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case c := <-f.conns:
		t.Cleanup(func() { c.Close() })
		return c
	case <-time.After(waitFor):
		t.Fatal("no connection")
		return nil
	}
}

func newService(t *testing.T, url string, reg *registry.Registry, allow ...int) *Service {
	t.Helper()
	s, err := New(Config{
		Service: service.Config{
			Interval: time.Millisecond,
			Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		},
		URL:      url,
		Retry:    10 * time.Millisecond,
		TrackIDs: allow,
		Registry: reg,
	})
	require.NoError(t, err)
	t.Cleanup(s.Stop)
	return s
}

func trackedRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New()
	one, two := 1, 2
	_, err := reg.Add(registry.Entity{Name: "wand", Tracked: true, TrackID: &one})
	require.NoError(t, err)
	_, err = reg.Add(registry.Entity{Name: "helmet", Tracked: true, TrackID: &two})
	require.NoError(t, err)
	_, err = reg.Add(registry.Entity{Name: "drone"})
	require.NoError(t, err)
	return reg
}

func position(reg *registry.Registry, name string) mgl64.Vec3 {
	s, err := reg.Get(name)
	if err != nil {
		return mgl64.Vec3{}
	}
	return s.Pose.Position()
}

func TestTracksBodies(t *testing.T) {
	f := newFeed(t)
	reg := trackedRegistry(t)
	s := newService(t, f.url(), reg)

	s.Start()
	c := f.accept(t)
	assert.Equal(t, service.Running, s.Status())

	q := pose.EulerZYX(0, 0.5, 0)
	require.NoError(t, c.WriteJSON(Frame{Frame: 1, Bodies: []Body{
		{ID: 1, Name: "wand", Position: [3]float64{1, 2, 3}, Orientation: [4]float64{q.W, q.V[0], q.V[1], q.V[2]}},
		{ID: 2, Position: [3]float64{4, 5, 6}, Orientation: [4]float64{2, 0, 0, 0}},
	}}))

	assert.Eventually(t, func() bool {
		return position(reg, "wand") == mgl64.Vec3{1, 2, 3} && position(reg, "helmet") == mgl64.Vec3{4, 5, 6}
	}, waitFor, tick)
	assert.Eventually(t, func() bool { return s.Report().Label == "Tracking 2 bodies" }, waitFor, tick)

	helmet, err := reg.Get("helmet")
	require.NoError(t, err)
	assert.True(t, pose.IsUnit(helmet.Pose.Orientation()), "orientation renormalized")
}

func TestUntrackedEntitiesAreNotWritten(t *testing.T) {
	f := newFeed(t)
	reg := trackedRegistry(t)
	s := newService(t, f.url(), reg)

	s.Start()
	c := f.accept(t)
	require.NoError(t, c.WriteJSON(Frame{Frame: 1, Bodies: []Body{
		{ID: 9, Name: "drone", Position: [3]float64{7, 7, 7}, Orientation: [4]float64{1, 0, 0, 0}},
		{ID: 1, Position: [3]float64{1, 0, 0}, Orientation: [4]float64{1, 0, 0, 0}},
	}}))
	assert.Eventually(t, func() bool { return position(reg, "wand").X() == 1 }, waitFor, tick)
	assert.Equal(t, mgl64.Vec3{}, position(reg, "drone"))
}

func TestAllowList(t *testing.T) {
	f := newFeed(t)
	reg := trackedRegistry(t)
	s := newService(t, f.url(), reg, 2)

	s.Start()
	c := f.accept(t)
	require.NoError(t, c.WriteJSON(Frame{Frame: 1, Bodies: []Body{
		{ID: 1, Position: [3]float64{1, 0, 0}, Orientation: [4]float64{1, 0, 0, 0}},
		{ID: 2, Position: [3]float64{2, 0, 0}, Orientation: [4]float64{1, 0, 0, 0}},
	}}))
	assert.Eventually(t, func() bool { return position(reg, "helmet").X() == 2 }, waitFor, tick)
	assert.Zero(t, position(reg, "wand").X())
}

func TestNotConnected(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	srv.Close()

	s := newService(t, url, trackedRegistry(t))
	s.Start()
	assert.Equal(t, service.Stopped, s.Status())
	assert.Equal(t, "Not connected", s.Report().Label)
	assert.True(t, s.Running(), "service keeps retrying")
}

func TestDisconnectAndReconnect(t *testing.T) {
	f := newFeed(t)
	reg := trackedRegistry(t)
	s := newService(t, f.url(), reg)

	s.Start()
	c := f.accept(t)
	require.NoError(t, c.Close())

	assert.Eventually(t, func() bool {
		r := s.Report()
		return r.Status == service.Error && strings.HasPrefix(r.Label, "Disconnected: ")
	}, waitFor, tick)

	c2 := f.accept(t)
	assert.Eventually(t, func() bool { return s.Status() == service.Running }, waitFor, tick)
	require.NoError(t, c2.WriteJSON(Frame{Frame: 2, Bodies: []Body{
		{ID: 1, Position: [3]float64{3, 0, 0}, Orientation: [4]float64{1, 0, 0, 0}},
	}}))
	assert.Eventually(t, func() bool { return position(reg, "wand").X() == 3 }, waitFor, tick)
}

func TestStopClosesConnection(t *testing.T) {
	f := newFeed(t)
	s := newService(t, f.url(), trackedRegistry(t))
	s.Start()
	c := f.accept(t)

	s.Stop()
	assert.Equal(t, service.Stopped, s.Status())
	require.NoError(t, c.SetReadDeadline(time.Now().Add(waitFor)))
	_, _, err := c.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestBodyRoundTrip(t *testing.T) {
	p, err := pose.FromParts(mgl64.Vec3{1, 2, 3}, pose.EulerZYX(0.1, 0.2, 0.3))
	require.NoError(t, err)
	b := BodyFrom(5, "wand", p)
	got, err := b.Pose()
	require.NoError(t, err)
	assertQuatNear(t, p.Orientation(), got.Orientation())
	assert.Equal(t, p.Position(), got.Position())

	_, err = Body{}.Pose()
	assert.ErrorIs(t, err, pose.ErrDegenerateOrientation)
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
