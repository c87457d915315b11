package registry

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"

	"trainer/sim/pose"
)

// Shape selects how the renderer draws an entity.
type Shape string

const (
	ShapeBox    Shape = "box"
	ShapeAxes   Shape = "axes"
	ShapeGrid   Shape = "grid"
	ShapeMarker Shape = "marker"
)

// Render is renderer metadata. The registry only reads the alpha channel,
// which orders drawing.
type Render struct {
	Shape Shape
	Size  mgl64.Vec3
	Color [4]float64 // RGBA, 0..1
}

// Alpha returns the opacity used as draw-order key.
func (r Render) Alpha() float64 { return r.Color[3] }

func (r Render) withDefaults() Render {
	if r.Shape == "" {
		r.Shape = ShapeBox
	}
	if r.Size == (mgl64.Vec3{}) {
		r.Size = mgl64.Vec3{1, 1, 1}
	}
	if r.Color == ([4]float64{}) {
		r.Color = [4]float64{0.5, 0.5, 0.5, 1}
	}
	return r
}

// Entity describes an entity to register.
type Entity struct {
	// ID is generated when nil.
	ID      uuid.UUID
	Name    string
	Pose    pose.Pose
	Tracked bool
	// TrackID is the motion-capture rigid body id, if any.
	TrackID *int
	Render  Render
}

// Snapshot is a consistent, read-only copy of an entity.
type Snapshot struct {
	ID         uuid.UUID
	Name       string
	Pose       pose.Pose
	Tracked    bool
	TrackID    int
	HasTrackID bool
	Render     Render
	Controlled bool
}

func (s Snapshot) String() string {
	return fmt.Sprintf("%s [%s]", s.Name, s.Pose)
}

type entry struct {
	id     uuid.UUID
	name   string
	render Render

	// Guarded by Registry.mu.
	tracked  bool
	trackID  int
	hasTrack bool

	// writeMu serializes pose writers; readers load pose without locking.
	writeMu sync.Mutex
	pose    atomic.Pointer[pose.Pose]
}

func newEntry(e Entity) *entry {
	en := &entry{
		id:      e.ID,
		name:    e.Name,
		render:  e.Render.withDefaults(),
		tracked: e.Tracked,
	}
	if e.TrackID != nil {
		en.trackID = *e.TrackID
		en.hasTrack = true
	}
	p := e.Pose
	if p == (pose.Pose{}) {
		p = pose.New()
	}
	en.pose.Store(&p)
	return en
}

func (en *entry) snapshot(controlled bool) Snapshot {
	return Snapshot{
		ID:         en.id,
		Name:       en.name,
		Pose:       *en.pose.Load(),
		Tracked:    en.tracked,
		TrackID:    en.trackID,
		HasTrackID: en.hasTrack,
		Render:     en.render,
		Controlled: controlled,
	}
}
