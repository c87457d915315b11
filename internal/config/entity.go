package config

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"trainer/sim/pose"
	"trainer/sim/registry"
)

var shapes = map[string]registry.Shape{
	"":       registry.ShapeBox,
	"box":    registry.ShapeBox,
	"axes":   registry.ShapeAxes,
	"grid":   registry.ShapeGrid,
	"marker": registry.ShapeMarker,
}

// Registry converts e into a registry entity.
func (e Entity) Registry() (registry.Entity, error) {
	shape, ok := shapes[e.Shape]
	if !ok {
		return registry.Entity{}, fmt.Errorf("unknown shape %q", e.Shape)
	}
	if e.Tracked && e.TrackID == nil {
		return registry.Entity{}, registry.ErrTrackIDRequired
	}
	r := e.Rotation
	q := pose.EulerZYX(mgl64.DegToRad(r[0]), mgl64.DegToRad(r[1]), mgl64.DegToRad(r[2]))
	p, err := pose.FromParts(mgl64.Vec3(e.Position), q)
	if err != nil {
		return registry.Entity{}, err
	}
	return registry.Entity{
		Name:    e.Name,
		Pose:    p,
		Tracked: e.Tracked,
		TrackID: e.TrackID,
		Render: registry.Render{
			Shape: shape,
			Size:  mgl64.Vec3(e.Size),
			Color: e.Color,
		},
	}, nil
}
