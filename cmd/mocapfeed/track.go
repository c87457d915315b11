package main

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"

	"trainer/sim/pose"
)

// Waypoint is one keyframe. Rotation is (roll, yaw, pitch) in degrees.
type Waypoint struct {
	At       time.Duration `yaml:"at"`
	Position [3]float64    `yaml:"position"`
	Rotation [3]float64    `yaml:"rotation"`
}

// Track is a keyframed body path. The path wraps after its last waypoint.
type Track struct {
	ID        int        `yaml:"id"`
	Name      string     `yaml:"name"`
	Waypoints []Waypoint `yaml:"waypoints"`
}

// Path samples a body pose at a time offset.
type Path interface {
	Sample(t time.Duration) pose.Pose
}

func loadTrack(path string) (*Track, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	var tr Track
	if err := dec.Decode(&tr); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if err := tr.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &tr, nil
}

func (tr *Track) validate() error {
	if len(tr.Waypoints) == 0 {
		return errors.New("track has no waypoints")
	}
	for i := 1; i < len(tr.Waypoints); i++ {
		if tr.Waypoints[i].At <= tr.Waypoints[i-1].At {
			return fmt.Errorf("waypoint %d: times must increase", i)
		}
	}
	return nil
}

func (w Waypoint) pose() pose.Pose {
	q := pose.EulerZYX(mgl64.DegToRad(w.Rotation[0]), mgl64.DegToRad(w.Rotation[1]), mgl64.DegToRad(w.Rotation[2]))
	p, err := pose.FromParts(mgl64.Vec3(w.Position), q)
	if err != nil {
		return pose.At(mgl64.Vec3(w.Position))
	}
	return p
}

// Sample interpolates between waypoints: positions linearly, orientations
// by slerp.
func (tr *Track) Sample(t time.Duration) pose.Pose {
	wps := tr.Waypoints
	end := wps[len(wps)-1].At
	if len(wps) == 1 || end <= 0 {
		return wps[0].pose()
	}
	t %= end
	if t < wps[0].At {
		return wps[0].pose()
	}
	for i := 1; i < len(wps); i++ {
		a, b := wps[i-1], wps[i]
		if t > b.At {
			continue
		}
		f := float64(t-a.At) / float64(b.At-a.At)
		pa, pb := a.pose(), b.pose()
		pos := pa.Position().Add(pb.Position().Sub(pa.Position()).Mul(f))
		q := mgl64.QuatSlerp(pa.Orientation(), pb.Orientation(), f)
		if p, err := pose.FromParts(pos, q); err == nil {
			return p
		}
		return pose.At(pos)
	}
	return wps[len(wps)-1].pose()
}

// Circle flies a horizontal circle facing along its direction of travel.
type Circle struct {
	Radius float64
	Height float64
	Period time.Duration
}

func (c Circle) Sample(t time.Duration) pose.Pose {
	a := 2 * math.Pi * float64(t%c.Period) / float64(c.Period)
	pos := mgl64.Vec3{c.Radius * math.Sin(a), c.Height, c.Radius * math.Cos(a)}
	p, err := pose.FromParts(pos, pose.EulerZYX(0, a+math.Pi/2, 0))
	if err != nil {
		return pose.At(pos)
	}
	return p
}
