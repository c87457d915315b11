// Package registry owns the scene entities and their canonical poses.
//
// All mutations are synchronized internally. Poses are published through
// per-entity atomic pointers, so readers never observe a partially written
// pose. Each entity has a single writer: the input path for untracked
// entities, the motion-capture path for tracked ones.
package registry

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/maniartech/signals"

	"trainer/sim/pose"
)

var (
	ErrNotFound        = errors.New("entity not found")
	ErrDuplicate       = errors.New("entity already exists")
	ErrNoSelector      = errors.New("no entity given")
	ErrWriterDenied    = errors.New("entity pose is owned by another writer")
	ErrTrackIDRequired = errors.New("track id required for tracked entity")
)

// Level grades a registry notice.
type Level uint8

const (
	Info Level = iota
	Warning
)

func (l Level) String() string {
	if l == Warning {
		return "warning"
	}
	return "info"
}

// Notice reports a registry event.
type Notice struct {
	Level   Level
	Entity  string
	Message string
}

// Target receives the controlled entity whenever it changes. A nil id means
// no entity is controlled. SetTarget is called with the registry locked and
// must not call back into it.
type Target interface {
	SetTarget(id uuid.UUID, name string)
}

// DebugValue is a named scalar readout shown by the overlay.
type DebugValue struct {
	Name  string
	Value float64
}

// Registry is the single source of truth for entities.
type Registry struct {
	mu         sync.RWMutex
	entries    []*entry // draw order
	controlled *entry
	target     Target
	debug      []DebugValue

	notices signals.Signal[Notice]
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{notices: signals.NewSync[Notice]()}
}

// Notices is emitted for every add, remove, miss and controlled change.
func (r *Registry) Notices() signals.Signal[Notice] { return r.notices }

func (r *Registry) notify(ns ...Notice) {
	for _, n := range ns {
		r.notices.Emit(context.Background(), n)
	}
}

func (r *Registry) findLocked(name string) (int, *entry) {
	for i, en := range r.entries {
		if en.name == name {
			return i, en
		}
	}
	return -1, nil
}

func (r *Registry) findIDLocked(id uuid.UUID) (int, *entry) {
	for i, en := range r.entries {
		if en.id == id {
			return i, en
		}
	}
	return -1, nil
}

// Add registers e. Entities are kept sorted by descending alpha; entities
// with equal alpha keep insertion order.
func (r *Registry) Add(e Entity) (Snapshot, error) {
	if e.Name == "" {
		r.notify(Notice{Level: Warning, Message: "Object without a name rejected."})
		return Snapshot{}, fmt.Errorf("add: %w", ErrNoSelector)
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}

	r.mu.Lock()
	_, byName := r.findLocked(e.Name)
	_, byID := r.findIDLocked(e.ID)
	if byName != nil || byID != nil {
		r.mu.Unlock()
		r.notify(Notice{Level: Warning, Entity: e.Name, Message: fmt.Sprintf("Object %s already exists.", e.Name)})
		return Snapshot{}, fmt.Errorf("add %q: %w", e.Name, ErrDuplicate)
	}
	en := newEntry(e)
	r.entries = append(r.entries, en)
	slices.SortStableFunc(r.entries, func(a, b *entry) int {
		return cmp.Compare(b.render.Alpha(), a.render.Alpha())
	})
	snap := en.snapshot(false)
	r.mu.Unlock()

	r.notify(Notice{Level: Info, Entity: e.Name, Message: fmt.Sprintf("Object %s added.", e.Name)})
	return snap, nil
}

// Remove deletes the entity called name. Removing the controlled entity
// clears the controlled binding.
func (r *Registry) Remove(name string) error {
	if name == "" {
		r.notify(Notice{Level: Warning, Message: "No object provided or found by name."})
		return fmt.Errorf("remove: %w", ErrNoSelector)
	}
	r.mu.Lock()
	i, en := r.findLocked(name)
	return r.removeLocked(i, en, name)
}

// RemoveID deletes the entity with the given id.
func (r *Registry) RemoveID(id uuid.UUID) error {
	if id == uuid.Nil {
		r.notify(Notice{Level: Warning, Message: "No object provided or found by name."})
		return fmt.Errorf("remove: %w", ErrNoSelector)
	}
	r.mu.Lock()
	i, en := r.findIDLocked(id)
	return r.removeLocked(i, en, id.String())
}

// removeLocked is entered with r.mu held and releases it.
func (r *Registry) removeLocked(i int, en *entry, label string) error {
	if en == nil {
		r.mu.Unlock()
		r.notify(Notice{Level: Warning, Entity: label, Message: fmt.Sprintf("Object %s not found.", label)})
		return fmt.Errorf("remove %q: %w", label, ErrNotFound)
	}
	r.entries = slices.Delete(r.entries, i, i+1)
	cleared := r.controlled == en
	if cleared {
		r.controlled = nil
	}
	if cleared && r.target != nil {
		r.target.SetTarget(uuid.Nil, "")
	}
	r.mu.Unlock()

	ns := []Notice{{Level: Info, Entity: en.name, Message: fmt.Sprintf("Object %s removed.", en.name)}}
	if cleared {
		ns = append(ns, Notice{Level: Warning, Entity: en.name, Message: "Controlled object removed."})
	}
	r.notify(ns...)
	return nil
}

// Get looks an entity up by name.
func (r *Registry) Get(name string) (Snapshot, error) {
	r.mu.RLock()
	_, en := r.findLocked(name)
	if en == nil {
		r.mu.RUnlock()
		r.notify(Notice{Level: Warning, Entity: name, Message: fmt.Sprintf("Object %s not found.", name)})
		return Snapshot{}, fmt.Errorf("get %q: %w", name, ErrNotFound)
	}
	snap := en.snapshot(en == r.controlled)
	r.mu.RUnlock()
	return snap, nil
}

// Len returns the number of entities.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// All returns snapshots of every entity in draw order.
func (r *Registry) All() []Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Snapshot, 0, len(r.entries))
	for _, en := range r.entries {
		out = append(out, en.snapshot(en == r.controlled))
	}
	return out
}

// Attach sets the receiver of controlled-entity changes and forwards the
// current binding to it.
func (r *Registry) Attach(t Target) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.target = t
	switch {
	case t == nil:
	case r.controlled != nil:
		t.SetTarget(r.controlled.id, r.controlled.name)
	default:
		t.SetTarget(uuid.Nil, "")
	}
}

// SetControlled binds the controlled entity by name.
func (r *Registry) SetControlled(name string) error {
	if name == "" {
		r.notify(Notice{Level: Warning, Message: "No object provided or found by name."})
		return fmt.Errorf("set controlled: %w", ErrNoSelector)
	}
	r.mu.Lock()
	_, en := r.findLocked(name)
	return r.bindLocked(en, name)
}

// SetControlledID binds the controlled entity by id.
func (r *Registry) SetControlledID(id uuid.UUID) error {
	if id == uuid.Nil {
		r.notify(Notice{Level: Warning, Message: "No object provided or found by name."})
		return fmt.Errorf("set controlled: %w", ErrNoSelector)
	}
	r.mu.Lock()
	_, en := r.findIDLocked(id)
	return r.bindLocked(en, id.String())
}

// bindLocked is entered with r.mu held and releases it.
func (r *Registry) bindLocked(en *entry, label string) error {
	if en == nil {
		r.mu.Unlock()
		r.notify(Notice{Level: Warning, Entity: label, Message: fmt.Sprintf("Object %s not found.", label)})
		return fmt.Errorf("set controlled %q: %w", label, ErrNotFound)
	}
	r.controlled = en
	if r.target != nil {
		r.target.SetTarget(en.id, en.name)
	}
	r.mu.Unlock()

	r.notify(Notice{Level: Info, Entity: en.name, Message: fmt.Sprintf("Controlled object set to %s.", en.name)})
	return nil
}

// Controlled returns the controlled entity.
func (r *Registry) Controlled() (Snapshot, bool) {
	r.mu.RLock()
	en := r.controlled
	if en == nil {
		r.mu.RUnlock()
		r.notify(Notice{Level: Warning, Message: "No controlled object set."})
		return Snapshot{}, false
	}
	snap := en.snapshot(true)
	r.mu.RUnlock()
	return snap, true
}

// SetTracked hands an entity's pose to (or back from) the motion-capture path.
func (r *Registry) SetTracked(name string, tracked bool, trackID *int) error {
	r.mu.Lock()
	_, en := r.findLocked(name)
	if en == nil {
		r.mu.Unlock()
		return fmt.Errorf("set tracked %q: %w", name, ErrNotFound)
	}
	switch {
	case tracked && trackID != nil:
		en.trackID = *trackID
		en.hasTrack = true
	case tracked && !en.hasTrack:
		r.mu.Unlock()
		return fmt.Errorf("set tracked %q: %w", name, ErrTrackIDRequired)
	}
	en.tracked = tracked
	r.mu.Unlock()
	return nil
}

// ApplyDelta moves an untracked entity. This is the input path.
func (r *Registry) ApplyDelta(id uuid.UUID, d pose.Delta) (Snapshot, error) {
	r.mu.RLock()
	_, en := r.findIDLocked(id)
	if en == nil {
		r.mu.RUnlock()
		return Snapshot{}, fmt.Errorf("apply delta %s: %w", id, ErrNotFound)
	}
	if en.tracked {
		r.mu.RUnlock()
		return Snapshot{}, fmt.Errorf("apply delta %q: %w", en.name, ErrWriterDenied)
	}
	controlled := en == r.controlled

	en.writeMu.Lock()
	next, err := en.pose.Load().Apply(d)
	if err == nil {
		en.pose.Store(&next)
	}
	snap := en.snapshot(controlled)
	en.writeMu.Unlock()
	r.mu.RUnlock()
	return snap, err
}

// SetTrackedPose overwrites the pose of a tracked entity. This is the
// motion-capture path; name is used when trackID is nil or unknown.
func (r *Registry) SetTrackedPose(name string, trackID *int, p pose.Pose) (Snapshot, error) {
	r.mu.RLock()
	var en *entry
	if trackID != nil {
		for _, e := range r.entries {
			if e.hasTrack && e.trackID == *trackID {
				en = e
				break
			}
		}
	}
	if en == nil {
		_, en = r.findLocked(name)
	}
	if en == nil {
		r.mu.RUnlock()
		return Snapshot{}, fmt.Errorf("tracked pose %q: %w", name, ErrNotFound)
	}
	if !en.tracked {
		r.mu.RUnlock()
		return Snapshot{}, fmt.Errorf("tracked pose %q: %w", en.name, ErrWriterDenied)
	}
	en.writeMu.Lock()
	en.pose.Store(&p)
	snap := en.snapshot(en == r.controlled)
	en.writeMu.Unlock()
	r.mu.RUnlock()
	return snap, nil
}

// UpdateDebugValue sets a named readout, creating it on first use.
func (r *Registry) UpdateDebugValue(name string, value float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.debug {
		if r.debug[i].Name == name {
			r.debug[i].Value = value
			return
		}
	}
	r.debug = append(r.debug, DebugValue{Name: name, Value: value})
}

// DebugValues returns the readouts in creation order.
func (r *Registry) DebugValues() []DebugValue {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.debug)
}
