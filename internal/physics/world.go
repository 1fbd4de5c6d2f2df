package physics

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrMissingShape is returned when a body is registered without a collider shape.
	ErrMissingShape = errors.New("body has no collider shape")
	// ErrInvalidTrimesh is returned for a trimesh whose indices fall outside its vertices.
	ErrInvalidTrimesh = errors.New("invalid trimesh")
)

type bodyState struct {
	body     Body
	velocity VelocityCommand
}

// World is an in-process stand-in for the rigid-body engine. It stores
// colliders and integrates kinematic bodies by their commanded velocity; it
// performs no contact resolution.
type World struct {
	mu     sync.RWMutex
	limits Limits
	nextID BodyID
	bodies map[BodyID]*bodyState
}

// Engine is the collaborator the frame loop drives. World is the bundled implementation.
type Engine interface {
	AddBody(body Body) (BodyID, error)
	Remove(id BodyID)
	SetVelocity(id BodyID, cmd VelocityCommand) bool
	Transform(id BodyID) (Transform, bool)
	Step(dt float64)
}

var _ Engine = (*World)(nil)

// NewWorld constructs an empty world using the supplied velocity limits.
func NewWorld(limits Limits) *World {
	return &World{limits: limits, bodies: make(map[BodyID]*bodyState)}
}

// AddBody registers a collider and returns its identifier.
func (w *World) AddBody(body Body) (BodyID, error) {
	if w == nil {
		return 0, errors.New("world is nil")
	}
	if body.Shape == nil {
		return 0, fmt.Errorf("add %q: %w", body.Name, ErrMissingShape)
	}
	if mesh, ok := body.Shape.(Trimesh); ok {
		if err := validateTrimesh(mesh); err != nil {
			return 0, fmt.Errorf("add %q: %w", body.Name, err)
		}
	}
	if body.Transform.Rotation.Len() == 0 {
		body.Transform.Rotation = IdentityTransform().Rotation
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.nextID++
	id := w.nextID
	w.bodies[id] = &bodyState{body: body}
	return id, nil
}

// SetVelocity stores the command applied on the next Step. It reports false
// for unknown or fixed bodies.
func (w *World) SetVelocity(id BodyID, cmd VelocityCommand) bool {
	if w == nil {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	state, ok := w.bodies[id]
	if !ok || state.body.Kind == BodyFixed {
		return false
	}
	state.velocity = cmd
	return true
}

// Transform reports the current pose of a body.
func (w *World) Transform(id BodyID) (Transform, bool) {
	if w == nil {
		return Transform{}, false
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	state, ok := w.bodies[id]
	if !ok {
		return Transform{}, false
	}
	return state.body.Transform, true
}

// Body returns the registered description of a body including its current pose.
func (w *World) Body(id BodyID) (Body, bool) {
	if w == nil {
		return Body{}, false
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	state, ok := w.bodies[id]
	if !ok {
		return Body{}, false
	}
	return state.body, true
}

// Remove drops a body from the world.
func (w *World) Remove(id BodyID) {
	if w == nil {
		return
	}
	w.mu.Lock()
	delete(w.bodies, id)
	w.mu.Unlock()
}

// Step integrates every kinematic body by its commanded velocity.
func (w *World) Step(dt float64) {
	if w == nil || dt <= 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, state := range w.bodies {
		//1.- Fixed colliders never move and dynamic bodies belong to an external solver.
		if state.body.Kind != BodyKinematicVelocity {
			continue
		}
		Integrate(&state.body.Transform, state.velocity, dt, w.limits)
	}
}

// IDs lists registered bodies of the given kind in registration order.
func (w *World) IDs(kind BodyKind) []BodyID {
	if w == nil {
		return nil
	}
	w.mu.RLock()
	ids := make([]BodyID, 0, len(w.bodies))
	for id, state := range w.bodies {
		if state.body.Kind == kind {
			ids = append(ids, id)
		}
	}
	w.mu.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func validateTrimesh(mesh Trimesh) error {
	for idx, tri := range mesh.Triangles {
		for _, vertex := range tri {
			if int(vertex) >= len(mesh.Vertices) {
				return fmt.Errorf("%w: triangle %d references vertex %d of %d", ErrInvalidTrimesh, idx, vertex, len(mesh.Vertices))
			}
		}
	}
	return nil
}
