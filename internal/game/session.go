// Package game owns the per-frame ordering of spawn, control, physics and camera work.
package game

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"driftpursuit/corridor/internal/audio"
	"driftpursuit/corridor/internal/camera"
	"driftpursuit/corridor/internal/events"
	"driftpursuit/corridor/internal/input"
	"driftpursuit/corridor/internal/logging"
	"driftpursuit/corridor/internal/physics"
	"driftpursuit/corridor/internal/track"
	"driftpursuit/corridor/internal/vehicle"
)

var (
	// GroundHalfExtents sizes the floor collider laid under every corridor.
	GroundHalfExtents = mgl64.Vec3{100, 0.1, 100}
	// GroundPosition centres the floor collider below the track.
	GroundPosition = mgl64.Vec3{0, -2, 0}
	// CameraStart is where the chase camera begins each session.
	CameraStart = mgl64.Vec3{0, -2, 10}
	// BikeHalfExtents sizes the rider's collider.
	BikeHalfExtents = mgl64.Vec3{0.05, 0.05, 0.5}
)

// Vehicle is the single rider record.
type Vehicle struct {
	Body       physics.BodyID
	Bike       vehicle.Bike
	Controller *vehicle.Controller
}

// Camera is the single chase camera record.
type Camera struct {
	State    camera.State
	Follower camera.Follower
}

// Corridor records the colliders registered for the current track.
type Corridor struct {
	Request track.SpawnRequest
	Ground  physics.BodyID
	Walls   [2]physics.BodyID
}

// Options tunes a new session. Zero values fall back to defaults.
type Options struct {
	Bike     *vehicle.Bike
	Follower *camera.Follower
	Engine   physics.Engine
	// Sink receives the sound notifications drained at the end of every frame.
	Sink   audio.Sink
	Logger *logging.Logger
}

// Session holds every piece of per-run state and advances it one frame at a time.
// It is driven from a single goroutine; only RequestSpawn may be called concurrently.
type Session struct {
	engine   physics.Engine
	spawns   *events.Queue[track.SpawnRequest]
	sounds   *audio.Queue
	sink     audio.Sink
	tracker  input.Tracker
	vehicle  *Vehicle
	camera   *Camera
	corridor *Corridor
	now      time.Duration
	frame    uint64
	log      *logging.Logger
}

// NewSession registers the rider and places the camera.
func NewSession(opts Options) (*Session, error) {
	engine := opts.Engine
	if engine == nil {
		engine = physics.NewWorld(physics.Limits{})
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.L()
	}
	bike := vehicle.DefaultBike()
	if opts.Bike != nil {
		bike = *opts.Bike
	}
	follower := camera.NewFollower()
	if opts.Follower != nil {
		follower = *opts.Follower
	}

	s := &Session{
		engine: engine,
		spawns: events.NewQueue[track.SpawnRequest](),
		sounds: &audio.Queue{},
		sink:   opts.Sink,
		camera: &Camera{State: camera.NewState(CameraStart, follower.ZoomScale), Follower: follower},
		log:    logger.With(logging.String("component", "session")),
	}

	body, err := s.register(physics.Body{
		Name:      "bike",
		Kind:      physics.BodyKinematicVelocity,
		Shape:     physics.Cuboid{HalfExtents: BikeHalfExtents},
		Transform: physics.IdentityTransform(),
	})
	if err != nil {
		return nil, fmt.Errorf("spawn bike: %w", err)
	}
	s.vehicle = &Vehicle{Body: body, Bike: bike, Controller: vehicle.NewController(s.sounds)}
	return s, nil
}

// RequestSpawn queues a corridor rebuild for the start of the next frame.
func (s *Session) RequestSpawn(request track.SpawnRequest) uint64 {
	return s.spawns.Push(request)
}

// PlayUI queues an interface sound for the next drain.
func (s *Session) PlayUI(sfx audio.Sfx) {
	s.sounds.Play(sfx)
}

// Step advances the session by dt with the given keys held and reports what happened.
func (s *Session) Step(dt time.Duration, held input.KeySet) (Frame, error) {
	if dt < 0 {
		dt = 0
	}
	s.frame++
	s.now += dt
	seconds := dt.Seconds()
	frame := Frame{Index: s.frame, Time: s.now, DT: dt}

	//1.- Spawn requests land before any per-tick update so the new corridor is live this frame.
	var spawnErr error
	for _, envelope := range s.spawns.Drain() {
		if err := s.spawn(envelope.Payload); err != nil {
			spawnErr = errors.Join(spawnErr, err)
			continue
		}
		frame.Spawned = append(frame.Spawned, envelope.Payload)
	}

	state := s.tracker.Next(held)
	frame.Keys = state.Held()

	//2.- Controller output becomes the body's velocity before physics integrates it.
	if v := s.vehicle; v != nil {
		transform, ok := s.engine.Transform(v.Body)
		if ok {
			cmd, _ := v.Controller.Update(seconds, state, &v.Bike, transform, s.now)
			s.engine.SetVelocity(v.Body, cmd)
			frame.Command = cmd
		}
	}
	s.engine.Step(seconds)

	//3.- The camera reads the integrated transform, never the pre-step one.
	var target *mgl64.Vec3
	if v := s.vehicle; v != nil {
		if transform, ok := s.engine.Transform(v.Body); ok {
			position := transform.Translation
			target = &position
			frame.Vehicle = transform
			frame.Speed = v.Bike.Speed
			frame.HasVehicle = true
		}
	}
	if c := s.camera; c != nil {
		camera.Lean(state, &c.State)
		c.Follower.Update(seconds, target, &c.State)
		frame.Camera = c.State
		frame.HasCamera = true
	}

	frame.Sounds = s.sounds.Drain(s.sink)
	return frame, spawnErr
}

func (s *Session) spawn(request track.SpawnRequest) error {
	//1.- A respawn replaces the previous corridor instead of stacking another one.
	if old := s.corridor; old != nil {
		s.engine.Remove(old.Ground)
		for _, wall := range old.Walls {
			s.engine.Remove(wall)
		}
		s.corridor = nil
	}

	corridor := &Corridor{Request: request}
	ground, err := s.register(physics.Body{
		Name:      "ground",
		Kind:      physics.BodyFixed,
		Shape:     physics.Cuboid{HalfExtents: GroundHalfExtents},
		Transform: physics.TransformAt(GroundPosition),
	})
	if err != nil {
		return fmt.Errorf("spawn ground: %w", err)
	}
	corridor.Ground = ground

	for idx, wall := range request.Walls() {
		id, err := s.register(physics.Body{
			Name:      fmt.Sprintf("wall-%d", idx),
			Kind:      physics.BodyFixed,
			Shape:     physics.Trimesh{Vertices: wall.Vertices, Triangles: wall.Triangles},
			Transform: physics.IdentityTransform(),
		})
		if err != nil {
			s.engine.Remove(ground)
			for _, added := range corridor.Walls[:idx] {
				s.engine.Remove(added)
			}
			return fmt.Errorf("spawn wall %d: %w", idx, err)
		}
		corridor.Walls[idx] = id
	}

	s.corridor = corridor
	s.log.Info("corridor spawned",
		logging.Uint32("seed", uint32(request.Seed)),
		logging.Int("cycle_steps", int(request.CycleSteps)),
	)
	return nil
}

func (s *Session) register(body physics.Body) (physics.BodyID, error) {
	id, err := s.engine.AddBody(body)
	if err != nil {
		return 0, err
	}
	s.log.Debug("collider registered",
		logging.String("body", body.Name),
		logging.String("shape", physics.ShapeName(body.Shape)),
		logging.String("kind", body.Kind.String()),
		logging.Int64("id", int64(id)),
	)
	return id, nil
}

// Vehicle exposes the rider record, or nil once removed.
func (s *Session) Vehicle() *Vehicle { return s.vehicle }

// Camera exposes the camera record, or nil once removed.
func (s *Session) Camera() *Camera { return s.camera }

// Corridor exposes the active corridor, or nil before the first spawn.
func (s *Session) Corridor() *Corridor { return s.corridor }

// Now reports the simulated time elapsed across all steps.
func (s *Session) Now() time.Duration { return s.now }

// RemoveVehicle drops the rider; later frames skip control and leave the camera in place.
func (s *Session) RemoveVehicle() {
	if s.vehicle == nil {
		return
	}
	s.engine.Remove(s.vehicle.Body)
	s.vehicle = nil
}

// RemoveCamera drops the camera record.
func (s *Session) RemoveCamera() {
	s.camera = nil
}
