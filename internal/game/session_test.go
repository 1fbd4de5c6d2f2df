package game

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"driftpursuit/corridor/internal/audio"
	"driftpursuit/corridor/internal/input"
	"driftpursuit/corridor/internal/logging"
	"driftpursuit/corridor/internal/physics"
	"driftpursuit/corridor/internal/track"
)

const tick = 16 * time.Millisecond

func newTestSession(t *testing.T, sink audio.Sink) (*Session, *physics.World) {
	t.Helper()
	world := physics.NewWorld(physics.Limits{})
	session, err := NewSession(Options{Engine: world, Sink: sink})
	require.NoError(t, err)
	return session, world
}

func seeded(seed uint32, steps uint) track.SpawnRequest {
	return track.NewSpawnRequest(&seed, steps)
}

func TestSpawnProcessedOnceBeforeUpdate(t *testing.T) {
	session, world := newTestSession(t, nil)
	session.RequestSpawn(seeded(42, 2))
	assert.Nil(t, session.Corridor())

	frame, err := session.Step(tick, 0)
	require.NoError(t, err)
	require.Len(t, frame.Spawned, 1)
	require.NotNil(t, session.Corridor())
	assert.Len(t, world.IDs(physics.BodyFixed), 3)

	ground, ok := world.Body(session.Corridor().Ground)
	require.True(t, ok)
	assert.Equal(t, physics.Cuboid{HalfExtents: GroundHalfExtents}, ground.Shape)
	assert.Equal(t, GroundPosition, ground.Transform.Translation)

	wall, ok := world.Body(session.Corridor().Walls[0])
	require.True(t, ok)
	mesh, isMesh := wall.Shape.(physics.Trimesh)
	require.True(t, isMesh)
	assert.Len(t, mesh.Vertices, 6)
	assert.Len(t, mesh.Triangles, 4)

	frame, err = session.Step(tick, 0)
	require.NoError(t, err)
	assert.Empty(t, frame.Spawned)
	assert.Len(t, world.IDs(physics.BodyFixed), 3)
}

func TestRespawnReplacesCorridor(t *testing.T) {
	session, world := newTestSession(t, nil)
	session.RequestSpawn(seeded(1, 4))
	session.RequestSpawn(seeded(2, 8))

	frame, err := session.Step(tick, 0)
	require.NoError(t, err)
	assert.Len(t, frame.Spawned, 2)
	assert.Len(t, world.IDs(physics.BodyFixed), 3)
	assert.EqualValues(t, 2, session.Corridor().Request.Seed)
}

func TestForwardIntentDrivesBikeAndCamera(t *testing.T) {
	session, _ := newTestSession(t, nil)
	held := input.NewKeySet(input.KeyW)

	var frame Frame
	var err error
	for i := 0; i < 60; i++ {
		frame, err = session.Step(tick, held)
		require.NoError(t, err)
	}

	require.True(t, frame.HasVehicle)
	assert.Less(t, frame.Speed, 0.0, "W pushes speed negative")
	assert.Less(t, frame.Vehicle.Translation.Z(), 0.0, "bike heads down -Z")
	assert.Less(t, frame.Camera.Position.Z(), CameraStart.Z(), "camera follows")
	assert.Equal(t, CameraStart.Y(), frame.Camera.Position.Y())
	assert.GreaterOrEqual(t, frame.Camera.Zoom, 1.0)
}

func TestStepSoundsDrainToSink(t *testing.T) {
	var played []audio.Sfx
	session, _ := newTestSession(t, audio.SinkFunc(func(sfx audio.Sfx) { played = append(played, sfx) }))
	held := input.NewKeySet(input.KeyW)

	drained := 0
	for i := 0; i < 63; i++ {
		frame, err := session.Step(tick, held)
		require.NoError(t, err)
		drained += len(frame.Sounds)
	}

	//1.- 63 ticks of 16ms reach 1008ms, crossing the 256, 512 and 768ms marks.
	assert.Equal(t, []audio.Sfx{audio.Step, audio.Step, audio.Step}, played)
	assert.Equal(t, 3, drained)
}

func TestUIAndStepSoundsKeepOrder(t *testing.T) {
	var played []audio.Sfx
	session, _ := newTestSession(t, audio.SinkFunc(func(sfx audio.Sfx) { played = append(played, sfx) }))
	session.PlayUI(audio.ButtonPress)
	_, err := session.Step(300*time.Millisecond, input.NewKeySet(input.KeyA))
	require.NoError(t, err)
	assert.Equal(t, []audio.Sfx{audio.ButtonPress, audio.Step}, played)
}

func TestCameraLeansOnTurnKeys(t *testing.T) {
	session, _ := newTestSession(t, nil)
	frame, err := session.Step(tick, input.NewKeySet(input.KeyA))
	require.NoError(t, err)
	assert.InDelta(t, -0.05, frame.Camera.Roll, 1e-12)

	frame, err = session.Step(tick, 0)
	require.NoError(t, err)
	assert.InDelta(t, 0, frame.Camera.Roll, 1e-12)
}

func TestMissingVehicleDegradesToNoop(t *testing.T) {
	session, world := newTestSession(t, nil)
	session.RemoveVehicle()
	assert.Empty(t, world.IDs(physics.BodyKinematicVelocity))

	frame, err := session.Step(tick, input.NewKeySet(input.KeyW))
	require.NoError(t, err)
	assert.False(t, frame.HasVehicle)
	assert.Empty(t, frame.Sounds)
	assert.Equal(t, CameraStart, frame.Camera.Position)

	session.RemoveCamera()
	frame, err = session.Step(tick, 0)
	require.NoError(t, err)
	assert.False(t, frame.HasCamera)
	assert.Equal(t, 2*tick, session.Now())
}

func TestFrameEncodesToStruct(t *testing.T) {
	session, _ := newTestSession(t, nil)
	session.RequestSpawn(seeded(7, 1))
	frame, err := session.Step(tick, input.NewKeySet(input.KeyW, input.KeyD))
	require.NoError(t, err)

	raw, err := MarshalFrame(frame)
	require.NoError(t, err)
	decoded := &structpb.Struct{}
	require.NoError(t, proto.Unmarshal(raw, decoded))

	fields := decoded.AsMap()
	assert.EqualValues(t, 1, fields["index"])
	assert.Equal(t, []any{"W", "D"}, fields["keys"])
	vehicle, ok := fields["vehicle"].(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, frame.Speed, vehicle["speed"], 1e-12)
	cam, ok := fields["camera"].(map[string]any)
	require.True(t, ok)
	assert.Len(t, cam["position"], 3)

	spawn, err := SpawnEvent(frame.Spawned[0])
	require.NoError(t, err)
	assert.EqualValues(t, 7, spawn.AsMap()["seed"])
}

func TestCollidersAreLoggedWithShapes(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.NewWriterLogger(&buf, "debug")
	require.NoError(t, err)
	session, err := NewSession(Options{Logger: logger})
	require.NoError(t, err)
	session.RequestSpawn(seeded(3, 2))
	_, err = session.Step(tick, 0)
	require.NoError(t, err)

	shapes := map[string]string{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var record map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &record))
		if record["message"] == "collider registered" {
			shapes[record["body"].(string)] = record["shape"].(string)
		}
	}
	assert.Equal(t, map[string]string{
		"bike":   "cuboid",
		"ground": "cuboid",
		"wall-0": "trimesh",
		"wall-1": "trimesh",
	}, shapes)
}
