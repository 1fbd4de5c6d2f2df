package track

import (
	"reflect"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateIsDeterministic(t *testing.T) {
	cfg := Config{Seed: 1234, CycleSteps: 64}
	first := Generate(cfg, WallOffsets[0])
	second := Generate(cfg, WallOffsets[0])
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical buffers for identical configs")
	}
}

func TestGenerateMeshShape(t *testing.T) {
	for _, steps := range []uint{0, 1, 2, 7, 100, 1000} {
		mesh := Generate(Config{Seed: 9, CycleSteps: steps}, mgl32.Vec3{})
		require.Len(t, mesh.Vertices, int(2*(steps+1)), "steps=%d", steps)
		require.Len(t, mesh.Triangles, int(2*steps), "steps=%d", steps)
		require.NoError(t, mesh.Validate(), "steps=%d", steps)
	}
}

func TestGenerateDegenerateCorridor(t *testing.T) {
	mesh := Generate(Config{Seed: 5}, mgl32.Vec3{3, 0, 0})
	require.Len(t, mesh.Vertices, 2)
	assert.Empty(t, mesh.Triangles)
	//1.- The lone pair sits at depth zero with the wall raised on Y.
	assert.Equal(t, mesh.Vertices[0].Add(mgl32.Vec3{0, WallHeight, 0}), mesh.Vertices[1])
	assert.Equal(t, float32(0), mesh.Vertices[0].Z())
}

func TestGenerateScenarioSeed42(t *testing.T) {
	mesh := Generate(Config{Seed: 42, CycleSteps: 2}, mgl32.Vec3{-10, 0, 0})
	require.Len(t, mesh.Vertices, 6)
	require.Len(t, mesh.Triangles, 4)
	assert.Equal(t, [3]uint32{0, 1, 2}, mesh.Triangles[0])
	assert.Equal(t, [3]uint32{2, 3, 1}, mesh.Triangles[1])
	assert.Equal(t, [3]uint32{2, 3, 4}, mesh.Triangles[2])
	assert.Equal(t, [3]uint32{4, 5, 3}, mesh.Triangles[3])
}

func TestGenerateVertexLayout(t *testing.T) {
	mesh := Generate(Config{Seed: 77, CycleSteps: 10}, mgl32.Vec3{10, 0, 0})
	for step := 0; step <= 10; step++ {
		bottom := mesh.Vertices[step*2]
		top := mesh.Vertices[step*2+1]
		if bottom.Z() != -float32(step)*SegmentLength {
			t.Fatalf("step %d: unexpected depth %v", step, bottom.Z())
		}
		if bottom.Y() != 0 || top.Y() != WallHeight {
			t.Fatalf("step %d: unexpected heights %v/%v", step, bottom.Y(), top.Y())
		}
		if bottom.X() != top.X() || bottom.Z() != top.Z() {
			t.Fatalf("step %d: wall top must sit directly above its base", step)
		}
		//1.- Lateral sway is bounded by the noise amplitude around the offset.
		sway := bottom.X() - 10
		if sway < -NoiseAmplitude || sway > NoiseAmplitude {
			t.Fatalf("step %d: sway %v exceeds amplitude", step, sway)
		}
	}
}

func TestWallsShareTheSameCurve(t *testing.T) {
	walls := SpawnRequest{Seed: 3, CycleSteps: 20}.Walls()
	left, right := walls[0], walls[1]
	require.Equal(t, len(left.Vertices), len(right.Vertices))
	for idx := range left.Vertices {
		gap := right.Vertices[idx].Sub(left.Vertices[idx])
		assert.InDelta(t, 20, gap.X(), 1e-4)
		assert.InDelta(t, 0, gap.Y(), 1e-6)
		assert.InDelta(t, 0, gap.Z(), 1e-6)
	}
}

func TestValidateReportsOutOfRangeIndex(t *testing.T) {
	mesh := WallMesh{Vertices: make([]mgl32.Vec3, 3), Triangles: [][3]uint32{{0, 1, 3}}}
	err := mesh.Validate()
	var indexErr *IndexError
	require.ErrorAs(t, err, &indexErr)
	assert.Equal(t, uint32(3), indexErr.Index)
}

func TestNewSpawnRequest(t *testing.T) {
	seed := uint32(11)
	request := NewSpawnRequest(&seed, 12)
	assert.Equal(t, SpawnRequest{Seed: 11, CycleSteps: 12}, request)

	random := NewSpawnRequest(nil, 5)
	assert.Equal(t, uint(5), random.CycleSteps)
	assert.Equal(t, uint(DefaultCycleSteps), RandomSpawn().CycleSteps)
}

func TestParametersDescribeGenerator(t *testing.T) {
	params := Parameters()
	assert.Equal(t, 4.0, params["wall_height"])
	assert.Equal(t, 10.0, params["segment_length"])
	assert.Equal(t, 50.0, params["noise_amplitude"])
	assert.InDelta(t, 0.005, params["noise_frequency"], 1e-9)
	assert.Equal(t, 10.0, params["wall_offset"])
}
