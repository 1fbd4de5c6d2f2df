package track

import (
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl32"

	"driftpursuit/corridor/internal/noise"
)

// DefaultCycleSteps is the corridor length requested when none is specified.
const DefaultCycleSteps = 1000

// WallOffsets places the two walls either side of the racing line.
var WallOffsets = [2]mgl32.Vec3{{-10, 0, 0}, {10, 0, 0}}

// SpawnRequest asks for a fresh corridor to be generated.
type SpawnRequest struct {
	Seed       noise.Seed
	CycleSteps uint
}

// NewSpawnRequest builds a request for seed, drawing a random one when seed is nil.
func NewSpawnRequest(seed *uint32, cycleSteps uint) SpawnRequest {
	if seed == nil {
		request := RandomSpawn()
		request.CycleSteps = cycleSteps
		return request
	}
	return SpawnRequest{Seed: noise.Seed(*seed), CycleSteps: cycleSteps}
}

// RandomSpawn requests a default length corridor with a freshly drawn seed.
func RandomSpawn() SpawnRequest {
	return SpawnRequest{Seed: noise.Seed(rand.Uint32()), CycleSteps: DefaultCycleSteps}
}

// Config converts the request into generator input.
func (r SpawnRequest) Config() Config {
	return Config{Seed: r.Seed, CycleSteps: r.CycleSteps}
}

// Walls generates both corridor walls, left first.
func (r SpawnRequest) Walls() [2]WallMesh {
	cfg := r.Config()
	var walls [2]WallMesh
	for idx, offset := range WallOffsets {
		walls[idx] = Generate(cfg, offset)
	}
	return walls
}

// Parameters lists the generator constants, keyed for metadata documents.
func Parameters() map[string]float64 {
	return map[string]float64{
		"wall_height":     float64(WallHeight),
		"segment_length":  float64(SegmentLength),
		"noise_amplitude": float64(NoiseAmplitude),
		"noise_frequency": float64(NoiseFrequency),
		"wall_offset":     float64(WallOffsets[1].X()),
	}
}
