// Package track builds the corridor wall meshes that bound the racing line.
package track

import (
	"github.com/go-gl/mathgl/mgl32"

	"driftpursuit/corridor/internal/noise"
)

const (
	// WallHeight raises the top edge of every wall segment above the ground.
	WallHeight float32 = 4.0
	// SegmentLength is the depth covered by one generation step.
	SegmentLength float32 = 10.0
	// NoiseAmplitude scales the lateral sway of the corridor.
	NoiseAmplitude float32 = 50.0
	// NoiseFrequency converts depth into noise space.
	NoiseFrequency float32 = 0.005
)

// wallProfile lists the per-step vertices relative to the segment base point.
var wallProfile = [2]mgl32.Vec3{{0, 0, 0}, {0, WallHeight, 0}}

// ribbonPattern triangulates two consecutive vertex pairs into one quad.
var ribbonPattern = [2][3]uint32{{0, 1, 2}, {2, 3, 1}}

// Config is the immutable input to a generation run.
type Config struct {
	Seed       noise.Seed
	CycleSteps uint
}

// WallMesh is a triangle vertex/index buffer suitable for a trimesh collider.
type WallMesh struct {
	Vertices  []mgl32.Vec3
	Triangles [][3]uint32
}

// Generate samples the noise field once per step and emits one continuous
// wall ribbon shifted by lateralOffset. It never fails; zero steps produce a
// single vertex pair and no triangles.
func Generate(cfg Config, lateralOffset mgl32.Vec3) WallMesh {
	//1.- The generator stream lives only for this invocation.
	rng := noise.NewRandom(cfg.Seed)
	sampler := noise.NewSource(rng)

	steps := int(cfg.CycleSteps)
	mesh := WallMesh{
		Vertices:  make([]mgl32.Vec3, 0, (steps+1)*len(wallProfile)),
		Triangles: make([][3]uint32, 0, steps*len(ribbonPattern)),
	}

	//2.- Walk away from the origin along -Z, swaying on X.
	for step := 0; step <= steps; step++ {
		depth := -float32(step) * SegmentLength
		horizontal := float32(sampler.Sample(float64(depth*NoiseFrequency))) * NoiseAmplitude
		base := mgl32.Vec3{horizontal, 0, depth}.Add(lateralOffset)
		for _, vertex := range wallProfile {
			mesh.Vertices = append(mesh.Vertices, vertex.Add(base))
		}
	}

	//3.- Stitch each pair of steps with the fixed winding pattern.
	for step := 0; step < steps; step++ {
		offset := uint32(step * len(wallProfile))
		for _, tri := range ribbonPattern {
			mesh.Triangles = append(mesh.Triangles, [3]uint32{tri[0] + offset, tri[1] + offset, tri[2] + offset})
		}
	}
	return mesh
}

// Validate reports whether every triangle index addresses an existing vertex.
func (m WallMesh) Validate() error {
	for idx, tri := range m.Triangles {
		for _, vertex := range tri {
			if int(vertex) >= len(m.Vertices) {
				return &IndexError{Triangle: idx, Index: vertex, Vertices: len(m.Vertices)}
			}
		}
	}
	return nil
}
