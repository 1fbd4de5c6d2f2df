package physics

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

// Transform is the pose the engine reports for a body.
type Transform struct {
	Translation mgl64.Vec3
	Rotation    mgl64.Quat
}

// IdentityTransform places a body at the origin with no rotation.
func IdentityTransform() Transform {
	return Transform{Rotation: mgl64.QuatIdent()}
}

// TransformAt places a body at position with no rotation.
func TransformAt(position mgl64.Vec3) Transform {
	return Transform{Translation: position, Rotation: mgl64.QuatIdent()}
}

// VelocityCommand is the per-tick linear and angular velocity for a body.
type VelocityCommand struct {
	Linear  mgl64.Vec3
	Angular mgl64.Vec3
}

// BodyKind selects how the engine moves a body.
type BodyKind int

const (
	// BodyFixed never moves.
	BodyFixed BodyKind = iota
	// BodyKinematicVelocity moves only by the velocity it is commanded.
	BodyKinematicVelocity
	// BodyDynamic is owned by the rigid-body solver.
	BodyDynamic
)

func (k BodyKind) String() string {
	switch k {
	case BodyFixed:
		return "fixed"
	case BodyKinematicVelocity:
		return "kinematic_velocity"
	case BodyDynamic:
		return "dynamic"
	default:
		return "unknown"
	}
}

// Shape is a collision shape accepted by the engine.
type Shape interface {
	shapeName() string
}

// Trimesh is a static triangle mesh shape.
type Trimesh struct {
	Vertices  []mgl32.Vec3
	Triangles [][3]uint32
}

func (Trimesh) shapeName() string { return "trimesh" }

// Cuboid is a box described by its half extents.
type Cuboid struct {
	HalfExtents mgl64.Vec3
}

func (Cuboid) shapeName() string { return "cuboid" }

// Ball is a sphere of the given radius.
type Ball struct {
	Radius float64
}

func (Ball) shapeName() string { return "ball" }

// ShapeName reports the short name of s for logs.
func ShapeName(s Shape) string {
	if s == nil {
		return "none"
	}
	return s.shapeName()
}

// BodyID addresses a body registered with an engine.
type BodyID uint64

// Body describes a collider to register.
type Body struct {
	Name      string
	Kind      BodyKind
	Shape     Shape
	Transform Transform
}
