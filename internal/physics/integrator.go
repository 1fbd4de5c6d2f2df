package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Limits caps the velocities a body may be integrated with. Zero disables a cap.
type Limits struct {
	MaxLinearSpeed  float64
	MaxAngularSpeed float64
}

func clampMagnitude(vector mgl64.Vec3, limit float64) mgl64.Vec3 {
	//1.- Skip clamping when the limit disables the guard.
	if !(limit > 0) {
		return vector
	}
	magnitude := vector.Len()
	if magnitude == 0 || magnitude <= limit {
		return vector
	}
	//2.- Scale each axis uniformly so the resulting magnitude matches the limit.
	return vector.Mul(limit / magnitude)
}

func finite(v mgl64.Vec3) bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// integrateLinear applies velocity over the timestep to update the position.
func integrateLinear(transform *Transform, velocity mgl64.Vec3, step float64, limits Limits) {
	if transform == nil || step <= 0 || !finite(velocity) {
		return
	}
	velocity = clampMagnitude(velocity, limits.MaxLinearSpeed)
	transform.Translation = transform.Translation.Add(velocity.Mul(step))
}

// integrateAngular rotates the orientation by a world-space angular velocity in rad/s.
func integrateAngular(transform *Transform, angular mgl64.Vec3, step float64, limits Limits) {
	if transform == nil || step <= 0 || !finite(angular) {
		return
	}
	angular = clampMagnitude(angular, limits.MaxAngularSpeed)
	rate := angular.Len()
	if rate == 0 {
		return
	}
	//1.- Rotate about the instantaneous axis by the angle swept this step.
	delta := mgl64.QuatRotate(rate*step, angular.Mul(1/rate))
	transform.Rotation = delta.Mul(transform.Rotation).Normalize()
}

// Integrate advances a transform by a velocity command over step seconds.
func Integrate(transform *Transform, cmd VelocityCommand, step float64, limits Limits) {
	if transform == nil || step <= 0 {
		return
	}
	integrateLinear(transform, cmd.Linear, step, limits)
	integrateAngular(transform, cmd.Angular, step, limits)
}
