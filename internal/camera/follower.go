// Package camera keeps the chase camera trailing the bike.
package camera

import (
	"github.com/go-gl/mathgl/mgl64"

	"driftpursuit/corridor/internal/input"
)

const (
	// DefaultLerpFactor sets how quickly the camera converges; at 60 Hz the
	// per-frame blend stays well inside [0, 1].
	DefaultLerpFactor = 2.0
	// DefaultZoomScale is the zoom at rest.
	DefaultZoomScale = 1.0
	// ZoomDistanceDivisor normalises squared lag distance into zoom.
	ZoomDistanceDivisor = 100000.0
	// MaxZoomBoost bounds the extra zoom contributed by lag.
	MaxZoomBoost = 1.2
	// LeanStep is the roll applied when a steering key goes down or up.
	LeanStep = 0.05
)

// State is the camera pose owned by the follower.
type State struct {
	Position mgl64.Vec3
	Zoom     float64
	Roll     float64
}

// NewState places the camera at position with the resting zoom.
func NewState(position mgl64.Vec3, zoomScale float64) State {
	return State{Position: position, Zoom: zoomScale}
}

// Follower smooths the camera toward the vehicle each tick.
type Follower struct {
	LerpFactor float64
	ZoomScale  float64
}

// NewFollower returns a follower with the default tuning.
func NewFollower() Follower {
	return Follower{LerpFactor: DefaultLerpFactor, ZoomScale: DefaultZoomScale}
}

// Update eases cam toward vehicle. A nil vehicle or camera leaves everything untouched.
// The blend factor is not clamped, so a very large dt overshoots the target.
func (f Follower) Update(dt float64, vehicle *mgl64.Vec3, cam *State) {
	if vehicle == nil || cam == nil {
		return
	}
	//1.- Chase the vehicle on the ground plane while keeping our own height.
	target := mgl64.Vec3{vehicle.X(), cam.Position.Y(), vehicle.Z()}
	blend := f.LerpFactor * dt
	cam.Position = cam.Position.Add(target.Sub(cam.Position).Mul(blend))

	//2.- Pull back as the lag grows so the bike stays in frame.
	lag := target.Sub(cam.Position)
	boost := mgl64.Clamp(lag.Dot(lag)/ZoomDistanceDivisor, 0, MaxZoomBoost)
	cam.Zoom = (boost + 1) * f.ZoomScale
}

// Lean tilts the camera as steering keys go down and come back up.
func Lean(state input.State, cam *State) {
	if cam == nil {
		return
	}
	if state.JustPressed(input.KeyA) {
		cam.Roll -= LeanStep
	}
	if state.JustReleased(input.KeyA) {
		cam.Roll += LeanStep
	}
	if state.JustPressed(input.KeyD) {
		cam.Roll += LeanStep
	}
	if state.JustReleased(input.KeyD) {
		cam.Roll -= LeanStep
	}
}
