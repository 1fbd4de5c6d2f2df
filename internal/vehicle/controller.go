// Package vehicle turns per-frame input into bike speed and velocity commands.
package vehicle

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"driftpursuit/corridor/internal/audio"
	"driftpursuit/corridor/internal/input"
	"driftpursuit/corridor/internal/physics"
)

const (
	// ForwardThrust is added to the forward axis while accelerating; -Z is forward.
	ForwardThrust = -1.5
	// ReverseThrust is added to the forward axis while braking.
	ReverseThrust = 0.4
	// TurnRate is added to the turn axis per held steering key.
	TurnRate = 0.4
	// RollRightingGain scales the self-righting roll torque.
	RollRightingGain = 4.0
	// GroundSnapDivisor converts height above ground into a downward velocity.
	GroundSnapDivisor = 40.0
	// StepSfxInterval is the minimum time between step sounds.
	StepSfxInterval = 250 * time.Millisecond
)

// Bike is the tunable state of the player's vehicle. TopSpeed is carried for
// tuning but is not applied by the controller.
type Bike struct {
	Speed    float64
	Accel    float64
	Drag     float64
	TopSpeed float64
}

// DefaultBike returns the tuning used when none is configured.
func DefaultBike() Bike {
	return Bike{Accel: 50, Drag: 0.1, TopSpeed: 60}
}

// Intent summarises the directional input of one frame.
type Intent struct {
	ForwardBack float64
	Turn        float64
}

// IsZero reports whether no direction is requested.
func (i Intent) IsZero() bool { return i.ForwardBack == 0 && i.Turn == 0 }

// IntentFrom reads the directional keys. Opposite keys are summed without normalisation.
func IntentFrom(state input.State) Intent {
	var intent Intent
	if state.AnyPressed(input.KeyW, input.KeyArrowUp) {
		intent.ForwardBack += ForwardThrust
	}
	if state.AnyPressed(input.KeyS, input.KeyArrowDown) {
		intent.ForwardBack += ReverseThrust
	}
	if state.AnyPressed(input.KeyA, input.KeyArrowLeft) {
		intent.Turn += TurnRate
	}
	if state.AnyPressed(input.KeyD, input.KeyArrowRight) {
		intent.Turn -= TurnRate
	}
	return intent
}

// Controller owns the step-sound debounce for one vehicle.
type Controller struct {
	// LastStepSfx is the simulated time of the last step sound.
	LastStepSfx time.Duration
	// Sink receives step notifications; nil drops them.
	Sink audio.Sink
}

// NewController constructs a controller that reports step sounds to sink.
func NewController(sink audio.Sink) *Controller {
	return &Controller{Sink: sink}
}

// Update applies one tick of input to bike and returns the velocity command
// for the physics engine, plus whether a step sound fired.
func (c *Controller) Update(dt float64, state input.State, bike *Bike, transform physics.Transform, now time.Duration) (physics.VelocityCommand, bool) {
	intent := IntentFrom(state)
	cmd := Steer(dt, intent, bike, transform)
	if c == nil {
		return cmd, false
	}
	return cmd, c.debounceStep(intent, now)
}

// Steer updates bike speed for intent and computes the velocity command.
func Steer(dt float64, intent Intent, bike *Bike, transform physics.Transform) physics.VelocityCommand {
	if bike == nil {
		return physics.VelocityCommand{}
	}
	//1.- Accelerate along the forward axis then bleed speed through drag.
	bike.Speed += bike.Accel * dt * intent.ForwardBack
	bike.Speed *= 1 - bike.Drag*dt

	rotation := transform.Rotation
	if rotation.Len() == 0 {
		rotation = mgl64.QuatIdent()
	}

	//2.- Yaw follows the turn axis while roll is pulled back toward upright.
	angular := mgl64.Vec3{0, intent.Turn, -rotation.Z() * RollRightingGain}

	//3.- Drive along the bike's own heading, then snap height back toward zero.
	linear := rotation.Rotate(mgl64.Vec3{intent.Turn, 0, bike.Speed})
	linear[1] = -transform.Translation.Y() / GroundSnapDivisor

	return physics.VelocityCommand{Linear: linear, Angular: angular}
}

func (c *Controller) debounceStep(intent Intent, now time.Duration) bool {
	if intent.IsZero() || now-c.LastStepSfx < StepSfxInterval {
		return false
	}
	c.LastStepSfx = now
	if c.Sink != nil {
		c.Sink.Play(audio.Step)
	}
	return true
}
