package game

import (
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"driftpursuit/corridor/internal/audio"
	"driftpursuit/corridor/internal/camera"
	"driftpursuit/corridor/internal/input"
	"driftpursuit/corridor/internal/physics"
	"driftpursuit/corridor/internal/track"
)

// Frame summarises one Session.Step for recorders and viewers.
type Frame struct {
	Index      uint64
	Time       time.Duration
	DT         time.Duration
	Keys       input.KeySet
	Spawned    []track.SpawnRequest
	HasVehicle bool
	Vehicle    physics.Transform
	Speed      float64
	Command    physics.VelocityCommand
	HasCamera  bool
	Camera     camera.State
	Sounds     []audio.Sfx
}

// Struct renders the frame as a protobuf Struct so tooling can decode it without Go types.
func (f Frame) Struct() (*structpb.Struct, error) {
	fields := map[string]any{
		"index":   float64(f.Index),
		"time_ms": float64(f.Time) / float64(time.Millisecond),
		"dt_ms":   float64(f.DT) / float64(time.Millisecond),
		"keys":    keyNames(f.Keys),
	}
	if f.HasVehicle {
		fields["vehicle"] = map[string]any{
			"position": vec(f.Vehicle.Translation),
			"rotation": []any{f.Vehicle.Rotation.W, f.Vehicle.Rotation.X(), f.Vehicle.Rotation.Y(), f.Vehicle.Rotation.Z()},
			"speed":    f.Speed,
			"linear":   vec(f.Command.Linear),
			"angular":  vec(f.Command.Angular),
		}
	}
	if f.HasCamera {
		fields["camera"] = map[string]any{
			"position": vec(f.Camera.Position),
			"zoom":     f.Camera.Zoom,
			"roll":     f.Camera.Roll,
		}
	}
	if len(f.Sounds) > 0 {
		sounds := make([]any, 0, len(f.Sounds))
		for _, sfx := range f.Sounds {
			sounds = append(sounds, sfx.String())
		}
		fields["sounds"] = sounds
	}
	msg, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("encode frame %d: %w", f.Index, err)
	}
	return msg, nil
}

// MarshalFrame encodes the frame in protobuf wire format.
func MarshalFrame(f Frame) ([]byte, error) {
	msg, err := f.Struct()
	if err != nil {
		return nil, err
	}
	return proto.Marshal(msg)
}

// SpawnEvent describes a processed spawn request.
func SpawnEvent(request track.SpawnRequest) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"seed":        float64(request.Seed),
		"cycle_steps": float64(request.CycleSteps),
	})
}

// SoundEvent describes one drained sound notification.
func SoundEvent(sfx audio.Sfx) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{"sfx": sfx.String()})
}

func vec(v mgl64.Vec3) []any {
	return []any{v.X(), v.Y(), v.Z()}
}

func keyNames(keys input.KeySet) []any {
	names := make([]any, 0, 2)
	for _, key := range keys.Keys() {
		names = append(names, key.String())
	}
	return names
}
