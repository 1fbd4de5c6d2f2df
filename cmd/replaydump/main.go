// Command replaydump prints a recorded ride as JSON lines.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"google.golang.org/protobuf/encoding/protojson"

	"driftpursuit/corridor/internal/replay"
)

func main() {
	path := flag.String("path", "", "Path to a replay directory or manifest.json")
	withFrames := flag.Bool("frames", true, "Include sampled frames in the output")
	flag.Parse()

	if *path == "" {
		fmt.Fprintln(os.Stderr, "path flag is required")
		os.Exit(1)
	}

	bundle, err := replay.Open(*path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(2)
	}
	if err := dump(os.Stdout, bundle, *withFrames); err != nil {
		fmt.Fprintln(os.Stderr, "encode error:", err)
		os.Exit(3)
	}
}

type line struct {
	Kind        string          `json:"kind"`
	Tick        uint64          `json:"tick,omitempty"`
	SimulatedMs int64           `json:"simulated_ms"`
	Type        string          `json:"type,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
}

// dump writes the header then events and frames merged in simulated-time order.
func dump(w io.Writer, bundle *replay.Bundle, withFrames bool) error {
	enc := json.NewEncoder(w)
	if err := enc.Encode(struct {
		Kind     string          `json:"kind"`
		Manifest replay.Manifest `json:"manifest"`
		Header   replay.Header   `json:"header"`
	}{Kind: "bundle", Manifest: bundle.Manifest, Header: bundle.Header}); err != nil {
		return err
	}

	events, frames := bundle.Events, bundle.Frames
	if !withFrames {
		frames = nil
	}
	//1.- Merge the two streams; on equal time the event goes first.
	for len(events) > 0 || len(frames) > 0 {
		var out line
		var payload []byte
		if len(frames) == 0 || (len(events) > 0 && events[0].SimulatedMs <= frames[0].SimulatedMs) {
			event := events[0]
			events = events[1:]
			out = line{Kind: "event", Tick: event.Tick, SimulatedMs: event.SimulatedMs, Type: event.Type}
			payload = event.Payload
		} else {
			frame := frames[0]
			frames = frames[1:]
			out = line{Kind: "frame", Tick: frame.Tick, SimulatedMs: frame.SimulatedMs}
			payload = frame.Payload
		}
		if len(payload) > 0 {
			msg, err := replay.DecodePayload(payload)
			if err != nil {
				return fmt.Errorf("tick %d: %w", out.Tick, err)
			}
			if out.Payload, err = protojson.Marshal(msg); err != nil {
				return err
			}
		}
		if err := enc.Encode(out); err != nil {
			return err
		}
	}
	return nil
}
