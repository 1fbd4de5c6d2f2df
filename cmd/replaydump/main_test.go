package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"driftpursuit/corridor/internal/replay"
)

func encode(t *testing.T, fields map[string]any) []byte {
	t.Helper()
	msg, err := structpb.NewStruct(fields)
	require.NoError(t, err)
	raw, err := proto.Marshal(msg)
	require.NoError(t, err)
	return raw
}

func TestDumpMergesEventsAndFrames(t *testing.T) {
	bundle := &replay.Bundle{
		Header: replay.Header{SchemaVersion: 1, Seed: 42, CycleSteps: 2, FilePointer: "manifest.json"},
		Events: []replay.Event{
			{Tick: 1, SimulatedMs: 16, Type: "spawn", Payload: encode(t, map[string]any{"seed": 42.0})},
			{Tick: 16, SimulatedMs: 256, Type: "sfx", Payload: encode(t, map[string]any{"sfx": "step"})},
		},
		Frames: []replay.Frame{
			{Tick: 1, SimulatedMs: 16, Payload: encode(t, map[string]any{"index": 1.0})},
			{Tick: 14, SimulatedMs: 224, Payload: encode(t, map[string]any{"index": 14.0})},
		},
	}

	var out bytes.Buffer
	require.NoError(t, dump(&out, bundle, true))

	var kinds []string
	var header map[string]any
	scanner := bufio.NewScanner(&out)
	for scanner.Scan() {
		var record map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &record))
		kind := record["kind"].(string)
		if kind == "bundle" {
			header = record["header"].(map[string]any)
		}
		if kind == "event" {
			kind += ":" + record["type"].(string)
		}
		kinds = append(kinds, kind)
	}
	assert.Equal(t, []string{"bundle", "event:spawn", "frame", "frame", "event:sfx"}, kinds)
	assert.EqualValues(t, 42, header["seed"])
}

func TestDumpCanSkipFrames(t *testing.T) {
	bundle := &replay.Bundle{
		Frames: []replay.Frame{{Tick: 1, SimulatedMs: 16}},
	}
	var out bytes.Buffer
	require.NoError(t, dump(&out, bundle, false))
	assert.Equal(t, 1, bytes.Count(out.Bytes(), []byte("\n")))
}
