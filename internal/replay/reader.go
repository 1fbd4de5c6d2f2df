package replay

import (
	"bufio"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// ErrTruncatedFrame reports a frame stream that ends inside a record.
var ErrTruncatedFrame = errors.New("frame payload truncated")

// Event is a single record decoded from the event log.
type Event struct {
	Tick        uint64
	SimulatedMs int64
	CapturedAt  time.Time
	Type        string
	Payload     []byte
}

// Frame is a single sampled frame decoded from the frame stream.
type Frame struct {
	Tick        uint64
	SimulatedMs int64
	CapturedAt  time.Time
	Payload     []byte
}

// Bundle is a fully decoded replay directory.
type Bundle struct {
	Dir      string
	Manifest Manifest
	// Header is zero when the recording stopped before Close wrote it.
	Header Header
	Events []Event
	Frames []Frame
}

// Open loads a bundle from its directory or from the path of its manifest.
func Open(path string) (*Bundle, error) {
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	manifestPath := path
	if info.IsDir() {
		manifestPath = filepath.Join(path, manifestFile)
	}
	dir := filepath.Dir(manifestPath)

	raw, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, err
	}
	var manifest Manifest
	if err := json.Unmarshal(raw, &manifest); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if manifest.Version != 1 {
		return nil, fmt.Errorf("unsupported manifest version %d", manifest.Version)
	}

	bundle := &Bundle{Dir: dir, Manifest: manifest}
	header, err := ReadHeader(filepath.Join(dir, HeaderFile))
	switch {
	case err == nil:
		bundle.Header = header
	case !errors.Is(err, os.ErrNotExist):
		return nil, err
	}

	//1.- Events first so tooling can reconstruct spawns before replaying poses.
	if bundle.Events, err = loadEvents(filepath.Join(dir, manifest.EventsPath)); err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	if bundle.Frames, err = loadFrames(filepath.Join(dir, manifest.FramesPath)); err != nil {
		return nil, fmt.Errorf("load frames: %w", err)
	}
	return bundle, nil
}

// DecodePayload unpacks a frame or event payload written as a protobuf Struct.
func DecodePayload(payload []byte) (*structpb.Struct, error) {
	msg := &structpb.Struct{}
	if err := proto.Unmarshal(payload, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

func loadEvents(path string) ([]Event, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(snappy.NewReader(file))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var events []Event
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var record eventRecord
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			return nil, err
		}
		captured, err := time.Parse(time.RFC3339Nano, record.CapturedAt)
		if err != nil {
			return nil, err
		}
		payload, err := base64.StdEncoding.DecodeString(record.PayloadB64)
		if err != nil {
			return nil, err
		}
		events = append(events, Event{
			Tick:        record.Tick,
			SimulatedMs: record.SimulatedMs,
			CapturedAt:  captured,
			Type:        record.Type,
			Payload:     payload,
		})
	}
	return events, scanner.Err()
}

func loadFrames(path string) ([]Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader, err := zstd.NewReader(file)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	var frames []Frame
	header := make([]byte, frameHeaderSize)
	for {
		//1.- A clean EOF only counts between records.
		if _, err := io.ReadFull(reader, header); err != nil {
			if errors.Is(err, io.EOF) {
				return frames, nil
			}
			if errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, ErrTruncatedFrame
			}
			return nil, err
		}
		size := binary.LittleEndian.Uint32(header[24:28])
		payload := make([]byte, size)
		if _, err := io.ReadFull(reader, payload); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, ErrTruncatedFrame
			}
			return nil, err
		}
		frames = append(frames, Frame{
			Tick:        binary.LittleEndian.Uint64(header[0:8]),
			SimulatedMs: int64(binary.LittleEndian.Uint64(header[8:16])),
			CapturedAt:  time.Unix(0, int64(binary.LittleEndian.Uint64(header[16:24]))).UTC(),
			Payload:     payload,
		})
	}
}
