// Package replay records ridden sessions to disk and reads them back for tooling.
package replay

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
)

var sessionIDCleaner = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// FrameInterval is the simulated-time spacing between recorded frames (5 Hz).
const FrameInterval = 200 * time.Millisecond

const (
	manifestFile = "manifest.json"
	eventsFile   = "events.jsonl.sz"
	framesFile   = "frames.bin.zst"

	frameHeaderSize = 8 + 8 + 8 + 4
)

// ErrWriterClosed is returned when appending to a closed or missing writer.
var ErrWriterClosed = errors.New("replay writer not open")

// Manifest describes the replay bundle layout so tooling can locate artefacts.
type Manifest struct {
	Version         int    `json:"version"`
	CreatedAt       string `json:"created_at"`
	FrameIntervalMs int    `json:"frame_interval_ms"`
	EventsPath      string `json:"events_path"`
	FramesPath      string `json:"frames_path"`
}

// eventRecord is one line of the snappy-compressed event log.
type eventRecord struct {
	Tick        uint64 `json:"tick"`
	SimulatedMs int64  `json:"simulated_ms"`
	CapturedAt  string `json:"captured_at"`
	Type        string `json:"type"`
	PayloadB64  string `json:"payload_b64"`
}

// Writer streams a session's events and sampled frames into a bundle directory.
type Writer struct {
	mu          sync.Mutex
	dir         string
	now         func() time.Time
	eventFile   *os.File
	eventStream *snappy.Writer
	frameFile   *os.File
	frameStream *zstd.Encoder
	lastFrameMs int64
	frames      int
	header      Header
	closed      bool
}

// NewWriter prepares the bundle directory under root and opens compressed sinks.
func NewWriter(root, sessionID string, clock func() time.Time) (*Writer, Manifest, error) {
	if root == "" {
		return nil, Manifest{}, fmt.Errorf("replay root must be provided")
	}
	if clock == nil {
		clock = time.Now
	}

	cleaned := sessionIDCleaner.ReplaceAllString(sessionID, "")
	if cleaned == "" {
		cleaned = "session"
	}
	created := clock().UTC()
	path := filepath.Join(root, fmt.Sprintf("%s-%s", cleaned, created.Format("20060102T150405Z")))
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, Manifest{}, fmt.Errorf("create bundle dir: %w", err)
	}

	manifest := Manifest{
		Version:         1,
		CreatedAt:       created.Format(time.RFC3339Nano),
		FrameIntervalMs: int(FrameInterval / time.Millisecond),
		EventsPath:      eventsFile,
		FramesPath:      framesFile,
	}
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, Manifest{}, err
	}
	if err := os.WriteFile(filepath.Join(path, manifestFile), data, 0o644); err != nil {
		return nil, Manifest{}, fmt.Errorf("write manifest: %w", err)
	}

	eventFile, err := os.Create(filepath.Join(path, eventsFile))
	if err != nil {
		return nil, Manifest{}, fmt.Errorf("create event log: %w", err)
	}
	frameFile, err := os.Create(filepath.Join(path, framesFile))
	if err != nil {
		eventFile.Close()
		return nil, Manifest{}, fmt.Errorf("create frame log: %w", err)
	}
	frameStream, err := zstd.NewWriter(frameFile)
	if err != nil {
		eventFile.Close()
		frameFile.Close()
		return nil, Manifest{}, err
	}

	return &Writer{
		dir:         path,
		now:         clock,
		eventFile:   eventFile,
		eventStream: snappy.NewBufferedWriter(eventFile),
		frameFile:   frameFile,
		frameStream: frameStream,
		lastFrameMs: -1,
		header:      Header{SchemaVersion: HeaderSchemaVersion, FilePointer: manifestFile},
	}, manifest, nil
}

// Directory exposes the directory backing the replay bundle.
func (w *Writer) Directory() string {
	if w == nil {
		return ""
	}
	return w.dir
}

// SetTrack records the corridor metadata written into the header on Close.
func (w *Writer) SetTrack(seed uint32, cycleSteps uint, params TrackParameters) {
	if w == nil {
		return
	}
	w.mu.Lock()
	w.header.Seed = seed
	w.header.CycleSteps = cycleSteps
	w.header.TrackParams = params.Clone()
	w.mu.Unlock()
}

// AppendEvent writes a single JSON event line to the compressed event log.
func (w *Writer) AppendEvent(tick uint64, simulatedMs int64, eventType string, payload []byte) error {
	if w == nil {
		return ErrWriterClosed
	}
	record := eventRecord{
		Tick:        tick,
		SimulatedMs: simulatedMs,
		CapturedAt:  w.now().UTC().Format(time.RFC3339Nano),
		Type:        eventType,
		PayloadB64:  base64.StdEncoding.EncodeToString(payload),
	}
	line, err := json.Marshal(record)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrWriterClosed
	}
	if _, err := w.eventStream.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// AppendFrame records the frame when at least FrameInterval of simulated time has
// passed since the last recorded one and reports whether it was kept.
func (w *Writer) AppendFrame(tick uint64, simulatedMs int64, payload []byte) (bool, error) {
	if w == nil {
		return false, ErrWriterClosed
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return false, ErrWriterClosed
	}
	//1.- The first frame always lands so every bundle has a starting pose.
	if w.lastFrameMs >= 0 && simulatedMs-w.lastFrameMs < FrameInterval.Milliseconds() {
		return false, nil
	}

	header := make([]byte, frameHeaderSize)
	binary.LittleEndian.PutUint64(header[0:8], tick)
	binary.LittleEndian.PutUint64(header[8:16], uint64(simulatedMs))
	binary.LittleEndian.PutUint64(header[16:24], uint64(w.now().UTC().UnixNano()))
	binary.LittleEndian.PutUint32(header[24:28], uint32(len(payload)))
	if _, err := w.frameStream.Write(header); err != nil {
		return false, fmt.Errorf("append frame: %w", err)
	}
	if _, err := w.frameStream.Write(payload); err != nil {
		return false, fmt.Errorf("append frame: %w", err)
	}
	w.lastFrameMs = simulatedMs
	w.frames++
	return true, nil
}

// Frames reports how many frames have been recorded.
func (w *Writer) Frames() int {
	if w == nil {
		return 0
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.frames
}

// Flush pushes buffered events and frames to disk.
func (w *Writer) Flush() error {
	if w == nil {
		return ErrWriterClosed
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrWriterClosed
	}
	if err := w.eventStream.Flush(); err != nil {
		return err
	}
	return w.frameStream.Flush()
}

// Close writes the header, flushes all buffers and releases file handles.
func (w *Writer) Close() error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true

	//1.- Attempt every step and surface the first failure.
	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	record(WriteHeader(filepath.Join(w.dir, HeaderFile), w.header))
	record(w.eventStream.Close())
	record(w.eventFile.Close())
	record(w.frameStream.Close())
	record(w.frameFile.Close())
	return firstErr
}
