package replay

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// HeaderSchemaVersion tracks the schema version for replay header documents.
const HeaderSchemaVersion = 1

// HeaderFile is the header document name inside a bundle.
const HeaderFile = "header.json"

// TrackParameters captures the generator constants a corridor was built with.
type TrackParameters map[string]float64

// Clone returns a copy of the parameters map.
func (p TrackParameters) Clone() TrackParameters {
	if len(p) == 0 {
		return nil
	}
	clone := make(TrackParameters, len(p))
	for key, value := range p {
		clone[key] = value
	}
	return clone
}

// Header is the metadata persisted alongside a replay bundle. Seed and CycleSteps are
// enough to regenerate the corridor that was ridden.
type Header struct {
	SchemaVersion int             `json:"schema_version"`
	Seed          uint32          `json:"seed"`
	CycleSteps    uint            `json:"cycle_steps"`
	TrackParams   TrackParameters `json:"track_params,omitempty"`
	FilePointer   string          `json:"file_pointer"`
}

// Validate ensures the header contains enough information for tooling.
func (h Header) Validate() error {
	if h.SchemaVersion <= 0 {
		return fmt.Errorf("schema_version must be positive")
	}
	if strings.TrimSpace(h.FilePointer) == "" {
		return fmt.Errorf("file_pointer must not be empty")
	}
	return nil
}

// WriteHeader persists the supplied header to the provided file path.
func WriteHeader(path string, header Header) error {
	if err := header.Validate(); err != nil {
		return err
	}
	payload, err := json.MarshalIndent(header, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, append(payload, '\n'), 0o644)
}

// ReadHeader loads and decodes a replay header from disk.
func ReadHeader(path string) (Header, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Header{}, err
	}
	var header Header
	if err := json.Unmarshal(data, &header); err != nil {
		return Header{}, fmt.Errorf("decode %s: %w", path, err)
	}
	if err := header.Validate(); err != nil {
		return Header{}, err
	}
	return header, nil
}
