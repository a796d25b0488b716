package asset

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Format turns raw bytes into imported data. Options are fields of the
// format value.
type Format[D any] interface {
	Name() string
	Import(data []byte) (D, error)
}

// YAML decodes D with yaml.v3.
type YAML[D any] struct {
	// KnownFields rejects mapping keys that have no matching struct field.
	KnownFields bool
}

func (YAML[D]) Name() string { return "yaml" }

func (f YAML[D]) Import(data []byte) (D, error) {
	var out D
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(f.KnownFields)
	if err := dec.Decode(&out); err != nil && !errors.Is(err, io.EOF) {
		return out, fmt.Errorf("yaml: %w", err)
	}
	return out, nil
}

// JSON decodes D with goccy/go-json.
type JSON[D any] struct {
	DisallowUnknownFields bool
}

func (JSON[D]) Name() string { return "json" }

func (f JSON[D]) Import(data []byte) (D, error) {
	var out D
	dec := json.NewDecoder(bytes.NewReader(data))
	if f.DisallowUnknownFields {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(&out); err != nil {
		return out, fmt.Errorf("json: %w", err)
	}
	return out, nil
}

// Bytes imports the raw contents unchanged.
type Bytes struct{}

func (Bytes) Name() string { return "bytes" }

func (Bytes) Import(data []byte) ([]byte, error) { return data, nil }
