package table

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is the on-disk encoding of a description
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFromPath picks the format from a file extension, defaulting to YAML
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	default:
		return FormatYAML
	}
}

// Load reads a description from a .yaml, .yml or .json file
func Load(path string) (*Description, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read table: %w", err)
	}
	d, err := Decode(data, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// Decode parses a description in the given format
func Decode(data []byte, format Format) (*Description, error) {
	d := &Description{}
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(d); err != nil {
			return nil, fmt.Errorf("failed to parse table: %w", err)
		}
	default:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(d); err != nil {
			return nil, fmt.Errorf("failed to parse table: %w", err)
		}
	}
	d.fillDefaults()
	return d, nil
}

// fillDefaults expands optional per-point slices omitted from the file.
// Present but mismatched slices are left for Validate to report.
func (d *Description) fillDefaults() {
	n := len(d.Points)
	for i := range d.Rows {
		if d.Rows[i].Marks == nil {
			d.Rows[i].Marks = make([]PointMark, n)
		}
	}
	if v := d.Variation; v != nil {
		if v.LeftValues == nil {
			v.LeftValues = make([]string, n)
		}
		if v.Kinds == nil {
			v.Kinds = make([]PointKind, n)
		}
	}
}

// Encode writes a description in the given format
func Encode(d *Description, format Format) ([]byte, error) {
	if format == FormatJSON {
		return json.MarshalIndent(d, "", "  ")
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
