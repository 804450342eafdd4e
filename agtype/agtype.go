// Package agtype parses the textual agtype format returned by the
// Apache AGE Postgres extension. AGE serializes graph values as JSON
// with a trailing type marker, e.g. {"id": 1, "label": "Entity",
// "properties": {...}}::vertex. Composite results embed marked values
// inside regular JSON, so markers are stripped globally before
// decoding.
package agtype

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	vertexMarker = "::vertex"
	edgeMarker   = "::edge"

	// maxSample bounds the raw payload carried by a ParseError so log
	// lines stay readable.
	maxSample = 200
)

// ParseError reports that an agtype payload could not be decoded. It
// carries a truncated sample of the raw input for debugging.
type ParseError struct {
	Reason string
	Sample string
	Err    error
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("agtype parse error: %v", e.Reason)
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	if e.Sample != "" {
		msg += fmt.Sprintf("\nraw data sample: %v", e.Sample)
	}
	return msg
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func newParseError(reason, raw string, err error) *ParseError {
	return &ParseError{Reason: reason, Sample: sample(raw), Err: err}
}

func sample(raw string) string {
	runes := []rune(raw)
	if len(runes) <= maxSample {
		return raw
	}
	return string(runes[:maxSample])
}

// stripMarkers removes every vertex and edge marker from raw.
// Replacement is global so composite payloads with embedded markers
// decode as plain JSON, and repeated markers are handled the same as
// single ones.
func stripMarkers(raw string) string {
	raw = strings.ReplaceAll(raw, vertexMarker, "")
	raw = strings.ReplaceAll(raw, edgeMarker, "")
	return strings.TrimSpace(raw)
}

// decode parses JSON keeping numbers as json.Number, then normalizes
// them to int64 or float64 so callers never see json.Number.
func decode(raw string) (any, error) {
	decoder := json.NewDecoder(bytes.NewReader([]byte(raw)))
	decoder.UseNumber()
	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}
	return normalize(value), nil
}

// normalize converts json.Number to int64 where the value is integral
// and float64 otherwise, recursing into maps and slices.
func normalize(value any) any {
	switch v := value.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		if f, err := v.Float64(); err == nil {
			return f
		}
		return v.String()
	case map[string]any:
		for key, item := range v {
			v[key] = normalize(item)
		}
		return v
	case []any:
		for i, item := range v {
			v[i] = normalize(item)
		}
		return v
	default:
		return value
	}
}

// Unmarshal parses a raw agtype column value. An empty input yields
// (nil, nil), not an error; AGE returns empty strings for absent
// optional columns. If the decoded value is an object with a
// properties key, the properties map is returned in its place, so
// vertex and edge results read as flat property maps. Nested values
// are decoded but not flattened.
func Unmarshal(raw string) (any, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	value, err := decode(stripMarkers(raw))
	if err != nil {
		return nil, newParseError("invalid JSON in agtype data", raw, err)
	}

	if object, ok := value.(map[string]any); ok {
		if properties, ok := object["properties"].(map[string]any); ok {
			return properties, nil
		}
	}
	return value, nil
}

// ParseValue recursively parses agtype content inside already-decoded
// values: strings containing markers are parsed like column values,
// maps and slices are walked element by element. Values that fail to
// parse are returned unchanged.
func ParseValue(value any) any {
	switch v := value.(type) {
	case string:
		if !strings.Contains(v, vertexMarker) && !strings.Contains(v, edgeMarker) {
			return v
		}
		parsed, err := Unmarshal(v)
		if err != nil {
			return v
		}
		return parsed
	case map[string]any:
		for key, item := range v {
			v[key] = ParseValue(item)
		}
		return v
	case []any:
		for i, item := range v {
			v[i] = ParseValue(item)
		}
		return v
	default:
		return value
	}
}
