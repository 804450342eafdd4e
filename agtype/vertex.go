package agtype

import (
	"fmt"
	"strings"
)

// Vertex is the structural form of an AGE vertex: the engine-internal
// graph id, the label and the user-defined properties. The domain
// UUID, if any, lives inside Properties.
type Vertex struct {
	ID         int64          `json:"id"`
	Label      string         `json:"label"`
	Properties map[string]any `json:"properties"`
}

// Edge is the structural form of an AGE edge, including the graph ids
// of its endpoints.
type Edge struct {
	ID         int64          `json:"id"`
	Label      string         `json:"label"`
	StartID    int64          `json:"start_id"`
	EndID      int64          `json:"end_id"`
	Properties map[string]any `json:"properties"`
}

// ToVertex parses raw agtype vertex data into a validated Vertex. It
// accepts the wire string (with or without the ::vertex marker) or an
// already-decoded map. Unlike Unmarshal it keeps the structural
// fields instead of flattening to properties.
func ToVertex(data any) (*Vertex, error) {
	object, err := toObject(data, "vertex")
	if err != nil {
		return nil, err
	}

	vertex := &Vertex{Properties: map[string]any{}}
	if vertex.ID, err = objectID(object, "id"); err != nil {
		return nil, newParseError("vertex data failed validation", fmt.Sprintf("%v", data), err)
	}
	if vertex.Label, err = objectLabel(object); err != nil {
		return nil, newParseError("vertex data failed validation", fmt.Sprintf("%v", data), err)
	}
	if properties, ok := object["properties"].(map[string]any); ok {
		vertex.Properties = properties
	}
	return vertex, nil
}

// ToEdge parses raw agtype edge data into a validated Edge. It accepts
// the wire string (with or without the ::edge marker) or an
// already-decoded map.
func ToEdge(data any) (*Edge, error) {
	object, err := toObject(data, "edge")
	if err != nil {
		return nil, err
	}

	edge := &Edge{Properties: map[string]any{}}
	if edge.ID, err = objectID(object, "id"); err != nil {
		return nil, newParseError("edge data failed validation", fmt.Sprintf("%v", data), err)
	}
	if edge.StartID, err = objectID(object, "start_id"); err != nil {
		return nil, newParseError("edge data failed validation", fmt.Sprintf("%v", data), err)
	}
	if edge.EndID, err = objectID(object, "end_id"); err != nil {
		return nil, newParseError("edge data failed validation", fmt.Sprintf("%v", data), err)
	}
	if edge.Label, err = objectLabel(object); err != nil {
		return nil, newParseError("edge data failed validation", fmt.Sprintf("%v", data), err)
	}
	if properties, ok := object["properties"].(map[string]any); ok {
		edge.Properties = properties
	}
	return edge, nil
}

func toObject(data any, kind string) (map[string]any, error) {
	switch v := data.(type) {
	case string:
		value, err := decode(stripMarkers(v))
		if err != nil {
			return nil, newParseError(fmt.Sprintf("invalid JSON in agtype %v data", kind), v, err)
		}
		object, ok := value.(map[string]any)
		if !ok {
			return nil, newParseError(fmt.Sprintf("expected %v object, got %T", kind, value), v, nil)
		}
		return object, nil
	case map[string]any:
		return v, nil
	default:
		return nil, newParseError(fmt.Sprintf("expected string or map for %v, got %T", kind, data), fmt.Sprintf("%v", data), nil)
	}
}

func objectID(object map[string]any, field string) (int64, error) {
	raw, ok := object[field]
	if !ok {
		return 0, fmt.Errorf("missing required field %v", field)
	}
	var id int64
	switch v := raw.(type) {
	case int64:
		id = v
	case float64:
		id = int64(v)
	default:
		return 0, fmt.Errorf("field %v must be an integer, got %T", field, raw)
	}
	if id < 0 {
		return 0, fmt.Errorf("field %v must be non-negative, got %v", field, id)
	}
	return id, nil
}

func objectLabel(object map[string]any) (string, error) {
	raw, ok := object["label"]
	if !ok {
		return "", fmt.Errorf("missing required field label")
	}
	label, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("field label must be a string, got %T", raw)
	}
	if strings.TrimSpace(label) == "" {
		return "", fmt.Errorf("field label cannot be empty")
	}
	return label, nil
}
