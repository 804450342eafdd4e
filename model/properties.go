package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultExtractionMethod is recorded when a property map does not name
// the method that produced an entity.
const DefaultExtractionMethod = "llm_structured"

// EntityProperties is the validated property set of an Entity vertex,
// still in wire representation (UUIDs and timestamps as strings).
// Instances are only produced by NewEntityProperties, never from raw
// maps directly.
type EntityProperties struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Type             EntityType `json:"type"`
	Confidence       float64    `json:"confidence"`
	SourceIDs        []string   `json:"source_ids"`
	ExtractionMethod string     `json:"extraction_method"`
	CreatedAt        string     `json:"created_at,omitempty"`
	UpdatedAt        string     `json:"updated_at,omitempty"`
}

// RelationshipProperties is the validated property set of a RELATED_TO
// edge, in wire representation.
type RelationshipProperties struct {
	RelationshipType string   `json:"relationship_type"`
	Description      string   `json:"description"`
	Confidence       float64  `json:"confidence"`
	SourceIDs        []string `json:"source_ids"`
}

// NewEntityProperties validates a raw property map against the entity
// schema: id, name, type and confidence are required, confidence must
// be in [0,1] and type must match the entity type vocabulary
// (case-insensitive, stored uppercase).
func NewEntityProperties(props map[string]any) (*EntityProperties, error) {
	v := newPropertyValidator(props)

	p := &EntityProperties{
		ID:               v.requiredString("id"),
		Name:             v.requiredString("name"),
		Confidence:       v.confidence("confidence"),
		SourceIDs:        v.stringList("source_ids"),
		ExtractionMethod: v.optionalString("extraction_method", DefaultExtractionMethod),
		CreatedAt:        v.optionalString("created_at", ""),
		UpdatedAt:        v.optionalString("updated_at", ""),
	}

	if rawType := v.requiredString("type"); rawType != "" {
		entityType, err := ParseEntityType(rawType)
		if err != nil {
			v.addError("type", err.Error())
		} else {
			p.Type = entityType
		}
	}

	if err := v.validationError("entity properties failed validation"); err != nil {
		return nil, err
	}
	return p, nil
}

// NewRelationshipProperties validates a raw property map against the
// relationship schema: relationship_type, description and confidence
// are required, relationship_type must be non-empty and confidence
// must be in [0,1].
func NewRelationshipProperties(props map[string]any) (*RelationshipProperties, error) {
	v := newPropertyValidator(props)

	p := &RelationshipProperties{
		RelationshipType: v.requiredString("relationship_type"),
		Description:      v.requiredPresentString("description"),
		Confidence:       v.confidence("confidence"),
		SourceIDs:        v.stringList("source_ids"),
	}

	if err := v.validationError("relationship properties failed validation"); err != nil {
		return nil, err
	}
	return p, nil
}

// Entity converts the wire representation into a domain Entity,
// parsing UUIDs and timestamps.
func (p *EntityProperties) Entity() (*Entity, error) {
	id, err := uuid.Parse(p.ID)
	if err != nil {
		return nil, &ValidationError{
			Message: "entity properties failed validation",
			Fields:  []FieldError{{Field: "id", Message: fmt.Sprintf("not a valid UUID: %v", p.ID)}},
		}
	}

	sourceIDs, err := parseUUIDList(p.SourceIDs)
	if err != nil {
		return nil, &ValidationError{
			Message: "entity properties failed validation",
			Fields:  []FieldError{{Field: "source_ids", Message: err.Error()}},
		}
	}

	return &Entity{
		ID:               id,
		Name:             p.Name,
		Type:             p.Type,
		Confidence:       p.Confidence,
		SourceIDs:        sourceIDs,
		ExtractionMethod: p.ExtractionMethod,
		CreatedAt:        parseTimestamp(p.CreatedAt),
		UpdatedAt:        parseTimestamp(p.UpdatedAt),
	}, nil
}

// Relationship converts the wire representation into a domain
// Relationship.
func (p *RelationshipProperties) Relationship() (*Relationship, error) {
	sourceIDs, err := parseUUIDList(p.SourceIDs)
	if err != nil {
		return nil, &ValidationError{
			Message: "relationship properties failed validation",
			Fields:  []FieldError{{Field: "source_ids", Message: err.Error()}},
		}
	}

	return &Relationship{
		Type:        p.RelationshipType,
		Description: p.Description,
		Confidence:  p.Confidence,
		SourceIDs:   sourceIDs,
	}, nil
}

func parseUUIDList(values []string) ([]uuid.UUID, error) {
	if len(values) == 0 {
		return nil, nil
	}
	ids := make([]uuid.UUID, 0, len(values))
	for _, value := range values {
		id, err := uuid.Parse(value)
		if err != nil {
			return nil, fmt.Errorf("not a valid UUID: %v", value)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// parseTimestamp accepts RFC 3339 timestamps and zoneless ISO 8601
// (as written by older writers). Absent or unparseable values yield
// the zero time; timestamps are informational, not part of the schema.
func parseTimestamp(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}

// propertyValidator accumulates field-level failures while pulling
// typed values out of a raw property map.
type propertyValidator struct {
	props  map[string]any
	fields []FieldError
}

func newPropertyValidator(props map[string]any) *propertyValidator {
	return &propertyValidator{props: props}
}

func (v *propertyValidator) addError(field, message string) {
	v.fields = append(v.fields, FieldError{Field: field, Message: message})
}

func (v *propertyValidator) addMissing(field string) {
	v.fields = append(v.fields, FieldError{Field: field, Message: "required field is missing", Missing: true})
}

// requiredString requires the field to be present and non-empty.
func (v *propertyValidator) requiredString(field string) string {
	raw, ok := v.props[field]
	if !ok || raw == nil {
		v.addMissing(field)
		return ""
	}
	value, ok := raw.(string)
	if !ok {
		v.addError(field, fmt.Sprintf("expected string, got %T", raw))
		return ""
	}
	if value == "" {
		v.addError(field, "must not be empty")
		return ""
	}
	return value
}

// requiredPresentString requires the field to be present; an empty
// string is allowed.
func (v *propertyValidator) requiredPresentString(field string) string {
	raw, ok := v.props[field]
	if !ok || raw == nil {
		v.addMissing(field)
		return ""
	}
	value, ok := raw.(string)
	if !ok {
		v.addError(field, fmt.Sprintf("expected string, got %T", raw))
		return ""
	}
	return value
}

func (v *propertyValidator) optionalString(field, fallback string) string {
	raw, ok := v.props[field]
	if !ok || raw == nil {
		return fallback
	}
	value, ok := raw.(string)
	if !ok {
		v.addError(field, fmt.Sprintf("expected string, got %T", raw))
		return fallback
	}
	if value == "" {
		return fallback
	}
	return value
}

// confidence requires a numeric field within [0,1].
func (v *propertyValidator) confidence(field string) float64 {
	raw, ok := v.props[field]
	if !ok || raw == nil {
		v.addMissing(field)
		return 0
	}
	value, ok := toFloat(raw)
	if !ok {
		v.addError(field, fmt.Sprintf("expected number, got %T", raw))
		return 0
	}
	if value < 0 || value > 1 {
		v.addError(field, fmt.Sprintf("must be between 0 and 1, got %v", value))
		return 0
	}
	return value
}

// stringList accepts an absent field, a []string or a []any of strings.
func (v *propertyValidator) stringList(field string) []string {
	raw, ok := v.props[field]
	if !ok || raw == nil {
		return nil
	}
	switch list := raw.(type) {
	case []string:
		return list
	case []any:
		values := make([]string, 0, len(list))
		for _, item := range list {
			value, ok := item.(string)
			if !ok {
				v.addError(field, fmt.Sprintf("expected list of strings, found %T element", item))
				return nil
			}
			values = append(values, value)
		}
		return values
	default:
		v.addError(field, fmt.Sprintf("expected list of strings, got %T", raw))
		return nil
	}
}

func (v *propertyValidator) validationError(message string) error {
	if len(v.fields) == 0 {
		return nil
	}
	raw, err := json.Marshal(v.props)
	if err != nil {
		raw = []byte(fmt.Sprintf("%v", v.props))
	}
	return &ValidationError{
		Message: message,
		Raw:     truncateSample(string(raw)),
		Fields:  v.fields,
	}
}

func toFloat(raw any) (float64, bool) {
	switch value := raw.(type) {
	case float64:
		return value, true
	case float32:
		return float64(value), true
	case int:
		return float64(value), true
	case int64:
		return float64(value), true
	case json.Number:
		f, err := value.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
