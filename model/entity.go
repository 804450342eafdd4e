package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EntityType classifies an extracted entity. The vocabulary is closed;
// values outside it are rejected by validation.
type EntityType string

const (
	EntityTypePerson       EntityType = "PERSON"
	EntityTypeOrganization EntityType = "ORGANIZATION"
	EntityTypeLocation     EntityType = "LOCATION"
	EntityTypeDate         EntityType = "DATE"
	EntityTypeProduct      EntityType = "PRODUCT"
	EntityTypeConcept      EntityType = "CONCEPT"
	EntityTypeEvent        EntityType = "EVENT"
)

// EntityTypes lists all valid entity types.
var EntityTypes = []EntityType{
	EntityTypePerson,
	EntityTypeOrganization,
	EntityTypeLocation,
	EntityTypeDate,
	EntityTypeProduct,
	EntityTypeConcept,
	EntityTypeEvent,
}

// ParseEntityType matches value case-insensitively against the entity
// type vocabulary and returns the uppercase form. Unknown types are an
// error, never silently defaulted.
func ParseEntityType(value string) (EntityType, error) {
	normalized := EntityType(strings.ToUpper(strings.TrimSpace(value)))
	for _, t := range EntityTypes {
		if normalized == t {
			return t, nil
		}
	}
	return "", fmt.Errorf("entity type must be one of %v, got: %v", EntityTypes, value)
}

// Entity represents a named entity node in the knowledge graph.
// Identity is the ID field, distinct from the graph engine's internal
// vertex id.
type Entity struct {
	ID               uuid.UUID   `json:"id"`
	Name             string      `json:"name"`
	Type             EntityType  `json:"type"`
	Confidence       float64     `json:"confidence"`
	SourceIDs        []uuid.UUID `json:"source_ids,omitempty"`
	ExtractionMethod string      `json:"extraction_method,omitempty"`
	CreatedAt        time.Time   `json:"created_at,omitempty"`
	UpdatedAt        time.Time   `json:"updated_at,omitempty"`
}
