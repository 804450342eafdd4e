package model

import "github.com/google/uuid"

// Relationship represents a directed RELATED_TO edge between two
// entities. Source and Target are populated by composite queries that
// return the endpoints along with the edge.
type Relationship struct {
	Type        string      `json:"relationship_type"`
	Description string      `json:"description"`
	Confidence  float64     `json:"confidence"`
	SourceIDs   []uuid.UUID `json:"source_ids,omitempty"`
	Source      *Entity     `json:"source_entity,omitempty"`
	Target      *Entity     `json:"target_entity,omitempty"`
}
