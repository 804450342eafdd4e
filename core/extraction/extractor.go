package extraction

import "context"

// ExtractedEntity is a raw entity candidate produced by an extractor,
// before validation against the entity type vocabulary.
type ExtractedEntity struct {
	Name       string  `json:"name"`
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
}

// ExtractedRelationship is a raw relationship candidate produced by an
// extractor. Endpoints are referenced by entity name and resolved
// against the entities found in the same run.
type ExtractedRelationship struct {
	Entity1Name string  `json:"entity1_name"`
	Entity2Name string  `json:"entity2_name"`
	Type        string  `json:"relationship_type"`
	Description string  `json:"description"`
	Confidence  float64 `json:"confidence"`
}

// EntityExtractor extracts entity candidates from a text chunk. It is
// typically backed by an LLM; the pipeline treats it as a black box.
type EntityExtractor interface {
	ExtractEntities(ctx context.Context, text string) ([]ExtractedEntity, error)
}

// RelationshipExtractor extracts relationship candidates from a text
// chunk between entities already found in that chunk.
type RelationshipExtractor interface {
	ExtractRelationships(ctx context.Context, text string, entities []ExtractedEntity) ([]ExtractedRelationship, error)
}
