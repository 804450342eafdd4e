package cypher

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/kgraph/model"
)

// Node labels and edge types used in the knowledge graph. These are a
// closed vocabulary; they are never taken from input.
const (
	LabelEntity   = "Entity"
	LabelDocument = "Document"

	EdgeRelatedTo     = "RELATED_TO"
	EdgeMentionedIn   = "MENTIONED_IN"
	EdgeExtractedFrom = "EXTRACTED_FROM"
)

// defaultLimit is applied when a caller passes a non-positive limit.
const defaultLimit = 100

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	return limit
}

// EntityCreate carries the typed arguments for an entity CREATE
// statement.
type EntityCreate struct {
	ID               uuid.UUID
	Name             string
	Type             model.EntityType
	SourceIDs        []uuid.UUID
	Confidence       float64
	ExtractionMethod string
	CreatedAt        time.Time
}

// CreateEntity builds a statement creating a new entity node. It
// always creates; deduplication happens in the caller before this
// statement is built.
func CreateEntity(entity EntityCreate) Statement {
	method := entity.ExtractionMethod
	if method == "" {
		method = model.DefaultExtractionMethod
	}
	now := QuoteTimestamp(entity.CreatedAt)

	text := fmt.Sprintf(
		"CREATE (e:%v {id: %v, name: %v, type: %v, source_ids: %v, confidence: %v, extraction_method: %v, created_at: %v, updated_at: %v}) RETURN e",
		LabelEntity,
		QuoteUUID(entity.ID),
		QuoteString(entity.Name),
		QuoteString(string(entity.Type)),
		UUIDList(entity.SourceIDs),
		FormatFloat(entity.Confidence),
		QuoteString(method),
		now,
		now,
	)
	return Statement{Text: text, Columns: []string{"e"}, Shape: ShapeVertex}
}

// DocumentMerge carries the typed arguments for a document MERGE
// statement.
type DocumentMerge struct {
	ID          uuid.UUID
	Title       string
	ChunkIndex  int
	TextSnippet string
	CreatedAt   time.Time
}

// MergeDocument builds an idempotent merge of a document node keyed by
// (id, chunk_index). Title, snippet and created_at are overwritten on
// an existing node. The snippet is truncated to the snippet limit.
func MergeDocument(document DocumentMerge) Statement {
	snippet := document.TextSnippet
	if runes := []rune(snippet); len(runes) > model.MaxSnippetLength {
		snippet = string(runes[:model.MaxSnippetLength])
	}

	text := fmt.Sprintf(
		"MERGE (d:%v {id: %v, chunk_index: %v}) SET d.title = %v, d.text_snippet = %v, d.created_at = %v RETURN d",
		LabelDocument,
		QuoteUUID(document.ID),
		FormatInt(document.ChunkIndex),
		QuoteString(document.Title),
		QuoteString(snippet),
		QuoteTimestamp(document.CreatedAt),
	)
	return Statement{Text: text, Columns: []string{"d"}, Shape: ShapeVertex}
}

// RelationshipCreate carries the typed arguments for a relationship
// CREATE statement. SourceID and TargetID are entity UUIDs, not graph
// ids.
type RelationshipCreate struct {
	SourceID    uuid.UUID
	TargetID    uuid.UUID
	Type        string
	Description string
	SourceIDs   []uuid.UUID
	Confidence  float64
}

// CreateRelationship builds a statement creating a directed RELATED_TO
// edge between two already existing entities. If either endpoint is
// missing the match yields nothing and the statement returns zero
// rows; callers check for that instead of assuming success.
func CreateRelationship(relationship RelationshipCreate) Statement {
	text := fmt.Sprintf(
		"MATCH (e1:%v {id: %v}), (e2:%v {id: %v}) CREATE (e1)-[r:%v {relationship_type: %v, description: %v, confidence: %v, source_ids: %v}]->(e2) RETURN r",
		LabelEntity,
		QuoteUUID(relationship.SourceID),
		LabelEntity,
		QuoteUUID(relationship.TargetID),
		EdgeRelatedTo,
		QuoteString(relationship.Type),
		QuoteString(relationship.Description),
		FormatFloat(relationship.Confidence),
		UUIDList(relationship.SourceIDs),
	)
	return Statement{Text: text, Columns: []string{"r"}, Shape: ShapeEdge}
}

// LinkEntityToDocument builds a MENTIONED_IN provenance edge from an
// entity to a document chunk.
func LinkEntityToDocument(entityID uuid.UUID, documentID uuid.UUID, chunkIndex int, mentionCount int) Statement {
	text := fmt.Sprintf(
		"MATCH (e:%v {id: %v}), (d:%v {id: %v, chunk_index: %v}) CREATE (e)-[:%v {mention_count: %v, positions: [], context_snippets: []}]->(d)",
		LabelEntity,
		QuoteUUID(entityID),
		LabelDocument,
		QuoteUUID(documentID),
		FormatInt(chunkIndex),
		EdgeMentionedIn,
		FormatInt(mentionCount),
	)
	return Statement{Text: text, Shape: ShapeNone}
}

// LinkEntityToSource builds an EXTRACTED_FROM provenance edge from an
// entity to the document it was extracted from.
func LinkEntityToSource(entityID uuid.UUID, documentID uuid.UUID, chunkIndex int, confidence float64, extractionMethod string, extractionDate time.Time) Statement {
	if extractionMethod == "" {
		extractionMethod = model.DefaultExtractionMethod
	}
	text := fmt.Sprintf(
		"MATCH (e:%v {id: %v}), (d:%v {id: %v, chunk_index: %v}) CREATE (e)-[:%v {extraction_date: %v, confidence: %v, extraction_method: %v}]->(d)",
		LabelEntity,
		QuoteUUID(entityID),
		LabelDocument,
		QuoteUUID(documentID),
		FormatInt(chunkIndex),
		EdgeExtractedFrom,
		QuoteTimestamp(extractionDate),
		FormatFloat(confidence),
		QuoteString(extractionMethod),
	)
	return Statement{Text: text, Shape: ShapeNone}
}

// FindEntityByName builds an exact, case-sensitive name lookup
// returning the first match only.
func FindEntityByName(name string) Statement {
	text := fmt.Sprintf(
		"MATCH (e:%v {name: %v}) RETURN e LIMIT 1",
		LabelEntity,
		QuoteString(name),
	)
	return Statement{Text: text, Columns: []string{"e"}, Shape: ShapeVertex}
}

// EntitiesBySource builds a lookup of all entities extracted from a
// source document.
func EntitiesBySource(sourceID uuid.UUID, limit int) Statement {
	text := fmt.Sprintf(
		"MATCH (e:%v)-[:%v]->(d:%v {id: %v}) RETURN e LIMIT %v",
		LabelEntity,
		EdgeExtractedFrom,
		LabelDocument,
		QuoteUUID(sourceID),
		FormatInt(clampLimit(limit)),
	)
	return Statement{Text: text, Columns: []string{"e"}, Shape: ShapeVertex}
}

// RelationshipsBySource builds a lookup of all relationships whose
// source_ids contains the given source. Each row is a composite map
// embedding both endpoint vertices and the edge.
func RelationshipsBySource(sourceID uuid.UUID, limit int) Statement {
	text := fmt.Sprintf(
		"MATCH (e1:%v)-[r:%v]->(e2:%v) WHERE %v IN r.source_ids RETURN {source_entity: e1, relationship: r, target_entity: e2} LIMIT %v",
		LabelEntity,
		EdgeRelatedTo,
		LabelEntity,
		QuoteUUID(sourceID),
		FormatInt(clampLimit(limit)),
	)
	return Statement{Text: text, Columns: []string{"result"}, Shape: ShapeComposite}
}

// EntitiesByType builds a lookup of all entities with the given type.
func EntitiesByType(entityType model.EntityType, limit int) Statement {
	text := fmt.Sprintf(
		"MATCH (e:%v {type: %v}) RETURN e LIMIT %v",
		LabelEntity,
		QuoteString(string(entityType)),
		FormatInt(clampLimit(limit)),
	)
	return Statement{Text: text, Columns: []string{"e"}, Shape: ShapeVertex}
}

// RelatedEntities builds a lookup of all entities connected to the
// given entity by a RELATED_TO edge in either direction. Each row is a
// composite map with the neighbor vertex and the connecting edge;
// direction is recovered from the edge's endpoint ids.
func RelatedEntities(entityID uuid.UUID, limit int) Statement {
	text := fmt.Sprintf(
		"MATCH (e:%v {id: %v})-[r:%v]-(other:%v) RETURN {entity: other, relationship: r} LIMIT %v",
		LabelEntity,
		QuoteUUID(entityID),
		EdgeRelatedTo,
		LabelEntity,
		FormatInt(clampLimit(limit)),
	)
	return Statement{Text: text, Columns: []string{"result"}, Shape: ShapeComposite}
}

// EntityCount builds a count of all entity nodes.
func EntityCount() Statement {
	text := fmt.Sprintf("MATCH (e:%v) RETURN count(e)", LabelEntity)
	return Statement{Text: text, Columns: []string{"count"}, Shape: ShapeCount}
}

// RelationshipCount builds a count of all RELATED_TO edges.
func RelationshipCount() Statement {
	text := fmt.Sprintf("MATCH ()-[r:%v]->() RETURN count(r)", EdgeRelatedTo)
	return Statement{Text: text, Columns: []string{"count"}, Shape: ShapeCount}
}

// EntityTypeCounts builds a per-type count of entity nodes.
func EntityTypeCounts() Statement {
	text := fmt.Sprintf("MATCH (e:%v) RETURN e.type, count(e)", LabelEntity)
	return Statement{Text: text, Columns: []string{"type", "count"}, Shape: ShapeComposite}
}

// RelationshipTypeCounts builds a per-type count of RELATED_TO edges.
func RelationshipTypeCounts() Statement {
	text := fmt.Sprintf("MATCH ()-[r:%v]->() RETURN r.relationship_type, count(r)", EdgeRelatedTo)
	return Statement{Text: text, Columns: []string{"type", "count"}, Shape: ShapeComposite}
}

// DeleteEntity builds a detach-delete of an entity node, destroying
// all incident edges. The returned count reports whether a node was
// deleted.
func DeleteEntity(entityID uuid.UUID) Statement {
	text := fmt.Sprintf(
		"MATCH (e:%v {id: %v}) DETACH DELETE e RETURN count(e)",
		LabelEntity,
		QuoteUUID(entityID),
	)
	return Statement{Text: text, Columns: []string{"deleted"}, Shape: ShapeCount}
}
