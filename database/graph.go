package database

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/kgraph/agtype"
	"github.com/siherrmann/kgraph/cypher"
	"github.com/siherrmann/kgraph/helper"
	"github.com/siherrmann/kgraph/model"
	kgsql "github.com/siherrmann/kgraph/sql"
)

// GraphDBHandlerFunctions defines the interface for knowledge graph operations.
type GraphDBHandlerFunctions interface {
	CreateEntity(entity cypher.EntityCreate) (*model.Entity, error)
	FindEntityByName(name string) (*model.Entity, error)
	CreateDocument(document cypher.DocumentMerge) (*model.Document, error)
	CreateRelationship(relationship cypher.RelationshipCreate) (*model.Relationship, error)
	LinkEntityToDocument(entityID uuid.UUID, documentID uuid.UUID, chunkIndex int, mentionCount int)
	LinkEntityToSource(entityID uuid.UUID, documentID uuid.UUID, chunkIndex int, confidence float64, extractionMethod string)
	SelectEntitiesBySource(sourceID uuid.UUID, limit int) ([]*model.Entity, error)
	SelectRelationshipsBySource(sourceID uuid.UUID, limit int) ([]*model.Relationship, error)
	SelectEntitiesByType(entityType model.EntityType, limit int) ([]*model.Entity, error)
	SelectRelatedEntities(entityID uuid.UUID, limit int) ([]*model.Relationship, error)
	SelectGraphStatistics() (*model.GraphStatistics, error)
	DeleteEntity(entityID uuid.UUID) (bool, error)
}

// GraphDBHandler handles knowledge graph operations via Apache AGE.
type GraphDBHandler struct {
	db        *helper.Database
	graphName string
}

// NewGraphDBHandler creates a new graph database handler. It loads the
// AGE extension and creates the graph if it does not exist yet.
func NewGraphDBHandler(db *helper.Database, graphName string) (*GraphDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}
	if !cypher.ValidIdentifier(graphName) {
		return nil, helper.NewError("graph name validation", fmt.Errorf("invalid graph name: %v", graphName))
	}

	graphDbHandler := &GraphDBHandler{
		db:        db,
		graphName: graphName,
	}

	err := kgsql.Init(db.Instance)
	if err != nil {
		return nil, helper.NewError("init extensions", err)
	}

	err = graphDbHandler.ensureGraph()
	if err != nil {
		return nil, helper.NewError("ensure graph", err)
	}

	db.Logger.Info("Initialized GraphDBHandler", slog.String("graph", graphName))

	return graphDbHandler, nil
}

// ensureGraph creates the AGE graph if it does not exist.
func (h *GraphDBHandler) ensureGraph() error {
	var exists bool
	err := h.db.Instance.QueryRow(
		`SELECT EXISTS(SELECT 1 FROM ag_catalog.ag_graph WHERE name = $1);`,
		h.graphName,
	).Scan(&exists)
	if err != nil {
		return helper.NewError("check graph existence", err)
	}
	if exists {
		return nil
	}

	tx, err := h.db.Instance.Begin()
	if err != nil {
		return helper.NewError("begin transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`LOAD 'age';`); err != nil {
		return helper.NewError("load age", err)
	}
	if _, err := tx.Exec(`SET LOCAL search_path = ag_catalog, "$user", public;`); err != nil {
		return helper.NewError("set search path", err)
	}
	if _, err := tx.Exec(`SELECT create_graph($1);`, h.graphName); err != nil {
		return helper.NewError("create graph", err)
	}
	if err := tx.Commit(); err != nil {
		return helper.NewError("commit", err)
	}

	h.db.Logger.Info("Created graph", slog.String("graph", h.graphName))
	return nil
}

// queryCypher executes a built statement and returns the raw rows as
// column name to agtype text. Each call runs in its own transaction
// because AGE has to be loaded on the pooled connection the statement
// runs on; no transaction spans multiple statements.
func (h *GraphDBHandler) queryCypher(statement cypher.Statement) ([]map[string]string, error) {
	query, err := statement.ToSQL(h.graphName)
	if err != nil {
		return nil, helper.NewError("build query", err)
	}

	tx, err := h.db.Instance.Begin()
	if err != nil {
		return nil, helper.NewError("begin transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`LOAD 'age';`); err != nil {
		return nil, helper.NewError("load age", err)
	}
	if _, err := tx.Exec(`SET LOCAL search_path = ag_catalog, "$user", public;`); err != nil {
		return nil, helper.NewError("set search path", err)
	}

	rows, err := tx.Query(query)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, helper.NewError("columns", err)
	}

	var results []map[string]string
	for rows.Next() {
		values := make([]sql.NullString, len(columns))
		scanArgs := make([]any, len(columns))
		for i := range values {
			scanArgs[i] = &values[i]
		}
		if err := rows.Scan(scanArgs...); err != nil {
			return nil, helper.NewError("scan", err)
		}

		row := map[string]string{}
		for i, column := range columns {
			row[column] = values[i].String
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, helper.NewError("rows error", err)
	}
	rows.Close()

	if err := tx.Commit(); err != nil {
		return nil, helper.NewError("commit", err)
	}
	return results, nil
}

// CreateEntity creates a new entity node. It always creates;
// deduplication is the caller's responsibility via FindEntityByName.
// Execution failures are propagated, never swallowed.
func (h *GraphDBHandler) CreateEntity(entity cypher.EntityCreate) (*model.Entity, error) {
	if entity.CreatedAt.IsZero() {
		entity.CreatedAt = time.Now().UTC()
	}

	rows, err := h.queryCypher(cypher.CreateEntity(entity))
	if err != nil {
		return nil, helper.NewError("create entity", err)
	}
	if len(rows) == 0 {
		return nil, helper.NewError("create entity", fmt.Errorf("no rows returned"))
	}

	created, err := h.entityFromRaw(rows[0]["e"])
	if err != nil {
		return nil, helper.NewError("parse created entity", err)
	}

	h.db.Logger.Info("Created entity", slog.String("name", entity.Name), slog.String("type", string(entity.Type)))
	return created, nil
}

// FindEntityByName looks up an entity by exact, case-sensitive name
// and returns the first match only. A missing entity is (nil, nil),
// not an error. Parse and validation failures on the matched row are
// logged and treated as absent; only execution failures propagate.
func (h *GraphDBHandler) FindEntityByName(name string) (*model.Entity, error) {
	rows, err := h.queryCypher(cypher.FindEntityByName(name))
	if err != nil {
		return nil, helper.NewError("find entity by name", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	entity, err := h.entityFromRaw(rows[0]["e"])
	if err != nil {
		h.db.Logger.Warn("Discarding unparseable entity match", slog.String("name", name), slog.Any("error", err))
		return nil, nil
	}
	return entity, nil
}

// CreateDocument merges a document node keyed by (id, chunk_index),
// overwriting title, snippet and created_at on an existing node.
func (h *GraphDBHandler) CreateDocument(document cypher.DocumentMerge) (*model.Document, error) {
	if document.CreatedAt.IsZero() {
		document.CreatedAt = time.Now().UTC()
	}

	rows, err := h.queryCypher(cypher.MergeDocument(document))
	if err != nil {
		return nil, helper.NewError("create document", err)
	}
	if len(rows) == 0 {
		return nil, helper.NewError("create document", fmt.Errorf("no rows returned"))
	}

	created, err := h.documentFromRaw(rows[0]["d"])
	if err != nil {
		return nil, helper.NewError("parse created document", err)
	}

	h.db.Logger.Info("Created/merged document", slog.String("title", document.Title), slog.Int("chunk_index", document.ChunkIndex))
	return created, nil
}

// CreateRelationship creates a directed RELATED_TO edge between two
// already existing entities. If either endpoint is missing the match
// yields zero rows and (nil, nil) is returned; callers check for nil
// and skip instead of assuming success.
func (h *GraphDBHandler) CreateRelationship(relationship cypher.RelationshipCreate) (*model.Relationship, error) {
	rows, err := h.queryCypher(cypher.CreateRelationship(relationship))
	if err != nil {
		return nil, helper.NewError("create relationship", err)
	}
	if len(rows) == 0 {
		h.db.Logger.Warn("Relationship endpoints missing, skipped",
			slog.String("source_id", relationship.SourceID.String()),
			slog.String("target_id", relationship.TargetID.String()),
			slog.String("type", relationship.Type))
		return nil, nil
	}

	created, err := h.relationshipFromRaw(rows[0]["r"])
	if err != nil {
		return nil, helper.NewError("parse created relationship", err)
	}

	h.db.Logger.Info("Created relationship", slog.String("type", relationship.Type))
	return created, nil
}

// LinkEntityToDocument creates a MENTIONED_IN provenance edge.
// Provenance is auxiliary to the primary data, so failures are logged
// and swallowed; they must never abort the caller's larger operation.
func (h *GraphDBHandler) LinkEntityToDocument(entityID uuid.UUID, documentID uuid.UUID, chunkIndex int, mentionCount int) {
	_, err := h.queryCypher(cypher.LinkEntityToDocument(entityID, documentID, chunkIndex, mentionCount))
	if err != nil {
		h.db.Logger.Warn("Failed to link entity to document",
			slog.String("entity_id", entityID.String()),
			slog.String("document_id", documentID.String()),
			slog.Any("error", err))
	}
}

// LinkEntityToSource creates an EXTRACTED_FROM provenance edge.
// Failures are logged and swallowed, same as LinkEntityToDocument.
func (h *GraphDBHandler) LinkEntityToSource(entityID uuid.UUID, documentID uuid.UUID, chunkIndex int, confidence float64, extractionMethod string) {
	_, err := h.queryCypher(cypher.LinkEntityToSource(entityID, documentID, chunkIndex, confidence, extractionMethod, time.Now().UTC()))
	if err != nil {
		h.db.Logger.Warn("Failed to link entity to source",
			slog.String("entity_id", entityID.String()),
			slog.String("document_id", documentID.String()),
			slog.Any("error", err))
	}
}

// SelectEntitiesBySource returns all entities extracted from a source.
// This is the strict path: a parse or validation failure on any row
// aborts the whole call instead of silently dropping bad rows.
func (h *GraphDBHandler) SelectEntitiesBySource(sourceID uuid.UUID, limit int) ([]*model.Entity, error) {
	return h.selectEntities(cypher.EntitiesBySource(sourceID, limit))
}

// SelectEntitiesByType returns all entities with the given type,
// strict like SelectEntitiesBySource.
func (h *GraphDBHandler) SelectEntitiesByType(entityType model.EntityType, limit int) ([]*model.Entity, error) {
	return h.selectEntities(cypher.EntitiesByType(entityType, limit))
}

func (h *GraphDBHandler) selectEntities(statement cypher.Statement) ([]*model.Entity, error) {
	rows, err := h.queryCypher(statement)
	if err != nil {
		return nil, helper.NewError("select entities", err)
	}

	var entities []*model.Entity
	for _, row := range rows {
		entity, err := h.entityFromRaw(row["e"])
		if err != nil {
			return nil, helper.NewError("parse entity", err)
		}
		entities = append(entities, entity)
	}
	return entities, nil
}

// SelectRelationshipsBySource returns all relationships whose
// source_ids contains the given source, with both endpoint entities
// attached. Rows go through the structural vertex/edge parse so the
// edge direction can be checked against the endpoints; any failure
// aborts the call.
func (h *GraphDBHandler) SelectRelationshipsBySource(sourceID uuid.UUID, limit int) ([]*model.Relationship, error) {
	rows, err := h.queryCypher(cypher.RelationshipsBySource(sourceID, limit))
	if err != nil {
		return nil, helper.NewError("select relationships by source", err)
	}

	var relationships []*model.Relationship
	for _, row := range rows {
		relationship, err := h.relationshipFromComposite(row["result"])
		if err != nil {
			return nil, helper.NewError("parse relationship", err)
		}
		relationships = append(relationships, relationship)
	}
	return relationships, nil
}

// relationshipFromComposite parses a composite row of the shape
// {source_entity: <vertex>, relationship: <edge>, target_entity:
// <vertex>} and validates that the edge actually runs from source to
// target.
func (h *GraphDBHandler) relationshipFromComposite(raw string) (*model.Relationship, error) {
	value, err := agtype.Unmarshal(raw)
	if err != nil {
		return nil, err
	}
	composite, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected composite map, got %T", value)
	}

	sourceVertex, err := agtype.ToVertex(composite["source_entity"])
	if err != nil {
		return nil, err
	}
	targetVertex, err := agtype.ToVertex(composite["target_entity"])
	if err != nil {
		return nil, err
	}
	edge, err := agtype.ToEdge(composite["relationship"])
	if err != nil {
		return nil, err
	}
	if edge.StartID != sourceVertex.ID || edge.EndID != targetVertex.ID {
		return nil, fmt.Errorf("edge direction mismatch: edge %v->%v, vertices %v->%v",
			edge.StartID, edge.EndID, sourceVertex.ID, targetVertex.ID)
	}

	relationship, err := relationshipFromProperties(edge.Properties)
	if err != nil {
		return nil, err
	}
	if relationship.Source, err = entityFromProperties(sourceVertex.Properties); err != nil {
		return nil, err
	}
	if relationship.Target, err = entityFromProperties(targetVertex.Properties); err != nil {
		return nil, err
	}
	return relationship, nil
}

// SelectRelatedEntities returns all relationships incident to the
// given entity in either direction, with the neighbor entity attached
// on the side it occupies. The queried entity's side is left nil.
func (h *GraphDBHandler) SelectRelatedEntities(entityID uuid.UUID, limit int) ([]*model.Relationship, error) {
	rows, err := h.queryCypher(cypher.RelatedEntities(entityID, limit))
	if err != nil {
		return nil, helper.NewError("select related entities", err)
	}

	var relationships []*model.Relationship
	for _, row := range rows {
		value, err := agtype.Unmarshal(row["result"])
		if err != nil {
			return nil, helper.NewError("parse related entity", err)
		}
		composite, ok := value.(map[string]any)
		if !ok {
			return nil, helper.NewError("parse related entity", fmt.Errorf("expected composite map, got %T", value))
		}

		neighborVertex, err := agtype.ToVertex(composite["entity"])
		if err != nil {
			return nil, helper.NewError("parse related entity", err)
		}
		edge, err := agtype.ToEdge(composite["relationship"])
		if err != nil {
			return nil, helper.NewError("parse related entity", err)
		}

		relationship, err := relationshipFromProperties(edge.Properties)
		if err != nil {
			return nil, helper.NewError("parse related entity", err)
		}
		neighbor, err := entityFromProperties(neighborVertex.Properties)
		if err != nil {
			return nil, helper.NewError("parse related entity", err)
		}
		if edge.EndID == neighborVertex.ID {
			relationship.Target = neighbor
		} else {
			relationship.Source = neighbor
		}
		relationships = append(relationships, relationship)
	}
	return relationships, nil
}

// SelectGraphStatistics returns entity/relationship totals and
// per-type counts.
func (h *GraphDBHandler) SelectGraphStatistics() (*model.GraphStatistics, error) {
	statistics := &model.GraphStatistics{
		EntityTypeCounts:       map[string]int64{},
		RelationshipTypeCounts: map[string]int64{},
	}

	var err error
	if statistics.EntityCount, err = h.selectCount(cypher.EntityCount(), "count"); err != nil {
		return nil, helper.NewError("entity count", err)
	}
	if statistics.RelationshipCount, err = h.selectCount(cypher.RelationshipCount(), "count"); err != nil {
		return nil, helper.NewError("relationship count", err)
	}
	if err = h.selectTypeCounts(cypher.EntityTypeCounts(), statistics.EntityTypeCounts); err != nil {
		return nil, helper.NewError("entity type counts", err)
	}
	if err = h.selectTypeCounts(cypher.RelationshipTypeCounts(), statistics.RelationshipTypeCounts); err != nil {
		return nil, helper.NewError("relationship type counts", err)
	}
	return statistics, nil
}

// DeleteEntity detach-deletes an entity node, destroying all incident
// edges. It reports whether a node was deleted.
func (h *GraphDBHandler) DeleteEntity(entityID uuid.UUID) (bool, error) {
	rows, err := h.queryCypher(cypher.DeleteEntity(entityID))
	if err != nil {
		return false, helper.NewError("delete entity", err)
	}
	if len(rows) == 0 {
		return false, nil
	}

	deleted, err := countFromRaw(rows[0]["deleted"])
	if err != nil {
		return false, helper.NewError("parse delete count", err)
	}
	if deleted > 0 {
		h.db.Logger.Info("Deleted entity", slog.String("id", entityID.String()))
	}
	return deleted > 0, nil
}

func (h *GraphDBHandler) selectCount(statement cypher.Statement, column string) (int64, error) {
	rows, err := h.queryCypher(statement)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return countFromRaw(rows[0][column])
}

func (h *GraphDBHandler) selectTypeCounts(statement cypher.Statement, counts map[string]int64) error {
	rows, err := h.queryCypher(statement)
	if err != nil {
		return err
	}
	for _, row := range rows {
		value, err := agtype.Unmarshal(row["type"])
		if err != nil {
			return err
		}
		name, ok := value.(string)
		if !ok {
			return fmt.Errorf("expected type name string, got %T", value)
		}
		count, err := countFromRaw(row["count"])
		if err != nil {
			return err
		}
		counts[name] = count
	}
	return nil
}

// entityFromRaw parses an agtype vertex payload into a validated
// domain entity.
func (h *GraphDBHandler) entityFromRaw(raw string) (*model.Entity, error) {
	value, err := agtype.Unmarshal(raw)
	if err != nil {
		return nil, err
	}
	properties, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected property map, got %T", value)
	}
	return entityFromProperties(properties)
}

func (h *GraphDBHandler) relationshipFromRaw(raw string) (*model.Relationship, error) {
	value, err := agtype.Unmarshal(raw)
	if err != nil {
		return nil, err
	}
	properties, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected property map, got %T", value)
	}
	return relationshipFromProperties(properties)
}

func (h *GraphDBHandler) documentFromRaw(raw string) (*model.Document, error) {
	value, err := agtype.Unmarshal(raw)
	if err != nil {
		return nil, err
	}
	properties, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected property map, got %T", value)
	}

	rawID, ok := properties["id"].(string)
	if !ok {
		return nil, fmt.Errorf("document id missing or not a string")
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("document id is not a valid UUID: %v", rawID)
	}

	document := &model.Document{ID: id}
	if chunkIndex, ok := properties["chunk_index"].(int64); ok {
		document.ChunkIndex = int(chunkIndex)
	}
	if title, ok := properties["title"].(string); ok {
		document.Title = title
	}
	if snippet, ok := properties["text_snippet"].(string); ok {
		document.TextSnippet = snippet
	}
	if createdAt, ok := properties["created_at"].(string); ok {
		if parsed, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			document.CreatedAt = parsed
		}
	}
	return document, nil
}

func entityFromProperties(properties map[string]any) (*model.Entity, error) {
	entityProperties, err := model.NewEntityProperties(properties)
	if err != nil {
		return nil, err
	}
	return entityProperties.Entity()
}

func relationshipFromProperties(properties map[string]any) (*model.Relationship, error) {
	relationshipProperties, err := model.NewRelationshipProperties(properties)
	if err != nil {
		return nil, err
	}
	return relationshipProperties.Relationship()
}

func countFromRaw(raw string) (int64, error) {
	value, err := agtype.Unmarshal(raw)
	if err != nil {
		return 0, err
	}
	count, ok := value.(int64)
	if !ok {
		return 0, fmt.Errorf("expected integer count, got %T", value)
	}
	return count, nil
}
