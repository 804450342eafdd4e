package extraction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/siherrmann/kgraph/agtype"
	"github.com/siherrmann/kgraph/cypher"
	"github.com/siherrmann/kgraph/database"
	"github.com/siherrmann/kgraph/helper"
	"github.com/siherrmann/kgraph/model"
)

// RunResult summarizes one extraction run over a source. Errors holds
// aggregated per-record failures that were skipped; a non-empty list
// does not mean the run failed.
type RunResult struct {
	SourceID      uuid.UUID `json:"source_id"`
	Chunks        int       `json:"chunks"`
	Entities      int       `json:"entities"`
	Relationships int       `json:"relationships"`
	Errors        []string  `json:"errors,omitempty"`
}

// Pipeline runs entity and relationship extraction over sources and
// persists the results into the knowledge graph. A bad entity or
// relationship is skipped and reported in the run result; transport
// failures abort the run and mark the source FAILED.
type Pipeline struct {
	MaxChunkSize int
	Overlap      int

	graph                 database.GraphDBHandlerFunctions
	sources               database.SourcesDBHandlerFunctions
	entityExtractor       EntityExtractor
	relationshipExtractor RelationshipExtractor
	logger                *slog.Logger
}

// NewPipeline creates a new extraction pipeline.
func NewPipeline(
	graph database.GraphDBHandlerFunctions,
	sources database.SourcesDBHandlerFunctions,
	entityExtractor EntityExtractor,
	relationshipExtractor RelationshipExtractor,
	logger *slog.Logger,
) (*Pipeline, error) {
	if graph == nil {
		return nil, helper.NewError("pipeline validation", fmt.Errorf("graph handler is nil"))
	}
	if sources == nil {
		return nil, helper.NewError("pipeline validation", fmt.Errorf("sources handler is nil"))
	}
	if entityExtractor == nil || relationshipExtractor == nil {
		return nil, helper.NewError("pipeline validation", fmt.Errorf("extractors must not be nil"))
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Pipeline{
		MaxChunkSize:          DefaultMaxChunkSize,
		Overlap:               DefaultOverlap,
		graph:                 graph,
		sources:               sources,
		entityExtractor:       entityExtractor,
		relationshipExtractor: relationshipExtractor,
		logger:                logger,
	}, nil
}

// ProcessSource runs extraction over one source: chunk, extract
// entities, extract relationships, persist. The document node is
// created once per source with chunk_index 0; all provenance edges
// point at it.
func (p *Pipeline) ProcessSource(ctx context.Context, sourceID uuid.UUID) (*RunResult, error) {
	source, err := p.sources.SelectSource(sourceID)
	if err != nil {
		return nil, helper.NewError("load source", err)
	}

	chunks := SplitText(source.Content, p.MaxChunkSize, p.Overlap)
	result := &RunResult{SourceID: sourceID, Chunks: len(chunks)}
	p.logger.Info("Starting extraction", slog.String("source", source.Name), slog.Int("chunks", len(chunks)))

	p.updateProgress(sourceID, progress("chunking", len(chunks), 0, 0, 0))

	_, err = p.graph.CreateDocument(cypher.DocumentMerge{
		ID:          sourceID,
		Title:       source.Name,
		ChunkIndex:  0,
		TextSnippet: TextSnippet(source.Content, model.MaxSnippetLength),
	})
	if err != nil {
		return nil, p.fail(sourceID, helper.NewError("create document", err))
	}

	cache := newEntityCache()

	for _, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, p.fail(sourceID, err)
		}

		candidates, err := p.entityExtractor.ExtractEntities(ctx, chunk.Text)
		if err != nil {
			return nil, p.fail(sourceID, helper.NewError("extract entities", err))
		}

		for _, candidate := range candidates {
			_, err := p.findOrCreateEntity(cache, candidate, sourceID)
			if err != nil {
				if recoverable(err) {
					message := fmt.Sprintf("skipped entity %v: %v", candidate.Name, err)
					result.Errors = append(result.Errors, message)
					p.logger.Warn("Skipping entity", slog.String("name", candidate.Name), slog.Any("error", err))
					continue
				}
				return nil, p.fail(sourceID, helper.NewError("store entity", err))
			}
			result.Entities++
		}

		if len(candidates) >= 2 {
			relationships, err := p.relationshipExtractor.ExtractRelationships(ctx, chunk.Text, candidates)
			if err != nil {
				return nil, p.fail(sourceID, helper.NewError("extract relationships", err))
			}

			for _, candidate := range relationships {
				sourceEntityID, okSource := cache.get(candidate.Entity1Name)
				targetEntityID, okTarget := cache.get(candidate.Entity2Name)
				if !okSource || !okTarget {
					message := fmt.Sprintf("skipped relationship %v (%v -> %v): unresolved endpoint", candidate.Type, candidate.Entity1Name, candidate.Entity2Name)
					result.Errors = append(result.Errors, message)
					continue
				}

				created, err := p.graph.CreateRelationship(cypher.RelationshipCreate{
					SourceID:    sourceEntityID,
					TargetID:    targetEntityID,
					Type:        candidate.Type,
					Description: candidate.Description,
					SourceIDs:   []uuid.UUID{sourceID},
					Confidence:  candidate.Confidence,
				})
				if err != nil {
					if recoverable(err) {
						result.Errors = append(result.Errors, fmt.Sprintf("skipped relationship %v: %v", candidate.Type, err))
						continue
					}
					return nil, p.fail(sourceID, helper.NewError("store relationship", err))
				}
				if created == nil {
					result.Errors = append(result.Errors, fmt.Sprintf("skipped relationship %v: endpoint missing in graph", candidate.Type))
					continue
				}
				result.Relationships++
			}
		}

		p.updateProgress(sourceID, progress("extracting_entities", len(chunks), chunk.Index+1, result.Entities, result.Relationships))
	}

	if _, err := p.sources.UpdateSourceStatus(sourceID, model.ExtractionStatusCompleted, progress("completed", len(chunks), len(chunks), result.Entities, result.Relationships), nil); err != nil {
		p.logger.Warn("Failed to mark source completed", slog.String("source_id", sourceID.String()), slog.Any("error", err))
	}

	p.logger.Info("Extraction completed",
		slog.String("source", source.Name),
		slog.Int("entities", result.Entities),
		slog.Int("relationships", result.Relationships),
		slog.Int("skipped", len(result.Errors)))
	return result, nil
}

// findOrCreateEntity resolves an entity candidate to an id, creating
// the entity and its provenance edges if it is new. Creation is
// serialized per name through the run-scoped cache, so two chunks
// mentioning the same new name cannot race into two nodes.
func (p *Pipeline) findOrCreateEntity(cache *entityCache, candidate ExtractedEntity, sourceID uuid.UUID) (uuid.UUID, error) {
	lock := cache.nameLock(candidate.Name)
	lock.Lock()
	defer lock.Unlock()

	if id, ok := cache.get(candidate.Name); ok {
		return id, nil
	}

	existing, err := p.graph.FindEntityByName(candidate.Name)
	if err != nil {
		return uuid.Nil, helper.NewError("find entity by name", err)
	}
	if existing != nil {
		cache.set(candidate.Name, existing.ID)
		return existing.ID, nil
	}

	entityType, err := model.ParseEntityType(candidate.Type)
	if err != nil {
		return uuid.Nil, &model.ValidationError{
			Message: "extracted entity failed validation",
			Fields:  []model.FieldError{{Field: "type", Message: err.Error()}},
		}
	}
	if candidate.Confidence < 0 || candidate.Confidence > 1 {
		return uuid.Nil, &model.ValidationError{
			Message: "extracted entity failed validation",
			Fields:  []model.FieldError{{Field: "confidence", Message: fmt.Sprintf("must be between 0 and 1, got %v", candidate.Confidence)}},
		}
	}

	id := uuid.New()
	_, err = p.graph.CreateEntity(cypher.EntityCreate{
		ID:               id,
		Name:             candidate.Name,
		Type:             entityType,
		SourceIDs:        []uuid.UUID{sourceID},
		Confidence:       candidate.Confidence,
		ExtractionMethod: model.DefaultExtractionMethod,
	})
	if err != nil {
		return uuid.Nil, helper.NewError("create entity", err)
	}

	p.graph.LinkEntityToDocument(id, sourceID, 0, 1)
	p.graph.LinkEntityToSource(id, sourceID, 0, candidate.Confidence, model.DefaultExtractionMethod)

	cache.set(candidate.Name, id)
	return id, nil
}

// fail marks the source FAILED with the error message and returns the
// error for the caller.
func (p *Pipeline) fail(sourceID uuid.UUID, err error) error {
	message := err.Error()
	if _, updateErr := p.sources.UpdateSourceStatus(sourceID, model.ExtractionStatusFailed, nil, &message); updateErr != nil {
		p.logger.Error("Failed to record extraction failure", slog.String("source_id", sourceID.String()), slog.Any("error", updateErr))
	}
	return err
}

func (p *Pipeline) updateProgress(sourceID uuid.UUID, metadata model.Metadata) {
	if _, err := p.sources.UpdateSourceStatus(sourceID, model.ExtractionStatusProcessing, metadata, nil); err != nil {
		p.logger.Warn("Failed to update extraction progress", slog.String("source_id", sourceID.String()), slog.Any("error", err))
	}
}

func progress(stage string, totalChunks int, processedChunks int, entities int, relationships int) model.Metadata {
	return model.Metadata{
		"current_stage":           stage,
		"total_chunks":            totalChunks,
		"processed_chunks":        processedChunks,
		"entities_extracted":      entities,
		"relationships_extracted": relationships,
	}
}

// recoverable reports whether err is a per-record parse or validation
// failure that should be skipped instead of aborting the run.
func recoverable(err error) bool {
	var validationErr *model.ValidationError
	var parseErr *agtype.ParseError
	return errors.As(err, &validationErr) || errors.As(err, &parseErr)
}

// entityCache is the run-scoped name to id map with one lock per
// entity name.
type entityCache struct {
	mu    sync.Mutex
	ids   map[string]uuid.UUID
	locks map[string]*sync.Mutex
}

func newEntityCache() *entityCache {
	return &entityCache{
		ids:   map[string]uuid.UUID{},
		locks: map[string]*sync.Mutex{},
	}
}

func (c *entityCache) nameLock(name string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	lock, ok := c.locks[name]
	if !ok {
		lock = &sync.Mutex{}
		c.locks[name] = lock
	}
	return lock
}

func (c *entityCache) get(name string) (uuid.UUID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.ids[name]
	return id, ok
}

func (c *entityCache) set(name string, id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids[name] = id
}
