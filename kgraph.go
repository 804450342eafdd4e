package kgraph

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/siherrmann/kgraph/core/extraction"
	"github.com/siherrmann/kgraph/database"
	"github.com/siherrmann/kgraph/helper"
	"github.com/siherrmann/kgraph/model"
)

// KGraph provides a unified interface to the knowledge graph and the
// sources store.
type KGraph struct {
	DB       *helper.Database
	Graph    *database.GraphDBHandler
	Sources  *database.SourcesDBHandler
	Pipeline *extraction.Pipeline // Optional extraction pipeline
	// Logging
	log *slog.Logger
}

// NewKGraph creates a new KGraph instance with all handlers initialized.
// The AGE graph is created if it does not exist yet.
func NewKGraph(config *helper.DatabaseConfiguration) (*KGraph, error) {
	// Logger
	opts := helper.PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{
			Level: slog.LevelInfo,
		},
	}
	logger := slog.New(helper.NewPrettyHandler(os.Stdout, opts))

	// Initialize database
	db := helper.NewDatabase("kgraph", config, logger)

	graphName := config.GraphName
	if graphName == "" {
		graphName = helper.DefaultGraphName
	}

	// force=false to not reload if functions already exist
	graph, err := database.NewGraphDBHandler(db, graphName)
	if err != nil {
		return nil, helper.NewError("create graph handler", err)
	}

	sources, err := database.NewSourcesDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create sources handler", err)
	}

	return &KGraph{
		DB:      db,
		Graph:   graph,
		Sources: sources,
		log:     logger,
	}, nil
}

// Close closes the database connection
func (k *KGraph) Close() error {
	if k.DB != nil && k.DB.Instance != nil {
		return k.DB.Instance.Close()
	}
	return nil
}

// UsePipeline wires an extraction pipeline with the given extractors.
// Extractors are typically LLM-backed; any implementation of the
// extractor interfaces works.
func (k *KGraph) UsePipeline(entityExtractor extraction.EntityExtractor, relationshipExtractor extraction.RelationshipExtractor) error {
	pipeline, err := extraction.NewPipeline(k.Graph, k.Sources, entityExtractor, relationshipExtractor, k.log)
	if err != nil {
		return helper.NewError("create extraction pipeline", err)
	}
	k.Pipeline = pipeline
	return nil
}

// UploadSource stores a new source document with status PENDING.
func (k *KGraph) UploadSource(name string, content string) (*model.Source, error) {
	source := &model.Source{
		Name:    name,
		Content: content,
	}
	if err := k.Sources.InsertSource(source); err != nil {
		return nil, helper.NewError("insert source", err)
	}

	k.log.Info("Uploaded source", slog.String("source_id", source.ID.String()), slog.String("name", source.Name))
	return source, nil
}

// ProcessSource runs the extraction pipeline over an uploaded source:
// chunk the content, extract entities and relationships, and persist
// them into the knowledge graph with provenance edges.
func (k *KGraph) ProcessSource(ctx context.Context, sourceID uuid.UUID) (*extraction.RunResult, error) {
	if k.Pipeline == nil {
		return nil, helper.NewError("process source", fmt.Errorf("pipeline not set, use UsePipeline() first"))
	}
	return k.Pipeline.ProcessSource(ctx, sourceID)
}

// Statistics returns entity and relationship counts for the graph.
func (k *KGraph) Statistics() (*model.GraphStatistics, error) {
	return k.Graph.SelectGraphStatistics()
}
