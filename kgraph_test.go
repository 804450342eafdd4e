package kgraph

import (
	"context"
	"fmt"
	"log"
	"strings"
	"testing"

	"github.com/siherrmann/kgraph/core/extraction"
	"github.com/siherrmann/kgraph/helper"
	"github.com/siherrmann/kgraph/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
)

var dbPort string

func TestMain(m *testing.M) {
	var teardown func(ctx context.Context, opts ...testcontainers.TerminateOption) error
	var err error
	teardown, dbPort, err = helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("error starting postgres container: %v", err)
	}

	m.Run()

	if teardown != nil && teardown(context.Background()) != nil {
		log.Fatalf("error tearing down postgres container: %v", err)
	}
}

// keywordEntityExtractor recognizes a fixed set of names in the text.
// It stands in for an LLM-backed extractor in tests.
type keywordEntityExtractor struct {
	known map[string]string
}

func (e *keywordEntityExtractor) ExtractEntities(ctx context.Context, text string) ([]extraction.ExtractedEntity, error) {
	var entities []extraction.ExtractedEntity
	for name, entityType := range e.known {
		if strings.Contains(text, name) {
			entities = append(entities, extraction.ExtractedEntity{Name: name, Type: entityType, Confidence: 0.9})
		}
	}
	return entities, nil
}

// pairRelationshipExtractor links every found entity pair with a fixed
// relationship type.
type pairRelationshipExtractor struct {
	relationshipType string
}

func (e *pairRelationshipExtractor) ExtractRelationships(ctx context.Context, text string, entities []extraction.ExtractedEntity) ([]extraction.ExtractedRelationship, error) {
	var relationships []extraction.ExtractedRelationship
	for i := 0; i < len(entities); i++ {
		for j := i + 1; j < len(entities); j++ {
			relationships = append(relationships, extraction.ExtractedRelationship{
				Entity1Name: entities[i].Name,
				Entity2Name: entities[j].Name,
				Type:        e.relationshipType,
				Description: fmt.Sprintf("%v %v %v", entities[i].Name, e.relationshipType, entities[j].Name),
				Confidence:  0.8,
			})
		}
	}
	return relationships, nil
}

func initKGraph(t *testing.T) *KGraph {
	helper.SetTestDatabaseConfigEnvs(t, dbPort)
	dbConfig, err := helper.NewDatabaseConfiguration()
	require.NoError(t, err, "failed to create database configuration")

	k, err := NewKGraph(dbConfig)
	require.NoError(t, err, "failed to create kgraph")
	require.NotNil(t, k, "expected kgraph to be non-nil")

	t.Cleanup(func() {
		k.Close()
	})

	return k
}

func TestNewKGraph(t *testing.T) {
	t.Run("Valid call NewKGraph", func(t *testing.T) {
		k := initKGraph(t)
		assert.NotNil(t, k.DB, "expected kgraph to have a database instance")
		assert.NotNil(t, k.Graph, "expected kgraph to have a graph handler")
		assert.NotNil(t, k.Sources, "expected kgraph to have a sources handler")
		assert.Nil(t, k.Pipeline, "expected pipeline to be nil initially")
	})

	t.Run("KGraph with nil database handles Close gracefully", func(t *testing.T) {
		k := &KGraph{}
		err := k.Close()
		assert.NoError(t, err, "expected Close to handle nil DB gracefully")
	})
}

func TestKGraphExtraction(t *testing.T) {
	k := initKGraph(t)

	err := k.UsePipeline(
		&keywordEntityExtractor{known: map[string]string{
			"Alice":     "PERSON",
			"Acme Corp": "ORGANIZATION",
		}},
		&pairRelationshipExtractor{relationshipType: "works_at"},
	)
	require.NoError(t, err, "failed to wire extraction pipeline")

	source, err := k.UploadSource("employment.txt", "Alice works at Acme Corp.")
	require.NoError(t, err, "failed to upload source")
	assert.Equal(t, model.ExtractionStatusPending, source.ExtractionStatus, "expected PENDING after upload")

	t.Run("Process source populates the graph", func(t *testing.T) {
		result, err := k.ProcessSource(context.Background(), source.ID)
		require.NoError(t, err, "expected no error processing source")
		assert.Equal(t, 1, result.Chunks, "expected one chunk")
		assert.Equal(t, 2, result.Entities, "expected two entities")
		assert.Equal(t, 1, result.Relationships, "expected one relationship")
		assert.Empty(t, result.Errors, "expected no skipped records")

		processed, err := k.Sources.SelectSource(source.ID)
		require.NoError(t, err, "failed to select processed source")
		assert.Equal(t, model.ExtractionStatusCompleted, processed.ExtractionStatus, "expected COMPLETED status")
		require.NotNil(t, processed.ProcessedAt, "expected processed_at to be set")
	})

	t.Run("Extracted entities are queryable", func(t *testing.T) {
		alice, err := k.Graph.FindEntityByName("Alice")
		require.NoError(t, err, "expected no error finding Alice")
		require.NotNil(t, alice, "expected Alice in the graph")
		assert.Equal(t, model.EntityTypePerson, alice.Type, "expected PERSON type")
		require.Len(t, alice.SourceIDs, 1, "expected one source id")
		assert.Equal(t, source.ID, alice.SourceIDs[0], "expected provenance to the processed source")
	})

	t.Run("Extracted relationships carry endpoints", func(t *testing.T) {
		relationships, err := k.Graph.SelectRelationshipsBySource(source.ID, 10)
		require.NoError(t, err, "expected no error selecting relationships")
		require.Len(t, relationships, 1, "expected exactly one relationship")
		assert.Equal(t, "works_at", relationships[0].Type, "expected works_at relationship")
		require.NotNil(t, relationships[0].Source, "expected source endpoint")
		require.NotNil(t, relationships[0].Target, "expected target endpoint")
	})

	t.Run("Reprocessing reuses existing entities", func(t *testing.T) {
		second, err := k.UploadSource("employment2.txt", "Alice still works at Acme Corp.")
		require.NoError(t, err, "failed to upload second source")

		result, err := k.ProcessSource(context.Background(), second.ID)
		require.NoError(t, err, "expected no error reprocessing")
		assert.Equal(t, 2, result.Entities, "expected both entities resolved")

		statistics, err := k.Statistics()
		require.NoError(t, err, "expected no error selecting statistics")
		// Alice, Acme Corp and the two document nodes are vertices; only
		// Entity vertices are counted.
		assert.Equal(t, int64(2), statistics.EntityCount, "expected no duplicate entities")
	})

	t.Run("Process without pipeline fails", func(t *testing.T) {
		bare := initKGraph(t)
		_, err := bare.ProcessSource(context.Background(), source.ID)
		assert.Error(t, err, "expected error without pipeline")
	})
}
