package main

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/siherrmann/kgraph"
	"github.com/siherrmann/kgraph/core/extraction"
	"github.com/siherrmann/kgraph/helper"
)

const sampleContent = `Alice Miller joined Acme Corp in 2019 as a research engineer.
She leads the knowledge graph team in Berlin together with Bob Chen.

Acme Corp is headquartered in Berlin and builds data infrastructure.
Bob Chen previously worked at Initech before moving to Acme Corp.`

// keywordExtractor is a toy stand-in for an LLM-backed extractor. It
// recognizes a fixed vocabulary of names in the chunk text.
type keywordExtractor struct {
	known map[string]string
}

func (e *keywordExtractor) ExtractEntities(ctx context.Context, text string) ([]extraction.ExtractedEntity, error) {
	var entities []extraction.ExtractedEntity
	for name, entityType := range e.known {
		if strings.Contains(text, name) {
			entities = append(entities, extraction.ExtractedEntity{Name: name, Type: entityType, Confidence: 0.9})
		}
	}
	return entities, nil
}

func (e *keywordExtractor) ExtractRelationships(ctx context.Context, text string, entities []extraction.ExtractedEntity) ([]extraction.ExtractedRelationship, error) {
	var relationships []extraction.ExtractedRelationship
	for _, entity := range entities {
		if entity.Type != "PERSON" {
			continue
		}
		for _, other := range entities {
			if other.Type != "ORGANIZATION" {
				continue
			}
			relationships = append(relationships, extraction.ExtractedRelationship{
				Entity1Name: entity.Name,
				Entity2Name: other.Name,
				Type:        "works_at",
				Description: fmt.Sprintf("%v works at %v", entity.Name, other.Name),
				Confidence:  0.8,
			})
		}
	}
	return relationships, nil
}

func main() {
	// Start a test PostgreSQL container with the AGE extension
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(context.Background())

	// Create database configuration using the container port
	dbConfig := &helper.DatabaseConfiguration{
		Host:      "localhost",
		Port:      dbPort,
		Database:  "database",
		Username:  "user",
		Password:  "password",
		Schema:    "public",
		SSLMode:   "disable",
		GraphName: "example_graph",
	}

	k, err := kgraph.NewKGraph(dbConfig)
	if err != nil {
		log.Fatalf("Failed to create kgraph: %v", err)
	}
	defer k.Close()

	extractor := &keywordExtractor{known: map[string]string{
		"Alice Miller": "PERSON",
		"Bob Chen":     "PERSON",
		"Acme Corp":    "ORGANIZATION",
		"Initech":      "ORGANIZATION",
		"Berlin":       "LOCATION",
	}}
	if err := k.UsePipeline(extractor, extractor); err != nil {
		log.Fatalf("Failed to set up pipeline: %v", err)
	}

	// Upload and process a source document
	fmt.Println("Uploading source...")
	source, err := k.UploadSource("company_notes.txt", sampleContent)
	if err != nil {
		log.Fatalf("Failed to upload source: %v", err)
	}
	fmt.Printf("Source uploaded with ID: %s\n", source.ID)

	result, err := k.ProcessSource(context.Background(), source.ID)
	if err != nil {
		log.Fatalf("Failed to process source: %v", err)
	}
	fmt.Printf("Extracted %d entities and %d relationships from %d chunks\n",
		result.Entities, result.Relationships, result.Chunks)

	// Query the graph
	alice, err := k.Graph.FindEntityByName("Alice Miller")
	if err != nil {
		log.Fatalf("Failed to find entity: %v", err)
	}
	fmt.Printf("\nFound entity: %s (%s, confidence %.2f)\n", alice.Name, alice.Type, alice.Confidence)

	related, err := k.Graph.SelectRelatedEntities(alice.ID, 10)
	if err != nil {
		log.Fatalf("Failed to select related entities: %v", err)
	}
	fmt.Printf("\nRelationships of %s:\n", alice.Name)
	for _, relationship := range related {
		neighbor := relationship.Target
		if neighbor == nil {
			neighbor = relationship.Source
		}
		fmt.Printf("  -[%s]- %s\n", relationship.Type, neighbor.Name)
	}

	statistics, err := k.Statistics()
	if err != nil {
		log.Fatalf("Failed to select statistics: %v", err)
	}
	fmt.Printf("\nGraph statistics: %d entities, %d relationships\n",
		statistics.EntityCount, statistics.RelationshipCount)

	fmt.Println("\nBasic example completed successfully!")
}
