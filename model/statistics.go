package model

// GraphStatistics summarizes the contents of the knowledge graph.
type GraphStatistics struct {
	EntityCount            int64            `json:"entity_count"`
	RelationshipCount      int64            `json:"relationship_count"`
	EntityTypeCounts       map[string]int64 `json:"entity_type_counts"`
	RelationshipTypeCounts map[string]int64 `json:"relationship_type_counts"`
}
