package agtype

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshal(t *testing.T) {
	t.Run("Vertex with properties is flattened", func(t *testing.T) {
		raw := `{"id": 1125899906842625, "label": "Entity", "properties": {"id": "test-uuid", "name": "Alice", "type": "PERSON"}}::vertex`
		result, err := Unmarshal(raw)
		require.NoError(t, err, "expected no error parsing vertex")
		properties, ok := result.(map[string]any)
		require.True(t, ok, "expected a property map")
		assert.Equal(t, "Alice", properties["name"], "expected name from properties")
		assert.Equal(t, "PERSON", properties["type"], "expected type from properties")
		assert.Equal(t, "test-uuid", properties["id"], "expected domain id, not graph id")
	})

	t.Run("Edge with properties is flattened", func(t *testing.T) {
		raw := `{"id": 1970324836974593, "label": "RELATED_TO", "start_id": 123, "end_id": 456, "properties": {"relationship_type": "works_at", "confidence": 0.9}}::edge`
		result, err := Unmarshal(raw)
		require.NoError(t, err, "expected no error parsing edge")
		properties := result.(map[string]any)
		assert.Equal(t, "works_at", properties["relationship_type"], "expected relationship type from properties")
		assert.Equal(t, 0.9, properties["confidence"], "expected confidence from properties")
	})

	t.Run("Vertex without marker", func(t *testing.T) {
		result, err := Unmarshal(`{"id": 123, "label": "Entity", "properties": {"name": "Bob"}}`)
		require.NoError(t, err, "expected no error without marker")
		assert.Equal(t, "Bob", result.(map[string]any)["name"], "expected properties to be lifted")
	})

	t.Run("Composite with embedded markers keeps nesting", func(t *testing.T) {
		raw := `{"relationship": {"id": 1970324836974593, "label": "RELATED_TO", "properties": {"relationship_type": "founded_by"}}::edge, ` +
			`"source_entity": {"id": 1125899906842625, "label": "Entity", "properties": {"name": "CorporationC"}}::vertex, ` +
			`"target_entity": {"id": 1125899906842626, "label": "Entity", "properties": {"name": "PersonA"}}::vertex}`
		result, err := Unmarshal(raw)
		require.NoError(t, err, "expected no error parsing composite")
		composite := result.(map[string]any)
		require.Contains(t, composite, "relationship", "expected relationship key")
		require.Contains(t, composite, "source_entity", "expected source entity key")
		require.Contains(t, composite, "target_entity", "expected target entity key")
		relationship := composite["relationship"].(map[string]any)
		assert.Equal(t, "founded_by", relationship["properties"].(map[string]any)["relationship_type"], "expected nested structure to be preserved")
		source := composite["source_entity"].(map[string]any)
		assert.Equal(t, "CorporationC", source["properties"].(map[string]any)["name"], "expected nested structure to be preserved")
	})

	t.Run("Malformed JSON fails with sample", func(t *testing.T) {
		_, err := Unmarshal(`{"id": 123, "invalid_json::vertex`)
		require.Error(t, err, "expected error for malformed JSON")
		var parseErr *ParseError
		require.True(t, errors.As(err, &parseErr), "expected a parse error")
		assert.Contains(t, parseErr.Sample, "invalid_json", "expected raw sample in error")
	})

	t.Run("Empty string yields nil", func(t *testing.T) {
		result, err := Unmarshal("")
		assert.NoError(t, err, "expected no error for empty input")
		assert.Nil(t, result, "expected nil result for empty input")

		result, err = Unmarshal("   ")
		assert.NoError(t, err, "expected no error for blank input")
		assert.Nil(t, result, "expected nil result for blank input")
	})

	t.Run("Vertex without properties key stays as is", func(t *testing.T) {
		result, err := Unmarshal(`{"id": 123, "label": "Entity", "name": "DirectValue"}::vertex`)
		require.NoError(t, err, "expected no error for legacy format")
		assert.Equal(t, "DirectValue", result.(map[string]any)["name"], "expected object to pass through")
	})

	t.Run("Deeply nested properties", func(t *testing.T) {
		raw := `{"id": 123, "label": "Entity", "properties": {"name": "Test", "metadata": {"created_at": "2025-11-03", "tags": ["a", "b"]}, "confidence": 0.95}}::vertex`
		result, err := Unmarshal(raw)
		require.NoError(t, err, "expected no error for nested properties")
		properties := result.(map[string]any)
		assert.Equal(t, "Test", properties["name"], "expected name")
		metadata := properties["metadata"].(map[string]any)
		assert.Equal(t, "2025-11-03", metadata["created_at"], "expected nested value")
		assert.Equal(t, []any{"a", "b"}, metadata["tags"], "expected nested list")
		assert.Equal(t, 0.95, properties["confidence"], "expected float confidence")
	})

	t.Run("Unicode in properties", func(t *testing.T) {
		raw := `{"id": 123, "label": "Entity", "properties": {"name": "Müller", "description": "Test with émojis 🎉"}}::vertex`
		result, err := Unmarshal(raw)
		require.NoError(t, err, "expected no error for unicode")
		properties := result.(map[string]any)
		assert.Equal(t, "Müller", properties["name"], "expected unicode name")
		assert.Contains(t, properties["description"], "🎉", "expected emoji to survive")
	})

	t.Run("Empty properties map", func(t *testing.T) {
		result, err := Unmarshal(`{"id": 123, "label": "Entity", "properties": {}}::vertex`)
		require.NoError(t, err, "expected no error for empty properties")
		assert.Equal(t, map[string]any{}, result, "expected empty map, not nil")
	})

	t.Run("Repeated markers are stripped", func(t *testing.T) {
		result, err := Unmarshal(`{"id": 123, "properties": {"name": "Test"}}::vertex::vertex`)
		require.NoError(t, err, "expected no error for repeated markers")
		assert.Equal(t, "Test", result.(map[string]any)["name"], "expected properties to be lifted")
	})

	t.Run("Numeric values are normalized", func(t *testing.T) {
		result, err := Unmarshal(`{"id": 123, "properties": {"count": 42, "score": 0.95, "large_num": 1234567890}}::vertex`)
		require.NoError(t, err, "expected no error for numeric values")
		properties := result.(map[string]any)
		assert.Equal(t, int64(42), properties["count"], "expected integer as int64")
		assert.Equal(t, 0.95, properties["score"], "expected float as float64")
		assert.Equal(t, int64(1234567890), properties["large_num"], "expected large integer as int64")
	})

	t.Run("Boolean and null values", func(t *testing.T) {
		result, err := Unmarshal(`{"id": 123, "properties": {"active": true, "deleted": false, "description": null}}::vertex`)
		require.NoError(t, err, "expected no error for booleans and null")
		properties := result.(map[string]any)
		assert.Equal(t, true, properties["active"], "expected true")
		assert.Equal(t, false, properties["deleted"], "expected false")
		assert.Nil(t, properties["description"], "expected nil for null")
	})

	t.Run("Scalar agtype values", func(t *testing.T) {
		result, err := Unmarshal(`42`)
		require.NoError(t, err, "expected no error for integer")
		assert.Equal(t, int64(42), result, "expected int64 count")

		result, err = Unmarshal(`"hello"`)
		require.NoError(t, err, "expected no error for string")
		assert.Equal(t, "hello", result, "expected string value")
	})
}

func TestParseValue(t *testing.T) {
	t.Run("String with marker is parsed", func(t *testing.T) {
		result := ParseValue(`{"id": 123, "label": "Entity", "properties": {"name": "Alice"}}::vertex`)
		properties, ok := result.(map[string]any)
		require.True(t, ok, "expected a map")
		assert.Equal(t, "Alice", properties["name"], "expected properties to be lifted")
	})

	t.Run("Plain string passes through", func(t *testing.T) {
		assert.Equal(t, "hello", ParseValue("hello"), "expected plain string unchanged")
	})

	t.Run("Map values are parsed recursively", func(t *testing.T) {
		value := map[string]any{
			"entity": `{"id": 123, "properties": {"name": "Bob"}}::vertex`,
			"count":  int64(5),
		}
		result := ParseValue(value).(map[string]any)
		assert.Equal(t, "Bob", result["entity"].(map[string]any)["name"], "expected embedded vertex to be parsed")
		assert.Equal(t, int64(5), result["count"], "expected scalar unchanged")
	})

	t.Run("List elements are parsed recursively", func(t *testing.T) {
		value := []any{
			`{"id": 1, "properties": {"name": "A"}}::vertex`,
			`{"id": 2, "properties": {"name": "B"}}::vertex`,
		}
		result := ParseValue(value).([]any)
		require.Len(t, result, 2, "expected both elements")
		assert.Equal(t, "A", result[0].(map[string]any)["name"], "expected first vertex parsed")
		assert.Equal(t, "B", result[1].(map[string]any)["name"], "expected second vertex parsed")
	})

	t.Run("Unparseable marker string stays unchanged", func(t *testing.T) {
		raw := `{"broken::vertex`
		assert.Equal(t, raw, ParseValue(raw), "expected malformed value to pass through")
	})
}
