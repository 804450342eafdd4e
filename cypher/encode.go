// Package cypher builds Cypher statements for the Apache AGE graph
// extension. Free text only ever enters a statement as an escaped
// property value; labels, relationship types and identifiers come from
// closed vocabularies validated at build time.
package cypher

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// escapeString makes a value safe for embedding inside a single-quoted
// Cypher literal. The backslash is escaped first so an input ending in
// a backslash cannot neutralize the quote escape that follows.
func escapeString(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	value = strings.ReplaceAll(value, `'`, `\'`)
	return value
}

// QuoteString returns value as a single-quoted Cypher string literal.
func QuoteString(value string) string {
	return "'" + escapeString(value) + "'"
}

// QuoteUUID returns id as a single-quoted string literal.
func QuoteUUID(id uuid.UUID) string {
	return "'" + id.String() + "'"
}

// QuoteTimestamp returns t as a single-quoted RFC 3339 literal in UTC.
func QuoteTimestamp(t time.Time) string {
	return "'" + t.UTC().Format(time.RFC3339Nano) + "'"
}

// FormatFloat returns the canonical literal form of f.
func FormatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// FormatInt returns the canonical literal form of i.
func FormatInt(i int) string {
	return strconv.Itoa(i)
}

// FormatBool returns the Cypher literal form of b.
func FormatBool(b bool) string {
	return strconv.FormatBool(b)
}

// UUIDList returns ids as a JSON array literal of strings, the wire
// form used for source_ids properties. A nil list encodes as [].
func UUIDList(ids []uuid.UUID) string {
	values := make([]string, 0, len(ids))
	for _, id := range ids {
		values = append(values, id.String())
	}
	encoded, err := json.Marshal(values)
	if err != nil {
		return "[]"
	}
	return string(encoded)
}
