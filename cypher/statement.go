package cypher

import (
	"fmt"
	"regexp"
	"strings"
)

// ResultShape describes what a statement returns so callers know which
// parse path to use for its rows.
type ResultShape int

const (
	// ShapeNone marks statements executed for their side effect only.
	ShapeNone ResultShape = iota
	// ShapeVertex marks statements returning one vertex per row.
	ShapeVertex
	// ShapeEdge marks statements returning one edge per row.
	ShapeEdge
	// ShapeComposite marks statements returning a composite record per
	// row, e.g. a map projection embedding vertices and edges.
	ShapeComposite
	// ShapeCount marks statements returning a single integer.
	ShapeCount
)

// Statement is an opaque, fully built Cypher statement together with
// the result columns and shape it produces. The text is final; no
// values are interpolated after construction.
type Statement struct {
	Text    string
	Columns []string
	Shape   ResultShape
}

var identifierRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ValidIdentifier reports whether value is usable as a graph name,
// label or column identifier.
func ValidIdentifier(value string) bool {
	return identifierRegex.MatchString(value)
}

// ToSQL wraps the statement in AGE's cypher() table function call.
// The Cypher text is embedded via dollar quoting with a tag chosen to
// not occur in the text, so no property value can break out of the
// quoted region. Graph name and column names must be plain
// identifiers.
func (s Statement) ToSQL(graphName string) (string, error) {
	if !ValidIdentifier(graphName) {
		return "", fmt.Errorf("invalid graph name: %v", graphName)
	}

	tag := "cypher"
	for suffix := 0; strings.Contains(s.Text, "$"+tag+"$"); suffix++ {
		tag = fmt.Sprintf("cypher%v", suffix)
	}

	columns := s.Columns
	if len(columns) == 0 {
		columns = []string{"result"}
	}
	definitions := make([]string, 0, len(columns))
	for _, column := range columns {
		if !ValidIdentifier(column) {
			return "", fmt.Errorf("invalid result column name: %v", column)
		}
		definitions = append(definitions, column+" agtype")
	}

	return fmt.Sprintf(
		"SELECT * FROM cypher('%v', $%v$ %v $%v$) AS (%v);",
		graphName, tag, s.Text, tag, strings.Join(definitions, ", "),
	), nil
}
