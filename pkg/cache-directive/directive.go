// Package cachedirective inspects GraphQL queries for the @cache directive,
// which declares the cache id and timeout for a query, and removes the
// directive before the query is forwarded to an origin that would reject it.
package cachedirective

import (
	"bytes"
	"fmt"
	"time"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/formatter"
	"github.com/vektah/gqlparser/v2/parser"
)

// DirectiveName is the fixed name of the caching annotation.
const DirectiveName = "cache"

// Annotation holds the caching arguments declared by a query:
//
//	query Items @cache(id: "items", timeout: 60) { ... }
//
// A zero Timeout means the query declared none and the caller should fall
// back to its default.
type Annotation struct {
	ID      string
	Timeout time.Duration
}

// Parse parses GraphQL query text into a query document.
func Parse(query string) (*ast.QueryDocument, error) {
	doc, err := parser.ParseQuery(&ast.Source{Input: query})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Has reports whether any operation of the document carries the directive.
func Has(doc *ast.QueryDocument) bool {
	return find(doc) != nil
}

// Extract returns the annotation declared by the document, resolving id and
// timeout arguments that reference variables against the given variables.
// The boolean indicates whether the directive is present at all; a present
// but malformed directive returns an error.
func Extract(doc *ast.QueryDocument, variables map[string]any) (Annotation, bool, error) {
	var annotation Annotation
	directive := find(doc)
	if directive == nil {
		return annotation, false, nil
	}
	idArg := directive.Arguments.ForName("id")
	if idArg == nil {
		return annotation, true, fmt.Errorf("Missing cache id argument")
	}
	idValue, err := idArg.Value.Value(variables)
	if err != nil {
		return annotation, true, err
	}
	id, ok := idValue.(string)
	if !ok || id == "" {
		return annotation, true, fmt.Errorf("Cache id is not a string: %v", idValue)
	}
	annotation.ID = id
	if timeoutArg := directive.Arguments.ForName("timeout"); timeoutArg != nil {
		timeoutValue, err := timeoutArg.Value.Value(variables)
		if err != nil {
			return annotation, true, err
		}
		timeout, err := asSeconds(timeoutValue)
		if err != nil {
			return annotation, true, err
		}
		annotation.Timeout = timeout
	}
	return annotation, true, nil
}

// Strip removes the directive from every operation of the document.
// The rest of the document is left untouched.
func Strip(doc *ast.QueryDocument) {
	for _, op := range doc.Operations {
		if op.Directives.ForName(DirectiveName) == nil {
			continue
		}
		directives := make(ast.DirectiveList, 0, len(op.Directives)-1)
		for _, d := range op.Directives {
			if d.Name != DirectiveName {
				directives = append(directives, d)
			}
		}
		op.Directives = directives
	}
}

// Print renders the document back to query text.
func Print(doc *ast.QueryDocument) string {
	var buf bytes.Buffer
	formatter.NewFormatter(&buf).FormatQueryDocument(doc)
	return buf.String()
}

func find(doc *ast.QueryDocument) *ast.Directive {
	for _, op := range doc.Operations {
		if directive := op.Directives.ForName(DirectiveName); directive != nil {
			return directive
		}
	}
	return nil
}

// asSeconds converts a resolved timeout argument to a duration.
// Literal ints resolve to int64, variable values from JSON to float64.
func asSeconds(value any) (time.Duration, error) {
	switch timeout := value.(type) {
	case int64:
		return time.Duration(timeout) * time.Second, nil
	case float64:
		return time.Duration(timeout) * time.Second, nil
	default:
		return 0, fmt.Errorf("Cache timeout is not a number: %v", value)
	}
}
