// Package tool defines the closed set of retrieval tools offered to the model.
package tool

import (
	"errors"
	"fmt"

	"github.com/kailas-cloud/analyst/internal/domain"
)

// ErrUnknownTool is returned by Parse for names outside the tool set.
var ErrUnknownTool = errors.New("unknown tool")

// Name identifies a retrieval tool.
type Name string

const (
	// TextSearch searches narrative sections.
	TextSearch Name = "text_search"
	// TableSearch searches financial tables.
	TableSearch Name = "table_search"
)

// QueryParam is the single required argument of every tool.
const QueryParam = "query"

// Parse maps a model-supplied tool name onto the closed set.
func Parse(s string) (Name, error) {
	switch Name(s) {
	case TextSearch, TableSearch:
		return Name(s), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownTool, s)
	}
}

// Category returns the chunk category the tool filters on.
func (n Name) Category() domain.Category {
	switch n {
	case TableSearch:
		return domain.CategoryTable
	default:
		return domain.CategoryText
	}
}

// Definition is the provider-neutral description of a tool.
type Definition struct {
	Name        Name
	Description string
	Parameters  map[string]any
}

var descriptions = map[Name]string{
	TextSearch:  "Search narrative 10-K sections: risk factors, MD&A, strategy, competition.",
	TableSearch: "Search financial TABLES: income statement, balance sheet, cash flow, footnotes.",
}

// All lists every tool in a fixed order.
func All() []Name {
	return []Name{TextSearch, TableSearch}
}

// Definitions returns the definitions offered to the model on every call.
func Definitions() []Definition {
	names := All()
	defs := make([]Definition, 0, len(names))
	for _, n := range names {
		defs = append(defs, Definition{
			Name:        n,
			Description: descriptions[n],
			Parameters:  querySchema(),
		})
	}
	return defs
}

func querySchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			QueryParam: map[string]any{"type": "string"},
		},
		"required": []string{QueryParam},
	}
}
