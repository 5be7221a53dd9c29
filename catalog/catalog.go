// Package catalog indexes the notebook tools for search and documentation.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jonwraymond/tooldiscovery/index"
	"github.com/jonwraymond/tooldiscovery/search"
	"github.com/jonwraymond/tooldiscovery/tooldoc"
	"github.com/jonwraymond/toolfoundation/model"

	"github.com/jonwraymond/notebookmcp/backend"
)

// DefaultSearchLimit bounds Search when limit is not positive.
const DefaultSearchLimit = 10

// ErrAggregatorRequired is returned by Build without an aggregator.
var ErrAggregatorRequired = errors.New("catalog: aggregator is required")

// Catalog is a searchable snapshot of the aggregated tools.
type Catalog struct {
	idx   index.Index
	docs  *tooldoc.InMemoryStore
	tools []model.Tool
}

// Build indexes every tool of the enabled backends with a BM25 searcher and
// registers a summary document per tool.
func Build(ctx context.Context, agg *backend.Aggregator) (*Catalog, error) {
	if agg == nil {
		return nil, ErrAggregatorRequired
	}
	all, err := agg.ListAllTools(ctx)
	if err != nil {
		return nil, err
	}

	idx := index.NewInMemoryIndex(index.IndexOptions{
		Searcher: search.NewBM25Searcher(search.BM25Config{}),
	})
	docs := tooldoc.NewInMemoryStore(tooldoc.StoreOptions{Index: idx})

	for _, t := range all {
		id := backend.FormatToolID(t.Namespace, t.Name)
		if err := idx.RegisterTool(t, model.NewLocalBackend(id)); err != nil {
			return nil, fmt.Errorf("index %s: %w", id, err)
		}
		if err := docs.RegisterDoc(id, tooldoc.DocEntry{
			Summary: summaryOf(t),
			Notes:   notesOf(t),
		}); err != nil {
			return nil, fmt.Errorf("document %s: %w", id, err)
		}
	}
	return &Catalog{idx: idx, docs: docs, tools: all}, nil
}

// Tools returns the indexed tools ordered by ID.
func (c *Catalog) Tools() []model.Tool {
	return append([]model.Tool(nil), c.tools...)
}

// Search ranks tools against query.
func (c *Catalog) Search(query string, limit int) ([]index.Summary, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	return c.idx.Search(query, limit)
}

// Describe returns the documentation of a tool ID such as
// "jupyter:execute_code". A bare tool name is looked up in every namespace.
func (c *Catalog) Describe(id string, level tooldoc.DetailLevel) (tooldoc.ToolDoc, error) {
	if !strings.Contains(id, ":") {
		for _, t := range c.tools {
			if t.Name == id {
				id = backend.FormatToolID(t.Namespace, t.Name)
				break
			}
		}
	}
	return c.docs.DescribeTool(id, level)
}

func summaryOf(t model.Tool) string {
	if t.Title != "" {
		return t.Title
	}
	desc, _, _ := strings.Cut(t.Description, ".")
	return desc
}

func notesOf(t model.Tool) string {
	a := t.Annotations
	if a == nil {
		return ""
	}
	var notes []string
	if a.ReadOnlyHint {
		notes = append(notes, "Read-only.")
	}
	if a.DestructiveHint != nil && *a.DestructiveHint {
		notes = append(notes, "Destructive: discards kernel state.")
	}
	if a.IdempotentHint {
		notes = append(notes, "Idempotent.")
	}
	if a.OpenWorldHint != nil && *a.OpenWorldHint {
		notes = append(notes, "Runs arbitrary code on the notebook server.")
	}
	return strings.Join(notes, " ")
}
