package backend

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jonwraymond/toolfoundation/model"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ErrInvalidToolID is returned for malformed tool IDs.
var ErrInvalidToolID = errors.New("invalid tool ID format")

// Aggregator combines tools from every enabled backend.
type Aggregator struct {
	registry *Registry
}

// NewAggregator creates a new tool aggregator.
func NewAggregator(registry *Registry) *Aggregator {
	return &Aggregator{registry: registry}
}

// Registry returns the underlying registry.
func (a *Aggregator) Registry() *Registry {
	return a.registry
}

// ListAllTools returns tools from all enabled backends, ordered by ID.
// A tool without a namespace inherits its backend's name.
func (a *Aggregator) ListAllTools(ctx context.Context) ([]model.Tool, error) {
	all := make([]model.Tool, 0)
	for _, b := range a.registry.ListEnabled() {
		tools, err := b.ListTools(ctx)
		if err != nil {
			return nil, fmt.Errorf("list tools of %s: %w", b.Name(), err)
		}
		for i := range tools {
			if tools[i].Namespace == "" {
				tools[i].Namespace = b.Name()
			}
			all = append(all, tools[i])
		}
	}
	sort.Slice(all, func(i, j int) bool {
		return FormatToolID(all[i].Namespace, all[i].Name) < FormatToolID(all[j].Namespace, all[j].Name)
	})
	return all, nil
}

// Execute invokes "backend:tool" through the registry.
func (a *Aggregator) Execute(ctx context.Context, toolID string, args map[string]any) (*mcp.CallToolResult, error) {
	backendName, tool, err := ParseToolID(toolID)
	if err != nil {
		return nil, err
	}
	if backendName == "" {
		return nil, fmt.Errorf("%w: %q has no backend", ErrInvalidToolID, toolID)
	}

	b, ok := a.registry.Get(backendName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBackendNotFound, backendName)
	}
	if !b.Enabled() {
		return nil, fmt.Errorf("%w: %s", ErrBackendDisabled, backendName)
	}
	return b.Execute(ctx, tool, args)
}

// ParseToolID splits a tool ID into backend and tool name.
func ParseToolID(id string) (backendName, tool string, err error) {
	backendName, tool, err = model.ParseToolID(id)
	if err != nil {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidToolID, id)
	}
	return backendName, tool, nil
}

// FormatToolID builds a tool ID from backend and tool name.
func FormatToolID(backendName, tool string) string {
	if backendName == "" {
		return tool
	}
	return backendName + ":" + tool
}
