package backend

import (
	"context"
	"errors"

	"github.com/jonwraymond/toolfoundation/model"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Common errors for backend operations.
var (
	ErrBackendNotFound = errors.New("backend not found")
	ErrBackendDisabled = errors.New("backend disabled")
	ErrToolNotFound    = errors.New("tool not found in backend")
)

// Backend is a named source of MCP tools.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: methods must honor cancellation/deadlines.
// - Errors: Execute fails only when dispatch fails; tool errors travel in the result.
type Backend interface {
	// Kind returns the backend type (e.g., "local").
	Kind() string

	// Name returns the unique instance name, used as the tool namespace.
	Name() string

	// Enabled returns whether this backend is currently enabled.
	Enabled() bool

	// ListTools returns all tools available from this backend.
	ListTools(ctx context.Context) ([]model.Tool, error)

	// Execute invokes a tool on this backend.
	Execute(ctx context.Context, tool string, args map[string]any) (*mcp.CallToolResult, error)

	// Start prepares the backend, e.g. probing a remote dependency.
	Start(ctx context.Context) error

	// Stop releases backend resources.
	Stop() error
}

// Info contains metadata about a backend.
type Info struct {
	Kind      string
	Name      string
	Enabled   bool
	ToolCount int
}

// Describe collects Info for b.
func Describe(ctx context.Context, b Backend) (Info, error) {
	tools, err := b.ListTools(ctx)
	if err != nil {
		return Info{}, err
	}
	return Info{
		Kind:      b.Kind(),
		Name:      b.Name(),
		Enabled:   b.Enabled(),
		ToolCount: len(tools),
	}, nil
}
