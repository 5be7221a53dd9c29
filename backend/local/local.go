// Package local provides a backend whose tools are in-process handlers.
package local

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/jonwraymond/notebookmcp/backend"
	"github.com/jonwraymond/toolfoundation/model"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ErrDuplicateTool is returned when a tool name is registered twice.
var ErrDuplicateTool = errors.New("tool already registered")

// HandlerFunc handles one tool call. Tool-level failures belong in the
// result with IsError set; a returned error means the call could not run.
type HandlerFunc func(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error)

// ToolDef defines a local tool with its handler.
type ToolDef struct {
	Name        string
	Title       string
	Description string
	InputSchema map[string]any
	Annotations *mcp.ToolAnnotations
	Tags        []string
	Handler     HandlerFunc
}

// Option configures a Backend.
type Option func(*Backend)

// WithStart sets a hook run by Start.
func WithStart(fn func(ctx context.Context) error) Option {
	return func(b *Backend) { b.start = fn }
}

// WithStop sets a hook run by Stop.
func WithStop(fn func() error) Option {
	return func(b *Backend) { b.stop = fn }
}

// Backend implements backend.Backend for local tool handlers.
type Backend struct {
	name  string
	start func(ctx context.Context) error
	stop  func() error

	mu       sync.RWMutex
	handlers map[string]ToolDef
}

// New creates a new local backend.
func New(name string, opts ...Option) *Backend {
	b := &Backend{
		name:     name,
		handlers: make(map[string]ToolDef),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Kind returns the backend kind.
func (b *Backend) Kind() string {
	return "local"
}

// Name returns the backend instance name.
func (b *Backend) Name() string {
	return b.name
}

// Enabled reports true; a local backend is trimmed per tool with Unregister
// rather than switched off as a whole.
func (b *Backend) Enabled() bool {
	return true
}

// Register adds a tool. The name must be unique and a handler is required.
func (b *Backend) Register(def ToolDef) error {
	if def.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if def.Handler == nil {
		return fmt.Errorf("tool %s: handler is required", def.Name)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.handlers[def.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, def.Name)
	}
	b.handlers[def.Name] = def
	return nil
}

// MustRegister is like Register but panics on error.
func (b *Backend) MustRegister(def ToolDef) {
	if err := b.Register(def); err != nil {
		panic(err)
	}
}

// Unregister removes a tool.
func (b *Backend) Unregister(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.handlers, name)
}

// ListTools returns the registered tools ordered by name.
func (b *Backend) ListTools(_ context.Context) ([]model.Tool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]model.Tool, 0, len(b.handlers))
	for _, def := range b.handlers {
		out = append(out, model.Tool{
			Tool: mcp.Tool{
				Name:        def.Name,
				Title:       def.Title,
				Description: def.Description,
				InputSchema: def.InputSchema,
				Annotations: def.Annotations,
			},
			Namespace: b.name,
			Tags:      model.NormalizeTags(def.Tags),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Execute invokes a tool handler.
func (b *Backend) Execute(ctx context.Context, tool string, args map[string]any) (*mcp.CallToolResult, error) {
	b.mu.RLock()
	def, ok := b.handlers[tool]
	b.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", backend.ErrToolNotFound, tool)
	}
	if args == nil {
		args = map[string]any{}
	}
	return def.Handler(ctx, args)
}

// Start runs the start hook, if any.
func (b *Backend) Start(ctx context.Context) error {
	if b.start == nil {
		return nil
	}
	return b.start(ctx)
}

// Stop runs the stop hook, if any.
func (b *Backend) Stop() error {
	if b.stop == nil {
		return nil
	}
	return b.stop()
}

var _ backend.Backend = (*Backend)(nil)
