package local

import (
	"context"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonwraymond/notebookmcp/backend"
)

func okHandler(text string) HandlerFunc {
	return func(_ context.Context, _ map[string]any) (*mcp.CallToolResult, error) {
		return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}, nil
	}
}

func TestLocalBackend_Identity(t *testing.T) {
	b := New("jupyter")
	if b.Kind() != "local" {
		t.Errorf("Kind() = %q, want %q", b.Kind(), "local")
	}
	if b.Name() != "jupyter" {
		t.Errorf("Name() = %q, want %q", b.Name(), "jupyter")
	}
}

func TestLocalBackend_Register(t *testing.T) {
	b := New("jupyter")

	if err := b.Register(ToolDef{Name: "b_tool", Description: "B", Tags: []string{"Kernel"}, Handler: okHandler("b")}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := b.Register(ToolDef{Name: "a_tool", Handler: okHandler("a")}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := b.Register(ToolDef{Name: "a_tool", Handler: okHandler("a")}); !errors.Is(err, ErrDuplicateTool) {
		t.Errorf("Register() duplicate error = %v, want %v", err, ErrDuplicateTool)
	}
	if err := b.Register(ToolDef{Name: "no_handler"}); err == nil {
		t.Error("Register() should require a handler")
	}
	if err := b.Register(ToolDef{Handler: okHandler("x")}); err == nil {
		t.Error("Register() should require a name")
	}

	tools, err := b.ListTools(context.Background())
	if err != nil {
		t.Fatalf("ListTools() error = %v", err)
	}
	if len(tools) != 2 {
		t.Fatalf("ListTools() returned %d tools, want 2", len(tools))
	}
	if tools[0].Name != "a_tool" || tools[1].Name != "b_tool" {
		t.Errorf("ListTools() order = %s, %s", tools[0].Name, tools[1].Name)
	}
	if tools[1].Namespace != "jupyter" {
		t.Errorf("Namespace = %q, want %q", tools[1].Namespace, "jupyter")
	}
	if len(tools[1].Tags) != 1 || tools[1].Tags[0] != "kernel" {
		t.Errorf("Tags = %v, want normalized [kernel]", tools[1].Tags)
	}
}

func TestLocalBackend_Execute(t *testing.T) {
	b := New("jupyter")
	b.MustRegister(ToolDef{Name: "echo", Handler: func(_ context.Context, args map[string]any) (*mcp.CallToolResult, error) {
		if args == nil {
			t.Error("handler received nil args")
		}
		return &mcp.CallToolResult{}, nil
	}})
	ctx := context.Background()

	if _, err := b.Execute(ctx, "echo", nil); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if _, err := b.Execute(ctx, "missing", nil); !errors.Is(err, backend.ErrToolNotFound) {
		t.Errorf("Execute(missing) error = %v, want %v", err, backend.ErrToolNotFound)
	}

	b.Unregister("echo")
	b.Unregister("echo")
	if !b.Enabled() {
		t.Error("Enabled() = false after Unregister")
	}
	if tools, _ := b.ListTools(ctx); len(tools) != 0 {
		t.Errorf("ListTools() after Unregister returned %d tools", len(tools))
	}
	if _, err := b.Execute(ctx, "echo", nil); !errors.Is(err, backend.ErrToolNotFound) {
		t.Errorf("Execute(unregistered) error = %v, want %v", err, backend.ErrToolNotFound)
	}
}

func TestLocalBackend_Hooks(t *testing.T) {
	boom := errors.New("server down")
	stopped := false
	b := New("jupyter",
		WithStart(func(context.Context) error { return boom }),
		WithStop(func() error { stopped = true; return nil }),
	)

	if err := b.Start(context.Background()); !errors.Is(err, boom) {
		t.Errorf("Start() error = %v, want %v", err, boom)
	}
	if err := b.Stop(); err != nil || !stopped {
		t.Errorf("Stop() error = %v, stopped = %v", err, stopped)
	}
	if err := New("plain").Start(context.Background()); err != nil {
		t.Errorf("Start() without hook error = %v", err)
	}
}
