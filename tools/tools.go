package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jonwraymond/notebookmcp/backend/local"
	"github.com/jonwraymond/notebookmcp/imagestore"
	"github.com/jonwraymond/notebookmcp/jupyter"
	"github.com/jonwraymond/notebookmcp/logging"
	"github.com/jonwraymond/notebookmcp/session"
)

// Namespace is the backend name under which the tools are registered.
const Namespace = "jupyter"

// Tool names.
const (
	SessionCreate    = "session_create"
	SessionList      = "session_list"
	SessionConnect   = "session_connect"
	SessionDelete    = "session_delete"
	SessionInterrupt = "session_interrupt"
	SessionRestart   = "session_restart"
	ExecuteCode      = "execute_code"
	GetVariables     = "get_variables"
	GetDataFrameInfo = "get_dataframe_info"
	FileList         = "file_list"
	NotebookCreate   = "notebook_create"
	NotebookRead     = "notebook_read"
	NotebookAddCell  = "notebook_add_cell"
	GetImageResource = "get_image_resource"
)

// ErrConfiguration indicates missing dependencies.
var ErrConfiguration = errors.New("tools: configuration error")

// Client is the subset of the notebook server API the tools use.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: failures should be *jupyter.Error so codes reach the caller.
type Client interface {
	Health(ctx context.Context) (jupyter.Health, error)
	CreateKernel(ctx context.Context, name string) (jupyter.Kernel, error)
	ListKernels(ctx context.Context) ([]jupyter.Kernel, error)
	DeleteKernel(ctx context.Context, kernelID string) (jupyter.DeletedKernel, error)
	InterruptKernel(ctx context.Context, kernelID string) (jupyter.Kernel, error)
	RestartKernel(ctx context.Context, kernelID string) (jupyter.Kernel, error)
	CreateSession(ctx context.Context, notebookPath, kernelName string) (jupyter.Session, error)
	SessionByPath(ctx context.Context, notebookPath string) (jupyter.Session, bool, error)
	SessionByKernelID(ctx context.Context, kernelID string) (jupyter.Session, bool, error)
	Execute(ctx context.Context, kernelID string, req jupyter.ExecuteRequest) (jupyter.ExecuteResult, error)
	Variables(ctx context.Context, kernelID string) ([]jupyter.Variable, error)
	Variable(ctx context.Context, kernelID, name string) (jupyter.Variable, error)
	ListContents(ctx context.Context, dir string) (jupyter.ContentsList, error)
	Contents(ctx context.Context, path string) (jupyter.Notebook, error)
	CreateNotebook(ctx context.Context, path string) (jupyter.CreatedContent, error)
	OperateCell(ctx context.Context, path string, op jupyter.CellOperation) error
}

// Resolver maps session handles to kernel ids.
type Resolver interface {
	Lookup(ctx context.Context, handle string) session.Resolution
}

// Deps are the collaborators of the tool set.
type Deps struct {
	// Client talks to the notebook server. Required.
	Client Client

	// Resolver maps session handles to kernel ids. Required.
	Resolver Resolver

	// Images keeps execution outputs. Required.
	Images *imagestore.Store

	// Logger is optional.
	Logger logging.Logger
}

func (d Deps) validate() error {
	var missing []string
	if d.Client == nil {
		missing = append(missing, "Client")
	}
	if d.Resolver == nil {
		missing = append(missing, "Resolver")
	}
	if d.Images == nil {
		missing = append(missing, "Images")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrConfiguration, strings.Join(missing, ", "))
	}
	return nil
}

type toolset struct {
	client   Client
	resolver Resolver
	images   *imagestore.Store
	logger   logging.Logger
}

// New returns the "jupyter" backend with every notebook tool registered.
// Starting the backend probes server health and only logs on failure.
func New(deps Deps) (*local.Backend, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	ts := &toolset{
		client:   deps.Client,
		resolver: deps.Resolver,
		images:   deps.Images,
		logger:   logging.OrNop(deps.Logger),
	}

	b := local.New(Namespace, local.WithStart(ts.probe))
	for _, def := range ts.definitions() {
		if err := b.Register(def); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func (ts *toolset) definitions() []local.ToolDef {
	defs := make([]local.ToolDef, 0, 14)
	defs = append(defs, ts.sessionTools()...)
	defs = append(defs, ts.executionTools()...)
	defs = append(defs, ts.notebookTools()...)
	defs = append(defs, ts.imageTools()...)
	return defs
}

func (ts *toolset) probe(ctx context.Context) error {
	h, err := ts.client.Health(ctx)
	if err != nil {
		ts.logger.Warn("notebook server health check failed", "code", jupyter.CodeOf(err), "error", err)
		return nil
	}
	ts.logger.Info("notebook server reachable",
		"status", h.Status,
		"version", h.Version,
		"kernels_active", h.KernelsActive,
	)
	return nil
}

// kernelFor resolves a session handle to the kernel id to address.
func (ts *toolset) kernelFor(ctx context.Context, handle string) string {
	res := ts.resolver.Lookup(ctx, handle)
	if res.Outcome == session.Resolved {
		ts.logger.Debug("session handle resolved", "session_id", handle, "kernel_id", res.KernelID)
	}
	return res.KernelID
}

func schema(props map[string]any, required ...string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func stringProp(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}
