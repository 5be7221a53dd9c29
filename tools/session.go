package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonwraymond/notebookmcp/backend/local"
	"github.com/jonwraymond/notebookmcp/jupyter"
)

func boolPtr(b bool) *bool { return &b }

type sessionInfo struct {
	SessionID  string `json:"session_id"`
	KernelID   string `json:"kernel_id"`
	Status     string `json:"status"`
	KernelName string `json:"kernel_name,omitempty"`
	CreatedAt  string `json:"created_at"`
}

func kernelSession(k jupyter.Kernel) sessionInfo {
	return sessionInfo{
		SessionID:  k.ID,
		KernelID:   k.ID,
		Status:     string(k.Status),
		KernelName: k.Name,
		CreatedAt:  k.StartedAt,
	}
}

func sessionIDSchema() map[string]any {
	return schema(map[string]any{
		"session_id": stringProp("Session id or kernel id returned by session_create or session_connect"),
	}, "session_id")
}

func (ts *toolset) sessionTools() []local.ToolDef {
	return []local.ToolDef{
		{
			Name:        SessionCreate,
			Title:       "Create session",
			Description: "Start a new kernel. With notebook_path, open that notebook in a new notebook session.",
			InputSchema: schema(map[string]any{
				"name":          stringProp("Kernel spec name (default python3)"),
				"notebook_path": stringProp("Relative .ipynb path to bind the kernel to"),
			}),
			Tags:    []string{"session", "kernel"},
			Handler: ts.sessionCreate,
		},
		{
			Name:        SessionList,
			Title:       "List sessions",
			Description: "List running kernels as sessions.",
			InputSchema: schema(map[string]any{}),
			Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
			Tags:        []string{"session", "kernel"},
			Handler:     ts.sessionList,
		},
		{
			Name:        SessionConnect,
			Title:       "Connect to session",
			Description: "Find the active notebook session for a notebook path or a kernel id.",
			InputSchema: schema(map[string]any{
				"notebook_path": stringProp("Notebook path of the session"),
				"kernel_id":     stringProp("Kernel id of the session"),
			}),
			Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
			Tags:        []string{"session", "notebook"},
			Handler:     ts.sessionConnect,
		},
		{
			Name:        SessionDelete,
			Title:       "Delete session",
			Description: "Shut down the kernel of a session and discard its stored images.",
			InputSchema: sessionIDSchema(),
			Annotations: &mcp.ToolAnnotations{DestructiveHint: boolPtr(true)},
			Tags:        []string{"session", "kernel"},
			Handler:     ts.sessionDelete,
		},
		{
			Name:        SessionInterrupt,
			Title:       "Interrupt session",
			Description: "Interrupt the code currently running in a session.",
			InputSchema: sessionIDSchema(),
			Tags:        []string{"session", "kernel"},
			Handler:     ts.sessionInterrupt,
		},
		{
			Name:        SessionRestart,
			Title:       "Restart session",
			Description: "Restart the kernel of a session, clearing all variables.",
			InputSchema: sessionIDSchema(),
			Annotations: &mcp.ToolAnnotations{DestructiveHint: boolPtr(true)},
			Tags:        []string{"session", "kernel"},
			Handler:     ts.sessionRestart,
		},
	}
}

func (ts *toolset) sessionCreate(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	name, _, err := stringArg(args, "name", stringRule{maxLen: maxKernelName})
	if err != nil {
		return fromError(err), nil
	}
	if name == "" {
		name = jupyter.DefaultKernelName
	}
	nbPath, hasPath, err := stringArg(args, "notebook_path", stringRule{maxLen: maxNotebookPath})
	if err != nil {
		return fromError(err), nil
	}

	if hasPath {
		if err := validateNotebookPath(nbPath); err != nil {
			return fromError(err), nil
		}
		s, err := ts.client.CreateSession(ctx, nbPath, name)
		if err != nil {
			return fromError(err), nil
		}
		ts.logger.Info("session created", "session_id", s.ID, "kernel_id", s.Kernel.ID, "notebook_path", s.Path)
		return success(struct {
			SessionID    string `json:"session_id"`
			KernelID     string `json:"kernel_id"`
			NotebookPath string `json:"notebook_path"`
			Status       string `json:"status"`
		}{s.ID, s.Kernel.ID, s.Path, string(s.Kernel.ExecutionState)}), nil
	}

	k, err := ts.client.CreateKernel(ctx, name)
	if err != nil {
		return fromError(err), nil
	}
	ts.logger.Info("kernel created", "kernel_id", k.ID, "kernel_name", k.Name)
	info := kernelSession(k)
	info.KernelName = ""
	return success(info), nil
}

func (ts *toolset) sessionList(ctx context.Context, _ map[string]any) (*mcp.CallToolResult, error) {
	kernels, err := ts.client.ListKernels(ctx)
	if err != nil {
		return fromError(err), nil
	}
	sessions := make([]sessionInfo, 0, len(kernels))
	for _, k := range kernels {
		sessions = append(sessions, kernelSession(k))
	}
	return success(struct {
		Sessions []sessionInfo `json:"sessions"`
	}{sessions}), nil
}

func (ts *toolset) sessionConnect(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	nbPath, hasPath, err := stringArg(args, "notebook_path", stringRule{maxLen: maxConnectPath})
	if err != nil {
		return fromError(err), nil
	}
	kernelID, hasKernel, err := stringArg(args, "kernel_id", stringRule{maxLen: maxKernelID})
	if err != nil {
		return fromError(err), nil
	}
	if !hasPath && !hasKernel {
		return fromError(jupyter.NewValidationError("either notebook_path or kernel_id is required")), nil
	}

	var (
		s     jupyter.Session
		found bool
	)
	if hasPath {
		s, found, err = ts.client.SessionByPath(ctx, nbPath)
	} else {
		s, found, err = ts.client.SessionByKernelID(ctx, kernelID)
	}
	if err != nil {
		return fromError(err), nil
	}
	if !found {
		if hasPath {
			return failure(CodeSessionNotFound, "no active session for notebook: "+nbPath), nil
		}
		return failure(CodeSessionNotFound, "no active session for kernel: "+kernelID), nil
	}

	return success(struct {
		SessionID    string `json:"session_id"`
		KernelID     string `json:"kernel_id"`
		NotebookPath string `json:"notebook_path"`
		Status       string `json:"status"`
		Connected    bool   `json:"connected"`
	}{s.ID, s.Kernel.ID, s.Path, string(s.Kernel.ExecutionState), true}), nil
}

func (ts *toolset) sessionDelete(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	handle, err := requiredString(args, "session_id", maxSessionID)
	if err != nil {
		return fromError(err), nil
	}
	kernelID := ts.kernelFor(ctx, handle)

	deleted, err := ts.client.DeleteKernel(ctx, kernelID)
	if err != nil {
		// A kernel that is already gone leaves nothing to own its images.
		if jupyter.CodeOf(err) == jupyter.CodeKernelNotFound {
			if n := ts.purgeImages(handle, kernelID); n > 0 {
				ts.logger.Info("images of missing kernel purged", "session_id", handle, "kernel_id", kernelID, "images_purged", n)
			}
		}
		return fromError(err), nil
	}

	purged := ts.purgeImages(handle, kernelID)
	ts.logger.Info("session deleted", "session_id", handle, "kernel_id", kernelID, "images_purged", purged)

	id := deleted.ID
	if id == "" {
		id = kernelID
	}
	return success(struct {
		SessionID    string `json:"session_id"`
		Status       string `json:"status"`
		ImagesPurged int    `json:"images_purged"`
	}{id, deleted.Status, purged}), nil
}

func (ts *toolset) purgeImages(handle, kernelID string) int {
	n := len(ts.images.Purge(handle))
	if kernelID != handle {
		n += len(ts.images.Purge(kernelID))
	}
	return n
}

func (ts *toolset) sessionInterrupt(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	return ts.kernelAction(ctx, args, ts.client.InterruptKernel)
}

func (ts *toolset) sessionRestart(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	return ts.kernelAction(ctx, args, ts.client.RestartKernel)
}

func (ts *toolset) kernelAction(ctx context.Context, args map[string]any, action func(context.Context, string) (jupyter.Kernel, error)) (*mcp.CallToolResult, error) {
	handle, err := requiredString(args, "session_id", maxSessionID)
	if err != nil {
		return fromError(err), nil
	}
	k, err := action(ctx, ts.kernelFor(ctx, handle))
	if err != nil {
		return fromError(err), nil
	}
	return success(struct {
		SessionID string `json:"session_id"`
		KernelID  string `json:"kernel_id"`
		Status    string `json:"status"`
	}{handle, k.ID, string(k.Status)}), nil
}
