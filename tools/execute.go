package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonwraymond/notebookmcp/backend/local"
	"github.com/jonwraymond/notebookmcp/imagestore"
	"github.com/jonwraymond/notebookmcp/jupyter"
)

func (ts *toolset) executionTools() []local.ToolDef {
	return []local.ToolDef{
		{
			Name:        ExecuteCode,
			Title:       "Execute code",
			Description: "Run code in a session's kernel. Returns stdout, stderr, the result value and references to any images produced.",
			InputSchema: schema(map[string]any{
				"session_id": stringProp("Session id or kernel id"),
				"code":       stringProp("Code to execute"),
				"timeout": map[string]any{
					"type":        "integer",
					"description": "Timeout in seconds (1-300, default 30)",
					"minimum":     1,
					"maximum":     maxTimeout,
				},
			}, "session_id"),
			Annotations: &mcp.ToolAnnotations{OpenWorldHint: boolPtr(true)},
			Tags:        []string{"kernel", "execute", "code"},
			Handler:     ts.executeCode,
		},
		{
			Name:        GetVariables,
			Title:       "Get variables",
			Description: "List the user variables defined in a session's kernel.",
			InputSchema: sessionIDSchema(),
			Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
			Tags:        []string{"kernel", "variables"},
			Handler:     ts.getVariables,
		},
		{
			Name:        GetDataFrameInfo,
			Title:       "Get DataFrame info",
			Description: "Describe a pandas DataFrame variable: shape, columns, dtypes, statistics and optionally the first rows.",
			InputSchema: schema(map[string]any{
				"session_id":    stringProp("Session id or kernel id"),
				"variable_name": stringProp("Name of the DataFrame variable"),
				"include_head": map[string]any{
					"type":        "boolean",
					"description": "Include the first rows (default true)",
				},
				"head_rows": map[string]any{
					"type":        "integer",
					"description": "Number of rows to include (default 5)",
					"minimum":     0,
				},
			}, "session_id", "variable_name"),
			Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
			Tags:        []string{"kernel", "variables", "dataframe", "pandas"},
			Handler:     ts.getDataFrameInfo,
		},
	}
}

type executeResponse struct {
	Stdout          string                 `json:"stdout"`
	Stderr          string                 `json:"stderr"`
	Result          json.RawMessage        `json:"result"`
	Images          []imagestore.Reference `json:"images"`
	ExecutionCount  int                    `json:"execution_count"`
	ExecutionTimeMs int64                  `json:"execution_time_ms"`
}

func (ts *toolset) executeCode(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	handle, err := requiredString(args, "session_id", maxSessionID)
	if err != nil {
		return fromError(err), nil
	}
	code, _, err := stringArg(args, "code", stringRule{allowEmpty: true, maxLen: maxCode})
	if err != nil {
		return fromError(err), nil
	}
	timeout, hasTimeout, err := intArg(args, "timeout")
	if err != nil {
		return fromError(err), nil
	}
	if !hasTimeout {
		timeout = defaultTimeout
	}
	if timeout <= 0 {
		return fromError(jupyter.NewValidationError("timeout must be positive")), nil
	}
	if timeout > maxTimeout {
		return fromError(jupyter.NewValidationError("timeout must be at most %d seconds", maxTimeout)), nil
	}

	kernelID := ts.kernelFor(ctx, handle)
	res, err := ts.client.Execute(ctx, kernelID, jupyter.ExecuteRequest{Code: code, Timeout: timeout})
	if err != nil {
		return fromError(err), nil
	}

	if !res.Success {
		if res.Error != nil {
			errCode := res.Error.Type
			if errCode == "" {
				errCode = CodeExecutionError
			}
			return failure(errCode, res.Error.Message), nil
		}
		return failure(CodeExecutionError, "code execution failed"), nil
	}

	out := executeResponse{
		Stdout:          res.Stream("stdout"),
		Stderr:          res.Stream("stderr"),
		Result:          res.Result,
		Images:          ts.storeImages(handle, res.Images),
		ExecutionCount:  res.ExecutionCount,
		ExecutionTimeMs: res.ExecutionTimeMs,
	}
	if len(out.Result) == 0 {
		out.Result = json.RawMessage("null")
	}
	return success(out), nil
}

// storeImages keeps every image under the caller's handle. Images the store
// rejects are logged and left out.
func (ts *toolset) storeImages(handle string, images []jupyter.ImageOutput) []imagestore.Reference {
	refs := make([]imagestore.Reference, 0, len(images))
	for i, img := range images {
		ref, err := ts.images.Put(handle, imagestore.Image{
			MIMEType: img.MIMEType,
			Data:     img.Data,
			Width:    img.Width,
			Height:   img.Height,
		})
		if err != nil {
			ts.logger.Warn("image not stored", "session_id", handle, "index", i, "error", err)
			continue
		}
		refs = append(refs, ref)
	}
	return refs
}

func (ts *toolset) getVariables(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	handle, err := requiredString(args, "session_id", maxSessionID)
	if err != nil {
		return fromError(err), nil
	}
	vars, err := ts.client.Variables(ctx, ts.kernelFor(ctx, handle))
	if err != nil {
		return fromError(err), nil
	}
	if vars == nil {
		vars = []jupyter.Variable{}
	}
	return success(struct {
		Variables []jupyter.Variable `json:"variables"`
	}{vars}), nil
}

type dataFrameResponse struct {
	Name        string                         `json:"name"`
	Shape       []int                          `json:"shape"`
	Columns     []string                       `json:"columns"`
	DTypes      map[string]string              `json:"dtypes"`
	Head        []map[string]any               `json:"head,omitempty"`
	Describe    map[string]jupyter.ColumnStats `json:"describe"`
	MemoryBytes int64                          `json:"memory_bytes,omitempty"`
}

func (ts *toolset) getDataFrameInfo(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	handle, err := requiredString(args, "session_id", maxSessionID)
	if err != nil {
		return fromError(err), nil
	}
	name, err := requiredString(args, "variable_name", maxVariableName)
	if err != nil {
		return fromError(err), nil
	}
	includeHead, err := boolArg(args, "include_head", true)
	if err != nil {
		return fromError(err), nil
	}
	headRows, hasRows, err := intArg(args, "head_rows")
	if err != nil {
		return fromError(err), nil
	}
	if !hasRows {
		headRows = defaultHeadRows
	}
	if headRows < 0 {
		return fromError(jupyter.NewValidationError("head_rows must not be negative")), nil
	}

	v, err := ts.client.Variable(ctx, ts.kernelFor(ctx, handle), name)
	if err != nil {
		return fromError(err), nil
	}
	if !v.IsDataFrame() {
		return failure(CodeInvalidVariableType,
			fmt.Sprintf("variable '%s' is not a DataFrame (type: %s)", name, v.Type)), nil
	}

	out := dataFrameResponse{
		Name:        v.Name,
		Shape:       v.Shape,
		Columns:     make([]string, 0, len(v.Columns)),
		DTypes:      make(map[string]string, len(v.Columns)),
		Describe:    v.Describe,
		MemoryBytes: v.MemoryBytes,
	}
	for _, c := range v.Columns {
		out.Columns = append(out.Columns, c.Name)
		out.DTypes[c.Name] = c.DType
	}
	if includeHead && v.Head != nil {
		out.Head = v.Head[:min(headRows, len(v.Head))]
	}
	return success(out), nil
}
