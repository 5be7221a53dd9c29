package tools

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonwraymond/notebookmcp/backend/local"
	"github.com/jonwraymond/notebookmcp/jupyter"
)

func (ts *toolset) notebookTools() []local.ToolDef {
	return []local.ToolDef{
		{
			Name:        FileList,
			Title:       "List files",
			Description: "List files, directories and notebooks under a path of the server workspace.",
			InputSchema: schema(map[string]any{
				"session_id": stringProp("Session id"),
				"path":       stringProp("Directory relative to the workspace root (default /)"),
			}, "session_id"),
			Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
			Tags:        []string{"files", "contents"},
			Handler:     ts.fileList,
		},
		{
			Name:        NotebookCreate,
			Title:       "Create notebook",
			Description: "Create an empty notebook. The .ipynb suffix is added when missing.",
			InputSchema: schema(map[string]any{
				"name": stringProp("Notebook file name"),
				"path": stringProp("Directory to create the notebook in (default /)"),
			}, "name"),
			Tags:    []string{"notebook", "contents"},
			Handler: ts.notebookCreate,
		},
		{
			Name:        NotebookRead,
			Title:       "Read notebook",
			Description: "Read the cells of a notebook.",
			InputSchema: schema(map[string]any{
				"notebook_path": stringProp("Relative .ipynb path"),
			}, "notebook_path"),
			Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
			Tags:        []string{"notebook", "contents", "cells"},
			Handler:     ts.notebookRead,
		},
		{
			Name:        NotebookAddCell,
			Title:       "Add notebook cell",
			Description: "Insert a code or markdown cell into a notebook, at a position or at the end.",
			InputSchema: schema(map[string]any{
				"notebook_path": stringProp("Relative .ipynb path"),
				"cell_type": map[string]any{
					"type": "string",
					"enum": []string{string(jupyter.CellCode), string(jupyter.CellMarkdown)},
				},
				"source": stringProp("Cell source"),
				"position": map[string]any{
					"type":        "integer",
					"description": "Zero-based insert position (default: append)",
					"minimum":     0,
				},
			}, "notebook_path", "cell_type", "source"),
			Tags:    []string{"notebook", "cells"},
			Handler: ts.notebookAddCell,
		},
	}
}

func (ts *toolset) fileList(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	if _, err := requiredString(args, "session_id", maxSessionID); err != nil {
		return fromError(err), nil
	}
	dir, hasDir, err := stringArg(args, "path", stringRule{allowEmpty: true, maxLen: maxListPath})
	if err != nil {
		return fromError(err), nil
	}
	if !hasDir {
		dir = "/"
	}
	dir, err = normalizeListPath(dir)
	if err != nil {
		return fromError(err), nil
	}

	list, err := ts.client.ListContents(ctx, dir)
	if err != nil {
		return fromError(err), nil
	}
	contents := list.Contents
	if contents == nil {
		contents = []jupyter.ContentItem{}
	}
	return success(struct {
		Path     string                `json:"path"`
		Contents []jupyter.ContentItem `json:"contents"`
	}{dir, contents}), nil
}

func (ts *toolset) notebookCreate(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	name, err := requiredString(args, "name", maxNotebookPath)
	if err != nil {
		return fromError(err), nil
	}
	dir, _, err := stringArg(args, "path", stringRule{allowEmpty: true, maxLen: maxListPath})
	if err != nil {
		return fromError(err), nil
	}

	full := notebookFullPath(dir, name)
	if err := validateNotebookPath(full); err != nil {
		return fromError(err), nil
	}
	created, err := ts.client.CreateNotebook(ctx, full)
	if err != nil {
		return fromError(err), nil
	}
	path := created.Path
	if path == "" {
		path = full
	}
	ts.logger.Info("notebook created", "path", path)
	return success(struct {
		Path      string `json:"path"`
		CreatedAt string `json:"created_at"`
		Message   string `json:"message"`
	}{path, created.CreatedAt, fmt.Sprintf("created notebook %q", path)}), nil
}

type cellView struct {
	Index          int              `json:"index"`
	CellType       jupyter.CellType `json:"cell_type"`
	Source         string           `json:"source"`
	ExecutionCount *int             `json:"execution_count,omitempty"`
	OutputCount    int              `json:"output_count"`
}

func (ts *toolset) notebookRead(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	p, err := requiredString(args, "notebook_path", maxNotebookPath)
	if err != nil {
		return fromError(err), nil
	}
	if err := validateNotebookPath(p); err != nil {
		return fromError(err), nil
	}

	nb, err := ts.client.Contents(ctx, p)
	if err != nil {
		return fromError(err), nil
	}
	cells := make([]cellView, 0, len(nb.Content.Cells))
	for i, c := range nb.Content.Cells {
		cells = append(cells, cellView{
			Index:          i,
			CellType:       c.CellType,
			Source:         c.Source,
			ExecutionCount: c.ExecutionCount,
			OutputCount:    len(c.Outputs),
		})
	}
	return success(struct {
		Path       string     `json:"path"`
		Kernel     string     `json:"kernel,omitempty"`
		ModifiedAt string     `json:"modified_at,omitempty"`
		Cells      []cellView `json:"cells"`
	}{p, nb.Content.Metadata.Kernel, nb.ModifiedAt, cells}), nil
}

func (ts *toolset) notebookAddCell(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	p, err := requiredString(args, "notebook_path", maxNotebookPath)
	if err != nil {
		return fromError(err), nil
	}
	if err := validateNotebookPath(p); err != nil {
		return fromError(err), nil
	}
	ct, _, err := stringArg(args, "cell_type", stringRule{})
	if err != nil {
		return fromError(err), nil
	}
	cellType := jupyter.CellType(ct)
	if cellType != jupyter.CellCode && cellType != jupyter.CellMarkdown {
		return fromError(jupyter.NewValidationError("cell_type must be 'code' or 'markdown'")), nil
	}
	source, _, err := stringArg(args, "source", stringRule{required: true, allowEmpty: true, maxLen: maxSource})
	if err != nil {
		return fromError(err), nil
	}
	pos, hasPos, err := intArg(args, "position")
	if err != nil {
		return fromError(err), nil
	}
	if hasPos && pos < 0 {
		return fromError(jupyter.NewValidationError("position must be 0 or greater")), nil
	}

	op := jupyter.CellOperation{
		Action: jupyter.CellAdd,
		Cell:   &jupyter.Cell{CellType: cellType, Source: source},
	}
	where := "at the end"
	if hasPos {
		op.Index = &pos
		where = fmt.Sprintf("at position %d", pos)
	}
	if err := ts.client.OperateCell(ctx, p, op); err != nil {
		return fromError(err), nil
	}

	return success(struct {
		NotebookPath string           `json:"notebook_path"`
		CellType     jupyter.CellType `json:"cell_type"`
		Position     *int             `json:"position,omitempty"`
		Message      string           `json:"message"`
	}{p, cellType, op.Index, fmt.Sprintf("added %s cell %s of %q", cellType, where, p)}), nil
}
