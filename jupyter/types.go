package jupyter

import "encoding/json"

// KernelStatus is the execution state reported for a kernel.
type KernelStatus string

const (
	KernelStarting KernelStatus = "starting"
	KernelIdle     KernelStatus = "idle"
	KernelBusy     KernelStatus = "busy"
	KernelDead     KernelStatus = "dead"
)

// Kernel is a running execution engine instance.
type Kernel struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	Status         KernelStatus `json:"status"`
	StartedAt      string       `json:"started_at"`
	ExecutionCount int          `json:"execution_count,omitempty"`
}

// DeletedKernel is the response to a kernel deletion.
type DeletedKernel struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// SessionKernel is the kernel half of a session.
type SessionKernel struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	LastActivity   string       `json:"last_activity"`
	ExecutionState KernelStatus `json:"execution_state"`
	Connections    int          `json:"connections"`
}

// Session pairs a notebook with the kernel executing it.
type Session struct {
	ID     string        `json:"id"`
	Path   string        `json:"path"`
	Name   string        `json:"name"`
	Type   string        `json:"type"`
	Kernel SessionKernel `json:"kernel"`
}

// CreateSessionRequest is the body of POST /api/sessions.
type CreateSessionRequest struct {
	Name   string            `json:"name"`
	Path   string            `json:"path"`
	Type   string            `json:"type"`
	Kernel KernelNameRequest `json:"kernel"`
}

// KernelNameRequest selects a kernel spec by name.
type KernelNameRequest struct {
	Name string `json:"name"`
}

// ExecuteRequest is the body of a code execution call. Timeout is in
// seconds; zero lets the backend apply its default.
type ExecuteRequest struct {
	Code    string `json:"code"`
	Timeout int    `json:"timeout,omitempty"`
}

// StreamOutput is one stdout or stderr record.
type StreamOutput struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ImageOutput is a binary output produced by an execution.
type ImageOutput struct {
	ID       string `json:"id"`
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
}

// ExecutionError is the structured error of a failed execution.
type ExecutionError struct {
	Type      string   `json:"type"`
	Message   string   `json:"message"`
	Traceback []string `json:"traceback"`
}

// ExecuteResult is the outcome of a code execution.
type ExecuteResult struct {
	Success         bool            `json:"success"`
	ExecutionCount  int             `json:"execution_count"`
	Outputs         []StreamOutput  `json:"outputs"`
	Result          json.RawMessage `json:"result"`
	Images          []ImageOutput   `json:"images"`
	ExecutionTimeMs int64           `json:"execution_time_ms"`
	Error           *ExecutionError `json:"error,omitempty"`
}

// Stream concatenates the text of every output record of the given type.
func (r ExecuteResult) Stream(kind string) string {
	var out []byte
	for _, o := range r.Outputs {
		if o.Type == kind {
			out = append(out, o.Text...)
		}
	}
	return string(out)
}

// DataFrameColumn describes one DataFrame column.
type DataFrameColumn struct {
	Name  string `json:"name"`
	DType string `json:"dtype"`
}

// ColumnStats holds the describe() summary of a numeric column.
type ColumnStats struct {
	Count *float64 `json:"count,omitempty"`
	Mean  *float64 `json:"mean,omitempty"`
	Std   *float64 `json:"std,omitempty"`
	Min   *float64 `json:"min,omitempty"`
	Max   *float64 `json:"max,omitempty"`
}

// Variable is a kernel namespace entry. The DataFrame fields are only set
// when Type is "DataFrame" and the variable was fetched individually.
type Variable struct {
	Name        string          `json:"name"`
	Type        string          `json:"type"`
	Value       json.RawMessage `json:"value,omitempty"`
	Size        string          `json:"size,omitempty"`
	MemoryBytes int64           `json:"memory_bytes,omitempty"`

	Shape    []int                  `json:"shape,omitempty"`
	Columns  []DataFrameColumn      `json:"columns,omitempty"`
	Head     []map[string]any       `json:"head,omitempty"`
	Describe map[string]ColumnStats `json:"describe,omitempty"`
}

// IsDataFrame reports whether the variable is a pandas DataFrame.
func (v Variable) IsDataFrame() bool {
	return v.Type == "DataFrame"
}

// ContentType classifies a contents entry.
type ContentType string

const (
	ContentNotebook  ContentType = "notebook"
	ContentFile      ContentType = "file"
	ContentDirectory ContentType = "directory"
)

// ContentItem is one entry of a directory listing.
type ContentItem struct {
	Name       string      `json:"name"`
	Type       ContentType `json:"type"`
	Size       int64       `json:"size,omitempty"`
	ModifiedAt string      `json:"modified_at"`
}

// ContentsList is a directory listing.
type ContentsList struct {
	Path     string        `json:"path"`
	Contents []ContentItem `json:"contents"`
}

// CellType is the kind of a notebook cell.
type CellType string

const (
	CellCode     CellType = "code"
	CellMarkdown CellType = "markdown"
)

// Cell is one notebook cell.
type Cell struct {
	CellType       CellType          `json:"cell_type"`
	Source         string            `json:"source"`
	Outputs        []json.RawMessage `json:"outputs,omitempty"`
	ExecutionCount *int              `json:"execution_count,omitempty"`
}

// NotebookMetadata is the notebook level metadata.
type NotebookMetadata struct {
	Kernel string `json:"kernel,omitempty"`
}

// NotebookContent is the cell list and metadata of a notebook.
type NotebookContent struct {
	Cells    []Cell           `json:"cells"`
	Metadata NotebookMetadata `json:"metadata"`
}

// Notebook is a notebook document.
type Notebook struct {
	Path       string          `json:"path"`
	Type       string          `json:"type"`
	Content    NotebookContent `json:"content"`
	ModifiedAt string          `json:"modified_at"`
}

// CreatedContent is the response to a contents creation.
type CreatedContent struct {
	Path      string      `json:"path"`
	Type      ContentType `json:"type"`
	CreatedAt string      `json:"created_at"`
}

// CellAction is a cell mutation verb.
type CellAction string

const (
	CellAdd    CellAction = "add"
	CellUpdate CellAction = "update"
	CellDelete CellAction = "delete"
)

// CellOperation mutates a single cell. A nil Index appends.
type CellOperation struct {
	Action CellAction `json:"action"`
	Cell   *Cell      `json:"cell,omitempty"`
	Index  *int       `json:"index,omitempty"`
}

// Health is the backend health report.
type Health struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	KernelsActive int    `json:"kernels_active"`
}

type envelope[T any] struct {
	Data T `json:"data"`
}

type apiError struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
