package tools

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonwraymond/notebookmcp/jupyter"
)

// Tool-level error codes outside the backend vocabulary.
const (
	CodeSessionNotFound     = "SESSION_NOT_FOUND"
	CodeInvalidVariableType = "INVALID_VARIABLE_TYPE"
	CodeExecutionError      = "EXECUTION_ERROR"
	CodeNotFound            = "NOT_FOUND"
)

// Envelope is the JSON document carried in every tool result.
type Envelope struct {
	Success bool           `json:"success"`
	Error   *EnvelopeError `json:"error,omitempty"`
}

// EnvelopeError describes a failed call.
type EnvelopeError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// success renders {"success": true, ...fields} as indented JSON. Fields of
// data keep their declared order.
func success(data any) *mcp.CallToolResult {
	body, err := json.Marshal(data)
	if err != nil {
		return failure(string(jupyter.CodeInternal), "encode result: "+err.Error())
	}
	var doc []byte
	if trimmed := bytes.TrimSpace(body); len(trimmed) < 2 || trimmed[0] != '{' || string(trimmed) == "{}" || string(trimmed) == "null" {
		doc = []byte(`{"success":true}`)
	} else {
		doc = append([]byte(`{"success":true,`), trimmed[1:]...)
	}
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: indent(doc)}}}
}

func failure(code, message string) *mcp.CallToolResult {
	doc, _ := json.Marshal(Envelope{Error: &EnvelopeError{Code: code, Message: message}})
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: indent(doc)}},
		IsError: true,
	}
}

// fromError surfaces a backend error's code and message verbatim.
func fromError(err error) *mcp.CallToolResult {
	var e *jupyter.Error
	if errors.As(err, &e) {
		return failure(string(e.Code), e.Message)
	}
	return failure(string(jupyter.CodeInternal), err.Error())
}

func indent(doc []byte) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, doc, "", "  "); err != nil {
		return string(doc)
	}
	return buf.String()
}

// DecodeEnvelope parses the envelope of a tool result.
func DecodeEnvelope(res *mcp.CallToolResult) (Envelope, error) {
	if res == nil || len(res.Content) == 0 {
		return Envelope{}, errors.New("empty tool result")
	}
	tc, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		return Envelope{}, errors.New("tool result is not text")
	}
	var env Envelope
	if err := json.Unmarshal([]byte(tc.Text), &env); err != nil {
		return Envelope{}, err
	}
	return env, nil
}
