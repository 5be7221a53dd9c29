package jupyter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
	"time"
)

// Code is a member of the closed backend error vocabulary.
type Code string

const (
	CodeUnauthorized     Code = "UNAUTHORIZED"
	CodeKernelNotFound   Code = "KERNEL_NOT_FOUND"
	CodeKernelDead       Code = "KERNEL_DEAD"
	CodeNotebookNotFound Code = "NOTEBOOK_NOT_FOUND"
	CodeInvalidCellIndex Code = "INVALID_CELL_INDEX"
	CodeExecutionTimeout Code = "EXECUTION_TIMEOUT"
	CodeConnection       Code = "CONNECTION_ERROR"
	CodeValidation       Code = "VALIDATION_ERROR"
	CodeHTTP             Code = "HTTP_ERROR"
	CodeInternal         Code = "INTERNAL_ERROR"
)

// Sentinel errors, one per code. An *Error matches the sentinel of its code.
var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrKernelNotFound   = errors.New("kernel not found")
	ErrKernelDead       = errors.New("kernel dead")
	ErrNotebookNotFound = errors.New("notebook not found")
	ErrInvalidCellIndex = errors.New("invalid cell index")
	ErrExecutionTimeout = errors.New("execution timeout")
	ErrConnection       = errors.New("connection error")
	ErrValidation       = errors.New("validation error")
	ErrHTTP             = errors.New("http error")
	ErrInternal         = errors.New("internal error")
)

var sentinels = map[Code]error{
	CodeUnauthorized:     ErrUnauthorized,
	CodeKernelNotFound:   ErrKernelNotFound,
	CodeKernelDead:       ErrKernelDead,
	CodeNotebookNotFound: ErrNotebookNotFound,
	CodeInvalidCellIndex: ErrInvalidCellIndex,
	CodeExecutionTimeout: ErrExecutionTimeout,
	CodeConnection:       ErrConnection,
	CodeValidation:       ErrValidation,
	CodeHTTP:             ErrHTTP,
	CodeInternal:         ErrInternal,
}

var defaultStatus = map[Code]int{
	CodeUnauthorized:     http.StatusUnauthorized,
	CodeKernelNotFound:   http.StatusNotFound,
	CodeKernelDead:       http.StatusBadRequest,
	CodeNotebookNotFound: http.StatusNotFound,
	CodeInvalidCellIndex: http.StatusBadRequest,
	CodeExecutionTimeout: http.StatusRequestTimeout,
	CodeConnection:       http.StatusServiceUnavailable,
	CodeValidation:       http.StatusBadRequest,
	CodeInternal:         http.StatusInternalServerError,
}

// DefaultExecutionTimeout is reported in EXECUTION_TIMEOUT messages when the
// request carried no explicit timeout.
const DefaultExecutionTimeout = 30 * time.Second

// Error is a classified backend failure.
type Error struct {
	// Code is always a member of the closed vocabulary.
	Code Code

	// Message is human readable and may embed request context.
	Message string

	// StatusCode is the HTTP status, or the conventional status for the code
	// when no response was received.
	StatusCode int

	// BackendCode is the code reported in a structured error payload, even
	// when it fell outside the vocabulary and Code is HTTP_ERROR.
	BackendCode string

	// Err is the underlying transport error, if any.
	Err error
}

// Error returns the message prefixed with the code.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for use with errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for this error's code.
func (e *Error) Is(target error) bool {
	s, ok := sentinels[e.Code]
	return ok && target == s
}

func newError(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, StatusCode: defaultStatus[code]}
}

// NewValidationError returns a VALIDATION_ERROR with the given message.
func NewValidationError(format string, args ...any) *Error {
	return newError(CodeValidation, fmt.Sprintf(format, args...))
}

// CodeOf returns the code of err, or INTERNAL_ERROR when err is not an *Error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// IsKnownCode reports whether c belongs to the closed vocabulary.
func IsKnownCode(c Code) bool {
	_, ok := sentinels[c]
	return ok
}

// RequestContext is what the caller knew about the request that failed.
type RequestContext struct {
	KernelID  string
	Path      string
	CellIndex *int
	Timeout   time.Duration
}

// Outcome is the raw result of a backend request. Err is set when no HTTP
// response was received; otherwise StatusCode and Body describe it.
type Outcome struct {
	Err        error
	StatusCode int
	Body       []byte
	Context    RequestContext

	// Endpoint is named in connection failure messages.
	Endpoint string
}

// Translate classifies a failed backend request. It is pure: the same
// outcome always yields the same code and message.
func Translate(o Outcome) *Error {
	if o.Err != nil && o.StatusCode == 0 {
		return translateTransport(o)
	}
	if o.StatusCode == http.StatusUnauthorized {
		return newError(CodeUnauthorized, "authentication failed, check the server token")
	}
	if o.StatusCode != 0 {
		if e := translatePayload(o); e != nil {
			return e
		}
		if o.StatusCode == http.StatusNotFound {
			if o.Context.KernelID != "" {
				return withStatus(kernelNotFound(o.Context.KernelID), o.StatusCode)
			}
			if o.Context.Path != "" {
				return withStatus(notebookNotFound(o.Context.Path), o.StatusCode)
			}
		}
		return &Error{
			Code:       CodeHTTP,
			Message:    fmt.Sprintf("http error: %d", o.StatusCode),
			StatusCode: o.StatusCode,
		}
	}
	msg := "unknown failure"
	if o.Err != nil {
		msg = o.Err.Error()
	}
	return &Error{Code: CodeInternal, Message: msg, StatusCode: http.StatusInternalServerError, Err: o.Err}
}

func translateTransport(o Outcome) *Error {
	err := o.Err
	if isConnectFailure(err) {
		e := newError(CodeConnection, fmt.Sprintf("failed to connect to %s: %v", endpointName(o.Endpoint), err))
		e.Err = err
		return e
	}
	if isTimeout(err) {
		e := newError(CodeConnection, "request timed out")
		e.Err = err
		return e
	}
	e := newError(CodeInternal, err.Error())
	e.Err = err
	return e
}

func translatePayload(o Outcome) *Error {
	if len(o.Body) == 0 {
		return nil
	}
	var payload apiError
	if err := json.Unmarshal(o.Body, &payload); err != nil || payload.Error == nil {
		return nil
	}
	backendCode := payload.Error.Code
	msg := payload.Error.Message
	ctx := o.Context

	var e *Error
	switch Code(backendCode) {
	case CodeKernelNotFound:
		e = kernelNotFound(orUnknown(ctx.KernelID))
	case CodeKernelDead:
		e = newError(CodeKernelDead, "kernel is dead: "+orUnknown(ctx.KernelID))
	case CodeNotebookNotFound:
		e = notebookNotFound(orUnknown(ctx.Path))
	case CodeInvalidCellIndex:
		idx := -1
		if ctx.CellIndex != nil {
			idx = *ctx.CellIndex
		}
		e = newError(CodeInvalidCellIndex, fmt.Sprintf("invalid cell index: %d", idx))
	case CodeExecutionTimeout:
		timeout := ctx.Timeout
		if timeout <= 0 {
			timeout = DefaultExecutionTimeout
		}
		e = newError(CodeExecutionTimeout, fmt.Sprintf("code execution timed out (%dms)", timeout.Milliseconds()))
	default:
		code := Code(backendCode)
		if !IsKnownCode(code) {
			code = CodeHTTP
		}
		e = &Error{Code: code, Message: msg}
	}
	e.BackendCode = backendCode
	e.StatusCode = o.StatusCode
	return e
}

func kernelNotFound(id string) *Error {
	return newError(CodeKernelNotFound, "kernel not found: "+id)
}

func notebookNotFound(path string) *Error {
	return newError(CodeNotebookNotFound, "notebook not found: "+path)
}

func withStatus(e *Error, status int) *Error {
	e.StatusCode = status
	return e
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

func endpointName(s string) string {
	if s == "" {
		return "the notebook server"
	}
	return s
}

func isConnectFailure(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" && !opErr.Timeout() {
		return true
	}
	return false
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
