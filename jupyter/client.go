package jupyter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/jonwraymond/notebookmcp/logging"
)

const (
	// DefaultBaseURL is used when Config.BaseURL is empty.
	DefaultBaseURL = "http://localhost:8888"

	// DefaultTimeout bounds every request that does not carry its own.
	DefaultTimeout = 30 * time.Second

	// DefaultTimeoutOverhead is added to an execution timeout to form the
	// request deadline.
	DefaultTimeoutOverhead = 5 * time.Second

	// DefaultKernelName is the kernel spec used when none is given.
	DefaultKernelName = "python3"
)

// ErrConfiguration indicates an invalid client configuration.
var ErrConfiguration = errors.New("jupyter: configuration error")

// Config configures a Client.
type Config struct {
	// BaseURL is the server root, e.g. http://localhost:8888.
	// Default: DefaultBaseURL
	BaseURL string

	// Token is sent as a bearer token when non-empty.
	Token string

	// Timeout bounds requests other than code execution.
	// Default: DefaultTimeout
	Timeout time.Duration

	// TimeoutOverhead is added to the code timeout of an execution.
	// Default: DefaultTimeoutOverhead
	TimeoutOverhead time.Duration

	// HTTPClient overrides the transport. Its own Timeout is left untouched;
	// deadlines are applied per request through the context.
	HTTPClient *http.Client

	// Logger is an optional logger for client events.
	Logger logging.Logger
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.TimeoutOverhead == 0 {
		c.TimeoutOverhead = DefaultTimeoutOverhead
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{}
	}
	c.Logger = logging.OrNop(c.Logger)
}

// Validate checks the configuration after defaults are applied.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("%w: base url: %v", ErrConfiguration, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: base url scheme must be http or https, got %q", ErrConfiguration, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: base url has no host", ErrConfiguration)
	}
	if c.Timeout < 0 || c.TimeoutOverhead < 0 {
		return fmt.Errorf("%w: timeouts must not be negative", ErrConfiguration)
	}
	return nil
}

// Client talks to a notebook server.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Context: every method honours cancellation and deadlines.
// - Errors: every returned error is a *Error.
type Client struct {
	base            *url.URL
	token           string
	timeout         time.Duration
	timeoutOverhead time.Duration
	http            *http.Client
	logger          logging.Logger
}

// NewClient returns a client for the configured server.
func NewClient(cfg Config) (*Client, error) {
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	base, _ := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if cfg.Token == "" {
		cfg.Logger.Warn("jupyter token is not set", "base_url", base.String())
	}
	return &Client{
		base:            base,
		token:           cfg.Token,
		timeout:         cfg.Timeout,
		timeoutOverhead: cfg.TimeoutOverhead,
		http:            cfg.HTTPClient,
		logger:          cfg.Logger,
	}, nil
}

// Endpoint returns the server base URL.
func (c *Client) Endpoint() string {
	return c.base.String()
}

// Health reports server status.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var out Health
	err := c.do(ctx, call{method: http.MethodGet, path: "/health"}, &out)
	return out, err
}

// CreateKernel starts a kernel from the named spec.
func (c *Client) CreateKernel(ctx context.Context, name string) (Kernel, error) {
	if name == "" {
		name = DefaultKernelName
	}
	var out envelope[Kernel]
	err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/api/kernels",
		body:   KernelNameRequest{Name: name},
	}, &out)
	return out.Data, err
}

// ListKernels returns every running kernel.
func (c *Client) ListKernels(ctx context.Context) ([]Kernel, error) {
	var out envelope[struct {
		Kernels []Kernel `json:"kernels"`
	}]
	err := c.do(ctx, call{method: http.MethodGet, path: "/api/kernels"}, &out)
	return out.Data.Kernels, err
}

// GetKernel returns one kernel.
func (c *Client) GetKernel(ctx context.Context, kernelID string) (Kernel, error) {
	var out envelope[Kernel]
	err := c.do(ctx, c.kernelCall(http.MethodGet, kernelID, ""), &out)
	return out.Data, err
}

// DeleteKernel shuts a kernel down.
func (c *Client) DeleteKernel(ctx context.Context, kernelID string) (DeletedKernel, error) {
	var out envelope[DeletedKernel]
	err := c.do(ctx, c.kernelCall(http.MethodDelete, kernelID, ""), &out)
	return out.Data, err
}

// InterruptKernel interrupts the running execution of a kernel.
func (c *Client) InterruptKernel(ctx context.Context, kernelID string) (Kernel, error) {
	var out envelope[Kernel]
	err := c.do(ctx, c.kernelCall(http.MethodPost, kernelID, "/interrupt"), &out)
	return out.Data, err
}

// RestartKernel restarts a kernel, clearing its namespace.
func (c *Client) RestartKernel(ctx context.Context, kernelID string) (Kernel, error) {
	var out envelope[Kernel]
	err := c.do(ctx, c.kernelCall(http.MethodPost, kernelID, "/restart"), &out)
	return out.Data, err
}

// ListSessions returns the active notebook sessions. This endpoint is the
// standard server API and is not wrapped in a data envelope.
func (c *Client) ListSessions(ctx context.Context) ([]Session, error) {
	var out []Session
	err := c.do(ctx, call{method: http.MethodGet, path: "/api/sessions"}, &out)
	return out, err
}

// CreateSession opens a notebook with a new kernel.
func (c *Client) CreateSession(ctx context.Context, notebookPath, kernelName string) (Session, error) {
	if kernelName == "" {
		kernelName = DefaultKernelName
	}
	p := strings.TrimPrefix(notebookPath, "/")
	var out Session
	err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/api/sessions",
		body: CreateSessionRequest{
			Name:   lastSegment(p),
			Path:   p,
			Type:   "notebook",
			Kernel: KernelNameRequest{Name: kernelName},
		},
		rctx: RequestContext{Path: p},
	}, &out)
	return out, err
}

// SessionByPath returns the session whose notebook path matches. A leading
// slash is ignored and both sides are compared in NFC form.
func (c *Client) SessionByPath(ctx context.Context, notebookPath string) (Session, bool, error) {
	sessions, err := c.ListSessions(ctx)
	if err != nil {
		return Session{}, false, err
	}
	want := normalizePath(notebookPath)
	for _, s := range sessions {
		if normalizePath(s.Path) == want {
			return s, true, nil
		}
	}
	return Session{}, false, nil
}

// SessionByKernelID returns the session bound to the kernel.
func (c *Client) SessionByKernelID(ctx context.Context, kernelID string) (Session, bool, error) {
	sessions, err := c.ListSessions(ctx)
	if err != nil {
		return Session{}, false, err
	}
	for _, s := range sessions {
		if s.Kernel.ID == kernelID {
			return s, true, nil
		}
	}
	return Session{}, false, nil
}

// Execute runs code on a kernel. The request deadline is the code timeout
// plus the configured overhead.
func (c *Client) Execute(ctx context.Context, kernelID string, req ExecuteRequest) (ExecuteResult, error) {
	cl := c.kernelCall(http.MethodPost, kernelID, "/execute")
	cl.body = req
	codeTimeout := time.Duration(req.Timeout) * time.Second
	if codeTimeout > 0 {
		cl.timeout = codeTimeout + c.timeoutOverhead
		cl.rctx.Timeout = codeTimeout
	}
	var out envelope[ExecuteResult]
	err := c.do(ctx, cl, &out)
	return out.Data, err
}

// Variables lists the user variables of a kernel namespace.
func (c *Client) Variables(ctx context.Context, kernelID string) ([]Variable, error) {
	var out envelope[struct {
		Variables []Variable `json:"variables"`
	}]
	err := c.do(ctx, c.kernelCall(http.MethodGet, kernelID, "/variables"), &out)
	return out.Data.Variables, err
}

// Variable returns one variable, with DataFrame details when applicable.
func (c *Client) Variable(ctx context.Context, kernelID, name string) (Variable, error) {
	var out envelope[Variable]
	err := c.do(ctx, c.kernelCall(http.MethodGet, kernelID, "/variables/"+url.PathEscape(name)), &out)
	return out.Data, err
}

// ListContents lists a directory. An empty path or "/" is the root.
func (c *Client) ListContents(ctx context.Context, dir string) (ContentsList, error) {
	cl := call{method: http.MethodGet, path: "/api/contents"}
	if dir != "" && dir != "/" {
		cl.query = url.Values{"path": {dir}}
	}
	var out envelope[ContentsList]
	err := c.do(ctx, cl, &out)
	return out.Data, err
}

// Contents returns a notebook document.
func (c *Client) Contents(ctx context.Context, p string) (Notebook, error) {
	var out envelope[Notebook]
	err := c.do(ctx, c.contentsCall(http.MethodGet, p, ""), &out)
	return out.Data, err
}

// CreateNotebook creates an empty notebook at p.
func (c *Client) CreateNotebook(ctx context.Context, p string) (CreatedContent, error) {
	var out envelope[CreatedContent]
	err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/api/contents",
		body: struct {
			Type ContentType `json:"type"`
			Path string      `json:"path"`
		}{ContentNotebook, p},
	}, &out)
	return out.Data, err
}

// UpdateNotebook replaces the content of a notebook.
func (c *Client) UpdateNotebook(ctx context.Context, p string, content NotebookContent) error {
	cl := c.contentsCall(http.MethodPut, p, "")
	cl.body = struct {
		Content NotebookContent `json:"content"`
	}{content}
	return c.do(ctx, cl, nil)
}

// OperateCell adds, updates or deletes a single cell.
func (c *Client) OperateCell(ctx context.Context, p string, op CellOperation) error {
	cl := c.contentsCall(http.MethodPatch, p, "/cells")
	cl.body = op
	cl.rctx.CellIndex = op.Index
	return c.do(ctx, cl, nil)
}

// DeleteContents removes a file or notebook.
func (c *Client) DeleteContents(ctx context.Context, p string) error {
	return c.do(ctx, c.contentsCall(http.MethodDelete, p, ""), nil)
}

type call struct {
	method  string
	path    string
	query   url.Values
	body    any
	rctx    RequestContext
	timeout time.Duration
}

func (c *Client) kernelCall(method, kernelID, suffix string) call {
	return call{
		method: method,
		path:   "/api/kernels/" + url.PathEscape(kernelID) + suffix,
		rctx:   RequestContext{KernelID: kernelID},
	}
}

func (c *Client) contentsCall(method, p, suffix string) call {
	return call{
		method: method,
		path:   "/api/contents/" + url.PathEscape(p) + suffix,
		rctx:   RequestContext{Path: p},
	}
}

func (c *Client) do(ctx context.Context, cl call, out any) error {
	timeout := cl.timeout
	if timeout == 0 {
		timeout = c.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := c.newRequest(ctx, cl)
	if err != nil {
		return Translate(Outcome{Err: err, Context: cl.rctx, Endpoint: c.Endpoint()})
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		e := Translate(Outcome{Err: err, Context: cl.rctx, Endpoint: c.Endpoint()})
		c.logger.Debug("jupyter request failed", "method", cl.method, "path", cl.path, "code", e.Code, "error", err)
		return e
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Translate(Outcome{Err: err, Context: cl.rctx, Endpoint: c.Endpoint()})
	}
	c.logger.Debug("jupyter request",
		"method", cl.method,
		"path", cl.path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Translate(Outcome{StatusCode: resp.StatusCode, Body: body, Context: cl.rctx, Endpoint: c.Endpoint()})
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return Translate(Outcome{Err: fmt.Errorf("decode %s %s: %w", cl.method, cl.path, err), Context: cl.rctx})
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, cl call) (*http.Request, error) {
	target := c.base.String() + cl.path
	if cl.query != nil {
		target += "?" + cl.query.Encode()
	}

	var body io.Reader
	if cl.body != nil {
		data, err := json.Marshal(cl.body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, cl.method, target, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func normalizePath(p string) string {
	return norm.NFC.String(strings.TrimPrefix(p, "/"))
}

func lastSegment(p string) string {
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[i+1:]
	}
	return p
}
