package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonwraymond/notebookmcp/backend"
	"github.com/jonwraymond/notebookmcp/imagestore"
	"github.com/jonwraymond/notebookmcp/jupyter"
	"github.com/jonwraymond/notebookmcp/logging"
	"github.com/jonwraymond/notebookmcp/tools"
)

// Default implementation identity.
const (
	DefaultName    = "notebookmcp"
	DefaultVersion = "dev"
)

const instructions = "Use session_create or session_connect to obtain a session_id, " +
	"then execute_code, get_variables and the notebook tools with it. " +
	"Images returned by execute_code are readable as resources or with get_image_resource."

// Errors returned by Options validation.
var (
	ErrAggregatorRequired = errors.New("server: Aggregator is required")
	ErrImagesRequired     = errors.New("server: Images store is required")
)

// Options configures a Server.
type Options struct {
	// Name and Version identify the implementation to clients.
	// Default: "notebookmcp", "dev"
	Name    string
	Version string

	// Aggregator provides and dispatches the tools.
	// Required.
	Aggregator *backend.Aggregator

	// Images backs the image resources.
	// Required.
	Images *imagestore.Store

	// Logger is optional.
	Logger logging.Logger
}

func (o *Options) validate() error {
	if o.Aggregator == nil {
		return ErrAggregatorRequired
	}
	if o.Images == nil {
		return ErrImagesRequired
	}
	return nil
}

func (o *Options) applyDefaults() {
	if o.Name == "" {
		o.Name = DefaultName
	}
	if o.Version == "" {
		o.Version = DefaultVersion
	}
	o.Logger = logging.OrNop(o.Logger)
}

// Server is an MCP server over the notebook tools.
type Server struct {
	mcp    *mcp.Server
	agg    *backend.Aggregator
	images *imagestore.Store
	logger logging.Logger
	tools  []string
}

// New builds the MCP server and registers every tool of the enabled backends.
func New(ctx context.Context, opts Options) (*Server, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	opts.applyDefaults()

	s := &Server{
		mcp: mcp.NewServer(
			&mcp.Implementation{Name: opts.Name, Version: opts.Version},
			&mcp.ServerOptions{Instructions: instructions},
		),
		agg:    opts.Aggregator,
		images: opts.Images,
		logger: opts.Logger,
	}
	s.mcp.AddReceivingMiddleware(loggingMiddleware(s.logger))

	all, err := s.agg.ListAllTools(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]string, len(all))
	for _, t := range all {
		id := backend.FormatToolID(t.Namespace, t.Name)
		if prev, dup := seen[t.Name]; dup {
			return nil, fmt.Errorf("server: tool name %q provided by both %s and %s", t.Name, prev, id)
		}
		seen[t.Name] = id

		tool := t.Tool
		s.mcp.AddTool(&tool, s.dispatch(id))
		s.tools = append(s.tools, t.Name)
	}

	s.mcp.AddResourceTemplate(&mcp.ResourceTemplate{
		Name:        "notebook-image",
		Title:       "Notebook output image",
		Description: "An image produced by execute_code, addressed by its resource_uri.",
		URITemplate: imagestore.TemplateURI,
	}, s.readImage)
	s.images.Subscribe(resourceListener{s})
	for _, a := range s.images.ListAll() {
		s.addImage(a, imagestore.Reference{URI: a.URI(), MIMEType: a.MIMEType, Description: a.Description})
	}

	s.logger.Info("mcp server ready", "name", opts.Name, "version", opts.Version, "tools", len(s.tools))
	return s, nil
}

// Tools returns the registered tool names in registration order.
func (s *Server) Tools() []string {
	return append([]string(nil), s.tools...)
}

// MCPServer exposes the underlying server, for example to connect an
// in-memory transport.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Run starts every backend, serves t until the client disconnects or ctx is
// done, then stops the backends.
func (s *Server) Run(ctx context.Context, t mcp.Transport) error {
	reg := s.agg.Registry()
	if err := reg.StartAll(ctx); err != nil {
		return err
	}
	defer func() {
		if err := reg.StopAll(); err != nil {
			s.logger.Warn("stopping backends", "error", err)
		}
	}()
	return s.mcp.Run(ctx, t)
}

func (s *Server) dispatch(toolID string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := map[string]any{}
		if raw := req.Params.Arguments; len(raw) > 0 {
			if err := json.Unmarshal(raw, &args); err != nil {
				return errorResult(jupyter.CodeValidation, "arguments must be a JSON object"), nil
			}
			if args == nil {
				args = map[string]any{}
			}
		}
		res, err := s.agg.Execute(ctx, toolID, args)
		if err != nil {
			s.logger.Error("tool dispatch failed", "tool", toolID, "error", err)
			return errorResult(jupyter.CodeInternal, err.Error()), nil
		}
		return res, nil
	}
}

func errorResult(code jupyter.Code, msg string) *mcp.CallToolResult {
	doc, _ := json.MarshalIndent(tools.Envelope{
		Error: &tools.EnvelopeError{Code: string(code), Message: msg},
	}, "", "  ")
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(doc)}},
		IsError: true,
	}
}

func (s *Server) readImage(_ context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI
	a, ok := s.images.Get(uri)
	if !ok {
		return nil, mcp.ResourceNotFoundError(uri)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{imageContents(uri, a)},
	}, nil
}

// imageContents carries the stored data so that it reaches the client
// byte for byte as get_image_resource returns it. Canonical base64 goes out
// as a blob, which the SDK re-encodes to the same string; anything else,
// such as raw SVG markup, goes out as text.
func imageContents(uri string, a imagestore.Artifact) *mcp.ResourceContents {
	c := &mcp.ResourceContents{URI: uri, MIMEType: a.MIMEType}
	blob, err := base64.StdEncoding.DecodeString(a.Data)
	if err == nil && base64.StdEncoding.EncodeToString(blob) == a.Data {
		c.Blob = blob
	} else {
		c.Text = a.Data
	}
	return c
}

// addImage lists a stored image as a resource. The store lookup after the
// add catches a purge that ran before this callback.
func (s *Server) addImage(a imagestore.Artifact, ref imagestore.Reference) {
	if _, err := url.Parse(ref.URI); err != nil {
		s.logger.Warn("image resource not listed", "uri", ref.URI, "error", err)
		return
	}
	s.mcp.AddResource(&mcp.Resource{
		URI:         ref.URI,
		Name:        a.ID,
		Title:       a.Session + " " + ref.Description,
		Description: ref.Description,
		MIMEType:    ref.MIMEType,
	}, s.readImage)
	if _, ok := s.images.Get(ref.URI); !ok {
		s.mcp.RemoveResources(ref.URI)
		s.logger.Debug("image resource withdrawn", "uri", ref.URI)
	}
}

// resourceListener mirrors store mutations into the resource list.
type resourceListener struct{ s *Server }

func (l resourceListener) Stored(a imagestore.Artifact, ref imagestore.Reference) {
	l.s.addImage(a, ref)
}

func (l resourceListener) Purged(session string, uris []string) {
	l.s.mcp.RemoveResources(uris...)
	l.s.logger.Debug("image resources removed", "session_id", session, "count", len(uris))
}

func loggingMiddleware(l logging.Logger) mcp.Middleware {
	return func(next mcp.MethodHandler) mcp.MethodHandler {
		return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
			start := time.Now()
			res, err := next(ctx, method, req)
			if err != nil {
				l.Warn("mcp request failed", "method", method, "duration", time.Since(start), "error", err)
				return res, err
			}
			l.Debug("mcp request", "method", method, "duration", time.Since(start))
			return res, nil
		}
	}
}
