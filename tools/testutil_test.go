package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/notebookmcp/backend/local"
	"github.com/jonwraymond/notebookmcp/imagestore"
	"github.com/jonwraymond/notebookmcp/jupyter"
	"github.com/jonwraymond/notebookmcp/session"
)

// fakeJupyter is an in-memory notebook server speaking the custom API.
type fakeJupyter struct {
	mu        sync.Mutex
	nextID    int
	kernels   map[string]jupyter.Kernel
	sessions  []jupyter.Session
	variables map[string][]jupyter.Variable
	notebooks map[string]jupyter.Notebook
	dirs      map[string][]jupyter.ContentItem

	sessionsStatus int
	execute        func(kernelID string, req jupyter.ExecuteRequest) (int, any)

	executedOn []string
	listedDirs []string
	cellOps    []jupyter.CellOperation
	created    []string
}

func newFakeJupyter() *fakeJupyter {
	return &fakeJupyter{
		kernels:   map[string]jupyter.Kernel{},
		variables: map[string][]jupyter.Variable{},
		notebooks: map[string]jupyter.Notebook{},
		dirs:      map[string][]jupyter.ContentItem{},
	}
}

func (f *fakeJupyter) addKernel(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kernels[id] = jupyter.Kernel{ID: id, Name: "python3", Status: jupyter.KernelIdle, StartedAt: "2026-01-01T00:00:00Z"}
}

func (f *fakeJupyter) addSession(id, path, kernelID string) {
	f.addKernel(kernelID)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions = append(f.sessions, jupyter.Session{
		ID: id, Path: path, Name: path, Type: "notebook",
		Kernel: jupyter.SessionKernel{ID: kernelID, Name: "python3", ExecutionState: jupyter.KernelIdle},
	})
}

func (f *fakeJupyter) executed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.executedOn...)
}

func reply(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func data(v any) map[string]any { return map[string]any{"data": v} }

func apiErr(code, msg string) map[string]any {
	return map[string]any{"error": map[string]any{"code": code, "message": msg}}
}

func (f *fakeJupyter) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		reply(w, 200, jupyter.Health{Status: "ok", Version: "test", KernelsActive: len(f.kernels)})
	})

	mux.HandleFunc("POST /api/kernels", func(w http.ResponseWriter, r *http.Request) {
		var req jupyter.KernelNameRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		f.nextID++
		k := jupyter.Kernel{ID: fmt.Sprintf("k-new-%d", f.nextID), Name: req.Name, Status: jupyter.KernelStarting, StartedAt: "2026-01-01T00:00:00Z"}
		f.kernels[k.ID] = k
		f.mu.Unlock()
		reply(w, 201, data(k))
	})

	mux.HandleFunc("GET /api/kernels", func(w http.ResponseWriter, _ *http.Request) {
		f.mu.Lock()
		out := make([]jupyter.Kernel, 0, len(f.kernels))
		for _, k := range f.kernels {
			out = append(out, k)
		}
		f.mu.Unlock()
		reply(w, 200, data(map[string]any{"kernels": out}))
	})

	withKernel := func(fn func(w http.ResponseWriter, r *http.Request, k jupyter.Kernel)) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			id := r.PathValue("id")
			f.mu.Lock()
			k, ok := f.kernels[id]
			f.mu.Unlock()
			if !ok {
				reply(w, 404, apiErr("KERNEL_NOT_FOUND", "no kernel "+id))
				return
			}
			fn(w, r, k)
		}
	}

	mux.HandleFunc("DELETE /api/kernels/{id}", withKernel(func(w http.ResponseWriter, _ *http.Request, k jupyter.Kernel) {
		f.mu.Lock()
		delete(f.kernels, k.ID)
		f.mu.Unlock()
		reply(w, 200, data(jupyter.DeletedKernel{ID: k.ID, Status: "deleted"}))
	}))

	mux.HandleFunc("POST /api/kernels/{id}/interrupt", withKernel(func(w http.ResponseWriter, _ *http.Request, k jupyter.Kernel) {
		reply(w, 200, data(k))
	}))

	mux.HandleFunc("POST /api/kernels/{id}/restart", withKernel(func(w http.ResponseWriter, _ *http.Request, k jupyter.Kernel) {
		k.Status = jupyter.KernelStarting
		reply(w, 200, data(k))
	}))

	mux.HandleFunc("POST /api/kernels/{id}/execute", withKernel(func(w http.ResponseWriter, r *http.Request, k jupyter.Kernel) {
		var req jupyter.ExecuteRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		f.executedOn = append(f.executedOn, k.ID)
		exec := f.execute
		f.mu.Unlock()
		if exec == nil {
			reply(w, 200, data(jupyter.ExecuteResult{Success: true, ExecutionCount: 1}))
			return
		}
		status, body := exec(k.ID, req)
		reply(w, status, body)
	}))

	mux.HandleFunc("GET /api/kernels/{id}/variables", withKernel(func(w http.ResponseWriter, _ *http.Request, k jupyter.Kernel) {
		f.mu.Lock()
		vars := f.variables[k.ID]
		f.mu.Unlock()
		reply(w, 200, data(map[string]any{"variables": vars}))
	}))

	mux.HandleFunc("GET /api/kernels/{id}/variables/{name}", withKernel(func(w http.ResponseWriter, r *http.Request, k jupyter.Kernel) {
		name := r.PathValue("name")
		f.mu.Lock()
		defer f.mu.Unlock()
		for _, v := range f.variables[k.ID] {
			if v.Name == name {
				reply(w, 200, data(v))
				return
			}
		}
		reply(w, 404, apiErr("VARIABLE_NOT_FOUND", "no variable "+name))
	}))

	mux.HandleFunc("GET /api/sessions", func(w http.ResponseWriter, _ *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.sessionsStatus != 0 {
			reply(w, f.sessionsStatus, map[string]any{"message": "unavailable"})
			return
		}
		out := f.sessions
		if out == nil {
			out = []jupyter.Session{}
		}
		reply(w, 200, out)
	})

	mux.HandleFunc("POST /api/sessions", func(w http.ResponseWriter, r *http.Request) {
		var req jupyter.CreateSessionRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		f.nextID++
		id := fmt.Sprintf("s-new-%d", f.nextID)
		kid := fmt.Sprintf("k-new-%d", f.nextID)
		f.mu.Unlock()
		f.addSession(id, req.Path, kid)
		f.mu.Lock()
		s := f.sessions[len(f.sessions)-1]
		f.mu.Unlock()
		reply(w, 201, s)
	})

	mux.HandleFunc("GET /api/contents", func(w http.ResponseWriter, r *http.Request) {
		dir := r.URL.Query().Get("path")
		if dir == "" {
			dir = "/"
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		f.listedDirs = append(f.listedDirs, dir)
		items, ok := f.dirs[dir]
		if !ok {
			reply(w, 404, apiErr("NOT_FOUND", "no directory "+dir))
			return
		}
		reply(w, 200, data(jupyter.ContentsList{Path: dir, Contents: items}))
	})

	mux.HandleFunc("GET /api/contents/{path}", func(w http.ResponseWriter, r *http.Request) {
		p := r.PathValue("path")
		f.mu.Lock()
		defer f.mu.Unlock()
		nb, ok := f.notebooks[p]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		reply(w, 200, data(nb))
	})

	mux.HandleFunc("POST /api/contents", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Path string `json:"path"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		defer f.mu.Unlock()
		f.created = append(f.created, req.Path)
		f.notebooks[req.Path] = jupyter.Notebook{Path: req.Path, Type: "notebook"}
		reply(w, 201, data(jupyter.CreatedContent{Path: req.Path, Type: jupyter.ContentNotebook, CreatedAt: "2026-01-01T00:00:00Z"}))
	})

	mux.HandleFunc("PATCH /api/contents/{path}/cells", func(w http.ResponseWriter, r *http.Request) {
		p := r.PathValue("path")
		var op jupyter.CellOperation
		_ = json.NewDecoder(r.Body).Decode(&op)
		f.mu.Lock()
		defer f.mu.Unlock()
		nb, ok := f.notebooks[p]
		if !ok {
			reply(w, 404, apiErr("NOTEBOOK_NOT_FOUND", "missing"))
			return
		}
		if op.Index != nil && *op.Index > len(nb.Content.Cells) {
			reply(w, 400, apiErr("INVALID_CELL_INDEX", "out of range"))
			return
		}
		f.cellOps = append(f.cellOps, op)
		nb.Content.Cells = append(nb.Content.Cells, *op.Cell)
		f.notebooks[p] = nb
		reply(w, 200, data(map[string]any{}))
	})

	return mux
}

type harness struct {
	fake    *fakeJupyter
	images  *imagestore.Store
	backend *local.Backend
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	fake := newFakeJupyter()
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	client, err := jupyter.NewClient(jupyter.Config{BaseURL: srv.URL, Token: "t"})
	require.NoError(t, err)

	images := imagestore.New()
	b, err := New(Deps{
		Client:   client,
		Resolver: session.NewResolver(client),
		Images:   images,
	})
	require.NoError(t, err)
	return &harness{fake: fake, images: images, backend: b}
}

// call runs a tool and decodes its JSON envelope.
func (h *harness) call(t *testing.T, tool string, args map[string]any) (map[string]any, *mcp.CallToolResult) {
	t.Helper()
	res, err := h.backend.Execute(context.Background(), tool, args)
	require.NoError(t, err)
	require.Len(t, res.Content, 1)
	tc, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)

	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(tc.Text), &out))
	require.Equal(t, out["success"] == false, res.IsError, "IsError must mirror the envelope")
	return out, res
}

func errorCode(t *testing.T, out map[string]any) string {
	t.Helper()
	e, ok := out["error"].(map[string]any)
	require.True(t, ok, "expected error envelope, got %v", out)
	code, _ := e["code"].(string)
	return code
}
