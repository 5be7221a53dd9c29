package session

import (
	"context"
	"time"

	"github.com/jonwraymond/notebookmcp/jupyter"
	"github.com/jonwraymond/notebookmcp/logging"
)

// SessionLister enumerates the active notebook sessions.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: ListSessions must honour cancellation and deadlines.
type SessionLister interface {
	ListSessions(ctx context.Context) ([]jupyter.Session, error)
}

// Outcome classifies a resolution.
type Outcome int

const (
	// Verbatim means the handle is used unchanged as a kernel id.
	Verbatim Outcome = iota

	// Resolved means the handle named an active session.
	Resolved
)

// String returns the outcome name.
func (o Outcome) String() string {
	if o == Resolved {
		return "resolved"
	}
	return "verbatim"
}

// Resolution is the result of looking up a handle.
type Resolution struct {
	Outcome Outcome

	// Handle is the input.
	Handle string

	// KernelID is the kernel to address. Equal to Handle when Verbatim.
	KernelID string

	// SessionID is the matched session id when Resolved.
	SessionID string

	// Err is the listing failure that forced a Verbatim outcome, if any.
	// It is informational only.
	Err error
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger used to report listing failures.
func WithLogger(l logging.Logger) Option {
	return func(r *Resolver) {
		r.logger = logging.OrNop(l)
	}
}

// WithTimeout bounds the session listing. Zero means the caller's context
// alone governs it.
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		r.timeout = d
	}
}

// Resolver maps session handles to kernel ids. It keeps no state between
// calls.
type Resolver struct {
	lister  SessionLister
	logger  logging.Logger
	timeout time.Duration
}

// NewResolver returns a resolver backed by lister.
func NewResolver(lister SessionLister, opts ...Option) *Resolver {
	r := &Resolver{
		lister: lister,
		logger: logging.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Lookup resolves handle against the current session listing. It never
// fails: a listing error yields a Verbatim resolution carrying the error.
func (r *Resolver) Lookup(ctx context.Context, handle string) Resolution {
	verbatim := Resolution{Outcome: Verbatim, Handle: handle, KernelID: handle}
	if r.lister == nil || handle == "" {
		return verbatim
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	sessions, err := r.lister.ListSessions(ctx)
	if err != nil {
		r.logger.Warn("session listing failed, using handle as kernel id",
			"handle", handle,
			"error", err,
		)
		verbatim.Err = err
		return verbatim
	}

	for _, s := range sessions {
		if s.ID == handle {
			r.logger.Debug("session resolved", "handle", handle, "kernel_id", s.Kernel.ID)
			return Resolution{
				Outcome:   Resolved,
				Handle:    handle,
				KernelID:  s.Kernel.ID,
				SessionID: s.ID,
			}
		}
	}
	return verbatim
}

// Resolve returns the kernel id for handle.
func (r *Resolver) Resolve(ctx context.Context, handle string) string {
	return r.Lookup(ctx, handle).KernelID
}
