package session

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/notebookmcp/jupyter"
)

type fakeLister struct {
	sessions []jupyter.Session
	err      error
	calls    atomic.Int32
	block    bool
}

func (f *fakeLister) ListSessions(ctx context.Context) ([]jupyter.Session, error) {
	f.calls.Add(1)
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.sessions, f.err
}

func sess(id, kernel string) jupyter.Session {
	return jupyter.Session{ID: id, Kernel: jupyter.SessionKernel{ID: kernel}}
}

func TestLookupResolvesSessionID(t *testing.T) {
	r := NewResolver(&fakeLister{sessions: []jupyter.Session{sess("S1", "K1"), sess("S2", "K2")}})

	res := r.Lookup(context.Background(), "S2")

	assert.Equal(t, Resolved, res.Outcome)
	assert.Equal(t, "K2", res.KernelID)
	assert.Equal(t, "S2", res.SessionID)
	assert.NoError(t, res.Err)
}

func TestLookupPassesUnknownHandleThrough(t *testing.T) {
	r := NewResolver(&fakeLister{sessions: []jupyter.Session{sess("S1", "K1")}})

	res := r.Lookup(context.Background(), "K9")

	assert.Equal(t, Verbatim, res.Outcome)
	assert.Equal(t, "K9", res.KernelID)
	assert.NoError(t, res.Err)
}

func TestLookupKernelIDIsNotTranslated(t *testing.T) {
	// Only session ids resolve; a handle equal to some kernel id passes through.
	r := NewResolver(&fakeLister{sessions: []jupyter.Session{sess("S1", "K1")}})

	assert.Equal(t, "K1", r.Resolve(context.Background(), "K1"))
}

func TestLookupListingFailureIsSoft(t *testing.T) {
	boom := errors.New("connection refused")
	r := NewResolver(&fakeLister{err: boom})

	res := r.Lookup(context.Background(), "S1")

	assert.Equal(t, Verbatim, res.Outcome)
	assert.Equal(t, "S1", res.KernelID)
	assert.ErrorIs(t, res.Err, boom)
}

func TestLookupTimeoutIsSoft(t *testing.T) {
	r := NewResolver(&fakeLister{block: true}, WithTimeout(20*time.Millisecond))

	res := r.Lookup(context.Background(), "S1")

	assert.Equal(t, Verbatim, res.Outcome)
	assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
}

func TestLookupDoesNotCache(t *testing.T) {
	l := &fakeLister{sessions: []jupyter.Session{sess("S1", "K1")}}
	r := NewResolver(l)
	ctx := context.Background()

	require.Equal(t, "K1", r.Resolve(ctx, "S1"))
	l.sessions = []jupyter.Session{sess("S1", "K7")}
	require.Equal(t, "K7", r.Resolve(ctx, "S1"))

	assert.Equal(t, int32(2), l.calls.Load())
}

func TestLookupWithoutLister(t *testing.T) {
	res := NewResolver(nil).Lookup(context.Background(), "S1")

	assert.Equal(t, Verbatim, res.Outcome)
	assert.Equal(t, "S1", res.KernelID)
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "resolved", Resolved.String())
	assert.Equal(t, "verbatim", Verbatim.String())
}
