package imagestore

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonwraymond/notebookmcp/logging"
)

// Image is a binary output as produced by the execution backend.
type Image struct {
	MIMEType string `json:"mime_type"`
	// Data is base64 encoded and stored as-is.
	Data   string `json:"data"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// Artifact is a stored image plus its provenance.
type Artifact struct {
	ID          string    `json:"id"`
	Session     string    `json:"session_id"`
	MIMEType    string    `json:"mime_type"`
	Data        string    `json:"data"`
	Width       int       `json:"width,omitempty"`
	Height      int       `json:"height,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	Description string    `json:"description"`
}

// URI returns the canonical locator of the artifact.
func (a Artifact) URI() string {
	return Locator{Session: a.Session, ArtifactID: a.ID, Extension: ExtensionFor(a.MIMEType)}.String()
}

// Reference is what callers of Put see: the locator, MIME type and the
// human readable label.
type Reference struct {
	URI         string `json:"resource_uri"`
	MIMEType    string `json:"mime_type"`
	Description string `json:"description"`
}

// Listener observes store mutations. Methods are called synchronously after
// the store lock is released, so a callback may trail a concurrent mutation:
// a Stored artifact can already be purged when the callback runs.
type Listener interface {
	Stored(a Artifact, ref Reference)
	Purged(session string, uris []string)
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for lookup diagnostics.
func WithLogger(l logging.Logger) Option {
	return func(s *Store) { s.logger = logging.OrNop(l) }
}

// WithListener registers a mutation listener.
func WithListener(l Listener) Option {
	return func(s *Store) { s.listeners = append(s.listeners, l) }
}

// WithIDGenerator overrides artifact id generation. Generated ids must be
// unique and contain neither '/' nor '.'.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// WithClock overrides the creation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store is an in-memory, process lifetime image store. It is safe for
// concurrent use.
type Store struct {
	mu        sync.RWMutex
	artifacts map[string]*Artifact // artifact id -> artifact
	order     []string             // insertion order of artifact ids
	counters  map[string]int       // session -> last issued sequence number

	newID     func() string
	now       func() time.Time
	logger    logging.Logger
	listeners []Listener
}

// New returns an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		artifacts: make(map[string]*Artifact),
		counters:  make(map[string]int),
		newID:     uuid.NewString,
		now:       time.Now,
		logger:    logging.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Put stores img under session and returns its reference. The label's
// sequence number and the insertion happen in one critical section.
func (s *Store) Put(session string, img Image) (Reference, error) {
	if session == "" {
		return Reference{}, fmt.Errorf("%w: session is required", ErrInvalidInput)
	}
	if err := checkSegment("session", session); err != nil {
		return Reference{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if img.MIMEType == "" {
		return Reference{}, fmt.Errorf("%w: mime type is required", ErrInvalidInput)
	}
	if img.Data == "" {
		return Reference{}, fmt.Errorf("%w: image data is required", ErrInvalidInput)
	}

	s.mu.Lock()
	id := s.newID()
	if _, exists := s.artifacts[id]; exists {
		s.mu.Unlock()
		return Reference{}, fmt.Errorf("imagestore: duplicate artifact id %q", id)
	}
	uri, err := Encode(session, id, img.MIMEType)
	if err != nil {
		s.mu.Unlock()
		return Reference{}, err
	}
	n := s.counters[session] + 1
	s.counters[session] = n
	a := &Artifact{
		ID:          id,
		Session:     session,
		MIMEType:    img.MIMEType,
		Data:        img.Data,
		Width:       img.Width,
		Height:      img.Height,
		CreatedAt:   s.now(),
		Description: fmt.Sprintf("output [%d]", n),
	}
	s.artifacts[id] = a
	s.order = append(s.order, id)
	stored := *a
	listeners := s.listeners
	s.mu.Unlock()

	ref := Reference{URI: uri, MIMEType: stored.MIMEType, Description: stored.Description}
	for _, l := range listeners {
		l.Stored(stored, ref)
	}
	return ref, nil
}

// Subscribe adds a listener for subsequent mutations.
func (s *Store) Subscribe(l Listener) {
	if l == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Get resolves a locator. Malformed locators, unknown ids and locators whose
// session segment does not own the id all report ok == false.
func (s *Store) Get(uri string) (Artifact, bool) {
	loc, ok := Decode(uri)
	if !ok {
		s.logger.Debug("image lookup: malformed locator", "uri", uri)
		return Artifact{}, false
	}

	s.mu.RLock()
	a, found := s.artifacts[loc.ArtifactID]
	var out Artifact
	if found {
		out = *a
	}
	s.mu.RUnlock()

	if !found {
		s.logger.Debug("image lookup: unknown artifact", "uri", uri)
		return Artifact{}, false
	}
	if out.Session != loc.Session {
		s.logger.Debug("image lookup: session mismatch", "uri", uri)
		return Artifact{}, false
	}
	return out, true
}

// List returns the artifacts owned by session in insertion order.
func (s *Store) List(session string) []Artifact {
	return s.collect(func(a *Artifact) bool { return a.Session == session })
}

// ListAll returns every artifact in insertion order.
func (s *Store) ListAll() []Artifact {
	return s.collect(func(*Artifact) bool { return true })
}

// Len reports the number of stored artifacts.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.artifacts)
}

// Purge removes every artifact owned by session and resets its sequence
// counter. It returns the locators that were removed; purging an unknown
// session is a no-op.
func (s *Store) Purge(session string) []string {
	s.mu.Lock()
	var uris []string
	kept := s.order[:0]
	for _, id := range s.order {
		a := s.artifacts[id]
		if a.Session == session {
			uris = append(uris, a.URI())
			delete(s.artifacts, id)
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
	delete(s.counters, session)
	listeners := s.listeners
	s.mu.Unlock()

	if len(uris) > 0 {
		for _, l := range listeners {
			l.Purged(session, uris)
		}
	}
	return uris
}

func (s *Store) collect(keep func(*Artifact) bool) []Artifact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Artifact, 0, len(s.order))
	for _, id := range s.order {
		if a := s.artifacts[id]; keep(a) {
			out = append(out, *a)
		}
	}
	return out
}
