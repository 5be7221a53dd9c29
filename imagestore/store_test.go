package imagestore

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var png = Image{MIMEType: "image/png", Data: "iVBORw0KGgoAAAANSUhEUg==", Width: 640, Height: 480}

func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("img%03d", n)
	}
}

type recordingListener struct {
	mu     sync.Mutex
	stored []Reference
	purged map[string][]string
}

func (r *recordingListener) Stored(_ Artifact, ref Reference) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stored = append(r.stored, ref)
}

func (r *recordingListener) Purged(session string, uris []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.purged == nil {
		r.purged = map[string][]string{}
	}
	r.purged[session] = append(r.purged[session], uris...)
}

func TestPut_ReturnsReference(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s := New(WithIDGenerator(sequentialIDs()), WithClock(func() time.Time { return created }))

	ref, err := s.Put("abc123", png)
	require.NoError(t, err)
	assert.Equal(t, Reference{
		URI:         "jupyter://sessions/abc123/images/img001.png",
		MIMEType:    "image/png",
		Description: "output [1]",
	}, ref)

	a, ok := s.Get(ref.URI)
	require.True(t, ok)
	assert.Equal(t, "img001", a.ID)
	assert.Equal(t, "abc123", a.Session)
	assert.Equal(t, png.Data, a.Data)
	assert.Equal(t, 640, a.Width)
	assert.Equal(t, 480, a.Height)
	assert.Equal(t, created, a.CreatedAt)
	assert.Equal(t, ref.URI, a.URI())
}

func TestPut_SequenceLabelsPerSession(t *testing.T) {
	s := New()

	for i := 1; i <= 3; i++ {
		ref, err := s.Put("s1", png)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("output [%d]", i), ref.Description)
	}

	ref, err := s.Put("s2", png)
	require.NoError(t, err)
	assert.Equal(t, "output [1]", ref.Description)

	ref, err = s.Put("s1", png)
	require.NoError(t, err)
	assert.Equal(t, "output [4]", ref.Description)
}

func TestPut_UniqueIDs(t *testing.T) {
	s := New()
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		ref, err := s.Put(fmt.Sprintf("s%d", i%3), png)
		require.NoError(t, err)
		loc, ok := Decode(ref.URI)
		require.True(t, ok)
		assert.False(t, seen[loc.ArtifactID], "id reused: %s", loc.ArtifactID)
		seen[loc.ArtifactID] = true
	}
}

func TestPut_InvalidInput(t *testing.T) {
	s := New()
	tests := []struct {
		name    string
		session string
		img     Image
	}{
		{"empty session", "", png},
		{"whitespace session", "   ", png},
		{"slash in session", "a/b", png},
		{"bad escape in session", "a%zz", png},
		{"query in session", "a?b", png},
		{"empty mime and data", "s1", Image{}},
		{"empty mime", "s1", Image{Data: "abc"}},
		{"empty data", "s1", Image{MIMEType: "image/png"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Put(tt.session, tt.img)
			assert.True(t, errors.Is(err, ErrInvalidInput), "got %v", err)
		})
	}
	assert.Zero(t, s.Len())
}

func TestPut_RejectedInputDoesNotAdvanceCounter(t *testing.T) {
	s := New()
	_, err := s.Put("s1", Image{MIMEType: "image/png"})
	require.Error(t, err)

	ref, err := s.Put("s1", png)
	require.NoError(t, err)
	assert.Equal(t, "output [1]", ref.Description)
}

func TestPut_UnknownMIMEDefaultsToPNG(t *testing.T) {
	s := New(WithIDGenerator(sequentialIDs()))
	ref, err := s.Put("s1", Image{MIMEType: "image/bmp", Data: "Qk0="})
	require.NoError(t, err)
	assert.Equal(t, "jupyter://sessions/s1/images/img001.png", ref.URI)
	assert.Equal(t, "image/bmp", ref.MIMEType)

	a, ok := s.Get(ref.URI)
	require.True(t, ok)
	assert.Equal(t, "image/bmp", a.MIMEType)
}

func TestPut_DuplicateGeneratedID(t *testing.T) {
	s := New(WithIDGenerator(func() string { return "same" }))
	_, err := s.Put("s1", png)
	require.NoError(t, err)
	_, err = s.Put("s1", png)
	require.Error(t, err)
	assert.Equal(t, 1, s.Len())
}

func TestGet_NotFoundOutcomesAreIndistinguishable(t *testing.T) {
	s := New(WithIDGenerator(sequentialIDs()))
	ref, err := s.Put("s1", png)
	require.NoError(t, err)

	for _, uri := range []string{
		"garbage",
		"jupyter://sessions/s1/images/img.tar.gz",
		"jupyter://sessions/s1/images/unknown.png",
		"jupyter://sessions/s2/images/img001.png",
	} {
		a, ok := s.Get(uri)
		assert.False(t, ok, uri)
		assert.Equal(t, Artifact{}, a, uri)
	}

	_, ok := s.Get(ref.URI)
	assert.True(t, ok)
}

func TestGet_ExtensionIsNotAuthoritative(t *testing.T) {
	s := New(WithIDGenerator(sequentialIDs()))
	_, err := s.Put("s1", Image{MIMEType: "image/jpeg", Data: "/9j/"})
	require.NoError(t, err)

	a, ok := s.Get("jupyter://sessions/s1/images/img001.png")
	require.True(t, ok)
	assert.Equal(t, "image/jpeg", a.MIMEType)
	assert.Equal(t, "jupyter://sessions/s1/images/img001.jpg", a.URI())
}

func TestList_InsertionOrder(t *testing.T) {
	s := New(WithIDGenerator(sequentialIDs()))
	for _, session := range []string{"s1", "s2", "s1", "s2", "s1"} {
		_, err := s.Put(session, png)
		require.NoError(t, err)
	}

	var ids []string
	for _, a := range s.List("s1") {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []string{"img001", "img003", "img005"}, ids)

	ids = ids[:0]
	for _, a := range s.ListAll() {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []string{"img001", "img002", "img003", "img004", "img005"}, ids)

	assert.Empty(t, s.List("unknown"))
}

func TestPurge(t *testing.T) {
	s := New(WithIDGenerator(sequentialIDs()))
	r1, _ := s.Put("s1", png)
	r2, _ := s.Put("s1", png)
	other, _ := s.Put("s2", png)

	purged := s.Purge("s1")
	assert.ElementsMatch(t, []string{r1.URI, r2.URI}, purged)
	assert.Empty(t, s.List("s1"))
	_, ok := s.Get(r1.URI)
	assert.False(t, ok)

	_, ok = s.Get(other.URI)
	assert.True(t, ok)

	ref, err := s.Put("s1", png)
	require.NoError(t, err)
	assert.Equal(t, "output [1]", ref.Description)
}

func TestPurge_Idempotent(t *testing.T) {
	s := New()
	assert.Empty(t, s.Purge("never-seen"))
	_, _ = s.Put("s1", png)
	assert.Len(t, s.Purge("s1"), 1)
	assert.Empty(t, s.Purge("s1"))
}

func TestListener(t *testing.T) {
	l := &recordingListener{}
	s := New(WithIDGenerator(sequentialIDs()), WithListener(l))

	ref, err := s.Put("s1", png)
	require.NoError(t, err)
	s.Purge("s1")
	s.Purge("s1")

	assert.Equal(t, []Reference{ref}, l.stored)
	assert.Equal(t, map[string][]string{"s1": {ref.URI}}, l.purged)
}

// purgeOnStore purges the session from inside Stored, ahead of any later
// listener, to model a Purge that lands between Put's unlock and the
// remaining callbacks.
type purgeOnStore struct {
	store *Store
}

func (p *purgeOnStore) Stored(a Artifact, _ Reference) { p.store.Purge(a.Session) }
func (p *purgeOnStore) Purged(string, []string)        {}

func TestListener_PurgeDuringStoredCallback(t *testing.T) {
	purger := &purgeOnStore{}
	l := &recordingListener{}
	s := New(WithIDGenerator(sequentialIDs()), WithListener(purger), WithListener(l))
	purger.store = s

	ref, err := s.Put("s1", png)
	require.NoError(t, err)

	_, ok := s.Get(ref.URI)
	assert.False(t, ok, "artifact purged inside the callback must be gone")
	assert.Empty(t, s.List("s1"))
	// The later listener sees the purge before the store.
	assert.Equal(t, map[string][]string{"s1": {ref.URI}}, l.purged)
	assert.Equal(t, []Reference{ref}, l.stored)
}

func TestSubscribe(t *testing.T) {
	s := New(WithIDGenerator(sequentialIDs()))
	_, err := s.Put("s1", png)
	require.NoError(t, err)

	l := &recordingListener{}
	s.Subscribe(l)
	s.Subscribe(nil)
	ref, err := s.Put("s1", png)
	require.NoError(t, err)

	assert.Equal(t, []Reference{ref}, l.stored)
}

func TestConcurrentPutSameSession(t *testing.T) {
	s := New()
	const n = 200

	var wg sync.WaitGroup
	labels := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ref, err := s.Put("shared", png)
			if err != nil {
				t.Errorf("put: %v", err)
				return
			}
			if _, ok := s.Get(ref.URI); !ok {
				t.Errorf("label %s issued but artifact not readable", ref.Description)
			}
			labels <- ref.Description
		}()
	}
	wg.Wait()
	close(labels)

	seen := map[string]bool{}
	for l := range labels {
		assert.False(t, seen[l], "duplicate label %s", l)
		seen[l] = true
	}
	for i := 1; i <= n; i++ {
		assert.True(t, seen[fmt.Sprintf("output [%d]", i)], "missing label %d", i)
	}
	assert.Len(t, s.List("shared"), n)
}
