package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tranhoait123/anki-mcq-export/internal/pipeline"
)

// DefaultTTL is how long an idle session is kept by a Store.
const DefaultTTL = 2 * time.Hour

// ErrNotFound is returned when a session ID is unknown or expired.
var ErrNotFound = errors.New("session not found")

// Session holds the result of the most recent successful extraction run.
type Session struct {
	ID string

	mu      sync.RWMutex
	current *pipeline.Result
	touched time.Time
}

// New returns an empty session with a fresh ID.
func New() *Session {
	return &Session{ID: uuid.NewString(), touched: time.Now()}
}

// Apply records the outcome of a run. A successful result replaces the
// current one; a failed run leaves the previous result in place. It reports
// whether the current result changed.
func (s *Session) Apply(res *pipeline.Result, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched = time.Now()
	if err != nil || res == nil {
		return false
	}
	s.current = res
	return true
}

// Current returns the latest successful result, or nil.
func (s *Session) Current() *pipeline.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Session) idleSince() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.touched
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.touched = now
	s.mu.Unlock()
}

// Store keeps sessions in memory, keyed by ID. It is safe for concurrent use.
type Store struct {
	TTL time.Duration
	// now is overridden in tests.
	now func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewStore returns a store expiring sessions idle for longer than ttl.
// A non-positive ttl selects DefaultTTL.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{TTL: ttl, now: time.Now, sessions: make(map[string]*Session)}
}

// Get returns a live session and refreshes its idle timer.
func (st *Store) Get(id string) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sweepLocked()
	s, ok := st.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	s.touch(st.now())
	return s, nil
}

// GetOrCreate returns the session for id, or a new session when id is empty,
// unknown or expired. The bool is true when a session was created.
func (st *Store) GetOrCreate(id string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sweepLocked()
	if s, ok := st.sessions[id]; ok && id != "" {
		s.touch(st.now())
		return s, false
	}
	s := New()
	s.touched = st.now()
	st.sessions[s.ID] = s
	return s, true
}

// Delete removes a session and reports whether it existed.
func (st *Store) Delete(id string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	_, ok := st.sessions[id]
	delete(st.sessions, id)
	return ok
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sweepLocked()
	return len(st.sessions)
}

func (st *Store) sweepLocked() {
	cutoff := st.now().Add(-st.TTL)
	for id, s := range st.sessions {
		if s.idleSince().Before(cutoff) {
			delete(st.sessions, id)
		}
	}
}
