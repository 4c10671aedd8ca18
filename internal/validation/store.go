package validation

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DiversityStore holds per-session diversity state with TTL eviction.
// Update must serialize concurrent updates of the same session.
type DiversityStore interface {
	// Get returns a snapshot, or nil when the session has no state.
	Get(ctx context.Context, sessionID string) (*SessionState, error)

	// Update loads the state (empty when absent), calls fn and persists the
	// result only when fn returns true. fn may run more than once.
	Update(ctx context.Context, sessionID string, fn func(*SessionState) (bool, error)) error
}

// MemoryStore is a process-local DiversityStore.
type MemoryStore struct {
	cache *expirable.LRU[string, *SessionState]
	locks [64]sync.Mutex
}

// NewMemoryStore keeps up to size sessions, each for ttl after its last
// update.
func NewMemoryStore(size int, ttl time.Duration) *MemoryStore {
	return &MemoryStore{cache: expirable.NewLRU[string, *SessionState](size, nil, ttl)}
}

func (m *MemoryStore) lock(sessionID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(sessionID))
	return &m.locks[h.Sum32()%uint32(len(m.locks))]
}

func (m *MemoryStore) Get(_ context.Context, sessionID string) (*SessionState, error) {
	st, ok := m.cache.Get(sessionID)
	if !ok {
		return nil, nil
	}
	return st.Clone(), nil
}

func (m *MemoryStore) Update(ctx context.Context, sessionID string, fn func(*SessionState) (bool, error)) error {
	mu := m.lock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	work := NewSessionState()
	if st, ok := m.cache.Get(sessionID); ok {
		work = st.Clone()
	}
	commit, err := fn(work)
	if err != nil || !commit {
		return err
	}
	m.cache.Add(sessionID, work)
	return nil
}

// Len returns the number of live sessions.
func (m *MemoryStore) Len() int { return m.cache.Len() }
