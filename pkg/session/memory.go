package session

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultMaxSessions bounds the in-memory store
const DefaultMaxSessions = 10000

// MemoryStore keeps sessions in an expirable LRU.
// The least recently used session is evicted once the store is full.
type MemoryStore struct {
	cache *lru.LRU[string, *Session]
	now   func() time.Time
}

// NewMemoryStore creates an in-process session store
func NewMemoryStore(maxSessions int, ttl time.Duration) *MemoryStore {
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		cache: lru.NewLRU[string, *Session](maxSessions, nil, ttl),
		now:   time.Now,
	}
}

// Create stores a new session
func (s *MemoryStore) Create(ctx context.Context, accountID int64, username string) (*Session, error) {
	sess := newSession(accountID, username, s.now())
	s.cache.Add(sess.ID, sess)
	copied := *sess
	return &copied, nil
}

// Get returns a copy of the session and restarts its idle TTL
func (s *MemoryStore) Get(ctx context.Context, id string) (*Session, error) {
	sess, ok := s.cache.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.cache.Add(id, sess)
	copied := *sess
	return &copied, nil
}

// Delete removes the session
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.cache.Remove(id)
	return nil
}

// Len reports the number of unexpired sessions
func (s *MemoryStore) Len(ctx context.Context) (int, error) {
	return s.cache.Len(), nil
}
