package session

import (
	"container/list"
	"context"
	"sync"
	"time"

	"quickref/internal/models"
)

// MemoryStore is a process-local store bounded by TTL and capacity. When full, the least
// recently used session is evicted to make room.
type MemoryStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	capacity int
	entries  map[string]*list.Element
	lru      *list.List // front is most recently used
	now      func() time.Time
}

// NewMemoryStore builds a memory store. ttl <= 0 disables expiry, capacity <= 0 disables the bound.
func NewMemoryStore(ttl time.Duration, capacity int) *MemoryStore {
	return &MemoryStore{
		ttl:      ttl,
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		lru:      list.New(),
		now:      time.Now,
	}
}

func (s *MemoryStore) Create(_ context.Context, content string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	se := newSession(content, now, s.ttl)
	for {
		if _, taken := s.entries[se.ID]; !taken {
			break
		}
		se.ID = newID()
	}
	if s.capacity > 0 {
		for s.lru.Len() >= s.capacity {
			s.removeLocked(s.lru.Back())
		}
	}
	s.entries[se.ID] = s.lru.PushFront(se)
	return se.ID, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*models.ContextSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, ok := s.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	se := elem.Value.(*models.ContextSession)
	if se.Expired(s.now()) {
		s.removeLocked(elem)
		return nil, ErrNotFound
	}
	s.lru.MoveToFront(elem)
	copied := *se
	return &copied, nil
}

func (s *MemoryStore) Invalidate(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, ok := s.entries[id]
	if !ok {
		return ErrNotFound
	}
	expired := elem.Value.(*models.ContextSession).Expired(s.now())
	s.removeLocked(elem)
	if expired {
		return ErrNotFound
	}
	return nil
}

// PurgeExpired drops every expired session and returns how many were removed.
func (s *MemoryStore) PurgeExpired(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for elem := s.lru.Back(); elem != nil; {
		prev := elem.Prev()
		if elem.Value.(*models.ContextSession).Expired(now) {
			s.removeLocked(elem)
			removed++
		}
		elem = prev
	}
	return removed, nil
}

// Len reports the number of stored sessions, expired ones included until purged.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lru.Len()
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) removeLocked(elem *list.Element) {
	if elem == nil {
		return
	}
	se := s.lru.Remove(elem).(*models.ContextSession)
	delete(s.entries, se.ID)
}
