package session

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/gravy-ai/restaurant-assistant/internal/model"
	"github.com/gravy-ai/restaurant-assistant/pkg/metrics"
)

type entry struct {
	session *Session
	expires time.Time
}

// MemoryStore holds sessions in process memory with idle expiry and a cap
// on live entries. The least recently saved session is evicted first.
type MemoryStore struct {
	mu         sync.Mutex
	ttl        time.Duration
	maxEntries int
	clock      model.Clock
	items      map[string]*list.Element
	lru        *list.List
}

// NewMemoryStore creates a store. ttl <= 0 disables expiry and
// maxEntries <= 0 disables the cap.
func NewMemoryStore(ttl time.Duration, maxEntries int, clock model.Clock) *MemoryStore {
	return &MemoryStore{
		ttl:        ttl,
		maxEntries: maxEntries,
		clock:      clock,
		items:      make(map[string]*list.Element),
		lru:        list.New(),
	}
}

// Load implements Store.
func (m *MemoryStore) Load(ctx context.Context, key string) (*Session, error) {
	s, err := m.Get(ctx, key)
	if err == ErrNotFound {
		return New(key), nil
	}
	return s, err
}

// Get implements Store.
func (m *MemoryStore) Get(ctx context.Context, key string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.items[key]
	if !ok {
		return nil, ErrNotFound
	}
	e := el.Value.(*entry)
	if m.expired(e) {
		m.remove(el)
		return nil, ErrNotFound
	}
	return e.session.Clone(), nil
}

// Save implements Store.
func (m *MemoryStore) Save(ctx context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	s.UpdatedAt = now
	e := &entry{session: s.Clone()}
	if m.ttl > 0 {
		e.expires = now.Add(m.ttl)
	}

	if el, ok := m.items[s.Key]; ok {
		el.Value = e
		m.lru.MoveToFront(el)
	} else {
		m.items[s.Key] = m.lru.PushFront(e)
	}

	m.evict()
	metrics.SessionsActive.Set(float64(len(m.items)))
	return nil
}

// Len returns the number of held sessions, expired ones included until swept.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// Keys returns live session keys, most recently saved first.
func (m *MemoryStore) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.items))
	for el := m.lru.Front(); el != nil; el = el.Next() {
		e := el.Value.(*entry)
		if !m.expired(e) {
			keys = append(keys, e.session.Key)
		}
	}
	return keys
}

func (m *MemoryStore) evict() {
	for el := m.lru.Back(); el != nil; {
		prev := el.Prev()
		if m.expired(el.Value.(*entry)) {
			m.remove(el)
		}
		el = prev
	}
	for m.maxEntries > 0 && m.lru.Len() > m.maxEntries {
		m.remove(m.lru.Back())
	}
}

func (m *MemoryStore) expired(e *entry) bool {
	return !e.expires.IsZero() && !m.clock.Now().Before(e.expires)
}

func (m *MemoryStore) remove(el *list.Element) {
	e := m.lru.Remove(el).(*entry)
	delete(m.items, e.session.Key)
}
