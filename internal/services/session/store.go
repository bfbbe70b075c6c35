package session

import (
	"context"
	"sync"
	"time"

	"github.com/phambaophuc/thumbnail-creator/internal/models"
)

// Store persists sessions for at most their TTL. Load returns
// models.ErrSessionNotFound for unknown or expired ids.
type Store interface {
	Save(ctx context.Context, s *models.Session) error
	Load(ctx context.Context, id string) (*models.Session, error)
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

type memoryEntry struct {
	session   models.Session
	expiresAt time.Time
}

// MemoryStore keeps sessions in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (m *MemoryStore) Save(_ context.Context, s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[s.ID] = memoryEntry{
		session:   clone(s),
		expiresAt: m.now().Add(m.ttl),
	}
	return nil
}

func (m *MemoryStore) Load(_ context.Context, id string) (*models.Session, error) {
	m.mu.RLock()
	entry, ok := m.entries[id]
	m.mu.RUnlock()

	if !ok || m.expired(entry) {
		return nil, models.ErrSessionNotFound
	}

	s := clone(&entry.session)
	return &s, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, id)
	return nil
}

func (m *MemoryStore) Ping(context.Context) error {
	return nil
}

// Cleanup drops expired sessions and reports how many were removed.
func (m *MemoryStore) Cleanup(context.Context) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, entry := range m.entries {
		if m.expired(entry) {
			delete(m.entries, id)
			removed++
		}
	}
	return removed
}

func (m *MemoryStore) expired(entry memoryEntry) bool {
	return m.ttl > 0 && !m.now().Before(entry.expiresAt)
}

// clone copies the slices of s so callers can mutate the copy. Image bytes
// are never modified in place and stay shared.
func clone(s *models.Session) models.Session {
	out := *s
	if s.Sources != nil {
		out.Sources = append([]models.SourceImage(nil), s.Sources...)
	}
	if s.Results != nil {
		out.Results = append([]models.RenderResult(nil), s.Results...)
	}
	return out
}
