package cache

import (
	"context"
	"sync"
	"time"

	"github.com/BigBossQ8e/kuwait-social-ai-digitalocean-sub000/internal/prayer"
)

// Memory is a concurrency-safe in-process TTL cache of day schedules.
type Memory struct {
	mu sync.RWMutex

	// key: location + ISO date
	entries map[string]prayer.DaySchedule

	ttl time.Duration // <= 0 means entries never expire
	now func() time.Time
}

// NewMemory creates a Memory cache; an entry expires ttl after its CachedAt.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		entries: make(map[string]prayer.DaySchedule),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (m *Memory) Get(_ context.Context, key string) (prayer.DaySchedule, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sched, ok := m.entries[key]
	if !ok || m.expired(sched, m.now()) {
		return prayer.DaySchedule{}, false
	}
	return sched, true
}

// Set replaces the entry for key and drops anything already expired.
func (m *Memory) Set(_ context.Context, key string, sched prayer.DaySchedule) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = sched

	now := m.now()
	for k, s := range m.entries {
		if m.expired(s, now) {
			delete(m.entries, k)
		}
	}
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *Memory) expired(s prayer.DaySchedule, now time.Time) bool {
	return m.ttl > 0 && !now.Before(s.CachedAt.Add(m.ttl))
}
