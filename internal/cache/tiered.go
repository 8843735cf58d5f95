package cache

import (
	"context"

	"github.com/BigBossQ8e/kuwait-social-ai-digitalocean-sub000/internal/prayer"
)

// Tiered checks a local cache before a shared one and back-fills the local
// tier on shared hits.
type Tiered struct {
	local  prayer.MemoryCache
	shared prayer.MemoryCache
}

func NewTiered(local, shared prayer.MemoryCache) *Tiered {
	return &Tiered{local: local, shared: shared}
}

func (t *Tiered) Get(ctx context.Context, key string) (prayer.DaySchedule, bool) {
	if sched, ok := t.local.Get(ctx, key); ok {
		return sched, true
	}
	if t.shared == nil {
		return prayer.DaySchedule{}, false
	}
	sched, ok := t.shared.Get(ctx, key)
	if ok {
		t.local.Set(ctx, key, sched)
	}
	return sched, ok
}

func (t *Tiered) Set(ctx context.Context, key string, sched prayer.DaySchedule) {
	t.local.Set(ctx, key, sched)
	if t.shared != nil {
		t.shared.Set(ctx, key, sched)
	}
}
