package prayer

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/BigBossQ8e/kuwait-social-ai-digitalocean-sub000/internal/common"
)

// Provider abstracts an external prayer-time API.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, loc Location, date time.Time) (RawTimes, error)
}

// MemoryCache is the short-lived tier consulted before any provider call.
type MemoryCache interface {
	Get(ctx context.Context, key string) (DaySchedule, bool)
	Set(ctx context.Context, key string, sched DaySchedule)
}

// DiskCache is the persistent tier consulted when every provider fails.
type DiskCache interface {
	Get(date time.Time) (DaySchedule, bool)
	// Nearest returns the closest cached day within maxDays and the signed
	// distance in days from that day to date.
	Nearest(date time.Time, maxDays int) (DaySchedule, int, bool)
	Save(date time.Time, sched DaySchedule) error
}

// Alerter notifies operators; it reports whether any channel delivered.
type Alerter interface {
	Notify(ctx context.Context, subject, message, service string) bool
}

const defaultProviderTimeout = 5 * time.Second

// Fetcher tries providers in preference order and returns the first success.
type Fetcher struct {
	providers []Provider
	timeout   time.Duration
}

// NewFetcher keeps the given order. A timeout <= 0 uses 5s per provider.
func NewFetcher(providers []Provider, timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = defaultProviderTimeout
	}
	return &Fetcher{providers: providers, timeout: timeout}
}

// Fetch never returns an error: provider failures are logged and skipped,
// and ok is false only when every provider failed.
func (f *Fetcher) Fetch(ctx context.Context, loc Location, date time.Time) (RawTimes, bool) {
	if f == nil || len(f.providers) == 0 {
		log.Error().Str("location", loc.Key()).Msg("no prayer time providers configured")
		return RawTimes{}, false
	}

	for _, p := range f.providers {
		raw, err := f.fetchOne(ctx, p, loc, date)
		if err != nil {
			log.Warn().Err(err).
				Str("provider", p.Name()).
				Str("location", loc.Key()).
				Str("date", common.DateKey(date)).
				Msg("prayer time provider failed")
			continue
		}
		if raw.Provider == "" {
			raw.Provider = p.Name()
		}
		return raw, true
	}
	return RawTimes{}, false
}

func (f *Fetcher) fetchOne(ctx context.Context, p Provider, loc Location, date time.Time) (RawTimes, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	return p.Fetch(ctx, loc, date)
}
