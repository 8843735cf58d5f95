package prayer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/BigBossQ8e/kuwait-social-ai-digitalocean-sub000/internal/common"
)

// ErrInvalidDate is returned for a zero date; every other failure is absorbed.
var ErrInvalidDate = errors.New("invalid date")

const (
	defaultFailureThreshold = 3
	defaultNearestDays      = 7
	defaultShiftPerDay      = 2 * time.Minute
	alertServicePrefix      = "prayer_times"
	maxSlotHops             = 8
)

// Options configures a Service. Zero values pick the defaults noted per field.
type Options struct {
	Location Location
	TimeZone *time.Location // default UTC
	Fetcher  *Fetcher
	Memory   MemoryCache // required
	Disk     DiskCache   // optional
	Alerter  Alerter     // optional
	Ramadan  *RamadanCalendar

	FailureThreshold int           // default 3
	NearestDays      int           // default 7
	ShiftPerDay      time.Duration // default 2m

	Now func() time.Time
}

// Service resolves prayer windows for one location through the fallback chain:
// memory, providers, disk cache (exact then nearest), seasonal table.
type Service struct {
	loc     Location
	tz      *time.Location
	fetcher *Fetcher
	memory  MemoryCache
	disk    DiskCache
	alerter Alerter
	ramadan *RamadanCalendar

	failureThreshold int
	nearestDays      int
	shiftPerDay      time.Duration
	now              func() time.Time

	mu       sync.Mutex
	failures int
}

// NewService creates a Service.
func NewService(opts Options) *Service {
	s := &Service{
		loc:              opts.Location,
		tz:               opts.TimeZone,
		fetcher:          opts.Fetcher,
		memory:           opts.Memory,
		disk:             opts.Disk,
		alerter:          opts.Alerter,
		ramadan:          opts.Ramadan,
		failureThreshold: opts.FailureThreshold,
		nearestDays:      opts.NearestDays,
		shiftPerDay:      opts.ShiftPerDay,
		now:              opts.Now,
	}
	if s.tz == nil {
		s.tz = time.UTC
	}
	if s.ramadan == nil {
		s.ramadan = NewRamadanCalendar(nil)
	}
	if s.failureThreshold <= 0 {
		s.failureThreshold = defaultFailureThreshold
	}
	if s.nearestDays <= 0 {
		s.nearestDays = defaultNearestDays
	}
	if s.shiftPerDay <= 0 {
		s.shiftPerDay = defaultShiftPerDay
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *Service) Location() Location { return s.loc }

func (s *Service) TimeZone() *time.Location { return s.tz }

// FailureCount is the number of consecutive fetch failures since the last
// success or alert.
func (s *Service) FailureCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failures
}

// GetPrayerTimes returns the windows for date's calendar day in the service
// time zone. It only fails for a zero date.
func (s *Service) GetPrayerTimes(ctx context.Context, date time.Time) (DaySchedule, error) {
	if date.IsZero() {
		return DaySchedule{}, ErrInvalidDate
	}
	day := common.StartOfDay(date, s.tz)
	key := s.cacheKey(day)

	if sched, ok := s.memory.Get(ctx, key); ok {
		return sched, nil
	}

	if raw, ok := s.fetcher.Fetch(ctx, s.loc, day); ok {
		sched := DaySchedule{
			Date:       common.DateKey(day),
			Windows:    Calculate(raw.Times, day, s.isRamadan(day, raw.HijriMonth)),
			CachedAt:   s.now(),
			Source:     SourceAPI,
			Provider:   raw.Provider,
			HijriMonth: raw.HijriMonth,
		}
		s.memory.Set(ctx, key, sched)
		if s.disk != nil {
			if err := s.disk.Save(day, sched); err != nil {
				log.Warn().Err(err).Str("location", s.loc.Key()).Msg("failed to persist prayer times")
			}
		}
		s.resetFailures()
		return sched, nil
	}

	s.recordFailure(ctx, day)

	if sched, ok := s.fromDisk(day); ok {
		return sched, nil
	}
	return s.fromSeasonalTable(day), nil
}

// IsPrayerTime reports whether at falls inside a prayer window and which one.
func (s *Service) IsPrayerTime(ctx context.Context, at time.Time) (bool, PrayerName) {
	local := at.In(s.tz)
	sched, err := s.GetPrayerTimes(ctx, local)
	if err != nil {
		return false, ""
	}
	name, _, ok := activeWindow(sched, ClockOf(local))
	return ok, name
}

// GetNextPrayer returns the first window starting after at, rolling over to
// the next day's earliest window.
func (s *Service) GetNextPrayer(ctx context.Context, at time.Time) (NextPrayer, error) {
	if at.IsZero() {
		return NextPrayer{}, ErrInvalidDate
	}
	local := at.In(s.tz)
	today := common.StartOfDay(local, s.tz)

	sched, err := s.GetPrayerTimes(ctx, today)
	if err != nil {
		return NextPrayer{}, err
	}
	now := ClockOf(local)
	for _, name := range byStart(sched) {
		if start := sched.Windows[name].Start; start > now {
			return nextPrayer(name, start.On(today), local), nil
		}
	}

	tomorrow := today.AddDate(0, 0, 1)
	sched, err = s.GetPrayerTimes(ctx, tomorrow)
	if err != nil {
		return NextPrayer{}, err
	}
	names := byStart(sched)
	if len(names) == 0 {
		return NextPrayer{}, fmt.Errorf("no prayer windows for %s", common.DateKey(tomorrow))
	}
	first := names[0]
	return nextPrayer(first, sched.Windows[first].Start.On(tomorrow), local), nil
}

// NextAvailableSlot moves at past any prayer window it falls in, following
// back-to-back windows, so content is never published during prayer.
func (s *Service) NextAvailableSlot(ctx context.Context, at time.Time) (Slot, error) {
	if at.IsZero() {
		return Slot{}, ErrInvalidDate
	}
	slot := Slot{Requested: at, ScheduledAt: at}
	current := at.In(s.tz)

	for i := 0; i < maxSlotHops; i++ {
		sched, err := s.GetPrayerTimes(ctx, current)
		if err != nil {
			return Slot{}, err
		}
		name, w, ok := activeWindow(sched, ClockOf(current))
		if !ok {
			break
		}
		if slot.Prayer == "" {
			slot.Prayer = name
		}
		current = w.End.On(current)
		slot.ScheduledAt = current
		slot.Shifted = true
	}
	return slot, nil
}

// Warm loads today and tomorrow so request-path lookups hit the memory tier.
func (s *Service) Warm(ctx context.Context) error {
	today := common.StartOfDay(s.now(), s.tz)
	for _, day := range []time.Time{today, today.AddDate(0, 0, 1)} {
		sched, err := s.GetPrayerTimes(ctx, day)
		if err != nil {
			return err
		}
		log.Debug().
			Str("location", s.loc.Key()).
			Str("date", sched.Date).
			Str("source", string(sched.Source)).
			Msg("prayer times warmed")
	}
	return nil
}

func (s *Service) cacheKey(day time.Time) string {
	return s.loc.Key() + ":" + common.DateKey(day)
}

// shiftedRamadan trusts the calendar for years it lists, the cached Hijri month otherwise.
func (s *Service) shiftedRamadan(day time.Time, cached DaySchedule) bool {
	if s.ramadan.Covers(day.Year()) {
		return s.ramadan.Contains(day)
	}
	return cached.HijriMonth == ramadanHijriMonth
}

func (s *Service) isRamadan(day time.Time, hijriMonth int) bool {
	if hijriMonth > 0 {
		return hijriMonth == ramadanHijriMonth
	}
	return s.ramadan.Contains(day)
}

func (s *Service) resetFailures() {
	s.mu.Lock()
	s.failures = 0
	s.mu.Unlock()
}

// recordFailure bumps the counter and fires one alert when it reaches the
// threshold, then starts counting again.
func (s *Service) recordFailure(ctx context.Context, day time.Time) {
	s.mu.Lock()
	s.failures++
	count := s.failures
	fire := count >= s.failureThreshold
	if fire {
		s.failures = 0
	}
	s.mu.Unlock()

	log.Warn().
		Int("consecutive_failures", count).
		Str("location", s.loc.Key()).
		Str("date", common.DateKey(day)).
		Msg("all prayer time providers failed; using fallback chain")

	if !fire || s.alerter == nil {
		return
	}
	subject := "Prayer times API failure"
	message := fmt.Sprintf(
		"All prayer time providers failed %d consecutive times for %s, %s (date %s). Serving cached or seasonal fallback times.",
		count, s.loc.City, s.loc.Country, common.DateKey(day),
	)
	if !s.alerter.Notify(ctx, subject, message, s.alertService()) {
		log.Error().Str("location", s.loc.Key()).Msg("prayer times failure alert was not delivered")
	}
}

// alertService scopes alert rate limiting to this location.
func (s *Service) alertService() string {
	return alertServicePrefix + ":" + s.loc.Key()
}

func (s *Service) fromDisk(day time.Time) (DaySchedule, bool) {
	if s.disk == nil {
		return DaySchedule{}, false
	}
	if sched, ok := s.disk.Get(day); ok {
		sched.Source = SourceDisk
		return sched, true
	}

	cached, offset, ok := s.disk.Nearest(day, s.nearestDays)
	if !ok {
		return DaySchedule{}, false
	}
	// Linear drift approximation; not astronomically grounded.
	minutes := offset * int(s.shiftPerDay/time.Minute)
	raw := shiftTimes(rawFromWindows(cached.Windows), minutes)

	log.Info().
		Str("location", s.loc.Key()).
		Str("date", common.DateKey(day)).
		Str("cached_date", cached.Date).
		Int("shift_minutes", minutes).
		Msg("serving shifted prayer times from disk cache")

	return DaySchedule{
		Date:        common.DateKey(day),
		Windows:     Calculate(raw, day, s.shiftedRamadan(day, cached)),
		CachedAt:    cached.CachedAt,
		Source:      SourceDisk,
		Provider:    cached.Provider,
		HijriMonth:  cached.HijriMonth,
		ShiftedDays: offset,
	}, true
}

func (s *Service) fromSeasonalTable(day time.Time) DaySchedule {
	log.Warn().
		Str("location", s.loc.Key()).
		Str("date", common.DateKey(day)).
		Msg("serving seasonal fallback prayer times")

	return DaySchedule{
		Date:     common.DateKey(day),
		Windows:  Calculate(SeasonalTimes(day), day, s.ramadan.Contains(day)),
		CachedAt: s.now(),
		Source:   SourceFallback,
	}
}

func activeWindow(sched DaySchedule, c Clock) (PrayerName, Window, bool) {
	for _, name := range windowOrder {
		w, ok := sched.Windows[name]
		if ok && w.Contains(c) {
			return name, w, true
		}
	}
	return "", Window{}, false
}

// byStart orders names by window start, canonical order breaking ties.
func byStart(sched DaySchedule) []PrayerName {
	names := sched.Names()
	sort.SliceStable(names, func(i, j int) bool {
		return sched.Windows[names[i]].Start < sched.Windows[names[j]].Start
	})
	return names
}

func nextPrayer(name PrayerName, at, now time.Time) NextPrayer {
	return NextPrayer{
		Name:         name,
		Time:         at,
		MinutesUntil: int(at.Sub(now) / time.Minute),
	}
}
