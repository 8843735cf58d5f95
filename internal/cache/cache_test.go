package cache

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/BigBossQ8e/kuwait-social-ai-digitalocean-sub000/internal/prayer"
)

func schedule(date string, dhuhrStart int, cachedAt time.Time) prayer.DaySchedule {
	start := prayer.Clock(dhuhrStart)
	return prayer.DaySchedule{
		Date: date,
		Windows: map[prayer.PrayerName]prayer.Window{
			prayer.Dhuhr: {Start: start, End: start + 45, DurationMinutes: 45},
		},
		CachedAt: cachedAt,
		Source:   prayer.SourceAPI,
		Provider: "aladhan",
	}
}

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestMemoryExpiresAfterTTL(t *testing.T) {
	now := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	m := NewMemory(time.Hour)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	m.Set(ctx, "k", schedule("2024-06-15", 705, now))
	if _, ok := m.Get(ctx, "k"); !ok {
		t.Fatalf("expected fresh entry to be returned")
	}

	now = now.Add(59 * time.Minute)
	if _, ok := m.Get(ctx, "k"); !ok {
		t.Fatalf("expected entry inside TTL to be returned")
	}

	now = now.Add(time.Minute)
	if _, ok := m.Get(ctx, "k"); ok {
		t.Fatalf("expected entry to expire at TTL")
	}
}

func TestMemorySetEvictsExpired(t *testing.T) {
	now := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	m := NewMemory(time.Hour)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	m.Set(ctx, "old", schedule("2024-06-15", 705, now))
	now = now.Add(2 * time.Hour)
	m.Set(ctx, "new", schedule("2024-06-16", 705, now))

	if m.Len() != 1 {
		t.Fatalf("expected expired entry to be evicted, got %d entries", m.Len())
	}
}

func TestDiskSaveAndGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "prayer.json")
	d := NewDisk(path, 0)
	d.now = func() time.Time { return day("2024-06-15") }

	cachedAt := time.Date(2024, 6, 15, 6, 0, 0, 0, time.UTC)
	if err := d.Save(day("2024-06-15"), schedule("2024-06-15", 705, cachedAt)); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, ok := d.Get(day("2024-06-15"))
	if !ok {
		t.Fatalf("expected saved entry")
	}
	if got.Date != "2024-06-15" || got.Windows[prayer.Dhuhr].Start != 705 {
		t.Fatalf("unexpected entry %+v", got)
	}
	if !got.CachedAt.Equal(cachedAt) || got.Provider != "aladhan" {
		t.Fatalf("metadata not preserved: %+v", got)
	}

	ramadanDay := schedule("2031-01-06", 705, cachedAt)
	ramadanDay.HijriMonth = 9
	if err := d.Save(day("2031-01-06"), ramadanDay); err != nil {
		t.Fatalf("save: %v", err)
	}
	if got, ok := d.Get(day("2031-01-06")); !ok || got.HijriMonth != 9 {
		t.Fatalf("expected Hijri month to survive a round trip, got %+v", got)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	for _, want := range []string{`"2024-06-15"`, `"times"`, `"cached_at"`, `"source": "api"`, `"start": "11:45"`} {
		if !strings.Contains(string(data), want) {
			t.Fatalf("expected file to contain %s, got:\n%s", want, data)
		}
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("expected temp file to be renamed away")
	}
}

func TestDiskTrimsOldEntries(t *testing.T) {
	d := NewDisk(filepath.Join(t.TempDir(), "prayer.json"), 30*24*time.Hour)
	d.now = func() time.Time { return day("2024-06-15") }

	for _, date := range []string{"2024-05-01", "2024-05-16", "2024-06-15"} {
		if err := d.Save(day(date), schedule(date, 705, day(date))); err != nil {
			t.Fatalf("save %s: %v", date, err)
		}
	}

	if _, ok := d.Get(day("2024-05-01")); ok {
		t.Fatalf("expected entry older than retention to be trimmed")
	}
	if _, ok := d.Get(day("2024-05-16")); !ok {
		t.Fatalf("expected entry on the retention boundary to be kept")
	}
	if d.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", d.Len())
	}
}

func TestDiskNearestPrefersEarlierDay(t *testing.T) {
	d := NewDisk(filepath.Join(t.TempDir(), "prayer.json"), 0)
	d.now = func() time.Time { return day("2024-06-15") }

	for _, date := range []string{"2024-06-08", "2024-06-12", "2024-06-14"} {
		if err := d.Save(day(date), schedule(date, 705, day(date))); err != nil {
			t.Fatalf("save %s: %v", date, err)
		}
	}

	// 06-12 is one day before 06-13; 06-14 is one day after. Earlier wins.
	got, offset, ok := d.Nearest(day("2024-06-13"), 7)
	if !ok || got.Date != "2024-06-12" || offset != 1 {
		t.Fatalf("expected 2024-06-12 at +1, got %q at %d (ok=%v)", got.Date, offset, ok)
	}

	got, offset, ok = d.Nearest(day("2024-06-10"), 7)
	if !ok || got.Date != "2024-06-08" || offset != 2 {
		t.Fatalf("expected 2024-06-08 at +2, got %q at %d (ok=%v)", got.Date, offset, ok)
	}

	got, offset, ok = d.Nearest(day("2024-06-05"), 7)
	if !ok || got.Date != "2024-06-08" || offset != -3 {
		t.Fatalf("expected later 2024-06-08 at -3, got %q at %d (ok=%v)", got.Date, offset, ok)
	}

	if _, _, ok := d.Nearest(day("2024-07-01"), 7); ok {
		t.Fatalf("expected no entry within range")
	}
}

func TestDiskCorruptFileIsTreatedAsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prayer.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	d := NewDisk(path, 0)
	d.now = func() time.Time { return day("2024-06-15") }

	if _, ok := d.Get(day("2024-06-15")); ok {
		t.Fatalf("expected miss on corrupt file")
	}
	if err := d.Save(day("2024-06-15"), schedule("2024-06-15", 705, day("2024-06-15"))); err != nil {
		t.Fatalf("save over corrupt file: %v", err)
	}
	if _, ok := d.Get(day("2024-06-15")); !ok {
		t.Fatalf("expected entry after rewrite")
	}
}

func TestPathForSanitisesLocation(t *testing.T) {
	got := PathFor("/data", prayer.Location{City: "Kuwait City", Country: "Kuwait"})
	if got != filepath.Join("/data", "prayer_times_kuwait_city_kuwait.json") {
		t.Fatalf("unexpected path %q", got)
	}
}

func TestTieredBackfillsLocal(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	local := NewMemory(time.Hour)
	shared := NewMemory(time.Hour)

	shared.Set(ctx, "k", schedule("2024-06-15", 705, now))
	tiered := NewTiered(local, shared)

	if _, ok := tiered.Get(ctx, "k"); !ok {
		t.Fatalf("expected shared hit")
	}
	if _, ok := local.Get(ctx, "k"); !ok {
		t.Fatalf("expected local tier to be back-filled")
	}

	tiered.Set(ctx, "k2", schedule("2024-06-16", 705, now))
	if _, ok := shared.Get(ctx, "k2"); !ok {
		t.Fatalf("expected write-through to shared tier")
	}
}

func TestTieredWithoutShared(t *testing.T) {
	ctx := context.Background()
	tiered := NewTiered(NewMemory(time.Hour), nil)

	if _, ok := tiered.Get(ctx, "missing"); ok {
		t.Fatalf("expected miss")
	}
	tiered.Set(ctx, "k", schedule("2024-06-15", 705, time.Now()))
	if _, ok := tiered.Get(ctx, "k"); !ok {
		t.Fatalf("expected local hit")
	}
}
