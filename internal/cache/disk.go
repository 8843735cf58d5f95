package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/BigBossQ8e/kuwait-social-ai-digitalocean-sub000/internal/common"
	"github.com/BigBossQ8e/kuwait-social-ai-digitalocean-sub000/internal/prayer"
)

// DefaultRetention is how long disk entries are kept, by date key.
const DefaultRetention = 30 * 24 * time.Hour

// diskRecord is the persisted value for one ISO date key.
type diskRecord struct {
	Times    map[prayer.PrayerName]prayer.Window `json:"times"`
	CachedAt time.Time                           `json:"cached_at"`
	Source   prayer.Source                       `json:"source"`
	Provider string                              `json:"provider,omitempty"`
	Hijri    int                                 `json:"hijri_month,omitempty"`
}

// Disk persists day schedules to a single JSON object keyed by ISO date.
//
// Writes are read-modify-write under an in-process mutex and land through a
// temp file rename. Separate processes sharing the file can still race.
type Disk struct {
	mu        sync.Mutex
	path      string
	retention time.Duration
	now       func() time.Time
}

func NewDisk(path string, retention time.Duration) *Disk {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Disk{path: path, retention: retention, now: time.Now}
}

// PathFor builds a per-location cache file name inside dir.
func PathFor(dir string, loc prayer.Location) string {
	name := strings.NewReplacer(" ", "_", ":", "_", "/", "_").Replace(loc.Key())
	return filepath.Join(dir, "prayer_times_"+name+".json")
}

func (d *Disk) Get(date time.Time) (prayer.DaySchedule, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	records := d.readLocked()
	key := common.DateKey(date)
	rec, ok := records[key]
	if !ok || len(rec.Times) == 0 {
		return prayer.DaySchedule{}, false
	}
	return rec.schedule(key), true
}

// Nearest searches outward from date one day at a time, earlier days first.
// The returned offset is positive when the cached day precedes date.
func (d *Disk) Nearest(date time.Time, maxDays int) (prayer.DaySchedule, int, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	records := d.readLocked()
	if len(records) == 0 {
		return prayer.DaySchedule{}, 0, false
	}
	for i := 1; i <= maxDays; i++ {
		for _, offset := range []int{i, -i} {
			key := common.DateKey(date.AddDate(0, 0, -offset))
			if rec, ok := records[key]; ok && len(rec.Times) > 0 {
				return rec.schedule(key), offset, true
			}
		}
	}
	return prayer.DaySchedule{}, 0, false
}

// Save stores sched under date and trims entries past retention.
func (d *Disk) Save(date time.Time, sched prayer.DaySchedule) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	records := d.readLocked()
	records[common.DateKey(date)] = diskRecord{
		Times:    sched.Windows,
		CachedAt: sched.CachedAt,
		Source:   sched.Source,
		Provider: sched.Provider,
		Hijri:    sched.HijriMonth,
	}
	d.trimLocked(records)
	return d.writeLocked(records)
}

func (d *Disk) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.readLocked())
}

// readLocked treats a missing or unreadable file as empty.
func (d *Disk) readLocked() map[string]diskRecord {
	records := map[string]diskRecord{}

	data, err := os.ReadFile(d.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", d.path).Msg("failed to read prayer times cache file")
		}
		return records
	}
	if len(data) == 0 {
		return records
	}
	if err := json.Unmarshal(data, &records); err != nil {
		log.Warn().Err(err).Str("path", d.path).Msg("prayer times cache file is corrupt; ignoring it")
		return map[string]diskRecord{}
	}
	return records
}

func (d *Disk) trimLocked(records map[string]diskRecord) {
	cutoff := common.DateKey(d.now().Add(-d.retention))
	for key := range records {
		if _, err := time.Parse(common.DateLayout, key); err != nil || key < cutoff {
			delete(records, key)
		}
	}
}

func (d *Disk) writeLocked(records map[string]diskRecord) error {
	if dir := filepath.Dir(d.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create cache dir: %w", err)
		}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}

	tmp := d.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write cache file: %w", err)
	}
	if err := os.Rename(tmp, d.path); err != nil {
		return fmt.Errorf("replace cache file: %w", err)
	}
	return nil
}

func (r diskRecord) schedule(key string) prayer.DaySchedule {
	return prayer.DaySchedule{
		Date:       key,
		Windows:    r.Times,
		CachedAt:   r.CachedAt,
		Source:     r.Source,
		Provider:   r.Provider,
		HijriMonth: r.Hijri,
	}
}
