package prayer

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/BigBossQ8e/kuwait-social-ai-digitalocean-sub000/internal/common"
)

// PrayerName identifies a prayer (or the Sunrise marker) in a day schedule.
type PrayerName string

const (
	Fajr     PrayerName = "Fajr"
	Sunrise  PrayerName = "Sunrise"
	Dhuhr    PrayerName = "Dhuhr"
	Asr      PrayerName = "Asr"
	Maghrib  PrayerName = "Maghrib"
	Isha     PrayerName = "Isha"
	Jummah   PrayerName = "Jummah"
	Taraweeh PrayerName = "Taraweeh"
)

// DailyPrayers are the five obligatory prayers every schedule carries.
var DailyPrayers = []PrayerName{Fajr, Dhuhr, Asr, Maghrib, Isha}

// windowOrder is the canonical lookup order; Dhuhr is checked before Jummah.
var windowOrder = []PrayerName{Fajr, Dhuhr, Jummah, Asr, Maghrib, Isha, Taraweeh}

// Source records where a DaySchedule came from.
type Source string

const (
	SourceAPI      Source = "api"
	SourceDisk     Source = "disk"
	SourceFallback Source = "fallback"
)

// Clock is a time of day in minutes since midnight.
type Clock int

const endOfDay Clock = 23*60 + 59

// NewClock builds a Clock from hour and minute.
func NewClock(hour, minute int) Clock {
	return Clock(hour*60 + minute)
}

// ClockOf returns the time of day of t in t's own location.
func ClockOf(t time.Time) Clock {
	return NewClock(t.Hour(), t.Minute())
}

// ParseClock accepts "HH:MM" optionally followed by a zone suffix such as "04:12 (+03)".
func ParseClock(s string) (Clock, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0, fmt.Errorf("empty time value")
	}
	parts := strings.Split(fields[0], ":")
	if len(parts) < 2 {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return NewClock(h, m), nil
}

// AddMinutes shifts the clock, clamped to the same day.
func (c Clock) AddMinutes(n int) Clock {
	out := c + Clock(n)
	if out < 0 {
		return 0
	}
	if out > endOfDay {
		return endOfDay
	}
	return out
}

// On anchors the clock to the calendar day of date.
func (c Clock) On(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), int(c)/60, int(c)%60, 0, 0, date.Location())
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

func (c Clock) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *Clock) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseClock(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Window is the time range during which a prayer is observed.
type Window struct {
	Start           Clock `json:"start"`
	End             Clock `json:"end"`
	DurationMinutes int   `json:"duration_minutes"`
}

func newWindow(start, end Clock) (Window, bool) {
	if end <= start {
		return Window{}, false
	}
	return Window{Start: start, End: end, DurationMinutes: int(end - start)}, true
}

// Contains reports whether c falls inside the half-open range [Start, End).
func (w Window) Contains(c Clock) bool {
	return c >= w.Start && c < w.End
}

// Location represents a place for which prayer times are computed.
type Location struct {
	City    string   `json:"city"`
	Country string   `json:"country"`
	Lat     *float64 `json:"lat,omitempty"`
	Lon     *float64 `json:"lon,omitempty"`
}

// Key returns a canonical string key for this location.
func (l Location) Key() string {
	return strings.ToLower(l.City) + ":" + strings.ToLower(l.Country)
}

func (l Location) HasCoordinates() bool {
	return l.Lat != nil && l.Lon != nil
}

// RawTimes is a provider's normalized answer for one date.
type RawTimes struct {
	Date       time.Time
	Times      map[PrayerName]Clock
	HijriMonth int // 0 when the provider did not report it
	Provider   string
}

// DaySchedule holds the prayer windows for one date. It is replaced wholesale,
// never edited after creation.
type DaySchedule struct {
	Date        string                `json:"date"`
	Windows     map[PrayerName]Window `json:"times"`
	CachedAt    time.Time             `json:"cached_at"`
	Source      Source                `json:"source"`
	Provider    string                `json:"provider,omitempty"`
	HijriMonth  int                   `json:"hijri_month,omitempty"`
	ShiftedDays int                   `json:"shifted_days,omitempty"`
}

// Names returns the schedule's prayer names in canonical order.
func (d DaySchedule) Names() []PrayerName {
	out := make([]PrayerName, 0, len(d.Windows))
	for _, name := range windowOrder {
		if _, ok := d.Windows[name]; ok {
			out = append(out, name)
		}
	}
	return out
}

// Day parses the schedule date in loc.
func (d DaySchedule) Day(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(common.DateLayout, d.Date, loc)
}

// NextPrayer describes the next upcoming prayer window.
type NextPrayer struct {
	Name         PrayerName `json:"name"`
	Time         time.Time  `json:"time"`
	MinutesUntil int        `json:"minutes_until"`
}

// Slot is the result of moving a requested publish time out of prayer windows.
type Slot struct {
	Requested   time.Time  `json:"requested"`
	ScheduledAt time.Time  `json:"scheduled_at"`
	Shifted     bool       `json:"shifted"`
	Prayer      PrayerName `json:"prayer,omitempty"`
}
