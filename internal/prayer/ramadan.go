package prayer

import (
	"fmt"
	"strings"
	"time"

	"github.com/BigBossQ8e/kuwait-social-ai-digitalocean-sub000/internal/common"
)

const ramadanHijriMonth = 9

// Period is an inclusive range of ISO dates.
type Period struct {
	Start string
	End   string
}

// Expected Ramadan dates for 1445–1451 AH. Moon sighting can move these by a day,
// so deployments override them through configuration.
var defaultRamadanPeriods = []Period{
	{Start: "2024-03-11", End: "2024-04-09"},
	{Start: "2025-03-01", End: "2025-03-29"},
	{Start: "2026-02-18", End: "2026-03-19"},
	{Start: "2027-02-08", End: "2027-03-09"},
	{Start: "2028-01-28", End: "2028-02-26"},
	{Start: "2029-01-16", End: "2029-02-14"},
	{Start: "2030-01-06", End: "2030-02-04"},
}

// RamadanCalendar answers whether a Gregorian date falls in Ramadan.
type RamadanCalendar struct {
	periods []Period
}

// NewRamadanCalendar uses periods when given, the built-in table otherwise.
func NewRamadanCalendar(periods []Period) *RamadanCalendar {
	if len(periods) == 0 {
		periods = defaultRamadanPeriods
	}
	return &RamadanCalendar{periods: periods}
}

// Contains compares ISO keys, which order the same way as the dates.
func (c *RamadanCalendar) Contains(date time.Time) bool {
	if c == nil {
		return false
	}
	key := common.DateKey(date)
	for _, p := range c.periods {
		if key >= p.Start && key <= p.End {
			return true
		}
	}
	return false
}

// Covers reports whether any period starts or ends in year.
func (c *RamadanCalendar) Covers(year int) bool {
	if c == nil {
		return false
	}
	prefix := fmt.Sprintf("%04d-", year)
	for _, p := range c.periods {
		if strings.HasPrefix(p.Start, prefix) || strings.HasPrefix(p.End, prefix) {
			return true
		}
	}
	return false
}

// ParsePeriods reads "YYYY-MM-DD:YYYY-MM-DD" entries separated by commas.
func ParsePeriods(s string) ([]Period, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var out []Period
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		bounds := strings.Split(item, ":")
		if len(bounds) != 2 {
			return nil, fmt.Errorf("invalid period %q: want start:end", item)
		}
		start, err := time.Parse(common.DateLayout, strings.TrimSpace(bounds[0]))
		if err != nil {
			return nil, fmt.Errorf("invalid period start %q: %w", bounds[0], err)
		}
		end, err := time.Parse(common.DateLayout, strings.TrimSpace(bounds[1]))
		if err != nil {
			return nil, fmt.Errorf("invalid period end %q: %w", bounds[1], err)
		}
		if end.Before(start) {
			return nil, fmt.Errorf("invalid period %q: end before start", item)
		}
		out = append(out, Period{Start: common.DateKey(start), End: common.DateKey(end)})
	}
	return out, nil
}
