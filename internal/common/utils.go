package common

import (
	"time"

	"github.com/rs/zerolog/log"
)

// DateLayout is the ISO date format used for cache keys and query parameters.
const DateLayout = "2006-01-02"

// DateKey formats the calendar day of t.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// StartOfDay returns midnight of t's calendar day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// LoadLocation resolves an IANA zone, falling back to a fixed offset if tzdata is missing.
func LoadLocation(name string, fallbackOffset time.Duration) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Warn().Err(err).Str("zone", name).Msg("time zone not available; using fixed offset")
		return time.FixedZone(name, int(fallbackOffset.Seconds()))
	}
	return loc
}
