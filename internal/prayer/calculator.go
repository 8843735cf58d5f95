package prayer

import "time"

// Default window lengths in minutes.
var defaultDurations = map[PrayerName]int{
	Fajr:    60,
	Dhuhr:   45,
	Asr:     45,
	Maghrib: 45,
	Isha:    60,
}

const (
	khutbahBufferMinutes = 30
	jummahMinutes        = 60
	iftarBufferMinutes   = 30
	taraweehMinutes      = 90
)

// Calculate turns raw start times into prayer windows for date.
//
// Fajr ends at Sunrise when Sunrise is known. Fridays get a Jummah window after
// the khutbah buffer; Ramadan extends Maghrib for iftar and adds Taraweeh after Isha.
// Prayers missing from raw are skipped.
func Calculate(raw map[PrayerName]Clock, date time.Time, ramadan bool) map[PrayerName]Window {
	windows := make(map[PrayerName]Window, len(windowOrder))

	for _, name := range DailyPrayers {
		start, ok := raw[name]
		if !ok {
			continue
		}
		end := start.AddMinutes(defaultDurations[name])

		switch name {
		case Fajr:
			if sunrise, ok := raw[Sunrise]; ok && sunrise > start {
				end = sunrise
			}
		case Maghrib:
			if ramadan {
				end = end.AddMinutes(iftarBufferMinutes)
			}
		}

		if w, ok := newWindow(start, end); ok {
			windows[name] = w
		}
	}

	if date.Weekday() == time.Friday {
		if dhuhr, ok := windows[Dhuhr]; ok {
			start := dhuhr.Start.AddMinutes(khutbahBufferMinutes)
			if w, ok := newWindow(start, start.AddMinutes(jummahMinutes)); ok {
				windows[Jummah] = w
			}
		}
	}

	if ramadan {
		if isha, ok := windows[Isha]; ok {
			if w, ok := newWindow(isha.End, isha.End.AddMinutes(taraweehMinutes)); ok {
				windows[Taraweeh] = w
			}
		}
	}

	return windows
}

// rawFromWindows recovers start times from computed windows so a cached day can
// be recomputed for a different date. Fajr's end stands in for Sunrise.
func rawFromWindows(windows map[PrayerName]Window) map[PrayerName]Clock {
	raw := make(map[PrayerName]Clock, len(DailyPrayers)+1)
	for _, name := range DailyPrayers {
		if w, ok := windows[name]; ok {
			raw[name] = w.Start
		}
	}
	if fajr, ok := windows[Fajr]; ok {
		raw[Sunrise] = fajr.End
	}
	return raw
}

func shiftTimes(raw map[PrayerName]Clock, minutes int) map[PrayerName]Clock {
	out := make(map[PrayerName]Clock, len(raw))
	for name, c := range raw {
		out[name] = c.AddMinutes(minutes)
	}
	return out
}
