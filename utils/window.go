package utils

import (
	"strconv"
	"strings"
	"time"
)

// Weekday names used on weekly announcements, indexed by time.Weekday (Minggu = Sunday).
var indonesianDays = []string{"Minggu", "Senin", "Selasa", "Rabu", "Kamis", "Jumat", "Sabtu"}

// Window is the absolute check-in window derived from an announcement schedule.
// TargetDate is the calendar date the window belongs to, normalized to local midnight.
type Window struct {
	Start      time.Time
	End        time.Time
	TargetDate time.Time
}

// parseHM parses an "HH.MM" component. Hours clamp to [0,23], minutes to [0,59];
// malformed or missing pieces default to 0.
func parseHM(s string) (int, int) {
	parts := strings.SplitN(strings.TrimSpace(s), ".", 2)
	hh, _ := strconv.Atoi(strings.TrimSpace(parts[0]))
	mm := 0
	if len(parts) > 1 {
		mm, _ = strconv.Atoi(strings.TrimSpace(parts[1]))
	}
	return clamp(hh, 0, 23), clamp(mm, 0, 59)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// NormalizeLocalDate truncates t to midnight in its own location.
func NormalizeLocalDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// IsSameLocalDate reports whether a and b fall on the same calendar date in a's location.
func IsSameLocalDate(a, b time.Time) bool {
	b = b.In(a.Location())
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

// dayOffset returns how many days from base until the next (or same-day)
// occurrence of the named weekday. Unknown names resolve to 0, i.e. today;
// this is a deliberate permissive fallback rather than an error.
func dayOffset(day string, base time.Time) int {
	wanted := -1
	for i, d := range indonesianDays {
		if strings.EqualFold(d, strings.TrimSpace(day)) {
			wanted = i
			break
		}
	}
	if wanted < 0 {
		return 0
	}
	return (wanted - int(base.Weekday()) + 7) % 7
}

// normalizeRange turns both the UTF-8 en-dash and its mis-encoded Latin-1 form
// into a plain hyphen so stored ranges split consistently.
func normalizeRange(rng string) string {
	rng = strings.ReplaceAll(rng, "â€“", "-")
	return strings.ReplaceAll(rng, "–", "-")
}

// ParseTimeRange projects a weekly schedule ("Rabu", "15.00-18.00") onto
// absolute instants relative to base. The projection always lands on base's
// date or later within the current week, never in the past. A range with only
// a start component yields a zero-length window at the start instant.
func ParseTimeRange(day, rng string, base time.Time) Window {
	parts := strings.SplitN(normalizeRange(rng), "-", 2)
	startStr := strings.TrimSpace(parts[0])
	endStr := ""
	if len(parts) > 1 {
		endStr = strings.TrimSpace(parts[1])
	}

	sh, sm := parseHM(startStr)
	eh, em := sh, sm
	if endStr != "" {
		eh, em = parseHM(endStr)
	}

	target := base.AddDate(0, 0, dayOffset(day, base))
	start := time.Date(target.Year(), target.Month(), target.Day(), sh, sm, 0, 0, base.Location())
	end := time.Date(target.Year(), target.Month(), target.Day(), eh, em, 0, 0, base.Location())

	return Window{Start: start, End: end, TargetDate: NormalizeLocalDate(target)}
}

// IsWithinWindow reports whether now falls inside the window, inclusive on
// both bounds. A zero-length window admits exactly its start instant.
func IsWithinWindow(now time.Time, w Window) bool {
	return !now.Before(w.Start) && !now.After(w.End)
}

// ParseYMD parses "YYYY", "YYYY-MM" or "YYYY-MM-DD" into a local date in loc.
// Missing month and day default to 1; month clamps into [1,12] and day is
// raised to at least 1. A day past the end of the month rolls over into the
// next month via time.Date normalization, matching the original rollover
// behavior rather than clamping. A non-numeric year fails the parse.
func ParseYMD(s string, loc *time.Location) (time.Time, bool) {
	parts := strings.SplitN(strings.TrimSpace(s), "-", 3)
	year, err := strconv.Atoi(parts[0])
	if err != nil || year <= 0 {
		return time.Time{}, false
	}
	month, dayNum := 1, 1
	if len(parts) > 1 {
		if m, err := strconv.Atoi(parts[1]); err == nil {
			month = clamp(m, 1, 12)
		}
	}
	if len(parts) > 2 {
		if d, err := strconv.Atoi(parts[2]); err == nil && d > 1 {
			dayNum = d
		}
	}
	return time.Date(year, time.Month(month), dayNum, 0, 0, 0, 0, loc), true
}
