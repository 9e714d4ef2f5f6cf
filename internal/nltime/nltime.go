// Package nltime converts natural-language time fragments into concrete
// UTC instants.
//
// The conversion is deterministic pattern matching: an optional explicit
// date or relative-day word, a 12-hour clock time, and an optional timezone
// abbreviation from a fixed table. Fragments with no recognizable time
// pattern fall back to one hour from the reference now so the confirmation
// path is always completable.
package nltime

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// explicitDateRegex matches an absolute YYYY-MM-DD date in the fragment.
	explicitDateRegex = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	// clockRegex matches a 12-hour clock time: H[:MM] with a required meridiem.
	clockRegex = regexp.MustCompile(`(?i)\b(\d{1,2})(?::(\d{2}))?\s*(am|pm)\b`)
	// zoneRegex matches the supported timezone abbreviation tokens.
	zoneRegex = regexp.MustCompile(`(?i)\b(CAT|SAST|EST|PST)\b`)
)

// zoneOffsets maps supported timezone abbreviations to fixed UTC offsets in
// hours. Absence of a token means the fragment is already UTC.
var zoneOffsets = map[string]int{
	"CAT":  2,
	"SAST": 2,
	"EST":  -5,
	"PST":  -8,
}

// Normalize converts a natural-language time fragment plus a reference now
// into a UTC instant.
//
// Date resolution: an explicit YYYY-MM-DD wins; otherwise "tomorrow" means
// now+1 day and "next week" means now+7 days, else today. Time ranges use
// only the start time. When a timezone token is present its offset is
// subtracted to reach UTC; a result outside [0,24) shifts the date by one
// day and wraps the hour.
func Normalize(fragment string, now time.Time) time.Time {
	now = now.UTC()
	lower := strings.ToLower(fragment)

	year, month, day := now.Date()
	if m := explicitDateRegex.FindStringSubmatch(fragment); m != nil {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])
		year, month, day = y, time.Month(mo), d
	} else if strings.Contains(lower, "tomorrow") {
		year, month, day = now.AddDate(0, 0, 1).Date()
	} else if strings.Contains(lower, "next week") {
		year, month, day = now.AddDate(0, 0, 7).Date()
	}

	cm := clockRegex.FindStringSubmatch(fragment)
	if cm == nil {
		// No recognizable time pattern: deterministic fallback instead of
		// an error, so the caller always gets a usable instant.
		slog.Debug("nltime.Normalize: no time pattern, falling back to now+1h", "fragment", fragment)
		return now.Add(time.Hour).Truncate(time.Minute)
	}

	hour, _ := strconv.Atoi(cm[1])
	minute := 0
	if cm[2] != "" {
		minute, _ = strconv.Atoi(cm[2])
	}
	meridiem := strings.ToLower(cm[3])

	// Convert to 24-hour form: 12am is 0, 12pm stays 12, other pm hours add 12.
	if meridiem == "am" && hour == 12 {
		hour = 0
	} else if meridiem == "pm" && hour != 12 {
		hour += 12
	}

	offset := 0
	if zm := zoneRegex.FindStringSubmatch(fragment); zm != nil {
		offset = zoneOffsets[strings.ToUpper(zm[1])]
	}

	// Subtract the zone offset to reach the UTC hour; crossing a day
	// boundary shifts the calendar date by exactly one day.
	utcHour := hour - offset
	dayShift := 0
	if utcHour < 0 {
		utcHour += 24
		dayShift = -1
	} else if utcHour >= 24 {
		utcHour -= 24
		dayShift = 1
	}
	// Last-resort clamp; unreachable for valid parses.
	if utcHour < 0 {
		utcHour = 0
	} else if utcHour > 23 {
		utcHour = 23
	}

	return time.Date(year, month, day+dayShift, utcHour, minute, 0, 0, time.UTC)
}

// AddOneHour derives a meeting end time from its start time. Events are
// always one hour long; duration parsing is not supported.
func AddOneHour(t time.Time) time.Time {
	return t.Add(time.Hour)
}

// HasClockTime reports whether the fragment contains an explicit 12-hour
// clock time. Used by the extractor to validate time candidates without
// converting them.
func HasClockTime(fragment string) bool {
	return clockRegex.MatchString(fragment)
}

// FindClockTime returns the explicit clock-time substring within the
// fragment, or "" if none exists.
func FindClockTime(fragment string) string {
	return clockRegex.FindString(fragment)
}

// HumanReadable formats an instant for user-facing confirmation text.
func HumanReadable(t time.Time) string {
	return t.UTC().Format("Monday, January 2 2006 at 3:04 PM MST")
}
