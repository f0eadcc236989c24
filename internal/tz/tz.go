// Package tz converts civil wall-clock times in IANA zones to absolute
// instants. Unknown zones never fail; they behave as UTC.
package tz

import (
	"regexp"
	"strings"
	"time"
)

var (
	tzidRe       = regexp.MustCompile(`^[A-Za-z]+(?:/[A-Za-z0-9_+-]+)+$`)
	singleZoneRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_+-]*$`)
)

// hostZone is the process-local pseudo-zone; it is treated as unknown.
const hostZone = "Local"

func load(zone string) (*time.Location, bool) {
	if zone == "" || zone == hostZone {
		return nil, false
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, false
	}
	return loc, true
}

// Location resolves an IANA zone name, falling back to UTC for empty,
// unknown or malformed names and for "Local".
func Location(zone string) *time.Location {
	if loc, ok := load(zone); ok {
		return loc
	}
	return time.UTC
}

// Known reports whether zone resolves to a real location.
func Known(zone string) bool {
	_, ok := load(zone)
	return ok
}

// OffsetAt returns the UTC offset of zone at the given instant.
func OffsetAt(zone string, at time.Time) time.Duration {
	_, off := at.In(Location(zone)).Zone()
	return time.Duration(off) * time.Second
}

// CivilToInstant returns the instant whose wall clock in zone reads the
// given components. The offset is looked up once, at the components read
// as UTC, so results inside the hour around a DST transition may be off by
// the transition delta.
func CivilToInstant(year, month, day, hour, minute, second int, zone string) time.Time {
	guess := time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC)
	return guess.Add(-OffsetAt(zone, guess))
}

// NormalizeTZID cleans a TZID parameter value. Values must look like
// "Area/Location[/Sub]", or be a single-word zone the database knows
// ("UTC", "GMT"); anything else yields "".
func NormalizeTZID(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimLeft(s, `/\`)
	switch {
	case tzidRe.MatchString(s):
		return s
	case singleZoneRe.MatchString(s) && Known(s):
		return s
	default:
		return ""
	}
}

// PrefersHour12 reports whether viewers in zone conventionally read a
// 12-hour clock.
func PrefersHour12(zone string) bool {
	return strings.HasPrefix(zone, "America/") || strings.HasPrefix(zone, "Canada/")
}
