package ics

import (
	"io"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"streamcal/internal/model"
	"streamcal/internal/tz"
)

// weekdayCodes maps BYDAY codes to weekday indices.
var weekdayCodes = map[string]time.Weekday{
	"SU": time.Sunday,
	"MO": time.Monday,
	"TU": time.Tuesday,
	"WE": time.Wednesday,
	"TH": time.Thursday,
	"FR": time.Friday,
	"SA": time.Saturday,
}

const (
	dateTimeLayout    = "20060102T150405"
	dateTimeUTCLayout = "20060102T150405Z"
)

// startField is a parsed DTSTART date-time.
type startField struct {
	clock model.TimeOfDay
	zone  string // normalized TZID, "" when absent
	utc   bool
}

// rruleField is a parsed RRULE value.
type rruleField struct {
	freq     rrule.Frequency
	freqOK   bool
	weekdays []time.Weekday
}

// eventRecord accumulates the fields of one VEVENT block.
type eventRecord struct {
	start       *startField
	title       string
	category    string
	description string
	rrule       *rruleField
}

func (r *eventRecord) apply(p property) {
	switch p.kind {
	case propDTStart:
		if sf, ok := parseStart(p); ok {
			r.start = &sf
		} else {
			r.start = nil
		}
	case propSummary:
		r.title = unescapeText(p.value)
	case propCategories:
		r.category = unescapeText(p.value)
	case propDescription:
		r.description = unescapeText(p.value)
	case propRRule:
		rf := parseRRule(p.value)
		r.rrule = &rf
	}
}

// rule converts the record into a weekly rule. Records that are not a
// weekly schedule report ok=false.
func (r eventRecord) rule(fallbackZone string) (model.RecurringEventRule, bool) {
	if r.start == nil || r.rrule == nil {
		return model.RecurringEventRule{}, false
	}
	if !r.rrule.freqOK || r.rrule.freq != rrule.WEEKLY {
		return model.RecurringEventRule{}, false
	}
	if len(r.rrule.weekdays) == 0 {
		return model.RecurringEventRule{}, false
	}

	zone := fallbackZone
	switch {
	case r.start.utc:
		zone = "UTC"
	case r.start.zone != "":
		zone = r.start.zone
	}

	return model.RecurringEventRule{
		Weekdays:    append([]time.Weekday(nil), r.rrule.weekdays...),
		TimeOfDay:   r.start.clock,
		Zone:        zone,
		Title:       r.title,
		Category:    r.category,
		Description: r.description,
	}, true
}

// Parse extracts weekly recurring stream slots from calendar text.
//
// Events that are not weekly schedules (no date-time DTSTART, no RRULE,
// another FREQ, no known BYDAY code) are skipped; Parse never fails.
// Zone precedence per event: DTSTART TZID, X-WR-TIMEZONE, defaultZone, UTC.
// Rules are returned in source order.
func Parse(text, defaultZone string) []model.RecurringEventRule {
	lines := unfoldLines(text)

	props := make([]property, 0, len(lines))
	var (
		calendarZone    string
		sawCalendarZone bool
	)
	for _, ln := range lines {
		p, ok := tokenizeLine(ln)
		if !ok {
			continue
		}
		// Only the first X-WR-TIMEZONE counts, even when it is malformed.
		if p.kind == propCalendarTZ && !sawCalendarZone {
			calendarZone = tz.NormalizeTZID(p.value)
			sawCalendarZone = true
		}
		props = append(props, p)
	}

	fallback := "UTC"
	if z := strings.TrimSpace(defaultZone); z != "" {
		fallback = z
	}
	if calendarZone != "" {
		fallback = calendarZone
	}

	var (
		rules []model.RecurringEventRule
		cur   *eventRecord
		// nested counts components opened inside the current VEVENT
		// (VALARM and friends) whose properties must not leak into it.
		nested int
	)
	for _, p := range props {
		switch p.kind {
		case propBegin:
			comp := strings.ToUpper(strings.TrimSpace(p.value))
			if comp == "VEVENT" {
				cur = &eventRecord{}
				nested = 0
			} else if cur != nil {
				nested++
			}
			continue
		case propEnd:
			comp := strings.ToUpper(strings.TrimSpace(p.value))
			if comp == "VEVENT" {
				if cur != nil {
					if r, ok := cur.rule(fallback); ok {
						rules = append(rules, r)
					}
				}
				cur = nil
				nested = 0
			} else if cur != nil && nested > 0 {
				nested--
			}
			continue
		}

		if cur == nil || nested > 0 {
			continue
		}
		cur.apply(p)
	}

	return rules
}

// ParseReader reads r fully and parses it. Only read errors are returned.
func ParseReader(r io.Reader, defaultZone string) ([]model.RecurringEventRule, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Parse(string(data), defaultZone), nil
}

func parseStart(p property) (startField, bool) {
	v := strings.TrimSpace(p.value)

	var (
		t   time.Time
		err error
		utc bool
	)
	if strings.HasSuffix(v, "Z") {
		t, err = time.Parse(dateTimeUTCLayout, v)
		utc = true
	} else {
		t, err = time.Parse(dateTimeLayout, v)
	}
	if err != nil {
		return startField{}, false
	}

	return startField{
		clock: model.TimeOfDay{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()},
		zone:  tz.NormalizeTZID(p.param("TZID")),
		utc:   utc,
	}, true
}

func parseRRule(value string) rruleField {
	var out rruleField
	for _, part := range strings.Split(value, ";") {
		k, v, found := strings.Cut(part, "=")
		if !found {
			continue
		}
		switch strings.ToUpper(strings.TrimSpace(k)) {
		case "FREQ":
			freq, err := rrule.StrToFreq(strings.ToUpper(strings.TrimSpace(v)))
			out.freq, out.freqOK = freq, err == nil
		case "BYDAY":
			out.weekdays = nil
			for _, code := range strings.Split(v, ",") {
				d, ok := weekdayCodes[strings.ToUpper(strings.TrimSpace(code))]
				if !ok || containsWeekday(out.weekdays, d) {
					continue
				}
				out.weekdays = append(out.weekdays, d)
			}
		}
	}
	return out
}

func containsWeekday(ws []time.Weekday, d time.Weekday) bool {
	for _, w := range ws {
		if w == d {
			return true
		}
	}
	return false
}
