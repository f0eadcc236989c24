// Package schedule turns weekly stream rules into concrete upcoming
// occurrences and keeps the latest projection for the serving layer.
package schedule

import (
	"slices"
	"time"

	"streamcal/internal/model"
	"streamcal/internal/tz"
)

const (
	week = 7 * 24 * time.Hour

	// singleWeekdayCount is how many occurrences are listed when every rule
	// falls on the same weekday.
	singleWeekdayCount = 4
)

// Project computes upcoming occurrences for rules relative to now.
//
// When all rules share exactly one weekday, the first rule on that weekday
// yields four occurrences one week apart. Otherwise every (rule, weekday)
// pair contributes its next occurrence if it falls within (now, now+7d].
// The result is sorted by instant; equal instants keep input order.
func Project(rules []model.RecurringEventRule, now time.Time) []model.Occurrence {
	days := distinctWeekdays(rules)
	if len(days) == 0 {
		return []model.Occurrence{}
	}

	var out []model.Occurrence
	if len(days) == 1 {
		out = projectSingleWeekday(rules, days[0], now)
	} else {
		out = projectWeekWindow(rules, now)
	}

	sortOccurrences(out)
	return out
}

func projectSingleWeekday(rules []model.RecurringEventRule, day time.Weekday, now time.Time) []model.Occurrence {
	idx := slices.IndexFunc(rules, func(r model.RecurringEventRule) bool { return r.HasWeekday(day) })
	rule := rules[idx]

	out := make([]model.Occurrence, 0, singleWeekdayCount)
	at := NextOccurrence(rule, day, now)
	for i := 0; i < singleWeekdayCount; i++ {
		out = append(out, occurrenceOf(rule, at))
		at = at.Add(week)
	}
	return out
}

func projectWeekWindow(rules []model.RecurringEventRule, now time.Time) []model.Occurrence {
	limit := now.Add(week)

	out := make([]model.Occurrence, 0, len(rules))
	for _, rule := range rules {
		for _, day := range rule.Weekdays {
			at := NextOccurrence(rule, day, now)
			if at.After(limit) {
				continue
			}
			out = append(out, occurrenceOf(rule, at))
		}
	}
	return out
}

// NextOccurrence returns the first instant strictly after now at which
// rule's wall clock reads day at its time of day. Today counts only if the
// start time has not been reached yet.
func NextOccurrence(rule model.RecurringEventRule, day time.Weekday, now time.Time) time.Time {
	local := now.In(tz.Location(rule.Zone))
	delta := (int(day) - int(local.Weekday()) + 7) % 7

	at := civilOn(rule, local, delta)
	if !at.After(now) {
		at = civilOn(rule, local, delta+7)
	}
	return at
}

// civilOn converts rule's time of day on the date offset days after local.
func civilOn(rule model.RecurringEventRule, local time.Time, offset int) time.Time {
	y, m, d := local.Date()
	date := time.Date(y, m, d+offset, 0, 0, 0, 0, time.UTC)
	c := rule.TimeOfDay
	return tz.CivilToInstant(date.Year(), int(date.Month()), date.Day(), c.Hour, c.Minute, c.Second, rule.Zone)
}

func occurrenceOf(rule model.RecurringEventRule, at time.Time) model.Occurrence {
	return model.Occurrence{
		Instant:     at,
		Zone:        rule.Zone,
		Title:       rule.Title,
		Category:    rule.Category,
		Description: rule.Description,
	}
}

// distinctWeekdays lists weekdays referenced by any rule, first-seen order.
func distinctWeekdays(rules []model.RecurringEventRule) []time.Weekday {
	var days []time.Weekday
	for _, r := range rules {
		for _, d := range r.Weekdays {
			if !slices.Contains(days, d) {
				days = append(days, d)
			}
		}
	}
	return days
}

func sortOccurrences(occs []model.Occurrence) {
	slices.SortStableFunc(occs, func(a, b model.Occurrence) int {
		return a.Instant.Compare(b.Instant)
	})
}
