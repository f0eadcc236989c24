package schedule

import (
	"errors"
	"time"

	"github.com/teambition/rrule-go"

	"streamcal/internal/model"
	"streamcal/internal/tz"
)

var errNoWeekdays = errors.New("rule has no weekdays")

var rruleWeekdays = [...]rrule.Weekday{
	time.Sunday:    rrule.SU,
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
}

// ProjectNext lists the first n occurrences across all rules that fall in
// (now, now+horizon]. Unlike Project it gives the same shape of result no
// matter how many weekdays the rules cover. Expansion runs in each rule's
// own zone, so wall-clock times stay put across DST changes.
func ProjectNext(rules []model.RecurringEventRule, now time.Time, n int, horizon time.Duration) []model.Occurrence {
	out := []model.Occurrence{}
	if n <= 0 || horizon <= 0 {
		return out
	}
	limit := now.Add(horizon)

	for _, rule := range rules {
		r, err := weeklyRRule(rule, now)
		if err != nil {
			continue
		}
		for _, at := range r.Between(now, limit, true) {
			if !at.After(now) {
				continue
			}
			out = append(out, occurrenceOf(rule, at.UTC()))
		}
	}

	sortOccurrences(out)
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// weeklyRRule builds the rule's recurrence anchored on the day before now
// (in the rule's zone) so a slot later today is still produced.
func weeklyRRule(rule model.RecurringEventRule, now time.Time) (*rrule.RRule, error) {
	loc := tz.Location(rule.Zone)
	y, m, d := now.In(loc).Date()
	c := rule.TimeOfDay

	days := make([]rrule.Weekday, 0, len(rule.Weekdays))
	for _, w := range rule.Weekdays {
		if w >= time.Sunday && w <= time.Saturday {
			days = append(days, rruleWeekdays[w])
		}
	}
	if len(days) == 0 {
		return nil, errNoWeekdays
	}

	return rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Byweekday: days,
		Dtstart:   time.Date(y, m, d-1, c.Hour, c.Minute, c.Second, 0, loc),
	})
}
