package model

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// TimeOfDay is a local wall-clock start time.
type TimeOfDay struct {
	Hour   int // 0-23
	Minute int // 0-59
	Second int // 0-59
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// RecurringEventRule is one weekly-recurring stream slot extracted from a
// calendar feed. It is built once per parse pass and treated as immutable.
type RecurringEventRule struct {
	// Weekdays holds distinct weekday indices in the order they were listed
	// (0=Sunday..6=Saturday). Never empty for a rule returned by the parser.
	Weekdays []time.Weekday

	TimeOfDay TimeOfDay

	// Zone is an IANA identifier; the parser already applied the calendar
	// default and the UTC fallback.
	Zone string

	Title       string
	Category    string
	Description string
}

// HasWeekday reports whether the rule recurs on d.
func (r RecurringEventRule) HasWeekday(d time.Weekday) bool {
	for _, w := range r.Weekdays {
		if w == d {
			return true
		}
	}
	return false
}

// Occurrence is a single concrete future start of a recurring stream.
type Occurrence struct {
	Instant time.Time

	// Zone is the originating rule's zone, kept for display.
	Zone string

	Title       string
	Category    string
	Description string
}

var (
	gameLineRe = regexp.MustCompile(`(?i)(?:Game|Category)\s*:\s*([^\n\r]+)`)
	bracketRe  = regexp.MustCompile(`\[([^\]]+)\]`)
)

// Game picks the most specific label for what is being streamed:
// category, then a "Game:"/"Category:" line in the description, then the
// summary part after a dash, then a [bracketed] part, then the summary.
// It returns "" when nothing usable exists.
func (o Occurrence) Game() string {
	if c := strings.TrimSpace(o.Category); c != "" {
		return c
	}
	if m := gameLineRe.FindStringSubmatch(o.Description); m != nil {
		return strings.TrimSpace(m[1])
	}
	for _, sep := range []string{"—", "-"} {
		parts := strings.Split(o.Title, sep)
		if len(parts) > 1 && parts[1] != "" {
			return strings.TrimSpace(parts[1])
		}
	}
	if m := bracketRe.FindStringSubmatch(o.Title); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(o.Title)
}
