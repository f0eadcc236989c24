package ics

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	ical "github.com/arran4/golang-ical"

	"streamcal/internal/model"
)

const (
	exportProductID   = "-//streamcal//upcoming streams//EN"
	defaultStreamSlot = 2 * time.Hour
)

// ExportOptions controls the generated feed.
type ExportOptions struct {
	// Name is written as X-WR-CALNAME.
	Name string
	// Stamp is the DTSTAMP of every event; callers pass their "now".
	Stamp time.Time
	// Duration is the nominal length of each stream. Defaults to 2h.
	Duration time.Duration
}

// Export renders projected occurrences as a PUBLISH calendar so the
// schedule can be subscribed to from any calendar client.
func Export(occs []model.Occurrence, opts ExportOptions) string {
	if opts.Duration <= 0 {
		opts.Duration = defaultStreamSlot
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(exportProductID)
	if opts.Name != "" {
		cal.SetXWRCalName(opts.Name)
	}

	for _, occ := range occs {
		ev := cal.AddEvent(occurrenceUID(occ))
		ev.SetDtStampTime(opts.Stamp.UTC())
		ev.SetStartAt(occ.Instant.UTC())
		ev.SetEndAt(occ.Instant.Add(opts.Duration).UTC())
		ev.SetSummary(occ.Title)
		if occ.Category != "" {
			ev.AddProperty(ical.ComponentPropertyCategories, occ.Category)
		}
		if occ.Description != "" {
			ev.SetDescription(occ.Description)
		}
	}

	return cal.Serialize()
}

// occurrenceUID is stable across refreshes for the same slot.
func occurrenceUID(occ model.Occurrence) string {
	sum := sha256.Sum256([]byte(occ.Title + "|" + occ.Instant.UTC().Format(dateTimeUTCLayout)))
	return hex.EncodeToString(sum[:8]) + "@streamcal"
}
