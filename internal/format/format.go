// Package format renders occurrences for people: localized date labels,
// countdowns and the fixed widget phrases. Phrase tables live in
// locales/active.<lang>.json.
package format

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"

	appLog "streamcal/internal/log"
	"streamcal/internal/model"
	"streamcal/internal/tz"
)

// Message IDs shared by every locale file.
const (
	MsgNextStream   = "NextStream"
	MsgNoUpcoming   = "NoUpcoming"
	MsgLoadFailed   = "LoadFailed"
	MsgShowMore     = "ShowMore"
	MsgHideMore     = "HideMore"
	MsgAllPlatforms = "AllPlatforms"
	MsgStream       = "Stream"
	MsgLiveNow      = "LiveNow"
	MsgLiveNowOn    = "LiveNowOn"
	MsgLiveTitle    = "LiveTitle"
	MsgOffline      = "Offline"
	MsgSoon         = "Soon"
	MsgInDays       = "InDays"
	MsgInHours      = "InHours"
	MsgInMinutes    = "InMinutes"
)

const DefaultLanguage = "en"

//go:embed locales/*.json
var localeFS embed.FS

// Catalog holds the loaded phrase tables.
type Catalog struct {
	bundle    *i18n.Bundle
	languages []string
}

// LoadCatalog loads every embedded locale file.
func LoadCatalog() (*Catalog, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("read locales: %w", err)
	}

	c := &Catalog{bundle: bundle}
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, "active.") || !strings.HasSuffix(name, ".json") {
			continue
		}
		lang := strings.TrimSuffix(strings.TrimPrefix(name, "active."), ".json")
		if lang == "" {
			continue
		}
		if _, err := bundle.LoadMessageFileFS(localeFS, "locales/"+name); err != nil {
			return nil, fmt.Errorf("load locale %s: %w", name, err)
		}
		c.languages = append(c.languages, lang)
	}
	return c, nil
}

// Languages lists the loaded locale tags.
func (c *Catalog) Languages() []string {
	return append([]string(nil), c.languages...)
}

// Localizer returns a localizer for the given preferences (tags or
// Accept-Language values); English fills any gap.
func (c *Catalog) Localizer(prefs ...string) *i18n.Localizer {
	langs := append(append([]string(nil), prefs...), DefaultLanguage)
	return i18n.NewLocalizer(c.bundle, langs...)
}

// Formatter renders occurrences in one locale and display zone.
type Formatter struct {
	localizer *i18n.Localizer
	location  *time.Location
	hour12    bool
}

// New builds a Formatter. zone is the viewer's display zone.
func New(localizer *i18n.Localizer, zone string, hour12 bool) *Formatter {
	return &Formatter{
		localizer: localizer,
		location:  tz.Location(zone),
		hour12:    hour12,
	}
}

// Phrase localizes a message; missing messages render as their ID.
func (f *Formatter) Phrase(id string, data map[string]any) string {
	if f.localizer == nil {
		return id
	}
	msg, err := f.localizer.Localize(&i18n.LocalizeConfig{MessageID: id, TemplateData: data})
	if err != nil {
		appLog.Debug("phrase missing", "id", id, "err", err)
		return id
	}
	return msg
}

func (f *Formatter) plural(id string, n int) string {
	if f.localizer == nil {
		return fmt.Sprintf("%s %d", id, n)
	}
	msg, err := f.localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    id,
		PluralCount:  n,
		TemplateData: map[string]any{"Count": n},
	})
	if err != nil {
		appLog.Debug("phrase missing", "id", id, "err", err)
		return fmt.Sprintf("%s %d", id, n)
	}
	return msg
}

// Label renders the start as e.g. "Mon 13 Jan 21:00" (or "09:00 PM").
func (f *Formatter) Label(occ model.Occurrence) string {
	t := occ.Instant.In(f.location)

	clock := t.Format("15:04")
	if f.hour12 {
		clock = t.Format("03:04 PM")
	}

	return fmt.Sprintf("%s %02d %s %s",
		f.Phrase(fmt.Sprintf("Weekday%d", int(t.Weekday())), nil),
		t.Day(),
		f.Phrase(fmt.Sprintf("Month%d", int(t.Month())), nil),
		clock,
	)
}

// Countdown renders the time left until occ, in whole days, hours or
// minutes, or "soon" under a minute.
func (f *Formatter) Countdown(occ model.Occurrence, now time.Time) string {
	left := occ.Instant.Sub(now)

	if days := int(left / (24 * time.Hour)); days >= 1 {
		return f.plural(MsgInDays, days)
	}
	if hours := int(left / time.Hour); hours >= 1 {
		return f.plural(MsgInHours, hours)
	}
	if minutes := int(left / time.Minute); minutes >= 1 {
		return f.plural(MsgInMinutes, minutes)
	}
	return f.Phrase(MsgSoon, nil)
}

// Game is occ's game label, or the localized "Stream" fallback.
func (f *Formatter) Game(occ model.Occurrence) string {
	if g := occ.Game(); g != "" {
		return g
	}
	return f.Phrase(MsgStream, nil)
}

// Hour12 resolves an "auto|true|false" preference against the display zone.
func Hour12(pref, zone string) bool {
	switch strings.ToLower(strings.TrimSpace(pref)) {
	case "true", "yes", "12":
		return true
	case "false", "no", "24":
		return false
	default:
		return tz.PrefersHour12(zone)
	}
}
