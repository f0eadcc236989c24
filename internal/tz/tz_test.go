package tz

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCivilToInstant(t *testing.T) {
	tests := []struct {
		name string
		zone string
		in   [6]int
		want time.Time
	}{
		{"utc", "UTC", [6]int{2025, 1, 1, 12, 0, 0}, time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)},
		{"bucharest winter", "Europe/Bucharest", [6]int{2025, 1, 6, 21, 0, 0}, time.Date(2025, 1, 6, 19, 0, 0, 0, time.UTC)},
		{"bucharest summer", "Europe/Bucharest", [6]int{2025, 7, 7, 21, 0, 0}, time.Date(2025, 7, 7, 18, 0, 0, 0, time.UTC)},
		{"new york standard", "America/New_York", [6]int{2025, 3, 9, 1, 30, 0}, time.Date(2025, 3, 9, 6, 30, 0, 0, time.UTC)},
		{"new york daylight", "America/New_York", [6]int{2025, 3, 9, 12, 0, 0}, time.Date(2025, 3, 9, 16, 0, 0, 0, time.UTC)},
		{"day overflow normalizes", "UTC", [6]int{2025, 1, 32, 0, 0, 0}, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)},
		{"half hour zone", "Asia/Kolkata", [6]int{2025, 5, 1, 20, 0, 0}, time.Date(2025, 5, 1, 14, 30, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := tt.in
			got := CivilToInstant(c[0], c[1], c[2], c[3], c[4], c[5], tt.zone)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestCivilToInstantRoundTripsWallClock(t *testing.T) {
	got := CivilToInstant(2025, 10, 20, 21, 0, 0, "Europe/Bucharest")
	local := got.In(Location("Europe/Bucharest"))
	assert.Equal(t, 2025, local.Year())
	assert.Equal(t, time.October, local.Month())
	assert.Equal(t, 20, local.Day())
	assert.Equal(t, 21, local.Hour())
	assert.Equal(t, 0, local.Minute())
}

func TestUnknownZoneBehavesAsUTC(t *testing.T) {
	want := CivilToInstant(2025, 1, 1, 12, 0, 0, "UTC")
	for _, zone := range []string{"Not/AZone", "", "garbage zone", "../etc/passwd"} {
		got := CivilToInstant(2025, 1, 1, 12, 0, 0, zone)
		assert.True(t, want.Equal(got), "zone %q: got %s", zone, got)
		assert.Equal(t, time.UTC, Location(zone))
		assert.Zero(t, OffsetAt(zone, want))
	}
	assert.False(t, Known("Not/AZone"))
	assert.True(t, Known("Europe/Bucharest"))
}

func TestHostZoneIsNotAZone(t *testing.T) {
	t.Setenv("TZ", "America/New_York")

	assert.False(t, Known("Local"))
	assert.Equal(t, time.UTC, Location("Local"))
	got := CivilToInstant(2025, 1, 14, 19, 0, 0, "Local")
	assert.True(t, time.Date(2025, 1, 14, 19, 0, 0, 0, time.UTC).Equal(got), "got %s", got)
}

func TestOffsetAt(t *testing.T) {
	winter := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	summer := time.Date(2025, 7, 15, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, 2*time.Hour, OffsetAt("Europe/Bucharest", winter))
	assert.Equal(t, 3*time.Hour, OffsetAt("Europe/Bucharest", summer))
	assert.Equal(t, -5*time.Hour, OffsetAt("America/New_York", winter))
}

func TestNormalizeTZID(t *testing.T) {
	tests := map[string]string{
		"Europe/Bucharest":        "Europe/Bucharest",
		"  America/New_York ":     "America/New_York",
		"/Europe/London":          "Europe/London",
		`\\Etc/GMT+2`:             "Etc/GMT+2",
		"America/Argentina/Salta": "America/Argentina/Salta",
		"UTC":                     "UTC",
		" GMT":                    "GMT",
		"Local":                   "",
		"Nowhere":                 "",
		"":                        "",
		"Europe/Bucharest;x":      "",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeTZID(in), "input %q", in)
	}
}

func TestPrefersHour12(t *testing.T) {
	assert.True(t, PrefersHour12("America/Chicago"))
	assert.True(t, PrefersHour12("Canada/Pacific"))
	assert.False(t, PrefersHour12("Europe/Bucharest"))
	assert.False(t, PrefersHour12(""))
}
