package termview

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streamcal/internal/format"
	"streamcal/internal/model"
	"streamcal/internal/schedule"
)

var now = time.Date(2025, 1, 13, 12, 0, 0, 0, time.UTC)

func formatter(t *testing.T) *format.Formatter {
	t.Helper()
	cat, err := format.LoadCatalog()
	require.NoError(t, err)
	return format.New(cat.Localizer("en"), "UTC", false)
}

func snapshot() schedule.Snapshot {
	return schedule.Snapshot{Occurrences: []model.Occurrence{
		{Instant: time.Date(2025, 1, 13, 19, 0, 0, 0, time.UTC), Title: "Speedrun — Celeste"},
		{Instant: time.Date(2025, 1, 15, 19, 0, 0, 0, time.UTC), Title: "Chill", Category: "Just Chatting"},
		{Instant: time.Date(2025, 1, 17, 19, 0, 0, 0, time.UTC), Title: ""},
	}}
}

func TestPrintPlain(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Print(&buf, formatter(t), snapshot(), now, Options{}))

	assert.Equal(t, strings.Join([]string{
		"2025-01-13T19:00:00Z\tMon 13 Jan 19:00\tin 7 hours\tCeleste",
		"2025-01-15T19:00:00Z\tWed 15 Jan 19:00\tin 2 days\tJust Chatting",
		"2025-01-17T19:00:00Z\tFri 17 Jan 19:00\tin 4 days\tStream",
	}, "\n")+"\n", buf.String())
}

func TestPrintPlainLimitAndMessages(t *testing.T) {
	f := formatter(t)

	var buf bytes.Buffer
	require.NoError(t, Print(&buf, f, snapshot(), now, Options{Limit: 1}))
	assert.Equal(t, 1, strings.Count(buf.String(), "\n"))

	buf.Reset()
	require.NoError(t, Print(&buf, f, schedule.Snapshot{}, now, Options{}))
	assert.Equal(t, "No upcoming streams found.\n", buf.String())

	buf.Reset()
	require.NoError(t, Print(&buf, f, schedule.Snapshot{Err: errors.New("boom")}, now, Options{}))
	assert.Equal(t, "Unable to load schedule.\n", buf.String())
}

func TestPrintStyled(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Print(&buf, formatter(t), snapshot(), now, Options{Styled: true, Limit: 2}))

	out := buf.String()
	assert.Contains(t, out, "Next stream")
	assert.Contains(t, out, "Celeste")
	assert.Contains(t, out, "in 7 hours")
	assert.Contains(t, out, "Just Chatting")
	assert.NotContains(t, out, "Fri 17 Jan")
	assert.Contains(t, out, "╭")
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, IsTerminal(&bytes.Buffer{}))
}
