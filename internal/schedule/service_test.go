package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streamcal/internal/ics"
)

type stubFetcher struct {
	body      string
	fromCache bool
	err       error
	calls     int
}

func (s *stubFetcher) Fetch(_ context.Context, src ics.Source) (ics.FetchResult, error) {
	s.calls++
	if s.err != nil {
		return ics.FetchResult{}, s.err
	}
	return ics.FetchResult{Source: src, Body: []byte(s.body), FromCache: s.fromCache}, nil
}

const mondayFeed = "BEGIN:VCALENDAR\n" +
	"X-WR-TIMEZONE:Europe/Bucharest\n" +
	"BEGIN:VEVENT\n" +
	"DTSTART:20250106T210000\n" +
	"SUMMARY:Monday chill\n" +
	"RRULE:FREQ=WEEKLY;BYDAY=MO\n" +
	"END:VEVENT\n" +
	"END:VCALENDAR\n"

func TestServiceRefreshAndCurrent(t *testing.T) {
	f := &stubFetcher{body: mondayFeed, fromCache: true}
	svc := NewService(f, ics.Source{ID: "twitch", URL: "https://example.com/feed.ics"}, "", Options{Policy: PolicyWeekly})

	_, err := svc.Current(utc(2025, time.January, 7, 12, 0))
	assert.ErrorIs(t, err, ErrNoSnapshot)

	now := utc(2025, time.January, 7, 12, 0)
	snap, err := svc.Refresh(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.RuleCount)
	assert.True(t, snap.FromCache)
	require.Len(t, snap.Occurrences, 4)
	assert.Equal(t, utc(2025, time.January, 13, 19, 0), snap.Occurrences[0].Instant)

	later := utc(2025, time.January, 14, 12, 0)
	cur, err := svc.Current(later)
	require.NoError(t, err)
	assert.Equal(t, 1, f.calls, "Current must not fetch")
	assert.Equal(t, now, cur.FetchedAt)
	assert.Equal(t, later, cur.GeneratedAt)
	assert.Equal(t, utc(2025, time.January, 20, 19, 0), cur.Occurrences[0].Instant)
}

func TestServiceRefreshFailureClearsSchedule(t *testing.T) {
	f := &stubFetcher{body: mondayFeed}
	svc := NewService(f, ics.Source{ID: "twitch"}, "", Options{})
	now := utc(2025, time.January, 7, 12, 0)

	_, err := svc.Refresh(context.Background(), now)
	require.NoError(t, err)

	f.err = errors.New("connection refused")
	snap, err := svc.Refresh(context.Background(), now)
	require.Error(t, err)
	assert.ErrorContains(t, err, "connection refused")
	assert.Empty(t, snap.Occurrences)
	assert.Error(t, snap.Err)

	cur, err := svc.Current(now)
	require.NoError(t, err)
	assert.Empty(t, cur.Occurrences)
	assert.Error(t, cur.Err)
}

func TestServiceAppliesDefaultZone(t *testing.T) {
	feed := "BEGIN:VEVENT\nDTSTART:20250106T210000\nRRULE:FREQ=WEEKLY;BYDAY=MO\nEND:VEVENT\n"
	svc := NewService(&stubFetcher{body: feed}, ics.Source{ID: "x"}, "Europe/Bucharest", Options{})

	snap, err := svc.Refresh(context.Background(), utc(2025, time.January, 7, 12, 0))
	require.NoError(t, err)
	require.NotEmpty(t, snap.Occurrences)
	assert.Equal(t, "Europe/Bucharest", snap.Occurrences[0].Zone)
}

func TestServiceUTCDeclaredFeedIgnoresDefaultZone(t *testing.T) {
	feeds := map[string]string{
		"calendar zone": "BEGIN:VCALENDAR\nX-WR-TIMEZONE:UTC\nBEGIN:VEVENT\nDTSTART:20250107T190000\n" +
			"SUMMARY:Tuesday\nRRULE:FREQ=WEEKLY;BYDAY=TU\nEND:VEVENT\nEND:VCALENDAR\n",
		"event tzid": "BEGIN:VCALENDAR\nBEGIN:VEVENT\nDTSTART;TZID=UTC:20250107T190000\n" +
			"SUMMARY:Tuesday\nRRULE:FREQ=WEEKLY;BYDAY=TU\nEND:VEVENT\nEND:VCALENDAR\n",
	}
	for name, feed := range feeds {
		t.Run(name, func(t *testing.T) {
			svc := NewService(&stubFetcher{body: feed}, ics.Source{ID: "utc", URL: "https://example.com/utc.ics"},
				"Europe/Bucharest", Options{Policy: PolicyWeekly})

			snap, err := svc.Refresh(context.Background(), utc(2025, time.January, 8, 12, 0))
			require.NoError(t, err)
			require.NotEmpty(t, snap.Occurrences)
			assert.Equal(t, "UTC", snap.Occurrences[0].Zone)
			assert.Equal(t, utc(2025, time.January, 14, 19, 0), snap.Occurrences[0].Instant)
		})
	}
}
