package schedule

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"streamcal/internal/ics"
	appLog "streamcal/internal/log"
	"streamcal/internal/model"
)

// Policy selects how rules are projected.
type Policy string

const (
	// PolicyWeekly: one weekday -> next 4, several weekdays -> next 7 days.
	PolicyWeekly Policy = "weekly"
	// PolicyNextN: first NextCount occurrences within Horizon.
	PolicyNextN Policy = "next-n"
)

// ErrNoSnapshot is returned by Current before the first refresh.
var ErrNoSnapshot = errors.New("schedule not loaded yet")

// Options configures projection.
type Options struct {
	Policy    Policy
	NextCount int
	Horizon   time.Duration
}

// Apply projects rules under the configured policy.
func (o Options) Apply(rules []model.RecurringEventRule, now time.Time) []model.Occurrence {
	if o.Policy == PolicyNextN {
		return ProjectNext(rules, now, o.NextCount, o.Horizon)
	}
	return Project(rules, now)
}

// FeedFetcher retrieves the raw calendar feed.
type FeedFetcher interface {
	Fetch(ctx context.Context, src ics.Source) (ics.FetchResult, error)
}

// Snapshot is one projection of the schedule.
type Snapshot struct {
	Occurrences []model.Occurrence
	RuleCount   int
	GeneratedAt time.Time
	// FetchedAt is when the rules were last loaded.
	FetchedAt time.Time
	FromCache bool
	// Err is set when the feed could not be loaded; Occurrences is empty then.
	Err error
}

// Service fetches the feed, parses it and projects occurrences. Rules from
// the last successful load are kept so that callers can re-project with a
// fresh "now" without hitting the network.
type Service struct {
	fetcher     FeedFetcher
	source      ics.Source
	defaultZone string
	opts        Options

	mu        sync.RWMutex
	rules     []model.RecurringEventRule
	fetchedAt time.Time
	fromCache bool
	lastErr   error
	loaded    bool
}

// NewService wires a Service.
func NewService(fetcher FeedFetcher, source ics.Source, defaultZone string, opts Options) *Service {
	return &Service{
		fetcher:     fetcher,
		source:      source,
		defaultZone: defaultZone,
		opts:        opts,
	}
}

// Refresh loads the feed and returns a projection at now. A failed load
// clears the loaded rules; the fetcher already falls back to its disk cache
// before reporting an error.
func (s *Service) Refresh(ctx context.Context, now time.Time) (Snapshot, error) {
	res, err := s.fetcher.Fetch(ctx, s.source)
	if err != nil {
		appLog.Error("schedule refresh failed", err, "id", s.source.ID, "url", ics.RedactURL(s.source.URL))

		s.mu.Lock()
		s.rules = nil
		s.fetchedAt = now
		s.fromCache = false
		s.lastErr = err
		s.loaded = true
		s.mu.Unlock()

		return Snapshot{GeneratedAt: now, FetchedAt: now, Occurrences: []model.Occurrence{}, Err: err},
			fmt.Errorf("load schedule: %w", err)
	}

	rules, err := ics.ParseReader(bytes.NewReader(res.Body), s.defaultZone)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read schedule: %w", err)
	}

	s.mu.Lock()
	s.rules = rules
	s.fetchedAt = now
	s.fromCache = res.FromCache
	s.lastErr = nil
	s.loaded = true
	s.mu.Unlock()

	snap := s.project(rules, now, now, res.FromCache, nil)
	appLog.Info("schedule refreshed",
		"id", s.source.ID,
		"rules", len(rules),
		"occurrences", len(snap.Occurrences),
		"policy", string(s.opts.Policy),
		"from_cache", res.FromCache,
	)
	return snap, nil
}

// Current re-projects the last loaded rules at now.
func (s *Service) Current(now time.Time) (Snapshot, error) {
	s.mu.RLock()
	rules, fetchedAt, fromCache, lastErr, loaded := s.rules, s.fetchedAt, s.fromCache, s.lastErr, s.loaded
	s.mu.RUnlock()

	if !loaded {
		return Snapshot{}, ErrNoSnapshot
	}
	return s.project(rules, now, fetchedAt, fromCache, lastErr), nil
}

func (s *Service) project(rules []model.RecurringEventRule, now, fetchedAt time.Time, fromCache bool, err error) Snapshot {
	return Snapshot{
		Occurrences: s.opts.Apply(rules, now),
		RuleCount:   len(rules),
		GeneratedAt: now,
		FetchedAt:   fetchedAt,
		FromCache:   fromCache,
		Err:         err,
	}
}
