// Package live tracks whether the streamer is currently broadcasting.
//
// State is explicit: each poll takes the previous State and returns the
// next one, so the transition logic is a pure function.
package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"

	appLog "streamcal/internal/log"
)

// Status is the live endpoint payload.
type Status struct {
	Live      bool            `json:"live"`
	Platforms map[string]bool `json:"platforms"`
}

// State is what the badge shows after a poll.
type State struct {
	Live bool `json:"live"`
	// Platforms lists the platforms currently live on, sorted.
	Platforms []string `json:"platforms"`
	// WentLive is true only on the poll that saw offline -> live.
	WentLive  bool      `json:"went_live"`
	CheckedAt time.Time `json:"checked_at"`
}

// Next applies a fresh status to the previous state.
func Next(prev State, st Status, at time.Time) State {
	var platforms []string
	if st.Live {
		for name, on := range st.Platforms {
			if on {
				platforms = append(platforms, strings.ToLower(name))
			}
		}
		slices.Sort(platforms)
	}
	return State{
		Live:      st.Live,
		Platforms: platforms,
		WentLive:  st.Live && !prev.Live,
		CheckedAt: at,
	}
}

// Offline is the state reported when the endpoint cannot be read.
func Offline(at time.Time) State {
	return State{CheckedAt: at}
}

// Checker polls the live endpoint.
type Checker struct {
	client *http.Client
	url    string
	now    func() time.Time
}

// NewChecker creates a Checker for url.
func NewChecker(url string, timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Checker{
		client: &http.Client{Timeout: timeout},
		url:    url,
		now:    time.Now,
	}
}

// Check fetches the endpoint and returns the next state. On any failure it
// returns the offline state together with the error.
func (c *Checker) Check(ctx context.Context, prev State) (State, error) {
	at := c.now()

	st, err := c.fetch(ctx)
	if err != nil {
		return Offline(at), err
	}

	next := Next(prev, st, at)
	if next.WentLive {
		appLog.Info("stream went live", "platforms", strings.Join(next.Platforms, ","))
	}
	return next, nil
}

func (c *Checker) fetch(ctx context.Context) (Status, error) {
	if c.url == "" {
		return Status{}, errors.New("live endpoint not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return Status{}, err
	}
	req.Header.Set("Cache-Control", "no-store")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Status{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Status{}, fmt.Errorf("live endpoint returned status %d", resp.StatusCode)
	}

	var st Status
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&st); err != nil {
		return Status{}, fmt.Errorf("decode live status: %w", err)
	}
	return st, nil
}

// Poll checks immediately and then every interval until ctx is done,
// handing each new state to publish.
func (c *Checker) Poll(ctx context.Context, interval time.Duration, publish func(State)) {
	state := State{}
	tick := func() {
		next, err := c.Check(ctx, state)
		if err != nil && ctx.Err() == nil {
			appLog.Warn("live check failed", "err", err)
		}
		state = next
		publish(state)
	}

	tick()
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			tick()
		}
	}
}
