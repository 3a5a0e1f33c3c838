package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/quarterchat/match-server-go/internal/config"
	"github.com/quarterchat/match-server-go/internal/model"
)

// StopReason says why a poll loop ended. Terminal reasons mean the match
// can never become pollable again; a failure stop may be retried later by
// starting a fresh Run.
type StopReason string

const (
	StopExpired  StopReason = "expired"
	StopTerminal StopReason = "terminal"
	StopFailures StopReason = "failures"
	StopCanceled StopReason = "canceled"
)

// Config wires one poll loop to one match on one server.
type Config struct {
	BaseURL string
	MatchID string

	// OnState receives every successfully fetched snapshot, including the
	// final one that carries the past expiry. Optional.
	OnState func(*model.Snapshot)

	Client        *http.Client
	BaseInterval  time.Duration
	MaxInterval   time.Duration
	RetryInterval time.Duration
	MaxFailures   int
}

// Poller drives the state endpoint the way a well-behaved browser client
// does: one request in flight, 429s double the interval, authorization
// failures stop for good, and an expired countdown ends the loop.
type Poller struct {
	cfg Config
	now func() time.Time
}

func New(cfg Config) *Poller {
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 15 * time.Second}
	}
	if cfg.BaseInterval <= 0 {
		cfg.BaseInterval = config.PollBaseInterval
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = config.PollMaxInterval
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = config.PollRetryInterval
	}
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = config.PollMaxFailures
	}
	return &Poller{cfg: cfg, now: time.Now}
}

// Run polls until the match expires, the server says to stop, too many
// consecutive failures accumulate, or ctx is canceled. The first fetch
// happens immediately. Cancellation aborts any in-flight request.
func (p *Poller) Run(ctx context.Context) (StopReason, error) {
	interval := p.cfg.BaseInterval
	failures := 0

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return StopCanceled, ctx.Err()
		case <-timer.C:
		}

		status, snap, err := p.fetch(ctx)
		if ctx.Err() != nil {
			return StopCanceled, ctx.Err()
		}

		switch {
		case err == nil && status == http.StatusOK:
			failures = 0
			interval = p.cfg.BaseInterval

			if snap != nil && p.cfg.OnState != nil {
				p.cfg.OnState(snap)
			}
			if snap != nil && snap.Expired(p.now()) {
				return StopExpired, nil
			}

		case status == http.StatusTooManyRequests:
			// Not a failure: the server is telling us to slow down.
			interval *= 2
			if interval > p.cfg.MaxInterval {
				interval = p.cfg.MaxInterval
			}
			log.Debug().
				Str("matchId", p.cfg.MatchID).
				Dur("interval", interval).
				Msg("poll throttled")

		case status == http.StatusForbidden || status == http.StatusNotFound || status == http.StatusGone:
			return StopTerminal, fmt.Errorf("state poll rejected with status %d", status)

		default:
			failures++
			if failures >= p.cfg.MaxFailures {
				return StopFailures, fmt.Errorf("state poll failed %d times in a row: %w", failures, err)
			}
			interval = p.cfg.RetryInterval
			log.Debug().
				Err(err).
				Str("matchId", p.cfg.MatchID).
				Int("failures", failures).
				Msg("poll failed, backing off")
		}

		timer.Reset(interval)
	}
}

func (p *Poller) fetch(ctx context.Context) (int, *model.Snapshot, error) {
	url := fmt.Sprintf("%s/api/match/%s/state", p.cfg.BaseURL, p.cfg.MatchID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, err
	}

	resp, err := p.cfg.Client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, nil, fmt.Errorf("state poll returned status %d", resp.StatusCode)
	}

	var body struct {
		Data *model.Snapshot `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return resp.StatusCode, nil, fmt.Errorf("state poll decode: %w", err)
	}
	return resp.StatusCode, body.Data, nil
}
