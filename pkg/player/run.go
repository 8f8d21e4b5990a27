package player

import (
	"context"
	"time"
)

// DefaultInterval is the polling period used by Run when none is given.
const DefaultInterval = 5 * time.Millisecond

// Clock returns the current wall-clock time in seconds.
type Clock func() float64

// NewWallClock returns a Clock counting seconds since the call.
func NewWallClock() Clock {
	start := time.Now()
	return func() float64 {
		return time.Since(start).Seconds()
	}
}

// RunOption configures Run.
type RunOption func(*runConfig)

type runConfig struct {
	interval time.Duration
	tail     time.Duration
}

// WithInterval sets how often Run polls Update.
func WithInterval(d time.Duration) RunOption {
	return func(c *runConfig) {
		c.interval = d
	}
}

// WithTail keeps Run alive for d after the last event so that released notes
// can decay.
func WithTail(d time.Duration) RunOption {
	return func(c *runConfig) {
		c.tail = d
	}
}

// Run plays the song from the current cursor: it sets the origin to clock()
// and polls Update on a ticker until every event has been dispatched and the
// tail has elapsed, or ctx is done. A nil clock uses NewWallClock.
func (p *Player) Run(ctx context.Context, clock Clock, opts ...RunOption) error {
	cfg := runConfig{interval: DefaultInterval}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.interval <= 0 {
		cfg.interval = DefaultInterval
	}
	if clock == nil {
		clock = NewWallClock()
	}

	start := clock()
	if p.cursor > 0 && p.cursor <= len(p.events) {
		// Resume from the last dispatched event instead of from zero.
		start -= p.events[p.cursor-1].Time
	}
	p.Play(start)

	ticker := time.NewTicker(cfg.interval)
	defer ticker.Stop()

	length := p.lengthOrZero()
	end := length + cfg.tail.Seconds()
	p.log.Debug("Playback started", "events", len(p.events), "length", length, "interval", cfg.interval)

	for {
		now := clock()
		p.Update(now)
		if p.Done() && now-p.origin >= end {
			p.log.Debug("Playback finished", "elapsed", now-p.origin)
			return nil
		}
		select {
		case <-ctx.Done():
			p.log.Debug("Playback cancelled", "position", p.cursor, "err", ctx.Err())
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
