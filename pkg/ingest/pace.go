package ingest

import (
	"context"
	"sync"
	"time"
)

// pacer enforces a fixed delay between outbound requests so a full-history
// run does not hammer the catalog's file server.
type pacer struct {
	mu    sync.Mutex
	delay time.Duration
	last  time.Time
}

func newPacer(delay time.Duration) *pacer {
	return &pacer{delay: delay}
}

// Wait blocks until the delay since the previous request has elapsed, or the
// context is cancelled. A zero delay disables pacing.
func (p *pacer) Wait(ctx context.Context) error {
	if p.delay <= 0 {
		return nil
	}

	p.mu.Lock()
	now := time.Now()
	var wait time.Duration
	if !p.last.IsZero() {
		if elapsed := now.Sub(p.last); elapsed < p.delay {
			wait = p.delay - elapsed
		}
	}
	p.last = now.Add(wait)
	p.mu.Unlock()

	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
