// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package cloud

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// DefaultMinDelay is the default minimum time between paced calls.
// It keeps a single caller just under the service's two calls per
// second rate limit.
const DefaultMinDelay = 501 * time.Millisecond

// Pacer serializes calls and spaces them at least MinDelay apart,
// measured from the end of one call to the start of the next.
type Pacer struct {
	// MinDelay is the minimum gap between calls.
	MinDelay time.Duration

	// Clock is the time source; tests may replace it.  If nil,
	// the system clock is used.
	Clock clock.Clock

	mu   sync.Mutex
	last time.Time
}

// NewPacer creates a pacer using the system clock.
func NewPacer(minDelay time.Duration) *Pacer {
	return &Pacer{MinDelay: minDelay, Clock: clock.New()}
}

// Do waits until MinDelay has passed since the previous call
// finished, then calls fn.  Concurrent callers queue behind each
// other.  If ctx is cancelled while waiting, fn is not called.
func (p *Pacer) Do(ctx context.Context, fn func() error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Clock == nil {
		p.Clock = clock.New()
	}

	if !p.last.IsZero() {
		wait := p.MinDelay - p.Clock.Now().Sub(p.last)
		if wait > 0 {
			select {
			case <-p.Clock.After(wait):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	err := fn()
	p.last = p.Clock.Now()
	return err
}
