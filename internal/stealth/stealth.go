// Package stealth paces the control loop. Every wait the loop performs goes
// through a Sleeper so the pacing is randomized in production and
// instantaneous, but observable, in tests.
package stealth

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Sleeper suspends the caller for d or until ctx is done
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// RealSleeper waits on a timer
type RealSleeper struct{}

func (RealSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Pacer produces the randomized delays between page actions
type Pacer struct {
	min, max time.Duration
	sleeper  Sleeper

	mu  sync.Mutex
	rng *rand.Rand
}

// NewPacer returns a pacer drawing uniformly from [min, max). A nil rng is
// seeded from the clock.
func NewPacer(min, max time.Duration, sleeper Sleeper, rng *rand.Rand) *Pacer {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if sleeper == nil {
		sleeper = RealSleeper{}
	}
	return &Pacer{min: min, max: max, sleeper: sleeper, rng: rng}
}

// Next returns the next random delay without waiting
func (p *Pacer) Next() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return randomBetween(p.rng, p.min, p.max)
}

// Pause waits a random delay between min and max
func (p *Pacer) Pause(ctx context.Context) error {
	return p.sleeper.Sleep(ctx, p.Next())
}

// Wait waits exactly d; used for the fixed settle and back-off delays
func (p *Pacer) Wait(ctx context.Context, d time.Duration) error {
	return p.sleeper.Sleep(ctx, d)
}

func randomBetween(rng *rand.Rand, min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rng.Int63n(int64(max-min)))
}
