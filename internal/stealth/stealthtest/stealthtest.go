// Package stealthtest provides a Sleeper that records instead of waiting.
package stealthtest

import (
	"context"
	"sync"
	"time"
)

// Sleeper records every requested duration and returns immediately. A
// non-nil Hook runs before each recorded sleep, which lets tests change page
// state or stop a run at a suspension point.
type Sleeper struct {
	Hook func(n int, d time.Duration)

	mu     sync.Mutex
	sleeps []time.Duration
}

func (s *Sleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.sleeps = append(s.sleeps, d)
	n := len(s.sleeps)
	hook := s.Hook
	s.mu.Unlock()

	if hook != nil {
		hook(n, d)
	}
	return ctx.Err()
}

// Sleeps returns a copy of the recorded durations
func (s *Sleeper) Sleeps() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, len(s.sleeps))
	copy(out, s.sleeps)
	return out
}

// Total is the sum of all recorded durations
func (s *Sleeper) Total() time.Duration {
	var total time.Duration
	for _, d := range s.Sleeps() {
		total += d
	}
	return total
}

// Count returns how many times d was requested
func (s *Sleeper) Count(d time.Duration) int {
	n := 0
	for _, got := range s.Sleeps() {
		if got == d {
			n++
		}
	}
	return n
}
