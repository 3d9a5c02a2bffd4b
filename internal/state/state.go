// Package state holds the mutable counters and flags of one run.
package state

import (
	"fmt"
	"sync"
)

// StopReason records why a run left the Running state
type StopReason int

const (
	NotStopped StopReason = iota
	StoppedByUser
	LimitReached
	RateLimited
	Completed
	ManualReview
	SendUnavailable
)

func (r StopReason) String() string {
	switch r {
	case NotStopped:
		return "running"
	case StoppedByUser:
		return "stopped by user"
	case LimitReached:
		return "limit reached"
	case RateLimited:
		return "rate limited"
	case Completed:
		return "completed"
	case ManualReview:
		return "awaiting manual review"
	case SendUnavailable:
		return "send control unavailable"
	default:
		return fmt.Sprintf("StopReason(%d)", int(r))
	}
}

// RunState is owned by the run controller and handed to the other
// components explicitly. remaining == limit - sent holds after every
// mutation; sent and canceled never decrease.
//
// The panel's callbacks arrive on rod's event goroutine while the loop runs
// on its own, so access is serialized.
type RunState struct {
	mu sync.Mutex

	running    bool
	premium    bool
	testMode   bool
	limit      int
	remaining  int
	sent       int
	canceled   int
	warnedOnce bool
	stopReason StopReason
}

// New returns an idle state with the given initial limit
func New(limit int) *RunState {
	return &RunState{limit: limit, remaining: limit}
}

// Snapshot is a consistent copy of the state
type Snapshot struct {
	Running    bool
	Premium    bool
	TestMode   bool
	Limit      int
	Remaining  int
	Sent       int
	Canceled   int
	WarnedOnce bool
	StopReason StopReason
}

// Begin moves an idle state to Running. The quota is rebased on what was
// already sent this session and the premium warning flag is cleared. It
// returns false, leaving the state untouched, when a run is active.
func (s *RunState) Begin(premium, testMode bool, limit int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	s.premium = premium
	s.testMode = testMode
	s.limit = limit
	s.remaining = limit - s.sent
	s.warnedOnce = false
	s.stopReason = NotStopped
	return true
}

// Halt moves the state to stopped. Only the first reason of a run is kept.
// It returns false when the run was not active.
func (s *RunState) Halt(reason StopReason) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return false
	}
	s.running = false
	s.stopReason = reason
	return true
}

// Running reports whether the run is active
func (s *RunState) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Premium reports the account class of the current run
func (s *RunState) Premium() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.premium
}

// TestMode reports whether sends are simulated in the current run
func (s *RunState) TestMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.testMode
}

// Remaining returns the number of sends still permitted
func (s *RunState) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remaining
}

// Limit returns the configured connection limit
func (s *RunState) Limit() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.limit
}

// CanContinue reports whether the loop may process another candidate
func (s *RunState) CanContinue() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running && s.remaining > 0
}

// SetLimit changes the quota, e.g. from the panel's limit input
func (s *RunState) SetLimit(limit int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limit = limit
	s.remaining = limit - s.sent
}

// SetPremium changes the account class
func (s *RunState) SetPremium(premium bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.premium = premium
}

// RecordSent counts one live invitation
func (s *RunState) RecordSent() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent++
	s.remaining = s.limit - s.sent
	return s.snapshotLocked()
}

// RecordCanceled counts one dismissed or failed invitation
func (s *RunState) RecordCanceled() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.canceled++
	return s.snapshotLocked()
}

// MarkWarned sets the premium soft-warning flag and returns its previous value
func (s *RunState) MarkWarned() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.warnedOnce
	s.warnedOnce = true
	return prev
}

// Snapshot returns a consistent copy of the state
func (s *RunState) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *RunState) snapshotLocked() Snapshot {
	return Snapshot{
		Running:    s.running,
		Premium:    s.premium,
		TestMode:   s.testMode,
		Limit:      s.limit,
		Remaining:  s.remaining,
		Sent:       s.sent,
		Canceled:   s.canceled,
		WarnedOnce: s.warnedOnce,
		StopReason: s.stopReason,
	}
}
