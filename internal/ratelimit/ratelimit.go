// Package ratelimit detects the site's weekly-limit banner and decides
// whether the run may go on.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/yourusername/linkedin-connect/internal/locate"
	"github.com/yourusername/linkedin-connect/internal/logger"
	"github.com/yourusername/linkedin-connect/internal/state"
	"github.com/yourusername/linkedin-connect/internal/status"
	"github.com/yourusername/linkedin-connect/internal/stealth"
)

// SettleDelay follows the acknowledgement of a premium soft warning
const SettleDelay = time.Second

// Verdict tells the caller whether to keep going
type Verdict int

const (
	Continue Verdict = iota
	Stop
)

func (v Verdict) String() string {
	if v == Stop {
		return "stop"
	}
	return "continue"
}

// Monitor applies the standard/premium banner policy. Standard accounts stop
// at the first banner. Premium accounts get one soft warning per run, since
// the site shows the banner once before the hard limit; the second banner
// stops the run.
type Monitor struct {
	loc      *locate.Locator
	pacer    *stealth.Pacer
	reporter status.Reporter
}

// NewMonitor creates a Monitor
func NewMonitor(loc *locate.Locator, pacer *stealth.Pacer, reporter status.Reporter) *Monitor {
	return &Monitor{loc: loc, pacer: pacer, reporter: reporter}
}

// CheckAndHandle probes for the banner and applies the policy. A Stop verdict
// means st has already been halted.
func (m *Monitor) CheckAndHandle(ctx context.Context, st *state.RunState) (Verdict, error) {
	_, found, err := m.loc.FindRateLimitBanner()
	if err != nil {
		return Continue, fmt.Errorf("failed to probe rate-limit banner: %w", err)
	}
	if !found {
		return Continue, nil
	}

	if !st.Premium() {
		logger.Warn("Weekly invitation limit banner detected", "premium", false)
		m.reporter.Status("⚠️ Weekly invitation limit reached! Stopping process.")
		st.Halt(state.RateLimited)
		m.acknowledge()
		return Stop, nil
	}

	if warned := st.MarkWarned(); warned {
		logger.Warn("Weekly invitation limit banner detected again", "premium", true)
		m.reporter.Status("⚠️ Weekly invitation limit reached twice! Stopping process for Premium user.")
		st.Halt(state.RateLimited)
		m.acknowledge()
		return Stop, nil
	}

	logger.Warn("Weekly invitation limit banner detected, treating as soft warning", "premium", true)
	m.reporter.Status("⚠️ LinkedIn warning about weekly limit, continuing as Premium user (first warning)")
	m.acknowledge()
	if err := m.pacer.Wait(ctx, SettleDelay); err != nil {
		return Continue, err
	}
	return Continue, nil
}

// acknowledge clicks the banner's "got it" button when there is one
func (m *Monitor) acknowledge() {
	ack, ok, err := m.loc.FindAcknowledge()
	if err != nil {
		logger.Warn("Failed to look up banner acknowledgement", "error", err)
		return
	}
	if !ok {
		return
	}
	if err := ack.Click(); err != nil {
		logger.Warn("Failed to acknowledge banner", "error", err)
	}
}
