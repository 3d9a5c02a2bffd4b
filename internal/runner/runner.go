// Package runner owns a run from Start to its stop reason. It scans the
// current results page, hands every candidate to the connection processor,
// then paginates, until the quota, the pages or the rate limit end the run or
// the user stops it.
package runner

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/yourusername/linkedin-connect/internal/config"
	"github.com/yourusername/linkedin-connect/internal/connection"
	"github.com/yourusername/linkedin-connect/internal/dom"
	"github.com/yourusername/linkedin-connect/internal/locate"
	"github.com/yourusername/linkedin-connect/internal/logger"
	"github.com/yourusername/linkedin-connect/internal/pagination"
	"github.com/yourusername/linkedin-connect/internal/ratelimit"
	"github.com/yourusername/linkedin-connect/internal/state"
	"github.com/yourusername/linkedin-connect/internal/status"
	"github.com/yourusername/linkedin-connect/internal/stealth"
	"github.com/yourusername/linkedin-connect/internal/storage"
)

// BackoffDelay is the fixed wait before a failed pass is retried
const BackoffDelay = 5 * time.Second

// ErrBusy is returned by Run while another run is still active or finishing
var ErrBusy = errors.New("a run is already in progress")

// Inputs are the panel values a run starts from
type Inputs struct {
	Premium  bool
	TestMode bool
	// Limit <= 0 selects the configured default for the account class
	Limit int
}

// LoopError wraps an unexpected failure of one pass of the main loop
type LoopError struct {
	Pass int
	Err  error
}

func (e *LoopError) Error() string {
	return fmt.Sprintf("pass %d failed: %v", e.Pass, e.Err)
}

func (e *LoopError) Unwrap() error {
	return e.Err
}

// Journal records runs and outcomes; *storage.Store implements it
type Journal interface {
	BeginRun(ctx context.Context, premium, testMode bool, limit int) (string, error)
	RecordOutcome(ctx context.Context, inv storage.Invitation) error
	EndRun(ctx context.Context, id, stopReason string, sent, canceled int) error
}

// Options customise a Controller. Zero values select production behaviour.
type Options struct {
	Selectors config.Selectors
	Patterns  config.Patterns
	Sleeper   stealth.Sleeper
	Rand      *rand.Rand
	Reporter  status.Reporter
	Journal   Journal
}

// Controller runs the main loop. Start, Stop, SetLimit and SetPremium may be
// called from any goroutine.
type Controller struct {
	cfg       config.RunConfig
	st        *state.RunState
	loc       *locate.Locator
	monitor   *ratelimit.Monitor
	processor *connection.Processor
	pager     *pagination.Driver
	pacer     *stealth.Pacer
	reporter  status.Reporter
	journal   Journal

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	active bool
	done   chan struct{}
}

// New wires the loop's components over doc
func New(cfg config.RunConfig, doc dom.Document, opts Options) *Controller {
	if opts.Selectors.Buttons == "" {
		opts.Selectors = config.DefaultSelectors()
	}
	if len(opts.Patterns.ConnectLabels) == 0 {
		opts.Patterns = config.DefaultPatterns()
	}
	if opts.Reporter == nil {
		opts.Reporter = status.LogReporter{}
	}

	loc := locate.New(doc, opts.Selectors, opts.Patterns, opts.Sleeper)
	pacer := stealth.NewPacer(cfg.MinDelay, cfg.MaxDelay, opts.Sleeper, opts.Rand)
	monitor := ratelimit.NewMonitor(loc, pacer, opts.Reporter)

	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		cfg:       cfg,
		st:        state.New(cfg.DefaultLimit),
		loc:       loc,
		monitor:   monitor,
		processor: connection.NewProcessor(cfg, loc, monitor, pacer, opts.Reporter),
		pager:     pagination.NewDriver(doc, loc, pacer, opts.Reporter, cfg.ScrollDelay),
		pacer:     pacer,
		reporter:  opts.Reporter,
		journal:   opts.Journal,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// State exposes the run state
func (c *Controller) State() *state.RunState {
	return c.st
}

// Snapshot returns a copy of the run state
func (c *Controller) Snapshot() state.Snapshot {
	return c.st.Snapshot()
}

// Start begins a run in the background. It is a no-op returning false while
// a run is active or the previous loop is still finishing its candidate.
func (c *Controller) Start(in Inputs) bool {
	if !c.begin(in) {
		return false
	}
	go c.loop(c.ctx)
	return true
}

// Run begins a run and blocks until it stops or ctx is done
func (c *Controller) Run(ctx context.Context, in Inputs) (state.Snapshot, error) {
	if !c.begin(in) {
		return c.st.Snapshot(), ErrBusy
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-c.ctx.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	c.loop(ctx)
	return c.st.Snapshot(), ctx.Err()
}

func (c *Controller) begin(in Inputs) bool {
	limit := in.Limit
	if limit <= 0 {
		limit = c.cfg.LimitFor(in.Premium)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active {
		logger.Debug("Start ignored, loop still active")
		return false
	}
	if !c.st.Begin(in.Premium, in.TestMode, limit) {
		return false
	}
	c.active = true
	c.done = make(chan struct{})

	snap := c.st.Snapshot()
	premium := "No"
	if snap.Premium {
		premium = "Yes"
	}
	c.reporter.Status(fmt.Sprintf("▶️ Started with %d connections remaining. Premium user: %s", snap.Remaining, premium))
	if snap.TestMode {
		c.reporter.Status("🧪 Test mode is on: invitations will not be sent")
	}
	c.reporter.PanelStatus("Running")
	c.reportCounts(snap)
	return true
}

// Stop halts the run. The candidate in flight completes first.
func (c *Controller) Stop() bool {
	if !c.st.Halt(state.StoppedByUser) {
		return false
	}
	c.reporter.Status("⏹️ Process stopped by user")
	c.reporter.PanelStatus("Stopped")
	return true
}

// Wait blocks until the current loop, if any, has exited
func (c *Controller) Wait() {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Close stops the run, cancels every pending wait and waits for the loop
func (c *Controller) Close() {
	c.Stop()
	c.cancel()
	c.Wait()
}

// SetLimit changes the quota of the current or next run
func (c *Controller) SetLimit(limit int) {
	c.st.SetLimit(limit)
	c.reportCounts(c.st.Snapshot())
}

// SetPremium changes the account class of the current or next run
func (c *Controller) SetPremium(premium bool) {
	c.st.SetPremium(premium)
}

// LimitFor returns the configured default quota for an account class
func (c *Controller) LimitFor(premium bool) int {
	return c.cfg.LimitFor(premium)
}

// loop re-checks the run state before every pass, so a stop takes effect at
// the next pass or candidate boundary
func (c *Controller) loop(ctx context.Context) {
	runID := c.beginJournal(ctx)
	defer c.finish(runID)

	pass := 0
	for {
		if ctx.Err() != nil {
			c.st.Halt(state.StoppedByUser)
			return
		}
		if !c.st.Running() {
			return
		}
		if c.st.Remaining() <= 0 {
			if c.st.Halt(state.LimitReached) {
				c.reporter.Status("🎉 Connection limit reached!")
			}
			return
		}

		pass++
		more, err := c.pass(ctx, runID)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			lerr := &LoopError{Pass: pass, Err: err}
			logger.Error("Main loop error, retrying", "pass", lerr.Pass, "error", lerr.Err, "backoff", BackoffDelay)
			c.reporter.Status(fmt.Sprintf("⚠️ Error: %v. Retrying in %s...", err, BackoffDelay))
			if err := c.pacer.Wait(ctx, BackoffDelay); err != nil {
				logger.Debug("Back-off interrupted", "error", err)
			}
			continue
		}
		if !more {
			return
		}
	}
}

// pass processes the current page and paginates. more is false when the run
// must not continue.
func (c *Controller) pass(ctx context.Context, runID string) (more bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			more, err = false, fmt.Errorf("panic: %v", r)
		}
	}()

	verdict, err := c.monitor.CheckAndHandle(ctx, c.st)
	if err != nil {
		logger.Warn("Rate-limit check failed", "error", err)
	}
	if verdict == ratelimit.Stop {
		return false, nil
	}

	candidates, err := c.loc.Candidates()
	if err != nil {
		return false, err
	}
	logger.Info("Scanning results page", "candidates", len(candidates))
	if len(candidates) == 0 {
		c.reporter.Status("🔍 No connect buttons found on this page")
	}

	var sent, canceled, skipped int
	for _, cand := range candidates {
		if !c.st.CanContinue() {
			break
		}
		if err := ctx.Err(); err != nil {
			return false, err
		}

		res := c.processor.Process(ctx, c.st, cand)
		c.record(ctx, runID, res)

		switch res.Outcome {
		case connection.Sent:
			sent++
		case connection.Canceled, connection.Failed:
			canceled++
		case connection.Skipped:
			skipped++
		case connection.Held, connection.Paused, connection.RateLimited:
			return false, nil
		case connection.Interrupted:
			return false, res.Err
		}
	}

	snap := c.st.Snapshot()
	logger.Info("Page summary",
		"candidates", len(candidates), "sent", sent, "canceled", canceled, "skipped", skipped,
		"total_sent", snap.Sent, "remaining", snap.Remaining)
	c.reporter.Status(fmt.Sprintf("📄 Page done: %d sent, %d canceled. Remaining: %d", sent, canceled, snap.Remaining))

	if !c.st.CanContinue() {
		return true, nil
	}

	step, err := c.pager.Advance(ctx, c.st)
	if err != nil {
		return false, err
	}
	return step == pagination.Next, nil
}

func (c *Controller) beginJournal(ctx context.Context) string {
	if c.journal == nil {
		return ""
	}
	snap := c.st.Snapshot()
	id, err := c.journal.BeginRun(ctx, snap.Premium, snap.TestMode, snap.Limit)
	if err != nil {
		logger.Warn("Failed to journal run start", "error", err)
		return ""
	}
	return id
}

func (c *Controller) record(ctx context.Context, runID string, res connection.Result) {
	if c.journal == nil || runID == "" || res.Outcome == connection.Interrupted {
		return
	}
	err := c.journal.RecordOutcome(ctx, storage.Invitation{
		RunID:      runID,
		ProfileURL: res.Profile.ProfileURL,
		Name:       res.Profile.Name,
		Outcome:    res.Outcome.String(),
		WithNote:   res.Note != "",
	})
	if err != nil {
		logger.Warn("Failed to journal outcome", "error", err)
	}
}

func (c *Controller) finish(runID string) {
	snap := c.st.Snapshot()
	logger.Info("Run finished",
		"reason", snap.StopReason.String(), "sent", snap.Sent, "canceled", snap.Canceled, "remaining", snap.Remaining)

	switch snap.StopReason {
	case state.LimitReached:
		c.reporter.PanelStatus("Limit reached")
	case state.RateLimited:
		c.reporter.PanelStatus("Rate limited")
	case state.StoppedByUser:
		c.reporter.PanelStatus("Stopped")
	}
	c.reportCounts(snap)

	if c.journal != nil && runID != "" {
		if err := c.journal.EndRun(context.Background(), runID, snap.StopReason.String(), snap.Sent, snap.Canceled); err != nil {
			logger.Warn("Failed to journal run end", "error", err)
		}
	}

	c.mu.Lock()
	c.active = false
	close(c.done)
	c.mu.Unlock()
}

func (c *Controller) reportCounts(s state.Snapshot) {
	c.reporter.Counts(status.Counts{Sent: s.Sent, Canceled: s.Canceled, Remaining: s.Remaining})
}
