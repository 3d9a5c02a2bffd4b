// Package connection drives a single candidate through the invitation
// dialog: click connect, optionally write a note, then send, cancel or hold
// the dialog for manual review.
package connection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yourusername/linkedin-connect/internal/config"
	"github.com/yourusername/linkedin-connect/internal/locate"
	"github.com/yourusername/linkedin-connect/internal/logger"
	"github.com/yourusername/linkedin-connect/internal/message"
	"github.com/yourusername/linkedin-connect/internal/ratelimit"
	"github.com/yourusername/linkedin-connect/internal/state"
	"github.com/yourusername/linkedin-connect/internal/status"
	"github.com/yourusername/linkedin-connect/internal/stealth"
)

// NoteSettleDelay lets the page validate the note before the send probe
const NoteSettleDelay = time.Second

// Outcome is the terminal state of one candidate
type Outcome int

const (
	// Sent: the invitation was submitted and counted
	Sent Outcome = iota
	// Canceled: the dialog was dismissed and counted as canceled
	Canceled
	// Held: test mode left the dialog open for the user and stopped the run
	Held
	// Paused: the send control never became available in test mode
	Paused
	// Failed: an unexpected page error; counted as canceled
	Failed
	// Skipped: the control has no enclosing result item; not counted
	Skipped
	// RateLimited: the pre-check stopped the run before clicking
	RateLimited
	// Interrupted: the context ended mid-candidate; not counted
	Interrupted
)

func (o Outcome) String() string {
	switch o {
	case Sent:
		return "sent"
	case Canceled:
		return "canceled"
	case Held:
		return "held"
	case Paused:
		return "paused"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	case RateLimited:
		return "rate_limited"
	case Interrupted:
		return "interrupted"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Result describes what happened to a candidate
type Result struct {
	Outcome Outcome
	Profile locate.Profile
	// Note is the rendered note when it was written into the dialog
	Note string
	Err  error
}

// Success reports whether the candidate counts as handled successfully
func (r Result) Success() bool {
	return r.Outcome == Sent || r.Outcome == Held
}

// PageError is an unexpected failure while a candidate's dialog was in play
type PageError struct {
	Name string
	Err  error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("failed to process %q: %v", e.Name, e.Err)
}

func (e *PageError) Unwrap() error {
	return e.Err
}

// Processor runs the per-candidate state machine
type Processor struct {
	cfg      config.RunConfig
	loc      *locate.Locator
	monitor  *ratelimit.Monitor
	pacer    *stealth.Pacer
	reporter status.Reporter
}

// NewProcessor creates a Processor
func NewProcessor(cfg config.RunConfig, loc *locate.Locator, monitor *ratelimit.Monitor, pacer *stealth.Pacer, reporter status.Reporter) *Processor {
	return &Processor{cfg: cfg, loc: loc, monitor: monitor, pacer: pacer, reporter: reporter}
}

// Process handles one candidate. It never returns an error: failures are
// folded into the Result and the counters so the loop can move on.
func (p *Processor) Process(ctx context.Context, st *state.RunState, cand locate.Candidate) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = p.fail(ctx, st, res.Profile, fmt.Errorf("panic: %v", r))
		}
	}()

	profile, ok, err := p.loc.Describe(cand.Button)
	if err != nil {
		return p.fail(ctx, st, profile, fmt.Errorf("failed to read candidate: %w", err))
	}
	if !ok {
		logger.Warn("Connect button outside any result item, skipping")
		return Result{Outcome: Skipped}
	}
	res.Profile = profile
	log := logger.With("name", profile.Name, "profile_url", profile.ProfileURL)

	verdict, err := p.monitor.CheckAndHandle(ctx, st)
	if err != nil {
		if ctx.Err() != nil {
			return Result{Outcome: Interrupted, Profile: profile, Err: ctx.Err()}
		}
		log.Warnw("Rate-limit pre-check failed", "error", err)
	}
	if verdict == ratelimit.Stop {
		return Result{Outcome: RateLimited, Profile: profile}
	}

	log.Infow("Processing candidate")
	p.reporter.PanelStatus("Processing...")

	if err := cand.Button.Click(); err != nil {
		return p.fail(ctx, st, profile, fmt.Errorf("failed to click connect: %w", err))
	}
	if err := p.pacer.Pause(ctx); err != nil {
		return Result{Outcome: Interrupted, Profile: profile, Err: err}
	}

	note, err := p.writeNote(ctx, profile)
	if err != nil {
		if ctx.Err() != nil {
			return Result{Outcome: Interrupted, Profile: profile, Err: err}
		}
		return p.fail(ctx, st, profile, err)
	}
	res.Note = note

	send, err := p.loc.FindSend(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return Result{Outcome: Interrupted, Profile: profile, Note: note, Err: err}
		}
		if !errors.Is(err, locate.ErrNotFound) {
			return p.fail(ctx, st, profile, err)
		}
		return p.sendUnavailable(st, res)
	}

	if st.TestMode() {
		return p.simulate(st, res)
	}

	if err := send.Click(); err != nil {
		return p.fail(ctx, st, profile, fmt.Errorf("failed to click send: %w", err))
	}
	snap := st.RecordSent()
	p.reportCounts(snap)
	p.reporter.Status(fmt.Sprintf("✅ Invitation sent to %s (%d/%d)", displayName(profile), snap.Sent, snap.Limit))
	log.Infow("Invitation sent", "with_note", note != "", "remaining", snap.Remaining)
	res.Outcome = Sent
	return res
}

// writeNote opens the note editor when the dialog offers one and fills it.
// The randomized pause is applied on both paths.
func (p *Processor) writeNote(ctx context.Context, profile locate.Profile) (string, error) {
	if !p.cfg.IncludeNote {
		return "", p.pacer.Pause(ctx)
	}

	addNote, ok, err := p.loc.FindAddNote()
	if err != nil {
		return "", fmt.Errorf("failed to look up add-note control: %w", err)
	}
	if !ok {
		logger.Debug("No add-note control in dialog", "name", profile.Name)
		return "", p.pacer.Pause(ctx)
	}

	if err := addNote.Click(); err != nil {
		return "", fmt.Errorf("failed to click add-note: %w", err)
	}
	if err := p.pacer.Pause(ctx); err != nil {
		return "", err
	}

	field, ok, err := p.loc.FindNoteField()
	if err != nil {
		return "", fmt.Errorf("failed to look up note field: %w", err)
	}
	if !ok {
		logger.Warn("Note field did not appear", "name", profile.Name)
		return "", nil
	}

	note := message.Render(p.cfg.MessageTemplate, message.Values{
		FirstName:        message.FirstName(profile.Name),
		SenderName:       p.cfg.SenderName,
		SenderRole:       p.cfg.SenderRole,
		SenderSearchArea: p.cfg.SenderSearchArea,
	})
	if message.TooLong(note) {
		logger.Warn("Note exceeds the site limit and may be truncated",
			"name", profile.Name, "length", len([]rune(note)), "max", message.MaxNoteLength)
	}

	if err := field.SetValue(note); err != nil {
		return "", fmt.Errorf("failed to write note: %w", err)
	}
	if err := p.pacer.Wait(ctx, NoteSettleDelay); err != nil {
		return note, err
	}
	return note, nil
}

// simulate handles an enabled send control in test mode. With a limit of one
// the dialog is left open for the user to review and send by hand, unless
// TEST_MODE.PAUSE_BEFORE_SEND is turned off; otherwise the dialog is
// dismissed and the candidate counted as canceled.
func (p *Processor) simulate(st *state.RunState, res Result) Result {
	name := displayName(res.Profile)
	if res.Note != "" {
		logger.Info("Test mode preview", "name", name, "note", res.Note)
	} else {
		logger.Info("Test mode preview", "name", name, "note", "(no personalized note)")
	}

	if st.Limit() == 1 && p.cfg.TestMode.PauseBeforeSend {
		st.Halt(state.ManualReview)
		p.reporter.Status(fmt.Sprintf("🧪 Test mode: invitation for %s is ready. Review the note and click Send manually, or Dismiss to cancel.", name))
		p.reporter.PanelStatus("Waiting for manual review")
		res.Outcome = Held
		return res
	}

	p.dismiss()
	snap := st.RecordCanceled()
	p.reportCounts(snap)
	p.reporter.Status(fmt.Sprintf("🧪 Test mode: invitation for %s canceled (%d simulated)", name, snap.Canceled))
	res.Outcome = Canceled
	return res
}

// sendUnavailable handles a send control that never became enabled. In test
// mode the dialog stays open and the run stops without counting anything.
func (p *Processor) sendUnavailable(st *state.RunState, res Result) Result {
	name := displayName(res.Profile)
	if st.TestMode() {
		st.Halt(state.SendUnavailable)
		p.reporter.Status(fmt.Sprintf("⚠️ Send button not available for %s. Test paused with the dialog open.", name))
		p.reporter.PanelStatus("Paused")
		res.Outcome = Paused
		res.Err = locate.ErrNotFound
		return res
	}

	p.dismiss()
	snap := st.RecordCanceled()
	p.reportCounts(snap)
	p.reporter.Status(fmt.Sprintf("❌ Send button not available for %s, invitation canceled", name))
	res.Outcome = Canceled
	res.Err = locate.ErrNotFound
	return res
}

// fail is the recovery path for unexpected errors: dismiss whatever dialog
// may be open, count the candidate as canceled and keep pacing.
func (p *Processor) fail(ctx context.Context, st *state.RunState, profile locate.Profile, err error) Result {
	perr := &PageError{Name: displayName(profile), Err: err}
	logger.Error("Candidate failed", "name", perr.Name, "error", err)

	p.dismiss()
	snap := st.RecordCanceled()
	p.reportCounts(snap)
	p.reporter.Status(fmt.Sprintf("❌ Error processing %s: %v", perr.Name, err))

	if ctx.Err() == nil {
		if err := p.pacer.Pause(ctx); err != nil {
			logger.Debug("Pause after failure interrupted", "error", err)
		}
	}
	return Result{Outcome: Failed, Profile: profile, Err: perr}
}

// dismiss clicks the dialog's dismiss control, ignoring every failure
func (p *Processor) dismiss() {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("Dismiss panicked", "panic", r)
		}
	}()
	el, ok, err := p.loc.FindDismiss()
	if err != nil || !ok {
		logger.Debug("No dismiss control found", "error", err)
		return
	}
	if err := el.Click(); err != nil {
		logger.Warn("Failed to dismiss dialog", "error", err)
	}
}

func (p *Processor) reportCounts(s state.Snapshot) {
	p.reporter.Counts(status.Counts{Sent: s.Sent, Canceled: s.Canceled, Remaining: s.Remaining})
}

func displayName(p locate.Profile) string {
	if p.Name == "" {
		return "unknown profile"
	}
	return p.Name
}
