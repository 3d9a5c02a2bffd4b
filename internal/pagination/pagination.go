// Package pagination moves the run from one results page to the next.
package pagination

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yourusername/linkedin-connect/internal/dom"
	"github.com/yourusername/linkedin-connect/internal/locate"
	"github.com/yourusername/linkedin-connect/internal/logger"
	"github.com/yourusername/linkedin-connect/internal/state"
	"github.com/yourusername/linkedin-connect/internal/status"
	"github.com/yourusername/linkedin-connect/internal/stealth"
)

const (
	// SettleDelay precedes the scroll once a page's candidates are done
	SettleDelay = 2 * time.Second
	// LoadDelay follows the click on the next-page control
	LoadDelay = 5 * time.Second
)

// Step is the result of an Advance call
type Step int

const (
	// Next: a new page is loaded and the loop should scan it
	Next Step = iota
	// End: there is no next page and the run is completed
	End
	// Stopped: the run was stopped while paginating
	Stopped
)

func (s Step) String() string {
	switch s {
	case Next:
		return "next"
	case End:
		return "end"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("Step(%d)", int(s))
	}
}

// Driver scrolls, waits for lazy content and clicks the next-page control
type Driver struct {
	doc         dom.Document
	loc         *locate.Locator
	pacer       *stealth.Pacer
	reporter    status.Reporter
	scrollDelay time.Duration
}

// NewDriver creates a Driver. scrollDelay is the wait after scrolling that
// lets lazily rendered results and the pagination bar appear.
func NewDriver(doc dom.Document, loc *locate.Locator, pacer *stealth.Pacer, reporter status.Reporter, scrollDelay time.Duration) *Driver {
	return &Driver{doc: doc, loc: loc, pacer: pacer, reporter: reporter, scrollDelay: scrollDelay}
}

// Advance tries to move to the next page. End means st was halted as
// Completed.
func (d *Driver) Advance(ctx context.Context, st *state.RunState) (Step, error) {
	if !st.Running() {
		return Stopped, nil
	}

	if err := d.pacer.Wait(ctx, SettleDelay); err != nil {
		return Stopped, err
	}
	if err := d.doc.ScrollToBottom(); err != nil {
		return Stopped, fmt.Errorf("failed to scroll results: %w", err)
	}
	if err := d.pacer.Wait(ctx, d.scrollDelay); err != nil {
		return Stopped, err
	}

	next, err := d.loc.FindNext(ctx)
	if err != nil {
		if !errors.Is(err, locate.ErrNotFound) {
			return Stopped, err
		}
		logger.Info("No next page control, results exhausted")
		if st.Halt(state.Completed) {
			d.reporter.Status("🏁 No more pages. Process completed!")
			d.reporter.PanelStatus("Completed")
		}
		return End, nil
	}

	if !st.Running() {
		return Stopped, nil
	}

	d.reporter.Status("➡️ Moving to next page...")
	if err := next.Click(); err != nil {
		return Stopped, fmt.Errorf("failed to click next page: %w", err)
	}
	if err := d.pacer.Wait(ctx, LoadDelay); err != nil {
		return Stopped, err
	}
	return Next, nil
}
