// Package locate finds and polls the controls of the search-results page.
// Every probe is read-only; clicking is left to the callers.
package locate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yourusername/linkedin-connect/internal/config"
	"github.com/yourusername/linkedin-connect/internal/dom"
	"github.com/yourusername/linkedin-connect/internal/logger"
	"github.com/yourusername/linkedin-connect/internal/stealth"
)

// PollInterval is the fixed wait between attempts of FindEnabledControl
const PollInterval = time.Second

// DefaultAttempts is the attempt budget used for the send and next controls
const DefaultAttempts = 5

// ErrNotFound is returned when an expected control is still absent or
// disabled after the attempt budget is spent
var ErrNotFound = errors.New("element not found")

// Locator queries a Document using configurable selectors and phrases
type Locator struct {
	doc      dom.Document
	sel      config.Selectors
	pat      config.Patterns
	sleeper  stealth.Sleeper
	interval time.Duration
}

// New creates a Locator. A nil sleeper waits in real time.
func New(doc dom.Document, sel config.Selectors, pat config.Patterns, sleeper stealth.Sleeper) *Locator {
	if sleeper == nil {
		sleeper = stealth.RealSleeper{}
	}
	return &Locator{doc: doc, sel: sel, pat: pat, sleeper: sleeper, interval: PollInterval}
}

// Selectors returns the selectors in use
func (l *Locator) Selectors() config.Selectors {
	return l.sel
}

// FindEnabledControl polls for an element matching selector that is present
// and not disabled, waiting PollInterval between attempts
func (l *Locator) FindEnabledControl(ctx context.Context, selector string, maxAttempts int) (dom.Element, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		el, ok, err := l.doc.Query(selector)
		if err != nil {
			lastErr = err
			logger.Debug("Probe failed, retrying", "selector", selector, "attempt", attempt, "error", err)
		} else if ok {
			enabled, err := l.Enabled(el)
			if err != nil {
				lastErr = err
			} else if enabled {
				return el, nil
			}
		}

		if attempt < maxAttempts {
			if err := l.sleeper.Sleep(ctx, l.interval); err != nil {
				return nil, err
			}
		}
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%w: %s after %d attempts (last error: %v)", ErrNotFound, selector, maxAttempts, lastErr)
	}
	return nil, fmt.Errorf("%w: %s after %d attempts", ErrNotFound, selector, maxAttempts)
}

// Enabled reports whether el is neither disabled nor styled as disabled
func (l *Locator) Enabled(el dom.Element) (bool, error) {
	disabled, err := el.Disabled()
	if err != nil {
		return false, err
	}
	if disabled {
		return false, nil
	}
	if l.sel.DisabledClass == "" {
		return true, nil
	}
	styled, err := el.HasClass(l.sel.DisabledClass)
	if err != nil {
		return false, err
	}
	return !styled, nil
}

// FindRateLimitBanner returns the first block whose text carries a
// limit-reached phrase
func (l *Locator) FindRateLimitBanner() (dom.Element, bool, error) {
	return l.doc.FindByText(l.sel.Banner, l.pat.RateLimit)
}

// FindAcknowledge returns the "got it" style button of a banner
func (l *Locator) FindAcknowledge() (dom.Element, bool, error) {
	return l.doc.FindByText(l.sel.Buttons, l.pat.Acknowledge)
}

// FindDismiss returns the first dismiss or cancel control of the open dialog
func (l *Locator) FindDismiss() (dom.Element, bool, error) {
	for _, selector := range l.sel.Dismiss {
		el, ok, err := l.doc.Query(selector)
		if err != nil {
			return nil, false, err
		}
		if ok {
			return el, true, nil
		}
	}
	return nil, false, nil
}

// FindAddNote returns the dialog's "add a note" control
func (l *Locator) FindAddNote() (dom.Element, bool, error) {
	return l.doc.Query(l.sel.AddNote)
}

// FindNoteField returns the note text area
func (l *Locator) FindNoteField() (dom.Element, bool, error) {
	return l.doc.Query(l.sel.NoteField)
}

// FindSend polls for the enabled "send invitation" control
func (l *Locator) FindSend(ctx context.Context) (dom.Element, error) {
	return l.FindEnabledControl(ctx, l.sel.Send, DefaultAttempts)
}

// FindNext polls for the enabled "next page" control
func (l *Locator) FindNext(ctx context.Context) (dom.Element, error) {
	return l.FindEnabledControl(ctx, l.sel.Next, DefaultAttempts)
}

// Candidate is one connect control discovered on the current view. It lives
// for a single iteration of the processing loop.
type Candidate struct {
	Button dom.Element
}

// Candidates returns the visible connect controls, skipping pending ones
func (l *Locator) Candidates() ([]Candidate, error) {
	buttons, err := l.doc.QueryAll(l.sel.Buttons)
	if err != nil {
		return nil, fmt.Errorf("failed to list buttons: %w", err)
	}

	var out []Candidate
	for _, b := range buttons {
		text, err := b.Text()
		if err != nil {
			continue
		}
		if !containsLabel(text, l.pat.ConnectLabels) || containsLabel(text, l.pat.PendingLabels) {
			continue
		}
		if attached, err := b.Attached(); err != nil || !attached {
			continue
		}
		if visible, err := b.Visible(); err != nil || !visible {
			continue
		}
		out = append(out, Candidate{Button: b})
	}
	return out, nil
}

// containsLabel matches button captions exactly as rendered, case included
func containsLabel(text string, labels []string) bool {
	for _, label := range labels {
		if label != "" && strings.Contains(text, label) {
			return true
		}
	}
	return false
}

// Profile is what the results list shows about a candidate
type Profile struct {
	Name       string
	ProfileURL string
}

// Describe reads the display name and profile link from the list item
// enclosing button. ok is false when no list item encloses it.
func (l *Locator) Describe(button dom.Element) (Profile, bool, error) {
	var item dom.Element
	for _, selector := range l.sel.ListItems {
		el, ok, err := button.Closest(selector)
		if err != nil {
			return Profile{}, false, err
		}
		if ok {
			item = el
			break
		}
	}
	if item == nil {
		return Profile{}, false, nil
	}

	var p Profile
	if nameEl, ok, err := item.Find(l.sel.Name); err != nil {
		return Profile{}, false, err
	} else if ok {
		text, err := nameEl.Text()
		if err != nil {
			return Profile{}, false, err
		}
		p.Name = strings.TrimSpace(text)
	}

	if link, ok, err := item.Find(l.sel.ProfileLink); err == nil && ok {
		if href, ok, _ := link.Attr("href"); ok {
			p.ProfileURL = CleanProfileURL(href)
		}
	}

	return p, true, nil
}

// CleanProfileURL removes query parameters and trailing slashes
func CleanProfileURL(rawURL string) string {
	if i := strings.Index(rawURL, "?"); i != -1 {
		rawURL = rawURL[:i]
	}
	return strings.TrimRight(rawURL, "/")
}
