// Package fakepage scripts a people-search results page on top of the
// snapshot document so the control loop can be exercised without a browser.
package fakepage

import (
	"fmt"
	"html"
	"strings"

	"github.com/yourusername/linkedin-connect/internal/dom/snapshot"
)

// SendMode selects how the invitation dialog renders its send control
type SendMode int

const (
	SendEnabled SendMode = iota
	SendDisabled
	SendMissing
)

// Profile is one result row
type Profile struct {
	Name    string
	Slug    string
	Pending bool
	Hidden  bool
	// Orphan renders the connect button outside any list item
	Orphan bool
}

// Options describe the page behaviour
type Options struct {
	// Pages holds the result rows of each page; Next is enabled until the last
	Pages     [][]Profile
	AddNote   bool
	NoteField bool
	Send      SendMode
	NoDismiss bool
	// BannerAfterSends shows the weekly-limit banner once this many
	// invitations were sent; zero disables it
	BannerAfterSends int
	// FailOnConnect makes clicking a connect button return an error
	FailOnConnect bool
}

// Invitation is a sent invitation as the fake site recorded it
type Invitation struct {
	Name string
	Note string
}

// Page is a scripted results page
type Page struct {
	*snapshot.Document

	opts         Options
	page         int
	current      string
	Sent         []Invitation
	Dismissed    []string
	Acknowledged int
}

const bannerMarkup = `<div class="ip-fuse-limit-alert"><p>You've reached the weekly invitation limit</p>` +
	`<button class="ack">Got it</button></div>`

// New renders the first page and installs the click handlers
func New(opts Options) (*Page, error) {
	doc, err := snapshot.ParseString(`<html><body><main><ul class="results"></ul>` +
		`<div id="orphans"></div><div id="dialog-root"></div><div id="banner-root"></div>` +
		`<button id="next" aria-label="Next">Next</button></main></body></html>`)
	if err != nil {
		return nil, err
	}

	p := &Page{Document: doc, opts: opts}
	p.render()

	doc.On(snapshot.EventClick, "button.connect", p.onConnect)
	doc.On(snapshot.EventClick, `button[aria-label="Add a note"]`, p.onAddNote)
	doc.On(snapshot.EventClick, `button[aria-label="Send invitation"]`, p.onSend)
	doc.On(snapshot.EventClick, `button[aria-label="Dismiss"]`, p.onDismiss)
	doc.On(snapshot.EventClick, "button.ack", p.onAcknowledge)
	doc.On(snapshot.EventClick, "#next", p.onNext)

	return p, nil
}

// Names builds n profiles named "Person <i>"
func Names(prefix string, n int) []Profile {
	out := make([]Profile, n)
	for i := range out {
		out[i] = Profile{
			Name: fmt.Sprintf("%s%d Surname", prefix, i+1),
			Slug: fmt.Sprintf("%s-%d", strings.ToLower(prefix), i+1),
		}
	}
	return out
}

// PageIndex returns the zero-based page currently shown
func (p *Page) PageIndex() int {
	return p.page
}

// ShowBanner displays the weekly-limit banner
func (p *Page) ShowBanner() {
	if p.HasBanner() {
		return
	}
	p.Append("#banner-root", bannerMarkup)
}

// HasBanner reports whether the banner is displayed
func (p *Page) HasBanner() bool {
	return p.Root().Find(".ip-fuse-limit-alert").Length() > 0
}

// DialogOpen reports whether an invitation dialog is displayed
func (p *Page) DialogOpen() bool {
	return p.Root().Find("#dialog-root .modal").Length() > 0
}

func (p *Page) render() {
	p.Remove("ul.results li")
	p.Remove("#orphans button")

	var rows strings.Builder
	var orphans strings.Builder
	if p.page < len(p.opts.Pages) {
		for i, prof := range p.opts.Pages[p.page] {
			caption := "Connect"
			if prof.Pending {
				caption = "Pending"
			}
			button := fmt.Sprintf(`<button class="connect" data-name="%s" aria-label="Invite %s to connect">%s</button>`,
				html.EscapeString(prof.Name), html.EscapeString(prof.Name), caption)
			if prof.Orphan {
				orphans.WriteString(button)
				continue
			}
			hidden := ""
			if prof.Hidden {
				hidden = " hidden"
			}
			slug := prof.Slug
			if slug == "" {
				slug = fmt.Sprintf("p%d-%d", p.page, i)
			}
			fmt.Fprintf(&rows, `<li class="entity-result"%s><a href="https://www.linkedin.com/in/%s/?miniProfileUrn=x">`+
				`<span aria-hidden="true">%s</span></a>%s</li>`, hidden, slug, html.EscapeString(prof.Name), button)
		}
	}
	p.Append("ul.results", rows.String())
	p.Append("#orphans", orphans.String())

	next := p.Root().Find("#next")
	if p.page >= len(p.opts.Pages)-1 {
		next.SetAttr("disabled", "")
	} else {
		next.RemoveAttr("disabled")
	}
}

func (p *Page) onConnect(d *snapshot.Document, el *snapshot.Element) error {
	if p.opts.FailOnConnect {
		return fmt.Errorf("connect handler failed")
	}
	p.current, _ = el.Selection().Attr("data-name")

	var modal strings.Builder
	modal.WriteString(`<div class="modal" role="dialog">`)
	if p.opts.AddNote {
		modal.WriteString(`<button aria-label="Add a note">Add a note</button>`)
	}
	switch p.opts.Send {
	case SendEnabled:
		modal.WriteString(`<button aria-label="Send invitation">Send</button>`)
	case SendDisabled:
		modal.WriteString(`<button aria-label="Send invitation" class="artdeco-button--disabled" disabled>Send</button>`)
	}
	if !p.opts.NoDismiss {
		modal.WriteString(`<button aria-label="Dismiss">×</button>`)
	}
	modal.WriteString(`</div>`)
	d.Append("#dialog-root", modal.String())
	return nil
}

func (p *Page) onAddNote(d *snapshot.Document, _ *snapshot.Element) error {
	if p.opts.NoteField {
		d.Append("#dialog-root .modal", `<textarea id="custom-message" maxlength="300"></textarea>`)
	}
	return nil
}

func (p *Page) onSend(d *snapshot.Document, _ *snapshot.Element) error {
	p.Sent = append(p.Sent, Invitation{Name: p.current, Note: d.Value("textarea#custom-message")})
	d.Root().Find(fmt.Sprintf(`button.connect[data-name="%s"]`, p.current)).SetText("Pending")
	d.Remove("#dialog-root .modal")
	if p.opts.BannerAfterSends > 0 && len(p.Sent) >= p.opts.BannerAfterSends {
		p.ShowBanner()
	}
	return nil
}

func (p *Page) onDismiss(d *snapshot.Document, _ *snapshot.Element) error {
	p.Dismissed = append(p.Dismissed, p.current)
	d.Remove("#dialog-root .modal")
	return nil
}

func (p *Page) onAcknowledge(d *snapshot.Document, _ *snapshot.Element) error {
	p.Acknowledged++
	d.Remove(".ip-fuse-limit-alert")
	return nil
}

func (p *Page) onNext(_ *snapshot.Document, el *snapshot.Element) error {
	if _, disabled := el.Selection().Attr("disabled"); disabled {
		return nil
	}
	p.page++
	p.render()
	return nil
}
