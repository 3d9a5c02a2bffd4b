// Package snapshot implements dom.Document over static HTML with goquery.
//
// It serves two purposes: inspecting a saved results page offline (the probe
// command) and scripting page behaviour in tests, where handlers registered
// with On mutate the tree the way the live site would (opening the invitation
// modal on click, enabling the send button on input, and so on).
//
// A Document is not safe for concurrent mutation; handlers run synchronously
// on the goroutine that triggered the event.
package snapshot

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/yourusername/linkedin-connect/internal/dom"
)

// Event names accepted by On
const (
	EventClick  = "click"
	EventInput  = "input"
	EventScroll = "scroll"
)

// Handler reacts to an event on el. For EventScroll el is nil.
type Handler func(d *Document, el *Element) error

type binding struct {
	event    string
	selector string
	fn       Handler
}

// Event is a recorded interaction
type Event struct {
	Type   string
	Target string
	Value  string
}

// Document is a goquery-backed dom.Document
type Document struct {
	doc      *goquery.Document
	bindings []binding

	mu     sync.Mutex
	events []Event
}

var _ dom.Document = (*Document)(nil)

// Parse builds a Document from an HTML stream
func Parse(r io.Reader) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}
	return &Document{doc: doc}, nil
}

// ParseString builds a Document from an HTML string
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// Load reads a saved page from disk
func Load(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// On registers fn for event on elements matching selector. Scroll handlers
// ignore selector.
func (d *Document) On(event, selector string, fn Handler) {
	d.bindings = append(d.bindings, binding{event: event, selector: selector, fn: fn})
}

// Root exposes the underlying tree for handlers and assertions
func (d *Document) Root() *goquery.Selection {
	return d.doc.Selection
}

// Append inserts markup at the end of every element matching selector
func (d *Document) Append(selector, markup string) {
	d.doc.Find(selector).AppendHtml(markup)
}

// Remove detaches every element matching selector
func (d *Document) Remove(selector string) {
	d.doc.Find(selector).Remove()
}

// Value returns the value assigned to the first element matching selector
func (d *Document) Value(selector string) string {
	v, _ := d.doc.Find(selector).First().Attr("value")
	return v
}

// Events returns a copy of the recorded interactions
func (d *Document) Events() []Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Event, len(d.events))
	copy(out, d.events)
	return out
}

// Count returns how many events of the given type were recorded
func (d *Document) Count(eventType string) int {
	n := 0
	for _, e := range d.Events() {
		if e.Type == eventType {
			n++
		}
	}
	return n
}

// Query returns the first element matching selector
func (d *Document) Query(selector string) (dom.Element, bool, error) {
	sel := d.doc.Find(selector).First()
	if sel.Length() == 0 {
		return nil, false, nil
	}
	return d.wrap(sel), true, nil
}

// QueryAll returns every element matching selector in document order
func (d *Document) QueryAll(selector string) ([]dom.Element, error) {
	var out []dom.Element
	d.doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		out = append(out, d.wrap(s))
	})
	return out, nil
}

// FindByText returns the first element matching selector whose text contains
// any phrase
func (d *Document) FindByText(selector string, phrases []string) (dom.Element, bool, error) {
	var found *goquery.Selection
	d.doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if dom.ContainsAny(s.Text(), phrases) {
			found = s
			return false
		}
		return true
	})
	if found == nil {
		return nil, false, nil
	}
	return d.wrap(found), true, nil
}

// ScrollToBottom records the scroll and runs scroll handlers
func (d *Document) ScrollToBottom() error {
	d.record(Event{Type: EventScroll})
	for _, b := range d.bindings {
		if b.event != EventScroll {
			continue
		}
		if err := b.fn(d, nil); err != nil {
			return err
		}
	}
	return nil
}

func (d *Document) wrap(sel *goquery.Selection) *Element {
	return &Element{doc: d, sel: sel}
}

func (d *Document) record(e Event) {
	d.mu.Lock()
	d.events = append(d.events, e)
	d.mu.Unlock()
}

func (d *Document) dispatch(event string, el *Element) error {
	for _, b := range d.bindings {
		if b.event != event || !el.sel.Is(b.selector) {
			continue
		}
		if err := b.fn(d, el); err != nil {
			return err
		}
	}
	return nil
}

// Element is a single node of a snapshot Document
type Element struct {
	doc *Document
	sel *goquery.Selection
}

var _ dom.Element = (*Element)(nil)

// Selection exposes the underlying node
func (e *Element) Selection() *goquery.Selection {
	return e.sel
}

func (e *Element) Text() (string, error) {
	return e.sel.Text(), nil
}

func (e *Element) Attr(name string) (string, bool, error) {
	v, ok := e.sel.Attr(name)
	return v, ok, nil
}

func (e *Element) HasClass(name string) (bool, error) {
	return e.sel.HasClass(name), nil
}

func (e *Element) Disabled() (bool, error) {
	_, ok := e.sel.Attr("disabled")
	return ok, nil
}

func (e *Element) Attached() (bool, error) {
	root := e.doc.doc.Get(0)
	for n := e.sel.Get(0); n != nil; n = n.Parent {
		if n == root {
			return true, nil
		}
	}
	return false, nil
}

// Visible treats the hidden attribute and inline display:none on the node
// or any ancestor as not rendered
func (e *Element) Visible() (bool, error) {
	attached, _ := e.Attached()
	if !attached {
		return false, nil
	}
	for n := e.sel.Get(0); n != nil; n = n.Parent {
		if n.Type == html.ElementNode && hidden(n) {
			return false, nil
		}
	}
	return true, nil
}

func hidden(n *html.Node) bool {
	for _, a := range n.Attr {
		switch a.Key {
		case "hidden":
			return true
		case "style":
			style := strings.ReplaceAll(strings.ToLower(a.Val), " ", "")
			if strings.Contains(style, "display:none") {
				return true
			}
		}
	}
	return false
}

func (e *Element) Click() error {
	e.doc.record(Event{Type: EventClick, Target: describe(e.sel)})
	return e.doc.dispatch(EventClick, e)
}

func (e *Element) SetValue(value string) error {
	e.sel.SetAttr("value", value)
	if goquery.NodeName(e.sel) == "textarea" {
		e.sel.SetText(value)
	}
	e.doc.record(Event{Type: EventInput, Target: describe(e.sel), Value: value})
	return e.doc.dispatch(EventInput, e)
}

func (e *Element) Closest(selector string) (dom.Element, bool, error) {
	c := e.sel.Closest(selector)
	if c.Length() == 0 {
		return nil, false, nil
	}
	return e.doc.wrap(c), true, nil
}

func (e *Element) Find(selector string) (dom.Element, bool, error) {
	f := e.sel.Find(selector).First()
	if f.Length() == 0 {
		return nil, false, nil
	}
	return e.doc.wrap(f), true, nil
}

// describe renders a short identifier such as button#send[aria-label=Send invitation]
func describe(sel *goquery.Selection) string {
	var b strings.Builder
	b.WriteString(goquery.NodeName(sel))
	if id, ok := sel.Attr("id"); ok {
		b.WriteString("#" + id)
	}
	if label, ok := sel.Attr("aria-label"); ok {
		b.WriteString("[aria-label=" + label + "]")
	}
	return b.String()
}
