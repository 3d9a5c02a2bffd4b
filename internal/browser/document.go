package browser

import (
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/yourusername/linkedin-connect/internal/dom"
)

// Options tune how the live document interacts with the page
type Options struct {
	// Humanize replaces the scripted click with scroll-into-view and a
	// native mouse click
	Humanize bool
}

// Document is a dom.Document over a live rod page. None of its methods wait
// for elements to appear; polling is the locator's job.
type Document struct {
	page *rod.Page
	opts Options
}

var _ dom.Document = (*Document)(nil)

// NewDocument wraps page
func NewDocument(page *rod.Page, opts Options) *Document {
	return &Document{page: page, opts: opts}
}

// Page returns the underlying rod page
func (d *Document) Page() *rod.Page {
	return d.page
}

func (d *Document) Query(selector string) (dom.Element, bool, error) {
	has, el, err := d.page.Has(selector)
	if err != nil {
		return nil, false, fmt.Errorf("failed to query %s: %w", selector, err)
	}
	if !has {
		return nil, false, nil
	}
	return d.wrap(el), true, nil
}

func (d *Document) QueryAll(selector string) ([]dom.Element, error) {
	els, err := d.page.Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", selector, err)
	}
	out := make([]dom.Element, 0, len(els))
	for _, el := range els {
		out = append(out, d.wrap(el))
	}
	return out, nil
}

const findByTextJS = `(selector, phrases) => {
	const wanted = phrases.filter(p => p).map(p => p.toLowerCase());
	for (const el of document.querySelectorAll(selector)) {
		const text = (el.innerText || el.textContent || '').toLowerCase();
		if (wanted.some(p => text.includes(p))) return el;
	}
	return null;
}`

// FindByText scans the page in a single evaluation
func (d *Document) FindByText(selector string, phrases []string) (dom.Element, bool, error) {
	obj, err := d.page.Evaluate(rod.Eval(findByTextJS, selector, phrases).ByObject())
	if err != nil {
		return nil, false, fmt.Errorf("failed to scan %s by text: %w", selector, err)
	}
	return d.fromObject(obj)
}

func (d *Document) ScrollToBottom() error {
	_, err := d.page.Eval(`() => window.scrollTo({top: document.body.scrollHeight, behavior: 'smooth'})`)
	if err != nil {
		return fmt.Errorf("failed to scroll: %w", err)
	}
	return nil
}

func (d *Document) wrap(el *rod.Element) *Element {
	return &Element{doc: d, el: el}
}

func (d *Document) fromObject(obj *proto.RuntimeRemoteObject) (dom.Element, bool, error) {
	if obj == nil || obj.ObjectID == "" {
		return nil, false, nil
	}
	el, err := d.page.ElementFromObject(obj)
	if err != nil {
		return nil, false, fmt.Errorf("failed to resolve element: %w", err)
	}
	return d.wrap(el), true, nil
}

// Element is a live node
type Element struct {
	doc *Document
	el  *rod.Element
}

var _ dom.Element = (*Element)(nil)

func (e *Element) Text() (string, error) {
	return e.el.Text()
}

func (e *Element) Attr(name string) (string, bool, error) {
	v, err := e.el.Attribute(name)
	if err != nil {
		return "", false, err
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

func (e *Element) HasClass(name string) (bool, error) {
	res, err := e.el.Eval(`(name) => this.classList.contains(name)`, name)
	if err != nil {
		return false, err
	}
	return res.Value.Bool(), nil
}

func (e *Element) Disabled() (bool, error) {
	v, err := e.el.Property("disabled")
	if err != nil {
		return false, err
	}
	return v.Bool(), nil
}

func (e *Element) Attached() (bool, error) {
	res, err := e.el.Eval(`() => this.isConnected`)
	if err != nil {
		return false, err
	}
	return res.Value.Bool(), nil
}

func (e *Element) Visible() (bool, error) {
	return e.el.Visible()
}

func (e *Element) Click() error {
	if e.doc.opts.Humanize {
		if err := e.el.ScrollIntoView(); err != nil {
			return fmt.Errorf("failed to scroll element into view: %w", err)
		}
		return e.el.Click(proto.InputMouseButtonLeft, 1)
	}
	_, err := e.el.Eval(`() => this.click()`)
	return err
}

const setValueJS = `(value) => {
	this.focus();
	this.value = value;
	this.dispatchEvent(new Event('input', {bubbles: true}));
	this.dispatchEvent(new Event('change', {bubbles: true}));
}`

func (e *Element) SetValue(value string) error {
	_, err := e.el.Eval(setValueJS, value)
	return err
}

func (e *Element) Closest(selector string) (dom.Element, bool, error) {
	obj, err := e.el.Evaluate(rod.Eval(`(selector) => this.closest(selector)`, selector).ByObject())
	if err != nil {
		return nil, false, err
	}
	return e.doc.fromObject(obj)
}

func (e *Element) Find(selector string) (dom.Element, bool, error) {
	els, err := e.el.Elements(selector)
	if err != nil {
		return nil, false, err
	}
	if len(els) == 0 {
		return nil, false, nil
	}
	return e.doc.wrap(els.First()), true, nil
}
