// Package dom defines the narrow view of a results page the control loop
// operates on. The live implementation is backed by rod; the snapshot
// package provides a goquery-backed one for saved pages and tests.
package dom

import "strings"

// Document is the page being automated
type Document interface {
	// Query returns the first element matching selector without waiting
	Query(selector string) (Element, bool, error)
	// QueryAll returns every element matching selector
	QueryAll(selector string) ([]Element, error)
	// FindByText returns the first element matching selector whose text
	// contains any of phrases, compared case-insensitively
	FindByText(selector string, phrases []string) (Element, bool, error)
	// ScrollToBottom scrolls the viewport to the end of the document
	ScrollToBottom() error
}

// Element is a single node of a Document
type Element interface {
	Text() (string, error)
	Attr(name string) (string, bool, error)
	HasClass(name string) (bool, error)
	Disabled() (bool, error)
	// Attached reports whether the node is still part of the document
	Attached() (bool, error)
	// Visible reports whether the node takes part in layout
	Visible() (bool, error)
	Click() error
	// SetValue assigns a form control's value and dispatches a bubbling
	// input event so the page's own handlers see the change
	SetValue(value string) error
	Closest(selector string) (Element, bool, error)
	Find(selector string) (Element, bool, error)
}

// ContainsAny reports whether text contains any phrase, ignoring case
func ContainsAny(text string, phrases []string) bool {
	lower := strings.ToLower(text)
	for _, p := range phrases {
		if p != "" && strings.Contains(lower, strings.ToLower(p)) {
			return true
		}
	}
	return false
}
