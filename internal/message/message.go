// Package message renders invitation notes from a template.
package message

import "strings"

// DefaultFirstName is used when a profile's display name is empty
const DefaultFirstName = "there"

// MaxNoteLength is the site's character limit for invitation notes
const MaxNoteLength = 300

// Values are the named substitutions available to a template
type Values struct {
	FirstName        string
	SenderName       string
	SenderRole       string
	SenderSearchArea string
}

// Render replaces every occurrence of each known placeholder with its value.
// Tokens are matched exactly; unknown tokens such as {company} are left in
// place so a broken template is visible in the preview. Substituted values
// are never expanded again.
func Render(template string, v Values) string {
	r := strings.NewReplacer(
		"{firstName}", v.FirstName,
		"{MY_NAME}", v.SenderName,
		"{MY_POSITION}", v.SenderRole,
		"{POS_SEARCH}", v.SenderSearchArea,
		"{senderName}", v.SenderName,
		"{senderRole}", v.SenderRole,
		"{senderSearchArea}", v.SenderSearchArea,
	)
	return r.Replace(template)
}

// FirstName returns the first whitespace-delimited token of a display name
func FirstName(fullName string) string {
	fields := strings.Fields(fullName)
	if len(fields) == 0 {
		return DefaultFirstName
	}
	return fields[0]
}

// TooLong reports whether a rendered note exceeds MaxNoteLength characters
func TooLong(note string) bool {
	return len([]rune(note)) > MaxNoteLength
}
