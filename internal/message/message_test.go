package message

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

var values = Values{
	FirstName:        "Maria",
	SenderName:       "Ana Souza",
	SenderRole:       "Backend Engineer",
	SenderSearchArea: "Go",
}

func TestRender(t *testing.T) {
	tests := []struct {
		name     string
		template string
		want     string
	}{
		{
			name:     "all placeholders",
			template: "Hi {firstName}, I'm a {MY_POSITION} working with {POS_SEARCH}. {MY_NAME}",
			want:     "Hi Maria, I'm a Backend Engineer working with Go. Ana Souza",
		},
		{
			name:     "every occurrence replaced",
			template: "{firstName} {firstName} {firstName}",
			want:     "Maria Maria Maria",
		},
		{
			name:     "long-form aliases",
			template: "{senderName} / {senderRole} / {senderSearchArea}",
			want:     "Ana Souza / Backend Engineer / Go",
		},
		{
			name:     "unknown placeholder left verbatim",
			template: "Hi {firstName} from {company}",
			want:     "Hi Maria from {company}",
		},
		{
			name:     "tokens are case-sensitive",
			template: "Hi {FIRSTNAME} {firstname}",
			want:     "Hi {FIRSTNAME} {firstname}",
		},
		{
			name:     "no placeholders",
			template: "Hello there",
			want:     "Hello there",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Render(tt.template, values))
		})
	}
}

func TestRender_IdempotentWithoutPlaceholders(t *testing.T) {
	once := Render("plain text", values)
	assert.Equal(t, once, Render(once, values))
}

func TestRender_ValuesNotReexpanded(t *testing.T) {
	v := values
	v.FirstName = "{MY_NAME}"
	assert.Equal(t, "Hi {MY_NAME}", Render("Hi {firstName}", v))
}

func TestFirstName(t *testing.T) {
	assert.Equal(t, "Maria", FirstName("  Maria   da Silva "))
	assert.Equal(t, "Jo", FirstName("Jo"))
	assert.Equal(t, DefaultFirstName, FirstName(""))
	assert.Equal(t, DefaultFirstName, FirstName(" \n "))
}

func TestTooLong(t *testing.T) {
	assert.False(t, TooLong(strings.Repeat("a", MaxNoteLength)))
	assert.True(t, TooLong(strings.Repeat("é", MaxNoteLength+1)))
}
