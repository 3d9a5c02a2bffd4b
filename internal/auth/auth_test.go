package auth

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yourusername/linkedin-connect/internal/dom/snapshot"
	"github.com/yourusername/linkedin-connect/internal/logger"
	"github.com/yourusername/linkedin-connect/internal/stealth/stealthtest"
)

func init() {
	logger.Replace(zap.NewNop())
}

func parse(t *testing.T, markup string) *snapshot.Document {
	t.Helper()
	doc, err := snapshot.ParseString(markup)
	require.NoError(t, err)
	return doc
}

func TestIsLoggedIn(t *testing.T) {
	tests := []struct {
		name   string
		markup string
		url    string
		want   bool
	}{
		{"global nav", `<header id="global-nav"></header>`, "https://www.linkedin.com/search/results/people/", true},
		{"feed url", `<main></main>`, "https://www.linkedin.com/feed/", true},
		{"login page", `<form><input id="username"></form>`, "https://www.linkedin.com/login", false},
		{"checkpoint feed redirect", `<main></main>`, "https://www.linkedin.com/checkpoint/lg/login?session_redirect=/feed", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsLoggedIn(parse(t, tt.markup), tt.url))
		})
	}
}

func TestDetectSecurityChallenge(t *testing.T) {
	challenge, ok := DetectSecurityChallenge(parse(t, `<input name="pin">`))
	assert.True(t, ok)
	assert.Equal(t, Challenge2FA, challenge)

	challenge, ok = DetectSecurityChallenge(parse(t, `<div class="g-recaptcha"></div>`))
	assert.True(t, ok)
	assert.Equal(t, ChallengeCAPTCHA, challenge)

	challenge, ok = DetectSecurityChallenge(parse(t, `<body><p>We noticed Unusual Activity on your account</p></body>`))
	assert.True(t, ok)
	assert.Equal(t, ChallengeVerify, challenge)

	challenge, ok = DetectSecurityChallenge(parse(t, `<body><p>Welcome back</p></body>`))
	assert.False(t, ok)
	assert.Equal(t, ChallengeNone, challenge)
}

func TestWaitForLogin_DetectsManualSignIn(t *testing.T) {
	doc := parse(t, `<body><input name="pin"></body>`)
	sleeper := &stealthtest.Sleeper{Hook: func(n int, _ time.Duration) {
		if n == 3 {
			doc.Append("body", `<nav id="global-nav"></nav>`)
		}
	}}
	s := &Session{Dir: t.TempDir(), LoginTimeout: time.Hour, Sleeper: sleeper}

	err := s.WaitForLogin(context.Background(), doc, func() string { return "https://www.linkedin.com/checkpoint/challenge" })
	require.NoError(t, err)
	assert.Equal(t, 3, sleeper.Count(LoginPollInterval))
}

func TestWaitForLogin_Timeout(t *testing.T) {
	s := &Session{Dir: t.TempDir(), LoginTimeout: time.Nanosecond, Sleeper: &stealthtest.Sleeper{}}

	err := s.WaitForLogin(context.Background(), parse(t, `<body></body>`), func() string { return "https://www.linkedin.com/login" })
	assert.ErrorIs(t, err, ErrLoginTimeout)
}

func TestWaitForLogin_ContextCanceled(t *testing.T) {
	s := &Session{Dir: t.TempDir(), Sleeper: &stealthtest.Sleeper{}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.WaitForLogin(ctx, parse(t, `<body></body>`), func() string { return "" })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSessionFiles(t *testing.T) {
	s := &Session{Dir: t.TempDir()}

	_, err := s.load()
	assert.ErrorIs(t, err, ErrNoSession)

	cookies := `[{"name":"li_at","value":"token","domain":".linkedin.com","path":"/","secure":true,"httpOnly":true,"sameSite":"None","expires":-1,"size":11,"session":true,"priority":"Medium","sameParty":false,"sourceScheme":"Secure","sourcePort":443}]`
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir, CookiesFile), []byte(cookies), 0600))

	params, err := s.load()
	require.NoError(t, err)
	require.Len(t, params, 1)
	assert.Equal(t, "li_at", params[0].Name)
	assert.Equal(t, ".linkedin.com", params[0].Domain)
	assert.True(t, params[0].HTTPOnly)

	require.NoError(t, s.Clear())
	_, err = s.load()
	assert.ErrorIs(t, err, ErrNoSession)
	require.NoError(t, s.Clear())
}
