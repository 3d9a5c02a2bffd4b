// Package auth keeps the browser signed in to the site. Credentials are never
// handled: the user signs in by hand in the opened window and the resulting
// cookies are saved for the next run.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/yourusername/linkedin-connect/internal/dom"
	"github.com/yourusername/linkedin-connect/internal/logger"
	"github.com/yourusername/linkedin-connect/internal/stealth"
)

const (
	CookiesFile = "cookies.json"
	// LoginPollInterval is the wait between sign-in checks
	LoginPollInterval = 5 * time.Second
)

// ErrNoSession is returned by Restore when no cookies were saved
var ErrNoSession = errors.New("no saved session found")

// ErrLoginTimeout is returned when the user did not sign in in time
var ErrLoginTimeout = errors.New("timed out waiting for sign-in")

// ChallengeType represents the type of security challenge detected
type ChallengeType string

const (
	ChallengeNone    ChallengeType = "none"
	Challenge2FA     ChallengeType = "2fa"
	ChallengeCAPTCHA ChallengeType = "captcha"
	ChallengeVerify  ChallengeType = "verification"
)

var (
	loggedInSelectors = []string{"#global-nav", ".global-nav__me", "a[href*='/feed/']"}
	twoFASelectors    = []string{"#input__phone_verification_pin", "input[name='pin']", "#two-step-challenge"}
	captchaSelectors  = []string{"#captcha", ".g-recaptcha", "iframe[src*='recaptcha']", "iframe[title='reCAPTCHA']"}
	verifyPhrases     = []string{"verify your identity", "unusual activity", "confirm your identity", "security verification"}
)

// Session persists cookies under Dir
type Session struct {
	Dir          string
	LoginTimeout time.Duration
	Sleeper      stealth.Sleeper
}

func (s *Session) cookiesPath() string {
	return filepath.Join(s.Dir, CookiesFile)
}

func (s *Session) sleeper() stealth.Sleeper {
	if s.Sleeper == nil {
		return stealth.RealSleeper{}
	}
	return s.Sleeper
}

// Save writes the browser's cookies to disk
func (s *Session) Save(browser *rod.Browser) error {
	cookies, err := browser.GetCookies()
	if err != nil {
		return fmt.Errorf("failed to get cookies: %w", err)
	}
	if err := os.MkdirAll(s.Dir, 0700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	data, err := json.MarshalIndent(cookies, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cookies: %w", err)
	}
	if err := os.WriteFile(s.cookiesPath(), data, 0600); err != nil {
		return fmt.Errorf("failed to write cookies file: %w", err)
	}

	logger.Info("Session saved successfully", "path", s.cookiesPath(), "cookie_count", len(cookies))
	return nil
}

// Restore loads saved cookies into the browser
func (s *Session) Restore(browser *rod.Browser) error {
	params, err := s.load()
	if err != nil {
		return err
	}
	if err := browser.SetCookies(params); err != nil {
		return fmt.Errorf("failed to set cookies: %w", err)
	}
	logger.Info("Session loaded successfully", "cookie_count", len(params))
	return nil
}

func (s *Session) load() ([]*proto.NetworkCookieParam, error) {
	data, err := os.ReadFile(s.cookiesPath())
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cookies file: %w", err)
	}

	var cookies []*proto.NetworkCookie
	if err := json.Unmarshal(data, &cookies); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cookies: %w", err)
	}

	params := make([]*proto.NetworkCookieParam, len(cookies))
	for i, cookie := range cookies {
		params[i] = &proto.NetworkCookieParam{
			Name:     cookie.Name,
			Value:    cookie.Value,
			Domain:   cookie.Domain,
			Path:     cookie.Path,
			Secure:   cookie.Secure,
			HTTPOnly: cookie.HTTPOnly,
			SameSite: cookie.SameSite,
		}
	}
	return params, nil
}

// Clear removes saved session data
func (s *Session) Clear() error {
	if err := os.Remove(s.cookiesPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove cookies file: %w", err)
	}
	logger.Info("Session cleared successfully")
	return nil
}

// Ensure restores the saved session, opens target and, when the page is not
// signed in, waits for the user to sign in by hand. Cookies are saved once
// the session is confirmed.
func (s *Session) Ensure(ctx context.Context, browser *rod.Browser, page *rod.Page, doc dom.Document, target string) error {
	if err := s.Restore(browser); err != nil && !errors.Is(err, ErrNoSession) {
		logger.Warn("Failed to restore session", "error", err)
	}

	if err := navigate(page, target); err != nil {
		return err
	}
	if IsLoggedIn(doc, pageURL(page)) {
		logger.Info("Session is valid")
		return s.Save(browser)
	}

	logger.Warn("Not signed in. Please sign in in the opened browser window", "timeout", s.LoginTimeout)
	if err := s.WaitForLogin(ctx, doc, func() string { return pageURL(page) }); err != nil {
		return err
	}
	if err := s.Save(browser); err != nil {
		logger.Warn("Failed to save session", "error", err)
	}
	return navigate(page, target)
}

// WaitForLogin polls until doc shows a signed-in page, logging guidance for
// any security challenge on the way
func (s *Session) WaitForLogin(ctx context.Context, doc dom.Document, currentURL func() string) error {
	deadline := time.Now().Add(s.LoginTimeout)
	reported := ChallengeNone

	for {
		if IsLoggedIn(doc, currentURL()) {
			logger.Info("Sign-in detected")
			return nil
		}

		if challenge, ok := DetectSecurityChallenge(doc); ok && challenge != reported {
			reported = challenge
			logger.Warn("Security challenge detected, complete it in the browser window", "challenge", challenge)
		}

		if s.LoginTimeout > 0 && !time.Now().Before(deadline) {
			return ErrLoginTimeout
		}
		if err := s.sleeper().Sleep(ctx, LoginPollInterval); err != nil {
			return err
		}
	}
}

// IsLoggedIn checks for elements and URLs only shown to signed-in users
func IsLoggedIn(doc dom.Document, currentURL string) bool {
	if hasAny(doc, loggedInSelectors) {
		return true
	}
	if strings.Contains(currentURL, "/login") || strings.Contains(currentURL, "/checkpoint") {
		return false
	}
	return strings.Contains(currentURL, "/feed") || strings.Contains(currentURL, "/mynetwork")
}

// DetectSecurityChallenge checks if a security challenge is present
func DetectSecurityChallenge(doc dom.Document) (ChallengeType, bool) {
	if hasAny(doc, twoFASelectors) {
		return Challenge2FA, true
	}
	if hasAny(doc, captchaSelectors) {
		return ChallengeCAPTCHA, true
	}
	if _, ok, err := doc.FindByText("body", verifyPhrases); err == nil && ok {
		return ChallengeVerify, true
	}
	return ChallengeNone, false
}

func hasAny(doc dom.Document, selectors []string) bool {
	for _, selector := range selectors {
		if _, ok, err := doc.Query(selector); err == nil && ok {
			return true
		}
	}
	return false
}

func navigate(page *rod.Page, target string) error {
	if err := page.Navigate(target); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", target, err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("failed to wait for page load: %w", err)
	}
	return nil
}

func pageURL(page *rod.Page) string {
	info, err := page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}
