// Package browser launches Chromium through rod and adapts its pages to
// dom.Document.
package browser

import (
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"

	"github.com/yourusername/linkedin-connect/internal/config"
	"github.com/yourusername/linkedin-connect/internal/logger"
)

// Launch starts a browser, or attaches to one when ControlURL is set. The
// returned cleanup closes what Launch started and never an attached browser.
func Launch(cfg config.BrowserConfig) (*rod.Browser, func(), error) {
	if cfg.ControlURL != "" {
		browser := rod.New().ControlURL(cfg.ControlURL)
		if err := browser.Connect(); err != nil {
			return nil, nil, fmt.Errorf("failed to attach to browser: %w", err)
		}
		logger.Info("Attached to running browser", "control_url", cfg.ControlURL)
		return browser, func() {}, nil
	}

	// Prefer a local Chrome installation (avoids leakless.exe issue)
	path, exists := launcher.LookPath()
	if cfg.Bin != "" {
		path, exists = cfg.Bin, true
	}

	var l *launcher.Launcher
	if exists {
		logger.Info("Using system Chrome browser", "path", path)
		l = launcher.New().Bin(path)
	} else {
		logger.Info("System Chrome not found, using downloaded browser")
		l = launcher.New()
	}

	l = l.Headless(cfg.Headless).
		Devtools(false).
		Leakless(false)
	if cfg.UserDataDir != "" {
		// a persistent profile keeps the site session between runs
		l = l.UserDataDir(cfg.UserDataDir)
	}

	url, err := l.Launch()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(url)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	logger.Info("Browser launched successfully", "headless", cfg.Headless, "user_data_dir", cfg.UserDataDir)

	cleanup := func() {
		logger.Info("Closing browser...")
		if err := browser.Close(); err != nil {
			logger.Warn("Failed to close browser", "error", err)
		}
		if cfg.UserDataDir == "" {
			l.Cleanup()
		}
	}
	return browser, cleanup, nil
}
