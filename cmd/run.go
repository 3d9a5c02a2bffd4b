package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-rod/rod/lib/proto"
	"github.com/spf13/cobra"

	"github.com/yourusername/linkedin-connect/internal/auth"
	"github.com/yourusername/linkedin-connect/internal/browser"
	"github.com/yourusername/linkedin-connect/internal/logger"
	"github.com/yourusername/linkedin-connect/internal/panel"
	"github.com/yourusername/linkedin-connect/internal/runner"
	"github.com/yourusername/linkedin-connect/internal/search"
	"github.com/yourusername/linkedin-connect/internal/status"
	"github.com/yourusername/linkedin-connect/internal/storage"
)

var (
	autoStart bool
	premium   bool
	testMode  bool
	limit     int
	once      bool
	savePage  string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Open the results page and mount the control panel",
	Long: `Open the configured people-search results page, restore or wait for a
signed-in session and mount the control panel. The run starts from the panel's
Start button, or immediately with --auto-start.

Press Ctrl+C at any time to stop.`,
	RunE: runConnect,
}

func init() {
	for _, cmd := range []*cobra.Command{rootCmd, runCmd} {
		flags := cmd.Flags()
		flags.BoolVar(&autoStart, "auto-start", false, "Start the run without clicking Start")
		flags.BoolVar(&premium, "premium", false, "Premium account (uses the premium limit)")
		flags.BoolVar(&testMode, "test-mode", false, "Simulate sends: open each dialog, then cancel it")
		flags.IntVar(&limit, "limit", 0, "Connection limit (default: the configured limit for the account class)")
		flags.BoolVar(&once, "once", false, "With --auto-start, exit when the run ends")
		flags.StringVar(&savePage, "save-page", "", "Write the results page HTML to this file for 'probe'")
	}
}

func runConnect(cmd *cobra.Command, _ []string) error {
	displayWarningBanner()

	cfg, runCfg, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	flags := cmd.Flags()
	if flags.Changed("auto-start") {
		cfg.Panel.AutoStart = autoStart
	}
	if flags.Changed("premium") {
		cfg.Panel.Premium = premium
	}
	if flags.Changed("test-mode") {
		cfg.Panel.TestMode = testMode
	}
	if flags.Changed("limit") {
		cfg.Panel.Limit = limit
	}
	inTestMode := cfg.Panel.TestMode || runCfg.TestMode.Enabled

	logger.Info("linkedin-connect started", "version", AppVersion, "test_mode", inTestMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var journal runner.Journal
	if cfg.Database.Path != "" {
		store, err := storage.Open(cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("failed to open journal: %w", err)
		}
		defer store.Close()
		journal = store
		logger.Info("Journal opened", "path", cfg.Database.Path)
	}

	target, err := search.BuildURL(cfg.Search)
	if err != nil {
		return err
	}

	b, cleanup, err := browser.Launch(cfg.Browser)
	if err != nil {
		return err
	}
	defer cleanup()

	page, err := b.Page(proto.TargetCreateTarget{})
	if err != nil {
		return fmt.Errorf("failed to open page: %w", err)
	}
	doc := browser.NewDocument(page, browser.Options{Humanize: cfg.Browser.Humanize})

	session := &auth.Session{
		Dir:          cfg.Session.Dir,
		LoginTimeout: time.Duration(cfg.Session.LoginTimeoutSeconds) * time.Second,
	}
	if err := session.Ensure(ctx, b, page, doc, target); err != nil {
		return fmt.Errorf("failed to establish session: %w", err)
	}
	if err := search.Open(page, target); err != nil {
		return err
	}
	if savePage != "" {
		if err := search.SavePage(page, savePage); err != nil {
			logger.Warn("Failed to save results page", "error", err)
		}
	}

	relay := &status.Relay{}
	ctrl := runner.New(runCfg, doc, runner.Options{
		Selectors: cfg.Selectors,
		Patterns:  cfg.Patterns,
		Reporter:  relay,
		Journal:   journal,
	})

	p, err := panel.Mount(page, ctrl, panel.Options{
		Version:            AppVersion,
		Premium:            cfg.Panel.Premium,
		TestMode:           inTestMode,
		Limit:              cfg.Panel.Limit,
		PremiumLimit:       runCfg.PremiumLimit,
		MaxTestConnections: runCfg.TestMode.MaxTestConnections,
	})
	if err != nil {
		return err
	}
	defer p.Close()
	relay.Set(p)
	defer ctrl.Close()

	finished := make(chan struct{})
	if cfg.Panel.AutoStart {
		ctrl.Start(runner.Inputs{Premium: cfg.Panel.Premium, TestMode: inTestMode, Limit: cfg.Panel.Limit})
		if once {
			go func() {
				ctrl.Wait()
				close(finished)
			}()
		}
	} else {
		logger.Info("Control panel ready, press Start in the browser window")
	}

	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal, cleaning up...")
	case <-finished:
		snap := ctrl.Snapshot()
		logger.Info("Run finished", "reason", snap.StopReason.String(), "sent", snap.Sent, "canceled", snap.Canceled)
	}

	if err := session.Save(b); err != nil {
		logger.Warn("Failed to save session", "error", err)
	}
	return nil
}

func displayWarningBanner() {
	fmt.Print(`
╔════════════════════════════════════════════════════════════════════════════╗
║                        ⚠️  USE AT YOUR OWN RISK ⚠️                           ║
║                                                                            ║
║  Automated invitations may violate the site's Terms of Service and can     ║
║  get the account restricted. Try test mode first and keep limits low.     ║
╚════════════════════════════════════════════════════════════════════════════╝

`)
}
