package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yourusername/linkedin-connect/internal/config"
	"github.com/yourusername/linkedin-connect/internal/dom/snapshot"
	"github.com/yourusername/linkedin-connect/internal/locate"
	"github.com/yourusername/linkedin-connect/internal/logger"
	"github.com/yourusername/linkedin-connect/internal/stealth"
)

var probeCmd = &cobra.Command{
	Use:   "probe FILE.html",
	Short: "Check the locator against a saved results page",
	Long: `Load a results page saved with 'run --save-page' (or the browser's Save As)
and report what the locator finds on it: connect candidates, the weekly-limit
banner and the next-page control. Useful after the site changes its markup.`,
	Args: cobra.ExactArgs(1),
	RunE: runProbe,
}

func runProbe(cmd *cobra.Command, args []string) error {
	sel, pat := config.DefaultSelectors(), config.DefaultPatterns()
	if cfg, err := config.Load(configPath); err == nil {
		sel, pat = cfg.Selectors, cfg.Patterns
	} else {
		logger.Debug("Using default selectors", "error", err)
	}

	doc, err := snapshot.Load(args[0])
	if err != nil {
		return err
	}
	report, err := probe(cmd.Context(), doc, sel, pat)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), report)
	return nil
}

// probe describes what the locator sees in doc
func probe(ctx context.Context, doc *snapshot.Document, sel config.Selectors, pat config.Patterns) (string, error) {
	loc := locate.New(doc, sel, pat, stealth.RealSleeper{})

	candidates, err := loc.Candidates()
	if err != nil {
		return "", err
	}

	var out strings.Builder
	fmt.Fprintf(&out, "Candidates: %d\n", len(candidates))
	for i, c := range candidates {
		profile, ok, err := loc.Describe(c.Button)
		switch {
		case err != nil:
			fmt.Fprintf(&out, "  %2d. <error: %v>\n", i+1, err)
		case !ok:
			fmt.Fprintf(&out, "  %2d. <no enclosing list item, skipped>\n", i+1)
		default:
			fmt.Fprintf(&out, "  %2d. %s  %s\n", i+1, profile.Name, profile.ProfileURL)
		}
	}

	_, banner, err := loc.FindRateLimitBanner()
	if err != nil {
		return "", err
	}
	fmt.Fprintf(&out, "Weekly limit banner: %s\n", yesNo(banner))

	next := "enabled"
	if _, err := loc.FindEnabledControl(ctx, sel.Next, 1); err != nil {
		if !errors.Is(err, locate.ErrNotFound) {
			return "", err
		}
		next = "missing or disabled"
	}
	fmt.Fprintf(&out, "Next page: %s\n", next)
	return out.String(), nil
}
