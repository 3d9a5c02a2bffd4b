package main

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/yourusername/linkedin-connect/internal/config"
	"github.com/yourusername/linkedin-connect/internal/storage"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show journal totals, recent runs and recent outcomes",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if cfg.Database.Path == "" {
			return fmt.Errorf("the journal is disabled: set database.path in the configuration")
		}

		store, err := storage.Open(cfg.Database.Path)
		if err != nil {
			return err
		}
		defer store.Close()

		return printHistory(cmd.Context(), cmd.OutOrStdout(), store, historyLimit)
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of runs and outcomes to show")
}

func printHistory(ctx context.Context, w io.Writer, store *storage.Store, limit int) error {
	stats, err := store.GetStats(ctx)
	if err != nil {
		return fmt.Errorf("failed to read stats: %w", err)
	}
	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintln(w, "Totals:")
	for _, k := range keys {
		fmt.Fprintf(w, "  %-18s %d\n", k, stats[k])
	}

	runs, err := store.Runs(ctx, limit)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "\nRuns:")
	for _, r := range runs {
		reason := r.StopReason
		if r.EndedAt == nil {
			reason = "unfinished"
		}
		fmt.Fprintf(w, "  %s  %s  premium=%s test=%s limit=%d sent=%d canceled=%d  %s\n",
			r.StartedAt.Local().Format("2006-01-02 15:04"), r.ID[:8], yesNo(r.Premium), yesNo(r.TestMode),
			r.Limit, r.Sent, r.Canceled, reason)
	}

	invitations, err := store.RecentInvitations(ctx, limit)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "\nRecent outcomes:")
	for _, inv := range invitations {
		fmt.Fprintf(w, "  %s  %-12s %-24s %s\n", inv.At.Local().Format("2006-01-02 15:04"), inv.Outcome, inv.Name, inv.ProfileURL)
	}
	return nil
}
