package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yourusername/linkedin-connect/internal/config"
	"github.com/yourusername/linkedin-connect/internal/message"
	"github.com/yourusername/linkedin-connect/internal/search"
)

var sampleName string

var checkConfigCmd = &cobra.Command{
	Use:   "check-config",
	Short: "Validate the configuration and preview the invitation note",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, runCfg, err := loadConfig()
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), describeConfig(cfg, runCfg, sampleName))
		return nil
	},
}

func init() {
	checkConfigCmd.Flags().StringVar(&sampleName, "first-name", "Maria Silva", "Display name used for the preview")
}

func describeConfig(cfg *config.Config, runCfg config.RunConfig, displayName string) string {
	note := message.Render(runCfg.MessageTemplate, message.Values{
		FirstName:        message.FirstName(displayName),
		SenderName:       runCfg.SenderName,
		SenderRole:       runCfg.SenderRole,
		SenderSearchArea: runCfg.SenderSearchArea,
	})

	target, err := search.BuildURL(cfg.Search)
	if err != nil {
		target = "<" + err.Error() + ">"
	}

	var out strings.Builder
	fmt.Fprintf(&out, "Sender: %s, %s (%s)\n", runCfg.SenderName, runCfg.SenderRole, runCfg.SenderSearchArea)
	fmt.Fprintf(&out, "Search: %s\n", target)
	fmt.Fprintf(&out, "Limits: default %d, premium %d\n", runCfg.DefaultLimit, runCfg.PremiumLimit)
	fmt.Fprintf(&out, "Delays: %s-%s between actions, %s after scrolling\n", runCfg.MinDelay, runCfg.MaxDelay, runCfg.ScrollDelay)
	fmt.Fprintf(&out, "Test mode: %s (pause before send: %s, max test connections: %d)\n",
		yesNo(runCfg.TestMode.Enabled || cfg.Panel.TestMode), yesNo(runCfg.TestMode.PauseBeforeSend), runCfg.TestMode.MaxTestConnections)

	if !runCfg.IncludeNote {
		out.WriteString("Note: disabled, invitations are sent without a personalized note\n")
		return out.String()
	}
	fmt.Fprintf(&out, "Note (%d characters):\n%s\n", len([]rune(note)), note)
	if message.TooLong(note) {
		fmt.Fprintf(&out, "⚠️ The note is longer than %d characters and will be truncated by the site\n", message.MaxNoteLength)
	}
	return out.String()
}
