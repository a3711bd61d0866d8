// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/openspecy-automation/internal/report"
	"github.com/pdiddy/openspecy-automation/pkg/types"
)

var notesCmd = &cobra.Command{
	Use:   "notes <workbook.xlsx>",
	Short: "Recompute the Notes sheet of a report workbook",
	Long: `Notes reads the Summary and Updated Summary sheets of an existing report,
recounts the empty-well statistics, and rewrites the Notes sheet with a fresh
timestamp. Every other sheet is left as it is.`,
	Args: cobra.ExactArgs(1),
	RunE: runNotes,
}

func runNotes(cmd *cobra.Command, args []string) error {
	if err := bindFlags(cmd, map[string]string{"top-n": keyTopN}); err != nil {
		return err
	}
	cfg := reportConfig(args[0])
	_, err := report.RegenerateNotes(cfg.OutputPath, cfg.TopN, cfg.ToolVersion, time.Now(), os.Stdout)
	return err
}

func init() {
	notesCmd.Flags().Int("top-n", types.DefaultTopN, "matches per spectrum used for the report")

	rootCmd.AddCommand(notesCmd)
}
