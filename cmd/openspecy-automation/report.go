// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pdiddy/openspecy-automation/internal/history"
	"github.com/pdiddy/openspecy-automation/internal/matcher"
	"github.com/pdiddy/openspecy-automation/internal/report"
	"github.com/pdiddy/openspecy-automation/pkg/types"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Build the report workbook from an existing match CSV",
	Long: `Report reads a match table already produced by OpenSpecy (top_n rows per
spectrum) and writes the Info, Summary, Updated Summary, Subsequent Matches
and Notes sheets. Sheets already in the workbook with the same names are
replaced; other sheets are kept.`,
	RunE: runReport,
}

func runReport(cmd *cobra.Command, args []string) error {
	if err := bindFlags(cmd, map[string]string{
		"top-n":       keyTopN,
		"history":     keyHistory,
		"history-dir": keyHistoryDir,
	}); err != nil {
		return err
	}

	matches, _ := cmd.Flags().GetString("matches")
	output, _ := cmd.Flags().GetString("output")
	if matches == "" || output == "" {
		return fmt.Errorf("--matches and --output are required")
	}

	table, err := matcher.ReadTableFile(matches)
	if err != nil {
		return err
	}

	cfg := reportConfig(output)
	res, err := report.Exporter{TopN: cfg.TopN, ToolVersion: cfg.ToolVersion}.Export(table, output, os.Stdout)
	if err != nil {
		return err
	}

	store, err := openHistory(historyConfig())
	if err != nil || store == nil {
		return err
	}
	defer store.Close()

	abs, _ := filepath.Abs(output)
	run, err := store.Record(cmd.Context(), history.Run{
		OutputPath:  abs,
		ToolVersion: cfg.ToolVersion,
		TopN:        cfg.TopN,
		FileCount:   res.Report.Files(),
	}, res.Report.UpdatedSummary)
	if err != nil {
		return fmt.Errorf("recording run history: %w", err)
	}
	fmt.Printf("Run recorded as %s\n", run.ID)
	return nil
}

func init() {
	reportCmd.Flags().String("matches", "", "match CSV written by OpenSpecy match_spec")
	reportCmd.Flags().String("output", "", "workbook path (created or updated)")
	reportCmd.Flags().Int("top-n", types.DefaultTopN, "matches per spectrum in the CSV")
	reportCmd.Flags().Bool("history", false, "record the run in the history database")
	reportCmd.Flags().String("history-dir", "history", "directory holding history.db")

	rootCmd.AddCommand(reportCmd)
}
