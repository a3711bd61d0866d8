// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/pdiddy/openspecy-automation/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List, show and export recorded runs",
	Long: `History reads the SQLite database written by run --history and
report --history. Each run keeps its output path, tool version, top_n and the
Updated Summary row of every spectrum.`,
}

// --- list subcommand ---

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs, newest first",
	RunE:  runHistoryList,
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	store, err := historyStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := store.ListRuns(cmd.Context(), limit)
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		return writeJSON(runs)
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-8s  %-14s  %-5s  %-5s  %s\n", "ID", "When", "Files", "TopN", "Output")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 80))
	for _, r := range runs {
		fmt.Fprintf(os.Stdout, "%-8s  %-14s  %-5d  %-5d  %s\n",
			r.ID[:min(8, len(r.ID))], humanize.Time(r.CreatedAt), r.FileCount, r.TopN, r.OutputPath)
	}
	fmt.Fprintf(os.Stdout, "\n%d runs\n", len(runs))
	return nil
}

// --- show subcommand ---

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the summary rows of one run",
	Long: `Show prints the Updated Summary rows recorded for a run. The run may be
given by any unique prefix of its ID.`,
	Args: cobra.ExactArgs(1),
	RunE: runHistoryShow,
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	store, err := historyStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	run, err := store.GetRun(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	opts := queryOptsFromFlags(cmd)
	opts.RunID = run.ID
	sums, err := store.Summaries(cmd.Context(), opts)
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		return writeJSON(history.ExportRun{Run: run, Summaries: sums})
	}

	fmt.Printf("Run %s\n", run.ID)
	fmt.Printf("  created: %s (%s)\n", run.CreatedAt.Format("2006-01-02 15:04:05 MST"), humanize.Time(run.CreatedAt))
	fmt.Printf("  output:  %s\n", run.OutputPath)
	fmt.Printf("  tool:    %s, top_n %d, %d files\n\n", run.ToolVersion, run.TopN, run.FileCount)

	fmt.Fprintf(os.Stdout, "%-24s  %-20s  %-8s  %-8s  %-12s  %s\n",
		"File", "Identity", "Match", "SN", "Plastic", "Checked")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 100))
	for _, s := range sums {
		sn := "NA"
		if s.SN != nil {
			sn = fmt.Sprintf("%.2f", *s.SN)
		}
		fmt.Fprintf(os.Stdout, "%-24s  %-20s  %-8.4f  %-8s  %-12s  %s\n",
			truncate(s.FileName, 24), truncate(s.SpectrumIdentity, 20), s.MatchVal, sn, s.PlasticOrNot, s.MatchesChecked)
	}
	return nil
}

// --- export subcommand ---

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export recorded runs to YAML or JSON",
	Long: `Export writes recorded runs with their summary rows to export.yaml or
export.json in the history directory. Filter flags select a subset.`,
	RunE: runHistoryExport,
}

func runHistoryExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")

	store, err := historyStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	opts := queryOptsFromFlags(cmd)
	if opts.RunID != "" {
		run, err := store.GetRun(cmd.Context(), opts.RunID)
		if err != nil {
			return err
		}
		opts.RunID = run.ID
	}

	var path string
	switch format {
	case "yaml", "":
		path, err = store.ExportYAML(cmd.Context(), opts)
	case "json":
		path, err = store.ExportJSON(cmd.Context(), opts)
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}
	if err != nil {
		return err
	}
	fmt.Printf("Exported to %s\n", path)
	return nil
}

// --- shared helpers ---

func historyStore(cmd *cobra.Command) (*history.Store, error) {
	if err := bindFlags(cmd, map[string]string{"history-dir": keyHistoryDir}); err != nil {
		return nil, err
	}
	cfg := historyConfig()
	cfg.Enabled = true
	return history.NewStore(cfg)
}

func queryOptsFromFlags(cmd *cobra.Command) history.QueryOptions {
	runID, _ := cmd.Flags().GetString("run")
	file, _ := cmd.Flags().GetString("file")
	note, _ := cmd.Flags().GetString("note")
	return history.QueryOptions{RunID: runID, FileName: file, Note: note}
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func init() {
	historyCmd.PersistentFlags().String("history-dir", "history", "directory holding history.db")

	historyListCmd.Flags().Int("limit", 20, "maximum runs listed (0 = all)")
	historyListCmd.Flags().Bool("json", false, "output runs as JSON")

	historyShowCmd.Flags().String("file", "", "only rows for this spectrum file")
	historyShowCmd.Flags().String("note", "", "only rows whose matches_checked contains this text")
	historyShowCmd.Flags().Bool("json", false, "output the run as JSON")

	historyExportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	historyExportCmd.Flags().String("run", "", "export one run (ID or unique prefix)")
	historyExportCmd.Flags().String("file", "", "only rows for this spectrum file")
	historyExportCmd.Flags().String("note", "", "only rows whose matches_checked contains this text")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyExportCmd)

	rootCmd.AddCommand(historyCmd)
}
