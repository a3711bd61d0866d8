// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pdiddy/openspecy-automation/internal/container"
	"github.com/pdiddy/openspecy-automation/internal/matcher"
	"github.com/pdiddy/openspecy-automation/internal/pipeline"
	"github.com/pdiddy/openspecy-automation/pkg/types"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Preprocess, match and report a folder of spectra",
	Long: `Run filters every CSV in the input folder to the wavenumber window, packs
them into a ZIP archive, matches them against the OpenSpecy library with R,
and writes the Info, Summary, Updated Summary, Subsequent Matches and Notes
sheets to the output workbook.

R runs on the host (--backend host) or inside a container image with
OpenSpecy installed (--backend docker, podman, or auto).`,
	RunE: runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	if err := bindFlags(cmd, map[string]string{
		"output-dir":    keyOutputDir,
		"range-min":     keyRangeMin,
		"range-max":     keyRangeMax,
		"top-n":         keyTopN,
		"backend":       keyBackend,
		"rscript":       keyRscript,
		"image":         keyImage,
		"library":       keyLibrary,
		"spectrum-type": keySpectrumType,
		"fetch-library": keyFetchLibrary,
		"work-dir":      keyWorkDir,
		"keep-work-dir": keyKeepWorkDir,
		"history":       keyHistory,
		"history-dir":   keyHistoryDir,
	}); err != nil {
		return err
	}

	input, _ := cmd.Flags().GetString("input")
	outputFile, _ := cmd.Flags().GetString("output-file")
	if input == "" || outputFile == "" {
		return fmt.Errorf("--input and --output-file are required")
	}

	pre := preprocessConfig(input)
	outDir := pre.OutputDir
	if outDir == "" {
		outDir = filepath.Dir(filepath.Clean(input))
	}
	cfg := types.PipelineConfig{
		Preprocess: pre,
		Matcher:    matcherConfig(),
		Report:     reportConfig(pipeline.OutputPath(outDir, outputFile)),
		History:    historyConfig(),
	}

	rt, err := container.DetectRuntime(cfg.Matcher.Backend, cfg.Matcher.Rscript)
	if err != nil {
		return err
	}
	m, err := matcher.New(cfg.Matcher, rt, os.Stdout)
	if err != nil {
		return err
	}

	store, err := openHistory(cfg.History)
	if err != nil {
		return err
	}
	var rec pipeline.Recorder
	if store != nil {
		defer store.Close()
		rec = store
	}

	_, err = pipeline.Run(cmd.Context(), cfg, m, rec, os.Stdout)
	return err
}

func init() {
	runCmd.Flags().String("input", "", "folder of spectrum CSV files")
	runCmd.Flags().String("output-file", "", "workbook file name (.xlsx added when missing)")
	runCmd.Flags().String("output-dir", "", "directory for the archive and workbook (default: parent of --input)")
	runCmd.Flags().Float64("range-min", types.DefaultRangeMin, "lowest wavenumber kept")
	runCmd.Flags().Float64("range-max", types.DefaultRangeMax, "highest wavenumber kept")
	runCmd.Flags().Int("top-n", types.DefaultTopN, "library matches per spectrum")
	runCmd.Flags().String("backend", string(types.BackendAuto), "where R runs: auto, host, docker, or podman")
	runCmd.Flags().String("rscript", "Rscript", "Rscript binary for the host backend")
	runCmd.Flags().String("image", matcher.DefaultImage, "container image with R and OpenSpecy")
	runCmd.Flags().String("library", matcher.DefaultLibrary, "OpenSpecy library type")
	runCmd.Flags().String("spectrum-type", matcher.DefaultSpectrumType, "library spectrum type: ftir or raman")
	runCmd.Flags().Bool("fetch-library", false, "download the library before matching")
	runCmd.Flags().String("work-dir", "", "parent directory for scratch files (default: system temp)")
	runCmd.Flags().Bool("keep-work-dir", false, "keep the R script, archive and raw match CSV")
	runCmd.Flags().Bool("history", false, "record the run in the history database")
	runCmd.Flags().String("history-dir", "history", "directory holding history.db")

	rootCmd.AddCommand(runCmd)
}
