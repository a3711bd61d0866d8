// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/pdiddy/openspecy-automation/internal/preprocess"
	"github.com/pdiddy/openspecy-automation/pkg/types"
)

var preprocessCmd = &cobra.Command{
	Use:   "preprocess",
	Short: "Filter spectrum CSV files and pack them into a ZIP archive",
	Long: `Preprocess keeps the rows of every CSV in the input folder whose first two
fields are numeric and whose wavenumber lies in the configured window, and
writes them as wavenumber,intensity files into <output-dir>/<folder>.zip.
The input files are not modified. A folder holding anything other than .csv
files is rejected before any file is written.`,
	RunE: runPreprocess,
}

func runPreprocess(cmd *cobra.Command, args []string) error {
	if err := bindFlags(cmd, map[string]string{
		"output-dir": keyOutputDir,
		"range-min":  keyRangeMin,
		"range-max":  keyRangeMax,
	}); err != nil {
		return err
	}

	input, _ := cmd.Flags().GetString("input")
	if input == "" {
		return fmt.Errorf("--input is required")
	}

	res, err := preprocess.Run(preprocessConfig(input), os.Stdout)
	if err != nil {
		return err
	}
	fmt.Printf("%d files, %s rows kept\n", len(res.Files), humanize.Comma(int64(res.Rows())))
	return nil
}

func init() {
	preprocessCmd.Flags().String("input", "", "folder of spectrum CSV files")
	preprocessCmd.Flags().String("output-dir", "", "directory for the archive (default: parent of --input)")
	preprocessCmd.Flags().Float64("range-min", types.DefaultRangeMin, "lowest wavenumber kept")
	preprocessCmd.Flags().Float64("range-max", types.DefaultRangeMax, "highest wavenumber kept")

	rootCmd.AddCommand(preprocessCmd)
}
