// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/openspecy-automation/internal/report"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of openspecy-automation",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(report.ToolVersion(version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
