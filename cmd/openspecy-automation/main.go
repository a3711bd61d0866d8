// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the openspecy-automation CLI.
// It turns a folder of FTIR spectra into an Excel report of OpenSpecy
// library matches, and manages the run history of past reports.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time via ldflags.
var version = "0.9.3"

// rootCmd is the base command for the openspecy-automation CLI.
var rootCmd = &cobra.Command{
	Use:   "openspecy-automation",
	Short: "Classify FTIR spectra against the OpenSpecy library",
	Long: `openspecy-automation preprocesses a folder of spectrum CSV files, matches
them against the OpenSpecy reference library through R, and writes an Excel
workbook summarising the top matches of every spectrum.

The run command chains every stage. The preprocess, report and notes commands
run a single stage, and history lists and exports past runs.`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./openspecy-automation.yaml or ~/.config/openspecy-automation/openspecy-automation.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("openspecy-automation")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "openspecy-automation"))
		}
	}

	viper.SetEnvPrefix("OPENSPECY")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
