// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/openspecy-automation/internal/history"
	"github.com/pdiddy/openspecy-automation/internal/report"
	"github.com/pdiddy/openspecy-automation/pkg/types"
)

// Config keys. Each maps to a nested key in openspecy-automation.yaml and to
// an OPENSPECY_* environment variable (dots become underscores).
const (
	keyRangeMin     = "preprocess.range_min"
	keyRangeMax     = "preprocess.range_max"
	keyOutputDir    = "preprocess.output_dir"
	keyBackend      = "matcher.backend"
	keyRscript      = "matcher.rscript"
	keyImage        = "matcher.image"
	keyLibrary      = "matcher.library"
	keySpectrumType = "matcher.spectrum_type"
	keyFetchLibrary = "matcher.fetch_library"
	keyWorkDir      = "matcher.work_dir"
	keyKeepWorkDir  = "matcher.keep_work_dir"
	keyTopN         = "report.top_n"
	keyHistory      = "history.enabled"
	keyHistoryDir   = "history.dir"
)

func init() {
	viper.SetDefault(keyRangeMin, types.DefaultRangeMin)
	viper.SetDefault(keyRangeMax, types.DefaultRangeMax)
	viper.SetDefault(keyBackend, string(types.BackendAuto))
	viper.SetDefault(keyRscript, "Rscript")
	viper.SetDefault(keyTopN, types.DefaultTopN)
	viper.SetDefault(keyHistoryDir, history.DefaultDir)
}

// bindFlags binds the named flags of cmd to config keys. Binding happens
// when the command runs so commands sharing a key do not shadow each other.
func bindFlags(cmd *cobra.Command, keys map[string]string) error {
	for flag, key := range keys {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("binding flag --%s: %w", flag, err)
		}
	}
	return nil
}

func preprocessConfig(inputDir string) types.PreprocessConfig {
	return types.PreprocessConfig{
		InputDir:  inputDir,
		OutputDir: viper.GetString(keyOutputDir),
		RangeMin:  viper.GetFloat64(keyRangeMin),
		RangeMax:  viper.GetFloat64(keyRangeMax),
	}
}

func matcherConfig() types.MatcherConfig {
	return types.MatcherConfig{
		Backend:      types.Backend(viper.GetString(keyBackend)),
		Rscript:      viper.GetString(keyRscript),
		Image:        viper.GetString(keyImage),
		Library:      viper.GetString(keyLibrary),
		SpectrumType: viper.GetString(keySpectrumType),
		FetchLibrary: viper.GetBool(keyFetchLibrary),
		TopN:         viper.GetInt(keyTopN),
		RangeMin:     viper.GetFloat64(keyRangeMin),
		RangeMax:     viper.GetFloat64(keyRangeMax),
		WorkDir:      viper.GetString(keyWorkDir),
		KeepWorkDir:  viper.GetBool(keyKeepWorkDir),
	}
}

func reportConfig(outputPath string) types.ReportConfig {
	return types.ReportConfig{
		OutputPath:  outputPath,
		TopN:        viper.GetInt(keyTopN),
		ToolVersion: report.ToolVersion(version),
	}
}

func historyConfig() types.HistoryConfig {
	return types.HistoryConfig{
		Enabled: viper.GetBool(keyHistory),
		Dir:     viper.GetString(keyHistoryDir),
	}
}

// openHistory opens the history store when recording is enabled, and
// returns nil when it is not.
func openHistory(cfg types.HistoryConfig) (*history.Store, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	return history.NewStore(cfg)
}
