// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// DefaultTopN is the number of library matches kept per spectrum.
const DefaultTopN = 5

// Default wavenumber window, matching the range of the FTIR derivative library.
const (
	DefaultRangeMin = 650
	DefaultRangeMax = 4000
)

// PreprocessConfig holds settings for the CSV preprocessing stage.
type PreprocessConfig struct {
	// InputDir is the folder of raw spectrum CSV files. Every entry must be a .csv file.
	InputDir string `json:"input_dir" yaml:"input_dir"`

	// OutputDir receives the ZIP archive (named after InputDir).
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// RangeMin is the lowest wavenumber kept (inclusive).
	RangeMin float64 `json:"range_min" yaml:"range_min"`

	// RangeMax is the highest wavenumber kept (inclusive).
	RangeMax float64 `json:"range_max" yaml:"range_max"`
}

// Backend selects where Rscript runs.
type Backend string

const (
	BackendAuto   Backend = "auto"
	BackendHost   Backend = "host"
	BackendDocker Backend = "docker"
	BackendPodman Backend = "podman"
)

// MatcherConfig holds settings for the OpenSpecy matching stage.
type MatcherConfig struct {
	// Backend selects host Rscript or a container runtime (default auto).
	Backend Backend `json:"backend" yaml:"backend"`

	// Rscript is the Rscript binary used by the host backend (default "Rscript").
	Rscript string `json:"rscript" yaml:"rscript"`

	// Image is the container image with R and OpenSpecy installed.
	Image string `json:"image" yaml:"image"`

	// Library is the OpenSpecy library type passed to load_lib (default "derivative").
	Library string `json:"library" yaml:"library"`

	// SpectrumType filters the library, e.g. "ftir" or "raman".
	SpectrumType string `json:"spectrum_type" yaml:"spectrum_type"`

	// FetchLibrary downloads the library with get_lib before loading it.
	FetchLibrary bool `json:"fetch_library" yaml:"fetch_library"`

	// TopN is the number of matches requested per spectrum.
	TopN int `json:"top_n" yaml:"top_n"`

	// RangeMin and RangeMax bound process_spec's restrict_range step.
	RangeMin float64 `json:"range_min" yaml:"range_min"`
	RangeMax float64 `json:"range_max" yaml:"range_max"`

	// WorkDir is the parent for per-run scratch directories (default: system temp).
	WorkDir string `json:"work_dir" yaml:"work_dir"`

	// KeepWorkDir leaves the scratch directory (script, archive, raw CSV) in place.
	KeepWorkDir bool `json:"keep_work_dir" yaml:"keep_work_dir"`
}

// ReportConfig holds settings for workbook assembly.
type ReportConfig struct {
	// OutputPath is the .xlsx file written (created or updated in place).
	OutputPath string `json:"output_path" yaml:"output_path"`

	// TopN is the block stride: matches per input file.
	TopN int `json:"top_n" yaml:"top_n"`

	// ToolVersion is written to the Notes sheet.
	ToolVersion string `json:"tool_version" yaml:"tool_version"`
}

// HistoryConfig holds settings for the run history database.
type HistoryConfig struct {
	// Enabled records each run in the history database.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Dir holds history.db (default "history").
	Dir string `json:"dir" yaml:"dir"`
}

// PipelineConfig groups all stage configurations for a full run.
type PipelineConfig struct {
	Preprocess PreprocessConfig `json:"preprocess" yaml:"preprocess"`
	Matcher    MatcherConfig    `json:"matcher" yaml:"matcher"`
	Report     ReportConfig     `json:"report" yaml:"report"`
	History    HistoryConfig    `json:"history" yaml:"history"`
}
