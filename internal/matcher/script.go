// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package matcher

import (
	"fmt"
	"io"
	"text/template"
)

// scriptParams fills the R script template.
type scriptParams struct {
	Archive      string
	Output       string
	Library      string
	SpectrumType string
	FetchLibrary bool
	TopN         int
	RangeMin     float64
	RangeMax     float64
}

// matchScript loads the OpenSpecy library, conforms and processes the
// spectra in the archive, matches them, drops empty columns, and writes the
// match table as CSV. Processing arguments follow the OpenSpecy defaults for
// FTIR transmittance spectra.
var matchScript = template.Must(template.New("match.R").Parse(`suppressPackageStartupMessages({
  library(OpenSpecy)
  library(data.table)
})

{{if .FetchLibrary -}}
check_lib({{printf "%q" .Library}})
get_lib({{printf "%q" .Library}})
{{end -}}
spec_lib <- load_lib({{printf "%q" .Library}})

lib <- filter_spec(spec_lib, spec_lib$metadata$spectrum_type == {{printf "%q" .SpectrumType}})

files <- read_any({{printf "%q" .Archive}}) |>
  c_spec(range = lib$wavenumber, res = NULL)

files_processed <- process_spec(
  files,
  active = TRUE,
  adj_intens = TRUE,
  adj_intens_args = list(type = "transmittance"),
  conform_spec = FALSE,
  conform_spec_args = list(range = NULL, res = 5, type = "interp"),
  restrict_range = TRUE,
  restrict_range_args = list(min = {{.RangeMin}}, max = {{.RangeMax}}),
  flatten_range = FALSE,
  flatten_range_args = list(min = 2250, max = 2400),
  subtr_baseline = FALSE,
  subtr_baseline_args = list(type = "polynomial", degree = 8, raw = FALSE, baseline = NULL),
  smooth_intens = TRUE,
  smooth_intens_args = list(polynomial = 3, window = 11, derivative = 1, abs = TRUE),
  make_rel = TRUE,
  make_rel_args = list(na.rm = TRUE)
)

top_matches <- match_spec(files_processed, library = lib, na.rm = TRUE, top_n = {{.TopN}},
                          add_library_metadata = "sample_name",
                          add_object_metadata = "col_id")

top_matches_trimmed <- top_matches[, !sapply(top_matches, OpenSpecy::is_empty_vector), with = FALSE]

fwrite(top_matches_trimmed, {{printf "%q" .Output}})
`))

func renderScript(w io.Writer, p scriptParams) error {
	if err := matchScript.Execute(w, p); err != nil {
		return fmt.Errorf("rendering R script: %w", err)
	}
	return nil
}
