// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types holds the data model shared across pipeline stages.
package types

import (
	"fmt"
	"math"
	"strconv"
)

// PolymerFlag records whether a library match is a plastic material.
// Values are the literal strings the OpenSpecy library reports in the
// plastic_or_not column.
type PolymerFlag string

const (
	Plastic    PolymerFlag = "plastic"
	NotPlastic PolymerFlag = "not plastic"
)

// ParsePolymerFlag converts a plastic_or_not cell into a PolymerFlag.
func ParsePolymerFlag(s string) (PolymerFlag, error) {
	switch PolymerFlag(s) {
	case Plastic, NotPlastic:
		return PolymerFlag(s), nil
	}
	return "", fmt.Errorf("%w: plastic_or_not value %q is neither %q nor %q",
		ErrMalformedInput, s, Plastic, NotPlastic)
}

// EmptyWell is the spectrum identity the library uses for a slot with no sample.
const EmptyWell = "empty well"

// Column names used on the matcher output and on the derived report sheets.
const (
	ColFileName         = "file_name"
	ColSpectrumIdentity = "spectrum_identity"
	ColMaterialClass    = "material_class"
	ColMatchVal         = "match_val"
	ColSN               = "sn"
	ColPlasticOrNot     = "plastic_or_not"
	ColMatchesChecked   = "matches_checked"
)

// SummaryColumns is the truncated column set written to the Summary and
// Subsequent Matches sheets.
var SummaryColumns = []string{
	ColFileName,
	ColSpectrumIdentity,
	ColMaterialClass,
	ColMatchVal,
	ColSN,
	ColPlasticOrNot,
}

// UpdatedSummaryColumns extends SummaryColumns with the classification note.
var UpdatedSummaryColumns = append(append([]string{}, SummaryColumns...), ColMatchesChecked)

// BlankFileID replaces the file name on every row of a block but the first.
const BlankFileID = "-"

// MatchRow is one candidate library match for one input spectrum.
type MatchRow struct {
	// FileID identifies the source spectrum file.
	FileID string `json:"file_name" yaml:"file_name"`

	// SpectrumIdentity is the library label, e.g. "polyethylene" or "empty well".
	SpectrumIdentity string `json:"spectrum_identity" yaml:"spectrum_identity"`

	// MaterialClass is the library's material grouping.
	MaterialClass string `json:"material_class" yaml:"material_class"`

	// MatchValue is the similarity score (Pearson r) against the library spectrum.
	MatchValue float64 `json:"match_val" yaml:"match_val"`

	// SignalQuality is the signal-to-noise ratio. NaN when the matcher reports NA.
	SignalQuality float64 `json:"sn" yaml:"sn"`

	// Polymer is the plastic / not plastic classification of the match.
	Polymer PolymerFlag `json:"plastic_or_not" yaml:"plastic_or_not"`

	// Record is the full matcher record, aligned with MatchTable.Columns.
	Record []string `json:"-" yaml:"-"`
}

// Values returns the row in SummaryColumns order, ready to be written as a
// spreadsheet row. A NaN signal-to-noise ratio is written as "NA".
func (r MatchRow) Values() []any {
	var sn any = r.SignalQuality
	if math.IsNaN(r.SignalQuality) {
		sn = "NA"
	}
	return []any{r.FileID, r.SpectrumIdentity, r.MaterialClass, r.MatchValue, sn, string(r.Polymer)}
}

// FormatSN renders SignalQuality for text output.
func (r MatchRow) FormatSN() string {
	if math.IsNaN(r.SignalQuality) {
		return "NA"
	}
	return strconv.FormatFloat(r.SignalQuality, 'g', -1, 64)
}

// MatchTable is the flat table of candidate matches produced by the external
// matcher: top_n contiguous rows per input file, in matcher order.
type MatchTable struct {
	// Columns is the full matcher column set, in matcher order.
	Columns []string

	// Rows holds the parsed matches.
	Rows []MatchRow
}

// Len returns the number of match rows.
func (t *MatchTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}
