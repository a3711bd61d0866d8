// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"fmt"
	"io"
	"time"

	"github.com/pdiddy/openspecy-automation/internal/classify"
	"github.com/pdiddy/openspecy-automation/internal/workbook"
	"github.com/pdiddy/openspecy-automation/pkg/types"
)

// ToolName prefixes the version on the Notes timestamp line.
const ToolName = "OpenSpecy Automation"

// Notes sheet layout.
const (
	CellTimestamp    = "A1"
	CellEmptyWells   = "A3"
	CellTotallyEmpty = "A4"
)

// TimestampLayout renders times as e.g. "2026-10-16 14:05 UTC+0000".
const TimestampLayout = "2006-01-02 15:04 MST-0700"

// WarnNoNonplastic is reported when every summary row is plastic.
const WarnNoNonplastic = "No nonplastic matches."

// Notes holds the empty-well statistics written to the Notes sheet.
type Notes struct {
	// NonPlastic counts Summary rows whose best match is not plastic.
	NonPlastic int

	// EmptyWells counts those rows whose best match is an empty well.
	EmptyWells int

	// TotallyEmpty counts Updated Summary rows annotated as all empty wells.
	TotallyEmpty int

	EmptyWellsNote   string
	TotallyEmptyNote string
	Timestamp        string

	// Warnings holds non-fatal conditions, e.g. WarnNoNonplastic.
	Warnings []string
}

// GenerateNotes reads the Summary and Updated Summary sheets from b and
// stores a fresh Notes sheet in b. When no summary row is nonplastic the
// statistics are skipped but the timestamp line is still written.
func GenerateNotes(b *workbook.Builder, topN int, toolVersion string, now time.Time) (Notes, error) {
	summary, ok := b.Sheet(SheetSummary)
	if !ok {
		return Notes{}, fmt.Errorf("%w: workbook has no %q sheet", types.ErrMalformedInput, SheetSummary)
	}
	flags, err := summary.Column(types.ColPlasticOrNot)
	if err != nil {
		return Notes{}, fmt.Errorf("%w: %v", types.ErrMalformedInput, err)
	}
	identities, err := summary.Column(types.ColSpectrumIdentity)
	if err != nil {
		return Notes{}, fmt.Errorf("%w: %v", types.ErrMalformedInput, err)
	}

	var n Notes
	for i, flag := range flags {
		if flag != string(types.NotPlastic) {
			continue
		}
		n.NonPlastic++
		if identities[i] == types.EmptyWell {
			n.EmptyWells++
		}
	}

	b.AddTable(SheetNotes, nil, nil)

	if n.NonPlastic == 0 {
		n.Warnings = append(n.Warnings, WarnNoNonplastic)
	} else {
		updated, ok := b.Sheet(SheetUpdatedSummary)
		if !ok {
			return Notes{}, fmt.Errorf("%w: workbook has no %q sheet", types.ErrMalformedInput, SheetUpdatedSummary)
		}
		checked, err := updated.Column(types.ColMatchesChecked)
		if err != nil {
			return Notes{}, fmt.Errorf("%w: %v", types.ErrMalformedInput, err)
		}
		for _, note := range checked {
			if note == classify.NoteAllEmptyWells {
				n.TotallyEmpty++
			}
		}

		n.EmptyWellsNote = fmt.Sprintf("%d out of %d nonplastic matches are empty wells.",
			n.EmptyWells, n.NonPlastic)
		n.TotallyEmptyNote = fmt.Sprintf("%d out of %d empty well matches have %d/%d top hits for empty wells.",
			n.TotallyEmpty, n.EmptyWells, topN, topN)

		b.SetCell(SheetNotes, CellEmptyWells, n.EmptyWellsNote)
		b.SetCell(SheetNotes, CellTotallyEmpty, n.TotallyEmptyNote)
	}

	n.Timestamp = fmt.Sprintf("This file was processed with %s at %s.",
		toolVersion, now.UTC().Format(TimestampLayout))
	b.SetCell(SheetNotes, CellTimestamp, n.Timestamp)

	return n, nil
}

// ToolVersion returns the tool name and version for the timestamp line.
func ToolVersion(version string) string {
	return ToolName + " " + version
}

// RegenerateNotes recomputes the Notes sheet of the workbook at path from its
// Summary and Updated Summary sheets. Only the Notes sheet is rewritten.
func RegenerateNotes(path string, topN int, toolVersion string, now time.Time, w io.Writer) (Notes, error) {
	src, err := workbook.Open(path)
	if err != nil {
		return Notes{}, err
	}
	n, err := GenerateNotes(src, topN, toolVersion, now)
	if err != nil {
		return Notes{}, err
	}
	for _, warn := range n.Warnings {
		fmt.Fprintln(w, warn)
	}

	sheet, _ := src.Sheet(SheetNotes)
	out := workbook.New()
	out.AddTable(SheetNotes, nil, nil)
	for ref, v := range sheet.Cells {
		out.SetCell(SheetNotes, ref, v)
	}
	if _, err := out.Write(path); err != nil {
		return Notes{}, err
	}
	fmt.Fprintf(w, "Notes updated in %s\n", path)
	return n, nil
}
