// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report turns a match table into the OpenSpecy summary workbook:
// Info, Summary, Updated Summary, Subsequent Matches, and Notes sheets.
package report

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/pdiddy/openspecy-automation/internal/classify"
	"github.com/pdiddy/openspecy-automation/internal/workbook"
	"github.com/pdiddy/openspecy-automation/pkg/types"
)

// Sheet names in the output workbook.
const (
	SheetInfo              = "Info"
	SheetSummary           = "Summary"
	SheetUpdatedSummary    = "Updated Summary"
	SheetSubsequentMatches = "Subsequent Matches"
	SheetNotes             = "Notes"
)

// Report holds the derived tables for one match table.
type Report struct {
	// Columns is the full matcher column set used by the Info sheet.
	Columns []string

	// Info is the match table sorted by file name.
	Info []types.MatchRow

	// Summary holds the best match of each file.
	Summary []types.MatchRow

	// UpdatedSummary holds the classified row of each file.
	UpdatedSummary []classify.Result

	// SubsequentMatches holds every match, best first within each file, with
	// the file name blanked after the first row of each file.
	SubsequentMatches []types.MatchRow
}

// Files returns the number of input files covered by the report.
func (r *Report) Files() int {
	return len(r.Summary)
}

// Assemble partitions table into blocks of topN rows and classifies each
// block. Blocks are cut by position after sorting by file name; every row of
// a block must carry the same file name.
func Assemble(table *types.MatchTable, topN int) (*Report, error) {
	if topN <= 0 {
		return nil, fmt.Errorf("%w: top_n must be positive, got %d", types.ErrMalformedInput, topN)
	}
	if table.Len()%topN != 0 {
		return nil, fmt.Errorf("%w: %d match rows is not a multiple of top_n=%d",
			types.ErrMalformedInput, table.Len(), topN)
	}

	info := slices.Clone(table.Rows)
	slices.SortStableFunc(info, func(a, b types.MatchRow) int {
		return strings.Compare(a.FileID, b.FileID)
	})

	rep := &Report{
		Columns:           table.Columns,
		Info:              info,
		Summary:           make([]types.MatchRow, 0, len(info)/topN),
		UpdatedSummary:    make([]classify.Result, 0, len(info)/topN),
		SubsequentMatches: make([]types.MatchRow, 0, len(info)),
	}

	for start := 0; start < len(info); start += topN {
		block := info[start : start+topN]
		if err := checkBlock(block, start); err != nil {
			return nil, err
		}

		sorted := classify.SortBlock(block)
		rep.Summary = append(rep.Summary, sorted[0])

		res, err := classify.Classify(sorted)
		if err != nil {
			return nil, err
		}
		rep.UpdatedSummary = append(rep.UpdatedSummary, res)

		for x, row := range sorted {
			if x != 0 {
				row.FileID = types.BlankFileID
			}
			rep.SubsequentMatches = append(rep.SubsequentMatches, row)
		}
	}

	return rep, nil
}

func checkBlock(block []types.MatchRow, start int) error {
	for i, row := range block {
		if row.FileID != block[0].FileID {
			return fmt.Errorf("%w: block at row %d mixes files %q and %q (each file needs exactly top_n matches)",
				types.ErrMalformedInput, start+i, block[0].FileID, row.FileID)
		}
	}
	return nil
}

// AddTo stores the four report sheets in b.
func (r *Report) AddTo(b *workbook.Builder) {
	info := make([][]any, len(r.Info))
	for i, row := range r.Info {
		info[i] = recordValues(row.Record)
	}
	b.AddTable(SheetInfo, r.Columns, info)

	b.AddTable(SheetSummary, types.SummaryColumns, rowValues(r.Summary))

	updated := make([][]any, len(r.UpdatedSummary))
	for i, res := range r.UpdatedSummary {
		updated[i] = res.Values()
	}
	b.AddTable(SheetUpdatedSummary, types.UpdatedSummaryColumns, updated)

	b.AddTable(SheetSubsequentMatches, types.SummaryColumns, rowValues(r.SubsequentMatches))
}

func rowValues(rows []types.MatchRow) [][]any {
	out := make([][]any, len(rows))
	for i, row := range rows {
		out[i] = row.Values()
	}
	return out
}

func recordValues(record []string) []any {
	out := make([]any, len(record))
	for i, v := range record {
		out[i] = workbook.Infer(v)
	}
	return out
}

// Exporter assembles a report and writes it, with notes, to a workbook.
type Exporter struct {
	// TopN is the block stride (matches per file).
	TopN int

	// ToolVersion is written to the Notes timestamp line.
	ToolVersion string

	// Now returns the processing time. Defaults to time.Now.
	Now func() time.Time
}

// Result summarises an export.
type Result struct {
	Report *Report
	Notes  Notes
	Bytes  int64
}

// Export builds every sheet in memory, then writes the workbook at path once.
// Nothing is written when assembly fails.
func (e Exporter) Export(table *types.MatchTable, path string, w io.Writer) (Result, error) {
	topN := e.TopN
	if topN == 0 {
		topN = types.DefaultTopN
	}
	now := e.Now
	if now == nil {
		now = time.Now
	}

	rep, err := Assemble(table, topN)
	if err != nil {
		return Result{}, err
	}

	b := workbook.New()
	rep.AddTo(b)

	notes, err := GenerateNotes(b, topN, e.ToolVersion, now())
	if err != nil {
		return Result{}, err
	}
	for _, warn := range notes.Warnings {
		fmt.Fprintln(w, warn)
	}

	n, err := b.Write(path)
	if err != nil {
		return Result{}, err
	}
	fmt.Fprintf(w, "Workbook saved to %s\n", path)

	return Result{Report: rep, Notes: notes, Bytes: n}, nil
}
