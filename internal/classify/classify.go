// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package classify decides the summary row and annotation for one spectrum's
// block of top library matches.
//
// A block whose best match is plastic is left unannotated. Otherwise the
// first plastic match further down the block is promoted and labelled with
// its rank ("third match"). A block with no plastic at all is labelled as
// all empty wells or all nonpolymer.
package classify

import (
	"fmt"
	"slices"

	"github.com/pdiddy/openspecy-automation/pkg/types"
)

const (
	// NoteAllEmptyWells marks a block whose every match is an empty well.
	NoteAllEmptyWells = "all top matches empty wells"

	// NoteAllNonpolymer marks a block with no plastic match.
	NoteAllNonpolymer = "all top matches nonpolymer"
)

// Result is the updated summary row for one spectrum: the chosen match plus
// its classification note.
type Result struct {
	types.MatchRow
	Note string `json:"matches_checked" yaml:"matches_checked"`
}

// Values returns the row in types.UpdatedSummaryColumns order.
func (r Result) Values() []any {
	return append(r.MatchRow.Values(), r.Note)
}

// SortBlock returns a copy of block ordered by match value, best first.
// Ties keep their matcher order.
func SortBlock(block []types.MatchRow) []types.MatchRow {
	sorted := slices.Clone(block)
	slices.SortStableFunc(sorted, func(a, b types.MatchRow) int {
		switch {
		case a.MatchValue > b.MatchValue:
			return -1
		case a.MatchValue < b.MatchValue:
			return 1
		}
		return 0
	})
	return sorted
}

// Classify picks the summary row for a block already sorted by SortBlock.
func Classify(block []types.MatchRow) (Result, error) {
	if len(block) == 0 {
		return Result{}, fmt.Errorf("%w: empty match block", types.ErrMalformedInput)
	}

	if block[0].Polymer == types.Plastic {
		return Result{MatchRow: block[0]}, nil
	}

	if i := slices.IndexFunc(block, func(r types.MatchRow) bool { return r.Polymer == types.Plastic }); i >= 0 {
		note, err := RankNote(i, len(block))
		if err != nil {
			return Result{}, fmt.Errorf("classifying %s: %w", block[0].FileID, err)
		}
		return Result{MatchRow: block[i], Note: note}, nil
	}

	if allEmptyWells(block) {
		return Result{MatchRow: block[0], Note: NoteAllEmptyWells}, nil
	}
	return Result{MatchRow: block[0], Note: NoteAllNonpolymer}, nil
}

func allEmptyWells(block []types.MatchRow) bool {
	for _, r := range block {
		if r.SpectrumIdentity != types.EmptyWell {
			return false
		}
	}
	return true
}

var ordinalWords = []string{
	"first", "second", "third", "fourth", "fifth",
	"sixth", "seventh", "eighth", "ninth", "tenth",
}

// RankNote labels the match at zero-based index i of a block of size n,
// e.g. 2 -> "third match". Index 0 never needs a label, so only 1..n-1 are
// valid.
func RankNote(i, n int) (string, error) {
	if i < 1 || i >= n {
		return "", fmt.Errorf("%w: index %d in block of %d", types.ErrUnreachableIndex, i, n)
	}
	return ordinal(i+1) + " match", nil
}

// ordinal spells out 1-10 and uses numeric suffixes beyond that.
func ordinal(n int) string {
	if n <= len(ordinalWords) {
		return ordinalWords[n-1]
	}
	suffix := "th"
	switch n % 100 {
	case 11, 12, 13:
	default:
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return fmt.Sprintf("%d%s", n, suffix)
}
