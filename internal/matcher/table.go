// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package matcher

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/pdiddy/openspecy-automation/pkg/types"
)

// fileColumns lists the accepted names of the file column in preference
// order. Joining library and object metadata in OpenSpecy suffixes the
// duplicated file_name column with .x / .y; .y carries the spectrum's file.
var fileColumns = []string{"file_name.y", types.ColFileName, "file_name.x"}

// maxSuggestDistance bounds the edit distance for "did you mean" hints.
const maxSuggestDistance = 3

type columnIndex struct {
	file, identity, class, matchVal, sn, plastic int
}

// ReadTable parses a match CSV written by the R script. All columns are kept
// for the Info sheet; the required ones are parsed into MatchRows.
func ReadTable(r io.Reader) (*types.MatchTable, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: match table is empty", types.ErrMalformedInput)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading match table header: %v", types.ErrMalformedInput, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	idx, err := resolveColumns(header)
	if err != nil {
		return nil, err
	}

	table := &types.MatchTable{Columns: header}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: match table: %v", types.ErrMalformedInput, err)
		}
		row, err := parseRow(rec, idx)
		if err != nil {
			return nil, fmt.Errorf("%w: match table line %d: %v", types.ErrMalformedInput, line, err)
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

func resolveColumns(header []string) (columnIndex, error) {
	var missing []string
	find := func(names ...string) int {
		for _, n := range names {
			if i := slices.Index(header, n); i >= 0 {
				return i
			}
		}
		missing = append(missing, names[0])
		return -1
	}

	idx := columnIndex{
		file:     find(fileColumns...),
		identity: find(types.ColSpectrumIdentity),
		class:    find(types.ColMaterialClass),
		matchVal: find(types.ColMatchVal),
		sn:       find(types.ColSN),
		plastic:  find(types.ColPlasticOrNot),
	}
	if len(missing) == 0 {
		return idx, nil
	}

	msgs := make([]string, len(missing))
	for i, m := range missing {
		msgs[i] = m
		if s := suggest(m, header); s != "" {
			msgs[i] = fmt.Sprintf("%s (did you mean %q?)", m, s)
		}
	}
	return columnIndex{}, fmt.Errorf("%w: match table is missing required columns: %s",
		types.ErrMalformedInput, strings.Join(msgs, ", "))
}

// suggest returns the header closest to want, if any is close enough.
func suggest(want string, header []string) string {
	best, bestDist := "", maxSuggestDistance+1
	for _, h := range header {
		d := levenshtein.ComputeDistance(strings.ToLower(want), strings.ToLower(h))
		if d < bestDist {
			best, bestDist = h, d
		}
	}
	return best
}

func parseRow(rec []string, idx columnIndex) (types.MatchRow, error) {
	matchVal, err := strconv.ParseFloat(strings.TrimSpace(rec[idx.matchVal]), 64)
	if err != nil || math.IsNaN(matchVal) {
		return types.MatchRow{}, fmt.Errorf("match_val %q is not a number", rec[idx.matchVal])
	}

	sn, err := parseNA(rec[idx.sn])
	if err != nil {
		return types.MatchRow{}, fmt.Errorf("sn %q is not a number", rec[idx.sn])
	}

	flag, err := types.ParsePolymerFlag(strings.TrimSpace(rec[idx.plastic]))
	if err != nil {
		return types.MatchRow{}, fmt.Errorf("plastic_or_not %q is neither %q nor %q",
			rec[idx.plastic], types.Plastic, types.NotPlastic)
	}

	return types.MatchRow{
		FileID:           rec[idx.file],
		SpectrumIdentity: rec[idx.identity],
		MaterialClass:    rec[idx.class],
		MatchValue:       matchVal,
		SignalQuality:    sn,
		Polymer:          flag,
		Record:           rec,
	}, nil
}

// parseNA reads an R numeric cell, where NA and empty mean missing.
func parseNA(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "NA" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}
