// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package workbook accumulates named sheets in memory and writes them to an
// .xlsx file in one step.
//
// Write merges into an existing workbook: sheets held by the Builder replace
// same-named sheets on disk and every other sheet is left alone. The file is
// saved through a temporary file in the target directory and renamed into
// place, so readers never observe a half-written workbook.
package workbook

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/xuri/excelize/v2"
)

// defaultSheet is the sheet excelize creates in a new file.
const defaultSheet = "Sheet1"

// Sheet is one named worksheet: an optional header row, data rows, and
// fixed-position cells (e.g. "A1") written after the rows.
type Sheet struct {
	Name   string
	Header []string
	Rows   [][]any
	Cells  map[string]any
}

// Column returns the values of the named column rendered as text. Missing
// trailing cells read as "".
func (s *Sheet) Column(name string) ([]string, error) {
	idx := slices.Index(s.Header, name)
	if idx < 0 {
		return nil, fmt.Errorf("sheet %q has no column %q", s.Name, name)
	}
	out := make([]string, len(s.Rows))
	for i, row := range s.Rows {
		if idx < len(row) && row[idx] != nil {
			out[i] = fmt.Sprint(row[idx])
		}
	}
	return out, nil
}

// Builder holds sheets in insertion order.
type Builder struct {
	sheets []*Sheet
}

// New returns an empty Builder.
func New() *Builder {
	return &Builder{}
}

// AddTable stores a header-and-rows sheet, replacing any sheet of the same name.
func (b *Builder) AddTable(name string, header []string, rows [][]any) *Sheet {
	s := &Sheet{Name: name, Header: header, Rows: rows}
	if i := b.index(name); i >= 0 {
		b.sheets[i] = s
		return s
	}
	b.sheets = append(b.sheets, s)
	return s
}

// SetCell puts a value at a fixed cell reference, creating the sheet if needed.
func (b *Builder) SetCell(sheet, ref string, value any) {
	s, ok := b.Sheet(sheet)
	if !ok {
		s = &Sheet{Name: sheet}
		b.sheets = append(b.sheets, s)
	}
	if s.Cells == nil {
		s.Cells = make(map[string]any)
	}
	s.Cells[ref] = value
}

// Sheet returns the named sheet.
func (b *Builder) Sheet(name string) (*Sheet, bool) {
	if i := b.index(name); i >= 0 {
		return b.sheets[i], true
	}
	return nil, false
}

// Names lists sheet names in insertion order.
func (b *Builder) Names() []string {
	names := make([]string, len(b.sheets))
	for i, s := range b.sheets {
		names[i] = s.Name
	}
	return names
}

func (b *Builder) index(name string) int {
	return slices.IndexFunc(b.sheets, func(s *Sheet) bool { return s.Name == name })
}

// Write merges the held sheets into the workbook at path, creating it if it
// does not exist. It returns the size of the saved file.
func (b *Builder) Write(path string) (int64, error) {
	if len(b.sheets) == 0 {
		return 0, errors.New("workbook has no sheets")
	}

	f, created, err := openOrCreate(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	for _, s := range b.sheets {
		if err := replaceSheet(f, s.Name); err != nil {
			return 0, err
		}
		if err := writeSheet(f, s); err != nil {
			return 0, fmt.Errorf("writing sheet %q: %w", s.Name, err)
		}
	}

	if created && b.index(defaultSheet) < 0 {
		if err := f.DeleteSheet(defaultSheet); err != nil {
			return 0, fmt.Errorf("removing default sheet: %w", err)
		}
	}
	if idx, err := f.GetSheetIndex(b.sheets[0].Name); err == nil && idx >= 0 {
		f.SetActiveSheet(idx)
	}

	return saveAtomic(f, path)
}

func openOrCreate(path string) (*excelize.File, bool, error) {
	if _, err := os.Stat(path); err == nil {
		f, err := excelize.OpenFile(path)
		if err != nil {
			return nil, false, fmt.Errorf("opening workbook %s: %w", path, err)
		}
		return f, false, nil
	} else if !os.IsNotExist(err) {
		return nil, false, fmt.Errorf("checking workbook %s: %w", path, err)
	}
	return excelize.NewFile(), true, nil
}

// replaceSheet leaves an empty sheet called name in f. An existing sheet of
// that name is renamed aside, recreated, then deleted, because excelize
// refuses to delete a workbook's only sheet.
func replaceSheet(f *excelize.File, name string) error {
	idx, err := f.GetSheetIndex(name)
	if err != nil {
		return fmt.Errorf("looking up sheet %q: %w", name, err)
	}
	if idx < 0 {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("creating sheet %q: %w", name, err)
		}
		return nil
	}

	aside := "~" + name
	if len(aside) > 31 {
		aside = aside[:31]
	}
	if err := f.SetSheetName(name, aside); err != nil {
		return fmt.Errorf("renaming sheet %q: %w", name, err)
	}
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("creating sheet %q: %w", name, err)
	}
	if err := f.DeleteSheet(aside); err != nil {
		return fmt.Errorf("deleting old sheet %q: %w", name, err)
	}
	return nil
}

func writeSheet(f *excelize.File, s *Sheet) error {
	r := 1
	if len(s.Header) > 0 {
		header := make([]any, len(s.Header))
		for i, h := range s.Header {
			header[i] = h
		}
		if err := setRow(f, s.Name, r, header); err != nil {
			return err
		}
		r++
	}
	for _, row := range s.Rows {
		if err := setRow(f, s.Name, r, row); err != nil {
			return err
		}
		r++
	}

	refs := make([]string, 0, len(s.Cells))
	for ref := range s.Cells {
		refs = append(refs, ref)
	}
	slices.Sort(refs)
	for _, ref := range refs {
		if err := f.SetCellValue(s.Name, ref, cellValue(s.Cells[ref])); err != nil {
			return fmt.Errorf("setting %s: %w", ref, err)
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, r int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, r)
	if err != nil {
		return err
	}
	row := make([]any, len(values))
	for i, v := range values {
		row[i] = cellValue(v)
	}
	return f.SetSheetRow(sheet, cell, &row)
}

// Infer converts a text cell to a number when it parses as one, so numeric
// columns stay numeric in Excel. "NA" and other text are returned unchanged.
func Infer(s string) any {
	if s == "" {
		return s
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f
	}
	return s
}

// cellValue keeps NaN and infinities out of the XML, which Excel rejects.
func cellValue(v any) any {
	if x, ok := v.(float64); ok && (math.IsNaN(x) || math.IsInf(x, 0)) {
		return "NA"
	}
	return v
}

func saveAtomic(f *excelize.File, path string) (int64, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("creating output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*")
	if err != nil {
		return 0, fmt.Errorf("creating temp workbook: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	n, err := f.WriteTo(tmp)
	if err != nil {
		tmp.Close()
		return 0, fmt.Errorf("encoding workbook: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("closing temp workbook: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return 0, fmt.Errorf("saving workbook %s: %w", path, err)
	}
	return n, nil
}

// Open reads every sheet of the workbook at path. The first row of each sheet
// becomes its header; all values are read as text.
func Open(path string) (*Builder, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook %s: %w", path, err)
	}
	defer f.Close()

	b := New()
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("reading sheet %q: %w", name, err)
		}
		s := &Sheet{Name: name}
		if len(rows) > 0 {
			s.Header = rows[0]
			for _, row := range rows[1:] {
				vals := make([]any, len(row))
				for i, v := range row {
					vals[i] = v
				}
				s.Rows = append(s.Rows, vals)
			}
		}
		b.sheets = append(b.sheets, s)
	}
	return b, nil
}
