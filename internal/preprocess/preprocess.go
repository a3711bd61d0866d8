// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package preprocess reshapes raw spectrum CSV files into the two-column
// wavenumber,intensity form OpenSpecy reads, and packs them into one ZIP
// archive for the matcher.
package preprocess

import (
	"archive/zip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pdiddy/openspecy-automation/pkg/types"
)

// Header is the first row of every processed file.
var Header = []string{"wavenumber", "intensity"}

// FileResult records how many rows one file kept.
type FileResult struct {
	Name    string
	Kept    int
	Dropped int
}

// Result summarises a preprocessing run.
type Result struct {
	ArchivePath string
	Files       []FileResult
}

// Rows returns the total number of rows kept across files.
func (r Result) Rows() int {
	n := 0
	for _, f := range r.Files {
		n += f.Kept
	}
	return n
}

// Run filters every CSV in cfg.InputDir to the configured wavenumber window
// and writes them to <OutputDir>/<input folder name>.zip. The input files are
// not modified. Any entry that is not a .csv file aborts the run before the
// archive is created.
func Run(cfg types.PreprocessConfig, w io.Writer) (Result, error) {
	if cfg.RangeMin > cfg.RangeMax {
		return Result{}, fmt.Errorf("range_min %g is greater than range_max %g", cfg.RangeMin, cfg.RangeMax)
	}

	names, err := listCSV(cfg.InputDir)
	if err != nil {
		return Result{}, err
	}

	outDir := cfg.OutputDir
	if outDir == "" {
		outDir = filepath.Dir(filepath.Clean(cfg.InputDir))
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("creating output directory: %w", err)
	}
	archivePath := filepath.Join(outDir, filepath.Base(filepath.Clean(cfg.InputDir))+".zip")

	files, err := writeArchive(archivePath, cfg, names, w)
	if err != nil {
		os.Remove(archivePath)
		return Result{}, err
	}

	fmt.Fprintf(w, "Files compressed to %s\n", archivePath)
	return Result{ArchivePath: archivePath, Files: files}, nil
}

// listCSV returns the file names in dir, failing on anything that is not a
// .csv file.
func listCSV(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading input directory %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			return nil, fmt.Errorf("%w: %s (only .csv files are accepted, remove all other entries from %s)",
				types.ErrIncompatibleFile, e.Name(), dir)
		}
		names = append(names, e.Name())
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no .csv files in %s", types.ErrIncompatibleFile, dir)
	}
	return names, nil
}

func writeArchive(path string, cfg types.PreprocessConfig, names []string, w io.Writer) (results []FileResult, err error) {
	out, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating archive: %w", err)
	}
	defer func() {
		if cerr := out.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("closing archive: %w", cerr)
		}
	}()

	zw := zip.NewWriter(out)
	for _, name := range names {
		entry, err := zw.Create(name)
		if err != nil {
			return nil, fmt.Errorf("adding %s to archive: %w", name, err)
		}

		res, err := filterFile(filepath.Join(cfg.InputDir, name), entry, cfg.RangeMin, cfg.RangeMax)
		if err != nil {
			return nil, err
		}
		res.Name = name
		results = append(results, res)
		fmt.Fprintf(w, "Processed file: %s (%d rows kept, %d dropped)\n", name, res.Kept, res.Dropped)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finishing archive: %w", err)
	}
	return results, nil
}

func filterFile(path string, dst io.Writer, rangeMin, rangeMax float64) (FileResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return FileResult{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	res, err := Filter(f, dst, rangeMin, rangeMax)
	if err != nil {
		return FileResult{}, fmt.Errorf("%w: %s: %v", types.ErrIncompatibleFile, filepath.Base(path), err)
	}
	return res, nil
}

// Filter copies the numeric rows of src whose first column lies in
// [rangeMin, rangeMax] to dst under a wavenumber,intensity header. Rows whose
// first two fields are not both numbers (instrument headers, metadata, blank
// lines) are dropped. Fields beyond the second are discarded.
func Filter(src io.Reader, dst io.Writer, rangeMin, rangeMax float64) (FileResult, error) {
	r := csv.NewReader(src)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.ReuseRecord = true

	cw := csv.NewWriter(dst)
	if err := cw.Write(Header); err != nil {
		return FileResult{}, err
	}

	var res FileResult
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, err
		}
		if len(rec) < 2 {
			res.Dropped++
			continue
		}
		wn, err1 := strconv.ParseFloat(strings.TrimSpace(rec[0]), 64)
		_, err2 := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
		if err1 != nil || err2 != nil || wn < rangeMin || wn > rangeMax {
			res.Dropped++
			continue
		}
		if err := cw.Write(rec[:2]); err != nil {
			return res, err
		}
		res.Kept++
	}

	cw.Flush()
	return res, cw.Error()
}
