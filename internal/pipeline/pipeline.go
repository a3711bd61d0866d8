// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline chains preprocessing, matching, report export and run
// history into one batch run over a folder of spectra.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/pdiddy/openspecy-automation/internal/classify"
	"github.com/pdiddy/openspecy-automation/internal/history"
	"github.com/pdiddy/openspecy-automation/internal/matcher"
	"github.com/pdiddy/openspecy-automation/internal/preprocess"
	"github.com/pdiddy/openspecy-automation/internal/report"
	"github.com/pdiddy/openspecy-automation/pkg/types"
)

// Recorder stores a finished run. *history.Store implements it.
type Recorder interface {
	Record(ctx context.Context, run history.Run, rows []classify.Result) (history.Run, error)
}

// Result summarises a pipeline run.
type Result struct {
	Preprocess preprocess.Result
	Export     report.Result
	Run        history.Run
	Elapsed    time.Duration
}

// Run preprocesses cfg.Preprocess.InputDir, matches the archive with m,
// writes the report workbook to cfg.Report.OutputPath and, when rec is not
// nil, records the run. Progress lines go to w.
func Run(ctx context.Context, cfg types.PipelineConfig, m matcher.Matcher, rec Recorder, w io.Writer) (Result, error) {
	start := time.Now()
	if cfg.Report.OutputPath == "" {
		return Result{}, fmt.Errorf("no output path configured")
	}

	fmt.Fprintf(w, "Preprocessing %s (%g-%g cm-1)\n",
		cfg.Preprocess.InputDir, cfg.Preprocess.RangeMin, cfg.Preprocess.RangeMax)
	pre, err := preprocess.Run(cfg.Preprocess, w)
	if err != nil {
		return Result{}, fmt.Errorf("preprocessing: %w", err)
	}
	fmt.Fprintf(w, "%d files, %s rows, archive %s\n",
		len(pre.Files), humanize.Comma(int64(pre.Rows())), fileSize(pre.ArchivePath))

	table, err := m.Match(ctx, pre.ArchivePath)
	if err != nil {
		return Result{}, fmt.Errorf("matching: %w", err)
	}
	fmt.Fprintf(w, "Matcher returned %s rows\n", humanize.Comma(int64(table.Len())))

	exp := report.Exporter{TopN: cfg.Report.TopN, ToolVersion: cfg.Report.ToolVersion}
	out, err := exp.Export(table, cfg.Report.OutputPath, w)
	if err != nil {
		return Result{}, fmt.Errorf("writing report: %w", err)
	}
	fmt.Fprintf(w, "%d spectra summarised, workbook %s\n",
		out.Report.Files(), humanize.Bytes(uint64(out.Bytes)))

	res := Result{Preprocess: pre, Export: out}

	if rec != nil {
		topN := cfg.Report.TopN
		if topN <= 0 {
			topN = types.DefaultTopN
		}
		run, err := rec.Record(ctx, history.Run{
			OutputPath:  absPath(cfg.Report.OutputPath),
			ToolVersion: cfg.Report.ToolVersion,
			TopN:        topN,
			FileCount:   out.Report.Files(),
		}, out.Report.UpdatedSummary)
		if err != nil {
			return res, fmt.Errorf("recording run history: %w", err)
		}
		fmt.Fprintf(w, "Run recorded as %s\n", run.ID)
		res.Run = run
	}

	res.Elapsed = time.Since(start)
	fmt.Fprintf(w, "Done in %s\n", res.Elapsed.Round(time.Millisecond))
	return res, nil
}

// OutputPath joins dir and name, adding .xlsx when name has no extension.
func OutputPath(dir, name string) string {
	if filepath.Ext(name) == "" {
		name += ".xlsx"
	}
	return filepath.Join(dir, name)
}

func fileSize(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return "unknown size"
	}
	return humanize.Bytes(uint64(info.Size()))
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
