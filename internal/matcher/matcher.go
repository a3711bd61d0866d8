// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package matcher runs OpenSpecy library matching through R and parses the
// resulting match table.
package matcher

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pdiddy/openspecy-automation/internal/container"
	"github.com/pdiddy/openspecy-automation/pkg/types"
)

const (
	scriptName  = "match.R"
	archiveName = "spectra.zip"
	outputName  = "matches.csv"
)

// Defaults for MatcherConfig fields left empty.
const (
	DefaultImage        = "openspecy:latest"
	DefaultLibrary      = "derivative"
	DefaultSpectrumType = "ftir"
)

// Matcher turns an archive of processed spectra into a match table.
type Matcher interface {
	// Match runs library matching over the spectra in archivePath.
	Match(ctx context.Context, archivePath string) (*types.MatchTable, error)
}

// RMatcher runs the OpenSpecy R script on a container.Runtime. Each call
// gets a scratch directory holding the archive, the rendered script, and the
// CSV the script writes.
type RMatcher struct {
	cfg     types.MatcherConfig
	runtime container.Runtime
	w       io.Writer
}

// New creates an RMatcher. For container runtimes it verifies that the
// configured image exists locally before returning.
func New(cfg types.MatcherConfig, rt container.Runtime, w io.Writer) (*RMatcher, error) {
	cfg = WithDefaults(cfg)
	if err := rt.ImageExists(cfg.Image); err != nil {
		return nil, fmt.Errorf("%w: OpenSpecy image not available in %s: %w", types.ErrExternalService, rt.Name(), err)
	}
	return &RMatcher{cfg: cfg, runtime: rt, w: w}, nil
}

// WithDefaults fills empty MatcherConfig fields.
func WithDefaults(cfg types.MatcherConfig) types.MatcherConfig {
	if cfg.Image == "" {
		cfg.Image = DefaultImage
	}
	if cfg.Library == "" {
		cfg.Library = DefaultLibrary
	}
	if cfg.SpectrumType == "" {
		cfg.SpectrumType = DefaultSpectrumType
	}
	if cfg.TopN <= 0 {
		cfg.TopN = types.DefaultTopN
	}
	if cfg.RangeMin == 0 && cfg.RangeMax == 0 {
		cfg.RangeMin, cfg.RangeMax = types.DefaultRangeMin, types.DefaultRangeMax
	}
	return cfg
}

// Match copies the archive into a scratch directory, runs the script, and
// parses its output. Any failure of the R step is reported as
// types.ErrExternalService; no partial table is returned.
func (m *RMatcher) Match(ctx context.Context, archivePath string) (*types.MatchTable, error) {
	workDir, err := os.MkdirTemp(m.cfg.WorkDir, "openspecy-")
	if err != nil {
		return nil, fmt.Errorf("creating work directory: %w", err)
	}
	if m.cfg.KeepWorkDir {
		fmt.Fprintf(m.w, "Work directory: %s\n", workDir)
	} else {
		defer os.RemoveAll(workDir)
	}

	if err := copyFile(archivePath, filepath.Join(workDir, archiveName)); err != nil {
		return nil, err
	}
	if err := m.writeScript(filepath.Join(workDir, scriptName)); err != nil {
		return nil, err
	}

	fmt.Fprintf(m.w, "Executing R script (%s)...\n", m.runtime.Name())
	err = m.runtime.Run(ctx, container.RunSpec{
		Image:   m.cfg.Image,
		WorkDir: workDir,
		Args:    []string{scriptName},
		Stdout:  m.w,
		Stderr:  m.w,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrExternalService, err)
	}
	fmt.Fprintln(m.w, "Script execution complete.")

	f, err := os.Open(filepath.Join(workDir, outputName))
	if err != nil {
		return nil, fmt.Errorf("%w: R script produced no match table: %w", types.ErrExternalService, err)
	}
	defer f.Close()

	return ReadTable(f)
}

func (m *RMatcher) writeScript(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating R script: %w", err)
	}
	if err := renderScript(f, scriptParams{
		Archive:      archiveName,
		Output:       outputName,
		Library:      m.cfg.Library,
		SpectrumType: m.cfg.SpectrumType,
		FetchLibrary: m.cfg.FetchLibrary,
		TopN:         m.cfg.TopN,
		RangeMin:     m.cfg.RangeMin,
		RangeMax:     m.cfg.RangeMax,
	}); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening archive %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("staging archive: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("staging archive: %w", err)
	}
	return out.Close()
}

// ReadTableFile parses a match CSV from disk.
func ReadTableFile(path string) (*types.MatchTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening match table: %w", err)
	}
	defer f.Close()
	return ReadTable(f)
}
