// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package history

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"
)

// ExportRun is a run with its summary rows.
type ExportRun struct {
	Run       `yaml:",inline"`
	Summaries []Summary `json:"summaries" yaml:"summaries"`
}

const exportLimit = 1000000

// ExportYAML writes the matching runs to <dir>/export.yaml and returns the path.
// It supports the same filters as Summaries.
func (s *Store) ExportYAML(ctx context.Context, opts QueryOptions) (string, error) {
	runs, err := s.exportRuns(ctx, opts)
	if err != nil {
		return "", err
	}
	data, err := yaml.Marshal(runs)
	if err != nil {
		return "", fmt.Errorf("marshaling YAML: %w", err)
	}
	path := filepath.Join(s.dir, "export.yaml")
	return path, os.WriteFile(path, data, 0o644)
}

// ExportJSON writes the matching runs to <dir>/export.json and returns the path.
// It supports the same filters as Summaries.
func (s *Store) ExportJSON(ctx context.Context, opts QueryOptions) (string, error) {
	runs, err := s.exportRuns(ctx, opts)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(runs, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling JSON: %w", err)
	}
	path := filepath.Join(s.dir, "export.json")
	return path, os.WriteFile(path, data, 0o644)
}

// exportRuns groups matching summaries under their runs, newest run first.
// Runs with no matching summaries are left out.
func (s *Store) exportRuns(ctx context.Context, opts QueryOptions) ([]ExportRun, error) {
	opts.MaxResults = exportLimit
	sums, err := s.Summaries(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("querying for export: %w", err)
	}

	var (
		out   []ExportRun
		index = map[string]int{}
	)
	for _, sum := range sums {
		i, ok := index[sum.RunID]
		if !ok {
			run, err := s.GetRun(ctx, sum.RunID)
			if err != nil {
				return nil, err
			}
			i = len(out)
			index[sum.RunID] = i
			out = append(out, ExportRun{Run: run})
		}
		out[i].Summaries = append(out[i].Summaries, sum)
	}
	return out, nil
}
