// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

const defaultMaxResults = 1000

// QueryOptions filters Summaries. Zero-valued fields do not filter.
type QueryOptions struct {
	// RunID restricts results to one run (exact ID).
	RunID string

	// FileName restricts results to one spectrum file.
	FileName string

	// Note matches summaries whose matches_checked contains this text,
	// e.g. "empty wells" or "third match".
	Note string

	// MaxResults limits result count. Zero uses 1000.
	MaxResults int
}

// Summary is one stored updated summary row.
type Summary struct {
	RunID            string   `json:"run_id" yaml:"run_id"`
	FileName         string   `json:"file_name" yaml:"file_name"`
	SpectrumIdentity string   `json:"spectrum_identity" yaml:"spectrum_identity"`
	MaterialClass    string   `json:"material_class" yaml:"material_class"`
	MatchVal         float64  `json:"match_val" yaml:"match_val"`
	SN               *float64 `json:"sn" yaml:"sn"`
	PlasticOrNot     string   `json:"plastic_or_not" yaml:"plastic_or_not"`
	MatchesChecked   string   `json:"matches_checked" yaml:"matches_checked"`
}

// Summaries returns stored summary rows ordered by run time (newest first),
// then insertion order within a run.
func (s *Store) Summaries(ctx context.Context, opts QueryOptions) ([]Summary, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	var (
		qb   strings.Builder
		args []any
	)
	qb.WriteString(
		`SELECT s.run_id, s.file_name, s.spectrum_identity, s.material_class,
			s.match_val, s.sn, s.plastic_or_not, s.matches_checked
		FROM summaries s
		JOIN runs r ON r.id = s.run_id
		WHERE 1=1`)

	if opts.RunID != "" {
		qb.WriteString(` AND s.run_id = ?`)
		args = append(args, opts.RunID)
	}
	if opts.FileName != "" {
		qb.WriteString(` AND s.file_name = ?`)
		args = append(args, opts.FileName)
	}
	if opts.Note != "" {
		qb.WriteString(` AND instr(s.matches_checked, ?) > 0`)
		args = append(args, opts.Note)
	}

	qb.WriteString(` ORDER BY r.created_at DESC, s.rowid LIMIT ?`)
	args = append(args, maxResults)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying summaries: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			sum             Summary
			identity, class sql.NullString
			flag, note      sql.NullString
			sn              sql.NullFloat64
		)
		if err := rows.Scan(&sum.RunID, &sum.FileName, &identity, &class,
			&sum.MatchVal, &sn, &flag, &note); err != nil {
			return nil, fmt.Errorf("scanning summary: %w", err)
		}
		sum.SpectrumIdentity = identity.String
		sum.MaterialClass = class.String
		sum.PlasticOrNot = flag.String
		sum.MatchesChecked = note.String
		if sn.Valid {
			v := sn.Float64
			sum.SN = &v
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}
