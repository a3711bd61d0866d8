// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package history

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/openspecy-automation/internal/classify"
	"github.com/pdiddy/openspecy-automation/pkg/types"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(types.HistoryConfig{Enabled: true, Dir: filepath.Join(t.TempDir(), "history")})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func result(file, identity string, flag types.PolymerFlag, val, sn float64, note string) classify.Result {
	return classify.Result{
		MatchRow: types.MatchRow{
			FileID:           file,
			SpectrumIdentity: identity,
			MaterialClass:    "class",
			MatchValue:       val,
			SignalQuality:    sn,
			Polymer:          flag,
		},
		Note: note,
	}
}

func sampleRows() []classify.Result {
	return []classify.Result{
		result("a.csv", "polyethylene", types.Plastic, 0.91, 25, ""),
		result("b.csv", "nylon", types.Plastic, 0.62, 11, "third match"),
		result("c.csv", types.EmptyWell, types.NotPlastic, 0.8, math.NaN(), classify.NoteAllEmptyWells),
	}
}

func TestNewStore_CreatesDatabase(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "history")
	s, err := NewStore(types.HistoryConfig{Dir: dir})
	require.NoError(t, err)
	defer s.Close()

	assert.FileExists(t, filepath.Join(dir, dbFile))
	assert.Equal(t, dir, s.Dir())

	// Reopening keeps the schema.
	require.NoError(t, s.Close())
	s2, err := NewStore(types.HistoryConfig{Dir: dir})
	require.NoError(t, err)
	require.NoError(t, s2.Close())
}

func TestRecord(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	run, err := s.Record(ctx, Run{OutputPath: "out.xlsx", ToolVersion: "OpenSpecy Automation 0.9.3", TopN: 5}, sampleRows())
	require.NoError(t, err)
	assert.Len(t, run.ID, 36)
	assert.False(t, run.CreatedAt.IsZero())
	assert.Equal(t, 3, run.FileCount)

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, "out.xlsx", got.OutputPath)
	assert.Equal(t, 5, got.TopN)
	assert.True(t, run.CreatedAt.Equal(got.CreatedAt))

	sums, err := s.Summaries(ctx, QueryOptions{RunID: run.ID})
	require.NoError(t, err)
	require.Len(t, sums, 3)
	assert.Equal(t, "a.csv", sums[0].FileName)
	require.NotNil(t, sums[0].SN)
	assert.Equal(t, 25.0, *sums[0].SN)
	assert.Equal(t, "third match", sums[1].MatchesChecked)
	assert.Nil(t, sums[2].SN, "NA sn is stored as NULL")
	assert.Equal(t, "not plastic", sums[2].PlasticOrNot)
}

func TestListRuns(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, out := range []string{"first.xlsx", "second.xlsx", "third.xlsx"} {
		_, err := s.Record(ctx, Run{OutputPath: out, TopN: 5, CreatedAt: base.Add(time.Duration(i) * time.Hour)}, sampleRows()[:1])
		require.NoError(t, err)
	}

	runs, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "third.xlsx", runs[0].OutputPath, "newest first")
	assert.Equal(t, "first.xlsx", runs[2].OutputPath)

	runs, err = s.ListRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestGetRun(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	for _, id := range []string{"aaaa1111", "aaaa2222", "bbbb3333"} {
		_, err := s.Record(ctx, Run{ID: id, OutputPath: id + ".xlsx", TopN: 5}, nil)
		require.NoError(t, err)
	}

	tests := []struct {
		name    string
		prefix  string
		wantID  string
		wantErr string
	}{
		{name: "full id", prefix: "aaaa2222", wantID: "aaaa2222"},
		{name: "unique prefix", prefix: "bb", wantID: "bbbb3333"},
		{name: "ambiguous prefix", prefix: "aaaa", wantErr: "ambiguous"},
		{name: "unknown", prefix: "cccc", wantErr: "run not found"},
		{name: "empty", prefix: "", wantErr: "run not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run, err := s.GetRun(ctx, tt.prefix)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, run.ID)
		})
	}
}

func TestRecord_DuplicateIDRollsBack(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	_, err := s.Record(ctx, Run{ID: "fixed", OutputPath: "a.xlsx", TopN: 5}, sampleRows())
	require.NoError(t, err)
	_, err = s.Record(ctx, Run{ID: "fixed", OutputPath: "b.xlsx", TopN: 5}, sampleRows())
	require.Error(t, err)

	sums, err := s.Summaries(ctx, QueryOptions{RunID: "fixed"})
	require.NoError(t, err)
	assert.Len(t, sums, 3, "failed record must not add rows")
}

func TestSummaries_Filters(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	r1, err := s.Record(ctx, Run{OutputPath: "one.xlsx", TopN: 5}, sampleRows())
	require.NoError(t, err)
	_, err = s.Record(ctx, Run{OutputPath: "two.xlsx", TopN: 5}, sampleRows())
	require.NoError(t, err)

	tests := []struct {
		name string
		opts QueryOptions
		want int
	}{
		{name: "no filter", opts: QueryOptions{}, want: 6},
		{name: "by run", opts: QueryOptions{RunID: r1.ID}, want: 3},
		{name: "by file", opts: QueryOptions{FileName: "b.csv"}, want: 2},
		{name: "by note text", opts: QueryOptions{Note: "empty wells"}, want: 2},
		{name: "run and note", opts: QueryOptions{RunID: r1.ID, Note: "third"}, want: 1},
		{name: "limit", opts: QueryOptions{MaxResults: 4}, want: 4},
		{name: "no match", opts: QueryOptions{FileName: "z.csv"}, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sums, err := s.Summaries(ctx, tt.opts)
			require.NoError(t, err)
			assert.Len(t, sums, tt.want)
		})
	}
}

func TestExportYAML(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	run, err := s.Record(ctx, Run{OutputPath: "out.xlsx", ToolVersion: "v", TopN: 5}, sampleRows())
	require.NoError(t, err)

	path, err := s.ExportYAML(ctx, QueryOptions{})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.Dir(), "export.yaml"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var runs []ExportRun
	require.NoError(t, yaml.Unmarshal(data, &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
	assert.Equal(t, "out.xlsx", runs[0].OutputPath)
	require.Len(t, runs[0].Summaries, 3)
	assert.Nil(t, runs[0].Summaries[2].SN)
}

func TestExportJSON_Filtered(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	_, err := s.Record(ctx, Run{OutputPath: "one.xlsx", TopN: 5}, sampleRows())
	require.NoError(t, err)
	_, err = s.Record(ctx, Run{OutputPath: "two.xlsx", TopN: 5}, sampleRows()[:1])
	require.NoError(t, err)

	path, err := s.ExportJSON(ctx, QueryOptions{Note: "third match"})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var runs []ExportRun
	require.NoError(t, json.Unmarshal(data, &runs))
	require.Len(t, runs, 1, "only the run with a matching row is exported")
	assert.Equal(t, "one.xlsx", runs[0].OutputPath)
	require.Len(t, runs[0].Summaries, 1)
	assert.Equal(t, "b.csv", runs[0].Summaries[0].FileName)
}
