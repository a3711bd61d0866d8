// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package preprocess

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/openspecy-automation/pkg/types"
)

const instrumentCSV = `Instrument,Nicolet iS50
Sample,filter-07
cm-1,%T
4500.2,91.1
3999.5,90.2
2000,45.5,extra
1200.25,"60.1"
not,a number

650,12.0
649.9,11.0
`

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func readArchive(t *testing.T, path string) map[string]string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()

	out := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		out[f.Name] = string(data)
	}
	return out
}

func TestFilter(t *testing.T) {
	var out bytes.Buffer
	res, err := Filter(strings.NewReader(instrumentCSV), &out, 650, 4000)
	require.NoError(t, err)

	assert.Equal(t, "wavenumber,intensity\n3999.5,90.2\n2000,45.5\n1200.25,60.1\n650,12.0\n", out.String())
	assert.Equal(t, 4, res.Kept)
	assert.Equal(t, 6, res.Dropped)
}

func TestFilter_CropsRange(t *testing.T) {
	var out bytes.Buffer
	res, err := Filter(strings.NewReader(instrumentCSV), &out, 1000, 2500)
	require.NoError(t, err)

	assert.Equal(t, "wavenumber,intensity\n2000,45.5\n1200.25,60.1\n", out.String())
	assert.Equal(t, 2, res.Kept)
}

func TestRun(t *testing.T) {
	root := t.TempDir()
	in := filepath.Join(root, "spectra")
	require.NoError(t, os.MkdirAll(in, 0o755))
	writeFile(t, in, "a.csv", instrumentCSV)
	writeFile(t, in, "b.CSV", "1000,1\n5000,2\n")

	var log bytes.Buffer
	res, err := Run(types.PreprocessConfig{
		InputDir:  in,
		OutputDir: filepath.Join(root, "out"),
		RangeMin:  650,
		RangeMax:  4000,
	}, &log)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "out", "spectra.zip"), res.ArchivePath)
	require.Len(t, res.Files, 2)
	assert.Equal(t, 5, res.Rows())

	files := readArchive(t, res.ArchivePath)
	assert.Equal(t, "wavenumber,intensity\n1000,1\n", files["b.CSV"])
	assert.Contains(t, files["a.csv"], "3999.5,90.2")

	original, err := os.ReadFile(filepath.Join(in, "a.csv"))
	require.NoError(t, err)
	assert.Equal(t, instrumentCSV, string(original), "input files must not be modified")

	assert.Contains(t, log.String(), "Processed file: a.csv")
	assert.Contains(t, log.String(), "Files compressed to")
}

func TestRun_DefaultOutputDir(t *testing.T) {
	root := t.TempDir()
	in := filepath.Join(root, "batch1")
	require.NoError(t, os.MkdirAll(in, 0o755))
	writeFile(t, in, "a.csv", "700,1\n")

	res, err := Run(types.PreprocessConfig{InputDir: in, RangeMin: 650, RangeMax: 4000}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "batch1.zip"), res.ArchivePath)
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T, dir string)
		cfg     func(dir string) types.PreprocessConfig
		wantIs  error
		wantMsg string
	}{
		{
			name: "non-csv file aborts the batch",
			setup: func(t *testing.T, dir string) {
				writeFile(t, dir, "a.csv", "700,1\n")
				writeFile(t, dir, "notes.txt", "hello")
			},
			wantIs:  types.ErrIncompatibleFile,
			wantMsg: "notes.txt",
		},
		{
			name: "subdirectory aborts the batch",
			setup: func(t *testing.T, dir string) {
				writeFile(t, dir, "a.csv", "700,1\n")
				require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0o755))
			},
			wantIs: types.ErrIncompatibleFile,
		},
		{
			name:    "empty folder",
			setup:   func(t *testing.T, dir string) {},
			wantIs:  types.ErrIncompatibleFile,
			wantMsg: "no .csv files",
		},
		{
			name: "inverted range",
			setup: func(t *testing.T, dir string) {
				writeFile(t, dir, "a.csv", "700,1\n")
			},
			cfg: func(dir string) types.PreprocessConfig {
				return types.PreprocessConfig{InputDir: dir, RangeMin: 4000, RangeMax: 650}
			},
			wantMsg: "greater than",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			in := filepath.Join(root, "spectra")
			require.NoError(t, os.MkdirAll(in, 0o755))
			tt.setup(t, in)

			cfg := types.PreprocessConfig{InputDir: in, OutputDir: root, RangeMin: 650, RangeMax: 4000}
			if tt.cfg != nil {
				cfg = tt.cfg(in)
				cfg.OutputDir = root
			}

			_, err := Run(cfg, io.Discard)
			require.Error(t, err)
			if tt.wantIs != nil {
				assert.ErrorIs(t, err, tt.wantIs)
			}
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}

			_, statErr := os.Stat(filepath.Join(root, "spectra.zip"))
			assert.True(t, os.IsNotExist(statErr), "no archive should be written")
		})
	}
}
