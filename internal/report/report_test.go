package report

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aria-lang/census-go/internal/errs"
	"github.com/aria-lang/census-go/internal/predict"
)

func sample() *Report {
	return &Report{ReadsSampled: 1000, TrimmedLength: 100, AverageGenomeSize: 2512345.75}
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sample()))
	assert.Equal(t, "reads_sampled:\t1000\ntrimmed_length:\t100\naverage_genome_size:\t2512345.75\n", buf.String())
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "out.txt")
	require.NoError(t, WriteFile(path, sample()))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "reads_sampled:\t1000\n")

	file := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	tests := []struct {
		name string
		path string
	}{
		{"missing parent", filepath.Join(dir, "missing", "out.txt")},
		{"parent is a file", filepath.Join(file, "out.txt")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := WriteFile(tt.path, sample())
			var inErr *errs.InputError
			assert.ErrorAs(t, err, &inErr)
			assert.NoDirExists(t, filepath.Dir(tt.path))
		})
	}
}

func TestFromEstimateJSON(t *testing.T) {
	est := &predict.Estimate{
		AGS:        3e6,
		ReadCount:  10,
		ReadLength: 150,
		Families: []predict.FamilyEstimate{
			{Family: "fam01", Size: 3e6, Weight: 1, Status: predict.Included},
			{Family: "fam02", Status: predict.ZeroCount},
		},
	}
	data, err := json.Marshal(FromEstimate(est))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"trimmed_length":150`)
	assert.Contains(t, string(data), `"status":"zero-count"`)
}

func TestArchive(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "reads.fa")
	content := bytes.Repeat([]byte(">1\nACGTACGT\n"), 1000)
	require.NoError(t, os.WriteFile(src, content, 0o644))

	dst := filepath.Join(dir, "reads.fa.gz")
	require.NoError(t, Archive(src, dst, 2))

	f, err := os.Open(dst)
	require.NoError(t, err)
	defer f.Close()
	zr, err := gzip.NewReader(f)
	require.NoError(t, err)
	got, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, content, got)

	err = Archive(filepath.Join(dir, "nope"), dst, 1)
	var inErr *errs.InputError
	assert.ErrorAs(t, err, &inErr)
}

func TestArchiveCompressedSource(t *testing.T) {
	dir := t.TempDir()
	content := bytes.Repeat([]byte("r1\tfam01\t90\t100\t0\t0\t1\t100\t1\t100\t1e-10\t80\n"), 200)

	src := filepath.Join(dir, "hits.m8.gz")
	f, err := os.Create(src)
	require.NoError(t, err)
	zw := gzip.NewWriter(f)
	_, err = zw.Write(content)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	dst := filepath.Join(dir, "kept.m8.gz")
	require.NoError(t, Archive(src, dst, 1))

	out, err := os.Open(dst)
	require.NoError(t, err)
	defer out.Close()
	zr, err := gzip.NewReader(out)
	require.NoError(t, err)
	got, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}
