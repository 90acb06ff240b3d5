package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aria-lang/census-go/internal/calibration/calibtest"
	"github.com/aria-lang/census-go/internal/errs"
	"github.com/aria-lang/census-go/internal/sequence/seqtest"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := rootCommand(&stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{errs.Configf("threads", 0, "must be positive"), 2},
		{errs.Input("x", errors.New("missing")), 3},
		{errs.Estimationf("empty"), 4},
		{errs.Search("run", errors.New("boom")), 5},
		{fmt.Errorf("wrapped: %w", errs.Estimationf("empty")), 4},
		{errors.New("other"), 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, exitCode(tt.err), "%v", tt.err)
	}
}

func TestReadLengths(t *testing.T) {
	data := calibtest.Write(t, []int{150, 50, 100}, calibtest.Entries(1, 100, 1, 1), nil)
	out, err := execute(t, "read-lengths", "--data", data)
	require.NoError(t, err)
	assert.Equal(t, "50\n100\n150\n", out)
}

func TestRunWithHitsFile(t *testing.T) {
	data := calibtest.Write(t, []int{100}, calibtest.Entries(2, 100, 40, 100), nil)
	input := seqtest.WriteFASTQ(t, "reads.fq", seqtest.Random(1, 10, 100, 'I'))

	var b strings.Builder
	for i := 1; i <= 10; i++ {
		fmt.Fprintf(&b, "%d\tfam%02d\t90\t30\t0\t0\t1\t30\t1\t30\t1e-9\t60\n", i, (i-1)%2+1)
	}
	hits := filepath.Join(t.TempDir(), "hits.m8")
	require.NoError(t, os.WriteFile(hits, []byte(b.String()), 0o644))

	output := filepath.Join(t.TempDir(), "out.txt")
	out, err := execute(t, "--data", data, "--hits", hits, "-u", "5", "--seed", "3", input, output)
	require.NoError(t, err)
	assert.Equal(t, "200.00 bp\n", out)

	report, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "reads_sampled:\t10\ntrimmed_length:\t100\naverage_genome_size:\t200\n", string(report))
}

func TestRunConfigurationError(t *testing.T) {
	data := calibtest.Write(t, []int{100}, calibtest.Entries(2, 100, 40, 100), nil)
	input := seqtest.WriteFASTQ(t, "reads.fq", seqtest.Random(1, 10, 100, 'I'))
	output := filepath.Join(t.TempDir(), "out.txt")

	_, err := execute(t, "--data", data, "-n", "0", input, output)
	assert.Equal(t, exitConfiguration, exitCode(err))

	_, err = execute(t, "--data", data, "-u", "150", input, output)
	assert.Equal(t, exitConfiguration, exitCode(err))

	_, err = execute(t, "--data", data, "-l", "90", input, output)
	assert.Equal(t, exitConfiguration, exitCode(err))
}

func TestConfigFileWithOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "census.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sample_size: 500\nthreads: 4\ndata_dir: /data\n"), 0o644))

	cmd := rootCommand(&bytes.Buffer{}, &bytes.Buffer{})
	require.NoError(t, cmd.ParseFlags([]string{"--config", path, "-t", "2", "-u", "10"}))

	var o options
	o.configFile = path
	o.threads, _ = cmd.Flags().GetInt("threads")
	o.maxUnknown, _ = cmd.Flags().GetFloat64("max-unknown")

	cfg, err := o.config(cmd, "in.fq", "out.txt")
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.SampleSize)
	assert.Equal(t, 2, cfg.Threads)
	assert.InDelta(t, 0.1, cfg.MaxUnknown, 1e-12)
	assert.Equal(t, filepath.Join("/data", "seqs"), cfg.Database)
}
