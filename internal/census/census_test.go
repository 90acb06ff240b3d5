package census

import (
	"bufio"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aria-lang/census-go/internal/calibration/calibtest"
	"github.com/aria-lang/census-go/internal/config"
	"github.com/aria-lang/census-go/internal/errs"
	"github.com/aria-lang/census-go/internal/predict"
	"github.com/aria-lang/census-go/internal/quality"
	"github.com/aria-lang/census-go/internal/search"
	"github.com/aria-lang/census-go/internal/sequence/seqtest"
)

const families = 30

// roundRobin assigns read i to family i mod families with a fixed score.
type roundRobin struct {
	score   float64
	calls   int
	sampled int
	extra   []search.Hit
	err     error
}

func (a *roundRobin) Search(_ context.Context, readsPath, _ string) ([]search.Hit, error) {
	a.calls++
	if a.err != nil {
		return nil, a.err
	}
	f, err := os.Open(readsPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var hits []search.Hit
	sc := bufio.NewScanner(f)
	i := 0
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, ">") {
			continue
		}
		fam := fmt.Sprintf("fam%02d", i%families+1)
		hits = append(hits, search.Hit{ReadID: line[1:], Target: fam, Score: a.score, AlignLength: 30})
		i++
	}
	a.sampled = i
	return append(hits, a.extra...), sc.Err()
}

type fixture struct {
	cfg     *config.Config
	adapter *roundRobin
	outDir  string
}

func newFixture(t *testing.T, input string) *fixture {
	t.Helper()
	data := calibtest.Write(t, []int{50, 100, 150}, calibtest.Entries(families, 100, 40, 1000), nil)
	outDir := t.TempDir()

	cfg := config.Default()
	cfg.Input = input
	cfg.Output = filepath.Join(outDir, "result.txt")
	cfg.DataDir = data
	cfg.Database = "unused"
	cfg.SampleSize = 1000
	cfg.Seed = 11
	return &fixture{cfg: cfg, adapter: &roundRobin{score: 60}, outDir: outDir}
}

func (f *fixture) pipeline() *Pipeline {
	return &Pipeline{
		Config:  f.cfg,
		Adapter: f.adapter,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestRunEndToEnd(t *testing.T) {
	input := seqtest.WriteFASTQ(t, "reads.fq", seqtest.Random(1, 2000, 150, 'I'))
	f := newFixture(t, input)
	f.cfg.ReadLength = 100

	res, err := f.pipeline().Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1000, res.Report.ReadsSampled)
	assert.Equal(t, 100, res.Report.TrimmedLength)
	assert.Equal(t, 1000, f.adapter.sampled)
	assert.Equal(t, 1000, res.Classify.Classified)
	assert.Greater(t, res.Report.AverageGenomeSize, 0.0)

	// 1000 reads over 30 families: 33 or 34 hits each, so every estimate is
	// 1000 * 1000 / 33 or / 34.
	assert.InDelta(t, 1000.0*1000/33.33, res.Report.AverageGenomeSize, 500)

	data, err := os.ReadFile(f.cfg.Output)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "reads_sampled:\t1000\ntrimmed_length:\t100\naverage_genome_size:\t"))

	assertNoRunDirs(t, f.outDir)
}

func TestRunHighQualitySangerFilter(t *testing.T) {
	input := seqtest.WriteFASTQ(t, "reads.fq", seqtest.Random(12, 400, 100, 'I'))

	tests := []struct {
		name    string
		minMean float64
		minBase float64
	}{
		{"mean 30", 30, quality.NoFilter},
		{"base 30", quality.NoFilter, 30},
		{"both 40", 40, 40},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, input)
			f.cfg.MinMeanQuality = tt.minMean
			f.cfg.MinBaseQuality = tt.minBase

			res, err := f.pipeline().Run(context.Background())
			require.NoError(t, err)
			assert.Equal(t, quality.Sanger, res.Encoding)
			assert.Zero(t, res.Normalize.LowQuality)
			assert.Equal(t, 400, res.Report.ReadsSampled)
		})
	}
}

func TestRunDetectsReadLength(t *testing.T) {
	input := seqtest.WriteFASTQ(t, "reads.fq", seqtest.Random(2, 300, 120, 'I'))
	f := newFixture(t, input)

	res, err := f.pipeline().Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 100, res.ReadLength)
	assert.Equal(t, 300, res.Report.ReadsSampled)
}

func TestRunAllReadsTooShort(t *testing.T) {
	input := seqtest.WriteFASTA(t, "short.fa", seqtest.Random(3, 50, 80, 'I'))
	f := newFixture(t, input)
	f.cfg.ReadLength = 100

	_, err := f.pipeline().Run(context.Background())
	var estErr *errs.EstimationError
	require.ErrorAs(t, err, &estErr)
	assert.Zero(t, f.adapter.calls, "search must not run without reads")

	_, statErr := os.Stat(f.cfg.Output)
	assert.True(t, os.IsNotExist(statErr), "no report on failure")
	assertNoRunDirs(t, f.outDir)
}

func TestRunDuplicates(t *testing.T) {
	dup := seqtest.Random(4, 1, 100, 'I')[0]
	var recs []seqtest.Record
	for i := 0; i < 10; i++ {
		recs = append(recs, dup)
	}
	input := seqtest.WriteFASTQ(t, "dups.fq", recs)
	f := newFixture(t, input)
	f.cfg.ReadLength = 100
	f.cfg.FilterDuplicates = true
	f.cfg.OutlierMADs = 0

	res, err := f.pipeline().Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Report.ReadsSampled)
	assert.Equal(t, 9, res.Normalize.Duplicates)
}

func TestRunSearchErrors(t *testing.T) {
	input := seqtest.WriteFASTQ(t, "reads.fq", seqtest.Random(5, 100, 100, 'I'))

	t.Run("adapter failure", func(t *testing.T) {
		f := newFixture(t, input)
		f.adapter.err = errors.New("database not found")
		_, err := f.pipeline().Run(context.Background())
		var searchErr *errs.SearchAdapterError
		require.ErrorAs(t, err, &searchErr)
		assert.Contains(t, err.Error(), "database not found")
		assertNoRunDirs(t, f.outDir)
	})

	t.Run("hit for unknown read", func(t *testing.T) {
		f := newFixture(t, input)
		f.adapter.extra = []search.Hit{{ReadID: "999999", Target: "fam01", Score: 90}}
		_, err := f.pipeline().Run(context.Background())
		var searchErr *errs.SearchAdapterError
		require.ErrorAs(t, err, &searchErr)
		assert.Equal(t, "validate", searchErr.Op)
	})
}

func TestRunBelowThreshold(t *testing.T) {
	input := seqtest.WriteFASTQ(t, "reads.fq", seqtest.Random(6, 100, 100, 'I'))
	f := newFixture(t, input)
	f.adapter.score = 10

	_, err := f.pipeline().Run(context.Background())
	var estErr *errs.EstimationError
	assert.ErrorAs(t, err, &estErr)
}

func TestRunConfigurationErrors(t *testing.T) {
	input := seqtest.WriteFASTA(t, "reads.fa", seqtest.Random(7, 10, 100, 'I'))

	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"unsupported read length", func(c *config.Config) { c.ReadLength = 75 }},
		{"zero sample size", func(c *config.Config) { c.SampleSize = 0 }},
		{"zero threads", func(c *config.Config) { c.Threads = 0 }},
		{"quality options on fasta", func(c *config.Config) { c.MinMeanQuality = 20 }},
		{"read length above input", func(c *config.Config) {
			c.DataDir = calibtest.Write(t, []int{150}, calibtest.Entries(3, 150, 40, 1), nil)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, input)
			tt.mutate(f.cfg)
			_, err := f.pipeline().Run(context.Background())
			var cfgErr *errs.ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Zero(t, f.adapter.calls)
		})
	}
}

func TestRunUnwritableOutput(t *testing.T) {
	input := seqtest.WriteFASTQ(t, "reads.fq", seqtest.Random(8, 10, 100, 'I'))

	tests := []struct {
		name     string
		output   func(t *testing.T, dir string) string
		needUser bool
	}{
		{"missing parent", func(t *testing.T, dir string) string {
			return filepath.Join(dir, "missing", "out.txt")
		}, false},
		{"output is a directory", func(t *testing.T, dir string) string {
			out := filepath.Join(dir, "out.txt")
			require.NoError(t, os.Mkdir(out, 0o755))
			return out
		}, false},
		{"read-only output", func(t *testing.T, dir string) string {
			out := filepath.Join(dir, "out.txt")
			require.NoError(t, os.WriteFile(out, []byte("old\n"), 0o444))
			return out
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.needUser && os.Geteuid() == 0 {
				t.Skip("root ignores file permissions")
			}
			f := newFixture(t, input)
			f.cfg.Output = tt.output(t, f.outDir)

			_, err := f.pipeline().Run(context.Background())
			var inErr *errs.InputError
			require.ErrorAs(t, err, &inErr)
			assert.Zero(t, f.adapter.calls)
			assertNoRunDirs(t, f.outDir)
		})
	}
}

func TestRunKeepTemp(t *testing.T) {
	input := seqtest.WriteFASTQ(t, "reads.fq", seqtest.Random(9, 200, 100, 'I'))
	f := newFixture(t, input)
	f.cfg.KeepTemp = true

	_, err := f.pipeline().Run(context.Background())
	require.NoError(t, err)

	_, err = os.Stat(f.cfg.Output + "." + SampleFile + ".gz")
	assert.NoError(t, err)
	assertNoRunDirs(t, f.outDir)
}

func TestRunKeepTempReplayedHits(t *testing.T) {
	input := seqtest.WriteFASTQ(t, "reads.fq", seqtest.Random(14, 30, 100, 'I'))
	f := newFixture(t, input)

	var b strings.Builder
	for i := 1; i <= 30; i++ {
		fmt.Fprintf(&b, "%d\tfam%02d\t90.0\t33\t3\t0\t1\t99\t10\t42\t1e-10\t55.0\n", i, (i-1)%families+1)
	}
	hits := filepath.Join(t.TempDir(), "replay.m8")
	require.NoError(t, os.WriteFile(hits, []byte(b.String()), 0o644))
	f.cfg.HitsFile = hits
	f.cfg.KeepTemp = true

	p := f.pipeline()
	p.Adapter = nil
	_, err := p.Run(context.Background())
	require.NoError(t, err)

	tests := []struct {
		name string
		path string
		want string
	}{
		{"sample", f.cfg.Output + "." + SampleFile + ".gz", ""},
		{"hits", f.cfg.Output + "." + HitsFile + ".gz", b.String()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fh, err := os.Open(tt.path)
			require.NoError(t, err)
			defer fh.Close()
			zr, err := gzip.NewReader(fh)
			require.NoError(t, err)
			got, err := io.ReadAll(zr)
			require.NoError(t, err)
			if tt.want != "" {
				assert.Equal(t, tt.want, string(got))
			} else {
				assert.NotEmpty(t, got)
			}
		})
	}
	assertNoRunDirs(t, f.outDir)
}

func TestRunReplaysHitsFile(t *testing.T) {
	input := seqtest.WriteFASTQ(t, "reads.fq", seqtest.Random(10, 60, 100, 'I'))
	f := newFixture(t, input)

	var b strings.Builder
	for i := 1; i <= 60; i++ {
		fmt.Fprintf(&b, "%d\tfam%02d\t90.0\t33\t3\t0\t1\t99\t10\t42\t1e-10\t55.0\n", i, (i-1)%families+1)
	}
	hits := filepath.Join(t.TempDir(), "hits.m8")
	require.NoError(t, os.WriteFile(hits, []byte(b.String()), 0o644))
	f.cfg.HitsFile = hits

	p := f.pipeline()
	p.Adapter = nil
	res, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 60, res.Classify.Classified)

	used := 0
	for _, fe := range res.Estimate.Families {
		if fe.Status == predict.Included {
			used++
		}
	}
	assert.Equal(t, families, used)
	assert.InDelta(t, 1000.0*60/2, res.Report.AverageGenomeSize, 1e-6)
}

func assertNoRunDirs(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), ".census-"), "run directory %s left behind", e.Name())
	}
}
