// Package census runs the average genome size pipeline end to end.
//
// The flow is strictly linear:
//
//	validate -> detect -> load calibration -> normalize -> search
//	-> classify -> aggregate -> predict -> report
//
// Every step either succeeds or ends the run with one of the errs kinds.
// Intermediate files live in a per-run directory that is removed on
// every exit path.
package census

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/aria-lang/census-go/internal/aggregate"
	"github.com/aria-lang/census-go/internal/calibration"
	"github.com/aria-lang/census-go/internal/classify"
	"github.com/aria-lang/census-go/internal/config"
	"github.com/aria-lang/census-go/internal/errs"
	"github.com/aria-lang/census-go/internal/normalize"
	"github.com/aria-lang/census-go/internal/predict"
	"github.com/aria-lang/census-go/internal/progress"
	"github.com/aria-lang/census-go/internal/quality"
	"github.com/aria-lang/census-go/internal/report"
	"github.com/aria-lang/census-go/internal/search"
	"github.com/aria-lang/census-go/internal/sequence"
	"github.com/aria-lang/census-go/internal/stats"
)

// Names of the per-run artifacts.
const (
	SampleFile = "reads.fa"
	HitsFile   = "hits.m8"
)

// Pipeline is one configured run.
type Pipeline struct {
	Config *config.Config
	// Adapter overrides the search adapter derived from Config.
	Adapter search.Adapter
	Logger  *slog.Logger
	// Progress shows a record counter on stderr while reading.
	Progress bool
}

// Result collects what a run produced.
type Result struct {
	Report     *report.Report
	Estimate   *predict.Estimate
	FileType   sequence.FileType
	Encoding   quality.Encoding
	ReadLength int
	Normalize  normalize.Stats
	Classify   classify.Summary
}

// Run executes the pipeline and writes the report to Config.Output.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	res, err := p.Estimate(ctx)
	if err != nil {
		return nil, err
	}
	if err := report.WriteFile(p.Config.Output, res.Report); err != nil {
		return nil, err
	}
	p.logger().Info("report written", "path", p.Config.Output,
		"average_genome_size", res.Report.AverageGenomeSize)
	return res, nil
}

// Estimate executes every step except writing the report.
func (p *Pipeline) Estimate(ctx context.Context) (*Result, error) {
	cfg := p.Config
	log := p.logger()

	if cfg == nil {
		return nil, errs.Configf("", nil, "no configuration")
	}
	if cfg.DataDir == "" {
		return nil, errs.Configf("data_dir", cfg.DataDir, "the calibration data directory is required")
	}
	supported, err := calibration.ReadLengths(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(supported); err != nil {
		return nil, err
	}
	log.Info("parameters", cfg.Summary()...)

	res := &Result{}
	if err := p.resolve(res, supported); err != nil {
		return nil, err
	}
	if err := checkDestination(cfg.Output); err != nil {
		return nil, err
	}

	table, err := calibration.Load(cfg.DataDir, res.ReadLength)
	if err != nil {
		return nil, err
	}
	log.Debug("calibration loaded", "families", table.Len(), "read_length", res.ReadLength)

	bar := progress.New(p.Progress, "reading")
	start := time.Now()
	sample, err := normalize.Normalize(cfg.Input, normalize.Options{
		FileType:         res.FileType,
		Encoding:         res.Encoding,
		SampleSize:       cfg.SampleSize,
		ReadLength:       res.ReadLength,
		Quality:          cfg.Threshold(),
		FilterDuplicates: cfg.FilterDuplicates,
		MaxUnknown:       cfg.MaxUnknown,
		Seed:             cfg.Seed,
		OnRecord:         bar.Increment,
	})
	bar.Finish()
	if err != nil {
		return nil, err
	}
	res.Normalize = sample.Stats
	st := sample.Stats
	log.Info("reads sampled", "records", st.Records, "too_short", st.TooShort,
		"ambiguous", st.Ambiguous, "low_quality", st.LowQuality, "duplicates", st.Duplicates,
		"passed", st.Passed, "sampled", len(sample.Reads), "elapsed", time.Since(start))

	if len(sample.Reads) == 0 {
		return nil, errs.Estimationf("no reads survived filtering (%d records read, read length %d)",
			st.Records, res.ReadLength)
	}
	if sum, err := stats.FromReads(sample.Reads); err == nil {
		log.Debug("sample summary", "bases", sum.TotalBases, "mean_gc", sum.MeanGCContent,
			"mean_quality", sum.MeanQuality, "ambiguous_bases", sum.TotalAmbiguous)
	}
	if len(sample.Reads) < cfg.SampleSize {
		log.Warn("fewer usable reads than requested", "requested", cfg.SampleSize, "sampled", len(sample.Reads))
	}

	hits, err := p.search(ctx, sample)
	if err != nil {
		return nil, err
	}
	if err := checkReadIDs(hits, sample.IDs); err != nil {
		return nil, err
	}

	classified, summary := classify.Classify(hits, table)
	res.Classify = summary
	log.Info("reads classified", "hits", summary.RawHits, "reads_with_hits", summary.ReadsWithHits,
		"classified", summary.Classified)
	if summary.UnknownTargets > 0 {
		log.Warn("hits to targets outside the calibration table", "hits", summary.UnknownTargets)
	}

	counts, err := aggregate.Aggregate(classified, table)
	if err != nil {
		return nil, err
	}

	predictor := &predict.Predictor{Table: table, OutlierMADs: cfg.OutlierMADs}
	est, err := predictor.Predict(counts, len(sample.Reads))
	if err != nil {
		return nil, err
	}
	log.Info("genome size estimated", "average_genome_size", est.AGS,
		"families_used", est.Used(), "families", len(est.Families))

	res.Estimate = est
	res.Report = report.FromEstimate(est)
	return res, nil
}

// resolve fills in file type, encoding and read length, detecting the
// ones left unset.
func (p *Pipeline) resolve(res *Result, supported []int) error {
	cfg := p.Config
	log := p.logger()

	ft, err := cfg.FileTypeValue()
	if err != nil {
		return err
	}
	if ft == sequence.UnknownType {
		if ft, err = normalize.DetectFileType(cfg.Input); err != nil {
			return err
		}
		log.Debug("file type detected", "file_type", ft)
	}
	if err := cfg.CheckFileType(ft); err != nil {
		return err
	}
	res.FileType = ft

	if ft == sequence.FASTQ {
		enc, err := cfg.EncodingValue()
		if err != nil {
			return err
		}
		if enc == quality.Unknown {
			if enc, err = normalize.DetectEncoding(cfg.Input); err != nil {
				return err
			}
			log.Debug("quality encoding detected", "fastq_format", enc)
		}
		res.Encoding = enc
	}

	res.ReadLength = cfg.ReadLength
	if res.ReadLength == 0 {
		if res.ReadLength, err = normalize.DetectReadLength(cfg.Input, supported); err != nil {
			return err
		}
		log.Info("read length detected", "read_length", res.ReadLength)
	}
	return nil
}

// search writes the sample to a run directory, runs the adapter and
// releases the directory.
func (p *Pipeline) search(ctx context.Context, sample *normalize.Result) (hits []search.Hit, err error) {
	cfg := p.Config
	log := p.logger()

	dir, err := newRunDir(cfg.Output)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cfg.KeepTemp {
			p.keep(dir)
		}
		if rerr := os.RemoveAll(dir); rerr != nil {
			log.Warn("removing run directory", "dir", dir, "error", rerr)
		}
	}()

	readsPath := filepath.Join(dir, SampleFile)
	if err := writeSample(readsPath, sample); err != nil {
		return nil, err
	}

	adapter := p.Adapter
	if adapter == nil {
		adapter = defaultAdapter(cfg, dir, log)
	}

	start := time.Now()
	hits, err = adapter.Search(ctx, readsPath, cfg.Database)
	if err != nil {
		var ce errs.CensusError
		if !errors.As(err, &ce) {
			err = errs.Search("run", err)
		}
		return nil, err
	}
	log.Info("search finished", "hits", len(hits), "elapsed", time.Since(start))
	return hits, nil
}

// keep archives the run artifacts next to the output file. A replayed
// hit table stands in for the one a search would have written.
func (p *Pipeline) keep(dir string) {
	log := p.logger()
	base := p.Config.Output
	if base == "-" {
		base = filepath.Join(".", "census")
	}
	artifacts := map[string]string{
		SampleFile: filepath.Join(dir, SampleFile),
		HitsFile:   filepath.Join(dir, HitsFile),
	}
	if p.Config.HitsFile != "" {
		if _, err := os.Stat(artifacts[HitsFile]); err != nil {
			artifacts[HitsFile] = p.Config.HitsFile
		}
	}

	kept := 0
	for _, name := range []string{SampleFile, HitsFile} {
		src := artifacts[name]
		if _, err := os.Stat(src); err != nil {
			continue
		}
		dst := base + "." + name + ".gz"
		if err := report.Archive(src, dst, p.Config.Threads); err != nil {
			log.Warn("archiving run artifact", "file", name, "error", err)
			continue
		}
		log.Info("kept run artifact", "path", dst)
		kept++
	}
	if kept == 0 {
		log.Info("no run artifacts to keep", "dir", dir)
	}
}

func defaultAdapter(cfg *config.Config, dir string, log *slog.Logger) search.Adapter {
	if cfg.HitsFile != "" {
		return search.File{Path: cfg.HitsFile}
	}
	return &search.Rapsearch{
		Binary:  cfg.SearchBinary,
		Workers: cfg.Threads,
		OutDir:  dir,
		Timeout: cfg.SearchTimeout,
		Logger:  log,
	}
}

func writeSample(path string, sample *normalize.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return errs.Input(path, err)
	}
	if err := normalize.WriteFASTA(f, sample.Reads); err != nil {
		f.Close()
		return errs.Input(path, err)
	}
	if err := f.Close(); err != nil {
		return errs.Input(path, err)
	}
	return nil
}

// newRunDir creates a uniquely named directory beside output.
func newRunDir(output string) (string, error) {
	parent := filepath.Dir(output)
	if output == "-" {
		parent = os.TempDir()
	}
	dir := filepath.Join(parent, ".census-"+uuid.NewString())
	if err := os.Mkdir(dir, 0o755); err != nil {
		return "", errs.Input(dir, err)
	}
	return dir, nil
}

func checkDestination(output string) error {
	if output == "-" {
		return nil
	}
	dir := filepath.Dir(output)
	info, err := os.Stat(dir)
	if err != nil {
		return errs.Input(output, err)
	}
	if !info.IsDir() {
		return errs.Input(output, fmt.Errorf("%s is not a directory", dir))
	}
	return checkOutputWritable(output)
}

// checkOutputWritable opens output for writing without truncating it. A
// file created here is removed again so a failed run leaves nothing.
func checkOutputWritable(output string) error {
	_, statErr := os.Stat(output)
	f, err := os.OpenFile(output, os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return errs.Input(output, err)
	}
	if err := f.Close(); err != nil {
		return errs.Input(output, err)
	}
	if os.IsNotExist(statErr) {
		if err := os.Remove(output); err != nil {
			return errs.Input(output, err)
		}
	}
	return nil
}

// checkReadIDs rejects hits for reads that were not in the sample.
func checkReadIDs(hits []search.Hit, ids []string) error {
	known := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		known[id] = struct{}{}
	}
	for _, h := range hits {
		if _, ok := known[h.ReadID]; !ok {
			return errs.Search("validate", fmt.Errorf("hit for read %q which was not sampled", h.ReadID))
		}
	}
	return nil
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}
