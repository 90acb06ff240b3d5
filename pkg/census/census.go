// Package census estimates the average genome size of a microbial
// community from a shotgun sequencing sample.
//
// Example usage:
//
//	cfg := census.DefaultConfig()
//	cfg.Input = "sample.fq.gz"
//	cfg.Output = "sample.ags.txt"
//	cfg.DataDir = "/opt/census/data"
//	cfg.Database = "/opt/census/data/seqs"
//
//	res, err := census.Run(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("%.0f bp\n", res.Report.AverageGenomeSize)
package census

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/aria-lang/census-go/internal/calibration"
	core "github.com/aria-lang/census-go/internal/census"
	"github.com/aria-lang/census-go/internal/config"
	"github.com/aria-lang/census-go/internal/errs"
	"github.com/aria-lang/census-go/internal/normalize"
	"github.com/aria-lang/census-go/internal/predict"
	"github.com/aria-lang/census-go/internal/quality"
	"github.com/aria-lang/census-go/internal/report"
	"github.com/aria-lang/census-go/internal/search"
	"github.com/aria-lang/census-go/internal/sequence"
	"github.com/aria-lang/census-go/internal/stats"
)

// Re-export types for convenience
type (
	Config         = config.Config
	Result         = core.Result
	Report         = report.Report
	GenomeEstimate = predict.Estimate
	FamilyEstimate = predict.FamilyEstimate
	Hit            = search.Hit
	SearchAdapter  = search.Adapter

	ConfigurationError = errs.ConfigurationError
	InputError         = errs.InputError
	EstimationError    = errs.EstimationError
	SearchAdapterError = errs.SearchAdapterError
)

// DefaultConfig returns the default run configuration.
func DefaultConfig() *Config {
	return config.Default()
}

// LoadConfig reads a YAML configuration file over the defaults.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// Option adjusts a run.
type Option func(*core.Pipeline)

// WithLogger sets the run logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *core.Pipeline) { p.Logger = l }
}

// WithAdapter replaces the search adapter derived from the configuration.
func WithAdapter(a SearchAdapter) Option {
	return func(p *core.Pipeline) { p.Adapter = a }
}

// WithProgress shows a record counter on stderr.
func WithProgress(on bool) Option {
	return func(p *core.Pipeline) { p.Progress = on }
}

func pipeline(cfg *Config, opts []Option) *core.Pipeline {
	p := &core.Pipeline{Config: cfg}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes the full pipeline and writes the report to cfg.Output.
func Run(ctx context.Context, cfg *Config, opts ...Option) (*Result, error) {
	return pipeline(cfg, opts).Run(ctx)
}

// Estimate executes the pipeline without writing a report.
func Estimate(ctx context.Context, cfg *Config, opts ...Option) (*Result, error) {
	return pipeline(cfg, opts).Estimate(ctx)
}

// WriteReport writes r in the text report format.
func WriteReport(w io.Writer, r *Report) error {
	return report.Write(w, r)
}

// ReadLengths lists the read lengths calibrated in dataDir.
func ReadLengths(dataDir string) ([]int, error) {
	return calibration.ReadLengths(dataDir)
}

// Inspection describes a sequence file without running the pipeline.
type Inspection struct {
	FileType     string  `json:"file_type"`
	Encoding     string  `json:"fastq_format,omitempty"`
	MedianLength float64 `json:"median_length"`
	Records      int     `json:"records_scanned"`
	MeanGC       float64 `json:"mean_gc"`
	// MeanQuality is nil for FASTA input.
	MeanQuality *float64 `json:"mean_quality,omitempty"`
}

// Inspect detects the format, quality encoding and length profile of the
// leading records of path.
func Inspect(path string) (*Inspection, error) {
	ft, err := normalize.DetectFileType(path)
	if err != nil {
		return nil, err
	}
	in := &Inspection{FileType: ft.String()}

	enc := quality.Unknown
	if ft == sequence.FASTQ {
		if enc, err = normalize.DetectEncoding(path); err != nil {
			return nil, err
		}
		in.Encoding = enc.String()
	}

	src, err := normalize.Open(path, ft, enc)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	var reads []*sequence.Read
	lengths := make([]float64, 0, normalize.DetectionRecords)
	for len(lengths) < normalize.DetectionRecords {
		r, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		lengths = append(lengths, float64(r.Len()))
		if r.Len() > 0 {
			reads = append(reads, r)
		}
	}
	if len(reads) == 0 {
		return nil, errs.Input(path, fmt.Errorf("no records"))
	}

	in.Records = len(lengths)
	if in.MedianLength, err = stats.Median(lengths); err != nil {
		return nil, err
	}
	sum, err := stats.FromReads(reads)
	if err != nil {
		return nil, err
	}
	in.MeanGC = sum.MeanGCContent
	if !math.IsNaN(sum.MeanQuality) {
		q := sum.MeanQuality
		in.MeanQuality = &q
	}
	return in, nil
}

// Version returns the census version.
func Version() string {
	return "1.0.0"
}

// Info returns information about census.
func Info() string {
	return fmt.Sprintf(`census v%s - average genome size estimation

Estimates the average genome size of the organisms in a shotgun
metagenome from the abundance of universal single-copy gene families.

Pipeline:
  - FASTA/FASTQ streaming with gzip support and format detection
  - Quality, ambiguity and duplicate filtering with reservoir sampling
  - Protein homology search against single-copy gene families
  - Per-family thresholds, length correction and regression models
  - Robust ensemble with MAD outlier rejection
`, Version())
}
