// Command census estimates the average genome size of a metagenome.
//
// Usage:
//
//	census [options] <seqfile> <outfile>
//
// Commands:
//
//	read-lengths  List the calibrated read lengths
//	inspect       Detect format, quality encoding and read length
//	version       Show version information
//
// Exit status is 2 for configuration errors, 3 for input errors, 4 when no
// estimate can be made, 5 when the homology search fails and 1 otherwise.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aria-lang/census-go/internal/errs"
	"github.com/aria-lang/census-go/pkg/census"
)

// Exit codes by error kind.
const (
	exitOther         = 1
	exitConfiguration = 2
	exitInput         = 3
	exitEstimation    = 4
	exitSearch        = 5
)

// options mirrors the command-line flags. Only flags the user set are
// applied over the configuration file.
type options struct {
	configFile  string
	sampleSize  int
	readLength  int
	fileType    string
	encoding    string
	threads     int
	minQuality  float64
	meanQuality float64
	dedup       bool
	maxUnknown  float64
	keepTemp    bool
	dataDir     string
	database    string
	binary      string
	hitsFile    string
	seed        uint64
	outlierMADs float64
	timeout     time.Duration
	progress    bool
	verbose     bool
}

func rootCommand(stdout, stderr io.Writer) *cobra.Command {
	var o options
	cmd := &cobra.Command{
		Use:   "census [options] <seqfile> <outfile>",
		Short: "Estimate average genome size from shotgun sequence data",
		Long: `census: average genome size estimation for metagenomes

Reads are sampled from a FASTA/FASTQ file (optionally gzip compressed),
trimmed, filtered and searched against a database of universal single-copy
gene families. Per-family hit counts are turned into genome size estimates
and combined into a robust weighted average.

Calibration data (read_len.map, pars.map, coefficients.map, weights.map)
is read from --data.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.config(cmd, args[0], args[1])
			if err != nil {
				return err
			}
			logger := newLogger(stderr, o.verbose)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			res, err := census.Run(ctx, cfg, census.WithLogger(logger), census.WithProgress(o.progress))
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "%.2f bp\n", res.Report.AverageGenomeSize)
			return nil
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.CompletionOptions.DisableDefaultCmd = true

	f := cmd.Flags()
	f.StringVar(&o.configFile, "config", "", "YAML configuration file (flags override it)")
	f.IntVarP(&o.sampleSize, "nreads", "n", 1000000, "Number of reads to sample")
	f.IntVarP(&o.readLength, "read-length", "l", 0, "Trim reads to this length (0 detects from the input)")
	f.StringVarP(&o.fileType, "file-type", "f", "", "Input format: fasta or fastq (detected when empty)")
	f.StringVarP(&o.encoding, "fastq-format", "c", "", "Quality encoding: sanger, solexa or illumina (detected when empty)")
	f.IntVarP(&o.threads, "threads", "t", 1, "Threads for the homology search")
	f.Float64VarP(&o.minQuality, "min-quality", "q", -5, "Minimum base-level quality score")
	f.Float64VarP(&o.meanQuality, "mean-quality", "m", -5, "Minimum read-level mean quality score")
	f.BoolVarP(&o.dedup, "filter-dups", "d", false, "Drop exact duplicate reads")
	f.Float64VarP(&o.maxUnknown, "max-unknown", "u", 100, "Maximum percent of non-ACGT bases per read")
	f.BoolVarP(&o.keepTemp, "keep-tmp", "k", false, "Keep the sampled reads and hits next to the output")
	f.StringVar(&o.dataDir, "data", "", "Calibration data directory")
	f.StringVar(&o.database, "db", "", "Search database (default <data>/seqs)")
	f.StringVar(&o.binary, "rapsearch", "rapsearch", "Homology search executable")
	f.StringVar(&o.hitsFile, "hits", "", "Replay a precomputed m8 hit table instead of searching")
	f.Uint64Var(&o.seed, "seed", 0, "Sampling seed (0 seeds from the clock)")
	f.Float64Var(&o.outlierMADs, "outlier-mads", 3, "Outlier distance in scaled MADs (<= 0 disables)")
	f.DurationVar(&o.timeout, "timeout", 0, "Bound on the homology search (0 for none)")
	f.BoolVar(&o.progress, "progress", false, "Show a progress counter while reading")
	f.BoolVarP(&o.verbose, "verbose", "v", false, "Debug logging")

	cmd.AddCommand(readLengthsCommand(stdout))
	cmd.AddCommand(inspectCommand(stdout))
	cmd.AddCommand(versionCommand(stdout))
	return cmd
}

// config loads the configuration file, if any, and applies the flags the
// user set.
func (o *options) config(cmd *cobra.Command, input, output string) (*census.Config, error) {
	cfg := census.DefaultConfig()
	if o.configFile != "" {
		var err error
		if cfg, err = census.LoadConfig(o.configFile); err != nil {
			return nil, err
		}
	}
	cfg.Input = input
	cfg.Output = output

	set := cmd.Flags().Changed
	if set("nreads") {
		cfg.SampleSize = o.sampleSize
	}
	if set("read-length") {
		cfg.ReadLength = o.readLength
	}
	if set("file-type") {
		cfg.FileType = o.fileType
	}
	if set("fastq-format") {
		cfg.Encoding = o.encoding
	}
	if set("threads") {
		cfg.Threads = o.threads
	}
	if set("min-quality") {
		cfg.MinBaseQuality = o.minQuality
	}
	if set("mean-quality") {
		cfg.MinMeanQuality = o.meanQuality
	}
	if set("filter-dups") {
		cfg.FilterDuplicates = o.dedup
	}
	if set("max-unknown") {
		if o.maxUnknown < 0 || o.maxUnknown > 100 {
			return nil, errs.Configf("max_unknown", o.maxUnknown, "must be a percentage between 0 and 100")
		}
		cfg.MaxUnknown = o.maxUnknown / 100
	}
	if set("keep-tmp") {
		cfg.KeepTemp = o.keepTemp
	}
	if set("data") {
		cfg.DataDir = o.dataDir
	}
	if set("db") {
		cfg.Database = o.database
	}
	if set("rapsearch") {
		cfg.SearchBinary = o.binary
	}
	if set("hits") {
		cfg.HitsFile = o.hitsFile
	}
	if set("seed") {
		cfg.Seed = o.seed
	}
	if set("outlier-mads") {
		cfg.OutlierMADs = o.outlierMADs
	}
	if set("timeout") {
		cfg.SearchTimeout = o.timeout
	}
	if cfg.Database == "" && cfg.HitsFile == "" && cfg.DataDir != "" {
		cfg.Database = filepath.Join(cfg.DataDir, "seqs")
	}
	return cfg, nil
}

func readLengthsCommand(stdout io.Writer) *cobra.Command {
	var dataDir string
	cmd := &cobra.Command{
		Use:   "read-lengths",
		Short: "List the calibrated read lengths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lengths, err := census.ReadLengths(dataDir)
			if err != nil {
				return err
			}
			for _, l := range lengths {
				fmt.Fprintln(stdout, l)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dataDir, "data", "", "Calibration data directory")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}

func inspectCommand(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <seqfile>",
		Short: "Detect format, quality encoding and read length",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := census.Inspect(args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(in)
		},
	}
}

func versionCommand(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprint(stdout, census.Info())
			fmt.Fprintf(stdout, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(stdout, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// exitCode maps an error to the process exit status.
func exitCode(err error) int {
	var (
		cfgErr    *errs.ConfigurationError
		inErr     *errs.InputError
		estErr    *errs.EstimationError
		searchErr *errs.SearchAdapterError
	)
	switch {
	case err == nil:
		return 0
	case errors.As(err, &cfgErr):
		return exitConfiguration
	case errors.As(err, &inErr):
		return exitInput
	case errors.As(err, &estErr):
		return exitEstimation
	case errors.As(err, &searchErr):
		return exitSearch
	default:
		return exitOther
	}
}

func main() {
	cmd := rootCommand(os.Stdout, os.Stderr)
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "census: %v\n", err)
		os.Exit(exitCode(err))
	}
}
