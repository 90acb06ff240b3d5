// Package config holds the run configuration and its validation.
//
// Values come from Default, optionally overlaid by a YAML file (Load) and
// then by command-line flags. Validate must pass before any input is read.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aria-lang/census-go/internal/calibration"
	"github.com/aria-lang/census-go/internal/errs"
	"github.com/aria-lang/census-go/internal/predict"
	"github.com/aria-lang/census-go/internal/quality"
	"github.com/aria-lang/census-go/internal/sequence"
)

// Defaults.
const (
	DefaultSampleSize = 1000000
	DefaultThreads    = 1
	DefaultBinary     = "rapsearch"
)

// Config is everything a census run needs.
type Config struct {
	Input  string `yaml:"input"`
	Output string `yaml:"output"`

	// FileType is "fasta", "fastq" or empty for auto-detection.
	FileType string `yaml:"file_type"`
	// Encoding is "sanger", "solexa", "illumina" or empty for auto-detection.
	Encoding string `yaml:"fastq_format"`

	SampleSize int `yaml:"sample_size"`
	// ReadLength 0 means auto-detect.
	ReadLength       int     `yaml:"read_length"`
	MinBaseQuality   float64 `yaml:"min_base_quality"`
	MinMeanQuality   float64 `yaml:"min_mean_quality"`
	FilterDuplicates bool    `yaml:"filter_duplicates"`
	// MaxUnknown is a fraction in [0, 1].
	MaxUnknown float64 `yaml:"max_unknown"`

	Threads  int  `yaml:"threads"`
	KeepTemp bool `yaml:"keep_temp"`

	DataDir       string        `yaml:"data_dir"`
	Database      string        `yaml:"database"`
	SearchBinary  string        `yaml:"search_binary"`
	HitsFile      string        `yaml:"hits_file"`
	SearchTimeout time.Duration `yaml:"search_timeout"`

	Seed        uint64  `yaml:"seed"`
	OutlierMADs float64 `yaml:"outlier_mads"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		SampleSize:     DefaultSampleSize,
		MinBaseQuality: quality.NoFilter,
		MinMeanQuality: quality.NoFilter,
		MaxUnknown:     1.0,
		Threads:        DefaultThreads,
		SearchBinary:   DefaultBinary,
		OutlierMADs:    predict.DefaultOutlierMADs,
	}
}

// Load reads a YAML file on top of Default. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Input(path, err)
	}

	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, errs.Configf("", nil, "%s: %v", path, err)
	}
	return cfg, nil
}

// FileTypeValue parses FileType.
func (c *Config) FileTypeValue() (sequence.FileType, error) {
	ft, err := sequence.ParseFileType(c.FileType)
	if err != nil {
		return sequence.UnknownType, errs.Configf("file_type", c.FileType, "choose fasta or fastq")
	}
	return ft, nil
}

// EncodingValue parses Encoding.
func (c *Config) EncodingValue() (quality.Encoding, error) {
	enc, err := quality.ParseEncoding(c.Encoding)
	if err != nil {
		return quality.Unknown, errs.Configf("fastq_format", c.Encoding, "choose sanger, solexa or illumina")
	}
	return enc, nil
}

// Threshold returns the quality filter.
func (c *Config) Threshold() quality.Threshold {
	return quality.Threshold{MinBase: c.MinBaseQuality, MinMean: c.MinMeanQuality}
}

// QualityOptionsSet reports whether any FASTQ-only option departs from its
// default.
func (c *Config) QualityOptionsSet() bool {
	return c.Encoding != "" || c.Threshold().Enabled()
}

// Validate checks every precondition that does not depend on the input's
// content. supported is the list of calibrated read lengths.
func (c *Config) Validate(supported []int) error {
	if c.Input == "" {
		return errs.Configf("input", c.Input, "an input sequence file is required")
	}
	if c.Output == "" {
		return errs.Configf("output", c.Output, "an output destination is required")
	}
	ft, err := c.FileTypeValue()
	if err != nil {
		return err
	}
	if _, err := c.EncodingValue(); err != nil {
		return err
	}
	if c.SampleSize <= 0 {
		return errs.Configf("sample_size", c.SampleSize, "must be a positive integer")
	}
	if c.ReadLength < 0 {
		return errs.Configf("read_length", c.ReadLength, "must be positive (or 0 to detect)")
	}
	if c.ReadLength > 0 && !calibration.Supported(supported, c.ReadLength) {
		return errs.Configf("read_length", c.ReadLength, "supported lengths are %v", supported)
	}
	if c.Threads <= 0 {
		return errs.Configf("threads", c.Threads, "must be a positive integer")
	}
	if math.IsNaN(c.MaxUnknown) || c.MaxUnknown < 0 || c.MaxUnknown > 1 {
		return errs.Configf("max_unknown", c.MaxUnknown, "must be a fraction between 0 and 1")
	}
	if c.MinBaseQuality < quality.NoFilter || math.IsNaN(c.MinBaseQuality) {
		return errs.Configf("min_base_quality", c.MinBaseQuality, "must be at least %g", quality.NoFilter)
	}
	if c.MinMeanQuality < quality.NoFilter || math.IsNaN(c.MinMeanQuality) {
		return errs.Configf("min_mean_quality", c.MinMeanQuality, "must be at least %g", quality.NoFilter)
	}
	if math.IsNaN(c.OutlierMADs) || math.IsInf(c.OutlierMADs, 0) {
		return errs.Configf("outlier_mads", c.OutlierMADs, "must be a finite number")
	}
	if c.SearchTimeout < 0 {
		return errs.Configf("search_timeout", c.SearchTimeout, "must not be negative")
	}
	if ft == sequence.FASTA {
		if err := c.CheckFileType(ft); err != nil {
			return err
		}
	}
	if c.DataDir == "" {
		return errs.Configf("data_dir", c.DataDir, "the calibration data directory is required")
	}
	if c.HitsFile == "" && c.Database == "" {
		return errs.Configf("database", c.Database, "a search database or a precomputed hits file is required")
	}
	return nil
}

// CheckFileType validates the options against the resolved file type.
func (c *Config) CheckFileType(ft sequence.FileType) error {
	if ft == sequence.FASTA && c.QualityOptionsSet() {
		return errs.Configf("file_type", ft, "quality options require FASTQ input")
	}
	return nil
}

// Summary returns the parameters as ordered key/value pairs for logging.
func (c *Config) Summary() []any {
	ft := c.FileType
	if ft == "" {
		ft = "auto"
	}
	enc := c.Encoding
	if enc == "" {
		enc = "auto"
	}
	rl := "auto"
	if c.ReadLength > 0 {
		rl = fmt.Sprint(c.ReadLength)
	}
	return []any{
		"input", c.Input,
		"output", c.Output,
		"file_type", ft,
		"fastq_format", enc,
		"sample_size", c.SampleSize,
		"read_length", rl,
		"min_base_quality", c.MinBaseQuality,
		"min_mean_quality", c.MinMeanQuality,
		"filter_duplicates", c.FilterDuplicates,
		"max_unknown", c.MaxUnknown,
		"threads", c.Threads,
		"keep_temp", c.KeepTemp,
	}
}
