// Package report writes the final census result.
package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/klauspost/pgzip"
	"github.com/shenwei356/xopen"

	"github.com/aria-lang/census-go/internal/errs"
	"github.com/aria-lang/census-go/internal/predict"
)

// Report is the outcome of one run.
type Report struct {
	ReadsSampled      int                      `json:"reads_sampled"`
	TrimmedLength     int                      `json:"trimmed_length"`
	AverageGenomeSize float64                  `json:"average_genome_size"`
	Families          []predict.FamilyEstimate `json:"families,omitempty"`
}

// FromEstimate builds a report from a prediction.
func FromEstimate(est *predict.Estimate) *Report {
	return &Report{
		ReadsSampled:      est.ReadCount,
		TrimmedLength:     est.ReadLength,
		AverageGenomeSize: est.AGS,
		Families:          est.Families,
	}
}

// Write emits the tab-separated key/value report.
func Write(w io.Writer, r *Report) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "reads_sampled:\t%d\n", r.ReadsSampled)
	fmt.Fprintf(bw, "trimmed_length:\t%d\n", r.TrimmedLength)
	fmt.Fprintf(bw, "average_genome_size:\t%s\n", strconv.FormatFloat(r.AverageGenomeSize, 'f', -1, 64))
	return bw.Flush()
}

// WriteFile writes r to path ("-" is stdout). A ".gz" suffix compresses.
// The parent directory must already exist.
func WriteFile(path string, r *Report) error {
	if path != "-" {
		if err := checkParent(path); err != nil {
			return err
		}
	}
	out, err := xopen.Wopen(path)
	if err != nil {
		return errs.Input(path, err)
	}
	if err := Write(out, r); err != nil {
		out.Close()
		return errs.Input(path, err)
	}
	if err := out.Close(); err != nil {
		return errs.Input(path, err)
	}
	return nil
}

// checkParent fails when the directory holding path is missing. xopen
// creates it otherwise.
func checkParent(path string) error {
	dir := filepath.Dir(path)
	info, err := os.Stat(dir)
	if err != nil {
		return errs.Input(path, err)
	}
	if !info.IsDir() {
		return errs.Input(path, fmt.Errorf("%s is not a directory", dir))
	}
	return nil
}

// Archive gzips src into dst with parallel compression. A compressed src
// is decoded first so dst holds a single gzip layer.
func Archive(src, dst string, workers int) (err error) {
	in, err := xopen.Ropen(src)
	if err != nil {
		return errs.Input(src, err)
	}
	defer in.Close()

	f, err := os.Create(dst)
	if err != nil {
		return errs.Input(dst, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = errs.Input(dst, cerr)
		}
	}()

	pw, err := pgzip.NewWriterLevel(f, pgzip.DefaultCompression)
	if err != nil {
		return errs.Input(dst, err)
	}
	if workers > 0 {
		if err := pw.SetConcurrency(1<<20, workers); err != nil {
			_ = pw.Close()
			return errs.Input(dst, err)
		}
	}
	if _, err := io.Copy(pw, in); err != nil {
		_ = pw.Close()
		return errs.Input(dst, err)
	}
	if err := pw.Close(); err != nil {
		return errs.Input(dst, err)
	}
	return nil
}
