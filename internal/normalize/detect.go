package normalize

import (
	"bufio"
	"fmt"
	"io"
	"sort"

	"github.com/shenwei356/bio/seq"
	"github.com/shenwei356/bio/seqio/fastx"
	"github.com/shenwei356/xopen"

	"github.com/aria-lang/census-go/internal/errs"
	"github.com/aria-lang/census-go/internal/quality"
	"github.com/aria-lang/census-go/internal/sequence"
	"github.com/aria-lang/census-go/internal/stats"
)

// DetectionRecords is how many leading records the detectors look at.
const DetectionRecords = 10000

// DetectFileType inspects the first non-blank character of path.
func DetectFileType(path string) (sequence.FileType, error) {
	fh, err := xopen.Ropen(path)
	if err != nil {
		return sequence.UnknownType, errs.Input(path, err)
	}
	defer fh.Close()

	br := bufio.NewReader(fh)
	for {
		c, err := br.ReadByte()
		if err == io.EOF {
			return sequence.UnknownType, errs.Input(path, fmt.Errorf("file is empty"))
		}
		if err != nil {
			return sequence.UnknownType, errs.Input(path, err)
		}
		switch c {
		case ' ', '\t', '\r', '\n':
			continue
		case '>':
			return sequence.FASTA, nil
		case '@':
			return sequence.FASTQ, nil
		default:
			return sequence.UnknownType, errs.Input(path, fmt.Errorf("unrecognised format: first character %q", c))
		}
	}
}

// scanPrefix calls fn for up to limit leading records of path.
func scanPrefix(path string, limit int, fn func(rec *fastx.Record)) error {
	reader, err := fastx.NewReader(seq.DNAredundant, path, fastx.DefaultIDRegexp)
	if err != nil {
		return errs.Input(path, err)
	}
	defer reader.Close()

	for n := 0; n < limit; n++ {
		rec, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errs.Input(path, err)
		}
		fn(rec)
	}
	return nil
}

// DetectEncoding guesses the FASTQ quality encoding from the range of
// quality characters among the leading records. A file with no quality
// characters is treated as Sanger.
func DetectEncoding(path string) (quality.Encoding, error) {
	min, max := byte(0xff), byte(0)
	err := scanPrefix(path, DetectionRecords, func(rec *fastx.Record) {
		for _, c := range rec.Seq.Qual {
			if c < min {
				min = c
			}
			if c > max {
				max = c
			}
		}
	})
	if err != nil {
		return quality.Unknown, err
	}
	if min == 0xff {
		return quality.Sanger, nil
	}
	return quality.DetectEncoding(min, max), nil
}

// MedianLength returns the median length of the leading records of path.
func MedianLength(path string) (float64, error) {
	var lengths []float64
	err := scanPrefix(path, DetectionRecords, func(rec *fastx.Record) {
		lengths = append(lengths, float64(len(rec.Seq.Seq)))
	})
	if err != nil {
		return 0, err
	}
	median, err := stats.Median(lengths)
	if err != nil {
		return 0, errs.Input(path, fmt.Errorf("no records"))
	}
	return median, nil
}

// DetectReadLength picks the largest supported length not above the median
// read length of path.
func DetectReadLength(path string, supported []int) (int, error) {
	median, err := MedianLength(path)
	if err != nil {
		return 0, err
	}
	return ChooseReadLength(median, supported)
}

// ChooseReadLength returns the largest value of supported that is <= median.
func ChooseReadLength(median float64, supported []int) (int, error) {
	sorted := append([]int(nil), supported...)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))
	for _, l := range sorted {
		if float64(l) <= median {
			return l, nil
		}
	}
	return 0, errs.Configf("read_length", median,
		"median read length is shorter than every supported length %v", supported)
}
