// Package normalize turns a raw FASTA/FASTQ file into the fixed-size,
// fixed-length read sample the rest of the pipeline works on.
//
// The file is read once, as a stream. Each record is decoded, trimmed to
// the target length (shorter records are dropped), filtered for ambiguous
// bases, base and mean quality and, optionally, exact duplicates, and then
// offered to a reservoir sampler. Memory is O(sample size) plus the
// duplicate set when duplicate filtering is on.
package normalize

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"github.com/shenwei356/bio/seq"
	"github.com/shenwei356/bio/seqio/fastx"

	"github.com/aria-lang/census-go/internal/errs"
	"github.com/aria-lang/census-go/internal/quality"
	"github.com/aria-lang/census-go/internal/sequence"
)

// Options configures a normalization pass.
type Options struct {
	// FileType is detected from the content when UnknownType.
	FileType sequence.FileType
	// Encoding is detected from a prefix of a FASTQ file when Unknown.
	Encoding quality.Encoding
	// SampleSize is the number of reads to keep.
	SampleSize int
	// ReadLength is the trim length; it must be resolved (positive).
	ReadLength int
	Quality    quality.Threshold
	// FilterDuplicates drops reads whose trimmed bases were seen before.
	FilterDuplicates bool
	// MaxUnknown is the largest accepted fraction of non-ACGT bases.
	MaxUnknown float64
	// Seed drives the reservoir; 0 seeds from the clock.
	Seed uint64
	// OnRecord, when set, is called once per input record.
	OnRecord func()
}

// Stats counts records through the filters.
type Stats struct {
	Records    int
	TooShort   int
	Ambiguous  int
	LowQuality int
	Duplicates int
	// Passed is the number of reads offered to the reservoir.
	Passed int
}

// Result is the normalized sample.
type Result struct {
	Reads []*sequence.Read
	// IDs parallels Reads.
	IDs   []string
	Stats Stats
}

// Normalize streams path and samples it according to opts.
func Normalize(path string, opts Options) (*Result, error) {
	if opts.FileType == sequence.UnknownType {
		ft, err := DetectFileType(path)
		if err != nil {
			return nil, err
		}
		opts.FileType = ft
	}
	if opts.FileType == sequence.FASTQ && opts.Encoding == quality.Unknown {
		enc, err := DetectEncoding(path)
		if err != nil {
			return nil, err
		}
		opts.Encoding = enc
	}

	src, err := Open(path, opts.FileType, opts.Encoding)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	return Run(src, opts)
}

// Run samples an already opened source.
func Run(src Source, opts Options) (*Result, error) {
	if opts.SampleSize <= 0 {
		return nil, errs.Configf("sample_size", opts.SampleSize, "must be a positive integer")
	}
	if opts.ReadLength <= 0 {
		return nil, errs.Configf("read_length", opts.ReadLength, "must be resolved before normalization")
	}

	var st Stats
	stages := []Stage{
		Observe(func(*sequence.Read) {
			st.Records++
			if opts.OnRecord != nil {
				opts.OnRecord()
			}
		}),
		TrimTo(opts.ReadLength, &st.TooShort),
		MaxAmbiguous(opts.MaxUnknown, &st.Ambiguous),
	}
	if opts.Quality.Enabled() {
		stages = append(stages, MinQuality(opts.Quality, &st.LowQuality))
	}
	if opts.FilterDuplicates {
		stages = append(stages, Dedup(&st.Duplicates))
	}

	sample := NewReservoir[*sequence.Read](opts.SampleSize, opts.Seed)
	stream := Chain(src, stages...)
	for {
		r, err := stream.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		sample.Offer(r)
	}
	st.Passed = sample.Seen()

	reads := sample.Items()
	ids := make([]string, len(reads))
	for i, r := range reads {
		ids[i] = r.ID
	}
	return &Result{Reads: reads, IDs: ids, Stats: st}, nil
}

// FileSource reads records from a FASTA/FASTQ file. Read IDs are the
// 1-based record ordinals.
type FileSource struct {
	path     string
	reader   *fastx.Reader
	fileType sequence.FileType
	encoding quality.Encoding
	n        int
}

// Open opens path for streaming. fileType must be resolved; encoding must
// be resolved for FASTQ.
func Open(path string, fileType sequence.FileType, encoding quality.Encoding) (*FileSource, error) {
	if fileType == sequence.UnknownType {
		return nil, errs.Configf("file_type", fileType, "must be resolved before opening")
	}
	if fileType == sequence.FASTQ && encoding == quality.Unknown {
		return nil, errs.Configf("fastq_format", encoding, "must be resolved before opening")
	}

	reader, err := fastx.NewReader(seq.DNAredundant, path, fastx.DefaultIDRegexp)
	if err != nil {
		return nil, errs.Input(path, err)
	}
	return &FileSource{path: path, reader: reader, fileType: fileType, encoding: encoding}, nil
}

// Next implements Source.
func (s *FileSource) Next() (*sequence.Read, error) {
	rec, err := s.reader.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, errs.Input(s.path, fmt.Errorf("record %d: %w", s.n+1, err))
	}
	s.n++

	isFastq := s.reader.IsFastq
	if s.n == 1 && isFastq != (s.fileType == sequence.FASTQ) {
		return nil, errs.Input(s.path, fmt.Errorf("declared %s but content is not", s.fileType))
	}

	id := strconv.Itoa(s.n)
	if len(rec.Seq.Seq) == 0 {
		return &sequence.Read{ID: id, Name: string(rec.ID)}, nil
	}

	var scores []int
	if isFastq {
		scores, err = quality.Decode(rec.Seq.Qual, s.encoding)
		if err != nil {
			return nil, errs.Input(s.path, fmt.Errorf("record %d: %w", s.n, err))
		}
	}

	r, err := sequence.New(id, string(rec.ID), rec.Seq.Seq, scores)
	if err != nil {
		return nil, errs.Input(s.path, fmt.Errorf("record %d: %w", s.n, err))
	}
	return r, nil
}

// Close releases the file.
func (s *FileSource) Close() error {
	s.reader.Close()
	return nil
}

// WriteFASTA writes reads as single-line FASTA records keyed by read ID.
func WriteFASTA(w io.Writer, reads []*sequence.Read) error {
	bw := bufio.NewWriter(w)
	for _, r := range reads {
		if _, err := bw.WriteString(r.ToFASTA()); err != nil {
			return err
		}
	}
	return bw.Flush()
}
