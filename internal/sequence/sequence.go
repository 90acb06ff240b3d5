// Package sequence provides the sequencing read type used throughout the
// census pipeline.
//
// A Read is created once by the normalizer and never modified afterwards.
// Bases are stored upper-case; anything outside ACGT counts as ambiguous.
package sequence

import (
	"fmt"
	"strings"
)

// FileType identifies the text format of a read file.
type FileType int

const (
	// UnknownType is the zero value; it means "detect from content".
	UnknownType FileType = iota
	// FASTA files carry sequences only.
	FASTA
	// FASTQ files carry sequences plus per-base qualities.
	FASTQ
)

func (t FileType) String() string {
	switch t {
	case FASTA:
		return "fasta"
	case FASTQ:
		return "fastq"
	default:
		return "unknown"
	}
}

// ParseFileType converts a user-supplied name. The empty string maps to
// UnknownType.
func ParseFileType(name string) (FileType, error) {
	switch strings.ToLower(name) {
	case "":
		return UnknownType, nil
	case "fasta", "fa":
		return FASTA, nil
	case "fastq", "fq":
		return FASTQ, nil
	}
	return UnknownType, &InvalidFileTypeError{Name: name}
}

// Read is a single sequencing read.
type Read struct {
	// ID is unique within a run and stable across runs over the same file.
	ID string
	// Name is the identifier found in the file header.
	Name    string
	Bases   string
	Quality []int
}

// New creates a read, upper-casing the bases. Quality may be nil for FASTA
// input, otherwise it must match the sequence length.
func New(id, name string, bases []byte, quality []int) (*Read, error) {
	if len(bases) == 0 {
		return nil, &EmptySequenceError{}
	}
	if quality != nil && len(quality) != len(bases) {
		return nil, &InvalidLengthError{Expected: len(bases), Actual: len(quality)}
	}

	return &Read{
		ID:      id,
		Name:    name,
		Bases:   strings.ToUpper(string(bases)),
		Quality: quality,
	}, nil
}

// Len returns the number of bases.
func (r *Read) Len() int {
	return len(r.Bases)
}

// HasQuality reports whether per-base scores are attached.
func (r *Read) HasQuality() bool {
	return r.Quality != nil
}

// Trim returns a copy holding the first n bases and qualities.
func (r *Read) Trim(n int) (*Read, error) {
	if n <= 0 {
		return nil, fmt.Errorf("trim length must be positive, got %d", n)
	}
	if n > len(r.Bases) {
		return nil, &InvalidLengthError{Expected: n, Actual: len(r.Bases)}
	}

	trimmed := &Read{
		ID:    r.ID,
		Name:  r.Name,
		Bases: r.Bases[:n],
	}
	if r.Quality != nil {
		trimmed.Quality = make([]int, n)
		copy(trimmed.Quality, r.Quality[:n])
	}
	return trimmed, nil
}

// CountAmbiguous counts bases other than A, C, G and T.
func (r *Read) CountAmbiguous() int {
	count := 0
	for i := 0; i < len(r.Bases); i++ {
		if !IsUnambiguous(r.Bases[i]) {
			count++
		}
	}
	return count
}

// AmbiguousFraction is CountAmbiguous divided by the read length.
func (r *Read) AmbiguousFraction() float64 {
	if len(r.Bases) == 0 {
		return 0.0
	}
	return float64(r.CountAmbiguous()) / float64(len(r.Bases))
}

// GCContent calculates the proportion of G and C bases.
func (r *Read) GCContent() float64 {
	if len(r.Bases) == 0 {
		return 0.0
	}

	gcCount := 0
	for i := 0; i < len(r.Bases); i++ {
		if r.Bases[i] == 'G' || r.Bases[i] == 'C' {
			gcCount++
		}
	}

	return float64(gcCount) / float64(len(r.Bases))
}

// ToFASTA returns the read as a single-line FASTA record keyed by ID.
func (r *Read) ToFASTA() string {
	var sb strings.Builder
	sb.Grow(len(r.ID) + len(r.Bases) + 3)
	sb.WriteByte('>')
	sb.WriteString(r.ID)
	sb.WriteByte('\n')
	sb.WriteString(r.Bases)
	sb.WriteByte('\n')
	return sb.String()
}

func (r *Read) String() string {
	return fmt.Sprintf("Read { id: %s, len: %d }", r.ID, len(r.Bases))
}
