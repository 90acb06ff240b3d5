package sequence

import "fmt"

// SequenceError is the base error type for read construction.
type SequenceError interface {
	error
	IsSequenceError()
}

// EmptySequenceError is returned when a record has no bases.
type EmptySequenceError struct{}

func (e *EmptySequenceError) Error() string {
	return "sequence must have at least one base"
}

func (e *EmptySequenceError) IsSequenceError() {}

// InvalidLengthError is returned when two lengths that must agree do not.
type InvalidLengthError struct {
	Expected int
	Actual   int
}

func (e *InvalidLengthError) Error() string {
	return fmt.Sprintf("expected length %d, got %d", e.Expected, e.Actual)
}

func (e *InvalidLengthError) IsSequenceError() {}

// InvalidFileTypeError is returned for an unrecognised file type name.
type InvalidFileTypeError struct {
	Name string
}

func (e *InvalidFileTypeError) Error() string {
	return fmt.Sprintf("invalid file type %q: choose fasta or fastq", e.Name)
}

func (e *InvalidFileTypeError) IsSequenceError() {}

// IsUnambiguous reports whether c is one of the upper-case bases A, C, G, T.
func IsUnambiguous(c byte) bool {
	switch c {
	case 'A', 'C', 'G', 'T':
		return true
	}
	return false
}
