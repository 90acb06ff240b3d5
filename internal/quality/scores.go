// Package quality decodes FASTQ quality strings into Phred scores.
//
// Phred quality scores are logarithmically related to base-calling error
// probabilities:
//
//	Q = -10 * log10(P_error)
//
// Three ASCII encodings are recognised:
//
//	sanger    Phred+33, '!' (33) upwards
//	solexa    Solexa+64, ';' (59) upwards, converted to Phred
//	illumina  Phred+64 (Illumina 1.3 to 1.7), '@' (64) upwards
package quality

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Encoding is a FASTQ quality-string encoding.
type Encoding int

const (
	// Unknown means "detect from the file".
	Unknown Encoding = iota
	Sanger
	Solexa
	Illumina
)

// highest printable quality character
const asciiMax = 126

func (e Encoding) String() string {
	switch e {
	case Sanger:
		return "sanger"
	case Solexa:
		return "solexa"
	case Illumina:
		return "illumina"
	default:
		return "unknown"
	}
}

// offset returns the ASCII value of score zero in the raw scale.
func (e Encoding) offset() int {
	if e == Sanger {
		return 33
	}
	return 64
}

// lowest returns the smallest ASCII value the encoding can produce.
func (e Encoding) lowest() int {
	switch e {
	case Sanger:
		return 33
	case Solexa:
		return 59
	default:
		return 64
	}
}

// ParseEncoding converts a user-supplied name. The empty string maps to
// Unknown.
func ParseEncoding(name string) (Encoding, error) {
	switch strings.ToLower(name) {
	case "":
		return Unknown, nil
	case "sanger":
		return Sanger, nil
	case "solexa":
		return Solexa, nil
	case "illumina":
		return Illumina, nil
	}
	return Unknown, &InvalidEncodingNameError{Name: name}
}

// sangerMaxASCII is 'J', Phred 41, the top of current Sanger output.
const sangerMaxASCII = 'J'

// DetectEncoding picks an encoding from the smallest and largest quality
// characters seen in a prefix of the file. Characters below ';' only occur
// in Sanger. A prefix that never goes above 'J' is also Sanger: high
// quality Sanger reads sit in '@'..'J', which would otherwise be read as
// Illumina Q0..Q10.
func DetectEncoding(minASCII, maxASCII byte) Encoding {
	switch {
	case minASCII < 59:
		return Sanger
	case maxASCII <= sangerMaxASCII:
		return Sanger
	case minASCII < 64:
		return Solexa
	default:
		return Illumina
	}
}

// Error types
type QualityError interface {
	error
	IsQualityError()
}

// InvalidEncodingNameError is returned for an unrecognised encoding name.
type InvalidEncodingNameError struct {
	Name string
}

func (e *InvalidEncodingNameError) Error() string {
	return fmt.Sprintf("invalid quality encoding %q: choose sanger, solexa or illumina", e.Name)
}
func (e *InvalidEncodingNameError) IsQualityError() {}

// InvalidEncodingError is returned when a quality character is outside the
// encoding's range.
type InvalidEncodingError struct {
	Char     byte
	Position int
	Encoding Encoding
}

func (e *InvalidEncodingError) Error() string {
	return fmt.Sprintf("invalid %s quality character '%c' at position %d", e.Encoding, e.Char, e.Position)
}
func (e *InvalidEncodingError) IsQualityError() {}

// solexaToPhred maps every raw Solexa score (-5..62) to its rounded Phred
// equivalent.
var solexaToPhred [asciiMax - 59 + 1]int

func init() {
	for i := range solexaToPhred {
		qs := float64(i + 59 - 64)
		solexaToPhred[i] = int(math.Round(10 * math.Log10(math.Pow(10, qs/10)+1)))
	}
}

// Decode converts a raw quality string into Phred scores.
func Decode(raw []byte, enc Encoding) ([]int, error) {
	if enc == Unknown {
		return nil, fmt.Errorf("quality encoding must be resolved before decoding")
	}

	scores := make([]int, len(raw))
	low := enc.lowest()
	for i, c := range raw {
		if int(c) < low || int(c) > asciiMax {
			return nil, &InvalidEncodingError{Char: c, Position: i, Encoding: enc}
		}
		if enc == Solexa {
			scores[i] = solexaToPhred[int(c)-59]
		} else {
			scores[i] = int(c) - enc.offset()
		}
	}
	return scores, nil
}

// Scores represents Phred quality scores for a sequencing read.
type Scores struct {
	Values []int
}

// Wrap views values as Scores without copying.
func Wrap(values []int) *Scores {
	return &Scores{Values: values}
}

// Len returns the number of quality scores.
func (s *Scores) Len() int {
	return len(s.Values)
}

// Average calculates the mean quality score. It is 0 for an empty read.
func (s *Scores) Average() float64 {
	if len(s.Values) == 0 {
		return 0.0
	}
	sum := 0
	for _, score := range s.Values {
		sum += score
	}
	return float64(sum) / float64(len(s.Values))
}

// Median calculates the median quality score.
func (s *Scores) Median() int {
	if len(s.Values) == 0 {
		return 0
	}
	sorted := make([]int, len(s.Values))
	copy(sorted, s.Values)
	sort.Ints(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// Min returns the minimum quality score.
func (s *Scores) Min() int {
	min := s.Values[0]
	for _, score := range s.Values[1:] {
		if score < min {
			min = score
		}
	}
	return min
}

// Max returns the maximum quality score.
func (s *Scores) Max() int {
	max := s.Values[0]
	for _, score := range s.Values[1:] {
		if score > max {
			max = score
		}
	}
	return max
}

// ToPhred33 encodes the scores as a Sanger quality string.
func (s *Scores) ToPhred33() string {
	result := make([]byte, len(s.Values))
	for i, score := range s.Values {
		result[i] = byte(score + 33)
	}
	return string(result)
}

func (s *Scores) String() string {
	return fmt.Sprintf("QualityScores { len: %d, avg: %.1f }", len(s.Values), s.Average())
}
