// Package stats provides the summary and robust statistics used by the
// census pipeline.
package stats

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/aria-lang/census-go/internal/quality"
	"github.com/aria-lang/census-go/internal/sequence"
)

// MADScale makes the median absolute deviation a consistent estimator of
// the standard deviation under normality.
const MADScale = 1.4826

// MeanADScale is sqrt(pi/2), the normal consistency factor for the mean
// absolute deviation.
const MeanADScale = 1.2533141373155003

// Median returns the empirical 0.5 quantile of values (the lower middle
// value for even counts). values is not modified.
func Median(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, fmt.Errorf("median of empty set")
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return stat.Quantile(0.5, stat.Empirical, sorted, nil), nil
}

// MAD returns the scaled median absolute deviation around center.
func MAD(values []float64, center float64) (float64, error) {
	if len(values) == 0 {
		return 0, fmt.Errorf("MAD of empty set")
	}
	dev := make([]float64, len(values))
	for i, v := range values {
		dev[i] = math.Abs(v - center)
	}
	m, err := Median(dev)
	if err != nil {
		return 0, err
	}
	return MADScale * m, nil
}

// MeanAbsDeviation returns the scaled mean absolute deviation around
// center. It is nonzero whenever any value differs from center.
func MeanAbsDeviation(values []float64, center float64) (float64, error) {
	if len(values) == 0 {
		return 0, fmt.Errorf("mean absolute deviation of empty set")
	}
	dev := make([]float64, len(values))
	for i, v := range values {
		dev[i] = math.Abs(v - center)
	}
	return MeanADScale * stat.Mean(dev, nil), nil
}

// WeightedMean returns sum(w*x)/sum(w). The weights must be non-negative
// with a positive sum.
func WeightedMean(values, weights []float64) (float64, error) {
	if len(values) == 0 {
		return 0, fmt.Errorf("weighted mean of empty set")
	}
	if len(values) != len(weights) {
		return 0, fmt.Errorf("values and weights must have same length")
	}
	total := 0.0
	for _, w := range weights {
		if w < 0 || math.IsNaN(w) {
			return 0, fmt.Errorf("weight %v is not a non-negative number", w)
		}
		total += w
	}
	if total == 0 {
		return 0, fmt.Errorf("weights sum to zero")
	}
	return stat.Mean(values, weights), nil
}

// ReadSetStats summarises the normalized sample.
type ReadSetStats struct {
	Count         int
	TotalBases    int
	MinLength     int
	MaxLength     int
	MeanLength    float64
	MeanGCContent float64
	// MeanQuality is NaN when the reads carry no quality scores.
	MeanQuality    float64
	TotalAmbiguous int
}

// FromReads calculates statistics for a collection of reads.
func FromReads(reads []*sequence.Read) (*ReadSetStats, error) {
	if len(reads) == 0 {
		return nil, fmt.Errorf("read list cannot be empty")
	}

	s := &ReadSetStats{
		Count:       len(reads),
		MinLength:   reads[0].Len(),
		MaxLength:   reads[0].Len(),
		MeanQuality: math.NaN(),
	}

	gc := make([]float64, 0, len(reads))
	qual := make([]float64, 0, len(reads))
	for _, r := range reads {
		n := r.Len()
		s.TotalBases += n
		if n < s.MinLength {
			s.MinLength = n
		}
		if n > s.MaxLength {
			s.MaxLength = n
		}
		s.TotalAmbiguous += r.CountAmbiguous()
		gc = append(gc, r.GCContent())
		if r.HasQuality() {
			qual = append(qual, quality.Wrap(r.Quality).Average())
		}
	}

	s.MeanLength = float64(s.TotalBases) / float64(s.Count)
	s.MeanGCContent = stat.Mean(gc, nil)
	if len(qual) > 0 {
		s.MeanQuality = stat.Mean(qual, nil)
	}
	return s, nil
}

func (s *ReadSetStats) String() string {
	return fmt.Sprintf(`ReadSetStats {
  count: %d
  total_bases: %d
  length range: %d - %d
  mean length: %.1f
  mean GC: %.1f%%
  mean quality: %.1f
  ambiguous bases: %d
}`, s.Count, s.TotalBases, s.MinLength, s.MaxLength,
		s.MeanLength, s.MeanGCContent*100, s.MeanQuality, s.TotalAmbiguous)
}
