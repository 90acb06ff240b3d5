package quality

import "fmt"

// NoFilter is the threshold value that lets every read through. Solexa
// scores bottom out at -5.
const NoFilter = -5.0

// Threshold is the read-level quality filter.
type Threshold struct {
	MinBase float64 // every base must reach this score
	MinMean float64 // the read mean must reach this score
}

// DefaultThreshold disables both checks.
func DefaultThreshold() Threshold {
	return Threshold{MinBase: NoFilter, MinMean: NoFilter}
}

// Enabled reports whether either check can reject a read.
func (t Threshold) Enabled() bool {
	return t.MinBase > NoFilter || t.MinMean > NoFilter
}

// Check returns whether the scores pass, and the reason when they do not.
func (t Threshold) Check(s *Scores) (bool, string) {
	if s.Len() == 0 {
		return false, "no quality scores"
	}
	if min := s.Min(); float64(min) < t.MinBase {
		return false, fmt.Sprintf("base quality %d below minimum %.1f", min, t.MinBase)
	}
	if mean := s.Average(); mean < t.MinMean {
		return false, fmt.Sprintf("mean quality %.2f below minimum %.1f", mean, t.MinMean)
	}
	return true, ""
}
