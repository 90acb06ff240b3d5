// Package predict estimates average genome size from corrected family
// counts using one regression model per family.
//
// Each family model maps reads-per-hit, x = totalReads / normalizedCount,
// to a genome size c0 + c1*x + c2*x^2. The ensemble then:
//
//  1. drops families without a model (weight 0), with no hits, or whose
//     estimate is negative or not finite;
//  2. drops outliers: estimates farther than K scaled MADs from the
//     median. When more than half the estimates agree exactly the MAD is
//     0 and the scaled mean absolute deviation stands in for it. K <= 0,
//     or a set with no spread at all, rejects nothing;
//  3. returns the weight-normalized mean of what is left.
//
// An empty ensemble is an errs.EstimationError.
package predict

import (
	"math"

	"github.com/aria-lang/census-go/internal/aggregate"
	"github.com/aria-lang/census-go/internal/calibration"
	"github.com/aria-lang/census-go/internal/errs"
	"github.com/aria-lang/census-go/internal/stats"
)

// DefaultOutlierMADs is the default rejection distance in scaled MADs.
const DefaultOutlierMADs = 3.0

// Status records why a family estimate was or was not used.
type Status int

const (
	Included Status = iota
	NoModel
	ZeroCount
	Invalid
	Outlier
)

func (s Status) String() string {
	switch s {
	case Included:
		return "included"
	case NoModel:
		return "no-model"
	case ZeroCount:
		return "zero-count"
	case Invalid:
		return "invalid"
	case Outlier:
		return "outlier"
	default:
		return "unknown"
	}
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// FamilyEstimate is one family's prediction.
type FamilyEstimate struct {
	Family string `json:"family"`
	// Size is the predicted genome size in bp; it is 0 for NoModel,
	// ZeroCount and non-finite Invalid estimates.
	Size   float64 `json:"size"`
	Weight float64 `json:"weight"`
	Status Status  `json:"status"`
}

// Estimate is the predictor's result.
type Estimate struct {
	// AGS is the average genome size in bp.
	AGS        float64
	ReadCount  int
	ReadLength int
	Families   []FamilyEstimate
}

// Used returns the number of families that contributed to AGS.
func (e *Estimate) Used() int {
	n := 0
	for _, f := range e.Families {
		if f.Status == Included {
			n++
		}
	}
	return n
}

// Predictor evaluates the ensemble for one calibration table.
type Predictor struct {
	Table *calibration.Table
	// OutlierMADs is the rejection distance; <= 0 disables rejection.
	OutlierMADs float64
}

// New creates a predictor with the default outlier rule.
func New(table *calibration.Table) *Predictor {
	return &Predictor{Table: table, OutlierMADs: DefaultOutlierMADs}
}

// Model evaluates a family's regression for the given counts.
func Model(coef [calibration.NumCoefficients]float64, normalized float64, totalReads int) float64 {
	x := float64(totalReads) / normalized
	return coef[0] + coef[1]*x + coef[2]*x*x
}

// Predict computes the average genome size.
func (p *Predictor) Predict(counts *aggregate.Counts, totalReads int) (*Estimate, error) {
	if totalReads <= 0 {
		return nil, errs.Estimationf("no reads were sampled")
	}

	est := &Estimate{
		ReadCount:  totalReads,
		ReadLength: p.Table.ReadLength(),
		Families:   make([]FamilyEstimate, 0, len(counts.Families)),
	}

	usable := make([]float64, 0, len(counts.Families))
	for _, fc := range counts.Families {
		entry, ok := p.Table.Entry(fc.Family)
		fe := FamilyEstimate{Family: fc.Family, Weight: entry.Weight}
		switch {
		case !ok || !entry.HasModel():
			fe.Status = NoModel
		case fc.Normalized <= 0:
			fe.Status = ZeroCount
		default:
			fe.Size = Model(entry.Coefficients, fc.Normalized, totalReads)
			switch {
			case math.IsNaN(fe.Size) || math.IsInf(fe.Size, 0):
				fe.Size, fe.Status = 0, Invalid
			case fe.Size < 0:
				fe.Status = Invalid
			default:
				usable = append(usable, fe.Size)
			}
		}
		est.Families = append(est.Families, fe)
	}

	if len(usable) == 0 {
		return nil, errs.Estimationf("no gene family has a usable estimate (%d families, %d reads)",
			len(counts.Families), totalReads)
	}

	if err := p.rejectOutliers(est.Families, usable); err != nil {
		return nil, err
	}

	sizes := make([]float64, 0, len(usable))
	weights := make([]float64, 0, len(usable))
	for _, fe := range est.Families {
		if fe.Status == Included {
			sizes = append(sizes, fe.Size)
			weights = append(weights, fe.Weight)
		}
	}
	if len(sizes) == 0 {
		return nil, errs.Estimationf("every family estimate was rejected as an outlier")
	}

	ags, err := stats.WeightedMean(sizes, weights)
	if err != nil {
		return nil, errs.Estimationf("weighted average: %v", err)
	}
	est.AGS = ags
	return est, nil
}

// rejectOutliers marks Included estimates far from the median as Outlier.
// usable holds the sizes of the Included estimates.
func (p *Predictor) rejectOutliers(families []FamilyEstimate, usable []float64) error {
	if p.OutlierMADs <= 0 {
		return nil
	}
	median, err := stats.Median(usable)
	if err != nil {
		return errs.Estimationf("median: %v", err)
	}
	mad, err := stats.MAD(usable, median)
	if err != nil {
		return errs.Estimationf("MAD: %v", err)
	}
	scale := mad
	if scale == 0 {
		if scale, err = stats.MeanAbsDeviation(usable, median); err != nil {
			return errs.Estimationf("mean absolute deviation: %v", err)
		}
	}
	if scale == 0 {
		return nil
	}

	limit := p.OutlierMADs * scale
	for i := range families {
		if families[i].Status == Included && math.Abs(families[i].Size-median) > limit {
			families[i].Status = Outlier
		}
	}
	return nil
}
