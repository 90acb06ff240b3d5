package predict

import (
	"math"
	"testing"

	"github.com/aria-lang/census-go/internal/aggregate"
	"github.com/aria-lang/census-go/internal/calibration"
	"github.com/aria-lang/census-go/internal/classify"
	"github.com/aria-lang/census-go/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// linear builds an entry whose model is slope * reads / count.
func linear(family string, slope, weight float64) calibration.Entry {
	return calibration.Entry{
		Family:           family,
		ReadLength:       100,
		LengthCorrection: 1,
		Coefficients:     [3]float64{0, slope, 0},
		Weight:           weight,
	}
}

// countsFor aggregates raw per-family counts through the real aggregator.
func countsFor(t *testing.T, table *calibration.Table, raw map[string]int) *aggregate.Counts {
	t.Helper()
	var hits []classify.Hit
	for fam, n := range raw {
		for i := 0; i < n; i++ {
			hits = append(hits, classify.Hit{ReadID: fam + string(rune('a'+i)), Family: fam})
		}
	}
	counts, err := aggregate.Aggregate(hits, table)
	require.NoError(t, err)
	return counts
}

func newTable(t *testing.T, entries ...calibration.Entry) *calibration.Table {
	t.Helper()
	table, err := calibration.NewTable(100, entries, nil)
	require.NoError(t, err)
	return table
}

func TestModel(t *testing.T) {
	assert.InDelta(t, 1000+2*50+0.5*50*50, Model([3]float64{1000, 2, 0.5}, 20, 1000), 1e-9)
}

func TestPredictWeightedAverage(t *testing.T) {
	table := newTable(t,
		linear("famA", 1000, 1),
		linear("famB", 1000, 3),
	)
	// famA: 1000 * 1000/10 = 100000; famB: 1000 * 1000/5 = 200000
	counts := countsFor(t, table, map[string]int{"famA": 10, "famB": 5})

	est, err := New(table).Predict(counts, 1000)
	require.NoError(t, err)

	assert.InDelta(t, (100000*1+200000*3)/4.0, est.AGS, 1e-6)
	assert.Equal(t, 1000, est.ReadCount)
	assert.Equal(t, 100, est.ReadLength)
	assert.Equal(t, 2, est.Used())
}

func TestPredictLengthCorrection(t *testing.T) {
	e := linear("famA", 1000, 1)
	e.LengthCorrection = 2
	table := newTable(t, e)
	counts := countsFor(t, table, map[string]int{"famA": 10})

	est, err := New(table).Predict(counts, 1000)
	require.NoError(t, err)
	assert.InDelta(t, 1000*1000/20.0, est.AGS, 1e-6)
}

func TestPredictZeroCountFamiliesExcluded(t *testing.T) {
	table := newTable(t,
		linear("famA", 1000, 1),
		linear("famB", 1000, 1),
		linear("famC", 1000, 1),
	)
	counts := countsFor(t, table, map[string]int{"famA": 10})

	est, err := New(table).Predict(counts, 1000)
	require.NoError(t, err)

	assert.InDelta(t, 100000, est.AGS, 1e-6)
	statuses := map[string]Status{}
	for _, f := range est.Families {
		statuses[f.Family] = f.Status
	}
	assert.Equal(t, map[string]Status{"famA": Included, "famB": ZeroCount, "famC": ZeroCount}, statuses)
}

func TestPredictOutlierRejection(t *testing.T) {
	entries := []calibration.Entry{}
	raw := map[string]int{}
	// Nine families near 100 kb and one far away.
	for i, n := range []int{100, 101, 99, 100, 102, 98, 100, 101, 99} {
		fam := string(rune('a' + i))
		entries = append(entries, linear("fam"+fam, 10000, 1))
		raw["fam"+fam] = n
	}
	entries = append(entries, linear("famz", 10000, 1))
	raw["famz"] = 10

	table := newTable(t, entries...)
	counts := countsFor(t, table, raw)

	est, err := New(table).Predict(counts, 1000)
	require.NoError(t, err)

	for _, f := range est.Families {
		if f.Family == "famz" {
			assert.Equal(t, Outlier, f.Status)
		} else {
			assert.Equal(t, Included, f.Status, f.Family)
		}
	}
	assert.Equal(t, 9, est.Used())
	assert.InDelta(t, 100000, est.AGS, 1500)

	noReject := &Predictor{Table: table, OutlierMADs: 0}
	all, err := noReject.Predict(counts, 1000)
	require.NoError(t, err)
	assert.Equal(t, 10, all.Used())
	assert.Greater(t, all.AGS, est.AGS)
}

func TestPredictOutlierWithZeroMAD(t *testing.T) {
	tests := []struct {
		name     string
		raw      map[string]int
		outliers []string
		used     int
	}{
		{
			// three at 100 kb, famD at 10 Mb
			name:     "majority identical",
			raw:      map[string]int{"famA": 100, "famB": 100, "famC": 100, "famD": 1},
			outliers: []string{"famD"},
			used:     3,
		},
		{
			name: "two way split keeps both",
			raw:  map[string]int{"famA": 100, "famB": 100, "famC": 50, "famD": 50},
			used: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := newTable(t,
				linear("famA", 10000, 1), linear("famB", 10000, 1),
				linear("famC", 10000, 1), linear("famD", 10000, 1),
			)
			est, err := New(table).Predict(countsFor(t, table, tt.raw), 1000)
			require.NoError(t, err)

			var outliers []string
			for _, f := range est.Families {
				if f.Status == Outlier {
					outliers = append(outliers, f.Family)
				}
			}
			assert.Equal(t, tt.outliers, outliers)
			assert.Equal(t, tt.used, est.Used())
			if tt.outliers != nil {
				assert.InDelta(t, 100000, est.AGS, 1e-6)
			}
		})
	}
}

func TestPredictIdenticalEstimatesKept(t *testing.T) {
	table := newTable(t, linear("famA", 1000, 1), linear("famB", 1000, 2))
	counts := countsFor(t, table, map[string]int{"famA": 4, "famB": 4})

	est, err := New(table).Predict(counts, 400)
	require.NoError(t, err)
	assert.Equal(t, 2, est.Used())
	assert.InDelta(t, 100000, est.AGS, 1e-6)
}

func TestPredictInvalidAndNoModel(t *testing.T) {
	negative := linear("famA", -1000, 1)
	noModel := linear("famB", 1000, 0)
	table := newTable(t, negative, noModel, linear("famC", 1000, 1))
	counts := countsFor(t, table, map[string]int{"famA": 5, "famB": 5, "famC": 5})

	est, err := New(table).Predict(counts, 500)
	require.NoError(t, err)

	assert.Equal(t, Invalid, est.Families[0].Status)
	assert.Equal(t, NoModel, est.Families[1].Status)
	assert.Equal(t, Included, est.Families[2].Status)
	assert.InDelta(t, 100000, est.AGS, 1e-6)
}

func TestPredictEmptyEnsemble(t *testing.T) {
	table := newTable(t, linear("famA", 1000, 1), linear("famB", 1000, 1))

	t.Run("no hits", func(t *testing.T) {
		counts := countsFor(t, table, nil)
		_, err := New(table).Predict(counts, 1000)
		var estErr *errs.EstimationError
		require.ErrorAs(t, err, &estErr)
	})

	t.Run("no reads", func(t *testing.T) {
		counts := countsFor(t, table, map[string]int{"famA": 1})
		_, err := New(table).Predict(counts, 0)
		assert.IsType(t, &errs.EstimationError{}, err)
	})

	t.Run("only invalid estimates", func(t *testing.T) {
		bad := newTable(t, linear("famA", -5, 1))
		counts := countsFor(t, bad, map[string]int{"famA": 3})
		_, err := New(bad).Predict(counts, 100)
		assert.IsType(t, &errs.EstimationError{}, err)
	})
}

func TestPredictResultIsFiniteAndNonNegative(t *testing.T) {
	table := newTable(t,
		calibration.Entry{Family: "famA", ReadLength: 100, LengthCorrection: 0.7, Coefficients: [3]float64{-2000, 900, 0.01}, Weight: 0.2},
		calibration.Entry{Family: "famB", ReadLength: 100, LengthCorrection: 1.3, Coefficients: [3]float64{5000, 1100, 0}, Weight: 0.9},
		calibration.Entry{Family: "famC", ReadLength: 100, LengthCorrection: 1.0, Coefficients: [3]float64{0, 1000, 0.002}, Weight: 0.5},
	)

	for famA := 0; famA < 6; famA++ {
		for famB := 1; famB < 6; famB++ {
			counts := countsFor(t, table, map[string]int{"famA": famA, "famB": famB, "famC": 3})
			est, err := New(table).Predict(counts, 1000)
			require.NoError(t, err)
			assert.False(t, math.IsNaN(est.AGS) || math.IsInf(est.AGS, 0))
			assert.GreaterOrEqual(t, est.AGS, 0.0)
		}
	}
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "zero-count", ZeroCount.String())
	assert.Equal(t, "outlier", Outlier.String())
}
