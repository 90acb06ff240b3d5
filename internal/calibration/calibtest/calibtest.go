// Package calibtest writes calibration data directories for tests.
package calibtest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aria-lang/census-go/internal/calibration"
)

// Write lays out the calibration files for entries under a fresh temporary
// directory and returns its path. genes may be nil.
func Write(t testing.TB, readLengths []int, entries []calibration.Entry, genes map[string]string) string {
	t.Helper()
	dir := t.TempDir()

	var rl, pars, coeffs, weights strings.Builder
	rl.WriteString("# supported read lengths\n")
	for _, n := range readLengths {
		fmt.Fprintf(&rl, "%d\n", n)
	}
	pars.WriteString("# family\tread_length\tmin_score\tmin_aln_len\n")
	coeffs.WriteString("# family\tread_length\tlength_correction\tc0\tc1\tc2\n")
	weights.WriteString("# family\tread_length\tweight\n")
	for _, e := range entries {
		fmt.Fprintf(&pars, "%s\t%d\t%g\t%d\n", e.Family, e.ReadLength, e.MinScore, e.MinAlignLength)
		fmt.Fprintf(&coeffs, "%s\t%d\t%g\t%g\t%g\t%g\n", e.Family, e.ReadLength, e.LengthCorrection,
			e.Coefficients[0], e.Coefficients[1], e.Coefficients[2])
		fmt.Fprintf(&weights, "%s\t%d\t%g\n", e.Family, e.ReadLength, e.Weight)
	}

	files := map[string]string{
		calibration.ReadLengthFile:   rl.String(),
		calibration.ParamsFile:       pars.String(),
		calibration.CoefficientsFile: coeffs.String(),
		calibration.WeightsFile:      weights.String(),
	}
	if genes != nil {
		var gb strings.Builder
		for gene, fam := range genes {
			fmt.Fprintf(&gb, "%s\t%s\n", gene, fam)
		}
		files[calibration.GeneFamilyFile] = gb.String()
	}

	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
	}
	return dir
}

// Entries returns n families ("fam01".."famNN") at readLength, each with the
// same threshold, unit length correction, weight 1 and the linear model
// estimate = slope * totalReads / count.
func Entries(n, readLength int, minScore, slope float64) []calibration.Entry {
	out := make([]calibration.Entry, n)
	for i := range out {
		out[i] = calibration.Entry{
			Family:           fmt.Sprintf("fam%02d", i+1),
			ReadLength:       readLength,
			MinScore:         minScore,
			LengthCorrection: 1,
			Coefficients:     [calibration.NumCoefficients]float64{0, slope, 0},
			Weight:           1,
		}
	}
	return out
}
