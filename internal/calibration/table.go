// Package calibration holds the per-family, read-length-specific reference
// data of the genome-size model.
//
// A Table is built once for the run's read length and is read-only
// afterwards; it is shared by the classifier, the aggregator and the
// predictor.
package calibration

import (
	"fmt"
	"sort"

	"github.com/aria-lang/census-go/internal/errs"
)

// NumCoefficients is the size of each family's regression vector.
const NumCoefficients = 3

// Entry is the calibration data of one gene family at one read length.
type Entry struct {
	Family     string
	ReadLength int
	// MinScore is the lowest alignment score accepted for the family.
	MinScore float64
	// MinAlignLength is the shortest alignment accepted; 0 disables the check.
	MinAlignLength int
	// LengthCorrection multiplies the raw hit count.
	LengthCorrection float64
	Coefficients     [NumCoefficients]float64
	// Weight is the family's share in the ensemble average; 0 means the
	// family has no usable model.
	Weight float64
}

// HasModel reports whether the family takes part in genome-size prediction.
func (e Entry) HasModel() bool {
	return e.Weight > 0
}

func (e Entry) validate() error {
	switch {
	case e.Family == "":
		return errs.Configf("family", e.Family, "family identifier is empty")
	case e.LengthCorrection < 0:
		return errs.Configf("length_correction", e.LengthCorrection, "family %s: must be non-negative", e.Family)
	case e.Weight < 0:
		return errs.Configf("weight", e.Weight, "family %s: must be non-negative", e.Family)
	case e.MinAlignLength < 0:
		return errs.Configf("min_aln_len", e.MinAlignLength, "family %s: must be non-negative", e.Family)
	}
	return nil
}

// Table is the immutable calibration lookup for a single read length.
type Table struct {
	readLength int
	entries    map[string]Entry
	families   []string
	geneFamily map[string]string
}

// NewTable builds a table from entries, which must all carry readLength
// and name each family once. geneFamily maps search targets to families and
// may be nil.
func NewTable(readLength int, entries []Entry, geneFamily map[string]string) (*Table, error) {
	if len(entries) == 0 {
		return nil, errs.Configf("read_length", readLength, "no calibration entries")
	}

	t := &Table{
		readLength: readLength,
		entries:    make(map[string]Entry, len(entries)),
		families:   make([]string, 0, len(entries)),
		geneFamily: make(map[string]string, len(geneFamily)),
	}
	for _, e := range entries {
		if e.ReadLength != readLength {
			return nil, errs.Configf("read_length", e.ReadLength,
				"family %s: entry does not belong to read length %d", e.Family, readLength)
		}
		if err := e.validate(); err != nil {
			return nil, err
		}
		if _, dup := t.entries[e.Family]; dup {
			return nil, errs.Configf("family", e.Family, "duplicate entry for read length %d", readLength)
		}
		t.entries[e.Family] = e
		t.families = append(t.families, e.Family)
	}
	sort.Strings(t.families)

	for gene, fam := range geneFamily {
		t.geneFamily[gene] = fam
	}
	return t, nil
}

// ReadLength returns the read length the table was built for.
func (t *Table) ReadLength() int {
	return t.readLength
}

// Len returns the number of families.
func (t *Table) Len() int {
	return len(t.families)
}

// Families returns the family identifiers in ascending order.
func (t *Table) Families() []string {
	out := make([]string, len(t.families))
	copy(out, t.families)
	return out
}

// Entry looks up a family.
func (t *Table) Entry(family string) (Entry, bool) {
	e, ok := t.entries[family]
	return e, ok
}

// FamilyOf resolves a search target (a gene, or a family identifier) to a
// family of the table.
func (t *Table) FamilyOf(target string) (string, bool) {
	if fam, ok := t.geneFamily[target]; ok {
		target = fam
	}
	_, ok := t.entries[target]
	return target, ok
}

func (t *Table) String() string {
	return fmt.Sprintf("CalibrationTable { read_length: %d, families: %d }", t.readLength, len(t.families))
}
