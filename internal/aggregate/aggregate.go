// Package aggregate turns classified hits into per-family counts corrected
// for the family's detection bias at the active read length.
package aggregate

import (
	"fmt"

	"github.com/aria-lang/census-go/internal/calibration"
	"github.com/aria-lang/census-go/internal/classify"
)

// FamilyCount is one family's observed and corrected hit count.
type FamilyCount struct {
	Family     string
	Raw        int
	Normalized float64
}

// Counts holds one FamilyCount per table family, zero-hit families
// included, in ascending family order.
type Counts struct {
	Families []FamilyCount
	index    map[string]int
}

// Get returns the count of a family.
func (c *Counts) Get(family string) (FamilyCount, bool) {
	i, ok := c.index[family]
	if !ok {
		return FamilyCount{}, false
	}
	return c.Families[i], true
}

// TotalRaw sums the raw counts.
func (c *Counts) TotalRaw() int {
	total := 0
	for _, fc := range c.Families {
		total += fc.Raw
	}
	return total
}

// Aggregate counts hits per family and applies each family's length
// correction factor. A hit for a family missing from the table is an
// error.
func Aggregate(hits []classify.Hit, table *calibration.Table) (*Counts, error) {
	families := table.Families()
	c := &Counts{
		Families: make([]FamilyCount, len(families)),
		index:    make(map[string]int, len(families)),
	}
	for i, fam := range families {
		c.Families[i] = FamilyCount{Family: fam}
		c.index[fam] = i
	}

	for _, h := range hits {
		i, ok := c.index[h.Family]
		if !ok {
			return nil, fmt.Errorf("read %s assigned to family %s, which has no calibration entry", h.ReadID, h.Family)
		}
		c.Families[i].Raw++
	}

	for i := range c.Families {
		entry, _ := table.Entry(c.Families[i].Family)
		c.Families[i].Normalized = float64(c.Families[i].Raw) * entry.LengthCorrection
	}
	return c, nil
}
