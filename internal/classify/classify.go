// Package classify resolves each read's raw hits to at most one gene family.
//
// A hit is a candidate when its score reaches the family's threshold for
// the active read length (and its alignment reaches the family's minimum
// length, when one is set). The candidate with the strictly highest score
// wins; equal scores go to the lowest family identifier. Reads without a
// candidate are unclassified and dropped.
package classify

import (
	"sort"

	"github.com/aria-lang/census-go/internal/calibration"
	"github.com/aria-lang/census-go/internal/search"
)

// Hit is a read's resolved family assignment.
type Hit struct {
	ReadID string
	Family string
	Score  float64
}

// Summary counts what happened to the input hits.
type Summary struct {
	RawHits        int
	ReadsWithHits  int
	Classified     int
	UnknownTargets int
	BelowThreshold int
}

// Unclassified returns the number of reads that had hits but no accepted one.
func (s Summary) Unclassified() int {
	return s.ReadsWithHits - s.Classified
}

type candidate struct {
	family string
	score  float64
}

// better reports whether c beats the current best.
func (c candidate) better(best candidate) bool {
	if c.score != best.score {
		return c.score > best.score
	}
	return c.family < best.family
}

// Classify assigns each read to its single best family. The result is
// sorted by read ID; input order does not matter.
func Classify(hits []search.Hit, table *calibration.Table) ([]Hit, Summary) {
	summary := Summary{RawHits: len(hits)}
	best := make(map[string]candidate)
	seen := make(map[string]bool)

	for _, h := range hits {
		seen[h.ReadID] = true

		family, ok := table.FamilyOf(h.Target)
		if !ok {
			summary.UnknownTargets++
			continue
		}
		entry, _ := table.Entry(family)
		// NaN fails every comparison, so test for acceptance.
		if !(h.Score >= entry.MinScore) || h.AlignLength < entry.MinAlignLength {
			summary.BelowThreshold++
			continue
		}

		c := candidate{family: family, score: h.Score}
		if cur, ok := best[h.ReadID]; !ok || c.better(cur) {
			best[h.ReadID] = c
		}
	}

	out := make([]Hit, 0, len(best))
	for id, c := range best {
		out = append(out, Hit{ReadID: id, Family: c.family, Score: c.score})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReadID < out[j].ReadID })

	summary.ReadsWithHits = len(seen)
	summary.Classified = len(out)
	return out, summary
}
