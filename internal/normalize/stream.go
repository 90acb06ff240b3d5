package normalize

import (
	"io"

	"github.com/zeebo/xxh3"

	"github.com/aria-lang/census-go/internal/quality"
	"github.com/aria-lang/census-go/internal/sequence"
)

// Source yields reads one at a time and returns io.EOF when exhausted.
// Sources are single pass; re-reading means re-opening the file.
type Source interface {
	Next() (*sequence.Read, error)
}

// Stage transforms a read or drops it by returning nil.
type Stage func(r *sequence.Read) *sequence.Read

type chained struct {
	src    Source
	stages []Stage
}

// Chain applies stages lazily, in order, to every read of src.
func Chain(src Source, stages ...Stage) Source {
	return &chained{src: src, stages: stages}
}

func (c *chained) Next() (*sequence.Read, error) {
next:
	for {
		r, err := c.src.Next()
		if err != nil {
			return nil, err
		}
		for _, stage := range c.stages {
			if r = stage(r); r == nil {
				continue next
			}
		}
		return r, nil
	}
}

// SliceSource serves reads from memory.
type SliceSource struct {
	Reads []*sequence.Read
	pos   int
}

// Next implements Source.
func (s *SliceSource) Next() (*sequence.Read, error) {
	if s.pos >= len(s.Reads) {
		return nil, io.EOF
	}
	r := s.Reads[s.pos]
	s.pos++
	return r, nil
}

// TrimTo drops reads shorter than n and cuts the rest to their first n
// bases.
func TrimTo(n int, dropped *int) Stage {
	return func(r *sequence.Read) *sequence.Read {
		if r.Len() < n {
			*dropped++
			return nil
		}
		if r.Len() == n {
			return r
		}
		trimmed, err := r.Trim(n)
		if err != nil {
			*dropped++
			return nil
		}
		return trimmed
	}
}

// MaxAmbiguous drops reads whose non-ACGT fraction exceeds max.
func MaxAmbiguous(max float64, dropped *int) Stage {
	return func(r *sequence.Read) *sequence.Read {
		if r.AmbiguousFraction() > max {
			*dropped++
			return nil
		}
		return r
	}
}

// MinQuality drops reads failing t. Reads without scores pass.
func MinQuality(t quality.Threshold, dropped *int) Stage {
	return func(r *sequence.Read) *sequence.Read {
		if !r.HasQuality() {
			return r
		}
		if ok, _ := t.Check(quality.Wrap(r.Quality)); !ok {
			*dropped++
			return nil
		}
		return r
	}
}

// Dedup drops reads whose bases were already seen by this stage. The set
// of 128-bit sequence hashes grows for the life of the stage.
func Dedup(dropped *int) Stage {
	seen := make(map[xxh3.Uint128]struct{})
	return func(r *sequence.Read) *sequence.Read {
		h := xxh3.HashString128(r.Bases)
		if _, dup := seen[h]; dup {
			*dropped++
			return nil
		}
		seen[h] = struct{}{}
		return r
	}
}

// Observe calls fn for every read that reaches it.
func Observe(fn func(*sequence.Read)) Stage {
	return func(r *sequence.Read) *sequence.Read {
		fn(r)
		return r
	}
}
