// Package search connects the pipeline to the external homology search.
//
// The search itself is opaque: an Adapter receives a FASTA file of
// normalized reads and a database path and returns raw hits. Failures are
// reported as errs.SearchAdapterError and never retried here.
package search

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/shenwei356/xopen"

	"github.com/aria-lang/census-go/internal/errs"
)

// Hit is one alignment of a read against a reference gene.
type Hit struct {
	ReadID      string
	Target      string
	Score       float64
	AlignLength int
}

// Adapter runs a homology search.
type Adapter interface {
	Search(ctx context.Context, readsPath, dbPath string) ([]Hit, error)
}

// m8 column indexes (BLAST tabular, 12 columns).
const (
	colQuery    = 0
	colTarget   = 1
	colAlignLen = 3
	colBitScore = 11
	m8Columns   = 12
)

// ParseM8 reads BLAST-tabular hits. Comment and blank lines are skipped.
func ParseM8(r io.Reader) ([]Hit, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	hits := make([]Hit, 0)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if len(line) == 0 || line[0] == '#' {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) < m8Columns {
			return nil, errs.Search("parse", fmt.Errorf("line %d: expected %d columns, got %d", lineNum, m8Columns, len(fields)))
		}

		alnLen, err := strconv.Atoi(strings.TrimSpace(fields[colAlignLen]))
		if err != nil || alnLen < 0 {
			return nil, errs.Search("parse", fmt.Errorf("line %d: invalid alignment length %q", lineNum, fields[colAlignLen]))
		}
		score, err := strconv.ParseFloat(strings.TrimSpace(fields[colBitScore]), 64)
		if err != nil || math.IsNaN(score) || math.IsInf(score, 0) {
			return nil, errs.Search("parse", fmt.Errorf("line %d: invalid score %q", lineNum, fields[colBitScore]))
		}
		query := strings.TrimSpace(fields[colQuery])
		target := strings.TrimSpace(fields[colTarget])
		if query == "" || target == "" {
			return nil, errs.Search("parse", fmt.Errorf("line %d: empty query or target", lineNum))
		}

		hits = append(hits, Hit{
			ReadID:      query,
			Target:      target,
			Score:       score,
			AlignLength: alnLen,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, errs.Search("read", err)
	}
	return hits, nil
}

// ParseM8File opens path (optionally compressed) and parses it.
func ParseM8File(path string) ([]Hit, error) {
	in, err := xopen.Ropen(path)
	if err != nil {
		return nil, errs.Search("open", err)
	}
	defer in.Close()
	return ParseM8(in)
}

// File replays a precomputed hit table instead of running a search.
type File struct {
	Path string
}

// Search ignores its arguments and parses f.Path.
func (f File) Search(ctx context.Context, _, _ string) ([]Hit, error) {
	if err := ctx.Err(); err != nil {
		return nil, errs.Search("replay", err)
	}
	return ParseM8File(f.Path)
}
