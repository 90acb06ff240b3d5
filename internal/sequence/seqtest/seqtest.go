// Package seqtest writes read files for tests.
package seqtest

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"golang.org/x/exp/rand"
)

// Record is one test read. Qual is left empty for FASTA output.
type Record struct {
	Name string
	Seq  string
	Qual string
}

// RandomBases returns n uniformly drawn ACGT bases.
func RandomBases(rng *rand.Rand, n int) string {
	const alphabet = "ACGT"
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[rng.Intn(len(alphabet))]
	}
	return string(b)
}

// Random returns count reads of the given length with every quality
// character set to q.
func Random(seed uint64, count, length int, q byte) []Record {
	rng := rand.New(rand.NewSource(seed))
	recs := make([]Record, count)
	for i := range recs {
		recs[i] = Record{
			Name: "read" + strconv.Itoa(i+1),
			Seq:  RandomBases(rng, length),
			Qual: strings.Repeat(string(q), length),
		}
	}
	return recs
}

// WriteFASTQ writes recs to name under a temporary directory.
func WriteFASTQ(t testing.TB, name string, recs []Record) string {
	t.Helper()
	var b strings.Builder
	for _, r := range recs {
		b.WriteString("@" + r.Name + "\n" + r.Seq + "\n+\n" + r.Qual + "\n")
	}
	return write(t, name, b.String())
}

// WriteFASTA writes recs as FASTA to name under a temporary directory.
func WriteFASTA(t testing.TB, name string, recs []Record) string {
	t.Helper()
	var b strings.Builder
	for _, r := range recs {
		b.WriteString(">" + r.Name + "\n" + r.Seq + "\n")
	}
	return write(t, name, b.String())
}

// WriteRaw writes content verbatim.
func WriteRaw(t testing.TB, name, content string) string {
	t.Helper()
	return write(t, name, content)
}

func write(t testing.TB, name, content string) string {
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}
