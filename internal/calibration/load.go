package calibration

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/aria-lang/census-go/internal/errs"
)

// File names inside a calibration data directory.
const (
	ReadLengthFile   = "read_len.map"
	ParamsFile       = "pars.map"
	CoefficientsFile = "coefficients.map"
	WeightsFile      = "weights.map"
	GeneFamilyFile   = "gene_fam.map"
)

// ReadLengths loads the supported read lengths from dir, sorted ascending.
func ReadLengths(dir string) ([]int, error) {
	path := filepath.Join(dir, ReadLengthFile)
	var lengths []int
	err := scanTable(path, 1, func(lineNum int, fields []string) error {
		n, err := strconv.Atoi(fields[0])
		if err != nil || n <= 0 {
			return fmt.Errorf("line %d: invalid read length %q", lineNum, fields[0])
		}
		lengths = append(lengths, n)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(lengths) == 0 {
		return nil, errs.Configf("", nil, "%s lists no read lengths", path)
	}
	sort.Ints(lengths)
	return lengths, nil
}

// Supported reports whether readLength is in lengths.
func Supported(lengths []int, readLength int) bool {
	for _, n := range lengths {
		if n == readLength {
			return true
		}
	}
	return false
}

// Load reads the calibration tables of dir for one read length.
func Load(dir string, readLength int) (*Table, error) {
	lengths, err := ReadLengths(dir)
	if err != nil {
		return nil, err
	}
	if !Supported(lengths, readLength) {
		return nil, errs.Configf("read_length", readLength, "choose a supported read length: %v", lengths)
	}

	entries := make(map[string]*Entry)
	order := make([]string, 0)

	err = scanTable(filepath.Join(dir, ParamsFile), 3, func(lineNum int, f []string) error {
		rl, err := strconv.Atoi(f[1])
		if err != nil {
			return fmt.Errorf("line %d: invalid read length %q", lineNum, f[1])
		}
		if rl != readLength {
			return nil
		}
		if _, dup := entries[f[0]]; dup {
			return fmt.Errorf("line %d: duplicate entry for family %s", lineNum, f[0])
		}
		e := &Entry{Family: f[0], ReadLength: rl}
		if e.MinScore, err = parseFloat(lineNum, "min_score", f[2]); err != nil {
			return err
		}
		if len(f) > 3 {
			if e.MinAlignLength, err = strconv.Atoi(f[3]); err != nil {
				return fmt.Errorf("line %d: invalid min_aln_len %q", lineNum, f[3])
			}
		}
		entries[f[0]] = e
		order = append(order, f[0])
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, errs.Configf("read_length", readLength, "no calibration entries in %s", ParamsFile)
	}

	seen := make(map[string]bool)
	err = scanTable(filepath.Join(dir, CoefficientsFile), 3+NumCoefficients, func(lineNum int, f []string) error {
		e, ok, err := lookupRow(entries, seen, readLength, lineNum, f)
		if err != nil || !ok {
			return err
		}
		if e.LengthCorrection, err = parseFloat(lineNum, "length_correction", f[2]); err != nil {
			return err
		}
		for i := 0; i < NumCoefficients; i++ {
			if e.Coefficients[i], err = parseFloat(lineNum, "coefficient", f[3+i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := requireAll(order, seen, CoefficientsFile, readLength); err != nil {
		return nil, err
	}

	seen = make(map[string]bool)
	err = scanTable(filepath.Join(dir, WeightsFile), 3, func(lineNum int, f []string) error {
		e, ok, err := lookupRow(entries, seen, readLength, lineNum, f)
		if err != nil || !ok {
			return err
		}
		e.Weight, err = parseFloat(lineNum, "weight", f[2])
		return err
	})
	if err != nil {
		return nil, err
	}
	if err := requireAll(order, seen, WeightsFile, readLength); err != nil {
		return nil, err
	}

	geneFamily, err := loadGeneFamilies(filepath.Join(dir, GeneFamilyFile))
	if err != nil {
		return nil, err
	}

	list := make([]Entry, 0, len(order))
	for _, fam := range order {
		list = append(list, *entries[fam])
	}
	return NewTable(readLength, list, geneFamily)
}

// lookupRow resolves the (family, read length) row of a secondary table.
// ok is false for rows of other read lengths.
func lookupRow(entries map[string]*Entry, seen map[string]bool, readLength, lineNum int, f []string) (*Entry, bool, error) {
	rl, err := strconv.Atoi(f[1])
	if err != nil {
		return nil, false, fmt.Errorf("line %d: invalid read length %q", lineNum, f[1])
	}
	if rl != readLength {
		return nil, false, nil
	}
	e, ok := entries[f[0]]
	if !ok {
		return nil, false, fmt.Errorf("line %d: family %s has no score threshold", lineNum, f[0])
	}
	if seen[f[0]] {
		return nil, false, fmt.Errorf("line %d: duplicate entry for family %s", lineNum, f[0])
	}
	seen[f[0]] = true
	return e, true, nil
}

func requireAll(families []string, seen map[string]bool, file string, readLength int) error {
	for _, fam := range families {
		if !seen[fam] {
			return errs.Configf("family", fam, "missing from %s for read length %d", file, readLength)
		}
	}
	return nil
}

// loadGeneFamilies reads the optional gene to family map.
func loadGeneFamilies(path string) (map[string]string, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	m := make(map[string]string)
	err := scanTable(path, 2, func(_ int, f []string) error {
		m[f[0]] = f[1]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func parseFloat(lineNum int, name, s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("line %d: invalid %s %q", lineNum, name, s)
	}
	return v, nil
}

// scanTable calls fn for every data line of a whitespace-separated table.
// Lines starting with '#' and blank lines are skipped; lines with fewer
// than minFields fields are rejected. Parse failures become
// ConfigurationErrors naming the file.
func scanTable(path string, minFields int, fn func(lineNum int, fields []string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errs.Configf("", nil, "opening calibration file: %v", err)
	}
	defer f.Close()

	if err := scanLines(f, minFields, fn); err != nil {
		if _, ok := err.(*errs.ConfigurationError); ok {
			return err
		}
		return errs.Configf("", nil, "%s: %v", path, err)
	}
	return nil
}

func scanLines(r io.Reader, minFields int, fn func(lineNum int, fields []string) error) error {
	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < minFields {
			return fmt.Errorf("line %d: expected at least %d fields, got %d", lineNum, minFields, len(fields))
		}
		if err := fn(lineNum, fields); err != nil {
			return err
		}
	}
	return scanner.Err()
}
