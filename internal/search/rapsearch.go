package search

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/aria-lang/census-go/internal/errs"
)

// Rapsearch runs the RAPsearch2 protein aligner as a subprocess.
type Rapsearch struct {
	// Binary is the aligner executable.
	Binary string
	// Workers is passed as the aligner's thread count.
	Workers int
	// OutDir receives the aligner's output files.
	OutDir string
	// Timeout bounds the subprocess; 0 leaves it to ctx.
	Timeout time.Duration
	Logger  *slog.Logger
}

// Args returns the command line for one search.
func (r *Rapsearch) Args(readsPath, dbPath, outPrefix string) []string {
	workers := r.Workers
	if workers < 1 {
		workers = 1
	}
	return []string{
		"-q", readsPath,
		"-d", dbPath,
		"-o", outPrefix,
		"-z", strconv.Itoa(workers),
		"-t", "n",
		"-b", "0",
	}
}

// Search runs the aligner and parses its m8 output.
func (r *Rapsearch) Search(ctx context.Context, readsPath, dbPath string) ([]Hit, error) {
	if r.Binary == "" {
		return nil, errs.Search("run", fmt.Errorf("no aligner binary configured"))
	}
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	outPrefix := filepath.Join(r.OutDir, "hits")
	cmd := exec.CommandContext(ctx, r.Binary, r.Args(readsPath, dbPath, outPrefix)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()
	logger.Debug("starting search", "binary", r.Binary, "args", cmd.Args[1:])

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			err = fmt.Errorf("%w (%v)", ctx.Err(), err)
		}
		if msg := bytes.TrimSpace(stderr.Bytes()); len(msg) > 0 {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return nil, errs.Search("run", err)
	}
	logger.Debug("search finished", "elapsed", time.Since(start))

	return ParseM8File(outPrefix + ".m8")
}
