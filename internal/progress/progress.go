// Package progress shows a record counter on stderr while the input is
// streamed.
package progress

import (
	"io"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
)

// Bar is a throttled progress indicator. The zero value and a Bar built
// with enabled=false are no-ops.
type Bar struct {
	bar *progressbar.ProgressBar
}

// New returns a spinner on stderr. The input size is unknown up front.
func New(enabled bool, description string) *Bar {
	return NewWriter(enabled, os.Stderr, description)
}

// NewWriter is New with an explicit destination.
func NewWriter(enabled bool, w io.Writer, description string) *Bar {
	if !enabled {
		return &Bar{}
	}
	return &Bar{bar: progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionThrottle(250*time.Millisecond),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSpinnerType(14),
	)}
}

// Increment advances by one.
func (b *Bar) Increment() {
	if b == nil || b.bar == nil {
		return
	}
	_ = b.bar.Add(1)
}

// Finish stops rendering.
func (b *Bar) Finish() {
	if b == nil || b.bar == nil {
		return
	}
	_ = b.bar.Finish()
}
