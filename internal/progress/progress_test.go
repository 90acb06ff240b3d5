package progress

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisabledIsNoop(t *testing.T) {
	var buf bytes.Buffer
	b := NewWriter(false, &buf, "reads")
	for i := 0; i < 5; i++ {
		b.Increment()
	}
	b.Finish()
	assert.Empty(t, buf.String())

	var nilBar *Bar
	assert.NotPanics(t, func() {
		nilBar.Increment()
		nilBar.Finish()
	})
}

func TestEnabledSpinner(t *testing.T) {
	var buf bytes.Buffer
	b := NewWriter(true, &buf, "reads")
	assert.NotPanics(t, func() {
		for i := 0; i < 100; i++ {
			b.Increment()
		}
		b.Finish()
	})
}
