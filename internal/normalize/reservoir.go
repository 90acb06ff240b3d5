package normalize

import (
	"time"

	"golang.org/x/exp/rand"
)

// Reservoir keeps a uniform random sample of fixed size over a stream of
// unknown length (algorithm R). Memory is bounded by the sample size.
type Reservoir[T any] struct {
	size  int
	seen  int
	items []T
	rng   *rand.Rand
}

// NewReservoir creates a reservoir of the given size. A zero seed draws one
// from the clock.
func NewReservoir[T any](size int, seed uint64) *Reservoir[T] {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	capacity := size
	if capacity > 1<<16 {
		capacity = 1 << 16
	}
	return &Reservoir[T]{
		size:  size,
		items: make([]T, 0, capacity),
		rng:   rand.New(rand.NewSource(seed)),
	}
}

// Offer presents the next stream element. The k-th element is kept with
// probability size/k, replacing a uniformly chosen member.
func (r *Reservoir[T]) Offer(item T) {
	r.seen++
	if len(r.items) < r.size {
		r.items = append(r.items, item)
		return
	}
	if j := r.rng.Int63n(int64(r.seen)); j < int64(r.size) {
		r.items[j] = item
	}
}

// Seen returns the number of elements offered so far.
func (r *Reservoir[T]) Seen() int {
	return r.seen
}

// Items returns the current sample, min(size, Seen()) elements.
func (r *Reservoir[T]) Items() []T {
	return r.items
}
