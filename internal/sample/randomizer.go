// Package sample produces bounded, representative samples of parallel
// corpora: the first n records, a uniform sample of the remainder, and the
// last n records, rendered as a compressed tab-separated artifact.
package sample

import (
	"math/rand"
	"sync"
	"time"
)

// Tuple is one aligned row across all columns, in sorted language order.
type Tuple []string

// Randomizer implements the head/middle/tail sampling contract.
// Head and tail are deterministic; middle is a uniform reservoir sample
// whose determinism depends on the seed. A single Randomizer is shared by
// concurrent extractions, so draws from the underlying source are
// serialized.
type Randomizer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomizer creates a Randomizer. A nil seed means time-seeded;
// callers needing reproducible middle samples pass a fixed seed.
func NewRandomizer(seed *int64) *Randomizer {
	s := time.Now().UnixNano()
	if seed != nil {
		s = *seed
	}
	return &Randomizer{rng: rand.New(rand.NewSource(s))}
}

func (r *Randomizer) intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Intn(n)
}

// Sample draws from the iterator until it is exhausted and returns
// (head, middle, tail):
//
//   - head: the first up-to-n tuples, in original order
//   - tail: the last up-to-n tuples after head, in original order
//   - middle: a uniform sample of up to n tuples from everything between,
//     in no particular order
//
// A tuple appears in at most one of the three parts. When the input has
// no more than n tuples, head holds them all and middle and tail are
// empty.
func (r *Randomizer) Sample(n int, next func() (Tuple, bool)) (head, middle, tail []Tuple) {
	if n <= 0 {
		return nil, nil, nil
	}

	head = make([]Tuple, 0, n)
	for len(head) < n {
		t, ok := next()
		if !ok {
			return head, nil, nil
		}
		head = append(head, t)
	}

	// Ring buffer of the most recent n tuples: whatever remains in it at
	// EOF is the tail. A tuple evicted from the ring can no longer be in
	// the tail, so it becomes a reservoir candidate for the middle.
	ring := make([]Tuple, 0, n)
	start := 0
	seen := 0

	for {
		t, ok := next()
		if !ok {
			break
		}
		if len(ring) < n {
			ring = append(ring, t)
			continue
		}

		evicted := ring[start]
		ring[start] = t
		start = (start + 1) % n

		seen++
		if len(middle) < n {
			middle = append(middle, evicted)
		} else if j := r.intn(seen); j < n {
			middle[j] = evicted
		}
	}

	tail = make([]Tuple, 0, len(ring))
	for i := 0; i < len(ring); i++ {
		tail = append(tail, ring[(start+i)%len(ring)])
	}
	return head, middle, tail
}
