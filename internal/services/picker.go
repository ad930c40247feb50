package services

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"sync"
)

// ItemPicker selects an item id from a course's fixed id range.
// Implementations must be safe for concurrent use.
type ItemPicker interface {
	// Pick returns a uniformly distributed item id in [1, rangeSize].
	Pick(rangeSize int64) int64
}

type randomPicker struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewPicker returns an ItemPicker seeded from crypto/rand, so clients cannot
// pre-compute favorable draws from process start time.
func NewPicker() (ItemPicker, error) {
	var seed [16]byte
	if _, err := crand.Read(seed[:]); err != nil {
		return nil, fmt.Errorf("read picker seed: %w", err)
	}

	src := rand.NewPCG(
		binary.LittleEndian.Uint64(seed[:8]),
		binary.LittleEndian.Uint64(seed[8:]),
	)

	return &randomPicker{rng: rand.New(src)}, nil
}

func (p *randomPicker) Pick(rangeSize int64) int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.Int64N(rangeSize) + 1
}
