package testutil

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// SequentialIDs hands out predictable UUIDs for tests:
// 00000000-0000-0000-0000-000000000001, ...002, and so on.
//
// Thread-safety: all methods are safe for concurrent use.
type SequentialIDs struct {
	mu  sync.Mutex
	seq int64
}

// NewSequentialIDs creates a generator whose first ID ends in 1.
func NewSequentialIDs() *SequentialIDs {
	return &SequentialIDs{}
}

// Next returns the next ID.
func (g *SequentialIDs) Next() uuid.UUID {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return uuid.MustParse(fmt.Sprintf("00000000-0000-0000-0000-%012d", g.seq))
}

// Reset starts the sequence over.
func (g *SequentialIDs) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq = 0
}
