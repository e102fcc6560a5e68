package naming

import (
	"sync"

	"github.com/google/uuid"
)

type counterKey struct {
	shape ShapeType
	opID  uuid.UUID
}

// Counter hands out disambiguation counters. Each (ShapeType, operation
// invocation) pair has its own sequence starting at 1. The Builder uses a
// fresh Counter for every populate pass.
type Counter struct {
	mu   sync.Mutex
	last map[counterKey]uint32
}

// NewCounter returns an empty allocator.
func NewCounter() *Counter {
	return &Counter{last: make(map[counterKey]uint32)}
}

// Next returns the next counter for shape within the invocation opID.
func (c *Counter) Next(shape ShapeType, opID uuid.UUID) uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := counterKey{shape: shape, opID: opID}
	c.last[k]++
	return c.last[k]
}
