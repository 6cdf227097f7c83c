// internal/poller/cache.go
package poller

import "sync/atomic"

const cacheValid = 1 << 16

// Cache holds the last normalized register value read per direction.
// Loads never block and always observe a complete value.
type Cache struct {
	regs [2]atomic.Uint32
}

// Load returns the cached value and whether a read has succeeded yet.
func (c *Cache) Load(d Direction) (uint16, bool) {
	v := c.regs[d].Load()
	return uint16(v), v&cacheValid != 0
}

// Store records a freshly read value. Only the poller writes in production.
func (c *Cache) Store(d Direction, v uint16) {
	c.regs[d].Store(cacheValid | uint32(v))
}

// Invalidate forgets the cached value until the next successful read.
func (c *Cache) Invalidate(d Direction) {
	c.regs[d].Store(0)
}
