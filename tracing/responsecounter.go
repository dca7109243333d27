package tracing

import (
	"sync"

	"github.com/sarchlab/dirsim/hooking"
	"github.com/sarchlab/dirsim/profile"
)

type responseKey struct {
	kind hooking.AccessKind
	rsp  profile.Response
}

// ResponseCounter counts accesses by kind and response, together with the
// evictions and the pushes.
type ResponseCounter struct {
	lock      sync.Mutex
	counts    map[responseKey]uint64
	evictions uint64
	pushes    uint64
}

// NewResponseCounter creates a new ResponseCounter.
func NewResponseCounter() *ResponseCounter {
	return &ResponseCounter{
		counts: make(map[responseKey]uint64),
	}
}

// TraceAccess counts an access.
func (c *ResponseCounter) TraceAccess(a hooking.Access) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.counts[responseKey{a.Kind, a.Outcome.Response}]++
}

// TraceEvict counts an eviction.
func (c *ResponseCounter) TraceEvict(_ hooking.Eviction) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.evictions++
}

// TracePush counts a push.
func (c *ResponseCounter) TracePush(_ hooking.Push) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.pushes++
}

// Count returns the number of accesses of a kind that got the response.
func (c *ResponseCounter) Count(
	kind hooking.AccessKind,
	rsp profile.Response,
) uint64 {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.counts[responseKey{kind, rsp}]
}

// Accesses returns the number of accesses counted.
func (c *ResponseCounter) Accesses() uint64 {
	c.lock.Lock()
	defer c.lock.Unlock()

	var n uint64
	for _, v := range c.counts {
		n += v
	}

	return n
}

// Evictions returns the number of evictions counted.
func (c *ResponseCounter) Evictions() uint64 {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.evictions
}

// Pushes returns the number of pushes counted.
func (c *ResponseCounter) Pushes() uint64 {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.pushes
}
