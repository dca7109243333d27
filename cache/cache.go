package cache

// A Cache is the private data cache of one processor.
type Cache struct {
	pid           uint32
	associativity int
	victimFinder  VictimFinder
	invalidator   Invalidator

	Sets []Set `json:"sets"`
}

// NewCache creates an empty cache owned by the processor pid.
func NewCache(
	pid uint32,
	numSets, associativity int,
	victimFinder VictimFinder,
	invalidator Invalidator,
) *Cache {
	c := &Cache{
		pid:           pid,
		associativity: associativity,
		victimFinder:  victimFinder,
		invalidator:   invalidator,
		Sets:          make([]Set, numSets),
	}

	for i := range c.Sets {
		c.Sets[i] = NewSet(associativity)
	}

	return c
}

// PID returns the processor that owns the cache.
func (c *Cache) PID() uint32 {
	return c.pid
}

// NumSets returns the number of sets.
func (c *Cache) NumSets() int {
	return len(c.Sets)
}

// Associativity returns the number of lines per set.
func (c *Cache) Associativity() int {
	return c.associativity
}

// Fetch makes sure that the line is present in the given set.
func (c *Cache) Fetch(
	setIndex, tag, addr uint64,
	replace bool,
) (victim Line, evicted bool) {
	return c.Sets[setIndex].FetchSingleLine(
		c.pid, tag, addr, c.victimFinder, c.invalidator, replace)
}

// Contains returns true if the tag is present in the set. It does not change
// the LRU order.
func (c *Cache) Contains(setIndex, tag uint64) bool {
	return c.Sets[setIndex].Contains(tag)
}

// CachedLines returns the number of lines that hold data.
func (c *Cache) CachedLines() int {
	n := 0

	for _, s := range c.Sets {
		for _, l := range s.Lines {
			if l.IsCached() {
				n++
			}
		}
	}

	return n
}
