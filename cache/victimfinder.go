package cache

// A VictimFinder decides which line of a set should be replaced.
type VictimFinder interface {
	FindVictim(set *Set) int
}

// LRUVictimFinder evicts the least recently used line.
type LRUVictimFinder struct {
}

// NewLRUVictimFinder returns a newly constructed lru evictor
func NewLRUVictimFinder() *LRUVictimFinder {
	e := new(LRUVictimFinder)
	return e
}

// FindVictim returns the way index of the line with the smallest age. Among
// lines of the same age, empty lines go first, then the lowest way index.
func (e *LRUVictimFinder) FindVictim(set *Set) int {
	victim := 0

	for i := 1; i < len(set.Lines); i++ {
		line := set.Lines[i]
		current := set.Lines[victim]

		if line.LRU < current.LRU {
			victim = i
			continue
		}

		if line.LRU == current.LRU && !line.IsCached() && current.IsCached() {
			victim = i
		}
	}

	return victim
}
