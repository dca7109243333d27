// Package cache models the private, set-associative data cache of a
// processor. A cache only tracks which lines are present. Coherence states
// are kept by the directory.
package cache

// AllOnes is the tag of a line that has never been filled.
const AllOnes uint64 = 0xFFFFFFFFFFFFFFFF

// Status tells if a line holds data.
type Status int

// All the possible line statuses.
const (
	Uncached Status = iota
	Cached
)

func (s Status) String() string {
	switch s {
	case Uncached:
		return "uncached"
	case Cached:
		return "cached"
	default:
		return "unknown"
	}
}

// A Line is the tag entry of a cache line.
type Line struct {
	Tag     uint64 `json:"tag"`
	LRU     uint64 `json:"lru"`
	Address uint64 `json:"address"`
	Locked  bool   `json:"locked"`
	Status  Status `json:"status"`
	WayID   int    `json:"way_id"`
}

// IsCached returns true if the line holds data.
func (l Line) IsCached() bool {
	return l.Status == Cached
}

// An Invalidator is notified about the lines that a cache evicts.
type Invalidator interface {
	Invalidate(pid uint32, addr uint64)
}
