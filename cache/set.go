package cache

import "log"

// A Set is a list of lines where a certain piece of memory can be stored at.
// Ages are stamped from a per-set clock, so a larger age means a more
// recent use.
type Set struct {
	Lines []Line `json:"lines"`
	clock uint64
}

// NewSet creates a set with all lines empty.
func NewSet(associativity int) Set {
	s := Set{Lines: make([]Line, associativity)}

	for i := range s.Lines {
		s.Lines[i] = Line{
			Tag:    AllOnes,
			Status: Uncached,
			WayID:  i,
		}
	}

	return s
}

func (s *Set) touch(wayID int) {
	s.clock++
	if s.clock == AllOnes {
		log.Panic("lru clock overflow")
	}

	s.Lines[wayID].LRU = s.clock
}

func (s *Set) find(tag uint64) (int, bool) {
	for i, l := range s.Lines {
		if l.IsCached() && l.Tag == tag {
			return i, true
		}
	}

	return 0, false
}

// Lookup returns the status of the line with the given tag. If replace is
// true and the line is present, the line becomes the most recently used one.
func (s *Set) Lookup(tag uint64, replace bool) Status {
	wayID, found := s.find(tag)
	if !found {
		return Uncached
	}

	if replace {
		s.touch(wayID)
	}

	return s.Lines[wayID].Status
}

// Contains returns true if the tag is present. The LRU order is not changed.
func (s *Set) Contains(tag uint64) bool {
	_, found := s.find(tag)
	return found
}

// FetchSingleLine makes sure the line is present in the set. On a miss, the
// victim picked by the victim finder is replaced and, if the victim held
// data, the invalidator is told about it before the line is reused.
//
// With replace set to false, the LRU order of the set is left untouched. The
// new line takes over the age of the victim.
func (s *Set) FetchSingleLine(
	pid uint32,
	tag, addr uint64,
	victimFinder VictimFinder,
	invalidator Invalidator,
	replace bool,
) (victim Line, evicted bool) {
	if s.Lookup(tag, replace) == Cached {
		return Line{}, false
	}

	wayID := victimFinder.FindVictim(s)
	victim = s.Lines[wayID]

	if victim.IsCached() {
		invalidator.Invalidate(pid, victim.Address)
		evicted = true
	}

	if replace {
		s.touch(wayID)
	}

	line := &s.Lines[wayID]
	line.Tag = tag
	line.Address = addr
	line.Status = Cached

	return victim, evicted
}
