package profile

import (
	"strings"
)

// Response tells if an access was served as a hit or a miss.
type Response int

// All the possible responses.
const (
	CacheHit Response = iota
	CacheMiss
)

func (r Response) String() string {
	switch r {
	case CacheHit:
		return "hit"
	case CacheMiss:
		return "miss"
	default:
		return "unknown"
	}
}

// A Stat accumulates the counters of one kind of access.
type Stat struct {
	Hits       uint64 `json:"hits"`
	Misses     uint64 `json:"misses"`
	HitCycles  uint64 `json:"hit_cycles"`
	MissCycles uint64 `json:"miss_cycles"`
	Hops       uint64 `json:"hops"`
}

// Accesses returns the number of hits and misses.
func (s Stat) Accesses() uint64 {
	return s.Hits + s.Misses
}

// Cycles returns the number of cycles spent on hits and misses.
func (s Stat) Cycles() uint64 {
	return s.HitCycles + s.MissCycles
}

func (s Stat) record(rsp Response, cost, hops uint64) Stat {
	if rsp == CacheHit {
		s.Hits++
		s.HitCycles += cost
	} else {
		s.Misses++
		s.MissCycles += cost
	}

	s.Hops += hops

	return s
}

func (s Stat) format(prefix, kind string) string {
	b := new(strings.Builder)
	accesses := s.Accesses()
	cycles := s.Cycles()

	b.WriteString(prefix)
	b.WriteString(left(kind+"-Hits", 25))
	b.WriteString(left(s.Hits, 15))
	b.WriteString(left(percent(s.Hits, accesses), 15))
	b.WriteString(left(s.HitCycles, 15))
	b.WriteString(left(percent(s.HitCycles, cycles), 10))
	b.WriteString("\n")

	b.WriteString(prefix)
	b.WriteString(left(kind+"-Misses:", 25))
	b.WriteString(left(s.Misses, 15))
	b.WriteString(left(percent(s.Misses, accesses), 15))
	b.WriteString(left(s.MissCycles, 15))
	b.WriteString(left(percent(s.MissCycles, cycles), 10))
	b.WriteString("\n")

	b.WriteString(prefix)
	b.WriteString(left(kind+"-Total Accesses:", 25))
	b.WriteString(left(accesses, 15))
	b.WriteString(left(100.0, 15))
	b.WriteString(left(cycles, 15))
	b.WriteString(left(100.0, 10))
	b.WriteString("\n\n")

	return b.String()
}

// AccessStat groups the load, store and evict counters of a processor or of
// a memory line. Evictions are always counted as misses.
type AccessStat struct {
	Load  Stat   `json:"load"`
	Store Stat   `json:"store"`
	Evict Stat   `json:"evict"`
	Count uint64 `json:"count"`
}

// Hits returns the load and store hits.
func (a AccessStat) Hits() uint64 {
	return a.Load.Hits + a.Store.Hits
}

// Misses returns the load and store misses.
func (a AccessStat) Misses() uint64 {
	return a.Load.Misses + a.Store.Misses
}

// Cycles returns all the cycles, including the cycles spent on evictions.
func (a AccessStat) Cycles() uint64 {
	return a.Load.Cycles() + a.Store.Cycles() + a.Evict.MissCycles
}

// Hops returns all the network messages.
func (a AccessStat) Hops() uint64 {
	return a.Load.Hops + a.Store.Hops + a.Evict.Hops
}

func (a AccessStat) format(prefix string) string {
	b := new(strings.Builder)

	hits := a.Hits()
	misses := a.Misses()
	accesses := hits + misses
	hitCycles := a.Load.HitCycles + a.Store.HitCycles
	missCycles := a.Load.MissCycles + a.Store.MissCycles
	cycles := a.Cycles()
	hops := a.Hops()

	b.WriteString(a.Load.format(prefix, "Load"))
	b.WriteString(a.Store.format(prefix, "Store"))
	b.WriteString(a.Evict.format(prefix, "Evict"))

	row := func(label string, cols ...column) {
		b.WriteString(prefix)
		b.WriteString(left(label, 25))

		for _, c := range cols {
			b.WriteString(left(c.v, c.w))
		}

		b.WriteString("\n")
	}

	row("Total-Hits:",
		column{hits, 15},
		column{percent(hits, accesses), 15},
		column{hitCycles, 15},
		column{percent(hitCycles, cycles), 10})
	row("Total-Misses:",
		column{misses, 15},
		column{percent(misses, accesses), 15},
		column{missCycles, 15},
		column{percent(missCycles, cycles), 10})
	b.WriteString("\n")

	row("Total-Evicts:",
		column{a.Evict.Misses, 15},
		column{a.Evict.MissCycles, 15},
		column{percent(a.Evict.MissCycles, cycles), 10})
	b.WriteString("\n")

	row("Estimated-Cost:",
		column{accesses, 15},
		column{100.0, 15},
		column{cycles, 15},
		column{100.0, 10})

	row("Load-Network-Msg:",
		column{a.Load.Hops, 15},
		column{percent(a.Load.Hops, hops), 15})
	row("Store-Network-Msg:",
		column{a.Store.Hops, 15},
		column{percent(a.Store.Hops, hops), 10})
	row("Evict-Network-Msg:",
		column{a.Evict.Hops, 15},
		column{percent(a.Evict.Hops, hops), 10})
	row("Total-Network-Msg:",
		column{hops, 15},
		column{100.0, 10})
	b.WriteString("\n")

	return b.String()
}

type column struct {
	v any
	w int
}
