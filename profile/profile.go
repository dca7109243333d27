// Package profile collects the hit, miss, cycle and network message counters
// of a simulation and renders them into a text report.
package profile

import (
	"sort"
	"strconv"
	"strings"
)

// ReportThreshold is the number of accesses a memory line needs to exceed to
// be listed in the memory section of the report.
const ReportThreshold = 100

// A Profile accumulates statistics per processor and per memory line.
type Profile struct {
	numProcessors uint32
	processors    []AccessStat
	lines         map[uint64]*AccessStat
}

// NewProfile creates a Profile for the given number of processors.
func NewProfile(numProcessors uint32) *Profile {
	return &Profile{
		numProcessors: numProcessors,
		processors:    make([]AccessStat, numProcessors),
		lines:         make(map[uint64]*AccessStat),
	}
}

// NumProcessors returns the number of processors being profiled.
func (p *Profile) NumProcessors() uint32 {
	return p.numProcessors
}

func (p *Profile) line(addr uint64) *AccessStat {
	s, ok := p.lines[addr]
	if !ok {
		s = &AccessStat{}
		p.lines[addr] = s
	}

	return s
}

// ProfileLoad records a load.
func (p *Profile) ProfileLoad(
	rsp Response,
	pid uint32,
	addr uint64,
	cost, hops uint64,
) {
	line := p.line(addr)
	line.Load = line.Load.record(rsp, 0, 0)
	line.Count++

	p.processors[pid].Load = p.processors[pid].Load.record(rsp, cost, hops)
}

// ProfileStore records a store.
func (p *Profile) ProfileStore(
	rsp Response,
	pid uint32,
	addr uint64,
	cost, hops uint64,
) {
	line := p.line(addr)
	line.Store = line.Store.record(rsp, 0, 0)
	line.Count++

	p.processors[pid].Store = p.processors[pid].Store.record(rsp, cost, hops)
}

// ProfileEvict records an eviction. Evictions do not count as accesses of
// the line.
func (p *Profile) ProfileEvict(pid uint32, addr uint64, cost, hops uint64) {
	line := p.line(addr)
	line.Evict.Misses++

	p.processors[pid].Evict = p.processors[pid].Evict.record(
		CacheMiss, cost, hops)
}

// Processor returns a copy of the statistics of one processor.
func (p *Profile) Processor(pid uint32) AccessStat {
	return p.processors[pid]
}

// Line returns a copy of the statistics of one memory line.
func (p *Profile) Line(addr uint64) (AccessStat, bool) {
	s, ok := p.lines[addr]
	if !ok {
		return AccessStat{}, false
	}

	return *s, true
}

// A Snapshot is a copy of all the counters of a profile.
type Snapshot struct {
	Processors []AccessStat          `json:"processors"`
	Lines      map[uint64]AccessStat `json:"lines"`
}

// Snapshot copies the current counters.
func (p *Profile) Snapshot() Snapshot {
	s := Snapshot{
		Processors: make([]AccessStat, len(p.processors)),
		Lines:      make(map[uint64]AccessStat, len(p.lines)),
	}

	copy(s.Processors, p.processors)

	for addr, l := range p.lines {
		s.Lines[addr] = *l
	}

	return s
}

// TotalCycles returns the cycles spent by all processors, evictions
// included.
func (p *Profile) TotalCycles() uint64 {
	var total uint64
	for _, s := range p.processors {
		total += s.Cycles()
	}

	return total
}

// TotalHops returns the network messages of all processors.
func (p *Profile) TotalHops() uint64 {
	var total uint64
	for _, s := range p.processors {
		total += s.Hops()
	}

	return total
}

// StatsToString renders the report. It does not modify the profile.
func (p *Profile) StatsToString() string {
	b := new(strings.Builder)

	var allHits, allMisses uint64
	var allHitCycles, allMissCycles, allEvictCycles uint64
	var allLoads, allLoadHops, allHops, allCycles uint64

	for pid, s := range p.processors {
		allHits += s.Hits()
		allMisses += s.Misses()

		allLoads += s.Load.Accesses()
		allLoadHops += s.Load.Hops

		allHitCycles += s.Load.HitCycles + s.Store.HitCycles
		allMissCycles += s.Load.MissCycles + s.Store.MissCycles
		allEvictCycles += s.Evict.MissCycles

		allHops += s.Hops()

		b.WriteString("+ Processor: " + strconv.Itoa(pid) + " L1 Data Cache\n")
		b.WriteString(s.format("+ "))
		b.WriteString("\n")
	}

	allCycles = allHitCycles + allMissCycles + allEvictCycles
	allAccesses := allHits + allMisses

	pctRow := func(label string, v, total uint64) {
		b.WriteString(left(label, 25))
		b.WriteString(right(v, 10))
		b.WriteString(right(percent(v, total), 10))
		b.WriteString("%\n")
	}

	pctRow("+ All-Hits:", allHits, allAccesses)
	pctRow("+ All-Misses:", allMisses, allAccesses)
	pctRow("+ All-Hit-Cycles:", allHitCycles, allCycles)
	pctRow("+ All-Miss-Cycles:", allMissCycles, allCycles)
	pctRow("+ All-Evict-Cycles:", allEvictCycles, allCycles)

	b.WriteString(left("+ All-Cycles:", 25))
	b.WriteString(right(allCycles, 10))
	b.WriteString("\n")

	b.WriteString(left("+ Avg-Network-Msg-Load:", 25))
	b.WriteString(right(float64(allLoadHops)/float64(allLoads), 10))
	b.WriteString("\n")

	b.WriteString(left("+ All-Hops:", 25))
	b.WriteString(right(allHops, 10))
	b.WriteString("\n\n")

	b.WriteString(p.lineStatsToString())
	b.WriteString("\n")

	return b.String()
}

// HotLines returns the addresses of the lines accessed more than
// ReportThreshold times, in ascending order.
func (p *Profile) HotLines() []uint64 {
	addrs := make([]uint64, 0)

	for addr, s := range p.lines {
		if s.Count > ReportThreshold {
			addrs = append(addrs, addr)
		}
	}

	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })

	return addrs
}

func (p *Profile) lineStatsToString() string {
	b := new(strings.Builder)

	b.WriteString("Memory Stats:\n")
	b.WriteString(left("Addr", 15))
	b.WriteString(left("Load Hit", 10))
	b.WriteString(left("Load Miss", 10))
	b.WriteString(left("Store Hit", 10))
	b.WriteString(left("Store Miss", 10))
	b.WriteString("\n")

	for _, addr := range p.HotLines() {
		s := p.lines[addr]

		b.WriteString(left(strconv.FormatUint(addr, 16), 15))
		b.WriteString(left(s.Load.Hits, 10))
		b.WriteString(left(s.Load.Misses, 10))
		b.WriteString(left(s.Store.Hits, 10))
		b.WriteString(left(s.Store.Misses, 10))
		b.WriteString("\n")
	}

	return b.String()
}
