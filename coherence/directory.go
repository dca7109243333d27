// Package coherence implements a directory-based MSI protocol with a cost
// model that counts cycles and network messages.
package coherence

import (
	"log"

	"github.com/sarchlab/dirsim/profile"
)

// A CacheFiller can place a line into the cache of a processor. The
// directory uses it to push lines to predicted readers.
type CacheFiller interface {
	FetchCacheLine(pid uint32, addr uint64, replace bool)
}

// Outcome is the result of processing one access. Cost and Hops belong to
// the access itself. EvictCost and EvictHops are charged for the lines that
// the access pushed out of the caches.
type Outcome struct {
	Response  profile.Response `json:"response"`
	Cost      uint64           `json:"cost"`
	Hops      uint64           `json:"hops"`
	EvictCost uint64           `json:"evict_cost,omitempty"`
	EvictHops uint64           `json:"evict_hops,omitempty"`
	Pushed    []uint32         `json:"pushed,omitempty"`
}

// TotalCost returns the cycles of the access and of its evictions.
func (o Outcome) TotalCost() uint64 {
	return o.Cost + o.EvictCost
}

// TotalHops returns the network messages of the access and of its
// evictions.
func (o Outcome) TotalHops() uint64 {
	return o.Hops + o.EvictHops
}

// Directory is the process-wide coherence directory. It is shared by all the
// processors and is not safe for concurrent use.
//
// Directory lines are created on first reference and are never reclaimed.
type Directory struct {
	numProcessors uint32
	offsetMask    uint64
	detector      bool

	lines   map[uint64]*DirectoryLine
	profile *profile.Profile
}

// NewDirectory creates an empty directory. The number of processors and the
// line size must be powers of two.
func NewDirectory(
	numProcessors uint32,
	lineSize uint64,
	p *profile.Profile,
) *Directory {
	if numProcessors == 0 || numProcessors&(numProcessors-1) != 0 {
		log.Panicf("number of processors %d is not a power of two",
			numProcessors)
	}

	if numProcessors > MaxProcessors {
		log.Panicf("number of processors %d exceeds %d",
			numProcessors, MaxProcessors)
	}

	if lineSize == 0 || lineSize&(lineSize-1) != 0 {
		log.Panicf("line size %d is not a power of two", lineSize)
	}

	return &Directory{
		numProcessors: numProcessors,
		offsetMask:    lineSize - 1,
		lines:         make(map[uint64]*DirectoryLine),
		profile:       p,
	}
}

// SetDetector turns the speculative push optimization on or off.
func (d *Directory) SetDetector(enabled bool) {
	d.detector = enabled
}

// DetectorEnabled returns true if speculative pushes are enabled.
func (d *Directory) DetectorEnabled() bool {
	return d.detector
}

// NumProcessors returns the number of processors tracked by the directory.
func (d *Directory) NumProcessors() uint32 {
	return d.numProcessors
}

// Profile returns the profile that the directory reports to.
func (d *Directory) Profile() *profile.Profile {
	return d.profile
}

// LineAddress returns the address of the line that addr belongs to.
func (d *Directory) LineAddress(addr uint64) uint64 {
	return addr &^ d.offsetMask
}

// HomeNode returns the processor that hosts the directory entry of addr.
func (d *Directory) HomeNode(addr uint64) uint32 {
	return uint32(addr & uint64(d.numProcessors-1))
}

// Line returns the directory line of addr, creating it if needed.
func (d *Directory) Line(addr uint64) *DirectoryLine {
	lineAddr := d.LineAddress(addr)

	line, ok := d.lines[lineAddr]
	if !ok {
		line = NewDirectoryLine()
		d.lines[lineAddr] = line
	}

	return line
}

// Lookup returns the directory line of addr without creating it.
func (d *Directory) Lookup(addr uint64) (*DirectoryLine, bool) {
	line, ok := d.lines[d.LineAddress(addr)]
	return line, ok
}

// NumLines returns the number of lines that have ever been referenced.
func (d *Directory) NumLines() int {
	return len(d.lines)
}

// LineAddresses lists the addresses of all the referenced lines.
func (d *Directory) LineAddresses() []uint64 {
	addrs := make([]uint64, 0, len(d.lines))
	for addr := range d.lines {
		addrs = append(addrs, addr)
	}

	return addrs
}

// ProcessRead handles a read of addr by pid.
func (d *Directory) ProcessRead(pid uint32, addr uint64) Outcome {
	var hops, cost uint64

	rsp := profile.CacheMiss
	home := d.HomeNode(addr)
	line := d.Line(addr)

	switch line.State {
	case Shared, Modified:
		cost, rsp = d.Fetch(pid, home, addr, &hops)
	case Invalid:
		cost = d.ReadMiss(pid, home, addr, &hops)
	}

	if d.detector {
		line.Readers.Increase(pid)
	}

	d.profile.ProfileLoad(rsp, pid, d.LineAddress(addr), cost, hops)

	return Outcome{Response: rsp, Cost: cost, Hops: hops}
}

// ProcessWrite handles a write of addr by pid. The filler is only used when
// the detector is enabled.
func (d *Directory) ProcessWrite(
	pid uint32,
	addr uint64,
	filler CacheFiller,
) Outcome {
	var hops, cost uint64
	var pushed []uint32

	rsp := profile.CacheMiss
	home := d.HomeNode(addr)
	line := d.Line(addr)

	switch line.State {
	case Shared, Modified:
		if d.detector {
			cost, rsp, pushed = d.PushAndInvalidate(
				pid, home, addr, &hops, filler)
		} else {
			cost, rsp = d.FetchAndInvalidate(pid, home, addr, &hops)
		}
	case Invalid:
		cost = d.WriteMiss(pid, home, addr, &hops)
	}

	d.profile.ProfileStore(rsp, pid, d.LineAddress(addr), cost, hops)

	return Outcome{Response: rsp, Cost: cost, Hops: hops, Pushed: pushed}
}

// Invalidate removes pid from the sharers of addr, usually because the cache
// of pid evicted the line. The line becomes Invalid when no sharer is left.
// If pid held the line, the notification and, for a dirty line, the write
// back are charged as an eviction. It returns the charged cost and hops.
func (d *Directory) Invalidate(pid uint32, addr uint64) (cost, hops uint64) {
	line, ok := d.Lookup(addr)
	if !ok || !line.Sharers.IsSet(pid) {
		return 0, 0
	}

	home := d.HomeNode(addr)
	cost = DirectoryCost(pid, home, &hops)

	wasOwner := line.IsOwner(pid)
	if wasOwner {
		cost += MemoryAccess
	}

	line.Sharers.Clear(pid)

	switch {
	case line.Sharers.IsEmpty():
		line.State = Invalid
	case wasOwner:
		line.State = Shared
	}

	d.profile.ProfileEvict(pid, d.LineAddress(addr), cost, hops)

	return cost, hops
}

func (d *Directory) mustBeValid(line *DirectoryLine, op string, addr uint64) {
	if line.State == Invalid {
		log.Panicf("%s called on invalid line 0x%x", op, addr)
	}
}

func (d *Directory) mustBeInvalid(line *DirectoryLine, op string, addr uint64) {
	if line.State != Invalid {
		log.Panicf("%s called on line 0x%x in state %s", op, addr, line.State)
	}
}

// fetchData charges the requester for up-to-date data. A sharer already has
// it. Otherwise, the data comes from memory, after the owner writes it back
// if the line is dirty.
func (d *Directory) fetchData(
	line *DirectoryLine,
	pid, home uint32,
	hops *uint64,
) (uint64, profile.Response) {
	cost := DirectoryCost(pid, home, hops)

	if line.Sharers.IsSet(pid) {
		return cost + LocalCacheAccess, profile.CacheHit
	}

	cost += MemoryAccess

	if line.State == Modified {
		cost += DataWriteBack(line.Owner(), home, hops)
	}

	return cost, profile.CacheMiss
}

// Fetch handles a read of a Shared or Modified line.
func (d *Directory) Fetch(
	pid, home uint32,
	addr uint64,
	hops *uint64,
) (uint64, profile.Response) {
	line := d.Line(addr)
	d.mustBeValid(line, "fetch", addr)

	cost, rsp := d.fetchData(line, pid, home, hops)
	if rsp == profile.CacheMiss {
		line.Sharers.Set(pid)
		line.State = Shared
	}

	return cost, rsp
}

// FetchAndInvalidate handles a write of a Shared or Modified line. The
// requester fetches the data first, then becomes the only sharer.
func (d *Directory) FetchAndInvalidate(
	pid, home uint32,
	addr uint64,
	hops *uint64,
) (uint64, profile.Response) {
	line := d.Line(addr)
	d.mustBeValid(line, "fetch and invalidate", addr)

	cost, rsp := d.fetchData(line, pid, home, hops)

	line.Sharers.Reset()
	line.Sharers.Set(pid)
	line.State = Modified

	return cost, rsp
}

// PushAndInvalidate handles a write of a Shared or Modified line when the
// detector is enabled. A repeated write by the last writer pushes the line
// to all the qualified readers. It returns the processors that received a
// push.
func (d *Directory) PushAndInvalidate(
	pid, home uint32,
	addr uint64,
	hops *uint64,
	filler CacheFiller,
) (uint64, profile.Response, []uint32) {
	line := d.Line(addr)
	d.mustBeValid(line, "push and invalidate", addr)

	if !line.IsLastWriter(pid) {
		for _, sharer := range line.Sharers.PIDs() {
			if sharer != pid {
				line.Readers.Decrease(sharer)
			}
		}

		cost, rsp := d.FetchAndInvalidate(pid, home, addr, hops)
		line.UpdateLastWriter(pid)

		return cost, rsp, nil
	}

	if !line.Sharers.IsSet(pid) {
		filler.FetchCacheLine(pid, addr, false)
		cost, rsp := d.FetchAndInvalidate(pid, home, addr, hops)

		return cost, rsp, nil
	}

	cost := DirectoryCost(pid, home, hops) + LocalCacheAccess
	pushed := make([]uint32, 0)

	line.Sharers.Reset()
	line.Sharers.Set(pid)

	for reader := uint32(0); reader < d.numProcessors; reader++ {
		if reader == pid || !line.Readers.IsQualified(reader) {
			continue
		}

		filler.FetchCacheLine(reader, addr, false)
		line.Sharers.Set(reader)

		cost += CacheToCache
		*hops++

		pushed = append(pushed, reader)
	}

	line.State = Modified

	return cost, profile.CacheHit, pushed
}

// ReadMiss handles a read of an Invalid line.
func (d *Directory) ReadMiss(
	pid, home uint32,
	addr uint64,
	hops *uint64,
) uint64 {
	line := d.Line(addr)
	d.mustBeInvalid(line, "read miss", addr)

	cost := DirectoryCost(pid, home, hops) + MemoryAccess

	line.State = Shared
	line.Sharers.Set(pid)

	return cost
}

// WriteMiss handles a write of an Invalid line. The requester becomes the
// only sharer and the last writer.
func (d *Directory) WriteMiss(
	pid, home uint32,
	addr uint64,
	hops *uint64,
) uint64 {
	line := d.Line(addr)
	d.mustBeInvalid(line, "write miss", addr)

	cost := DirectoryCost(pid, home, hops) + MemoryAccess

	line.State = Modified
	line.Sharers.Reset()
	line.UpdateLastWriter(pid)

	return cost
}
