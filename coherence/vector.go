package coherence

import (
	"log"
	"math/bits"
)

// MaxProcessors is the number of processors a directory line can track.
const MaxProcessors = 64

// NoProcessor marks the absence of a processor, for example a line that has
// never been written.
const NoProcessor = ^uint32(0)

func mustBeTrackable(pid uint32) {
	if pid >= MaxProcessors {
		log.Panicf("processor %d cannot be tracked, at most %d processors",
			pid, MaxProcessors)
	}
}

// A SharerVector is a bitset with one bit per processor.
type SharerVector uint64

// Set marks pid as a sharer.
func (v *SharerVector) Set(pid uint32) {
	mustBeTrackable(pid)
	*v |= 1 << pid
}

// Clear removes pid from the sharers. Clearing an absent bit is a no-op.
func (v *SharerVector) Clear(pid uint32) {
	mustBeTrackable(pid)
	*v &^= 1 << pid
}

// Reset removes all the sharers.
func (v *SharerVector) Reset() {
	*v = 0
}

// IsSet returns true if pid is a sharer.
func (v SharerVector) IsSet(pid uint32) bool {
	if pid >= MaxProcessors {
		return false
	}

	return v&(1<<pid) != 0
}

// Count returns the number of sharers.
func (v SharerVector) Count() int {
	return bits.OnesCount64(uint64(v))
}

// IsEmpty returns true if there is no sharer.
func (v SharerVector) IsEmpty() bool {
	return v == 0
}

// Lowest returns the sharer with the smallest processor id.
func (v SharerVector) Lowest() (uint32, bool) {
	if v == 0 {
		return NoProcessor, false
	}

	return uint32(bits.TrailingZeros64(uint64(v))), true
}

// PIDs lists the sharers in ascending order.
func (v SharerVector) PIDs() []uint32 {
	pids := make([]uint32, 0, v.Count())

	for rest := uint64(v); rest != 0; rest &= rest - 1 {
		pids = append(pids, uint32(bits.TrailingZeros64(rest)))
	}

	return pids
}

const (
	readCounterBits    = 2
	readCounterMax     = 1<<readCounterBits - 1
	countersPerWord    = 64 / readCounterBits
	readCounterWordLen = MaxProcessors / countersPerWord
)

// ReadCounters keeps a 2-bit saturating read counter per processor.
type ReadCounters [readCounterWordLen]uint64

func (c *ReadCounters) locate(pid uint32) (word int, shift uint) {
	mustBeTrackable(pid)

	word = int(pid / countersPerWord)
	shift = uint(pid%countersPerWord) * readCounterBits

	return word, shift
}

// Count returns the counter value of pid, between 0 and 3.
func (c *ReadCounters) Count(pid uint32) uint8 {
	w, s := c.locate(pid)
	return uint8((c[w] >> s) & readCounterMax)
}

// Increase adds one to the counter of pid. The counter saturates at 3.
func (c *ReadCounters) Increase(pid uint32) {
	w, s := c.locate(pid)
	if (c[w]>>s)&readCounterMax < readCounterMax {
		c[w] += 1 << s
	}
}

// Decrease subtracts one from the counter of pid. The counter saturates at 0.
func (c *ReadCounters) Decrease(pid uint32) {
	w, s := c.locate(pid)
	if (c[w]>>s)&readCounterMax > 0 {
		c[w] -= 1 << s
	}
}

// Clear sets the counter of pid to 0.
func (c *ReadCounters) Clear(pid uint32) {
	w, s := c.locate(pid)
	c[w] &^= readCounterMax << s
}

// Reset sets all counters to 0.
func (c *ReadCounters) Reset() {
	*c = ReadCounters{}
}

// IsQualified returns true if the high bit of the counter of pid is set,
// that is, pid has read the line at least twice.
func (c *ReadCounters) IsQualified(pid uint32) bool {
	w, s := c.locate(pid)
	return c[w]&(1<<(s+1)) != 0
}
