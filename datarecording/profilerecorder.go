package datarecording

import (
	"sort"

	"github.com/sarchlab/dirsim/profile"
)

// ProcessorStatEntry is a row of the processor_stats table.
type ProcessorStatEntry struct {
	PID         uint32
	LoadHits    uint64
	LoadMisses  uint64
	LoadCycles  uint64
	StoreHits   uint64
	StoreMisses uint64
	StoreCycles uint64
	Evictions   uint64
	EvictCycles uint64
	LoadHops    uint64
	StoreHops   uint64
	EvictHops   uint64
	TotalCycles uint64
}

// LineStatEntry is a row of the line_stats table.
type LineStatEntry struct {
	Addr        int64
	Count       uint64
	LoadHits    uint64
	LoadMisses  uint64
	StoreHits   uint64
	StoreMisses uint64
	Evictions   uint64
}

// The tables written by RecordProfile.
const (
	ProcessorStatTable = "processor_stats"
	LineStatTable      = "line_stats"
)

// RecordProfile writes the counters of a profile snapshot, one row per
// processor and one row per memory line, and flushes the recorder.
func RecordProfile(recorder DataRecorder, s profile.Snapshot) {
	recorder.CreateTable(ProcessorStatTable, ProcessorStatEntry{})
	recorder.CreateTable(LineStatTable, LineStatEntry{})

	for pid, st := range s.Processors {
		recorder.InsertData(ProcessorStatTable, ProcessorStatEntry{
			PID:         uint32(pid),
			LoadHits:    st.Load.Hits,
			LoadMisses:  st.Load.Misses,
			LoadCycles:  st.Load.Cycles(),
			StoreHits:   st.Store.Hits,
			StoreMisses: st.Store.Misses,
			StoreCycles: st.Store.Cycles(),
			Evictions:   st.Evict.Misses,
			EvictCycles: st.Evict.MissCycles,
			LoadHops:    st.Load.Hops,
			StoreHops:   st.Store.Hops,
			EvictHops:   st.Evict.Hops,
			TotalCycles: st.Cycles(),
		})
	}

	addrs := make([]uint64, 0, len(s.Lines))
	for addr := range s.Lines {
		addrs = append(addrs, addr)
	}

	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })

	for _, addr := range addrs {
		st := s.Lines[addr]
		recorder.InsertData(LineStatTable, LineStatEntry{
			Addr:        int64(addr),
			Count:       st.Count,
			LoadHits:    st.Load.Hits,
			LoadMisses:  st.Load.Misses,
			StoreHits:   st.Store.Hits,
			StoreMisses: st.Store.Misses,
			Evictions:   st.Evict.Misses,
		})
	}

	recorder.Flush()
}
