package coherence

// Latencies, in cycles, used by the cost model.
const (
	LocalCacheAccess  uint64 = 3
	RemoteCacheAccess uint64 = 7
	// CacheToCache is charged once per line pushed to a reader.
	CacheToCache uint64 = 4
	MemoryAccess uint64 = 100
)

// HopsPerRequest is the number of network messages of a request to a
// remote node, the request and the reply.
const HopsPerRequest = 2

// DirectoryCost returns the cost of contacting the directory at dst from
// src. Remote accesses add a request and a reply to hops.
func DirectoryCost(src, dst uint32, hops *uint64) uint64 {
	if src == dst {
		return LocalCacheAccess
	}

	*hops += HopsPerRequest

	return RemoteCacheAccess
}

// DataWriteBack returns the cost of the owner writing a dirty line back to
// the memory behind home.
func DataWriteBack(owner, home uint32, hops *uint64) uint64 {
	return DirectoryCost(owner, home, hops) + MemoryAccess
}
