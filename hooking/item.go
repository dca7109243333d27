package hooking

import "github.com/sarchlab/dirsim/coherence"

// The positions the controller invokes hooks at.
var (
	// HookPosAccess is triggered after an access has been processed. The item
	// is an Access.
	HookPosAccess = &HookPos{Name: "Access"}

	// HookPosEvict is triggered when a cache drops a line to make room. The
	// item is an Eviction.
	HookPosEvict = &HookPos{Name: "Evict"}

	// HookPosPush is triggered for every line pushed to a reader. The item is
	// a Push.
	HookPosPush = &HookPos{Name: "Push"}
)

// AccessKind tells loads and stores apart.
type AccessKind int

// All the access kinds.
const (
	Load AccessKind = iota
	Store
)

func (k AccessKind) String() string {
	switch k {
	case Load:
		return "load"
	case Store:
		return "store"
	default:
		return "unknown"
	}
}

// Access describes one processed memory reference.
type Access struct {
	PID      uint32            `json:"pid"`
	Addr     uint64            `json:"addr"`
	LineAddr uint64            `json:"line_addr"`
	Kind     AccessKind        `json:"kind"`
	Outcome  coherence.Outcome `json:"outcome"`
}

// Eviction describes a line dropped from the cache of a processor.
type Eviction struct {
	PID  uint32 `json:"pid"`
	Addr uint64 `json:"addr"`
}

// Push describes a line that the directory placed in the cache of a reader
// on behalf of a writer.
type Push struct {
	Writer uint32 `json:"writer"`
	Reader uint32 `json:"reader"`
	Addr   uint64 `json:"addr"`
}
