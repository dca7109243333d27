package datarecording

import (
	"github.com/sarchlab/dirsim/hooking"
)

// AccessEntry is a row of the accesses table. Addresses are stored as their
// two's complement, since SQLite integers are signed.
type AccessEntry struct {
	Seq       uint64
	PID       uint32
	Kind      string
	Addr      int64
	LineAddr  int64
	Response  string
	Cost      uint64
	Hops      uint64
	EvictCost uint64
	EvictHops uint64
	Pushes    int
}

// EvictionEntry is a row of the evictions table.
type EvictionEntry struct {
	Seq  uint64
	PID  uint32
	Addr int64
}

// PushEntry is a row of the pushes table.
type PushEntry struct {
	Seq    uint64
	Writer uint32
	Reader uint32
	Addr   int64
}

// The tables written by AccessRecorder.
const (
	AccessTable   = "accesses"
	EvictionTable = "evictions"
	PushTable     = "pushes"
)

// AccessRecorder writes one row per access, eviction and push. Evictions and
// pushes carry the sequence number of the access that caused them.
type AccessRecorder struct {
	recorder DataRecorder
	seq      uint64
}

// NewAccessRecorder creates the tables and returns the recorder.
func NewAccessRecorder(recorder DataRecorder) *AccessRecorder {
	recorder.CreateTable(AccessTable, AccessEntry{})
	recorder.CreateTable(EvictionTable, EvictionEntry{})
	recorder.CreateTable(PushTable, PushEntry{})

	return &AccessRecorder{recorder: recorder}
}

// TraceAccess records an access.
func (r *AccessRecorder) TraceAccess(a hooking.Access) {
	r.recorder.InsertData(AccessTable, AccessEntry{
		Seq:       r.seq,
		PID:       a.PID,
		Kind:      a.Kind.String(),
		Addr:      int64(a.Addr),
		LineAddr:  int64(a.LineAddr),
		Response:  a.Outcome.Response.String(),
		Cost:      a.Outcome.Cost,
		Hops:      a.Outcome.Hops,
		EvictCost: a.Outcome.EvictCost,
		EvictHops: a.Outcome.EvictHops,
		Pushes:    len(a.Outcome.Pushed),
	})

	r.seq++
}

// TraceEvict records an eviction.
func (r *AccessRecorder) TraceEvict(e hooking.Eviction) {
	r.recorder.InsertData(EvictionTable, EvictionEntry{
		Seq:  r.seq,
		PID:  e.PID,
		Addr: int64(e.Addr),
	})
}

// TracePush records a push.
func (r *AccessRecorder) TracePush(p hooking.Push) {
	r.recorder.InsertData(PushTable, PushEntry{
		Seq:    r.seq,
		Writer: p.Writer,
		Reader: p.Reader,
		Addr:   int64(p.Addr),
	})
}
