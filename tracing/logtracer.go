package tracing

import (
	"log"

	"github.com/sarchlab/dirsim/hooking"
)

// LogTracer writes one line per traced item.
type LogTracer struct {
	logger *log.Logger
}

// NewLogTracer creates a LogTracer that writes to logger.
func NewLogTracer(logger *log.Logger) *LogTracer {
	return &LogTracer{logger: logger}
}

// TraceAccess logs an access.
func (t *LogTracer) TraceAccess(a hooking.Access) {
	t.logger.Printf("P%d %s 0x%x %s cost=%d hops=%d",
		a.PID, a.Kind, a.Addr, a.Outcome.Response,
		a.Outcome.Cost, a.Outcome.Hops)
}

// TraceEvict logs an eviction.
func (t *LogTracer) TraceEvict(e hooking.Eviction) {
	t.logger.Printf("P%d evict 0x%x", e.PID, e.Addr)
}

// TracePush logs a push.
func (t *LogTracer) TracePush(p hooking.Push) {
	t.logger.Printf("P%d push 0x%x to P%d", p.Writer, p.Addr, p.Reader)
}
