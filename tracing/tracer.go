// Package tracing provides hooks that observe the accesses processed by a
// controller.
package tracing

import (
	"fmt"
	"reflect"

	"github.com/sarchlab/dirsim/hooking"
)

// A Tracer can collect access traces.
type Tracer interface {
	TraceAccess(a hooking.Access)
	TraceEvict(e hooking.Eviction)
	TracePush(p hooking.Push)
}

// CollectTrace lets the tracer collect traces from a domain.
func CollectTrace(domain hooking.Hookable, tracer Tracer) {
	for _, hook := range domain.Hooks() {
		hook, ok := hook.(*traceHook)
		if ok && hook.t == tracer {
			panic(fmt.Sprintf("domain already has tracer %s",
				reflect.TypeOf(tracer)))
		}
	}

	domain.AcceptHook(&traceHook{t: tracer})
}

// A traceHook forwards hook invocations to a tracer.
type traceHook struct {
	t Tracer
}

// Func calls the tracer interfaces when the hook is triggered.
func (h *traceHook) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case hooking.HookPosAccess:
		h.t.TraceAccess(ctx.Item.(hooking.Access))
	case hooking.HookPosEvict:
		h.t.TraceEvict(ctx.Item.(hooking.Eviction))
	case hooking.HookPosPush:
		h.t.TracePush(ctx.Item.(hooking.Push))
	}
}
