package tracing

import (
	"bytes"
	"log"
	"strings"

	"github.com/goccy/go-json"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/dirsim/controller"
	"github.com/sarchlab/dirsim/hooking"
	"github.com/sarchlab/dirsim/profile"
)

var _ = Describe("CollectTrace", func() {
	It("should not attach the same tracer twice", func() {
		ctrl := controller.New(2, 1, 64, 1)
		counter := NewResponseCounter()

		CollectTrace(ctrl, counter)

		Expect(ctrl.NumHooks()).To(Equal(1))
		Expect(func() { CollectTrace(ctrl, counter) }).To(Panic())
	})
})

var _ = Describe("ResponseCounter", func() {
	It("should count what the controller does", func() {
		ctrl, err := controller.MakeBuilder().
			WithNumProcessors(2).
			WithNumSets(1).
			WithAssociativity(1).
			WithDetector(true).
			Build("Ctrl")
		Expect(err).ToNot(HaveOccurred())

		counter := NewResponseCounter()
		CollectTrace(ctrl, counter)

		ctrl.StoreSingleLine(0x1000, 0)
		ctrl.LoadSingleLine(0x1000, 1)
		ctrl.LoadSingleLine(0x1000, 1)
		ctrl.StoreSingleLine(0x1000, 0)
		ctrl.LoadSingleLine(0x2000, 0)

		Expect(counter.Accesses()).To(Equal(uint64(5)))
		Expect(counter.Count(hooking.Store, profile.CacheMiss)).
			To(Equal(uint64(1)))
		Expect(counter.Count(hooking.Store, profile.CacheHit)).
			To(Equal(uint64(1)))
		Expect(counter.Count(hooking.Load, profile.CacheMiss)).
			To(Equal(uint64(2)))
		Expect(counter.Count(hooking.Load, profile.CacheHit)).
			To(Equal(uint64(1)))
		Expect(counter.Pushes()).To(Equal(uint64(1)))
		Expect(counter.Evictions()).To(Equal(uint64(1)))
	})
})

var _ = Describe("LogTracer", func() {
	It("should write one line per item", func() {
		buf := new(bytes.Buffer)
		ctrl := controller.New(2, 1, 64, 1)
		CollectTrace(ctrl, NewLogTracer(log.New(buf, "", 0)))

		ctrl.StoreSingleLine(0x1000, 0)
		ctrl.LoadSingleLine(0x2000, 0)

		Expect(strings.Split(strings.TrimSpace(buf.String()), "\n")).
			To(Equal([]string{
				"P0 store 0x1000 miss cost=103 hops=0",
				"P0 evict 0x1000",
				"P0 load 0x2000 miss cost=103 hops=0",
			}))
	})
})

var _ = Describe("JSONTracer", func() {
	It("should write a JSON array", func() {
		buf := new(bytes.Buffer)
		t := NewJSONTracerWithWriter(buf)

		t.TraceAccess(hooking.Access{PID: 1, Addr: 0x40, Kind: hooking.Load})
		t.TracePush(hooking.Push{Writer: 0, Reader: 1, Addr: 0x40})
		t.Finish()
		t.TraceEvict(hooking.Eviction{PID: 1, Addr: 0x40})

		var records []map[string]interface{}
		Expect(json.Unmarshal(buf.Bytes(), &records)).To(Succeed())
		Expect(records).To(HaveLen(2))
		Expect(records[0]["type"]).To(Equal("access"))
		Expect(records[1]["type"]).To(Equal("push"))
	})

	It("should write an empty array", func() {
		buf := new(bytes.Buffer)
		t := NewJSONTracerWithWriter(buf)
		t.Finish()

		Expect(buf.String()).To(Equal("[\n\n]"))
	})
})
