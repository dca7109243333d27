package simulator

import (
	"bytes"
	"log"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	gomock "go.uber.org/mock/gomock"

	"github.com/sarchlab/dirsim/controller"
	"github.com/sarchlab/dirsim/profile"
)

var _ = Describe("RoundRobin", func() {
	It("should wrap around", func() {
		r := NewRoundRobin(3)

		pids := make([]uint32, 0)
		for i := 0; i < 7; i++ {
			pids = append(pids, r.Next())
		}

		Expect(pids).To(Equal([]uint32{0, 1, 2, 0, 1, 2, 0}))
	})

	It("should always return 0 for a single processor", func() {
		r := NewRoundRobin(1)

		Expect(r.Next()).To(BeZero())
		Expect(r.Next()).To(BeZero())
	})
})

var _ = Describe("Simulator", func() {
	var (
		mockCtrl *gomock.Controller
		s        *Simulator
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		s = New(controller.New(4, 16, 64, 2))
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should attach in round robin order", func() {
		Expect(s.Attach()).To(Equal(uint32(0)))
		Expect(s.Attach()).To(Equal(uint32(1)))
		Expect(s.AttachThread(77)).To(Equal(uint32(2)))
		Expect(s.AttachThread(77)).To(Equal(uint32(2)))
		Expect(s.Attach()).To(Equal(uint32(3)))
		Expect(s.Attach()).To(Equal(uint32(0)))

		Expect(s.Attached()).To(Equal([]int{2, 1, 1, 1}))
	})

	It("should use the given allocator", func() {
		allocator := NewMockAllocator(mockCtrl)
		allocator.EXPECT().Next().Return(uint32(3))
		s.SetAllocator(allocator)

		Expect(s.AttachThread(5)).To(Equal(uint32(3)))
	})

	It("should panic if the allocator goes out of range", func() {
		allocator := NewMockAllocator(mockCtrl)
		allocator.EXPECT().Next().Return(uint32(4))
		s.SetAllocator(allocator)

		Expect(func() { s.Attach() }).To(Panic())
	})

	It("should log thread assignments", func() {
		buf := new(bytes.Buffer)
		s.SetLogger(log.New(buf, "", 0))

		s.AttachThread(9)

		Expect(buf.String()).To(Equal("tid 9 -> pid 0\n"))
	})

	It("should detach", func() {
		pid := s.Attach()
		s.AttachThread(1)

		Expect(s.Detach(pid)).To(Succeed())
		Expect(s.Detach(pid)).To(MatchError(ErrUnknownProcessor))
		Expect(s.DetachThread(1)).To(Succeed())
		Expect(s.DetachThread(1)).To(MatchError(ErrUnknownThread))
		Expect(s.Attached()).To(Equal([]int{0, 0, 0, 0}))
	})

	It("should reject unknown processors", func() {
		_, err := s.OnAccess(4, 0x40, false)

		Expect(err).To(MatchError(ErrUnknownProcessor))
		Expect(s.AttachProcessor(4)).To(MatchError(ErrUnknownProcessor))
		Expect(s.NumAccesses()).To(BeZero())
	})

	It("should reject accesses before attach", func() {
		_, err := s.OnAccess(2, 0x40, false)

		Expect(err).To(MatchError(ErrUnknownProcessor))
		Expect(s.NumAccesses()).To(BeZero())
		Expect(s.Snapshot().Processors[2].Load.Misses).To(BeZero())
	})

	It("should reject accesses after detach", func() {
		pid := s.Attach()

		_, err := s.OnAccess(pid, 0x40, false)
		Expect(err).ToNot(HaveOccurred())

		Expect(s.Detach(pid)).To(Succeed())

		_, err = s.OnAccess(pid, 0x40, false)
		Expect(err).To(MatchError(ErrUnknownProcessor))
		Expect(s.NumAccesses()).To(Equal(uint64(1)))
	})

	It("should reject accesses of a detached thread", func() {
		s.AttachThread(7)
		Expect(s.DetachThread(7)).To(Succeed())

		_, err := s.OnThreadAccess(7, 0x40, false)

		Expect(err).To(MatchError(ErrUnknownThread))
	})

	It("should attach chosen processors", func() {
		Expect(s.AttachProcessor(3)).To(Succeed())
		Expect(s.AttachProcessor(3)).To(Succeed())

		_, err := s.OnAccess(3, 0x40, true)
		Expect(err).ToNot(HaveOccurred())

		Expect(s.Detach(3)).To(Succeed())
		_, err = s.OnAccess(3, 0x40, false)
		Expect(err).ToNot(HaveOccurred())

		Expect(s.Attached()).To(Equal([]int{0, 0, 0, 1}))
	})

	It("should reject unknown threads", func() {
		_, err := s.OnThreadAccess(12, 0x40, true)

		Expect(err).To(MatchError(ErrUnknownThread))
	})

	It("should simulate accesses", func() {
		s.AttachThread(42)
		s.AttachThread(43)

		o, err := s.OnAccess(0, 0x1000, true)
		Expect(err).ToNot(HaveOccurred())
		Expect(o.Cost).To(Equal(uint64(103)))

		o, err = s.OnThreadAccess(43, 0x1000, false)
		Expect(err).ToNot(HaveOccurred())
		Expect(o.Response).To(Equal(profile.CacheMiss))
		Expect(o.Cost).To(Equal(uint64(210)))

		Expect(s.NumAccesses()).To(Equal(uint64(2)))
		Expect(s.Snapshot().Processors[1].Load.Misses).To(Equal(uint64(1)))
	})

	It("should write the report", func() {
		Expect(s.AttachProcessor(1)).To(Succeed())
		_, err := s.OnAccess(1, 0x40, false)
		Expect(err).ToNot(HaveOccurred())

		buf := new(bytes.Buffer)
		Expect(s.WriteReport(buf)).To(Succeed())
		Expect(buf.String()).To(Equal(s.Report()))

		var lines int
		s.Inspect(func(c *controller.Controller) {
			lines = c.Directory().NumLines()
		})
		Expect(lines).To(Equal(1))
	})

	It("should serialize concurrent accesses", func() {
		var wg sync.WaitGroup

		for g := 0; g < 8; g++ {
			wg.Add(1)

			go func(tid uint32) {
				defer GinkgoRecover()
				defer wg.Done()

				s.AttachThread(tid)

				for i := 0; i < 200; i++ {
					addr := uint64(i%16) * 64
					_, err := s.OnThreadAccess(tid, addr, i%5 == 0)
					Expect(err).ToNot(HaveOccurred())
				}
			}(uint32(g))
		}

		wg.Wait()

		Expect(s.NumAccesses()).To(Equal(uint64(1600)))

		var total uint64
		for _, st := range s.Snapshot().Processors {
			total += st.Hits() + st.Misses()
		}
		Expect(total).To(Equal(uint64(1600)))
	})
})
