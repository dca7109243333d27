package cache

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	gomock "go.uber.org/mock/gomock"
)

var _ = Describe("Cache", func() {
	var (
		mockCtrl    *gomock.Controller
		invalidator *MockInvalidator
		c           *Cache
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		invalidator = NewMockInvalidator(mockCtrl)
		c = NewCache(3, 16, 2, NewLRUVictimFinder(), invalidator)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should be built with the requested geometry", func() {
		Expect(c.PID()).To(Equal(uint32(3)))
		Expect(c.NumSets()).To(Equal(16))
		Expect(c.Associativity()).To(Equal(2))
		Expect(c.CachedLines()).To(BeZero())
	})

	It("should keep sets independent", func() {
		c.Fetch(1, 0x4000, 0x4040, true)
		c.Fetch(2, 0x4000, 0x4080, true)

		Expect(c.Contains(1, 0x4000)).To(BeTrue())
		Expect(c.Contains(2, 0x4000)).To(BeTrue())
		Expect(c.Contains(3, 0x4000)).To(BeFalse())
		Expect(c.CachedLines()).To(Equal(2))
	})

	It("should report evictions with the owner pid", func() {
		c.Fetch(0, 0x1000, 0x1000, true)
		c.Fetch(0, 0x2000, 0x2000, true)

		invalidator.EXPECT().Invalidate(uint32(3), uint64(0x1000))

		victim, evicted := c.Fetch(0, 0x3000, 0x3000, true)

		Expect(evicted).To(BeTrue())
		Expect(victim.Address).To(Equal(uint64(0x1000)))
		Expect(c.CachedLines()).To(Equal(2))
	})
})
