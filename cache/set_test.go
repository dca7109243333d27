package cache

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	gomock "go.uber.org/mock/gomock"
)

var _ = Describe("Set", func() {
	var (
		mockCtrl     *gomock.Controller
		invalidator  *MockInvalidator
		victimFinder *LRUVictimFinder
		set          Set
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		invalidator = NewMockInvalidator(mockCtrl)
		victimFinder = NewLRUVictimFinder()
		set = NewSet(4)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should start with empty lines", func() {
		Expect(set.Lines).To(HaveLen(4))

		for i, l := range set.Lines {
			Expect(l.Tag).To(Equal(AllOnes))
			Expect(l.Status).To(Equal(Uncached))
			Expect(l.LRU).To(BeZero())
			Expect(l.WayID).To(Equal(i))
		}
	})

	It("should install a line on a miss without evicting", func() {
		_, evicted := set.FetchSingleLine(
			0, 0x1000, 0x1000, victimFinder, invalidator, true)

		Expect(evicted).To(BeFalse())
		Expect(set.Lookup(0x1000, false)).To(Equal(Cached))
		Expect(set.Lines[0].Address).To(Equal(uint64(0x1000)))
		Expect(set.Lines[0].LRU).To(Equal(uint64(1)))
	})

	It("should not reinstall a present line", func() {
		set.FetchSingleLine(0, 0x1000, 0x1000, victimFinder, invalidator, true)
		set.FetchSingleLine(0, 0x1000, 0x1000, victimFinder, invalidator, true)

		n := 0
		for _, l := range set.Lines {
			if l.IsCached() {
				n++
			}
		}

		Expect(n).To(Equal(1))
		Expect(set.Lines[0].LRU).To(Equal(uint64(2)))
	})

	It("should use empty lines before evicting", func() {
		for i := uint64(0); i < 4; i++ {
			set.FetchSingleLine(
				0, i<<12, i<<12, victimFinder, invalidator, true)
		}

		for i := uint64(0); i < 4; i++ {
			Expect(set.Contains(i << 12)).To(BeTrue())
		}
	})

	It("should evict the least recently used line", func() {
		for i := uint64(0); i < 4; i++ {
			set.FetchSingleLine(
				1, i<<12, i<<12, victimFinder, invalidator, true)
		}

		set.Lookup(0, true)

		invalidator.EXPECT().Invalidate(uint32(1), uint64(0x1000))

		victim, evicted := set.FetchSingleLine(
			1, 0x8000, 0x8000, victimFinder, invalidator, true)

		Expect(evicted).To(BeTrue())
		Expect(victim.Tag).To(Equal(uint64(0x1000)))
		Expect(set.Contains(0x1000)).To(BeFalse())
		Expect(set.Contains(0x8000)).To(BeTrue())
		Expect(set.Contains(0)).To(BeTrue())
	})

	It("should not change the LRU order when looking up without replace", func() {
		set.FetchSingleLine(0, 0x1000, 0x1000, victimFinder, invalidator, true)
		set.FetchSingleLine(0, 0x2000, 0x2000, victimFinder, invalidator, true)

		set.Lookup(0x1000, false)

		Expect(set.Lines[0].LRU).To(Equal(uint64(1)))
		Expect(set.Lines[1].LRU).To(Equal(uint64(2)))
	})

	It("should keep the victim age when installing without replace", func() {
		set = NewSet(2)
		set.FetchSingleLine(0, 0x1000, 0x1000, victimFinder, invalidator, true)
		set.FetchSingleLine(0, 0x2000, 0x2000, victimFinder, invalidator, true)

		invalidator.EXPECT().Invalidate(uint32(0), uint64(0x1000))

		set.FetchSingleLine(0, 0x3000, 0x3000, victimFinder, invalidator, false)

		Expect(set.Lines[0].Tag).To(Equal(uint64(0x3000)))
		Expect(set.Lines[0].LRU).To(Equal(uint64(1)))

		invalidator.EXPECT().Invalidate(uint32(0), uint64(0x3000))

		set.FetchSingleLine(0, 0x4000, 0x4000, victimFinder, invalidator, true)

		Expect(set.Contains(0x2000)).To(BeTrue())
		Expect(set.Contains(0x4000)).To(BeTrue())
	})
})

var _ = Describe("LRUVictimFinder", func() {
	var (
		finder *LRUVictimFinder
		set    Set
	)

	BeforeEach(func() {
		finder = NewLRUVictimFinder()
		set = NewSet(4)
	})

	It("should pick the first way of an empty set", func() {
		Expect(finder.FindVictim(&set)).To(Equal(0))
	})

	It("should pick the smallest age", func() {
		set.Lines[0] = Line{Status: Cached, LRU: 5}
		set.Lines[1] = Line{Status: Cached, LRU: 3}
		set.Lines[2] = Line{Status: Cached, LRU: 7}
		set.Lines[3] = Line{Status: Cached, LRU: 4}

		Expect(finder.FindVictim(&set)).To(Equal(1))
	})

	It("should break ties with the lowest way index", func() {
		set.Lines[0] = Line{Status: Cached, LRU: 5}
		set.Lines[1] = Line{Status: Cached, LRU: 2}
		set.Lines[2] = Line{Status: Cached, LRU: 2}
		set.Lines[3] = Line{Status: Cached, LRU: 4}

		Expect(finder.FindVictim(&set)).To(Equal(1))
	})

	It("should prefer an empty line among lines of the same age", func() {
		set.Lines[0] = Line{Status: Cached, LRU: 0}

		Expect(finder.FindVictim(&set)).To(Equal(1))
	})
})
