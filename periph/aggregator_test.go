package periph

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("AddrRange", func() {
	It("should be half-open", func() {
		r := AddrRange{Start: 0x10, Stop: 0x20}

		Expect(r.Contains(0x10)).To(BeTrue())
		Expect(r.Contains(0x1f)).To(BeTrue())
		Expect(r.Contains(0x20)).To(BeFalse())
		Expect(r.Overlaps(AddrRange{Start: 0x20, Stop: 0x30})).To(BeFalse())
		Expect(r.Overlaps(AddrRange{Start: 0x1f, Stop: 0x30})).To(BeTrue())
		Expect(r.Overlaps(AddrRange{Start: 0x0, Stop: 0x100})).To(BeTrue())
		Expect(r.Size()).To(Equal(uint64(0x10)))
	})
})

var _ = Describe("SystemBuilder", func() {
	It("should reject overlapping ranges", func() {
		b := &SystemBuilder{}
		b.Register(NewRegisterFile(0x000, 4, 4)).
			Register(NewRegisterFile(0x100, 4, 4)).
			Register(NewRegisterFile(0x10c, 4, 4))

		a, err := b.Finalize()

		Expect(a).To(BeNil())
		var overlap *OverlapError
		Expect(err).To(BeAssignableToTypeOf(overlap))
		overlap = err.(*OverlapError)
		Expect(overlap.FirstIdx).To(Equal(1))
		Expect(overlap.SecondIdx).To(Equal(2))
		Expect(func() { b.MustFinalize() }).To(Panic())
	})

	It("should reject empty ranges and empty systems", func() {
		_, err := (&SystemBuilder{}).Finalize()
		Expect(err).To(HaveOccurred())

		err = CheckDisjoint([]AddrRange{{Start: 4, Stop: 4}})
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Aggregator", func() {
	var (
		regsA, regsB *RegisterFile
		agg          *Aggregator
	)

	BeforeEach(func() {
		regsA = NewRegisterFile(0x1000, 4, 4)
		regsB = NewRegisterFile(0x2000, 4, 4)
		agg = (&SystemBuilder{}).Register(regsA).Register(regsB).MustFinalize()
	})

	It("should span all ranges", func() {
		Expect(agg.Range()).To(Equal(AddrRange{Start: 0x1000, Stop: 0x2010}))
	})

	It("should route to the owner of the address", func() {
		regsA.Set(1, 11)
		regsB.Set(2, 22)

		c, ok := agg.Poll(agg.StartRead(0x4))
		Expect(ok).To(BeTrue())
		Expect(c).To(Equal(Completion{Data: 11}))

		c, ok = agg.Poll(agg.StartRead(0x1008))
		Expect(ok).To(BeTrue())
		Expect(c).To(Equal(Completion{Data: 22}))

		agg.Poll(agg.StartWrite(0x100c, 0xabcd, 0xf))
		Expect(regsB.Get(3)).To(Equal(uint64(0xabcd)))
	})

	It("should fail accesses in holes immediately", func() {
		c, ok := agg.Poll(agg.StartRead(0x800))
		Expect(ok).To(BeTrue())
		Expect(c.Status).To(Equal(StatusErr))
		Expect(agg.NumUnmapped()).To(Equal(uint64(1)))

		regsA.Set(0, 5)
		c, ok = agg.Poll(agg.StartRead(0x0))
		Expect(ok).To(BeTrue())
		Expect(c).To(Equal(Completion{Data: 5}))
	})

	It("should return a completion only once", func() {
		t := agg.StartRead(0)
		_, ok := agg.Poll(t)
		Expect(ok).To(BeTrue())
		_, ok = agg.Poll(t)
		Expect(ok).To(BeFalse())
	})

	It("should forward cancellation", func() {
		ram := NewRAM(0x3000, 0x100, 4, 3)
		agg = (&SystemBuilder{}).Register(regsA).Register(ram).MustFinalize()

		t := agg.StartRead(0x2000)
		Expect(ram.NumPending()).To(Equal(1))

		agg.Cancel(t)
		Expect(ram.NumPending()).To(BeZero())
		_, ok := agg.Poll(t)
		Expect(ok).To(BeFalse())
	})
})
