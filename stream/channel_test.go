package stream

import (
	"bytes"
	"log"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Channel", func() {
	var (
		clock *manualClock
		c     *Channel[int]
	)

	BeforeEach(func() {
		clock = &manualClock{}
		c = NewChannel[int]("Chan", clock, 2)
	})

	It("should not present a beat in the cycle it is sent", func() {
		Expect(c.Send(1)).To(BeNil())

		Expect(c.Valid()).To(BeFalse())
		_, ok := c.Retrieve()
		Expect(ok).To(BeFalse())

		clock.cycle++

		Expect(c.Valid()).To(BeTrue())
		v, ok := c.Retrieve()
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal(1))
	})

	It("should keep the presented beat until it is retrieved", func() {
		c.MustSend(7)
		clock.cycle++

		for i := 0; i < 5; i++ {
			v, ok := c.Peek()
			Expect(ok).To(BeTrue())
			Expect(v).To(Equal(7))
			clock.cycle++
		}

		v, _ := c.Retrieve()
		Expect(v).To(Equal(7))
		Expect(c.Empty()).To(BeTrue())
	})

	It("should refuse to send when full", func() {
		c.MustSend(1)
		c.MustSend(2)

		Expect(c.CanSend()).To(BeFalse())

		err := c.Send(3)
		Expect(err).NotTo(BeNil())
		Expect(err.Error()).To(ContainSubstring("Chan"))
		Expect(func() { c.MustSend(3) }).To(Panic())
	})

	It("should preserve order", func() {
		c.MustSend(1)
		c.MustSend(2)
		clock.cycle++

		a, _ := c.Retrieve()
		b, _ := c.Retrieve()

		Expect([]int{a, b}).To(Equal([]int{1, 2}))
		Expect(c.NumSent()).To(Equal(uint64(2)))
		Expect(c.NumTransferred()).To(Equal(uint64(2)))
	})

	It("should panic on a bad depth", func() {
		Expect(func() { NewChannel[int]("Chan", clock, 0) }).To(Panic())
	})

	It("should log transfers", func() {
		buf := new(bytes.Buffer)
		c.AcceptHook(NewTransferLogger(log.New(buf, "", 0), clock, true))

		c.MustSend(5)
		clock.cycle++
		c.Retrieve()

		Expect(buf.String()).To(ContainSubstring("0, Chan, send, 5"))
		Expect(buf.String()).To(ContainSubstring("1, Chan, xfer, 5"))
	})
})
