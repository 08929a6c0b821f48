package stream

import (
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/busforge/axi/sim"
)

type tickerFunc func() bool

func (f tickerFunc) Tick() bool {
	return f()
}

// feeder pushes a fixed sequence of values into a channel, one per cycle.
func feeder[T any](c *Channel[T], values []T) sim.Ticker {
	return tickerFunc(func() bool {
		if len(values) == 0 || !c.CanSend() {
			return false
		}

		c.MustSend(values[0])
		values = values[1:]

		return true
	})
}

var _ = Describe("Packetizer", func() {
	var (
		domain *sim.Domain
		p      *Packetizer[int]
		beats  []Beat[int]
		sink   sim.Ticker
	)

	BeforeEach(func() {
		domain = sim.NewDomain("Clk", 1*sim.GHz)
		p = MakePacketizerBuilder[int]().
			WithClock(domain).
			Build("Packetizer")
		beats = nil
		sink = tickerFunc(func() bool {
			b, ok := p.Output().Retrieve()
			if ok {
				beats = append(beats, b)
			}

			return ok
		})
	})

	It("should forward length+1 beats with last on the final one", func() {
		data := make([]int, 21)
		for i := range data {
			data[i] = i
		}

		domain.Register(
			feeder(p.Lengths(), []int{3, 0, 15}),
			feeder(p.Input(), data),
			p,
			sink,
		)

		domain.RunUntilIdle(4, 1000)

		Expect(beats).To(HaveLen(21))
		for i, b := range beats {
			Expect(b.Payload).To(Equal(i))
			Expect(b.Padding).To(BeFalse())
			Expect(b.Last).To(Equal(i == 3 || i == 4 || i == 20),
				"beat %d", i)
		}
		Expect(p.NumPackets()).To(Equal(uint64(3)))
	})

	It("should take the next length only after the final beat", func() {
		data := make([]int, 64)

		domain.Register(
			feeder(p.Lengths(), []int{7, 7, 7}),
			feeder(p.Input(), data),
			p,
			sink,
		)

		for i := 0; i < 100; i++ {
			domain.Step()

			taken := p.Lengths().NumTransferred()
			Expect(taken).To(BeNumerically("<=", p.NumPackets()+1))
			if p.Remaining() > 0 {
				Expect(taken).To(Equal(p.NumPackets() + 1))
			}
		}

		Expect(p.NumPackets()).To(Equal(uint64(3)))
	})

	It("should hold beats stable under random backpressure", func() {
		rng := rand.New(rand.NewSource(7))
		data := make([]int, 200)
		for i := range data {
			data[i] = i
		}
		lengths := make([]int, 0)
		total := 0
		for total < len(data) {
			l := rng.Intn(16)
			if total+l+1 > len(data) {
				l = len(data) - total - 1
			}
			lengths = append(lengths, l)
			total += l + 1
		}

		var (
			held     Beat[int]
			wasValid bool
		)

		randomSink := tickerFunc(func() bool {
			head, valid := p.Output().Peek()
			if wasValid {
				Expect(valid).To(BeTrue())
				Expect(head).To(Equal(held))
			}

			if valid && rng.Intn(2) == 0 {
				b, _ := p.Output().Retrieve()
				beats = append(beats, b)
				wasValid = false

				return true
			}

			held, wasValid = head, valid

			return false
		})

		domain.Register(
			feeder(p.Lengths(), lengths),
			feeder(p.Input(), data),
			p,
			randomSink,
		)

		domain.RunUntil(func() bool { return len(beats) == len(data) }, 10000)

		Expect(beats).To(HaveLen(len(data)))
		next := 0
		for _, l := range lengths {
			for i := 0; i <= l; i++ {
				Expect(beats[next].Payload).To(Equal(next))
				Expect(beats[next].Last).To(Equal(i == l))
				next++
			}
		}
	})

	Context("with an underrun timeout", func() {
		BeforeEach(func() {
			p = MakePacketizerBuilder[int]().
				WithClock(domain).
				WithUnderrunTimeout(5, func() int { return -1 }).
				Build("Packetizer")
		})

		It("should pad a starved packet and drop late words", func() {
			late := false
			lateFeeder := feeder(p.Input(), []int{100, 101, 42})

			domain.Register(
				feeder(p.Lengths(), []int{3}),
				feeder(p.Input(), []int{0, 1}),
				tickerFunc(func() bool {
					if !late {
						return false
					}
					return lateFeeder.Tick()
				}),
				p,
				sink,
			)

			domain.RunCycles(40)

			Expect(beats).To(HaveLen(4))
			Expect(beats[0]).To(Equal(Beat[int]{Payload: 0}))
			Expect(beats[1]).To(Equal(Beat[int]{Payload: 1}))
			Expect(beats[2]).To(Equal(Beat[int]{Payload: -1, Padding: true}))
			Expect(beats[3]).To(Equal(
				Beat[int]{Payload: -1, Padding: true, Last: true}))
			Expect(p.NumPadded()).To(Equal(uint64(2)))

			late = true
			p.Lengths().MustSend(0)
			domain.RunCycles(20)

			Expect(p.NumDropped()).To(Equal(uint64(2)))
			Expect(beats).To(HaveLen(5))
			Expect(beats[4]).To(Equal(Beat[int]{Payload: 42, Last: true}))
		})

		It("should take at most one input word per cycle while dropping", func() {
			p = MakePacketizerBuilder[int]().
				WithClock(domain).
				WithDepth(4).
				WithUnderrunTimeout(1, func() int { return -1 }).
				Build("Packetizer")

			p.Lengths().MustSend(1)
			domain.Register(p, sink)
			domain.RunCycles(4)

			Expect(p.NumPadded()).To(Equal(uint64(2)))

			p.Input().MustSend(10)
			p.Input().MustSend(11)
			p.Input().MustSend(12)
			p.Lengths().MustSend(0)

			last := p.Input().NumTransferred()
			for i := 0; i < 10; i++ {
				domain.Step()

				now := p.Input().NumTransferred()
				Expect(now - last).To(BeNumerically("<=", 1))
				last = now
			}

			Expect(p.NumDropped()).To(Equal(uint64(2)))
			Expect(beats).To(HaveLen(3))
			Expect(beats[2]).To(Equal(Beat[int]{Payload: 12, Last: true}))
		})
	})
})
