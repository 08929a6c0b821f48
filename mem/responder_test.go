package mem

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/busforge/axi/axi"
	"github.com/busforge/axi/sim"
	"github.com/busforge/axi/stream"
)

var _ = Describe("Responder", func() {
	var (
		domain    *sim.Domain
		bus       *axi.Bus
		responder *Responder
		reads     []axi.ReadDataBeat
		resps     []axi.WriteRespBeat
	)

	drain := func() bool {
		madeProgress := false

		if b, ok := bus.R.Retrieve(); ok {
			reads = append(reads, b)
			madeProgress = true
		}

		if b, ok := bus.B.Retrieve(); ok {
			resps = append(resps, b)
			madeProgress = true
		}

		return madeProgress
	}

	BeforeEach(func() {
		domain = sim.NewDomain("Clk", 1*sim.GHz)
		bus = axi.NewBus("Bus", axi.DefaultConfig, domain, stream.DefaultDepth)
		responder = MakeBuilder().
			WithClock(domain).
			WithBus(bus).
			WithNewStorage(64 * KB).
			WithBaseAddress(0x1000_0000).
			WithLatency(5).
			Build("Memory")
		reads = nil
		resps = nil

		domain.Register(responder, tickerFunc(drain))
	})

	word := func(v uint64) []byte {
		return axi.Uint64ToWord(v, 8)
	}

	It("should serve an INCR read burst after the latency", func() {
		for i := uint64(0); i < 4; i++ {
			Expect(responder.Storage().Write(i*8, word(100+i))).To(Succeed())
		}

		bus.AR.MustSend(axi.AddrBeat{
			Addr: 0x1000_0000, Len: 3, Size: 3, Burst: axi.BurstIncr, ID: 2,
		})

		domain.RunCycles(7)
		Expect(reads).To(BeEmpty())

		domain.RunUntilIdle(4, 100)

		Expect(reads).To(HaveLen(4))
		for i, b := range reads {
			Expect(axi.WordToUint64(b.Data)).To(Equal(uint64(100 + i)))
			Expect(b.Resp).To(Equal(axi.RespOkay))
			Expect(b.ID).To(Equal(uint32(2)))
			Expect(b.Last).To(Equal(i == 3))
		}
		Expect(responder.NumReadBursts()).To(Equal(uint64(1)))
	})

	It("should apply write strobes", func() {
		Expect(responder.Storage().Write(8, word(0xffff_ffff_ffff_ffff))).To(Succeed())

		bus.AW.MustSend(axi.AddrBeat{
			Addr: 0x1000_0000, Len: 1, Size: 3, Burst: axi.BurstIncr,
		})
		bus.W.MustSend(axi.WriteDataBeat{Data: word(1), Strb: 0xff})
		bus.W.MustSend(axi.WriteDataBeat{Data: word(0), Strb: 0x0f, Last: true})

		domain.RunUntilIdle(4, 100)

		Expect(resps).To(Equal([]axi.WriteRespBeat{{Resp: axi.RespOkay}}))

		data, _ := responder.Storage().Read(0, 16)
		Expect(axi.WordToUint64(data[0:8])).To(Equal(uint64(1)))
		Expect(axi.WordToUint64(data[8:16])).To(Equal(uint64(0xffff_ffff_0000_0000)))
	})

	It("should answer DECERR outside the storage", func() {
		bus.AR.MustSend(axi.AddrBeat{
			Addr: 0x1000_0000 + 64*KB - 8, Len: 1, Size: 3, Burst: axi.BurstIncr,
		})

		domain.RunUntilIdle(4, 100)

		Expect(reads).To(HaveLen(2))
		Expect(reads[0].Resp).To(Equal(axi.RespOkay))
		Expect(reads[1].Resp).To(Equal(axi.RespDecErr))
		Expect(responder.NumErrorBeats()).To(Equal(uint64(1)))
	})

	It("should answer DECERR to a write past the storage", func() {
		bus.AW.MustSend(axi.AddrBeat{
			Addr: 0x1000_0000 + 64*KB - 8, Len: 1, Size: 3, Burst: axi.BurstIncr,
		})
		bus.W.MustSend(axi.WriteDataBeat{Data: word(7), Strb: 0xff})
		bus.W.MustSend(axi.WriteDataBeat{Data: word(8), Strb: 0xff, Last: true})

		domain.RunUntilIdle(4, 100)

		Expect(resps).To(HaveLen(1))
		Expect(resps[0].Resp).To(Equal(axi.RespDecErr))
		Expect(responder.NumErrorBeats()).To(Equal(uint64(1)))

		data, err := responder.Storage().Read(64*KB-8, 8)
		Expect(err).NotTo(HaveOccurred())
		Expect(axi.WordToUint64(data)).To(Equal(uint64(7)))
	})

	It("should answer SLVERR in an injected error range", func() {
		responder.InjectError(ErrorRange{Start: 0x1000_0040, Stop: 0x1000_0080})

		bus.AW.MustSend(axi.AddrBeat{
			Addr: 0x1000_0038, Len: 1, Size: 3, Burst: axi.BurstIncr,
		})
		bus.W.MustSend(axi.WriteDataBeat{Data: word(1), Strb: 0xff})
		bus.W.MustSend(axi.WriteDataBeat{Data: word(2), Strb: 0xff, Last: true})

		domain.RunUntilIdle(4, 100)

		Expect(resps).To(HaveLen(1))
		Expect(resps[0].Resp).To(Equal(axi.RespSlvErr))

		data, _ := responder.Storage().Read(0x38, 16)
		Expect(axi.WordToUint64(data[0:8])).To(Equal(uint64(1)))
		Expect(axi.WordToUint64(data[8:16])).To(BeZero())
	})

	It("should flag a misplaced last beat", func() {
		bus.AW.MustSend(axi.AddrBeat{Addr: 0x1000_0000, Len: 1, Size: 3})
		bus.W.MustSend(axi.WriteDataBeat{Data: word(1), Strb: 0xff, Last: true})
		bus.W.MustSend(axi.WriteDataBeat{Data: word(2), Strb: 0xff, Last: true})

		domain.RunUntilIdle(4, 100)

		Expect(resps).To(HaveLen(1))
		Expect(resps[0].Resp).To(Equal(axi.RespSlvErr))
	})

	It("should hold at most the outstanding bursts in its queue", func() {
		peak := 0
		responder.reads.AcceptHook(sim.HookFunc(func(ctx sim.HookCtx) {
			if ctx.Pos == sim.HookPosBufPush {
				peak = max(peak, responder.reads.Size())
			}
		}))

		sent := 0
		domain.Register(tickerFunc(func() bool {
			if sent == 8 || !bus.AR.CanSend() {
				return false
			}

			bus.AR.MustSend(axi.AddrBeat{
				Addr: 0x1000_0000 + uint64(sent)*8, Size: 3, Burst: axi.BurstIncr,
			})
			sent++

			return true
		}))

		domain.RunUntilIdle(8, 1000)

		Expect(reads).To(HaveLen(8))
		Expect(peak).To(Equal(4))
		Expect(responder.Outstanding()).To(BeZero())
		Expect(responder.reads.Name()).To(Equal("Memory.ReadQueue"))
		Expect(responder.reads.Capacity()).To(Equal(4))
	})

	It("should serve WRAP and FIXED bursts", func() {
		for i := uint64(0); i < 8; i++ {
			Expect(responder.Storage().Write(i*8, word(i))).To(Succeed())
		}

		bus.AR.MustSend(axi.AddrBeat{
			Addr: 0x1000_0010, Len: 3, Size: 3, Burst: axi.BurstWrap,
		})
		bus.AR.MustSend(axi.AddrBeat{
			Addr: 0x1000_0028, Len: 1, Size: 3, Burst: axi.BurstFixed,
		})

		domain.RunUntilIdle(4, 100)

		var got []uint64
		for _, b := range reads {
			got = append(got, axi.WordToUint64(b.Data))
		}
		Expect(got).To(Equal([]uint64{2, 3, 0, 1, 5, 5}))
	})
})

type tickerFunc func() bool

func (f tickerFunc) Tick() bool {
	return f()
}
