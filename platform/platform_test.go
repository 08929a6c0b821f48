package platform

import (
	"bytes"
	"log"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/busforge/axi/axi"
	"github.com/busforge/axi/mem"
	"github.com/busforge/axi/monitoring"
	"github.com/busforge/axi/sim"
	"github.com/busforge/axi/tracing"
)

func sequential(n int, stride uint64) []uint64 {
	addrs := make([]uint64, n)
	for i := range addrs {
		addrs[i] = uint64(i) * stride
	}

	return addrs
}

var _ = Describe("Memory system", func() {
	It("should read back what it wrote across banks", func() {
		monitor := monitoring.NewMonitor()
		s := MakeBuilder().
			WithMemory(64*mem.KB, 4).
			WithMemoryLatency(5).
			WithMonitor(monitor).
			BuildMemorySystem("System")
		latency := tracing.NewLatencyTracer(s.Domain, tracing.KindIs("burst"))
		s.AttachTracer(latency)
		bar := monitor.CreateProgressBar("RoundTrip", 2000)

		res, err := s.RoundTrip(sequential(1000, 8), 100000, bar)

		Expect(err).ToNot(HaveOccurred())
		Expect(res.Mismatches).To(BeZero())
		Expect(res.WriteOK).To(Equal(uint64(63)))
		Expect(res.WriteErr).To(BeZero())
		Expect(res.ReadBursts).To(Equal(uint64(63)))
		Expect(res.ReadErrors).To(BeZero())
		Expect(bar.Snapshot().Finished).To(Equal(uint64(2000)))
		Expect(s.Banks).To(HaveLen(4))
		Expect(s.Banks[0].NumWriteBursts()).To(BeNumerically(">", 0))
		Expect(s.Banks[1].NumWriteBursts()).To(BeNumerically(">", 0))
		Expect(latency.TotalCount()).To(BeNumerically(">=", uint64(4*63)))
		Expect(latency.NumInflight()).To(BeZero())
	})

	It("should report words that cannot be read back", func() {
		s := MakeBuilder().
			WithMemory(4*mem.KB, 1).
			BuildMemorySystem("System")

		addrs := append(sequential(4, 8), 0x2000)
		res, err := s.RoundTrip(addrs, 100000, nil)

		Expect(err).To(MatchError(ErrDataMismatch))
		Expect(res.Mismatches).To(Equal(1))
		Expect(res.WriteErr).To(Equal(uint64(1)))
		Expect(res.ReadErrors).To(Equal(uint64(1)))
	})

	It("should give up after the cycle limit", func() {
		s := MakeBuilder().BuildMemorySystem("System")

		_, err := s.RoundTrip(sequential(100, 8), 10, nil)

		Expect(err).To(MatchError(ErrNotFinished))
	})

	It("should log transfers", func() {
		buf := new(bytes.Buffer)
		s := MakeBuilder().
			WithTransferLog(log.New(buf, "", 0)).
			BuildMemorySystem("System")

		_, err := s.RoundTrip(sequential(2, 8), 10000, nil)

		Expect(err).ToNot(HaveOccurred())
		Expect(buf.String()).To(ContainSubstring("System.Bus.AW"))
		Expect(buf.String()).To(ContainSubstring("System.Bank[0].Bus.R"))
	})

	It("should log stalled cycles", func() {
		buf := new(bytes.Buffer)
		s := MakeBuilder().
			WithStallLog(log.New(buf, "", 0)).
			BuildMemorySystem("System")

		s.Domain.RunCycles(3)

		Expect(buf.String()).To(ContainSubstring(
			"System.Clk: no progress in cycle 2"))
	})

	It("should run on an event engine", func() {
		engine := sim.NewSerialEngine()
		buf := new(bytes.Buffer)
		engine.AcceptHook(sim.NewEventLogger(log.New(buf, "", 0)))
		s := MakeBuilder().
			WithEngine(engine).
			WithMemoryLatency(5).
			BuildMemorySystem("System")

		res, err := s.RoundTrip(sequential(64, 8), 100000, nil)

		Expect(err).ToNot(HaveOccurred())
		Expect(res.WriteOK).To(Equal(uint64(4)))
		Expect(res.ReadBursts).To(Equal(uint64(4)))
		Expect(s.Domain.CurrentCycle()).
			To(Equal(res.WriteCycles + res.ReadCycles))
		Expect(s.Domain.Freq().Cycle(engine.CurrentTime()) + 1).
			To(Equal(s.Domain.CurrentCycle()))
		Expect(buf.String()).To(ContainSubstring("sim.TickEvent -> System.Clk"))
	})

	It("should refuse a capacity that does not split into banks", func() {
		Expect(func() {
			MakeBuilder().WithMemory(1000, 3).BuildMemorySystem("System")
		}).To(Panic())
	})
})

var _ = Describe("Peripheral system", func() {
	It("should walk the registers", func() {
		s := MakeBuilder().BuildPeripheralSystem("Periph")

		accesses, err := s.Exercise(false, 10000)

		Expect(err).ToNot(HaveOccurred())
		for i := 0; i < NumRegisters; i++ {
			Expect(accesses[2*i+1].Data).To(Equal(uint64(0x100 + i)))
		}
		Expect(s.Registers.Get(3)).To(Equal(uint64(0x103)))

		ram := accesses[2*NumRegisters+1]
		Expect(ram.Data).To(Equal(uint64(0xc0ffee)))
		Expect(ram.Resp).To(Equal(axi.RespOkay))

		hole := accesses[2*NumRegisters+2]
		Expect(hole.Resp).To(Equal(axi.RespDecErr))

		counters := accesses[len(accesses)-numCounters:]
		Expect(counters[CounterReads].Data).
			To(Equal(uint64(NumRegisters + 2 + CounterReads)))
		Expect(counters[CounterWrites].Data).To(Equal(uint64(NumRegisters + 1)))
		Expect(counters[CounterTimeouts].Data).To(BeZero())
		Expect(counters[CounterErrors].Data).To(Equal(uint64(1)))
	})

	It("should share an engine with a faster memory system", func() {
		engine := sim.NewSerialEngine()
		memSys := MakeBuilder().
			WithEngine(engine).
			BuildMemorySystem("Memory")
		periphSys := MakeBuilder().
			WithEngine(engine).
			WithFreq(100 * sim.MHz).
			BuildPeripheralSystem("Periph")

		_, err := memSys.RoundTrip(sequential(32, 8), 100000, nil)
		Expect(err).ToNot(HaveOccurred())
		memTime := engine.CurrentTime()

		accesses, err := periphSys.Exercise(false, 10000)

		Expect(err).ToNot(HaveOccurred())
		Expect(accesses[1].Data).To(Equal(uint64(0x100)))
		Expect(engine.CurrentTime()).To(BeNumerically(">", memTime))
		Expect(periphSys.Domain.CurrentTime()).
			To(BeNumerically(">", memSys.Domain.CurrentTime()))
	})

	It("should time out on the stalled RAM", func() {
		s := MakeBuilder().
			WithLiteTimeout(50).
			BuildPeripheralSystem("Periph")
		latency := tracing.NewLatencyTracer(s.Domain, tracing.KindIs("access"))
		s.AttachTracer(latency)

		accesses, err := s.Exercise(true, 10000)

		Expect(err).ToNot(HaveOccurred())
		stalled := accesses[2*NumRegisters+3]
		Expect(stalled.Resp).To(Equal(axi.RespDecErr))
		Expect(stalled.Latency()).To(BeNumerically(">=", 50))
		Expect(s.Connector.NumTimeouts()).To(Equal(uint64(1)))
		Expect(s.RAM.NumPending()).To(BeZero())

		counters := accesses[len(accesses)-numCounters:]
		Expect(counters[CounterTimeouts].Data).To(Equal(uint64(1)))
		Expect(latency.TotalCount()).To(Equal(uint64(len(accesses))))
		Expect(latency.MaxTime()).To(BeNumerically(">=", 50*s.Domain.Freq().Period()))
	})
})
