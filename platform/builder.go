// Package platform assembles complete simulated systems: a memory system
// with a DMA reader and writer in front of banked memory, and a register
// system with peripherals behind an AXI-Lite connector.
package platform

import (
	"fmt"
	"log"

	"github.com/busforge/axi/axi"
	"github.com/busforge/axi/burst"
	"github.com/busforge/axi/dma"
	"github.com/busforge/axi/interconnect"
	"github.com/busforge/axi/lite"
	"github.com/busforge/axi/mem"
	"github.com/busforge/axi/monitoring"
	"github.com/busforge/axi/periph"
	"github.com/busforge/axi/sim"
	"github.com/busforge/axi/stream"
	"github.com/busforge/axi/tracing"
)

// Register map of the peripheral system.
const (
	RegistersBase = 0x0000
	NumRegisters  = 16
	CountersBase  = 0x0100
	RAMBase       = 0x1000
	RAMSize       = 0x1000
)

// Counter registers, in address order.
const (
	CounterCycle = iota
	CounterReads
	CounterWrites
	CounterTimeouts
	CounterErrors
	numCounters
)

// A Builder can build the systems.
type Builder struct {
	freq            sim.Freq
	busConfig       axi.Config
	liteConfig      axi.Config
	channelDepth    int
	memCapacity     uint64
	numBanks        int
	memLatency      int
	maxBurstLength  int
	burstTimeout    int
	fifoDepth       int
	underrunTimeout int
	liteTimeout     int
	ramLatency      int

	engine      sim.Engine
	monitor     *monitoring.Monitor
	transferLog *log.Logger
	stallLog    *log.Logger
}

// MakeBuilder creates a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		freq:            1 * sim.GHz,
		busConfig:       axi.DefaultConfig,
		liteConfig:      axi.DefaultLiteConfig,
		channelDepth:    stream.DefaultDepth,
		memCapacity:     1 * mem.MB,
		numBanks:        2,
		memLatency:      10,
		maxBurstLength:  burst.DefaultMaxBurstLength,
		burstTimeout:    burst.DefaultBurstCreationTimeout,
		fifoDepth:       dma.DefaultFIFODepth,
		underrunTimeout: dma.DefaultUnderrunTimeout,
		liteTimeout:     lite.DefaultTimeout,
		ramLatency:      4,
	}
}

// WithFreq sets the clock frequency.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithBusConfig sets the widths of the full AXI bus.
func (b Builder) WithBusConfig(cfg axi.Config) Builder {
	b.busConfig = cfg
	return b
}

// WithLiteConfig sets the widths of the AXI-Lite bus.
func (b Builder) WithLiteConfig(cfg axi.Config) Builder {
	b.liteConfig = cfg
	return b
}

// WithChannelDepth sets the number of beats each channel holds.
func (b Builder) WithChannelDepth(depth int) Builder {
	b.channelDepth = depth
	return b
}

// WithMemory sets the total memory capacity and the number of banks it is
// split into. Each bank sits behind its own interconnect port.
func (b Builder) WithMemory(capacity uint64, numBanks int) Builder {
	b.memCapacity = capacity
	b.numBanks = numBanks

	return b
}

// WithMemoryLatency sets the latency of the memory banks, in cycles.
func (b Builder) WithMemoryLatency(cycles int) Builder {
	b.memLatency = cycles
	return b
}

// WithMaxBurstLength sets the number of beats per burst.
func (b Builder) WithMaxBurstLength(n int) Builder {
	b.maxBurstLength = n
	return b
}

// WithBurstCreationTimeout sets how long a partial burst waits for more
// addresses.
func (b Builder) WithBurstCreationTimeout(cycles int) Builder {
	b.burstTimeout = cycles
	return b
}

// WithFIFODepth sets the depth of the writer data FIFO.
func (b Builder) WithFIFODepth(depth int) Builder {
	b.fifoDepth = depth
	return b
}

// WithUnderrunTimeout sets how long the writer waits for data in the middle
// of a burst before padding.
func (b Builder) WithUnderrunTimeout(cycles int) Builder {
	b.underrunTimeout = cycles
	return b
}

// WithLiteTimeout sets the connector watchdog timeout.
func (b Builder) WithLiteTimeout(cycles int) Builder {
	b.liteTimeout = cycles
	return b
}

// WithRAMLatency sets the latency of the peripheral RAM.
func (b Builder) WithRAMLatency(cycles int) Builder {
	b.ramLatency = cycles
	return b
}

// WithEngine makes an event engine drive the clock domain of the system.
// Systems built with the same engine can run at different frequencies and
// share simulated time.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithMonitor registers the domain and the components to a monitor.
func (b Builder) WithMonitor(m *monitoring.Monitor) Builder {
	b.monitor = m
	return b
}

// WithTransferLog logs every beat transferred on the buses.
func (b Builder) WithTransferLog(logger *log.Logger) Builder {
	b.transferLog = logger
	return b
}

// WithStallLog logs every cycle in which nothing moves.
func (b Builder) WithStallLog(logger *log.Logger) Builder {
	b.stallLog = logger
	return b
}

func (b Builder) parametersMustBeValid(name string) {
	sim.NameMustBeValid(name)

	if b.numBanks < 1 {
		log.Panicf("%s: at least one memory bank is required", name)
	}

	if b.memCapacity == 0 || b.memCapacity%uint64(b.numBanks) != 0 {
		log.Panicf("%s: capacity %d cannot be split into %d banks",
			name, b.memCapacity, b.numBanks)
	}
}

func (b Builder) observe(domain *sim.Domain, components []sim.Named) {
	if b.engine != nil {
		domain.Attach(b.engine)
	}

	if b.stallLog != nil {
		domain.AcceptHook(sim.NewStallLogger(b.stallLog))
	}

	if b.monitor == nil {
		return
	}

	b.monitor.RegisterDomain(domain)
	for _, c := range components {
		b.monitor.RegisterComponent(c)
	}
}

// BuildMemorySystem creates a memory system.
func (b Builder) BuildMemorySystem(name string) *MemorySystem {
	b.parametersMustBeValid(name)

	s := &MemorySystem{
		Domain: sim.NewDomain(name+".Clk", b.freq),
	}

	s.Bus = axi.NewBus(name+".Bus", b.busConfig, s.Domain, b.channelDepth)

	s.Writer = dma.MakeWriterBuilder().
		WithClock(s.Domain).
		WithBus(s.Bus).
		WithDepth(b.channelDepth).
		WithMaxBurstLength(b.maxBurstLength).
		WithBurstCreationTimeout(b.burstTimeout).
		WithFIFODepth(b.fifoDepth).
		WithUnderrunTimeout(b.underrunTimeout).
		Build(name + ".Writer")
	s.Reader = dma.MakeReaderBuilder().
		WithClock(s.Domain).
		WithBus(s.Bus).
		WithDepth(b.channelDepth).
		WithMaxBurstLength(b.maxBurstLength).
		WithBurstCreationTimeout(b.burstTimeout).
		Build(name + ".Reader")

	icBuilder := interconnect.MakeBuilder().WithUpstream(s.Bus)
	bankSize := b.memCapacity / uint64(b.numBanks)
	for i := 0; i < b.numBanks; i++ {
		bankName := fmt.Sprintf("%s.Bank[%d]", name, i)
		base := uint64(i) * bankSize
		bus := axi.NewBus(bankName+".Bus", b.busConfig, s.Domain,
			b.channelDepth)

		bank := mem.MakeBuilder().
			WithClock(s.Domain).
			WithBus(bus).
			WithBaseAddress(base).
			WithNewStorage(bankSize).
			WithLatency(b.memLatency).
			Build(bankName)

		s.Banks = append(s.Banks, bank)
		icBuilder = icBuilder.WithPort(
			periph.AddrRange{Start: base, Stop: base + bankSize}, bus)

		if b.transferLog != nil {
			bus.Hook(stream.NewTransferLogger(b.transferLog, s.Domain, false))
		}
	}
	s.Interconnect = icBuilder.Build(name + ".Interconnect")

	if b.transferLog != nil {
		s.Bus.Hook(stream.NewTransferLogger(b.transferLog, s.Domain, false))
	}

	s.traffic = &trafficGen{
		writer:    s.Writer,
		reader:    s.Reader,
		dataBytes: b.busConfig.DataBytes(),
	}

	s.Domain.Register(s.traffic, s.Writer, s.Reader, s.Interconnect)
	s.traced = []tracing.NamedHookable{
		s.Writer, s.Reader, s.Interconnect,
		s.Writer.Burster().Coalescer(), s.Reader.Coalescer(),
	}
	components := []sim.Named{s.Writer, s.Reader, s.Interconnect}
	for _, bank := range s.Banks {
		s.Domain.Register(bank)
		s.traced = append(s.traced, bank)
		components = append(components, bank)
	}

	b.observe(s.Domain, components)

	return s
}

// BuildPeripheralSystem creates a register system.
func (b Builder) BuildPeripheralSystem(name string) *PeripheralSystem {
	sim.NameMustBeValid(name)

	s := &PeripheralSystem{
		Domain: sim.NewDomain(name+".Clk", b.freq),
	}
	wordBytes := b.liteConfig.DataBytes()

	s.Bus = axi.NewLiteBus(name+".Bus", b.liteConfig, s.Domain, b.channelDepth)
	s.Registers = periph.NewRegisterFile(RegistersBase, NumRegisters, wordBytes)
	s.RAM = periph.NewRAM(RAMBase, RAMSize, wordBytes, b.ramLatency)

	counters := make([]func() uint64, numCounters)
	counters[CounterCycle] = s.Domain.CurrentCycle
	counters[CounterReads] = func() uint64 { return s.Connector.NumReads() }
	counters[CounterWrites] = func() uint64 { return s.Connector.NumWrites() }
	counters[CounterTimeouts] = func() uint64 { return s.Connector.NumTimeouts() }
	counters[CounterErrors] = func() uint64 { return s.Connector.NumErrors() }
	s.Counters = periph.NewCounterBank(CountersBase, wordBytes, counters...)

	s.Aggregator = (&periph.SystemBuilder{}).
		Register(s.Registers).
		Register(s.Counters).
		Register(s.RAM).
		MustFinalize()

	s.Connector = lite.MakeBuilder().
		WithBus(s.Bus).
		WithPeripheral(s.Aggregator).
		WithTimeout(b.liteTimeout).
		Build(name + ".Connector")
	s.Master = lite.NewMaster(name+".Master", s.Bus, s.Domain)

	if b.transferLog != nil {
		s.Bus.Hook(stream.NewTransferLogger(b.transferLog, s.Domain, false))
	}

	s.Domain.Register(s.Master, s.Connector, s.RAM)
	b.observe(s.Domain, []sim.Named{s.Master, s.Connector})

	return s
}
