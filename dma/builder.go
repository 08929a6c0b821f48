package dma

import (
	"log"

	"github.com/busforge/axi/axi"
	"github.com/busforge/axi/burst"
	"github.com/busforge/axi/sim"
	"github.com/busforge/axi/stream"
)

// Defaults of the writer parameters.
const (
	DefaultFIFODepth       = 16
	DefaultUnderrunTimeout = 256
)

// A ReaderBuilder can build readers.
type ReaderBuilder struct {
	clock          sim.CycleTeller
	bus            *axi.Bus
	depth          int
	maxBurstLength int
	timeout        int
	boundary       uint64
}

// MakeReaderBuilder returns a builder with default parameters.
func MakeReaderBuilder() ReaderBuilder {
	return ReaderBuilder{
		depth:          stream.DefaultDepth,
		maxBurstLength: burst.DefaultMaxBurstLength,
		timeout:        burst.DefaultBurstCreationTimeout,
		boundary:       burst.DefaultBoundary,
	}
}

// WithClock sets the clock of the channels the reader owns.
func (b ReaderBuilder) WithClock(clock sim.CycleTeller) ReaderBuilder {
	b.clock = clock
	return b
}

// WithBus sets the bus the reader drives.
func (b ReaderBuilder) WithBus(bus *axi.Bus) ReaderBuilder {
	b.bus = bus
	return b
}

// WithDepth sets the depth of the channels the reader owns.
func (b ReaderBuilder) WithDepth(depth int) ReaderBuilder {
	b.depth = depth
	return b
}

// WithMaxBurstLength sets the maximum number of words in a burst.
func (b ReaderBuilder) WithMaxBurstLength(n int) ReaderBuilder {
	b.maxBurstLength = n
	return b
}

// WithBurstCreationTimeout sets the number of idle cycles after which an
// incomplete burst is issued.
func (b ReaderBuilder) WithBurstCreationTimeout(cycles int) ReaderBuilder {
	b.timeout = cycles
	return b
}

// WithBoundary sets the address boundary that a burst may not cross.
func (b ReaderBuilder) WithBoundary(boundary uint64) ReaderBuilder {
	b.boundary = boundary
	return b
}

// Build creates a reader.
func (b ReaderBuilder) Build(name string) *Reader {
	sim.NameMustBeValid(name)
	mustHaveClockAndBus(name, b.clock, b.bus)

	r := &Reader{
		name: name,
		bus:  b.bus,
	}

	r.coalescer = burst.MakeBuilder().
		WithClock(b.clock).
		WithDepth(b.depth).
		WithOutput(b.bus.AR).
		WithDataBytes(b.bus.Config.DataBytes()).
		WithMaxBurstLength(b.maxBurstLength).
		WithBurstCreationTimeout(b.timeout).
		WithBoundary(b.boundary).
		Build(name + ".Coalescer")

	r.output = stream.NewChannel[[]byte](name+".Output", b.clock, b.depth)

	return r
}

// A WriterBuilder can build writers.
type WriterBuilder struct {
	clock           sim.CycleTeller
	bus             *axi.Bus
	depth           int
	maxBurstLength  int
	timeout         int
	boundary        uint64
	fifoDepth       int
	underrunTimeout int
}

// MakeWriterBuilder returns a builder with default parameters.
func MakeWriterBuilder() WriterBuilder {
	return WriterBuilder{
		depth:           stream.DefaultDepth,
		maxBurstLength:  burst.DefaultMaxBurstLength,
		timeout:         burst.DefaultBurstCreationTimeout,
		boundary:        burst.DefaultBoundary,
		fifoDepth:       DefaultFIFODepth,
		underrunTimeout: DefaultUnderrunTimeout,
	}
}

// WithClock sets the clock of the channels the writer owns.
func (b WriterBuilder) WithClock(clock sim.CycleTeller) WriterBuilder {
	b.clock = clock
	return b
}

// WithBus sets the bus the writer drives.
func (b WriterBuilder) WithBus(bus *axi.Bus) WriterBuilder {
	b.bus = bus
	return b
}

// WithDepth sets the depth of the internal channels.
func (b WriterBuilder) WithDepth(depth int) WriterBuilder {
	b.depth = depth
	return b
}

// WithMaxBurstLength sets the maximum number of words in a burst.
func (b WriterBuilder) WithMaxBurstLength(n int) WriterBuilder {
	b.maxBurstLength = n
	return b
}

// WithBurstCreationTimeout sets the number of idle cycles after which an
// incomplete burst is issued.
func (b WriterBuilder) WithBurstCreationTimeout(cycles int) WriterBuilder {
	b.timeout = cycles
	return b
}

// WithBoundary sets the address boundary that a burst may not cross.
func (b WriterBuilder) WithBoundary(boundary uint64) WriterBuilder {
	b.boundary = boundary
	return b
}

// WithFIFODepth sets the number of data words buffered ahead of the bus.
func (b WriterBuilder) WithFIFODepth(depth int) WriterBuilder {
	b.fifoDepth = depth
	return b
}

// WithUnderrunTimeout sets the number of cycles a burst waits for a missing
// data word before padding it. Zero waits forever.
func (b WriterBuilder) WithUnderrunTimeout(cycles int) WriterBuilder {
	b.underrunTimeout = cycles
	return b
}

// BuildBurster creates a burster whose outputs are the write address and
// write data channels of the bus.
func (b WriterBuilder) BuildBurster(name string) *WriterBurster {
	sim.NameMustBeValid(name)
	mustHaveClockAndBus(name, b.clock, b.bus)

	if b.fifoDepth <= 0 {
		log.Panicf("%s: FIFO depth must be positive", name)
	}

	w := &WriterBurster{
		name:      name,
		dataBytes: b.bus.Config.DataBytes(),
		addrOut:   b.bus.AW,
		dataOut:   b.bus.W,
	}

	w.bursts = stream.NewChannel[axi.AddrBeat](name+".Bursts", b.clock, b.depth)
	w.fifo = stream.NewChannel[[]byte](name+".FIFO", b.clock, b.fifoDepth)
	w.beats = stream.NewChannel[stream.Beat[[]byte]](
		name+".Beats", b.clock, b.depth)

	w.coalescer = burst.MakeBuilder().
		WithClock(b.clock).
		WithDepth(b.depth).
		WithOutput(w.bursts).
		WithDataBytes(w.dataBytes).
		WithMaxBurstLength(b.maxBurstLength).
		WithBurstCreationTimeout(b.timeout).
		WithBoundary(b.boundary).
		Build(name + ".Coalescer")

	w.packetizer = stream.MakePacketizerBuilder[[]byte]().
		WithClock(b.clock).
		WithDepth(b.depth).
		WithInput(w.fifo).
		WithOutput(w.beats).
		WithUnderrunTimeout(b.underrunTimeout, w.zeroWord).
		Build(name + ".Packetizer")

	return w
}

// Build creates a writer.
func (b WriterBuilder) Build(name string) *Writer {
	w := &Writer{
		name: name,
		bus:  b.bus,
	}

	w.burster = b.BuildBurster(name + ".Burster")
	w.burster.onIssue = w.onIssue

	return w
}

func mustHaveClockAndBus(name string, clock sim.CycleTeller, bus *axi.Bus) {
	if clock == nil {
		log.Panicf("%s: clock is not set", name)
	}

	if bus == nil {
		log.Panicf("%s: bus is not set", name)
	}
}
