package stream

import (
	"log"

	"github.com/busforge/axi/sim"
)

// A Packetizer tags a data stream with packet boundaries. It takes one length
// value L (zero-based, as in an AXI burst length field) and then forwards
// exactly L+1 data beats, marking the final one as Last. The next length is
// only taken after that final beat has been forwarded.
//
// When an underrun timeout is configured and data stops arriving in the
// middle of a packet, the packetizer substitutes padding beats so that the
// packet still ends on time. Data words that arrive later for the padded
// positions are dropped.
type Packetizer[T any] struct {
	name string

	lengths *Channel[int]
	input   *Channel[T]
	output  *Channel[Beat[T]]

	underrunTimeout int
	filler          func() T

	remaining  int
	idleCycles int
	owed       int

	numPackets uint64
	numPadded  uint64
	numDropped uint64
}

// Name returns the name of the packetizer.
func (p *Packetizer[T]) Name() string {
	return p.name
}

// Lengths returns the channel that receives packet lengths.
func (p *Packetizer[T]) Lengths() *Channel[int] {
	return p.lengths
}

// Input returns the raw data channel.
func (p *Packetizer[T]) Input() *Channel[T] {
	return p.input
}

// Output returns the tagged beat channel.
func (p *Packetizer[T]) Output() *Channel[Beat[T]] {
	return p.output
}

// Remaining returns the number of beats left in the current packet.
func (p *Packetizer[T]) Remaining() int {
	return p.remaining
}

// NumPackets returns the number of packets completed.
func (p *Packetizer[T]) NumPackets() uint64 {
	return p.numPackets
}

// NumPadded returns the number of padding beats substituted.
func (p *Packetizer[T]) NumPadded() uint64 {
	return p.numPadded
}

// NumDropped returns the number of late data words discarded.
func (p *Packetizer[T]) NumDropped() uint64 {
	return p.numDropped
}

// Tick advances the packetizer by one cycle.
func (p *Packetizer[T]) Tick() bool {
	dropped := p.dropLateWord()
	madeProgress := dropped

	if p.remaining == 0 {
		madeProgress = p.takeLength() || madeProgress
	}

	// The input carries at most one transfer per cycle.
	if p.remaining > 0 && !dropped {
		madeProgress = p.forward() || madeProgress
	}

	return madeProgress
}

func (p *Packetizer[T]) dropLateWord() bool {
	if p.owed == 0 {
		return false
	}

	if _, ok := p.input.Retrieve(); !ok {
		return false
	}

	p.owed--
	p.numDropped++

	return true
}

func (p *Packetizer[T]) takeLength() bool {
	length, ok := p.lengths.Retrieve()
	if !ok {
		return false
	}

	if length < 0 {
		log.Panicf("%s: negative packet length %d", p.name, length)
	}

	p.remaining = length + 1
	p.idleCycles = 0

	return true
}

func (p *Packetizer[T]) forward() bool {
	if !p.output.CanSend() {
		return false
	}

	if p.owed == 0 {
		if payload, ok := p.input.Retrieve(); ok {
			p.emit(Beat[T]{Payload: payload})
			return true
		}
	}

	if p.underrunTimeout <= 0 {
		return false
	}

	p.idleCycles++
	if p.idleCycles < p.underrunTimeout {
		return true
	}

	var payload T
	if p.filler != nil {
		payload = p.filler()
	}

	p.emit(Beat[T]{Payload: payload, Padding: true})
	p.owed++
	p.numPadded++

	return true
}

func (p *Packetizer[T]) emit(beat Beat[T]) {
	beat.Last = p.remaining == 1
	p.output.MustSend(beat)

	p.remaining--
	p.idleCycles = 0

	if p.remaining == 0 {
		p.numPackets++
	}
}

// PacketizerBuilder builds packetizers.
type PacketizerBuilder[T any] struct {
	clock           sim.CycleTeller
	depth           int
	lengths         *Channel[int]
	input           *Channel[T]
	output          *Channel[Beat[T]]
	underrunTimeout int
	filler          func() T
}

// MakePacketizerBuilder returns a builder with default parameters.
func MakePacketizerBuilder[T any]() PacketizerBuilder[T] {
	return PacketizerBuilder[T]{
		depth: DefaultDepth,
	}
}

// WithClock sets the clock used by the channels the builder creates.
func (b PacketizerBuilder[T]) WithClock(clock sim.CycleTeller) PacketizerBuilder[T] {
	b.clock = clock
	return b
}

// WithDepth sets the depth of the channels the builder creates.
func (b PacketizerBuilder[T]) WithDepth(depth int) PacketizerBuilder[T] {
	b.depth = depth
	return b
}

// WithLengths sets the channel that carries packet lengths.
func (b PacketizerBuilder[T]) WithLengths(c *Channel[int]) PacketizerBuilder[T] {
	b.lengths = c
	return b
}

// WithInput sets the raw data channel.
func (b PacketizerBuilder[T]) WithInput(c *Channel[T]) PacketizerBuilder[T] {
	b.input = c
	return b
}

// WithOutput sets the tagged beat channel.
func (b PacketizerBuilder[T]) WithOutput(c *Channel[Beat[T]]) PacketizerBuilder[T] {
	b.output = c
	return b
}

// WithUnderrunTimeout enables padding after the given number of cycles
// without data in the middle of a packet. The filler produces the payload of
// padding beats; a nil filler uses the zero value.
func (b PacketizerBuilder[T]) WithUnderrunTimeout(
	cycles int,
	filler func() T,
) PacketizerBuilder[T] {
	b.underrunTimeout = cycles
	b.filler = filler

	return b
}

// Build creates a packetizer. Channels that are not given are created.
func (b PacketizerBuilder[T]) Build(name string) *Packetizer[T] {
	sim.NameMustBeValid(name)

	if b.underrunTimeout < 0 {
		log.Panicf("%s: underrun timeout cannot be negative", name)
	}

	p := &Packetizer[T]{
		name:            name,
		lengths:         b.lengths,
		input:           b.input,
		output:          b.output,
		underrunTimeout: b.underrunTimeout,
		filler:          b.filler,
	}

	if p.lengths == nil {
		p.lengths = NewChannel[int](name+".Lengths", b.mustHaveClock(name), b.depth)
	}

	if p.input == nil {
		p.input = NewChannel[T](name+".Input", b.mustHaveClock(name), b.depth)
	}

	if p.output == nil {
		p.output = NewChannel[Beat[T]](name+".Output", b.mustHaveClock(name), b.depth)
	}

	return p
}

func (b PacketizerBuilder[T]) mustHaveClock(name string) sim.CycleTeller {
	if b.clock == nil {
		log.Panicf("%s: a clock is needed to create channels", name)
	}

	return b.clock
}
