package burst

import (
	"log"

	"github.com/busforge/axi/axi"
	"github.com/busforge/axi/sim"
	"github.com/busforge/axi/stream"
)

// Defaults of the coalescer parameters.
const (
	DefaultDataBytes            = 8
	DefaultMaxBurstLength       = 16
	DefaultBurstCreationTimeout = 31
	DefaultBoundary             = 4096
)

// A Builder can build coalescers.
type Builder struct {
	clock          sim.CycleTeller
	depth          int
	input          *stream.Channel[uint64]
	output         *stream.Channel[axi.AddrBeat]
	dataBytes      int
	maxBurstLength int
	timeout        int
	boundary       uint64
	id             uint32
	prot           axi.Prot
}

// MakeBuilder returns a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		depth:          stream.DefaultDepth,
		dataBytes:      DefaultDataBytes,
		maxBurstLength: DefaultMaxBurstLength,
		timeout:        DefaultBurstCreationTimeout,
		boundary:       DefaultBoundary,
	}
}

// WithClock sets the clock of the channels the builder creates.
func (b Builder) WithClock(clock sim.CycleTeller) Builder {
	b.clock = clock
	return b
}

// WithDepth sets the depth of the channels the builder creates.
func (b Builder) WithDepth(depth int) Builder {
	b.depth = depth
	return b
}

// WithInput sets the address channel to read from.
func (b Builder) WithInput(c *stream.Channel[uint64]) Builder {
	b.input = c
	return b
}

// WithOutput sets the channel that bursts are sent to.
func (b Builder) WithOutput(c *stream.Channel[axi.AddrBeat]) Builder {
	b.output = c
	return b
}

// WithDataBytes sets the word size, which is also the address stride.
func (b Builder) WithDataBytes(n int) Builder {
	b.dataBytes = n
	return b
}

// WithMaxBurstLength sets the maximum number of words in a burst.
func (b Builder) WithMaxBurstLength(n int) Builder {
	b.maxBurstLength = n
	return b
}

// WithBurstCreationTimeout sets the number of idle cycles after which an
// incomplete burst is emitted.
func (b Builder) WithBurstCreationTimeout(cycles int) Builder {
	b.timeout = cycles
	return b
}

// WithBoundary sets the address boundary that a burst may not cross. Zero
// disables the check.
func (b Builder) WithBoundary(boundary uint64) Builder {
	b.boundary = boundary
	return b
}

// WithID sets the transaction ID of the emitted bursts.
func (b Builder) WithID(id uint32) Builder {
	b.id = id
	return b
}

// WithProt sets the protection type of the emitted bursts.
func (b Builder) WithProt(prot axi.Prot) Builder {
	b.prot = prot
	return b
}

// Build creates a coalescer.
func (b Builder) Build(name string) *Coalescer {
	sim.NameMustBeValid(name)
	b.parametersMustBeValid()

	c := &Coalescer{
		name:           name,
		input:          b.input,
		output:         b.output,
		dataBytes:      b.dataBytes,
		size:           axi.SizeFromBytes(b.dataBytes),
		maxBurstLength: b.maxBurstLength,
		timeout:        b.timeout,
		boundary:       b.boundary,
		id:             b.id,
		prot:           b.prot,
	}

	if c.input == nil {
		c.input = stream.NewChannel[uint64](
			name+".Input", b.mustHaveClock(name), b.depth)
	}

	if c.output == nil {
		c.output = stream.NewChannel[axi.AddrBeat](
			name+".Output", b.mustHaveClock(name), b.depth)
	}

	return c
}

func (b Builder) parametersMustBeValid() {
	if b.maxBurstLength < 1 || b.maxBurstLength > axi.MaxBurstCount {
		log.Panicf("max burst length %d out of range [1, %d]",
			b.maxBurstLength, axi.MaxBurstCount)
	}

	if b.timeout < 1 {
		log.Panic("burst creation timeout must be at least one cycle")
	}

	if b.boundary != 0 && b.boundary < uint64(b.dataBytes) {
		log.Panicf("boundary %d is smaller than a word", b.boundary)
	}
}

func (b Builder) mustHaveClock(name string) sim.CycleTeller {
	if b.clock == nil {
		log.Panicf("%s: a clock is needed to create channels", name)
	}

	return b.clock
}
