package axi

import (
	"log"

	"github.com/busforge/axi/sim"
	"github.com/busforge/axi/stream"
)

// Config describes the widths of a bus.
type Config struct {
	AddrBits int
	DataBits int
	IDBits   int
}

// DefaultConfig is a 32-bit address, 64-bit data bus with 4-bit IDs.
var DefaultConfig = Config{
	AddrBits: 32,
	DataBits: 64,
	IDBits:   4,
}

// DefaultLiteConfig is the 32-bit AXI-Lite register bus.
var DefaultLiteConfig = Config{
	AddrBits: 32,
	DataBits: 32,
}

// DataBytes returns the width of a data beat in bytes.
func (c Config) DataBytes() int {
	return c.DataBits / 8
}

// AddrMask returns the mask of valid address bits.
func (c Config) AddrMask() uint64 {
	if c.AddrBits >= 64 {
		return ^uint64(0)
	}

	return (uint64(1) << c.AddrBits) - 1
}

// DataMask returns the mask of valid data bits of a Lite data word.
func (c Config) DataMask() uint64 {
	if c.DataBits >= 64 {
		return ^uint64(0)
	}

	return (uint64(1) << c.DataBits) - 1
}

// MustBeValid panics if the widths are not legal.
func (c Config) MustBeValid() {
	if c.AddrBits <= 0 || c.AddrBits > 64 {
		log.Panicf("address width %d is not supported", c.AddrBits)
	}

	if c.DataBits < 8 || c.DataBits > 1024 || c.DataBits&(c.DataBits-1) != 0 {
		log.Panicf("data width %d is not a power of two in [8, 1024]",
			c.DataBits)
	}

	if c.IDBits < 0 || c.IDBits > 32 {
		log.Panicf("id width %d is not supported", c.IDBits)
	}
}

// Bus bundles the five channels of a full AXI4 interface. The manager sends
// on AR, AW and W and retrieves from R and B; the subordinate does the
// opposite.
type Bus struct {
	Config Config

	AR *stream.Channel[AddrBeat]
	R  *stream.Channel[ReadDataBeat]
	AW *stream.Channel[AddrBeat]
	W  *stream.Channel[WriteDataBeat]
	B  *stream.Channel[WriteRespBeat]
}

// NewBus creates the channels of a bus.
func NewBus(name string, cfg Config, clock sim.CycleTeller, depth int) *Bus {
	cfg.MustBeValid()

	return &Bus{
		Config: cfg,
		AR:     stream.NewChannel[AddrBeat](name+".AR", clock, depth),
		R:      stream.NewChannel[ReadDataBeat](name+".R", clock, depth),
		AW:     stream.NewChannel[AddrBeat](name+".AW", clock, depth),
		W:      stream.NewChannel[WriteDataBeat](name+".W", clock, depth),
		B:      stream.NewChannel[WriteRespBeat](name+".B", clock, depth),
	}
}

// Hook attaches a hook to all the channels.
func (b *Bus) Hook(hook sim.Hook) {
	b.AR.AcceptHook(hook)
	b.R.AcceptHook(hook)
	b.AW.AcceptHook(hook)
	b.W.AcceptHook(hook)
	b.B.AcceptHook(hook)
}

// LiteBus bundles the five channels of an AXI4-Lite interface.
type LiteBus struct {
	Config Config

	AR *stream.Channel[LiteAddrBeat]
	R  *stream.Channel[LiteReadDataBeat]
	AW *stream.Channel[LiteAddrBeat]
	W  *stream.Channel[LiteWriteDataBeat]
	B  *stream.Channel[LiteWriteRespBeat]
}

// NewLiteBus creates the channels of a Lite bus.
func NewLiteBus(
	name string,
	cfg Config,
	clock sim.CycleTeller,
	depth int,
) *LiteBus {
	cfg.MustBeValid()

	if cfg.DataBits > 64 {
		log.Panicf("AXI-Lite data width %d is wider than 64 bits", cfg.DataBits)
	}

	return &LiteBus{
		Config: cfg,
		AR:     stream.NewChannel[LiteAddrBeat](name+".AR", clock, depth),
		R:      stream.NewChannel[LiteReadDataBeat](name+".R", clock, depth),
		AW:     stream.NewChannel[LiteAddrBeat](name+".AW", clock, depth),
		W:      stream.NewChannel[LiteWriteDataBeat](name+".W", clock, depth),
		B:      stream.NewChannel[LiteWriteRespBeat](name+".B", clock, depth),
	}
}

// Hook attaches a hook to all the channels.
func (b *LiteBus) Hook(hook sim.Hook) {
	b.AR.AcceptHook(hook)
	b.R.AcceptHook(hook)
	b.AW.AcceptHook(hook)
	b.W.AcceptHook(hook)
	b.B.AcceptHook(hook)
}
