// Package burst merges per-word address requests into AXI bursts.
package burst

import (
	"math"

	"github.com/busforge/axi/axi"
	"github.com/busforge/axi/sim"
	"github.com/busforge/axi/stream"
	"github.com/busforge/axi/tracing"
)

// A Coalescer observes a stream of per-word addresses and emits INCR bursts,
// each describing a maximal run of consecutive words. A run ends when an
// address does not continue it, when it reaches the maximum burst length,
// when it would cross the boundary, or when no address arrives for the
// burst creation timeout.
type Coalescer struct {
	sim.HookableBase

	name   string
	input  *stream.Channel[uint64]
	output *stream.Channel[axi.AddrBeat]

	dataBytes      int
	size           axi.Size
	maxBurstLength int
	timeout        int
	boundary       uint64
	id             uint32
	prot           axi.Prot

	burstCtr    int
	burstStart  uint64
	lastAddress uint64
	timeoutCtr  int
	taskID      string

	numAddresses      uint64
	numBursts         uint64
	numTimeoutFlushes uint64
}

// Name returns the name of the coalescer.
func (c *Coalescer) Name() string {
	return c.name
}

// Input returns the per-word address channel.
func (c *Coalescer) Input() *stream.Channel[uint64] {
	return c.input
}

// Output returns the burst channel.
func (c *Coalescer) Output() *stream.Channel[axi.AddrBeat] {
	return c.output
}

// Pending returns the number of words accumulated in the open burst.
func (c *Coalescer) Pending() int {
	return c.burstCtr
}

// NumAddresses returns the number of addresses accepted.
func (c *Coalescer) NumAddresses() uint64 {
	return c.numAddresses
}

// NumBursts returns the number of bursts emitted.
func (c *Coalescer) NumBursts() uint64 {
	return c.numBursts
}

// NumTimeoutFlushes returns the number of bursts emitted because the input
// stalled.
func (c *Coalescer) NumTimeoutFlushes() uint64 {
	return c.numTimeoutFlushes
}

// Tick advances the coalescer by one cycle.
func (c *Coalescer) Tick() bool {
	if c.burstCtr == c.maxBurstLength {
		return c.flush()
	}

	addr, ok := c.input.Peek()
	if !ok {
		return c.countIdleCycle()
	}

	if c.burstCtr == 0 {
		return c.startBurst(addr)
	}

	if c.canExtend(addr) {
		return c.extendBurst()
	}

	return c.processNonCoalescable(addr)
}

func (c *Coalescer) countIdleCycle() bool {
	if c.burstCtr == 0 {
		return false
	}

	if c.timeoutCtr < c.timeout {
		c.timeoutCtr++
	}

	if c.timeoutCtr < c.timeout {
		return true
	}

	if !c.flush() {
		return false
	}

	c.numTimeoutFlushes++

	return true
}

func (c *Coalescer) canExtend(addr uint64) bool {
	// A burst never wraps through address zero.
	if c.lastAddress > math.MaxUint64-uint64(c.dataBytes) {
		return false
	}

	if addr != c.lastAddress+uint64(c.dataBytes) {
		return false
	}

	if c.burstCtr >= c.maxBurstLength {
		return false
	}

	if c.boundary != 0 && addr/c.boundary != c.burstStart/c.boundary {
		return false
	}

	return true
}

func (c *Coalescer) startBurst(addr uint64) bool {
	c.input.Retrieve()
	c.numAddresses++

	c.burstCtr = 1
	c.burstStart = addr
	c.lastAddress = addr
	c.timeoutCtr = 0

	c.taskID = sim.GetIDGenerator().Generate()
	tracing.StartTask(c.taskID, "", c, "burst", "coalesce", addr)

	if c.burstCtr == c.maxBurstLength {
		c.flush()
	}

	return true
}

func (c *Coalescer) extendBurst() bool {
	addr, _ := c.input.Retrieve()
	c.numAddresses++

	c.burstCtr++
	c.lastAddress = addr
	c.timeoutCtr = 0

	if c.burstCtr == c.maxBurstLength {
		c.flush()
	}

	return true
}

func (c *Coalescer) processNonCoalescable(addr uint64) bool {
	if !c.flush() {
		return false
	}

	return c.startBurst(addr)
}

// flush emits the open burst. It returns false if the output cannot take it.
func (c *Coalescer) flush() bool {
	if !c.output.CanSend() {
		return false
	}

	beat := axi.AddrBeat{
		Addr:  c.burstStart,
		Len:   axi.EncodeLen(c.burstCtr),
		Size:  c.size,
		Burst: axi.BurstIncr,
		ID:    c.id,
		Prot:  c.prot,
	}
	c.output.MustSend(beat)

	tracing.EndTask(c.taskID, c)

	c.numBursts++
	c.burstCtr = 0
	c.timeoutCtr = 0
	c.taskID = ""

	return true
}
