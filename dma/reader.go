package dma

import (
	"github.com/busforge/axi/axi"
	"github.com/busforge/axi/burst"
	"github.com/busforge/axi/sim"
	"github.com/busforge/axi/stream"
	"github.com/busforge/axi/tracing"
)

// A Reader issues coalesced read bursts for the addresses it receives and
// forwards the read data, in order, as a stream of words.
type Reader struct {
	sim.HookableBase

	name      string
	coalescer *burst.Coalescer
	bus       *axi.Bus
	output    *stream.Channel[[]byte]

	numIssued  uint64
	taskIDs    []string
	errorCount uint64
	lastResp   axi.Resp
	numWords   uint64
}

// Name returns the name of the reader.
func (r *Reader) Name() string {
	return r.name
}

// Input returns the channel that receives word addresses.
func (r *Reader) Input() *stream.Channel[uint64] {
	return r.coalescer.Input()
}

// Output returns the channel that delivers the read words.
func (r *Reader) Output() *stream.Channel[[]byte] {
	return r.output
}

// Coalescer returns the burst coalescer in front of the read address
// channel.
func (r *Reader) Coalescer() *burst.Coalescer {
	return r.coalescer
}

// ErrorCount returns the number of read beats with a non-OKAY response.
func (r *Reader) ErrorCount() uint64 {
	return r.errorCount
}

// LastResp returns the response of the latest read beat.
func (r *Reader) LastResp() axi.Resp {
	return r.lastResp
}

// NumWords returns the number of words delivered.
func (r *Reader) NumWords() uint64 {
	return r.numWords
}

// Outstanding returns the number of bursts issued but not completed.
func (r *Reader) Outstanding() int {
	return len(r.taskIDs)
}

// Idle tells if every accepted address has been answered.
func (r *Reader) Idle() bool {
	return r.coalescer.Input().Empty() &&
		r.coalescer.Pending() == 0 &&
		r.bus.AR.NumSent() == r.numIssued &&
		len(r.taskIDs) == 0
}

// Tick advances the reader by one cycle.
func (r *Reader) Tick() bool {
	madeProgress := r.coalescer.Tick()
	r.traceIssuedBursts()
	madeProgress = r.forwardData() || madeProgress

	return madeProgress
}

func (r *Reader) traceIssuedBursts() {
	for r.numIssued < r.bus.AR.NumSent() {
		r.numIssued++

		id := sim.GetIDGenerator().Generate()
		r.taskIDs = append(r.taskIDs, id)
		tracing.StartTask(id, "", r, "burst", "read", nil)
	}
}

func (r *Reader) forwardData() bool {
	if !r.output.CanSend() {
		return false
	}

	beat, ok := r.bus.R.Retrieve()
	if !ok {
		return false
	}

	r.lastResp = beat.Resp
	if !beat.Resp.IsOK() {
		r.errorCount++
	}

	r.output.MustSend(beat.Word())
	r.numWords++

	if beat.Last && len(r.taskIDs) > 0 {
		tracing.EndTask(r.taskIDs[0], r)
		r.taskIDs = r.taskIDs[1:]
	}

	return true
}
