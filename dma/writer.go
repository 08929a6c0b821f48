package dma

import (
	"github.com/busforge/axi/axi"
	"github.com/busforge/axi/sim"
	"github.com/busforge/axi/stream"
	"github.com/busforge/axi/tracing"
)

// A Writer connects a WriterBurster to a bus and drains the write responses.
// Responses are always accepted; they are counted and never block the write
// path.
type Writer struct {
	sim.HookableBase

	name    string
	burster *WriterBurster
	bus     *axi.Bus

	taskIDs     []string
	responseOK  uint64
	responseErr uint64
	lastResp    axi.Resp
}

// Name returns the name of the writer.
func (w *Writer) Name() string {
	return w.name
}

// AddrIn returns the channel that receives word addresses.
func (w *Writer) AddrIn() *stream.Channel[uint64] {
	return w.burster.AddrIn()
}

// DataIn returns the channel that receives data words.
func (w *Writer) DataIn() *stream.Channel[[]byte] {
	return w.burster.DataIn()
}

// Burster returns the inner burster.
func (w *Writer) Burster() *WriterBurster {
	return w.burster
}

// Send offers one (address, word) pair. Both halves are accepted together or
// not at all.
func (w *Writer) Send(addr uint64, word []byte) bool {
	if !w.AddrIn().CanSend() || !w.DataIn().CanSend() {
		return false
	}

	w.burster.wordMustFit(word)
	w.AddrIn().MustSend(addr)
	w.DataIn().MustSend(word)

	return true
}

// AddressReady tells if the bus can take another write address.
func (w *Writer) AddressReady() bool {
	return w.bus.AW.CanSend()
}

// DataReady tells if the bus can take another write data beat.
func (w *Writer) DataReady() bool {
	return w.bus.W.CanSend()
}

// ResponseOK returns the number of OKAY write responses.
func (w *Writer) ResponseOK() uint64 {
	return w.responseOK
}

// ResponseErr returns the number of write responses that were not OKAY.
func (w *Writer) ResponseErr() uint64 {
	return w.responseErr
}

// LastResp returns the latest write response.
func (w *Writer) LastResp() axi.Resp {
	return w.lastResp
}

// Outstanding returns the number of bursts announced but not responded to.
func (w *Writer) Outstanding() int {
	return len(w.taskIDs)
}

// Idle tells if every accepted word has been written and responded to.
func (w *Writer) Idle() bool {
	b := w.burster

	return b.coalescer.Input().Empty() &&
		b.coalescer.Pending() == 0 &&
		b.bursts.Empty() &&
		b.fifo.Empty() &&
		b.packetizer.Remaining() == 0 &&
		b.beats.Empty() &&
		len(w.taskIDs) == 0
}

// NumPadded returns the number of beats padded because data underran.
func (w *Writer) NumPadded() uint64 {
	return w.burster.packetizer.NumPadded()
}

// NumDropped returns the number of late data words discarded after padding.
func (w *Writer) NumDropped() uint64 {
	return w.burster.packetizer.NumDropped()
}

// Tick advances the writer by one cycle.
func (w *Writer) Tick() bool {
	madeProgress := w.burster.Tick()
	madeProgress = w.drainResponse() || madeProgress

	return madeProgress
}

func (w *Writer) onIssue(b axi.AddrBeat) {
	id := sim.GetIDGenerator().Generate()
	w.taskIDs = append(w.taskIDs, id)
	tracing.StartTask(id, "", w, "burst", "write", b)
}

func (w *Writer) drainResponse() bool {
	rsp, ok := w.bus.B.Retrieve()
	if !ok {
		return false
	}

	w.lastResp = rsp.Resp
	if rsp.Resp.IsOK() {
		w.responseOK++
	} else {
		w.responseErr++
	}

	if len(w.taskIDs) > 0 {
		tracing.EndTask(w.taskIDs[0], w)
		w.taskIDs = w.taskIDs[1:]
	}

	return true
}
