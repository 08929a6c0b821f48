package dma

import (
	"log"

	"github.com/busforge/axi/axi"
	"github.com/busforge/axi/burst"
	"github.com/busforge/axi/stream"
)

// A WriterBurster turns a stream of word addresses and a stream of data words
// into write bursts. Each burst is announced on the address output, and its
// words leave on the data output with the final one marked as last. Data
// words wait in a FIFO until their burst is announced.
type WriterBurster struct {
	name      string
	dataBytes int

	coalescer  *burst.Coalescer
	bursts     *stream.Channel[axi.AddrBeat]
	fifo       *stream.Channel[[]byte]
	packetizer *stream.Packetizer[[]byte]
	beats      *stream.Channel[stream.Beat[[]byte]]

	addrOut *stream.Channel[axi.AddrBeat]
	dataOut *stream.Channel[axi.WriteDataBeat]

	onIssue func(axi.AddrBeat)

	numIssued   uint64
	numDataSent uint64
}

// Name returns the name of the burster.
func (w *WriterBurster) Name() string {
	return w.name
}

// AddrIn returns the channel that receives word addresses.
func (w *WriterBurster) AddrIn() *stream.Channel[uint64] {
	return w.coalescer.Input()
}

// DataIn returns the FIFO that receives data words.
func (w *WriterBurster) DataIn() *stream.Channel[[]byte] {
	return w.fifo
}

// AddrOut returns the write address channel.
func (w *WriterBurster) AddrOut() *stream.Channel[axi.AddrBeat] {
	return w.addrOut
}

// DataOut returns the write data channel.
func (w *WriterBurster) DataOut() *stream.Channel[axi.WriteDataBeat] {
	return w.dataOut
}

// Coalescer returns the burst coalescer.
func (w *WriterBurster) Coalescer() *burst.Coalescer {
	return w.coalescer
}

// Packetizer returns the packetizer that marks the final beat of each burst.
func (w *WriterBurster) Packetizer() *stream.Packetizer[[]byte] {
	return w.packetizer
}

// NumIssued returns the number of bursts announced.
func (w *WriterBurster) NumIssued() uint64 {
	return w.numIssued
}

// NumDataSent returns the number of write data beats sent, padding included.
func (w *WriterBurster) NumDataSent() uint64 {
	return w.numDataSent
}

// Tick advances the burster by one cycle.
func (w *WriterBurster) Tick() bool {
	madeProgress := false

	madeProgress = w.sendData() || madeProgress
	madeProgress = w.packetizer.Tick() || madeProgress
	madeProgress = w.issueBurst() || madeProgress
	madeProgress = w.coalescer.Tick() || madeProgress

	return madeProgress
}

func (w *WriterBurster) issueBurst() bool {
	b, ok := w.bursts.Peek()
	if !ok {
		return false
	}

	if !w.addrOut.CanSend() || !w.packetizer.Lengths().CanSend() {
		return false
	}

	w.bursts.Retrieve()
	w.addrOut.MustSend(b)
	w.packetizer.Lengths().MustSend(int(b.Len))
	w.numIssued++

	if w.onIssue != nil {
		w.onIssue(b)
	}

	return true
}

func (w *WriterBurster) sendData() bool {
	if !w.dataOut.CanSend() {
		return false
	}

	beat, ok := w.beats.Retrieve()
	if !ok {
		return false
	}

	strb := axi.FullStrobe(w.dataBytes)
	if beat.Padding {
		strb = 0
	} else {
		w.wordMustFit(beat.Payload)
	}

	w.dataOut.MustSend(axi.WriteDataBeat{
		Data: beat.Payload,
		Strb: strb,
		Last: beat.Last,
	})
	w.numDataSent++

	return true
}

func (w *WriterBurster) zeroWord() []byte {
	return make([]byte, w.dataBytes)
}

func (w *WriterBurster) wordMustFit(word []byte) {
	if len(word) != w.dataBytes {
		log.Panicf("%s: word of %d bytes on a %d-byte bus",
			w.name, len(word), w.dataBytes)
	}
}
