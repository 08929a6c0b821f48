package platform

import (
	"errors"
	"fmt"

	"github.com/busforge/axi/axi"
	"github.com/busforge/axi/dma"
	"github.com/busforge/axi/interconnect"
	"github.com/busforge/axi/mem"
	"github.com/busforge/axi/monitoring"
	"github.com/busforge/axi/sim"
	"github.com/busforge/axi/tracing"
)

// ErrDataMismatch is returned when a word read back differs from the word
// written.
var ErrDataMismatch = errors.New("data mismatch")

// ErrNotFinished is returned when a pass does not complete in time.
var ErrNotFinished = errors.New("pass did not finish")

// A MemorySystem is a DMA writer and reader sharing one AXI bus, routed by an
// interconnect to banks of memory.
type MemorySystem struct {
	Domain       *sim.Domain
	Bus          *axi.Bus
	Writer       *dma.Writer
	Reader       *dma.Reader
	Interconnect *interconnect.Interconnect
	Banks        []*mem.Responder

	traffic *trafficGen
	traced  []tracing.NamedHookable
}

// AttachTracer makes the tracer collect the burst tasks of every component.
func (s *MemorySystem) AttachTracer(t tracing.Tracer) {
	for _, c := range s.traced {
		tracing.CollectTrace(c, t)
	}
}

// RoundTripResult summarizes a write pass followed by a read pass.
type RoundTripResult struct {
	Words       int
	WriteCycles uint64
	ReadCycles  uint64
	WriteOK     uint64
	WriteErr    uint64
	Padded      uint64
	ReadBursts  uint64
	ReadErrors  uint64
	Mismatches  int
}

// RoundTrip writes every address with its own value, then reads all the
// addresses back and compares. Each pass must finish within maxCycles.
func (s *MemorySystem) RoundTrip(
	addrs []uint64,
	maxCycles uint64,
	progress *monitoring.ProgressBar,
) (RoundTripResult, error) {
	res := RoundTripResult{Words: len(addrs)}
	g := s.traffic

	g.progress = progress
	g.writeQueue = append([]uint64(nil), addrs...)

	start := s.Domain.CurrentCycle()
	done := s.Domain.RunUntil(func() bool {
		return len(g.writeQueue) == 0 && s.Writer.Idle()
	}, maxCycles)
	res.WriteCycles = s.Domain.CurrentCycle() - start
	res.WriteOK = s.Writer.ResponseOK()
	res.WriteErr = s.Writer.ResponseErr()
	res.Padded = s.Writer.NumPadded()

	if !done {
		return res, fmt.Errorf("write: %w within %d cycles",
			ErrNotFinished, maxCycles)
	}

	g.readQueue = append([]uint64(nil), addrs...)
	g.got = make([]uint64, 0, len(addrs))

	start = s.Domain.CurrentCycle()
	done = s.Domain.RunUntil(func() bool {
		return len(g.got) == len(addrs) && s.Reader.Idle()
	}, maxCycles)
	res.ReadCycles = s.Domain.CurrentCycle() - start
	res.ReadBursts = s.Reader.Coalescer().NumBursts()
	res.ReadErrors = s.Reader.ErrorCount()

	if !done {
		return res, fmt.Errorf("read: %w within %d cycles",
			ErrNotFinished, maxCycles)
	}

	mask := s.Bus.Config.DataMask()
	for i, a := range addrs {
		if g.got[i] != a&mask {
			res.Mismatches++
		}
	}

	if res.Mismatches > 0 {
		return res, fmt.Errorf("%w: %d of %d words",
			ErrDataMismatch, res.Mismatches, len(addrs))
	}

	return res, nil
}

// trafficGen feeds the writer and the reader from address queues.
type trafficGen struct {
	writer    *dma.Writer
	reader    *dma.Reader
	dataBytes int
	progress  *monitoring.ProgressBar

	writeQueue []uint64
	readQueue  []uint64
	got        []uint64
}

func (g *trafficGen) Tick() bool {
	madeProgress := false

	if len(g.writeQueue) > 0 {
		a := g.writeQueue[0]
		if g.writer.Send(a, axi.Uint64ToWord(a, g.dataBytes)) {
			g.writeQueue = g.writeQueue[1:]
			g.report()
			madeProgress = true
		}
	}

	if len(g.readQueue) > 0 && g.reader.Input().CanSend() {
		g.reader.Input().MustSend(g.readQueue[0])
		g.readQueue = g.readQueue[1:]
		madeProgress = true
	}

	if w, ok := g.reader.Output().Retrieve(); ok {
		g.got = append(g.got, axi.WordToUint64(w))
		g.report()
		madeProgress = true
	}

	return madeProgress
}

func (g *trafficGen) report() {
	if g.progress != nil {
		g.progress.IncrementFinished(1)
	}
}
