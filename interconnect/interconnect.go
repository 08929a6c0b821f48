// Package interconnect fans one full AXI bus out to several subordinate
// buses, each owning a disjoint address range.
package interconnect

import (
	"github.com/busforge/axi/axi"
	"github.com/busforge/axi/periph"
	"github.com/busforge/axi/sim"
	"github.com/busforge/axi/tracing"
)

// A Port is a downstream bus together with the addresses it serves.
type Port struct {
	Range periph.AddrRange
	Bus   *axi.Bus
}

// noPort marks a transaction that matched no port.
const noPort = -1

type readTxn struct {
	port      int
	addr      axi.AddrBeat
	remaining int
	taskID    string
}

type writeTxn struct {
	port      int
	addr      axi.AddrBeat
	remaining int
	dataDone  bool
	taskID    string
}

// An Interconnect routes every upstream transaction to the first port whose
// range contains its address. Addresses that match no port are consumed and
// answered with DECERR.
//
// At most one read and one write are outstanding at a time. Responses are
// taken from the first port, in port order, that has one. Since the address
// map is disjoint and only one transaction per direction is in flight, that
// port is always the one that owns the transaction.
type Interconnect struct {
	sim.HookableBase

	name     string
	upstream *axi.Bus
	ports    []Port

	read  *readTxn
	write *writeTxn

	numReads        uint64
	numWrites       uint64
	numDecodeErrors uint64
}

// Name returns the name of the interconnect.
func (ic *Interconnect) Name() string {
	return ic.name
}

// Upstream returns the bus the interconnect listens on.
func (ic *Interconnect) Upstream() *axi.Bus {
	return ic.upstream
}

// Ports returns the downstream ports, in match order.
func (ic *Interconnect) Ports() []Port {
	return append([]Port(nil), ic.ports...)
}

// NumReads returns the number of read bursts completed.
func (ic *Interconnect) NumReads() uint64 {
	return ic.numReads
}

// NumWrites returns the number of write bursts completed.
func (ic *Interconnect) NumWrites() uint64 {
	return ic.numWrites
}

// NumDecodeErrors returns the number of bursts that matched no port.
func (ic *Interconnect) NumDecodeErrors() uint64 {
	return ic.numDecodeErrors
}

// Idle tells if no transaction is in flight.
func (ic *Interconnect) Idle() bool {
	return ic.read == nil && ic.write == nil
}

// Tick moves beats between the upstream bus and the ports.
func (ic *Interconnect) Tick() bool {
	madeProgress := false

	madeProgress = ic.forwardReadData() || madeProgress
	madeProgress = ic.forwardWriteResponse() || madeProgress
	madeProgress = ic.forwardWriteData() || madeProgress
	madeProgress = ic.routeReadAddress() || madeProgress
	madeProgress = ic.routeWriteAddress() || madeProgress

	return madeProgress
}

func (ic *Interconnect) route(addr uint64) int {
	for i, p := range ic.ports {
		if p.Range.Contains(addr) {
			return i
		}
	}

	return noPort
}

func (ic *Interconnect) routeReadAddress() bool {
	if ic.read != nil {
		return false
	}

	a, ok := ic.upstream.AR.Peek()
	if !ok {
		return false
	}

	port := ic.route(a.Addr)
	if port != noPort {
		if !ic.ports[port].Bus.AR.CanSend() {
			return false
		}

		ic.ports[port].Bus.AR.MustSend(a)
	}

	ic.upstream.AR.Retrieve()
	ic.read = &readTxn{
		port:      port,
		addr:      a,
		remaining: a.Count(),
		taskID:    ic.startTask("read", a),
	}

	return true
}

func (ic *Interconnect) routeWriteAddress() bool {
	if ic.write != nil {
		return false
	}

	a, ok := ic.upstream.AW.Peek()
	if !ok {
		return false
	}

	port := ic.route(a.Addr)
	if port != noPort {
		if !ic.ports[port].Bus.AW.CanSend() {
			return false
		}

		ic.ports[port].Bus.AW.MustSend(a)
	}

	ic.upstream.AW.Retrieve()
	ic.write = &writeTxn{
		port:      port,
		addr:      a,
		remaining: a.Count(),
		taskID:    ic.startTask("write", a),
	}

	return true
}

func (ic *Interconnect) startTask(what string, a axi.AddrBeat) string {
	id := sim.GetIDGenerator().Generate()
	tracing.StartTask(id, "", ic, "burst", what, a)

	return id
}

func (ic *Interconnect) forwardReadData() bool {
	if ic.read == nil || !ic.upstream.R.CanSend() {
		return false
	}

	if ic.read.port == noPort {
		return ic.answerReadDecodeError()
	}

	for _, p := range ic.ports {
		beat, ok := p.Bus.R.Retrieve()
		if !ok {
			continue
		}

		ic.upstream.R.MustSend(beat)
		if beat.Last {
			ic.completeRead()
		}

		return true
	}

	return false
}

func (ic *Interconnect) answerReadDecodeError() bool {
	ic.read.remaining--
	last := ic.read.remaining == 0

	ic.upstream.R.MustSend(axi.ReadDataBeat{
		ID:   ic.read.addr.ID,
		Data: make([]byte, ic.upstream.Config.DataBytes()),
		Resp: axi.RespDecErr,
		Last: last,
	})

	if last {
		ic.numDecodeErrors++
		ic.completeRead()
	}

	return true
}

func (ic *Interconnect) completeRead() {
	ic.numReads++
	tracing.EndTask(ic.read.taskID, ic)
	ic.read = nil
}

func (ic *Interconnect) forwardWriteData() bool {
	if ic.write == nil || ic.write.dataDone {
		return false
	}

	if ic.write.port != noPort &&
		!ic.ports[ic.write.port].Bus.W.CanSend() {
		return false
	}

	w, ok := ic.upstream.W.Retrieve()
	if !ok {
		return false
	}

	if ic.write.port != noPort {
		ic.ports[ic.write.port].Bus.W.MustSend(w)
	}

	ic.write.remaining--
	if w.Last || ic.write.remaining == 0 {
		ic.write.dataDone = true
	}

	return true
}

func (ic *Interconnect) forwardWriteResponse() bool {
	if ic.write == nil || !ic.upstream.B.CanSend() {
		return false
	}

	if ic.write.port == noPort {
		if !ic.write.dataDone {
			return false
		}

		ic.upstream.B.MustSend(axi.WriteRespBeat{
			ID:   ic.write.addr.ID,
			Resp: axi.RespDecErr,
		})
		ic.numDecodeErrors++
		ic.completeWrite()

		return true
	}

	for _, p := range ic.ports {
		b, ok := p.Bus.B.Retrieve()
		if !ok {
			continue
		}

		ic.upstream.B.MustSend(b)
		ic.completeWrite()

		return true
	}

	return false
}

func (ic *Interconnect) completeWrite() {
	ic.numWrites++
	tracing.EndTask(ic.write.taskID, ic)
	ic.write = nil
}
