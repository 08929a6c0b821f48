package mem

import (
	"errors"

	"github.com/busforge/axi/axi"
	"github.com/busforge/axi/sim"
	"github.com/busforge/axi/tracing"
)

// An ErrorRange is a half-open address interval that answers with SLVERR.
type ErrorRange struct {
	Start, Stop uint64
}

func (r ErrorRange) contains(addr uint64) bool {
	return addr >= r.Start && addr < r.Stop
}

type readTxn struct {
	id         string
	addr       axi.AddrBeat
	readyCycle uint64
	nextBeat   int
}

type writeTxn struct {
	id       string
	addr     axi.AddrBeat
	nextBeat int
	resp     axi.Resp
}

type pendingResp struct {
	id         string
	resp       axi.WriteRespBeat
	readyCycle uint64
}

// A Responder is an AXI4 subordinate serving bursts out of a Storage. Each
// burst is answered after a fixed latency; data beats then flow at one beat
// per cycle. Beats that fall outside the storage answer DECERR, and beats in
// an error range answer SLVERR.
type Responder struct {
	sim.HookableBase

	name    string
	bus     *axi.Bus
	clock   sim.CycleTeller
	storage *Storage

	baseAddr       uint64
	latency        uint64
	maxOutstanding int
	errorRanges    []ErrorRange

	reads     *sim.Buffer[*readTxn]
	writes    *sim.Buffer[*writeTxn]
	responses *sim.Buffer[pendingResp]

	numReadBursts  uint64
	numWriteBursts uint64
	numErrorBeats  uint64
}

// Name returns the name of the responder.
func (r *Responder) Name() string {
	return r.name
}

// Bus returns the bus the responder serves.
func (r *Responder) Bus() *axi.Bus {
	return r.bus
}

// Storage returns the backing storage.
func (r *Responder) Storage() *Storage {
	return r.storage
}

// NumReadBursts returns the number of read bursts completed.
func (r *Responder) NumReadBursts() uint64 {
	return r.numReadBursts
}

// NumWriteBursts returns the number of write bursts completed.
func (r *Responder) NumWriteBursts() uint64 {
	return r.numWriteBursts
}

// NumErrorBeats returns the number of beats answered with an error.
func (r *Responder) NumErrorBeats() uint64 {
	return r.numErrorBeats
}

// Outstanding returns the number of read and write bursts accepted but not
// yet answered.
func (r *Responder) Outstanding() int {
	return r.reads.Size() + r.writes.Size() + r.responses.Size()
}

// InjectError makes accesses to the range answer SLVERR.
func (r *Responder) InjectError(errRange ErrorRange) {
	r.errorRanges = append(r.errorRanges, errRange)
}

// Tick advances the responder by one cycle.
func (r *Responder) Tick() bool {
	madeProgress := false

	madeProgress = r.sendReadData() || madeProgress
	madeProgress = r.acceptReadAddress() || madeProgress
	madeProgress = r.sendWriteResponse() || madeProgress
	madeProgress = r.acceptWriteData() || madeProgress
	madeProgress = r.acceptWriteAddress() || madeProgress

	return madeProgress
}

func (r *Responder) acceptReadAddress() bool {
	if !r.reads.CanPush() {
		return false
	}

	addr, ok := r.bus.AR.Retrieve()
	if !ok {
		return false
	}

	txn := &readTxn{
		id:         sim.GetIDGenerator().Generate(),
		addr:       addr,
		readyCycle: r.clock.CurrentCycle() + r.latency,
	}
	r.reads.Push(txn)

	tracing.StartTask(txn.id, "", r, "burst", "read", addr)

	return true
}

func (r *Responder) sendReadData() bool {
	txn, ok := r.reads.Peek()
	if !ok {
		return false
	}

	if r.clock.CurrentCycle() < txn.readyCycle || !r.bus.R.CanSend() {
		return false
	}

	beatAddr := txn.addr.BeatAddress(txn.nextBeat)
	data, resp := r.readBeat(beatAddr, txn.addr.Size)

	txn.nextBeat++
	last := txn.nextBeat == txn.addr.Count()

	r.bus.R.MustSend(axi.ReadDataBeat{
		ID:   txn.addr.ID,
		Data: data,
		Resp: resp,
		Last: last,
	})

	if last {
		r.reads.Pop()
		r.numReadBursts++
		tracing.EndTask(txn.id, r)
	}

	return true
}

func (r *Responder) acceptWriteAddress() bool {
	if r.writes.Size()+r.responses.Size() >= r.maxOutstanding {
		return false
	}

	addr, ok := r.bus.AW.Retrieve()
	if !ok {
		return false
	}

	txn := &writeTxn{
		id:   sim.GetIDGenerator().Generate(),
		addr: addr,
	}
	r.writes.Push(txn)

	tracing.StartTask(txn.id, "", r, "burst", "write", addr)

	return true
}

func (r *Responder) acceptWriteData() bool {
	txn, ok := r.writes.Peek()
	if !ok {
		return false
	}

	beat, ok := r.bus.W.Retrieve()
	if !ok {
		return false
	}

	beatAddr := txn.addr.BeatAddress(txn.nextBeat)
	resp := r.writeBeat(beatAddr, txn.addr.Size, beat)
	txn.resp = worse(txn.resp, resp)

	txn.nextBeat++
	last := txn.nextBeat == txn.addr.Count()

	if beat.Last != last {
		txn.resp = worse(txn.resp, axi.RespSlvErr)
	}

	if last {
		r.writes.Pop()
		r.responses.Push(pendingResp{
			id:         txn.id,
			resp:       axi.WriteRespBeat{ID: txn.addr.ID, Resp: txn.resp},
			readyCycle: r.clock.CurrentCycle() + r.latency,
		})
	}

	return true
}

func (r *Responder) sendWriteResponse() bool {
	rsp, ok := r.responses.Peek()
	if !ok {
		return false
	}

	if r.clock.CurrentCycle() < rsp.readyCycle || !r.bus.B.CanSend() {
		return false
	}

	r.bus.B.MustSend(rsp.resp)
	r.responses.Pop()
	r.numWriteBursts++
	tracing.EndTask(rsp.id, r)

	return true
}

// lane returns where the bytes of a beat start in storage and in the data
// word.
func (r *Responder) lane(beatAddr uint64, size axi.Size) (
	storageAddr uint64,
	offset int,
	ok bool,
) {
	width := uint64(size.Bytes())
	aligned := beatAddr &^ (width - 1)
	offset = int(aligned % uint64(r.bus.Config.DataBytes()))

	if aligned < r.baseAddr {
		return 0, 0, false
	}

	return aligned - r.baseAddr, offset, true
}

// accessResp maps a storage error to a response. Accesses past the end of
// the storage decode to nothing.
func (r *Responder) accessResp(err error) axi.Resp {
	r.numErrorBeats++

	var accessErr *AccessError
	if errors.As(err, &accessErr) {
		return axi.RespDecErr
	}

	return axi.RespSlvErr
}

func (r *Responder) errorRangeHit(beatAddr uint64) bool {
	for _, er := range r.errorRanges {
		if er.contains(beatAddr) {
			return true
		}
	}

	return false
}

func (r *Responder) readBeat(beatAddr uint64, size axi.Size) ([]byte, axi.Resp) {
	word := make([]byte, r.bus.Config.DataBytes())

	storageAddr, offset, ok := r.lane(beatAddr, size)
	if !ok {
		r.numErrorBeats++
		return word, axi.RespDecErr
	}

	if r.errorRangeHit(beatAddr) {
		r.numErrorBeats++
		return word, axi.RespSlvErr
	}

	data, err := r.storage.Read(storageAddr, uint64(size.Bytes()))
	if err != nil {
		return word, r.accessResp(err)
	}

	copy(word[offset:], data)

	return word, axi.RespOkay
}

func (r *Responder) writeBeat(
	beatAddr uint64,
	size axi.Size,
	beat axi.WriteDataBeat,
) axi.Resp {
	storageAddr, offset, ok := r.lane(beatAddr, size)
	if !ok {
		r.numErrorBeats++
		return axi.RespDecErr
	}

	if r.errorRangeHit(beatAddr) {
		r.numErrorBeats++
		return axi.RespSlvErr
	}

	width := size.Bytes()
	if offset+width > len(beat.Data) {
		r.numErrorBeats++
		return axi.RespSlvErr
	}

	strb := beat.Strb >> offset
	err := r.storage.WriteStrobed(storageAddr, beat.Data[offset:offset+width], strb)
	if err != nil {
		return r.accessResp(err)
	}

	return axi.RespOkay
}

// worse returns the more severe of two responses.
func worse(a, b axi.Resp) axi.Resp {
	if b > a {
		return b
	}

	return a
}
