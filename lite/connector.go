// Package lite bridges an AXI4-Lite bus to a register-level peripheral.
package lite

import (
	"fmt"

	"github.com/busforge/axi/axi"
	"github.com/busforge/axi/periph"
	"github.com/busforge/axi/sim"
	"github.com/busforge/axi/tracing"
)

// State is the state of a Connector.
type State int

// Connector states.
const (
	StateIdle State = iota
	StateFetchReadAddress
	StateRead
	StateReadDone
	StateFetchWriteAddress
	StateWrite
	StateWriteDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateFetchReadAddress:
		return "FETCH_READ_ADDRESS"
	case StateRead:
		return "READ"
	case StateReadDone:
		return "READ_DONE"
	case StateFetchWriteAddress:
		return "FETCH_WRITE_ADDRESS"
	case StateWrite:
		return "WRITE"
	case StateWriteDone:
		return "WRITE_DONE"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// HookPosStateChange is triggered when the connector moves to another state.
// The item is the new state and the detail is the previous one.
var HookPosStateChange = &sim.HookPos{Name: "Lite Connector State Change"}

// A Connector serves one access at a time from an AXI-Lite bus on a
// peripheral. Reads take priority over writes. A watchdog bounds the time an
// access may take on the peripheral: when it expires the access is cancelled
// and answered with DECERR, so a broken peripheral never hangs the bus.
//
// Addresses outside the peripheral range are left on the bus for another
// connector, unless decode errors are enabled, in which case they are
// consumed and answered with DECERR.
type Connector struct {
	sim.HookableBase

	name         string
	bus          *axi.LiteBus
	peripheral   periph.Peripheral
	timeout      int
	decodeErrors bool

	state          State
	offset         uint64
	ticket         periph.Ticket
	started        bool
	timeoutCounter int
	haveData       bool
	writeData      axi.LiteWriteDataBeat
	readData       uint64
	resp           axi.Resp
	taskID         string

	numReads    uint64
	numWrites   uint64
	numTimeouts uint64
	numErrors   uint64
}

// Name returns the name of the connector.
func (c *Connector) Name() string {
	return c.name
}

// State returns the current state.
func (c *Connector) State() State {
	return c.state
}

// Bus returns the bus the connector serves.
func (c *Connector) Bus() *axi.LiteBus {
	return c.bus
}

// NumReads returns the number of reads answered.
func (c *Connector) NumReads() uint64 {
	return c.numReads
}

// NumWrites returns the number of writes answered.
func (c *Connector) NumWrites() uint64 {
	return c.numWrites
}

// NumTimeouts returns the number of accesses the watchdog terminated.
func (c *Connector) NumTimeouts() uint64 {
	return c.numTimeouts
}

// NumErrors returns the number of accesses answered with an error.
func (c *Connector) NumErrors() uint64 {
	return c.numErrors
}

// Tick advances the state machine by one step.
func (c *Connector) Tick() bool {
	switch c.state {
	case StateIdle:
		return c.idle()
	case StateFetchReadAddress:
		return c.fetchReadAddress()
	case StateRead:
		return c.read()
	case StateReadDone:
		return c.readDone()
	case StateFetchWriteAddress:
		return c.fetchWriteAddress()
	case StateWrite:
		return c.write()
	case StateWriteDone:
		return c.writeDone()
	default:
		panic("unknown state")
	}
}

func (c *Connector) setState(s State) {
	prev := c.state
	c.state = s

	if c.NumHooks() > 0 {
		c.InvokeHook(sim.HookCtx{
			Domain: c,
			Pos:    HookPosStateChange,
			Item:   s,
			Detail: prev,
		})
	}
}

func (c *Connector) idle() bool {
	if a, ok := c.bus.AR.Peek(); ok {
		if c.peripheral.Range().Contains(a.Addr) {
			c.setState(StateFetchReadAddress)
			return true
		}

		if c.decodeErrors {
			c.bus.AR.Retrieve()
			c.beginAccess("read")
			c.finishRead(0, axi.RespDecErr)

			return true
		}
	}

	if a, ok := c.bus.AW.Peek(); ok {
		if c.peripheral.Range().Contains(a.Addr) {
			c.setState(StateFetchWriteAddress)
			return true
		}

		if c.decodeErrors {
			c.bus.AW.Retrieve()
			c.beginAccess("write")
			c.haveData = false
			c.resp = axi.RespDecErr
			c.setState(StateWrite)

			return true
		}
	}

	return false
}

func (c *Connector) beginAccess(what string) {
	c.taskID = sim.GetIDGenerator().Generate()
	tracing.StartTask(c.taskID, "", c, "access", what, nil)
}

func (c *Connector) fetchReadAddress() bool {
	a, _ := c.bus.AR.Retrieve()

	c.offset = a.Addr - c.peripheral.Range().Start
	c.started = false
	c.timeoutCounter = 0
	c.beginAccess("read")
	c.setState(StateRead)

	return true
}

func (c *Connector) read() bool {
	if !c.started {
		c.ticket = c.peripheral.StartRead(c.offset)
		c.started = true
	}

	if done, ok := c.peripheral.Poll(c.ticket); ok {
		c.finishRead(done.Data, toResp(done.Status))
		return true
	}

	c.timeoutCounter++
	if c.timeoutCounter >= c.timeout {
		c.peripheral.Cancel(c.ticket)
		c.numTimeouts++
		c.finishRead(0, axi.RespDecErr)
	}

	return true
}

func (c *Connector) finishRead(data uint64, resp axi.Resp) {
	c.readData = data & c.bus.Config.DataMask()
	c.resp = resp
	c.setState(StateReadDone)
}

func (c *Connector) readDone() bool {
	if !c.bus.R.CanSend() {
		return false
	}

	c.bus.R.MustSend(axi.LiteReadDataBeat{Data: c.readData, Resp: c.resp})
	c.numReads++
	c.endAccess()

	return true
}

func (c *Connector) fetchWriteAddress() bool {
	a, _ := c.bus.AW.Retrieve()

	c.offset = a.Addr - c.peripheral.Range().Start
	c.started = false
	c.haveData = false
	c.timeoutCounter = 0
	c.resp = axi.RespOkay
	c.beginAccess("write")
	c.setState(StateWrite)

	return true
}

func (c *Connector) write() bool {
	if !c.haveData {
		w, ok := c.bus.W.Retrieve()
		if !ok {
			return false
		}

		c.writeData = w
		c.haveData = true

		if c.resp == axi.RespDecErr {
			c.setState(StateWriteDone)
			return true
		}
	}

	if !c.started {
		c.ticket = c.peripheral.StartWrite(
			c.offset,
			c.writeData.Data&c.bus.Config.DataMask(),
			c.writeData.Strb,
		)
		c.started = true
	}

	if done, ok := c.peripheral.Poll(c.ticket); ok {
		c.resp = toResp(done.Status)
		c.setState(StateWriteDone)

		return true
	}

	c.timeoutCounter++
	if c.timeoutCounter >= c.timeout {
		c.peripheral.Cancel(c.ticket)
		c.numTimeouts++
		c.resp = axi.RespDecErr
		c.setState(StateWriteDone)
	}

	return true
}

func (c *Connector) writeDone() bool {
	if !c.bus.B.CanSend() {
		return false
	}

	c.bus.B.MustSend(axi.LiteWriteRespBeat{Resp: c.resp})
	c.numWrites++
	c.endAccess()

	return true
}

func (c *Connector) endAccess() {
	if !c.resp.IsOK() {
		c.numErrors++
	}

	tracing.EndTask(c.taskID, c)
	c.taskID = ""
	c.setState(StateIdle)
}

func toResp(s periph.Status) axi.Resp {
	if s == periph.StatusOK {
		return axi.RespOkay
	}

	return axi.RespDecErr
}
