package lite

import (
	"github.com/busforge/axi/axi"
	"github.com/busforge/axi/sim"
)

// An Access is one register read or write issued by a Master.
type Access struct {
	Write bool
	Addr  uint64
	Data  uint64
	Strb  uint64

	Resp        axi.Resp
	Done        bool
	IssueCycle  uint64
	FinishCycle uint64
}

// Latency returns the number of cycles between issue and completion.
func (a *Access) Latency() uint64 {
	return a.FinishCycle - a.IssueCycle
}

// A Master drives an AXI-Lite bus with queued register accesses, one at a
// time. It is the manager side of a Connector.
type Master struct {
	name  string
	bus   *axi.LiteBus
	clock sim.CycleTeller

	queue   []*Access
	current *Access
	issued  bool
}

// NewMaster creates a master on the bus.
func NewMaster(name string, bus *axi.LiteBus, clock sim.CycleTeller) *Master {
	sim.NameMustBeValid(name)

	return &Master{
		name:  name,
		bus:   bus,
		clock: clock,
	}
}

// Name returns the name of the master.
func (m *Master) Name() string {
	return m.name
}

// Read queues a read.
func (m *Master) Read(addr uint64) *Access {
	a := &Access{Addr: addr}
	m.queue = append(m.queue, a)

	return a
}

// Write queues a full-word write.
func (m *Master) Write(addr, data uint64) *Access {
	return m.WriteStrobed(addr, data, axi.FullStrobe(m.bus.Config.DataBytes()))
}

// WriteStrobed queues a write of the bytes enabled by strb.
func (m *Master) WriteStrobed(addr, data, strb uint64) *Access {
	a := &Access{Write: true, Addr: addr, Data: data, Strb: strb}
	m.queue = append(m.queue, a)

	return a
}

// Idle tells if every queued access is done.
func (m *Master) Idle() bool {
	return m.current == nil && len(m.queue) == 0
}

// Tick issues the next access or collects the response of the current one.
func (m *Master) Tick() bool {
	if m.current == nil {
		if len(m.queue) == 0 {
			return false
		}

		m.current = m.queue[0]
		m.queue = m.queue[1:]
		m.issued = false
	}

	if !m.issued {
		return m.issue()
	}

	return m.collect()
}

func (m *Master) issue() bool {
	a := m.current

	if a.Write {
		if !m.bus.AW.CanSend() || !m.bus.W.CanSend() {
			return false
		}

		m.bus.AW.MustSend(axi.LiteAddrBeat{Addr: a.Addr})
		m.bus.W.MustSend(axi.LiteWriteDataBeat{Data: a.Data, Strb: a.Strb})
	} else {
		if !m.bus.AR.CanSend() {
			return false
		}

		m.bus.AR.MustSend(axi.LiteAddrBeat{Addr: a.Addr})
	}

	a.IssueCycle = m.clock.CurrentCycle()
	m.issued = true

	return true
}

func (m *Master) collect() bool {
	a := m.current

	if a.Write {
		b, ok := m.bus.B.Retrieve()
		if !ok {
			return false
		}

		a.Resp = b.Resp
	} else {
		r, ok := m.bus.R.Retrieve()
		if !ok {
			return false
		}

		a.Data = r.Data
		a.Resp = r.Resp
	}

	a.Done = true
	a.FinishCycle = m.clock.CurrentCycle()
	m.current = nil

	return true
}
