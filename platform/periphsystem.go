package platform

import (
	"fmt"

	"github.com/busforge/axi/axi"
	"github.com/busforge/axi/lite"
	"github.com/busforge/axi/periph"
	"github.com/busforge/axi/sim"
	"github.com/busforge/axi/tracing"
)

// A PeripheralSystem is a register file, a counter bank and a RAM behind one
// AXI-Lite connector, driven by a master.
type PeripheralSystem struct {
	Domain     *sim.Domain
	Bus        *axi.LiteBus
	Master     *lite.Master
	Connector  *lite.Connector
	Aggregator *periph.Aggregator
	Registers  *periph.RegisterFile
	Counters   *periph.CounterBank
	RAM        *periph.RAM
}

// AttachTracer makes the tracer collect the register accesses.
func (s *PeripheralSystem) AttachTracer(t tracing.Tracer) {
	tracing.CollectTrace(s.Connector, t)
}

// Run waits for every queued access of the master to complete.
func (s *PeripheralSystem) Run(maxCycles uint64) error {
	if !s.Domain.RunUntil(s.Master.Idle, maxCycles) {
		return fmt.Errorf("accesses: %w within %d cycles",
			ErrNotFinished, maxCycles)
	}

	return nil
}

// Exercise queues a register walk: a write and a read back on every
// register, a RAM word, an unmapped address and, if stallRAM is set, a RAM
// read while the RAM is stalled. It then reads all the counters. It returns
// the accesses in issue order.
func (s *PeripheralSystem) Exercise(
	stallRAM bool,
	maxCycles uint64,
) ([]*lite.Access, error) {
	var accesses []*lite.Access
	wordBytes := uint64(s.Bus.Config.DataBytes())
	m := s.Master

	for i := uint64(0); i < NumRegisters; i++ {
		addr := RegistersBase + i*wordBytes
		accesses = append(accesses, m.Write(addr, 0x100+i), m.Read(addr))
	}

	accesses = append(accesses,
		m.Write(RAMBase+0x40, 0xc0ffee),
		m.Read(RAMBase+0x40),
		m.Read(CountersBase-wordBytes),
	)

	if err := s.Run(maxCycles); err != nil {
		return accesses, err
	}

	if stallRAM {
		s.RAM.Stall(true)
		accesses = append(accesses, m.Read(RAMBase))

		err := s.Run(maxCycles)
		s.RAM.Stall(false)

		if err != nil {
			return accesses, err
		}
	}

	for i := uint64(0); i < numCounters; i++ {
		accesses = append(accesses, m.Read(CountersBase+i*wordBytes))
	}

	return accesses, s.Run(maxCycles)
}
