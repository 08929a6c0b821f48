package mem

import (
	"log"

	"github.com/busforge/axi/axi"
	"github.com/busforge/axi/sim"
)

// A Builder can build responders.
type Builder struct {
	clock          sim.CycleTeller
	bus            *axi.Bus
	storage        *Storage
	capacity       uint64
	baseAddr       uint64
	latency        int
	maxOutstanding int
}

// MakeBuilder returns a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		capacity:       4 * GB,
		latency:        10,
		maxOutstanding: 4,
	}
}

// WithClock sets the clock used to count latency.
func (b Builder) WithClock(clock sim.CycleTeller) Builder {
	b.clock = clock
	return b
}

// WithBus sets the bus to serve.
func (b Builder) WithBus(bus *axi.Bus) Builder {
	b.bus = bus
	return b
}

// WithStorage sets the backing storage.
func (b Builder) WithStorage(storage *Storage) Builder {
	b.storage = storage
	return b
}

// WithNewStorage creates a new storage with the given capacity.
func (b Builder) WithNewStorage(capacity uint64) Builder {
	b.capacity = capacity
	b.storage = nil

	return b
}

// WithBaseAddress sets the bus address that maps to the first storage byte.
func (b Builder) WithBaseAddress(addr uint64) Builder {
	b.baseAddr = addr
	return b
}

// WithLatency sets the number of cycles between a request and its first
// response beat.
func (b Builder) WithLatency(latency int) Builder {
	b.latency = latency
	return b
}

// WithMaxOutstanding sets the number of bursts in flight per direction.
func (b Builder) WithMaxOutstanding(n int) Builder {
	b.maxOutstanding = n
	return b
}

// Build creates a responder.
func (b Builder) Build(name string) *Responder {
	sim.NameMustBeValid(name)
	b.parametersMustBeValid(name)

	r := &Responder{
		name:           name,
		bus:            b.bus,
		clock:          b.clock,
		storage:        b.storage,
		baseAddr:       b.baseAddr,
		latency:        uint64(b.latency),
		maxOutstanding: b.maxOutstanding,
		reads:          sim.NewBuffer[*readTxn](name+".ReadQueue", b.maxOutstanding),
		writes:         sim.NewBuffer[*writeTxn](name+".WriteQueue", b.maxOutstanding),
		responses:      sim.NewBuffer[pendingResp](name+".RespQueue", b.maxOutstanding),
	}

	if r.storage == nil {
		r.storage = NewStorage(b.capacity)
	}

	return r
}

func (b Builder) parametersMustBeValid(name string) {
	if b.clock == nil {
		log.Panicf("%s: clock is not set", name)
	}

	if b.bus == nil {
		log.Panicf("%s: bus is not set", name)
	}

	if b.latency < 0 {
		log.Panicf("%s: latency cannot be negative", name)
	}

	if b.maxOutstanding <= 0 {
		log.Panicf("%s: must allow at least one outstanding burst", name)
	}
}
