package lite

import (
	"log"

	"github.com/busforge/axi/axi"
	"github.com/busforge/axi/periph"
	"github.com/busforge/axi/sim"
)

// DefaultTimeout is the number of cycles a peripheral has to answer.
const DefaultTimeout = 1000

// A Builder can build connectors.
type Builder struct {
	bus          *axi.LiteBus
	peripheral   periph.Peripheral
	timeout      int
	decodeErrors bool
}

// MakeBuilder returns a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		timeout: DefaultTimeout,
	}
}

// WithBus sets the bus to serve.
func (b Builder) WithBus(bus *axi.LiteBus) Builder {
	b.bus = bus
	return b
}

// WithPeripheral sets the peripheral to serve.
func (b Builder) WithPeripheral(p periph.Peripheral) Builder {
	b.peripheral = p
	return b
}

// WithTimeout sets the watchdog timeout in cycles.
func (b Builder) WithTimeout(cycles int) Builder {
	b.timeout = cycles
	return b
}

// WithDecodeErrors makes the connector answer out-of-range addresses with
// DECERR instead of leaving them on the bus.
func (b Builder) WithDecodeErrors() Builder {
	b.decodeErrors = true
	return b
}

// Build creates a connector.
func (b Builder) Build(name string) *Connector {
	sim.NameMustBeValid(name)
	b.parametersMustBeValid(name)

	return &Connector{
		name:         name,
		bus:          b.bus,
		peripheral:   b.peripheral,
		timeout:      b.timeout,
		decodeErrors: b.decodeErrors,
	}
}

func (b Builder) parametersMustBeValid(name string) {
	if b.bus == nil {
		log.Panicf("%s: bus is not set", name)
	}

	if b.peripheral == nil {
		log.Panicf("%s: peripheral is not set", name)
	}

	if b.timeout < 1 {
		log.Panicf("%s: timeout must be at least one cycle", name)
	}
}
