package interconnect

import (
	"log"

	"github.com/busforge/axi/axi"
	"github.com/busforge/axi/periph"
	"github.com/busforge/axi/sim"
)

// A Builder can build interconnects.
type Builder struct {
	upstream *axi.Bus
	ports    []Port
}

// MakeBuilder creates a builder with no port.
func MakeBuilder() Builder {
	return Builder{}
}

// WithUpstream sets the bus the interconnect listens on.
func (b Builder) WithUpstream(bus *axi.Bus) Builder {
	b.upstream = bus
	return b
}

// WithPort appends a downstream port. Ports are matched in the order they
// are added.
func (b Builder) WithPort(r periph.AddrRange, bus *axi.Bus) Builder {
	b.ports = append(append([]Port(nil), b.ports...), Port{Range: r, Bus: bus})
	return b
}

// Build creates an interconnect. It panics if two port ranges overlap.
func (b Builder) Build(name string) *Interconnect {
	sim.NameMustBeValid(name)
	b.parametersMustBeValid(name)

	return &Interconnect{
		name:     name,
		upstream: b.upstream,
		ports:    append([]Port(nil), b.ports...),
	}
}

func (b Builder) parametersMustBeValid(name string) {
	if b.upstream == nil {
		log.Panicf("%s: upstream bus is not set", name)
	}

	if len(b.ports) == 0 {
		log.Panicf("%s: no port", name)
	}

	ranges := make([]periph.AddrRange, len(b.ports))
	for i, p := range b.ports {
		if p.Bus == nil {
			log.Panicf("%s: port %d has no bus", name, i)
		}

		if p.Bus.Config.DataBits != b.upstream.Config.DataBits {
			log.Panicf("%s: port %d is %d bits wide, upstream is %d",
				name, i, p.Bus.Config.DataBits, b.upstream.Config.DataBits)
		}

		ranges[i] = p.Range
	}

	if err := periph.CheckDisjoint(ranges); err != nil {
		log.Panicf("%s: %v", name, err)
	}
}
