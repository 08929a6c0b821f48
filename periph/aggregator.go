package periph

import (
	"fmt"
	"log"
)

// An OverlapError reports two registered ranges that share addresses.
type OverlapError struct {
	First, Second       AddrRange
	FirstIdx, SecondIdx int
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("range %d %s overlaps with range %d %s",
		e.SecondIdx, e.Second, e.FirstIdx, e.First)
}

// CheckDisjoint returns an error if the ranges are empty or share addresses.
func CheckDisjoint(ranges []AddrRange) error {
	for i, r := range ranges {
		if !r.Valid() {
			return fmt.Errorf("range %d %s is empty", i, r)
		}

		for j := 0; j < i; j++ {
			if ranges[j].Overlaps(r) {
				return &OverlapError{
					First:     ranges[j],
					Second:    r,
					FirstIdx:  j,
					SecondIdx: i,
				}
			}
		}
	}

	return nil
}

// A SystemBuilder collects peripherals before they are combined. The
// address map is checked once, by Finalize, before any cycle runs.
type SystemBuilder struct {
	peripherals []Peripheral
}

// Register adds a peripheral. Peripherals are matched in registration order.
func (b *SystemBuilder) Register(p Peripheral) *SystemBuilder {
	if p == nil {
		log.Panic("registering a nil peripheral")
	}

	b.peripherals = append(b.peripherals, p)

	return b
}

// Finalize checks that no two ranges overlap and creates the aggregator.
func (b *SystemBuilder) Finalize() (*Aggregator, error) {
	if len(b.peripherals) == 0 {
		return nil, fmt.Errorf("no peripheral registered")
	}

	ranges := make([]AddrRange, len(b.peripherals))
	for i, p := range b.peripherals {
		ranges[i] = p.Range()
	}

	if err := CheckDisjoint(ranges); err != nil {
		return nil, err
	}

	a := &Aggregator{
		peripherals: append([]Peripheral(nil), b.peripherals...),
		ranges:      ranges,
		routes:      make(map[Ticket]route),
		tickets:     newTickets(),
	}

	a.span = ranges[0]
	for _, r := range ranges[1:] {
		a.span.Start = min(a.span.Start, r.Start)
		a.span.Stop = max(a.span.Stop, r.Stop)
	}

	return a, nil
}

// MustFinalize is Finalize that panics on a bad address map.
func (b *SystemBuilder) MustFinalize() *Aggregator {
	a, err := b.Finalize()
	if err != nil {
		log.Panic(err)
	}

	return a
}

type route struct {
	target Peripheral
	inner  Ticket
}

// An Aggregator presents several peripherals as one. Its range spans all of
// theirs. An access goes to the first peripheral, in registration order,
// whose range contains the address; an access that falls in a hole between
// ranges completes immediately with StatusErr.
type Aggregator struct {
	peripherals []Peripheral
	ranges      []AddrRange
	span        AddrRange

	routes  map[Ticket]route
	tickets tickets

	numUnmapped uint64
}

// Range returns the span of all the ranges.
func (a *Aggregator) Range() AddrRange {
	return a.span
}

// Ranges returns the routing table, in match order.
func (a *Aggregator) Ranges() []AddrRange {
	return append([]AddrRange(nil), a.ranges...)
}

// NumUnmapped returns the number of accesses that matched no peripheral.
func (a *Aggregator) NumUnmapped() uint64 {
	return a.numUnmapped
}

// Find returns the peripheral that owns the absolute address.
func (a *Aggregator) Find(addr uint64) (Peripheral, bool) {
	for i, r := range a.ranges {
		if r.Contains(addr) {
			return a.peripherals[i], true
		}
	}

	return nil, false
}

// StartRead routes a read.
func (a *Aggregator) StartRead(offset uint64) Ticket {
	return a.start(offset, func(p Peripheral, local uint64) Ticket {
		return p.StartRead(local)
	})
}

// StartWrite routes a write.
func (a *Aggregator) StartWrite(offset, data, strb uint64) Ticket {
	return a.start(offset, func(p Peripheral, local uint64) Ticket {
		return p.StartWrite(local, data, strb)
	})
}

func (a *Aggregator) start(
	offset uint64,
	startFn func(p Peripheral, local uint64) Ticket,
) Ticket {
	t := a.tickets.issue()
	addr := a.span.Start + offset

	p, ok := a.Find(addr)
	if !ok {
		a.numUnmapped++
		a.tickets.complete(t, Completion{Status: StatusErr})

		return t
	}

	a.routes[t] = route{
		target: p,
		inner:  startFn(p, addr-p.Range().Start),
	}

	return t
}

// Poll polls the peripheral serving the access.
func (a *Aggregator) Poll(t Ticket) (Completion, bool) {
	if c, ok := a.tickets.poll(t); ok {
		return c, true
	}

	r, ok := a.routes[t]
	if !ok {
		return Completion{}, false
	}

	c, ok := r.target.Poll(r.inner)
	if !ok {
		return Completion{}, false
	}

	delete(a.routes, t)
	a.tickets.cancel(t)

	return c, true
}

// Cancel abandons an access and cancels it on the serving peripheral.
func (a *Aggregator) Cancel(t Ticket) {
	if r, ok := a.routes[t]; ok {
		r.target.Cancel(r.inner)
		delete(a.routes, t)
	}

	a.tickets.cancel(t)
}
