// Package periph defines the register-level peripheral contract served by an
// AXI-Lite connector, the aggregator that combines several peripherals into
// one address space, and a few stock peripherals.
package periph

import (
	"fmt"
)

// Status is the outcome of a peripheral access.
type Status int

// Possible statuses.
const (
	StatusOK Status = iota
	StatusErr
)

func (s Status) String() string {
	if s == StatusOK {
		return "OK"
	}

	return "ERR"
}

// AddrRange is a half-open byte address interval [Start, Stop).
type AddrRange struct {
	Start uint64
	Stop  uint64
}

// Contains tells if addr is in the range.
func (r AddrRange) Contains(addr uint64) bool {
	return addr >= r.Start && addr < r.Stop
}

// Overlaps tells if two ranges share at least one address.
func (r AddrRange) Overlaps(o AddrRange) bool {
	return r.Start < o.Stop && o.Start < r.Stop
}

// Size returns the number of bytes in the range.
func (r AddrRange) Size() uint64 {
	return r.Stop - r.Start
}

// Valid tells if the range is non-empty.
func (r AddrRange) Valid() bool {
	return r.Start < r.Stop
}

func (r AddrRange) String() string {
	return fmt.Sprintf("[0x%x, 0x%x)", r.Start, r.Stop)
}

// A Ticket identifies an access started on a peripheral.
type Ticket uint64

// A Completion is the result of an access. Data is only meaningful for
// reads that completed with StatusOK.
type Completion struct {
	Data   uint64
	Status Status
}

// A Peripheral owns an address range and serves register reads and writes
// with arbitrary latency. An access is started with StartRead or StartWrite
// and then polled every cycle until it completes. Offsets are relative to
// the start of the range.
type Peripheral interface {
	// Range returns the addresses the peripheral answers to.
	Range() AddrRange

	// StartRead starts reading the word at the offset.
	StartRead(offset uint64) Ticket

	// StartWrite starts writing the bytes of data enabled by strb at the
	// offset.
	StartWrite(offset uint64, data uint64, strb uint64) Ticket

	// Poll returns the completion of the access once it is available. A
	// completion is returned at most once.
	Poll(t Ticket) (Completion, bool)

	// Cancel abandons an access. Completions of cancelled accesses are
	// discarded.
	Cancel(t Ticket)
}

// tickets hands out tickets and remembers completions that have not been
// polled yet.
type tickets struct {
	next    Ticket
	results map[Ticket]Completion
	open    map[Ticket]bool
}

func newTickets() tickets {
	return tickets{
		results: make(map[Ticket]Completion),
		open:    make(map[Ticket]bool),
	}
}

func (t *tickets) issue() Ticket {
	t.next++
	t.open[t.next] = true

	return t.next
}

func (t *tickets) complete(ticket Ticket, c Completion) {
	if !t.open[ticket] {
		return
	}

	delete(t.open, ticket)
	t.results[ticket] = c
}

func (t *tickets) poll(ticket Ticket) (Completion, bool) {
	c, ok := t.results[ticket]
	if ok {
		delete(t.results, ticket)
	}

	return c, ok
}

func (t *tickets) cancel(ticket Ticket) {
	delete(t.open, ticket)
	delete(t.results, ticket)
}

func (t *tickets) numOpen() int {
	return len(t.open)
}

// applyStrobe merges the enabled bytes of data into old.
func applyStrobe(old, data, strb uint64) uint64 {
	mask := uint64(0)

	for i := 0; i < 8; i++ {
		if strb&(1<<i) != 0 {
			mask |= 0xff << (8 * i)
		}
	}

	return old&^mask | data&mask
}
