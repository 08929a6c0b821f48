package periph

// A CounterBank exposes read-only counters as registers. Each register reads
// the current value of its function. Writes fail.
type CounterBank struct {
	addrRange AddrRange
	wordBytes uint64
	counters  []func() uint64
	tickets   tickets
}

// NewCounterBank creates a bank at base with one register per counter.
func NewCounterBank(
	base uint64,
	wordBytes int,
	counters ...func() uint64,
) *CounterBank {
	return &CounterBank{
		addrRange: AddrRange{
			Start: base,
			Stop:  base + uint64(len(counters)*wordBytes),
		},
		wordBytes: uint64(wordBytes),
		counters:  counters,
		tickets:   newTickets(),
	}
}

// Range returns the addresses of the counters.
func (b *CounterBank) Range() AddrRange {
	return b.addrRange
}

// StartRead samples a counter.
func (b *CounterBank) StartRead(offset uint64) Ticket {
	t := b.tickets.issue()

	i := offset / b.wordBytes
	if offset%b.wordBytes != 0 || i >= uint64(len(b.counters)) {
		b.tickets.complete(t, Completion{Status: StatusErr})
		return t
	}

	v := b.counters[i]()
	if b.wordBytes < 8 {
		v &= (uint64(1) << (8 * b.wordBytes)) - 1
	}

	b.tickets.complete(t, Completion{Data: v})

	return t
}

// StartWrite fails.
func (b *CounterBank) StartWrite(_, _, _ uint64) Ticket {
	t := b.tickets.issue()
	b.tickets.complete(t, Completion{Status: StatusErr})

	return t
}

// Poll returns the completion of an access.
func (b *CounterBank) Poll(t Ticket) (Completion, bool) {
	return b.tickets.poll(t)
}

// Cancel abandons an access.
func (b *CounterBank) Cancel(t Ticket) {
	b.tickets.cancel(t)
}
