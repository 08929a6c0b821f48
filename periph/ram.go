package periph

import (
	"github.com/busforge/axi/axi"
	"github.com/busforge/axi/mem"
)

type ramAccess struct {
	ticket    Ticket
	remaining int
	write     bool
	offset    uint64
	data      uint64
	strb      uint64
}

// A RAM is a word-addressed memory that answers after a fixed number of
// cycles. It must be registered to the clock domain to make progress.
type RAM struct {
	addrRange AddrRange
	wordBytes int
	latency   int
	storage   *mem.Storage
	stalled   bool

	pending []*ramAccess
	tickets tickets
}

// NewRAM creates a RAM of size bytes at base.
func NewRAM(base, size uint64, wordBytes, latency int) *RAM {
	return &RAM{
		addrRange: AddrRange{Start: base, Stop: base + size},
		wordBytes: wordBytes,
		latency:   latency,
		storage:   mem.NewStorage(size),
		tickets:   newTickets(),
	}
}

// Range returns the addresses of the RAM.
func (r *RAM) Range() AddrRange {
	return r.addrRange
}

// Storage returns the backing storage.
func (r *RAM) Storage() *mem.Storage {
	return r.storage
}

// Stall stops or resumes answering. A stalled RAM accepts accesses but never
// completes them.
func (r *RAM) Stall(stalled bool) {
	r.stalled = stalled
}

// NumPending returns the number of accesses in flight.
func (r *RAM) NumPending() int {
	return len(r.pending)
}

// StartRead queues a read.
func (r *RAM) StartRead(offset uint64) Ticket {
	return r.start(&ramAccess{offset: offset})
}

// StartWrite queues a write.
func (r *RAM) StartWrite(offset, data, strb uint64) Ticket {
	return r.start(&ramAccess{
		write:  true,
		offset: offset,
		data:   data,
		strb:   strb,
	})
}

func (r *RAM) start(a *ramAccess) Ticket {
	a.ticket = r.tickets.issue()
	a.remaining = r.latency
	r.pending = append(r.pending, a)

	return a.ticket
}

// Tick counts down the latency of the accesses in flight and completes
// those that are due.
func (r *RAM) Tick() bool {
	if r.stalled || len(r.pending) == 0 {
		return false
	}

	kept := r.pending[:0]

	for _, a := range r.pending {
		if a.remaining > 0 {
			a.remaining--
		}

		if a.remaining > 0 {
			kept = append(kept, a)
			continue
		}

		r.tickets.complete(a.ticket, r.perform(a))
	}

	r.pending = kept

	return true
}

func (r *RAM) perform(a *ramAccess) Completion {
	n := uint64(r.wordBytes)
	if a.offset%n != 0 || !r.storage.Contains(a.offset, n) {
		return Completion{Status: StatusErr}
	}

	if a.write {
		word := axi.Uint64ToWord(a.data, r.wordBytes)
		if err := r.storage.WriteStrobed(a.offset, word, a.strb); err != nil {
			return Completion{Status: StatusErr}
		}

		return Completion{}
	}

	word, err := r.storage.Read(a.offset, n)
	if err != nil {
		return Completion{Status: StatusErr}
	}

	return Completion{Data: axi.WordToUint64(word)}
}

// Poll returns the completion of an access.
func (r *RAM) Poll(t Ticket) (Completion, bool) {
	return r.tickets.poll(t)
}

// Cancel abandons an access.
func (r *RAM) Cancel(t Ticket) {
	r.tickets.cancel(t)

	for i, a := range r.pending {
		if a.ticket == t {
			r.pending = append(r.pending[:i], r.pending[i+1:]...)
			break
		}
	}
}
