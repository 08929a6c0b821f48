package periph

import "log"

// A RegisterFile is a bank of word registers answering in a single cycle.
type RegisterFile struct {
	addrRange AddrRange
	wordBytes uint64
	regs      []uint64
	readOnly  map[int]bool
	onWrite   func(index int, value uint64)
	tickets   tickets
}

// NewRegisterFile creates numRegs registers of wordBytes bytes at base.
func NewRegisterFile(base uint64, numRegs, wordBytes int) *RegisterFile {
	if numRegs <= 0 {
		log.Panic("a register file needs at least one register")
	}

	if wordBytes <= 0 || wordBytes > 8 || wordBytes&(wordBytes-1) != 0 {
		log.Panicf("register width %d is not supported", wordBytes)
	}

	return &RegisterFile{
		addrRange: AddrRange{
			Start: base,
			Stop:  base + uint64(numRegs*wordBytes),
		},
		wordBytes: uint64(wordBytes),
		regs:      make([]uint64, numRegs),
		readOnly:  make(map[int]bool),
		tickets:   newTickets(),
	}
}

// Range returns the addresses of the registers.
func (f *RegisterFile) Range() AddrRange {
	return f.addrRange
}

// Get returns a register value.
func (f *RegisterFile) Get(index int) uint64 {
	return f.regs[index]
}

// Set sets a register value, bypassing the read-only flag.
func (f *RegisterFile) Set(index int, value uint64) {
	f.regs[index] = value & f.mask()
}

// SetReadOnly makes bus writes to a register fail.
func (f *RegisterFile) SetReadOnly(index int) {
	f.readOnly[index] = true
}

// OnWrite sets a function called after every successful bus write.
func (f *RegisterFile) OnWrite(fn func(index int, value uint64)) {
	f.onWrite = fn
}

func (f *RegisterFile) mask() uint64 {
	if f.wordBytes == 8 {
		return ^uint64(0)
	}

	return (uint64(1) << (8 * f.wordBytes)) - 1
}

func (f *RegisterFile) index(offset uint64) (int, bool) {
	if offset%f.wordBytes != 0 {
		return 0, false
	}

	i := offset / f.wordBytes
	if i >= uint64(len(f.regs)) {
		return 0, false
	}

	return int(i), true
}

// StartRead reads a register.
func (f *RegisterFile) StartRead(offset uint64) Ticket {
	t := f.tickets.issue()

	i, ok := f.index(offset)
	if !ok {
		f.tickets.complete(t, Completion{Status: StatusErr})
		return t
	}

	f.tickets.complete(t, Completion{Data: f.regs[i]})

	return t
}

// StartWrite writes a register.
func (f *RegisterFile) StartWrite(offset, data, strb uint64) Ticket {
	t := f.tickets.issue()

	i, ok := f.index(offset)
	if !ok || f.readOnly[i] {
		f.tickets.complete(t, Completion{Status: StatusErr})
		return t
	}

	f.regs[i] = applyStrobe(f.regs[i], data, strb) & f.mask()
	if f.onWrite != nil {
		f.onWrite(i, f.regs[i])
	}

	f.tickets.complete(t, Completion{})

	return t
}

// Poll returns the completion of an access.
func (f *RegisterFile) Poll(t Ticket) (Completion, bool) {
	return f.tickets.poll(t)
}

// Cancel abandons an access.
func (f *RegisterFile) Cancel(t Ticket) {
	f.tickets.cancel(t)
}
