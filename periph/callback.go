package periph

import "log"

// DoneFunc reports the outcome of an access. It must be called exactly once.
type DoneFunc func(data uint64, status Status)

// A Handler serves accesses by calling done, possibly much later.
type Handler interface {
	Range() AddrRange
	HandleRead(offset uint64, done DoneFunc)
	HandleWrite(offset uint64, data uint64, strb uint64, done DoneFunc)
}

// CallbackPeripheral turns a callback-style Handler into a Peripheral.
type CallbackPeripheral struct {
	handler Handler
	tickets tickets
}

// NewCallbackPeripheral wraps a handler.
func NewCallbackPeripheral(h Handler) *CallbackPeripheral {
	return &CallbackPeripheral{
		handler: h,
		tickets: newTickets(),
	}
}

// Range returns the range of the handler.
func (p *CallbackPeripheral) Range() AddrRange {
	return p.handler.Range()
}

// StartRead calls the read handler.
func (p *CallbackPeripheral) StartRead(offset uint64) Ticket {
	t := p.tickets.issue()
	p.handler.HandleRead(offset, p.doneFunc(t))

	return t
}

// StartWrite calls the write handler.
func (p *CallbackPeripheral) StartWrite(offset, data, strb uint64) Ticket {
	t := p.tickets.issue()
	p.handler.HandleWrite(offset, data, strb, p.doneFunc(t))

	return t
}

// Poll returns the completion once done has been called.
func (p *CallbackPeripheral) Poll(t Ticket) (Completion, bool) {
	return p.tickets.poll(t)
}

// Cancel abandons an access.
func (p *CallbackPeripheral) Cancel(t Ticket) {
	p.tickets.cancel(t)
}

func (p *CallbackPeripheral) doneFunc(t Ticket) DoneFunc {
	called := false

	return func(data uint64, status Status) {
		if called {
			log.Panicf("completion of access %d reported twice", t)
		}

		called = true
		p.tickets.complete(t, Completion{Data: data, Status: status})
	}
}
