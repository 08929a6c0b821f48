package stream

import (
	"fmt"
	"log"

	"github.com/busforge/axi/sim"
)

// HookPosSend marks when a producer asserts valid with a new beat.
var HookPosSend = &sim.HookPos{Name: "Stream Send"}

// HookPosTransfer marks when a beat is transferred to the consumer.
var HookPosTransfer = &sim.HookPos{Name: "Stream Transfer"}

// DefaultDepth is the number of beats a channel holds unless configured
// otherwise. Two slots let a producer refill in the same cycle the consumer
// takes a beat, regardless of the order in which they tick.
const DefaultDepth = 2

// A SendError is returned when the channel cannot accept another beat.
type SendError struct {
	Channel string
}

func (e *SendError) Error() string {
	return fmt.Sprintf("channel %s is full", e.Channel)
}

type slot[T any] struct {
	payload   T
	sendCycle uint64
}

// Channel is a unidirectional ready/valid stream carrying payloads of type T.
type Channel[T any] struct {
	sim.HookableBase

	name  string
	clock sim.CycleTeller
	depth int
	slots []slot[T]

	numSent        uint64
	numTransferred uint64
}

// NewChannel creates a channel clocked by the given cycle teller.
func NewChannel[T any](
	name string,
	clock sim.CycleTeller,
	depth int,
) *Channel[T] {
	sim.NameMustBeValid(name)

	if clock == nil {
		log.Panicf("channel %s needs a clock", name)
	}

	if depth <= 0 {
		log.Panicf("channel %s must have a positive depth", name)
	}

	return &Channel[T]{
		name:  name,
		clock: clock,
		depth: depth,
	}
}

// Name returns the name of the channel.
func (c *Channel[T]) Name() string {
	return c.name
}

// CanSend tells the producer whether Send would succeed.
func (c *Channel[T]) CanSend() bool {
	return len(c.slots) < c.depth
}

// Send asserts valid with the given payload. Once sent, the payload cannot be
// changed or withdrawn. Payloads holding references must not be mutated by
// either side after Send.
func (c *Channel[T]) Send(payload T) *SendError {
	if !c.CanSend() {
		return &SendError{Channel: c.name}
	}

	c.slots = append(c.slots, slot[T]{
		payload:   payload,
		sendCycle: c.clock.CurrentCycle(),
	})
	c.numSent++

	if c.NumHooks() > 0 {
		c.InvokeHook(sim.HookCtx{
			Domain: c,
			Pos:    HookPosSend,
			Item:   payload,
		})
	}

	return nil
}

// MustSend sends the payload and panics if the channel is full.
func (c *Channel[T]) MustSend(payload T) {
	if err := c.Send(payload); err != nil {
		log.Panic(err)
	}
}

// Valid tells the consumer whether a beat is presented in this cycle.
func (c *Channel[T]) Valid() bool {
	return len(c.slots) > 0 &&
		c.slots[0].sendCycle < c.clock.CurrentCycle()
}

// Peek returns the presented beat without accepting it.
func (c *Channel[T]) Peek() (T, bool) {
	if !c.Valid() {
		var zero T
		return zero, false
	}

	return c.slots[0].payload, true
}

// Retrieve asserts ready. If a beat is presented, the transfer commits and
// the beat is returned.
func (c *Channel[T]) Retrieve() (T, bool) {
	if !c.Valid() {
		var zero T
		return zero, false
	}

	payload := c.slots[0].payload

	var zero slot[T]
	c.slots[0] = zero
	c.slots = c.slots[1:]
	c.numTransferred++

	if c.NumHooks() > 0 {
		c.InvokeHook(sim.HookCtx{
			Domain: c,
			Pos:    HookPosTransfer,
			Item:   payload,
		})
	}

	return payload, true
}

// Size returns the number of beats held, including those not yet visible.
func (c *Channel[T]) Size() int {
	return len(c.slots)
}

// Capacity returns the depth of the channel.
func (c *Channel[T]) Capacity() int {
	return c.depth
}

// Empty tells if no beat is held.
func (c *Channel[T]) Empty() bool {
	return len(c.slots) == 0
}

// NumSent returns how many beats the producer has sent.
func (c *Channel[T]) NumSent() uint64 {
	return c.numSent
}

// NumTransferred returns how many beats the consumer has accepted.
func (c *Channel[T]) NumTransferred() uint64 {
	return c.numTransferred
}
