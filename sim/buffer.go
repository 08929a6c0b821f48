package sim

import "log"

// HookPosBufPush marks when an item is pushed into a buffer.
var HookPosBufPush = &HookPos{Name: "Buffer Push"}

// HookPosBufPop marks when an item leaves a buffer.
var HookPosBufPop = &HookPos{Name: "Buffer Pop"}

// A Buffer is a bounded FIFO private to one component. Unlike a stream
// channel it has no handshake: a pushed item can be popped in the same
// cycle. Components keep their in-flight transactions in buffers so that the
// monitor can report how full they are.
type Buffer[T any] struct {
	HookableBase

	name     string
	capacity int
	items    []T
}

// NewBuffer creates an empty buffer.
func NewBuffer[T any](name string, capacity int) *Buffer[T] {
	NameMustBeValid(name)

	if capacity <= 0 {
		log.Panicf("buffer %s must have a positive capacity", name)
	}

	return &Buffer[T]{
		name:     name,
		capacity: capacity,
	}
}

// Name returns the name of the buffer.
func (b *Buffer[T]) Name() string {
	return b.name
}

// Capacity returns the number of items the buffer can hold.
func (b *Buffer[T]) Capacity() int {
	return b.capacity
}

// Size returns the number of items held.
func (b *Buffer[T]) Size() int {
	return len(b.items)
}

// CanPush tells if Push would succeed.
func (b *Buffer[T]) CanPush() bool {
	return len(b.items) < b.capacity
}

// Push appends an item. It panics if the buffer is full.
func (b *Buffer[T]) Push(item T) {
	if !b.CanPush() {
		log.Panicf("buffer %s overflow", b.name)
	}

	b.items = append(b.items, item)
	b.invoke(HookPosBufPush, item)
}

// Peek returns the oldest item without removing it.
func (b *Buffer[T]) Peek() (T, bool) {
	if len(b.items) == 0 {
		var zero T
		return zero, false
	}

	return b.items[0], true
}

// Pop removes and returns the oldest item.
func (b *Buffer[T]) Pop() (T, bool) {
	item, ok := b.Peek()
	if !ok {
		return item, false
	}

	var zero T
	b.items[0] = zero
	b.items = b.items[1:]
	b.invoke(HookPosBufPop, item)

	return item, true
}

// Clear drops every item without invoking hooks.
func (b *Buffer[T]) Clear() {
	b.items = nil
}

func (b *Buffer[T]) invoke(pos *HookPos, item T) {
	if b.NumHooks() == 0 {
		return
	}

	b.InvokeHook(HookCtx{
		Domain: b,
		Pos:    pos,
		Item:   item,
	})
}
