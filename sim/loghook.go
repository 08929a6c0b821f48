package sim

import (
	"log"
	"reflect"
)

// A LogHook is a hook that is responsible for recording information from the
// simulation
type LogHook interface {
	Hook
}

// LogHookBase provides the common logic for all LogHooks
type LogHookBase struct {
	*log.Logger
}

// EventLogger is an hook that prints the event information
type EventLogger struct {
	LogHookBase
}

// NewEventLogger returns a new EventLogger which will write in to the logger
func NewEventLogger(logger *log.Logger) *EventLogger {
	h := new(EventLogger)
	h.Logger = logger

	return h
}

// Func writes the event information into the logger
func (h *EventLogger) Func(ctx HookCtx) {
	if ctx.Pos != HookPosBeforeEvent {
		return
	}

	evt, ok := ctx.Item.(Event)
	if !ok {
		return
	}

	named, ok := evt.Handler().(Named)
	if ok {
		h.Printf("%.10f, %s -> %s", evt.Time(), reflect.TypeOf(evt), named.Name())
	} else {
		h.Printf("%.10f, %s", evt.Time(), reflect.TypeOf(evt))
	}
}

// StallLogger reports cycles in which a domain made no progress.
type StallLogger struct {
	LogHookBase
}

// NewStallLogger returns a new StallLogger which will write in to the logger
func NewStallLogger(logger *log.Logger) *StallLogger {
	h := new(StallLogger)
	h.Logger = logger

	return h
}

// Func logs idle cycles.
func (h *StallLogger) Func(ctx HookCtx) {
	if ctx.Pos != HookPosAfterTick {
		return
	}

	if progress, _ := ctx.Detail.(bool); progress {
		return
	}

	name := ""
	if named, ok := ctx.Domain.(Named); ok {
		name = named.Name()
	}

	h.Printf("%s: no progress in cycle %d", name, ctx.Item)
}
