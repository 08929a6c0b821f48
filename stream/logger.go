package stream

import (
	"log"

	"github.com/busforge/axi/sim"
)

// TransferLogger logs every beat that is sent or transferred on the channels
// it is attached to.
type TransferLogger struct {
	sim.LogHookBase

	clock    sim.CycleTeller
	logSends bool
}

// NewTransferLogger creates a TransferLogger. When logSends is true, Send
// events are logged in addition to transfers.
func NewTransferLogger(
	logger *log.Logger,
	clock sim.CycleTeller,
	logSends bool,
) *TransferLogger {
	h := &TransferLogger{
		clock:    clock,
		logSends: logSends,
	}
	h.Logger = logger

	return h
}

// Func writes the beat information into the logger.
func (h *TransferLogger) Func(ctx sim.HookCtx) {
	what := ""

	switch ctx.Pos {
	case HookPosTransfer:
		what = "xfer"
	case HookPosSend:
		if !h.logSends {
			return
		}

		what = "send"
	default:
		return
	}

	name := ""
	if named, ok := ctx.Domain.(sim.Named); ok {
		name = named.Name()
	}

	h.Printf("%d, %s, %s, %+v", h.clock.CurrentCycle(), name, what, ctx.Item)
}
