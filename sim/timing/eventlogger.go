package timing

import (
	"reflect"

	"github.com/rs/zerolog"
	"github.com/sarchlab/slicesim/sim/hooking"
)

// EventLogger is a hook that logs every event the engine handles.
type EventLogger struct {
	logger zerolog.Logger
}

// NewEventLogger returns an EventLogger that writes into the logger at trace
// level. Handler errors are logged at warn level.
func NewEventLogger(logger zerolog.Logger) *EventLogger {
	h := new(EventLogger)

	h.logger = logger

	return h
}

// Func writes the event information into the logger
func (h *EventLogger) Func(ctx hooking.HookCtx) {
	evt, ok := ctx.Item.(Event)
	if !ok {
		return
	}

	switch ctx.Pos {
	case HookPosBeforeEvent:
		h.logger.Trace().
			Time("at", evt.Time()).
			Str("event", reflect.TypeOf(evt).String()).
			Str("handler", reflect.TypeOf(evt.Handler()).String()).
			Msg("event")
	case HookPosAfterEvent:
		if err, isErr := ctx.Detail.(error); isErr && err != nil {
			h.logger.Warn().
				Err(err).
				Str("event", reflect.TypeOf(evt).String()).
				Msg("event handler failed")
		}
	}
}
