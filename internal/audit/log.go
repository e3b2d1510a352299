package audit

import (
	"context"

	"github.com/rs/zerolog"
)

// LogSink writes events to a zerolog logger.
type LogSink struct {
	logger zerolog.Logger
}

// NewLogSink creates a sink logging at info level with an "audit" component.
func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger.With().Str("component", "audit").Logger()}
}

// Record logs ev.
func (s *LogSink) Record(_ context.Context, ev Event) error {
	e := s.logger.Info()
	if ev.Success != nil && !*ev.Success {
		e = s.logger.Warn()
	}
	e = e.Str("event_id", ev.ID).Str("type", string(ev.Type))
	if ev.Success != nil {
		e = e.Bool("success", *ev.Success)
	}
	if len(ev.Data) > 0 {
		e = e.Interface("data", ev.Data)
	}
	e.Msg(ev.Message)
	return nil
}
