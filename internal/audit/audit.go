// Package audit records what screenpilot was asked to do and what it did.
package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// EventType classifies audit events.
type EventType string

// Event types.
const (
	InstructionReceived EventType = "instruction_received"
	ActionExecuted      EventType = "action_executed"
	SafetyCheck         EventType = "safety_check"
	ErrorOccurred       EventType = "error_occurred"
	ScreenshotTaken     EventType = "screenshot_taken"
	OCRPerformed        EventType = "ocr_performed"
	LLMCalled           EventType = "llm_called"
)

// Event is one audit record.
type Event struct {
	ID        string         `json:"event_id"`
	SessionID string         `json:"session_id"`
	Seq       int            `json:"seq"`
	Time      time.Time      `json:"timestamp"`
	Type      EventType      `json:"type"`
	Message   string         `json:"message"`
	Success   *bool          `json:"success,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// Bool returns a pointer to b for Event.Success.
func Bool(b bool) *bool { return &b }

// Sink persists events.
type Sink interface {
	Record(ctx context.Context, ev Event) error
}

// SessionSink is a Sink that tracks session boundaries.
type SessionSink interface {
	Sink
	StartSession(ctx context.Context, id string, at time.Time) error
	EndSession(ctx context.Context, id string, at time.Time) error
}

// Recorder stamps events with the session id and sequence and fans them
// out to sinks. Sink failures are logged and never returned. A nil
// Recorder drops everything.
type Recorder struct {
	mu      sync.Mutex
	session string
	seq     int
	now     func() time.Time
	sinks   []Sink
}

// Option customises a Recorder.
type Option func(*Recorder)

// WithClock overrides the event timestamp source.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) { r.now = now }
}

// WithSession sets the session id instead of a random one.
func WithSession(id string) Option {
	return func(r *Recorder) { r.session = id }
}

// NewRecorder starts a session on every SessionSink.
func NewRecorder(ctx context.Context, sinks []Sink, opts ...Option) *Recorder {
	r := &Recorder{now: time.Now, sinks: sinks}
	for _, o := range opts {
		o(r)
	}
	if r.session == "" {
		r.session = uuid.NewString()
	}
	at := r.now().UTC()
	for _, s := range r.sinks {
		if ss, ok := s.(SessionSink); ok {
			if err := ss.StartSession(ctx, r.session, at); err != nil {
				log.Warn().Err(err).Str("session", r.session).Msg("audit: start session")
			}
		}
	}
	return r
}

// Session returns the session id.
func (r *Recorder) Session() string {
	if r == nil {
		return ""
	}
	return r.session
}

// Emit records an event of typ.
func (r *Recorder) Emit(ctx context.Context, typ EventType, message string, success *bool, data map[string]any) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.seq++
	ev := Event{
		ID:        fmt.Sprintf("%s_%06d", r.session, r.seq),
		SessionID: r.session,
		Seq:       r.seq,
		Time:      r.now().UTC(),
		Type:      typ,
		Message:   message,
		Success:   success,
		Data:      data,
	}
	r.mu.Unlock()

	for _, s := range r.sinks {
		if err := s.Record(ctx, ev); err != nil {
			log.Warn().Err(err).Str("event", ev.ID).Msg("audit: record event")
		}
	}
}

// Close ends the session on every SessionSink.
func (r *Recorder) Close(ctx context.Context) {
	if r == nil {
		return
	}
	at := r.now().UTC()
	for _, s := range r.sinks {
		if ss, ok := s.(SessionSink); ok {
			if err := ss.EndSession(ctx, r.session, at); err != nil {
				log.Warn().Err(err).Str("session", r.session).Msg("audit: end session")
			}
		}
	}
}
