package logger

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Level is the severity of an Event.
type Level int8

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	default:
		return "error"
	}
}

// Event is one diagnostic record emitted by connectors and the migrator.
type Event struct {
	Level  Level
	RunID  string
	Op     string // connect, disconnect, fetch, insert, state, ...
	Family string
	Object string // table or collection
	Rows   int
	Err    error
	Msg    string
}

// Sink receives events. Implementations must be safe for concurrent use.
type Sink interface {
	Record(Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

func (f SinkFunc) Record(e Event) { f(e) }

// ZerologSink writes events as structured zerolog lines.
type ZerologSink struct {
	log zerolog.Logger
}

func New(w io.Writer) *ZerologSink {
	return &ZerologSink{log: zerolog.New(w).With().Timestamp().Logger()}
}

// NewConsole writes human readable lines to stderr.
func NewConsole() *ZerologSink {
	return New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.DateTime})
}

// FromZerolog wraps an already configured logger.
func FromZerolog(l zerolog.Logger) *ZerologSink {
	return &ZerologSink{log: l}
}

func (s *ZerologSink) Record(e Event) {
	var ev *zerolog.Event
	switch e.Level {
	case LevelDebug:
		ev = s.log.Debug()
	case LevelInfo:
		ev = s.log.Info()
	case LevelWarn:
		ev = s.log.Warn()
	default:
		ev = s.log.Error()
	}
	if e.RunID != "" {
		ev = ev.Str("run_id", e.RunID)
	}
	if e.Op != "" {
		ev = ev.Str("op", e.Op)
	}
	if e.Family != "" {
		ev = ev.Str("family", e.Family)
	}
	if e.Object != "" {
		ev = ev.Str("object", e.Object)
	}
	if e.Rows > 0 {
		ev = ev.Int("rows", e.Rows)
	}
	if e.Err != nil {
		ev = ev.Err(e.Err)
	}
	ev.Msg(e.Msg)
}

type nopSink struct{}

func (nopSink) Record(Event) {}

// Nop discards every event.
func Nop() Sink {
	return nopSink{}
}

type multiSink []Sink

func (m multiSink) Record(e Event) {
	for _, s := range m {
		s.Record(e)
	}
}

// Multi fans events out to several sinks. Nil sinks are skipped.
func Multi(sinks ...Sink) Sink {
	out := make(multiSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

// Recorder keeps events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Record(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Filter returns recorded events for one op.
func (r *Recorder) Filter(op string) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Op == op {
			out = append(out, e)
		}
	}
	return out
}
