package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// EventType identifies a point in a pipeline run.
type EventType string

const (
	EventStageEnter   EventType = "stage_enter"
	EventStageExit    EventType = "stage_exit"
	EventTransition   EventType = "transition"
	EventShortCircuit EventType = "short_circuit"
	EventRunComplete  EventType = "run_complete"
	EventRunFault     EventType = "run_fault"
)

// ProgressEvent is emitted at each step of a run.
type ProgressEvent struct {
	Type     EventType
	Pipeline string
	Stage    string
	Next     string
	Elapsed  time.Duration
	// Error is the state's business error at the time of the event.
	Error string
	// Fault is set on run_fault events.
	Fault error
}

// Observer receives run events. Implementations must be safe for concurrent
// use when the same observer is shared across runs.
type Observer interface {
	OnEvent(ProgressEvent)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ProgressEvent)

// OnEvent implements Observer.
func (f ObserverFunc) OnEvent(e ProgressEvent) { f(e) }

// LogObserver writes events to a slog.Logger. Stage exits, transitions and
// completions log at debug; short circuits at info; faults at warn.
type LogObserver struct {
	Logger *slog.Logger
}

// OnEvent implements Observer.
func (l LogObserver) OnEvent(e ProgressEvent) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}

	attrs := []slog.Attr{
		slog.String("pipeline", e.Pipeline),
		slog.String("stage", e.Stage),
	}
	if e.Next != "" {
		attrs = append(attrs, slog.String("next", e.Next))
	}
	if e.Elapsed > 0 {
		attrs = append(attrs, slog.Duration("elapsed", e.Elapsed))
	}
	if e.Error != "" {
		attrs = append(attrs, slog.String("error", e.Error))
	}

	level := slog.LevelDebug
	switch e.Type {
	case EventShortCircuit:
		level = slog.LevelInfo
	case EventRunFault:
		level = slog.LevelWarn
		if e.Fault != nil {
			attrs = append(attrs, slog.String("fault", e.Fault.Error()))
		}
	}
	logger.LogAttrs(context.Background(), level, string(e.Type), attrs...)
}

// Trace records every event it sees. It is safe for concurrent use.
type Trace struct {
	mu     sync.Mutex
	events []ProgressEvent
}

// OnEvent implements Observer.
func (t *Trace) OnEvent(e ProgressEvent) {
	t.mu.Lock()
	t.events = append(t.events, e)
	t.mu.Unlock()
}

// Events returns a copy of the recorded events.
func (t *Trace) Events() []ProgressEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]ProgressEvent, len(t.events))
	copy(out, t.events)
	return out
}

// Visited returns the stages that ran, in order.
func (t *Trace) Visited() []string {
	var stages []string
	for _, e := range t.Events() {
		if e.Type == EventStageEnter {
			stages = append(stages, e.Stage)
		}
	}
	return stages
}
