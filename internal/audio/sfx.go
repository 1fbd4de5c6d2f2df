// Package audio carries sound-effect notifications to whatever plays them.
package audio

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"driftpursuit/corridor/internal/logging"
)

const instrumentationName = "driftpursuit/corridor/internal/audio"

// Sfx names a single sound effect.
type Sfx int

const (
	ButtonHover Sfx = iota
	ButtonPress
	Step
)

func (s Sfx) String() string {
	switch s {
	case ButtonHover:
		return "button_hover"
	case ButtonPress:
		return "button_press"
	case Step:
		return "step"
	default:
		return "unknown"
	}
}

// Sink receives sound-effect notifications.
type Sink interface {
	Play(Sfx)
}

// SinkFunc adapts a function into a Sink.
type SinkFunc func(Sfx)

// Play implements Sink.
func (f SinkFunc) Play(s Sfx) {
	if f != nil {
		f(s)
	}
}

// Queue buffers notifications in emission order until the frame drains them.
type Queue struct {
	mu      sync.Mutex
	pending []Sfx
}

// Play implements Sink by enqueueing the effect.
func (q *Queue) Play(s Sfx) {
	if q == nil {
		return
	}
	q.mu.Lock()
	q.pending = append(q.pending, s)
	q.mu.Unlock()
}

// Drain hands every pending notification to sink in order and clears the queue.
func (q *Queue) Drain(sink Sink) []Sfx {
	if q == nil {
		return nil
	}
	q.mu.Lock()
	drained := q.pending
	q.pending = nil
	q.mu.Unlock()
	if sink != nil {
		for _, s := range drained {
			sink.Play(s)
		}
	}
	return drained
}

// Len reports how many notifications are waiting.
func (q *Queue) Len() int {
	if q == nil {
		return 0
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// LogSink writes each notification as a debug log line.
type LogSink struct {
	Logger *logging.Logger
}

// Play implements Sink.
func (s LogSink) Play(sfx Sfx) {
	s.Logger.Debug("sfx", logging.String("sfx", sfx.String()))
}

// CountingSink tallies notifications per kind and mirrors them to an otel counter.
type CountingSink struct {
	mu      sync.Mutex
	counts  map[Sfx]int
	counter metric.Int64Counter
	next    Sink
}

// NewCountingSink wraps next, which may be nil.
func NewCountingSink(next Sink) (*CountingSink, error) {
	counter, err := otel.Meter(instrumentationName).Int64Counter(
		"audio.sfx.played",
		metric.WithDescription("Sound effects emitted by the simulation"),
	)
	if err != nil {
		return nil, err
	}
	return &CountingSink{counts: make(map[Sfx]int), counter: counter, next: next}, nil
}

// Play implements Sink.
func (s *CountingSink) Play(sfx Sfx) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.counts[sfx]++
	s.mu.Unlock()
	s.counter.Add(context.Background(), 1, metric.WithAttributes(attribute.String("sfx", sfx.String())))
	if s.next != nil {
		s.next.Play(sfx)
	}
}

// Count returns how many times sfx was played.
func (s *CountingSink) Count(sfx Sfx) int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[sfx]
}
