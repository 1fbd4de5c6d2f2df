// Package simulation runs the fixed-step frame clock and tracks its timing.
package simulation

import (
	"context"
	"time"
)

// DefaultTickHz is used when a loop is configured with a non-positive rate.
const DefaultTickHz = 60

// StepFunc advances the simulation by a fixed timestep and may emit side effects.
type StepFunc func(step time.Duration)

// Loop drives a fixed timestep simulation at the configured target frequency.
type Loop struct {
	step        time.Duration
	stepFunc    StepFunc
	accumulator time.Duration
	maxCatchUp  int
	ticker      *time.Ticker
	done        chan struct{}
}

// NewLoop configures a loop that targets the provided frames per second.
func NewLoop(targetHz float64, step StepFunc) *Loop {
	if targetHz <= 0 {
		targetHz = DefaultTickHz
	}
	if step == nil {
		step = func(time.Duration) {}
	}
	interval := time.Duration(float64(time.Second) / targetHz)
	if interval <= 0 {
		interval = time.Second / DefaultTickHz
	}
	return &Loop{
		step:       interval,
		stepFunc:   step,
		maxCatchUp: 8,
	}
}

// Advance feeds elapsed wall time into the accumulator and runs every whole step it
// covers, returning how many ran. A long stall is capped so the loop never spirals.
func (l *Loop) Advance(elapsed time.Duration) int {
	if l == nil || elapsed <= 0 {
		return 0
	}
	l.accumulator += elapsed
	ran := 0
	for l.accumulator >= l.step {
		if ran == l.maxCatchUp {
			//1.- Drop the backlog rather than replaying an unbounded burst of frames.
			l.accumulator = 0
			break
		}
		l.stepFunc(l.step)
		l.accumulator -= l.step
		ran++
	}
	return ran
}

// Start begins ticking until the context is cancelled or Stop is invoked.
func (l *Loop) Start(ctx context.Context) {
	if l == nil || l.stepFunc == nil {
		return
	}

	l.ticker = time.NewTicker(l.step)
	l.done = make(chan struct{})
	go func() {
		defer close(l.done)
		defer l.ticker.Stop()
		last := time.Now()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-l.ticker.C:
				l.Advance(now.Sub(last))
				last = now
			}
		}
	}()
}

// Done is closed once the ticking goroutine exits.
func (l *Loop) Done() <-chan struct{} {
	if l == nil || l.done == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return l.done
}

// Stop waits for the goroutine to exit. The context passed to Start must be cancelled first.
func (l *Loop) Stop() {
	if l == nil {
		return
	}
	if l.done != nil {
		<-l.done
		l.done = nil
	}
}

// StepDuration exposes the configured timestep.
func (l *Loop) StepDuration() time.Duration {
	if l == nil {
		return 0
	}
	return l.step
}
