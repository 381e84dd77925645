package audio

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
)

// DefaultInterruptMultiplier sets how far above the activation
// threshold incoming energy must rise to count as barge-in. Keeping it
// strictly above 1 stops playback echo from cancelling itself.
const DefaultInterruptMultiplier = 2.0

// Monitor watches a capture source while output plays and cancels the
// output when the user barges in. One Watch call serves exactly one
// speech-output call; the stop flag is the only state shared with the
// caller.
type Monitor struct {
	threshold   float64
	multiplier  float64
	onInterrupt func()
}

// NewMonitor creates a Monitor. onInterrupt may be nil. A multiplier
// at or below zero falls back to the default.
func NewMonitor(threshold, multiplier float64, onInterrupt func()) *Monitor {
	if multiplier <= 0 {
		multiplier = DefaultInterruptMultiplier
	}
	return &Monitor{threshold: threshold, multiplier: multiplier, onInterrupt: onInterrupt}
}

// Watch consumes frames until stop is set, ctx is cancelled, or the
// source ends. When frame energy exceeds threshold*multiplier it
// cancels out, invokes the interrupt callback, and reports true.
func (m *Monitor) Watch(ctx context.Context, src SampleSource, out Speaker, stop *atomic.Bool) bool {
	for !stop.Load() {
		if ctx.Err() != nil {
			return false
		}
		frame, err := src.ReadFrame(ctx)
		if errors.Is(err, io.EOF) {
			return false
		}
		if err != nil {
			slog.Debug("interrupt monitor stopped", "error", err)
			return false
		}
		if Energy(frame) > m.threshold*m.multiplier {
			slog.Info("barge-in detected, cancelling output")
			out.Cancel()
			if m.onInterrupt != nil {
				m.onInterrupt()
			}
			return true
		}
	}
	return false
}

// Speak plays text through out while watching src for barge-in. It
// returns whether playback was interrupted. The monitor goroutine is
// signalled to stop through a single atomic flag set once playback
// ends, so the two sides share no other mutable state.
func (m *Monitor) Speak(ctx context.Context, out Speaker, src SampleSource, text string) (bool, error) {
	watchCtx, cancelWatch := context.WithCancel(ctx)
	defer cancelWatch()

	var stop atomic.Bool
	interrupted := make(chan bool, 1)
	go func() {
		interrupted <- m.Watch(watchCtx, src, out, &stop)
	}()

	err := out.Say(ctx, text, true)
	stop.Store(true)
	cancelWatch()
	return <-interrupted, err
}
