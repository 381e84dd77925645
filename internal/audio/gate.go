package audio

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"
)

// Gate defaults, matching a 16 kHz mono capture pipeline.
const (
	DefaultSampleRate      = 16000
	DefaultEnergyThreshold = 300.0
	DefaultSilence         = 1500 * time.Millisecond
	DefaultMaxCapture      = 30 * time.Second
)

// Gate performs voice-activity-gated recording: accumulation starts
// once frame energy crosses the activation threshold and stops after a
// configured run of sub-threshold frames, or at the absolute maximum
// duration. Elapsed time is measured in sample time, which keeps the
// gate deterministic regardless of how fast the source delivers frames.
type Gate struct {
	SampleRate      int
	EnergyThreshold float64
	Silence         time.Duration
	MaxCapture      time.Duration
}

// NewGate returns a Gate with the package defaults.
func NewGate() *Gate {
	return &Gate{
		SampleRate:      DefaultSampleRate,
		EnergyThreshold: DefaultEnergyThreshold,
		Silence:         DefaultSilence,
		MaxCapture:      DefaultMaxCapture,
	}
}

// Record reads frames from src until silence follows speech or the
// maximum duration is consumed. If speech never starts it returns nil
// samples rather than blocking past maxDuration. maxDuration of zero
// uses the gate's configured maximum.
func (g *Gate) Record(ctx context.Context, src SampleSource, maxDuration time.Duration) ([]int16, error) {
	if maxDuration <= 0 {
		maxDuration = g.MaxCapture
	}

	var (
		samples       []int16
		speechStarted bool
		silentSamples int
		totalSamples  int
	)
	silenceLimit := int(g.Silence.Seconds() * float64(g.SampleRate))
	maxSamples := int(maxDuration.Seconds() * float64(g.SampleRate))

	for totalSamples < maxSamples {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		frame, err := src.ReadFrame(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		totalSamples += len(frame)

		rms := Energy(frame)
		switch {
		case rms > g.EnergyThreshold:
			speechStarted = true
			silentSamples = 0
			samples = append(samples, frame...)
		case speechStarted:
			samples = append(samples, frame...)
			silentSamples += len(frame)
			if silentSamples > silenceLimit {
				slog.Debug("silence detected, stopping capture")
				return samples, nil
			}
		}
	}

	if !speechStarted {
		return nil, nil
	}
	return samples, nil
}
