// Package audio holds the capture and playback seams of the tutor:
// voice-activity-gated recording, barge-in detection, and the Listener
// and Speaker interfaces the session loop talks to. Actual OS audio
// backends (microphone streams, TTS engines, STT models) are injected
// by callers through SampleSource, Transcriber, and Speaker.
package audio

import (
	"context"
	"math"
	"time"
)

// Transcript is the result of one capture cycle. Empty Text is a valid
// outcome meaning nothing usable was heard.
type Transcript struct {
	Text       string
	Confidence float64
}

// Listener captures one user utterance as text.
type Listener interface {
	Capture(ctx context.Context, maxDuration time.Duration) (Transcript, error)
}

// Speaker emits output speech or its textual stand-in.
type Speaker interface {
	// Say plays text. With blocking true it returns after playback
	// completes or is cancelled.
	Say(ctx context.Context, text string, blocking bool) error
	// Cancel stops any in-progress playback.
	Cancel()
	// IsActive reports whether playback is in progress.
	IsActive() bool
}

// SampleSource yields successive PCM frames from a capture device.
type SampleSource interface {
	// ReadFrame returns the next frame. io.EOF ends the stream.
	ReadFrame(ctx context.Context) ([]int16, error)
}

// Transcriber turns recorded samples into text.
type Transcriber interface {
	Transcribe(ctx context.Context, samples []int16) (Transcript, error)
}

// Energy computes the RMS energy of a PCM frame.
func Energy(frame []int16) float64 {
	if len(frame) == 0 {
		return 0
	}
	var sum float64
	for _, s := range frame {
		f := float64(s)
		sum += f * f
	}
	return math.Sqrt(sum / float64(len(frame)))
}
