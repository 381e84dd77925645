package audio

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"
)

// TextListener reads answers line by line, for text-only sessions.
type TextListener struct {
	scanner *bufio.Scanner
	prompt  io.Writer
}

// NewTextListener creates a listener over r. prompt may be nil to
// suppress the input marker.
func NewTextListener(r io.Reader, prompt io.Writer) *TextListener {
	return &TextListener{scanner: bufio.NewScanner(r), prompt: prompt}
}

// Capture reads one line. End of input yields an empty transcript, not
// an error, so the session loop can treat it like silence.
func (l *TextListener) Capture(_ context.Context, _ time.Duration) (Transcript, error) {
	if l.prompt != nil {
		fmt.Fprint(l.prompt, "\n[You]: ")
	}
	if !l.scanner.Scan() {
		if err := l.scanner.Err(); err != nil {
			return Transcript{}, fmt.Errorf("read input: %w", err)
		}
		return Transcript{}, nil
	}
	return Transcript{Text: strings.TrimSpace(l.scanner.Text()), Confidence: 1.0}, nil
}

// VoiceListener couples the VAD gate with a transcriber.
type VoiceListener struct {
	gate *Gate
	src  SampleSource
	stt  Transcriber
}

// NewVoiceListener creates a listener that records from src through
// gate and transcribes the result.
func NewVoiceListener(gate *Gate, src SampleSource, stt Transcriber) *VoiceListener {
	return &VoiceListener{gate: gate, src: src, stt: stt}
}

// Capture records one gated utterance and transcribes it. No detected
// speech yields an empty transcript.
func (l *VoiceListener) Capture(ctx context.Context, maxDuration time.Duration) (Transcript, error) {
	samples, err := l.gate.Record(ctx, l.src, maxDuration)
	if err != nil {
		return Transcript{}, fmt.Errorf("record: %w", err)
	}
	if len(samples) == 0 {
		return Transcript{}, nil
	}
	return l.stt.Transcribe(ctx, samples)
}

// TerminalSpeaker writes output text to w, the text-mode stand-in for
// a TTS engine.
type TerminalSpeaker struct {
	w io.Writer
}

// NewTerminalSpeaker creates a speaker writing to w.
func NewTerminalSpeaker(w io.Writer) *TerminalSpeaker {
	return &TerminalSpeaker{w: w}
}

func (s *TerminalSpeaker) Say(_ context.Context, text string, _ bool) error {
	_, err := fmt.Fprintf(s.w, "\n[Tutor]: %s\n", text)
	return err
}

func (s *TerminalSpeaker) Cancel() {}

func (s *TerminalSpeaker) IsActive() bool { return false }

// NullSpeaker discards all output.
type NullSpeaker struct{}

func (NullSpeaker) Say(context.Context, string, bool) error { return nil }
func (NullSpeaker) Cancel()                                 {}
func (NullSpeaker) IsActive() bool                          { return false }
