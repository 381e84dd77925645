package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/pavelanni/tutor/internal/audio"
	"github.com/pavelanni/tutor/internal/evaluate"
	"github.com/pavelanni/tutor/internal/feedback"
	"github.com/pavelanni/tutor/internal/i18n"
	"github.com/pavelanni/tutor/internal/model"
)

// DefaultMaxRetries is the number of extra attempts after an empty
// capture, for a total budget of three.
const DefaultMaxRetries = 2

// defaultPause separates consecutive questions.
const defaultPause = 500 * time.Millisecond

// Source supplies the ordered questions for one session.
type Source interface {
	HasNext() bool
	Next() (model.Question, bool)
	Count() int
}

// Recorder persists answered questions and the finalized session.
// Failures are logged and swallowed; they never end the session.
type Recorder interface {
	SaveResult(res model.QuestionResult) error
	FinalizeSession(rec model.SessionRecord) error
}

// Explainer produces a detailed explanation for the "explain" command.
// Empty text means "use the templated restatement".
type Explainer interface {
	GenerateExplanation(ctx context.Context, q model.Question) (string, error)
}

// outcome is the terminal state of one question's turn.
type outcome int

const (
	outcomeAnswered outcome = iota
	outcomeSkipped
	outcomeTimedOut
	outcomeQuit
)

// Controller drives the session turn loop: present a question, capture
// input, intercept commands, evaluate, record, give feedback. It owns
// the per-question interaction state and the session statistics; all
// collaborator failures degrade without ending the loop.
type Controller struct {
	src       Source
	evaluator *evaluate.Evaluator
	composer  *feedback.Composer
	speaker   audio.Speaker
	listener  audio.Listener
	recorder  Recorder
	explainer Explainer
	monitor   *audio.Monitor
	mic       audio.SampleSource
	cfg       model.SessionConfig
	stats     *Stats

	fallbackOut io.Writer
	now         func() time.Time
	sleep       func(time.Duration)
}

// New creates a Controller. explainer may be nil; monitor and mic may
// be nil to disable barge-in handling (text-only mode).
func New(
	sessionID string,
	src Source,
	evaluator *evaluate.Evaluator,
	composer *feedback.Composer,
	speaker audio.Speaker,
	listener audio.Listener,
	recorder Recorder,
	explainer Explainer,
	cfg model.SessionConfig,
) *Controller {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.PauseBetween <= 0 {
		cfg.PauseBetween = defaultPause
	}
	return &Controller{
		src:         src,
		evaluator:   evaluator,
		composer:    composer,
		speaker:     speaker,
		listener:    listener,
		recorder:    recorder,
		explainer:   explainer,
		cfg:         cfg,
		stats:       NewStats(sessionID, time.Now()),
		fallbackOut: os.Stdout,
		now:         time.Now,
		sleep:       time.Sleep,
	}
}

// WithBargeIn enables output interruption: while speech output plays,
// monitor watches mic and cancels the output on loud incoming audio.
func (c *Controller) WithBargeIn(monitor *audio.Monitor, mic audio.SampleSource) *Controller {
	c.monitor = monitor
	c.mic = mic
	return c
}

// Run drives the whole session and returns the final statistics.
// Session-level cancellation via ctx is cooperative: checked at
// question boundaries.
func (c *Controller) Run(ctx context.Context) model.Stats {
	total := c.src.Count()
	c.say(ctx, c.composer.Welcome(ctx, total))

	num := 0
	for c.src.HasNext() && ctx.Err() == nil {
		q, ok := c.src.Next()
		if !ok {
			break
		}
		num++

		if c.runQuestion(ctx, q, num, total) == outcomeQuit {
			c.say(ctx, i18n.T(ctx, "Goodbye"))
			break
		}
		if c.src.HasNext() {
			c.sleep(c.cfg.PauseBetween)
		}
	}

	endedAt := c.now()
	if err := c.recorder.FinalizeSession(c.stats.Record(endedAt)); err != nil {
		slog.Error("finalize session failed", "error", err)
	}

	stats := c.stats.Snapshot()
	c.say(ctx, c.composer.Summary(ctx, stats))
	slog.Info("session complete",
		"session_id", stats.SessionID,
		"total", stats.TotalQuestions,
		"correct", stats.Correct,
		"partial", stats.Partial,
		"incorrect", stats.Incorrect,
		"avg_score", stats.AvgScore,
	)
	return stats
}

// runQuestion executes the per-question state machine. Capture,
// interception, evaluation, recording, and feedback happen in strict
// sequence; repeat/explain cycles never consume the empty-capture
// retry budget, and elapsed time runs from presentation to the
// accepted answer.
func (c *Controller) runQuestion(ctx context.Context, q model.Question, num, total int) outcome {
	c.say(ctx, c.composer.Intro(ctx, q, num, total))

	start := c.now()
	var deadline time.Time
	if c.cfg.TimeLimit > 0 {
		deadline = start.Add(c.cfg.TimeLimit)
	}

	emptyAttempts := 0
	for {
		if !deadline.IsZero() && c.now().After(deadline) {
			c.say(ctx, i18n.T(ctx, "TimeUp"))
			return outcomeTimedOut
		}

		capture, err := c.listener.Capture(ctx, 0)
		if err != nil {
			slog.Warn("capture failed", "error", err)
			capture = audio.Transcript{}
		}
		text := strings.TrimSpace(capture.Text)

		if text == "" {
			emptyAttempts++
			if emptyAttempts <= c.cfg.MaxRetries {
				c.say(ctx, i18n.T(ctx, "DidNotCatch"))
				continue
			}
			c.say(ctx, i18n.T(ctx, "CouldNotHear"))
			return outcomeSkipped
		}
		slog.Debug("captured answer", "text", text, "confidence", capture.Confidence)

		switch interceptCommand(text) {
		case cmdRepeat:
			c.say(ctx, i18n.Td(ctx, "Repeating", map[string]any{"Question": q.Text}))
			continue
		case cmdExplain:
			c.say(ctx, c.explanation(ctx, q))
			continue
		case cmdSkip:
			c.say(ctx, i18n.T(ctx, "Skipping"))
			return outcomeSkipped
		case cmdQuit:
			return outcomeQuit
		}

		responseTime := c.now().Sub(start)
		result := c.evaluator.Evaluate(ctx, text, q)

		res := model.QuestionResult{
			SessionID:    c.stats.sessionID,
			QuestionID:   q.ID,
			QuestionText: q.Text,
			Answer:       text,
			Verdict:      result.Verdict,
			Score:        result.Score,
			ResponseTime: responseTime,
			CreatedAt:    c.now(),
		}
		c.stats.Add(res)
		if err := c.recorder.SaveResult(res); err != nil {
			slog.Error("record result failed", "error", err)
		}

		c.say(ctx, c.composer.Compose(ctx, result, q))
		return outcomeAnswered
	}
}

// explanation resolves the "explain" command: external generator first,
// templated restatement of the expected answer as the total fallback.
func (c *Controller) explanation(ctx context.Context, q model.Question) string {
	if c.explainer != nil {
		text, err := c.explainer.GenerateExplanation(ctx, q)
		if err != nil {
			slog.Debug("explanation generation failed, using template", "error", err)
		} else if t := strings.TrimSpace(text); t != "" {
			return t
		}
	}
	return i18n.Td(ctx, "ExplainFallback", map[string]any{"Expected": q.ExpectedAnswer})
}

// say emits text through the speaker, racing the interrupt monitor
// when barge-in is enabled. Output failures degrade to plain printing;
// they never abort the session.
func (c *Controller) say(ctx context.Context, text string) {
	var err error
	if c.monitor != nil && c.mic != nil {
		var interrupted bool
		interrupted, err = c.monitor.Speak(ctx, c.speaker, c.mic, text)
		if interrupted {
			slog.Debug("output interrupted by user")
		}
	} else {
		err = c.speaker.Say(ctx, text, true)
	}
	if err != nil {
		slog.Warn("speech output failed, printing instead", "error", err)
		fmt.Fprintf(c.fallbackOut, "\n[Tutor]: %s\n", text)
	}
}
