package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pavelanni/tutor/internal/audio"
	"github.com/pavelanni/tutor/internal/evaluate"
	"github.com/pavelanni/tutor/internal/feedback"
	appI18n "github.com/pavelanni/tutor/internal/i18n"
	"github.com/pavelanni/tutor/internal/model"
	"github.com/pavelanni/tutor/internal/quiz"
)

var pythonQuestion = model.Question{
	ID:             1,
	Text:           "What is Python?",
	ExpectedAnswer: "Python is a high-level programming language.",
	KeyConcepts:    []string{"high-level", "programming", "language"},
	Difficulty:     model.DifficultyEasy,
}

// scriptedListener replays answers in order, then empty transcripts.
type scriptedListener struct {
	answers  []string
	captures int
}

func (l *scriptedListener) Capture(_ context.Context, _ time.Duration) (audio.Transcript, error) {
	l.captures++
	if len(l.answers) == 0 {
		return audio.Transcript{}, nil
	}
	text := l.answers[0]
	l.answers = l.answers[1:]
	return audio.Transcript{Text: text, Confidence: 0.9}, nil
}

// recordingSpeaker collects everything the controller says.
type recordingSpeaker struct {
	lines []string
}

func (s *recordingSpeaker) Say(_ context.Context, text string, _ bool) error {
	s.lines = append(s.lines, text)
	return nil
}
func (s *recordingSpeaker) Cancel()        {}
func (s *recordingSpeaker) IsActive() bool { return false }

func (s *recordingSpeaker) count(substr string) int {
	n := 0
	for _, l := range s.lines {
		if strings.Contains(l, substr) {
			n++
		}
	}
	return n
}

// memRecorder keeps persisted data in memory, with optional failures.
type memRecorder struct {
	results   []model.QuestionResult
	finalized *model.SessionRecord
	failSave  bool
}

func (r *memRecorder) SaveResult(res model.QuestionResult) error {
	if r.failSave {
		return errors.New("disk full")
	}
	r.results = append(r.results, res)
	return nil
}

func (r *memRecorder) FinalizeSession(rec model.SessionRecord) error {
	r.finalized = &rec
	return nil
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	if err := appI18n.Init("en"); err != nil {
		t.Fatalf("i18n.Init: %v", err)
	}
	return appI18n.WithLocalizer(context.Background(), appI18n.NewLocalizer("en"))
}

func newTestController(t *testing.T, questions []model.Question, answers []string) (*Controller, *scriptedListener, *recordingSpeaker, *memRecorder) {
	t.Helper()
	listener := &scriptedListener{answers: answers}
	speaker := &recordingSpeaker{}
	recorder := &memRecorder{}
	evaluator := evaluate.New(nil, evaluate.DefaultThresholdCorrect, evaluate.DefaultThresholdPartial)
	composer := feedback.New(nil, nil)
	src := quiz.New(questions, model.SessionConfig{})

	c := New("test-session", src, evaluator, composer, speaker, listener, recorder, nil, model.SessionConfig{})
	c.sleep = func(time.Duration) {}
	return c, listener, speaker, recorder
}

func TestInterceptCommand(t *testing.T) {
	tests := []struct {
		text string
		want command
	}{
		{"quit", cmdQuit},
		{"exit", cmdQuit},
		{"stop", cmdQuit},
		{"Quit!", cmdQuit},
		{"skip", cmdSkip},
		{"next", cmdSkip},
		{"pass", cmdSkip},
		{"please skip this one", cmdSkip},
		{"repeat", cmdRepeat},
		{"Repeat the question.", cmdRepeat},
		{"say again", cmdRepeat},
		{"explain", cmdExplain},
		{"explain more", cmdExplain},
		{"give example", cmdExplain},
		{"Python is a language", cmdNone},
		{"the context matters here", cmdNone},
		{"my passport number", cmdNone},
		{"an ordered collection", cmdNone},
		{"", cmdNone},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := interceptCommand(tt.text); got != tt.want {
				t.Errorf("interceptCommand(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestAnsweredQuestionRecordsOnce(t *testing.T) {
	ctx := testCtx(t)
	c, _, speaker, recorder := newTestController(t,
		[]model.Question{pythonQuestion},
		[]string{"Python is a high-level programming language"},
	)

	stats := c.Run(ctx)

	if len(recorder.results) != 1 {
		t.Fatalf("expected 1 recorded result, got %d", len(recorder.results))
	}
	res := recorder.results[0]
	if res.Verdict != model.VerdictCorrect {
		t.Errorf("expected correct verdict, got %q", res.Verdict)
	}
	if res.Answer != "Python is a high-level programming language" {
		t.Errorf("unexpected recorded answer %q", res.Answer)
	}
	if stats.Correct != 1 || stats.TotalQuestions != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
	// Feedback was spoken after the intro.
	if speaker.count("Question 1 of 1") != 1 {
		t.Error("intro not spoken exactly once")
	}
}

func TestUnrelatedAnswerIncorrectEndToEnd(t *testing.T) {
	ctx := testCtx(t)
	c, _, _, recorder := newTestController(t,
		[]model.Question{pythonQuestion},
		[]string{"I don't know"},
	)

	c.Run(ctx)

	if len(recorder.results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(recorder.results))
	}
	if recorder.results[0].Verdict != model.VerdictIncorrect {
		t.Errorf("expected incorrect, got %q", recorder.results[0].Verdict)
	}
}

func TestSkipCommandRecordsNothing(t *testing.T) {
	ctx := testCtx(t)
	c, _, speaker, recorder := newTestController(t,
		[]model.Question{pythonQuestion},
		[]string{"skip"},
	)

	stats := c.Run(ctx)

	if len(recorder.results) != 0 {
		t.Errorf("skip must not record a result, got %d", len(recorder.results))
	}
	if stats.TotalQuestions != 0 {
		t.Errorf("skip must not count as answered, got %d", stats.TotalQuestions)
	}
	if speaker.count("Skipping this question.") != 1 {
		t.Error("skip acknowledgement not spoken exactly once")
	}
}

func TestQuitEndsSessionEarly(t *testing.T) {
	ctx := testCtx(t)
	questions := []model.Question{
		pythonQuestion,
		{ID: 2, Text: "What is a list?", ExpectedAnswer: "An ordered collection."},
	}
	c, _, speaker, recorder := newTestController(t, questions, []string{"quit"})

	c.Run(ctx)

	if speaker.count("Question 2 of 2") != 0 {
		t.Error("second question presented after quit")
	}
	if speaker.count("Ending session early") != 1 {
		t.Error("closing remark not spoken exactly once")
	}
	// Summary and finalize still happen on early exit.
	if recorder.finalized == nil {
		t.Error("session not finalized after quit")
	}
	if speaker.count("Session complete!") != 1 {
		t.Error("summary not spoken")
	}
}

func TestEmptyCapturesExhaustBudget(t *testing.T) {
	ctx := testCtx(t)
	c, listener, speaker, recorder := newTestController(t,
		[]model.Question{pythonQuestion},
		nil, // every capture is empty
	)

	c.Run(ctx)

	if listener.captures != 3 {
		t.Errorf("expected 3 capture attempts, got %d", listener.captures)
	}
	if got := speaker.count("I didn't catch that"); got != 2 {
		t.Errorf("expected 2 re-prompts, got %d", got)
	}
	if got := speaker.count("I couldn't hear your answer"); got != 1 {
		t.Errorf("expected exactly 1 could-not-hear message, got %d", got)
	}
	if len(recorder.results) != 0 {
		t.Errorf("exhausted question must not record a result, got %d", len(recorder.results))
	}
}

func TestRepeatAndExplainDoNotConsumeRetries(t *testing.T) {
	ctx := testCtx(t)
	c, _, speaker, recorder := newTestController(t,
		[]model.Question{pythonQuestion},
		[]string{
			"repeat",
			"explain",
			"repeat",
			"", // first empty
			"", // second empty
			"Python is a high-level programming language",
		},
	)

	c.Run(ctx)

	// The literal answer at the end is still evaluated exactly once,
	// despite three command cycles and two empty captures before it.
	if len(recorder.results) != 1 {
		t.Fatalf("expected 1 recorded result, got %d", len(recorder.results))
	}
	if recorder.results[0].Verdict != model.VerdictCorrect {
		t.Errorf("expected correct verdict, got %q", recorder.results[0].Verdict)
	}
	if got := speaker.count("Repeating:"); got != 2 {
		t.Errorf("expected 2 repeats, got %d", got)
	}
	if speaker.count("I couldn't hear your answer") != 0 {
		t.Error("retry budget exhausted by command cycles")
	}
}

func TestExplainFallsBackToTemplate(t *testing.T) {
	ctx := testCtx(t)
	c, _, speaker, _ := newTestController(t,
		[]model.Question{pythonQuestion},
		[]string{"explain", "skip"},
	)

	c.Run(ctx)

	if speaker.count("The answer to this question involves") != 1 {
		t.Error("templated explanation not spoken")
	}
}

type stubExplainer struct {
	text string
	err  error
}

func (e stubExplainer) GenerateExplanation(context.Context, model.Question) (string, error) {
	return e.text, e.err
}

func TestExplainUsesGenerator(t *testing.T) {
	ctx := testCtx(t)
	c, _, speaker, _ := newTestController(t,
		[]model.Question{pythonQuestion},
		[]string{"explain", "skip"},
	)
	c.explainer = stubExplainer{text: "Python compiles to bytecode."}

	c.Run(ctx)

	if speaker.count("Python compiles to bytecode.") != 1 {
		t.Error("generated explanation not spoken")
	}
	if speaker.count("The answer to this question involves") != 0 {
		t.Error("template used despite working generator")
	}
}

func TestExplainGeneratorFailureFallsBack(t *testing.T) {
	ctx := testCtx(t)
	c, _, speaker, _ := newTestController(t,
		[]model.Question{pythonQuestion},
		[]string{"explain", "skip"},
	)
	c.explainer = stubExplainer{err: errors.New("backend down")}

	c.Run(ctx)

	if speaker.count("The answer to this question involves") != 1 {
		t.Error("templated fallback not spoken on generator failure")
	}
}

func TestRecorderFailureDoesNotAbort(t *testing.T) {
	ctx := testCtx(t)
	c, _, speaker, recorder := newTestController(t,
		[]model.Question{pythonQuestion},
		[]string{"Python is a high-level programming language"},
	)
	recorder.failSave = true

	stats := c.Run(ctx)

	// Persistence failed but the in-memory stats kept the answer.
	if stats.TotalQuestions != 1 || stats.Correct != 1 {
		t.Errorf("in-memory stats lost the answer: %+v", stats)
	}
	if speaker.count("Session complete!") != 1 {
		t.Error("summary not spoken after persistence failure")
	}
}

func TestPerQuestionTimeout(t *testing.T) {
	ctx := testCtx(t)
	c, _, speaker, recorder := newTestController(t,
		[]model.Question{pythonQuestion},
		[]string{"repeat"},
	)
	c.cfg.TimeLimit = 50 * time.Millisecond

	clock := time.Now()
	c.now = func() time.Time { return clock }
	listener := &advancingListener{answers: []string{"repeat"}, clock: &clock, step: 100 * time.Millisecond}
	c.listener = listener

	c.Run(ctx)

	if speaker.count("Time is up") != 1 {
		t.Errorf("expected 1 time-up message, got %d", speaker.count("Time is up"))
	}
	if len(recorder.results) != 0 {
		t.Errorf("timed-out question must not record a result, got %d", len(recorder.results))
	}
}

// advancingListener moves the fake clock forward on every capture.
type advancingListener struct {
	answers []string
	clock   *time.Time
	step    time.Duration
}

func (l *advancingListener) Capture(_ context.Context, _ time.Duration) (audio.Transcript, error) {
	*l.clock = l.clock.Add(l.step)
	if len(l.answers) == 0 {
		return audio.Transcript{}, nil
	}
	text := l.answers[0]
	l.answers = l.answers[1:]
	return audio.Transcript{Text: text}, nil
}

func TestCaptureErrorTreatedAsEmpty(t *testing.T) {
	ctx := testCtx(t)
	c, _, speaker, _ := newTestController(t, []model.Question{pythonQuestion}, nil)
	c.listener = failingListener{}

	c.Run(ctx)

	if speaker.count("I couldn't hear your answer") != 1 {
		t.Error("capture errors must degrade to the could-not-hear path")
	}
}

type failingListener struct{}

func (failingListener) Capture(context.Context, time.Duration) (audio.Transcript, error) {
	return audio.Transcript{}, errors.New("device gone")
}

func TestFullSessionSummaryTopTier(t *testing.T) {
	ctx := testCtx(t)
	var questions []model.Question
	var answers []string
	for i := int64(1); i <= 5; i++ {
		questions = append(questions, model.Question{
			ID:             i,
			Text:           "Q",
			ExpectedAnswer: "the answer",
		})
		answers = append(answers, "the answer")
	}
	c, _, speaker, recorder := newTestController(t, questions, answers)

	stats := c.Run(ctx)

	if stats.Correct != 5 || stats.TotalQuestions != 5 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if stats.AvgScore != 1.0 {
		t.Errorf("avg score = %v, want 1.0", stats.AvgScore)
	}
	if speaker.count("You answered 5 questions") != 1 {
		t.Error("summary does not report 5 questions")
	}
	if speaker.count("Outstanding performance!") != 1 {
		t.Error("summary missing top encouragement tier")
	}
	if recorder.finalized == nil || recorder.finalized.Correct != 5 {
		t.Error("finalized record does not match session")
	}
}

// cancellableSpeaker blocks Say until cancelled, like in-flight TTS.
type cancellableSpeaker struct {
	done      chan struct{}
	once      sync.Once
	cancelled atomic.Bool
}

func (s *cancellableSpeaker) Say(ctx context.Context, _ string, _ bool) error {
	select {
	case <-s.done:
	case <-ctx.Done():
	}
	return nil
}

func (s *cancellableSpeaker) Cancel() {
	s.cancelled.Store(true)
	s.once.Do(func() { close(s.done) })
}

func (s *cancellableSpeaker) IsActive() bool { return false }

// loudSource yields frames loud enough to count as barge-in.
type loudSource struct{}

func (loudSource) ReadFrame(ctx context.Context) ([]int16, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f := make([]int16, 160)
	for i := range f {
		f[i] = 1000
	}
	return f, nil
}

func TestBargeInCancelsOutput(t *testing.T) {
	ctx := testCtx(t)
	c, _, _, _ := newTestController(t, []model.Question{pythonQuestion}, []string{"skip"})
	spk := &cancellableSpeaker{done: make(chan struct{})}
	c.speaker = spk
	c.WithBargeIn(audio.NewMonitor(300, 2, nil), loudSource{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Run(ctx)
	}()

	// Every output blocks until the loud input cancels it, so the run
	// finishing at all proves the controller never waits on cancelled
	// playback.
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("session hung on cancelled output")
	}
	if !spk.cancelled.Load() {
		t.Error("loud input did not cancel the speaker")
	}
}

func TestStatsSnapshot(t *testing.T) {
	start := time.Now()
	s := NewStats("id", start)
	s.Add(model.QuestionResult{Verdict: model.VerdictCorrect, Score: 1.0, ResponseTime: 2 * time.Second})
	s.Add(model.QuestionResult{Verdict: model.VerdictPartial, Score: 0.5, ResponseTime: 4 * time.Second})
	s.Add(model.QuestionResult{Verdict: model.VerdictIncorrect, Score: 0.1, ResponseTime: 6 * time.Second})

	snap := s.Snapshot()
	if snap.Correct != 1 || snap.Partial != 1 || snap.Incorrect != 1 {
		t.Errorf("unexpected counts %+v", snap)
	}
	if diff := snap.AvgScore - (1.6 / 3); diff > 1e-9 || diff < -1e-9 {
		t.Errorf("avg score = %v", snap.AvgScore)
	}
	if snap.AvgResponseTime != 4*time.Second {
		t.Errorf("avg response time = %v, want 4s", snap.AvgResponseTime)
	}

	rec := s.Record(start.Add(time.Minute))
	if rec.SessionID != "id" || rec.TotalQuestions != 3 {
		t.Errorf("unexpected record %+v", rec)
	}
	if !rec.EndedAt.Equal(start.Add(time.Minute)) {
		t.Errorf("ended at %v", rec.EndedAt)
	}
}

func TestStatsEmpty(t *testing.T) {
	s := NewStats("id", time.Now())
	snap := s.Snapshot()
	if snap.TotalQuestions != 0 || snap.AvgScore != 0 {
		t.Errorf("unexpected empty snapshot %+v", snap)
	}
	if snap.PercentCorrect() != 0 {
		t.Errorf("percent correct on empty session = %v", snap.PercentCorrect())
	}
}
