package evaluate

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/pavelanni/tutor/internal/model"
	"github.com/pavelanni/tutor/internal/similarity"
)

// Default verdict thresholds, tunable via flags.
const (
	DefaultThresholdCorrect = 0.75
	DefaultThresholdPartial = 0.45
)

// Combined-score weights and verdict adjustments.
const (
	similarityWeight = 0.6
	coverageWeight   = 0.4
	correctBonus     = 0.1
	incorrectPenalty = 0.5
	coveragePartial  = 0.5
)

var punctRegex = regexp.MustCompile(`[^\p{L}\p{N}_\s]+`)

// Evaluator grades free-text answers against a question's expected
// answer and key concepts. It is a total function: malformed or empty
// input degrades to an incorrect verdict, never an error.
type Evaluator struct {
	thresholdCorrect float64
	thresholdPartial float64
	provider         similarity.Provider
	fallback         similarity.Lexical
}

// New creates an Evaluator. provider may be nil, in which case the
// lexical fallback scores every answer.
func New(provider similarity.Provider, thresholdCorrect, thresholdPartial float64) *Evaluator {
	return &Evaluator{
		thresholdCorrect: thresholdCorrect,
		thresholdPartial: thresholdPartial,
		provider:         provider,
	}
}

// Evaluate grades one answer. The returned result's Score is in [0,1]
// and MatchedConcepts/MissingConcepts partition the question's concepts.
func (e *Evaluator) Evaluate(ctx context.Context, answer string, q model.Question) model.EvaluationResult {
	exact := Normalize(answer) == Normalize(q.ExpectedAnswer)
	sim := e.similarityScore(ctx, answer, q.ExpectedAnswer)
	matched, missing, coverage := coverConcepts(answer, q.KeyConcepts)

	combined := similarityWeight*sim + coverageWeight*coverage

	var verdict model.Verdict
	var score float64
	switch {
	case exact || sim >= e.thresholdCorrect:
		verdict = model.VerdictCorrect
		score = combined + correctBonus
	case sim >= e.thresholdPartial || coverage >= coveragePartial:
		verdict = model.VerdictPartial
		score = combined
	default:
		verdict = model.VerdictIncorrect
		score = combined * incorrectPenalty
	}
	score = clamp01(score)

	slog.Info("evaluated answer",
		"verdict", verdict,
		"similarity", sim,
		"coverage", coverage,
		"score", score,
		"exact", exact,
	)

	return model.EvaluationResult{
		Verdict:         verdict,
		Score:           score,
		ExactMatch:      exact,
		Similarity:      sim,
		ConceptCoverage: coverage,
		MatchedConcepts: matched,
		MissingConcepts: missing,
	}
}

func (e *Evaluator) similarityScore(ctx context.Context, answer, expected string) float64 {
	if e.provider != nil {
		score, err := e.provider.Score(ctx, answer, expected)
		if err == nil {
			return clamp01(score)
		}
		slog.Warn("similarity provider failed, using lexical fallback", "error", err)
	}
	score, _ := e.fallback.Score(ctx, answer, expected)
	return score
}

// Normalize lowercases, strips punctuation, and trims whitespace so
// that exact matching tolerates casing and punctuation differences.
func Normalize(s string) string {
	return strings.TrimSpace(punctRegex.ReplaceAllString(strings.ToLower(s), ""))
}

// coverConcepts partitions concepts into those literally present in the
// answer (case-insensitive substring) and those absent. Coverage is 1
// when the question declares no concepts.
func coverConcepts(answer string, concepts []string) (matched, missing []string, coverage float64) {
	matched = make([]string, 0, len(concepts))
	missing = make([]string, 0, len(concepts))
	lower := strings.ToLower(answer)
	for _, c := range concepts {
		if strings.Contains(lower, strings.ToLower(c)) {
			matched = append(matched, c)
		} else {
			missing = append(missing, c)
		}
	}
	if len(concepts) == 0 {
		return matched, missing, 1.0
	}
	return matched, missing, float64(len(matched)) / float64(len(concepts))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
