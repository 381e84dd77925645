package feedback

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"

	"github.com/pavelanni/tutor/internal/i18n"
	"github.com/pavelanni/tutor/internal/model"
)

// hintLimit bounds how much of the expected answer a partial-verdict
// hint reveals before truncating with an ellipsis.
const hintLimit = 100

// maxMissingNamed caps how many missing concepts a hint names.
const maxMissingNamed = 3

var (
	correctTemplates = []string{
		"CorrectExcellent", "CorrectGreatJob", "CorrectPerfect", "CorrectWellDone",
	}
	partialTemplates = []string{
		"PartialOnTrack", "PartialCorrect", "PartialGoodStart",
	}
	incorrectTemplates = []string{
		"IncorrectNotQuite", "IncorrectLetMeHelp", "IncorrectNotRight",
	}
	reinforcements = []string{
		"ReinforceKeepItUp", "ReinforceDoingWell", "ReinforceUnderstanding", "ReinforceComprehension",
	}
)

// Generator produces LLM-enriched feedback text. An empty return means
// "use the template fallback"; errors never surface to the user.
type Generator interface {
	GenerateFeedback(ctx context.Context, verdict model.Verdict, q model.Question, missing []string) (string, error)
}

// Composer turns evaluation results into user-facing text. It is
// deterministic apart from template variation, and total: generator
// failure always falls back to a template.
type Composer struct {
	generator Generator
	rng       *rand.Rand
}

// New creates a Composer. generator may be nil for template-only mode.
func New(generator Generator, rng *rand.Rand) *Composer {
	return &Composer{generator: generator, rng: rng}
}

// Compose returns feedback text for one evaluated answer.
func (c *Composer) Compose(ctx context.Context, result model.EvaluationResult, q model.Question) string {
	if text := c.enriched(ctx, result, q); text != "" {
		return text
	}

	switch result.Verdict {
	case model.VerdictCorrect:
		return i18n.Td(ctx, c.pick(correctTemplates), map[string]any{
			"Reinforcement": i18n.T(ctx, c.pick(reinforcements)),
		})
	case model.VerdictPartial:
		return i18n.Td(ctx, c.pick(partialTemplates), map[string]any{
			"MissingHint": c.missingHint(ctx, result.MissingConcepts),
			"Hint":        c.answerHint(ctx, q.ExpectedAnswer),
		})
	default:
		return i18n.Td(ctx, c.pick(incorrectTemplates), map[string]any{
			"Explanation": i18n.Td(ctx, "CorrectAnswerIs", map[string]any{"Expected": q.ExpectedAnswer}),
		})
	}
}

func (c *Composer) enriched(ctx context.Context, result model.EvaluationResult, q model.Question) string {
	if c.generator == nil {
		return ""
	}
	text, err := c.generator.GenerateFeedback(ctx, result.Verdict, q, result.MissingConcepts)
	if err != nil {
		slog.Debug("LLM feedback failed, using template", "error", err)
		return ""
	}
	return strings.TrimSpace(text)
}

func (c *Composer) missingHint(ctx context.Context, missing []string) string {
	if len(missing) == 0 {
		return i18n.T(ctx, "NeedsMoreDetail")
	}
	named := missing
	if len(named) > maxMissingNamed {
		named = named[:maxMissingNamed]
	}
	return i18n.Td(ctx, "MissingConcepts", map[string]any{
		"Concepts": strings.Join(named, ", "),
	})
}

func (c *Composer) answerHint(ctx context.Context, expected string) string {
	if len(expected) > hintLimit {
		return i18n.Td(ctx, "HintTruncated", map[string]any{"Expected": expected[:hintLimit]})
	}
	return i18n.Td(ctx, "HintFull", map[string]any{"Expected": expected})
}

func (c *Composer) pick(ids []string) string {
	if c.rng == nil {
		return ids[0]
	}
	return ids[c.rng.Intn(len(ids))]
}

// Intro returns the presentation text for one question.
func (c *Composer) Intro(ctx context.Context, q model.Question, num, total int) string {
	return i18n.Td(ctx, "Intro", map[string]any{
		"Num":      num,
		"Total":    total,
		"Question": q.Text,
	})
}

// Welcome returns the session-opening line.
func (c *Composer) Welcome(ctx context.Context, total int) string {
	return i18n.Td(ctx, "Welcome", map[string]any{
		"Questions": i18n.Tp(ctx, "SessionQuestions", total),
	})
}

// Summary reports session totals with a three-tier encouragement line.
func (c *Composer) Summary(ctx context.Context, stats model.Stats) string {
	text := i18n.Td(ctx, "Summary", map[string]any{
		"Total":     stats.TotalQuestions,
		"Correct":   stats.Correct,
		"Partial":   stats.Partial,
		"Incorrect": stats.Incorrect,
		"Score":     fmt.Sprintf("%.0f%%", stats.AvgScore*100),
	})

	var tier string
	switch pct := stats.PercentCorrect(); {
	case pct >= 80:
		tier = "SummaryTierTop"
	case pct >= 60:
		tier = "SummaryTierMid"
	default:
		tier = "SummaryTierLow"
	}
	return text + " " + i18n.T(ctx, tier)
}
