package model

import "time"

// Verdict is the coarse grading of a single answer.
type Verdict string

const (
	VerdictCorrect   Verdict = "correct"
	VerdictPartial   Verdict = "partial"
	VerdictIncorrect Verdict = "incorrect"
)

// Difficulty represents question difficulty level.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Question is one entry from the question bank. Loaded once per session,
// never mutated afterwards.
type Question struct {
	ID             int64      `json:"question_id"`
	Text           string     `json:"question"`
	ExpectedAnswer string     `json:"expected_answer"`
	KeyConcepts    []string   `json:"key_concepts"`
	Difficulty     Difficulty `json:"difficulty"`
	Topic          string     `json:"topic,omitempty"`
}

// EvaluationResult holds the graded outcome of one answer attempt.
// MatchedConcepts and MissingConcepts partition the question's
// KeyConcepts; Score is always in [0,1].
type EvaluationResult struct {
	Verdict         Verdict  `json:"verdict"`
	Score           float64  `json:"score"`
	ExactMatch      bool     `json:"exact_match"`
	Similarity      float64  `json:"similarity"`
	ConceptCoverage float64  `json:"concept_coverage"`
	MatchedConcepts []string `json:"matched_concepts"`
	MissingConcepts []string `json:"missing_concepts"`
}

// QuestionResult is one recorded answer within a session.
type QuestionResult struct {
	ID           int64         `json:"id"`
	SessionID    string        `json:"session_id"`
	QuestionID   int64         `json:"question_id"`
	QuestionText string        `json:"question"`
	Answer       string        `json:"answer"`
	Verdict      Verdict       `json:"verdict"`
	Score        float64       `json:"score"`
	ResponseTime time.Duration `json:"response_time"`
	CreatedAt    time.Time     `json:"created_at"`
}

// Stats aggregates per-question results over one session. Derived state:
// recomputable from the recorded results at any time.
type Stats struct {
	SessionID       string        `json:"session_id"`
	TotalQuestions  int           `json:"total_questions"`
	Correct         int           `json:"correct"`
	Partial         int           `json:"partial"`
	Incorrect       int           `json:"incorrect"`
	AvgScore        float64       `json:"avg_score"`
	AvgResponseTime time.Duration `json:"avg_response_time"`
}

// PercentCorrect returns the share of correct answers in [0,100].
func (s Stats) PercentCorrect() float64 {
	if s.TotalQuestions == 0 {
		return 0
	}
	return float64(s.Correct) / float64(s.TotalQuestions) * 100
}

// SessionRecord is a finalized session row as persisted.
type SessionRecord struct {
	SessionID       string        `json:"session_id"`
	StartedAt       time.Time     `json:"started_at"`
	EndedAt         time.Time     `json:"ended_at"`
	TotalQuestions  int           `json:"total_questions"`
	Correct         int           `json:"correct"`
	Partial         int           `json:"partial"`
	Incorrect       int           `json:"incorrect"`
	AvgScore        float64       `json:"avg_score"`
	AvgResponseTime time.Duration `json:"avg_response_time"`
}

// SessionConfig holds runtime session parameters set via CLI flags.
type SessionConfig struct {
	NumQuestions     int           // 0 means all available
	Difficulty       string        // empty means all difficulties
	Topic            string        // empty means all topics
	Shuffle          bool          // randomize question order
	MaxRetries       int           // extra attempts after an empty capture
	TimeLimit        time.Duration // per-question limit, 0 means none
	ThresholdCorrect float64
	ThresholdPartial float64
	TextOnly         bool
	PauseBetween     time.Duration // delay between consecutive questions
}
