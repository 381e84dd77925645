package session

import (
	"time"

	"github.com/pavelanni/tutor/internal/model"
)

// Stats accumulates answered-question results for one session. The
// aggregate is always derived from the recorded results, never stored
// independently.
type Stats struct {
	sessionID string
	startedAt time.Time
	results   []model.QuestionResult
}

// NewStats creates an empty aggregate for the given session.
func NewStats(sessionID string, startedAt time.Time) *Stats {
	return &Stats{sessionID: sessionID, startedAt: startedAt}
}

// Add appends one answered-question result.
func (s *Stats) Add(res model.QuestionResult) {
	s.results = append(s.results, res)
}

// Results returns a copy of the recorded results.
func (s *Stats) Results() []model.QuestionResult {
	out := make([]model.QuestionResult, len(s.results))
	copy(out, s.results)
	return out
}

// Snapshot recomputes the aggregate from the recorded results.
func (s *Stats) Snapshot() model.Stats {
	stats := model.Stats{
		SessionID:      s.sessionID,
		TotalQuestions: len(s.results),
	}
	var scoreSum float64
	var timeSum time.Duration
	for _, r := range s.results {
		switch r.Verdict {
		case model.VerdictCorrect:
			stats.Correct++
		case model.VerdictPartial:
			stats.Partial++
		case model.VerdictIncorrect:
			stats.Incorrect++
		}
		scoreSum += r.Score
		timeSum += r.ResponseTime
	}
	if len(s.results) > 0 {
		stats.AvgScore = scoreSum / float64(len(s.results))
		stats.AvgResponseTime = timeSum / time.Duration(len(s.results))
	}
	return stats
}

// Record converts the aggregate into a persistable session row.
func (s *Stats) Record(endedAt time.Time) model.SessionRecord {
	snap := s.Snapshot()
	return model.SessionRecord{
		SessionID:       s.sessionID,
		StartedAt:       s.startedAt,
		EndedAt:         endedAt,
		TotalQuestions:  snap.TotalQuestions,
		Correct:         snap.Correct,
		Partial:         snap.Partial,
		Incorrect:       snap.Incorrect,
		AvgScore:        snap.AvgScore,
		AvgResponseTime: snap.AvgResponseTime,
	}
}
