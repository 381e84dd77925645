package quiz

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"

	"github.com/pavelanni/tutor/internal/model"
)

// Source is an ordered, consume-once sequence of questions for one session.
type Source struct {
	questions []model.Question
	index     int
}

// Load reads a question bank from a JSON file and applies the session
// filters: difficulty/topic match, optional shuffle, optional limit.
func Load(path string, cfg model.SessionConfig) (*Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read question bank %s: %w", path, err)
	}

	var questions []model.Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, fmt.Errorf("parse question bank %s: %w", path, err)
	}

	return New(questions, cfg), nil
}

// New builds a Source from already-loaded questions.
func New(questions []model.Question, cfg model.SessionConfig) *Source {
	filtered := make([]model.Question, 0, len(questions))
	for _, q := range questions {
		if cfg.Difficulty != "" && string(q.Difficulty) != cfg.Difficulty {
			continue
		}
		if cfg.Topic != "" && q.Topic != cfg.Topic {
			continue
		}
		filtered = append(filtered, q)
	}

	if cfg.Shuffle {
		rand.Shuffle(len(filtered), func(i, j int) {
			filtered[i], filtered[j] = filtered[j], filtered[i]
		})
	}

	if cfg.NumQuestions > 0 && cfg.NumQuestions < len(filtered) {
		filtered = filtered[:cfg.NumQuestions]
	}

	return &Source{questions: filtered}
}

// HasNext reports whether another question remains.
func (s *Source) HasNext() bool {
	return s.index < len(s.questions)
}

// Next returns the next question and advances the cursor.
func (s *Source) Next() (model.Question, bool) {
	if !s.HasNext() {
		return model.Question{}, false
	}
	q := s.questions[s.index]
	s.index++
	return q, true
}

// Count returns the total number of questions in this source.
func (s *Source) Count() int {
	return len(s.questions)
}

// Index returns how many questions have been handed out so far.
func (s *Source) Index() int {
	return s.index
}
