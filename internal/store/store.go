package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/pavelanni/tutor/internal/model"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		session_id TEXT PRIMARY KEY,
		started_at DATETIME NOT NULL,
		ended_at DATETIME NOT NULL,
		total_questions INTEGER NOT NULL DEFAULT 0,
		correct INTEGER NOT NULL DEFAULT 0,
		partial INTEGER NOT NULL DEFAULT 0,
		incorrect INTEGER NOT NULL DEFAULT 0,
		avg_score REAL NOT NULL DEFAULT 0,
		avg_response_time REAL NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS question_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		question_id INTEGER NOT NULL,
		question TEXT NOT NULL,
		answer TEXT NOT NULL,
		verdict TEXT NOT NULL,
		score REAL NOT NULL DEFAULT 0,
		response_time REAL NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_results_session ON question_results(session_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveResult stores one answered question.
func (s *Store) SaveResult(res model.QuestionResult) error {
	createdAt := res.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.db.Exec(
		`INSERT INTO question_results (session_id, question_id, question, answer, verdict, score, response_time, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		res.SessionID, res.QuestionID, res.QuestionText, res.Answer,
		res.Verdict, res.Score, res.ResponseTime.Seconds(), createdAt,
	)
	return err
}

// FinalizeSession upserts the session summary row. The in-memory stats
// stay authoritative; this row is the durable copy.
func (s *Store) FinalizeSession(rec model.SessionRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO sessions (session_id, started_at, ended_at, total_questions, correct, partial, incorrect, avg_score, avg_response_time)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET
			ended_at = excluded.ended_at,
			total_questions = excluded.total_questions,
			correct = excluded.correct,
			partial = excluded.partial,
			incorrect = excluded.incorrect,
			avg_score = excluded.avg_score,
			avg_response_time = excluded.avg_response_time`,
		rec.SessionID, rec.StartedAt, rec.EndedAt, rec.TotalQuestions,
		rec.Correct, rec.Partial, rec.Incorrect, rec.AvgScore,
		rec.AvgResponseTime.Seconds(),
	)
	return err
}

// GetSession returns a finalized session, or nil if unknown.
func (s *Store) GetSession(sessionID string) (*model.SessionRecord, error) {
	var rec model.SessionRecord
	var avgRespSec float64
	err := s.db.QueryRow(
		`SELECT session_id, started_at, ended_at, total_questions, correct, partial, incorrect, avg_score, avg_response_time
		 FROM sessions WHERE session_id = ?`, sessionID,
	).Scan(&rec.SessionID, &rec.StartedAt, &rec.EndedAt, &rec.TotalQuestions,
		&rec.Correct, &rec.Partial, &rec.Incorrect, &rec.AvgScore, &avgRespSec)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec.AvgResponseTime = secondsToDuration(avgRespSec)
	return &rec, nil
}

// ListSessions returns all finalized sessions, newest first.
func (s *Store) ListSessions() ([]model.SessionRecord, error) {
	rows, err := s.db.Query(
		`SELECT session_id, started_at, ended_at, total_questions, correct, partial, incorrect, avg_score, avg_response_time
		 FROM sessions ORDER BY started_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var sessions []model.SessionRecord
	for rows.Next() {
		var rec model.SessionRecord
		var avgRespSec float64
		if err := rows.Scan(&rec.SessionID, &rec.StartedAt, &rec.EndedAt, &rec.TotalQuestions,
			&rec.Correct, &rec.Partial, &rec.Incorrect, &rec.AvgScore, &avgRespSec); err != nil {
			return nil, err
		}
		rec.AvgResponseTime = secondsToDuration(avgRespSec)
		sessions = append(sessions, rec)
	}
	return sessions, rows.Err()
}

// GetResults returns the recorded answers for a session in answer order.
func (s *Store) GetResults(sessionID string) ([]model.QuestionResult, error) {
	rows, err := s.db.Query(
		`SELECT id, session_id, question_id, question, answer, verdict, score, response_time, created_at
		 FROM question_results WHERE session_id = ? ORDER BY id`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var results []model.QuestionResult
	for rows.Next() {
		var res model.QuestionResult
		var respSec float64
		if err := rows.Scan(&res.ID, &res.SessionID, &res.QuestionID, &res.QuestionText,
			&res.Answer, &res.Verdict, &res.Score, &respSec, &res.CreatedAt); err != nil {
			return nil, err
		}
		res.ResponseTime = secondsToDuration(respSec)
		results = append(results, res)
	}
	return results, rows.Err()
}

// SessionCount returns the number of finalized sessions.
func (s *Store) SessionCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&count)
	return count, err
}

func secondsToDuration(sec float64) time.Duration {
	return time.Duration(sec * float64(time.Second))
}
