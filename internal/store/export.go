package store

import (
	"fmt"

	"github.com/pavelanni/tutor/internal/model"
)

// ExportAll builds export-ready details for every finalized session.
func (s *Store) ExportAll() ([]model.SessionDetail, error) {
	sessions, err := s.ListSessions()
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	var details []model.SessionDetail
	for _, sess := range sessions {
		results, err := s.GetResults(sess.SessionID)
		if err != nil {
			return nil, fmt.Errorf("get results for %s: %w", sess.SessionID, err)
		}
		details = append(details, model.SessionDetail{
			Session: sess,
			Results: results,
		})
	}
	return details, nil
}
