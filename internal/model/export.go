package model

// SessionExport is the top-level JSON structure for session history export.
type SessionExport struct {
	ExportedAt string          `json:"exported_at"`
	Sessions   []SessionDetail `json:"sessions"`
}

// SessionDetail combines a finalized session with its recorded answers.
type SessionDetail struct {
	Session SessionRecord    `json:"session"`
	Results []QuestionResult `json:"results"`
}
