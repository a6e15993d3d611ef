package model

import "time"

// SessionsExport is the top-level JSON structure for session export.
type SessionsExport struct {
	ExportedAt time.Time       `json:"exported_at"`
	Sessions   []SessionResult `json:"sessions"`
}

// SessionResult holds one session's data for export.
type SessionResult struct {
	SessionID   string           `json:"session_id"`
	Name        string           `json:"name"`
	Role        string           `json:"role"`
	Experience  string           `json:"experience"`
	Mode        string           `json:"mode"`
	Provider    string           `json:"provider"`
	Status      SessionStatus    `json:"status"`
	StartedAt   time.Time        `json:"started_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
	Questions   []QuestionResult `json:"questions"`
	Report      *Report          `json:"report,omitempty"`
}

// QuestionResult holds per-question data for export.
type QuestionResult struct {
	ID         int            `json:"id"`
	Text       string         `json:"text"`
	Type       string         `json:"type,omitempty"`
	Difficulty Difficulty     `json:"difficulty,omitempty"`
	Attempts   []AnswerRecord `json:"attempts"`
}

// NewSessionResult flattens a session into its export form, grouping answer
// records under the question they reference.
func NewSessionResult(s *Session) SessionResult {
	byQuestion := make(map[int][]AnswerRecord)
	for _, a := range s.Answers {
		byQuestion[a.QuestionID] = append(byQuestion[a.QuestionID], a)
	}

	questions := make([]QuestionResult, 0, len(s.Questions))
	for _, q := range s.Questions {
		attempts := byQuestion[q.ID]
		if attempts == nil {
			attempts = []AnswerRecord{}
		}
		questions = append(questions, QuestionResult{
			ID:         q.ID,
			Text:       q.Text,
			Type:       q.Type,
			Difficulty: q.Difficulty,
			Attempts:   attempts,
		})
	}

	return SessionResult{
		SessionID:   s.ID,
		Name:        s.Meta.Name,
		Role:        s.Meta.Role,
		Experience:  s.Meta.Experience,
		Mode:        s.Meta.Mode,
		Provider:    s.Meta.Provider,
		Status:      s.Status,
		StartedAt:   s.CreatedAt,
		CompletedAt: s.CompletedAt,
		Questions:   questions,
		Report:      s.FinalReport,
	}
}
