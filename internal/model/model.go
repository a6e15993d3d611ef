package model

import (
	"slices"
	"time"
)

// SessionStatus represents the lifecycle status of an interview session.
type SessionStatus string

const (
	StatusOngoing   SessionStatus = "ongoing"
	StatusCompleted SessionStatus = "completed"
)

// Interview modes understood by the prompts and the score weighting.
// Any mode other than ModeTechnical is scored as behavioral.
const (
	ModeTechnical  = "technical"
	ModeBehavioral = "behavioral"
)

// Difficulty represents question difficulty level.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Question is a single generated interview question.
type Question struct {
	ID         int        `json:"id"`
	Text       string     `json:"question"`
	Type       string     `json:"type,omitempty"`
	Difficulty Difficulty `json:"difficulty,omitempty"`
	Hint       string     `json:"hint,omitempty"`
}

// Scores holds the three sub-scores of an evaluated answer (nominally 1-10).
type Scores struct {
	Technical     int `json:"technical"`
	Communication int `json:"communication"`
	Confidence    int `json:"confidence"`
}

// Evaluation is the model's assessment of one answer.
type Evaluation struct {
	QuestionID            int      `json:"question_id"`
	Scores                Scores   `json:"scores"`
	Feedback              string   `json:"feedback"`
	ExamplesOrCorrections string   `json:"examples_or_corrections"`
	Resources             []string `json:"resources"`
}

// AnswerRecord is a submitted answer together with its evaluation.
type AnswerRecord struct {
	QuestionID  int        `json:"question_id"`
	Answer      string     `json:"answer"`
	Evaluation  Evaluation `json:"evaluation"`
	SubmittedAt time.Time  `json:"submitted_at"`
}

// SessionMeta describes the candidate and how the session talks to the LLM.
// The caller's raw API key is never part of it.
type SessionMeta struct {
	Name         string `json:"name"`
	Role         string `json:"role"`
	Domain       string `json:"domain,omitempty"`
	Experience   string `json:"experience"`
	Mode         string `json:"mode"`
	Provider     string `json:"provider"`
	Model        string `json:"model,omitempty"`
	UsedUserKey  bool   `json:"used_user_key"`
	MaskedAPIKey string `json:"masked_api_key,omitempty"`
}

// Report is the aggregate result attached to a completed session.
type Report struct {
	OverallScore     float64   `json:"overall_score"`
	AvgTechnical     float64   `json:"avg_technical"`
	AvgCommunication float64   `json:"avg_communication"`
	AvgConfidence    float64   `json:"avg_confidence"`
	Resources        []string  `json:"resources"`
	NQuestions       int       `json:"n_questions"`
	GeneratedAt      time.Time `json:"generated_at"`
}

// Session is one candidate's interview run.
type Session struct {
	ID          string         `json:"session_id"`
	Meta        SessionMeta    `json:"meta"`
	Questions   []Question     `json:"questions"`
	Answers     []AnswerRecord `json:"answers"`
	Status      SessionStatus  `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	FinalReport *Report        `json:"final_report,omitempty"`
}

// Question returns the question with the given id.
func (s *Session) Question(id int) (Question, bool) {
	for _, q := range s.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// Clone returns a deep copy so callers can never mutate stored state.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Questions = slices.Clone(s.Questions)
	c.Answers = make([]AnswerRecord, len(s.Answers))
	for i, a := range s.Answers {
		a.Evaluation.Resources = slices.Clone(a.Evaluation.Resources)
		c.Answers[i] = a
	}
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		c.CompletedAt = &t
	}
	if s.FinalReport != nil {
		r := *s.FinalReport
		r.Resources = slices.Clone(s.FinalReport.Resources)
		c.FinalReport = &r
	}
	return &c
}

// AppConfig holds runtime service parameters set via CLI flags.
type AppConfig struct {
	NumQuestions    int    // questions generated per session
	DefaultProvider string // provider used when the request names none
	PromptVariant   string // evaluation prompt variant (strict, standard, lenient)
	BasePath        string // URL prefix for sub-path deployments
}
