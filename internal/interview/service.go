package interview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pavelanni/mockinterview/internal/llm"
	"github.com/pavelanni/mockinterview/internal/model"
)

const defaultNumQuestions = 4

// Store persists sessions. Get returns an error wrapping ErrNotFound for
// unknown ids. Implementations guard their own state; the Service
// serialises writes per session id.
type Store interface {
	Create(ctx context.Context, s *model.Session) error
	Get(ctx context.Context, id string) (*model.Session, error)
	AppendAnswer(ctx context.Context, id string, rec model.AnswerRecord) error
	SaveReport(ctx context.Context, id string, report model.Report, completedAt time.Time) error
	List(ctx context.Context) ([]*model.Session, error)
}

// StartParams are the inputs of Start.
type StartParams struct {
	Name       string
	Role       string
	Domain     string
	Experience string
	Mode       string
	Provider   string // empty selects the configured default
	Model      string // optional model override
	APIKey     string // optional caller credential
}

// Service runs the interview session lifecycle: ongoing -> completed.
type Service struct {
	store Store
	gen   *Generator
	cfg   model.AppConfig
	locks *keyedMutex

	// Caller credentials live only in process memory, keyed by session id.
	credMu sync.RWMutex
	creds  map[string]string

	now func() time.Time
}

// NewService creates a Service.
func NewService(store Store, gen *Generator, cfg model.AppConfig) *Service {
	if cfg.NumQuestions <= 0 {
		cfg.NumQuestions = defaultNumQuestions
	}
	if cfg.DefaultProvider == "" {
		cfg.DefaultProvider = string(llm.ProviderGemini)
	}
	return &Service{
		store: store,
		gen:   gen,
		cfg:   cfg,
		locks: newKeyedMutex(),
		creds: make(map[string]string),
		now:   time.Now,
	}
}

// Start generates the question set and creates an ongoing session. Nothing
// is stored when question generation fails.
func (s *Service) Start(ctx context.Context, p StartParams) (*model.Session, error) {
	p.Role = strings.TrimSpace(p.Role)
	p.Experience = strings.TrimSpace(p.Experience)
	p.Mode = strings.ToLower(strings.TrimSpace(p.Mode))
	if p.Role == "" || p.Experience == "" || p.Mode == "" {
		return nil, fmt.Errorf("%w: role, experience and mode are required", ErrInvalidInput)
	}

	providerName := p.Provider
	if strings.TrimSpace(providerName) == "" {
		providerName = s.cfg.DefaultProvider
	}
	provider, err := llm.ParseProvider(providerName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	target := Target{Provider: provider, APIKey: p.APIKey, Model: p.Model}
	questions, err := s.gen.Questions(ctx, target, QuestionParams{
		Role:       p.Role,
		Domain:     p.Domain,
		Experience: p.Experience,
		Mode:       p.Mode,
		N:          s.cfg.NumQuestions,
	})
	if err != nil {
		return nil, err
	}

	sess := &model.Session{
		ID: uuid.NewString(),
		Meta: model.SessionMeta{
			Name:         strings.TrimSpace(p.Name),
			Role:         p.Role,
			Domain:       strings.TrimSpace(p.Domain),
			Experience:   p.Experience,
			Mode:         p.Mode,
			Provider:     string(provider),
			Model:        p.Model,
			UsedUserKey:  p.APIKey != "",
			MaskedAPIKey: llm.MaskKey(p.APIKey),
		},
		Questions: questions,
		Answers:   []model.AnswerRecord{},
		Status:    model.StatusOngoing,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	if p.APIKey != "" {
		s.credMu.Lock()
		s.creds[sess.ID] = p.APIKey
		s.credMu.Unlock()
	}

	slog.Info("interview session started",
		"session_id", sess.ID, "provider", provider, "mode", p.Mode,
		"questions", len(questions), "user_key", sess.Meta.MaskedAPIKey)
	return sess.Clone(), nil
}

// Get returns a snapshot of the session.
func (s *Service) Get(ctx context.Context, id string) (*model.Session, error) {
	return s.store.Get(ctx, id)
}

// List returns snapshots of all stored sessions.
func (s *Service) List(ctx context.Context) ([]*model.Session, error) {
	return s.store.List(ctx)
}

// SubmitAnswer evaluates an answer and appends the record to the session.
// The evaluation call runs without holding the session lock; the session
// is re-checked before the append. On evaluation failure nothing is
// appended and the *llm.ProviderError is returned.
func (s *Service) SubmitAnswer(ctx context.Context, id string, questionID int, answer string) (*model.AnswerRecord, error) {
	unlock := s.locks.Lock(id)
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		unlock()
		return nil, err
	}
	if sess.Status == model.StatusCompleted {
		unlock()
		return nil, ErrSessionCompleted
	}
	q, ok := sess.Question(questionID)
	unlock()
	if !ok {
		return nil, ErrInvalidQuestionReference
	}

	target := Target{
		Provider: llm.ProviderName(sess.Meta.Provider),
		APIKey:   s.credential(id),
		Model:    sess.Meta.Model,
	}
	ev, err := s.gen.Evaluate(ctx, target, q, answer, sess.Meta.Mode, sess.Meta.Experience)
	if err != nil {
		var pe *llm.ProviderError
		if errors.As(err, &pe) {
			slog.Warn("answer evaluation failed",
				"session_id", id, "question_id", questionID, "provider", pe.Provider,
				"kind", pe.Kind, "used_user_key", pe.UsedCallerKey)
		}
		return nil, err
	}

	unlock = s.locks.Lock(id)
	defer unlock()

	current, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status == model.StatusCompleted {
		return nil, ErrSessionCompleted
	}

	rec := model.AnswerRecord{
		QuestionID:  questionID,
		Answer:      answer,
		Evaluation:  ev,
		SubmittedAt: s.now().UTC(),
	}
	if err := s.store.AppendAnswer(ctx, id, rec); err != nil {
		return nil, fmt.Errorf("append answer: %w", err)
	}
	return &rec, nil
}

// Finalize computes and attaches the final report, completing the session.
// Finalizing a completed session returns the stored report.
func (s *Service) Finalize(ctx context.Context, id string) (*model.Report, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Status == model.StatusCompleted && sess.FinalReport != nil {
		return sess.FinalReport, nil
	}

	report, err := Aggregate(sess.Meta.Mode, sess.Answers)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	report.GeneratedAt = now
	if err := s.store.SaveReport(ctx, id, report, now); err != nil {
		return nil, fmt.Errorf("save report: %w", err)
	}

	s.credMu.Lock()
	delete(s.creds, id)
	s.credMu.Unlock()

	slog.Info("interview session finalized",
		"session_id", id, "overall", report.OverallScore, "answers", report.NQuestions)
	return &report, nil
}

func (s *Service) credential(id string) string {
	s.credMu.RLock()
	defer s.credMu.RUnlock()
	return s.creds[id]
}

// keyedMutex hands out one mutex per key and forgets it once no goroutine
// holds or waits for it.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

// Lock acquires the mutex for key and returns its release function.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
