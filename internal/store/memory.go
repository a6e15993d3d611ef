package store

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/pavelanni/mockinterview/internal/model"
)

// Memory is a process-local session store. Every read returns a deep copy.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string]*model.Session
	order    []string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{sessions: make(map[string]*model.Session)}
}

func (m *Memory) Create(_ context.Context, sess *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[sess.ID]; ok {
		return fmt.Errorf("session %s already exists", sess.ID)
	}
	m.sessions[sess.ID] = sess.Clone()
	m.order = append(m.order, sess.ID)
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (*model.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return sess.Clone(), nil
}

func (m *Memory) AppendAnswer(_ context.Context, id string, rec model.AnswerRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	rec.Evaluation.Resources = slices.Clone(rec.Evaluation.Resources)
	sess.Answers = append(sess.Answers, rec)
	return nil
}

func (m *Memory) SaveReport(_ context.Context, id string, report model.Report, completedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	report.Resources = slices.Clone(report.Resources)
	sess.FinalReport = &report
	sess.Status = model.StatusCompleted
	sess.CompletedAt = &completedAt
	return nil
}

// List returns all sessions in creation order.
func (m *Memory) List(_ context.Context) ([]*model.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*model.Session, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.sessions[id].Clone())
	}
	return out, nil
}
