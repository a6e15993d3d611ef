package store

import (
	"context"
	"fmt"
	"time"

	"github.com/pavelanni/mockinterview/internal/model"
)

// Lister is implemented by both session stores.
type Lister interface {
	List(ctx context.Context) ([]*model.Session, error)
}

// ExportAllSessions builds export-ready results from all stored sessions.
func ExportAllSessions(ctx context.Context, l Lister) (*model.SessionsExport, error) {
	sessions, err := l.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	results := make([]model.SessionResult, 0, len(sessions))
	for _, sess := range sessions {
		results = append(results, model.NewSessionResult(sess))
	}

	return &model.SessionsExport{
		ExportedAt: time.Now().UTC(),
		Sessions:   results,
	}, nil
}
