package interview

import (
	"errors"

	"github.com/pavelanni/mockinterview/internal/store"
)

// Session-layer errors. They are request-local and never retried.
var (
	ErrNotFound                 = store.ErrNotFound
	ErrInvalidQuestionReference = errors.New("question id not found in session")
	ErrNoAnswers                = errors.New("no answers provided")
	ErrSessionCompleted         = errors.New("session already completed")
	ErrInvalidInput             = errors.New("invalid input")
)
