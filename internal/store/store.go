package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pavelanni/mockinterview/internal/model"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a session id is unknown.
var ErrNotFound = errors.New("session not found")

// Store is the SQLite-backed session store.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database at dbPath and applies the schema.
// Use ":memory:" for a throwaway database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps :memory: databases shared and serialises
	// writers.
	db.SetMaxOpenConns(1)
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
	CREATE TABLE IF NOT EXISTS interview_sessions (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL,
		domain TEXT NOT NULL DEFAULT '',
		experience TEXT NOT NULL,
		mode TEXT NOT NULL,
		provider TEXT NOT NULL,
		model TEXT NOT NULL DEFAULT '',
		used_user_key INTEGER NOT NULL DEFAULT 0,
		masked_api_key TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'ongoing',
		created_at DATETIME NOT NULL,
		completed_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS questions (
		session_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		id INTEGER NOT NULL,
		text TEXT NOT NULL,
		type TEXT NOT NULL DEFAULT '',
		difficulty TEXT NOT NULL DEFAULT '',
		hint TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (session_id, id),
		FOREIGN KEY (session_id) REFERENCES interview_sessions(id)
	);

	CREATE TABLE IF NOT EXISTS answers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		question_id INTEGER NOT NULL,
		answer TEXT NOT NULL,
		technical INTEGER NOT NULL DEFAULT 0,
		communication INTEGER NOT NULL DEFAULT 0,
		confidence INTEGER NOT NULL DEFAULT 0,
		feedback TEXT NOT NULL DEFAULT '',
		examples_or_corrections TEXT NOT NULL DEFAULT '',
		resources TEXT NOT NULL DEFAULT '[]',
		submitted_at DATETIME NOT NULL,
		FOREIGN KEY (session_id, question_id) REFERENCES questions(session_id, id)
	);

	CREATE TABLE IF NOT EXISTS reports (
		session_id TEXT PRIMARY KEY,
		overall_score REAL NOT NULL,
		avg_technical REAL NOT NULL,
		avg_communication REAL NOT NULL,
		avg_confidence REAL NOT NULL,
		resources TEXT NOT NULL DEFAULT '[]',
		n_questions INTEGER NOT NULL,
		generated_at DATETIME NOT NULL,
		FOREIGN KEY (session_id) REFERENCES interview_sessions(id)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Create stores a new session with its questions.
func (s *Store) Create(ctx context.Context, sess *model.Session) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	m := sess.Meta
	_, err = tx.ExecContext(ctx,
		`INSERT INTO interview_sessions
		 (id, name, role, domain, experience, mode, provider, model, used_user_key, masked_api_key, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, m.Name, m.Role, m.Domain, m.Experience, m.Mode, m.Provider, m.Model,
		m.UsedUserKey, m.MaskedAPIKey, sess.Status, sess.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	for i, q := range sess.Questions {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO questions (session_id, position, id, text, type, difficulty, hint)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			sess.ID, i, q.ID, q.Text, q.Type, q.Difficulty, q.Hint,
		)
		if err != nil {
			return fmt.Errorf("insert question %d: %w", q.ID, err)
		}
	}

	return tx.Commit()
}

// Get loads a full session snapshot.
func (s *Store) Get(ctx context.Context, id string) (*model.Session, error) {
	var sess model.Session
	var completedAt sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, role, domain, experience, mode, provider, model, used_user_key, masked_api_key,
		        status, created_at, completed_at
		 FROM interview_sessions WHERE id = ?`, id,
	).Scan(&sess.ID, &sess.Meta.Name, &sess.Meta.Role, &sess.Meta.Domain, &sess.Meta.Experience,
		&sess.Meta.Mode, &sess.Meta.Provider, &sess.Meta.Model, &sess.Meta.UsedUserKey,
		&sess.Meta.MaskedAPIKey, &sess.Status, &sess.CreatedAt, &completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	if completedAt.Valid {
		t := completedAt.Time
		sess.CompletedAt = &t
	}

	if sess.Questions, err = s.questions(ctx, id); err != nil {
		return nil, err
	}
	if sess.Answers, err = s.answers(ctx, id); err != nil {
		return nil, err
	}
	if sess.FinalReport, err = s.report(ctx, id); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *Store) questions(ctx context.Context, sessionID string) ([]model.Question, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, text, type, difficulty, hint FROM questions WHERE session_id = ? ORDER BY position`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.Text, &q.Type, &q.Difficulty, &q.Hint); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

func (s *Store) answers(ctx context.Context, sessionID string) ([]model.AnswerRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT question_id, answer, technical, communication, confidence, feedback,
		        examples_or_corrections, resources, submitted_at
		 FROM answers WHERE session_id = ? ORDER BY id`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	answers := []model.AnswerRecord{}
	for rows.Next() {
		var a model.AnswerRecord
		var resources string
		ev := &a.Evaluation
		if err := rows.Scan(&a.QuestionID, &a.Answer, &ev.Scores.Technical, &ev.Scores.Communication,
			&ev.Scores.Confidence, &ev.Feedback, &ev.ExamplesOrCorrections, &resources, &a.SubmittedAt); err != nil {
			return nil, err
		}
		ev.QuestionID = a.QuestionID
		if err := json.Unmarshal([]byte(resources), &ev.Resources); err != nil {
			return nil, fmt.Errorf("decode resources: %w", err)
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

func (s *Store) report(ctx context.Context, sessionID string) (*model.Report, error) {
	var r model.Report
	var resources string
	err := s.db.QueryRowContext(ctx,
		`SELECT overall_score, avg_technical, avg_communication, avg_confidence, resources, n_questions, generated_at
		 FROM reports WHERE session_id = ?`, sessionID,
	).Scan(&r.OverallScore, &r.AvgTechnical, &r.AvgCommunication, &r.AvgConfidence, &resources,
		&r.NQuestions, &r.GeneratedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(resources), &r.Resources); err != nil {
		return nil, fmt.Errorf("decode resources: %w", err)
	}
	return &r, nil
}

// AppendAnswer adds an answer record to the session.
func (s *Store) AppendAnswer(ctx context.Context, id string, rec model.AnswerRecord) error {
	if err := s.exists(ctx, id); err != nil {
		return err
	}
	resources, err := encodeList(rec.Evaluation.Resources)
	if err != nil {
		return err
	}
	ev := rec.Evaluation
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO answers (session_id, question_id, answer, technical, communication, confidence,
		                      feedback, examples_or_corrections, resources, submitted_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, rec.QuestionID, rec.Answer, ev.Scores.Technical, ev.Scores.Communication, ev.Scores.Confidence,
		ev.Feedback, ev.ExamplesOrCorrections, resources, rec.SubmittedAt,
	)
	return err
}

// SaveReport attaches the final report and marks the session completed.
func (s *Store) SaveReport(ctx context.Context, id string, report model.Report, completedAt time.Time) error {
	resources, err := encodeList(report.Resources)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE interview_sessions SET status = ?, completed_at = ? WHERE id = ?`,
		model.StatusCompleted, completedAt, id,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO reports (session_id, overall_score, avg_technical, avg_communication, avg_confidence,
		                      resources, n_questions, generated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET overall_score = excluded.overall_score,
		     avg_technical = excluded.avg_technical, avg_communication = excluded.avg_communication,
		     avg_confidence = excluded.avg_confidence, resources = excluded.resources,
		     n_questions = excluded.n_questions, generated_at = excluded.generated_at`,
		id, report.OverallScore, report.AvgTechnical, report.AvgCommunication, report.AvgConfidence,
		resources, report.NQuestions, report.GeneratedAt,
	)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return tx.Commit()
}

// List returns all sessions, oldest first.
func (s *Store) List(ctx context.Context) ([]*model.Session, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM interview_sessions ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sessions := make([]*model.Session, 0, len(ids))
	for _, id := range ids {
		sess, err := s.Get(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("get session %s: %w", id, err)
		}
		sessions = append(sessions, sess)
	}
	return sessions, nil
}

// SessionCount returns the number of stored sessions.
func (s *Store) SessionCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM interview_sessions`).Scan(&count)
	return count, err
}

func (s *Store) exists(ctx context.Context, id string) error {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM interview_sessions WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return err
}

func encodeList(items []string) (string, error) {
	if items == nil {
		items = []string{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("encode resources: %w", err)
	}
	return string(b), nil
}
