package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/kpssprep/marathon/internal/model"

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
	if dbPath == ":memory:" {
		// Every pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
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
	CREATE TABLE IF NOT EXISTS attempts (
		id TEXT PRIMARY KEY,
		exam_type_id TEXT NOT NULL,
		exam_title TEXT NOT NULL DEFAULT '',
		subject TEXT NOT NULL,
		target INTEGER NOT NULL,
		loaded INTEGER NOT NULL,
		correct INTEGER NOT NULL,
		incorrect INTEGER NOT NULL,
		empty INTEGER NOT NULL,
		net REAL NOT NULL,
		reason TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_attempts_exam_type ON attempts(exam_type_id);

	CREATE TABLE IF NOT EXISTS attempt_questions (
		attempt_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		question_id TEXT NOT NULL,
		text TEXT NOT NULL,
		options TEXT NOT NULL,
		correct_answer TEXT NOT NULL,
		selected TEXT NOT NULL DEFAULT '',
		verdict TEXT NOT NULL,
		explanation TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (attempt_id, position),
		FOREIGN KEY (attempt_id) REFERENCES attempts(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS service_metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveAttempt stores a finished attempt with its questions.
func (s *Store) SaveAttempt(a model.Attempt) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO attempts (id, exam_type_id, exam_title, subject, target, loaded, correct, incorrect, empty, net, reason, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.ExamTypeID, a.ExamTitle, a.Subject, a.Target, a.Loaded,
		a.Correct, a.Incorrect, a.Empty, a.Net, a.Reason, a.StartedAt, a.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}

	for _, q := range a.Questions {
		options, err := json.Marshal(q.Options)
		if err != nil {
			return fmt.Errorf("encode options: %w", err)
		}
		_, err = tx.Exec(
			`INSERT INTO attempt_questions (attempt_id, position, question_id, text, options, correct_answer, selected, verdict, explanation)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			a.ID, q.Position, q.QuestionID, q.Text, string(options), q.CorrectAnswer, q.Selected, q.Verdict, q.Explanation,
		)
		if err != nil {
			return fmt.Errorf("insert attempt question %d: %w", q.Position, err)
		}
	}

	return tx.Commit()
}

const attemptColumns = `id, exam_type_id, exam_title, subject, target, loaded, correct, incorrect, empty, net, reason, started_at, finished_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanAttempt(row scanner) (model.Attempt, error) {
	var a model.Attempt
	err := row.Scan(&a.ID, &a.ExamTypeID, &a.ExamTitle, &a.Subject, &a.Target, &a.Loaded,
		&a.Correct, &a.Incorrect, &a.Empty, &a.Net, &a.Reason, &a.StartedAt, &a.FinishedAt)
	return a, err
}

// ListAttempts returns attempt summaries, newest first. An empty
// examTypeID lists every exam type.
func (s *Store) ListAttempts(examTypeID string) ([]model.Attempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM attempts`
	var args []any
	if examTypeID != "" {
		query += ` WHERE exam_type_id = ?`
		args = append(args, examTypeID)
	}
	query += ` ORDER BY finished_at DESC, id`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var attempts []model.Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// GetAttempt returns an attempt with its questions, or nil if missing.
func (s *Store) GetAttempt(id string) (*model.Attempt, error) {
	a, err := scanAttempt(s.db.QueryRow(`SELECT `+attemptColumns+` FROM attempts WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	a.Questions, err = s.attemptQuestions(id)
	if err != nil {
		return nil, fmt.Errorf("questions of attempt %s: %w", id, err)
	}
	return &a, nil
}

func (s *Store) attemptQuestions(attemptID string) ([]model.AttemptQuestion, error) {
	rows, err := s.db.Query(
		`SELECT position, question_id, text, options, correct_answer, selected, verdict, explanation
		 FROM attempt_questions WHERE attempt_id = ? ORDER BY position`, attemptID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var questions []model.AttemptQuestion
	for rows.Next() {
		var (
			q       model.AttemptQuestion
			options string
		)
		if err := rows.Scan(&q.Position, &q.QuestionID, &q.Text, &options, &q.CorrectAnswer, &q.Selected, &q.Verdict, &q.Explanation); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(options), &q.Options); err != nil {
			return nil, fmt.Errorf("decode options: %w", err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// DeleteAttempt removes an attempt and its questions. It reports whether
// the attempt existed.
func (s *Store) DeleteAttempt(id string) (bool, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM attempt_questions WHERE attempt_id = ?`, id); err != nil {
		return false, err
	}
	res, err := tx.Exec(`DELETE FROM attempts WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, tx.Commit()
}

// AttemptCount returns the number of archived attempts.
func (s *Store) AttemptCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM attempts`).Scan(&count)
	return count, err
}
