package model

import "time"

// Verdict is the post-exam classification of one answer.
type Verdict string

const (
	VerdictCorrect   Verdict = "correct"
	VerdictIncorrect Verdict = "incorrect"
	VerdictEmpty     Verdict = "empty"
)

// Attempt is an archived, finished practice exam.
type Attempt struct {
	ID         string            `json:"id"`
	ExamTypeID string            `json:"exam_type_id"`
	ExamTitle  string            `json:"exam_title"`
	Subject    string            `json:"subject"`
	Target     int               `json:"target"`
	Loaded     int               `json:"loaded"`
	Correct    int               `json:"correct"`
	Incorrect  int               `json:"incorrect"`
	Empty      int               `json:"empty"`
	Net        float64           `json:"net"`
	Reason     string            `json:"reason"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Questions  []AttemptQuestion `json:"questions,omitempty"`
}

// Duration returns how long the candidate spent on the exam.
func (a Attempt) Duration() time.Duration {
	if a.StartedAt.IsZero() || a.FinishedAt.Before(a.StartedAt) {
		return 0
	}
	return a.FinishedAt.Sub(a.StartedAt)
}

// AttemptQuestion is one question of an attempt with the candidate's answer.
type AttemptQuestion struct {
	Position      int               `json:"position"`
	QuestionID    string            `json:"question_id"`
	Text          string            `json:"text"`
	Options       map[string]string `json:"options"`
	CorrectAnswer string            `json:"correct_answer"`
	Selected      string            `json:"selected,omitempty"`
	Verdict       Verdict           `json:"verdict"`
	Explanation   string            `json:"explanation"`
}

// ServiceInfo describes how the archived questions were produced.
type ServiceInfo struct {
	Generator string `json:"generator"`
	BatchSize int    `json:"batch_size"`
	Language  string `json:"language"`
}
