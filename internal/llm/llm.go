package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"syscall"
)

var (
	// ErrTransient marks failures worth retrying: 5xx responses and
	// connectivity problems.
	ErrTransient = errors.New("transient generation failure")
	// ErrInvalidResponse marks model output that could not be used.
	ErrInvalidResponse = errors.New("invalid response from language model")
)

// Request describes one batch of exam questions to generate.
type Request struct {
	Subject    string
	Count      int
	BatchIndex int
	Target     int
}

// Question is a multiple-choice question as returned by a model.
type Question struct {
	Text          string            `json:"text"`
	Options       map[string]string `json:"options"`
	CorrectAnswer string            `json:"correctAnswer"`
	Explanation   string            `json:"explanation"`
}

// Generator produces question batches. Implementations wrap transient
// failures with ErrTransient so callers can decide whether to retry.
type Generator interface {
	GenerateQuestions(ctx context.Context, req Request) ([]Question, error)
	Name() string
}

var choiceIDs = []string{"A", "B", "C", "D", "E"}

// ValidationError lists every problem found in a generated batch.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("batch validation failed: %s", strings.Join(e.Errors, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalidResponse }

// IsTransient reports whether err is worth another attempt.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

func transient(err error) error {
	return fmt.Errorf("%w: %w", ErrTransient, err)
}

// isConnectivityError reports network-level failures. Context expiry is
// never treated as a connectivity failure.
func isConnectivityError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED)
}

// classifyStatus wraps err as transient for server-side HTTP statuses.
func classifyStatus(status int, err error) error {
	if status >= 500 {
		return transient(err)
	}
	return err
}

type batchEnvelope struct {
	Questions []Question `json:"questions"`
}

// ParseBatch decodes a model response of the form {"questions": [...]}.
// Markdown code fences around the JSON are tolerated.
func ParseBatch(raw string) ([]Question, error) {
	cleaned := stripCodeFences(raw)

	var env batchEnvelope
	if err := json.Unmarshal([]byte(cleaned), &env); err != nil {
		return nil, fmt.Errorf("%w: parse JSON: %v", ErrInvalidResponse, err)
	}

	for i := range env.Questions {
		env.Questions[i].CorrectAnswer = normalizeChoice(env.Questions[i].CorrectAnswer)
	}

	if err := validateBatch(env.Questions); err != nil {
		return nil, err
	}
	return env.Questions, nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		}
		if idx := strings.LastIndex(s, "```"); idx != -1 {
			s = s[:idx]
		}
	}
	return strings.TrimSpace(s)
}

// normalizeChoice turns answers like " b) " into "B".
func normalizeChoice(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimRight(s, ").: ")
	return strings.ToUpper(s)
}

func validateBatch(questions []Question) error {
	var errs []string
	for i, q := range questions {
		prefix := fmt.Sprintf("question[%d]", i)

		if strings.TrimSpace(q.Text) == "" {
			errs = append(errs, prefix+": text is empty")
		}
		if len(q.Options) != len(choiceIDs) {
			errs = append(errs, fmt.Sprintf("%s: expected %d options, got %d", prefix, len(choiceIDs), len(q.Options)))
		}
		for _, id := range choiceIDs {
			if strings.TrimSpace(q.Options[id]) == "" {
				errs = append(errs, fmt.Sprintf("%s: option %s is missing", prefix, id))
			}
		}
		if _, ok := q.Options[q.CorrectAnswer]; !ok {
			errs = append(errs, fmt.Sprintf("%s: correct answer %q is not an option", prefix, q.CorrectAnswer))
		}
	}
	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}
