package llm

import (
	"context"
	"fmt"
	"time"
)

// MockGenerator produces deterministic placeholder questions for local
// development and tests.
type MockGenerator struct {
	Latency time.Duration
}

// NewMock creates a mock generator that waits latency before each batch.
func NewMock(latency time.Duration) *MockGenerator {
	return &MockGenerator{Latency: latency}
}

// Name identifies the provider in logs.
func (m *MockGenerator) Name() string { return "mock" }

// GenerateQuestions returns req.Count questions unique to the batch.
func (m *MockGenerator) GenerateQuestions(ctx context.Context, req Request) ([]Question, error) {
	if m.Latency > 0 {
		t := time.NewTimer(m.Latency)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
		}
	}

	questions := make([]Question, 0, req.Count)
	for i := range req.Count {
		n := req.BatchIndex*req.Count + i + 1
		correct := choiceIDs[n%len(choiceIDs)]
		options := make(map[string]string, len(choiceIDs))
		for j, id := range choiceIDs {
			options[id] = fmt.Sprintf("%s seçeneği %d.%d", req.Subject, n, j+1)
		}
		questions = append(questions, Question{
			Text:          fmt.Sprintf("%s deneme sorusu #%d: aşağıdakilerden hangisi doğrudur?", req.Subject, n),
			Options:       options,
			CorrectAnswer: correct,
			Explanation:   fmt.Sprintf("Doğru cevap %s seçeneğidir.", correct),
		})
	}
	return questions, nil
}
