package store

import (
	"fmt"
	"time"

	"github.com/kpssprep/marathon/internal/model"
)

// ExportAttempts builds an export of every archived attempt with its
// questions and per exam type statistics.
func (s *Store) ExportAttempts(examTypeID string) (*model.AttemptExport, error) {
	summaries, err := s.ListAttempts(examTypeID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}

	attempts := make([]model.Attempt, 0, len(summaries))
	for _, sum := range summaries {
		a, err := s.GetAttempt(sum.ID)
		if err != nil {
			return nil, fmt.Errorf("get attempt %s: %w", sum.ID, err)
		}
		if a != nil {
			attempts = append(attempts, *a)
		}
	}

	info, err := s.GetServiceInfo()
	if err != nil {
		return nil, fmt.Errorf("service info: %w", err)
	}

	return &model.AttemptExport{
		ExportedAt: time.Now().UTC(),
		Service:    info,
		Summary:    model.Summarize(attempts),
		Attempts:   attempts,
	}, nil
}
