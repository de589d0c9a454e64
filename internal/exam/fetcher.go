package exam

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/kpssprep/marathon/internal/llm"

	"github.com/sethvargo/go-retry"
)

const (
	// DefaultMaxRetries is the number of retries after the first attempt.
	DefaultMaxRetries = 3
	// DefaultRetryStep is multiplied by the attempt number between retries.
	DefaultRetryStep = time.Second
)

// BatchFetcher fetches one batch of questions for a subject.
type BatchFetcher interface {
	Fetch(ctx context.Context, subject string, batchSize, batchIndex int) ([]Question, error)
}

// Fetcher turns generator output into validated questions, retrying
// transient failures with a linearly growing delay.
type Fetcher struct {
	gen        llm.Generator
	target     int
	maxRetries uint64
	retryStep  time.Duration
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithMaxRetries sets how many times a transient failure is retried.
func WithMaxRetries(n int) FetcherOption {
	return func(f *Fetcher) {
		if n >= 0 {
			f.maxRetries = uint64(n)
		}
	}
}

// WithRetryStep sets the base delay of the linear backoff.
func WithRetryStep(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		if d > 0 {
			f.retryStep = d
		}
	}
}

// WithTarget sets the exam size passed along to the generator prompt.
func WithTarget(n int) FetcherOption {
	return func(f *Fetcher) {
		if n > 0 {
			f.target = n
		}
	}
}

// NewFetcher creates a fetcher backed by gen.
func NewFetcher(gen llm.Generator, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		gen:        gen,
		target:     DefaultTarget,
		maxRetries: DefaultMaxRetries,
		retryStep:  DefaultRetryStep,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// linearBackoff waits step, 2*step, 3*step, ... between attempts.
func linearBackoff(step time.Duration) retry.Backoff {
	var n atomic.Int64
	return retry.BackoffFunc(func() (time.Duration, bool) {
		return time.Duration(n.Add(1)) * step, false
	})
}

// Fetch returns at most batchSize questions for the given batch.
func (f *Fetcher) Fetch(ctx context.Context, subject string, batchSize, batchIndex int) ([]Question, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", batchSize)
	}
	if batchIndex < 0 {
		return nil, fmt.Errorf("batch index must not be negative, got %d", batchIndex)
	}

	req := llm.Request{
		Subject:    subject,
		Count:      batchSize,
		BatchIndex: batchIndex,
		Target:     f.target,
	}

	var (
		out      []Question
		attempts int
	)
	backoff := retry.WithMaxRetries(f.maxRetries, linearBackoff(f.retryStep))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		generated, err := f.gen.GenerateQuestions(ctx, req)
		if err != nil {
			if llm.IsTransient(err) {
				slog.Warn("question batch attempt failed",
					"subject", subject, "batch", batchIndex, "attempt", attempts, "error", err)
				return retry.RetryableError(err)
			}
			return err
		}
		out, err = convertBatch(subject, generated, batchSize)
		return err
	})
	if err != nil {
		switch {
		case llm.IsTransient(err):
			return nil, fmt.Errorf("%w: %s batch %d after %d attempts: %w",
				ErrBatchUnavailable, subject, batchIndex, attempts, err)
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return nil, err
		default:
			return nil, fmt.Errorf("%w: %s batch %d: %w", ErrGeneration, subject, batchIndex, err)
		}
	}

	slog.Debug("question batch fetched", "subject", subject, "batch", batchIndex, "count", len(out), "attempts", attempts)
	return out, nil
}

func convertBatch(subject string, generated []llm.Question, batchSize int) ([]Question, error) {
	if len(generated) > batchSize {
		generated = generated[:batchSize]
	}
	out := make([]Question, 0, len(generated))
	for i, g := range generated {
		q, err := newQuestion(subject, g)
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", i, err)
		}
		out = append(out, q)
	}
	return out, nil
}
