package exam

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultBatchSize is the number of questions requested per batch.
	DefaultBatchSize = 20
	// DefaultTarget is the number of questions in a full exam.
	DefaultTarget = 120
	// DefaultPace spaces background batch requests.
	DefaultPace = time.Second
)

// StreamConfig sizes a question stream.
type StreamConfig struct {
	BatchSize int
	Target    int
	Pace      time.Duration
}

func (c StreamConfig) withDefaults() StreamConfig {
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.Target <= 0 {
		c.Target = DefaultTarget
	}
	if c.Pace < 0 {
		c.Pace = 0
	}
	return c
}

// BatchesNeeded returns how many batches follow the first one to reach target.
func BatchesNeeded(target, batchSize int) int {
	if batchSize <= 0 || target <= batchSize {
		return 0
	}
	return (target - batchSize + batchSize - 1) / batchSize
}

// Progress is a point-in-time view of a stream.
type Progress struct {
	Loaded    int  `json:"loaded"`
	Target    int  `json:"target"`
	Streaming bool `json:"streaming"`
}

// Stream accumulates question batches for one exam: the first batch
// synchronously, the rest in a background goroutine. Questions are only
// ever appended, deduplicated by id and capped at the target.
type Stream struct {
	fetcher BatchFetcher
	subject string
	cfg     StreamConfig

	mu        sync.RWMutex
	questions []Question
	seen      map[string]struct{}
	started   bool
	streaming bool
	cancelled bool
	cancel    context.CancelFunc

	done chan struct{}
}

// NewStream creates a stream; nothing is fetched until Start.
func NewStream(fetcher BatchFetcher, subject string, cfg StreamConfig) *Stream {
	return &Stream{
		fetcher: fetcher,
		subject: subject,
		cfg:     cfg.withDefaults(),
		seen:    make(map[string]struct{}),
		done:    make(chan struct{}),
	}
}

// Start fetches the first batch and, when more are needed, launches the
// background loop. It returns the questions loaded so far.
func (s *Stream) Start(ctx context.Context) ([]Question, error) {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		cancel()
		return nil, fmt.Errorf("question stream already started")
	}
	s.started = true
	if s.cancelled {
		s.mu.Unlock()
		cancel()
		close(s.done)
		return nil, ErrStreamCancelled
	}
	s.cancel = cancel
	s.mu.Unlock()

	first, err := s.fetcher.Fetch(ctx, s.subject, s.cfg.BatchSize, 0)
	if err == nil && len(first) == 0 {
		err = ErrEmptyFirstBatch
	}

	s.mu.Lock()
	if s.cancelled {
		err = ErrStreamCancelled
	}
	if err != nil {
		s.mu.Unlock()
		cancel()
		close(s.done)
		return nil, err
	}
	s.appendLocked(first)
	needed := BatchesNeeded(s.cfg.Target, s.cfg.BatchSize)
	s.streaming = needed > 0 && len(s.questions) < s.cfg.Target
	loaded := s.snapshotLocked()
	streaming := s.streaming
	s.mu.Unlock()

	slog.Info("first question batch loaded", "subject", s.subject, "count", len(loaded), "remaining_batches", needed)

	if !streaming {
		cancel()
		close(s.done)
		return loaded, nil
	}
	go s.run(ctx, needed)
	return loaded, nil
}

func (s *Stream) run(ctx context.Context, needed int) {
	defer close(s.done)
	defer func() {
		s.mu.Lock()
		s.streaming = false
		s.mu.Unlock()
	}()

	for i := 1; i <= needed; i++ {
		if s.Len() >= s.cfg.Target {
			return
		}

		t := time.NewTimer(s.cfg.Pace)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}

		if s.stopped(ctx) {
			return
		}

		batch, err := s.fetcher.Fetch(ctx, s.subject, s.cfg.BatchSize, i)
		if err != nil {
			if s.stopped(ctx) {
				return
			}
			slog.Warn("background question batch skipped", "subject", s.subject, "batch", i, "error", err)
			continue
		}

		if !s.merge(ctx, batch, i) {
			return
		}
	}
}

func (s *Stream) stopped(ctx context.Context) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cancelled || ctx.Err() != nil
}

// merge appends batch unless the stream was cancelled. It reports whether
// the loop should continue.
func (s *Stream) merge(ctx context.Context, batch []Question, index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelled || ctx.Err() != nil {
		slog.Debug("discarding batch fetched after cancellation", "subject", s.subject, "batch", index)
		return false
	}
	added := s.appendLocked(batch)
	slog.Debug("question batch merged", "subject", s.subject, "batch", index,
		"added", added, "duplicates", len(batch)-added, "loaded", len(s.questions))
	return true
}

func (s *Stream) appendLocked(batch []Question) int {
	added := 0
	for _, q := range batch {
		if len(s.questions) >= s.cfg.Target {
			break
		}
		if _, dup := s.seen[q.ID]; dup {
			continue
		}
		s.seen[q.ID] = struct{}{}
		s.questions = append(s.questions, q)
		added++
	}
	return added
}

func (s *Stream) snapshotLocked() []Question {
	out := make([]Question, len(s.questions))
	copy(out, s.questions)
	return out
}

// Cancel stops background streaming. Once Cancel returns no further batch
// is merged; a fetch already in flight completes but is discarded.
func (s *Stream) Cancel() {
	s.mu.Lock()
	s.cancelled = true
	s.streaming = false
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Questions returns a copy of the loaded questions in order.
func (s *Stream) Questions() []Question {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Len returns the number of loaded questions.
func (s *Stream) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.questions)
}

// At returns the question at index i if it is loaded.
func (s *Stream) At(i int) (Question, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i < 0 || i >= len(s.questions) {
		return Question{}, false
	}
	return s.questions[i], true
}

// Progress reports loaded count, target and whether streaming continues.
func (s *Stream) Progress() Progress {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Progress{
		Loaded:    len(s.questions),
		Target:    s.cfg.Target,
		Streaming: s.streaming && !s.cancelled,
	}
}

// Target returns the configured question count.
func (s *Stream) Target() int { return s.cfg.Target }

// BatchSize returns the configured batch size.
func (s *Stream) BatchSize() int { return s.cfg.BatchSize }

// Done is closed once the stream stops fetching.
func (s *Stream) Done() <-chan struct{} { return s.done }
