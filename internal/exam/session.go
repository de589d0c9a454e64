package exam

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kpssprep/marathon/internal/catalog"

	"github.com/google/uuid"
)

// Step is a phase of the exam session.
type Step string

const (
	StepIntro   Step = "intro"
	StepLoading Step = "loading"
	StepActive  Step = "active"
	StepResult  Step = "result"
)

// FinishReason records why an exam ended.
type FinishReason string

const (
	FinishManual  FinishReason = "manual"
	FinishTimeout FinishReason = "timeout"
)

// ExamTypes resolves exam type ids.
type ExamTypes interface {
	Lookup(id string) (catalog.ExamType, bool)
}

// Options tunes a Session.
type Options struct {
	// BatchSize and Target size each stream; a zero Target uses the exam
	// type's question count.
	BatchSize int
	Target    int
	Pace      time.Duration
	// TickInterval is the countdown resolution, one second by default.
	TickInterval time.Duration
	// OnFinish is called outside the session lock after every finish.
	OnFinish func(Outcome)
	Now      func() time.Time
}

// Outcome is the archived record of a finished exam.
type Outcome struct {
	ID         string           `json:"id"`
	ExamType   catalog.ExamType `json:"exam_type"`
	Questions  []Question       `json:"-"`
	Answers    Answers          `json:"-"`
	Score      Result           `json:"score"`
	Review     []ReviewItem     `json:"review"`
	Target     int              `json:"target"`
	Reason     FinishReason     `json:"reason"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
}

// Session drives a single candidate's exam through
// intro -> loading -> active -> result.
type Session struct {
	fetcher BatchFetcher
	types   ExamTypes
	opts    Options

	mu        sync.Mutex
	step      Step
	epoch     uint64
	examType  catalog.ExamType
	stream    *Stream
	answers   Answers
	index     int
	timeLeft  int
	stopTimer chan struct{}
	startedAt time.Time
	outcome   *Outcome
	lastErr   error
}

// NewSession creates a session in the intro step.
func NewSession(fetcher BatchFetcher, types ExamTypes, opts Options) *Session {
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Session{
		fetcher: fetcher,
		types:   types,
		opts:    opts,
		step:    StepIntro,
		answers: Answers{},
	}
}

func (s *Session) targetFor(et catalog.ExamType) int {
	if s.opts.Target > 0 {
		return s.opts.Target
	}
	if et.QuestionCount > 0 {
		return et.QuestionCount
	}
	return DefaultTarget
}

// Start begins a new exam of the given type and blocks until the first
// batch is loaded. Any previous exam is discarded.
func (s *Session) Start(ctx context.Context, examTypeID string) error {
	et, ok := s.types.Lookup(examTypeID)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownExamType, examTypeID)
	}

	s.mu.Lock()
	if s.step == StepLoading {
		s.mu.Unlock()
		return fmt.Errorf("%w: an exam is already loading", ErrInvalidTransition)
	}
	s.teardownLocked()
	s.epoch++
	epoch := s.epoch
	stream := NewStream(s.fetcher, et.Subject, StreamConfig{
		BatchSize: s.opts.BatchSize,
		Target:    s.targetFor(et),
		Pace:      s.opts.Pace,
	})
	s.step = StepLoading
	s.examType = et
	s.stream = stream
	s.answers = Answers{}
	s.index = 0
	s.timeLeft = 0
	s.outcome = nil
	s.lastErr = nil
	s.mu.Unlock()

	slog.Info("starting exam", "exam_type", et.ID, "subject", et.Subject, "target", stream.Target())
	_, err := stream.Start(ctx)

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		stream.Cancel()
		return ErrSuperseded
	}
	if err != nil {
		s.step = StepIntro
		s.stream = nil
		s.lastErr = err
		s.mu.Unlock()
		slog.Error("exam start failed", "exam_type", et.ID, "error", err)
		return fmt.Errorf("start %s exam: %w", et.ID, err)
	}
	s.step = StepActive
	s.timeLeft = et.TimeLimitSeconds()
	s.startedAt = s.opts.Now()
	s.startTimerLocked(epoch)
	s.mu.Unlock()
	return nil
}

// Restart abandons the active exam and starts a new one of the same type.
func (s *Session) Restart(ctx context.Context) error {
	s.mu.Lock()
	if s.step != StepActive {
		step := s.step
		s.mu.Unlock()
		return fmt.Errorf("%w: cannot restart from %s", ErrInvalidTransition, step)
	}
	id := s.examType.ID
	s.mu.Unlock()
	return s.Start(ctx, id)
}

// Retake starts a fresh exam of the type just finished.
func (s *Session) Retake(ctx context.Context) error {
	s.mu.Lock()
	if s.step != StepResult {
		step := s.step
		s.mu.Unlock()
		return fmt.Errorf("%w: cannot retake from %s", ErrInvalidTransition, step)
	}
	id := s.examType.ID
	s.mu.Unlock()
	return s.Start(ctx, id)
}

// Exit leaves the result screen.
func (s *Session) Exit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.step != StepResult {
		return fmt.Errorf("%w: cannot exit from %s", ErrInvalidTransition, s.step)
	}
	s.resetLocked()
	return nil
}

// Close tears the session down from any step.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

func (s *Session) resetLocked() {
	s.teardownLocked()
	s.epoch++
	s.step = StepIntro
	s.examType = catalog.ExamType{}
	s.stream = nil
	s.answers = Answers{}
	s.index = 0
	s.timeLeft = 0
	s.outcome = nil
	s.lastErr = nil
}

func (s *Session) teardownLocked() {
	if s.stream != nil {
		s.stream.Cancel()
	}
	s.stopTimerLocked()
}

func (s *Session) startTimerLocked(epoch uint64) {
	stop := make(chan struct{})
	s.stopTimer = stop
	interval := s.opts.TickInterval
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				s.tick(epoch)
			}
		}
	}()
}

func (s *Session) stopTimerLocked() {
	if s.stopTimer != nil {
		close(s.stopTimer)
		s.stopTimer = nil
	}
}

func (s *Session) tick(epoch uint64) {
	s.mu.Lock()
	if s.epoch != epoch || s.step != StepActive {
		s.mu.Unlock()
		return
	}
	out := s.tickLocked()
	s.mu.Unlock()
	s.notify(out)
}

// Tick advances the countdown by one step, finishing the exam at zero.
func (s *Session) Tick() {
	s.mu.Lock()
	if s.step != StepActive {
		s.mu.Unlock()
		return
	}
	out := s.tickLocked()
	s.mu.Unlock()
	s.notify(out)
}

func (s *Session) tickLocked() *Outcome {
	if s.timeLeft > 0 {
		s.timeLeft--
	}
	if s.timeLeft == 0 {
		return s.finishLocked(FinishTimeout)
	}
	return nil
}

// SelectOption records an answer for the current question. Choosing
// again overwrites; it does nothing while the current question is pending.
func (s *Session) SelectOption(key OptionKey) error {
	if !key.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidOption, key)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.step != StepActive {
		return fmt.Errorf("%w: cannot answer in %s", ErrInvalidTransition, s.step)
	}
	q, ok := s.stream.At(s.index)
	if !ok {
		return nil
	}
	if _, ok := q.Options[key]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidOption, key)
	}
	s.answers[q.ID] = key
	return nil
}

// Navigate moves by delta. Moving back stops at the first question;
// moving forward past the last loaded question does nothing.
func (s *Session) Navigate(delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.step != StepActive {
		return fmt.Errorf("%w: cannot navigate in %s", ErrInvalidTransition, s.step)
	}
	next := s.index + delta
	switch {
	case next < 0:
		next = 0
	case next >= s.stream.Len():
		return nil
	}
	s.index = next
	return nil
}

// JumpToNextUnanswered moves to the first unanswered loaded question after
// the current one. When every loaded question is answered it stays put
// while more batches are streaming, and otherwise moves to the last loaded
// question.
func (s *Session) JumpToNextUnanswered() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.step != StepActive {
		return fmt.Errorf("%w: cannot jump in %s", ErrInvalidTransition, s.step)
	}
	questions := s.stream.Questions()
	for i := s.index + 1; i < len(questions); i++ {
		if _, answered := s.answers[questions[i].ID]; !answered {
			s.index = i
			return nil
		}
	}
	if len(s.answers) >= len(questions) && s.stream.Progress().Streaming {
		return nil
	}
	if last := len(questions) - 1; s.index < last {
		s.index = last
	}
	return nil
}

// Finish scores the loaded questions and moves to the result step.
// Finishing an already finished exam is a no-op.
func (s *Session) Finish() error {
	s.mu.Lock()
	switch s.step {
	case StepResult:
		s.mu.Unlock()
		return nil
	case StepActive:
	default:
		step := s.step
		s.mu.Unlock()
		return fmt.Errorf("%w: cannot finish from %s", ErrInvalidTransition, step)
	}
	out := s.finishLocked(FinishManual)
	s.mu.Unlock()
	s.notify(out)
	return nil
}

func (s *Session) finishLocked(reason FinishReason) *Outcome {
	s.stream.Cancel()
	s.stopTimerLocked()

	questions := s.stream.Questions()
	answers := s.answers.clone()
	result := Score(questions, answers)

	out := &Outcome{
		ID:         uuid.NewString(),
		ExamType:   s.examType,
		Questions:  questions,
		Answers:    answers,
		Score:      result,
		Review:     Review(questions, answers),
		Target:     s.stream.Target(),
		Reason:     reason,
		StartedAt:  s.startedAt,
		FinishedAt: s.opts.Now(),
	}
	s.outcome = out
	s.step = StepResult

	slog.Info("exam finished", "exam_type", s.examType.ID, "reason", reason,
		"loaded", len(questions), "correct", result.Correct, "incorrect", result.Incorrect,
		"empty", result.Empty, "net", result.Net)
	return out
}

func (s *Session) notify(out *Outcome) {
	if out != nil && s.opts.OnFinish != nil {
		s.opts.OnFinish(*out)
	}
}

// Step returns the current phase.
func (s *Session) Step() Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

// LastError returns the error of the most recent failed start, if any.
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// IsStartFailure reports whether err came from fetching the first batch.
func IsStartFailure(err error) bool {
	return errors.Is(err, ErrBatchUnavailable) ||
		errors.Is(err, ErrGeneration) ||
		errors.Is(err, ErrEmptyFirstBatch)
}
