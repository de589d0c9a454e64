package exam

import "github.com/kpssprep/marathon/internal/catalog"

// View is a read-only snapshot of a session for rendering.
type View struct {
	Step     Step              `json:"step"`
	ExamType *catalog.ExamType `json:"exam_type,omitempty"`

	// Current is nil while the question at Index is still being generated.
	Current  *Question `json:"current,omitempty"`
	Pending  bool      `json:"pending"`
	Index    int       `json:"index"`
	Selected OptionKey `json:"selected,omitempty"`
	Answered int       `json:"answered"`

	Loaded    int     `json:"loaded"`
	Target    int     `json:"target"`
	Streaming bool    `json:"streaming"`
	Progress  float64 `json:"progress"`
	Batches   int     `json:"batches,omitempty"`

	TimeLeft int    `json:"time_left_seconds"`
	Clock    string `json:"clock"`

	CanGoBack      bool `json:"can_go_back"`
	NextPending    bool `json:"next_pending"`
	CanFinishAtEnd bool `json:"can_finish_at_end"`

	Result *Outcome `json:"result,omitempty"`
	Err    error    `json:"-"`
}

// View captures the session state.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		Step:     s.step,
		Index:    s.index,
		TimeLeft: s.timeLeft,
		Clock:    FormatClock(s.timeLeft),
		Err:      s.lastErr,
	}
	if s.step != StepIntro {
		et := s.examType
		v.ExamType = &et
	}
	if s.stream == nil {
		return v
	}

	p := s.stream.Progress()
	v.Loaded = p.Loaded
	v.Target = p.Target
	v.Streaming = p.Streaming
	v.Batches = 1 + BatchesNeeded(p.Target, s.stream.BatchSize())

	switch s.step {
	case StepActive:
		if q, ok := s.stream.At(s.index); ok {
			v.Current = &q
			v.Selected = s.answers[q.ID]
		} else {
			v.Pending = true
		}
		v.Answered = len(s.answers)
		if p.Target > 0 {
			v.Progress = min(float64(s.index+1)/float64(p.Target), 1)
		}
		v.CanGoBack = s.index > 0
		v.NextPending = s.index >= p.Loaded-1 && p.Streaming
		v.CanFinishAtEnd = s.index >= p.Target-1
	case StepResult:
		v.Result = s.outcome
		v.Answered = len(s.answers)
	}
	return v
}
