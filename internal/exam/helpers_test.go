package exam

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/kpssprep/marathon/internal/catalog"
	"github.com/kpssprep/marathon/internal/llm"

	"github.com/stretchr/testify/require"
)

// fakeGenerator serves synthetic batches and can be told to fail, block,
// or repeat earlier content for specific batch indices.
type fakeGenerator struct {
	mu       sync.Mutex
	calls    map[int]int
	failures map[int][]error
	always   map[int]error
	repeat   map[int]int
	counts   map[int]int
	gates    map[int]chan struct{}
	mutate   func([]llm.Question)
	started  chan int
}

func newFakeGenerator() *fakeGenerator {
	return &fakeGenerator{
		calls:    make(map[int]int),
		failures: make(map[int][]error),
		always:   make(map[int]error),
		repeat:   make(map[int]int),
		counts:   make(map[int]int),
		gates:    make(map[int]chan struct{}),
		started:  make(chan int, 64),
	}
}

func (f *fakeGenerator) Name() string { return "fake" }

func (f *fakeGenerator) GenerateQuestions(ctx context.Context, req llm.Request) ([]llm.Question, error) {
	f.mu.Lock()
	f.calls[req.BatchIndex]++
	attempt := f.calls[req.BatchIndex]
	var err error
	if errs := f.failures[req.BatchIndex]; attempt <= len(errs) {
		err = errs[attempt-1]
	}
	if e, ok := f.always[req.BatchIndex]; ok {
		err = e
	}
	src := req.BatchIndex
	if r, ok := f.repeat[src]; ok {
		src = r
	}
	count := req.Count
	if c, ok := f.counts[req.BatchIndex]; ok {
		count = c
	}
	gate := f.gates[req.BatchIndex]
	mutate := f.mutate
	f.mu.Unlock()

	select {
	case f.started <- req.BatchIndex:
	default:
	}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	batch := makeBatch(req.Subject, src, count)
	if mutate != nil {
		mutate(batch)
	}
	return batch, nil
}

func (f *fakeGenerator) callsFor(batch int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[batch]
}

// correctOption is the answer makeBatch assigns to question j of a batch.
func correctOption(j int) string {
	return string(OptionKeys[j%len(OptionKeys)])
}

func makeBatch(subject string, batch, count int) []llm.Question {
	out := make([]llm.Question, 0, count)
	for j := range count {
		options := make(map[string]string, 5)
		for _, k := range OptionKeys {
			options[string(k)] = fmt.Sprintf("seçenek %s (%d/%d)", k, batch, j)
		}
		out = append(out, llm.Question{
			Text:          fmt.Sprintf("%s sorusu %d-%d", subject, batch, j),
			Options:       options,
			CorrectAnswer: correctOption(j),
			Explanation:   "açıklama",
		})
	}
	return out
}

func transientErr() error {
	return fmt.Errorf("%w: 503 service unavailable", llm.ErrTransient)
}

func testFetcher(gen llm.Generator) *Fetcher {
	return NewFetcher(gen, WithRetryStep(time.Millisecond))
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New(
		catalog.ExamType{ID: "tarih", Title: "Tarih Denemesi", Subject: "Tarih", QuestionCount: 120, TimeMinutes: 1},
		catalog.ExamType{ID: "cografya", Title: "Coğrafya Denemesi", Subject: "Coğrafya", QuestionCount: 60, TimeMinutes: 100},
	)
	require.NoError(t, err)
	return c
}

func waitStreamDone(t *testing.T, s *Stream) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not finish")
	}
}
