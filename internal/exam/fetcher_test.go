package exam

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/kpssprep/marathon/internal/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetcherFetch(t *testing.T) {
	gen := newFakeGenerator()
	qs, err := testFetcher(gen).Fetch(context.Background(), "Coğrafya", 20, 0)
	require.NoError(t, err)
	require.Len(t, qs, 20)

	ids := make(map[string]bool)
	for _, q := range qs {
		require.NoError(t, q.Validate())
		assert.True(t, strings.HasPrefix(q.ID, "exam_cografya_"), q.ID)
		assert.Equal(t, "Coğrafya", q.Subject)
		ids[q.ID] = true
	}
	assert.Len(t, ids, 20, "ids must be unique within a batch")
}

func TestFetcherRetries(t *testing.T) {
	tests := []struct {
		name      string
		failures  []error
		always    error
		wantCalls int
		wantErr   error
	}{
		{
			name:      "recovers after transient failures",
			failures:  []error{transientErr(), transientErr()},
			wantCalls: 3,
		},
		{
			name:      "gives up after three retries",
			always:    transientErr(),
			wantCalls: 4,
			wantErr:   ErrBatchUnavailable,
		},
		{
			name:      "malformed response is not retried",
			always:    fmt.Errorf("%w: parse JSON", llm.ErrInvalidResponse),
			wantCalls: 1,
			wantErr:   ErrGeneration,
		},
		{
			name:      "client error is not retried",
			always:    errors.New("401 unauthorized"),
			wantCalls: 1,
			wantErr:   ErrGeneration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := newFakeGenerator()
			gen.failures[0] = tt.failures
			if tt.always != nil {
				gen.always[0] = tt.always
			}

			qs, err := testFetcher(gen).Fetch(context.Background(), "Tarih", 20, 0)
			assert.Equal(t, tt.wantCalls, gen.callsFor(0))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, qs)
				return
			}
			require.NoError(t, err)
			assert.Len(t, qs, 20)
		})
	}
}

func TestFetcherCustomRetryBudget(t *testing.T) {
	gen := newFakeGenerator()
	gen.always[0] = transientErr()

	_, err := NewFetcher(gen, WithMaxRetries(1), WithRetryStep(1)).Fetch(context.Background(), "Tarih", 5, 0)
	require.ErrorIs(t, err, ErrBatchUnavailable)
	assert.True(t, llm.IsTransient(err))
	assert.Equal(t, 2, gen.callsFor(0))
}

func TestFetcherRejectsBrokenQuestions(t *testing.T) {
	gen := newFakeGenerator()
	gen.mutate = func(qs []llm.Question) {
		delete(qs[3].Options, "E")
	}

	_, err := testFetcher(gen).Fetch(context.Background(), "Tarih", 10, 0)
	require.ErrorIs(t, err, ErrGeneration)
	assert.Contains(t, err.Error(), "question 3")
	assert.Equal(t, 1, gen.callsFor(0))
}

func TestFetcherTruncatesOversizedBatch(t *testing.T) {
	gen := newFakeGenerator()
	gen.counts[2] = 30

	qs, err := testFetcher(gen).Fetch(context.Background(), "Tarih", 20, 2)
	require.NoError(t, err)
	assert.Len(t, qs, 20)
}

func TestFetcherInvalidArguments(t *testing.T) {
	f := testFetcher(newFakeGenerator())
	_, err := f.Fetch(context.Background(), "Tarih", 0, 0)
	assert.Error(t, err)
	_, err = f.Fetch(context.Background(), "Tarih", 20, -1)
	assert.Error(t, err)
}

func TestFetcherCancelledContext(t *testing.T) {
	gen := newFakeGenerator()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testFetcher(gen).Fetch(ctx, "Tarih", 20, 0)
	require.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrGeneration)
	assert.Equal(t, 0, gen.callsFor(0))
}

func TestFetcherPassesRequest(t *testing.T) {
	var got llm.Request
	gen := generatorFunc(func(_ context.Context, req llm.Request) ([]llm.Question, error) {
		got = req
		return makeBatch(req.Subject, req.BatchIndex, req.Count), nil
	})

	_, err := NewFetcher(gen, WithTarget(60)).Fetch(context.Background(), "Tarih", 15, 3)
	require.NoError(t, err)
	assert.Equal(t, llm.Request{Subject: "Tarih", Count: 15, BatchIndex: 3, Target: 60}, got)
}

type generatorFunc func(context.Context, llm.Request) ([]llm.Question, error)

func (f generatorFunc) GenerateQuestions(ctx context.Context, req llm.Request) ([]llm.Question, error) {
	return f(ctx, req)
}

func (f generatorFunc) Name() string { return "func" }
