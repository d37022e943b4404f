package recommend

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubScorer struct {
	name    Engine
	results []Result
	err     error
	delay   time.Duration
	calls   int32
}

func (s *stubScorer) Name() Engine { return s.name }

func (s *stubScorer) Score(ctx context.Context, req Request, items []ContentItem) ([]Result, error) {
	atomic.AddInt32(&s.calls, 1)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.results, s.err
}

func result(id string, engine Engine, score, confidence float64) Result {
	return Result{Item: ContentItem{ID: id}, Score: score, Confidence: confidence, Engine: engine}
}

func TestHybridMergeWeightsAndBoostsConfidence(t *testing.T) {
	fast := &stubScorer{name: EngineFast, results: []Result{
		result("shared", EngineFast, 5, 0.6),
		result("fast-only", EngineFast, 4, 0.6),
	}}
	contextual := &stubScorer{name: EngineContext, results: []Result{
		result("shared", EngineContext, 8, 0.8),
		result("context-only", EngineContext, 9, 0.7),
	}}

	ensemble := NewEnsemble(fast, contextual, DefaultConfig())
	outcome, err := ensemble.Dispatch(context.Background(), EngineHybrid, Request{UserID: "user-1", MaxRecommendations: 10}, nil)
	require.NoError(t, err)
	require.NotNil(t, outcome)
	assert.Equal(t, EngineHybrid, outcome.Engine)
	assert.False(t, outcome.Degraded)
	require.Len(t, outcome.Results, 3)

	byID := make(map[string]Result)
	for _, r := range outcome.Results {
		byID[r.Item.ID] = r
	}

	shared := byID["shared"]
	assert.InDelta(t, 0.4*5+0.6*8, shared.Score, 0.001)
	assert.InDelta(t, 0.9, shared.Confidence, 0.001, "agreement boost on top of the higher confidence")
	assert.Equal(t, EngineHybrid, shared.Engine)

	assert.Equal(t, EngineFast, byID["fast-only"].Engine)
	assert.InDelta(t, 0.6, byID["fast-only"].Confidence, 0.001, "single-engine items pass through unboosted")
	assert.Equal(t, EngineContext, byID["context-only"].Engine)

	// Highest merged score first.
	assert.Equal(t, "context-only", outcome.Results[0].Item.ID)
	assert.Equal(t, "shared", outcome.Results[1].Item.ID)
}

func TestHybridMergeConfidenceNeverExceedsOne(t *testing.T) {
	fast := &stubScorer{name: EngineFast, results: []Result{result("x", EngineFast, 5, 0.95)}}
	contextual := &stubScorer{name: EngineContext, results: []Result{result("x", EngineContext, 5, 0.95)}}

	ensemble := NewEnsemble(fast, contextual, DefaultConfig())
	outcome, err := ensemble.Dispatch(context.Background(), EngineHybrid, Request{UserID: "user-1", MaxRecommendations: 10}, nil)
	require.NoError(t, err)
	require.Len(t, outcome.Results, 1)
	assert.InDelta(t, 1.0, outcome.Results[0].Confidence, 0.001)
}

func TestHybridFallsBackWhenContextEngineTimesOut(t *testing.T) {
	fast := &stubScorer{name: EngineFast, results: []Result{result("a", EngineFast, 7, 0.6)}}
	contextual := &stubScorer{name: EngineContext, delay: 2 * time.Second}

	cfg := DefaultConfig()
	cfg.FastTimeout = time.Second
	cfg.ContextTimeout = 30 * time.Millisecond

	ensemble := NewEnsemble(fast, contextual, cfg)
	start := time.Now()
	outcome, err := ensemble.Dispatch(context.Background(), EngineHybrid, Request{UserID: "user-1", MaxRecommendations: 10}, nil)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.True(t, outcome.Degraded)
	assert.Equal(t, EngineFast, outcome.Engine)
	require.Len(t, outcome.Results, 1)
	assert.Equal(t, "a", outcome.Results[0].Item.ID)
	assert.Less(t, elapsed, time.Second, "slow engine must not hold the response past its own timeout")
}

func TestHybridFallsBackWhenFastEngineFails(t *testing.T) {
	fast := &stubScorer{name: EngineFast, err: errors.New("boom")}
	contextual := &stubScorer{name: EngineContext, results: []Result{result("b", EngineContext, 6, 0.8)}}

	ensemble := NewEnsemble(fast, contextual, DefaultConfig())
	outcome, err := ensemble.Dispatch(context.Background(), EngineHybrid, Request{UserID: "user-1", MaxRecommendations: 10}, nil)
	require.NoError(t, err)
	assert.True(t, outcome.Degraded)
	assert.Equal(t, EngineContext, outcome.Engine)
	require.Len(t, outcome.Results, 1)
}

func TestHybridBothEnginesFailing(t *testing.T) {
	fast := &stubScorer{name: EngineFast, err: errors.New("fast down")}
	contextual := &stubScorer{name: EngineContext, err: errors.New("context down")}

	ensemble := NewEnsemble(fast, contextual, DefaultConfig())
	outcome, err := ensemble.Dispatch(context.Background(), EngineHybrid, Request{UserID: "user-1"}, nil)
	assert.Nil(t, outcome)
	assert.ErrorIs(t, err, ErrEngineUnavailable)
}

func TestSingleDispatchTruncatesAndTags(t *testing.T) {
	results := make([]Result, 20)
	for i := range results {
		results[i] = result(string(rune('a'+i)), EngineFast, float64(20-i), 0.6)
	}
	fast := &stubScorer{name: EngineFast, results: results}
	contextual := &stubScorer{name: EngineContext}

	ensemble := NewEnsemble(fast, contextual, DefaultConfig())
	outcome, err := ensemble.Dispatch(context.Background(), EngineFast, Request{UserID: "user-1", MaxRecommendations: 5}, nil)
	require.NoError(t, err)
	assert.Equal(t, EngineFast, outcome.Engine)
	assert.Len(t, outcome.Results, 5)
	assert.Zero(t, atomic.LoadInt32(&contextual.calls), "fast dispatch never touches the context engine")
}

func TestSingleDispatchTimeout(t *testing.T) {
	fast := &stubScorer{name: EngineFast, delay: time.Second}
	contextual := &stubScorer{name: EngineContext}

	cfg := DefaultConfig()
	cfg.FastTimeout = 20 * time.Millisecond

	ensemble := NewEnsemble(fast, contextual, cfg)
	_, err := ensemble.Dispatch(context.Background(), EngineFast, Request{UserID: "user-1"}, nil)
	assert.ErrorIs(t, err, ErrEngineTimeout)
	assert.ErrorIs(t, err, ErrEngineUnavailable)
}

func TestDispatchSurfacesCallerCancellation(t *testing.T) {
	fast := &stubScorer{name: EngineFast, delay: time.Second}
	contextual := &stubScorer{name: EngineContext, delay: time.Second}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	ensemble := NewEnsemble(fast, contextual, DefaultConfig())
	_, err := ensemble.Dispatch(ctx, EngineHybrid, Request{UserID: "user-1"}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
