package recommend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/devfeed/backend/pkg/logger"
)

// Scorer is one scoring engine. Implementations are pure functions over the
// request and the immutable filtered item set.
type Scorer interface {
	Name() Engine
	Score(ctx context.Context, req Request, items []ContentItem) ([]Result, error)
}

// Outcome is what a dispatch settles to: the ranked results, the engine tag
// they carry, and whether part of the ensemble was lost along the way.
type Outcome struct {
	Results  []Result
	Engine   Engine
	Degraded bool
}

// Ensemble dispatches the selected engines under independent timeouts and
// merges their outputs. In hybrid mode the two engines run as separate
// goroutines; the merge only happens after both have settled (completed,
// timed out, or failed), and a late result is discarded, never merged
// retroactively.
type Ensemble struct {
	fast       Scorer
	contextual Scorer
	cfg        Config
}

func NewEnsemble(fast, contextual Scorer, cfg Config) *Ensemble {
	return &Ensemble{fast: fast, contextual: contextual, cfg: cfg}
}

type engineOutcome struct {
	results []Result
	err     error
}

func (e *Ensemble) Dispatch(ctx context.Context, engine Engine, req Request, items []ContentItem) (*Outcome, error) {
	switch engine {
	case EngineHybrid:
		return e.dispatchHybrid(ctx, req, items)
	case EngineContext:
		return e.dispatchSingle(ctx, e.contextual, e.cfg.ContextTimeout, req, items)
	default:
		return e.dispatchSingle(ctx, e.fast, e.cfg.FastTimeout, req, items)
	}
}

func (e *Ensemble) dispatchSingle(ctx context.Context, s Scorer, timeout time.Duration, req Request, items []ContentItem) (*Outcome, error) {
	out := <-e.run(ctx, s, timeout, req, items)
	if out.err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%s engine failed: %w", s.Name(), errors.Join(ErrEngineUnavailable, out.err))
	}
	return &Outcome{
		Results: truncate(out.results, req.MaxRecommendations),
		Engine:  s.Name(),
	}, nil
}

func (e *Ensemble) dispatchHybrid(ctx context.Context, req Request, items []ContentItem) (*Outcome, error) {
	fastCh := e.run(ctx, e.fast, e.cfg.FastTimeout, req, items)
	contextCh := e.run(ctx, e.contextual, e.cfg.ContextTimeout, req, items)

	fastOut := <-fastCh
	contextOut := <-contextCh

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	switch {
	case fastOut.err == nil && contextOut.err == nil:
		return &Outcome{
			Results: truncate(e.merge(fastOut.results, contextOut.results), req.MaxRecommendations),
			Engine:  EngineHybrid,
		}, nil
	case fastOut.err == nil:
		logger.Warn("Ensemble degraded to fast engine", zap.Error(contextOut.err))
		return &Outcome{
			Results:  truncate(fastOut.results, req.MaxRecommendations),
			Engine:   EngineFast,
			Degraded: true,
		}, nil
	case contextOut.err == nil:
		logger.Warn("Ensemble degraded to context engine", zap.Error(fastOut.err))
		return &Outcome{
			Results:  truncate(contextOut.results, req.MaxRecommendations),
			Engine:   EngineContext,
			Degraded: true,
		}, nil
	default:
		return nil, fmt.Errorf("both engines failed: %w", errors.Join(ErrEngineUnavailable, fastOut.err, contextOut.err))
	}
}

// run launches a scorer on its own goroutine under an independent timeout.
// The result channel is buffered so a late engine can always finish its send
// and exit; nobody waits for it past the timeout.
func (e *Ensemble) run(ctx context.Context, s Scorer, timeout time.Duration, req Request, items []ContentItem) <-chan engineOutcome {
	settled := make(chan engineOutcome, 1)
	go func() {
		engineCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		done := make(chan engineOutcome, 1)
		go func() {
			results, err := s.Score(engineCtx, req, items)
			done <- engineOutcome{results: results, err: err}
		}()

		select {
		case out := <-done:
			settled <- out
		case <-engineCtx.Done():
			settled <- engineOutcome{err: fmt.Errorf("%s: %w", s.Name(), ErrEngineTimeout)}
		}
	}()
	return settled
}

// merge combines two complete engine runs. Items scored by both take the
// weighted average (fast 0.4, context 0.6 by default) and a confidence boost
// for engine agreement; single-engine items pass through unboosted.
func (e *Ensemble) merge(fastResults, contextResults []Result) []Result {
	byID := make(map[string]Result, len(fastResults))
	order := make([]string, 0, len(fastResults)+len(contextResults))

	for _, r := range fastResults {
		byID[r.Item.ID] = r
		order = append(order, r.Item.ID)
	}

	for _, c := range contextResults {
		f, ok := byID[c.Item.ID]
		if !ok {
			byID[c.Item.ID] = c
			order = append(order, c.Item.ID)
			continue
		}
		combined := c
		combined.Score = e.cfg.EnsembleFastWeight*f.Score + e.cfg.EnsembleContextWeight*c.Score
		combined.Confidence = clamp(max(f.Confidence, c.Confidence)+0.1, 0, 1)
		combined.Engine = EngineHybrid
		byID[c.Item.ID] = combined
	}

	merged := make([]Result, 0, len(order))
	for _, id := range order {
		merged = append(merged, byID[id])
	}
	sortResults(merged)
	return merged
}

func truncate(results []Result, maxLen int) []Result {
	if maxLen > 0 && len(results) > maxLen {
		return results[:maxLen]
	}
	return results
}

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
