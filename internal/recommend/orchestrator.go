package recommend

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/devfeed/backend/pkg/logger"
)

// CatalogHints narrows what the catalog is asked for. The core never knows
// how the catalog indexes content.
type CatalogHints struct {
	UserID       string
	Technologies []string
	Text         string
	Embedding    []float32
	Limit        int
}

// ContentCatalog supplies read-only candidate content per call.
type ContentCatalog interface {
	Query(ctx context.Context, hints CatalogHints) ([]ContentItem, error)
}

// ResultCache is the two-tier cache seen from the core. Implementations
// absorb their own failures; Get/Put never error.
type ResultCache interface {
	Get(ctx context.Context, req Request) ([]Result, bool)
	Put(ctx context.Context, req Request, results []Result)
	Invalidate(ctx context.Context, userID string)
}

// Deps are the injected collaborators. Catalog is required; the rest are
// optional and absent ones are no-ops.
type Deps struct {
	Catalog       ContentCatalog
	Cache         ResultCache
	Metrics       MetricsSink
	FastEngine    Scorer
	ContextEngine Scorer
}

// Orchestrator is the composition root of the recommendation path:
// cache lookup, relevance filter, engine selection, concurrent dispatch,
// ensemble combination, cache write-through, telemetry.
type Orchestrator struct {
	cfg      Config
	catalog  ContentCatalog
	cache    ResultCache
	filter   *RelevanceFilter
	ensemble *Ensemble
	monitor  *Monitor
}

func NewOrchestrator(cfg Config, deps Deps) *Orchestrator {
	fast := deps.FastEngine
	if fast == nil {
		fast = NewFastEngine()
	}
	contextual := deps.ContextEngine
	if contextual == nil {
		contextual = NewContextEngine()
	}

	return &Orchestrator{
		cfg:      cfg,
		catalog:  deps.Catalog,
		cache:    deps.Cache,
		filter:   NewRelevanceFilter(cfg.RelevanceThreshold, cfg.MaxWorkingSet),
		ensemble: NewEnsemble(fast, contextual, cfg),
		monitor:  NewMonitor(cfg.MonitorWindow, deps.Metrics),
	}
}

// Recommend is the single entry point. It only returns an error for request
// cancellation or an unreachable catalog; every engine-side failure comes
// back as a valid degraded Response with a reason code.
func (o *Orchestrator) Recommend(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	req = o.normalize(req)
	responseID := uuid.New().String()

	if o.cache != nil {
		if cached, ok := o.cache.Get(ctx, req); ok {
			o.record(start, true, engineOf(cached), false)
			logger.Debug("Recommendation served from cache",
				zap.String("user_id", req.UserID),
				zap.Int("results", len(cached)),
			)
			return &Response{
				ID:        responseID,
				Results:   cached,
				Engine:    engineOf(cached),
				CacheHit:  true,
				LatencyMS: time.Since(start).Milliseconds(),
			}, nil
		}
	}

	candidates, err := o.catalog.Query(ctx, CatalogHints{
		UserID:       req.UserID,
		Technologies: req.NormalizedTechnologies(),
		Text:         req.Title + " " + req.Description,
		Embedding:    req.Embedding,
		Limit:        o.cfg.MaxWorkingSet * 2,
	})
	if err != nil {
		o.record(start, false, "", true)
		return nil, fmt.Errorf("catalog query failed: %w", err)
	}

	candidates = dropBelowQuality(candidates, req.QualityThreshold)
	filtered := o.filter.Filter(req, candidates)
	if len(filtered) == 0 {
		o.record(start, false, "", false)
		return &Response{
			ID:        responseID,
			Results:   []Result{},
			Reason:    ReasonNoRelevantContent,
			LatencyMS: time.Since(start).Milliseconds(),
		}, nil
	}

	engine := SelectEngine(o.cfg, req)
	outcome, err := o.ensemble.Dispatch(ctx, engine, req, filtered)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		o.record(start, false, engine, true)
		logger.Error("All scoring engines failed",
			zap.String("user_id", req.UserID),
			zap.String("engine", string(engine)),
			zap.Error(err),
		)
		return &Response{
			ID:        responseID,
			Results:   []Result{},
			Engine:    engine,
			Degraded:  true,
			Reason:    ReasonEngineUnavailable,
			LatencyMS: time.Since(start).Milliseconds(),
		}, nil
	}

	if o.cache != nil {
		o.cache.Put(ctx, req, outcome.Results)
	}

	o.record(start, false, outcome.Engine, false)

	reason := ""
	if outcome.Degraded {
		reason = ReasonEnsembleDegraded
	}

	logger.Info("Recommendations computed",
		zap.String("user_id", req.UserID),
		zap.String("engine", string(outcome.Engine)),
		zap.Int("candidates", len(candidates)),
		zap.Int("filtered", len(filtered)),
		zap.Int("results", len(outcome.Results)),
		zap.Bool("degraded", outcome.Degraded),
	)

	return &Response{
		ID:        responseID,
		Results:   outcome.Results,
		Engine:    outcome.Engine,
		Degraded:  outcome.Degraded,
		Reason:    reason,
		LatencyMS: time.Since(start).Milliseconds(),
	}, nil
}

// InvalidateUser drops every cached result set derived from this user, in
// both tiers. Called when the user's content context changes.
func (o *Orchestrator) InvalidateUser(ctx context.Context, userID string) {
	if o.cache != nil {
		o.cache.Invalidate(ctx, userID)
	}
}

// Stats exposes the monitor's rolling aggregates for diagnostics.
func (o *Orchestrator) Stats() Snapshot {
	return o.monitor.Snapshot()
}

func (o *Orchestrator) normalize(req Request) Request {
	if req.MaxRecommendations <= 0 {
		req.MaxRecommendations = o.cfg.MaxRecommendations
	}
	if req.Preference == "" {
		req.Preference = PreferenceAuto
	}
	if req.QualityThreshold <= 0 {
		req.QualityThreshold = o.cfg.QualityThreshold
	}
	req.DiversityWeight = clamp(req.DiversityWeight, 0, 1)
	return req
}

func (o *Orchestrator) record(start time.Time, cacheHit bool, engine Engine, failed bool) {
	o.monitor.Record(Sample{
		Latency:   time.Since(start),
		CacheHit:  cacheHit,
		Engine:    engine,
		Err:       failed,
		Timestamp: time.Now(),
	})
}

func dropBelowQuality(items []ContentItem, threshold float64) []ContentItem {
	if threshold <= 0 {
		return items
	}
	kept := items[:0:0]
	for _, item := range items {
		if item.QualityScore >= threshold {
			kept = append(kept, item)
		}
	}
	return kept
}

func engineOf(results []Result) Engine {
	if len(results) == 0 {
		return ""
	}
	return results[0].Engine
}
