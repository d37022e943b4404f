package recommend_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devfeed/backend/internal/cache"
	"github.com/devfeed/backend/internal/recommend"
)

type fakeCatalog struct {
	items []recommend.ContentItem
	err   error
	calls int32
}

func (c *fakeCatalog) Query(ctx context.Context, hints recommend.CatalogHints) ([]recommend.ContentItem, error) {
	atomic.AddInt32(&c.calls, 1)
	return c.items, c.err
}

type countingEngine struct {
	name  recommend.Engine
	err   error
	calls int32
}

func (e *countingEngine) Name() recommend.Engine { return e.name }

func (e *countingEngine) Score(ctx context.Context, req recommend.Request, items []recommend.ContentItem) ([]recommend.Result, error) {
	atomic.AddInt32(&e.calls, 1)
	if e.err != nil {
		return nil, e.err
	}
	results := make([]recommend.Result, len(items))
	for i, item := range items {
		results[i] = recommend.Result{
			Item:       item,
			Score:      item.QualityScore,
			Confidence: 0.6,
			Engine:     e.name,
		}
	}
	return results, nil
}

func goItems(n int, quality float64) []recommend.ContentItem {
	items := make([]recommend.ContentItem, n)
	for i := range items {
		items[i] = recommend.ContentItem{
			ID:           fmt.Sprintf("go-%d", i),
			Text:         "golang in practice",
			Technologies: []string{"go"},
			QualityScore: quality,
		}
	}
	return items
}

func goRequest() recommend.Request {
	return recommend.Request{
		UserID:       "user-1",
		Title:        "go reading list",
		Technologies: []string{"go"},
		Preference:   recommend.PreferenceFast,
	}
}

func TestRecommendCachesIdenticalRequests(t *testing.T) {
	catalog := &fakeCatalog{items: goItems(5, 8)}
	engine := &countingEngine{name: recommend.EngineFast}
	resultCache := cache.NewLayer(nil, 5*time.Minute, time.Hour)

	orch := recommend.NewOrchestrator(recommend.DefaultConfig(), recommend.Deps{
		Catalog:    catalog,
		Cache:      resultCache,
		FastEngine: engine,
	})

	first, err := orch.Recommend(context.Background(), goRequest())
	require.NoError(t, err)
	assert.False(t, first.CacheHit)
	require.NotEmpty(t, first.Results)

	second, err := orch.Recommend(context.Background(), goRequest())
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.Equal(t, first.Results, second.Results)
	assert.EqualValues(t, 1, atomic.LoadInt32(&engine.calls), "cached call must not recompute")
	assert.EqualValues(t, 1, atomic.LoadInt32(&catalog.calls))
}

func TestRecommendCacheKeyNormalization(t *testing.T) {
	catalog := &fakeCatalog{items: goItems(3, 8)}
	engine := &countingEngine{name: recommend.EngineFast}
	resultCache := cache.NewLayer(nil, 5*time.Minute, time.Hour)

	orch := recommend.NewOrchestrator(recommend.DefaultConfig(), recommend.Deps{
		Catalog:    catalog,
		Cache:      resultCache,
		FastEngine: engine,
	})

	_, err := orch.Recommend(context.Background(), goRequest())
	require.NoError(t, err)

	reordered := goRequest()
	reordered.Title = "  go   reading list "
	reordered.Technologies = []string{"GO", "go"}
	resp, err := orch.Recommend(context.Background(), reordered)
	require.NoError(t, err)
	assert.True(t, resp.CacheHit, "case and whitespace noise must address the same entry")
}

func TestInvalidateUserForcesRecompute(t *testing.T) {
	catalog := &fakeCatalog{items: goItems(3, 8)}
	engine := &countingEngine{name: recommend.EngineFast}
	resultCache := cache.NewLayer(nil, 5*time.Minute, time.Hour)

	orch := recommend.NewOrchestrator(recommend.DefaultConfig(), recommend.Deps{
		Catalog:    catalog,
		Cache:      resultCache,
		FastEngine: engine,
	})

	_, err := orch.Recommend(context.Background(), goRequest())
	require.NoError(t, err)

	orch.InvalidateUser(context.Background(), "user-1")

	resp, err := orch.Recommend(context.Background(), goRequest())
	require.NoError(t, err)
	assert.False(t, resp.CacheHit)
	assert.EqualValues(t, 2, atomic.LoadInt32(&engine.calls))
}

func TestRecommendRespectsMaxRecommendations(t *testing.T) {
	catalog := &fakeCatalog{items: goItems(30, 8)}
	orch := recommend.NewOrchestrator(recommend.DefaultConfig(), recommend.Deps{
		Catalog:    catalog,
		FastEngine: &countingEngine{name: recommend.EngineFast},
	})

	req := goRequest()
	req.MaxRecommendations = 5
	resp, err := orch.Recommend(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, resp.Results, 5)

	// Unset falls back to the configured default.
	resp, err = orch.Recommend(context.Background(), goRequest())
	require.NoError(t, err)
	assert.Len(t, resp.Results, recommend.DefaultConfig().MaxRecommendations)
}

func TestRecommendDropsLowQualityCandidates(t *testing.T) {
	catalog := &fakeCatalog{items: append(goItems(2, 8), goItems(2, 3)...)}
	orch := recommend.NewOrchestrator(recommend.DefaultConfig(), recommend.Deps{
		Catalog:    catalog,
		FastEngine: &countingEngine{name: recommend.EngineFast},
	})

	req := goRequest()
	req.QualityThreshold = 7
	resp, err := orch.Recommend(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)
	for _, r := range resp.Results {
		assert.GreaterOrEqual(t, r.Item.QualityScore, 7.0)
	}
}

func TestRecommendNoRelevantContent(t *testing.T) {
	catalog := &fakeCatalog{items: []recommend.ContentItem{
		{ID: "py", Text: "python tips", Technologies: []string{"python"}, QualityScore: 6},
	}}
	orch := recommend.NewOrchestrator(recommend.DefaultConfig(), recommend.Deps{
		Catalog:    catalog,
		FastEngine: &countingEngine{name: recommend.EngineFast},
	})

	resp, err := orch.Recommend(context.Background(), goRequest())
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
	assert.Equal(t, recommend.ReasonNoRelevantContent, resp.Reason)
	assert.False(t, resp.Degraded)
}

func TestRecommendEngineFailureDegrades(t *testing.T) {
	catalog := &fakeCatalog{items: goItems(3, 8)}
	orch := recommend.NewOrchestrator(recommend.DefaultConfig(), recommend.Deps{
		Catalog:    catalog,
		FastEngine: &countingEngine{name: recommend.EngineFast, err: errors.New("model host down")},
	})

	resp, err := orch.Recommend(context.Background(), goRequest())
	require.NoError(t, err, "engine failure degrades, it does not error")
	assert.True(t, resp.Degraded)
	assert.Equal(t, recommend.ReasonEngineUnavailable, resp.Reason)
	assert.Empty(t, resp.Results)
}

func TestRecommendHybridDegradesToSurvivingEngine(t *testing.T) {
	catalog := &fakeCatalog{items: goItems(3, 8)}
	orch := recommend.NewOrchestrator(recommend.DefaultConfig(), recommend.Deps{
		Catalog:       catalog,
		FastEngine:    &countingEngine{name: recommend.EngineFast},
		ContextEngine: &countingEngine{name: recommend.EngineContext, err: errors.New("context down")},
	})

	req := goRequest()
	req.Preference = recommend.PreferenceHybrid
	resp, err := orch.Recommend(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, resp.Degraded)
	assert.Equal(t, recommend.ReasonEnsembleDegraded, resp.Reason)
	assert.Equal(t, recommend.EngineFast, resp.Engine)
	assert.NotEmpty(t, resp.Results)
}

func TestRecommendCatalogFailureIsAnError(t *testing.T) {
	catalog := &fakeCatalog{err: errors.New("store offline")}
	orch := recommend.NewOrchestrator(recommend.DefaultConfig(), recommend.Deps{
		Catalog:    catalog,
		FastEngine: &countingEngine{name: recommend.EngineFast},
	})

	_, err := orch.Recommend(context.Background(), goRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalog query failed")
}

func TestRecommendWorksWithoutCache(t *testing.T) {
	catalog := &fakeCatalog{items: goItems(3, 8)}
	engine := &countingEngine{name: recommend.EngineFast}
	orch := recommend.NewOrchestrator(recommend.DefaultConfig(), recommend.Deps{
		Catalog:    catalog,
		FastEngine: engine,
	})

	for i := 0; i < 3; i++ {
		resp, err := orch.Recommend(context.Background(), goRequest())
		require.NoError(t, err)
		assert.False(t, resp.CacheHit)
	}
	assert.EqualValues(t, 3, atomic.LoadInt32(&engine.calls))
}

func TestStatsReflectTraffic(t *testing.T) {
	catalog := &fakeCatalog{items: goItems(3, 8)}
	resultCache := cache.NewLayer(nil, 5*time.Minute, time.Hour)
	orch := recommend.NewOrchestrator(recommend.DefaultConfig(), recommend.Deps{
		Catalog:    catalog,
		Cache:      resultCache,
		FastEngine: &countingEngine{name: recommend.EngineFast},
	})

	_, err := orch.Recommend(context.Background(), goRequest())
	require.NoError(t, err)
	_, err = orch.Recommend(context.Background(), goRequest())
	require.NoError(t, err)

	snap := orch.Stats()
	assert.Equal(t, 2, snap.Samples)
	assert.InDelta(t, 0.5, snap.HitRate, 0.001)
	assert.Zero(t, snap.ErrorRate)
}
