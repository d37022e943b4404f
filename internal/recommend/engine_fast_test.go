package recommend

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFastEngineScoresKnownItem(t *testing.T) {
	engine := NewFastEngine()
	req := Request{
		UserID:           "user-1",
		Technologies:     []string{"go"},
		TargetDifficulty: DifficultyIntermediate,
	}
	item := ContentItem{
		ID:           "go-1",
		Text:         "go concurrency patterns",
		Technologies: []string{"go"},
		QualityScore: 8,
		Difficulty:   DifficultyIntermediate,
	}

	results, err := engine.Score(context.Background(), req, []ContentItem{item})
	require.NoError(t, err)
	require.Len(t, results, 1)

	// quality 8*0.30 + tech 10*0.25 + mention 10*0.20 + difficulty 10*0.15,
	// recency absent.
	assert.InDelta(t, 8.4, results[0].Score, 0.001)
	assert.Equal(t, EngineFast, results[0].Engine)
	assert.Contains(t, results[0].Reasoning, "matches 1/1 technologies")
}

func TestFastEngineFixedConfidence(t *testing.T) {
	engine := NewFastEngine()
	req := Request{UserID: "user-1", Technologies: []string{"go", "rust"}}
	items := []ContentItem{
		{ID: "a", Text: "go and rust", Technologies: []string{"go", "rust"}, QualityScore: 9},
		{ID: "b", Text: "unrelated", QualityScore: 2},
	}

	results, err := engine.Score(context.Background(), req, items)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.InDelta(t, 0.6, r.Confidence, 0.001)
	}
}

func TestFastEngineRecency(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	engine := NewFastEngine()
	engine.now = func() int64 { return now.Unix() }

	req := Request{UserID: "user-1", Technologies: []string{"go"}}
	fresh := ContentItem{ID: "fresh", Text: "go", Technologies: []string{"go"}, QualityScore: 5, LastUpdated: now}
	stale := ContentItem{ID: "stale", Text: "go", Technologies: []string{"go"}, QualityScore: 5, LastUpdated: now.AddDate(-3, 0, 0)}

	results, err := engine.Score(context.Background(), req, []ContentItem{stale, fresh})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "fresh", results[0].Item.ID)
	assert.InDelta(t, 1.0, results[0].Score-results[1].Score, 0.001,
		"a full year of staleness costs exactly the recency weight")
}

func TestFastEngineEmbeddingBlend(t *testing.T) {
	engine := NewFastEngine()
	req := Request{
		UserID:       "user-1",
		Technologies: []string{"go"},
		Embedding:    []float32{1, 0, 0},
	}
	aligned := ContentItem{ID: "aligned", Text: "go", Technologies: []string{"go"}, QualityScore: 5, Embedding: []float32{1, 0, 0}}
	opposed := ContentItem{ID: "opposed", Text: "go", Technologies: []string{"go"}, QualityScore: 5, Embedding: []float32{0, 1, 0}}

	results, err := engine.Score(context.Background(), req, []ContentItem{opposed, aligned})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "aligned", results[0].Item.ID)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestFastEngineSortsDescending(t *testing.T) {
	engine := NewFastEngine()
	req := Request{UserID: "user-1", Technologies: []string{"go"}}
	items := []ContentItem{
		{ID: "weak", Text: "unrelated", QualityScore: 3},
		{ID: "strong", Text: "go", Technologies: []string{"go"}, QualityScore: 9},
		{ID: "middling", Text: "go", QualityScore: 5},
	}

	results, err := engine.Score(context.Background(), req, items)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
	assert.Equal(t, "strong", results[0].Item.ID)
}

func TestFastEngineHonorsCancellation(t *testing.T) {
	engine := NewFastEngine()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.Score(ctx, Request{UserID: "user-1"}, []ContentItem{{ID: "a"}})
	assert.ErrorIs(t, err, context.Canceled)
}
