package evaluation

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devfeed/backend/internal/storage/models"
	"github.com/devfeed/backend/internal/storage/sqlite"
)

func newTestDB(t *testing.T) *sqlite.Client {
	t.Helper()
	db, err := sqlite.NewClient(filepath.Join(t.TempDir(), "eval.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.InitSchema())
	return db
}

func seedContent(t *testing.T, db *sqlite.Client, id string, quality float64) {
	t.Helper()
	now := time.Now()
	require.NoError(t, db.UpsertContentItem(&models.ContentRecord{
		ID:           id,
		Title:        id,
		Text:         "text",
		Technologies: []string{"go"},
		QualityScore: quality,
		ContentType:  "article",
		CreatedAt:    now,
		UpdatedAt:    now,
	}))
}

func seedFeedback(t *testing.T, db *sqlite.Client, contentID string, helpful ...bool) {
	t.Helper()
	for _, h := range helpful {
		require.NoError(t, db.InsertFeedback(&models.FeedbackRecord{
			ContentID: contentID,
			UserID:    "user-1",
			Helpful:   h,
			CreatedAt: time.Now(),
		}))
	}
}

func qualityOf(t *testing.T, db *sqlite.Client, id string) float64 {
	t.Helper()
	items, err := db.GetContentItems([]string{id})
	require.NoError(t, err)
	require.Len(t, items, 1)
	return items[0].QualityScore
}

func TestRecomputeBlendsTowardFeedback(t *testing.T) {
	db := newTestDB(t)
	seedContent(t, db, "c1", 5)
	seedFeedback(t, db, "c1", true, true, true, false)

	report, err := NewEvaluator(db).RecomputeQualityScores(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Evaluated)
	assert.Equal(t, 1, report.Updated)

	// 3/4 helpful implies 7.5; one pass moves 5.0 thirty percent of the way.
	assert.InDelta(t, 5.75, qualityOf(t, db, "c1"), 0.001)
}

func TestRecomputeSkipsThinFeedback(t *testing.T) {
	db := newTestDB(t)
	seedContent(t, db, "c1", 5)
	seedFeedback(t, db, "c1", true, true)

	report, err := NewEvaluator(db).RecomputeQualityScores(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Evaluated)
	assert.Zero(t, report.Updated)
	assert.Equal(t, 5.0, qualityOf(t, db, "c1"))
}

func TestRecomputeSkipsStableScores(t *testing.T) {
	db := newTestDB(t)
	// Prior already matches the implied score exactly.
	seedContent(t, db, "c1", 7.5)
	seedFeedback(t, db, "c1", true, true, true, false)

	report, err := NewEvaluator(db).RecomputeQualityScores(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Updated)
}

func TestRecomputeWithNoFeedback(t *testing.T) {
	db := newTestDB(t)
	seedContent(t, db, "c1", 5)

	report, err := NewEvaluator(db).RecomputeQualityScores(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Evaluated)
}

func TestRunStopsOnCancel(t *testing.T) {
	db := newTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		NewEvaluator(db).Run(ctx, 10*time.Millisecond)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("evaluator loop did not stop on cancellation")
	}
}
