package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devfeed/backend/internal/storage/models"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	client, err := NewClient(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	require.NoError(t, client.InitSchema())
	return client
}

func contentRecord(id string, techs []string, updatedAt time.Time) *models.ContentRecord {
	return &models.ContentRecord{
		ID:           id,
		Title:        "title " + id,
		Text:         "text " + id,
		Technologies: techs,
		QualityScore: 6,
		ContentType:  "article",
		Difficulty:   "intermediate",
		CreatedAt:    updatedAt,
		UpdatedAt:    updatedAt,
	}
}

func TestUpsertContentItem(t *testing.T) {
	client := newTestClient(t)
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	rec := contentRecord("c1", []string{"Go", "grpc"}, now)
	require.NoError(t, client.UpsertContentItem(rec))

	rec.Title = "revised"
	rec.QualityScore = 8
	require.NoError(t, client.UpsertContentItem(rec))

	got, err := client.GetContentItems([]string{"c1"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "revised", got[0].Title)
	assert.Equal(t, 8.0, got[0].QualityScore)
	assert.Equal(t, []string{"go", "grpc"}, got[0].Technologies, "tags are stored lowercase")
}

func TestUpsertAllowsMultipleItemsWithoutSourceURL(t *testing.T) {
	client := newTestClient(t)
	now := time.Now()

	require.NoError(t, client.UpsertContentItem(contentRecord("c1", []string{"go"}, now)))
	require.NoError(t, client.UpsertContentItem(contentRecord("c2", []string{"rust"}, now)),
		"absent source URLs must not collide")
}

func TestQueryByTechnologiesMatchesExactTags(t *testing.T) {
	client := newTestClient(t)
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, client.UpsertContentItem(contentRecord("go-item", []string{"go"}, now)))
	require.NoError(t, client.UpsertContentItem(contentRecord("golang-item", []string{"golang"}, now)))
	require.NoError(t, client.UpsertContentItem(contentRecord("rust-item", []string{"rust"}, now)))

	got, err := client.QueryByTechnologies([]string{"go"}, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "go-item", got[0].ID, `tag "go" must not match "golang"`)
}

func TestQueryByTechnologiesOrdersByFreshness(t *testing.T) {
	client := newTestClient(t)
	base := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, client.UpsertContentItem(contentRecord("old", []string{"go"}, base)))
	require.NoError(t, client.UpsertContentItem(contentRecord("new", []string{"go"}, base.Add(time.Hour))))

	got, err := client.QueryByTechnologies([]string{"go"}, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "new", got[0].ID)
}

func TestQueryByTechnologiesFallsBackToRecent(t *testing.T) {
	client := newTestClient(t)
	now := time.Now()
	require.NoError(t, client.UpsertContentItem(contentRecord("a", []string{"go"}, now)))

	got, err := client.QueryByTechnologies(nil, 10)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestRecommendationHistoryRoundTrip(t *testing.T) {
	client := newTestClient(t)
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, client.InsertRecommendation(&models.RecommendationRecord{
		ID:          "rec-1",
		UserID:      "user-1",
		Title:       "go reading",
		Engine:      "fast",
		CacheHit:    true,
		ResultCount: 3,
		LatencyMS:   12,
		TopItems:    []string{"c1", "c2"},
		CreatedAt:   now,
	}))
	require.NoError(t, client.InsertRecommendation(&models.RecommendationRecord{
		ID:        "rec-2",
		UserID:    "user-1",
		Engine:    "hybrid",
		Degraded:  true,
		TopItems:  []string{},
		CreatedAt: now.Add(time.Minute),
	}))

	records, err := client.GetRecommendationHistory("user-1", 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "rec-2", records[0].ID, "newest first")
	assert.True(t, records[0].Degraded)
	assert.True(t, records[1].CacheHit)
	assert.Equal(t, []string{"c1", "c2"}, records[1].TopItems)

	none, err := client.GetRecommendationHistory("user-2", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestContentFeedbackStats(t *testing.T) {
	client := newTestClient(t)
	now := time.Now()
	require.NoError(t, client.UpsertContentItem(contentRecord("c1", []string{"go"}, now)))

	for _, helpful := range []bool{true, true, true, false} {
		require.NoError(t, client.InsertFeedback(&models.FeedbackRecord{
			ContentID: "c1",
			UserID:    "user-1",
			Helpful:   helpful,
			CreatedAt: now,
		}))
	}
	// Feedback on unknown content is kept but never aggregated.
	require.NoError(t, client.InsertFeedback(&models.FeedbackRecord{
		ContentID: "ghost",
		Helpful:   true,
		CreatedAt: now,
	}))

	stats, err := client.ContentFeedbackStats()
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, "c1", stats[0].ContentID)
	assert.Equal(t, 3, stats[0].HelpfulCount)
	assert.Equal(t, 4, stats[0].TotalCount)
	assert.Equal(t, 6.0, stats[0].QualityScore)
}

func TestUpdateQualityScore(t *testing.T) {
	client := newTestClient(t)
	require.NoError(t, client.UpsertContentItem(contentRecord("c1", []string{"go"}, time.Now())))

	require.NoError(t, client.UpdateQualityScore("c1", 7.4))

	got, err := client.GetContentItems([]string{"c1"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.InDelta(t, 7.4, got[0].QualityScore, 0.001)
}
