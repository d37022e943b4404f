package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devfeed/backend/internal/recommend"
	"github.com/devfeed/backend/internal/storage/sqlite"
)

type staticCatalog struct {
	items []recommend.ContentItem
}

func (c *staticCatalog) Query(ctx context.Context, hints recommend.CatalogHints) ([]recommend.ContentItem, error) {
	return c.items, nil
}

func newTestApp(t *testing.T) (*fiber.App, *sqlite.Client) {
	t.Helper()

	db, err := sqlite.NewClient(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.InitSchema())

	catalog := &staticCatalog{items: []recommend.ContentItem{
		{ID: "go-1", Text: "go concurrency patterns", Technologies: []string{"go"}, QualityScore: 8},
		{ID: "go-2", Text: "profiling go services", Technologies: []string{"go"}, QualityScore: 7},
	}}
	orch := recommend.NewOrchestrator(recommend.DefaultConfig(), recommend.Deps{Catalog: catalog})
	handler := NewRecommendHandler(orch, nil, db)

	app := fiber.New()
	app.Post("/api/v1/recommendations", handler.HandleRecommend)
	app.Get("/api/v1/recommendations/history", handler.GetHistory)
	app.Post("/api/v1/recommendations/feedback", handler.HandleFeedback)
	app.Delete("/api/v1/cache/users/:user_id", handler.HandleInvalidate)
	return app, db
}

func TestHandleRecommendRequiresUserID(t *testing.T) {
	app, _ := newTestApp(t)

	body, _ := json.Marshal(map[string]interface{}{"title": "go reading"})
	req := httptest.NewRequest("POST", "/api/v1/recommendations", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHandleRecommendReturnsRankedResults(t *testing.T) {
	app, db := newTestApp(t)

	body, _ := json.Marshal(map[string]interface{}{
		"user_id":           "user-1",
		"title":             "go reading list",
		"technologies":      []string{"go"},
		"engine_preference": "fast",
	})
	req := httptest.NewRequest("POST", "/api/v1/recommendations", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, 5000)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload recommend.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.NotEmpty(t, payload.ID)
	assert.Len(t, payload.Results, 2)
	assert.Equal(t, recommend.EngineFast, payload.Engine)

	records, err := db.GetRecommendationHistory("user-1", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, payload.ID, records[0].ID)
	assert.Equal(t, 2, records[0].ResultCount)
}

func TestGetHistoryRequiresUserID(t *testing.T) {
	app, _ := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/recommendations/history", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHandleFeedbackValidation(t *testing.T) {
	app, _ := newTestApp(t)

	body, _ := json.Marshal(map[string]interface{}{"content_id": "go-1"})
	req := httptest.NewRequest("POST", "/api/v1/recommendations/feedback", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode, "helpful is mandatory, not defaulted")
}

func TestHandleFeedbackStoresRecord(t *testing.T) {
	app, db := newTestApp(t)

	body, _ := json.Marshal(map[string]interface{}{
		"content_id": "go-1",
		"user_id":    "user-1",
		"helpful":    false,
	})
	req := httptest.NewRequest("POST", "/api/v1/recommendations/feedback", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	stats, err := db.ContentFeedbackStats()
	require.NoError(t, err)
	assert.Empty(t, stats, "feedback for uningested content stays out of the aggregate")
}

func TestHandleInvalidate(t *testing.T) {
	app, _ := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest("DELETE", "/api/v1/cache/users/user-1", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
