package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/devfeed/backend/internal/metrics"
	"github.com/devfeed/backend/internal/recommend"
	"github.com/devfeed/backend/internal/storage/models"
	"github.com/devfeed/backend/internal/storage/sqlite"
	"github.com/devfeed/backend/pkg/logger"
)

// Embedder attaches a vector to the request text before it enters the core.
// Optional: without it, scoring simply runs without the similarity terms.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type RecommendHandler struct {
	orchestrator *recommend.Orchestrator
	embedder     Embedder
	db           *sqlite.Client
}

func NewRecommendHandler(orchestrator *recommend.Orchestrator, embedder Embedder, db *sqlite.Client) *RecommendHandler {
	return &RecommendHandler{
		orchestrator: orchestrator,
		embedder:     embedder,
		db:           db,
	}
}

type recommendRequest struct {
	UserID             string   `json:"user_id"`
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	Technologies       []string `json:"technologies"`
	ProjectID          string   `json:"project_id"`
	Interests          string   `json:"interests"`
	TargetDifficulty   string   `json:"target_difficulty"`
	MaxRecommendations int      `json:"max_recommendations"`
	EnginePreference   string   `json:"engine_preference"`
	QualityThreshold   float64  `json:"quality_threshold"`
	DiversityWeight    float64  `json:"diversity_weight"`
}

func (h *RecommendHandler) HandleRecommend(c *fiber.Ctx) error {
	var body recommendRequest
	if err := c.BodyParser(&body); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if body.UserID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "user_id is required",
		})
	}

	req := recommend.Request{
		UserID:             body.UserID,
		Title:              body.Title,
		Description:        body.Description,
		Technologies:       body.Technologies,
		ProjectID:          body.ProjectID,
		Interests:          body.Interests,
		TargetDifficulty:   recommend.Difficulty(body.TargetDifficulty),
		MaxRecommendations: body.MaxRecommendations,
		Preference:         recommend.Preference(body.EnginePreference),
		QualityThreshold:   body.QualityThreshold,
		DiversityWeight:    body.DiversityWeight,
	}

	if h.embedder != nil && body.Title+body.Description != "" {
		embedCtx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
		vector, err := h.embedder.Embed(embedCtx, body.Title+"\n"+body.Description)
		cancel()
		if err != nil {
			logger.Debug("Request embedding unavailable", zap.Error(err))
		} else {
			req.Embedding = vector
		}
	}

	response, err := h.orchestrator.Recommend(c.Context(), req)
	if err != nil {
		logger.Error("Failed to compute recommendations", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to compute recommendations",
		})
	}

	metrics.ResultCount.Observe(float64(len(response.Results)))
	if response.Degraded {
		metrics.EnsembleDegraded.Inc()
	}

	h.recordHistory(body, response)

	return c.JSON(response)
}

func (h *RecommendHandler) GetHistory(c *fiber.Ctx) error {
	userID := c.Query("user_id")
	if userID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "user_id is required",
		})
	}

	limit := c.QueryInt("limit", 20)
	records, err := h.db.GetRecommendationHistory(userID, limit)
	if err != nil {
		logger.Error("Failed to load history", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load history",
		})
	}

	return c.JSON(fiber.Map{
		"history": records,
	})
}

func (h *RecommendHandler) HandleFeedback(c *fiber.Ctx) error {
	var body struct {
		RecommendationID string `json:"recommendation_id"`
		ContentID        string `json:"content_id"`
		UserID           string `json:"user_id"`
		Helpful          *bool  `json:"helpful"`
		Comment          string `json:"comment"`
	}

	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if body.ContentID == "" || body.Helpful == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "content_id and helpful are required",
		})
	}

	err := h.db.InsertFeedback(&models.FeedbackRecord{
		RecommendationID: body.RecommendationID,
		ContentID:        body.ContentID,
		UserID:           body.UserID,
		Helpful:          *body.Helpful,
		Comment:          body.Comment,
		CreatedAt:        time.Now(),
	})
	if err != nil {
		logger.Error("Failed to store feedback", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to store feedback",
		})
	}

	helpful := "false"
	if *body.Helpful {
		helpful = "true"
	}
	metrics.FeedbackReceived.WithLabelValues(helpful).Inc()

	return c.JSON(fiber.Map{
		"status": "recorded",
	})
}

// HandleInvalidate drops every cached recommendation for a user, typically
// called when the user's content context changed upstream.
func (h *RecommendHandler) HandleInvalidate(c *fiber.Ctx) error {
	userID := c.Params("user_id")
	if userID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "user_id is required",
		})
	}

	h.orchestrator.InvalidateUser(c.Context(), userID)

	return c.JSON(fiber.Map{
		"status": "invalidated",
	})
}

func (h *RecommendHandler) recordHistory(body recommendRequest, response *recommend.Response) {
	topItems := make([]string, 0, len(response.Results))
	for _, r := range response.Results {
		topItems = append(topItems, r.Item.ID)
	}

	err := h.db.InsertRecommendation(&models.RecommendationRecord{
		ID:          response.ID,
		UserID:      body.UserID,
		Title:       body.Title,
		Engine:      string(response.Engine),
		CacheHit:    response.CacheHit,
		Degraded:    response.Degraded,
		ResultCount: len(response.Results),
		LatencyMS:   response.LatencyMS,
		TopItems:    topItems,
		CreatedAt:   time.Now(),
	})
	if err != nil {
		logger.Warn("Failed to record recommendation history", zap.Error(err))
	}
}
