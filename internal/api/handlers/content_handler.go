package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/devfeed/backend/internal/ingestion"
	"github.com/devfeed/backend/internal/metrics"
	"github.com/devfeed/backend/pkg/logger"
)

type ContentHandler struct {
	processor *ingestion.Processor
}

func NewContentHandler(processor *ingestion.Processor) *ContentHandler {
	return &ContentHandler{processor: processor}
}

func (h *ContentHandler) UploadContent(c *fiber.Ctx) error {
	var body struct {
		URL          string   `json:"url"`
		HTML         string   `json:"html"`
		Title        string   `json:"title"`
		Text         string   `json:"text"`
		Technologies []string `json:"technologies"`
		ContentType  string   `json:"content_type"`
		Difficulty   string   `json:"difficulty"`
		QualityScore float64  `json:"quality_score"`
	}

	if err := c.BodyParser(&body); err != nil {
		logger.Error("Failed to parse content upload", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if body.HTML == "" && body.Text == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "html or text is required",
		})
	}

	record, err := h.processor.ProcessContent(c.Context(), ingestion.Submission{
		URL:          body.URL,
		HTML:         body.HTML,
		Title:        body.Title,
		Text:         body.Text,
		Technologies: body.Technologies,
		ContentType:  body.ContentType,
		Difficulty:   body.Difficulty,
		QualityScore: body.QualityScore,
	})
	if err != nil {
		logger.Error("Failed to ingest content", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to ingest content",
		})
	}

	metrics.ContentIngested.Inc()

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":           record.ID,
		"title":        record.Title,
		"technologies": record.Technologies,
		"content_type": record.ContentType,
		"difficulty":   record.Difficulty,
	})
}
