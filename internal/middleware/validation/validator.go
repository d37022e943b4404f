package validation

import (
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

var (
	sqlInjectionPattern = regexp.MustCompile(`(?i)(union\s+select|insert\s+into|drop\s+table|exec\s|<script|javascript:|onerror=|onload=)`)
)

type Config struct {
	MaxTitleLength      int
	MaxDescLength       int
	MaxTechnologies     int
	MaxDocumentSize     int
	AllowedContentTypes []string
	Logger              *zap.Logger
}

func Middleware(cfg Config) fiber.Handler {
	if cfg.MaxTitleLength == 0 {
		cfg.MaxTitleLength = 500
	}
	if cfg.MaxDescLength == 0 {
		cfg.MaxDescLength = 5000
	}
	if cfg.MaxTechnologies == 0 {
		cfg.MaxTechnologies = 50
	}
	if cfg.MaxDocumentSize == 0 {
		cfg.MaxDocumentSize = 10 * 1024 * 1024
	}
	if len(cfg.AllowedContentTypes) == 0 {
		cfg.AllowedContentTypes = []string{"application/json"}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return func(c *fiber.Ctx) error {
		if c.Method() == fiber.MethodPost || c.Method() == fiber.MethodPut {
			contentType := c.Get("Content-Type")
			if contentType != "" && !typeAllowed(contentType, cfg.AllowedContentTypes) {
				return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
					"error": "Unsupported content type",
				})
			}
		}

		path := c.Path()

		if strings.Contains(path, "/api/v1/recommendations") && c.Method() == fiber.MethodPost {
			var req map[string]interface{}
			if err := c.BodyParser(&req); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid JSON format",
				})
			}

			title, _ := req["title"].(string)
			if len(title) > cfg.MaxTitleLength {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Title exceeds maximum length",
				})
			}

			description, _ := req["description"].(string)
			if len(description) > cfg.MaxDescLength {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Description exceeds maximum length",
				})
			}

			if techs, ok := req["technologies"].([]interface{}); ok && len(techs) > cfg.MaxTechnologies {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Too many technologies",
				})
			}

			if suspicious(title) || suspicious(description) {
				cfg.Logger.Warn("Suspicious request content",
					zap.String("ip", c.IP()),
					zap.String("path", path),
				)
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid request content",
				})
			}
		}

		if strings.Contains(path, "/api/v1/content") && c.Method() == fiber.MethodPost {
			if len(c.Body()) > cfg.MaxDocumentSize {
				return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
					"error": "Content exceeds maximum size",
				})
			}
		}

		return c.Next()
	}
}

func typeAllowed(contentType string, allowed []string) bool {
	for _, t := range allowed {
		if strings.Contains(contentType, t) {
			return true
		}
	}
	return false
}

func suspicious(input string) bool {
	return sqlInjectionPattern.MatchString(input)
}
