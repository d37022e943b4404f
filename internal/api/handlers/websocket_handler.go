package handlers

import (
	"time"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/devfeed/backend/internal/recommend"
	"github.com/devfeed/backend/pkg/logger"
)

// WebSocketHandler streams performance snapshots to dashboard clients.
type WebSocketHandler struct {
	orchestrator *recommend.Orchestrator
	interval     time.Duration
}

func NewWebSocketHandler(orchestrator *recommend.Orchestrator) *WebSocketHandler {
	return &WebSocketHandler{
		orchestrator: orchestrator,
		interval:     5 * time.Second,
	}
}

func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("Stats stream connected")

	defer func() {
		c.Close()
		logger.Info("Stats stream closed")
	}()

	// Drain client frames so close/ping control messages are processed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	if err := h.sendSnapshot(c); err != nil {
		return
	}

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := h.sendSnapshot(c); err != nil {
				logger.Debug("Stats stream write failed", zap.Error(err))
				return
			}
		}
	}
}

func (h *WebSocketHandler) sendSnapshot(c *websocket.Conn) error {
	return c.WriteJSON(map[string]interface{}{
		"type":  "stats",
		"stats": h.orchestrator.Stats(),
	})
}
