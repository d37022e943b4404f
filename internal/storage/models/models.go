package models

import "time"

type ContentRecord struct {
	ID           string
	Title        string
	Text         string
	Technologies []string
	QualityScore float64
	ContentType  string
	Difficulty   string
	EmbeddingID  string
	SourceURL    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type RecommendationRecord struct {
	ID          string
	UserID      string
	Title       string
	Engine      string
	CacheHit    bool
	Degraded    bool
	ResultCount int
	LatencyMS   int64
	TopItems    []string
	CreatedAt   time.Time
}

type FeedbackRecord struct {
	ID               int64
	RecommendationID string
	ContentID        string
	UserID           string
	Helpful          bool
	Comment          string
	CreatedAt        time.Time
}

// ContentFeedbackStats is the per-item aggregate the quality evaluator
// consumes.
type ContentFeedbackStats struct {
	ContentID    string
	HelpfulCount int
	TotalCount   int
	QualityScore float64
}
