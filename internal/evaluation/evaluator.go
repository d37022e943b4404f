package evaluation

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/devfeed/backend/internal/storage/sqlite"
	"github.com/devfeed/backend/pkg/logger"
)

// Evaluator recomputes content quality scores from accumulated user
// feedback. It runs off the request path; the scoring core only ever reads
// the quality_score it writes.
type Evaluator struct {
	db *sqlite.Client

	// blend controls how far one pass moves the score toward the
	// feedback-implied value.
	blend float64
	// minSamples is the feedback count below which the prior score is left
	// alone.
	minSamples int
}

func NewEvaluator(db *sqlite.Client) *Evaluator {
	return &Evaluator{
		db:         db,
		blend:      0.3,
		minSamples: 3,
	}
}

type Report struct {
	Evaluated int
	Updated   int
}

// RecomputeQualityScores moves each item's quality score toward the score
// implied by its helpful ratio (0..10), weighted by the blend factor.
func (e *Evaluator) RecomputeQualityScores(ctx context.Context) (*Report, error) {
	stats, err := e.db.ContentFeedbackStats()
	if err != nil {
		return nil, err
	}

	report := &Report{Evaluated: len(stats)}
	for _, s := range stats {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		if s.TotalCount < e.minSamples {
			continue
		}

		implied := float64(s.HelpfulCount) / float64(s.TotalCount) * 10
		updated := (1-e.blend)*s.QualityScore + e.blend*implied
		if diff := updated - s.QualityScore; diff < 0.05 && diff > -0.05 {
			continue
		}

		if err := e.db.UpdateQualityScore(s.ContentID, updated); err != nil {
			logger.Warn("Failed to update quality score",
				zap.String("content_id", s.ContentID),
				zap.Error(err),
			)
			continue
		}
		report.Updated++

		logger.Debug("Quality score recomputed",
			zap.String("content_id", s.ContentID),
			zap.Float64("previous", s.QualityScore),
			zap.Float64("updated", updated),
			zap.Int("feedback", s.TotalCount),
		)
	}

	logger.Info("Quality evaluation pass complete",
		zap.Int("evaluated", report.Evaluated),
		zap.Int("updated", report.Updated),
	)

	return report, nil
}

// Run executes recompute passes on the given interval until the context is
// cancelled.
func (e *Evaluator) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := e.RecomputeQualityScores(ctx); err != nil {
				logger.Error("Quality evaluation pass failed", zap.Error(err))
			}
		}
	}
}
