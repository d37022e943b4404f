package recommend

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// fastConfidence is the fixed baseline for fast-path results: no deep
// analysis happened, so the engine never claims more.
const fastConfidence = 0.6

// FastEngine is the cheap O(n) scorer: set overlap, literal text mentions
// and at most one cosine-similarity pass per item.
type FastEngine struct {
	now func() int64
}

func NewFastEngine() *FastEngine {
	return &FastEngine{now: func() int64 { return time.Now().Unix() }}
}

func (e *FastEngine) Name() Engine { return EngineFast }

func (e *FastEngine) Score(ctx context.Context, req Request, items []ContentItem) ([]Result, error) {
	reqTechs := req.NormalizedTechnologies()
	results := make([]Result, 0, len(items))

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		quality := clamp(item.QualityScore, 0, 10)
		techMatch := techMatchTerm(reqTechs, item)

		relevance := textMentionTerm(reqTechs, item)
		if len(req.Embedding) > 0 && len(item.Embedding) > 0 {
			cos := cosineSimilarity(req.Embedding, item.Embedding)
			relevance = 0.5*relevance + 0.5*clamp(cos*10, 0, 10)
		}

		var difficulty float64
		switch difficultyDistance(req.TargetDifficulty, item.Difficulty) {
		case 0:
			difficulty = 10
		case 1:
			difficulty = 5
		}

		total := blendScore(quality, techMatch, relevance, difficulty, recencyTerm(item, e.now))

		results = append(results, Result{
			Item:       item,
			Score:      total,
			Confidence: fastConfidence,
			Reasoning:  fastReasoning(reqTechs, item),
			Engine:     EngineFast,
		})
	}

	sortResults(results)
	return results, nil
}

func fastReasoning(reqTechs []string, item ContentItem) string {
	itemTechs := normalizeTechSet(item.Technologies)
	var matched int
	for _, t := range reqTechs {
		if _, ok := itemTechs[t]; ok {
			matched++
		}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "matches %d/%d technologies", matched, len(reqTechs))
	fmt.Fprintf(&b, ", quality %.1f/10", clamp(item.QualityScore, 0, 10))
	if item.ContentType != "" && item.ContentType != ContentOther {
		fmt.Fprintf(&b, ", %s", item.ContentType)
	}
	return b.String()
}
