package recommend

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type intent string

const (
	intentLearning  intent = "learning"
	intentReference intent = "reference"
	intentBuilding  intent = "building"
	intentGeneral   intent = "general"
)

// ContextEngine is the richer multi-factor scorer. On top of the shared
// contract it weighs content-type suitability against the inferred request
// intent and difficulty alignment against a declared or inferred target,
// and explains each factor in the reasoning text.
type ContextEngine struct {
	now func() int64
}

func NewContextEngine() *ContextEngine {
	return &ContextEngine{now: func() int64 { return time.Now().Unix() }}
}

func (e *ContextEngine) Name() Engine { return EngineContext }

func (e *ContextEngine) Score(ctx context.Context, req Request, items []ContentItem) ([]Result, error) {
	reqTechs := req.NormalizedTechnologies()
	reqIntent := inferIntent(req)
	target := req.TargetDifficulty
	if target == "" {
		target = inferDifficulty(req)
	}

	results := make([]Result, 0, len(items))
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		quality := clamp(item.QualityScore, 0, 10)
		techMatch := techMatchTerm(reqTechs, item)

		suitability := contentTypeSuitability(reqIntent, item.ContentType)
		relevance := 0.6*textMentionTerm(reqTechs, item) + 0.4*suitability
		embedded := len(req.Embedding) > 0 && len(item.Embedding) > 0
		if embedded {
			cos := cosineSimilarity(req.Embedding, item.Embedding)
			relevance = 0.5*relevance + 0.5*clamp(cos*10, 0, 10)
		}

		var difficulty float64
		switch difficultyDistance(target, item.Difficulty) {
		case 0:
			difficulty = 10
		case 1:
			difficulty = 6
		case 2:
			difficulty = 2
		}

		recency := recencyTerm(item, e.now)
		total := blendScore(quality, techMatch, relevance, difficulty, recency)

		confidence := contextConfidence(
			len(reqTechs) > 0,
			embedded,
			item.Difficulty != "",
			reqIntent != intentGeneral,
			!item.LastUpdated.IsZero(),
		)

		results = append(results, Result{
			Item:       item,
			Score:      total,
			Confidence: confidence,
			Reasoning:  contextReasoning(reqTechs, reqIntent, target, item, techMatch, suitability, difficulty, recency),
			Engine:     EngineContext,
		})
	}

	sortResults(results)
	return results, nil
}

// contextConfidence starts from a neutral base and grows with every factor
// that carried real signal, capped below certainty.
func contextConfidence(signals ...bool) float64 {
	confidence := 0.5
	for _, s := range signals {
		if s {
			confidence += 0.1
		}
	}
	return clamp(confidence, 0, 0.95)
}

func inferIntent(req Request) intent {
	text := strings.ToLower(req.Title + " " + req.Description + " " + req.Interests)
	switch {
	case containsAny(text, "learn", "tutorial", "how to", "getting started", "course", "teach"):
		return intentLearning
	case containsAny(text, "reference", "api doc", "documentation", "specification", "spec"):
		return intentReference
	case containsAny(text, "build", "building", "implement", "create", "prototype", "side project"):
		return intentBuilding
	default:
		return intentGeneral
	}
}

func inferDifficulty(req Request) Difficulty {
	text := strings.ToLower(req.Title + " " + req.Description + " " + req.Interests)
	switch {
	case containsAny(text, "beginner", "new to", "introduction", "basics", "getting started", "first steps"):
		return DifficultyBeginner
	case containsAny(text, "advanced", "internals", "deep dive", "optimize", "performance tuning", "architecture"):
		return DifficultyAdvanced
	default:
		return DifficultyIntermediate
	}
}

func contentTypeSuitability(reqIntent intent, ct ContentType) float64 {
	if ct == "" {
		return 0
	}
	table := map[intent]map[ContentType]float64{
		intentLearning: {
			ContentTutorial:      10,
			ContentDocumentation: 6,
			ContentArticle:       5,
			ContentProject:       4,
			ContentOther:         2,
		},
		intentReference: {
			ContentDocumentation: 10,
			ContentArticle:       5,
			ContentTutorial:      4,
			ContentProject:       3,
			ContentOther:         2,
		},
		intentBuilding: {
			ContentProject:       10,
			ContentTutorial:      7,
			ContentDocumentation: 6,
			ContentArticle:       4,
			ContentOther:         2,
		},
		intentGeneral: {
			ContentArticle:       8,
			ContentTutorial:      7,
			ContentDocumentation: 6,
			ContentProject:       5,
			ContentOther:         3,
		},
	}
	return table[reqIntent][ct]
}

func contextReasoning(reqTechs []string, reqIntent intent, target Difficulty, item ContentItem, techMatch, suitability, difficulty, recency float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "quality %.1f/10", clamp(item.QualityScore, 0, 10))
	if len(reqTechs) > 0 {
		fmt.Fprintf(&b, "; tech match %.1f/10 against %s", techMatch, strings.Join(reqTechs, ", "))
	}
	fmt.Fprintf(&b, "; %s content scores %.1f/10 for %s intent", orUnknown(string(item.ContentType)), suitability, reqIntent)
	if item.Difficulty != "" {
		fmt.Fprintf(&b, "; %s material vs %s target (%.1f/10)", item.Difficulty, target, difficulty)
	}
	if recency > 0 {
		fmt.Fprintf(&b, "; freshness %.1f/10", recency)
	}
	return b.String()
}

func orUnknown(s string) string {
	if s == "" {
		return "unclassified"
	}
	return s
}

func containsAny(text string, subs ...string) bool {
	for _, s := range subs {
		if strings.Contains(text, s) {
			return true
		}
	}
	return false
}
