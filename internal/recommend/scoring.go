package recommend

import (
	"math"
	"sort"
	"strings"
)

// Shared scoring contract. Every term is normalized to [0,10] before
// weighting and the blended total is clamped back to [0,10].
const (
	scoreWeightQuality    = 0.30
	scoreWeightTechMatch  = 0.25
	scoreWeightRelevance  = 0.20
	scoreWeightDifficulty = 0.15
	scoreWeightRecency    = 0.10
)

func blendScore(quality, techMatch, relevance, difficulty, recency float64) float64 {
	total := scoreWeightQuality*clamp(quality, 0, 10) +
		scoreWeightTechMatch*clamp(techMatch, 0, 10) +
		scoreWeightRelevance*clamp(relevance, 0, 10) +
		scoreWeightDifficulty*clamp(difficulty, 0, 10) +
		scoreWeightRecency*clamp(recency, 0, 10)
	return clamp(total, 0, 10)
}

// recencyTerm decays linearly from 10 for content touched today to 0 at one
// year. A zero timestamp is a missing signal and contributes nothing.
func recencyTerm(item ContentItem, now func() int64) float64 {
	if item.LastUpdated.IsZero() {
		return 0
	}
	ageDays := float64(now()-item.LastUpdated.Unix()) / 86400
	if ageDays < 0 {
		ageDays = 0
	}
	return clamp(10-ageDays*(10.0/365.0), 0, 10)
}

// cosineSimilarity over float32 vectors; 0 for mismatched or empty inputs.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// techMatchTerm is the exact-overlap ratio scaled to [0,10], with partial
// containment matches counting half.
func techMatchTerm(reqTechs []string, item ContentItem) float64 {
	if len(reqTechs) == 0 {
		return 0
	}
	itemTechs := normalizeTechSet(item.Technologies)
	var score float64
	for _, t := range reqTechs {
		if _, ok := itemTechs[t]; ok {
			score += 1
			continue
		}
		for it := range itemTechs {
			if strings.Contains(it, t) || strings.Contains(t, it) {
				score += 0.5
				break
			}
		}
	}
	return clamp(score/float64(len(reqTechs))*10, 0, 10)
}

// textMentionTerm is the fraction of request technologies literally present
// in the item body, scaled to [0,10].
func textMentionTerm(reqTechs []string, item ContentItem) float64 {
	if len(reqTechs) == 0 {
		return 0
	}
	lower := strings.ToLower(item.Text)
	var n int
	for _, t := range reqTechs {
		if strings.Contains(lower, t) {
			n++
		}
	}
	return float64(n) / float64(len(reqTechs)) * 10
}

// sortResults orders by descending score, ties broken by higher confidence,
// then by more recent last_updated.
func sortResults(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].Confidence != results[j].Confidence {
			return results[i].Confidence > results[j].Confidence
		}
		return results[i].Item.LastUpdated.After(results[j].Item.LastUpdated)
	})
}

func difficultyDistance(a, b Difficulty) int {
	rank := func(d Difficulty) int {
		switch d {
		case DifficultyBeginner:
			return 0
		case DifficultyIntermediate:
			return 1
		case DifficultyAdvanced:
			return 2
		default:
			return -1
		}
	}
	ra, rb := rank(a), rank(b)
	if ra < 0 || rb < 0 {
		return -1
	}
	d := ra - rb
	if d < 0 {
		d = -d
	}
	return d
}
