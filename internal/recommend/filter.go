package recommend

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/devfeed/backend/pkg/logger"
)

// Relevance weights. These split is one of the variants the product docs
// describe; keep them here rather than scattering literals through Score.
const (
	weightExactTech   = 0.4
	weightPartialTech = 0.2
	weightTextMention = 0.3
	weightQuality     = 0.2
)

// RelevanceFilter prunes candidate content before any engine runs. Engines
// only ever see plausibly relevant items, which bounds both their cost and
// the chance of junk surfacing in results.
type RelevanceFilter struct {
	threshold float64
	maxItems  int
}

func NewRelevanceFilter(threshold float64, maxItems int) *RelevanceFilter {
	if maxItems <= 0 {
		maxItems = 100
	}
	return &RelevanceFilter{threshold: threshold, maxItems: maxItems}
}

// Filter returns the relevance-ordered subsequence of items scoring at or
// above the threshold, capped at the working-set size.
func (f *RelevanceFilter) Filter(req Request, items []ContentItem) []ContentItem {
	type scored struct {
		item      ContentItem
		relevance float64
	}

	kept := make([]scored, 0, len(items))
	for _, item := range items {
		rel := f.Relevance(req, item)
		if rel < f.threshold {
			continue
		}
		kept = append(kept, scored{item: item, relevance: rel})
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].relevance > kept[j].relevance
	})

	if len(kept) > f.maxItems {
		kept = kept[:f.maxItems]
	}

	out := make([]ContentItem, len(kept))
	for i, s := range kept {
		out[i] = s.item
	}

	logger.Debug("Candidates filtered",
		zap.Int("candidates", len(items)),
		zap.Int("kept", len(out)),
		zap.Float64("threshold", f.threshold),
	)

	return out
}

// Relevance computes the [0,1] match between a request and one item:
// 0.4*exact tech overlap + 0.2*partial tech overlap + 0.3*text mention
// overlap + 0.2*quality weight.
func (f *RelevanceFilter) Relevance(req Request, item ContentItem) float64 {
	reqTechs := req.NormalizedTechnologies()
	itemTechs := normalizeTechSet(item.Technologies)
	lowerText := strings.ToLower(item.Text)

	var exact, partial, mention float64
	if len(reqTechs) > 0 {
		var exactN, partialN, mentionN int
		for _, t := range reqTechs {
			if _, ok := itemTechs[t]; ok {
				exactN++
			}
			for it := range itemTechs {
				if strings.Contains(it, t) || strings.Contains(t, it) {
					partialN++
					break
				}
			}
			if strings.Contains(lowerText, t) {
				mentionN++
			}
		}
		n := float64(len(reqTechs))
		exact = float64(exactN) / n
		partial = float64(partialN) / n
		mention = float64(mentionN) / n
	}

	quality := clamp(item.QualityScore/10, 0, 1)

	return weightExactTech*exact +
		weightPartialTech*partial +
		weightTextMention*mention +
		weightQuality*quality
}

func normalizeTechSet(techs []string) map[string]struct{} {
	set := make(map[string]struct{}, len(techs))
	for _, t := range techs {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			set[t] = struct{}{}
		}
	}
	return set
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
