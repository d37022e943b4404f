package recommend

import (
	"strings"
	"time"
)

// Preference is the caller's engine choice. Auto defers to SelectEngine.
type Preference string

const (
	PreferenceFast    Preference = "fast"
	PreferenceContext Preference = "context"
	PreferenceAuto    Preference = "auto"
	PreferenceHybrid  Preference = "hybrid"
)

// Engine tags which scoring path produced a result set.
type Engine string

const (
	EngineFast    Engine = "fast"
	EngineContext Engine = "context"
	EngineHybrid  Engine = "hybrid"
)

type ContentType string

const (
	ContentTutorial      ContentType = "tutorial"
	ContentArticle       ContentType = "article"
	ContentDocumentation ContentType = "documentation"
	ContentProject       ContentType = "project"
	ContentOther         ContentType = "other"
)

type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// Request describes one recommendation call. It is built once by the API
// layer and never mutated afterwards; the optional embedding is attached
// before the request enters the core.
type Request struct {
	UserID             string
	Title              string
	Description        string
	Technologies       []string
	ProjectID          string
	Interests          string
	TargetDifficulty   Difficulty
	MaxRecommendations int
	Preference         Preference
	QualityThreshold   float64
	DiversityWeight    float64
	Embedding          []float32
}

// NormalizedTechnologies returns the request's technology list lowercased,
// trimmed and deduplicated, preserving first-seen order.
func (r Request) NormalizedTechnologies() []string {
	seen := make(map[string]struct{}, len(r.Technologies))
	out := make([]string, 0, len(r.Technologies))
	for _, t := range r.Technologies {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// ContentItem is a unit of recommendable material owned by the external
// catalog. The core treats it as read-only.
type ContentItem struct {
	ID           string      `json:"id"`
	Text         string      `json:"text"`
	Technologies []string    `json:"technologies"`
	QualityScore float64     `json:"quality_score"`
	ContentType  ContentType `json:"content_type"`
	Difficulty   Difficulty  `json:"difficulty"`
	Embedding    []float32   `json:"embedding,omitempty"`
	LastUpdated  time.Time   `json:"last_updated"`
}

// Result is one ranked recommendation.
type Result struct {
	Item       ContentItem `json:"item"`
	Score      float64     `json:"score"`
	Confidence float64     `json:"confidence"`
	Reasoning  string      `json:"reasoning"`
	Engine     Engine      `json:"engine"`
}

// Response wraps a ranked result list with request-level outcome metadata.
type Response struct {
	ID        string   `json:"id"`
	Results   []Result `json:"results"`
	Engine    Engine   `json:"engine"`
	CacheHit  bool     `json:"cache_hit"`
	Degraded  bool     `json:"degraded"`
	Reason    string   `json:"reason,omitempty"`
	LatencyMS int64    `json:"latency_ms"`
}

// Reason codes surfaced on empty or degraded responses.
const (
	ReasonNoRelevantContent = "no_relevant_content"
	ReasonEngineUnavailable = "engine_unavailable"
	ReasonEnsembleDegraded  = "ensemble_degraded"
)

// Sample is one performance observation, owned by the Monitor's window.
type Sample struct {
	Latency   time.Duration
	CacheHit  bool
	Engine    Engine
	Err       bool
	Timestamp time.Time
}

// Config carries every numeric contract of the core. The upstream docs give
// conflicting defaults for several of these, so they are all injected.
type Config struct {
	RelevanceThreshold     float64
	MaxWorkingSet          int
	MaxRecommendations     int
	QualityThreshold       float64
	FastTimeout            time.Duration
	ContextTimeout         time.Duration
	EnsembleFastWeight     float64
	EnsembleContextWeight  float64
	MonitorWindow          int
	ComplexTitleLength     int
	ComplexDescLength      int
	ComplexTechCount       int
	ComplexInterestsLength int
}

func DefaultConfig() Config {
	return Config{
		RelevanceThreshold:     0.3,
		MaxWorkingSet:          100,
		MaxRecommendations:     10,
		QualityThreshold:       5.0,
		FastTimeout:            10 * time.Second,
		ContextTimeout:         15 * time.Second,
		EnsembleFastWeight:     0.4,
		EnsembleContextWeight:  0.6,
		MonitorWindow:          1000,
		ComplexTitleLength:     50,
		ComplexDescLength:      100,
		ComplexTechCount:       3,
		ComplexInterestsLength: 50,
	}
}
