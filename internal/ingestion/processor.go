package ingestion

import (
	"context"
	"crypto/md5"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/jdkato/prose/v2"
	"go.uber.org/zap"

	"github.com/devfeed/backend/internal/storage/models"
	"github.com/devfeed/backend/internal/storage/sqlite"
	"github.com/devfeed/backend/internal/vector/milvus"
	"github.com/devfeed/backend/pkg/logger"
)

// Embedder turns text into a vector. Optional; content without a vector is
// still recommendable, it just skips the similarity paths.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// TechGraph records which technologies appear together on one item.
type TechGraph interface {
	RecordCooccurrence(ctx context.Context, techs []string) error
}

// Submission is one piece of content entering the catalog, either as raw
// HTML scraped elsewhere or as pre-extracted fields.
type Submission struct {
	URL          string
	HTML         string
	Title        string
	Text         string
	Technologies []string
	ContentType  string
	Difficulty   string
	QualityScore float64
}

type Processor struct {
	db       *sqlite.Client
	vector   *milvus.Client
	embedder Embedder
	graph    TechGraph
}

func NewProcessor(db *sqlite.Client, vector *milvus.Client, embedder Embedder, graph TechGraph) *Processor {
	return &Processor{
		db:       db,
		vector:   vector,
		embedder: embedder,
		graph:    graph,
	}
}

func (p *Processor) ProcessContent(ctx context.Context, sub Submission) (*models.ContentRecord, error) {
	text := sub.Text
	title := sub.Title
	if sub.HTML != "" {
		text = cleanHTML(sub.HTML)
		if title == "" {
			title = extractTitle(sub.HTML)
		}
	}
	if text == "" {
		return nil, fmt.Errorf("no content text to ingest")
	}
	if title == "" {
		title = "Untitled"
	}

	techs := extractTechnologies(title+" "+text, sub.Technologies)

	contentType := sub.ContentType
	if contentType == "" {
		contentType = classifyContentType(sub.URL, title+" "+text)
	}

	difficulty := sub.Difficulty
	if difficulty == "" {
		difficulty = inferDifficulty(title + " " + text)
	}

	quality := sub.QualityScore
	if quality <= 0 {
		quality = 5.0
	}

	id := generateID(firstNonEmpty(sub.URL, title))
	now := time.Now()
	record := &models.ContentRecord{
		ID:           id,
		Title:        title,
		Text:         text,
		Technologies: techs,
		QualityScore: quality,
		ContentType:  contentType,
		Difficulty:   difficulty,
		SourceURL:    sub.URL,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if p.embedder != nil && p.vector != nil {
		vector, err := p.embedder.Embed(ctx, title+"\n"+truncateText(text, 4000))
		if err != nil {
			logger.Warn("Failed to embed content, storing without vector",
				zap.String("content_id", id),
				zap.Error(err),
			)
		} else {
			if err := p.vector.Insert(ctx, []milvus.ContentVector{{
				ContentID: id,
				Embedding: vector,
				UpdatedAt: now,
			}}); err != nil {
				logger.Warn("Failed to index content vector", zap.String("content_id", id), zap.Error(err))
			} else {
				record.EmbeddingID = id
			}
		}
	}

	if err := p.db.UpsertContentItem(record); err != nil {
		return nil, fmt.Errorf("failed to store content item: %w", err)
	}

	if p.graph != nil {
		if err := p.graph.RecordCooccurrence(ctx, techs); err != nil {
			logger.Warn("Failed to record technology co-occurrence", zap.Error(err))
		}
	}

	logger.Info("Content ingested",
		zap.String("content_id", id),
		zap.String("title", title),
		zap.Strings("technologies", techs),
		zap.String("content_type", contentType),
	)

	return record, nil
}

func cleanHTML(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	doc.Find("script, style, nav, footer, header, aside").Each(func(i int, s *goquery.Selection) {
		s.Remove()
	})

	text := doc.Find("body").Text()
	text = regexp.MustCompile(`\s+`).ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

func extractTitle(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	title := doc.Find("title").First().Text()
	if title == "" {
		title = doc.Find("h1").First().Text()
	}
	return strings.TrimSpace(title)
}

// extractTechnologies merges submitter-provided tags with tags detected in
// the text. Detection tokenizes with prose and matches tokens against the
// technology lexicon, so "Go" in prose is found without tagging every "go".
func extractTechnologies(text string, provided []string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, len(provided))

	add := func(tech string) {
		tech = strings.ToLower(strings.TrimSpace(tech))
		if tech == "" {
			return
		}
		if canonical, ok := techLexicon[tech]; ok {
			tech = canonical
		}
		if _, ok := seen[tech]; ok {
			return
		}
		seen[tech] = struct{}{}
		out = append(out, tech)
	}

	for _, t := range provided {
		add(t)
	}

	doc, err := prose.NewDocument(truncateText(text, 10000))
	if err != nil {
		logger.Warn("Tokenization failed, keeping provided tags only", zap.Error(err))
		return out
	}
	for _, tok := range doc.Tokens() {
		lower := strings.ToLower(tok.Text)
		if _, ok := techLexicon[lower]; ok {
			add(lower)
		}
	}

	return out
}

func classifyContentType(url, text string) string {
	lower := strings.ToLower(url + " " + truncateText(text, 500))
	switch {
	case strings.Contains(lower, "tutorial") || strings.Contains(lower, "how to") || strings.Contains(lower, "step by step"):
		return "tutorial"
	case strings.Contains(lower, "documentation") || strings.Contains(lower, "reference") || strings.Contains(lower, "/docs/"):
		return "documentation"
	case strings.Contains(lower, "github.com") || strings.Contains(lower, "source code") || strings.Contains(lower, "repository"):
		return "project"
	case strings.Contains(lower, "blog") || strings.Contains(lower, "article") || strings.Contains(lower, "opinion"):
		return "article"
	default:
		return "other"
	}
}

func inferDifficulty(text string) string {
	lower := strings.ToLower(truncateText(text, 2000))
	switch {
	case strings.Contains(lower, "beginner") || strings.Contains(lower, "introduction") || strings.Contains(lower, "getting started"):
		return "beginner"
	case strings.Contains(lower, "advanced") || strings.Contains(lower, "internals") || strings.Contains(lower, "deep dive"):
		return "advanced"
	default:
		return "intermediate"
	}
}

func truncateText(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func generateID(input string) string {
	hash := md5.Sum([]byte(input))
	return fmt.Sprintf("%x", hash)
}
