package catalog

import (
	"context"

	"go.uber.org/zap"

	"github.com/devfeed/backend/internal/recommend"
	"github.com/devfeed/backend/internal/storage/models"
	"github.com/devfeed/backend/internal/vector/milvus"
	"github.com/devfeed/backend/pkg/logger"
)

// Store is the catalog of record.
type Store interface {
	QueryByTechnologies(techs []string, limit int) ([]models.ContentRecord, error)
	GetContentItems(ids []string) ([]models.ContentRecord, error)
}

// VectorIndex finds content ids by embedding similarity.
type VectorIndex interface {
	Search(ctx context.Context, embedding []float32, topK int) ([]milvus.SearchResult, error)
}

// TechGraph expands a technology set with its strongest co-occurring
// neighbours.
type TechGraph interface {
	RelatedTechnologies(ctx context.Context, techs []string, limit int) ([]string, error)
}

const relatedTechLimit = 5

// Catalog merges the tag-indexed store, the vector index and the technology
// graph into one candidate source. The vector index and the graph are
// optional; their failures only narrow the candidate set, never fail the
// query.
type Catalog struct {
	store  Store
	vector VectorIndex
	graph  TechGraph
}

func New(store Store, vector VectorIndex, graph TechGraph) *Catalog {
	return &Catalog{store: store, vector: vector, graph: graph}
}

func (c *Catalog) Query(ctx context.Context, hints recommend.CatalogHints) ([]recommend.ContentItem, error) {
	techs := hints.Technologies
	if c.graph != nil && len(techs) > 0 {
		related, err := c.graph.RelatedTechnologies(ctx, techs, relatedTechLimit)
		if err != nil {
			logger.Warn("Related-technology expansion failed", zap.Error(err))
		} else {
			techs = append(append([]string{}, techs...), related...)
		}
	}

	records, err := c.store.QueryByTechnologies(techs, hints.Limit)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(records))
	for _, rec := range records {
		seen[rec.ID] = struct{}{}
	}

	if c.vector != nil && len(hints.Embedding) > 0 {
		matches, err := c.vector.Search(ctx, hints.Embedding, vectorTopK(hints.Limit))
		if err != nil {
			logger.Warn("Vector candidate search failed", zap.Error(err))
		} else {
			ids := make([]string, 0, len(matches))
			for _, m := range matches {
				if _, ok := seen[m.ContentID]; !ok {
					ids = append(ids, m.ContentID)
				}
			}
			extra, err := c.store.GetContentItems(ids)
			if err != nil {
				logger.Warn("Failed to hydrate vector matches", zap.Error(err))
			} else {
				records = append(records, extra...)
			}
		}
	}

	items := make([]recommend.ContentItem, 0, len(records))
	for _, rec := range records {
		items = append(items, toContentItem(rec))
	}
	return items, nil
}

func toContentItem(rec models.ContentRecord) recommend.ContentItem {
	text := rec.Text
	if rec.Title != "" {
		text = rec.Title + "\n\n" + rec.Text
	}
	return recommend.ContentItem{
		ID:           rec.ID,
		Text:         text,
		Technologies: rec.Technologies,
		QualityScore: rec.QualityScore,
		ContentType:  recommend.ContentType(rec.ContentType),
		Difficulty:   recommend.Difficulty(rec.Difficulty),
		LastUpdated:  rec.UpdatedAt,
	}
}

func vectorTopK(limit int) int {
	if limit <= 0 || limit > 50 {
		return 50
	}
	return limit
}
