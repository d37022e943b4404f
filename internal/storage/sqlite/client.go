package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/devfeed/backend/internal/storage/models"
	"github.com/devfeed/backend/pkg/logger"
)

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err = db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if _, err = db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS content_items (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		text TEXT NOT NULL,
		technologies TEXT NOT NULL DEFAULT '[]',
		quality_score REAL NOT NULL DEFAULT 5.0,
		content_type TEXT NOT NULL DEFAULT 'other',
		difficulty TEXT,
		embedding_id TEXT,
		source_url TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_content_source ON content_items(source_url);
	CREATE INDEX IF NOT EXISTS idx_content_type ON content_items(content_type);
	CREATE INDEX IF NOT EXISTS idx_content_updated ON content_items(updated_at);
	CREATE INDEX IF NOT EXISTS idx_content_quality ON content_items(quality_score);

	CREATE TABLE IF NOT EXISTS recommendation_history (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		title TEXT,
		engine TEXT,
		cache_hit INTEGER NOT NULL DEFAULT 0,
		degraded INTEGER NOT NULL DEFAULT 0,
		result_count INTEGER NOT NULL DEFAULT 0,
		latency_ms INTEGER,
		top_items TEXT NOT NULL DEFAULT '[]',
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_history_user ON recommendation_history(user_id);
	CREATE INDEX IF NOT EXISTS idx_history_created ON recommendation_history(created_at);

	CREATE TABLE IF NOT EXISTS feedback (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		recommendation_id TEXT,
		content_id TEXT NOT NULL,
		user_id TEXT,
		helpful INTEGER NOT NULL,
		comment TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_feedback_content ON feedback(content_id);
	CREATE INDEX IF NOT EXISTS idx_feedback_created ON feedback(created_at);
	`

	if _, err := c.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("Database schema initialized")
	return nil
}

func (c *Client) UpsertContentItem(item *models.ContentRecord) error {
	techs, err := json.Marshal(normalizeTechs(item.Technologies))
	if err != nil {
		return fmt.Errorf("failed to encode technologies: %w", err)
	}

	_, err = c.db.Exec(`
		INSERT INTO content_items
			(id, title, text, technologies, quality_score, content_type, difficulty, embedding_id, source_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			text = excluded.text,
			technologies = excluded.technologies,
			quality_score = excluded.quality_score,
			content_type = excluded.content_type,
			difficulty = excluded.difficulty,
			embedding_id = excluded.embedding_id,
			updated_at = excluded.updated_at`,
		item.ID, item.Title, item.Text, string(techs), item.QualityScore,
		item.ContentType, nullable(item.Difficulty), nullable(item.EmbeddingID), nullable(item.SourceURL),
		item.CreatedAt.Unix(), item.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert content item: %w", err)
	}
	return nil
}

// QueryByTechnologies returns items tagged with any of the given
// technologies, most recently updated first. Tags are stored as a lowercase
// JSON array, so a quoted LIKE match is an exact tag match.
func (c *Client) QueryByTechnologies(techs []string, limit int) ([]models.ContentRecord, error) {
	techs = normalizeTechs(techs)
	if len(techs) == 0 {
		return c.RecentContent(limit)
	}

	conditions := make([]string, 0, len(techs))
	args := make([]interface{}, 0, len(techs)+1)
	for _, t := range techs {
		conditions = append(conditions, "technologies LIKE ?")
		args = append(args, `%"`+t+`"%`)
	}
	args = append(args, limit)

	query := fmt.Sprintf(`
		SELECT id, title, text, technologies, quality_score, content_type, difficulty, embedding_id, source_url, created_at, updated_at
		FROM content_items
		WHERE %s
		ORDER BY updated_at DESC
		LIMIT ?`, strings.Join(conditions, " OR "))

	rows, err := c.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query by technologies: %w", err)
	}
	defer rows.Close()

	return scanContentRows(rows)
}

func (c *Client) RecentContent(limit int) ([]models.ContentRecord, error) {
	rows, err := c.db.Query(`
		SELECT id, title, text, technologies, quality_score, content_type, difficulty, embedding_id, source_url, created_at, updated_at
		FROM content_items
		ORDER BY updated_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent content: %w", err)
	}
	defer rows.Close()

	return scanContentRows(rows)
}

func (c *Client) GetContentItems(ids []string) ([]models.ContentRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := c.db.Query(fmt.Sprintf(`
		SELECT id, title, text, technologies, quality_score, content_type, difficulty, embedding_id, source_url, created_at, updated_at
		FROM content_items
		WHERE id IN (%s)`, placeholders), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get content items: %w", err)
	}
	defer rows.Close()

	return scanContentRows(rows)
}

func (c *Client) InsertRecommendation(rec *models.RecommendationRecord) error {
	topItems, err := json.Marshal(rec.TopItems)
	if err != nil {
		return fmt.Errorf("failed to encode top items: %w", err)
	}

	_, err = c.db.Exec(`
		INSERT INTO recommendation_history
			(id, user_id, title, engine, cache_hit, degraded, result_count, latency_ms, top_items, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.UserID, rec.Title, rec.Engine, boolToInt(rec.CacheHit), boolToInt(rec.Degraded),
		rec.ResultCount, rec.LatencyMS, string(topItems), rec.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert recommendation record: %w", err)
	}
	return nil
}

func (c *Client) GetRecommendationHistory(userID string, limit int) ([]models.RecommendationRecord, error) {
	rows, err := c.db.Query(`
		SELECT id, user_id, title, engine, cache_hit, degraded, result_count, latency_ms, top_items, created_at
		FROM recommendation_history
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var records []models.RecommendationRecord
	for rows.Next() {
		var rec models.RecommendationRecord
		var cacheHit, degraded int
		var topItems string
		var createdAt int64

		err := rows.Scan(&rec.ID, &rec.UserID, &rec.Title, &rec.Engine, &cacheHit, &degraded,
			&rec.ResultCount, &rec.LatencyMS, &topItems, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}

		rec.CacheHit = cacheHit != 0
		rec.Degraded = degraded != 0
		rec.CreatedAt = time.Unix(createdAt, 0)
		if err := json.Unmarshal([]byte(topItems), &rec.TopItems); err != nil {
			rec.TopItems = nil
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

func (c *Client) InsertFeedback(f *models.FeedbackRecord) error {
	_, err := c.db.Exec(`
		INSERT INTO feedback (recommendation_id, content_id, user_id, helpful, comment, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		f.RecommendationID, f.ContentID, f.UserID, boolToInt(f.Helpful), f.Comment, f.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert feedback: %w", err)
	}
	return nil
}

// ContentFeedbackStats aggregates feedback per content item, joined with the
// item's current quality score, for the offline quality evaluator.
func (c *Client) ContentFeedbackStats() ([]models.ContentFeedbackStats, error) {
	rows, err := c.db.Query(`
		SELECT f.content_id,
		       SUM(f.helpful) AS helpful_count,
		       COUNT(*) AS total_count,
		       ci.quality_score
		FROM feedback f
		JOIN content_items ci ON ci.id = f.content_id
		GROUP BY f.content_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate feedback: %w", err)
	}
	defer rows.Close()

	var stats []models.ContentFeedbackStats
	for rows.Next() {
		var s models.ContentFeedbackStats
		if err := rows.Scan(&s.ContentID, &s.HelpfulCount, &s.TotalCount, &s.QualityScore); err != nil {
			return nil, fmt.Errorf("failed to scan feedback stats: %w", err)
		}
		stats = append(stats, s)
	}

	return stats, rows.Err()
}

func (c *Client) UpdateQualityScore(contentID string, score float64) error {
	_, err := c.db.Exec(`
		UPDATE content_items SET quality_score = ?, updated_at = ? WHERE id = ?`,
		score, time.Now().Unix(), contentID,
	)
	if err != nil {
		return fmt.Errorf("failed to update quality score: %w", err)
	}
	return nil
}

func scanContentRows(rows *sql.Rows) ([]models.ContentRecord, error) {
	var records []models.ContentRecord
	for rows.Next() {
		var rec models.ContentRecord
		var techs string
		var difficulty, embeddingID, sourceURL sql.NullString
		var createdAt, updatedAt int64

		err := rows.Scan(&rec.ID, &rec.Title, &rec.Text, &techs, &rec.QualityScore,
			&rec.ContentType, &difficulty, &embeddingID, &sourceURL, &createdAt, &updatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan content row: %w", err)
		}

		rec.Difficulty = difficulty.String
		rec.EmbeddingID = embeddingID.String
		rec.SourceURL = sourceURL.String
		rec.CreatedAt = time.Unix(createdAt, 0)
		rec.UpdatedAt = time.Unix(updatedAt, 0)
		if err := json.Unmarshal([]byte(techs), &rec.Technologies); err != nil {
			rec.Technologies = nil
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

func normalizeTechs(techs []string) []string {
	out := make([]string, 0, len(techs))
	seen := make(map[string]struct{}, len(techs))
	for _, t := range techs {
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

// nullable stores empty optional strings as NULL so the scan side can keep
// treating absence and empty the same way.
func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
