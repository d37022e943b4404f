package neo4j

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/devfeed/backend/pkg/circuitbreaker"
	"github.com/devfeed/backend/pkg/logger"
	"github.com/devfeed/backend/pkg/retry"
)

// Client maintains the technology co-occurrence graph. Technologies that
// appear together on ingested content are linked with weighted edges; the
// catalog uses the heaviest neighbours to widen its candidate query.
type Client struct {
	driver      neo4j.DriverWithContext
	database    string
	cb          *circuitbreaker.CircuitBreaker
	retryConfig retry.Config
}

func NewClient(uri, username, password, database string) (*Client, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("failed to verify connectivity: %w", err)
	}

	cb := circuitbreaker.NewCircuitBreaker("neo4j", circuitbreaker.Config{
		MaxRequests:      3,
		Interval:         time.Minute,
		Timeout:          20 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Logger:           logger.GetLogger(),
	})

	retryConfig := retry.Config{
		MaxAttempts:    3,
		InitialDelay:   200 * time.Millisecond,
		MaxDelay:       3 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
		Logger:         logger.GetLogger(),
	}

	logger.Info("Technology graph client initialized", zap.String("uri", uri))

	return &Client{
		driver:      driver,
		database:    database,
		cb:          cb,
		retryConfig: retryConfig,
	}, nil
}

func (c *Client) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}

func (c *Client) executeWithRetry(ctx context.Context, operation func(neo4j.SessionWithContext) error) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return c.cb.Execute(ctx, func() error {
		return retry.Do(ctx, c.retryConfig, func() error {
			session := c.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: c.database})
			defer session.Close(ctx)
			return operation(session)
		})
	})
}

// RecordCooccurrence bumps the edge weight between every pair of
// technologies tagged on one content item.
func (c *Client) RecordCooccurrence(ctx context.Context, techs []string) error {
	techs = lowercase(techs)
	if len(techs) < 2 {
		return nil
	}

	return c.executeWithRetry(ctx, func(session neo4j.SessionWithContext) error {
		query := `
			UNWIND $techs AS a
			UNWIND $techs AS b
			WITH a, b WHERE a < b
			MERGE (ta:Technology {name: a})
			MERGE (tb:Technology {name: b})
			MERGE (ta)-[r:APPEARS_WITH]-(tb)
			ON CREATE SET r.weight = 1
			ON MATCH SET r.weight = r.weight + 1
		`
		_, err := session.Run(ctx, query, map[string]interface{}{"techs": techs})
		if err != nil {
			return fmt.Errorf("failed to record co-occurrence: %w", err)
		}
		return nil
	})
}

// RelatedTechnologies returns up to limit technologies most strongly linked
// to the given set, excluding the inputs themselves.
func (c *Client) RelatedTechnologies(ctx context.Context, techs []string, limit int) ([]string, error) {
	techs = lowercase(techs)
	if len(techs) == 0 {
		return nil, nil
	}

	var related []string
	err := c.executeWithRetry(ctx, func(session neo4j.SessionWithContext) error {
		query := `
			MATCH (t:Technology)-[r:APPEARS_WITH]-(other:Technology)
			WHERE t.name IN $techs AND NOT other.name IN $techs
			RETURN other.name AS name, sum(r.weight) AS weight
			ORDER BY weight DESC
			LIMIT $limit
		`
		result, err := session.Run(ctx, query, map[string]interface{}{
			"techs": techs,
			"limit": limit,
		})
		if err != nil {
			return fmt.Errorf("failed to query related technologies: %w", err)
		}

		related = related[:0]
		for result.Next(ctx) {
			if name, ok := result.Record().Get("name"); ok {
				if s, ok := name.(string); ok {
					related = append(related, s)
				}
			}
		}
		return result.Err()
	})
	if err != nil {
		return nil, err
	}

	logger.Debug("Related technologies resolved",
		zap.Strings("input", techs),
		zap.Strings("related", related),
	)

	return related, nil
}

func lowercase(techs []string) []string {
	out := make([]string, 0, len(techs))
	for _, t := range techs {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
